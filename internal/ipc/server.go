package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
)

// Handler answers IPC commands. The running multiplexer implements this by
// marshalling each call onto its event loop, so handlers never race with
// interactive mutations.
type Handler interface {
	Status() StatusData
	Cells() []CellInfo
	AddCell() (CellInfo, error)
	RemoveCell(cellID string) error
	NewTab(cellID string) (TabInfo, error)
	Sessions() []string
	WriteSession(sessionID string, data []byte) error
	KillSession(sessionID string) error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	handler      Handler
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server bound to the given handler.
func NewServer(socketPath string, handler Handler) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		handler:    handler,
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("ipc: listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

// Stop shuts the server down and removes the socket.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("ipc: accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("ipc: read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("ipc: failed to marshal response: %v", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("ipc: write error: %v", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return okOrError(s.handler.Status(), nil)

	case CommandListCells:
		return okOrError(CellsData{Cells: s.handler.Cells()}, nil)

	case CommandAddCell:
		cell, err := s.handler.AddCell()
		return okOrError(cell, err)

	case CommandRemoveCell:
		var payload RemoveCellPayload
		if err := unmarshalPayload(req, &payload); err != nil {
			return NewErrorResponse(err.Error())
		}
		return okOrError(nil, s.handler.RemoveCell(payload.CellID))

	case CommandNewTab:
		var payload NewTabPayload
		if err := unmarshalPayload(req, &payload); err != nil {
			return NewErrorResponse(err.Error())
		}
		tab, err := s.handler.NewTab(payload.CellID)
		return okOrError(tab, err)

	case CommandListSessions:
		return okOrError(SessionsData{SessionIDs: s.handler.Sessions()}, nil)

	case CommandWriteSession:
		var payload WriteSessionPayload
		if err := unmarshalPayload(req, &payload); err != nil {
			return NewErrorResponse(err.Error())
		}
		data := []byte(payload.Data)
		if payload.Enter {
			data = append(data, '\r')
		}
		return okOrError(nil, s.handler.WriteSession(payload.SessionID, data))

	case CommandKillSession:
		var payload KillSessionPayload
		if err := unmarshalPayload(req, &payload); err != nil {
			return NewErrorResponse(err.Error())
		}
		return okOrError(nil, s.handler.KillSession(payload.SessionID))

	default:
		return NewErrorResponse(fmt.Sprintf("unknown command %q", req.Command))
	}
}

func unmarshalPayload(req *Request, dst interface{}) error {
	if len(req.Payload) == 0 {
		return fmt.Errorf("missing payload for %s", req.Command)
	}
	if err := json.Unmarshal(req.Payload, dst); err != nil {
		return fmt.Errorf("invalid payload for %s: %v", req.Command, err)
	}
	return nil
}

func okOrError(data interface{}, err error) *Response {
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, merr := NewOKResponse(data)
	if merr != nil {
		return NewErrorResponse(merr.Error())
	}
	return resp
}

func (s *Server) sendError(conn net.Conn, msg string) {
	resp := NewErrorResponse(msg)
	data, err := resp.Marshal()
	if err != nil {
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
