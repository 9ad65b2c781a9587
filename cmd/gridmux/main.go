package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/gridmux/internal/actionlog"
	"github.com/1broseidon/gridmux/internal/config"
	"github.com/1broseidon/gridmux/internal/ipc"
	"github.com/1broseidon/gridmux/internal/layout"
	"github.com/1broseidon/gridmux/internal/mcp"
	"github.com/1broseidon/gridmux/internal/runtimepath"
	"github.com/1broseidon/gridmux/internal/session"
	"github.com/1broseidon/gridmux/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runMultiplexer(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "cells":
		os.Exit(runCells(os.Args[2:]))
	case "sessions":
		os.Exit(runSessions(os.Args[2:]))
	case "send":
		os.Exit(runSend(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: gridmux <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Start the multiplexer (foreground, needs a TTY)")
	fmt.Fprintln(w, "  status              Show cell/tab/session counts of a running instance")
	fmt.Fprintln(w, "  cells               List grid cells and their tabs")
	fmt.Fprintln(w, "  sessions            List live session ids")
	fmt.Fprintln(w, "  send                Write text to a session")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print effective configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'gridmux <command> --help' for command-specific options.")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

func runMultiplexer(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", "", "Config file path (default: ~/.config/gridmux/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux run [--config PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start the multiplexer in the current terminal. The previous grid")
		fmt.Fprintln(os.Stderr, "layout is restored; every tab starts a fresh shell session.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings (prefix ctrl+a):")
		fmt.Fprintln(os.Stderr, "  c         New tab in the focused cell")
		fmt.Fprintln(os.Stderr, "  x         Close the active tab")
		fmt.Fprintln(os.Stderr, "  n/p       Next/previous tab")
		fmt.Fprintln(os.Stderr, "  a         Add a cell")
		fmt.Fprintln(os.Stderr, "  r         Remove the focused cell")
		fmt.Fprintln(os.Stderr, "  o         Pop the active tab out to a full-canvas surface")
		fmt.Fprintln(os.Stderr, "  h/l, ←/→  Move focus between cells")
		fmt.Fprintln(os.Stderr, "  R         Retry failed session starts")
		fmt.Fprintln(os.Stderr, "  q         Quit")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "run requires an interactive terminal")
		return 1
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	actions, err := newActionLogger(cfg)
	if err != nil {
		log.Printf("Warning: failed to initialize action logger: %v", err)
	}
	defer actions.Close()

	registry := session.NewRegistry(cfg.Shell)

	statePath := cfg.StatePath
	if statePath == "" {
		statePath, err = layout.DefaultPath()
		if err != nil {
			log.Fatalf("Failed to resolve state path: %v", err)
		}
	}
	store := layout.NewStore(statePath, registry)
	store.Load()

	app := tui.New(cfg, registry, store, actions)
	program := tea.NewProgram(app)
	app.SetProgram(program)

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		log.Printf("Warning: control socket unavailable: %v", err)
	} else {
		server := ipc.NewServer(socketPath, app.IPCHandler())
		if err := server.Start(); err != nil {
			log.Printf("Warning: failed to start control socket: %v", err)
		} else {
			defer server.Stop()
		}
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// newActionLogger builds the rotating action logger from config. Returns
// a disabled logger on nil error paths so callers never nil-check.
func newActionLogger(cfg *config.Config) (*actionlog.Logger, error) {
	logCfg := actionlog.Config{
		Enabled:   cfg.Logging.Enabled,
		Level:     actionlog.ParseLevel(cfg.Logging.Level),
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	if logCfg.Enabled {
		path, err := cfg.LogFile()
		if err != nil {
			disabled, _ := actionlog.New(actionlog.Config{})
			return disabled, err
		}
		logCfg.FilePath = path
	}
	logger, err := actionlog.New(logCfg)
	if err != nil {
		disabled, _ := actionlog.New(actionlog.Config{})
		return disabled, err
	}
	return logger, nil
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the running multiplexer's status via the control socket.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("cell_count:     %d\n", status.CellCount)
	fmt.Printf("tab_count:      %d\n", status.TabCount)
	fmt.Printf("session_count:  %d\n", status.SessionCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runCells(args []string) int {
	fs := flag.NewFlagSet("cells", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux cells [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List the grid cells and tabs of a running multiplexer.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	cells, err := client.ListCells()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *asJSON {
		data, err := json.MarshalIndent(cells, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	for _, cell := range cells {
		fmt.Printf("%s  (%d,%d %dx%d)\n", cell.ID, cell.X, cell.Y, cell.W, cell.H)
		for _, tab := range cell.Tabs {
			marker := " "
			if tab.Active {
				marker = "*"
			}
			session := tab.SessionID
			if session == "" {
				session = "-"
			}
			fmt.Printf("  %s %-14s session=%s\n", marker, tab.Title, session)
		}
	}
	return 0
}

func runSessions(args []string) int {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux sessions")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List live session ids of a running multiplexer.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	sessions, err := client.ListSessions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, id := range sessions {
		fmt.Println(id)
	}
	return 0
}

func runSend(args []string) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	noEnter := fs.Bool("no-enter", false, "Do not append a carriage return")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux send [--no-enter] <session-id> <text>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Write text to a session's terminal, submitting it with Enter")
		fmt.Fprintln(os.Stderr, "unless --no-enter is set.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "send requires <session-id> and <text>")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.WriteSession(fs.Arg(0), fs.Arg(1), !*noEnter); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  gridmux config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  gridmux config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/gridmux/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/gridmux/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.Default()
		if !*printDefaults {
			var err error
			cfg, err = loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runMCP(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage: gridmux mcp serve")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Serve MCP tools over stdio. Requires a running 'gridmux run'")
		fmt.Fprintln(os.Stderr, "instance; every tool call goes through its control socket.")
		return 2
	}
	if args[0] != "serve" {
		fmt.Fprintf(os.Stderr, "Unknown mcp subcommand: %s\n", args[0])
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer()
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
