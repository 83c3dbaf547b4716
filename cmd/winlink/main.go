package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/1broseidon/winlink/internal/config"
	"github.com/1broseidon/winlink/internal/daemon"
	"github.com/1broseidon/winlink/internal/ipc"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/window"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "snap":
		os.Exit(runSnap(os.Args[2:]))
	case "unsnap":
		os.Exit(runUnsnap(os.Args[2:]))
	case "override":
		os.Exit(runOverride(os.Args[2:]))
	case "reset":
		os.Exit(runReset(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
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
	fmt.Fprintln(w, "Usage: winlink <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the winlink daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  windows             List managed windows")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  snap                Group windows so they move together")
	fmt.Fprintln(w, "  unsnap              Take a window out of its snap group")
	fmt.Fprintln(w, "  override            Apply a temporary override to a window")
	fmt.Fprintln(w, "  reset               Restore overridden window fields")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config init         Write the default configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Windows are named owner/name, as printed by 'winlink windows'.")
	fmt.Fprintln(w, "Run 'winlink <command> --help' for command-specific options.")
}

// newFlagSet returns a flag set with the shared --socket flag.
func newFlagSet(name, usage string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "Daemon socket path (default: socket_path from config, else $XDG_RUNTIME_DIR/winlink.sock)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winlink "+usage)
		fs.PrintDefaults()
	}
	return fs, socket
}

// parseFlags returns -1 on success, otherwise the exit code.
func parseFlags(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	return -1
}

func newClient(socket string) *ipc.Client {
	if socket != "" {
		return ipc.NewClientWithSocket(socket)
	}
	if cfg, err := config.Load(); err == nil && cfg.SocketPath != "" {
		return ipc.NewClientWithSocket(cfg.SocketPath)
	}
	return ipc.NewClient()
}

func parseWindows(args []string) ([]platform.Identity, error) {
	ids := make([]platform.Identity, 0, len(args))
	for _, a := range args {
		id, err := platform.ParseIdentity(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path (default: ~/.config/winlink/config.yaml)")
	backend := fs.String("backend", "", "Override the configured backend (x11, memory)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winlink daemon [--config PATH] [--backend NAME]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the daemon in the foreground. SIGHUP reloads the configuration.")
	}
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config
	if *backend != "" {
		cfg.Backend = config.Backend(*backend)
	}

	var level slog.LevelVar
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "backend", cfg.Backend, "files", res.Files)

	d, err := daemon.New(daemon.Options{
		ConfigPath: *path,
		Config:     cfg,
		Logger:     logger,
		LogLevel:   &level,
	})
	if err != nil {
		logger.Error("failed to start daemon", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP, reloading config")
				if err := d.Reload(); err != nil {
					logger.Error("config reload failed", "error", err)
				}
			}
		}
	}()

	if err := d.Run(ctx); err != nil {
		logger.Error("daemon exited with errors", "error", err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs, socket := newFlagSet("status", "status [--json]")
	asJSON := fs.Bool("json", false, "Print JSON")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := newClient(*socket).GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(status)
	}
	fmt.Printf("daemon_running:      %v\n", status.DaemonRunning)
	fmt.Printf("backend:             %s\n", status.Backend)
	fmt.Printf("window_count:        %d\n", status.WindowCount)
	fmt.Printf("snap_group_count:    %d\n", status.SnapGroupCount)
	fmt.Printf("active_transactions: %d\n", status.ActiveTransactions)
	fmt.Printf("uptime_seconds:      %d\n", status.UptimeSeconds)
	return 0
}

func runWindows(args []string) int {
	fs, socket := newFlagSet("windows", "windows [--json] [window]")
	asJSON := fs.Bool("json", false, "Print JSON (default when stdout is not a terminal)")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	client := newClient(*socket)
	var (
		snaps []window.Snapshot
		err   error
	)
	if fs.NArg() == 1 {
		id, perr := platform.ParseIdentity(fs.Arg(0))
		if perr != nil {
			fmt.Fprintln(os.Stderr, perr)
			return 2
		}
		var snap *window.Snapshot
		if snap, err = client.GetWindow(id); err == nil {
			snaps = []window.Snapshot{*snap}
		}
	} else {
		snaps, err = client.ListWindows()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *asJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		return printJSON(snaps)
	}
	printWindowTable(os.Stdout, snaps)
	return 0
}

func printWindowTable(w io.Writer, snaps []window.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tSTAGE\tSTATE\tBOUNDS\tOPACITY\tGROUP\tOVERRIDES\tTITLE")
	for _, s := range snaps {
		r := s.Current.Bounds().ToRect()
		group := "-"
		if len(s.SnapGroup) > 1 {
			group = strconv.Itoa(len(s.SnapGroup))
		}
		overrides := "-"
		if len(s.Temporary) > 0 {
			overrides = strings.Join(s.Temporary, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d,%d %dx%d\t%.2f\t%s\t%s\t%s\n",
			s.ID, s.Stage, s.Current.State, r.X, r.Y, r.Width, r.Height,
			s.Current.Opacity, group, overrides, s.Current.Title)
	}
	tw.Flush()
}

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}

func runSnap(args []string) int {
	fs, socket := newFlagSet("snap", "snap <window> <window> [window...]")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "snap needs at least two windows")
		fs.Usage()
		return 2
	}
	ids, err := parseWindows(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := newClient(*socket).Snap(ids...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runUnsnap(args []string) int {
	fs, socket := newFlagSet("unsnap", "unsnap <window>")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := platform.ParseIdentity(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := newClient(*socket).Unsnap(id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runOverride(args []string) int {
	fs, socket := newFlagSet("override", "override [--opacity F] [--on-top] [--hidden] <window>")
	opacity := fs.Float64("opacity", 1, "Temporary opacity between 0 and 1")
	onTop := fs.Bool("on-top", false, "Temporarily keep the window above others")
	hidden := fs.Bool("hidden", false, "Temporarily hide the window")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := platform.ParseIdentity(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	payload := ipc.OverridePayload{Window: id}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "opacity":
			payload.Opacity = opacity
		case "on-top":
			payload.AlwaysOnTop = onTop
		case "hidden":
			payload.Hidden = hidden
		}
	})
	if payload.Delta().Empty() {
		fmt.Fprintln(os.Stderr, "override needs at least one of --opacity, --on-top, --hidden")
		return 2
	}
	if payload.Opacity != nil && (*payload.Opacity < 0 || *payload.Opacity > 1) {
		fmt.Fprintln(os.Stderr, "--opacity must be between 0 and 1")
		return 2
	}
	if err := newClient(*socket).ApplyOverride(payload); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runReset(args []string) int {
	fs, socket := newFlagSet("reset", "reset <window> [field...]")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}
	id, err := platform.ParseIdentity(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fields := fs.Args()[1:]
	if _, err := ipc.ParseFields(fields); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := newClient(*socket).ResetOverride(id, fields...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runReload(args []string) int {
	fs, socket := newFlagSet("reload", "reload")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return 2
	}
	if err := newClient(*socket).Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}
