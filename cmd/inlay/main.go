// Package main is the entry point for the inlay renderer.
//
// inlay reads JSON requests from its host editor on stdin, answers on
// stdout and draws images on the controlling terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/dshills/inlay/internal/app"
	"github.com/dshills/inlay/internal/bridge/lua"
	"github.com/dshills/inlay/internal/config"
	"github.com/dshills/inlay/internal/host"
	"github.com/dshills/inlay/internal/renderer/backend"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	logLevel   string
	protocol   string
	script     string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	settings, err := config.Load(config.WithFile(opts.configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		settings.Logging.Level = opts.logLevel
	}
	if opts.protocol != "" {
		settings.Render.Protocol = opts.protocol
	}
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger, logCloser, err := app.OpenLogger(settings.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out, err := openBackend()
	if err != nil {
		logCloser.Close()
		fmt.Fprintf(os.Stderr, "Error: failed to open terminal: %v\n", err)
		return 1
	}

	engine, err := app.Build(settings, app.BuildOptions{
		Backend: out,
		Logger:  logger,
		Closers: []io.Closer{logCloser},
	})
	if err != nil {
		out.Close()
		logCloser.Close()
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := host.NewDispatcher(engine, logger)

	if opts.script != "" {
		if err := lua.RunScript(opts.script, d); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "inlay: reading requests from the terminal, one JSON object per line")
	}
	if err := d.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("serve: %v", err)
		return 1
	}
	return 0
}

// openBackend opens the controlling terminal. Without one, images go to
// stderr when that is a terminal.
func openBackend() (backend.Backend, error) {
	t, err := backend.NewTerminal()
	if err == nil {
		return t, nil
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return backend.NewWriterTerminal(os.Stderr), nil
	}
	return nil, err
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.protocol, "protocol", "", "Graphics protocol (sixel, kitty)")
	flag.StringVar(&opts.script, "script", "", "Run a Lua script instead of serving stdin")
	flag.StringVar(&opts.script, "s", "", "Run a Lua script (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "inlay - inline math, plots and images for terminal editors\n\n")
		fmt.Fprintf(os.Stderr, "Usage: inlay [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  inlay                       Serve JSON requests on stdin\n")
		fmt.Fprintf(os.Stderr, "  inlay -protocol kitty       Draw with the kitty graphics protocol\n")
		fmt.Fprintf(os.Stderr, "  inlay -s preview.lua        Drive the engine from a Lua script\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("inlay %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		os.Exit(1)
	}

	return opts
}
