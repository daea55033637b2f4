package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/Veraticus/presenced/pkg/config"
)

// options are the command line settings that override the config file.
type options struct {
	configPath      string
	surface         string
	activityTimeout time.Duration
	blurThrottling  time.Duration
	logLevel        string
	help            bool
	command         []string
}

func main() {
	opts, fs, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if opts.help {
		printUsage(os.Stdout, fs)
		os.Exit(0)
	}

	cfg, err := loadConfig(opts, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var command string
	var args []string
	if cfg.Surface == config.SurfaceTerminal {
		command, args, err = resolveCommand(opts.command)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	deps, err := NewDependencies(cfg, DefaultStreams())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating dependencies: %v\n", err)
		os.Exit(1)
	}

	app := NewApplication(deps)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Ensure terminal restoration on panic
	defer func() {
		if r := recover(); r != nil {
			_ = app.Stop() // Best effort terminal restoration
			deps.Close()
			panic(r)
		}
	}()

	runErr := app.Run(ctx, command, args)
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			deps.Logger.Error("run failed", "error", runErr)
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		}
	}

	code := app.ExitCode()
	deps.Close()
	if runErr != nil && code == 0 && cfg.Surface != config.SurfaceTerminal {
		code = 1
	}
	os.Exit(code)
}

// parseArgs parses our flags. Parsing stops at the first positional
// argument so the wrapped command keeps its own flags.
func parseArgs(argv []string) (*options, *flag.FlagSet, error) {
	opts := &options{}
	fs := flag.NewFlagSet("presenced", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.surface, "surface", "", "Surface to monitor: terminal, tcell or x11")
	fs.DurationVar(&opts.activityTimeout, "activity-timeout", 0, "Silence after which the user is away (e.g. 30s)")
	fs.DurationVar(&opts.blurThrottling, "blur-throttling", 0, "Settle window for focus and blur (e.g. 250ms)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help message")

	if err := fs.Parse(argv); err != nil {
		return nil, nil, err
	}
	opts.command = fs.Args()
	return opts, fs, nil
}

// loadConfig layers flags that were given explicitly over the file and
// environment configuration.
func loadConfig(opts *options, fs *flag.FlagSet) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if fs.Changed("surface") {
		cfg.Surface = opts.surface
	}
	if fs.Changed("activity-timeout") {
		cfg.ActivityTimeout = opts.activityTimeout
	}
	if fs.Changed("blur-throttling") {
		cfg.BlurFocusThrottling = opts.blurThrottling
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveCommand picks the command to wrap, defaulting to the user's shell,
// and refuses to wrap presenced itself.
func resolveCommand(argv []string) (string, []string, error) {
	if len(argv) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		argv = []string{shell}
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return "", nil, fmt.Errorf("command not found: %w", err)
	}

	if self, err := os.Executable(); err == nil {
		resolved, rerr := filepath.EvalSymlinks(path)
		ourPath, serr := filepath.EvalSymlinks(self)
		if rerr == nil && serr == nil && resolved == ourPath {
			return "", nil, fmt.Errorf("refusing to wrap presenced inside itself")
		}
	}

	return path, argv[1:], nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintln(w, "presenced - detect whether a human is present at a terminal or window")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage: presenced [OPTIONS] [COMMAND [ARGS...]]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "In terminal mode COMMAND (default $SHELL) runs in a PTY and its input")
	_, _ = fmt.Fprintln(w, "drives presence. The tcell and x11 surfaces run until interrupted.")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Options:")
	_, _ = fmt.Fprint(w, fs.FlagUsages())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Environment Variables:")
	_, _ = fmt.Fprintln(w, "  PRESENCED_CONFIG                 Path to config file")
	_, _ = fmt.Fprintln(w, "  PRESENCED_SURFACE                terminal, tcell or x11 (default: terminal)")
	_, _ = fmt.Fprintln(w, "  PRESENCED_ACTIVITY_TIMEOUT       Idle timeout (default: 30s)")
	_, _ = fmt.Fprintln(w, "  PRESENCED_BLUR_FOCUS_THROTTLING  Focus settle window (default: 250ms)")
	_, _ = fmt.Fprintln(w, "  PRESENCED_ASSUME_FOCUSED         Initial focus state (true/false)")
	_, _ = fmt.Fprintln(w, "  PRESENCED_ISOLATE_SUBSCRIBERS    Recover from panicking subscribers (true/false)")
	_, _ = fmt.Fprintln(w, "  PRESENCED_LOG_LEVEL              debug, info, warn or error")
	_, _ = fmt.Fprintln(w, "  PRESENCED_LOG_FORMAT             text or json")
	_, _ = fmt.Fprintln(w, "  PRESENCED_LOG_FILE               Write logs to this file")
	_, _ = fmt.Fprintln(w, "  PRESENCED_X11_WINDOW             X window id (default: active window)")
	_, _ = fmt.Fprintln(w, "  DISPLAY                          X display for the x11 surface")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Configuration file: ~/.config/presenced/config.yaml")
}
