package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/Veraticus/presenced/pkg/clock"
	"github.com/Veraticus/presenced/pkg/config"
	"github.com/Veraticus/presenced/pkg/logging"
	"github.com/Veraticus/presenced/pkg/monitor"
	"github.com/Veraticus/presenced/pkg/presence"
	"github.com/Veraticus/presenced/pkg/process"
	"github.com/Veraticus/presenced/pkg/status"
	"github.com/Veraticus/presenced/pkg/surface"
)

// Streams are the process's standard streams and how to open a tcell screen.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Interactive reports whether Err is a terminal the indicator may draw on.
	Interactive bool
	NewScreen   func() (tcell.Screen, error)
}

// DefaultStreams returns the real standard streams.
func DefaultStreams() Streams {
	return Streams{
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Interactive: term.IsTerminal(int(os.Stderr.Fd())),
		NewScreen:   tcell.NewScreen,
	}
}

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config          *config.Config
	Logger          *slog.Logger
	Surface         surface.Surface
	Terminal        *surface.Terminal
	Tcell           *surface.Tcell
	X11             *surface.X11
	Screen          tcell.Screen
	Detector        *presence.Detector
	StatusIndicator *status.Indicator
	StatusReporter  *status.Reporter
	OutputMonitor   *monitor.OutputMonitor
	ProcessManager  *process.Manager

	logCloser io.Closer
	quit      chan struct{}
	quitOnce  sync.Once
	stopChan  chan struct{}
	closeOnce sync.Once
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config, streams Streams) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		quit:     make(chan struct{}),
		stopChan: make(chan struct{}),
	}

	logOpts := cfg.LoggingOptions()
	logOpts.Output = streams.Err
	if cfg.Surface == config.SurfaceTerminal && logOpts.File == "" {
		// The wrapped program owns the terminal
		logOpts.Output = io.Discard
	}
	logger, closer, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	deps.Logger = logger
	deps.logCloser = closer

	if err := deps.buildSurface(streams); err != nil {
		deps.Close()
		return nil, err
	}

	indicatorEnabled := cfg.StatusIndicator && streams.Interactive && cfg.Surface != config.SurfaceTcell
	deps.StatusIndicator = status.NewIndicator(streams.Err, indicatorEnabled, deps.Surface, clock.New())
	deps.StatusReporter = status.NewReporter(deps.StatusIndicator, logger, clock.New())

	if deps.Terminal != nil {
		deps.OutputMonitor = monitor.NewOutputMonitor(logger)
		deps.OutputMonitor.AddScreenEventHandler(focusPassthrough{deps.Terminal})
		if indicatorEnabled {
			deps.OutputMonitor.AddScreenEventHandler(deps.StatusIndicator)
		}
		deps.ProcessManager = process.NewManager(cfg, deps.Terminal.Reader(streams.In), streams.Out, deps.OutputMonitor, logger)
	}

	opts := append(cfg.DetectorOptions(), presence.WithLogger(logger))
	detector, err := presence.New(deps.Surface, opts...)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}
	deps.Detector = detector
	deps.StatusIndicator.SetPresent(detector.IsActive())
	detector.AddSubscriber("status", deps.StatusReporter.Report)

	if deps.Screen != nil {
		view := &tcellView{screen: deps.Screen, source: deps.Surface}
		detector.AddSubscriber("screen", view.draw)
		view.draw(detector.IsActive())
	}

	return deps, nil
}

func (d *Dependencies) buildSurface(streams Streams) error {
	switch d.Config.Surface {
	case config.SurfaceTerminal:
		d.Terminal = surface.NewTerminal("terminal", d.Config.AssumeFocused)
		d.Surface = d.Terminal
	case config.SurfaceTcell:
		if streams.NewScreen == nil {
			return fmt.Errorf("no tcell screen available")
		}
		screen, err := streams.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to initialise screen: %w", err)
		}
		d.Screen = screen
		d.Tcell = surface.NewTcell(screen, d.Config.AssumeFocused)
		d.Tcell.OnEvent(d.handleScreenEvent)
		d.Surface = d.Tcell
	case config.SurfaceX11:
		x, err := surface.DialX11(d.Config.X11.Display, d.Config.X11.Window)
		if err != nil {
			return err
		}
		d.Logger.Info("watching X11 window", "window", fmt.Sprintf("0x%x", x.Window()))
		d.X11 = x
		d.Surface = x
	default:
		return fmt.Errorf("unknown surface %q", d.Config.Surface)
	}
	return nil
}

// handleScreenEvent quits on Escape, Ctrl-C or q and redraws on resize.
func (d *Dependencies) handleScreenEvent(ev tcell.Event) {
	switch tev := ev.(type) {
	case *tcell.EventKey:
		if tev.Key() == tcell.KeyEscape || tev.Key() == tcell.KeyCtrlC || tev.Rune() == 'q' {
			d.requestQuit()
		}
	case *tcell.EventResize:
		d.Screen.Sync()
	}
}

func (d *Dependencies) requestQuit() {
	d.quitOnce.Do(func() { close(d.quit) })
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	d.closeOnce.Do(func() {
		close(d.stopChan)

		if d.Detector != nil {
			d.Detector.Destroy()
		}
		if d.X11 != nil {
			// Destroy only closes the connection once it is listening
			_ = d.X11.Close()
		}
		if d.StatusIndicator != nil {
			_ = d.StatusIndicator.Clear() // Best effort
		}
		if d.Screen != nil {
			d.Screen.Fini()
		}
		if d.logCloser != nil {
			_ = d.logCloser.Close()
		}
	})
}

// focusPassthrough lets focus reports through to the wrapped program while
// it has focus reporting switched on.
type focusPassthrough struct {
	terminal *surface.Terminal
}

func (f focusPassthrough) HandleScreenClear() {}

func (f focusPassthrough) HandleFocusMode(enabled bool) {
	f.terminal.SetFocusPassthrough(enabled)
}

// tcellView renders the presence state in the middle of a tcell screen.
type tcellView struct {
	mu     sync.Mutex
	screen tcell.Screen
	source surface.Surface
}

func (v *tcellView) draw(active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	text, style := "away", tcell.StyleDefault.Foreground(tcell.ColorYellow)
	if active {
		text, style = "present", tcell.StyleDefault.Foreground(tcell.ColorGreen)
	}
	focus := "unfocused"
	if v.source.HasFocus() {
		focus = "focused"
	}
	lines := []string{text, focus, "esc or q to quit"}

	v.screen.Clear()
	w, h := v.screen.Size()
	for i, line := range lines {
		y := h/2 - len(lines)/2 + i
		x := (w - len(line)) / 2
		st := style
		if i > 0 {
			st = tcell.StyleDefault.Foreground(tcell.ColorGray)
		}
		for j, r := range line {
			v.screen.SetContent(x+j, y, r, nil, st)
		}
	}
	v.screen.Show()
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run monitors presence until ctx is cancelled. In terminal mode it runs
// command in a PTY and returns when it exits.
func (a *Application) Run(ctx context.Context, command string, args []string) error {
	d := a.deps
	d.Logger.Info("presenced started",
		"surface", d.Surface.Name(),
		"active", d.Detector.IsActive(),
		"activity_timeout", d.Config.ActivityTimeout,
		"blur_focus_throttling", d.Config.BlurFocusThrottling,
	)

	if d.ProcessManager != nil {
		d.StatusIndicator.StartAutoRefresh(d.stopChan)
		if err := d.ProcessManager.Start(command, args); err != nil {
			return err
		}

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				if err := d.ProcessManager.Stop(); err != nil {
					d.Logger.Warn("failed to stop wrapped command", "error", err)
				}
			case <-done:
			}
		}()

		return d.ProcessManager.Wait()
	}

	select {
	case <-ctx.Done():
	case <-d.quit:
	}
	d.Logger.Info("presenced stopping", "transitions", d.StatusReporter.Transitions())
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop() error {
	a.deps.requestQuit()
	if a.deps.ProcessManager != nil {
		return a.deps.ProcessManager.Stop()
	}
	return nil
}

// ExitCode returns the exit code of the wrapped process
func (a *Application) ExitCode() int {
	if a.deps.ProcessManager == nil {
		return 0
	}
	return a.deps.ProcessManager.ExitCode()
}
