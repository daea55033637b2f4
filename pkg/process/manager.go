package process

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/Veraticus/presenced/pkg/config"
	"github.com/Veraticus/presenced/pkg/interfaces"
	"github.com/Veraticus/presenced/pkg/logging"
	"github.com/Veraticus/presenced/pkg/monitor"
)

// wrappedEnv is set in the child's environment to refuse nested wrapping.
const wrappedEnv = "PRESENCED_WRAPPED"

// Manager runs a command inside a PTY and relays the user's terminal to it.
type Manager struct {
	config        *config.Config
	logger        *slog.Logger
	ptyManager    PTY
	input         io.Reader
	output        io.Writer
	tty           *os.File
	outputHandler interfaces.DataHandler
	focusEnabled  bool
	exitCode      int
	mu            sync.Mutex
	sigChan       chan os.Signal
	done          chan struct{}
}

// NewManager creates a new process manager. input is what the child reads,
// typically the user's terminal after it has passed through the presence
// surface; output receives the child's output.
func NewManager(cfg *config.Config, input io.Reader, output io.Writer, outputHandler interfaces.DataHandler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		config:        cfg,
		logger:        logger,
		ptyManager:    NewPTYManager(cfg.FocusReporting),
		input:         input,
		output:        output,
		tty:           os.Stdin,
		outputHandler: outputHandler,
		done:          make(chan struct{}),
	}
}

// Start starts the wrapped command
func (m *Manager) Start(command string, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if os.Getenv(wrappedEnv) == "1" {
		return fmt.Errorf("already wrapped by presenced")
	}

	env := append(os.Environ(), wrappedEnv+"=1")

	if err := m.ptyManager.Start(command, args, env); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	if m.tty != nil && term.IsTerminal(int(m.tty.Fd())) {
		if err := m.ptyManager.MakeRaw(m.tty); err != nil {
			m.logger.Warn("continuing without raw mode", "error", err)
		}
	}

	// The outer terminal, not the child's PTY, is asked for focus reports
	if m.config.FocusReporting && m.output != nil {
		if _, err := m.output.Write(monitor.EnableFocusReporting()); err == nil {
			m.focusEnabled = true
			m.logger.Debug("enabled focus reporting")
		}
	}

	go func() {
		var handler func([]byte)
		if m.outputHandler != nil {
			handler = m.outputHandler.HandleData
		}
		if err := m.ptyManager.CopyIO(m.input, m.output, handler); err != nil {
			m.logger.Error("I/O error", "error", err)
		}
	}()

	m.setupSignalForwarding()

	m.logger.Info("started wrapped command", "command", command, "args", args)
	return nil
}

// Wait waits for the process to exit
func (m *Manager) Wait() error {
	if m.ptyManager == nil {
		return fmt.Errorf("process not started")
	}

	err := m.ptyManager.Wait()

	m.mu.Lock()
	if state := m.ptyManager.ProcessState(); state != nil {
		m.exitCode = state.ExitCode()
	}
	if m.focusEnabled {
		_, _ = m.output.Write(monitor.DisableFocusReporting())
		m.focusEnabled = false
	}
	m.mu.Unlock()

	// Ensure terminal is restored
	_ = m.ptyManager.Stop()

	close(m.done)
	m.cleanupSignals()

	return err
}

// ExitCode returns the exit code of the process
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// setupSignalForwarding sets up signal forwarding to the child process
func (m *Manager) setupSignalForwarding() {
	m.sigChan = make(chan os.Signal, 1)
	signal.Notify(m.sigChan,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGQUIT,
		syscall.SIGUSR1,
		syscall.SIGUSR2,
	)

	go m.forwardSignals()
}

// forwardSignals forwards signals to the child process
func (m *Manager) forwardSignals() {
	for {
		select {
		case sig, ok := <-m.sigChan:
			if !ok {
				return
			}
			if m.ptyManager != nil && m.ptyManager.Process() != nil {
				if err := m.ptyManager.Process().Signal(sig); err != nil && err != os.ErrProcessDone {
					m.logger.Warn("signal forward error", "signal", sig.String(), "error", err)
				}
			}
		case <-m.done:
			return
		}
	}
}

// cleanupSignals stops signal forwarding
func (m *Manager) cleanupSignals() {
	if m.sigChan != nil {
		signal.Stop(m.sigChan)
	}
}

// Stop gracefully stops the manager and cleans up resources
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ptyManager != nil {
		_ = m.ptyManager.Stop()

		if m.ptyManager.Process() != nil {
			// SIGTERM first, then force kill
			if err := m.ptyManager.Process().Signal(syscall.SIGTERM); err != nil {
				if err != os.ErrProcessDone {
					return m.ptyManager.Process().Kill()
				}
			}
		}
	}

	return nil
}
