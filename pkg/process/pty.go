package process

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// outputDrainTimeout bounds how long Wait lets the output copier flush what
// the child wrote before it exited.
const outputDrainTimeout = 500 * time.Millisecond

// PTYManager handles PTY-based process execution
type PTYManager struct {
	cmd         *exec.Cmd
	pty         *os.File
	mu          sync.Mutex
	stopChan    chan struct{}
	wg          sync.WaitGroup
	restoreFunc func()
	filterFocus bool
	outputDone  chan struct{}
	copying     bool
}

// Ensure PTYManager implements PTY
var _ PTY = (*PTYManager)(nil)

// NewPTYManager creates a new PTY manager. With filterFocus set, focus
// reporting mode switches (DECSET/DECRST 1004) written by the child are
// kept away from the outer terminal, which must stay in reporting mode.
func NewPTYManager(filterFocus bool) *PTYManager {
	return &PTYManager{
		stopChan:    make(chan struct{}),
		filterFocus: filterFocus,
		outputDone:  make(chan struct{}),
	}
}

// Start starts a process with PTY
func (p *PTYManager) Start(command string, args []string, env []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("process already started")
	}

	p.cmd = exec.Command(command, args...)
	p.cmd.Env = env

	var err error
	p.pty, err = pty.Start(p.cmd)
	if err != nil {
		p.cmd = nil
		return fmt.Errorf("failed to start PTY: %w", err)
	}

	// Best effort; there may be no terminal to copy from
	_ = p.copyTerminalSize()

	p.wg.Add(1)
	go p.monitorTerminalSize()

	return nil
}

// MakeRaw puts the controlling terminal f into raw mode until Stop is called.
func (p *PTYManager) MakeRaw(f *os.File) error {
	fd := int(f.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.restoreFunc = func() {
		_ = term.Restore(fd, state)
	}
	return nil
}

// GetPTY returns the PTY file descriptor
func (p *PTYManager) GetPTY() *os.File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pty
}

// Wait waits for the process to complete
func (p *PTYManager) Wait() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil {
		return fmt.Errorf("process not started")
	}

	err := cmd.Wait()

	close(p.stopChan)
	p.wg.Wait()

	p.mu.Lock()
	copying := p.copying
	p.mu.Unlock()
	if copying {
		select {
		case <-p.outputDone:
		case <-time.After(outputDrainTimeout):
		}
	}

	p.mu.Lock()
	if p.pty != nil {
		_ = p.pty.Close()
	}
	p.mu.Unlock()

	return err
}

// ProcessState returns the process state
func (p *PTYManager) ProcessState() *os.ProcessState {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.ProcessState
}

// Process returns the underlying process
func (p *PTYManager) Process() *os.Process {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.Process
}

// Stop restores the terminal state
func (p *PTYManager) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.restoreFunc != nil {
		p.restoreFunc()
		p.restoreFunc = nil
	}

	return nil
}

// copyTerminalSize copies the terminal size from stdin to the PTY
func (p *PTYManager) copyTerminalSize() error {
	size, err := pty.GetsizeFull(os.Stdin)
	if err != nil {
		return err
	}

	return pty.Setsize(p.pty, size)
}

// monitorTerminalSize monitors for terminal size changes
func (p *PTYManager) monitorTerminalSize() {
	defer p.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			p.mu.Lock()
			if p.pty != nil {
				_ = p.copyTerminalSize()
			}
			p.mu.Unlock()
		case <-p.stopChan:
			return
		}
	}
}

// CopyIO copies stdin to the PTY and the PTY to stdout. The handler sees
// the child's output before any filtering.
func (p *PTYManager) CopyIO(stdin io.Reader, stdout io.Writer, handler func([]byte)) error {
	p.mu.Lock()
	if p.pty == nil {
		p.mu.Unlock()
		return fmt.Errorf("PTY not initialized")
	}
	ptyFile := p.pty
	p.copying = true
	p.mu.Unlock()

	errChan := make(chan error, 2)

	// The stdin copier blocks on the user's terminal and is not waited for.
	go func() {
		if _, err := io.Copy(ptyFile, stdin); err != nil {
			errChan <- fmt.Errorf("stdin copy error: %w", err)
		}
	}()

	defer close(p.outputDone)

	reader := &outputReader{
		reader:      ptyFile,
		handler:     handler,
		filterFocus: p.filterFocus,
		buf:         make([]byte, 32*1024),
	}
	if _, err := io.Copy(stdout, reader); err != nil && !isPTYClosed(err) {
		return fmt.Errorf("stdout copy error: %w", err)
	}

	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

// isPTYClosed reports the errors a PTY master returns once the child side
// has gone away.
func isPTYClosed(err error) bool {
	if err == io.EOF || err == os.ErrClosed {
		return true
	}
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err == syscall.EIO || pe.Err == os.ErrClosed
	}
	return false
}

var focusModeSequences = [][]byte{
	[]byte("\033[?1004h"),
	[]byte("\033[?1004l"),
}

// outputReader wraps the PTY, hands every chunk to handler and optionally
// strips focus reporting mode switches from what is forwarded.
type outputReader struct {
	reader      io.Reader
	handler     func([]byte)
	filterFocus bool
	buf         []byte
	carry       []byte // possible start of a focus mode sequence
	out         []byte
}

func (r *outputReader) Read(p []byte) (int, error) {
	if r.buf == nil {
		r.buf = make([]byte, len(p))
	}

	for len(r.out) == 0 {
		n, err := r.reader.Read(r.buf)
		if n > 0 {
			if r.handler != nil {
				r.handler(r.buf[:n])
			}
			if r.filterFocus {
				data := append(r.carry, r.buf[:n]...)
				r.out, r.carry = stripFocusMode(data)
			} else {
				r.out = append([]byte(nil), r.buf[:n]...)
			}
		}
		if err != nil {
			if len(r.out) == 0 && len(r.carry) > 0 {
				r.out, r.carry = r.carry, nil
			}
			if len(r.out) == 0 {
				return 0, err
			}
			break
		}
	}

	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

// stripFocusMode removes focus mode switches from data. A trailing partial
// sequence is returned as carry for the next read.
func stripFocusMode(data []byte) (out, carry []byte) {
	for _, seq := range focusModeSequences {
		data = bytes.ReplaceAll(data, seq, nil)
	}

	maxTail := len(focusModeSequences[0]) - 1
	if maxTail > len(data) {
		maxTail = len(data)
	}
	for k := maxTail; k > 0; k-- {
		tail := data[len(data)-k:]
		for _, seq := range focusModeSequences {
			if bytes.HasPrefix(seq, tail) {
				return data[:len(data)-k], append([]byte(nil), tail...)
			}
		}
	}
	return data, nil
}
