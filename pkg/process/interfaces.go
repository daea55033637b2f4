package process

import (
	"io"
	"os"
)

// PTY defines the interface for PTY operations
type PTY interface {
	Start(command string, args []string, env []string) error
	Wait() error
	Stop() error
	MakeRaw(f *os.File) error
	ProcessState() *os.ProcessState
	Process() *os.Process
	GetPTY() *os.File
	CopyIO(stdin io.Reader, stdout io.Writer, handler func([]byte)) error
}
