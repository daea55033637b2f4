// Package interfaces defines the core interfaces used throughout the application.
package interfaces

// DataHandler processes raw output data.
type DataHandler interface {
	HandleData(data []byte)
}

// ScreenEventHandler reacts to control sequences written by the wrapped
// program.
type ScreenEventHandler interface {
	HandleScreenClear()
	// HandleFocusMode reports the program enabling or disabling focus
	// reporting (DECSET/DECRST 1004).
	HandleFocusMode(enabled bool)
}

// TerminalSequenceDetector finds screen events in a stream of output.
type TerminalSequenceDetector interface {
	DetectSequences(data []byte, handler ScreenEventHandler)
}
