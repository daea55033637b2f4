package testutil

import (
	"strings"
	"sync"

	"github.com/Veraticus/presenced/pkg/interfaces"
)

// MockDataHandler is a mock implementation of interfaces.DataHandler for testing
type MockDataHandler struct {
	mu     sync.Mutex
	chunks []string
}

// Ensure MockDataHandler implements DataHandler
var _ interfaces.DataHandler = (*MockDataHandler)(nil)

// NewMockDataHandler creates a new mock data handler
func NewMockDataHandler() *MockDataHandler {
	return &MockDataHandler{
		chunks: []string{},
	}
}

// HandleData implements the DataHandler interface
func (m *MockDataHandler) HandleData(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, string(data))
}

// GetChunks returns every chunk handled so far
func (m *MockDataHandler) GetChunks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]string, len(m.chunks))
	copy(result, m.chunks)
	return result
}

// GetData returns the handled chunks joined together
func (m *MockDataHandler) GetData() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.chunks, "")
}

// MockScreenEventHandler is a mock implementation of
// interfaces.ScreenEventHandler for testing
type MockScreenEventHandler struct {
	mu         sync.Mutex
	clearCount int
	focusModes []bool
}

// Ensure MockScreenEventHandler implements ScreenEventHandler
var _ interfaces.ScreenEventHandler = (*MockScreenEventHandler)(nil)

// NewMockScreenEventHandler creates a new mock screen event handler
func NewMockScreenEventHandler() *MockScreenEventHandler {
	return &MockScreenEventHandler{
		focusModes: []bool{},
	}
}

// HandleScreenClear implements the ScreenEventHandler interface
func (m *MockScreenEventHandler) HandleScreenClear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCount++
}

// HandleFocusMode implements the ScreenEventHandler interface
func (m *MockScreenEventHandler) HandleFocusMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focusModes = append(m.focusModes, enabled)
}

// GetClearCount returns how many times HandleScreenClear was called
func (m *MockScreenEventHandler) GetClearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearCount
}

// GetFocusModes returns every focus mode change reported
func (m *MockScreenEventHandler) GetFocusModes() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]bool, len(m.focusModes))
	copy(result, m.focusModes)
	return result
}
