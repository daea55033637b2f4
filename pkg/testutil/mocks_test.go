package testutil

import (
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	t.Run("records in order", func(t *testing.T) {
		rec := NewRecorder()
		rec.Record(false)
		rec.Record(true)

		got := rec.GetTransitions()
		if len(got) != 2 || got[0] != false || got[1] != true {
			t.Errorf("GetTransitions() = %v, want [false true]", got)
		}

		last, ok := rec.Last()
		if !ok || !last {
			t.Errorf("Last() = %v, %v, want true, true", last, ok)
		}
	})

	t.Run("empty", func(t *testing.T) {
		rec := NewRecorder()
		if _, ok := rec.Last(); ok {
			t.Error("Last() on empty recorder should report false")
		}
		if rec.WaitFor(1, 10*time.Millisecond) {
			t.Error("WaitFor() should time out on empty recorder")
		}
	})

	t.Run("wait for concurrent records", func(t *testing.T) {
		rec := NewRecorder()
		go func() {
			for i := 0; i < 3; i++ {
				rec.Record(i%2 == 0)
			}
		}()
		if !rec.WaitFor(3, time.Second) {
			t.Errorf("WaitFor() timed out with %v", rec.GetTransitions())
		}
	})

	t.Run("panic on value", func(t *testing.T) {
		rec := NewRecorder()
		rec.PanicOn(false)

		rec.Record(true)

		defer func() {
			if recover() == nil {
				t.Error("expected Record(false) to panic")
			}
			if len(rec.GetTransitions()) != 2 {
				t.Error("panicking call should still be recorded")
			}
		}()
		rec.Record(false)
	})

	t.Run("clear state", func(t *testing.T) {
		rec := NewRecorder()
		rec.PanicOn(true)
		rec.Record(false)

		rec.Clear()

		if len(rec.GetTransitions()) != 0 {
			t.Error("Clear() did not reset transitions")
		}
		// Panic setting should be cleared
		rec.Record(true)
	})
}

func TestMockFocusSource(t *testing.T) {
	mock := NewMockFocusSource(true)
	if !mock.HasFocus() {
		t.Error("HasFocus() = false, want true")
	}

	mock.SetFocus(false)
	if mock.HasFocus() {
		t.Error("HasFocus() = true, want false")
	}

	if mock.GetCallCount() != 2 {
		t.Errorf("GetCallCount() = %d, want 2", mock.GetCallCount())
	}
}

func TestMockDataHandler(t *testing.T) {
	mock := NewMockDataHandler()
	mock.HandleData([]byte("ab"))
	mock.HandleData([]byte("c"))

	if got := mock.GetChunks(); len(got) != 2 {
		t.Errorf("GetChunks() returned %d, want 2", len(got))
	}
	if mock.GetData() != "abc" {
		t.Errorf("GetData() = %q, want %q", mock.GetData(), "abc")
	}
}

func TestMockScreenEventHandler(t *testing.T) {
	mock := NewMockScreenEventHandler()
	mock.HandleScreenClear()
	mock.HandleFocusMode(true)
	mock.HandleFocusMode(false)

	if mock.GetClearCount() != 1 {
		t.Errorf("GetClearCount() = %d, want 1", mock.GetClearCount())
	}
	modes := mock.GetFocusModes()
	if len(modes) != 2 || !modes[0] || modes[1] {
		t.Errorf("GetFocusModes() = %v, want [true false]", modes)
	}
}
