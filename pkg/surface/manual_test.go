package surface

import (
	"errors"
	"reflect"
	"testing"
)

func TestManual_Emit(t *testing.T) {
	m := NewManual("", true)
	if m.Name() != "manual" {
		t.Errorf("Name() = %q, want manual", m.Name())
	}

	m.Activity()

	log := &eventLog{}
	stop, err := m.Listen(log.emit)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer stop()

	m.Blur()
	if m.HasFocus() {
		t.Error("HasFocus() = true after Blur()")
	}
	m.Activity()
	m.Focus()

	want := []Kind{FocusLost, Activity, FocusGained}
	if !reflect.DeepEqual(log.kinds, want) {
		t.Errorf("events = %v, want %v", log.kinds, want)
	}
}

func TestManual_SingleListener(t *testing.T) {
	m := NewManual("pad", false)
	stop, err := m.Listen(func(Event) {})
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if !m.Attached() {
		t.Fatal("Attached() = false after Listen()")
	}

	_, err = m.Listen(func(Event) {})
	if !errors.Is(err, ErrAlreadyListening) {
		t.Fatalf("second Listen() error = %v, want ErrAlreadyListening", err)
	}

	stop()
	if m.Attached() {
		t.Error("Attached() = true after stop")
	}
	stop, err = m.Listen(func(Event) {})
	if err != nil {
		t.Fatalf("Listen() after stop error = %v", err)
	}
	stop()
}
