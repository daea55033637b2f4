package surface

import (
	"errors"
	"os"
	"testing"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

func TestTranslateX11(t *testing.T) {
	tests := []struct {
		name   string
		ev     xgb.Event
		want   Kind
		wantOK bool
	}{
		{
			name:   "focus in",
			ev:     xproto.FocusInEvent{Mode: xproto.NotifyModeNormal, Detail: xproto.NotifyDetailNonlinear},
			want:   FocusGained,
			wantOK: true,
		},
		{
			name:   "focus out",
			ev:     xproto.FocusOutEvent{Mode: xproto.NotifyModeNormal, Detail: xproto.NotifyDetailNonlinear},
			want:   FocusLost,
			wantOK: true,
		},
		{
			name: "focus out during grab",
			ev:   xproto.FocusOutEvent{Mode: xproto.NotifyModeGrab, Detail: xproto.NotifyDetailNonlinear},
		},
		{
			name: "focus in after ungrab",
			ev:   xproto.FocusInEvent{Mode: xproto.NotifyModeUngrab, Detail: xproto.NotifyDetailNonlinear},
		},
		{
			name: "focus moves to child",
			ev:   xproto.FocusOutEvent{Mode: xproto.NotifyModeNormal, Detail: xproto.NotifyDetailInferior},
		},
		{
			name: "pointer detail",
			ev:   xproto.FocusInEvent{Mode: xproto.NotifyModeNormal, Detail: xproto.NotifyDetailPointer},
		},
		{
			name:   "motion",
			ev:     xproto.MotionNotifyEvent{EventX: 10, EventY: 20},
			want:   Activity,
			wantOK: true,
		},
		{
			name:   "key press",
			ev:     xproto.KeyPressEvent{Detail: 38},
			want:   Activity,
			wantOK: true,
		},
		{
			name: "button press is not selected",
			ev:   xproto.ButtonPressEvent{Detail: 1},
		},
		{
			name: "unrelated",
			ev:   xproto.ExposeEvent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := translateX11(tt.ev)
			if ok != tt.wantOK {
				t.Fatalf("translateX11() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("translateX11() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDialX11_NoDisplay(t *testing.T) {
	if os.Getenv("DISPLAY") != "" {
		t.Skip("X display available")
	}
	if _, err := DialX11(":9999", 0); err == nil {
		t.Error("DialX11() error = nil, want connection error")
	}
}

func TestX11_ClosedSurface(t *testing.T) {
	s := &X11{closed: true}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := s.Listen(func(Event) {}); err == nil {
		t.Error("Listen() on closed surface error = nil, want error")
	}
	if _, err := s.Listen(func(Event) {}); errors.Is(err, ErrAlreadyListening) {
		t.Error("failed Listen() left a listener attached")
	}
}
