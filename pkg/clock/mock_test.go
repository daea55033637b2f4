package clock

import (
	"reflect"
	"testing"
	"time"
)

func TestMock_FiresInDeadlineOrder(t *testing.T) {
	m := NewMock(time.Time{})
	var fired []string

	m.AfterFunc(30*time.Millisecond, func() { fired = append(fired, "c") })
	m.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	m.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "b") })

	m.Add(25 * time.Millisecond)
	if want := []string{"a", "b"}; !reflect.DeepEqual(fired, want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	if m.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", m.Pending())
	}

	m.Add(5 * time.Millisecond)
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(fired, want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
}

func TestMock_TiesRunInScheduleOrder(t *testing.T) {
	m := NewMock(time.Time{})
	var fired []int

	for i := 0; i < 4; i++ {
		i := i
		m.AfterFunc(time.Second, func() { fired = append(fired, i) })
	}
	m.Add(time.Second)

	if want := []int{0, 1, 2, 3}; !reflect.DeepEqual(fired, want) {
		t.Errorf("fired = %v, want %v", fired, want)
	}
}

func TestMock_NowInsideCallbackIsDeadline(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMock(start)

	var seen time.Time
	m.AfterFunc(3*time.Second, func() { seen = m.Now() })
	m.Add(10 * time.Second)

	if !seen.Equal(start.Add(3 * time.Second)) {
		t.Errorf("Now() inside callback = %v, want %v", seen, start.Add(3*time.Second))
	}
	if !m.Now().Equal(start.Add(10 * time.Second)) {
		t.Errorf("Now() after Add = %v, want %v", m.Now(), start.Add(10*time.Second))
	}
}

func TestMock_Stop(t *testing.T) {
	m := NewMock(time.Time{})
	called := false
	timer := m.AfterFunc(time.Second, func() { called = true })

	if !timer.Stop() {
		t.Error("first Stop() = false, want true")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	m.Add(2 * time.Second)
	if called {
		t.Error("stopped timer fired")
	}
}

func TestMock_RearmFromCallback(t *testing.T) {
	m := NewMock(time.Time{})
	count := 0

	var tick func()
	tick = func() {
		count++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Add(3500 * time.Millisecond)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestReal_AfterFunc(t *testing.T) {
	c := New()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
