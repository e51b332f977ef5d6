package timeutil

import (
	"testing"
	"time"
)

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	got := c.Advance(350 * time.Millisecond)
	if want := start.Add(350 * time.Millisecond); !got.Equal(want) {
		t.Errorf("Advance() = %v, want %v", got, want)
	}
	if !c.Now().Equal(got) {
		t.Errorf("Now() = %v, want %v", c.Now(), got)
	}
}

func TestMockTickerFires(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	tk := c.NewTicker(10 * time.Millisecond)

	c.Advance(5 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticker fired before its period elapsed")
	default:
	}

	c.Advance(5 * time.Millisecond)
	select {
	case <-tk.C():
	default:
		t.Fatal("ticker did not fire after its period elapsed")
	}

	tk.Stop()
	c.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
