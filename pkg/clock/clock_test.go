package clock

import (
	"testing"
	"time"
)

// TestSystemClockMonotonic verifies readings never go backwards.
func TestSystemClockMonotonic(t *testing.T) {
	clk := NewSystemClock()

	prev := clk.NowMicros()
	for i := 0; i < 1000; i++ {
		now := clk.NowMicros()
		if now < prev {
			t.Fatalf("clock went backwards: %d -> %d", prev, now)
		}
		prev = now
	}
}

// TestSystemClockAdvances verifies the clock tracks real time.
func TestSystemClockAdvances(t *testing.T) {
	clk := NewSystemClock()

	start := clk.NowMicros()
	time.Sleep(10 * time.Millisecond)
	elapsed := clk.NowMicros() - start

	if elapsed < 5_000 {
		t.Fatalf("expected at least 5ms to elapse, got %dus", elapsed)
	}
}

func TestManualClock(t *testing.T) {
	clk := NewManualClock(100)

	if got := clk.NowMicros(); got != 100 {
		t.Fatalf("NowMicros() = %d, want 100", got)
	}

	// Time only moves when told to.
	if got := clk.NowMicros(); got != 100 {
		t.Fatalf("NowMicros() = %d, want 100", got)
	}

	clk.Advance(2 * time.Millisecond)
	if got := clk.NowMicros(); got != 2100 {
		t.Fatalf("NowMicros() = %d, want 2100", got)
	}

	// Negative advances are ignored.
	clk.Advance(-time.Second)
	if got := clk.NowMicros(); got != 2100 {
		t.Fatalf("NowMicros() = %d, want 2100 after negative advance", got)
	}

	clk.SetMicros(42)
	if got := clk.NowMicros(); got != 42 {
		t.Fatalf("NowMicros() = %d, want 42", got)
	}
}
