package client

import (
	"testing"
	"time"
)

func TestExponentialBackoff_Next(t *testing.T) {
	b := &ExponentialBackoff{
		Base:   100 * time.Millisecond,
		Max:    1 * time.Second,
		Factor: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second}, // Capped at Max
		{9, 1 * time.Second},
	}

	for _, tt := range tests {
		got := b.Next(tt.attempt)
		if got != tt.expected {
			t.Errorf("Next(%d) = %v; want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestExponentialBackoff_JitterBounds(t *testing.T) {
	b := DefaultBackoff()

	for i := 0; i < 100; i++ {
		got := b.Next(1)
		if got < 80*time.Millisecond || got > 120*time.Millisecond {
			t.Fatalf("Next(1) = %v; want within 20%% of 100ms", got)
		}
	}
}
