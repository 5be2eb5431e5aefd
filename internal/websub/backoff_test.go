package websub

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_Delay(t *testing.T) {
	b := DefaultBackoff()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for attempt, expected := range want {
		if got := b.Delay(attempt); got != expected {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, expected)
		}
	}
}

func TestBackoff_WaitUsesInjectedSleep(t *testing.T) {
	var slept []time.Duration
	b := Backoff{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := b.Wait(context.Background(), attempt); err != nil {
			t.Fatalf("Wait(%d) error = %v", attempt, err)
		}
	}

	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("slept = %v, want [1s 2s]", slept)
	}
}

func TestBackoff_WaitHonorsCancellation(t *testing.T) {
	b := Backoff{MaxAttempts: 2, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx, 0); err == nil {
		t.Error("Wait() with cancelled context = nil, want error")
	}
}
