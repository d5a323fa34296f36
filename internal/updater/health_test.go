package updater

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScheduler_Ready(t *testing.T) {
	s := New(&fakeSender{bodies: []string{"good 1.1.1.1"}}, WithLogger(discardLogger()))

	if err := s.Ready(context.Background()); !errors.Is(err, errNoCycle) {
		t.Errorf("Ready() before first cycle = %v, want errNoCycle", err)
	}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Ready(context.Background()); err != nil {
		t.Errorf("Ready() after success = %v", err)
	}

	failing := New(&fakeSender{bodies: []string{"abuse"}}, WithLogger(discardLogger()))
	_ = failing.RunOnce(context.Background())
	if err := failing.Ready(context.Background()); !IsUpdateFailed(err) {
		t.Errorf("Ready() after failure = %v, want ErrUpdateFailed", err)
	}
}

func TestScheduler_Degraded(t *testing.T) {
	s := New(&fakeSender{bodies: []string{"911"}}, WithLogger(discardLogger()))

	var during bool
	var msg string
	s.sleep = func(ctx context.Context, d time.Duration) error {
		during, msg = s.Degraded(ctx)
		return nil
	}

	if degraded, _ := s.Degraded(context.Background()); degraded {
		t.Error("Degraded() = true before running")
	}
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !during || msg == "" {
		t.Errorf("Degraded() during pause = %v, %q", during, msg)
	}
	if degraded, _ := s.Degraded(context.Background()); degraded {
		t.Error("Degraded() = true after the pause")
	}
}
