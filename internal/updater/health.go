package updater

import (
	"context"
	"errors"
	"fmt"
)

var errNoCycle = errors.New("no update cycle completed yet")

// Ready reports an error until a cycle has succeeded, and whenever the
// latest cycle failed. Its signature matches health.HealthChecker.
func (s *Scheduler) Ready(context.Context) error {
	st := s.Status()
	if st.LastError != nil {
		return fmt.Errorf("last update failed: %w", st.LastError)
	}
	if st.LastSuccess.IsZero() {
		return errNoCycle
	}
	return nil
}

// Degraded reports whether a provider-requested pause is in progress.
// Its signature matches health.DegradedChecker.
func (s *Scheduler) Degraded(context.Context) (bool, string) {
	if s.Status().State == StatePaused {
		return true, "pausing after provider error (911)"
	}
	return false, ""
}
