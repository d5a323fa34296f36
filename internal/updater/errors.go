package updater

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.bluewillows.net/root/noip-updater/pkg/noip"
)

// ErrUpdateFailed indicates the provider rejected at least one hostname.
// The agent must not send further updates until an operator intervenes.
var ErrUpdateFailed = errors.New("failed to process update")

// CycleError reports the response lines that failed a cycle.
type CycleError struct {
	Failed []noip.Result
}

func (e *CycleError) Error() string {
	verbs := make([]string, 0, len(e.Failed))
	for _, r := range e.Failed {
		verb := r.Verb
		if verb == "" {
			verb = fmt.Sprintf("%q", r.Line)
		}
		verbs = append(verbs, verb)
	}
	return fmt.Sprintf("%s: provider returned %s", ErrUpdateFailed, strings.Join(verbs, ", "))
}

// Unwrap allows errors.Is(err, ErrUpdateFailed).
func (e *CycleError) Unwrap() error {
	return ErrUpdateFailed
}

// IsUpdateFailed returns true if err is a failed classification.
func IsUpdateFailed(err error) bool {
	return errors.Is(err, ErrUpdateFailed)
}
