// Package updater drives the periodic update cycle against the provider.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gitlab.bluewillows.net/root/noip-updater/pkg/noip"
)

// Sender issues one update request.
// *noip.Client implements it.
type Sender interface {
	Send(ctx context.Context) (*http.Response, error)
	RequestURL() string
}

// Recorder receives scheduler events, typically for metrics.
type Recorder interface {
	ObserveResponse(verb, outcome string)
	ObservePause(d time.Duration)
	ObserveCycle(result string, duration time.Duration, finished time.Time)
}

// Cycle results passed to Recorder.ObserveCycle.
const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultError   = "error"

	// resultCancelled marks a cycle cut short by shutdown. It is not
	// counted in Status.
	resultCancelled = "cancelled"
)

type nopRecorder struct{}

func (nopRecorder) ObserveResponse(string, string)               {}
func (nopRecorder) ObservePause(time.Duration)                   {}
func (nopRecorder) ObserveCycle(string, time.Duration, time.Time) {}

// Scheduler repeats update cycles on a fixed interval.
// Run must not be called concurrently; Status may be called from any goroutine.
type Scheduler struct {
	sender   Sender
	logger   *slog.Logger
	recorder Recorder

	// sleep blocks for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu     sync.RWMutex
	status Status
}

// Option is a functional option for configuring the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the sink for cycle metrics.
func WithRecorder(recorder Recorder) Option {
	return func(s *Scheduler) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// New creates a scheduler that sends updates through sender.
func New(sender Sender, opts ...Option) *Scheduler {
	s := &Scheduler{
		sender:   sender,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		sleep:    sleepContext,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes an update cycle, waits interval, and repeats until ctx is
// cancelled. It returns nil on cancellation. A failed cycle stops the loop
// and its error is returned; no further cycles run.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	defer s.setState(StateStopped)

	for ctx.Err() == nil {
		if err := s.processCycle(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("update cancelled", slog.String("error", err.Error()))
				return nil
			}
			return err
		}

		s.logger.Info("waiting until next update", slog.Duration("interval", interval))
		s.setState(StateWaiting)
		if err := s.sleep(ctx, interval); err != nil {
			s.logger.Info("update loop stopped during wait")
			return nil
		}
	}
	return nil
}

// RunOnce executes a single update cycle.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	defer s.setState(StateStopped)
	return s.processCycle(ctx)
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Scheduler) processCycle(ctx context.Context) (err error) {
	start := s.now()
	s.setState(StateRunning)

	result := resultError
	defer func() {
		finished := s.now()
		if err != nil && ctx.Err() != nil {
			result = resultCancelled
		}
		s.recorder.ObserveCycle(result, finished.Sub(start), finished)
		s.finishCycle(finished, result, err)
	}()

	results, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	// Pauses run after the body is closed so a long pause never races the
	// client's read deadline.
	var failed []noip.Result
	for _, r := range results {
		if r.Outcome == noip.RetryAfter {
			if err := s.pause(ctx, r.Pause); err != nil {
				return err
			}
		}
		if !r.OK() {
			failed = append(failed, r)
		}
	}

	if len(failed) > 0 {
		result = resultFailure
		err = &CycleError{Failed: failed}
		s.logger.Error("update failed", slog.String("error", err.Error()))
		return err
	}

	result = resultSuccess
	s.logger.Info("update complete", slog.Duration("duration", s.now().Sub(start)))
	return nil
}

// fetch sends the update request and classifies every non-empty line of the
// response, reading the body to EOF before returning.
func (s *Scheduler) fetch(ctx context.Context) ([]noip.Result, error) {
	s.logger.Info("sending update request", slog.String("url", s.sender.RequestURL()))

	resp, err := s.sender.Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("sending update request: %w", err)
	}
	defer resp.Body.Close()

	s.logger.Info("update response",
		slog.Int("status", resp.StatusCode),
		slog.String("reason", reasonPhrase(resp)),
	)

	var results []noip.Result
	for line, readErr := range noip.Lines(resp.Body) {
		if readErr != nil {
			return nil, fmt.Errorf("reading update response: %w", readErr)
		}
		if line == "" {
			continue
		}
		results = append(results, s.handleLine(line))
	}
	return results, nil
}

// handleLine classifies one response line and logs it.
func (s *Scheduler) handleLine(line string) noip.Result {
	r := noip.Classify(line)
	s.recorder.ObserveResponse(r.Verb, r.Outcome.String())

	attrs := []any{
		slog.String("line", r.Line),
		slog.String("verb", r.Verb),
		slog.String("outcome", r.Outcome.String()),
		slog.String("explanation", r.Explanation),
	}

	if r.Outcome == noip.Success {
		s.logger.Info("update response line", attrs...)
	} else {
		s.logger.Error("update response line", attrs...)
	}
	return r
}

// pause waits out a provider-requested pause.
func (s *Scheduler) pause(ctx context.Context, d time.Duration) error {
	s.logger.Info("pausing due to provider error", slog.Duration("pause", d))
	s.recorder.ObservePause(d)

	s.setState(StatePaused)
	if err := s.sleep(ctx, d); err != nil {
		return fmt.Errorf("pausing after provider error: %w", err)
	}
	s.setState(StateRunning)
	return nil
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
}

func (s *Scheduler) finishCycle(finished time.Time, result string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result == resultCancelled {
		return
	}
	s.status.Cycles++
	s.status.LastCycle = finished
	s.status.LastError = err
	if err == nil {
		s.status.LastSuccess = finished
	}
}

// reasonPhrase extracts the reason from a status line like "200 OK".
func reasonPhrase(resp *http.Response) string {
	if len(resp.Status) > 4 && resp.Status[3] == ' ' {
		return resp.Status[4:]
	}
	return http.StatusText(resp.StatusCode)
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
