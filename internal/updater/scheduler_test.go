package updater

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.bluewillows.net/root/noip-updater/pkg/httputil"
	"gitlab.bluewillows.net/root/noip-updater/pkg/noip"
)

// fakeSender returns canned bodies in order, repeating the last one.
type fakeSender struct {
	mu     sync.Mutex
	bodies []string
	err    error
	calls  int
}

func (f *fakeSender) Send(ctx context.Context) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	body := f.bodies[min(f.calls, len(f.bodies))-1]
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func (f *fakeSender) RequestURL() string { return "https://example.com/nic/update?hostname=foo" }

func (f *fakeSender) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRecorder struct {
	responses []string
	pauses    []time.Duration
	cycles    []string
}

func (r *fakeRecorder) ObserveResponse(verb, outcome string) {
	r.responses = append(r.responses, verb+"/"+outcome)
}

func (r *fakeRecorder) ObservePause(d time.Duration) { r.pauses = append(r.pauses, d) }

func (r *fakeRecorder) ObserveCycle(result string, _ time.Duration, _ time.Time) {
	r.cycles = append(r.cycles, result)
}

// sleeper records requested sleeps. The sleep at index cancelAt cancels the
// context and fails like a real cancelled wait.
type sleeper struct {
	cancel   context.CancelFunc
	cancelAt int
	sleeps   []time.Duration
	states   []State
	s        *Scheduler
}

func (sl *sleeper) sleep(ctx context.Context, d time.Duration) error {
	sl.sleeps = append(sl.sleeps, d)
	if sl.s != nil {
		sl.states = append(sl.states, sl.s.Status().State)
	}
	if len(sl.sleeps)-1 == sl.cancelAt {
		sl.cancel()
		return ctx.Err()
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(sender Sender, rec *fakeRecorder, sl *sleeper) *Scheduler {
	s := New(sender, WithLogger(discardLogger()), WithRecorder(rec))
	s.sleep = sl.sleep
	sl.s = s
	return s
}

const interval = 5 * time.Minute

func TestScheduler_Run_SuccessWaitsAndLoops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{bodies: []string{"good 1.1.1.1\nnochg 1.1.1.1\n"}}
	rec := &fakeRecorder{}
	sl := &sleeper{cancel: cancel, cancelAt: 2}
	s := newTestScheduler(sender, rec, sl)

	if err := s.Run(ctx, interval); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sender.Calls() != 3 {
		t.Errorf("sends = %d, want 3", sender.Calls())
	}
	for i, d := range sl.sleeps {
		if d != interval {
			t.Errorf("sleep[%d] = %v, want %v", i, d, interval)
		}
		if sl.states[i] != StateWaiting {
			t.Errorf("state during sleep[%d] = %v, want waiting", i, sl.states[i])
		}
	}
	if len(rec.cycles) != 3 || rec.cycles[0] != resultSuccess {
		t.Errorf("cycles = %v", rec.cycles)
	}
	if got := strings.Join(rec.responses[:2], " "); got != "good/success nochg/success" {
		t.Errorf("responses = %q", got)
	}

	st := s.Status()
	if st.State != StateStopped {
		t.Errorf("State = %v, want stopped", st.State)
	}
	if st.Cycles != 3 || st.LastError != nil || st.LastSuccess.IsZero() {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestScheduler_Run_FatalLineStopsProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{bodies: []string{"good 1.1.1.1\nbadauth\nnochg 1.1.1.1\n"}}
	rec := &fakeRecorder{}
	sl := &sleeper{cancel: cancel, cancelAt: -1}
	s := newTestScheduler(sender, rec, sl)

	err := s.Run(ctx, interval)
	if !IsUpdateFailed(err) {
		t.Fatalf("Run() error = %v, want ErrUpdateFailed", err)
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Failed) != 1 || cycleErr.Failed[0].Verb != noip.VerbBadAuth {
		t.Errorf("Failed = %+v", cycleErr.Failed)
	}
	if !strings.Contains(err.Error(), "badauth") {
		t.Errorf("error %q does not name the verb", err)
	}

	if sender.Calls() != 1 {
		t.Errorf("sends = %d, want 1", sender.Calls())
	}
	if len(sl.sleeps) != 0 {
		t.Errorf("slept %v after a failed cycle", sl.sleeps)
	}
	// Every line is read before the cycle fails.
	if len(rec.responses) != 3 {
		t.Errorf("responses = %v, want 3 lines", rec.responses)
	}
	if len(rec.cycles) != 1 || rec.cycles[0] != resultFailure {
		t.Errorf("cycles = %v", rec.cycles)
	}
	if st := s.Status(); st.State != StateStopped || !IsUpdateFailed(st.LastError) {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestScheduler_Run_FatalVerbs(t *testing.T) {
	for _, body := range []string{"nohost", "badauth", "badagent", "!donator", "abuse", "wat", "good 1.1.1.1\n GOOD"} {
		t.Run(body, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sl := &sleeper{cancel: cancel, cancelAt: -1}
			s := newTestScheduler(&fakeSender{bodies: []string{body}}, &fakeRecorder{}, sl)

			if err := s.Run(ctx, interval); !IsUpdateFailed(err) {
				t.Errorf("Run() error = %v, want ErrUpdateFailed", err)
			}
		})
	}
}

func TestScheduler_Run_ServerErrorPauses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{bodies: []string{"911\ngood 1.1.1.1\n"}}
	rec := &fakeRecorder{}
	sl := &sleeper{cancel: cancel, cancelAt: 1}
	s := newTestScheduler(sender, rec, sl)

	if err := s.Run(ctx, interval); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sl.sleeps) != 2 {
		t.Fatalf("sleeps = %v, want pause then interval", sl.sleeps)
	}
	if sl.sleeps[0] != noip.ServerErrorPause {
		t.Errorf("pause = %v, want %v", sl.sleeps[0], noip.ServerErrorPause)
	}
	if sl.states[0] != StatePaused {
		t.Errorf("state during pause = %v, want paused", sl.states[0])
	}
	if sl.sleeps[1] != interval {
		t.Errorf("wait = %v, want %v", sl.sleeps[1], interval)
	}
	if len(rec.pauses) != 1 {
		t.Errorf("recorded pauses = %v", rec.pauses)
	}
	if rec.cycles[0] != resultSuccess {
		t.Errorf("cycle result = %q, want success", rec.cycles[0])
	}
}

func TestScheduler_Run_CancelDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{bodies: []string{"911\n"}}
	rec := &fakeRecorder{}
	sl := &sleeper{cancel: cancel, cancelAt: 0}
	s := newTestScheduler(sender, rec, sl)

	if err := s.Run(ctx, interval); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancellation", err)
	}
	if len(sl.sleeps) != 1 {
		t.Errorf("sleeps = %v, want only the pause", sl.sleeps)
	}
	if sender.Calls() != 1 {
		t.Errorf("sends = %d, want 1", sender.Calls())
	}
	if len(rec.cycles) != 1 || rec.cycles[0] != resultCancelled {
		t.Errorf("cycles = %v, want [%s]", rec.cycles, resultCancelled)
	}
	if st := s.Status(); st.Cycles != 0 || st.LastError != nil {
		t.Errorf("cancelled cycle counted in status: %+v", st)
	}
}

func TestScheduler_PauseOutlastsClientTimeout(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
	}{
		{"911 only", []string{"911\n"}},
		{"911 then good", []string{"911\n", "good 1.1.1.1\n"}},
		{"911 then nochg", []string{"911\n", "nochg 1.1.1.1\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				flusher := w.(http.Flusher)
				for _, chunk := range tt.chunks {
					_, _ = io.WriteString(w, chunk)
					flusher.Flush()
					time.Sleep(10 * time.Millisecond)
				}
			}))
			defer server.Close()

			base, _ := url.Parse(server.URL + "/nic/update")
			cred, err := noip.NewCredential(base, "foo", "bar")
			if err != nil {
				t.Fatal(err)
			}
			hostnames := "foo,bar"
			query, err := noip.BuildQuery(&hostnames, nil, nil)
			if err != nil {
				t.Fatal(err)
			}

			httpClient := httputil.NewClient(&httputil.ClientConfig{Timeout: 200 * time.Millisecond})
			client := noip.NewClient(cred, query,
				noip.WithHTTPClient(httpClient),
				noip.WithLogger(discardLogger()),
			)

			rec := &fakeRecorder{}
			s := New(client, WithLogger(discardLogger()), WithRecorder(rec))
			var pauses []time.Duration
			s.sleep = func(_ context.Context, d time.Duration) error {
				pauses = append(pauses, d)
				time.Sleep(500 * time.Millisecond)
				return nil
			}

			if err := s.RunOnce(context.Background()); err != nil {
				t.Fatalf("RunOnce() error = %v", err)
			}
			if len(pauses) != 1 || pauses[0] != noip.ServerErrorPause {
				t.Errorf("pauses = %v, want [%v]", pauses, noip.ServerErrorPause)
			}
			if len(rec.responses) != len(tt.chunks) {
				t.Errorf("responses = %v, want %d", rec.responses, len(tt.chunks))
			}
			if len(rec.cycles) != 1 || rec.cycles[0] != resultSuccess {
				t.Errorf("cycles = %v", rec.cycles)
			}
		})
	}
}

func TestScheduler_Run_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	sender := &fakeSender{err: boom}
	rec := &fakeRecorder{}
	sl := &sleeper{cancel: func() {}, cancelAt: -1}
	s := newTestScheduler(sender, rec, sl)

	err := s.Run(context.Background(), interval)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want transport error", err)
	}
	if IsUpdateFailed(err) {
		t.Error("transport error must not be reported as a failed update")
	}
	if len(rec.cycles) != 1 || rec.cycles[0] != resultError {
		t.Errorf("cycles = %v", rec.cycles)
	}
}

func TestScheduler_Run_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &fakeSender{bodies: []string{"good"}}
	s := newTestScheduler(sender, &fakeRecorder{}, &sleeper{cancel: cancel, cancelAt: -1})

	if err := s.Run(ctx, interval); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sender.Calls() != 0 {
		t.Errorf("sends = %d, want 0", sender.Calls())
	}
}

func TestScheduler_Run_CancelStopsRealWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{bodies: []string{"nochg 1.1.1.1"}}
	s := New(sender, WithLogger(discardLogger()))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Hour) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.Status().State != StateWaiting {
		if time.Now().After(deadline) {
			t.Fatal("scheduler never reached waiting state")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if sender.Calls() != 1 {
		t.Errorf("sends = %d, want 1", sender.Calls())
	}
}

func TestScheduler_SkipsEmptyLines(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestScheduler(&fakeSender{bodies: []string{"\r\ngood 1.1.1.1\r\n\r\n"}}, rec, &sleeper{})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(rec.responses) != 1 {
		t.Errorf("responses = %v, want 1", rec.responses)
	}
}

func TestScheduler_EmptyBodySucceeds(t *testing.T) {
	s := newTestScheduler(&fakeSender{bodies: []string{""}}, &fakeRecorder{}, &sleeper{})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	sender := &fakeSender{bodies: []string{"good 1.1.1.1"}}
	sl := &sleeper{cancelAt: -1}
	s := newTestScheduler(sender, &fakeRecorder{}, sl)

	if s.Status().State != StateIdle {
		t.Errorf("initial state = %v, want idle", s.Status().State)
	}
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if sender.Calls() != 1 || len(sl.sleeps) != 0 {
		t.Errorf("sends = %d, sleeps = %v", sender.Calls(), sl.sleeps)
	}
	if s.Status().State != StateStopped {
		t.Errorf("state = %v, want stopped", s.Status().State)
	}
}

func TestScheduler_EndToEnd(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"all good", "good 1.1.1.1\r\nnochg 1.1.1.1\r\n", false},
		{"badauth", "good 1.1.1.1\nbadauth\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			base, _ := url.Parse(server.URL + "/nic/update")
			cred, err := noip.NewCredential(base, "foo", "bar")
			if err != nil {
				t.Fatal(err)
			}
			hostnames := "foo,bar"
			query, err := noip.BuildQuery(&hostnames, nil, nil)
			if err != nil {
				t.Fatal(err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sl := &sleeper{cancel: cancel, cancelAt: 0}
			s := newTestScheduler(noip.NewClient(cred, query, noip.WithLogger(discardLogger())), &fakeRecorder{}, sl)

			err = s.Run(ctx, interval)
			if gotQuery != "hostname=foo,bar" {
				t.Errorf("query = %q, want hostname=foo,bar", gotQuery)
			}
			if tt.wantErr {
				if !IsUpdateFailed(err) {
					t.Errorf("Run() error = %v, want ErrUpdateFailed", err)
				}
				if len(sl.sleeps) != 0 {
					t.Errorf("waited after failure: %v", sl.sleeps)
				}
				return
			}
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
			if len(sl.sleeps) != 1 || sl.sleeps[0] != interval {
				t.Errorf("sleeps = %v, want [%v]", sl.sleeps, interval)
			}
		})
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleepContext did not return promptly on cancellation")
	}
}

func TestReasonPhrase(t *testing.T) {
	tests := []struct {
		resp *http.Response
		want string
	}{
		{&http.Response{Status: "200 OK", StatusCode: 200}, "OK"},
		{&http.Response{Status: "401 Unauthorized", StatusCode: 401}, "Unauthorized"},
		{&http.Response{StatusCode: 404}, "Not Found"},
	}
	for _, tt := range tests {
		if got := reasonPhrase(tt.resp); got != tt.want {
			t.Errorf("reasonPhrase(%q) = %q, want %q", tt.resp.Status, got, tt.want)
		}
	}
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{
		StateIdle:    "idle",
		StateRunning: "running",
		StatePaused:  "paused",
		StateWaiting: "waiting",
		StateStopped: "stopped",
		State(99):    "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
