package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/api"
	"github.com/dhruv2494/mocktail-engine/internal/config"
	"github.com/dhruv2494/mocktail-engine/internal/model"
)

// fakeTicker delivers ticks from a buffered channel under test control.
type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

// fakeClock hands out fakeTickers and remembers the most recent one, which
// is the one the running timer loop listens on.
type fakeClock struct {
	mu      sync.Mutex
	current *fakeTicker
}

func (c *fakeClock) factory(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &fakeTicker{ch: make(chan time.Time, 64)}
	return c.current
}

func (c *fakeClock) tick(n int) {
	c.mu.Lock()
	t := c.current
	c.mu.Unlock()
	for i := 0; i < n; i++ {
		t.ch <- time.Now()
	}
}

// fakeAPI is a scriptable QuizAPI.
type fakeAPI struct {
	mu sync.Mutex

	startResp    *api.StartSessionResponse
	startErr     error
	questions    []model.Question
	questionsErr error

	pauseRemaining *int
	pauseErr       error
	pauseCalls     int

	resumeRemaining int
	resumeErr       error
	resumeCalls     int

	syncErr   error
	syncCalls []string

	submitErr    error
	submitCalls  int
	submitReqs   []api.SubmitSessionRequest
	submitResult *model.SubmitResult
	submitGate   chan struct{} // when set, submit blocks until closed
}

func (f *fakeAPI) StartSession(ctx context.Context, testID string) (*api.StartSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.startResp, nil
}

func (f *fakeAPI) FetchQuestions(ctx context.Context, testID string) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	return f.questions, nil
}

func (f *fakeAPI) PauseSession(ctx context.Context, token string, remainingSeconds int) (*api.ClockResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	if f.pauseErr != nil {
		return nil, f.pauseErr
	}
	remaining := remainingSeconds
	if f.pauseRemaining != nil {
		remaining = *f.pauseRemaining
	}
	return &api.ClockResponse{Status: model.SessionStatusPaused, RemainingSeconds: &remaining}, nil
}

func (f *fakeAPI) ResumeSession(ctx context.Context, token string) (*api.ClockResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumeCalls++
	if f.resumeErr != nil {
		return nil, f.resumeErr
	}
	remaining := f.resumeRemaining
	return &api.ClockResponse{Status: model.SessionStatusActive, RemainingSeconds: &remaining}, nil
}

func (f *fakeAPI) SyncAnswer(ctx context.Context, token, questionID string, req api.SyncAnswerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls = append(f.syncCalls, questionID)
	return f.syncErr
}

func (f *fakeAPI) SubmitSession(ctx context.Context, token string, req api.SubmitSessionRequest) (*model.SubmitResult, error) {
	f.mu.Lock()
	f.submitCalls++
	f.submitReqs = append(f.submitReqs, req)
	gate := f.submitGate
	err := f.submitErr
	result := f.submitResult
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &model.SubmitResult{ResultID: "result-1"}
	}
	return result, nil
}

func (f *fakeAPI) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

func (f *fakeAPI) syncCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.syncCalls)
}

func testQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:       string(rune('a'+i)) + "-question",
			Prompt:   "prompt",
			Options:  []string{"w", "x", "y", "z"},
			Marks:    1,
			OrderNum: i + 1,
		}
	}
	return qs
}

func testConfig() *config.Config {
	return &config.Config{
		AnswerSyncRetries:   0,
		ExpirySubmitRetries: 3,
		HTTPTimeout:         time.Second,
	}
}

func newTestEngine(t *testing.T, fa *fakeAPI) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	eng := NewWithTicker(fa, testConfig(), clock.factory, zerolog.Nop())
	eng.submitter.retryDelay = 0
	return eng, clock
}

func startSession(t *testing.T, eng *Engine, fa *fakeAPI, remaining int) {
	t.Helper()
	fa.mu.Lock()
	if fa.startResp == nil {
		fa.startResp = &api.StartSessionResponse{
			SessionToken:     "tok-1",
			Status:           model.SessionStatusActive,
			RemainingSeconds: remaining,
			Language:         "en",
		}
	}
	if fa.questions == nil {
		fa.questions = testQuestions(5)
	}
	fa.mu.Unlock()

	if err := eng.Start(context.Background(), "test-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func awaitEvent(t *testing.T, eng *Engine, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-eng.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %s", kind)
		}
	}
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
