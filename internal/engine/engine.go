package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/api"
	"github.com/dhruv2494/mocktail-engine/internal/config"
	"github.com/dhruv2494/mocktail-engine/internal/model"
)

// QuizAPI is the slice of the backend the engine consumes. *api.Client
// satisfies it; tests install fakes.
type QuizAPI interface {
	StartSession(ctx context.Context, testID string) (*api.StartSessionResponse, error)
	FetchQuestions(ctx context.Context, testID string) ([]model.Question, error)
	PauseSession(ctx context.Context, token string, remainingSeconds int) (*api.ClockResponse, error)
	ResumeSession(ctx context.Context, token string) (*api.ClockResponse, error)
	SyncAnswer(ctx context.Context, token, questionID string, req api.SyncAnswerRequest) error
	SubmitSession(ctx context.Context, token string, req api.SubmitSessionRequest) (*model.SubmitResult, error)
}

// ErrQuestionIndex is returned for an out-of-range question index.
var ErrQuestionIndex = errors.New("question index out of range")

// ErrNotActive is returned for intents that require a running countdown.
var ErrNotActive = errors.New("session is not active")

const abandonTimeout = 3 * time.Second

// Engine owns one attempt end to end: lifecycle, countdown, answers,
// pause/resume reconciliation and finalization. All intents are serialized
// behind one mutex; the only concurrency entering from outside is the tick
// source and the background answer-sync worker, neither of which touches
// engine state directly.
type Engine struct {
	mu sync.Mutex

	client    QuizAPI
	lifecycle *Lifecycle
	timer     *Timer
	answers   *AnswerStore
	pauser    *PauseResumeCoordinator
	submitter *SubmissionCoordinator

	session   model.Session
	questions []model.Question
	current   int
	elapsed   int

	cfg    *config.Config
	events chan Event
	log    zerolog.Logger
}

// New creates an Engine ticking on the wall clock.
func New(client QuizAPI, cfg *config.Config, log zerolog.Logger) *Engine {
	return NewWithTicker(client, cfg, NewWallTicker, log)
}

// NewWithTicker creates an Engine with an injected tick source so tests can
// advance virtual time deterministically.
func NewWithTicker(client QuizAPI, cfg *config.Config, factory TickerFactory, log zerolog.Logger) *Engine {
	log = log.With().Str("component", "engine").Logger()
	return &Engine{
		client:    client,
		lifecycle: NewLifecycle(log),
		timer:     NewTimer(factory, log),
		pauser:    NewPauseResumeCoordinator(client, log),
		submitter: NewSubmissionCoordinator(client, cfg.ExpirySubmitRetries, log),
		session:   model.Session{Status: model.SessionStatusUninitialized},
		cfg:       cfg,
		events:    make(chan Event, 32),
		log:       log,
	}
}

// Events returns the engine's notification channel. Sends never block; slow
// consumers lose ticks, never submission outcomes being re-readable via
// ViewState.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Start begins or resumes an attempt for the test. On any failure the
// session stays uninitialized and the caller abandons the screen: start
// errors are fatal, never silently retried.
func (e *Engine) Start(ctx context.Context, testID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lifecycle.Is(model.SessionStatusUninitialized) {
		return fmt.Errorf("%w: session already started", ErrInvalidTransition)
	}

	resp, err := e.client.StartSession(ctx, testID)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	questions, err := e.client.FetchQuestions(ctx, testID)
	if err != nil {
		return fmt.Errorf("fetch questions: %w", err)
	}

	e.session = model.Session{
		Token:            resp.SessionToken,
		TestID:           testID,
		Status:           model.SessionStatusActive,
		RemainingSeconds: resp.RemainingSeconds,
		IsDemo:           resp.IsDemo,
		Language:         resp.Language,
		StartedAt:        time.Now(),
	}
	e.questions = questions
	e.current = 0
	e.elapsed = 0

	token := resp.SessionToken
	syncFn := func(ctx context.Context, questionID string, req api.SyncAnswerRequest) error {
		return e.client.SyncAnswer(ctx, token, questionID, req)
	}
	e.answers = NewAnswerStore(syncFn, e.cfg.AnswerSyncRetries, resp.IsDemo, e.log)

	if err := e.lifecycle.Transition(model.SessionStatusActive); err != nil {
		return err
	}

	e.log.Info().
		Str("test_id", testID).
		Int("questions", len(questions)).
		Int("remaining", resp.RemainingSeconds).
		Bool("demo", resp.IsDemo).
		Msg("Session started")

	e.timer.Start(resp.RemainingSeconds, e.onTick, e.onExpire)
	return nil
}

// SelectAnswer records an option for the question at index. Local state is
// updated immediately; the server mirror is best-effort background work.
func (e *Engine) SelectAnswer(index, option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lifecycle.Is(model.SessionStatusActive) {
		return ErrNotActive
	}
	if index < 0 || index >= len(e.questions) {
		return ErrQuestionIndex
	}
	if option < 0 || option >= len(e.questions[index].Options) {
		return fmt.Errorf("option %d out of range", option)
	}
	e.answers.Set(e.questions[index].ID, option)
	return nil
}

// ToggleFlag flips the review flag for the question at index.
func (e *Engine) ToggleFlag(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lifecycle.Is(model.SessionStatusActive) {
		return ErrNotActive
	}
	if index < 0 || index >= len(e.questions) {
		return ErrQuestionIndex
	}
	e.answers.ToggleFlag(e.questions[index].ID)
	return nil
}

// GoTo moves the current question pointer.
func (e *Engine) GoTo(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.questions) {
		return ErrQuestionIndex
	}
	e.current = index
	return nil
}

// Pause freezes the countdown immediately and checkpoints remaining time
// server-side in the background. A failed checkpoint still pauses locally —
// the user is never trapped in a running countdown by a network error — and
// is reported through EventPausePersistFailed with one opportunistic retry.
func (e *Engine) Pause() error {
	e.mu.Lock()

	if err := e.lifecycle.Transition(model.SessionStatusPaused); err != nil {
		e.mu.Unlock()
		return err
	}
	e.timer.Pause()
	e.session.RemainingSeconds = e.timer.Remaining()
	e.session.Status = model.SessionStatusPaused
	token := e.session.Token
	remaining := e.session.RemainingSeconds
	e.mu.Unlock()

	go e.persistPause(token, remaining)
	return nil
}

// persistPause checkpoints the frozen remaining time. The server's own
// remaining value, when returned, overwrites the local one so a clock
// disagreement is resolved while the session is still frozen.
func (e *Engine) persistPause(token string, remaining int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reconciled, err := e.pauser.Pause(ctx, token, remaining)
	if err != nil {
		e.emit(Event{Kind: EventPausePersistFailed, RemainingSeconds: remaining, Err: err})

		retryCtx, retryCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer retryCancel()
		reconciled, err = e.pauser.Pause(retryCtx, token, remaining)
		if err != nil {
			e.log.Warn().Err(err).Msg("Pause persist retry failed")
			return
		}
	}

	e.mu.Lock()
	if e.lifecycle.Is(model.SessionStatusPaused) {
		e.session.RemainingSeconds = reconciled
	}
	e.mu.Unlock()
}

// Resume restarts the countdown from the server's authoritative remaining
// time. On failure the session stays paused and the caller shows a retry
// affordance; the timer never restarts from stale local time.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lifecycle.Is(model.SessionStatusPaused) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.lifecycle.Status(), model.SessionStatusActive)
	}

	remaining, err := e.pauser.Resume(ctx, e.session.Token)
	if err != nil {
		return err
	}

	if err := e.lifecycle.Transition(model.SessionStatusActive); err != nil {
		return err
	}
	e.session.Status = model.SessionStatusActive
	e.session.RemainingSeconds = remaining
	e.timer.Resume(remaining)
	return nil
}

// Submit finalizes the attempt. Re-entrant calls while a submission is in
// flight collapse to ErrSubmitInFlight — at most one network submission
// runs regardless of duplicate triggers.
func (e *Engine) Submit(ctx context.Context, reason model.SubmitReason) error {
	e.mu.Lock()

	switch e.lifecycle.Status() {
	case model.SessionStatusSubmitting:
		e.mu.Unlock()
		return ErrSubmitInFlight
	case model.SessionStatusCompleted, model.SessionStatusFailed:
		e.mu.Unlock()
		return ErrSessionFinished
	}

	if err := e.lifecycle.Transition(model.SessionStatusSubmitting); err != nil {
		e.mu.Unlock()
		return err
	}
	e.timer.Pause()
	e.session.Status = model.SessionStatusSubmitting
	e.session.RemainingSeconds = e.timer.Remaining()

	token := e.session.Token
	elapsed := e.elapsed
	answers := e.answers.List()
	e.mu.Unlock()

	// Network round-trip (with bounded retries on expiry) runs outside the
	// lock; concurrent intents observe SUBMITTING and bounce.
	result, err := e.submitter.Submit(ctx, token, reason, elapsed, answers)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		return e.failSubmission(reason, err)
	}

	_ = e.lifecycle.Transition(model.SessionStatusCompleted)
	e.session.Status = model.SessionStatusCompleted
	e.timer.Stop()

	// The full answer set was just accepted; pending per-answer syncs are
	// redundant now, so the drain gets a short leash.
	closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	e.answers.Close(closeCtx)
	cancel()

	e.emit(Event{Kind: EventSubmitted, Result: result})
	return nil
}

// failSubmission routes a failed finalization: manual failures hand the
// session back to the user; expiry failures are terminal once retries are
// spent. Caller holds e.mu.
func (e *Engine) failSubmission(reason model.SubmitReason, err error) error {
	if reason == model.SubmitReasonExpiry {
		_ = e.lifecycle.Transition(model.SessionStatusFailed)
		e.session.Status = model.SessionStatusFailed
		e.session.RemainingSeconds = 0
		e.timer.Stop()
		e.emit(Event{Kind: EventSubmitFailed, Err: err})
		return err
	}

	// Manual: back to active so the user can retry or keep answering. If
	// expiry fired meanwhile the countdown stays clamped at zero.
	_ = e.lifecycle.Transition(model.SessionStatusActive)
	e.session.Status = model.SessionStatusActive
	if e.timer.Remaining() > 0 {
		e.timer.Resume(e.timer.Remaining())
	}
	e.emit(Event{Kind: EventSubmitFailed, Err: err})
	return err
}

// Abandon is called when navigation leaves the quiz screen. It requests a
// best-effort pause checkpoint and drains pending answer syncs, but always
// returns: a lost point-in-time checkpoint is preferred over trapping the
// user on the screen.
func (e *Engine) Abandon() {
	ctx, cancel := context.WithTimeout(context.Background(), abandonTimeout)
	defer cancel()

	e.mu.Lock()
	if e.lifecycle.Is(model.SessionStatusActive) {
		if err := e.lifecycle.Transition(model.SessionStatusPaused); err == nil {
			e.timer.Pause()
			e.session.RemainingSeconds = e.timer.Remaining()
			e.session.Status = model.SessionStatusPaused
			remaining := e.session.RemainingSeconds
			token := e.session.Token
			e.mu.Unlock()
			if _, err := e.pauser.Pause(ctx, token, remaining); err != nil {
				e.log.Warn().Err(err).Msg("Abandon checkpoint failed, navigating away anyway")
			}
			e.mu.Lock()
		}
	}
	answers := e.answers
	e.mu.Unlock()

	if answers != nil {
		answers.Close(ctx)
	}
}

// ViewState projects the current engine state for rendering. Derived fresh
// on every call, never persisted.
func (e *Engine) ViewState() model.QuizViewState {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := e.lifecycle.Status()
	var grid []model.GridCell
	if e.answers != nil {
		grid = GridCells(e.questions, e.answers.Snapshot(), e.current)
	}
	return model.QuizViewState{
		Status:           status,
		CurrentIndex:     e.current,
		RemainingSeconds: e.session.RemainingSeconds,
		IsPaused:         status == model.SessionStatusPaused,
		IsSubmitting:     status == model.SessionStatusSubmitting,
		Grid:             grid,
	}
}

// Session returns a copy of the session record.
func (e *Engine) Session() model.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Questions returns the immutable question set.
func (e *Engine) Questions() []model.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.questions
}

// Answers exposes the store for read-mostly collaborators (grid, CLI).
func (e *Engine) Answers() *AnswerStore {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answers
}

// onTick runs on the timer goroutine once per countdown second.
func (e *Engine) onTick(remaining int) {
	e.mu.Lock()
	if !e.lifecycle.Is(model.SessionStatusActive) {
		e.mu.Unlock()
		return
	}
	e.session.RemainingSeconds = remaining
	e.elapsed++
	if e.current >= 0 && e.current < len(e.questions) {
		e.answers.AddTimeSpent(e.questions[e.current].ID, 1)
	}
	e.mu.Unlock()

	e.emit(Event{Kind: EventTick, RemainingSeconds: remaining})
}

// onExpire runs exactly once when the countdown crosses zero. It moves the
// session to expired and drives the finalization through the same
// at-most-once gate a manual submit uses.
func (e *Engine) onExpire() {
	e.mu.Lock()
	if err := e.lifecycle.Transition(model.SessionStatusExpired); err != nil {
		// A submit already won the race; nothing to do.
		e.mu.Unlock()
		return
	}
	e.session.Status = model.SessionStatusExpired
	e.session.RemainingSeconds = 0
	e.mu.Unlock()

	e.emit(Event{Kind: EventExpired})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	_ = e.Submit(ctx, model.SubmitReasonExpiry)
}

// emit sends without blocking; the engine never waits on a UI consumer.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
