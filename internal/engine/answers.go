package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/api"
	"github.com/dhruv2494/mocktail-engine/internal/model"
)

const syncQueueSize = 256

// SyncFunc mirrors one answer server-side. Implementations must treat the
// call as best-effort: the store never surfaces its errors to the user.
type SyncFunc func(ctx context.Context, questionID string, req api.SyncAnswerRequest) error

type syncItem struct {
	questionID string
	req        api.SyncAnswerRequest
}

// AnswerStore is the client-authoritative record of what was answered.
// Writes apply locally first and return immediately; a single worker
// goroutine drains the sync queue in the background. A snapshot never omits
// an answer that was set locally, regardless of sync outcomes — final
// submission re-sends the complete set anyway.
type AnswerStore struct {
	mu      sync.Mutex
	answers map[string]*model.Answer

	queue   chan syncItem
	done    chan struct{}
	closed  bool
	syncFn  SyncFunc
	retries int
	demo    bool
	log     zerolog.Logger
}

// NewAnswerStore creates the store and starts its sync worker. syncFn may be
// nil (demo sessions, tests) in which case nothing is ever enqueued.
// retries is the number of additional attempts per item beyond the first.
func NewAnswerStore(syncFn SyncFunc, retries int, demo bool, log zerolog.Logger) *AnswerStore {
	s := &AnswerStore{
		answers: make(map[string]*model.Answer),
		queue:   make(chan syncItem, syncQueueSize),
		done:    make(chan struct{}),
		syncFn:  syncFn,
		retries: retries,
		demo:    demo,
		log:     log.With().Str("component", "answer_store").Logger(),
	}
	go s.worker()
	return s
}

// Set overwrites or creates the answer for a question and enqueues a
// background sync. It never blocks on the network.
func (s *AnswerStore) Set(questionID string, option int) {
	s.mu.Lock()
	a := s.ensure(questionID)
	a.Option = option
	item := syncItem{questionID: questionID, req: api.SyncAnswerRequest{
		Option:           a.Option,
		Flagged:          a.Flagged,
		TimeSpentSeconds: a.TimeSpentSeconds,
	}}
	s.mu.Unlock()

	s.enqueue(item)
}

// ToggleFlag flips the flag for a question and returns the new value.
// Flags are local-only until final submission.
func (s *AnswerStore) ToggleFlag(questionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.ensure(questionID)
	a.Flagged = !a.Flagged
	return a.Flagged
}

// AddTimeSpent accumulates on-screen seconds for a question.
func (s *AnswerStore) AddTimeSpent(questionID string, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(questionID).TimeSpentSeconds += seconds
}

// Get returns a copy of the answer for a question, if any.
func (s *AnswerStore) Get(questionID string) (model.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[questionID]
	if !ok {
		return model.Answer{}, false
	}
	return *a, true
}

// Snapshot returns a copy of the full answer map.
func (s *AnswerStore) Snapshot() map[string]model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Answer, len(s.answers))
	for id, a := range s.answers {
		out[id] = *a
	}
	return out
}

// List returns all answers ordered by question ID, the shape the submission
// payload wants.
func (s *AnswerStore) List() []model.Answer {
	snap := s.Snapshot()
	out := make([]model.Answer, 0, len(snap))
	for _, a := range snap {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

// Close stops accepting new syncs and waits for the queue to drain or ctx
// to be cancelled.
func (s *AnswerStore) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
	}
}

// ensure returns the answer record for a question, creating it lazily.
// Caller must hold s.mu.
func (s *AnswerStore) ensure(questionID string) *model.Answer {
	a, ok := s.answers[questionID]
	if !ok {
		a = &model.Answer{QuestionID: questionID, Option: model.OptionNone}
		s.answers[questionID] = a
	}
	return a
}

func (s *AnswerStore) enqueue(item syncItem) {
	if s.syncFn == nil || s.demo {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- item:
	default:
		// Queue full — drop. Submission re-sends everything.
		s.log.Debug().Str("question_id", item.questionID).Msg("Sync queue full, dropping item")
	}
}

// worker drains the sync queue one item at a time. Failures are swallowed:
// local state stays authoritative until submission.
func (s *AnswerStore) worker() {
	defer close(s.done)

	for item := range s.queue {
		if s.syncFn == nil {
			continue
		}
		attempts := 1 + s.retries
		for i := 0; i < attempts; i++ {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.syncFn(ctx, item.questionID, item.req)
			cancel()
			if err == nil {
				break
			}
			s.log.Debug().Err(err).
				Str("question_id", item.questionID).
				Int("attempt", i+1).
				Msg("Answer sync failed")
		}
	}
}
