package mockapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/api"
	"github.com/dhruv2494/mocktail-engine/internal/config"
	"github.com/dhruv2494/mocktail-engine/internal/model"
)

// Test is a seeded fixture: one test paper plus its answer key.
type Test struct {
	ID              string
	Title           string
	DurationSeconds int
	IsDemo          bool
	Language        string
	Questions       []model.Question
	// CorrectOptions maps question ID to the correct option index.
	CorrectOptions map[string]int
}

// sessionRecord is the server-side state of one attempt. Remaining time is
// derived from timestamps while active, frozen while paused: the server's
// clock is the source of truth on every resume.
type sessionRecord struct {
	token            string
	testID           string
	status           model.SessionStatus
	remainingSeconds int
	lastResumedAt    time.Time
	answers          map[string]api.SyncAnswerRequest
	results          map[string]*model.SubmitResult // by idempotency key
}

// Server is an in-memory stand-in for the quiz backend. It implements the
// six operations the engine consumes, with failure-injection hooks so tests
// can exercise every error path of the client.
type Server struct {
	mu       sync.Mutex
	tests    map[string]*Test
	sessions map[string]*sessionRecord
	byTest   map[string]string // test ID → session token

	failSubmit      int
	failSync        bool
	failPause       bool
	failResume      bool
	resumeRemaining *int

	router *gin.Engine
	log    zerolog.Logger
}

// NewServer builds the mock server and its routes.
func NewServer(cfg *config.Config, log zerolog.Logger) *Server {
	s := &Server{
		tests:    make(map[string]*Test),
		sessions: make(map[string]*sessionRecord),
		byTest:   make(map[string]string),
		log:      log.With().Str("component", "mockapi").Logger(),
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))
	router.Use(requestIDMiddleware())

	router.GET("/health", func(c *gin.Context) {
		success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	quiz := router.Group("/api/v1/quiz")
	quiz.Use(s.requireBearer())
	{
		quiz.POST("/tests/:test_id/session", s.startSession)
		quiz.GET("/tests/:test_id/questions", s.getQuestions)
		quiz.POST("/sessions/:token/pause", s.pauseSession)
		quiz.POST("/sessions/:token/resume", s.resumeSession)
		quiz.PUT("/sessions/:token/answers/:question_id", s.syncAnswer)
		quiz.POST("/sessions/:token/submit", s.submitSession)
	}

	s.router = router
	return s
}

// Router exposes the gin engine for http.Server or httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// SeedTest registers a test fixture.
func (s *Server) SeedTest(t Test) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Language == "" {
		t.Language = "en"
	}
	s.tests[t.ID] = &t
}

// FailSubmit makes the next n submit calls return HTTP 500.
func (s *Server) FailSubmit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSubmit = n
}

// FailSync toggles failure of every answer-sync call.
func (s *Server) FailSync(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSync = v
}

// FailPause toggles failure of every pause call.
func (s *Server) FailPause(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPause = v
}

// FailResume toggles failure of every resume call.
func (s *Server) FailResume(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failResume = v
}

// OverrideResumeRemaining forces the next resume responses to report the
// given remaining seconds, simulating a server clock that disagrees with
// the client (longer pause, different device).
func (s *Server) OverrideResumeRemaining(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeRemaining = &seconds
}

// SyncedAnswers returns the server-side answer mirror for a session token.
func (s *Server) SyncedAnswers(token string) map[string]api.SyncAnswerRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[token]
	if !ok {
		return nil
	}
	out := make(map[string]api.SyncAnswerRequest, len(rec.answers))
	for id, a := range rec.answers {
		out[id] = a
	}
	return out
}

// requireBearer accepts any non-empty bearer token. Real authentication is
// the host application's concern; the engine just forwards an opaque
// credential.
func (s *Server) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") || strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")) == "" {
			fail(c, http.StatusUnauthorized, api.ErrTokenRequired, "bearer token required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentRemaining derives remaining seconds at this instant. Caller holds
// s.mu.
func (s *Server) currentRemaining(rec *sessionRecord) int {
	remaining := rec.remainingSeconds
	if rec.status == model.SessionStatusActive {
		remaining -= int(time.Since(rec.lastResumedAt).Seconds())
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (s *Server) startSession(c *gin.Context) {
	testID := c.Param("test_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	test, ok := s.tests[testID]
	if !ok {
		fail(c, http.StatusNotFound, api.ErrTestNotAvailable, "test not available")
		return
	}

	// Idempotent: an unfinished session for this test is resumed, not
	// duplicated.
	if token, ok := s.byTest[testID]; ok {
		rec := s.sessions[token]
		if !rec.status.Terminal() {
			rec.remainingSeconds = s.currentRemaining(rec)
			rec.status = model.SessionStatusActive
			rec.lastResumedAt = time.Now()
			success(c, http.StatusOK, api.StartSessionResponse{
				SessionToken:     rec.token,
				Status:           rec.status,
				RemainingSeconds: rec.remainingSeconds,
				IsDemo:           test.IsDemo,
				Language:         test.Language,
			})
			return
		}
	}

	rec := &sessionRecord{
		token:            uuid.New().String(),
		testID:           testID,
		status:           model.SessionStatusActive,
		remainingSeconds: test.DurationSeconds,
		lastResumedAt:    time.Now(),
		answers:          make(map[string]api.SyncAnswerRequest),
		results:          make(map[string]*model.SubmitResult),
	}
	s.sessions[rec.token] = rec
	s.byTest[testID] = rec.token

	s.log.Info().Str("test_id", testID).Str("token", rec.token).Msg("Session created")

	success(c, http.StatusCreated, api.StartSessionResponse{
		SessionToken:     rec.token,
		Status:           rec.status,
		RemainingSeconds: rec.remainingSeconds,
		IsDemo:           test.IsDemo,
		Language:         test.Language,
	})
}

func (s *Server) getQuestions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, ok := s.tests[c.Param("test_id")]
	if !ok {
		fail(c, http.StatusNotFound, api.ErrTestNotAvailable, "test not available")
		return
	}
	success(c, http.StatusOK, gin.H{"questions": test.Questions})
}

func (s *Server) pauseSession(c *gin.Context) {
	var req struct {
		RemainingSeconds int `json:"remaining_seconds"`
	}
	_ = c.ShouldBindJSON(&req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPause {
		fail(c, http.StatusInternalServerError, api.ErrInternal, "injected pause failure")
		return
	}

	rec, ok := s.sessions[c.Param("token")]
	if !ok {
		fail(c, http.StatusNotFound, api.ErrNotFound, "session not found")
		return
	}
	if rec.status != model.SessionStatusActive {
		fail(c, http.StatusConflict, api.ErrSessionNotActive, "session is not active")
		return
	}

	// Server clock wins; the client's value is taken only as a hint when it
	// is tighter than our own derivation.
	remaining := s.currentRemaining(rec)
	if req.RemainingSeconds > 0 && req.RemainingSeconds < remaining {
		remaining = req.RemainingSeconds
	}
	rec.remainingSeconds = remaining
	rec.status = model.SessionStatusPaused

	success(c, http.StatusOK, api.ClockResponse{
		Status:           rec.status,
		RemainingSeconds: &remaining,
	})
}

func (s *Server) resumeSession(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failResume {
		fail(c, http.StatusInternalServerError, api.ErrInternal, "injected resume failure")
		return
	}

	rec, ok := s.sessions[c.Param("token")]
	if !ok {
		fail(c, http.StatusNotFound, api.ErrNotFound, "session not found")
		return
	}
	if rec.status != model.SessionStatusPaused {
		fail(c, http.StatusConflict, api.ErrSessionNotPaused, "session is not paused")
		return
	}

	if s.resumeRemaining != nil {
		rec.remainingSeconds = *s.resumeRemaining
	}
	rec.status = model.SessionStatusActive
	rec.lastResumedAt = time.Now()
	remaining := rec.remainingSeconds

	success(c, http.StatusOK, api.ClockResponse{
		Status:           rec.status,
		RemainingSeconds: &remaining,
	})
}

func (s *Server) syncAnswer(c *gin.Context) {
	var req api.SyncAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.ErrInvalidPayload, "invalid answer payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSync {
		fail(c, http.StatusInternalServerError, api.ErrInternal, "injected sync failure")
		return
	}

	rec, ok := s.sessions[c.Param("token")]
	if !ok {
		fail(c, http.StatusNotFound, api.ErrNotFound, "session not found")
		return
	}
	if rec.status.Terminal() {
		fail(c, http.StatusConflict, api.ErrSessionFinished, "session already finished")
		return
	}

	test := s.tests[rec.testID]
	if !test.IsDemo {
		// UPSERT: re-selection overwrites in place.
		rec.answers[c.Param("question_id")] = req
	}

	success(c, http.StatusOK, gin.H{"acknowledged": true})
}

func (s *Server) submitSession(c *gin.Context) {
	var req api.SubmitSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, api.ErrInvalidPayload, "invalid submit payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[c.Param("token")]
	if !ok {
		fail(c, http.StatusNotFound, api.ErrNotFound, "session not found")
		return
	}

	// Idempotent replay: a lost acknowledgment must not double-record.
	if result, ok := rec.results[req.IdempotencyKey]; ok {
		success(c, http.StatusOK, result)
		return
	}

	if rec.status.Terminal() {
		fail(c, http.StatusConflict, api.ErrSessionFinished, "session already finished")
		return
	}

	if s.failSubmit > 0 {
		s.failSubmit--
		fail(c, http.StatusInternalServerError, api.ErrInternal, "injected submit failure")
		return
	}

	test := s.tests[rec.testID]
	result := s.score(test, req.Answers)

	rec.status = model.SessionStatusCompleted
	rec.remainingSeconds = 0
	rec.results[req.IdempotencyKey] = result

	s.log.Info().
		Str("token", rec.token).
		Str("reason", string(req.Reason)).
		Float64("score", result.Score).
		Msg("Session submitted")

	success(c, http.StatusOK, result)
}

// score grades the submitted answer set against the fixture's answer key.
func (s *Server) score(test *Test, answers []model.Answer) *model.SubmitResult {
	result := &model.SubmitResult{ResultID: uuid.New().String()}
	marks := make(map[string]float64, len(test.Questions))
	for _, q := range test.Questions {
		result.TotalMarks += q.Marks
		marks[q.ID] = q.Marks
	}
	for _, a := range answers {
		if !a.Selected() {
			continue
		}
		result.Attempted++
		if correct, ok := test.CorrectOptions[a.QuestionID]; ok && correct == a.Option {
			result.Correct++
			result.Score += marks[a.QuestionID]
		}
	}
	return result
}
