package mockapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/api"
	"github.com/dhruv2494/mocktail-engine/internal/config"
	"github.com/dhruv2494/mocktail-engine/internal/model"
)

func testServer(t *testing.T) (*Server, *api.Client) {
	t.Helper()
	cfg := &config.Config{GinMode: "test"}
	server := NewServer(cfg, zerolog.Nop())
	server.SeedTest(Test{
		ID:              "test-1",
		Title:           "Sample",
		DurationSeconds: 600,
		Questions: []model.Question{
			{ID: "q1", Prompt: "p1", Options: []string{"a", "b", "c", "d"}, Marks: 2, OrderNum: 1},
			{ID: "q2", Prompt: "p2", Options: []string{"a", "b", "c", "d"}, Marks: 3, OrderNum: 2},
		},
		CorrectOptions: map[string]int{"q1": 1, "q2": 2},
	})

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return server, api.NewClient(srv.URL+"/api/v1", "student-token", 2*time.Second, zerolog.Nop())
}

func TestFullAttemptRoundTrip(t *testing.T) {
	server, client := testServer(t)
	ctx := context.Background()

	start, err := client.StartSession(ctx, "test-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if start.RemainingSeconds != 600 || start.SessionToken == "" {
		t.Fatalf("unexpected start payload: %+v", start)
	}

	questions, err := client.FetchQuestions(ctx, "test-1")
	if err != nil {
		t.Fatalf("FetchQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(questions))
	}

	if err := client.SyncAnswer(ctx, start.SessionToken, "q1", api.SyncAnswerRequest{Option: 1}); err != nil {
		t.Fatalf("SyncAnswer: %v", err)
	}
	if got := server.SyncedAnswers(start.SessionToken)["q1"].Option; got != 1 {
		t.Fatalf("server mirror option = %d, want 1", got)
	}

	result, err := client.SubmitSession(ctx, start.SessionToken, api.SubmitSessionRequest{
		IdempotencyKey: "key-1",
		Reason:         model.SubmitReasonManual,
		ElapsedSeconds: 60,
		Answers: []model.Answer{
			{QuestionID: "q1", Option: 1},
			{QuestionID: "q2", Option: 0},
		},
	})
	if err != nil {
		t.Fatalf("SubmitSession: %v", err)
	}
	if result.Score != 2 || result.TotalMarks != 5 || result.Correct != 1 || result.Attempted != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestStartIsIdempotentForUnfinishedSession(t *testing.T) {
	_, client := testServer(t)
	ctx := context.Background()

	first, err := client.StartSession(ctx, "test-1")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := client.StartSession(ctx, "test-1")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first.SessionToken != second.SessionToken {
		t.Fatal("restarting an unfinished attempt must reuse the session")
	}
}

func TestPauseResumeServerAuthority(t *testing.T) {
	server, client := testServer(t)
	ctx := context.Background()

	start, err := client.StartSession(ctx, "test-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	pause, err := client.PauseSession(ctx, start.SessionToken, 550)
	if err != nil {
		t.Fatalf("PauseSession: %v", err)
	}
	if pause.RemainingSeconds == nil {
		t.Fatal("pause should return remaining time")
	}
	if *pause.RemainingSeconds > 600 {
		t.Fatalf("remaining = %d, want <= 600", *pause.RemainingSeconds)
	}

	server.OverrideResumeRemaining(500)
	resume, err := client.ResumeSession(ctx, start.SessionToken)
	if err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if *resume.RemainingSeconds != 500 {
		t.Fatalf("resume remaining = %d, want overridden 500", *resume.RemainingSeconds)
	}
}

func TestResumeRejectedWhenNotPaused(t *testing.T) {
	_, client := testServer(t)
	ctx := context.Background()

	start, err := client.StartSession(ctx, "test-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	_, err = client.ResumeSession(ctx, start.SessionToken)
	if !api.IsCode(err, api.ErrSessionNotPaused) {
		t.Fatalf("error = %v, want SESSION_NOT_PAUSED", err)
	}
}

func TestSubmitIsIdempotentByKey(t *testing.T) {
	_, client := testServer(t)
	ctx := context.Background()

	start, err := client.StartSession(ctx, "test-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	req := api.SubmitSessionRequest{
		IdempotencyKey: "key-7",
		Reason:         model.SubmitReasonExpiry,
		Answers:        []model.Answer{{QuestionID: "q1", Option: 1}},
	}
	first, err := client.SubmitSession(ctx, start.SessionToken, req)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := client.SubmitSession(ctx, start.SessionToken, req)
	if err != nil {
		t.Fatalf("replayed submit: %v", err)
	}
	if first.ResultID != second.ResultID {
		t.Fatal("replay with the same idempotency key must return the recorded result")
	}

	// A different key after completion is a conflict, not a second result.
	req.IdempotencyKey = "key-8"
	_, err = client.SubmitSession(ctx, start.SessionToken, req)
	if !api.IsCode(err, api.ErrSessionFinished) {
		t.Fatalf("error = %v, want SESSION_FINISHED", err)
	}
}

func TestSubmitFailureInjection(t *testing.T) {
	server, client := testServer(t)
	ctx := context.Background()

	start, err := client.StartSession(ctx, "test-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	server.FailSubmit(2)
	req := api.SubmitSessionRequest{IdempotencyKey: "key-9", Reason: model.SubmitReasonExpiry}

	for i := 0; i < 2; i++ {
		if _, err := client.SubmitSession(ctx, start.SessionToken, req); !api.IsCode(err, api.ErrInternal) {
			t.Fatalf("attempt %d error = %v, want INTERNAL_ERROR", i+1, err)
		}
	}
	if _, err := client.SubmitSession(ctx, start.SessionToken, req); err != nil {
		t.Fatalf("attempt after injected failures: %v", err)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	cfg := &config.Config{GinMode: "test"}
	server := NewServer(cfg, zerolog.Nop())
	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)

	anon := api.NewClient(srv.URL+"/api/v1", "", 2*time.Second, zerolog.Nop())
	_, err := anon.StartSession(context.Background(), "test-1")
	if !api.IsCode(err, api.ErrTokenRequired) {
		t.Fatalf("error = %v, want TOKEN_REQUIRED", err)
	}
}

func TestDemoSessionSkipsAnswerMirror(t *testing.T) {
	server, client := testServer(t)
	server.SeedTest(Test{
		ID:              "demo-1",
		DurationSeconds: 120,
		IsDemo:          true,
		Questions: []model.Question{
			{ID: "q1", Prompt: "p1", Options: []string{"a", "b", "c", "d"}, Marks: 1, OrderNum: 1},
		},
		CorrectOptions: map[string]int{"q1": 0},
	})
	ctx := context.Background()

	start, err := client.StartSession(ctx, "demo-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if !start.IsDemo {
		t.Fatal("demo flag missing")
	}
	if err := client.SyncAnswer(ctx, start.SessionToken, "q1", api.SyncAnswerRequest{Option: 0}); err != nil {
		t.Fatalf("SyncAnswer: %v", err)
	}
	if got := len(server.SyncedAnswers(start.SessionToken)); got != 0 {
		t.Fatalf("demo session mirrored %d answers, want 0", got)
	}
}
