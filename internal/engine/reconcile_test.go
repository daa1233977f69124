package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestPauseAdoptsServerValueWhenPresent(t *testing.T) {
	server := 480
	fa := &fakeAPI{pauseRemaining: &server}
	c := NewPauseResumeCoordinator(fa, zerolog.Nop())

	remaining, err := c.Pause(context.Background(), "tok", 550)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if remaining != 480 {
		t.Fatalf("remaining = %d, want server value 480", remaining)
	}
}

func TestPauseKeepsLocalValueOnFailure(t *testing.T) {
	fa := &fakeAPI{pauseErr: errors.New("network down")}
	c := NewPauseResumeCoordinator(fa, zerolog.Nop())

	remaining, err := c.Pause(context.Background(), "tok", 550)
	if err == nil {
		t.Fatal("Pause should report the persist failure")
	}
	if remaining != 550 {
		t.Fatalf("remaining = %d, want local value 550", remaining)
	}
}

func TestResumeReturnsAuthoritativeRemaining(t *testing.T) {
	fa := &fakeAPI{resumeRemaining: 500}
	c := NewPauseResumeCoordinator(fa, zerolog.Nop())

	remaining, err := c.Resume(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if remaining != 500 {
		t.Fatalf("remaining = %d, want 500", remaining)
	}
}

func TestResumeClampsNegativeRemaining(t *testing.T) {
	fa := &fakeAPI{resumeRemaining: -30}
	c := NewPauseResumeCoordinator(fa, zerolog.Nop())

	remaining, err := c.Resume(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want clamped 0", remaining)
	}
}
