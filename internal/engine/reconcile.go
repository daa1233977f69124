package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// PauseResumeCoordinator reconciles the local countdown against the server
// whenever a session crosses a pause/resume boundary. The split rule: the
// client is authoritative for what was answered, the server for how much
// time remains.
type PauseResumeCoordinator struct {
	client QuizAPI
	log    zerolog.Logger
}

// NewPauseResumeCoordinator creates the coordinator.
func NewPauseResumeCoordinator(client QuizAPI, log zerolog.Logger) *PauseResumeCoordinator {
	return &PauseResumeCoordinator{
		client: client,
		log:    log.With().Str("component", "pause_resume").Logger(),
	}
}

// Pause checkpoints remaining time server-side. It returns the value to
// freeze locally — the server's remaining time when the response carries
// one, otherwise localRemaining — plus the persist error, if any. A persist
// failure never prevents the local pause; callers surface it as a
// non-blocking retry affordance.
func (c *PauseResumeCoordinator) Pause(ctx context.Context, token string, localRemaining int) (int, error) {
	resp, err := c.client.PauseSession(ctx, token, localRemaining)
	if err != nil {
		c.log.Warn().Err(err).Msg("Pause checkpoint failed, keeping local value")
		return localRemaining, fmt.Errorf("persist pause: %w", err)
	}
	if resp.RemainingSeconds != nil {
		if *resp.RemainingSeconds != localRemaining {
			c.log.Info().
				Int("local", localRemaining).
				Int("server", *resp.RemainingSeconds).
				Msg("Server clock disagrees on pause, adopting server value")
		}
		return clampSeconds(*resp.RemainingSeconds), nil
	}
	return localRemaining, nil
}

// Resume asks the server to restart the countdown and returns its
// authoritative remaining time. On error the caller must NOT reactivate the
// session: restarting from stale or unknown remaining time risks unfair
// early expiry or unlimited time.
func (c *PauseResumeCoordinator) Resume(ctx context.Context, token string) (int, error) {
	resp, err := c.client.ResumeSession(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("resume session: %w", err)
	}
	return clampSeconds(*resp.RemainingSeconds), nil
}

func clampSeconds(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
