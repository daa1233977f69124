package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/api"
	"github.com/dhruv2494/mocktail-engine/internal/model"
)

// ErrSubmitExhausted is returned when an expiry-triggered submission has
// used up its bounded automatic retries.
var ErrSubmitExhausted = errors.New("submission retries exhausted")

// SubmissionCoordinator is the single gate through which an attempt is
// finalized. The idempotency key is minted once per finalization and reused
// across every retry, so the server records the result at most once even if
// an acknowledgment is lost.
type SubmissionCoordinator struct {
	client            QuizAPI
	maxExpiryAttempts int           // total attempts for an expiry-triggered submission
	retryDelay        time.Duration // pause between automatic retries
	key               string
	log               zerolog.Logger
}

// NewSubmissionCoordinator creates the coordinator. maxExpiryAttempts bounds
// the total attempts for expiry-triggered submissions; manual submissions
// get exactly one.
func NewSubmissionCoordinator(client QuizAPI, maxExpiryAttempts int, log zerolog.Logger) *SubmissionCoordinator {
	if maxExpiryAttempts < 1 {
		maxExpiryAttempts = 1
	}
	return &SubmissionCoordinator{
		client:            client,
		maxExpiryAttempts: maxExpiryAttempts,
		retryDelay:        2 * time.Second,
		log:               log.With().Str("component", "submission").Logger(),
	}
}

// Submit sends the complete answer set for finalization. Manual submissions
// make a single attempt and leave retrying to the user; expiry submissions
// retry automatically up to the configured bound, since the user can no
// longer meaningfully continue answering.
func (s *SubmissionCoordinator) Submit(
	ctx context.Context,
	token string,
	reason model.SubmitReason,
	elapsedSeconds int,
	answers []model.Answer,
) (*model.SubmitResult, error) {
	if s.key == "" {
		s.key = uuid.New().String()
	}

	req := api.SubmitSessionRequest{
		IdempotencyKey: s.key,
		Reason:         reason,
		ElapsedSeconds: elapsedSeconds,
		Answers:        answers,
	}

	attempts := 1
	if reason == model.SubmitReasonExpiry {
		attempts = s.maxExpiryAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			s.log.Warn().Int("attempt", i+1).Int("max", attempts).Msg("Retrying submission")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		result, err := s.client.SubmitSession(ctx, token, req)
		if err == nil {
			s.log.Info().
				Str("result_id", result.ResultID).
				Str("reason", string(reason)).
				Msg("Session submitted")
			return result, nil
		}
		lastErr = err
		s.log.Error().Err(err).Str("reason", string(reason)).Msg("Submission attempt failed")
	}

	if reason == model.SubmitReasonExpiry {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrSubmitExhausted, attempts, lastErr)
	}
	return nil, fmt.Errorf("submit session: %w", lastErr)
}
