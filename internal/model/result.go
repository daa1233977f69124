package model

// SubmitReason distinguishes a user-initiated submission from one forced by
// the countdown reaching zero.
type SubmitReason string

const (
	SubmitReasonManual SubmitReason = "MANUAL"
	SubmitReasonExpiry SubmitReason = "EXPIRY"
)

// SubmitResult is the server's score summary for a finalized attempt.
type SubmitResult struct {
	ResultID   string  `json:"result_id" validate:"required"`
	Score      float64 `json:"score"`
	TotalMarks float64 `json:"total_marks"`
	Correct    int     `json:"correct"`
	Attempted  int     `json:"attempted"`
}
