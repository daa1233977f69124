package model

// QuestionState is the visual status of one cell in the question grid.
type QuestionState string

const (
	QuestionStateCurrent    QuestionState = "CURRENT"
	QuestionStateAnswered   QuestionState = "ANSWERED"
	QuestionStateFlagged    QuestionState = "FLAGGED"
	QuestionStateUnanswered QuestionState = "UNANSWERED"
)

// GridCell pairs the dominant visual state with the flag marker so the UI
// can render combined badges (e.g. current + flagged).
type GridCell struct {
	State   QuestionState `json:"state"`
	Flagged bool          `json:"flagged"`
}

// QuizViewState is the ephemeral projection the UI renders from. It is
// rebuilt on demand and never persisted.
type QuizViewState struct {
	Status           SessionStatus `json:"status"`
	CurrentIndex     int           `json:"current_index"`
	RemainingSeconds int           `json:"remaining_seconds"`
	IsPaused         bool          `json:"is_paused"`
	IsSubmitting     bool          `json:"is_submitting"`
	Grid             []GridCell    `json:"grid"`
}
