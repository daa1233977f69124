package model

// OptionNone marks a question with no selection yet (flag-only answers).
const OptionNone = -1

// Answer is the client-authoritative record for one question. At most one
// option is selected per question; re-selection overwrites in place.
type Answer struct {
	QuestionID       string `json:"question_id"`
	Option           int    `json:"option"` // 0..3, or OptionNone
	Flagged          bool   `json:"flagged"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

// Selected reports whether an option has been chosen.
func (a Answer) Selected() bool {
	return a.Option != OptionNone
}
