package engine

import "github.com/dhruv2494/mocktail-engine/internal/model"

// GridCells derives the per-question visual status for the navigation grid.
// Pure function: no network, no timers, no state. Precedence when several
// conditions hold: current wins over answered and flagged, but the flag
// marker is still exposed alongside for combined badges.
func GridCells(questions []model.Question, answers map[string]model.Answer, currentIndex int) []model.GridCell {
	cells := make([]model.GridCell, len(questions))
	for i, q := range questions {
		a, ok := answers[q.ID]
		cell := model.GridCell{State: model.QuestionStateUnanswered, Flagged: ok && a.Flagged}
		switch {
		case i == currentIndex:
			cell.State = model.QuestionStateCurrent
		case ok && a.Selected():
			cell.State = model.QuestionStateAnswered
		case cell.Flagged:
			cell.State = model.QuestionStateFlagged
		}
		cells[i] = cell
	}
	return cells
}
