package engine

import (
	"testing"

	"github.com/dhruv2494/mocktail-engine/internal/model"
)

func TestGridCellPrecedence(t *testing.T) {
	questions := testQuestions(4)
	answers := map[string]model.Answer{
		// Answered and flagged: answered wins, flag still exposed.
		questions[0].ID: {QuestionID: questions[0].ID, Option: 1, Flagged: true},
		// Flag only.
		questions[1].ID: {QuestionID: questions[1].ID, Option: model.OptionNone, Flagged: true},
		// Current and answered: current wins.
		questions[2].ID: {QuestionID: questions[2].ID, Option: 0},
	}

	cells := GridCells(questions, answers, 2)

	tests := []struct {
		idx     int
		state   model.QuestionState
		flagged bool
	}{
		{0, model.QuestionStateAnswered, true},
		{1, model.QuestionStateFlagged, true},
		{2, model.QuestionStateCurrent, false},
		{3, model.QuestionStateUnanswered, false},
	}
	for _, tc := range tests {
		if cells[tc.idx].State != tc.state {
			t.Errorf("cell %d state = %s, want %s", tc.idx, cells[tc.idx].State, tc.state)
		}
		if cells[tc.idx].Flagged != tc.flagged {
			t.Errorf("cell %d flagged = %v, want %v", tc.idx, cells[tc.idx].Flagged, tc.flagged)
		}
	}
}

func TestGridCellsEmptyAnswers(t *testing.T) {
	questions := testQuestions(3)
	cells := GridCells(questions, map[string]model.Answer{}, 0)

	if cells[0].State != model.QuestionStateCurrent {
		t.Fatalf("cell 0 = %s, want CURRENT", cells[0].State)
	}
	for i := 1; i < 3; i++ {
		if cells[i].State != model.QuestionStateUnanswered {
			t.Fatalf("cell %d = %s, want UNANSWERED", i, cells[i].State)
		}
	}
}
