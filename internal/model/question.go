package model

// Question is one multiple-choice question of a test. Questions are loaded
// once at session start and never mutated afterwards.
type Question struct {
	ID               string   `json:"id" validate:"required"`
	Prompt           string   `json:"prompt" validate:"required"`
	Options          []string `json:"options" validate:"required,len=4,dive,required"`
	Marks            float64  `json:"marks"`
	OrderNum         int      `json:"order_num"`
	TimeLimitSeconds *int     `json:"time_limit_seconds,omitempty"`
}
