package flow

import "github.com/zhouzirui/mood-fortune/backend/internal/model/content"

// Stage is a step of the reveal flow.
type Stage string

const (
	StageNone            Stage = "none"
	StageMoodChosen      Stage = "mood_chosen"
	StageContextChosen   Stage = "context_chosen"
	StageMessageSelected Stage = "message_selected"
	StageRevealed        Stage = "revealed"
)

// Profile is the state one client keeps across the reveal flow.
type Profile struct {
	ID       string            `json:"profileId"`
	Library  string            `json:"library"`
	Stage    Stage             `json:"stage"`
	Mood     content.Mood      `json:"mood,omitempty"`
	Context  content.Context   `json:"context,omitempty"`
	Selected *content.Selected `json:"selected,omitempty"`
}
