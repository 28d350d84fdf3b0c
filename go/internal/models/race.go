package models

import (
	"time"

	"github.com/google/uuid"
)

// FinishReason records why a race ended.
type FinishReason string

const (
	FinishReasonAllFinished FinishReason = "all_finished"
	FinishReasonTimeout     FinishReason = "timeout"
)

// Standing is one participant's line in a finished race.
type Standing struct {
	Place      int        `json:"place"`
	Username   string     `json:"username"`
	Progress   int        `json:"progress"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// RaceResult is the outcome of one race in one room.
type RaceResult struct {
	ID         uuid.UUID    `json:"id"`
	Room       string       `json:"room"`
	TextID     int          `json:"textId"`
	Reason     FinishReason `json:"reason"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Standings  []Standing   `json:"standings"`
}

// Winner returns the first-placed username, or "" when nobody raced.
func (r RaceResult) Winner() string {
	if len(r.Standings) == 0 {
		return ""
	}
	return r.Standings[0].Username
}
