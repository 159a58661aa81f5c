package model

import "time"

// SummaryExport is the top-level JSON structure for the administrator export.
type SummaryExport struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	NumQuestions int              `json:"num_questions"`
	Participants []ParticipantRow `json:"participants"`
}

// ParticipantRow holds one participant's completion state and scores for export.
type ParticipantRow struct {
	Identifier  string             `json:"identifier"`
	DisplayName string             `json:"display_name"`
	State       string             `json:"state"`
	PreTakenAt  *time.Time         `json:"pre_taken_at,omitempty"`
	PostTakenAt *time.Time         `json:"post_taken_at,omitempty"`
	PreScores   map[string]float64 `json:"pre_scores,omitempty"`
	PostScores  map[string]float64 `json:"post_scores,omitempty"`
}
