package models

import (
	"time"
)

// PredictionResult records the resolution of a prediction. At most one row
// exists per prediction; its existence is the single source of truth for
// "already resolved".
type PredictionResult struct {
	PredictionID   int64     `db:"prediction_id"`
	WinnerOptionID int64     `db:"winner_option_id"`
	ResolvedBy     int64     `db:"resolved_by"`
	CreatedAt      time.Time `db:"created_at"`
}

// ResolutionOutcome summarizes a completed resolution
type ResolutionOutcome struct {
	Prediction   *Prediction
	WinnerOption *PredictionOption
	TotalVotes   int
	CorrectCount int
}

// UndoOutcome summarizes a reverted resolution
type UndoOutcome struct {
	Prediction    *Prediction
	AffectedUsers int
	TotalAbsDelta int64
}
