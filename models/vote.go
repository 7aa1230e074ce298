package models

import (
	"time"
)

// Vote represents a user's current choice on a prediction.
// Keyed by (prediction_id, user_id); revotes overwrite the option.
type Vote struct {
	PredictionID int64     `db:"prediction_id"`
	UserID       int64     `db:"user_id"`
	OptionID     int64     `db:"option_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// OptionVoteCount represents the vote tally for a single option
type OptionVoteCount struct {
	OptionID int64
	Count    int
}

// PredictionStats represents the vote breakdown for a prediction
type PredictionStats struct {
	Prediction *Prediction
	Options    []*PredictionOption
	Counts     map[int64]int // option ID -> vote count
	TotalVotes int
}

// OptionPercentage returns the share of total votes for an option, in percent
// rounded to one decimal place
func (s *PredictionStats) OptionPercentage(optionID int64) float64 {
	if s.TotalVotes == 0 {
		return 0
	}
	pct := float64(s.Counts[optionID]) / float64(s.TotalVotes) * 1000
	return float64(int(pct+0.5)) / 10
}

// UserVote pairs a vote with the prediction and option it targets, for
// listings of a user's outstanding votes
type UserVote struct {
	Vote       *Vote
	Prediction *Prediction
	Option     *PredictionOption
}
