package models

import (
	"time"
)

// PredictionStatus represents the lifecycle state of a prediction
type PredictionStatus string

const (
	PredictionStatusOpen     PredictionStatus = "OPEN"
	PredictionStatusClosed   PredictionStatus = "CLOSED"
	PredictionStatusResolved PredictionStatus = "RESOLVED"
)

// Prediction represents a multi-option group prediction
type Prediction struct {
	ID        int64            `db:"id"`
	GuildID   int64            `db:"guild_id"`
	ChannelID int64            `db:"channel_id"`
	MessageID *int64           `db:"message_id"`
	Title     string           `db:"title"`
	Game      *string          `db:"game"`
	Status    PredictionStatus `db:"status"`
	LockTime  *time.Time       `db:"lock_time"`
	CreatedBy int64            `db:"created_by"`
	CreatedAt time.Time        `db:"created_at"`
}

// PredictionOption represents a possible outcome of a prediction
type PredictionOption struct {
	ID           int64     `db:"id"`
	PredictionID int64     `db:"prediction_id"`
	Label        string    `db:"label"`
	OptionOrder  int16     `db:"option_order"`
	CreatedAt    time.Time `db:"created_at"`
}

// PredictionDetail combines a prediction with its options
type PredictionDetail struct {
	Prediction *Prediction
	Options    []*PredictionOption
}

// IsOpen checks if the prediction is still accepting votes
func (p *Prediction) IsOpen() bool {
	return p.Status == PredictionStatusOpen
}

// IsResolved checks if the prediction has been resolved
func (p *Prediction) IsResolved() bool {
	return p.Status == PredictionStatusResolved
}

// HasLockTime checks if the prediction auto-closes at a deadline.
// A prediction without a lock time never auto-closes.
func (p *Prediction) HasLockTime() bool {
	return p.LockTime != nil
}

// IsLockExpired checks if the lock deadline has elapsed as of now
func (p *Prediction) IsLockExpired(now time.Time) bool {
	if p.LockTime == nil {
		return false
	}
	return !now.Before(*p.LockTime)
}

// AcceptsVotes checks whether a vote cast at now should be accepted
func (p *Prediction) AcceptsVotes(now time.Time) bool {
	return p.IsOpen() && !p.IsLockExpired(now)
}

// FindOption returns the option with the given ID, or nil if it does not
// belong to this prediction
func (d *PredictionDetail) FindOption(optionID int64) *PredictionOption {
	for _, opt := range d.Options {
		if opt.ID == optionID {
			return opt
		}
	}
	return nil
}
