package models

import (
	"time"
)

// UserPoints represents a user's running point total within a guild
type UserPoints struct {
	GuildID   int64     `db:"guild_id"`
	UserID    int64     `db:"user_id"`
	Total     int64     `db:"total"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PointsLedgerEntry is an immutable record of one point adjustment, always
// traceable to the prediction that caused it. Entries are only ever created
// by resolution and only ever deleted, as a full set, by undo.
type PointsLedgerEntry struct {
	ID           int64     `db:"id"`
	GuildID      int64     `db:"guild_id"`
	UserID       int64     `db:"user_id"`
	PredictionID int64     `db:"prediction_id"`
	Delta        int64     `db:"delta"`
	Reason       string    `db:"reason"`
	CreatedAt    time.Time `db:"created_at"`
}

// UserDelta is a per-user sum of ledger deltas for one prediction
type UserDelta struct {
	UserID int64
	Delta  int64
}

// LeaderboardEntry is one row of a guild's points leaderboard
type LeaderboardEntry struct {
	Rank   int
	UserID int64
	Total  int64
}
