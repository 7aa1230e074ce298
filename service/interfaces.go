package service

import (
	"context"
	"time"

	"predbot/events"
	"predbot/models"
)

// PredictionRepository defines the interface for prediction data access
type PredictionRepository interface {
	// CreateWithOptions creates a prediction and its options atomically
	CreateWithOptions(ctx context.Context, prediction *models.Prediction, options []*models.PredictionOption) error

	// GetByID retrieves a prediction by its ID
	GetByID(ctx context.Context, id int64) (*models.Prediction, error)

	// GetDetailByID retrieves a prediction with its options
	GetDetailByID(ctx context.Context, id int64) (*models.PredictionDetail, error)

	// SetMessageID records the Discord message the prediction was posted as
	SetMessageID(ctx context.Context, id int64, messageID int64) error

	// CloseIfOpen transitions the prediction from OPEN to CLOSED with a
	// single conditional update. Returns true only for the caller whose
	// update affected the row; concurrent callers observe false.
	CloseIfOpen(ctx context.Context, id int64) (bool, error)

	// SetStatus sets the prediction status unconditionally
	SetStatus(ctx context.Context, id int64, status models.PredictionStatus) error

	// ListExpiredOpen returns up to limit OPEN predictions whose lock time
	// is non-null and has elapsed as of now
	ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]*models.Prediction, error)
}

// VoteRepository defines the interface for vote data access
type VoteRepository interface {
	// Upsert creates the vote keyed by (prediction, user) or overwrites its
	// option. Last committed write wins.
	Upsert(ctx context.Context, vote *models.Vote) error

	// GetByPrediction returns all votes for a prediction
	GetByPrediction(ctx context.Context, predictionID int64) ([]*models.Vote, error)

	// CountByOption returns the per-option vote tally for a prediction
	CountByOption(ctx context.Context, predictionID int64) ([]*models.OptionVoteCount, error)

	// ListUnresolvedByUser returns a user's votes on OPEN or CLOSED
	// predictions in a guild, newest first. predictionID narrows the result
	// to a single prediction when non-nil.
	ListUnresolvedByUser(ctx context.Context, guildID, userID int64, predictionID *int64) ([]*models.UserVote, error)
}

// ResultRepository defines the interface for prediction result data access
type ResultRepository interface {
	// GetByPrediction returns the result for a prediction, or nil if the
	// prediction has not been resolved
	GetByPrediction(ctx context.Context, predictionID int64) (*models.PredictionResult, error)

	// Create inserts the result row
	Create(ctx context.Context, result *models.PredictionResult) error

	// DeleteByPrediction removes the result row
	DeleteByPrediction(ctx context.Context, predictionID int64) error
}

// PointsRepository defines the interface for user points and ledger access
type PointsRepository interface {
	// AwardPoints adds delta to each user's total, creating rows with
	// total=delta for users who have none
	AwardPoints(ctx context.Context, guildID int64, userIDs []int64, delta int64) error

	// ApplyDelta adjusts a single user's total by delta (positive or
	// negative)
	ApplyDelta(ctx context.Context, guildID, userID, delta int64) error

	// ClampNonNegative floors negative totals to zero for the given users,
	// returning how many rows were clamped
	ClampNonNegative(ctx context.Context, guildID int64, userIDs []int64) (int64, error)

	// GetUserPoints returns a user's points row, or nil if absent
	GetUserPoints(ctx context.Context, guildID, userID int64) (*models.UserPoints, error)

	// GetLeaderboard returns the top users by total for a guild
	GetLeaderboard(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error)

	// AppendLedger inserts one ledger entry per element of entries
	AppendLedger(ctx context.Context, entries []*models.PointsLedgerEntry) error

	// SumLedgerByUser groups a prediction's ledger rows by user and sums
	// their deltas
	SumLedgerByUser(ctx context.Context, guildID, predictionID int64) ([]*models.UserDelta, error)

	// DeleteLedgerByPrediction removes all ledger rows for a prediction
	DeleteLedgerByPrediction(ctx context.Context, guildID, predictionID int64) error
}

// CreatePredictionParams holds the inputs for creating a prediction
type CreatePredictionParams struct {
	GuildID   int64
	ChannelID int64
	CreatorID int64
	Title     string
	Game      *string
	Options   []string
	LockTime  *time.Time
}

// PredictionService defines the interface for prediction lifecycle operations
// outside of voting and resolution
type PredictionService interface {
	// CreatePrediction creates a prediction with at least 2 distinct options
	CreatePrediction(ctx context.Context, params CreatePredictionParams) (*models.PredictionDetail, error)

	// SetMessageID records the posted Discord message for a prediction
	SetMessageID(ctx context.Context, predictionID, messageID int64) error

	// GetPredictionDetail retrieves a prediction with its options
	GetPredictionDetail(ctx context.Context, predictionID int64) (*models.PredictionDetail, error)

	// GetPredictionStats returns the vote breakdown for a prediction
	GetPredictionStats(ctx context.Context, predictionID int64) (*models.PredictionStats, error)

	// GetUserVotes returns a user's votes on unresolved predictions
	GetUserVotes(ctx context.Context, guildID, userID int64, predictionID *int64) ([]*models.UserVote, error)
}

// VotingService defines the interface for vote registration and closing
type VotingService interface {
	// CastVote registers or updates a user's vote on an open prediction.
	// A vote on an overdue OPEN prediction closes it first and returns
	// ErrVotingClosed.
	CastVote(ctx context.Context, predictionID, userID, optionID int64) (*models.Vote, error)

	// CloseIfExpired closes the prediction if it is OPEN, returning whether
	// this caller won the close race
	CloseIfExpired(ctx context.Context, predictionID int64) (bool, error)

	// CloseExpiredPredictions sweeps all overdue OPEN predictions, closing
	// each one. Failures on one prediction do not abort the sweep. Returns
	// the number of predictions closed by this sweep.
	CloseExpiredPredictions(ctx context.Context) (int, error)
}

// ResolutionService defines the interface for resolving and undoing
type ResolutionService interface {
	// Resolve names the winning option, awards points to correct voters and
	// writes the audit ledger, exactly once per prediction
	Resolve(ctx context.Context, predictionID, winnerOptionID, resolverID int64) (*models.ResolutionOutcome, error)

	// Undo reverts a resolution's point effects and returns the prediction
	// to CLOSED
	Undo(ctx context.Context, predictionID, guildID int64) (*models.UndoOutcome, error)
}

// StatsService defines the interface for points queries
type StatsService interface {
	// GetLeaderboard returns the top users by points for a guild
	GetLeaderboard(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error)

	// GetUserPoints returns a user's points row, or nil if they have none
	GetUserPoints(ctx context.Context, guildID, userID int64) (*models.UserPoints, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	PredictionRepository() PredictionRepository
	VoteRepository() VoteRepository
	ResultRepository() ResultRepository
	PointsRepository() PointsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
