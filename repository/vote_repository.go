package repository

import (
	"context"
	"fmt"

	"predbot/database"
	"predbot/models"
)

// VoteRepository implements vote data access
type VoteRepository struct {
	q queryable
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *database.DB) *VoteRepository {
	return &VoteRepository{q: db.Pool}
}

// newVoteRepositoryWithTx creates a new vote repository with a transaction
func newVoteRepositoryWithTx(tx queryable) *VoteRepository {
	return &VoteRepository{q: tx}
}

// Upsert creates the vote keyed by (prediction, user) or overwrites its
// option. Last committed write wins.
func (r *VoteRepository) Upsert(ctx context.Context, vote *models.Vote) error {
	query := `
		INSERT INTO votes (prediction_id, user_id, option_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (prediction_id, user_id)
		DO UPDATE SET
			option_id = EXCLUDED.option_id,
			updated_at = CURRENT_TIMESTAMP
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		vote.PredictionID,
		vote.UserID,
		vote.OptionID,
	).Scan(&vote.CreatedAt, &vote.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}

	return nil
}

// GetByPrediction returns all votes for a prediction
func (r *VoteRepository) GetByPrediction(ctx context.Context, predictionID int64) ([]*models.Vote, error) {
	query := `
		SELECT prediction_id, user_id, option_id, created_at, updated_at
		FROM votes
		WHERE prediction_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get votes for prediction %d: %w", predictionID, err)
	}
	defer rows.Close()

	var votes []*models.Vote
	for rows.Next() {
		var vote models.Vote
		err := rows.Scan(
			&vote.PredictionID,
			&vote.UserID,
			&vote.OptionID,
			&vote.CreatedAt,
			&vote.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, &vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}

// CountByOption returns the per-option vote tally for a prediction
func (r *VoteRepository) CountByOption(ctx context.Context, predictionID int64) ([]*models.OptionVoteCount, error) {
	query := `
		SELECT option_id, COUNT(*)
		FROM votes
		WHERE prediction_id = $1
		GROUP BY option_id
	`

	rows, err := r.q.Query(ctx, query, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes for prediction %d: %w", predictionID, err)
	}
	defer rows.Close()

	var counts []*models.OptionVoteCount
	for rows.Next() {
		var count models.OptionVoteCount
		if err := rows.Scan(&count.OptionID, &count.Count); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts = append(counts, &count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vote counts: %w", err)
	}

	return counts, nil
}

// ListUnresolvedByUser returns a user's votes on OPEN or CLOSED predictions
// in a guild, newest first
func (r *VoteRepository) ListUnresolvedByUser(ctx context.Context, guildID, userID int64, predictionID *int64) ([]*models.UserVote, error) {
	query := `
		SELECT
			v.prediction_id, v.user_id, v.option_id, v.created_at, v.updated_at,
			p.id, p.guild_id, p.channel_id, p.message_id, p.title, p.game, p.status, p.lock_time, p.created_by, p.created_at,
			o.id, o.prediction_id, o.label, o.option_order, o.created_at
		FROM votes v
		JOIN predictions p ON p.id = v.prediction_id
		JOIN prediction_options o ON o.id = v.option_id
		WHERE v.user_id = $1
		  AND p.guild_id = $2
		  AND p.status IN ($3, $4)
		  AND ($5::bigint IS NULL OR v.prediction_id = $5)
		ORDER BY v.created_at DESC
	`

	rows, err := r.q.Query(ctx, query,
		userID,
		guildID,
		models.PredictionStatusOpen,
		models.PredictionStatusClosed,
		predictionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes for user %d: %w", userID, err)
	}
	defer rows.Close()

	var userVotes []*models.UserVote
	for rows.Next() {
		var vote models.Vote
		var prediction models.Prediction
		var option models.PredictionOption
		err := rows.Scan(
			&vote.PredictionID, &vote.UserID, &vote.OptionID, &vote.CreatedAt, &vote.UpdatedAt,
			&prediction.ID, &prediction.GuildID, &prediction.ChannelID, &prediction.MessageID,
			&prediction.Title, &prediction.Game, &prediction.Status, &prediction.LockTime,
			&prediction.CreatedBy, &prediction.CreatedAt,
			&option.ID, &option.PredictionID, &option.Label, &option.OptionOrder, &option.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user vote: %w", err)
		}
		userVotes = append(userVotes, &models.UserVote{
			Vote:       &vote,
			Prediction: &prediction,
			Option:     &option,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user votes: %w", err)
	}

	return userVotes, nil
}
