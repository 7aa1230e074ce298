package repository

import (
	"context"
	"fmt"

	"predbot/database"
	"predbot/models"

	"github.com/jackc/pgx/v5"
)

// PointsRepository implements user points and points ledger data access
type PointsRepository struct {
	q queryable
}

// NewPointsRepository creates a new points repository
func NewPointsRepository(db *database.DB) *PointsRepository {
	return &PointsRepository{q: db.Pool}
}

// newPointsRepositoryWithTx creates a new points repository with a transaction
func newPointsRepositoryWithTx(tx queryable) *PointsRepository {
	return &PointsRepository{q: tx}
}

// AwardPoints adds delta to each user's total, creating rows with
// total=delta for users who have none
func (r *PointsRepository) AwardPoints(ctx context.Context, guildID int64, userIDs []int64, delta int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	if delta <= 0 {
		return fmt.Errorf("award delta must be positive")
	}

	query := `
		INSERT INTO user_points (guild_id, user_id, total)
		SELECT $1, unnest($2::bigint[]), $3
		ON CONFLICT (guild_id, user_id)
		DO UPDATE SET
			total = user_points.total + EXCLUDED.total,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.q.Exec(ctx, query, guildID, userIDs, delta)
	if err != nil {
		return fmt.Errorf("failed to award points in guild %d: %w", guildID, err)
	}

	return nil
}

// ApplyDelta adjusts a single user's total by delta (positive or negative).
// The total may go negative transiently inside the undo transaction; the
// caller clamps before commit.
func (r *PointsRepository) ApplyDelta(ctx context.Context, guildID, userID, delta int64) error {
	query := `
		UPDATE user_points
		SET total = total + $1, updated_at = CURRENT_TIMESTAMP
		WHERE guild_id = $2 AND user_id = $3
	`

	_, err := r.q.Exec(ctx, query, delta, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to apply delta for user %d in guild %d: %w", userID, guildID, err)
	}

	return nil
}

// ClampNonNegative floors negative totals to zero for the given users,
// returning how many rows were clamped
func (r *PointsRepository) ClampNonNegative(ctx context.Context, guildID int64, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	query := `
		UPDATE user_points
		SET total = 0, updated_at = CURRENT_TIMESTAMP
		WHERE guild_id = $1 AND user_id = ANY($2::bigint[]) AND total < 0
	`

	result, err := r.q.Exec(ctx, query, guildID, userIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to clamp totals in guild %d: %w", guildID, err)
	}

	return result.RowsAffected(), nil
}

// GetUserPoints returns a user's points row, or nil if absent
func (r *PointsRepository) GetUserPoints(ctx context.Context, guildID, userID int64) (*models.UserPoints, error) {
	query := `
		SELECT guild_id, user_id, total, created_at, updated_at
		FROM user_points
		WHERE guild_id = $1 AND user_id = $2
	`

	var points models.UserPoints
	err := r.q.QueryRow(ctx, query, guildID, userID).Scan(
		&points.GuildID,
		&points.UserID,
		&points.Total,
		&points.CreatedAt,
		&points.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get points for user %d in guild %d: %w", userID, guildID, err)
	}

	return &points, nil
}

// GetLeaderboard returns the top users by total for a guild, ties broken by
// user ID for a stable ordering
func (r *PointsRepository) GetLeaderboard(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT user_id, total
		FROM user_points
		WHERE guild_id = $1
		ORDER BY total DESC, user_id ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	rank := 0
	for rows.Next() {
		rank++
		entry := models.LeaderboardEntry{Rank: rank}
		if err := rows.Scan(&entry.UserID, &entry.Total); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}

	return entries, nil
}

// AppendLedger inserts one ledger entry per element of entries
func (r *PointsRepository) AppendLedger(ctx context.Context, entries []*models.PointsLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO points_ledger (guild_id, user_id, prediction_id, delta, reason)
		VALUES
	`
	var args []interface{}
	for i, entry := range entries {
		if i > 0 {
			query += ","
		}
		paramIndex := i * 5
		query += fmt.Sprintf(" ($%d, $%d, $%d, $%d, $%d)",
			paramIndex+1, paramIndex+2, paramIndex+3, paramIndex+4, paramIndex+5)
		args = append(args, entry.GuildID, entry.UserID, entry.PredictionID, entry.Delta, entry.Reason)
	}
	query += " RETURNING id, created_at"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to append ledger entries: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(entries) {
			return fmt.Errorf("unexpected extra ledger row returned")
		}
		if err := rows.Scan(&entries[i].ID, &entries[i].CreatedAt); err != nil {
			return fmt.Errorf("failed to scan created ledger entry: %w", err)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate created ledger entries: %w", err)
	}

	return nil
}

// SumLedgerByUser groups a prediction's ledger rows by user and sums their
// deltas
func (r *PointsRepository) SumLedgerByUser(ctx context.Context, guildID, predictionID int64) ([]*models.UserDelta, error) {
	query := `
		SELECT user_id, COALESCE(SUM(delta), 0)
		FROM points_ledger
		WHERE guild_id = $1 AND prediction_id = $2
		GROUP BY user_id
		ORDER BY user_id ASC
	`

	rows, err := r.q.Query(ctx, query, guildID, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger for prediction %d: %w", predictionID, err)
	}
	defer rows.Close()

	var deltas []*models.UserDelta
	for rows.Next() {
		var delta models.UserDelta
		if err := rows.Scan(&delta.UserID, &delta.Delta); err != nil {
			return nil, fmt.Errorf("failed to scan ledger sum: %w", err)
		}
		deltas = append(deltas, &delta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger sums: %w", err)
	}

	return deltas, nil
}

// DeleteLedgerByPrediction removes all ledger rows for a prediction
func (r *PointsRepository) DeleteLedgerByPrediction(ctx context.Context, guildID, predictionID int64) error {
	query := `DELETE FROM points_ledger WHERE guild_id = $1 AND prediction_id = $2`

	_, err := r.q.Exec(ctx, query, guildID, predictionID)
	if err != nil {
		return fmt.Errorf("failed to delete ledger for prediction %d: %w", predictionID, err)
	}

	return nil
}
