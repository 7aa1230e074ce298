package repository

import (
	"context"
	"fmt"

	"predbot/database"
	"predbot/models"

	"github.com/jackc/pgx/v5"
)

// ResultRepository implements prediction result data access
type ResultRepository struct {
	q queryable
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *database.DB) *ResultRepository {
	return &ResultRepository{q: db.Pool}
}

// newResultRepositoryWithTx creates a new result repository with a transaction
func newResultRepositoryWithTx(tx queryable) *ResultRepository {
	return &ResultRepository{q: tx}
}

// GetByPrediction returns the result for a prediction, or nil if the
// prediction has not been resolved
func (r *ResultRepository) GetByPrediction(ctx context.Context, predictionID int64) (*models.PredictionResult, error) {
	query := `
		SELECT prediction_id, winner_option_id, resolved_by, created_at
		FROM prediction_results
		WHERE prediction_id = $1
	`

	var result models.PredictionResult
	err := r.q.QueryRow(ctx, query, predictionID).Scan(
		&result.PredictionID,
		&result.WinnerOptionID,
		&result.ResolvedBy,
		&result.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result for prediction %d: %w", predictionID, err)
	}

	return &result, nil
}

// Create inserts the result row. The primary key on prediction_id makes a
// second insert for the same prediction fail, backing the exactly-once
// resolution guarantee at the storage level as well.
func (r *ResultRepository) Create(ctx context.Context, result *models.PredictionResult) error {
	query := `
		INSERT INTO prediction_results (prediction_id, winner_option_id, resolved_by)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		result.PredictionID,
		result.WinnerOptionID,
		result.ResolvedBy,
	).Scan(&result.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create result for prediction %d: %w", result.PredictionID, err)
	}

	return nil
}

// DeleteByPrediction removes the result row
func (r *ResultRepository) DeleteByPrediction(ctx context.Context, predictionID int64) error {
	query := `DELETE FROM prediction_results WHERE prediction_id = $1`

	_, err := r.q.Exec(ctx, query, predictionID)
	if err != nil {
		return fmt.Errorf("failed to delete result for prediction %d: %w", predictionID, err)
	}

	return nil
}
