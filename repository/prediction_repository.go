package repository

import (
	"context"
	"fmt"
	"time"

	"predbot/database"
	"predbot/models"

	"github.com/jackc/pgx/v5"
)

// PredictionRepository implements prediction data access
type PredictionRepository struct {
	q queryable
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *database.DB) *PredictionRepository {
	return &PredictionRepository{q: db.Pool}
}

// newPredictionRepositoryWithTx creates a new prediction repository with a transaction
func newPredictionRepositoryWithTx(tx queryable) *PredictionRepository {
	return &PredictionRepository{q: tx}
}

// CreateWithOptions creates a prediction and its options atomically
func (r *PredictionRepository) CreateWithOptions(ctx context.Context, prediction *models.Prediction, options []*models.PredictionOption) error {
	query := `
		INSERT INTO predictions (guild_id, channel_id, message_id, title, game, status, lock_time, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		prediction.GuildID,
		prediction.ChannelID,
		prediction.MessageID,
		prediction.Title,
		prediction.Game,
		prediction.Status,
		prediction.LockTime,
		prediction.CreatedBy,
	).Scan(&prediction.ID, &prediction.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	if len(options) == 0 {
		return nil
	}

	optionQuery := `
		INSERT INTO prediction_options (prediction_id, label, option_order)
		VALUES
	`
	var args []interface{}
	for i, option := range options {
		if i > 0 {
			optionQuery += ","
		}
		paramIndex := i * 3
		optionQuery += fmt.Sprintf(" ($%d, $%d, $%d)", paramIndex+1, paramIndex+2, paramIndex+3)
		args = append(args, prediction.ID, option.Label, option.OptionOrder)
	}
	optionQuery += " RETURNING id, created_at"

	rows, err := r.q.Query(ctx, optionQuery, args...)
	if err != nil {
		return fmt.Errorf("failed to create prediction options: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(options) {
			return fmt.Errorf("unexpected extra option row returned")
		}
		if err := rows.Scan(&options[i].ID, &options[i].CreatedAt); err != nil {
			return fmt.Errorf("failed to scan created option: %w", err)
		}
		options[i].PredictionID = prediction.ID
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate created options: %w", err)
	}

	return nil
}

// GetByID retrieves a prediction by its ID
func (r *PredictionRepository) GetByID(ctx context.Context, id int64) (*models.Prediction, error) {
	query := `
		SELECT id, guild_id, channel_id, message_id, title, game, status, lock_time, created_by, created_at
		FROM predictions
		WHERE id = $1
	`

	var prediction models.Prediction
	err := r.q.QueryRow(ctx, query, id).Scan(
		&prediction.ID,
		&prediction.GuildID,
		&prediction.ChannelID,
		&prediction.MessageID,
		&prediction.Title,
		&prediction.Game,
		&prediction.Status,
		&prediction.LockTime,
		&prediction.CreatedBy,
		&prediction.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction %d: %w", id, err)
	}

	return &prediction, nil
}

// GetDetailByID retrieves a prediction with its options
func (r *PredictionRepository) GetDetailByID(ctx context.Context, id int64) (*models.PredictionDetail, error) {
	prediction, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prediction == nil {
		return nil, nil
	}

	query := `
		SELECT id, prediction_id, label, option_order, created_at
		FROM prediction_options
		WHERE prediction_id = $1
		ORDER BY option_order ASC
	`

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get options for prediction %d: %w", id, err)
	}
	defer rows.Close()

	var options []*models.PredictionOption
	for rows.Next() {
		var option models.PredictionOption
		err := rows.Scan(
			&option.ID,
			&option.PredictionID,
			&option.Label,
			&option.OptionOrder,
			&option.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, &option)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate options: %w", err)
	}

	return &models.PredictionDetail{
		Prediction: prediction,
		Options:    options,
	}, nil
}

// SetMessageID records the Discord message the prediction was posted as
func (r *PredictionRepository) SetMessageID(ctx context.Context, id int64, messageID int64) error {
	query := `
		UPDATE predictions
		SET message_id = $1
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, messageID, id)
	if err != nil {
		return fmt.Errorf("failed to set message ID for prediction %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("prediction %d not found", id)
	}

	return nil
}

// CloseIfOpen transitions the prediction from OPEN to CLOSED with a single
// conditional update. Among concurrent callers exactly one observes its own
// update affecting the row; everyone else sees zero rows affected.
func (r *PredictionRepository) CloseIfOpen(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE predictions
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query, models.PredictionStatusClosed, id, models.PredictionStatusOpen)
	if err != nil {
		return false, fmt.Errorf("failed conditional close of prediction %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

// SetStatus sets the prediction status unconditionally
func (r *PredictionRepository) SetStatus(ctx context.Context, id int64, status models.PredictionStatus) error {
	query := `
		UPDATE predictions
		SET status = $1
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to set status for prediction %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("prediction %d not found", id)
	}

	return nil
}

// ListExpiredOpen returns up to limit OPEN predictions whose lock time has
// elapsed as of now. Predictions without a lock time are never returned.
func (r *PredictionRepository) ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]*models.Prediction, error) {
	query := `
		SELECT id, guild_id, channel_id, message_id, title, game, status, lock_time, created_by, created_at
		FROM predictions
		WHERE status = $1 AND lock_time IS NOT NULL AND lock_time <= $2
		ORDER BY lock_time ASC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, models.PredictionStatusOpen, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired open predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*models.Prediction
	for rows.Next() {
		var prediction models.Prediction
		err := rows.Scan(
			&prediction.ID,
			&prediction.GuildID,
			&prediction.ChannelID,
			&prediction.MessageID,
			&prediction.Title,
			&prediction.Game,
			&prediction.Status,
			&prediction.LockTime,
			&prediction.CreatedBy,
			&prediction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, &prediction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}

	return predictions, nil
}
