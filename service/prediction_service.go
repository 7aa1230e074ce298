package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"predbot/models"
)

const maxPredictionOptions = 10

type predictionService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewPredictionService creates a new prediction service
func NewPredictionService(uowFactory UnitOfWorkFactory) PredictionService {
	return &predictionService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// CreatePrediction creates a prediction with at least 2 distinct options
func (s *predictionService) CreatePrediction(ctx context.Context, params CreatePredictionParams) (*models.PredictionDetail, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, fmt.Errorf("title cannot be empty")
	}

	labels := make([]string, 0, len(params.Options))
	seen := make(map[string]bool)
	for _, raw := range params.Options {
		label := strings.TrimSpace(raw)
		if label == "" {
			continue
		}
		key := strings.ToUpper(label)
		if seen[key] {
			return nil, fmt.Errorf("duplicate option label: %s", label)
		}
		seen[key] = true
		labels = append(labels, label)
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("must provide at least 2 distinct options")
	}
	if len(labels) > maxPredictionOptions {
		return nil, fmt.Errorf("at most %d options allowed", maxPredictionOptions)
	}

	if params.LockTime != nil && !params.LockTime.After(s.now()) {
		return nil, fmt.Errorf("lock time must be in the future")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	prediction := &models.Prediction{
		GuildID:   params.GuildID,
		ChannelID: params.ChannelID,
		Title:     strings.TrimSpace(params.Title),
		Game:      params.Game,
		Status:    models.PredictionStatusOpen,
		LockTime:  params.LockTime,
		CreatedBy: params.CreatorID,
	}

	options := make([]*models.PredictionOption, 0, len(labels))
	for i, label := range labels {
		options = append(options, &models.PredictionOption{
			Label:       label,
			OptionOrder: int16(i),
		})
	}

	if err := uow.PredictionRepository().CreateWithOptions(ctx, prediction, options); err != nil {
		return nil, fmt.Errorf("failed to create prediction with options: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.PredictionDetail{
		Prediction: prediction,
		Options:    options,
	}, nil
}

// SetMessageID records the posted Discord message for a prediction
func (s *predictionService) SetMessageID(ctx context.Context, predictionID, messageID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PredictionRepository().SetMessageID(ctx, predictionID, messageID); err != nil {
		return fmt.Errorf("failed to set message ID: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPredictionDetail retrieves a prediction with its options
func (s *predictionService) GetPredictionDetail(ctx context.Context, predictionID int64) (*models.PredictionDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	detail, err := uow.PredictionRepository().GetDetailByID(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction detail: %w", err)
	}
	if detail == nil {
		return nil, ErrPredictionNotFound
	}

	return detail, nil
}

// GetPredictionStats returns the vote breakdown for a prediction
func (s *predictionService) GetPredictionStats(ctx context.Context, predictionID int64) (*models.PredictionStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	detail, err := uow.PredictionRepository().GetDetailByID(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction detail: %w", err)
	}
	if detail == nil {
		return nil, ErrPredictionNotFound
	}

	counts, err := uow.VoteRepository().CountByOption(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	stats := &models.PredictionStats{
		Prediction: detail.Prediction,
		Options:    detail.Options,
		Counts:     make(map[int64]int, len(counts)),
	}
	for _, c := range counts {
		stats.Counts[c.OptionID] = c.Count
		stats.TotalVotes += c.Count
	}

	return stats, nil
}

// GetUserVotes returns a user's votes on unresolved predictions
func (s *predictionService) GetUserVotes(ctx context.Context, guildID, userID int64, predictionID *int64) ([]*models.UserVote, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	votes, err := uow.VoteRepository().ListUnresolvedByUser(ctx, guildID, userID, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user votes: %w", err)
	}

	return votes, nil
}
