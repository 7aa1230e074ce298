package service

import (
	"context"
	"fmt"

	"predbot/models"
)

type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{uowFactory: uowFactory}
}

// GetLeaderboard returns the top users by points for a guild
func (s *statsService) GetLeaderboard(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.PointsRepository().GetLeaderboard(ctx, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	return entries, nil
}

// GetUserPoints returns a user's points row, or nil if they have none
func (s *statsService) GetUserPoints(ctx context.Context, guildID, userID int64) (*models.UserPoints, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	points, err := uow.PointsRepository().GetUserPoints(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user points: %w", err)
	}

	return points, nil
}
