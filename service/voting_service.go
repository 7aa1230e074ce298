package service

import (
	"context"
	"fmt"
	"time"

	"predbot/events"
	"predbot/models"

	log "github.com/sirupsen/logrus"
)

// autoCloseBatchSize bounds how many overdue predictions one sweep handles.
const autoCloseBatchSize = 50

type votingService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewVotingService creates a new voting service
func NewVotingService(uowFactory UnitOfWorkFactory) VotingService {
	return &votingService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// CastVote registers or updates a user's vote on an open prediction
func (s *votingService) CastVote(ctx context.Context, predictionID, userID, optionID int64) (*models.Vote, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	detail, err := uow.PredictionRepository().GetDetailByID(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if detail == nil {
		return nil, ErrPredictionNotFound
	}
	prediction := detail.Prediction

	if !prediction.IsOpen() {
		return nil, ErrVotingClosed
	}

	now := s.now()
	if prediction.IsLockExpired(now) {
		// The deadline has passed but the scheduler has not caught this
		// prediction yet. Close it here so the first vote attempt that
		// observes an overdue prediction flips it to CLOSED, then reject
		// the vote.
		closedByMe, err := s.closeInUow(ctx, uow, prediction)
		if err != nil {
			return nil, fmt.Errorf("failed to close expired prediction: %w", err)
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit close: %w", err)
		}
		if closedByMe {
			log.WithFields(log.Fields{
				"predictionID": predictionID,
				"lockTime":     prediction.LockTime,
			}).Info("Closed overdue prediction on vote attempt")
		}
		return nil, ErrVotingClosed
	}

	if detail.FindOption(optionID) == nil {
		return nil, ErrInvalidOption
	}

	vote := &models.Vote{
		PredictionID: predictionID,
		UserID:       userID,
		OptionID:     optionID,
	}
	if err := uow.VoteRepository().Upsert(ctx, vote); err != nil {
		return nil, fmt.Errorf("failed to upsert vote: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return vote, nil
}

// CloseIfExpired closes the prediction if it is OPEN, returning whether this
// caller won the close race
func (s *votingService) CloseIfExpired(ctx context.Context, predictionID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	prediction, err := uow.PredictionRepository().GetByID(ctx, predictionID)
	if err != nil {
		return false, fmt.Errorf("failed to get prediction: %w", err)
	}
	if prediction == nil {
		return false, ErrPredictionNotFound
	}
	if !prediction.IsOpen() {
		return false, nil
	}

	closedByMe, err := s.closeInUow(ctx, uow, prediction)
	if err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return closedByMe, nil
}

// closeInUow performs the conditional OPEN -> CLOSED transition inside an
// already-started unit of work. At most one concurrent caller per prediction
// observes true; only that caller publishes the closed event, so the one-time
// side effects (announcement, disabling vote buttons) happen exactly once.
func (s *votingService) closeInUow(ctx context.Context, uow UnitOfWork, prediction *models.Prediction) (bool, error) {
	closedByMe, err := uow.PredictionRepository().CloseIfOpen(ctx, prediction.ID)
	if err != nil {
		return false, fmt.Errorf("failed conditional close: %w", err)
	}
	if !closedByMe {
		return false, nil
	}

	uow.EventBus().Publish(events.PredictionClosedEvent{
		PredictionID: prediction.ID,
		GuildID:      prediction.GuildID,
		ChannelID:    prediction.ChannelID,
		MessageID:    prediction.MessageID,
		Title:        prediction.Title,
		AutoClosed:   true,
	})
	return true, nil
}

// CloseExpiredPredictions sweeps all overdue OPEN predictions, closing each
// one. A failure on one prediction is logged and does not abort the sweep.
func (s *votingService) CloseExpiredPredictions(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	candidates, err := uow.PredictionRepository().ListExpiredOpen(ctx, s.now(), autoCloseBatchSize)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list expired predictions: %w", err)
	}

	closed := 0
	for _, prediction := range candidates {
		closedByMe, err := s.CloseIfExpired(ctx, prediction.ID)
		if err != nil {
			log.WithFields(log.Fields{
				"predictionID": prediction.ID,
				"guildID":      prediction.GuildID,
			}).Errorf("Error auto-closing prediction: %v", err)
			continue
		}
		if closedByMe {
			closed++
		}
	}

	return closed, nil
}
