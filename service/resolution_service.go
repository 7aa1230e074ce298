package service

import (
	"context"
	"fmt"

	"predbot/events"
	"predbot/models"

	log "github.com/sirupsen/logrus"
)

type resolutionService struct {
	uowFactory UnitOfWorkFactory
}

// NewResolutionService creates a new resolution service
func NewResolutionService(uowFactory UnitOfWorkFactory) ResolutionService {
	return &resolutionService{uowFactory: uowFactory}
}

// Resolve names the winning option for a prediction and awards one point to
// every user who voted for it, exactly once per prediction
func (s *resolutionService) Resolve(ctx context.Context, predictionID, winnerOptionID, resolverID int64) (*models.ResolutionOutcome, error) {
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

	winnerOption := detail.FindOption(winnerOptionID)
	if winnerOption == nil {
		return nil, ErrInvalidOption
	}

	// The status field alone cannot arbitrate concurrent resolves: two
	// transactions can both read a non-RESOLVED status. The result row's
	// existence, checked and created inside this same transaction, is the
	// arbiter.
	existing, err := uow.ResultRepository().GetByPrediction(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing result: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyResolved
	}

	votes, err := uow.VoteRepository().GetByPrediction(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get votes: %w", err)
	}

	var correctUserIDs []int64
	for _, vote := range votes {
		if vote.OptionID == winnerOptionID {
			correctUserIDs = append(correctUserIDs, vote.UserID)
		}
	}

	if err := uow.PredictionRepository().SetStatus(ctx, predictionID, models.PredictionStatusResolved); err != nil {
		return nil, fmt.Errorf("failed to mark prediction resolved: %w", err)
	}

	result := &models.PredictionResult{
		PredictionID:   predictionID,
		WinnerOptionID: winnerOptionID,
		ResolvedBy:     resolverID,
	}
	if err := uow.ResultRepository().Create(ctx, result); err != nil {
		// Under READ COMMITTED two resolvers can both pass the existence
		// check above; the loser then trips the primary key here. That is
		// a lost race, not a store failure.
		if isUniqueViolation(err) {
			return nil, ErrAlreadyResolved
		}
		return nil, fmt.Errorf("failed to create prediction result: %w", err)
	}

	if len(correctUserIDs) > 0 {
		if err := uow.PointsRepository().AwardPoints(ctx, prediction.GuildID, correctUserIDs, 1); err != nil {
			return nil, fmt.Errorf("failed to award points: %w", err)
		}

		entries := make([]*models.PointsLedgerEntry, 0, len(correctUserIDs))
		for _, userID := range correctUserIDs {
			entries = append(entries, &models.PointsLedgerEntry{
				GuildID:      prediction.GuildID,
				UserID:       userID,
				PredictionID: predictionID,
				Delta:        1,
				Reason:       fmt.Sprintf("Correct prediction (%s)", winnerOption.Label),
			})
		}
		if err := uow.PointsRepository().AppendLedger(ctx, entries); err != nil {
			return nil, fmt.Errorf("failed to append points ledger: %w", err)
		}

		for _, userID := range correctUserIDs {
			uow.EventBus().Publish(events.PointsAwardedEvent{
				GuildID:      prediction.GuildID,
				UserID:       userID,
				PredictionID: predictionID,
				Delta:        1,
			})
		}
	}

	uow.EventBus().Publish(events.PredictionResolvedEvent{
		PredictionID: predictionID,
		GuildID:      prediction.GuildID,
		ChannelID:    prediction.ChannelID,
		MessageID:    prediction.MessageID,
		Title:        prediction.Title,
		WinnerLabel:  winnerOption.Label,
		TotalVotes:   len(votes),
		CorrectCount: len(correctUserIDs),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"predictionID": predictionID,
		"winnerOption": winnerOption.Label,
		"totalVotes":   len(votes),
		"correctCount": len(correctUserIDs),
	}).Info("Prediction resolved")

	return &models.ResolutionOutcome{
		Prediction:   prediction,
		WinnerOption: winnerOption,
		TotalVotes:   len(votes),
		CorrectCount: len(correctUserIDs),
	}, nil
}

// Undo reverts one resolution: it subtracts each user's summed ledger deltas
// from their totals, deletes the ledger rows and the result record, and
// returns the prediction to CLOSED so it can be resolved again
func (s *resolutionService) Undo(ctx context.Context, predictionID, guildID int64) (*models.UndoOutcome, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	prediction, err := uow.PredictionRepository().GetByID(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if prediction == nil {
		return nil, ErrPredictionNotFound
	}
	if prediction.GuildID != guildID {
		return nil, ErrWrongGuild
	}
	if !prediction.IsResolved() {
		return nil, ErrNotResolved
	}

	// Revert from the ledger, not from the reward rule: if reward magnitudes
	// ever change, the recorded deltas stay authoritative.
	deltas, err := uow.PointsRepository().SumLedgerByUser(ctx, guildID, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger deltas: %w", err)
	}

	var affectedUserIDs []int64
	var totalAbsDelta int64
	for _, d := range deltas {
		// A user whose entries sum to zero had no net award; nothing to
		// revert, and they do not count as affected.
		if d.Delta == 0 {
			continue
		}
		affectedUserIDs = append(affectedUserIDs, d.UserID)
		if err := uow.PointsRepository().ApplyDelta(ctx, guildID, d.UserID, -d.Delta); err != nil {
			return nil, fmt.Errorf("failed to revert points for user %d: %w", d.UserID, err)
		}
		if d.Delta > 0 {
			totalAbsDelta += d.Delta
		} else {
			totalAbsDelta += -d.Delta
		}
	}

	// Lossy safety clamp: a user whose total was reduced by unrelated
	// activity between resolve and undo can go negative here; flooring to
	// zero breaks exact ledger reconciliation for that user, so make the
	// deviation visible in the logs.
	if len(affectedUserIDs) > 0 {
		clamped, err := uow.PointsRepository().ClampNonNegative(ctx, guildID, affectedUserIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to clamp negative totals: %w", err)
		}
		if clamped > 0 {
			log.WithFields(log.Fields{
				"predictionID": predictionID,
				"guildID":      guildID,
				"clampedUsers": clamped,
			}).Warn("Undo floored negative totals to zero; ledger sums no longer reconcile for those users")
		}
	}

	if err := uow.PointsRepository().DeleteLedgerByPrediction(ctx, guildID, predictionID); err != nil {
		return nil, fmt.Errorf("failed to delete ledger entries: %w", err)
	}
	if err := uow.ResultRepository().DeleteByPrediction(ctx, predictionID); err != nil {
		return nil, fmt.Errorf("failed to delete prediction result: %w", err)
	}

	// Back to CLOSED, not OPEN: undo permits a corrected resolve, it does
	// not reopen voting.
	if err := uow.PredictionRepository().SetStatus(ctx, predictionID, models.PredictionStatusClosed); err != nil {
		return nil, fmt.Errorf("failed to restore prediction status: %w", err)
	}

	uow.EventBus().Publish(events.PredictionUndoneEvent{
		PredictionID:  predictionID,
		GuildID:       guildID,
		Title:         prediction.Title,
		AffectedUsers: len(affectedUserIDs),
		TotalAbsDelta: totalAbsDelta,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"predictionID":  predictionID,
		"affectedUsers": len(affectedUserIDs),
		"totalAbsDelta": totalAbsDelta,
	}).Info("Prediction resolution undone")

	return &models.UndoOutcome{
		Prediction:    prediction,
		AffectedUsers: len(affectedUserIDs),
		TotalAbsDelta: totalAbsDelta,
	}, nil
}
