package testutil

import (
	"time"

	"predbot/models"
)

// CreateTestPrediction creates an open prediction with default values
func CreateTestPrediction(guildID, channelID, createdBy int64, title string) *models.Prediction {
	return &models.Prediction{
		GuildID:   guildID,
		ChannelID: channelID,
		Title:     title,
		Status:    models.PredictionStatusOpen,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
}

// CreateTestPredictionWithLockTime creates an open prediction that locks at lockTime
func CreateTestPredictionWithLockTime(guildID, channelID, createdBy int64, title string, lockTime time.Time) *models.Prediction {
	prediction := CreateTestPrediction(guildID, channelID, createdBy, title)
	prediction.LockTime = &lockTime
	return prediction
}

// CreateTestOptions creates option rows for a prediction from a list of labels
func CreateTestOptions(labels ...string) []*models.PredictionOption {
	options := make([]*models.PredictionOption, 0, len(labels))
	for i, label := range labels {
		options = append(options, &models.PredictionOption{
			Label:       label,
			OptionOrder: int16(i),
		})
	}
	return options
}

// CreateTestVote creates a vote with default values
func CreateTestVote(predictionID, userID, optionID int64) *models.Vote {
	return &models.Vote{
		PredictionID: predictionID,
		UserID:       userID,
		OptionID:     optionID,
	}
}

// CreateTestLedgerEntry creates a points ledger entry with default values
func CreateTestLedgerEntry(guildID, userID, predictionID, delta int64, reason string) *models.PointsLedgerEntry {
	return &models.PointsLedgerEntry{
		GuildID:      guildID,
		UserID:       userID,
		PredictionID: predictionID,
		Delta:        delta,
		Reason:       reason,
	}
}
