package service

import (
	"context"
	"fmt"
	"testing"

	"predbot/events"
	"predbot/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolutionService_Resolve_AwardsCorrectVoters(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockVoteRepo := new(MockVoteRepository)
	mockResultRepo := new(MockResultRepository)
	mockPointsRepo := new(MockPointsRepository)

	mockUoW.SetRepositories(mockPredictionRepo, mockVoteRepo, mockResultRepo, mockPointsRepo)

	service := NewResolutionService(mockFactory)

	detail := testPredictionDetail(1, models.PredictionStatusClosed, nil)
	votes := []*models.Vote{
		{PredictionID: 1, UserID: 41, OptionID: 10},
		{PredictionID: 1, UserID: 42, OptionID: 11},
		{PredictionID: 1, UserID: 43, OptionID: 10},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPredictionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)
	mockResultRepo.On("GetByPrediction", ctx, int64(1)).Return(nil, nil)
	mockVoteRepo.On("GetByPrediction", ctx, int64(1)).Return(votes, nil)
	mockPredictionRepo.On("SetStatus", ctx, int64(1), models.PredictionStatusResolved).Return(nil)
	mockResultRepo.On("Create", ctx, mock.MatchedBy(func(r *models.PredictionResult) bool {
		return r.PredictionID == 1 && r.WinnerOptionID == 10 && r.ResolvedBy == 999
	})).Return(nil)
	mockPointsRepo.On("AwardPoints", ctx, int64(100), []int64{41, 43}, int64(1)).Return(nil)
	mockPointsRepo.On("AppendLedger", ctx, mock.MatchedBy(func(entries []*models.PointsLedgerEntry) bool {
		if len(entries) != 2 {
			return false
		}
		for _, e := range entries {
			if e.Delta != 1 || e.PredictionID != 1 || e.Reason != "Correct prediction (Fnatic)" {
				return false
			}
		}
		return entries[0].UserID == 41 && entries[1].UserID == 43
	})).Return(nil)

	outcome, err := service.Resolve(ctx, 1, 10, 999)

	require.NoError(t, err)
	assert.Equal(t, 3, outcome.TotalVotes)
	assert.Equal(t, 2, outcome.CorrectCount)
	assert.Equal(t, "Fnatic", outcome.WinnerOption.Label)

	published := mockUoW.PublishedEvents()
	awarded := 0
	resolved := 0
	for _, event := range published {
		switch e := event.(type) {
		case events.PointsAwardedEvent:
			awarded++
			assert.Equal(t, int64(1), e.Delta)
		case events.PredictionResolvedEvent:
			resolved++
			assert.Equal(t, "Fnatic", e.WinnerLabel)
			assert.Equal(t, 2, e.CorrectCount)
		}
	}
	assert.Equal(t, 2, awarded)
	assert.Equal(t, 1, resolved)

	mockPredictionRepo.AssertExpectations(t)
	mockResultRepo.AssertExpectations(t)
	mockPointsRepo.AssertExpectations(t)
}

func TestResolutionService_Resolve_NoCorrectVoters(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockVoteRepo := new(MockVoteRepository)
	mockResultRepo := new(MockResultRepository)
	mockPointsRepo := new(MockPointsRepository)

	mockUoW.SetRepositories(mockPredictionRepo, mockVoteRepo, mockResultRepo, mockPointsRepo)

	service := NewResolutionService(mockFactory)

	detail := testPredictionDetail(1, models.PredictionStatusClosed, nil)
	votes := []*models.Vote{
		{PredictionID: 1, UserID: 42, OptionID: 11},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPredictionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)
	mockResultRepo.On("GetByPrediction", ctx, int64(1)).Return(nil, nil)
	mockVoteRepo.On("GetByPrediction", ctx, int64(1)).Return(votes, nil)
	mockPredictionRepo.On("SetStatus", ctx, int64(1), models.PredictionStatusResolved).Return(nil)
	mockResultRepo.On("Create", ctx, mock.Anything).Return(nil)

	outcome, err := service.Resolve(ctx, 1, 10, 999)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.TotalVotes)
	assert.Equal(t, 0, outcome.CorrectCount)

	// Resolution still completes and records the result; nobody is paid
	mockPointsRepo.AssertNotCalled(t, "AwardPoints")
	mockPointsRepo.AssertNotCalled(t, "AppendLedger")
}

func TestResolutionService_Resolve_FromOpen(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockVoteRepo := new(MockVoteRepository)
	mockResultRepo := new(MockResultRepository)
	mockPointsRepo := new(MockPointsRepository)

	mockUoW.SetRepositories(mockPredictionRepo, mockVoteRepo, mockResultRepo, mockPointsRepo)

	service := NewResolutionService(mockFactory)

	// Resolving skips the CLOSED stop when the outcome is already known
	detail := testPredictionDetail(1, models.PredictionStatusOpen, nil)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPredictionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)
	mockResultRepo.On("GetByPrediction", ctx, int64(1)).Return(nil, nil)
	mockVoteRepo.On("GetByPrediction", ctx, int64(1)).Return([]*models.Vote{}, nil)
	mockPredictionRepo.On("SetStatus", ctx, int64(1), models.PredictionStatusResolved).Return(nil)
	mockResultRepo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := service.Resolve(ctx, 1, 10, 999)
	assert.NoError(t, err)
}

func TestResolutionService_Resolve_AlreadyResolved(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockResultRepo := new(MockResultRepository)
	mockPointsRepo := new(MockPointsRepository)

	mockUoW.SetRepositories(mockPredictionRepo, nil, mockResultRepo, mockPointsRepo)

	service := NewResolutionService(mockFactory)

	detail := testPredictionDetail(1, models.PredictionStatusResolved, nil)
	existing := &models.PredictionResult{PredictionID: 1, WinnerOptionID: 11, ResolvedBy: 500}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPredictionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)
	mockResultRepo.On("GetByPrediction", ctx, int64(1)).Return(existing, nil)

	outcome, err := service.Resolve(ctx, 1, 10, 999)

	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Nil(t, outcome)

	// A duplicate resolve must not double-pay
	mockPointsRepo.AssertNotCalled(t, "AwardPoints")
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestResolutionService_Resolve_LostInsertRace(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockVoteRepo := new(MockVoteRepository)
	mockResultRepo := new(MockResultRepository)
	mockPointsRepo := new(MockPointsRepository)

	mockUoW.SetRepositories(mockPredictionRepo, mockVoteRepo, mockResultRepo, mockPointsRepo)

	service := NewResolutionService(mockFactory)

	detail := testPredictionDetail(1, models.PredictionStatusClosed, nil)
	votes := []*models.Vote{
		{PredictionID: 1, UserID: 41, OptionID: 10},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// Both resolvers read "no result" before either commits; this one loses
	// the insert race and hits the prediction_results primary key
	mockPredictionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)
	mockResultRepo.On("GetByPrediction", ctx, int64(1)).Return(nil, nil)
	mockVoteRepo.On("GetByPrediction", ctx, int64(1)).Return(votes, nil)
	mockPredictionRepo.On("SetStatus", ctx, int64(1), models.PredictionStatusResolved).Return(nil)
	mockResultRepo.On("Create", ctx, mock.Anything).Return(
		fmt.Errorf("failed to create result for prediction 1: %w",
			&pgconn.PgError{Code: "23505", ConstraintName: "prediction_results_pkey"}))

	outcome, err := service.Resolve(ctx, 1, 10, 999)

	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Nil(t, outcome)

	mockPointsRepo.AssertNotCalled(t, "AwardPoints")
	mockPointsRepo.AssertNotCalled(t, "AppendLedger")
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestResolutionService_Resolve_InvalidOption(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)

	mockUoW.SetRepositories(mockPredictionRepo, nil, nil, nil)

	service := NewResolutionService(mockFactory)

	detail := testPredictionDetail(1, models.PredictionStatusClosed, nil)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPredictionRepo.On("GetDetailByID", ctx, int64(1)).Return(detail, nil)

	outcome, err := service.Resolve(ctx, 1, 999, 999)

	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.Nil(t, outcome)
}

func TestResolutionService_Resolve_NotFound(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)

	mockUoW.SetRepositories(mockPredictionRepo, nil, nil, nil)

	service := NewResolutionService(mockFactory)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPredictionRepo.On("GetDetailByID", ctx, int64(77)).Return(nil, nil)

	_, err := service.Resolve(ctx, 77, 10, 999)
	assert.ErrorIs(t, err, ErrPredictionNotFound)
}

func TestResolutionService_Undo_RevertsLedgerDeltas(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockResultRepo := new(MockResultRepository)
	mockPointsRepo := new(MockPointsRepository)

	mockUoW.SetRepositories(mockPredictionRepo, nil, mockResultRepo, mockPointsRepo)

	service := NewResolutionService(mockFactory)

	prediction := testPredictionDetail(1, models.PredictionStatusResolved, nil).Prediction
	deltas := []*models.UserDelta{
		{UserID: 41, Delta: 1},
		{UserID: 43, Delta: 1},
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPredictionRepo.On("GetByID", ctx, int64(1)).Return(prediction, nil)
	mockPointsRepo.On("SumLedgerByUser", ctx, int64(100), int64(1)).Return(deltas, nil)
	mockPointsRepo.On("ApplyDelta", ctx, int64(100), int64(41), int64(-1)).Return(nil)
	mockPointsRepo.On("ApplyDelta", ctx, int64(100), int64(43), int64(-1)).Return(nil)
	mockPointsRepo.On("ClampNonNegative", ctx, int64(100), []int64{41, 43}).Return(int64(0), nil)
	mockPointsRepo.On("DeleteLedgerByPrediction", ctx, int64(100), int64(1)).Return(nil)
	mockResultRepo.On("DeleteByPrediction", ctx, int64(1)).Return(nil)
	mockPredictionRepo.On("SetStatus", ctx, int64(1), models.PredictionStatusClosed).Return(nil)

	outcome, err := service.Undo(ctx, 1, 100)

	require.NoError(t, err)
	assert.Equal(t, 2, outcome.AffectedUsers)
	assert.Equal(t, int64(2), outcome.TotalAbsDelta)

	published := mockUoW.PublishedEvents()
	if assert.Len(t, published, 1) {
		undone, ok := published[0].(events.PredictionUndoneEvent)
		require.True(t, ok)
		assert.Equal(t, 2, undone.AffectedUsers)
		assert.Equal(t, int64(2), undone.TotalAbsDelta)
	}

	mockPointsRepo.AssertExpectations(t)
	mockResultRepo.AssertExpectations(t)
	mockPredictionRepo.AssertExpectations(t)
}

func TestResolutionService_Undo_SkipsZeroDeltaUsers(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockResultRepo := new(MockResultRepository)
	mockPointsRepo := new(MockPointsRepository)

	mockUoW.SetRepositories(mockPredictionRepo, nil, mockResultRepo, mockPointsRepo)

	service := NewResolutionService(mockFactory)

	prediction := testPredictionDetail(1, models.PredictionStatusResolved, nil).Prediction
	deltas := []*models.UserDelta{
		{UserID: 41, Delta: 1},
		{UserID: 42, Delta: 0}, // net zero, nothing to revert
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPredictionRepo.On("GetByID", ctx, int64(1)).Return(prediction, nil)
	mockPointsRepo.On("SumLedgerByUser", ctx, int64(100), int64(1)).Return(deltas, nil)
	mockPointsRepo.On("ApplyDelta", ctx, int64(100), int64(41), int64(-1)).Return(nil)
	mockPointsRepo.On("ClampNonNegative", ctx, int64(100), []int64{41}).Return(int64(0), nil)
	mockPointsRepo.On("DeleteLedgerByPrediction", ctx, int64(100), int64(1)).Return(nil)
	mockResultRepo.On("DeleteByPrediction", ctx, int64(1)).Return(nil)
	mockPredictionRepo.On("SetStatus", ctx, int64(1), models.PredictionStatusClosed).Return(nil)

	outcome, err := service.Undo(ctx, 1, 100)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.AffectedUsers)
	assert.Equal(t, int64(1), outcome.TotalAbsDelta)
	mockPointsRepo.AssertNotCalled(t, "ApplyDelta", ctx, int64(100), int64(42), mock.Anything)
}

func TestResolutionService_Undo_ClampsNegativeTotals(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockPredictionRepo := new(MockPredictionRepository)
	mockResultRepo := new(MockResultRepository)
	mockPointsRepo := new(MockPointsRepository)

	mockUoW.SetRepositories(mockPredictionRepo, nil, mockResultRepo, mockPointsRepo)

	service := NewResolutionService(mockFactory)

	prediction := testPredictionDetail(1, models.PredictionStatusResolved, nil).Prediction
	deltas := []*models.UserDelta{{UserID: 41, Delta: 1}}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPredictionRepo.On("GetByID", ctx, int64(1)).Return(prediction, nil)
	mockPointsRepo.On("SumLedgerByUser", ctx, int64(100), int64(1)).Return(deltas, nil)
	mockPointsRepo.On("ApplyDelta", ctx, int64(100), int64(41), int64(-1)).Return(nil)
	// The user's total already went below the award between resolve and undo
	mockPointsRepo.On("ClampNonNegative", ctx, int64(100), []int64{41}).Return(int64(1), nil)
	mockPointsRepo.On("DeleteLedgerByPrediction", ctx, int64(100), int64(1)).Return(nil)
	mockResultRepo.On("DeleteByPrediction", ctx, int64(1)).Return(nil)
	mockPredictionRepo.On("SetStatus", ctx, int64(1), models.PredictionStatusClosed).Return(nil)

	outcome, err := service.Undo(ctx, 1, 100)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.AffectedUsers)
	mockPointsRepo.AssertExpectations(t)
}

func TestResolutionService_Undo_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockPredictionRepo := new(MockPredictionRepository)

		mockUoW.SetRepositories(mockPredictionRepo, nil, nil, nil)
		service := NewResolutionService(mockFactory)

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockPredictionRepo.On("GetByID", ctx, int64(5)).Return(nil, nil)

		_, err := service.Undo(ctx, 5, 100)
		assert.ErrorIs(t, err, ErrPredictionNotFound)
	})

	t.Run("wrong guild", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockPredictionRepo := new(MockPredictionRepository)

		mockUoW.SetRepositories(mockPredictionRepo, nil, nil, nil)
		service := NewResolutionService(mockFactory)

		prediction := testPredictionDetail(1, models.PredictionStatusResolved, nil).Prediction

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockPredictionRepo.On("GetByID", ctx, int64(1)).Return(prediction, nil)

		_, err := service.Undo(ctx, 1, 555)
		assert.ErrorIs(t, err, ErrWrongGuild)
	})

	t.Run("not resolved", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockPredictionRepo := new(MockPredictionRepository)
		mockPointsRepo := new(MockPointsRepository)

		mockUoW.SetRepositories(mockPredictionRepo, nil, nil, mockPointsRepo)
		service := NewResolutionService(mockFactory)

		prediction := testPredictionDetail(1, models.PredictionStatusClosed, nil).Prediction

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockPredictionRepo.On("GetByID", ctx, int64(1)).Return(prediction, nil)

		_, err := service.Undo(ctx, 1, 100)
		assert.ErrorIs(t, err, ErrNotResolved)
		mockPointsRepo.AssertNotCalled(t, "SumLedgerByUser")
	})
}
