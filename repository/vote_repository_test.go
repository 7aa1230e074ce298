package repository

import (
	"context"
	"testing"

	"predbot/models"
	"predbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteRepository_Upsert(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	predictionRepo := NewPredictionRepository(testDB.DB)
	voteRepo := NewVoteRepository(testDB.DB)
	ctx := context.Background()

	prediction := testutil.CreateTestPrediction(100, 200, 300, "Who wins?")
	options := testutil.CreateTestOptions("Fnatic", "G2")
	require.NoError(t, predictionRepo.CreateWithOptions(ctx, prediction, options))

	t.Run("first vote inserts", func(t *testing.T) {
		vote := testutil.CreateTestVote(prediction.ID, 41, options[0].ID)
		require.NoError(t, voteRepo.Upsert(ctx, vote))
		assert.False(t, vote.CreatedAt.IsZero())

		votes, err := voteRepo.GetByPrediction(ctx, prediction.ID)
		require.NoError(t, err)
		require.Len(t, votes, 1)
		assert.Equal(t, options[0].ID, votes[0].OptionID)
	})

	t.Run("revote overwrites the option", func(t *testing.T) {
		revote := testutil.CreateTestVote(prediction.ID, 41, options[1].ID)
		require.NoError(t, voteRepo.Upsert(ctx, revote))

		votes, err := voteRepo.GetByPrediction(ctx, prediction.ID)
		require.NoError(t, err)
		require.Len(t, votes, 1)
		assert.Equal(t, options[1].ID, votes[0].OptionID)
	})

	t.Run("distinct users vote independently", func(t *testing.T) {
		require.NoError(t, voteRepo.Upsert(ctx, testutil.CreateTestVote(prediction.ID, 43, options[0].ID)))

		votes, err := voteRepo.GetByPrediction(ctx, prediction.ID)
		require.NoError(t, err)
		assert.Len(t, votes, 2)
	})
}

func TestVoteRepository_CountByOption(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	predictionRepo := NewPredictionRepository(testDB.DB)
	voteRepo := NewVoteRepository(testDB.DB)
	ctx := context.Background()

	prediction := testutil.CreateTestPrediction(100, 200, 300, "Tally")
	options := testutil.CreateTestOptions("A", "B", "C")
	require.NoError(t, predictionRepo.CreateWithOptions(ctx, prediction, options))

	require.NoError(t, voteRepo.Upsert(ctx, testutil.CreateTestVote(prediction.ID, 41, options[0].ID)))
	require.NoError(t, voteRepo.Upsert(ctx, testutil.CreateTestVote(prediction.ID, 43, options[0].ID)))
	require.NoError(t, voteRepo.Upsert(ctx, testutil.CreateTestVote(prediction.ID, 45, options[1].ID)))

	counts, err := voteRepo.CountByOption(ctx, prediction.ID)
	require.NoError(t, err)

	tally := make(map[int64]int)
	for _, c := range counts {
		tally[c.OptionID] = c.Count
	}
	assert.Equal(t, 2, tally[options[0].ID])
	assert.Equal(t, 1, tally[options[1].ID])
	// Options nobody voted for produce no row
	assert.NotContains(t, tally, options[2].ID)
}

func TestVoteRepository_ListUnresolvedByUser(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	predictionRepo := NewPredictionRepository(testDB.DB)
	voteRepo := NewVoteRepository(testDB.DB)
	ctx := context.Background()

	open := testutil.CreateTestPrediction(100, 200, 300, "open one")
	openOptions := testutil.CreateTestOptions("A", "B")
	require.NoError(t, predictionRepo.CreateWithOptions(ctx, open, openOptions))

	resolved := testutil.CreateTestPrediction(100, 200, 300, "resolved one")
	resolvedOptions := testutil.CreateTestOptions("A", "B")
	require.NoError(t, predictionRepo.CreateWithOptions(ctx, resolved, resolvedOptions))
	require.NoError(t, predictionRepo.SetStatus(ctx, resolved.ID, models.PredictionStatusResolved))

	otherGuild := testutil.CreateTestPrediction(999, 200, 300, "other guild")
	otherOptions := testutil.CreateTestOptions("A", "B")
	require.NoError(t, predictionRepo.CreateWithOptions(ctx, otherGuild, otherOptions))

	require.NoError(t, voteRepo.Upsert(ctx, testutil.CreateTestVote(open.ID, 41, openOptions[0].ID)))
	require.NoError(t, voteRepo.Upsert(ctx, testutil.CreateTestVote(resolved.ID, 41, resolvedOptions[0].ID)))
	require.NoError(t, voteRepo.Upsert(ctx, testutil.CreateTestVote(otherGuild.ID, 41, otherOptions[0].ID)))

	t.Run("filters resolved predictions and other guilds", func(t *testing.T) {
		votes, err := voteRepo.ListUnresolvedByUser(ctx, 100, 41, nil)
		require.NoError(t, err)
		require.Len(t, votes, 1)
		assert.Equal(t, open.ID, votes[0].Prediction.ID)
		assert.Equal(t, "A", votes[0].Option.Label)
	})

	t.Run("narrows to a single prediction", func(t *testing.T) {
		votes, err := voteRepo.ListUnresolvedByUser(ctx, 100, 41, &open.ID)
		require.NoError(t, err)
		require.Len(t, votes, 1)

		missing, err := voteRepo.ListUnresolvedByUser(ctx, 100, 41, &resolved.ID)
		require.NoError(t, err)
		assert.Empty(t, missing)
	})

	t.Run("user with no votes", func(t *testing.T) {
		votes, err := voteRepo.ListUnresolvedByUser(ctx, 100, 999, nil)
		require.NoError(t, err)
		assert.Empty(t, votes)
	})
}
