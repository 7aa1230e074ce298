package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"predbot/models"
	"predbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictionRepository_CreateWithOptions(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPredictionRepository(testDB.DB)
	ctx := context.Background()

	t.Run("creates prediction and options", func(t *testing.T) {
		prediction := testutil.CreateTestPrediction(100, 200, 300, "Who wins the split?")
		options := testutil.CreateTestOptions("Fnatic", "G2", "MAD Lions")

		err := repo.CreateWithOptions(ctx, prediction, options)
		require.NoError(t, err)
		assert.NotZero(t, prediction.ID)
		assert.False(t, prediction.CreatedAt.IsZero())

		for i, option := range options {
			assert.NotZero(t, option.ID)
			assert.Equal(t, prediction.ID, option.PredictionID)
			assert.Equal(t, int16(i), option.OptionOrder)
		}
	})

	t.Run("detail round trip preserves option order", func(t *testing.T) {
		prediction := testutil.CreateTestPrediction(100, 200, 300, "First blood?")
		options := testutil.CreateTestOptions("Blue", "Red")
		require.NoError(t, repo.CreateWithOptions(ctx, prediction, options))

		detail, err := repo.GetDetailByID(ctx, prediction.ID)
		require.NoError(t, err)
		require.NotNil(t, detail)

		assert.Equal(t, "First blood?", detail.Prediction.Title)
		assert.Equal(t, models.PredictionStatusOpen, detail.Prediction.Status)
		require.Len(t, detail.Options, 2)
		assert.Equal(t, "Blue", detail.Options[0].Label)
		assert.Equal(t, "Red", detail.Options[1].Label)
	})

	t.Run("missing prediction returns nil", func(t *testing.T) {
		detail, err := repo.GetDetailByID(ctx, 99999)
		require.NoError(t, err)
		assert.Nil(t, detail)

		prediction, err := repo.GetByID(ctx, 99999)
		require.NoError(t, err)
		assert.Nil(t, prediction)
	})
}

func TestPredictionRepository_CloseIfOpen(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPredictionRepository(testDB.DB)
	ctx := context.Background()

	prediction := testutil.CreateTestPrediction(100, 200, 300, "Close race")
	require.NoError(t, repo.CreateWithOptions(ctx, prediction, testutil.CreateTestOptions("A", "B")))

	t.Run("first close wins", func(t *testing.T) {
		closed, err := repo.CloseIfOpen(ctx, prediction.ID)
		require.NoError(t, err)
		assert.True(t, closed)

		updated, err := repo.GetByID(ctx, prediction.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PredictionStatusClosed, updated.Status)
	})

	t.Run("second close is a no-op", func(t *testing.T) {
		closed, err := repo.CloseIfOpen(ctx, prediction.ID)
		require.NoError(t, err)
		assert.False(t, closed)
	})

	t.Run("unknown prediction", func(t *testing.T) {
		closed, err := repo.CloseIfOpen(ctx, 99999)
		require.NoError(t, err)
		assert.False(t, closed)
	})
}

func TestPredictionRepository_CloseIfOpen_Concurrent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPredictionRepository(testDB.DB)
	ctx := context.Background()

	prediction := testutil.CreateTestPrediction(100, 200, 300, "contested close")
	require.NoError(t, repo.CreateWithOptions(ctx, prediction, testutil.CreateTestOptions("A", "B")))

	const racers = 10

	var wg sync.WaitGroup
	results := make([]bool, racers)
	errs := make([]error, racers)

	for n := 0; n < racers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = repo.CloseIfOpen(ctx, prediction.ID)
		}(n)
	}
	wg.Wait()

	winners := 0
	for n := 0; n < racers; n++ {
		require.NoError(t, errs[n])
		if results[n] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	closed, err := repo.GetByID(ctx, prediction.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PredictionStatusClosed, closed.Status)
}

func TestPredictionRepository_ListExpiredOpen(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPredictionRepository(testDB.DB)
	ctx := context.Background()

	now := time.Now().UTC()

	expired := testutil.CreateTestPredictionWithLockTime(100, 200, 300, "expired", now.Add(-time.Minute))
	require.NoError(t, repo.CreateWithOptions(ctx, expired, testutil.CreateTestOptions("A", "B")))

	pending := testutil.CreateTestPredictionWithLockTime(100, 200, 300, "still open", now.Add(time.Hour))
	require.NoError(t, repo.CreateWithOptions(ctx, pending, testutil.CreateTestOptions("A", "B")))

	unbounded := testutil.CreateTestPrediction(100, 200, 300, "no deadline")
	require.NoError(t, repo.CreateWithOptions(ctx, unbounded, testutil.CreateTestOptions("A", "B")))

	alreadyClosed := testutil.CreateTestPredictionWithLockTime(100, 200, 300, "closed earlier", now.Add(-time.Hour))
	require.NoError(t, repo.CreateWithOptions(ctx, alreadyClosed, testutil.CreateTestOptions("A", "B")))
	require.NoError(t, repo.SetStatus(ctx, alreadyClosed.ID, models.PredictionStatusClosed))

	results, err := repo.ListExpiredOpen(ctx, now, 50)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, expired.ID, results[0].ID)

	t.Run("limit caps results", func(t *testing.T) {
		another := testutil.CreateTestPredictionWithLockTime(100, 200, 300, "also expired", now.Add(-2*time.Minute))
		require.NoError(t, repo.CreateWithOptions(ctx, another, testutil.CreateTestOptions("A", "B")))

		limited, err := repo.ListExpiredOpen(ctx, now, 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		// Ordered by lock time, oldest deadline first
		assert.Equal(t, another.ID, limited[0].ID)
	})
}

func TestPredictionRepository_SetMessageID(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewPredictionRepository(testDB.DB)
	ctx := context.Background()

	prediction := testutil.CreateTestPrediction(100, 200, 300, "posted")
	require.NoError(t, repo.CreateWithOptions(ctx, prediction, testutil.CreateTestOptions("A", "B")))

	require.NoError(t, repo.SetMessageID(ctx, prediction.ID, 987654321))

	updated, err := repo.GetByID(ctx, prediction.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.MessageID)
	assert.Equal(t, int64(987654321), *updated.MessageID)

	err = repo.SetMessageID(ctx, 99999, 1)
	assert.Error(t, err)
}
