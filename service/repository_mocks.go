package service

import (
	"context"
	"time"

	"predbot/events"
	"predbot/models"

	"github.com/stretchr/testify/mock"
)

// MockPredictionRepository is a mock implementation of PredictionRepository
type MockPredictionRepository struct {
	mock.Mock
}

func (m *MockPredictionRepository) CreateWithOptions(ctx context.Context, prediction *models.Prediction, options []*models.PredictionOption) error {
	args := m.Called(ctx, prediction, options)
	return args.Error(0)
}

func (m *MockPredictionRepository) GetByID(ctx context.Context, id int64) (*models.Prediction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) GetDetailByID(ctx context.Context, id int64) (*models.PredictionDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PredictionDetail), args.Error(1)
}

func (m *MockPredictionRepository) SetMessageID(ctx context.Context, id int64, messageID int64) error {
	args := m.Called(ctx, id, messageID)
	return args.Error(0)
}

func (m *MockPredictionRepository) CloseIfOpen(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPredictionRepository) SetStatus(ctx context.Context, id int64, status models.PredictionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockPredictionRepository) ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]*models.Prediction, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Prediction), args.Error(1)
}

// MockVoteRepository is a mock implementation of VoteRepository
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Upsert(ctx context.Context, vote *models.Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *MockVoteRepository) GetByPrediction(ctx context.Context, predictionID int64) ([]*models.Vote, error) {
	args := m.Called(ctx, predictionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vote), args.Error(1)
}

func (m *MockVoteRepository) CountByOption(ctx context.Context, predictionID int64) ([]*models.OptionVoteCount, error) {
	args := m.Called(ctx, predictionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OptionVoteCount), args.Error(1)
}

func (m *MockVoteRepository) ListUnresolvedByUser(ctx context.Context, guildID, userID int64, predictionID *int64) ([]*models.UserVote, error) {
	args := m.Called(ctx, guildID, userID, predictionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserVote), args.Error(1)
}

// MockResultRepository is a mock implementation of ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) GetByPrediction(ctx context.Context, predictionID int64) (*models.PredictionResult, error) {
	args := m.Called(ctx, predictionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PredictionResult), args.Error(1)
}

func (m *MockResultRepository) Create(ctx context.Context, result *models.PredictionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultRepository) DeleteByPrediction(ctx context.Context, predictionID int64) error {
	args := m.Called(ctx, predictionID)
	return args.Error(0)
}

// MockPointsRepository is a mock implementation of PointsRepository
type MockPointsRepository struct {
	mock.Mock
}

func (m *MockPointsRepository) AwardPoints(ctx context.Context, guildID int64, userIDs []int64, delta int64) error {
	args := m.Called(ctx, guildID, userIDs, delta)
	return args.Error(0)
}

func (m *MockPointsRepository) ApplyDelta(ctx context.Context, guildID, userID, delta int64) error {
	args := m.Called(ctx, guildID, userID, delta)
	return args.Error(0)
}

func (m *MockPointsRepository) ClampNonNegative(ctx context.Context, guildID int64, userIDs []int64) (int64, error) {
	args := m.Called(ctx, guildID, userIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPointsRepository) GetUserPoints(ctx context.Context, guildID, userID int64) (*models.UserPoints, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPoints), args.Error(1)
}

func (m *MockPointsRepository) GetLeaderboard(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, guildID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

func (m *MockPointsRepository) AppendLedger(ctx context.Context, entries []*models.PointsLedgerEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockPointsRepository) SumLedgerByUser(ctx context.Context, guildID, predictionID int64) ([]*models.UserDelta, error) {
	args := m.Called(ctx, guildID, predictionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserDelta), args.Error(1)
}

func (m *MockPointsRepository) DeleteLedgerByPrediction(ctx context.Context, guildID, predictionID int64) error {
	args := m.Called(ctx, guildID, predictionID)
	return args.Error(0)
}

// CapturingEventPublisher records published events for assertions
type CapturingEventPublisher struct {
	Events []events.Event
}

func (p *CapturingEventPublisher) Publish(event events.Event) {
	p.Events = append(p.Events, event)
}

// EventsOfType returns the captured events matching a type
func (p *CapturingEventPublisher) EventsOfType(eventType events.EventType) []events.Event {
	var matched []events.Event
	for _, event := range p.Events {
		if event.Type() == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// injected with SetRepositories; Begin/Commit/Rollback are mocked calls.
type MockUnitOfWork struct {
	mock.Mock
	predictionRepo PredictionRepository
	voteRepo       VoteRepository
	resultRepo     ResultRepository
	pointsRepo     PointsRepository
	eventPublisher *CapturingEventPublisher
}

// SetRepositories configures the repositories returned by the getters.
// Unused repositories may be nil.
func (m *MockUnitOfWork) SetRepositories(prediction PredictionRepository, vote VoteRepository, result ResultRepository, points PointsRepository) {
	m.predictionRepo = prediction
	m.voteRepo = vote
	m.resultRepo = result
	m.pointsRepo = points
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) PredictionRepository() PredictionRepository {
	return m.predictionRepo
}

func (m *MockUnitOfWork) VoteRepository() VoteRepository {
	return m.voteRepo
}

func (m *MockUnitOfWork) ResultRepository() ResultRepository {
	return m.resultRepo
}

func (m *MockUnitOfWork) PointsRepository() PointsRepository {
	return m.pointsRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventPublisher == nil {
		m.eventPublisher = &CapturingEventPublisher{}
	}
	return m.eventPublisher
}

// PublishedEvents exposes the events captured by the unit of work's bus
func (m *MockUnitOfWork) PublishedEvents() []events.Event {
	if m.eventPublisher == nil {
		return nil
	}
	return m.eventPublisher.Events
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
