package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/persistence"
)

// MockFlowRepository is a mock implementation of persistence.FlowRepository interface.
type MockFlowRepository struct {
	mock.Mock
}

func (m *MockFlowRepository) FlowByID(ctx context.Context, id string) (*models.Flow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) FlowsByBot(ctx context.Context, botID string) ([]*models.Flow, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) DefaultFlowByBot(ctx context.Context, botID string) (*models.Flow, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) SaveFlow(ctx context.Context, flow *models.Flow) error {
	args := m.Called(ctx, flow)

	return args.Error(0)
}

func (m *MockFlowRepository) DeleteFlow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockFlowRepository) SetDefaultFlow(ctx context.Context, botID, flowID string) error {
	args := m.Called(ctx, botID, flowID)

	return args.Error(0)
}

// MockBotRepository is a mock implementation of persistence.BotRepository interface.
type MockBotRepository struct {
	mock.Mock
}

func (m *MockBotRepository) BotByID(ctx context.Context, id string) (*models.Bot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Bot), args.Error(1)
}

func (m *MockBotRepository) BotByToken(ctx context.Context, token string) (*models.Bot, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Bot), args.Error(1)
}

func (m *MockBotRepository) Bots(ctx context.Context) ([]*models.Bot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Bot), args.Error(1)
}

func (m *MockBotRepository) SaveBot(ctx context.Context, bot *models.Bot) error {
	args := m.Called(ctx, bot)

	return args.Error(0)
}

func (m *MockBotRepository) DeleteBot(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockSessionRepository is a mock implementation of persistence.SessionRepository interface.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Session(ctx context.Context, botID, userID, sessionID string) (*models.Session, error) {
	args := m.Called(ctx, botID, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) PutSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)

	return args.Error(0)
}

func (m *MockSessionRepository) DeleteIdleSessions(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)

	return args.Int(0), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	FlowRepo    *MockFlowRepository
	BotRepo     *MockBotRepository
	SessionRepo *MockSessionRepository
}

// NewMockPersistence creates a persistence mock with all repositories wired.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		FlowRepo:    &MockFlowRepository{},
		BotRepo:     &MockBotRepository{},
		SessionRepo: &MockSessionRepository{},
	}
}

func (m *MockPersistence) Flows() persistence.FlowRepository {
	return m.FlowRepo
}

func (m *MockPersistence) Bots() persistence.BotRepository {
	return m.BotRepo
}

func (m *MockPersistence) Sessions() persistence.SessionRepository {
	return m.SessionRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
