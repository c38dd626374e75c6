package session

import (
	"context"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) FetchStatus(ctx context.Context) (domain.SystemStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.SystemStatus), args.Error(1)
}

func (m *MockGateway) RequestToken(ctx context.Context, role domain.Role) (domain.RoleGrant, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(domain.RoleGrant), args.Error(1)
}

func (m *MockGateway) RevokeToken(ctx context.Context, role domain.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockGateway) ConnectAll(ctx context.Context) (domain.BulkResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.BulkResult), args.Error(1)
}

func (m *MockGateway) DisconnectAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) Validate(ctx context.Context, role domain.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockGateway) ConnectionURL(role domain.Role, token string) (string, error) {
	args := m.Called(role, token)
	return args.String(0), args.Error(1)
}

// MockEventSource
type MockEventSource struct {
	mock.Mock
	ch chan domain.Event
}

func NewMockEventSource() *MockEventSource {
	return &MockEventSource{ch: make(chan domain.Event, 16)}
}

func (m *MockEventSource) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEventSource) Events() <-chan domain.Event {
	return m.ch
}

func (m *MockEventSource) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockEventSource) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAuditService
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	args := m.Called(ctx, action, target, details)
	return args.Error(0)
}

func (m *MockAuditService) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.AuditLog), args.Error(1)
}
