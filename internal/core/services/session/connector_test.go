package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/services/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *registry.SessionRegistry {
	return registry.NewSessionRegistry(domain.DefaultRoles())
}

func TestConnector_Connect_Success(t *testing.T) {
	reg := newTestRegistry()
	gw := new(MockGateway)
	c := NewConnector(reg, gw, nil, nil)

	gw.On("RequestToken", mock.Anything, domain.RoleVictim).
		Return(domain.RoleGrant{Token: "tok-1", ConnectionURL: "https://gw/#/client/abc?token=tok-1"}, nil)

	s, err := c.Connect(context.Background(), domain.RoleVictim)
	require.NoError(t, err)

	assert.True(t, s.IsActive)
	assert.True(t, s.HasValidToken)
	assert.Equal(t, "tok-1", s.Token)
	assert.Equal(t, "https://gw/#/client/abc?token=tok-1", s.ConnectionURL)
	assert.False(t, s.LastActivity.IsZero())

	// The other role is untouched.
	other, ok := reg.Get(domain.RoleAttacker)
	require.True(t, ok)
	assert.False(t, other.IsActive)

	gw.AssertExpectations(t)
}

func TestConnector_Connect_DerivesURLWhenMissing(t *testing.T) {
	reg := newTestRegistry()
	gw := new(MockGateway)
	c := NewConnector(reg, gw, nil, nil)

	gw.On("RequestToken", mock.Anything, domain.RoleAttacker).
		Return(domain.RoleGrant{Token: "tok-9"}, nil)
	gw.On("ConnectionURL", domain.RoleAttacker, "tok-9").
		Return("https://gw/#/client/atk?token=tok-9", nil)

	s, err := c.Connect(context.Background(), domain.RoleAttacker)
	require.NoError(t, err)
	assert.Equal(t, "https://gw/#/client/atk?token=tok-9", s.ConnectionURL)
}

func TestConnector_Connect_FailureRollsBack(t *testing.T) {
	reg := newTestRegistry()
	gw := new(MockGateway)
	c := NewConnector(reg, gw, nil, nil)

	gwErr := &domain.GatewayError{Role: domain.RoleVictim, StatusCode: 502, Message: "upstream down"}
	gw.On("RequestToken", mock.Anything, domain.RoleVictim).
		Return(domain.RoleGrant{}, gwErr)

	_, err := c.Connect(context.Background(), domain.RoleVictim)
	require.Error(t, err)

	var ge *domain.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, domain.RoleVictim, ge.Role)

	// Optimistic flip rolled back, no token fabricated.
	s, ok := reg.Get(domain.RoleVictim)
	require.True(t, ok)
	assert.False(t, s.IsActive)
	assert.False(t, s.HasValidToken)
	assert.Empty(t, s.Token)
}

func TestConnector_Connect_UnknownRole(t *testing.T) {
	reg := newTestRegistry()
	c := NewConnector(reg, new(MockGateway), nil, nil)

	_, err := c.Connect(context.Background(), domain.Role("observer"))
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestConnector_Connect_RejectsWhileInFlight(t *testing.T) {
	reg := newTestRegistry()
	gw := new(MockGateway)
	guard := newRoleGuard()
	c := NewConnector(reg, gw, nil, guard)

	require.True(t, guard.acquire(domain.RoleVictim))
	defer guard.release(domain.RoleVictim)

	_, err := c.Connect(context.Background(), domain.RoleVictim)
	assert.ErrorIs(t, err, domain.ErrConnectionInFlight)

	// A different role is unaffected.
	gw.On("RequestToken", mock.Anything, domain.RoleAttacker).
		Return(domain.RoleGrant{Token: "tok-2", ConnectionURL: "u"}, nil)
	_, err = c.Connect(context.Background(), domain.RoleAttacker)
	assert.NoError(t, err)
}

func TestConnector_Disconnect_ResetsEvenWhenRevokeFails(t *testing.T) {
	reg := newTestRegistry()
	gw := new(MockGateway)
	c := NewConnector(reg, gw, nil, nil)

	_, err := reg.Update(domain.RoleVictim, domain.SessionPatch{
		IsActive:      domain.Bool(true),
		HasValidToken: domain.Bool(true),
		Token:         domain.Str("tok-1"),
	})
	require.NoError(t, err)

	gw.On("RevokeToken", mock.Anything, domain.RoleVictim).
		Return(errors.New("network unreachable"))

	err = c.Disconnect(context.Background(), domain.RoleVictim)
	require.NoError(t, err)

	s, _ := reg.Get(domain.RoleVictim)
	assert.False(t, s.IsActive)
	assert.False(t, s.HasValidToken)
	assert.Empty(t, s.Token)
}

func TestConnector_Disconnect_PreservesWindowState(t *testing.T) {
	reg := newTestRegistry()
	gw := new(MockGateway)
	c := NewConnector(reg, gw, nil, nil)

	win := domain.WindowState{X: 40, Y: 80, Width: 1024, Height: 768}
	_, err := reg.Update(domain.RoleVictim, domain.SessionPatch{
		IsActive: domain.Bool(true),
		Window:   &win,
	})
	require.NoError(t, err)

	gw.On("RevokeToken", mock.Anything, domain.RoleVictim).Return(nil)

	require.NoError(t, c.Disconnect(context.Background(), domain.RoleVictim))

	s, _ := reg.Get(domain.RoleVictim)
	assert.Equal(t, win, s.Window)
}

func TestConnector_AuditsTokenLifecycle(t *testing.T) {
	reg := newTestRegistry()
	gw := new(MockGateway)
	audit := new(MockAuditService)
	c := NewConnector(reg, gw, audit, nil)

	gw.On("RequestToken", mock.Anything, domain.RoleVictim).
		Return(domain.RoleGrant{Token: "tok-1", ConnectionURL: "u"}, nil)
	gw.On("RevokeToken", mock.Anything, domain.RoleVictim).Return(nil)
	audit.On("Log", mock.Anything, domain.ActionTokenIssued, "victim", mock.Anything).Return(nil)
	audit.On("Log", mock.Anything, domain.ActionTokenRevoked, "victim", mock.Anything).Return(nil)

	_, err := c.Connect(context.Background(), domain.RoleVictim)
	require.NoError(t, err)
	require.NoError(t, c.Disconnect(context.Background(), domain.RoleVictim))

	audit.AssertExpectations(t)
}
