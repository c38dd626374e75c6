package session

import (
	"context"
	"testing"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListener_UserConnected(t *testing.T) {
	reg := newTestRegistry()
	gw := new(MockGateway)
	l := NewListener(reg, gw, NewMockEventSource(), nil)

	l.Apply(context.Background(), domain.Event{
		Type: domain.EventUserConnected,
		Role: domain.RoleVictim,
	})

	s, _ := reg.Get(domain.RoleVictim)
	assert.True(t, s.HasValidToken)
	assert.False(t, s.LastActivity.IsZero())
	// A push connect does not claim local UI intent.
	assert.False(t, s.IsActive)
}

func TestListener_UserConnected_IdempotentReplay(t *testing.T) {
	reg := newTestRegistry()
	l := NewListener(reg, new(MockGateway), NewMockEventSource(), nil)

	evt := domain.Event{Type: domain.EventUserConnected, Role: domain.RoleVictim}
	l.Apply(context.Background(), evt)
	first, _ := reg.Get(domain.RoleVictim)

	l.Apply(context.Background(), evt)
	second, _ := reg.Get(domain.RoleVictim)

	assert.Equal(t, first.HasValidToken, second.HasValidToken)
	assert.Equal(t, first.IsActive, second.IsActive)
}

func TestListener_UserDisconnected_KeepsIsActive(t *testing.T) {
	reg := newTestRegistry()
	l := NewListener(reg, new(MockGateway), NewMockEventSource(), nil)

	_, err := reg.Update(domain.RoleAttacker, domain.SessionPatch{
		IsActive:      domain.Bool(true),
		HasValidToken: domain.Bool(true),
	})
	require.NoError(t, err)

	l.Apply(context.Background(), domain.Event{
		Type: domain.EventUserDisconnected,
		Role: domain.RoleAttacker,
	})

	s, _ := reg.Get(domain.RoleAttacker)
	assert.False(t, s.HasValidToken)
	// Active-but-unauthenticated is a legal state pending revalidation.
	assert.True(t, s.IsActive)
}

func TestListener_BulkConnectComplete_TouchesOnlyListedRoles(t *testing.T) {
	reg := newTestRegistry()
	l := NewListener(reg, new(MockGateway), NewMockEventSource(), nil)

	_, err := reg.Update(domain.RoleAttacker, domain.SessionPatch{
		IsActive:      domain.Bool(true),
		HasValidToken: domain.Bool(true),
		Token:         domain.Str("tok-old"),
	})
	require.NoError(t, err)

	l.Apply(context.Background(), domain.Event{
		Type: domain.EventBulkConnectComplete,
		Result: &domain.BulkResult{
			Results: map[domain.Role]domain.RoleGrant{
				domain.RoleVictim: {Token: "tok-v", ConnectionURL: "url-v"},
			},
		},
	})

	victim, _ := reg.Get(domain.RoleVictim)
	assert.True(t, victim.IsActive)
	assert.Equal(t, "tok-v", victim.Token)

	// Attacker was in neither map: untouched.
	attacker, _ := reg.Get(domain.RoleAttacker)
	assert.True(t, attacker.IsActive)
	assert.Equal(t, "tok-old", attacker.Token)
}

func TestListener_BulkDisconnectComplete(t *testing.T) {
	reg := newTestRegistry()
	l := NewListener(reg, new(MockGateway), NewMockEventSource(), nil)

	for _, role := range domain.DefaultRoles() {
		_, err := reg.Update(role, domain.SessionPatch{
			IsActive:      domain.Bool(true),
			HasValidToken: domain.Bool(true),
		})
		require.NoError(t, err)
	}

	l.Apply(context.Background(), domain.Event{Type: domain.EventBulkDisconnectComplete})

	for _, role := range domain.DefaultRoles() {
		s, _ := reg.Get(role)
		assert.False(t, s.IsActive)
		assert.False(t, s.HasValidToken)
	}
}

func TestListener_SessionReset_Reseeds(t *testing.T) {
	reg := newTestRegistry()
	gw := new(MockGateway)
	l := NewListener(reg, gw, NewMockEventSource(), nil)

	_, err := reg.Update(domain.RoleVictim, domain.SessionPatch{
		IsActive:      domain.Bool(true),
		HasValidToken: domain.Bool(true),
		Token:         domain.Str("tok-stale"),
	})
	require.NoError(t, err)

	gw.On("FetchStatus", mock.Anything).Return(domain.SystemStatus{
		Roles: map[domain.Role]domain.RoleConfig{
			domain.RoleVictim:   {Role: domain.RoleVictim, HasActiveToken: true},
			domain.RoleAttacker: {Role: domain.RoleAttacker, HasActiveToken: false},
		},
	}, nil)

	l.Apply(context.Background(), domain.Event{Type: domain.EventSessionReset})

	victim, _ := reg.Get(domain.RoleVictim)
	assert.Empty(t, victim.Token)
	assert.True(t, victim.HasValidToken, "reseeded from authoritative snapshot")
	assert.False(t, victim.IsActive, "local intent discarded by full reset")

	attacker, _ := reg.Get(domain.RoleAttacker)
	assert.False(t, attacker.HasValidToken)
}

func TestListener_MalformedAndUnknownEventsIgnored(t *testing.T) {
	reg := newTestRegistry()
	l := NewListener(reg, new(MockGateway), NewMockEventSource(), nil)

	before := reg.Snapshot()

	l.Apply(context.Background(), domain.Event{Type: domain.EventUserConnected}) // missing role
	l.Apply(context.Background(), domain.Event{Type: domain.EventUserConnected, Role: "ghost"})
	l.Apply(context.Background(), domain.Event{Type: domain.EventBulkConnectComplete}) // missing result
	l.Apply(context.Background(), domain.Event{Type: "mystery_event"})

	assert.Equal(t, before, reg.Snapshot())
}

func TestListener_Run_StopsWhenChannelCloses(t *testing.T) {
	reg := newTestRegistry()
	src := NewMockEventSource()
	l := NewListener(reg, new(MockGateway), src, nil)

	src.ch <- domain.Event{Type: domain.EventUserConnected, Role: domain.RoleVictim}
	close(src.ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(context.Background())
	}()
	<-done

	s, _ := reg.Get(domain.RoleVictim)
	assert.True(t, s.HasValidToken)
}
