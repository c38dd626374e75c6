// Package audit records security-sensitive orchestrator actions.
package audit

import (
	"context"

	"github.com/rangelab/rangectl/internal/core/domain"
	"github.com/rangelab/rangectl/internal/core/ports"
)

type clientKey struct{}

// ClientInfo identifies the browser session an action originated from.
// Actions the orchestrator takes on its own run as the system client.
type ClientInfo struct {
	ClientID string
	Actor    string
}

// WithClient attaches the originating client to the context. The web
// layer sets this per request.
func WithClient(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientKey{}, info)
}

// ClientFromContext extracts the originating client, if any.
func ClientFromContext(ctx context.Context) (ClientInfo, bool) {
	info, ok := ctx.Value(clientKey{}).(ClientInfo)
	return info, ok
}

type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records one action. The client identity comes from the context;
// background loops without one are attributed to the system.
func (s *AuditService) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	clientID := "system"
	actor := "system"
	if info, ok := ClientFromContext(ctx); ok {
		if info.ClientID != "" {
			clientID = info.ClientID
		}
		if info.Actor != "" {
			actor = info.Actor
		}
	}

	entry, err := domain.NewAuditLog(clientID, actor, action, target, details)
	if err != nil {
		return err
	}
	return s.repo.SaveAuditLog(ctx, *entry)
}

func (s *AuditService) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}
