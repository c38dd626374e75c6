package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelab/rangectl/internal/core/domain"
)

func newTestAdapter(t *testing.T) *SQLiteAdapter {
	t.Helper()
	a, err := NewSQLiteAdapter(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSQLiteAdapter_SaveAndList(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	entries := []domain.AuditLog{
		{ClientID: "c-1", Actor: "operator", Action: domain.ActionTokenIssued, Target: "victim", Timestamp: base},
		{ClientID: "c-1", Actor: "operator", Action: domain.ActionTokenRevoked, Target: "victim", Timestamp: base.Add(time.Second)},
		{ClientID: "c-2", Actor: "operator", Action: domain.ActionBulkConnect, Target: "all", Timestamp: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, a.SaveAuditLog(ctx, e))
	}

	logs, err := a.ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	// Newest first.
	assert.Equal(t, domain.ActionBulkConnect, logs[0].Action)
	assert.Equal(t, domain.ActionTokenRevoked, logs[1].Action)
	assert.Equal(t, domain.ActionTokenIssued, logs[2].Action)
	assert.NotZero(t, logs[0].ID)
}

func TestSQLiteAdapter_ListLimit(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.SaveAuditLog(ctx, domain.AuditLog{
			ClientID:  "c-1",
			Action:    domain.ActionHealthProbe,
			Target:    "attacker",
			Timestamp: time.Now().UTC(),
		}))
	}

	logs, err := a.ListAuditLogs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestSQLiteAdapter_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.db")

	a, err := NewSQLiteAdapter(path)
	require.NoError(t, err)
	require.NoError(t, a.SaveAuditLog(context.Background(), domain.AuditLog{
		ClientID:  "c-1",
		Action:    domain.ActionSessionReset,
		Target:    "all",
		Timestamp: time.Now().UTC(),
	}))
	require.NoError(t, a.Close())

	reopened, err := NewSQLiteAdapter(path)
	require.NoError(t, err)
	defer reopened.Close()

	logs, err := reopened.ListAuditLogs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionSessionReset, logs[0].Action)
}
