package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelab/rangectl/internal/core/domain"
)

func sampleLogs(n int) []domain.AuditLog {
	logs := make([]domain.AuditLog, 0, n)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	actions := []domain.AuditAction{
		domain.ActionTokenIssued,
		domain.ActionTokenRevoked,
		domain.ActionHealthProbe,
	}
	for i := 0; i < n; i++ {
		logs = append(logs, domain.AuditLog{
			ID:        uint(i + 1),
			ClientID:  "client-1",
			Actor:     "operator",
			Action:    actions[i%len(actions)],
			Target:    "victim",
			Details:   "token issued for victim",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return logs
}

func TestExportAuditTrail(t *testing.T) {
	exporter := NewPDFExporter()

	data, err := exporter.ExportAuditTrail(sampleLogs(5))
	require.NoError(t, err)

	assert.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestExportAuditTrail_Empty(t *testing.T) {
	exporter := NewPDFExporter()

	data, err := exporter.ExportAuditTrail(nil)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestExportAuditTrail_MultiPage(t *testing.T) {
	exporter := NewPDFExporter()

	// Enough rows to overflow the first page.
	data, err := exporter.ExportAuditTrail(sampleLogs(80))
	require.NoError(t, err)
	assert.Greater(t, len(data), 4000)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 18))
	assert.Equal(t, "a-very-long-tar...", truncate("a-very-long-target-name", 18))
}
