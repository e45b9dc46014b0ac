package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	logger, handler := NewTestLogger(t)

	logger.Debug("hub started")
	logger.With("component", "exporter").Error("export failed", slog.String("format", "pdf"))

	records := handler.Records()
	require.Len(t, records, 2)
	assert.Equal(t, slog.LevelDebug, records[0].Level)

	failed := handler.FindRecords("export failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "exporter", failed[0].Attrs["component"])
	assert.Equal(t, "pdf", failed[0].Attrs["format"])

	assert.True(t, handler.ContainsMessage("hub"))
	assert.False(t, handler.ContainsMessage("session expired"))
}

func TestDerivedLoggersShareRecords(t *testing.T) {
	logger, handler := NewTestLogger(t)
	child := logger.With("component", "sessions").WithGroup("ignored")

	child.Info("session created", "user_id", "u1")
	logger.Info("root")

	require.Len(t, handler.Records(), 2)
	rec := handler.FindRecords("session created")[0]
	assert.Equal(t, "u1", rec.Attrs["user_id"])
	assert.Equal(t, "sessions", rec.Attrs["component"])
}

func TestRecordsReturnsCopy(t *testing.T) {
	logger, handler := NewTestLogger(t)
	logger.Info("one")

	got := handler.Records()
	got[0].Message = "changed"
	assert.Equal(t, "one", handler.Records()[0].Message)
}
