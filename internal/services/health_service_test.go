package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"buildtrack/internal/shared/testutil"
)

type fixedCount int

func (c fixedCount) ClientCount() int { return int(c) }
func (c fixedCount) Count() int       { return int(c) }

func TestHealthCheck(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	t.Run("ok", func(t *testing.T) {
		hs := NewHealthService("1.2.0", newTestStore(), fixedCount(3), fixedCount(2), logger)
		status := hs.HealthCheck(context.Background())

		assert.Equal(t, "ok", status.Status)
		assert.Equal(t, "1.2.0", status.Version)
		assert.Equal(t, "ready", status.Services["store"].Status)
		assert.Equal(t, "ready", status.Services["websocket"].Status)
		assert.Equal(t, 3, status.Runtime["websocket_clients"])
		assert.Equal(t, 2, status.Runtime["active_sessions"])
		assert.Contains(t, status.Runtime, "go_version")
	})

	t.Run("degraded", func(t *testing.T) {
		s := &failingStore{Store: newTestStore(), fail: map[string]bool{"ping": true}}
		hs := NewHealthService("1.2.0", s, nil, nil, logger)
		status := hs.HealthCheck(context.Background())

		assert.Equal(t, "degraded", status.Status)
		assert.Equal(t, "not_ready", status.Services["store"].Status)
		assert.NotContains(t, status.Services, "websocket")
		assert.NotContains(t, status.Runtime, "active_sessions")
	})

	t.Run("no store", func(t *testing.T) {
		hs := NewHealthService("1.2.0", nil, nil, nil, logger)
		assert.Equal(t, "degraded", hs.HealthCheck(context.Background()).Status)
	})
}
