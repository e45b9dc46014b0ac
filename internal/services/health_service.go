package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// SessionCounter reports live sessions.
type SessionCounter interface {
	Count() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     Pinger
	hub       ClientCounter
	sessions  SessionCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. hub and sessions may be nil.
func NewHealthService(version string, store Pinger, hub ClientCounter, sessions SessionCounter, logger *slog.Logger) *HealthService {
	return &HealthService{
		version:   version,
		store:     store,
		hub:       hub,
		sessions:  sessions,
		startTime: time.Now(),
		logger:    serviceLogger(logger, "health_service"),
	}
}

// HealthCheck reports liveness and the state of each dependency. The status
// is "degraded" when the store cannot be reached.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
		Services: map[string]ServiceHealth{},
	}

	status.Services["store"] = hs.checkStore(ctx)
	if hs.hub != nil {
		status.Services["websocket"] = ServiceHealth{Status: "ready"}
		status.Runtime["websocket_clients"] = hs.hub.ClientCount()
	}
	if hs.sessions != nil {
		status.Runtime["active_sessions"] = hs.sessions.Count()
	}

	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "degraded"
			break
		}
	}

	hs.logger.DebugContext(ctx, "health check completed", slog.String("status", status.Status))
	return status
}

func (hs *HealthService) checkStore(ctx context.Context) ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: "not_ready", Message: "store not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := hs.store.Ping(ctx); err != nil {
		hs.logger.WarnContext(ctx, "store ping failed", slog.String("error", err.Error()))
		return ServiceHealth{Status: "not_ready", Message: "store unreachable"}
	}
	return ServiceHealth{Status: "ready"}
}
