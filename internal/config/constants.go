package config

import "time"

// Application info
const (
	AppName    = "BuildTrack"
	AppVersion = "1.0.0"
)

// Database drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Photo sources
const (
	PhotoSourceHTTP = "http"
	PhotoSourceS3   = "s3"
)

// Chart renderers
const (
	ChartRendererNative  = "native"
	ChartRendererBrowser = "browser"
)

// Defaults
const (
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultDataDir        = "data"
	DefaultLogsDir        = "logs"
	DefaultExportsDir     = "data/exports"
	DefaultSessionTTL     = 12 * time.Hour
	DefaultFallbackBudget = 10_000_000

	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)

// Endpoints
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
