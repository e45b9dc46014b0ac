package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable.
const EnvPrefix = "BUILDTRACK"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Progress  ProgressConfig  `yaml:"progress" envconfig:"PROGRESS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// RequestTimeout bounds JSON API handlers; exports use ExportConfig.Timeout.
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
	// SeedFile preloads the memory store.
	SeedFile string `yaml:"seed_file" envconfig:"SEED_FILE"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// DatabaseConfig selects and tunes the data store.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" envconfig:"DRIVER"`
	DSN             string        `yaml:"dsn" envconfig:"DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME"`
	PingAttempts    int           `yaml:"ping_attempts" envconfig:"PING_ATTEMPTS"`
}

// AuthConfig configures bearer token verification and sessions.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	Issuer        string        `yaml:"issuer" envconfig:"ISSUER"`
	Audience      string        `yaml:"audience" envconfig:"AUDIENCE"`
	SessionTTL    time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL"`
}

// StorageConfig configures where site photos are fetched from.
type StorageConfig struct {
	PhotoSource   string        `yaml:"photo_source" envconfig:"PHOTO_SOURCE"`
	S3Endpoint    string        `yaml:"s3_endpoint" envconfig:"S3_ENDPOINT"`
	S3Region      string        `yaml:"s3_region" envconfig:"S3_REGION"`
	S3Bucket      string        `yaml:"s3_bucket" envconfig:"S3_BUCKET"`
	S3AccessKey   string        `yaml:"s3_access_key" envconfig:"S3_ACCESS_KEY"`
	S3SecretKey   string        `yaml:"s3_secret_key" envconfig:"S3_SECRET_KEY"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
	MaxPhotoBytes int64         `yaml:"max_photo_bytes" envconfig:"MAX_PHOTO_BYTES"`
}

// ExportConfig tunes spreadsheet and PDF generation.
type ExportConfig struct {
	FallbackBudget      float64       `yaml:"fallback_budget" envconfig:"FALLBACK_BUDGET"`
	MaxPhotos           int           `yaml:"max_photos" envconfig:"MAX_PHOTOS"`
	ChartScale          int           `yaml:"chart_scale" envconfig:"CHART_SCALE"`
	ChartRenderer       string        `yaml:"chart_renderer" envconfig:"CHART_RENDERER"`
	IncludeFlaggedInPDF bool          `yaml:"include_flagged_in_pdf" envconfig:"INCLUDE_FLAGGED_IN_PDF"`
	Title               string        `yaml:"title" envconfig:"TITLE"`
	Timeout             time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// ProgressConfig configures the stage catalog.
type ProgressConfig struct {
	CatalogFile      string `yaml:"catalog_file" envconfig:"CATALOG_FILE"`
	TerminalOverride bool   `yaml:"terminal_override" envconfig:"TERMINAL_OVERRIDE"`
}

// Load builds the configuration from defaults, then the YAML file if one is
// found, then BUILDTRACK_* environment variables. Later sources win.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Storage.PhotoSource {
	case PhotoSourceHTTP:
	case PhotoSourceS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage s3 bucket is required for the s3 photo source")
		}
	default:
		return fmt.Errorf("unsupported photo source %q", c.Storage.PhotoSource)
	}

	switch c.Export.ChartRenderer {
	case ChartRendererNative, ChartRendererBrowser:
	default:
		return fmt.Errorf("unsupported chart renderer %q", c.Export.ChartRenderer)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret is required, set %s_AUTH_JWT_SECRET", EnvPrefix)
	}
	return nil
}

// getConfigFilePath returns the first config file found, or "".
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  15 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: "logs/buildtrack.log",
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			LogsDir:    DefaultLogsDir,
			ExportsDir: DefaultExportsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Database: DatabaseConfig{
			Driver:          DriverMemory,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			PingAttempts:    5,
		},
		Auth: AuthConfig{
			Issuer:        "",
			Audience:      "authenticated",
			SessionTTL:    DefaultSessionTTL,
			SweepInterval: time.Minute,
		},
		Storage: StorageConfig{
			PhotoSource:   PhotoSourceHTTP,
			S3Region:      "us-east-1",
			S3Bucket:      "dpr-photos",
			FetchTimeout:  10 * time.Second,
			MaxPhotoBytes: 10 << 20,
		},
		Export: ExportConfig{
			FallbackBudget: DefaultFallbackBudget,
			MaxPhotos:      12,
			ChartScale:     2,
			ChartRenderer:  ChartRendererNative,
			Title:          "Daily Progress Report",
			Timeout:        2 * time.Minute,
		},
		Progress: ProgressConfig{
			TerminalOverride: true,
		},
	}
}
