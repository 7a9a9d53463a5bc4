package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Address         string `envconfig:"SERVER_ADDRESS" default:":8080"`
	APIBaseURL      string `envconfig:"API_BASE_URL"`
	CORSOrigins     string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	ShutdownSeconds int    `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"10"`
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownSeconds) * time.Second
}

func (s ServerConfig) AllowedOrigins() []string {
	return splitList(s.CORSOrigins)
}

// AuthConfig carries the shared secret for protected routes. An empty APIKey
// is legal at load time; protected routes then reject every request.
type AuthConfig struct {
	APIKey             string `envconfig:"API_KEY"`
	ProtectTransitions bool   `envconfig:"AUTH_PROTECT_TRANSITIONS" default:"false"`
}

// DatabaseConfig selects Postgres when PostgresURL is set and falls back to
// a SQLite file otherwise.
type DatabaseConfig struct {
	PostgresURL  string `envconfig:"POSTGRES_URL"`
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"sms.db"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
}

type RedisConfig struct {
	Enabled    bool   `ignored:"true"`
	Address    string `envconfig:"REDIS_ADDR"`
	Password   string `envconfig:"REDIS_PASSWORD"`
	DB         int    `envconfig:"REDIS_DB" default:"0"`
	TTLSeconds int    `envconfig:"REDIS_PENDING_TTL_SECONDS" default:"5"`
}

func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type TracingConfig struct {
	Enabled      bool    `envconfig:"TRACING_ENABLED" default:"false"`
	Exporter     string  `envconfig:"TRACING_EXPORTER" default:"stdout"`
	OTLPEndpoint string  `envconfig:"OTLP_ENDPOINT" default:"localhost:4318"`
	SampleRate   float64 `envconfig:"TRACING_SAMPLE_RATE" default:"1.0"`
	ServiceName  string  `envconfig:"TRACING_SERVICE_NAME" default:"sms-queue"`
}

// AgentConfig is loaded only by the polling agent.
type AgentConfig struct {
	APIURL          string `envconfig:"AGENT_API_URL" default:"http://localhost:8080"`
	APIKey          string `envconfig:"AGENT_API_KEY"`
	WebhookURL      string `envconfig:"WEBHOOK_URL" required:"true"`
	ContentMax      int    `envconfig:"CONTENT_MAX" default:"160"`
	IntervalSeconds int    `envconfig:"AGENT_INTERVAL_SECONDS" default:"30"`
	BatchSize       int    `envconfig:"AGENT_BATCH_SIZE" default:"50"`

	Log     LogConfig     `ignored:"true"`
	Tracing TracingConfig `ignored:"true"`
}

func (a AgentConfig) Interval() time.Duration {
	return time.Duration(a.IntervalSeconds) * time.Second
}

func LoadAll() (*Config, error) {
	cfg := &Config{}

	var errs []error
	for _, section := range []any{&cfg.Server, &cfg.Auth, &cfg.Database, &cfg.Redis, &cfg.Log, &cfg.Tracing} {
		if err := envconfig.Process("", section); err != nil {
			errs = append(errs, err)
		}
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}

	cfg.Redis.Enabled = cfg.Redis.Address != ""

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadAgent() (*AgentConfig, error) {
	cfg := &AgentConfig{}

	var errs []error
	for _, section := range []any{cfg, &cfg.Log, &cfg.Tracing} {
		if err := envconfig.Process("", section); err != nil {
			errs = append(errs, err)
		}
	}
	if err := joinErrors(errs); err != nil {
		return nil, err
	}

	if err := validateAgent(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ShutdownSeconds <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT_SECONDS must be > 0"))
	}
	if cfg.Database.PostgresURL == "" && cfg.Database.SQLitePath == "" {
		errs = append(errs, errors.New("one of POSTGRES_URL or SQLITE_PATH must be set"))
	}
	if cfg.Database.MaxOpenConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be > 0"))
	}
	if cfg.Redis.Enabled && cfg.Redis.TTLSeconds <= 0 {
		errs = append(errs, errors.New("REDIS_PENDING_TTL_SECONDS must be > 0"))
	}
	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateTracing(cfg.Tracing)...)

	return joinErrors(errs)
}

func validateAgent(cfg *AgentConfig) error {
	var errs []error

	if cfg.ContentMax <= 0 {
		errs = append(errs, errors.New("CONTENT_MAX must be > 0"))
	}
	if cfg.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("AGENT_INTERVAL_SECONDS must be > 0"))
	}
	if cfg.BatchSize <= 0 {
		errs = append(errs, errors.New("AGENT_BATCH_SIZE must be > 0"))
	}
	if cfg.APIURL == "" {
		errs = append(errs, errors.New("AGENT_API_URL must not be empty"))
	}
	if cfg.WebhookURL == "" {
		errs = append(errs, errors.New("WEBHOOK_URL must not be empty"))
	}
	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateTracing(cfg.Tracing)...)

	return joinErrors(errs)
}

func validateLog(l LogConfig) []error {
	switch l.Format {
	case "json", "console":
		return nil
	}
	return []error{fmt.Errorf("LOG_FORMAT must be json or console, got %q", l.Format)}
}

func validateTracing(t TracingConfig) []error {
	var errs []error
	if t.SampleRate < 0 || t.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATE must be within [0,1], got %v", t.SampleRate))
	}
	switch t.Exporter {
	case "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("TRACING_EXPORTER must be stdout or otlp, got %q", t.Exporter))
	}
	return errs
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
