package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "taskpilot.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TASKPILOT_PORT")
	setString(&cfg.Server.CORSOrigin, "TASKPILOT_CORS_ORIGIN")
	setInt64(&cfg.Server.MaxRequestBodySize, "TASKPILOT_MAX_BODY_SIZE")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TASKPILOT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TASKPILOT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TASKPILOT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TASKPILOT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TASKPILOT_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LLM.BaseURL, "TASKPILOT_LLM_BASE_URL")
	setString(&cfg.LLM.APIKey, "TASKPILOT_LLM_API_KEY")
	setString(&cfg.LLM.Model, "TASKPILOT_LLM_MODEL")
	setDuration(&cfg.LLM.Timeout, "TASKPILOT_LLM_TIMEOUT")
	setInt(&cfg.Agent.MaxTurns, "TASKPILOT_AGENT_MAX_TURNS")
	setInt(&cfg.Agent.HistoryLimit, "TASKPILOT_AGENT_HISTORY_LIMIT")
	setString(&cfg.Auth.JWTSecret, "TASKPILOT_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "TASKPILOT_ACCESS_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "TASKPILOT_BCRYPT_COST")
	setInt64(&cfg.Cache.MaxCostBytes, "TASKPILOT_CACHE_MAX_COST")
	setDuration(&cfg.Cache.OwnershipTTL, "TASKPILOT_CACHE_OWNERSHIP_TTL")
	setString(&cfg.Logging.Level, "TASKPILOT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TASKPILOT_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "TASKPILOT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TASKPILOT_BREAKER_TIMEOUT")
	setString(&cfg.MCP.Port, "TASKPILOT_MCP_PORT")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks invariants that would otherwise fail at runtime.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn must not be empty")
	}
	if cfg.Agent.MaxTurns < 1 {
		return errors.New("agent.max_turns must be at least 1")
	}
	if cfg.Agent.HistoryLimit < 1 {
		return errors.New("agent.history_limit must be at least 1")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set (TASKPILOT_JWT_SECRET)")
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, env string) {
	if v := os.Getenv(env); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
