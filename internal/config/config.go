package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the tracker.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level

	APIBaseURL string
	APIUser    string
	APISecret  string
	APITimeout time.Duration

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration

	CircuitEnabled          bool
	CircuitFailureThreshold int
	CircuitOpenTimeout      time.Duration
	CircuitHalfOpenMaxReq   int

	CacheDir        string
	CacheTTL        time.Duration
	TeamCacheSize   int
	CompCacheSize   int
	SeenStateDir    string
	CycleInterval   time.Duration
	FetchWorkers    int
	StatusPriority  []int
	AlertRuleConfig map[string]map[string]any

	OverUnderThreshold float64

	TelegramEnabled  bool
	TelegramBotToken string
	TelegramChatID   int64

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
}

func Load() (Config, error) {
	cfg := Config{}

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}
	cfg.AppEnv = appEnv
	cfg.ServiceName = getEnv("SERVICE_NAME", "match-tracker")
	cfg.ServiceVersion = getEnv("SERVICE_VERSION", "dev")
	cfg.LogLevel = parseLogLevel(getEnv("APP_LOG_LEVEL", "info"))

	cfg.APIBaseURL = getEnv("API_BASE_URL", "https://api.thesports.com/v1/football")
	cfg.APIUser = strings.TrimSpace(getEnv("API_USER", ""))
	cfg.APISecret = strings.TrimSpace(getEnv("API_SECRET", ""))
	if cfg.APIUser == "" || cfg.APISecret == "" {
		return Config{}, fmt.Errorf("API_USER and API_SECRET are required")
	}

	cfg.APITimeout, err = time.ParseDuration(getEnv("API_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_TIMEOUT: %w", err)
	}

	cfg.RetryMaxAttempts, err = getEnvAsInt("API_RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_RETRY_MAX_ATTEMPTS: %w", err)
	}
	cfg.RetryInitialBackoff, err = time.ParseDuration(getEnv("API_RETRY_INITIAL_BACKOFF", "500ms"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_RETRY_INITIAL_BACKOFF: %w", err)
	}
	cfg.RetryMaxBackoff, err = time.ParseDuration(getEnv("API_RETRY_MAX_BACKOFF", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_RETRY_MAX_BACKOFF: %w", err)
	}

	cfg.CircuitEnabled, err = strconv.ParseBool(getEnv("API_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_CIRCUIT_ENABLED: %w", err)
	}
	cfg.CircuitFailureThreshold, err = getEnvAsInt("API_CIRCUIT_FAILURE_THRESHOLD", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_CIRCUIT_FAILURE_THRESHOLD: %w", err)
	}
	cfg.CircuitOpenTimeout, err = time.ParseDuration(getEnv("API_CIRCUIT_OPEN_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	cfg.CircuitHalfOpenMaxReq, err = getEnvAsInt("API_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	cfg.CacheDir = getEnv("CACHE_DIR", "cache")
	cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	cfg.TeamCacheSize, err = getEnvAsInt("TEAM_CACHE_SIZE", 10000)
	if err != nil {
		return Config{}, fmt.Errorf("parse TEAM_CACHE_SIZE: %w", err)
	}
	cfg.CompCacheSize, err = getEnvAsInt("COMPETITION_CACHE_SIZE", 1000)
	if err != nil {
		return Config{}, fmt.Errorf("parse COMPETITION_CACHE_SIZE: %w", err)
	}
	cfg.SeenStateDir = getEnv("SEEN_STATE_DIR", "alerts")

	cfg.CycleInterval, err = time.ParseDuration(getEnv("CYCLE_INTERVAL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CYCLE_INTERVAL: %w", err)
	}
	cfg.FetchWorkers, err = getEnvAsInt("FETCH_WORKERS", 8)
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_WORKERS: %w", err)
	}

	cfg.StatusPriority, err = parseIntCSV(getEnv("STATUS_PRIORITY", "2,3,4,1,5"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATUS_PRIORITY: %w", err)
	}

	threshold := strings.TrimSpace(getEnv("OVER_UNDER_THRESHOLD", "3.0"))
	cfg.OverUnderThreshold, err = strconv.ParseFloat(threshold, 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse OVER_UNDER_THRESHOLD: %w", err)
	}
	cfg.AlertRuleConfig = map[string]map[string]any{
		"OU3": {"threshold": cfg.OverUnderThreshold},
	}

	cfg.TelegramBotToken = strings.TrimSpace(getEnv("TELEGRAM_BOT_TOKEN", ""))
	telegramChatID, err := getEnvAsInt64("TELEGRAM_CHAT_ID", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
	}
	cfg.TelegramChatID = telegramChatID
	cfg.TelegramEnabled = cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0

	cfg.UptraceEnabled, err = strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	cfg.PyroscopeEnabled, err = strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	cfg.PyroscopeAppName = getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName)
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func parseIntCSV(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	return out, nil
}
