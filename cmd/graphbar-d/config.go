package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultAddr         = "127.0.0.1:8090"
	defaultPollInterval = 2000 * time.Millisecond
	defaultBackend      = "sqlite"
	defaultRedisAddr    = "127.0.0.1:6379"
	defaultUI           = "log"
	defaultProviderID   = "default"
)

type Config struct {
	DBPath       string
	Addr         string
	PollInterval time.Duration
	InitialDelay time.Duration
	Backend      string
	RedisAddr    string
	UI           string
	Query        string
	LogFile      string
	ProviderID   string
	Token        string
	ConfigPath   string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultDBPath := filepath.Join(cwd, "graphbar.db")

	dbPath := envOrDefault("GRAPHBAR_DB_PATH", defaultDBPath)
	addr := addrFromEnv(defaultAddr)
	pollInterval, err := durationFromEnv("GRAPHBAR_POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		return Config{}, err
	}
	if pollInterval <= 0 {
		return Config{}, errors.New("GRAPHBAR_POLL_INTERVAL must be positive")
	}
	initialDelay, err := durationFromEnv("GRAPHBAR_INITIAL_DELAY", 0)
	if err != nil {
		return Config{}, err
	}
	backend := envOrDefault("GRAPHBAR_BACKEND", defaultBackend)
	redisAddr := envOrDefault("GRAPHBAR_REDIS_ADDR", defaultRedisAddr)
	ui := envOrDefault("GRAPHBAR_UI", defaultUI)
	query := os.Getenv("GRAPHBAR_QUERY")
	logFile := os.Getenv("GRAPHBAR_LOG_FILE")
	providerID := envOrDefault("GRAPHBAR_PROVIDER_ID", defaultProviderID)
	token := os.Getenv("GRAPHBAR_TOKEN")
	configPath := os.Getenv("GRAPHBAR_CONFIG_PATH")

	flagSet := flag.NewFlagSet("graphbar-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", dbPath, "path to SQLite database")
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagPollInterval := flagSet.String("poll-interval", pollInterval.String(), "delay between the end of one poll and the next")
	flagInitialDelay := flagSet.String("initial-delay", initialDelay.String(), "delay before the first poll")
	flagBackend := flagSet.String("backend", backend, "graph backend: sqlite|redis|memory")
	flagRedisAddr := flagSet.String("redis-addr", redisAddr, "Redis address when backend=redis")
	flagUI := flagSet.String("ui", ui, "presentation surface: log|tui|off")
	flagQuery := flagSet.String("query", query, "count query overriding the backend default")
	flagLogFile := flagSet.String("log-file", logFile, "log file (defaults to graphbar.log when ui=tui)")
	flagProvider := flagSet.String("provider-id", providerID, "ID the backend registers under")
	flagToken := flagSet.String("token", token, "bearer token required for API writes")
	flagConfig := flagSet.String("config", configPath, "optional JSON file with interval, initial_delay and query")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	pollIntervalParsed, err := time.ParseDuration(*flagPollInterval)
	if err != nil {
		return Config{}, fmt.Errorf("invalid poll interval: %w", err)
	}
	if pollIntervalParsed <= 0 {
		return Config{}, errors.New("poll interval must be positive")
	}
	initialDelayParsed, err := time.ParseDuration(*flagInitialDelay)
	if err != nil {
		return Config{}, fmt.Errorf("invalid initial delay: %w", err)
	}
	if initialDelayParsed < 0 {
		return Config{}, errors.New("initial delay must not be negative")
	}

	config := Config{
		DBPath:       resolvePath(*flagDB, cwd),
		Addr:         strings.TrimSpace(*flagAddr),
		PollInterval: pollIntervalParsed,
		InitialDelay: initialDelayParsed,
		Backend:      normalizeBackend(*flagBackend),
		RedisAddr:    strings.TrimSpace(*flagRedisAddr),
		UI:           normalizeUI(*flagUI),
		Query:        strings.TrimSpace(*flagQuery),
		LogFile:      resolvePath(*flagLogFile, cwd),
		ProviderID:   strings.TrimSpace(*flagProvider),
		Token:        *flagToken,
		ConfigPath:   resolvePath(*flagConfig, cwd),
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}
	if config.ProviderID == "" {
		return Config{}, errors.New("provider-id cannot be empty")
	}

	switch config.Backend {
	case "sqlite":
		if config.DBPath == "" {
			return Config{}, errors.New("backend=sqlite requires db")
		}
	case "redis":
		if config.RedisAddr == "" {
			return Config{}, errors.New("backend=redis requires redis-addr")
		}
	case "memory":
	default:
		return Config{}, fmt.Errorf("unsupported backend: %s", config.Backend)
	}

	switch config.UI {
	case "log", "off":
	case "tui":
		if config.LogFile == "" {
			config.LogFile = filepath.Join(cwd, "graphbar.log")
		}
	default:
		return Config{}, fmt.Errorf("unsupported ui: %s", config.UI)
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("GRAPHBAR_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("GRAPHBAR_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}

func normalizeBackend(backend string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite", "sqlite3":
		return "sqlite"
	case "mem", "memory", "inmemory":
		return "memory"
	default:
		return strings.ToLower(strings.TrimSpace(backend))
	}
}

func normalizeUI(ui string) string {
	switch strings.ToLower(strings.TrimSpace(ui)) {
	case "", "log", "stdout":
		return "log"
	case "off", "none", "disabled":
		return "off"
	default:
		return strings.ToLower(strings.TrimSpace(ui))
	}
}
