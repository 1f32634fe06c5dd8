/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures the chat and economy server by reading operating system environment variables:
listen address, room set, history limits, rain-pool thresholds, scheduler intervals, and the
optional external collaborators (identity tokens, balance store, history archive).
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int
	WSPath      string

	// Security Settings
	AllowedOrigins []string

	// JWTSecret enables token-backed identity resolution at session auth.
	// When empty, the auth payload is trusted verbatim.
	JWTSecret string

	// Room Settings
	Rooms       []string
	DefaultRoom string

	// History Settings
	HistoryCap       int
	HistoryCompactTo int
	ReplayLimit      int

	// Economy Settings
	RainThreshold         int64
	AutoRainThreshold     int64
	RainMinimum           int64
	MaxRainWinners        int
	RecencyWindow         time.Duration
	HourlyContributionCap int
	BotUsername           string
	BotBalance            int64

	// Scheduler Settings
	RainCheckMinute  int
	StatsInterval    time.Duration
	CompactInterval  time.Duration
	AutoRainInterval time.Duration

	// ShutdownGrace is how long closed connections get to acknowledge the
	// close frame before being force-terminated.
	ShutdownGrace time.Duration

	// Balance Store Settings (optional; empty DSN disables durable commits)
	DatabaseDSN string

	// History Archive Settings (optional; empty bucket disables archiving)
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type
// conversions and validation. It returns a pointer to the AppConfig struct and any
// error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	port, err := envInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	cfg.WSPath = os.Getenv("WS_PATH")
	if cfg.WSPath == "" {
		cfg.WSPath = "/ws"
	}
	if !strings.HasPrefix(cfg.WSPath, "/") {
		return nil, fmt.Errorf("WS_PATH must start with a slash, got %q", cfg.WSPath)
	}

	// --- Security Settings ---
	cfg.AllowedOrigins = envList("ALLOWED_ORIGINS")

	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	// --- Room Settings ---
	cfg.Rooms = envList("ROOMS")
	if len(cfg.Rooms) == 0 {
		cfg.Rooms = []string{"general", "highroller"}
	}

	cfg.DefaultRoom = os.Getenv("DEFAULT_ROOM")
	if cfg.DefaultRoom == "" {
		cfg.DefaultRoom = cfg.Rooms[0]
	}
	if !contains(cfg.Rooms, cfg.DefaultRoom) {
		return nil, fmt.Errorf("DEFAULT_ROOM %q is not part of ROOMS %v", cfg.DefaultRoom, cfg.Rooms)
	}

	// --- History Settings ---
	if cfg.HistoryCap, err = envInt("HISTORY_CAP", 1000); err != nil {
		return nil, err
	}
	if cfg.HistoryCompactTo, err = envInt("HISTORY_COMPACT_TO", 500); err != nil {
		return nil, err
	}
	if cfg.ReplayLimit, err = envInt("REPLAY_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.HistoryCap < 1 || cfg.HistoryCompactTo < 1 || cfg.HistoryCompactTo > cfg.HistoryCap {
		return nil, fmt.Errorf("HISTORY_COMPACT_TO (%d) must be between 1 and HISTORY_CAP (%d)", cfg.HistoryCompactTo, cfg.HistoryCap)
	}

	// --- Economy Settings ---
	if cfg.RainThreshold, err = envInt64("RAIN_THRESHOLD", 100); err != nil {
		return nil, err
	}
	if cfg.AutoRainThreshold, err = envInt64("AUTO_RAIN_THRESHOLD", 50); err != nil {
		return nil, err
	}
	if cfg.RainMinimum, err = envInt64("RAIN_MINIMUM", 5); err != nil {
		return nil, err
	}
	if cfg.MaxRainWinners, err = envInt("MAX_RAIN_WINNERS", 10); err != nil {
		return nil, err
	}
	if cfg.RecencyWindow, err = envDuration("RECENCY_WINDOW", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HourlyContributionCap, err = envInt("HOURLY_CONTRIBUTION_CAP", 20); err != nil {
		return nil, err
	}
	if cfg.RainThreshold < 1 || cfg.AutoRainThreshold < 1 || cfg.RainMinimum < 1 || cfg.MaxRainWinners < 1 {
		return nil, fmt.Errorf("rain thresholds, minimum and winner count must all be positive")
	}

	cfg.BotUsername = os.Getenv("BOT_USERNAME")
	if cfg.BotUsername == "" {
		cfg.BotUsername = "RainBot"
	}
	if cfg.BotBalance, err = envInt64("BOT_BALANCE", 1_000_000_000); err != nil {
		return nil, err
	}

	// --- Scheduler Settings ---
	if cfg.RainCheckMinute, err = envInt("RAIN_CHECK_MINUTE", 30); err != nil {
		return nil, err
	}
	if cfg.RainCheckMinute < 0 || cfg.RainCheckMinute > 59 {
		return nil, fmt.Errorf("RAIN_CHECK_MINUTE must be between 0 and 59, got %d", cfg.RainCheckMinute)
	}
	if cfg.StatsInterval, err = envDuration("STATS_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CompactInterval, err = envDuration("COMPACT_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AutoRainInterval, err = envDuration("AUTO_RAIN_INTERVAL", 1*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = envDuration("SHUTDOWN_GRACE", 2*time.Second); err != nil {
		return nil, err
	}

	// --- Balance Store Settings ---
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	// --- History Archive Settings ---
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")

	if cfg.S3BucketName != "" {
		if cfg.S3Endpoint == "" || cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "" {
			return nil, fmt.Errorf("S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required when S3_BUCKET_NAME is set")
		}
	}

	return cfg, nil
}

// envInt reads an integer environment variable, falling back to def when unset.
func envInt(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

// envInt64 reads a 64-bit integer environment variable, falling back to def when unset.
func envInt64(name string, def int64) (int64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

// envDuration reads a Go duration environment variable (e.g. "5m"), falling back to def when unset.
func envDuration(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

// envList reads a comma separated environment variable into a slice, trimming blanks.
func envList(name string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
