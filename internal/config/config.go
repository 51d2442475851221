// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment and an
// optional .env file.
type Config struct {
	Port            string
	OriginAllowlist []string
	RevealDelay     time.Duration
	SendBuffer      int

	JWTSecret   string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ActionLogKey  string

	LogLevel  string
	LogFormat string
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		OriginAllowlist: splitList(os.Getenv("ORIGIN_ALLOWLIST")),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		ActionLogKey:    getenv("ACTION_LOG_KEY", "room_actions"),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getenv("LOG_FORMAT", "text")),
	}

	delayMS, err := getInt("REVEAL_DELAY_MS", 1000)
	if err != nil {
		return Config{}, err
	}
	if delayMS <= 0 {
		return Config{}, fmt.Errorf("REVEAL_DELAY_MS must be positive, got %d", delayMS)
	}
	cfg.RevealDelay = time.Duration(delayMS) * time.Millisecond

	if cfg.SendBuffer, err = getInt("SEND_BUFFER", 64); err != nil {
		return Config{}, err
	}
	if cfg.SendBuffer <= 0 {
		return Config{}, fmt.Errorf("SEND_BUFFER must be positive, got %d", cfg.SendBuffer)
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	return cfg, nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
