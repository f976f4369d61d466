package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// Config is the process configuration read from the environment.
type Config struct {
	HTTPAddr    string
	DatabaseURL string // optional; enables the persistent operator log

	WidgetConfigPath string
	TimekitBaseURL   string
	LogLevel         string

	CookieHashKey  []byte // base64
	CookieBlockKey []byte // base64

	DevMode bool
}

func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:         envDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		WidgetConfigPath: envDefault("WIDGET_CONFIG", "widget.yaml"),
		TimekitBaseURL:   envDefault("TIMEKIT_BASE_URL", "https://api.timekit.io/v2"),
		LogLevel:         envDefault("LOG_LEVEL", "info"),
		DevMode:          strings.TrimSpace(os.Getenv("DEV_MODE")) == "1",
	}
	var err error
	cfg.CookieHashKey, err = mustB64("COOKIE_HASH_KEY")
	if err != nil {
		return cfg, err
	}
	cfg.CookieBlockKey, err = mustB64("COOKIE_BLOCK_KEY")
	if err != nil {
		return cfg, err
	}
	switch len(cfg.CookieBlockKey) {
	case 16, 24, 32:
	default:
		return cfg, fmt.Errorf("COOKIE_BLOCK_KEY must decode to 16, 24 or 32 bytes (got %d)", len(cfg.CookieBlockKey))
	}
	return cfg, nil
}

func envDefault(k, d string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	return v
}

func mustB64(k string) ([]byte, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil, fmt.Errorf("%s is required (base64)", k)
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
