// Package config reads settings from the environment and an optional .env
// file. Command-line flags override them in main.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissing is wrapped for every required variable that is unset.
var ErrMissing = errors.New("missing required setting")

type Config struct {
	Sheet     SheetConfig
	Telemetry TelemetryConfig
	Browser   BrowserConfig
	Networks  []string
	Port      int
}

type SheetConfig struct {
	ClientEmail   string
	PrivateKey    string
	SpreadsheetID string
}

type TelemetryConfig struct {
	URL string
}

type BrowserConfig struct {
	Proxy string
	Bin   string
}

// DefaultNetworks are scraped when nothing else is selected.
var DefaultNetworks = []string{"taurus", "gemini-3h"}

// Load reads .env files (if present) and the environment. files default to
// ".env".
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		Networks: append([]string(nil), DefaultNetworks...),
		Port:     8888,
	}
	loadEnv(cfg)
	return cfg, nil
}

func loadEnv(cfg *Config) {
	cfg.Sheet.ClientEmail = os.Getenv("GOOGLE_CLOUD_CLIENT_EMAIL")
	cfg.Sheet.PrivateKey = UnescapeKey(os.Getenv("GOOGLE_CLOUD_PRIVATE_KEY"))
	cfg.Sheet.SpreadsheetID = os.Getenv("GOOGLE_SHEET_ID")
	cfg.Telemetry.URL = os.Getenv("TELEMETRY_WEBSOCKET_URL")
	cfg.Browser.Proxy = os.Getenv("TELESHEET_PROXY")
	cfg.Browser.Bin = os.Getenv("TELESHEET_CHROME_BIN")

	if val := os.Getenv("TELESHEET_NETWORKS"); val != "" {
		var ids []string
		for _, id := range strings.Split(val, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			cfg.Networks = ids
		}
	}
	if val := os.Getenv("PORT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Port = p
		}
	}
}

// UnescapeKey turns literal "\n" sequences into newlines, the form private
// keys take when stored in a single-line variable.
func UnescapeKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// ValidateSheet reports every credential needed to write to the sheet that
// is unset.
func (c *Config) ValidateSheet() error {
	var errs []error
	for _, v := range []struct{ name, value string }{
		{"GOOGLE_CLOUD_CLIENT_EMAIL", c.Sheet.ClientEmail},
		{"GOOGLE_CLOUD_PRIVATE_KEY", c.Sheet.PrivateKey},
		{"GOOGLE_SHEET_ID", c.Sheet.SpreadsheetID},
	} {
		if strings.TrimSpace(v.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissing, v.name))
		}
	}
	return errors.Join(errs...)
}

// ValidateTelemetry requires the feed URL.
func (c *Config) ValidateTelemetry() error {
	if c.Telemetry.URL == "" {
		return fmt.Errorf("%w: TELEMETRY_WEBSOCKET_URL", ErrMissing)
	}
	return nil
}
