// Package config loads the calendar server settings from YAML with
// BOARDCAL_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen    string `yaml:"listen"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	BaseURL   string `yaml:"base_url"`

	// DefaultTimezone is the server zone: it places the shared upcoming
	// snapshot and is the last fallback for viewers without a zone.
	DefaultTimezone string `yaml:"default_timezone"`

	// WeekStart is 0 (Sunday) through 6 (Saturday).
	WeekStart int `yaml:"week_start"`

	// MaxSpan caps the inclusive day span of an event; 0 is unlimited.
	MaxSpan int `yaml:"max_span"`

	MinYear     int `yaml:"min_year"`
	MaxYear     int `yaml:"max_year"`
	MaxListDays int `yaml:"max_list_days"`

	UpcomingDays  int  `yaml:"upcoming_days"`
	ShowEvents    bool `yaml:"show_events"`
	ShowHolidays  bool `yaml:"show_holidays"`
	ShowBirthdays bool `yaml:"show_birthdays"`

	// WarmCron is when the upcoming snapshot is rebuilt, in the server zone.
	WarmCron string `yaml:"warm_cron"`

	// AllowedOrigins restricts websocket origins; empty accepts any.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() *Config {
	return &Config{
		Listen:          ":8080",
		DBPath:          "boardcal.db",
		LogLevel:        "info",
		LogFormat:       "text",
		DefaultTimezone: "UTC",
		WeekStart:       0,
		MaxSpan:         7,
		MinYear:         2008,
		MaxYear:         2030,
		MaxListDays:     366,
		UpcomingDays:    7,
		ShowEvents:      true,
		ShowHolidays:    true,
		ShowBirthdays:   true,
		WarmCron:        "1 0 * * *",
	}
}

// Normalize replaces missing or out-of-range values with defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = d.DefaultTimezone
	}
	if c.WeekStart < 0 || c.WeekStart > 6 {
		c.WeekStart = d.WeekStart
	}
	if c.MaxSpan < 0 {
		c.MaxSpan = 0
	}
	if c.MinYear <= 0 {
		c.MinYear = d.MinYear
	}
	if c.MaxYear < c.MinYear {
		c.MaxYear = max(d.MaxYear, c.MinYear)
	}
	if c.MaxListDays <= 0 {
		c.MaxListDays = d.MaxListDays
	}
	if c.UpcomingDays <= 0 {
		c.UpcomingDays = d.UpcomingDays
	}
	if c.WarmCron == "" {
		c.WarmCron = d.WarmCron
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

func (c *Config) Weekday() time.Weekday {
	return time.Weekday(c.WeekStart)
}

// Load reads path over the defaults, applies environment overrides and
// normalizes. A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"BOARDCAL_LISTEN":     &c.Listen,
		"BOARDCAL_DB_PATH":    &c.DBPath,
		"BOARDCAL_LOG_LEVEL":  &c.LogLevel,
		"BOARDCAL_LOG_FORMAT": &c.LogFormat,
		"BOARDCAL_BASE_URL":   &c.BaseURL,
		"BOARDCAL_TIMEZONE":   &c.DefaultTimezone,
		"BOARDCAL_WARM_CRON":  &c.WarmCron,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"BOARDCAL_WEEK_START":    &c.WeekStart,
		"BOARDCAL_MAX_SPAN":      &c.MaxSpan,
		"BOARDCAL_UPCOMING_DAYS": &c.UpcomingDays,
		"BOARDCAL_MAX_LIST_DAYS": &c.MaxListDays,
	}
	for key, dst := range ints {
		v := getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", key, v)
		}
		*dst = n
	}
	return nil
}
