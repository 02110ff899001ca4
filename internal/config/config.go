package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full bot configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1h").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Database  DatabaseConfig  `json:"database"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Delivery  DeliveryConfig  `json:"delivery,omitempty"`
	Janitor   JanitorConfig   `json:"janitor,omitempty"`
	Session   SessionConfig   `json:"session,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is the long-poll timeout (Go duration string).
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// DatabaseConfig controls the SQLite file holding reminders and jobs.
type DatabaseConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// SchedulerConfig controls timer behavior.
type SchedulerConfig struct {
	// Timezone is the IANA zone all "now" comparisons and user-facing
	// timestamps use, e.g. "Europe/Moscow". Empty means time.Local.
	Timezone string `json:"timezone,omitempty"`
}

// DeliveryConfig controls the reminder send pipeline.
type DeliveryConfig struct {
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	RetryMax    int    `json:"retry_max,omitempty"`
	RetryBase   string `json:"retry_base,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

// JanitorConfig controls periodic cleanup of terminal jobs and old reminders.
type JanitorConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule accepts cron specs and descriptors ("@every 1h", "@daily").
	Schedule string `json:"schedule,omitempty"`
	// KeepFor is how long fired/cancelled records are retained before purge.
	KeepFor string `json:"keep_for,omitempty"`
}

// SessionConfig controls the conversational session store.
type SessionConfig struct {
	TTL string `json:"ttl,omitempty"`
}

// Defaults used when optional fields are omitted.
const (
	DefaultPollTimeout = 10 * time.Second
	DefaultBusyTimeout = 5 * time.Second
	DefaultSendTimeout = 10 * time.Second
	DefaultRetryBase   = 500 * time.Millisecond
	DefaultRetryMax    = 3
	DefaultRatePerSec  = 25
	DefaultKeepFor     = 24 * time.Hour
	DefaultSessionTTL  = time.Hour
	DefaultJanitorSpec = "@every 1h"
)

// Validate checks fields that cannot be defaulted away.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path is required")
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: unknown zone %q", tz)
		}
	}
	for _, f := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"database.busy_timeout", c.Database.BusyTimeout},
		{"delivery.retry_base", c.Delivery.RetryBase},
		{"delivery.send_timeout", c.Delivery.SendTimeout},
		{"janitor.keep_for", c.Janitor.KeepFor},
		{"session.ttl", c.Session.TTL},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	return nil
}
