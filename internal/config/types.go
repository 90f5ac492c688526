// Package config loads and watches the taskdeckd configuration file.
//
// Both YAML and JSON are accepted; YAML is coerced to JSON bytes so a
// single strict decoder (DisallowUnknownFields) covers both formats.
package config

import "fmt"

type Config struct {
	SiteURL   string          `json:"site_url,omitempty"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Mailer    MailerConfig    `json:"mailer"`
	Queue     QueueConfig     `json:"queue"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console bool   `json:"console,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // duration string, sqlite busy_timeout
}

type SchedulerConfig struct {
	TickEvery string `json:"tick_every,omitempty"` // duration string; default 60s
}

type MailerConfig struct {
	Host       string  `json:"host,omitempty"`
	Port       int     `json:"port,omitempty"`
	Secure     bool    `json:"secure,omitempty"` // implicit TLS instead of opportunistic STARTTLS
	Username   string  `json:"username,omitempty"`
	Password   string  `json:"password,omitempty"`
	From       string  `json:"from,omitempty"`
	RatePerSec float64 `json:"rate_per_sec,omitempty"` // 0 disables the send limiter
}

type QueueConfig struct {
	BatchSize           int `json:"batch_size,omitempty"`            // default 50
	MaxAttempts         int `json:"max_attempts,omitempty"`          // default 5
	ProcessEveryMinutes int `json:"process_every_minutes,omitempty"` // default 5
}

// Enabled reports whether enough SMTP settings are present to deliver
// mail. An incomplete mailer section is not an error: the queue keeps
// accepting items and processing becomes a no-op.
func (c MailerConfig) Enabled() bool {
	return c.Host != "" && c.Port > 0 && c.From != ""
}

// Validate rejects configs that must never be committed. Delivery
// settings are deliberately not validated here (see MailerConfig.Enabled).
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Queue.BatchSize < 0 {
		return fmt.Errorf("queue.batch_size must be >= 0")
	}
	if c.Queue.MaxAttempts < 0 {
		return fmt.Errorf("queue.max_attempts must be >= 0")
	}
	if c.Queue.ProcessEveryMinutes < 0 {
		return fmt.Errorf("queue.process_every_minutes must be >= 0")
	}
	if c.Mailer.RatePerSec < 0 {
		return fmt.Errorf("mailer.rate_per_sec must be >= 0")
	}
	if _, err := c.Storage.BusyTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Scheduler.TickEveryDuration(); err != nil {
		return err
	}
	return nil
}

const (
	DefaultBatchSize           = 50
	DefaultMaxAttempts         = 5
	DefaultProcessEveryMinutes = 5
)

// BatchSizeOrDefault returns queue.batch_size or the built-in default.
func (c QueueConfig) BatchSizeOrDefault() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}

func (c QueueConfig) MaxAttemptsOrDefault() int {
	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (c QueueConfig) ProcessEveryMinutesOrDefault() int {
	if c.ProcessEveryMinutes > 0 {
		return c.ProcessEveryMinutes
	}
	return DefaultProcessEveryMinutes
}
