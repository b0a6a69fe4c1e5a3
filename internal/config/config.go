// Package config loads boardbot's YAML configuration.
//
// The config is read once at startup and treated as immutable afterwards:
// every component receives the values it needs explicitly, there is no
// ambient global state and no hot reload.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Engine   EngineConfig   `yaml:"engine"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Obs      ObsConfig      `yaml:"obs"`
}

type TelegramConfig struct {
	Token       string   `yaml:"token"`
	PollTimeout Duration `yaml:"poll_timeout,omitempty"`

	// AdminChatID enables the operator commands (/post, /push, /stats)
	// for one chat. Zero disables them.
	AdminChatID int64 `yaml:"admin_chat_id,omitempty"`
}

type LoggingConfig struct {
	Level   string        `yaml:"level,omitempty"`
	Console *bool         `yaml:"console,omitempty"`
	File    LogFileConfig `yaml:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type StorageConfig struct {
	Path        string   `yaml:"path"`
	BusyTimeout Duration `yaml:"busy_timeout,omitempty"`
}

// EngineConfig controls the periodic tasks and the reminder policy knobs.
//
// CooldownGrace is subtracted from the cooldown window to absorb scheduler
// jitter; the 30m default matches long-standing behavior and should not
// normally be changed.
type EngineConfig struct {
	ScanInterval     Duration `yaml:"scan_interval,omitempty"`
	CleanupInterval  Duration `yaml:"cleanup_interval,omitempty"`
	FollowUpInterval Duration `yaml:"followup_interval,omitempty"`
	FollowUpDelay    Duration `yaml:"followup_delay,omitempty"`
	CooldownGrace    Duration `yaml:"cooldown_grace,omitempty"`
}

type DispatchConfig struct {
	RatePerSec int      `yaml:"rate_per_sec,omitempty"`
	RetryMax   int      `yaml:"retry_max,omitempty"`
	BatchPause Duration `yaml:"batch_pause,omitempty"`
}

type ObsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"`
}

// Load reads, decodes, defaults and validates the config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = Duration(10 * time.Second)
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Console == nil {
		t := true
		c.Logging.Console = &t
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./data/boardbot.db"
	}
	if c.Storage.BusyTimeout <= 0 {
		c.Storage.BusyTimeout = Duration(5 * time.Second)
	}
	if c.Engine.ScanInterval <= 0 {
		c.Engine.ScanInterval = Duration(6 * time.Hour)
	}
	if c.Engine.CleanupInterval <= 0 {
		c.Engine.CleanupInterval = Duration(time.Hour)
	}
	if c.Engine.FollowUpInterval <= 0 {
		c.Engine.FollowUpInterval = Duration(15 * time.Minute)
	}
	if c.Engine.FollowUpDelay <= 0 {
		c.Engine.FollowUpDelay = Duration(4 * time.Hour)
	}
	if c.Engine.CooldownGrace <= 0 {
		c.Engine.CooldownGrace = Duration(30 * time.Minute)
	}
	if c.Dispatch.RatePerSec <= 0 {
		c.Dispatch.RatePerSec = 20
	}
	if c.Dispatch.RetryMax <= 0 {
		c.Dispatch.RetryMax = 5
	}
	if c.Dispatch.BatchPause <= 0 {
		c.Dispatch.BatchPause = Duration(2 * time.Second)
	}
	if c.Obs.Enabled && strings.TrimSpace(c.Obs.Addr) == "" {
		c.Obs.Addr = "127.0.0.1:9090"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("config: telegram.token is required")
	}
	if c.Engine.CooldownGrace.Std() >= 6*time.Hour {
		return errors.New("config: engine.cooldown_grace must be shorter than the 6h cooldown window")
	}
	if c.Dispatch.RatePerSec > 30 {
		return fmt.Errorf("config: dispatch.rate_per_sec %d exceeds the channel ceiling (30)", c.Dispatch.RatePerSec)
	}
	return nil
}
