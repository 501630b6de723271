package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HttpPort      int    `json:"http_port" yaml:"http_port"`
	PublicBaseURL string `json:"public_base_url" yaml:"public_base_url"`
	DbConnString  string `json:"db_conn_string" yaml:"db_conn_string"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`

	Provider ProviderConfig `json:"provider" yaml:"provider"`

	BatchIntervalStr        string        `json:"batch_interval" yaml:"batch_interval"`
	BatchInterval           time.Duration `json:"-" yaml:"-"`
	EngagementQueueSize     int           `json:"engagement_queue_size" yaml:"engagement_queue_size"`
	LimiterSweepIntervalStr string        `json:"limiter_sweep_interval" yaml:"limiter_sweep_interval"`
	LimiterSweepInterval    time.Duration `json:"-" yaml:"-"`

	RateLimits RateLimitsConfig `json:"rate_limits" yaml:"rate_limits"`
}

type ProviderConfig struct {
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	AccountSID string        `json:"account_sid" yaml:"account_sid"`
	AuthToken  string        `json:"auth_token" yaml:"auth_token"`
	From       string        `json:"from" yaml:"from"`
	TimeoutStr string        `json:"timeout" yaml:"timeout"`
	Timeout    time.Duration `json:"-" yaml:"-"`
}

type RateLimitConfig struct {
	Limit     int           `json:"limit" yaml:"limit"`
	WindowStr string        `json:"window" yaml:"window"`
	Window    time.Duration `json:"-" yaml:"-"`
}

type RateLimitsConfig struct {
	Send       RateLimitConfig `json:"send" yaml:"send"`
	Batch      RateLimitConfig `json:"batch" yaml:"batch"`
	Webhook    RateLimitConfig `json:"webhook" yaml:"webhook"`
	Engagement RateLimitConfig `json:"engagement" yaml:"engagement"`
}

// ReadConfig reads the configuration file, json unless the extension says yaml,
// and applies environment overrides.
func ReadConfig(configFile string) (*Config, error) {
	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}
	return parseConfig(content, filepath.Ext(configFile), os.LookupEnv)
}

func parseConfig(content []byte, ext string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := new(Config)

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	}

	cfg.applyEnv(lookupEnv)

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.HttpPort)
	}
	if cfg.EngagementQueueSize <= 0 {
		cfg.EngagementQueueSize = 256
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) {
	overrides := map[string]*string{
		"PROVIDER_ACCOUNT_SID": &c.Provider.AccountSID,
		"PROVIDER_AUTH_TOKEN":  &c.Provider.AuthToken,
		"DB_CONN_STRING":       &c.DbConnString,
		"REDIS_ADDR":           &c.RedisAddr,
	}
	for key, field := range overrides {
		if v, ok := lookupEnv(key); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) parseDurations() error {
	var err error

	if c.BatchInterval, err = parseDuration("batch_interval", c.BatchIntervalStr, 0); err != nil {
		return err
	}
	if c.LimiterSweepInterval, err = parseDuration("limiter_sweep_interval", c.LimiterSweepIntervalStr, time.Minute); err != nil {
		return err
	}
	if c.Provider.Timeout, err = parseDuration("provider.timeout", c.Provider.TimeoutStr, 10*time.Second); err != nil {
		return err
	}

	for name, rl := range c.RateLimits.byName() {
		if rl.Window, err = parseDuration("rate_limits."+name+".window", rl.WindowStr, 0); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error

	if c.HttpPort <= 0 || c.HttpPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port must be between 1 and 65535, got %d", c.HttpPort))
	}
	if c.DbConnString == "" {
		errs = append(errs, errors.New("db_conn_string is required"))
	}
	if c.BatchInterval <= 0 {
		errs = append(errs, errors.New("batch_interval must be positive"))
	}
	if c.LimiterSweepInterval <= 0 {
		errs = append(errs, errors.New("limiter_sweep_interval must be positive"))
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("provider.timeout must be positive"))
	}
	if (c.Provider.AccountSID == "") != (c.Provider.AuthToken == "") {
		errs = append(errs, errors.New("provider account_sid and auth_token must be set together"))
	}
	for name, rl := range c.RateLimits.byName() {
		if rl.Limit <= 0 || rl.Window <= 0 {
			errs = append(errs, fmt.Errorf("rate_limits.%s needs a positive limit and window", name))
		}
	}

	return errors.Join(errs...)
}

func (r *RateLimitsConfig) byName() map[string]*RateLimitConfig {
	return map[string]*RateLimitConfig{
		"send":       &r.Send,
		"batch":      &r.Batch,
		"webhook":    &r.Webhook,
		"engagement": &r.Engagement,
	}
}

func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
