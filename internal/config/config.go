// go-uhf
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uhf.
//
// go-uhf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uhf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uhf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package config loads the uhfd daemon configuration from YAML and UHF_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ZaparooProject/go-uhf/polling"
)

// EnvPrefix is prepended to every environment override, e.g. UHF_READER_LINK
const EnvPrefix = "UHF"

// Config is the top-level daemon configuration
type Config struct {
	Reader   ReaderConfig   `mapstructure:"reader" yaml:"reader"`
	Scan     ScanConfig     `mapstructure:"scan" yaml:"scan"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
}

// ReaderConfig selects and configures the reader connection
type ReaderConfig struct {
	// Link is a port name, device path or tcp:// address
	Link     string        `mapstructure:"link" yaml:"link"`
	Location string        `mapstructure:"location" yaml:"location"`
	BaudRate int           `mapstructure:"baudRate" yaml:"baudRate"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ScanConfig mirrors polling.Config
type ScanConfig struct {
	Interval       time.Duration `mapstructure:"interval" yaml:"interval"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RemovalTimeout time.Duration `mapstructure:"removalTimeout" yaml:"removalTimeout"`
	RetryBackoff   time.Duration `mapstructure:"retryBackoff" yaml:"retryBackoff"`
	SlowInterval   time.Duration `mapstructure:"slowInterval" yaml:"slowInterval"`
	SlowAfter      time.Duration `mapstructure:"slowAfter" yaml:"slowAfter"`
	MaxRetries     int           `mapstructure:"maxRetries" yaml:"maxRetries"`
}

// HTTPConfig configures the scan API server
type HTTPConfig struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout        time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout       time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
	DefaultScanTimeout time.Duration `mapstructure:"defaultScanTimeout" yaml:"defaultScanTimeout"`
	MaxScanTimeout     time.Duration `mapstructure:"maxScanTimeout" yaml:"maxScanTimeout"`
	ScanRateLimit      float64       `mapstructure:"scanRateLimit" yaml:"scanRateLimit"`
	ScanBurst          int           `mapstructure:"scanBurst" yaml:"scanBurst"`
}

// LumberjackConfig configures the rotating log file
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge" yaml:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig selects level, encoding and the optional file sink
type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Enable bool   `mapstructure:"enable" yaml:"enable"`
}

// DatabaseConfig enables the Postgres scan history. An empty DSN keeps
// history in memory.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime" yaml:"connMaxLifetime"`
}

// RedisConfig enables scan event publishing
type RedisConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Password     string        `mapstructure:"password" yaml:"password"`
	Channel      string        `mapstructure:"channel" yaml:"channel"`
	LastTagKey   string        `mapstructure:"lastTagKey" yaml:"lastTagKey"`
	DB           int           `mapstructure:"db" yaml:"db"`
	PoolSize     int           `mapstructure:"poolSize" yaml:"poolSize"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout" yaml:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
}

// Load reads the configuration from path, applying defaults and environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("reader.link", "")
	v.SetDefault("reader.location", "")
	v.SetDefault("reader.baudRate", 115200)
	v.SetDefault("reader.timeout", time.Second)

	v.SetDefault("scan.interval", time.Second)
	v.SetDefault("scan.timeout", 5*time.Second)
	v.SetDefault("scan.removalTimeout", 3*time.Second)
	v.SetDefault("scan.maxRetries", 2)
	v.SetDefault("scan.retryBackoff", 100*time.Millisecond)
	v.SetDefault("scan.slowInterval", time.Duration(0))
	v.SetDefault("scan.slowAfter", time.Duration(0))

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", 5*time.Second)
	v.SetDefault("http.writeTimeout", 75*time.Second)
	v.SetDefault("http.defaultScanTimeout", 10*time.Second)
	v.SetDefault("http.maxScanTimeout", time.Minute)
	v.SetDefault("http.scanRateLimit", 2.0)
	v.SetDefault("http.scanBurst", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 50)
	v.SetDefault("logging.file.maxBackups", 5)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 2)
	v.SetDefault("database.connMaxLifetime", time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.dialTimeout", 5*time.Second)
	v.SetDefault("redis.readTimeout", 3*time.Second)
	v.SetDefault("redis.writeTimeout", 3*time.Second)
	v.SetDefault("redis.channel", "uhf:scans")
	v.SetDefault("redis.lastTagKey", "uhf:last_tag")
}

// Validate rejects values the daemon cannot start with
func (c *Config) Validate() error {
	if c.Reader.BaudRate <= 0 {
		return fmt.Errorf("reader.baudRate must be positive, got %d", c.Reader.BaudRate)
	}
	if c.Reader.Timeout <= 0 {
		return fmt.Errorf("reader.timeout must be positive, got %s", c.Reader.Timeout)
	}
	if c.HTTP.DefaultScanTimeout <= 0 || c.HTTP.MaxScanTimeout < c.HTTP.DefaultScanTimeout {
		return fmt.Errorf("http scan timeouts invalid: default %s, max %s",
			c.HTTP.DefaultScanTimeout, c.HTTP.MaxScanTimeout)
	}
	if err := c.PollingConfig().Validate(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}

// PollingConfig converts the scan section for polling.NewScanner
func (c *Config) PollingConfig() *polling.Config {
	return &polling.Config{
		PollInterval:      c.Scan.Interval,
		PollTimeout:       c.Scan.Timeout,
		TagRemovalTimeout: c.Scan.RemovalTimeout,
		MaxRetries:        c.Scan.MaxRetries,
		RetryBackoff:      c.Scan.RetryBackoff,
		SlowPollInterval:  c.Scan.SlowInterval,
		SlowAfter:         c.Scan.SlowAfter,
	}
}

// Dump renders the effective configuration as YAML with secrets masked
func Dump(cfg *Config) ([]byte, error) {
	masked := *cfg
	if masked.Database.DSN != "" {
		masked.Database.DSN = "***"
	}
	if masked.Redis.Password != "" {
		masked.Redis.Password = "***"
	}
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}
