// Package config provides configuration management for portablefs.
// It handles loading and validating configuration from YAML files and environment variables.
package config

import "time"

// AppConfig represents the complete application configuration
type AppConfig struct {
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Device  DeviceConfig  `koanf:"device"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr     string        `koanf:"listen_addr"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	RateLimitRPS   float64       `koanf:"rate_limit_rps"`
	RateLimitBurst int           `koanf:"rate_limit_burst"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	ListenAddr string `koanf:"listen_addr"`
}

// DeviceConfig holds device backend configuration
type DeviceConfig struct {
	// Backend selects the platform backend: "auto" picks the native one.
	Backend string `koanf:"backend"`
	// GvfsRoot overrides the mount root of the mounted-filesystem
	// backend. Empty selects the current user's gvfs directory.
	GvfsRoot string `koanf:"gvfs_root"`
}
