package config

import "time"

// DefaultAppConfig returns an AppConfig struct with sensible default values
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			ListenAddr:     ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   5 * time.Minute,
			RateLimitRPS:   50,
			RateLimitBurst: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9090",
		},
		Device: DeviceConfig{
			Backend:  "auto",
			GvfsRoot: "",
		},
	}
}
