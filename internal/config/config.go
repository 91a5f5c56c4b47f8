package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	Stream    StreamConfig    `toml:"stream"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Instance  InstanceConfig  `toml:"instance"`
}

type ServerConfig struct {
	Addr           string `toml:"addr"`
	ReadTimeoutSec int    `toml:"read_timeout_sec"`
}

type DatabaseConfig struct {
	Path        string `toml:"path"`
	MetricsPath string `toml:"metrics_path"`
}

type AuthConfig struct {
	JWTSecret      string `toml:"jwt_secret"`
	TokenExpiryMin int    `toml:"token_expiry_min"`
}

type StreamConfig struct {
	SnapshotLimit    int `toml:"snapshot_limit"`
	HeartbeatSec     int `toml:"heartbeat_sec"`
	SubscriberBuffer int `toml:"subscriber_buffer"`
}

type RateLimitConfig struct {
	AuthRequests  int `toml:"auth_requests"`
	AuthWindowSec int `toml:"auth_window_sec"`
}

type InstanceConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeoutSec: 15,
		},
		Database: DatabaseConfig{
			Path:        "data/playtrack.db",
			MetricsPath: "data/metrics.db",
		},
		Auth: AuthConfig{
			JWTSecret:      "change-me-in-production",
			TokenExpiryMin: 180, // 3h, matches what the device clients expect
		},
		Stream: StreamConfig{
			SnapshotLimit:    10,
			HeartbeatSec:     30,
			SubscriberBuffer: 16,
		},
		RateLimit: RateLimitConfig{
			AuthRequests:  30,
			AuthWindowSec: 60,
		},
		Instance: InstanceConfig{
			ID:   "local",
			Name: "playtrack-local",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
