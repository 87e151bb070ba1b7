package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"beproxy/backend"
)

// serverConfig describes one backend address, the unit cobra's run command
// fans out into client.ThreadPool registrations.
type serverConfig struct {
	Addr string `mapstructure:"addr"`
}

// appConfig is the top-level shape loaded from beproxyd.yaml/env, mirroring
// backend.Tunables' mapstructure tags so both load from the same keys.
type appConfig struct {
	Servers     []serverConfig  `mapstructure:"servers"`
	Threads     int32           `mapstructure:"threads"`
	MetricsAddr string          `mapstructure:"metrics_addr"`
	Tunables    backend.Tunables `mapstructure:"tunables"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Threads:     1,
		MetricsAddr: ":9090",
		Tunables:    backend.DefaultTunables(),
	}
}

// loadConfig reads beproxyd.yaml (if present) from the given path plus
// BEPROXY_-prefixed environment overrides, falling back to defaults for
// anything unset.
func loadConfig(configPath string) (appConfig, error) {
	cfg := defaultAppConfig()

	v := viper.New()
	v.SetEnvPrefix("beproxy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("threads", cfg.Threads)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("tunables.connect_timeout", cfg.Tunables.ConnectTimeout)
	v.SetDefault("tunables.read_timeout", cfg.Tunables.ReadTimeout)
	v.SetDefault("tunables.retry_interval", cfg.Tunables.RetryInterval)
	v.SetDefault("tunables.backend_failure_limit", cfg.Tunables.BackendFailureLimit)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("beproxyd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/beproxyd")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return cfg, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Tunables.ConnectTimeout == 0 {
		cfg.Tunables.ConnectTimeout = 2 * time.Second
	}
	if cfg.Tunables.ReadTimeout == 0 {
		cfg.Tunables.ReadTimeout = 2 * time.Second
	}
	if cfg.Tunables.RetryInterval == 0 {
		cfg.Tunables.RetryInterval = time.Second
	}
	if cfg.Tunables.BackendFailureLimit == 0 {
		cfg.Tunables.BackendFailureLimit = 3
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	return cfg, nil
}
