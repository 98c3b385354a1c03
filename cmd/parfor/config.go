package main

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

// run modes
const (
	modeParallel   = "parallel"
	modeSequential = "sequential"
	modeJobs       = "jobs"
)

// Config is the parfor configuration. Values come from flags, PARFOR_* env, an optional
// config file and the defaults below, in that order of priority.
type Config struct {
	Threads  int    `mapstructure:"threads" default:"4"`
	Start    int    `mapstructure:"start" default:"0"`
	End      int    `mapstructure:"end" default:"200000"`
	Mode     string `mapstructure:"mode" default:"parallel"`
	Chunks   int    `mapstructure:"chunks" default:"64"` // jobs mode only
	Repeat   int    `mapstructure:"repeat" default:"1"`
	LogLevel string `mapstructure:"log-level" default:"info"`
}

// loadConfig reads the optional config file and unmarshals all sources into Config
func loadConfig(v *viper.Viper) (Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("set defaults: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Mode {
	case modeParallel, modeSequential, modeJobs:
	default:
		return fmt.Errorf("unknown mode %q, expected %s, %s or %s", c.Mode, modeParallel, modeSequential, modeJobs)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.Chunks < 1 {
		return fmt.Errorf("chunks must be positive, got %d", c.Chunks)
	}
	if c.Repeat < 1 {
		return fmt.Errorf("repeat must be positive, got %d", c.Repeat)
	}
	return nil
}
