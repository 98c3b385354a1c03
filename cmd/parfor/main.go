// Command parfor counts primes in a range on a threadpool, in parallel-for, job or sequential mode.
// It is a small end to end exercise of the pool and a way to compare the modes.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	var dflt Config
	_ = defaults.Set(&dflt) // static tags, can't fail

	cmd := &cobra.Command{
		Use:          "parfor",
		Short:        "Count primes in a range using a worker pool",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			logger, err := makeLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // stderr sync fails on some platforms

			for i := range cfg.Repeat {
				res, err := run(cfg, logger)
				if err != nil {
					return err
				}
				logger.Info("run completed", zap.Int("iteration", i), zap.String("mode", cfg.Mode),
					zap.Duration("elapsed", res.Elapsed), zap.Int("chunks", res.Chunks), zap.Stringer("stats", res.Stats))
				fmt.Fprintf(cmd.OutOrStdout(), "primes in [%d, %d): %d (%s, %v)\n",
					cfg.Start, cfg.End, res.Primes, cfg.Mode, res.Elapsed)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("config", "", "config file (yaml, json or toml)")
	f.Int("threads", dflt.Threads, "number of pool workers")
	f.Int("start", dflt.Start, "range start, inclusive")
	f.Int("end", dflt.End, "range end, exclusive")
	f.String("mode", dflt.Mode, "run mode: parallel, jobs or sequential")
	f.Int("chunks", dflt.Chunks, "number of jobs in jobs mode")
	f.Int("repeat", dflt.Repeat, "number of runs")
	f.String("log-level", dflt.LogLevel, "log level: debug, info, warn or error")
	_ = v.BindPFlags(f) // flags are defined above, can't fail

	v.SetEnvPrefix("PARFOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func makeLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.DisableStacktrace = true
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
