package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsPrime(t *testing.T) {
	var primes []int
	for i := -3; i < 30; i++ {
		if isPrime(i) {
			primes = append(primes, i)
		}
	}
	assert.Equal(t, []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}, primes)
}

func TestRun(t *testing.T) {
	for _, mode := range []string{modeParallel, modeSequential, modeJobs} {
		t.Run(mode, func(t *testing.T) {
			cfg := Config{Threads: 3, Start: 0, End: 10000, Mode: mode, Chunks: 7, Repeat: 1}
			res, err := run(cfg, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, int64(1229), res.Primes)
			assert.Positive(t, res.Stats.TotalTime)
		})
	}

	t.Run("empty range", func(t *testing.T) {
		for _, mode := range []string{modeParallel, modeSequential, modeJobs} {
			res, err := run(Config{Threads: 2, Start: 10, End: 10, Mode: mode, Chunks: 4}, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, int64(0), res.Primes)
		}
	})

	t.Run("more chunks than units", func(t *testing.T) {
		res, err := run(Config{Threads: 2, Start: 0, End: 5, Mode: modeJobs, Chunks: 100}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Primes) // 2 and 3
		assert.Equal(t, 5, res.Chunks, "one unit per chunk")
	})

	t.Run("chunks counted per job", func(t *testing.T) {
		res, err := run(Config{Threads: 3, Start: 0, End: 10000, Mode: modeJobs, Chunks: 7}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 7, res.Chunks)
		assert.Equal(t, 7, res.Stats.Executed)

		res, err = run(Config{Threads: 3, Start: 0, End: 100, Mode: modeParallel}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 0, res.Chunks, "chunks are counted in jobs mode only")
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := run(Config{Threads: 1, Mode: "bad"}, zap.NewNop())
		require.Error(t, err)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig(viper.New())
		require.NoError(t, err)
		assert.Equal(t, Config{Threads: 4, Start: 0, End: 200000, Mode: modeParallel, Chunks: 64, Repeat: 1, LogLevel: "info"}, cfg)
	})

	t.Run("config file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "parfor.yaml")
		require.NoError(t, os.WriteFile(file, []byte("threads: 8\nmode: jobs\nlog-level: debug\n"), 0o600))

		v := viper.New()
		v.Set("config", file)
		cfg, err := loadConfig(v)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Threads)
		assert.Equal(t, modeJobs, cfg.Mode)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 200000, cfg.End, "unset values keep defaults")
	})

	t.Run("missing config file", func(t *testing.T) {
		v := viper.New()
		v.Set("config", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := loadConfig(v)
		require.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		for key, val := range map[string]any{"mode": "bad", "threads": 0, "chunks": -1, "repeat": 0} {
			v := viper.New()
			v.Set(key, val)
			_, err := loadConfig(v)
			assert.Error(t, err, key)
		}
	})
}

func TestRootCmd(t *testing.T) {
	t.Run("flags", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--threads=2", "--end=100", "--mode=sequential", "--log-level=error", "--repeat=2"})
		require.NoError(t, cmd.Execute())
		assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("primes in [0, 100): 25 (sequential")))
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("PARFOR_END", "30")
		t.Setenv("PARFOR_LOG_LEVEL", "error")
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "primes in [0, 30): 10 (parallel")
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv("PARFOR_MODE", "bad")
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--mode=jobs", "--end=30", "--log-level=error"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "(jobs")
	})

	t.Run("bad log level", func(t *testing.T) {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--log-level=loud", "--end=10"})
		require.Error(t, cmd.Execute())
	})
}
