// SPDX-License-Identifier: EPL-2.0

// Package config loads mixrec settings from a YAML file with environment
// overrides.
//
// Precedence, lowest first: Default, the YAML file, MIXREC_* variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/mix"
	"github.com/ik5/mixrec/record"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything the engine, recorder, loader and device need.
type Config struct {
	// Format is the working format shared by tracks, output and recorder.
	Format audio.Format `yaml:"format" json:"format"`

	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Recorder RecorderConfig `yaml:"recorder" json:"recorder"`
	Loader   LoaderConfig   `yaml:"loader" json:"loader"`
	Device   DeviceConfig   `yaml:"device" json:"device"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

type EngineConfig struct {
	// MaxFrames is the largest chunk rendered in one pass.
	MaxFrames int `yaml:"max_frames" json:"max_frames"`
	// ReclaimInterval paces the background reclaimer. Zero disables it.
	ReclaimInterval time.Duration `yaml:"reclaim_interval" json:"reclaim_interval"`
}

type RecorderConfig struct {
	// QueueDuration sizes the ring between the render callback and the
	// flush goroutine.
	QueueDuration time.Duration `yaml:"queue_duration" json:"queue_duration"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
	// FileType forces the container; empty picks it from the extension.
	FileType string `yaml:"file_type" json:"file_type"`
}

type LoaderConfig struct {
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

type DeviceConfig struct {
	// PeriodFrames is the requested callback size. Zero lets the backend
	// choose.
	PeriodFrames uint32 `yaml:"period_frames" json:"period_frames"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Format: audio.DefaultFormat(),
		Engine: EngineConfig{
			MaxFrames:       mix.DefaultMaxFrames,
			ReclaimInterval: mix.DefaultReclaimInterval,
		},
		Recorder: RecorderConfig{
			QueueDuration: record.DefaultQueueDuration,
			FlushInterval: record.DefaultFlushInterval,
		},
		Loader:   LoaderConfig{Concurrency: 4},
		LogLevel: "info",
	}
}

// Load reads path over Default, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Format.SampleRate = envInt("MIXREC_SAMPLE_RATE", c.Format.SampleRate)
	c.Format.Channels = envInt("MIXREC_CHANNELS", c.Format.Channels)
	c.Format.BitsPerSample = envInt("MIXREC_BITS_PER_SAMPLE", c.Format.BitsPerSample)

	c.Engine.MaxFrames = envInt("MIXREC_MAX_FRAMES", c.Engine.MaxFrames)
	c.Engine.ReclaimInterval = envDuration("MIXREC_RECLAIM_INTERVAL", c.Engine.ReclaimInterval)

	c.Recorder.QueueDuration = envDuration("MIXREC_QUEUE_DURATION", c.Recorder.QueueDuration)
	c.Recorder.FlushInterval = envDuration("MIXREC_FLUSH_INTERVAL", c.Recorder.FlushInterval)
	c.Recorder.FileType = envStr("MIXREC_FILE_TYPE", c.Recorder.FileType)

	c.Loader.Concurrency = envInt("MIXREC_LOADER_CONCURRENCY", c.Loader.Concurrency)
	c.Device.PeriodFrames = uint32(envInt("MIXREC_PERIOD_FRAMES", int(c.Device.PeriodFrames)))

	c.LogLevel = envStr("MIXREC_LOG_LEVEL", c.LogLevel)
}

// Validate reports the first problem found. Errors wrap ErrInvalidConfig,
// or audio.ErrUnsupportedFormat for the working format.
func (c *Config) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if c.Engine.MaxFrames <= 0 {
		return fmt.Errorf("%w: max_frames must be positive, got %d", ErrInvalidConfig, c.Engine.MaxFrames)
	}
	if c.Engine.ReclaimInterval < 0 {
		return fmt.Errorf("%w: reclaim_interval must not be negative, got %v", ErrInvalidConfig, c.Engine.ReclaimInterval)
	}
	if c.Recorder.QueueDuration <= 0 {
		return fmt.Errorf("%w: queue_duration must be positive, got %v", ErrInvalidConfig, c.Recorder.QueueDuration)
	}
	if c.Recorder.FlushInterval <= 0 {
		return fmt.Errorf("%w: flush_interval must be positive, got %v", ErrInvalidConfig, c.Recorder.FlushInterval)
	}
	if c.Recorder.FileType != "" {
		ft := record.FileType(c.Recorder.FileType)
		if ft != record.FileTypeWAV && ft != record.FileTypeAIFF {
			return fmt.Errorf("%w: file_type %q", ErrInvalidConfig, c.Recorder.FileType)
		}
	}
	if c.Loader.Concurrency <= 0 {
		return fmt.Errorf("%w: loader concurrency must be positive, got %d", ErrInvalidConfig, c.Loader.Concurrency)
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}

	return lvl, nil
}

// EngineOptions translates the engine section into mix options.
func (c *Config) EngineOptions() []mix.Option {
	return []mix.Option{
		mix.WithMaxFrames(c.Engine.MaxFrames),
		mix.WithReclaimInterval(c.Engine.ReclaimInterval),
	}
}

// RecorderOptions translates the recorder section into record options.
func (c *Config) RecorderOptions() []record.Option {
	frames := c.Format.DurationToFrames(c.Recorder.QueueDuration)

	return []record.Option{
		record.WithQueueFrames(int(frames)),
		record.WithFlushInterval(c.Recorder.FlushInterval),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
