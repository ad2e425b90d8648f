package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/subseries/internal/series"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	DiffRatio float64 `toml:"diff_ratio"`
	ChunkSize int     `toml:"chunk_size"`
	// Workers is the number of groups of one chunk filtered concurrently.
	Workers   int    `toml:"workers"`
	CacheDir  string `toml:"cache_dir"`
	AwsRegion string `toml:"aws_region"`
	LogLevel  string `toml:"log_level"`
	Report    Report `toml:"report"`
}

type Report struct {
	Verbose     bool   `toml:"verbose"`
	NatsUrl     string `toml:"nats_url"`
	NatsSubject string `toml:"nats_subject"`
	SqsQueueUrl string `toml:"sqs_queue_url"`
}

func Default() Config {
	return Config{
		DiffRatio: series.DefaultDiffRatio,
		ChunkSize: series.DefaultChunkSize,
		Workers:   1,
		AwsRegion: "eu-central-1",
		LogLevel:  "info",
		Report: Report{
			NatsSubject: "subseries.progress",
		},
	}
}

// Load returns the defaults overlaid with the TOML file at path, if any.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files are fine.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if !(c.DiffRatio > 1.0) {
		return fmt.Errorf("%w: diff_ratio must be greater than 1, got %g", ErrInvalid, c.DiffRatio)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalid, c.ChunkSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalid, c.Workers)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return lvl, nil
}
