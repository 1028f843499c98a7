package core

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads and writes as "10s", "250ms"... in TOML.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Nanoseconds is the value handed to the device wait calls.
func (d Duration) Nanoseconds() uint64 {
	if d < 0 {
		return 0
	}
	return uint64(time.Duration(d).Nanoseconds())
}

/** @brief Settings of the frame submission cycle. */
type SyncConfig struct {
	/** @brief How long a single fence wait may block before it is retried. */
	FenceTimeout Duration `toml:"fence_timeout"`
	/** @brief Timeouts tolerated before giving up with ErrFenceTimeout. 0 retries forever. */
	MaxFenceRetries uint32 `toml:"max_fence_retries"`
	/** @brief Record every command graph on its own goroutine. */
	ParallelRecord bool `toml:"parallel_record"`
}

/** @brief Settings of the background upload task. */
type StreamingConfig struct {
	Workers    int `toml:"workers"`
	QueueSize  int `toml:"queue_size"`
	MaxPending int `toml:"max_pending"`
}

type Config struct {
	LogLevel  string          `toml:"log_level"`
	Sync      SyncConfig      `toml:"sync"`
	Streaming StreamingConfig `toml:"streaming"`
}

// DefaultFenceTimeout is the per-wait timeout of the prior frame fence.
const DefaultFenceTimeout = Duration(10 * time.Second)

// DefaultMaxFenceRetries bounds a stuck fence to roughly a minute before the frame loop is told about it.
const DefaultMaxFenceRetries uint32 = 6

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Sync: SyncConfig{
			FenceTimeout:    DefaultFenceTimeout,
			MaxFenceRetries: DefaultMaxFenceRetries,
			ParallelRecord:  false,
		},
		Streaming: StreamingConfig{
			Workers:    1,
			QueueSize:  64,
			MaxPending: 16,
		},
	}
}

// ParseConfig decodes TOML on top of the defaults, so partial files are fine.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		err = fmt.Errorf("failed to parse config: %w", err)
		LogError(err.Error())
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		LogError(err.Error())
		return nil, err
	}
	return cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read config %s: %w", path, err)
		LogError(err.Error())
		return nil, err
	}
	return ParseConfig(data)
}

func (c *Config) Validate() error {
	if c.Sync.FenceTimeout <= 0 {
		return fmt.Errorf("sync.fence_timeout must be positive, got %s", c.Sync.FenceTimeout)
	}
	if c.Streaming.Workers < 1 {
		return ErrNoWorkers
	}
	if c.Streaming.QueueSize < 0 {
		return ErrNegativeChannelSize
	}
	if c.Streaming.MaxPending < 1 {
		return fmt.Errorf("streaming.max_pending must be at least 1, got %d", c.Streaming.MaxPending)
	}
	return nil
}

// Marshal writes the configuration back as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
