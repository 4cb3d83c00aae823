package corun

import (
	"os"
	"runtime"
	"sync"
	"time"

	"fortio.org/safecast"
	yaml "github.com/goccy/go-yaml"
)

// Config carries the tunables of the process-wide runtime.
type Config struct {
	// TickMicros is the sleep between manager drive passes, in
	// microseconds.
	TickMicros int `yaml:"tick_us"`
	// Workers is the number of worker-pool goroutines.
	Workers int `yaml:"workers"`
	// QueueSize is the capacity of the worker-pool queue.
	QueueSize int `yaml:"queue_size"`
}

// DefaultConfig returns the built-in tunables: a 100µs drive tick, one
// worker per CPU, and a 1024-slot pool queue.
func DefaultConfig() Config {
	return Config{
		TickMicros: 100,
		Workers:    runtime.NumCPU(),
		QueueSize:  1024,
	}
}

// LoadConfig reads YAML from path and overlays it on the defaults.
// An empty path, an unreadable file or a malformed document yields
// the defaults; out-of-range fields are clamped.
func LoadConfig(path string) Config {
	cfg := DefaultConfig()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger().Debug("corun: config file not read, using defaults", "path", path, "err", err)
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger().Error("corun: malformed config, using defaults", "path", path, "err", err)
		return DefaultConfig()
	}
	return cfg.clamped()
}

func (c Config) clamped() Config {
	d := DefaultConfig()
	if c.TickMicros <= 0 {
		c.TickMicros = d.TickMicros
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	return c
}

func (c Config) tickInterval() time.Duration {
	us, err := safecast.Conv[int32](c.TickMicros)
	if err != nil {
		us = int32(DefaultConfig().TickMicros)
	}
	return time.Duration(us) * time.Microsecond
}

var (
	configMu     sync.Mutex
	globalConfig = DefaultConfig()
)

// Configure replaces the runtime configuration. It must run before the
// manager exists, i.e. before [EnableRuntime] and before the first
// task suspends; afterwards it returns [ErrEnabled] and changes
// nothing.
func Configure(cfg Config) error {
	configMu.Lock()
	defer configMu.Unlock()
	if managerBuilt.Load() {
		return ErrEnabled
	}
	globalConfig = cfg.clamped()
	return nil
}

func currentConfig() Config {
	configMu.Lock()
	defer configMu.Unlock()
	return globalConfig
}
