package kernel

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config bundles every build-time-fixed limit the original sources read
// from include/template/os_config.h's compile-time macros: pool
// capacities, the tick period, and tracing/logging knobs. Grounded on
// bgp59-victoriametrics-importer's own YAML-driven config struct.
type Config struct {
	// ThreadCapacity, TimerCapacity, MutexCapacity, SemaphoreCapacity,
	// EventCapacity, and QueueCapacity size each primitive's fixed object
	// pool — the Go expression of os_config.h's KERNEL_APPLICATION_*_NUM
	// macros.
	ThreadCapacity    int `yaml:"threadCapacity"`
	TimerCapacity     int `yaml:"timerCapacity"`
	MutexCapacity     int `yaml:"mutexCapacity"`
	SemaphoreCapacity int `yaml:"semaphoreCapacity"`
	EventCapacity     int `yaml:"eventCapacity"`
	QueueCapacity     int `yaml:"queueCapacity"`

	// TickIntervalMs is the wall-clock period between scheduler ticks,
	// standing in for the original's hardware clock ISR period.
	TickIntervalMs int `yaml:"tickIntervalMs"`

	Trace struct {
		Path       string `yaml:"path"`
		MaxSizeMB  int    `yaml:"maxSizeMB"`
		MaxBackups int    `yaml:"maxBackups"`
		MaxAgeDays int    `yaml:"maxAgeDays"`
		Level      string `yaml:"level"`
	} `yaml:"trace"`
}

// DefaultConfig returns the capacities and tick period used throughout
// this repo's tests and examples.
func DefaultConfig() Config {
	c := Config{
		ThreadCapacity:    32,
		TimerCapacity:     32,
		MutexCapacity:     16,
		SemaphoreCapacity: 16,
		EventCapacity:     16,
		QueueCapacity:     16,
		TickIntervalMs:    10,
	}
	c.Trace.MaxSizeMB = 10
	c.Trace.MaxBackups = 5
	c.Trace.MaxAgeDays = 28
	c.Trace.Level = "info"
	return c
}

// LoadConfig reads and parses a YAML config file, starting from
// DefaultConfig so an omitted field keeps its default rather than zeroing
// out.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TraceConfig projects the Trace-relevant fields of Config into a
// TraceConfig.
func (c Config) TraceConfig() TraceConfig {
	tc := DefaultTraceConfig()
	tc.Path = c.Trace.Path
	if c.Trace.MaxSizeMB > 0 {
		tc.MaxSizeMB = c.Trace.MaxSizeMB
	}
	if c.Trace.MaxBackups > 0 {
		tc.MaxBackups = c.Trace.MaxBackups
	}
	if c.Trace.MaxAgeDays > 0 {
		tc.MaxAgeDays = c.Trace.MaxAgeDays
	}
	if lvl, err := logrus.ParseLevel(c.Trace.Level); err == nil {
		tc.Level = lvl
	}
	return tc
}
