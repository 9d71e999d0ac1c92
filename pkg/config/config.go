// Package config loads the benchmark configuration for cmd/bench.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/i5heu/dataqueue/internal/testbench"
)

// Concurrency is an alias for testbench.Config. This allows other programs to
// import the run configuration without pulling in the entire testbench package.
type Concurrency = testbench.Config

// Config describes one benchmark session.
type Config struct {
	// Capacity is the maxCapacity every queue under test is created with.
	Capacity int `yaml:"capacity"`
	// Iterations per concurrency setting.
	Iterations int `yaml:"iterations"`
	// Duration of each timed run.
	Duration time.Duration `yaml:"duration"`
	// CPUs lists GOMAXPROCS values to test. Empty means the common values up to runtime.NumCPU().
	CPUs        []int         `yaml:"cpus"`
	Concurrency []Concurrency `yaml:"concurrency"`
}

// HighConcurrency are the extra settings enabled by -high-concurrency.
var HighConcurrency = []Concurrency{
	{NumProducers: 100, NumConsumers: 100},
	{NumProducers: 250, NumConsumers: 250},
	{NumProducers: 500, NumConsumers: 500},
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Capacity:   1024,
		Iterations: 5,
		Duration:   5 * time.Second,
		Concurrency: []Concurrency{
			{NumProducers: 2, NumConsumers: 2},
			{NumProducers: 10, NumConsumers: 10},
			{NumProducers: 50, NumConsumers: 50},
		},
	}
}

// Load reads a YAML file on top of Default. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %q", path)
	}
	return cfg, nil
}

// Validate rejects settings the bench cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Capacity < 1:
		return errors.Errorf("capacity must be positive, got %d", c.Capacity)
	case c.Iterations < 1:
		return errors.Errorf("iterations must be positive, got %d", c.Iterations)
	case c.Duration <= 0:
		return errors.Errorf("duration must be positive, got %s", c.Duration)
	case len(c.Concurrency) == 0:
		return errors.New("at least one concurrency setting is required")
	}
	for _, cpu := range c.CPUs {
		if cpu < 1 {
			return errors.Errorf("cpu count must be positive, got %d", cpu)
		}
	}
	for i, cc := range c.Concurrency {
		if cc.NumProducers < 1 || cc.NumConsumers < 1 {
			return errors.Errorf("concurrency[%d]: producers and consumers must be positive, got %d/%d",
				i, cc.NumProducers, cc.NumConsumers)
		}
	}
	return nil
}
