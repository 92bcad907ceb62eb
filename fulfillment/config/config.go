// Package config assembles runtime settings from defaults, an optional YAML
// file and the environment, in that order of precedence (lowest first).
// Command-line flags are applied on top by the starter.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"order-fulfillment/fulfillment/simulator"
	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/tracing"
)

// Store drivers
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config holds every setting shared by the starter and the worker.
type Config struct {
	TemporalHost      string `yaml:"temporal_host"`
	TemporalNamespace string `yaml:"temporal_namespace"`
	TaskQueue         string `yaml:"task_queue"`

	DataDir        string `yaml:"data_dir"`
	StoreDriver    string `yaml:"store_driver"`
	StoreAtomicity string `yaml:"store_atomicity"`

	HTTPAddr    string `yaml:"http_addr"`
	UseTemporal bool   `yaml:"use_temporal"`
	LogLevel    string `yaml:"log_level"`
	MaxInFlight int    `yaml:"max_in_flight"`

	TraceExporter string `yaml:"trace_exporter"`

	Delays simulator.Delays            `yaml:"delays"`
	Stock  map[string]store.StockLevel `yaml:"stock"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		TemporalHost:      "localhost:7233",
		TemporalNamespace: "default",
		TaskQueue:         "order-task-queue",
		DataDir:           "db",
		StoreDriver:       DriverFile,
		StoreAtomicity:    string(store.AtomicityNone),
		HTTPAddr:          ":8080",
		LogLevel:          "info",
		TraceExporter:     tracing.ExporterNone,
		Delays:            simulator.DefaultDelays(),
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("TEMPORAL_HOST", &c.TemporalHost)
	str("TEMPORAL_NAMESPACE", &c.TemporalNamespace)
	str("ORDER_TASK_QUEUE", &c.TaskQueue)
	str("DATA_DIR", &c.DataDir)
	str("STORE_DRIVER", &c.StoreDriver)
	str("STORE_ATOMICITY", &c.StoreAtomicity)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("LOG_LEVEL", &c.LogLevel)
	str("TRACE_EXPORTER", &c.TraceExporter)

	if v := getenv("USE_TEMPORAL"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("USE_TEMPORAL: %w", err)
		}
		c.UseTemporal = b
	}
	if v := getenv("MAX_IN_FLIGHT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_IN_FLIGHT: %w", err)
		}
		c.MaxInFlight = n
	}
	return nil
}

// parseBool accepts the usual strconv spellings plus "yes"/"no".
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}

// Validate checks the settings that have a closed set of values.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverFile, DriverSQLite:
	default:
		return fmt.Errorf("invalid store driver %q: must be %s or %s", c.StoreDriver, DriverFile, DriverSQLite)
	}
	if _, err := c.Atomicity(); err != nil {
		return err
	}
	if c.MaxInFlight < 0 {
		return fmt.Errorf("invalid max in flight %d", c.MaxInFlight)
	}
	switch c.TraceExporter {
	case tracing.ExporterNone, tracing.ExporterStdout:
	default:
		return fmt.Errorf("invalid trace exporter %q: must be %s or %s", c.TraceExporter, tracing.ExporterNone, tracing.ExporterStdout)
	}
	return nil
}

// Atomicity returns the concurrency guarantee the stores must provide. The
// SQLite driver is always transactional.
func (c Config) Atomicity() (store.Atomicity, error) {
	if c.StoreDriver == DriverSQLite {
		return store.AtomicityTransactional, nil
	}
	a, err := store.ParseAtomicity(c.StoreAtomicity)
	if err != nil {
		return "", err
	}
	if a == store.AtomicityTransactional {
		return "", fmt.Errorf("atomicity %q requires the %s driver", a, DriverSQLite)
	}
	return a, nil
}

// InventoryPath is the inventory table file of the file driver.
func (c Config) InventoryPath() string { return filepath.Join(c.DataDir, "inventory.json") }

// OrdersPath is the orders table file of the file driver.
func (c Config) OrdersPath() string { return filepath.Join(c.DataDir, "state.json") }

// DatabasePath is the database file of the sqlite driver.
func (c Config) DatabasePath() string { return filepath.Join(c.DataDir, "fulfillment.db") }
