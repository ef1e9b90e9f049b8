package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Observers that can be enabled for a compile.
const (
	ObserverTiming  = "timing"
	ObserverTrace   = "trace"
	ObserverLog     = "log"
	ObserverMetrics = "metrics"
	ObserverSpan    = "span"
)

var knownObservers = map[string]bool{
	ObserverTiming:  true,
	ObserverTrace:   true,
	ObserverLog:     true,
	ObserverMetrics: true,
	ObserverSpan:    true,
}

// FileNames are the config files looked up in a project root.
var FileNames = []string{"metacore.yml", "metacore.yaml"}

// Config represents the metacore configuration
type Config struct {
	Sources      SourcesConfig      `mapstructure:"sources"`
	Compile      CompileConfig      `mapstructure:"compile"`
	Store        StoreConfig        `mapstructure:"store"`
	ReferenceIDs ReferenceIDsConfig `mapstructure:"reference_ids"`
	Log          LogConfig          `mapstructure:"log"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Watch        WatchConfig        `mapstructure:"watch"`
}

// SourcesConfig says where model sources live
type SourcesConfig struct {
	Paths     []string `mapstructure:"paths"`
	Extension string   `mapstructure:"extension"`
}

// CompileConfig selects the observers attached to a compile
type CompileConfig struct {
	Observers   []string `mapstructure:"observers"`
	NetTiming   bool     `mapstructure:"net_timing"`
	TraceOutput string   `mapstructure:"trace_output"` // empty means stderr
	Top         int      `mapstructure:"top"`
}

// StoreConfig represents the element store configuration
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type ReferenceIDsConfig struct {
	Version int `mapstructure:"version"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// TelemetryConfig represents tracing export configuration. Tracing is off
// when OTLPEndpoint is empty.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
	Insecure     bool   `mapstructure:"insecure"`
}

// WatchConfig represents watch mode configuration
type WatchConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	Addr      string        `mapstructure:"metrics_addr"` // empty disables the HTTP server
	Ignore    []string      `mapstructure:"ignore"`
	Profiling bool          `mapstructure:"profiling"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sources.paths", []string{"models"})
	v.SetDefault("sources.extension", ".hcl")
	v.SetDefault("compile.observers", []string{})
	v.SetDefault("compile.net_timing", true)
	v.SetDefault("compile.trace_output", "")
	v.SetDefault("compile.top", 10)
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.path", "build/graph")
	v.SetDefault("reference_ids.version", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "metacore")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("watch.metrics_addr", "")
	v.SetDefault("watch.ignore", []string{"*.swp", "*~"})
	v.SetDefault("watch.profiling", false)
}

// Load loads the configuration. An explicit file must exist; otherwise
// metacore.yml or metacore.yaml is read from the current directory when
// present. METACORE_* environment variables override both, e.g.
// METACORE_STORE_DRIVER=sqlite.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("metacore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("METACORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetProjectRoot walks up from dir looking for a metacore config file.
func GetProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range FileNames {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a metacore project (no %s found)", FileNames[0])
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if len(cfg.Sources.Paths) == 0 {
		return errors.New("sources.paths must name at least one directory")
	}
	if !strings.HasPrefix(cfg.Sources.Extension, ".") {
		return fmt.Errorf("sources.extension must start with '.', got: %s", cfg.Sources.Extension)
	}

	for _, name := range cfg.Compile.Observers {
		if !knownObservers[name] {
			return fmt.Errorf("compile.observers: unknown observer %q", name)
		}
	}
	if cfg.Compile.Top < 0 {
		return fmt.Errorf("compile.top must not be negative, got: %d", cfg.Compile.Top)
	}

	switch cfg.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverBadger:
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", cfg.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, sqlite, badger, got: %s", cfg.Store.Driver)
	}

	if cfg.ReferenceIDs.Version <= 0 {
		return fmt.Errorf("reference_ids.version must be positive, got: %d", cfg.ReferenceIDs.Version)
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got: %s", cfg.Watch.Debounce)
	}
	return nil
}
