package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/vnykmshr/goasync/pkg/common/validation"
	"github.com/vnykmshr/goasync/pkg/logging"
	"github.com/vnykmshr/goasync/pkg/scheduling/scheduler"
	"github.com/vnykmshr/goasync/pkg/scheduling/threadpool"
)

// EnvPrefix prefixes every environment variable read by the command line,
// e.g. GOASYNC_POOL_THREADS.
const EnvPrefix = "GOASYNC"

// Config is the complete configuration of the goasync command.
type Config struct {
	Pool     threadpool.Config `mapstructure:"pool"`
	Workload Workload          `mapstructure:"workload"`
	Log      LogConfig         `mapstructure:"log"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`

	// Schedule, when set, repeats the workload on a six-field cron
	// expression until the process is interrupted.
	Schedule string `mapstructure:"schedule"`
}

// Workload describes the synthetic units submitted by the run command.
type Workload struct {
	Units    int           `default:"100" mapstructure:"units"`
	Duration time.Duration `default:"10ms" mapstructure:"duration"`

	// FailEvery makes every n-th unit return an error. Zero disables it.
	FailEvery int `mapstructure:"fail_every"`

	// PanicEvery makes every n-th unit panic. Zero disables it.
	PanicEvery int `mapstructure:"panic_every"`
}

// LogConfig selects the zap logger installed as the library's sink.
type LogConfig struct {
	Level  string `default:"info" mapstructure:"level"`
	Format string `default:"console" mapstructure:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint. Empty disables
	// metrics.
	Addr string `mapstructure:"addr"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(err)
	}
	return c
}

// newViper returns a viper instance reading GOASYNC_* variables.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig merges the optional config file, environment and bound flags
// held by v over the defaults.
func LoadConfig(v *viper.Viper, file string) (Config, error) {
	cfg := DefaultConfig()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	// Zero threads means one per CPU.
	if cfg.Pool.Threads != nil && *cfg.Pool.Threads == 0 {
		cfg.Pool.Threads = nil
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings the pool does not check itself.
func (c Config) Validate() error {
	if err := validation.ValidatePositive("workload", "units", c.Workload.Units); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("workload", "fail_every", c.Workload.FailEvery); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("workload", "panic_every", c.Workload.PanicEvery); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return validation.ValidateOneOf("log", "level", c.Log.Level, "debug", "info", "warn", "error")
	}
	if err := validation.ValidateOneOf("log", "format", c.Log.Format, "console", "json"); err != nil {
		return err
	}
	if c.Schedule != "" {
		return scheduler.ValidateCron(c.Schedule)
	}
	return nil
}
