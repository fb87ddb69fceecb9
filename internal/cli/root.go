// Package cli implements the goasync command line: a small driver that runs
// a synthetic workload through an async service, optionally on a cron
// schedule and with a Prometheus endpoint.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// NewRootCommand returns the goasync command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "goasync",
		Short:         "Run workloads on a fixed-size worker thread pool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")

	root.AddCommand(newRunCommand(&configFile), newConfigCommand(&configFile))
	return root
}

// bindFlags registers the configuration flags on fs and binds each one to
// its viper key. Every command binds its own viper instance.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.String("prefix", d.Pool.Prefix, "worker thread name prefix")
	fs.Int("threads", 0, "number of worker threads (0 = one per CPU)")
	fs.String("priority", d.Pool.Priority.String(), "worker thread priority: lowest, below-normal, normal, above-normal, highest")
	fs.String("shutdown-policy", d.Pool.ShutdownPolicy.String(), "fate of queued units on shutdown: drain or abandon")
	fs.Int("units", d.Workload.Units, "number of units to submit")
	fs.Duration("unit-duration", d.Workload.Duration, "time each unit sleeps")
	fs.Int("fail-every", d.Workload.FailEvery, "make every n-th unit return an error (0 = never)")
	fs.Int("panic-every", d.Workload.PanicEvery, "make every n-th unit panic (0 = never)")
	fs.String("schedule", "", "repeat the workload on a six-field cron expression")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
	fs.String("log-format", d.Log.Format, "log format: console or json")
	fs.String("metrics-addr", d.Metrics.Addr, "serve Prometheus metrics on this address")

	keys := map[string]string{
		"prefix":          "pool.prefix",
		"threads":         "pool.threads",
		"priority":        "pool.priority",
		"shutdown-policy": "pool.shutdown_policy",
		"units":           "workload.units",
		"unit-duration":   "workload.duration",
		"fail-every":      "workload.fail_every",
		"panic-every":     "workload.panic_every",
		"schedule":        "schedule",
		"log-level":       "log.level",
		"log-format":      "log.format",
		"metrics-addr":    "metrics.addr",
	}
	for flag, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func newConfigCommand(configFile *string) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(v, *configFile)
			if err != nil {
				return err
			}

			threads := "auto"
			if cfg.Pool.Threads != nil {
				threads = fmt.Sprint(*cfg.Pool.Threads)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pool.prefix=%s\n", cfg.Pool.Prefix)
			fmt.Fprintf(out, "pool.threads=%s\n", threads)
			fmt.Fprintf(out, "pool.priority=%s\n", cfg.Pool.Priority)
			fmt.Fprintf(out, "pool.shutdown_policy=%s\n", cfg.Pool.ShutdownPolicy)
			fmt.Fprintf(out, "workload.units=%d\n", cfg.Workload.Units)
			fmt.Fprintf(out, "workload.duration=%s\n", cfg.Workload.Duration)
			fmt.Fprintf(out, "workload.fail_every=%d\n", cfg.Workload.FailEvery)
			fmt.Fprintf(out, "workload.panic_every=%d\n", cfg.Workload.PanicEvery)
			fmt.Fprintf(out, "schedule=%s\n", cfg.Schedule)
			fmt.Fprintf(out, "log.level=%s\n", cfg.Log.Level)
			fmt.Fprintf(out, "log.format=%s\n", cfg.Log.Format)
			fmt.Fprintf(out, "metrics.addr=%s\n", cfg.Metrics.Addr)
			return nil
		},
	}
	bindFlags(v, cmd.Flags())
	return cmd
}
