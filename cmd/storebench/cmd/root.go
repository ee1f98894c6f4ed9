package cmd

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/storebench/internal/common"
	"github.com/armadaproject/storebench/internal/storebench/configuration"
)

// flagKeys maps flags onto the configuration keys they override.
var flagKeys = map[string]string{
	"redis-addr":       "redis.addrs",
	"log-level":        "logging.level",
	"window":           "master.window",
	"percentile":       "master.percentile",
	"concurrency":      "worker.concurrency",
	"worker-id":        "worker.workerId",
	"metrics-port":     "worker.metricsPort",
	"max-retries":      "worker.maxRetries",
	"storage":          "storage.type",
	"endpoint":         "storage.endpoint",
	"container-prefix": "storage.containerPrefix",
}

var (
	cfgFile string
	config  configuration.StorebenchConfig
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storebench",
		Short: "Distributed load generator for object storage clusters",
		Long: `
Distributed load generator for object storage clusters.

A master (run-scenario) turns a scenario file into storage jobs and hands them to any number of
workers through redis. Results are written to a result log which can be reported on again later.

Settings can be kept in a config file passed with --config or in $HOME/.storebench.yaml, for example:

redis:
  addrs:
    - redis.internal:6379
storage:
  type: s3
  endpoint: http://storage.internal:8080

Every setting can also be given as an environment variable, e.g. STOREBENCH_WORKER_CONCURRENCY.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configuration.SetDefaults()
			common.BindCommandlineArguments(cmd.Flags(), flagKeys)
			if cfgFile == "" {
				cfgFile = defaultConfigFile()
			}
			if err := common.LoadConfig(&config, cfgFile); err != nil {
				return err
			}
			common.ConfigureLogging(config.Logging.Level)
			return config.Validate()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	root.PersistentFlags().StringSlice("redis-addr", nil, "redis address, repeat for a cluster seed list")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		runScenarioCmd(),
		workerCmd(),
		reportCmd(),
		exportCmd(),
	)
	return root
}

// defaultConfigFile returns $HOME/.storebench.yaml if it exists.
func defaultConfigFile() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".storebench.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Execute runs the command line. It is called once by main.main().
func Execute() {
	if err := RootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
