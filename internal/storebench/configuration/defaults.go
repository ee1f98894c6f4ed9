package configuration

import (
	"github.com/spf13/viper"
)

// SetDefaults registers the default value of every setting with viper. Flags, environment and config
// files override them.
func SetDefaults() {
	defaults := map[string]interface{}{
		"logging.level":            "info",
		"redis.addrs":              []string{"localhost:6379"},
		"redis.poolSize":           100,
		"tubes.keyPrefix":          "storebench:",
		"tubes.statsTube":          "stats_results",
		"tubes.workPrefix":         "work_",
		"tubes.timeToRun":          "300s",
		"master.setupTimeout":      "600s",
		"master.resultTimeout":     "600s",
		"master.percentile":        95.0,
		"master.window":            0,
		"master.cleanup":           true,
		"master.deleteContainers":  false,
		"master.progressEvery":     1000,
		"worker.concurrency":       10,
		"worker.maxRetries":        5,
		"worker.retryBaseDelay":    "100ms",
		"worker.retryMaxDelay":     "10s",
		"worker.batchSize":         50,
		"worker.batchTimeout":      "1s",
		"worker.reserveTimeout":    "1s",
		"worker.metricsPort":       9001,
		"storage.type":             "s3",
		"storage.region":           "us-east-1",
		"storage.usePathStyle":     true,
		"resultLog.flushThreshold": 1024 * 1024,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}
