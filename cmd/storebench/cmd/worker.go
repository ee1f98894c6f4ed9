package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/weaveworks/promrus"
	"golang.org/x/sync/errgroup"

	"github.com/armadaproject/storebench/internal/common/app"
	"github.com/armadaproject/storebench/internal/common/serve"
	"github.com/armadaproject/storebench/internal/common/util"
	"github.com/armadaproject/storebench/internal/storebench/configuration"
	"github.com/armadaproject/storebench/internal/storebench/master"
	"github.com/armadaproject/storebench/internal/storebench/queue"
	"github.com/armadaproject/storebench/internal/storebench/worker"
)

func workerCmd() *cobra.Command {
	var tubeConcurrency int
	cmd := &cobra.Command{
		Use:   "worker --tube-concurrency 4",
		Short: "Execute storage jobs handed out by run-scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.CreateContextWithShutdown()
			defer cancel()
			return runWorker(ctx, config, tubeConcurrency)
		},
	}
	cmd.Flags().IntVar(&tubeConcurrency, "tube-concurrency", 1, "user count of the scenarios to serve")
	cmd.Flags().Int("concurrency", 0, "jobs executed in parallel")
	cmd.Flags().String("worker-id", "", "name reported with every result (default host name plus a ULID)")
	cmd.Flags().Uint16("metrics-port", 0, "port to serve prometheus metrics on")
	cmd.Flags().Uint("max-retries", 0, "retries of a failed storage operation")
	cmd.Flags().String("storage", "", "object store to run against (s3 or memory)")
	cmd.Flags().String("endpoint", "", "object store endpoint")
	cmd.Flags().String("container-prefix", "", "prefix added to every container name")
	return cmd
}

func runWorker(ctx context.Context, config configuration.StorebenchConfig, tubeConcurrency int) error {
	if tubeConcurrency < 1 {
		return errors.Errorf("tube concurrency must be positive, got %d", tubeConcurrency)
	}
	workerID := config.Worker.WorkerId
	if workerID == "" {
		workerID = util.DefaultWorkerID()
	}

	store, err := newObjectStore(ctx, config.Storage)
	if err != nil {
		return err
	}
	client, err := config.Redis.NewClient()
	if err != nil {
		return err
	}
	q := queue.NewRedisQueue(client, config.Tubes.KeyPrefix)
	q.SetTimeToRun(config.Tubes.TimeToRun)
	defer util.CloseResource("redis", q)

	hook, err := promrus.NewPrometheusHook()
	if err != nil {
		return errors.WithStack(err)
	}
	log.AddHook(hook)
	metrics := worker.NewMetrics(prometheus.DefaultRegisterer)
	executor := worker.NewExecutor(store, workerID, worker.RetryConfig{
		MaxRetries: config.Worker.MaxRetries,
		BaseDelay:  config.Worker.RetryBaseDelay,
		MaxDelay:   config.Worker.RetryMaxDelay,
	}, metrics)
	w := worker.New(q, executor, worker.Config{
		Concurrency:    config.Worker.Concurrency,
		WorkTube:       master.WorkTube(config.Tubes.WorkPrefix, tubeConcurrency),
		StatsTube:      config.Tubes.StatsTube,
		BatchSize:      config.Worker.BatchSize,
		BatchTimeout:   config.Worker.BatchTimeout,
		ReserveTimeout: config.Worker.ReserveTimeout,
	}, metrics)

	log.Infof("Worker %s starting against %s storage", workerID, config.Storage.Type)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(ctx)
	})
	if config.Worker.MetricsPort > 0 {
		g.Go(func() error {
			return serve.ListenAndServe(ctx, serve.NewMetricsServer(config.Worker.MetricsPort, prometheus.DefaultGatherer))
		})
	}
	err = g.Wait()
	logStoreContents(store)
	return err
}

// logStoreContents reports what an in-memory store still holds when the worker stops.
func logStoreContents(store worker.ObjectStore) {
	memory, ok := store.(*worker.MemoryStore)
	if !ok {
		return
	}
	for container, names := range memory.Snapshot() {
		log.WithFields(log.Fields{
			"container": container,
			"objects":   len(names),
		}).Info("memory store contents at shutdown")
	}
}

func newObjectStore(ctx context.Context, c configuration.StorageConfig) (worker.ObjectStore, error) {
	switch c.Type {
	case "memory":
		store := worker.NewMemoryStore()
		store.Latency = c.MemoryLatency
		return store, nil
	case "s3":
		return worker.NewS3Store(ctx, worker.S3Config{
			Endpoint:        c.Endpoint,
			Region:          c.Region,
			AccessKeyID:     c.AccessKeyId,
			SecretAccessKey: c.SecretAccessKey,
			ContainerPrefix: c.ContainerPrefix,
			UsePathStyle:    c.UsePathStyle,
		})
	}
	return nil, errors.Errorf("unknown storage type %q", c.Type)
}
