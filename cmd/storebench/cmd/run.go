package cmd

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/storebench/internal/common/app"
	"github.com/armadaproject/storebench/internal/common/util"
	"github.com/armadaproject/storebench/internal/storebench/master"
	"github.com/armadaproject/storebench/internal/storebench/queue"
	"github.com/armadaproject/storebench/internal/storebench/resultlog"
	"github.com/armadaproject/storebench/internal/storebench/scenario"
)

func runScenarioCmd() *cobra.Command {
	var (
		scenarioPath string
		outputPath   string
		noCleanup    bool
	)
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "run-scenario -f ./scenario.yaml -o ./results.log.gz",
		Short: "Run a scenario against the workers and report on it",
		Long: `Run a scenario against the workers and report on it.

Workers must be started with --tube-concurrency equal to the scenario's user_count.

Example scenario.yaml:

name: Small test scenario
user_count: 4
operation_count: 500
initial_files:
  tiny: 100
  small: 10
crud_profile: [6, 3, 1, 1]
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			ctx, cancel := app.CreateContextWithShutdown()
			defer cancel()

			client, err := config.Redis.NewClient()
			if err != nil {
				return err
			}
			q := queue.NewRedisQueue(client, config.Tubes.KeyPrefix)
			q.SetTimeToRun(config.Tubes.TimeToRun)
			defer util.CloseResource("redis", q)

			out, err := resultlog.Create(outputPath, sc, config.ResultLog.FlushThreshold)
			if err != nil {
				return err
			}

			m := master.New(q, master.Config{
				StatsTube:        config.Tubes.StatsTube,
				WorkPrefix:       config.Tubes.WorkPrefix,
				SetupTimeout:     config.Master.SetupTimeout,
				ResultTimeout:    config.Master.ResultTimeout,
				Window:           config.Master.Window,
				Cleanup:          config.Master.Cleanup && !noCleanup,
				DeleteContainers: config.Master.DeleteContainers,
				ProgressEvery:    config.Master.ProgressEvery,
			})
			log.Infof("Running %q, workers must watch %s", sc.Name(), master.WorkTube(config.Tubes.WorkPrefix, sc.UserCount()))
			summary, runErr := m.RunScenario(ctx, sc, out)
			if err := out.Finalize(); err != nil {
				return err
			}
			var incomplete *master.ErrIncompleteRun
			if runErr != nil && !errors.As(runErr, &incomplete) {
				return runErr
			}
			if incomplete != nil {
				log.WithError(runErr).Warn("Reporting on the results that did arrive")
			}
			log.Infof("Queued %d jobs, skipped %d, gathered %d results with %d errors in %s",
				summary.Queued, summary.Skipped, summary.Gathered, summary.Errors, summary.Duration)
			log.Infof("Results written to %s", out.Path())

			return writeReports(outputPath, config.Master.Percentile, opts)
		},
	}
	cmd.Flags().StringVarP(&scenarioPath, "scenario", "f", "", "scenario file, YAML or JSON")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "result log to write, gzip compressed when it ends in .gz")
	cmd.Flags().BoolVar(&noCleanup, "no-cleanup", false, "leave the objects created during the run in place")
	cmd.Flags().Int("window", 0, "maximum work jobs in flight (default four per user)")
	opts.addFlags(cmd)
	_ = cmd.MarkFlagRequired("scenario")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
