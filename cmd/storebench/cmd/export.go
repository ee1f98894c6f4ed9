package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/storebench/internal/common/util"
	"github.com/armadaproject/storebench/internal/storebench/reporter"
	"github.com/armadaproject/storebench/internal/storebench/resultlog"
)

func exportCmd() *cobra.Command {
	var parquetPath string
	cmd := &cobra.Command{
		Use:   "export ./results.log.gz --parquet ./results.parquet",
		Short: "Export the raw results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := resultlog.Open(args[0])
			if err != nil {
				return err
			}
			defer util.CloseResource("result log", in)

			rows, err := reporter.ExportParquet(in, parquetPath)
			if err != nil {
				return err
			}
			log.Infof("Exported %d results to %s", rows, parquetPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&parquetPath, "parquet", "", "parquet file to write")
	_ = cmd.MarkFlagRequired("parquet")
	return cmd
}
