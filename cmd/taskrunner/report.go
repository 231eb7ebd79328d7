package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taskops/taskrunner/pkg/salesreport"
)

func newReportCmd() *cobra.Command {
	var (
		inputPath string
		dbPath    string
		chunkSize int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate a transactions CSV into the sales report database",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(inputPath)
			if err != nil {
				return errors.Wrapf(err, "open %s", inputPath)
			}
			defer file.Close()

			summary, err := salesreport.NewAggregator(chunkSize).Process(cmd.Context(), file)
			if err != nil {
				return err
			}

			store, err := salesreport.OpenStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Save(cmd.Context(), summary); err != nil {
				return err
			}

			log.Info().
				Int("rows", summary.RowCount).
				Int("regions", len(summary.ProductRevenue)).
				Int("anomalies", len(summary.Anomalies)).
				Str("db", dbPath).
				Msg("sales report saved")
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "transactions.csv", "transactions CSV file")
	cmd.Flags().StringVar(&dbPath, "db", "sales.sqlite", "report database path")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "rows per processing chunk (0 = default)")
	return cmd
}
