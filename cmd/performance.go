package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/performance"
	"github.com/clark-group/brokerage-cli/internal/report"
)

var (
	perfDate        string
	perfConsultants []int64
	perfExportOut   string
)

var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Monthly sales performance matrix",
}

var performanceCalcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate and persist performance snapshots for one month",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		date := time.Now().UTC()
		if perfDate != "" {
			var err error
			date, err = time.Parse("2006-01-02", perfDate)
			if err != nil {
				return eris.Wrap(err, "parse --date")
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		populator := initPopulator(st)
		if _, err := populator.Call(ctx, date, perfConsultants, nil); err != nil {
			return err
		}
		zap.L().Info("performance snapshots written",
			zap.Time("month", date),
			zap.Int64s("consultant_ids", perfConsultants))
		return nil
	},
}

var performanceBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fill missing monthly snapshots from the configured epoch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		epoch, err := cfg.Performance.EpochDate()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		backfiller := performance.NewBackfiller(initPopulator(st), st, st, epoch, cfg.Performance.AlgoVersion)
		if err := backfiller.Call(ctx); err != nil {
			return err
		}
		zap.L().Info("backfill complete", zap.Time("epoch", epoch))
		return nil
	},
}

var performanceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all snapshots of the configured algo version to xlsx",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snaps, err := st.Snapshots(ctx, cfg.Performance.AlgoVersion)
		if err != nil {
			return err
		}

		out := perfExportOut
		if out == "" {
			out = report.ExportFilename("performance", time.Now().UTC())
		}
		if err := report.ExportSnapshots(out, snaps, performance.DefaultBuckets()); err != nil {
			return err
		}
		zap.L().Info("snapshots exported",
			zap.String("path", out),
			zap.Int("rows", len(snaps)))
		return nil
	},
}

func init() {
	performanceCalcCmd.Flags().StringVar(&perfDate, "date", "", "calculation date YYYY-MM-DD (default today)")
	performanceCalcCmd.Flags().Int64SliceVar(&perfConsultants, "consultant", nil, "restrict to specific consultant ids")
	performanceExportCmd.Flags().StringVar(&perfExportOut, "out", "", "output file (default performance-YYYY-MM.xlsx)")

	performanceCmd.AddCommand(performanceCalcCmd)
	performanceCmd.AddCommand(performanceBackfillCmd)
	performanceCmd.AddCommand(performanceExportCmd)
	rootCmd.AddCommand(performanceCmd)
}
