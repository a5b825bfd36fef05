package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/report"
)

var occupationsFile string

var occupationsCmd = &cobra.Command{
	Use:   "occupations",
	Short: "Occupation catalogue for BU/DU recommendations",
}

var occupationsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an occupation catalogue spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		occupations, err := report.ReadOccupations(occupationsFile)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.UpsertOccupations(ctx, occupations)
		if err != nil {
			return err
		}
		zap.L().Info("occupation catalogue imported",
			zap.String("file", occupationsFile),
			zap.Int("parsed", len(occupations)),
			zap.Int64("upserted", n))
		return nil
	},
}

func init() {
	occupationsImportCmd.Flags().StringVar(&occupationsFile, "file", "", "xlsx catalogue file")
	occupationsImportCmd.MarkFlagRequired("file")

	occupationsCmd.AddCommand(occupationsImportCmd)
	rootCmd.AddCommand(occupationsCmd)
}
