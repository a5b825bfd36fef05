package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/aoa"
)

var (
	aoaOpportunityID int64
	aoaAssign        bool
	aoaConsultantID  int64
	aoaLevel         string
	aoaCategoryIdent string
)

var aoaCmd = &cobra.Command{
	Use:   "aoa",
	Short: "Automated opportunity allocation",
}

var aoaAllocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Build the consultant selection for an opportunity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		opp, err := st.Opportunity(ctx, aoaOpportunityID)
		if err != nil {
			return err
		}

		allocation, err := initAllocator(st).Call(ctx, opp)
		if err != nil {
			return err
		}

		if aoaAssign && allocation.Cohort == aoa.CohortAoaGroup && len(allocation.AoaConsultantIDs) > 0 {
			winner := allocation.AoaConsultantIDs[0]
			if err := st.AssignConsultant(ctx, opp.ID, winner); err != nil {
				return err
			}
			zap.L().Info("opportunity assigned",
				zap.Int64("opportunity_id", opp.ID),
				zap.Int64("consultant_id", winner))
		}

		return json.NewEncoder(os.Stdout).Encode(allocation)
	},
}

var aoaLevelCmd = &cobra.Command{
	Use:   "level",
	Short: "Store a consultant's category performance level on the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		updater := aoa.NewLevelUpdater(st, cfg.Performance.AlgoVersion)
		if err := updater.Call(ctx, aoaConsultantID, aoaCategoryIdent, aoaLevel); err != nil {
			return err
		}
		zap.L().Info("performance level stored",
			zap.Int64("consultant_id", aoaConsultantID),
			zap.String("category", aoaCategoryIdent),
			zap.String("level", aoaLevel))
		return nil
	},
}

func init() {
	aoaAllocateCmd.Flags().Int64Var(&aoaOpportunityID, "opportunity", 0, "opportunity id")
	aoaAllocateCmd.Flags().BoolVar(&aoaAssign, "assign", false, "assign the top-ranked consultant to the opportunity")
	aoaAllocateCmd.MarkFlagRequired("opportunity")

	aoaLevelCmd.Flags().Int64Var(&aoaConsultantID, "consultant", 0, "consultant id")
	aoaLevelCmd.Flags().StringVar(&aoaCategoryIdent, "category", "", "category ident")
	aoaLevelCmd.Flags().StringVar(&aoaLevel, "level", "", "performance level")
	aoaLevelCmd.MarkFlagRequired("consultant")
	aoaLevelCmd.MarkFlagRequired("category")
	aoaLevelCmd.MarkFlagRequired("level")

	aoaCmd.AddCommand(aoaAllocateCmd)
	aoaCmd.AddCommand(aoaLevelCmd)
	rootCmd.AddCommand(aoaCmd)
}
