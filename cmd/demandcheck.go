package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/model"
)

var (
	dcMandateID   int64
	dcAnswersFile string
)

var demandcheckCmd = &cobra.Command{
	Use:   "demandcheck",
	Short: "Demand-check questionnaire and recommendation engine",
}

var demandcheckAnswerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Record questionnaire answers for a mandate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(dcAnswersFile)
		if err != nil {
			return eris.Wrap(err, "read answers file")
		}
		var answers []model.QuestionAnswer
		if err := json.Unmarshal(data, &answers); err != nil {
			return eris.Wrap(err, "parse answers file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		responses, err := initResponseBuilder(st)
		if err != nil {
			return err
		}
		if err := responses.AnswerQuestionnaire(ctx, dcMandateID, answers); err != nil {
			return err
		}
		zap.L().Info("answers recorded",
			zap.Int64("mandate_id", dcMandateID),
			zap.Int("count", len(answers)))
		return nil
	},
}

var demandcheckFinishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Finalize the questionnaire and rebuild recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		responses, err := initResponseBuilder(st)
		if err != nil {
			return err
		}
		if err := responses.Finalize(ctx, dcMandateID); err != nil {
			return err
		}

		builder, err := initRecommendationBuilder(st)
		if err != nil {
			return err
		}
		recs, err := builder.ApplyRules(ctx, dcMandateID)
		if err != nil {
			return err
		}
		zap.L().Info("recommendations rebuilt",
			zap.Int64("mandate_id", dcMandateID),
			zap.Int("count", len(recs)))
		return nil
	},
}

var demandcheckRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rebuild recommendations from current answers and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		builder, err := initRecommendationBuilder(st)
		if err != nil {
			return err
		}
		recs, err := builder.ApplyRules(ctx, dcMandateID)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(recs)
	},
}

func init() {
	demandcheckCmd.PersistentFlags().Int64Var(&dcMandateID, "mandate", 0, "mandate id")
	demandcheckCmd.MarkPersistentFlagRequired("mandate")

	demandcheckAnswerCmd.Flags().StringVar(&dcAnswersFile, "file", "", "JSON file with question answers")
	demandcheckAnswerCmd.MarkFlagRequired("file")

	demandcheckCmd.AddCommand(demandcheckAnswerCmd)
	demandcheckCmd.AddCommand(demandcheckFinishCmd)
	demandcheckCmd.AddCommand(demandcheckRecommendCmd)
	rootCmd.AddCommand(demandcheckCmd)
}
