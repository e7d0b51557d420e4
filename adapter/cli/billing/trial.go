package billing

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sledgehq/sledge/adapter/cli"
)

var trialUserID int64

var trialCmd = &cobra.Command{
	Use:   "trial",
	Short: "Start the trial period for a user's subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cli.RequireApp()
		if err != nil {
			return err
		}
		if trialUserID < 1 {
			return errors.New("--user is required")
		}

		sub, err := c.SubscriptionService.StartTrialPeriod(cmd.Context(), trialUserID)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), summarize(c.SubscriptionService, sub))
		return nil
	},
}

func init() {
	trialCmd.Flags().Int64Var(&trialUserID, "user", 0, "user ID")
}
