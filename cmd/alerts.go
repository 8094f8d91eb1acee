package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadledger/internal/anomaly"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and acknowledge commit-timing anomalies (admin)",
}

var (
	alertsThreshold time.Duration
	alertsPending   bool
	alertsNotify    bool
)

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List anomalies over the analytics archive",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := env.requireAdmin(); err != nil {
			return err
		}
		if alertsThreshold > 0 {
			if err := env.Service.SetThreshold(alertsThreshold); err != nil {
				return err
			}
		}

		alerts := env.Service.Alerts(ctx)
		if alertsPending {
			alerts = anomaly.Pending(alerts)
		}
		if len(alerts) == 0 {
			fmt.Fprintln(os.Stderr, "No anomalies.")
			return nil
		}
		formatAlerts(os.Stdout, alerts, env.Service.Threshold())

		if alertsNotify {
			obs, err := collectorFor(env).Collect(ctx)
			if err != nil {
				return err
			}
			sent := env.Alerter.Notify(ctx, obs)
			fmt.Fprintf(os.Stdout, "%d alert(s) sent to webhook\n", sent)
		}
		return nil
	},
}

var alertsAckCmd = &cobra.Command{
	Use:   "ack <alert-id>...",
	Short: "Acknowledge one or more anomalies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := env.requireAdmin(); err != nil {
			return err
		}
		for _, id := range args {
			if err := env.Service.AcknowledgeAlert(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Acknowledged %s\n", id)
		}
		return nil
	},
}

func init() {
	alertsListCmd.Flags().DurationVar(&alertsThreshold, "threshold", 0, "override the anomaly threshold (e.g. 90s)")
	alertsListCmd.Flags().BoolVar(&alertsPending, "pending", false, "only unacknowledged anomalies")
	alertsListCmd.Flags().BoolVar(&alertsNotify, "notify", false, "post pending anomalies to alerts.webhook_url")
	alertsCmd.AddCommand(alertsListCmd, alertsAckCmd)
	rootCmd.AddCommand(alertsCmd)
}
