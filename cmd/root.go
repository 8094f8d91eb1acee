package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadledger/internal/config"
)

var cfg *config.Config

var (
	flagUser     string
	flagPassword string
)

var rootCmd = &cobra.Command{
	Use:   "leadledger",
	Short: "Lead reconciliation ledger for sales specialists",
	Long:  "Syncs specialist spreadsheets into per-owner pools, files committed leads into the task queue or analytics archive, and flags implausibly fast commits.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		credentialsFromEnv()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "allow-listed username (env LEADLEDGER_USER)")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "password", "", "password for --user (env LEADLEDGER_PASSWORD)")
}

// credentialsFromEnv fills credentials not given as flags.
func credentialsFromEnv() {
	if flagUser == "" {
		flagUser = os.Getenv("LEADLEDGER_USER")
	}
	if flagPassword == "" {
		flagPassword = os.Getenv("LEADLEDGER_PASSWORD")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
