package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check credentials and run the initial sync",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Login(ctx, flagUser, flagPassword)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Logged in as %s (%s)\n", res.User.Username, res.Role)
		formatSyncReport(os.Stdout, res.Snapshot)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the pool (and, for admins, the master archive) from the sheets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		user, err := env.currentUser()
		if err != nil {
			return err
		}

		snap, err := env.Service.SyncAll(ctx, user)
		formatSyncReport(os.Stdout, snap)
		if err != nil {
			zap.L().Warn("sync incomplete", zap.Error(err))
			return err
		}
		return nil
	},
}

var snapshotJSON bool

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "List your pending leads",
	RunE:  listPartition("pool"),
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List queued follow-up and busy leads",
	RunE:  listPartition("tasks"),
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "List archived booked and declined leads",
	RunE:  listPartition("analytics"),
}

// listPartition prints one partition of the caller's snapshot without syncing.
func listPartition(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		user, err := env.currentUser()
		if err != nil {
			return err
		}

		snap := env.Service.Snapshot(ctx, user)
		leads := snap.Pool
		switch name {
		case "tasks":
			leads = snap.Tasks
		case "analytics":
			leads = snap.Analytics
		}

		if snapshotJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(leads)
		}
		if len(leads) == 0 {
			fmt.Fprintf(os.Stderr, "No leads in %s.\n", name)
			return nil
		}
		formatLeads(os.Stdout, leads)
		return nil
	}
}

func init() {
	for _, c := range []*cobra.Command{poolCmd, tasksCmd, analyticsCmd} {
		c.Flags().BoolVar(&snapshotJSON, "json", false, "print as JSON")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(loginCmd, syncCmd)
}
