package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadledger/internal/model"
)

var (
	commitStatus  string
	commitSummary string
	commitSuggest bool
)

var commitCmd = &cobra.Command{
	Use:   "commit <lead-id|sno>",
	Short: "File a lead as booked, declined, follow up or busy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		lead, ok := findLead(env.Service.Snapshot(ctx, user), args[0])
		if !ok {
			return eris.Errorf("lead %q not found in your pool or tasks", args[0])
		}

		status, ok := model.ParseStatus(commitStatus)
		if !ok {
			return &model.ValidationError{Field: "status", Message: "select a status"}
		}
		lead.Status = status

		if commitSummary != "" {
			lead.Summary = commitSummary
		}
		if commitSuggest && strings.TrimSpace(lead.Summary) == "" {
			lead.Summary = env.Service.Summarize(ctx, lead.Company, lead.Category)
			fmt.Fprintf(os.Stdout, "Suggested summary: %s\n", lead.Summary)
		}

		snap, err := env.Service.Commit(ctx, user, lead)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Committed %s (%s) as %s\n", lead.Company, lead.ID, lead.Status)
		fmt.Fprintf(os.Stdout, "%d pool, %d tasks, %d analytics\n", len(snap.Pool), len(snap.Tasks), len(snap.Analytics))
		return nil
	},
}

// findLead looks a lead up by ID, then by sequence number, in the pool and
// then the task queue.
func findLead(snap model.Snapshot, ref string) (model.Lead, bool) {
	for _, leads := range [][]model.Lead{snap.Pool, snap.Tasks} {
		for _, l := range leads {
			if l.ID == ref {
				return l, true
			}
		}
	}
	for _, leads := range [][]model.Lead{snap.Pool, snap.Tasks} {
		for _, l := range leads {
			if l.SequenceNumber == ref {
				return l, true
			}
		}
	}
	return model.Lead{}, false
}

func init() {
	commitCmd.Flags().StringVar(&commitStatus, "status", "", "booked, declined, follow up or busy")
	commitCmd.Flags().StringVar(&commitSummary, "summary", "", "commit note (at least 3 characters)")
	commitCmd.Flags().BoolVar(&commitSuggest, "suggest", false, "generate a summary when none is given")
	rootCmd.AddCommand(commitCmd)
}
