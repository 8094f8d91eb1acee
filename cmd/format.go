package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/stats"
)

// truncate shortens s to n runes with a trailing ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatLeads writes a tabular list of leads to out.
func formatLeads(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SNO\tCOMPANY\tPHONE\tRATING\tTYPE\tSTATUS\tOWNER\tUPDATED")
	_, _ = fmt.Fprintln(w, "---\t-------\t-----\t------\t----\t------\t-----\t-------")

	for _, l := range leads {
		updated := ""
		if ts := l.Timestamp(); !ts.IsZero() {
			updated = ts.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.SequenceNumber,
			truncate(l.Company, 30),
			l.Phone,
			l.Rating,
			truncate(l.Category, 20),
			l.Status,
			l.OwnerUsername,
			updated,
		)
	}
	_ = w.Flush()
}

// formatAlerts writes alerts to out. Unacknowledged rows are highlighted.
func formatAlerts(out io.Writer, alerts []model.SystemAlert, threshold time.Duration) {
	pending := color.New(color.FgRed, color.Bold).SprintFunc()
	seen := color.New(color.FgHiBlack).SprintFunc()

	_, _ = fmt.Fprintf(out, "Threshold: %s\n", threshold)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSNO PAIR\tOWNER\tDELTA\tCOMPANY\tSTATUS\tSTATE")
	_, _ = fmt.Fprintln(w, "--\t--------\t-----\t-----\t-------\t------\t-----")

	for _, a := range alerts {
		state := pending("PENDING")
		if a.Acknowledged {
			state = seen("ACKED")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%ds\t%s\t%s\t%s\n",
			a.ID,
			a.SnoPair,
			a.Username,
			a.DeltaSeconds,
			truncate(a.Company, 30),
			a.Status,
			state,
		)
	}
	_ = w.Flush()
}

// formatSyncReport summarises a sync pass.
func formatSyncReport(out io.Writer, snap model.Snapshot) {
	rep := snap.Sync
	if rep == nil {
		return
	}
	_, _ = fmt.Fprintf(out, "Sync %s\n", rep.ID)
	_, _ = fmt.Fprintf(out, "  pool:    %d fetched, %d kept\n", rep.PoolFetched, rep.PoolKept)
	if snap.User.IsAdmin() {
		_, _ = fmt.Fprintf(out, "  master:  %d added to archive\n", rep.MasterAdded)
	}
	_, _ = fmt.Fprintf(out, "  totals:  %d pool, %d tasks, %d analytics\n", len(snap.Pool), len(snap.Tasks), len(snap.Analytics))

	pending := 0
	for _, a := range snap.Alerts {
		if !a.Acknowledged {
			pending++
		}
	}
	if pending > 0 {
		_, _ = fmt.Fprintln(out, color.YellowString("  alerts:  %d pending", pending))
	}
	for name, msg := range rep.Errors {
		_, _ = fmt.Fprintln(out, color.RedString("  sync disrupted: %s: %s", name, msg))
	}
}

// formatStats writes the dashboard report.
func formatStats(out io.Writer, r stats.Report) {
	g := r.Global
	_, _ = fmt.Fprintf(out, "Total %d  booked %d  declined %d  follow up %d  busy %d  win rate %d%%\n\n",
		g.Total, g.Booked, g.Declined, g.FollowUp, g.Busy, r.WinRate)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DAY\tDATE\tTOTAL\tBOOKED\tDECLINED\tFOLLOW UP\tBUSY")
	for _, d := range r.WeeklyTrend {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			d.Weekday, d.Date, d.Total, d.Booked, d.Declined, d.FollowUp, d.Busy)
	}
	_ = w.Flush()

	if len(r.Specialists) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "SPECIALIST\tTOTAL\tBOOKED\tWIN RATE")
		for _, s := range r.Specialists {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d%%\n", s.Username, s.Total, s.Booked, s.WinRate)
		}
		_ = w.Flush()
	}

	if len(r.Breaches) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, color.RedString("Follow-up SLA breached: %d", len(r.Breaches)))
		for _, b := range r.Breaches {
			_, _ = fmt.Fprintf(out, "  %s (%s) due %s\n",
				b.Lead.Company, b.Lead.OwnerUsername, b.Deadline.Format("2006-01-02 15:04"))
		}
	}
}
