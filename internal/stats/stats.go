// Package stats derives dashboard metrics from actioned leads.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/leadledger/internal/model"
)

// FollowUpSLA is how long a queued lead may wait before it counts as breached.
const FollowUpSLA = 24 * time.Hour

// Counts tallies leads by status.
type Counts struct {
	Total    int `json:"total"`
	Booked   int `json:"booked"`
	Declined int `json:"declined"`
	FollowUp int `json:"follow_up"`
	Busy     int `json:"busy"`
}

func (c *Counts) add(l model.Lead) {
	c.Total++
	switch l.Status {
	case model.StatusBooked:
		c.Booked++
	case model.StatusDeclined:
		c.Declined++
	case model.StatusFollowUp:
		c.FollowUp++
	case model.StatusBusy:
		c.Busy++
	}
}

// WinRate is booked over total as a rounded percentage.
func (c Counts) WinRate() int {
	if c.Total == 0 {
		return 0
	}
	return int(math.Round(float64(c.Booked) / float64(c.Total) * 100))
}

// Specialist is one owner's tally.
type Specialist struct {
	Username string `json:"username"`
	Counts
	WinRate int `json:"win_rate"`
}

// Day is one column of the weekly trend.
type Day struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Counts
}

// Breach is a queued lead past its follow-up deadline.
type Breach struct {
	Lead     model.Lead `json:"lead"`
	Deadline time.Time  `json:"deadline"`
}

// Report is the full dashboard payload.
type Report struct {
	Owner       string       `json:"owner,omitempty"`
	Global      Counts       `json:"global"`
	WinRate     int          `json:"win_rate"`
	Specialists []Specialist `json:"specialists"`
	WeeklyTrend []Day        `json:"weekly_trend"`
	Breaches    []Breach     `json:"breaches"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Compute builds a report over leads. When owner is non-empty the global
// counts, trend and breaches are restricted to that owner; per-specialist
// rows always cover everyone in specialists.
func Compute(leads []model.Lead, specialists []string, owner string, now time.Time) Report {
	now = now.UTC()
	filtered := leads
	if owner != "" {
		filtered = byOwner(leads, owner)
	}

	r := Report{
		Owner:       owner,
		WeeklyTrend: weeklyTrend(filtered, now),
		Breaches:    breaches(filtered, now),
		GeneratedAt: now,
	}
	for _, l := range filtered {
		r.Global.add(l)
	}
	r.WinRate = r.Global.WinRate()

	for _, name := range specialists {
		s := Specialist{Username: name}
		for _, l := range byOwner(leads, name) {
			s.add(l)
		}
		s.WinRate = s.Counts.WinRate()
		r.Specialists = append(r.Specialists, s)
	}
	return r
}

func byOwner(leads []model.Lead, owner string) []model.Lead {
	var out []model.Lead
	for _, l := range leads {
		if strings.EqualFold(l.OwnerUsername, owner) {
			out = append(out, l)
		}
	}
	return out
}

// WeekStart returns midnight of the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func weeklyTrend(leads []model.Lead, now time.Time) []Day {
	monday := WeekStart(now)
	days := make([]Day, 7)
	index := make(map[string]int, 7)
	for i := range days {
		d := monday.AddDate(0, 0, i)
		days[i] = Day{Date: d.Format(time.DateOnly), Weekday: d.Weekday().String()[:3]}
		index[days[i].Date] = i
	}
	for _, l := range leads {
		ts := l.Timestamp()
		if ts.IsZero() {
			continue
		}
		if i, ok := index[ts.UTC().Format(time.DateOnly)]; ok {
			days[i].add(l)
		}
	}
	return days
}

func breaches(leads []model.Lead, now time.Time) []Breach {
	var out []Breach
	for _, l := range leads {
		if !l.Status.IsQueued() {
			continue
		}
		ts := l.Timestamp()
		if ts.IsZero() {
			continue
		}
		deadline := ts.Add(FollowUpSLA)
		if now.After(deadline) {
			out = append(out, Breach{Lead: l, Deadline: deadline})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out
}
