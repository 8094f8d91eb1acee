package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadledger/internal/model"
)

// Wednesday.
var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func lead(owner string, status model.Status, at time.Time) model.Lead {
	return model.Lead{OwnerUsername: owner, Status: status, LastUpdatedAt: at}
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), WeekStart(now))
	sunday := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), WeekStart(sunday))
	monday := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, WeekStart(monday))
}

func TestCompute_CountsAndWinRate(t *testing.T) {
	leads := []model.Lead{
		lead("Kavin", model.StatusBooked, now),
		lead("Kavin", model.StatusDeclined, now),
		lead("kavin", model.StatusBooked, now),
		lead("Logesh", model.StatusFollowUp, now),
		lead("Logesh", model.StatusBusy, now),
	}

	r := Compute(leads, []string{"Kavin", "Logesh", "Bhuvanesh"}, "", now)
	assert.Equal(t, Counts{Total: 5, Booked: 2, Declined: 1, FollowUp: 1, Busy: 1}, r.Global)
	assert.Equal(t, 40, r.WinRate)

	require.Len(t, r.Specialists, 3)
	assert.Equal(t, 3, r.Specialists[0].Total)
	assert.Equal(t, 67, r.Specialists[0].WinRate)
	assert.Equal(t, 0, r.Specialists[1].WinRate)
	assert.Equal(t, 0, r.Specialists[2].Total)
	assert.Equal(t, 0, r.Specialists[2].WinRate)
}

func TestCompute_OwnerFilter(t *testing.T) {
	leads := []model.Lead{
		lead("Kavin", model.StatusBooked, now),
		lead("Logesh", model.StatusDeclined, now),
	}
	r := Compute(leads, []string{"Kavin", "Logesh"}, "Logesh", now)
	assert.Equal(t, 1, r.Global.Total)
	assert.Equal(t, 1, r.Global.Declined)
	assert.Len(t, r.Specialists, 2)
}

func TestCompute_WeeklyTrend(t *testing.T) {
	leads := []model.Lead{
		lead("Kavin", model.StatusBooked, time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)),
		lead("Kavin", model.StatusDeclined, time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)),
		lead("Kavin", model.StatusBooked, time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)),
		// Previous week, excluded.
		lead("Kavin", model.StatusBooked, time.Date(2026, 10, 11, 23, 0, 0, 0, time.UTC)),
		{OwnerUsername: "Kavin", Status: model.StatusBusy, DateTime: "2026-10-14 08:00:00"},
	}

	r := Compute(leads, nil, "", now)
	require.Len(t, r.WeeklyTrend, 7)
	assert.Equal(t, "2026-10-12", r.WeeklyTrend[0].Date)
	assert.Equal(t, "Mon", r.WeeklyTrend[0].Weekday)
	assert.Equal(t, 2, r.WeeklyTrend[0].Total)
	assert.Equal(t, 1, r.WeeklyTrend[0].Booked)
	assert.Equal(t, 1, r.WeeklyTrend[2].Busy)
	assert.Equal(t, "Sun", r.WeeklyTrend[6].Weekday)
	assert.Equal(t, 1, r.WeeklyTrend[6].Total)
}

func TestCompute_Breaches(t *testing.T) {
	leads := []model.Lead{
		lead("Kavin", model.StatusFollowUp, now.Add(-25*time.Hour)),
		lead("Kavin", model.StatusBusy, now.Add(-48*time.Hour)),
		lead("Kavin", model.StatusFollowUp, now.Add(-23*time.Hour)),
		lead("Kavin", model.StatusBooked, now.Add(-72*time.Hour)),
		{OwnerUsername: "Kavin", Status: model.StatusBusy},
	}

	r := Compute(leads, nil, "", now)
	require.Len(t, r.Breaches, 2)
	assert.Equal(t, model.StatusBusy, r.Breaches[0].Lead.Status)
	assert.Equal(t, now.Add(-24*time.Hour), r.Breaches[0].Deadline)
	assert.Equal(t, model.StatusFollowUp, r.Breaches[1].Lead.Status)
}

func TestCompute_Empty(t *testing.T) {
	r := Compute(nil, nil, "", now)
	assert.Zero(t, r.Global.Total)
	assert.Zero(t, r.WinRate)
	assert.Len(t, r.WeeklyTrend, 7)
	assert.Empty(t, r.Breaches)
}
