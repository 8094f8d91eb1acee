// Package anomaly flags same-owner archive entries committed implausibly close
// together.
package anomaly

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/leadledger/internal/model"
)

// DefaultThreshold is the gap below which consecutive commits are suspicious.
const DefaultThreshold = 60 * time.Second

// Detect groups archive by owner (case-insensitive, empty owner as SYSTEM),
// orders each group by timestamp and emits one alert for every consecutive
// pair whose gap is strictly between zero and threshold. The result is derived
// from scratch on every call; alert IDs depend only on the pair's sequence
// numbers.
func Detect(archive []model.Lead, threshold time.Duration) []model.SystemAlert {
	sorted := append([]model.Lead(nil), archive...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp().Before(sorted[j].Timestamp())
	})

	groups := make(map[string][]model.Lead)
	var order []string
	for _, l := range sorted {
		owner := strings.ToLower(ownerOf(l))
		if _, ok := groups[owner]; !ok {
			order = append(order, owner)
		}
		groups[owner] = append(groups[owner], l)
	}
	sort.Strings(order)

	limit := threshold.Seconds()
	alerts := []model.SystemAlert{}
	for _, owner := range order {
		group := groups[owner]
		for i := 1; i < len(group); i++ {
			prev, cur := group[i-1], group[i]
			delta := math.Abs(cur.Timestamp().Sub(prev.Timestamp()).Seconds())
			if delta <= 0 || delta >= limit {
				continue
			}
			alerts = append(alerts, newAlert(prev, cur, delta))
		}
	}
	return alerts
}

func newAlert(prev, cur model.Lead, delta float64) model.SystemAlert {
	ts := cur.DateTime
	if ts == "" {
		ts = model.FormatTimestamp(cur.LastUpdatedAt)
	}
	return model.SystemAlert{
		ID:           AlertID(prev.SequenceNumber, cur.SequenceNumber),
		SnoPair:      fmt.Sprintf("%s & %s", prev.SequenceNumber, cur.SequenceNumber),
		Company:      cur.Company,
		Phone:        cur.Phone,
		Status:       cur.Status,
		Username:     ownerOf(cur),
		DeltaSeconds: int(math.Round(delta)),
		Timestamp:    ts,
		Rating:       cur.Rating,
		Website:      cur.Website,
		Summary:      cur.Summary,
	}
}

// AlertID is the stable identifier for the pair (prev, cur).
func AlertID(prevSno, curSno string) string {
	return fmt.Sprintf("alert-%s-%s", prevSno, curSno)
}

func ownerOf(l model.Lead) string {
	if l.OwnerUsername == "" {
		return model.SystemOwner
	}
	return l.OwnerUsername
}

// Merge applies persisted acknowledgement to fresh alerts and drops repeated
// IDs, keeping the first.
func Merge(fresh []model.SystemAlert, acknowledged map[string]bool) []model.SystemAlert {
	seen := make(map[string]bool, len(fresh))
	out := make([]model.SystemAlert, 0, len(fresh))
	for _, a := range fresh {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		a.Acknowledged = acknowledged[a.ID]
		out = append(out, a)
	}
	return out
}

// Pending returns the alerts not yet acknowledged.
func Pending(alerts []model.SystemAlert) []model.SystemAlert {
	out := []model.SystemAlert{}
	for _, a := range alerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}
