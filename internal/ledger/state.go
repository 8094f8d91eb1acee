package ledger

import (
	"strings"
	"time"

	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/normalize"
)

// State is the persisted ledger document.
type State struct {
	Pool               map[string][]model.Lead `json:"pool"`
	Analytics          []model.Lead            `json:"analytics"`
	Tasks              []model.Lead            `json:"tasks"`
	LastSync           time.Time               `json:"lastSync,omitzero"`
	AcknowledgedAlerts []string                `json:"acknowledgedAlerts"`
}

func emptyState() State {
	return State{
		Pool:               map[string][]model.Lead{},
		Analytics:          []model.Lead{},
		Tasks:              []model.Lead{},
		AcknowledgedAlerts: []string{},
	}
}

// fill replaces nil collections left by a sparse document.
func (s *State) fill() {
	if s.Pool == nil {
		s.Pool = map[string][]model.Lead{}
	}
	if s.Analytics == nil {
		s.Analytics = []model.Lead{}
	}
	if s.Tasks == nil {
		s.Tasks = []model.Lead{}
	}
	if s.AcknowledgedAlerts == nil {
		s.AcknowledgedAlerts = []string{}
	}
}

func (s State) clone() State {
	c := State{
		Pool:               make(map[string][]model.Lead, len(s.Pool)),
		Analytics:          cloneLeads(s.Analytics),
		Tasks:              cloneLeads(s.Tasks),
		LastSync:           s.LastSync,
		AcknowledgedAlerts: append([]string{}, s.AcknowledgedAlerts...),
	}
	for owner, leads := range s.Pool {
		c.Pool[owner] = cloneLeads(leads)
	}
	return c
}

func cloneLeads(leads []model.Lead) []model.Lead {
	return append([]model.Lead{}, leads...)
}

// poolKey is the case-insensitive slot for an owner's pool.
func poolKey(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}

// without returns leads minus every entry that is the same lead as target.
func without(leads []model.Lead, target model.Lead) ([]model.Lead, int) {
	out := make([]model.Lead, 0, len(leads))
	removed := 0
	for _, l := range leads {
		if normalize.SameLead(l, target) {
			removed++
			continue
		}
		out = append(out, l)
	}
	return out, removed
}

// ownedBy filters leads to those attributed to owner.
func ownedBy(leads []model.Lead, owner string) []model.Lead {
	out := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		if strings.EqualFold(l.OwnerUsername, owner) {
			out = append(out, l)
		}
	}
	return out
}
