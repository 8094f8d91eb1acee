// Package ledger holds the per-owner pools, the shared task queue and the
// analytics archive, keeping every lead in at most one of them.
package ledger

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadledger/internal/dedupe"
	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/normalize"
)

// DefaultKey is the storage slot for the serialized ledger. Schema changes
// bump the version suffix.
const DefaultKey = "leadledger_state_v4"

// KV is the durable storage port.
type KV interface {
	// Get returns nil with no error when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Options configures a Ledger.
type Options struct {
	Key string
	Now func() time.Time
}

// Ledger is the reconciliation store. All methods are safe for concurrent use.
type Ledger struct {
	mu        sync.Mutex
	kv        KV
	key       string
	now       func() time.Time
	state     State
	recovered bool
}

// SyncResult reports what a pool sync kept and dropped.
type SyncResult struct {
	Owner      string
	Kept       int
	Duplicates []model.Lead
}

// Open restores the ledger from kv, or initializes and persists the empty
// skeleton when nothing is stored. An unreadable document is discarded with a
// warning; Recovered reports that once.
func Open(ctx context.Context, kv KV, opts Options) (*Ledger, error) {
	l := &Ledger{kv: kv, key: opts.Key, now: opts.Now}
	if l.key == "" {
		l.key = DefaultKey
	}
	if l.now == nil {
		l.now = time.Now
	}

	raw, err := kv.Get(ctx, l.key)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: load")
	}

	if raw != nil {
		var st State
		err := json.Unmarshal(raw, &st)
		if err == nil {
			st.fill()
			l.state = st
			return l, nil
		}
		zap.L().Warn("ledger: stored state unreadable, starting empty",
			zap.String("key", l.key),
			zap.Error(eris.Wrap(model.ErrStorageCorrupt, err.Error())),
		)
		l.recovered = true
	}

	st := emptyState()
	if err := l.persist(ctx, st); err != nil {
		return nil, err
	}
	l.state = st
	return l, nil
}

// Recovered reports, once, whether Open discarded a corrupt document.
func (l *Ledger) Recovered() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.recovered
	l.recovered = false
	return r
}

func (l *Ledger) persist(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "ledger: encode")
	}
	return eris.Wrap(l.kv.Set(ctx, l.key, data), "ledger: persist")
}

// mutate applies fn to a copy of the state and swaps it in only after the
// copy is persisted.
func (l *Ledger) mutate(ctx context.Context, fn func(*State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := l.persist(ctx, next); err != nil {
		return err
	}
	l.state = next
	return nil
}

// SyncPool replaces owner's pool with incoming, minus every lead already
// queued, archived, held in another owner's pool, or repeated in the batch.
func (l *Ledger) SyncPool(ctx context.Context, owner string, incoming []model.Lead) (SyncResult, error) {
	res := SyncResult{Owner: owner}
	err := l.mutate(ctx, func(st *State) error {
		slot := poolKey(owner)
		active := cloneLeads(st.Tasks)
		for other, leads := range st.Pool {
			if other != slot {
				active = append(active, leads...)
			}
		}

		d := dedupe.Dedupe(incoming, active, st.Analytics)
		st.Pool[slot] = d.Cleaned
		st.LastSync = l.now().UTC()

		res.Kept = len(d.Cleaned)
		res.Duplicates = d.Duplicates
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}

	zap.L().Info("ledger: pool synced",
		zap.String("owner", owner),
		zap.Int("incoming", len(incoming)),
		zap.Int("kept", res.Kept),
		zap.Int("dropped", len(res.Duplicates)),
	)
	return res, nil
}

// SyncMaster merges master feed leads into the archive additively. Leads
// whose key is already archived or queued, or that repeat earlier rows of the
// batch, are skipped. Accepted leads are evicted from every pool and the
// archive is re-sorted newest first.
func (l *Ledger) SyncMaster(ctx context.Context, incoming []model.Lead) (int, error) {
	added := 0
	err := l.mutate(ctx, func(st *State) error {
		existing := normalize.NewKeySet(st.Analytics, st.Tasks)
		for _, lead := range incoming {
			if !lead.Status.IsTerminal() {
				continue
			}
			if existing.Contains(lead) {
				continue
			}
			existing.Add(lead)
			st.Analytics = append(st.Analytics, lead)
			for owner, pool := range st.Pool {
				st.Pool[owner], _ = without(pool, lead)
			}
			added++
		}

		sort.SliceStable(st.Analytics, func(i, j int) bool {
			return st.Analytics[i].LastUpdatedAt.After(st.Analytics[j].LastUpdatedAt)
		})
		st.LastSync = l.now().UTC()
		return nil
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("ledger: master synced",
		zap.Int("incoming", len(incoming)),
		zap.Int("added", added),
	)
	return added, nil
}

// Commit files lead according to its status: Booked and Declined go to the
// front of the archive, FollowUp and Busy to the front of the queue. The lead
// is first removed from every other partition. Unassigned is not a
// transition and is refused without touching state.
func (l *Ledger) Commit(ctx context.Context, owner string, lead model.Lead) (model.Lead, error) {
	if !lead.Status.IsTerminal() && !lead.Status.IsQueued() {
		return model.Lead{}, &model.ValidationError{Field: "status", Message: "select a status"}
	}
	if lead.OwnerUsername == "" {
		lead.OwnerUsername = owner
	}
	lead.Touch(l.now())

	err := l.mutate(ctx, func(st *State) error {
		for slot, pool := range st.Pool {
			st.Pool[slot], _ = without(pool, lead)
		}
		st.Tasks, _ = without(st.Tasks, lead)
		st.Analytics, _ = without(st.Analytics, lead)

		if lead.Status.IsTerminal() {
			st.Analytics = slices.Insert(st.Analytics, 0, lead)
		} else {
			st.Tasks = slices.Insert(st.Tasks, 0, lead)
		}
		return nil
	})
	if err != nil {
		return model.Lead{}, err
	}

	zap.L().Info("ledger: lead committed",
		zap.String("owner", owner),
		zap.String("id", lead.ID),
		zap.String("status", string(lead.Status)),
		zap.Strings("key", normalize.Keys(lead)),
	)
	return lead, nil
}

// Pool returns owner's pending leads.
func (l *Ledger) Pool(owner string) []model.Lead {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneLeads(l.state.Pool[poolKey(owner)])
}

// Tasks returns the queue as seen by u: everything for an admin, own leads
// for a specialist.
func (l *Ledger) Tasks(u model.User) []model.Lead {
	l.mu.Lock()
	defer l.mu.Unlock()
	if u.IsAdmin() {
		return cloneLeads(l.state.Tasks)
	}
	return ownedBy(l.state.Tasks, u.Username)
}

// Analytics returns the archive as seen by u.
func (l *Ledger) Analytics(u model.User) []model.Lead {
	l.mu.Lock()
	defer l.mu.Unlock()
	if u.IsAdmin() {
		return cloneLeads(l.state.Analytics)
	}
	return ownedBy(l.state.Analytics, u.Username)
}

// Archive returns the full, unfiltered archive.
func (l *Ledger) Archive() []model.Lead {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneLeads(l.state.Analytics)
}

// LastSync returns the time of the most recent sync.
func (l *Ledger) LastSync() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.LastSync
}

// State returns a copy of the whole document.
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone()
}

// AcknowledgeAlert records id as acknowledged. Repeated calls are no-ops.
func (l *Ledger) AcknowledgeAlert(ctx context.Context, id string) error {
	return l.mutate(ctx, func(st *State) error {
		if !slices.Contains(st.AcknowledgedAlerts, id) {
			st.AcknowledgedAlerts = append(st.AcknowledgedAlerts, id)
		}
		return nil
	})
}

// Acknowledged returns the set of acknowledged alert IDs.
func (l *Ledger) Acknowledged() map[string]bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]bool, len(l.state.AcknowledgedAlerts))
	for _, id := range l.state.AcknowledgedAlerts {
		out[id] = true
	}
	return out
}

// Wipe removes the stored document and resets to the empty skeleton.
func (l *Ledger) Wipe(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.kv.Remove(ctx, l.key); err != nil {
		return eris.Wrap(err, "ledger: wipe")
	}
	l.state = emptyState()
	zap.L().Info("ledger: wiped", zap.String("key", l.key))
	return nil
}
