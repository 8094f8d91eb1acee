// Package dedupe classifies incoming leads as unique or duplicate against the
// leads already being worked or already closed out.
package dedupe

import (
	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/normalize"
)

// Result is a stable partition of an incoming batch.
type Result struct {
	Cleaned    []model.Lead
	Duplicates []model.Lead
}

// Dedupe walks incoming once, in order. A candidate is a duplicate when any of
// its keys is already in active, archived, or an earlier unique candidate of
// the same batch. Duplicates never claim keys.
func Dedupe(incoming, active, archived []model.Lead) Result {
	archivedKeys := normalize.NewKeySet(archived)
	activeKeys := normalize.NewKeySet(active)
	batch := make(normalize.KeySet)

	res := Result{
		Cleaned:    make([]model.Lead, 0, len(incoming)),
		Duplicates: []model.Lead{},
	}
	for _, l := range incoming {
		if archivedKeys.Contains(l) || activeKeys.Contains(l) || batch.Contains(l) {
			res.Duplicates = append(res.Duplicates, l)
			continue
		}
		batch.Add(l)
		res.Cleaned = append(res.Cleaned, l)
	}
	return res
}
