package monitoring

import (
	"context"
	"time"

	"github.com/sells-group/leadledger/internal/anomaly"
	"github.com/sells-group/leadledger/internal/model"
)

// Observation holds a point-in-time view of ledger health.
type Observation struct {
	Anomalies        []model.SystemAlert `json:"anomalies"`
	SourceErrors     map[string]string   `json:"source_errors,omitempty"`
	StorageRecovered bool                `json:"storage_recovered"`
	ArchiveSize      int                 `json:"archive_size"`
	CollectedAt      time.Time           `json:"collected_at"`
}

// LedgerReader is the read side of the ledger the collector needs.
type LedgerReader interface {
	Archive() []model.Lead
	Acknowledged() map[string]bool
}

// Collector derives observations from the ledger.
type Collector struct {
	ledger    LedgerReader
	threshold func() time.Duration
}

// NewCollector creates a collector. threshold is read on every Collect so
// runtime changes take effect.
func NewCollector(ledger LedgerReader, threshold func() time.Duration) *Collector {
	return &Collector{ledger: ledger, threshold: threshold}
}

// Collect recomputes anomalies over the archive.
func (c *Collector) Collect(_ context.Context) (*Observation, error) {
	archive := c.ledger.Archive()
	alerts := anomaly.Merge(anomaly.Detect(archive, c.threshold()), c.ledger.Acknowledged())
	return &Observation{
		Anomalies:   anomaly.Pending(alerts),
		ArchiveSize: len(archive),
		CollectedAt: time.Now().UTC(),
	}, nil
}
