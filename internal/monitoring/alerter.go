package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadledger/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLedgerAnomaly    AlertType = "ledger_anomaly"
	AlertSyncDisrupted    AlertType = "sync_disrupted"
	AlertStorageRecovered AlertType = "storage_recovered"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter turns ledger observations into alerts and delivers them via
// webhook. Each anomaly ID is delivered at most once per process.
type Alerter struct {
	cfg    config.AlertsConfig
	client *http.Client

	mu       sync.Mutex
	notified map[string]bool
}

// NewAlerter creates a new Alerter with the given alerts config.
func NewAlerter(cfg config.AlertsConfig) *Alerter {
	return &Alerter{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		notified: make(map[string]bool),
	}
}

// Evaluate checks the observation and returns any alerts not yet raised.
func (a *Alerter) Evaluate(obs *Observation) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	a.mu.Lock()
	for _, an := range obs.Anomalies {
		if an.Acknowledged || a.notified[an.ID] {
			continue
		}
		a.notified[an.ID] = true
		alerts = append(alerts, Alert{
			Type:     AlertLedgerAnomaly,
			Severity: "medium",
			Message: fmt.Sprintf("%s committed leads %s only %ds apart",
				an.Username, an.SnoPair, an.DeltaSeconds),
			Details: map[string]any{
				"alert_id":      an.ID,
				"company":       an.Company,
				"status":        an.Status,
				"delta_seconds": an.DeltaSeconds,
				"timestamp":     an.Timestamp,
			},
			Timestamp: now,
		})
	}
	a.mu.Unlock()

	if len(obs.SourceErrors) > 0 {
		names := make([]string, 0, len(obs.SourceErrors))
		for name := range obs.SourceErrors {
			names = append(names, name)
		}
		sort.Strings(names)
		alerts = append(alerts, Alert{
			Type:     AlertSyncDisrupted,
			Severity: "high",
			Message:  fmt.Sprintf("sync disrupted for %d source(s): %v", len(names), names),
			Details: map[string]any{
				"errors": obs.SourceErrors,
			},
			Timestamp: now,
		})
	}

	if obs.StorageRecovered {
		alerts = append(alerts, Alert{
			Type:      AlertStorageRecovered,
			Severity:  "high",
			Message:   "stored ledger was unreadable and has been reset",
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// Notify evaluates obs and sends the result.
func (a *Alerter) Notify(ctx context.Context, obs *Observation) int {
	return a.SendAlerts(ctx, a.Evaluate(obs))
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
