package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/verdefield/agrocheck/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertInfraDown   AlertType = "infra_down"
	AlertSourceStale AlertType = "source_stale"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot and sends alerts via webhook when the
// overall status degrades.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate derives alerts from a Snapshot: one for infra unreachability,
// one per stale or never-updated source.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if !snap.DBReachable || !snap.CacheReachable {
		alerts = append(alerts, Alert{
			Type:     AlertInfraDown,
			Severity: "critical",
			Message: fmt.Sprintf(
				"critical infra unreachable (db=%t cache=%t)",
				snap.DBReachable, snap.CacheReachable,
			),
			Details: map[string]any{
				"db_reachable":    snap.DBReachable,
				"cache_reachable": snap.CacheReachable,
			},
			Timestamp: now,
		})
	}

	for _, s := range snap.Sources {
		if s.Class != FreshnessStale && s.Class != FreshnessNeverUpdated {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     AlertSourceStale,
			Severity: "high",
			Message: fmt.Sprintf(
				"source %q is %s (%.1fh since last update, cadence=%s)",
				s.Name, s.Class, s.HoursSinceUpdate, s.Cadence,
			),
			Details: map[string]any{
				"source":             s.Name,
				"class":              s.Class,
				"hours_since_update": s.HoursSinceUpdate,
				"cadence":            s.Cadence,
				"total_records":      s.TotalRecords,
			},
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
