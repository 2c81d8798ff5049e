package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate  AlertType = "run_failure_rate"
	AlertItemFailureRate AlertType = "item_failure_rate"
	AlertCostOverrun     AlertType = "cost_overrun"
)

// Severity grades an alert.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Rate alerts stay quiet below these sample sizes.
const (
	minFinishedRuns = 5
	minItems        = 20
)

// Alert is the webhook payload.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// rule inspects a snapshot and reports whether its alert fires.
type rule func(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool)

var rules = []rule{runFailureRule, itemFailureRule, costRule}

func runFailureRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	finished := snap.RunsComplete + snap.RunsFailed
	if finished < minFinishedRuns || snap.RunFailRate <= cfg.FailureRateThreshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertRunFailureRate,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("%.1f%% of stage runs failed in the last %dh (%d of %d, threshold %.1f%%); failing stages: %s",
			snap.RunFailRate*100, snap.LookbackHours, snap.RunsFailed, finished,
			cfg.FailureRateThreshold*100, strings.Join(snap.FailedStages, ", ")),
		Details: map[string]any{
			"failure_rate":  snap.RunFailRate,
			"threshold":     cfg.FailureRateThreshold,
			"failed":        snap.RunsFailed,
			"finished":      finished,
			"failed_stages": snap.FailedStages,
		},
	}, true
}

func itemFailureRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	if cfg.ItemFailureRateThreshold <= 0 || snap.ItemsTotal < minItems || snap.ItemFailRate <= cfg.ItemFailureRateThreshold {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertItemFailureRate,
		Severity: SeverityMedium,
		Message: fmt.Sprintf("%d of %d items failed in the last %dh (%.1f%%, threshold %.1f%%)",
			snap.ItemsFailed, snap.ItemsTotal, snap.LookbackHours,
			snap.ItemFailRate*100, cfg.ItemFailureRateThreshold*100),
		Details: map[string]any{
			"failure_rate": snap.ItemFailRate,
			"threshold":    cfg.ItemFailureRateThreshold,
			"failed":       snap.ItemsFailed,
			"total":        snap.ItemsTotal,
		},
	}, true
}

func costRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) (Alert, bool) {
	if cfg.CostThresholdUSD <= 0 || snap.CostUSD <= cfg.CostThresholdUSD {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertCostOverrun,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("API spend of $%.2f in the last %dh is over the $%.2f budget",
			snap.CostUSD, snap.LookbackHours, cfg.CostThresholdUSD),
		Details: map[string]any{
			"cost_usd":      snap.CostUSD,
			"threshold_usd": cfg.CostThresholdUSD,
			"runs_total":    snap.RunsTotal,
		},
	}, true
}

// Alerter turns snapshots into alerts and posts them to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter returns an Alerter for the given thresholds.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate returns the alerts the snapshot triggers, in rule order.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var out []Alert
	ts := time.Now().UTC()
	for _, r := range rules {
		if alert, ok := r(a.cfg, snap); ok {
			alert.Timestamp = ts
			out = append(out, alert)
		}
	}
	return out
}

// SendAlerts posts each alert to the webhook and returns how many were
// accepted. Without a webhook URL nothing is sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		log := zap.L().With(zap.String("type", string(alert.Type)), zap.String("severity", string(alert.Severity)))
		if err := a.post(ctx, alert); err != nil {
			log.Error("monitoring: alert not delivered", zap.Error(err))
			continue
		}
		log.Info("monitoring: alert delivered")
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: encode alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: post webhook")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode/100 != 2 {
		return eris.Errorf("monitoring: webhook answered %d", resp.StatusCode)
	}
	return nil
}
