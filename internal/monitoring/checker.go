package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker ties a Collector to an Alerter.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker returns a Checker using cfg's lookback window and interval.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{collector: collector, alerter: alerter, cfg: cfg}
}

func (c *Checker) interval() time.Duration {
	if c.cfg.CheckIntervalSecs <= 0 {
		return defaultCheckInterval
	}
	return time.Duration(c.cfg.CheckIntervalSecs) * time.Second
}

// Run calls Check on every tick until ctx is done. Check errors are logged
// and the loop carries on.
func (c *Checker) Run(ctx context.Context) {
	every := c.interval()
	log := zap.L().With(zap.String("component", "monitoring"))
	log.Info("run health checks started",
		zap.Duration("every", every),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("run health checks stopped")
			return
		case <-t.C:
			if _, _, err := c.Check(ctx); err != nil {
				log.Error("run health check failed", zap.Error(err))
			}
		}
	}
}

// Check takes one snapshot, evaluates it and delivers what fires.
func (c *Checker) Check(ctx context.Context) (*MetricsSnapshot, []Alert, error) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		return nil, nil, err
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) > 0 {
		zap.L().Info("monitoring: thresholds breached",
			zap.Int("alerts", len(alerts)),
			zap.Int("delivered", c.alerter.SendAlerts(ctx, alerts)),
		)
	}
	return snap, alerts, nil
}
