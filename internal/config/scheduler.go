package config

import "time"

// SchedulerConfig controls background jobs.
type SchedulerConfig struct {
	ReconcileEnabled  bool
	ReconcileInterval time.Duration
}

// LoadSchedulerConfig reads RECONCILE_ENABLED and RECONCILE_INTERVAL.
func LoadSchedulerConfig() SchedulerConfig {
	c := SchedulerConfig{
		ReconcileEnabled:  envBool("RECONCILE_ENABLED", true),
		ReconcileInterval: envDur("RECONCILE_INTERVAL", time.Hour),
	}
	if c.ReconcileInterval < time.Minute {
		c.ReconcileInterval = time.Minute
	}
	return c
}
