// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/alanwtom/carmodel/internal/config"
	"github.com/alanwtom/carmodel/internal/service"
)

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	s gocron.Scheduler
}

// New creates an idle scheduler.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &Scheduler{s: s}, nil
}

// ReconcileWallets returns the reconciliation task: it compares every wallet
// with its payment history and logs each mismatch.
func ReconcileWallets(wallets service.WalletLister, payments service.PaymentTotals) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		mismatches, err := service.Reconcile(ctx, wallets, payments)
		if err != nil {
			log.Printf("reconcile: %v", err)
			return
		}
		for _, m := range mismatches {
			log.Printf("reconcile: wallet %d of user %d holds %s, payment log implies %s",
				m.WalletID, m.UserID, m.Balance.StringFixed(2), m.Expected.StringFixed(2))
		}
		log.Printf("reconcile: done, %d mismatches", len(mismatches))
	}
}

// AddReconcile schedules task every cfg.ReconcileInterval.  A run that is
// still going when the next one is due makes the next one skip.
func (s *Scheduler) AddReconcile(cfg config.SchedulerConfig, task func()) error {
	if !cfg.ReconcileEnabled {
		return nil
	}
	j, err := s.s.NewJob(
		gocron.DurationJob(cfg.ReconcileInterval),
		gocron.NewTask(task),
		gocron.WithName("wallet-reconcile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	log.Printf("scheduler: job %s (%s) every %s", j.Name(), j.ID(), cfg.ReconcileInterval)
	return nil
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int { return len(s.s.Jobs()) }

// Start begins running jobs in the background.
func (s *Scheduler) Start() { s.s.Start() }

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error { return s.s.Shutdown() }
