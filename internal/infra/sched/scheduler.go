// Package sched runs the background jobs: the chart-image retention sweeper
// and the stale-payment reconciler.
package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tg-trade-suite/internal/infra/metrics"
	"tg-trade-suite/internal/infra/storage"
	"tg-trade-suite/internal/usecase"
)

// Payment claims older than this are failed by the reconciler.
const paymentDeadline = time.Hour

type Scheduler struct {
	cron *cron.Cron
	log  *zerolog.Logger
}

func New(log *zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		log:  log,
	}
}

// AddImageSweeper deletes stored chart images older than the retention
// window. Runs every minute; analyses keep their DB rows either way.
func (s *Scheduler) AddImageSweeper(store *storage.LocalStore, retention time.Duration) error {
	_, err := s.cron.AddFunc("* * * * *", func() {
		n, err := store.SweepOlderThan(time.Now().Add(-retention))
		if err != nil {
			s.log.Error().Err(err).Msg("image sweep failed")
			return
		}
		if n > 0 {
			metrics.AddImagesSwept(n)
			s.log.Debug().Int("removed", n).Msg("image sweep")
		}
	})
	return err
}

// AddPaymentReconciler re-verifies pending payments whose hash could not be
// checked yet, then expires those that never produced a valid transaction
// before the deadline. Runs every five minutes.
func (s *Scheduler) AddPaymentReconciler(payments usecase.PaymentUseCase) error {
	_, err := s.cron.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		settled, err := payments.RetryPending(ctx, 500)
		if err != nil {
			s.log.Error().Err(err).Msg("payment retry pass failed")
		}
		expired, err := payments.ExpireStale(ctx, paymentDeadline, 500)
		if err != nil {
			s.log.Error().Err(err).Msg("payment expiry pass failed")
			return
		}
		if settled > 0 || expired > 0 {
			s.log.Info().Int("settled", settled).Int("expired", expired).Msg("payment reconcile")
		}
	})
	return err
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
