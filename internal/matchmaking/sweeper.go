package matchmaking

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/obsanitylabs/fantasy-crypto/internal/metrics"
)

// ExpiredDeleter is the slice of the store the sweeper uses.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically removes queue entries past their expiry. Deleting
// already-gone rows is a no-op, so overlapping or repeated sweeps are safe.
type Sweeper struct {
	store   ExpiredDeleter
	metrics *metrics.Metrics
	cron    *cron.Cron
}

func NewSweeper(store ExpiredDeleter, m *metrics.Metrics) *Sweeper {
	return &Sweeper{store: store, metrics: m, cron: cron.New()}
}

// Start schedules the sweep every 5 minutes. Call Stop to shut it down.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@every 5m", func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			log.Printf("[sweeper] queue maintenance failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Println("[sweeper] queue maintenance scheduled every 5m")
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep runs one maintenance pass and returns how many entries it removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.QueueExpired.Add(float64(n))
		log.Printf("[sweeper] removed %d expired queue entries", n)
	}
	return n, nil
}
