package reconcile

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the reconciler on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	svc  *Service
}

// NewScheduler registers a repairing run of svc at spec, a six-field cron
// expression with seconds.
func NewScheduler(svc *Service, spec string) (*Scheduler, error) {
	c := cron.New(cron.WithSeconds())
	s := &Scheduler{cron: c, svc: svc}
	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	if _, err := s.svc.Run(context.Background(), true); err != nil {
		log.Error().Err(err).Msg("scheduled reconcile failed")
	}
}

func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("reconcile scheduler started")
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
