package worker

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SchedulerConfig holds the cron expressions for the recurring passes.
// Standard 5-field expressions (minute hour day-of-month month
// day-of-week); an empty expression disables that pass.
type SchedulerConfig struct {
	PassSchedule       string // classification sweep
	ReclassifySchedule string // rule-only re-check of the review pool
	AssignSchedule     string // batch card assignment
	LearningSchedule   string // learning loop
}

// DefaultSchedulerConfig triages frequently and learns once a day.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PassSchedule:       "*/5 * * * *",
		ReclassifySchedule: "*/15 * * * *",
		AssignSchedule:     "*/5 * * * *",
		LearningSchedule:   "0 5 * * *",
	}
}

// Scheduler submits the recurring triage jobs to the pool on their cron
// schedules. Passes overlap safely: every pass is idempotent and items
// already handled are skipped.
type Scheduler struct {
	cron *cron.Cron
	pool *Pool
	cfg  SchedulerConfig
	log  zerolog.Logger
}

// NewScheduler creates the cron scheduler in front of a pool.
func NewScheduler(pool *Pool, cfg SchedulerConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		pool: pool,
		cfg:  cfg,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the schedules and starts the cron loop.
func (s *Scheduler) Start() error {
	entries := []struct {
		schedule string
		jobType  JobType
	}{
		{s.cfg.PassSchedule, JobTriagePass},
		{s.cfg.ReclassifySchedule, JobTriageReclassify},
		{s.cfg.AssignSchedule, JobBatchAssign},
		{s.cfg.LearningSchedule, JobLearningRun},
	}

	for _, entry := range entries {
		if entry.schedule == "" {
			s.log.Info().Str("job_type", entry.jobType).Msg("schedule disabled")
			continue
		}
		jobType := entry.jobType
		if _, err := s.cron.AddFunc(entry.schedule, func() {
			if !s.pool.Submit(NewMessage(jobType, nil)) {
				s.log.Warn().Str("job_type", jobType).Msg("scheduled job not submitted")
			}
		}); err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", entry.schedule, jobType, err)
		}
		s.log.Info().Str("job_type", jobType).Str("schedule", entry.schedule).Msg("job scheduled")
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron loop, waiting for a running trigger to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
