package bootstrap

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/adapter/in/worker"
	"github.com/markwilliams0n/aurelius-hq-sub001/config"
	"github.com/markwilliams0n/aurelius-hq-sub001/pkg/logger"
)

// Worker is the assembled background triage process: the job pool plus
// the cron scheduler feeding it.
type Worker struct {
	pool      *worker.Pool
	scheduler *worker.Scheduler
	deps      *Dependencies
	zlog      zerolog.Logger
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	deps, cleanup, err := NewDependencies(cfg, zlog)
	if err != nil {
		return nil, nil, err
	}

	processor := worker.NewTriageProcessor(deps.TriageService, deps.ItemRepo, zlog)
	handler := worker.NewHandler(processor, zlog)

	poolConfig := worker.DefaultPoolConfig()
	if cfg.WorkerCount > 0 {
		poolConfig.Workers = cfg.WorkerCount
	}
	if cfg.WorkerBatchSize > 0 {
		poolConfig.BatchSize = cfg.WorkerBatchSize
	}
	if cfg.WorkerChanSize > 0 {
		poolConfig.WorkerChanSize = cfg.WorkerChanSize
	}
	if cfg.WorkerMaxRetries > 0 {
		poolConfig.MaxRetries = cfg.WorkerMaxRetries
	}

	pool := worker.NewPool(handler, poolConfig, zlog)

	w := &Worker{
		pool: pool,
		deps: deps,
		zlog: zlog,
	}

	if cfg.SchedulerEnabled {
		w.scheduler = worker.NewScheduler(pool, worker.SchedulerConfig{
			PassSchedule:       cfg.PassSchedule,
			ReclassifySchedule: cfg.ReclassifySchedule,
			AssignSchedule:     cfg.AssignSchedule,
			LearningSchedule:   cfg.LearningSchedule,
		}, zlog)
	} else {
		logger.Info("Scheduler disabled, worker will only process direct submissions")
	}

	return w, cleanup, nil
}

// Submit hands a job to the pool directly, bypassing the scheduler.
func (w *Worker) Submit(msg *worker.Message) bool {
	return w.pool.Submit(msg)
}

// Start brings up the pool and the scheduler. It returns once both are
// running; the caller blocks on its own shutdown signal.
func (w *Worker) Start() error {
	w.pool.Start()

	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.pool.Stop()
			return err
		}
		w.zlog.Info().Msg("scheduler started")
	}

	return nil
}

// Stop drains the scheduler first so no new jobs land while the pool
// finishes in-flight work.
func (w *Worker) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
	w.pool.Stop()
	w.zlog.Info().Msg("worker stopped")
}
