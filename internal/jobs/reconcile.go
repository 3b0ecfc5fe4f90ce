package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/eduinstitute/liveclass-server/internal/service"
)

type Reconciler interface {
	ReconcileLearners(ctx context.Context) (*service.ReconcileResult, error)
}

// ReconcileJob periodically repairs learners whose session lists drifted
// from the session rosters.
type ReconcileJob struct {
	reconciler Reconciler
	schedule   string
	timeout    time.Duration
	cron       *cron.Cron
	mu         sync.Mutex
}

func NewReconcileJob(reconciler Reconciler, schedule string, timeout time.Duration) *ReconcileJob {
	return &ReconcileJob{
		reconciler: reconciler,
		schedule:   schedule,
		timeout:    timeout,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
	}
}

func (j *ReconcileJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.RunOnce); err != nil {
		return err
	}
	j.cron.Start()
	log.Info().Str("schedule", j.schedule).Msg("reconcile job started")
	return nil
}

// Stop waits for a running pass to finish.
func (j *ReconcileJob) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("reconcile job stopped")
}

func (j *ReconcileJob) RunOnce() {
	j.mu.Lock()
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	result, err := j.reconciler.ReconcileLearners(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to reconcile learners")
		return
	}

	event := log.Debug()
	if result.Added > 0 || result.Removed > 0 {
		event = log.Info()
	}
	event.
		Int("learners", result.Learners).
		Int("added", result.Added).
		Int("removed", result.Removed).
		Dur("duration", time.Since(start)).
		Msg("reconciled learners")
}
