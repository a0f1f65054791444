package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meet_link_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Reloader rebuilds its triggers from persistent state.
type Reloader interface {
	ReloadAll(ctx context.Context) error
}

// Scheduler wraps a cron engine. It implements app.TriggerEngine and owns the
// periodic reload job.
type Scheduler struct {
	cronEngine   *cron.Cron
	logger       *logrus.Entry
	reloadSpec   string
	reloadDelay  time.Duration
	reloaders    map[string]Reloader
	reloadMu     sync.Mutex
	reloadActive bool
}

func NewScheduler(loc *time.Location, reloadSpec string, reloadDelay time.Duration, logger *logrus.Entry) *Scheduler {
	logger = logger.WithField("component", "scheduler")
	return &Scheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{logger})),
			cron.WithLogger(cronLogger{logger}),
		),
		logger:      logger,
		reloadSpec:  reloadSpec,
		reloadDelay: reloadDelay,
		reloaders:   make(map[string]Reloader),
	}
}

// AddReloader registers r under name for the periodic reload. Call before Start.
func (s *Scheduler) AddReloader(name string, r Reloader) {
	s.reloaders[name] = r
}

func (s *Scheduler) Arm(r app.Recurrence, job func()) app.TriggerID {
	return app.TriggerID(s.cronEngine.Schedule(r, cron.FuncJob(job)))
}

// ArmOnce runs job a single time at the given instant and then drops the entry.
func (s *Scheduler) ArmOnce(at time.Time, job func()) app.TriggerID {
	var id cron.EntryID
	var mu sync.Mutex
	mu.Lock()
	id = s.cronEngine.Schedule(onceAt{at: at}, cron.FuncJob(func() {
		job()
		mu.Lock()
		defer mu.Unlock()
		s.cronEngine.Remove(id)
	}))
	mu.Unlock()
	return app.TriggerID(id)
}

func (s *Scheduler) Cancel(id app.TriggerID) {
	s.cronEngine.Remove(cron.EntryID(id))
}

// Start runs every reloader once synchronously, arms the periodic reload and
// starts the engine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler")
	s.reloadAll(ctx)

	if _, err := s.cronEngine.AddFunc(s.reloadSpec, s.reloadJob); err != nil {
		return fmt.Errorf("invalid reload spec %q: %w", s.reloadSpec, err)
	}
	if s.reloadDelay > 0 {
		s.ArmOnce(time.Now().Add(s.reloadDelay), s.reloadJob)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"reload_spec":  s.reloadSpec,
		"first_reload": s.reloadDelay.String(),
	}).Info("Scheduler started")
	return nil
}

// reloadJob skips a run when the previous one is still in progress.
func (s *Scheduler) reloadJob() {
	s.reloadMu.Lock()
	if s.reloadActive {
		s.reloadMu.Unlock()
		s.logger.Warn("Previous reload still running, skipping")
		return
	}
	s.reloadActive = true
	s.reloadMu.Unlock()

	defer func() {
		s.reloadMu.Lock()
		s.reloadActive = false
		s.reloadMu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s.reloadAll(ctx)
}

func (s *Scheduler) reloadAll(ctx context.Context) {
	for name, r := range s.reloaders {
		if err := r.ReloadAll(ctx); err != nil {
			s.logger.WithError(err).WithField("reloader", name).Error("Reload failed, keeping current triggers")
		}
	}
}

// Entries reports how many jobs the engine currently holds.
func (s *Scheduler) Entries() int {
	return len(s.cronEngine.Entries())
}

func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Scheduler gracefully stopped")
}

// onceAt fires at one instant. After that Next reports the zero time, which
// cron treats as never.
type onceAt struct {
	at time.Time
}

func (o onceAt) Next(t time.Time) time.Time {
	if t.Before(o.at) {
		return o.at
	}
	return time.Time{}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			fields[key] = kv[i+1]
		}
	}
	return fields
}
