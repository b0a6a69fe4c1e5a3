// Package scheduler runs the engine's periodic tasks on fixed intervals.
//
// Each task kind is single-flight: if a run is still active when the next
// tick fires, the tick is skipped, never queued. The scheduler keeps no
// persistent state; a restarted process simply re-derives everything from
// the store on its next tick.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"boardbot/pkg/logx"
)

// Task is one periodic job. It receives the tick time so runs are
// reproducible in tests.
type Task func(ctx context.Context, now time.Time) error

type Service struct {
	mu  sync.Mutex
	c   *cron.Cron
	log logx.Logger

	// runCtx is handed to task invocations; set on Start.
	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log}
	s.c = cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: log})),
	)
	return s
}

// AddInterval registers a task to run every interval.
func (s *Service) AddInterval(name string, every time.Duration, timeout time.Duration, task Task) error {
	spec := fmt.Sprintf("@every %s", every.String())
	_, err := s.c.AddFunc(spec, func() {
		s.runTask(name, timeout, task)
	})
	if err != nil {
		return fmt.Errorf("scheduler: add %s: %w", name, err)
	}
	return nil
}

func (s *Service) runTask(name string, timeout time.Duration, task Task) {
	s.mu.Lock()
	base := s.runCtx
	s.mu.Unlock()
	if base == nil {
		return
	}

	ctx := base
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(base, timeout)
		defer cancel()
	}

	start := time.Now()
	err := task(ctx, start.UTC())
	took := time.Since(start)
	if err != nil {
		// Task failures are isolated; the schedule keeps ticking.
		s.log.Error("periodic task failed",
			logx.String("task", name), logx.Duration("took", took), logx.Err(err))
		return
	}
	s.log.Debug("periodic task finished", logx.String("task", name), logx.Duration("took", took))
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx != nil {
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.c.Start()
	s.log.Info("scheduler started")
}

// Stop halts the schedule and waits for in-flight tasks to finish, bounded
// by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	cancel := s.runCancel
	s.runCtx = nil
	s.runCancel = nil
	c := s.c
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c == nil {
		return
	}
	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// cronLogger adapts logx to cron's logging interface; it only surfaces the
// skip notices and errors, cron's own chatter stays at debug.
type cronLogger struct {
	log logx.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, logx.Any("kv", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, logx.Err(err), logx.Any("kv", keysAndValues))
}
