// Package app wires boardbot's services together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"

	"boardbot/internal/analytics"
	"boardbot/internal/config"
	"boardbot/internal/dispatch"
	"boardbot/internal/engine"
	"boardbot/internal/inbound"
	"boardbot/internal/obs"
	"boardbot/internal/scheduler"
	"boardbot/internal/store"
	"boardbot/internal/transport"
	"boardbot/internal/transport/telegram"
	"boardbot/pkg/logx"
)

// updateBuffer absorbs short bursts from the poll loop; beyond it the
// adapter drops updates rather than blocking the poller.
const updateBuffer = 128

type App struct {
	cfg *config.Config
	log logx.Logger

	st      *store.Store
	channel transport.Channel
	eng     *engine.Engine
	proc    *inbound.Processor
	sched   *scheduler.Service
	obsSrv  *obs.Server

	updates chan transport.Update

	procCancel context.CancelFunc
	procDone   sync.WaitGroup
}

func New(cfg *config.Config, log logx.Logger) (*App, error) {
	st, err := store.Open(store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout.Std(),
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}

	channel, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeout.Std(),
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	metrics := obs.NewMetrics()
	dispatcher := dispatch.New(dispatch.Config{
		RatePerSec: cfg.Dispatch.RatePerSec,
		RetryMax:   cfg.Dispatch.RetryMax,
		BatchPause: cfg.Dispatch.BatchPause.Std(),
	}, channel, st, metrics, log.With(logx.String("comp", "dispatch")))

	eng := engine.New(engine.Config{
		CooldownGrace: cfg.Engine.CooldownGrace.Std(),
		FollowUpDelay: cfg.Engine.FollowUpDelay.Std(),
	}, st, dispatcher, metrics, log.With(logx.String("comp", "engine")))

	stats := analytics.New(st)
	proc := inbound.New(channel, st, eng, stats, cfg.Telegram.AdminChatID,
		log.With(logx.String("comp", "inbound")))

	return &App{
		cfg:     cfg,
		log:     log,
		st:      st,
		channel: channel,
		eng:     eng,
		proc:    proc,
		sched:   scheduler.New(log.With(logx.String("comp", "scheduler"))),
		obsSrv:  obs.NewServer(obs.Config{Enabled: cfg.Obs.Enabled, Addr: cfg.Obs.Addr}, log.With(logx.String("comp", "obs"))),
		updates: make(chan transport.Update, updateBuffer),
	}, nil
}

// Engine exposes the notification engine to embedding collaborators
// (posting CRUD backends call OnPostingCreated through this).
func (a *App) Engine() *engine.Engine { return a.eng }

// Store exposes the repository for collaborators that own postings and
// accounts.
func (a *App) Store() *store.Store { return a.st }

func (a *App) Start(ctx context.Context) error {
	if err := a.obsSrv.Start(); err != nil {
		return fmt.Errorf("obs server: %w", err)
	}

	if err := a.channel.Start(ctx, a.updates); err != nil {
		return fmt.Errorf("channel start: %w", err)
	}

	procCtx, cancel := context.WithCancel(ctx)
	a.procCancel = cancel
	a.procDone.Add(1)
	go func() {
		defer a.procDone.Done()
		a.proc.Run(procCtx, a.updates)
	}()

	// Periodic tasks. Timeouts cap a wedged tick well below the next one.
	ec := a.cfg.Engine
	if err := a.sched.AddInterval("deadline_scan", ec.ScanInterval.Std(), ec.ScanInterval.Std()/2, a.eng.RunScan); err != nil {
		return err
	}
	if err := a.sched.AddInterval("expiry_cleanup", ec.CleanupInterval.Std(), ec.CleanupInterval.Std()/2, a.eng.RunCleanup); err != nil {
		return err
	}
	if err := a.sched.AddInterval("followup_scan", ec.FollowUpInterval.Std(), ec.FollowUpInterval.Std()/2, a.eng.RunFollowUpScan); err != nil {
		return err
	}
	a.sched.Start(ctx)

	a.log.Info("boardbot started",
		logx.Duration("scan_interval", ec.ScanInterval.Std()),
		logx.Duration("cleanup_interval", ec.CleanupInterval.Std()),
		logx.Duration("followup_interval", ec.FollowUpInterval.Std()))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.sched.Stop(ctx)
	if a.procCancel != nil {
		a.procCancel()
	}
	if err := a.channel.Stop(ctx); err != nil {
		a.log.Warn("channel stop", logx.Err(err))
	}
	a.procDone.Wait()
	if err := a.obsSrv.Stop(ctx); err != nil {
		a.log.Warn("obs stop", logx.Err(err))
	}
	if err := a.st.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}
	a.log.Info("boardbot stopped")
	return nil
}
