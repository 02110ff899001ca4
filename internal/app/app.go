// Package app wires the bot together: config, logging, storage, the timer
// engine and the Telegram transport.
package app

import (
	"context"
	"sync"

	"remindbot/internal/bot"
	"remindbot/internal/clock"
	"remindbot/internal/config"
	"remindbot/internal/delivery"
	"remindbot/internal/janitor"
	"remindbot/internal/reminder"
	"remindbot/internal/scheduler"
	"remindbot/internal/storage"
	kit "remindbot/internal/transport"
	telegram "remindbot/internal/transport/telegram"
	"remindbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	clk     *clock.Source
	db      *storage.DB
	sched   *scheduler.Service
	svc     *reminder.Service
	jan     *janitor.Service
	adapter *telegram.Adapter
	router  *bot.Router

	updates chan kit.Update

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	clk := clock.New(cfg.Scheduler.Timezone, log.With(logx.String("comp", "clock")))

	busyTimeout, err := config.ParseDurationOrDefault("database.busy_timeout", cfg.Database.BusyTimeout, config.DefaultBusyTimeout)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(storage.Config{
		Path:        cfg.Database.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, config.DefaultPollTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		db.Close()
		return nil, err
	}

	retryBase, err := config.ParseDurationOrDefault("delivery.retry_base", cfg.Delivery.RetryBase, config.DefaultRetryBase)
	if err != nil {
		db.Close()
		return nil, err
	}
	sendTimeout, err := config.ParseDurationOrDefault("delivery.send_timeout", cfg.Delivery.SendTimeout, config.DefaultSendTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	deliv := delivery.New(delivery.Config{
		RatePerSec:  cfg.Delivery.RatePerSec,
		RetryMax:    cfg.Delivery.RetryMax,
		RetryBase:   retryBase,
		SendTimeout: sendTimeout,
	}, adapter, log.With(logx.String("comp", "delivery")))

	sched := scheduler.New(clk, db.Jobs(), deliv.Send, log.With(logx.String("comp", "scheduler")))
	svc := reminder.NewService(clk, db.Reminders(), sched, log.With(logx.String("comp", "reminder")))

	keepFor, err := config.ParseDurationOrDefault("janitor.keep_for", cfg.Janitor.KeepFor, config.DefaultKeepFor)
	if err != nil {
		db.Close()
		return nil, err
	}
	jan := janitor.New(janitor.Config{
		Schedule: cfg.Janitor.Schedule,
		KeepFor:  keepFor,
	}, clk, db.Reminders(), db.Jobs(), log.With(logx.String("comp", "janitor")))

	sessionTTL, err := config.ParseDurationOrDefault("session.ttl", cfg.Session.TTL, config.DefaultSessionTTL)
	if err != nil {
		db.Close()
		return nil, err
	}
	router := bot.NewRouter(clk, svc, adapter, sessionTTL, log.With(logx.String("comp", "bot")))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		clk:     clk,
		db:      db,
		sched:   sched,
		svc:     svc,
		jan:     jan,
		adapter: adapter,
		router:  router,
		updates: make(chan kit.Update, 256),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	// Re-derive the timer set from storage before any traffic is served.
	if err := a.svc.RestoreOnStartup(runCtx); err != nil {
		cancel()
		return err
	}

	if a.cfgm.Get().Janitor.Enabled {
		if err := a.jan.Start(); err != nil {
			cancel()
			return err
		}
	}

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.router.Run(runCtx, a.updates)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(cfg)
			}
		}
	}()

	a.log.Info("bot started")
	return nil
}

// applyReload applies the hot-reloadable subset of the config (logging and
// janitor). Everything else (token, database path, timezone) needs a restart.
func (a *App) applyReload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	keepFor, err := config.ParseDurationOrDefault("janitor.keep_for", cfg.Janitor.KeepFor, config.DefaultKeepFor)
	if err == nil {
		err = a.jan.Apply(janitor.Config{Schedule: cfg.Janitor.Schedule, KeepFor: keepFor})
	}
	if err != nil {
		a.log.Warn("janitor config not applied", logx.Err(err))
	}

	a.log.Info("config applied", logx.String("log_level", cfg.Logging.Level))
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn("adapter stop", logx.Err(err))
	}
	a.jan.Stop(ctx)
	a.wg.Wait()

	// Pending timers die with the process; storage brings them back on the
	// next start.
	a.sched.ClearAll()

	if err := a.db.Close(); err != nil {
		a.log.Warn("db close", logx.Err(err))
	}
	a.log.Info("bot stopped")
	return a.logs.Close()
}
