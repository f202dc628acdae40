package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"appwatch/internal/catalog"
	"appwatch/internal/config"
	"appwatch/internal/monitor"
	"appwatch/internal/scheduler"
	"appwatch/internal/store"
	"appwatch/internal/transport/telegram"
	logx "appwatch/pkg/logx"
)

const defaultInterval = 60 * time.Minute

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml/json")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	st, err := store.Open(store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return fmt.Errorf("open version store: %w", err)
	}
	defer st.Close()

	fetchTimeout, _ := config.ParseDurationOrDefault("monitor.fetch_timeout", cfg.Monitor.FetchTimeout, 10*time.Second)
	cat := catalog.New(catalog.Config{
		Country:     cfg.Monitor.Country,
		ScrapeNotes: cfg.Monitor.ScrapeNotes,
		Timeout:     fetchTimeout,
	}, log.With(logx.String("comp", "catalog")))

	pollTimeout, _ := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	notifier, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		ChatID:      cfg.Telegram.ChatID,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	ctrl := monitor.NewController(
		cycleOptions(cfg, fetchTimeout),
		st, cat.Fetch, notifier.SendDigest,
		log.With(logx.String("comp", "monitor")),
	)

	sched := scheduler.New(scheduler.Config{Timezone: cfg.Scheduler.Timezone},
		log.With(logx.String("comp", "scheduler")))
	interval, _ := config.ParseDurationOrDefault("monitor.interval", cfg.Monitor.Interval, defaultInterval)
	if err := sched.Schedule(interval, func(jctx context.Context) {
		ctrl.RunCycle(jctx)
	}); err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Stop(context.Background())

	// Config hot-reload: pick up tracked list / interval / logging changes.
	sub := mgr.Subscribe(1)
	defer mgr.Unsubscribe(sub)
	go func() { _ = mgr.Watch(ctx) }()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				applyReload(next, logSvc, ctrl, sched, log)
			}
		}
	}()

	// First cycle runs immediately; later ones come from the interval.
	sched.TriggerNow()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("appwatch started",
		logx.Int("tracked", len(cfg.Monitor.Apps)),
		logx.Duration("interval", interval))

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info("shutting down")
	return nil
}

func cycleOptions(cfg *config.Config, fetchTimeout time.Duration) monitor.Options {
	return monitor.Options{
		TrackedIDs:   cfg.AppIDs(),
		FetchWorkers: cfg.Monitor.FetchWorkers,
		FetchTimeout: fetchTimeout,
		NotesMaxLen:  cfg.Monitor.NotesMaxLen,
	}
}

func applyReload(cfg *config.Config, logSvc *logx.Service, ctrl *monitor.Controller, sched *scheduler.Service, log logx.Logger) {
	logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})

	fetchTimeout, _ := config.ParseDurationOrDefault("monitor.fetch_timeout", cfg.Monitor.FetchTimeout, 10*time.Second)
	ctrl.Apply(cycleOptions(cfg, fetchTimeout))

	interval, _ := config.ParseDurationOrDefault("monitor.interval", cfg.Monitor.Interval, defaultInterval)
	if err := sched.Schedule(interval, func(jctx context.Context) {
		ctrl.RunCycle(jctx)
	}); err != nil {
		log.Warn("reschedule failed", logx.Err(err))
	}

	log.Info("config applied",
		logx.Int("tracked", len(cfg.Monitor.Apps)),
		logx.Duration("interval", interval))
}
