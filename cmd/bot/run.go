package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"meet_link_bot/internal/app"
	"meet_link_bot/internal/infra/config"
	"meet_link_bot/internal/infra/httpserver"
	"meet_link_bot/internal/infra/lock"
	"meet_link_bot/internal/infra/logger"
	"meet_link_bot/internal/infra/retry"
	"meet_link_bot/internal/infra/scheduler"
	"meet_link_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and its schedulers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Init(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	log := logrus.NewEntry(logger.Log)
	log.Info("Starting bot...")

	if cfg.LockFile != "" {
		fileLock, err := lock.Acquire(cfg.LockFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := fileLock.Release(); err != nil {
				log.WithError(err).Warn("Failed to release lock file")
			}
		}()
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer st.Close()
	log.WithField("backend", cfg.StoreBackend).Info("Storage ready")

	producer, err := newProducer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create link producer: %w", err)
	}
	log.WithField("producer", cfg.LinkProducer).Info("Link producer ready")

	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.For("telebot").WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telebot error")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	sched := scheduler.NewScheduler(cfg.Location, cfg.ReloadSpec, cfg.ReloadDelay, log)
	dispatcher := app.NewLinkDispatcher(
		producer,
		telegram.NewTelebotAdapter(bot),
		sched,
		retry.Policy{Attempts: cfg.SendRetries, Delay: cfg.SendRetryDelay, AttemptTimeout: cfg.LinkTimeout},
		cfg.MessageTTL,
		log,
	)
	schedules := app.NewScheduleService(st.schedules, sched, dispatcher, cfg.Location, cfg.ScheduleLead, log)
	reminders := app.NewReminderService(st.reminders, sched, dispatcher, cfg.Location, log)
	sched.AddReloader("schedules", schedules)
	sched.AddReloader("reminders", reminders)

	handlers := telegram.NewHandlers(schedules, reminders, dispatcher, telegram.NewConversations(cfg.DialogTTL), cfg.Location, log)
	handlers.Register(ctx, bot)
	if err := telegram.SetCommands(bot); err != nil {
		log.WithError(err).Warn("Failed to publish command list")
	}

	var server *httpserver.Server
	if cfg.HTTPAddr != "" {
		server = httpserver.New(cfg.HTTPAddr, map[string]httpserver.TriggerCounter{
			"schedules": schedules,
			"reminders": reminders,
		}, log)
		server.Start()
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go bot.Start()
	log.WithField("username", bot.Me.Username).Info("Bot is polling for updates")

	<-ctx.Done()
	log.Info("Shutting down...")

	bot.Stop()
	sched.Stop()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP server shutdown failed")
		}
	}
	log.Info("Bot stopped")
	return nil
}
