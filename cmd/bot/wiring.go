package main

import (
	"context"
	"database/sql"
	"fmt"

	"meet_link_bot/internal/domain/meet"
	"meet_link_bot/internal/domain/reminder"
	"meet_link_bot/internal/domain/schedule"
	"meet_link_bot/internal/infra/config"
	idb "meet_link_bot/internal/infra/database"
	"meet_link_bot/internal/infra/filestore"
	"meet_link_bot/internal/infra/logger"
	imeet "meet_link_bot/internal/infra/meet"
)

type stores struct {
	schedules schedule.Store
	reminders reminder.Store
	db        *sql.DB
}

func (s stores) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func openStores(ctx context.Context, cfg *config.AppConfig) (stores, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		if err := idb.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return stores{}, err
		}
		return stores{
			schedules: idb.NewPostgresScheduleRepository(db),
			reminders: idb.NewPostgresReminderRepository(db),
			db:        db,
		}, nil
	default:
		log := logger.For("filestore")
		return stores{
			schedules: filestore.NewScheduleStore(cfg.ScheduleFile, log),
			reminders: filestore.NewReminderStore(cfg.RemindersFile, log),
		}, nil
	}
}

func newProducer(ctx context.Context, cfg *config.AppConfig) (meet.Producer, error) {
	switch cfg.LinkProducer {
	case config.ProducerCalendar:
		oauthCfg, err := imeet.LoadOAuthConfig(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		client, err := imeet.NewHTTPClient(ctx, oauthCfg, imeet.TokenFile{Path: cfg.GoogleTokenFile}, logger.For("google_oauth"))
		if err != nil {
			return nil, fmt.Errorf("calendar link producer: %w", err)
		}
		producer, err := imeet.NewCalendarProducer(ctx, client)
		if err != nil {
			return nil, err
		}
		return producer, nil
	case config.ProducerBrowser:
		return imeet.NewBrowserProducer(cfg.BrowserProfileDir, cfg.BrowserHeadless, logger.For("browser")), nil
	default:
		return imeet.NewStaticProducer(cfg.StaticMeetURL), nil
	}
}
