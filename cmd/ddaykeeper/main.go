package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"dday-keeper/internal/config"
	"dday-keeper/internal/notify"
	"dday-keeper/internal/scheduler"
	"dday-keeper/internal/service"
	"dday-keeper/internal/settings"
	"dday-keeper/internal/store"
	"dday-keeper/internal/syncbus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}))
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	itemRepo := store.NewItemRepository(db)
	templateRepo := store.NewTemplateRepository(db)

	prefs := settings.New(cfg.SettingsPath)
	if err := prefs.Load(); err != nil {
		log.Printf("[warn] settings: %v, using defaults", err)
	}

	bus := syncbus.NewBus(cfg.MarkerPath)
	itemSvc := service.NewItemService(itemRepo, templateRepo, bus)
	go itemSvc.Run(ctx)

	var sink scheduler.Sink = notify.LogSink{}
	if cfg.TelegramToken != "" {
		tgSink, err := notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("[warn] telegram sink: %v, falling back to log sink", err)
		} else {
			sink = tgSink
		}
	}

	sched := scheduler.New(time.Local, itemRepo, prefs, sink, nil)
	sched.Start()
	defer sched.Stop()

	// The wake timer does not survive a restart: always re-arm from
	// persisted settings, then follow live settings changes.
	sched.Restore()
	prefs.Watch(func() {
		log.Printf("[info] settings changed, re-applying alert slots")
		sched.Apply(prefs.Alerts())
	})

	log.Println("dday-keeper started.")
	<-ctx.Done()
	log.Println("Shutdown complete.")
}
