package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discord-archiver/backup"
	"discord-archiver/bot"
	"discord-archiver/config"
	"discord-archiver/database"
	"discord-archiver/grpc"
	"discord-archiver/handlers"
	"discord-archiver/queue"
	"discord-archiver/scanner"
	"discord-archiver/source"
	"discord-archiver/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// shutdownTimeout bounds the final flush of the write queues.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, syncLogs, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer syncLogs()

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return err
	}
	defer db.Close()
	repos := database.NewRepositories(db)
	status := database.NewStatusManager(cfg.Database.StatusFile)

	b, err := bot.NewBot(cfg, logger)
	if err != nil {
		logger.Error("Error initializing bot", zap.Error(err))
		return err
	}
	logger = utils.WithAdminChannel(logger, b.Session, cfg.Bot.AdminChannelID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := source.NewSession(b.Session)
	registry := backup.New(backup.Deps{
		Source:   src,
		Config:   cfg,
		Throttle: backup.NewThrottle(cfg.Backup.ThrottleThreshold, cfg.Backup.ThrottleCooldown, logger),
		Logger:   logger.Named("backup"),
	}.WithRepositories(repos))

	writer := queue.NewWriter(queue.Limits{
		Inserts: cfg.Backup.InsertBatch,
		Updates: cfg.Backup.UpdateBatch,
		Deletes: cfg.Backup.DeleteBatch,
	}, logger.Named("queue"))

	scan := scanner.New(scanner.Deps{
		Registry:    registry,
		Source:      src,
		Checkpoints: repos.Processes,
		Channels:    repos.Channels,
		Threads:     repos.Threads,
		Status:      status,
		Logger:      logger.Named("scanner"),
	})

	handler := handlers.New(handlers.Deps{
		Registry: registry,
		Writer:   writer,
		Repos:    repos,
		Source:   src,
		Scanner:  scan,
		Auth:     utils.NewAuth(cfg.Commands),
		Logger:   logger.Named("handlers"),
		Context:  ctx,
	})

	health, err := grpc.NewHealth(cfg.GRPC.HealthAddr, logger.Named("health"))
	if err != nil {
		logger.Error("Failed to start health server", zap.Error(err))
		return err
	}
	health.Start()
	defer health.Stop()

	scheduler := bot.NewScheduler(ctx, cfg.Backup, writer, scan, logger.Named("scheduler"))
	err = b.Start(func(b *bot.Bot) {
		handler.Register(b)
		b.Session.AddHandler(func(*discordgo.Session, *discordgo.Connect) { health.SetServing(true) })
		b.Session.AddHandler(func(*discordgo.Session, *discordgo.Disconnect) { health.SetServing(false) })
	}, scheduler)
	if err != nil {
		logger.Error("Error starting bot", zap.Error(err))
		return err
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	logger.Info("Shutting down...")

	health.SetServing(false)
	cancel()
	b.Stop()
	handler.Wait()

	flushCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	for {
		inserts, updates, deletes := writer.Len()
		if inserts+updates+deletes == 0 {
			break
		}
		if _, err := writer.Flush(flushCtx); err != nil {
			logger.Warn("Final flush incomplete", zap.Error(err))
			break
		}
	}
	return nil
}
