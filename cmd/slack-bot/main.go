package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shift-bots/internal/handler"
	"github.com/noah-isme/shift-bots/internal/repository"
	"github.com/noah-isme/shift-bots/internal/service"
	"github.com/noah-isme/shift-bots/pkg/config"
	"github.com/noah-isme/shift-bots/pkg/jobs"
	"github.com/noah-isme/shift-bots/pkg/logger"
)

const notifierQueue = "notifier"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateNotifier(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg, "slack-bot")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *service.MetricsService
	if cfg.MetricsEnabled {
		metrics = service.NewMetricsService()
	}

	feed := repository.NewEventFeedRepository(cfg.Notifier.CalendarBotURL, nil, cfg.Notifier.FetchTimeout)
	chat := repository.NewSlackChatRepository(cfg.Slack.BotToken, cfg.Slack.APIURL)
	notifier := service.NewNotifierService(feed, chat, cfg.Slack.Channel, metrics, logr)

	queue := jobs.NewQueue(notifierQueue, notifier.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifier.Workers,
		BufferSize: cfg.Notifier.BufferSize,
		Logger:     logr,
		OnFailure: func(job jobs.Job, err error) {
			metrics.RecordJobFailure(notifierQueue, job.Type)
		},
	})
	// Stopped explicitly after the HTTP server so accepted jobs still run.
	queue.Start(context.Background())

	r := handler.NewEngine(cfg, logr, metrics)
	handler.NewNotifierHandler(queue, logr).Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "channel", cfg.Slack.Channel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	queue.Stop()
}
