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
	"golang.org/x/oauth2"

	"github.com/noah-isme/shift-bots/internal/handler"
	"github.com/noah-isme/shift-bots/internal/repository"
	"github.com/noah-isme/shift-bots/internal/service"
	"github.com/noah-isme/shift-bots/pkg/cache"
	"github.com/noah-isme/shift-bots/pkg/config"
	"github.com/noah-isme/shift-bots/pkg/database"
	"github.com/noah-isme/shift-bots/pkg/logger"
)

type tokenStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, token *oauth2.Token) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateCalendarBot(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg, "calendar-bot")
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

	store, closeStore, err := newTokenStore(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("token store unavailable", zap.Error(err))
	}
	defer closeStore()

	oauthCfg, err := service.LoadOAuthConfig(cfg.Calendar.CredentialsFile)
	if err != nil {
		logr.Fatal("calendar client secret unavailable", zap.Error(err))
	}

	var authorizer service.Authorizer
	if cfg.Calendar.InteractiveAuth {
		authorizer = service.NewLoopbackAuthorizer(cfg.Calendar.AuthTimeout, logr)
	}
	credentials := service.NewCredentialService(oauthCfg, store, authorizer, metrics, logr)

	actions := service.ShiftActions{service.NewLogShiftAction(logr)}
	if cfg.ShiftAlerts.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("shift alert database unavailable", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		if err := database.EnsureShiftAlertSchema(ctx, db); err != nil {
			logr.Fatal("shift alert schema", zap.Error(err))
		}
		actions = append(actions, service.NewAlertLogShiftAction(repository.NewShiftAlertRepository(db), cfg.Calendar.ID))
	}

	rule := service.NewShiftRule(cfg.Calendar.ShiftMarkers...)
	logr.Info("closed shift rule", zap.Strings("markers", rule.Markers()))

	calendarSvc := service.NewCalendarService(service.CalendarServiceConfig{
		CalendarID:  cfg.Calendar.ID,
		Credentials: credentials,
		Rule:        rule,
		Action:      actions,
		Metrics:     metrics,
		Logger:      logr,
	})

	r := handler.NewEngine(cfg, logr, metrics)
	handler.NewCalendarHandler(calendarSvc).Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "calendar_id", cfg.Calendar.ID)
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
}

func newTokenStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (tokenStore, func(), error) {
	if cfg.Calendar.TokenStore != config.TokenStoreRedis {
		return repository.NewFileTokenRepository(cfg.Calendar.TokenFile, logr), func() {}, nil
	}

	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logr.Warn("redis close", zap.Error(err))
		}
	}
	return repository.NewRedisTokenRepository(client, cfg.Calendar.TokenRedisKey, logr), closeFn, nil
}
