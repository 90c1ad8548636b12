package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/pusat-bantuan/helpcenter-auth/api/swagger"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/cache"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/config"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/database"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/logger"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/mail"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/notify"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/token"

	"github.com/pusat-bantuan/helpcenter-auth/internal/repository"
	"github.com/pusat-bantuan/helpcenter-auth/internal/router"
	"github.com/pusat-bantuan/helpcenter-auth/internal/service"
)

// @title Pusat Bantuan Auth API
// @version 1.0.0
// @description Credential and session lifecycle service for the help-center content manager
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The limiter fails open without Redis, everything else works.
		logr.Sugar().Warnw("redis unavailable, rate limiting disabled", "error", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	codec := token.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.Issuer, cfg.Auth.BcryptCost)

	var mailer mail.Mailer
	if cfg.SMTP.Host != "" {
		smtpMailer, err := mail.NewSMTPMailer(cfg.SMTP, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to init smtp mailer", "error", err)
		}
		mailer = smtpMailer
	} else {
		logr.Warn("SMTP_HOST not set, reset emails go to the log only")
		mailer = mail.NewLogMailer(logr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifyQueue := notify.NewQueue(mailer, logr, notify.QueueConfig{Workers: 2})
	notifyQueue.Start(ctx)
	defer notifyQueue.Stop()

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, tokenRepo, auditRepo, codec, validate, logr, metricsSvc, cfg.Auth.RefreshTokenExpiry)
	resetSvc := service.NewPasswordResetService(userRepo, tokenRepo, auditRepo, codec, mailer, notifyQueue, validate, logr, metricsSvc, cfg.Auth.ResetTokenTTL)
	sessionSvc := service.NewSessionService(tokenRepo, auditRepo, logr)

	r := router.New(router.Deps{
		Config:   cfg,
		Logger:   logr,
		DB:       db,
		Redis:    rdb,
		Metrics:  metricsSvc,
		Auth:     authSvc,
		Reset:    resetSvc,
		Sessions: sessionSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(addr)
	}()

	select {
	case err := <-errCh:
		logr.Sugar().Fatalw("server failed", "error", err)
	case <-ctx.Done():
		logr.Info("shutdown signal received", zap.String("addr", addr))
	}
}
