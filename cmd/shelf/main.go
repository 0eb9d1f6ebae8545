package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bookshelf/internal/app"
	"bookshelf/internal/config"
	"bookshelf/internal/server"
	"bookshelf/internal/util"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel, cfg.LogFormat)
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session ttl: %v", err)
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	databaseURL := ""
	if cfg.BookStore == config.BookStoreDatabase {
		databaseURL = cfg.DatabaseURL
	}
	appCore, err := app.New(app.Config{
		Username:       cfg.Username,
		Password:       cfg.Password,
		PasswordCost:   cfg.PasswordCost,
		IDStrategy:     cfg.IDStrategy,
		IDPrefix:       cfg.IDPrefix,
		DatabaseURL:    databaseURL,
		SessionBackend: cfg.SessionStore,
		SessionTTL:     sessionTTL,
		JWTSecret:      cfg.JWTSecret,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                     appCore,
		CookieName:              cfg.CookieName,
		CookieSecure:            cfg.CookieSecure,
		SessionTTL:              sessionTTL,
		RedisAddr:               cfg.RedisAddr,
		RedisPassword:           cfg.RedisPassword,
		LoginRateLimitPerMinute: cfg.LoginRateLimitPerMinute,
		TrustedProxies:          trusted,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("shelf server listening", "addr", addr, "bookStore", cfg.BookStore, "sessionStore", cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shelf server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
