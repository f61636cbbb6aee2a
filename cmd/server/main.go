// Command server runs the authcore HTTP service.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rjoshi/authcore"
	"github.com/rjoshi/authcore/oauth2"
	gormstore "github.com/rjoshi/authcore/stores/gorm"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := authcore.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		slog.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		slog.Error("failed to migrate database", "err", err)
		os.Exit(1)
	}

	var mailer authcore.SendEmail = &authcore.ConsoleEmailSender{}
	if cfg.SMTPHost != "" {
		mailer = &authcore.SMTPEmailSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}
	}

	tokens := &authcore.TokenService{
		Secret: []byte(cfg.JWTSecret),
		Issuer: "authcore",
	}
	rec := &authcore.Reconciler{
		Users:      gormstore.NewUserStore(db),
		Tokens:     tokens,
		Mailer:     mailer,
		BackendURL: cfg.BackendURL,
	}

	registry := prometheus.NewRegistry()
	srv := authcore.NewServer(rec, tokens, gormstore.NewRoleStore(db), cfg.FrontendURL)
	srv.Metrics = authcore.NewCollector(registry)

	failureURL := cfg.FrontendURL + "/login"
	google := oauth2.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleClientSecret,
		cfg.BackendURL+"/api/auth/google/callback", srv.HandleFederatedIdentity)
	google.AuthFailureURL = failureURL

	facebook := oauth2.NewFacebookOAuth2(cfg.FacebookAppID, cfg.FacebookAppSecret,
		cfg.BackendURL+"/api/auth/facebook/callback", srv.HandleFederatedIdentity)
	facebook.AuthFailureURL = failureURL

	linkedin := oauth2.NewLinkedinOAuth2(cfg.LinkedinClientID, cfg.LinkedinClientSecret,
		cfg.BackendURL+"/api/auth/linkedin/callback", srv.HandleFederatedIdentity)
	linkedin.AuthFailureURL = failureURL

	srv.MountProvider("google", google)
	srv.MountProvider("facebook", facebook)
	srv.MountProvider("linkedin", linkedin)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", srv.Handler())

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}
