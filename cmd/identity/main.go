package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/clinvol/identity-service/internal/api/handlers"
	apimiddleware "github.com/clinvol/identity-service/internal/api/middleware"
	"github.com/clinvol/identity-service/internal/auth"
	"github.com/clinvol/identity-service/internal/auth/secrethash"
	"github.com/clinvol/identity-service/internal/config"
	"github.com/clinvol/identity-service/internal/db"
	"github.com/clinvol/identity-service/internal/logging"
	"github.com/clinvol/identity-service/internal/upstream/cognito"
	"github.com/clinvol/identity-service/internal/version"
)

func main() {
	log, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	// Missing configuration fails here, before any request is served.
	cfg, err := config.Load(os.Getenv("IDENTITY_CONFIG"))
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	hasher, err := secrethash.New(cfg.Provider.ClientID, cfg.Provider.ClientSecret)
	if err != nil {
		log.Fatal("failed to initialize secret hash deriver", zap.Error(err))
	}

	gateway, err := cognito.New(cognito.Config{
		Region:          cfg.Provider.Region,
		AccessKeyID:     cfg.Provider.AccessKeyID,
		SecretAccessKey: cfg.Provider.SecretAccessKey,
		UserPoolID:      cfg.Provider.UserPoolID,
		ClientID:        cfg.Provider.ClientID,
	}, hasher, log)
	if err != nil {
		log.Fatal("failed to initialize provider gateway", zap.Error(err))
	}

	verifier, err := apimiddleware.NewJWKSVerifier(cfg.Provider.JWKSURL(), cfg.Provider.Issuer())
	if err != nil {
		log.Fatal("failed to load provider signing keys", zap.Error(err))
	}

	svc := auth.NewService(gateway, db.NewUsers(database), log)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(logging.RequestID)

	r.Get("/healthz", handlers.HealthHandler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", handlers.SignUpHandler(svc, log))
		r.Post("/verify", handlers.VerifyHandler(svc, log))
		r.Post("/signin", handlers.SignInHandler(svc, log))
		r.Post("/refresh", handlers.RefreshHandler(svc, log))
		r.Post("/forgot-password", handlers.ForgotPasswordHandler(svc, log))
		r.Post("/confirm-password", handlers.ConfirmPasswordHandler(svc, log))

		// Destructive and introspective routes require a provider-issued
		// access token.
		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.RequireAccessToken(verifier, log))
			r.Post("/delete", handlers.DeleteHandler(svc, log))
			r.Get("/account/{sub}", handlers.AccountAttributesHandler(svc, log))
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	log.Info("identity-service started",
		zap.String("port", cfg.Port),
		zap.String("version", version.Version))

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("graceful shutdown failed", zap.Error(err))
	}
	log.Info("identity-service stopped cleanly")
}
