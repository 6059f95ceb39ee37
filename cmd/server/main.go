package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/semanticallynull/bikeledger/api"
	"github.com/semanticallynull/bikeledger/bike"
	"github.com/semanticallynull/bikeledger/customer"
	"github.com/semanticallynull/bikeledger/internal/auth0"
	"github.com/semanticallynull/bikeledger/internal/blockclock"
	"github.com/semanticallynull/bikeledger/internal/guard"
	"github.com/semanticallynull/bikeledger/internal/middleware"
	"github.com/semanticallynull/bikeledger/internal/o11y"
	"github.com/semanticallynull/bikeledger/internal/payments"
	"github.com/semanticallynull/bikeledger/maintenance"
	"github.com/semanticallynull/bikeledger/store"
)

var cli = struct {
	// DatabaseURL selects the Postgres journal. Without it state lives in
	// memory only.
	DatabaseURL string    `name:"database-url" env:"DATABASE_URL"`
	Port        int       `name:"port" env:"PORT" default:"8080"`
	Owner       string    `name:"registry-owner" env:"REGISTRY_OWNER" required:""`
	Genesis     time.Time `name:"genesis" env:"GENESIS" default:"2025-01-01T00:00:00Z"`

	Auth0Domain string `name:"auth0-domain" env:"AUTH0_DOMAIN"`
	Audience    string `name:"audience" env:"AUDIENCE"`
	DevAuth     bool   `name:"dev-auth" env:"DEV_AUTH" help:"Trust the X-Caller header instead of a JWT."`

	StripeKey string `name:"stripe-key" env:"STRIPE_KEY"`

	MetricsUsername string `name:"metrics-username" env:"METRICS_USERNAME"`
	MetricsPassword string `name:"metrics-password" env:"METRICS_PASSWORD"`

	OTLPEndpoint string  `name:"otlp-endpoint" env:"OTLP_ENDPOINT"`
	SampleRatio  float64 `name:"sample-ratio" env:"TRACE_SAMPLE_RATIO" default:"1"`
	LogLevel     string  `name:"log-level" env:"LOG_LEVEL" default:"info"`
}{}

func main() {
	if err := run(); err != nil {
		log.Fatalf("unexpected error: %v", err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	kong.Parse(&cli)

	obs, cleanup, err := o11y.Setup(ctx, o11y.Config{
		OTLPEndpoint: cli.OTLPEndpoint,
		LogLevel:     cli.LogLevel,
		SampleRatio:  cli.SampleRatio,
	})
	defer cleanup()
	if err != nil {
		return err
	}

	journal, err := openJournal(ctx, obs.Logger)
	if err != nil {
		return err
	}

	s := store.New(journal, obs.Logger)
	g := guard.New(s)
	registry := bike.NewRegistry(s, g)
	ledgers := api.Ledgers{
		Guard:       g,
		Registry:    registry,
		Maintenance: maintenance.New(s, g, registry),
		Accounts:    customer.New(s, g),
	}
	if err := s.Restore(ctx); err != nil {
		return err
	}
	if err := g.Bootstrap(ctx, cli.Owner); err != nil {
		return fmt.Errorf("bootstrap owner: %w", err)
	}
	obs.Logger.Info("ledgers ready", "seq", s.Seq(), "owner", g.Owner())

	opts := api.Options{
		Clock:           blockclock.NewWall(cli.Genesis),
		Payments:        payments.Accept{},
		MetricsUsername: cli.MetricsUsername,
		MetricsPassword: cli.MetricsPassword,
	}
	if cli.StripeKey != "" {
		opts.Payments = payments.NewStripeVerifier(cli.StripeKey)
	}
	switch {
	case cli.DevAuth:
		obs.Logger.Warn("dev auth enabled, callers are taken from the X-Caller header")
		opts.Auth = []gin.HandlerFunc{middleware.DevAuth()}
	case cli.Auth0Domain != "":
		opts.Auth, err = middleware.Auth(cli.Auth0Domain, cli.Audience)
		if err != nil {
			return err
		}
		opts.Profiles = auth0.NewHTTPClient(cli.Auth0Domain)
	default:
		return errors.New("either --auth0-domain or --dev-auth is required")
	}

	a := api.New(ledgers, obs, opts)

	serv := http.Server{
		Addr:    fmt.Sprintf(":%d", cli.Port),
		Handler: a.Router(),
	}

	go func() {
		if err := serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = serv.Shutdown(ctx)
	if err != nil {
		return err
	}
	return nil
}

func openJournal(ctx context.Context, logger *slog.Logger) (store.Journal, error) {
	if cli.DatabaseURL == "" {
		logger.Warn("no database configured, ledger state will not survive a restart")
		return store.Discard{}, nil
	}

	db, err := sqlx.ConnectContext(ctx, "pgx", cli.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store.NewPostgresJournal(db), nil
}
