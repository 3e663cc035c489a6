package settled

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"drippy/config"
	"drippy/core/engine"
	"drippy/core/events"
	"drippy/gateway/middleware"
	"drippy/native/accrual"
	"drippy/native/common"
	"drippy/native/fees"
	"drippy/observability"
	"drippy/observability/logging"
	telemetry "drippy/observability/otel"
	"drippy/services/payoutd"
	"drippy/services/payoutd/journal"
	"drippy/services/payoutd/wallet"
	"drippy/storage"
)

// rateLimitedRoutes share the configured per-client limit.
var rateLimitedRoutes = []string{"operations", "plan", "accounts", "stats", "admin"}

// Main initialises and runs the settlement daemon.
func Main() error {
	var cfgPath, envFile string
	flag.StringVar(&cfgPath, "config", "settled.toml", "path to settled configuration")
	flag.StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the configuration")
	flag.Parse()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.SetupWithOptions(logging.Options{
		Service:    "settled",
		Env:        cfg.Env,
		Level:      logging.ParseLevel(cfg.Log.Level),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "settled",
		Environment: cfg.Env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.Open(cfg.StorageBackend, filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()

	jrnl, err := journal.Open(cfg.JournalDSN)
	if err != nil {
		return err
	}
	defer jrnl.Close()
	logger.Info("journal opened", "dsn", logging.MaskDSN(cfg.JournalDSN))

	processor, err := newProcessor(cfg, db, jrnl, logger)
	if err != nil {
		return err
	}

	distCfg, err := cfg.Hook.DistributorConfig()
	if err != nil {
		return err
	}
	distributor, err := fees.NewDistributor(distCfg, jrnl, fees.NewStatsStore(db), processor)
	if err != nil {
		return fmt.Errorf("init distributor: %w", err)
	}

	params := cfg.Hook.ClaimParams()
	ledger := accrual.NewLedger(db)
	pauses := common.NewPauseSet(cfg.PausedModules...)
	eng, err := engine.New(engine.Deps{
		Ledger:      ledger,
		Authority:   accrual.NewAuthority(ledger, accrual.AdminOnly(params.Admin), params.BoostMax),
		Claims:      accrual.NewMachine(ledger, params, processor),
		Distributor: distributor,
		MinAmount:   cfg.Hook.MinAmount,
		Pauses:      pauses,
		Events:      events.LogEmitter{Logger: logger, Count: observability.Events().Record},
		Alerts:      jrnl,
		Logger:      logger,
		Metrics:     observability.Settlement(),
	})
	if err != nil {
		return err
	}

	limits := make(map[string]middleware.RateLimit, len(rateLimitedRoutes))
	for _, route := range rateLimitedRoutes {
		limits[route] = middleware.RateLimit{RatePerSecond: cfg.API.RateLimitPerSecond, Burst: cfg.API.RateLimitBurst}
	}
	secret := strings.TrimSpace(cfg.API.JWTSecret)
	if secret == "" {
		logger.Warn("api authentication disabled: no jwt secret configured")
	}
	server, err := New(Config{
		Engine:    eng,
		Processor: processor,
		Journal:   jrnl,
		Pauses:    pauses,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    secret != "",
			HMACSecret: secret,
			Issuer:     cfg.API.JWTIssuer,
		}, logger),
		RateLimiter:   middleware.NewRateLimiter(limits, logger),
		Observability: middleware.NewObservability("settled", logger),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("settled listening",
			"addr", cfg.Listen,
			"storage", cfg.StorageBackend,
			"asset", params.Asset.String(),
			"paused", pauses.Paused())
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newProcessor(cfg *config.Config, db storage.Database, jrnl *journal.Journal, logger *slog.Logger) (*payoutd.Processor, error) {
	opts := []payoutd.ProcessorOption{
		payoutd.WithJournal(jrnl),
		payoutd.WithLogger(logger),
		payoutd.WithMetrics(payoutd.NewMetrics()),
	}
	if path := strings.TrimSpace(cfg.PoliciesPath); path != "" {
		policies, err := payoutd.LoadPolicies(path)
		if err != nil {
			return nil, fmt.Errorf("load policies: %w", err)
		}
		enforcer, err := payoutd.NewPolicyEnforcer(policies)
		if err != nil {
			return nil, fmt.Errorf("init policies: %w", err)
		}
		opts = append(opts, payoutd.WithPolicies(enforcer))
	}
	if endpoint := strings.TrimSpace(cfg.Wallet.Endpoint); endpoint != "" {
		w, err := wallet.NewHTTPWallet(endpoint,
			wallet.WithBearerToken(cfg.Wallet.Token),
			wallet.WithHTTPClient(&http.Client{Timeout: cfg.Wallet.WalletTimeout()}),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, payoutd.WithWallet(w))
		logger.Info("wallet configured",
			"endpoint", endpoint,
			logging.MaskField("token", cfg.Wallet.Token),
			"timeout", cfg.Wallet.WalletTimeout())
	} else {
		logger.Warn("no wallet endpoint configured; every payout will fail until one is set")
	}
	processor, err := payoutd.NewProcessor(payoutd.NewReserveStore(db), opts...)
	if err != nil {
		return nil, fmt.Errorf("init processor: %w", err)
	}
	return processor, nil
}
