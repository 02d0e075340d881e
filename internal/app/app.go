// Package app wires the storefront's dependencies and runs the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	sdkapp "github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/vetrina/storefront/internal/api"
	"github.com/vetrina/storefront/internal/auth"
	"github.com/vetrina/storefront/internal/bag"
	"github.com/vetrina/storefront/internal/catalog"
	"github.com/vetrina/storefront/internal/checkout"
	"github.com/vetrina/storefront/internal/cms"
	domain "github.com/vetrina/storefront/internal/domain/catalog"
	"github.com/vetrina/storefront/internal/newsletter"
	"github.com/vetrina/storefront/internal/notify"
	"github.com/vetrina/storefront/internal/storage/file"
	"github.com/vetrina/storefront/internal/storage/postgres"
	"github.com/vetrina/storefront/pkg/health"
	"github.com/vetrina/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *sdkapp.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Catalog source: headless CMS when configured, local table otherwise.
	var source domain.Source
	if cfg.CMS.SpaceID != "" {
		lg.Info("Using CMS catalog source", zap.String("space", cfg.CMS.SpaceID))
		source = cms.NewClient(cms.Config{
			SpaceID:       cfg.CMS.SpaceID,
			Environment:   cfg.CMS.Environment,
			DeliveryToken: cfg.CMS.DeliveryToken,
			PreviewToken:  cfg.CMS.PreviewToken,
			ContentType:   cfg.CMS.ContentType,
		})
	} else {
		lg.Info("Using static catalog source")
		source = postgres.NewStaticCatalogSource(pool)
	}

	resolver := catalog.NewResolver(source, catalog.Config{
		TTL:      cfg.Catalog.TTL,
		PageSize: cfg.Catalog.PageSize,
	}, lg.Named("catalog"))

	// Bag snapshot backend.
	var snaps bag.Snapshots
	switch cfg.Bag.Storage {
	case "file":
		snaps, err = file.NewBagSnapshotStore(cfg.Bag.Dir)
		if err != nil {
			return errors.Wrap(err, "create file snapshot store")
		}
	default:
		snaps = postgres.NewBagSnapshotRepository(pool)
	}
	bags := bag.NewManager(snaps, lg.Named("bag"))
	bags.StartEviction(ctx, cfg.Bag.IdleTTL)

	// Checkout and newsletter services.
	mailer := notify.NewMailer(notify.Config{
		Endpoint: cfg.Mail.Endpoint,
		APIKey:   cfg.Mail.APIKey,
		From:     cfg.Mail.From,
	})
	checkoutSvc := checkout.NewService(
		checkout.ServiceConfig{
			WhatsAppPhone: cfg.Checkout.WhatsAppPhone,
			NotifyEmail:   cfg.Checkout.NotifyEmail,
		},
		postgres.NewOrderRepository(pool),
		mailer,
		lg.Named("checkout"),
	)
	newsletterSvc := newsletter.NewService(
		postgres.NewSubscriberRepository(pool),
		lg.Named("newsletter"),
	)

	// HTTP handlers.
	h := api.NewHandler(resolver, bags, checkoutSvc, newsletterSvc,
		auth.NewVerifier([]byte(cfg.JWTSecret)),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Router())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-Session-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m),
			httpmiddleware.LogRequests("/livez", "/readyz"),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
