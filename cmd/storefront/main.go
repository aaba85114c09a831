package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aduboahen/juicekart/api/routes"
	"github.com/aduboahen/juicekart/internal/backend"
	"github.com/aduboahen/juicekart/internal/cart"
	"github.com/aduboahen/juicekart/internal/checkout"
	"github.com/aduboahen/juicekart/internal/identity"
	"github.com/aduboahen/juicekart/internal/nav"
	"github.com/aduboahen/juicekart/internal/notify"
	"github.com/aduboahen/juicekart/internal/orders"
	"github.com/aduboahen/juicekart/internal/pending"
	"github.com/aduboahen/juicekart/internal/session"
	"github.com/aduboahen/juicekart/internal/state"
	"github.com/aduboahen/juicekart/pkg/config"
	"github.com/aduboahen/juicekart/pkg/logger"
	"github.com/aduboahen/juicekart/pkg/metrics"
)

// tokenProxy defers token lookups until the session manager exists; the
// backend client and the manager reference each other at wiring time.
type tokenProxy struct {
	manager *session.Manager
}

func (p *tokenProxy) Token() string {
	if p.manager == nil {
		return ""
	}
	return p.manager.Token()
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	stateStore, err := state.Open(context.Background(), cfg.State, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open state store", err)
		os.Exit(1)
	}
	defer func() {
		if err := stateStore.Close(); err != nil {
			logg.Error(context.Background(), "error closing state store", err)
		}
	}()

	tokens := &tokenProxy{}
	var sessions *session.Manager
	client, err := backend.NewClient(cfg.Backend, logg,
		backend.WithTokenSource(tokens),
		backend.WithUnauthorizedHook(func() {
			if sessions == nil {
				return
			}
			if err := sessions.SignOut(context.Background()); err != nil {
				logg.Warn(context.Background(), "forced sign-out failed: "+err.Error())
			}
		}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create backend client", err)
		os.Exit(1)
	}

	sessions, err = session.NewManager(client, stateStore, cfg.Session, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}
	tokens.manager = sessions

	registry := prometheus.NewRegistry()
	storeMetrics := metrics.NewStorefrontMetrics(registry)

	navigator := nav.NewRecorder(logg)
	notifier := notify.NewLogNotifier(logg)

	cartStore, err := cart.New(cart.Params{
		Remote:   client,
		State:    stateStore,
		Notifier: notifier,
		Metrics:  storeMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}

	relay, err := pending.New(pending.Params{
		Store:     stateStore,
		Cart:      cartStore,
		Navigator: navigator,
		Metrics:   storeMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending relay", err)
		os.Exit(1)
	}

	transitions, err := identity.New(identity.Params{
		Cart:     cartStore,
		Remote:   client,
		Relay:    relay,
		Sessions: sessions,
		Store:    stateStore,
		Scopes:   stateStore,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create identity handler", err)
		os.Exit(1)
	}
	sessions.SetListener(transitions)

	checkoutService, err := checkout.New(checkout.Params{
		Cart:     cartStore,
		Remote:   client,
		Nav:      navigator,
		Store:    stateStore,
		Notifier: notifier,
		Metrics:  storeMetrics,
		Logger:   logg,
		Config:   cfg.Checkout,
		Payments: cfg.Payment,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	orderService, err := orders.New(client, notifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	if err := transitions.Bootstrap(context.Background()); err != nil {
		logg.Warn(context.Background(), "identity bootstrap failed: "+err.Error())
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting storefront runtime")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg.App, logg, registry, checkoutService, orderService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "storefront server stopped unexpectedly", err)
		os.Exit(1)
	}
}
