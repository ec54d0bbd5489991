package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/iota-uz/nero/migrations"
	"github.com/iota-uz/nero/modules"
	"github.com/iota-uz/nero/pkg/application"
	"github.com/iota-uz/nero/pkg/configuration"
	"github.com/iota-uz/nero/pkg/eventbus"
	"github.com/iota-uz/nero/pkg/httpapi"
	"github.com/iota-uz/nero/pkg/metrics"
	"github.com/iota-uz/nero/pkg/middleware"
	"github.com/iota-uz/nero/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	if err := migrations.UpCatalog(db); err != nil {
		log.Fatalf("failed to apply catalog migrations: %v", err)
	}
	if err := db.Close(); err != nil {
		logger.WithError(err).Warn("failed to close migration connection")
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	app.RegisterMiddleware(
		middleware.WithLogger(logger),
		middleware.WithRequestParams(),
		middleware.WithPool(pool),
		middleware.WebhookReplayProtection(middleware.WebhookReplayProtectionOptions{
			Path: conf.Billing.WebhookPath,
		}),
	)
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "not found", nil)
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	srv := server.NewHTTPServer(app, notFound, methodNotAllowed)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Listening on: %s\n", conf.Origin)
	if err := srv.Start(runCtx, conf.SocketAddress); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
