package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/e1ixyz/ReportSystem-sub000/internal/api/http"
	"github.com/e1ixyz/ReportSystem-sub000/internal/api/http/handlers"
	"github.com/e1ixyz/ReportSystem-sub000/internal/config"
	"github.com/e1ixyz/ReportSystem-sub000/internal/events"
	"github.com/e1ixyz/ReportSystem-sub000/internal/evidence"
	"github.com/e1ixyz/ReportSystem-sub000/internal/ingest"
	"github.com/e1ixyz/ReportSystem-sub000/internal/observability"
	"github.com/e1ixyz/ReportSystem-sub000/internal/storage"
	"github.com/e1ixyz/ReportSystem-sub000/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model, err := config.LoadModel(cfg.Model.Path)
	if err != nil {
		logger.Fatal("failed to load moderation model", zap.Error(err))
	}

	backend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init storage backend", zap.Error(err))
	}
	defer backend.Close()
	if err := backend.Init(ctx); err != nil {
		logger.Fatal("failed to prepare storage", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	subscribeLogging(dispatcher, logger)

	ticketStore := store.New(backend, model, dispatcher, logger)
	if err := ticketStore.LoadAll(ctx); err != nil {
		logger.Fatal("failed to load tickets", zap.Error(err))
	}

	buffer := evidence.NewBuffer(evidence.DefaultMaxEntries, evidence.DefaultMaxAge)
	pipeline := ingest.New(buffer, ticketStore, logger)

	if cfg.Redis.Addr != "" {
		source := ingest.NewSource(cfg.Redis, pipeline, logger)
		defer source.Close()
		go func() {
			if err := source.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("chat source stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("REDIS_ADDR not provided; live chat ingestion disabled")
	}

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Reports: handlers.NewReportsHandler(ticketStore, buffer),
		Tickets: handlers.NewTicketsHandler(ticketStore, model),
		Ops:     handlers.NewOpsHandler(ticketStore, model, logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(model, logger)

	_ = app.Shutdown()
}

func newBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendPostgres:
		return storage.NewPostgresBackend(ctx, cfg.Storage, logger)
	default:
		return storage.NewFileBackend(cfg.Storage.DataDir, logger), nil
	}
}

// subscribeLogging attaches an operational log listener to every lifecycle
// event. Consumers outside the engine (webhook notifiers, front ends)
// subscribe the same way.
func subscribeLogging(dispatcher events.Dispatcher, logger *zap.Logger) {
	for _, typ := range []events.EventType{
		events.EventReportFiled,
		events.EventReportStacked,
		events.EventTicketAssigned,
		events.EventTicketUnassigned,
		events.EventTicketClosed,
		events.EventTicketReopened,
		events.EventWatchedLogin,
	} {
		dispatcher.Subscribe(typ, func(_ context.Context, ev events.Event) error {
			logger.Info("ticket event",
				zap.String("type", string(ev.Type)),
				zap.Int64("ticket_id", ev.TicketID),
			)
			return nil
		})
	}
	dispatcher.Subscribe(events.EventEvidenceAppended, func(_ context.Context, ev events.Event) error {
		logger.Debug("ticket event",
			zap.String("type", string(ev.Type)),
			zap.Int64("ticket_id", ev.TicketID),
		)
		return nil
	})
}

// waitForShutdown blocks until SIGINT/SIGTERM, reloading the moderation
// model on SIGHUP.
func waitForShutdown(model *config.ModelStore, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			if err := model.Reload(); err != nil {
				logger.Error("model reload failed", zap.Error(err))
			} else {
				logger.Info("model reloaded")
			}
			continue
		}
		logger.Info("shutting down", zap.String("signal", sig.String()))
		return
	}
}
