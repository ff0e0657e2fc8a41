package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/database/redis"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/prometheus"
	nodehttp "github.com/biograph-io/nodenorm/internal/interfaces/http"
	"github.com/biograph-io/nodenorm/internal/interfaces/http/handlers"
	"github.com/biograph-io/nodenorm/internal/interfaces/http/middleware"
	"github.com/biograph-io/nodenorm/internal/normalize"
	"github.com/biograph-io/nodenorm/internal/setid"
	"github.com/biograph-io/nodenorm/internal/trapi"
)

func newServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the normalization HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			return runServe(cfg, logger)
		},
	}
}

func runServe(cfg *config.Config, logger logging.Logger) error {
	topo, err := config.LoadStoreTopology(cfg.Stores.ConfigFile)
	if err != nil {
		return err
	}
	store, err := redis.Connect(topo, cfg.Stores, logger.Named("redis"))
	if err != nil {
		return err
	}
	defer store.Close()

	collector := prometheus.NewCollector()
	store.SetObserver(collector)

	policy := normalize.DefaultLabelPolicy()
	if cfg.Labels.PolicyFile != "" {
		policy, err = normalize.LoadLabelPolicy(cfg.Labels.PolicyFile)
		if err != nil {
			return err
		}
	}

	resolver := normalize.NewResolver(store, policy, logger)
	resolver.SetCurieCounter(collector)
	normalizer := trapi.NewNormalizer(resolver, store, logger)
	generator := setid.NewGenerator(resolver, logger)

	router := nodehttp.NewRouter(nodehttp.RouterConfig{
		NodesHandler:      handlers.NewNodesHandler(resolver, logger),
		MessageHandler:    handlers.NewMessageHandler(normalizer, logger),
		SetIDHandler:      handlers.NewSetIDHandler(generator, logger),
		MetaHandler:       handlers.NewMetaHandler(store, logger),
		StatusHandler:     handlers.NewStatusHandler(store, cfg, logger),
		HealthHandler:     handlers.NewHealthHandler(store, logger),
		CORSMiddleware:    middleware.NewCORSMiddleware(middleware.DefaultCORSConfig()),
		LoggingMiddleware: middleware.NewLoggingMiddleware(logger, "/healthz", "/readyz", "/metrics"),
		MetricsMiddleware: middleware.NewMetricsMiddleware(collector),
		Logger:            logger,
		MetricsCollector:  collector,
	})

	server := nodehttp.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("Shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Stop(ctx)
}
