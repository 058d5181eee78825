package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"visa-checker/internal/app"
	"visa-checker/internal/config"
	"visa-checker/internal/infra/memory"
	redisstore "visa-checker/internal/infra/redis"
	transport "visa-checker/internal/transport/http"
)

const defaultSessionTTL = 30 * time.Minute

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, envPort string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the questionnaire server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", envPort, "port to listen on (overrides config)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = newRedisClient(cfg)
		defer redisClient.Close()
	}

	loader, closeLoader, err := catalogLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLoader()

	catalogTTL := config.Duration(cfg.Catalog.TTL, defaultCatalogTTL)
	sessionTTL := config.Duration(cfg.Wizard.SessionTTL, defaultSessionTTL)

	var catalogRepo app.CatalogRepository
	var store app.SessionRepository
	var live transport.LiveCounter
	if redisClient != nil {
		catalogRepo = redisstore.NewCatalogRepository(redisClient, loader, catalogTTL)
		redisSessions := redisstore.NewSessionStore(redisClient, sessionTTL)
		store, live = redisSessions, redisSessions
	} else {
		catalogRepo = memory.NewCatalogRepository(loader, catalogTTL)
		store = memory.NewSessionStore()
	}

	service := app.NewWizardService(store, catalogRepo, cfg.Presenter(), app.WithAdvanceDelay(advanceDelay(cfg)))
	defaultCatalog := defaultCatalogID(cfg)
	if _, err := service.Catalog(ctx, defaultCatalog); err != nil {
		log.Printf("default catalog %q unavailable: %v", defaultCatalog, err)
	}

	router := transport.NewRouter(
		transport.NewWSHandler(service, defaultCatalog),
		transport.NewAPI(service, defaultCatalog, live),
		cfg.Server.CORSOrigins,
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepIdle(sweepCtx, service, sessionTTL)

	go func() {
		log.Printf("starting visa checker on :%s (default catalog %s)", finalPort, defaultCatalog)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sweepIdle ends sessions abandoned without a websocket close or DELETE.
func sweepIdle(ctx context.Context, service *app.WizardService, maxIdle time.Duration) {
	interval := maxIdle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := service.ExpireIdle(ctx, maxIdle); n > 0 {
				log.Printf("expired %d idle sessions", n)
			}
		}
	}
}
