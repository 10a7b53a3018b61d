package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npezzotti/campus-messaging/internal/api"
	"github.com/npezzotti/campus-messaging/internal/config"
	"github.com/npezzotti/campus-messaging/internal/database"
	"github.com/npezzotti/campus-messaging/internal/relay"
	"github.com/npezzotti/campus-messaging/internal/server"
	"github.com/npezzotti/campus-messaging/internal/service"
	"github.com/npezzotti/campus-messaging/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	store          string
	dsn            string
	signingKey     string
	natsURL        string
	allowedOrigins stringSliceFlag
	seedUsers      stringSliceFlag
)

func main() {
	logger := log.New(os.Stderr, "[campus] ", log.LstdFlags)

	env, err := config.LoadEnv()
	if err != nil {
		logger.Fatal("env: ", err)
	}
	if env.SigningKey == "" {
		env.SigningKey = defaultSigningKey
	}

	flag.StringVar(&addr, "addr", env.Addr, "server address")
	flag.StringVar(&store, "store", env.Store, "message store: postgres or memory")
	flag.StringVar(&dsn, "dsn", env.DSN, "database connection string")
	flag.StringVar(&signingKey, "signing-key", env.SigningKey, "base64 encoded signing key")
	flag.StringVar(&natsURL, "nats-url", env.NatsURL, "NATS server URL for cross-node delivery (disabled when empty)")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Var(&seedUsers, "seed-users", "comma-separated id=ROLE users to load into the memory store")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		allowedOrigins = env.AllowedOrigins
	}

	cfg, err := config.NewConfig(addr, store, dsn, signingKey, allowedOrigins, natsURL)
	if err != nil {
		logger.Fatal("config: ", err)
	}

	repo, err := openRepository(cfg, seedUsers)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	mux := http.NewServeMux()
	statsUpdater := stats.NewStatsUpdater(mux)

	registry := server.NewRegistry(logger, statsUpdater)
	broker, err := server.NewBroker(logger, registry, statsUpdater)
	if err != nil {
		logger.Fatal("new broker: ", err)
	}

	if cfg.NatsURL != "" {
		r, err := relay.NewNatsRelay(logger, cfg.NatsURL, statsUpdater)
		if err != nil {
			logger.Fatal("relay: ", err)
		}
		if err := r.Subscribe(func(userId, event string, data []byte) {
			broker.DeliverLocal(userId, event, data)
		}); err != nil {
			logger.Fatal("relay: ", err)
		}
		broker.SetRelay(r)
		defer func() {
			if err := r.Close(); err != nil {
				logger.Println("relay close:", err)
			}
		}()
		logger.Printf("relay enabled as node %s", r.Node())
	}

	messages, err := service.NewMessageService(logger, repo, repo, broker)
	if err != nil {
		logger.Fatal("message service: ", err)
	}
	notifications, err := service.NewNotificationService(logger, repo, repo, broker)
	if err != nil {
		logger.Fatal("notification service: ", err)
	}

	srv := api.NewApp(mux, logger, registry, messages, notifications, repo, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Println("server:", err)
		}
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	logger.Println("closing live sessions...")
	if err := registry.Shutdown(shutDownCtx); err != nil {
		logger.Println("registry shutdown:", err)
	}

	logger.Println("shutdown complete")
}

func openRepository(cfg *config.Config, seed []string) (database.Repository, error) {
	if cfg.StoreDriver == config.StoreMemory {
		repo := database.NewMemoryRepository()
		for _, entry := range seed {
			id, role, ok := strings.Cut(entry, "=")
			if !ok || id == "" {
				return nil, fmt.Errorf("invalid seed user %q", entry)
			}
			repo.PutUser(database.User{Id: id, Name: id, Role: strings.ToUpper(role)})
		}
		return repo, nil
	}

	repo, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := repo.Migrate(); err != nil {
		repo.Close()
		return nil, err
	}

	return repo, nil
}
