package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"joblink/internal/api"
	"joblink/internal/auth"
	"joblink/internal/config"
	"joblink/internal/database"
	"joblink/internal/session"
	"joblink/internal/storage"
	"joblink/internal/workflow"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.String("name", cfg.Database.Name),
	)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}
	logger.Info("redis ready", slog.String("addr", cfg.Redis.Addr()))

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage ready", slog.String("bucket", cfg.MinIO.Bucket))

	tickets, err := auth.NewTicketService([]byte(cfg.Ticket.PrivateKeyPEM), []byte(cfg.Ticket.PublicKeyPEM), cfg.Ticket.TTL)
	if err != nil {
		log.Fatalf("init ticket service: %v", err)
	}

	sessions := session.NewStore(redisClient, cfg.Session.TTL)
	notifier := workflow.NewNotifier(db, redisClient, logger)
	wf := workflow.NewService(db, notifier, logger)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, cfg, db, redisClient, sessions, tickets, wf, storageClient, logger)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
