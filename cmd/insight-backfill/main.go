package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"aura-journal/internal/adapters/analyzer"
	"aura-journal/internal/adapters/insightstore"
	"aura-journal/internal/adapters/repo"
	"aura-journal/internal/domain"
	"aura-journal/internal/infra/config"
	"aura-journal/internal/infra/db"
	loginfra "aura-journal/internal/infra/log"
	"aura-journal/internal/infra/metrics"
	"aura-journal/internal/infra/queue"
	"aura-journal/internal/usecase/ingest"
)

func main() {
	cfg := config.Load()
	logger := loginfra.NewLogger(cfg.AppEnv, "insight-backfill")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("backfill: нет подключения к БД")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	backfillQueue, err := buildBackfillQueue(cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("backfill: не удалось настроить очередь")
	}

	service := ingest.NewService(
		repo.NewPostgres(pool),
		insightstore.NewRedis(redisClient),
		analyzer.NewAgentClient(cfg.NLPAgent.URL, cfg.NLPAgent.Timeout),
		nil, // воркер сам не ставит новые задачи, иначе отказ зациклится
		logger.With().Str("component", "ingest").Logger(),
		ingest.Options{AnalysisTimeout: cfg.NLPAgent.Timeout},
	)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	logger.Info().Str("queue", cfg.Queues.Backfill).Msg("backfill: воркер запущен")
	for {
		job, err := backfillQueue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("backfill: остановка")
				return
			}
			logger.Error().Err(err).Msg("backfill: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if err := service.BackfillEntry(ctx, job); err != nil {
			logger.Error().Err(err).Str("entry_id", job.EntryID.String()).Msg("backfill: задача не выполнена")
		}
	}
}

func buildBackfillQueue(cfg config.AppConfig, redisClient *redis.Client) (domain.BackfillQueue, error) {
	switch cfg.Queues.Driver {
	case "redis":
		return queue.NewRedisBackfillQueue(redisClient, cfg.Queues.Backfill), nil
	case "rabbitmq":
		return queue.NewRabbitBackfillQueue(cfg.Queues.AMQPURL, cfg.Queues.ManagementURL, cfg.Queues.Backfill)
	default:
		return nil, fmt.Errorf("неизвестный драйвер очереди %q", cfg.Queues.Driver)
	}
}
