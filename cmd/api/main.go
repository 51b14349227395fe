package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"aura-journal/internal/adapters/analyzer"
	"aura-journal/internal/adapters/insightstore"
	"aura-journal/internal/adapters/repo"
	"aura-journal/internal/domain"
	"aura-journal/internal/infra/config"
	"aura-journal/internal/infra/db"
	httpinfra "aura-journal/internal/infra/http"
	loginfra "aura-journal/internal/infra/log"
	"aura-journal/internal/infra/metrics"
	"aura-journal/internal/infra/queue"
	"aura-journal/internal/usecase/ingest"
)

const serviceVersion = "1.0.0"

func main() {
	cfg := config.Load()
	logger := loginfra.NewLogger(cfg.AppEnv, "entry-api")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	backfillQueue, err := buildBackfillQueue(cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("api: не удалось настроить очередь backfill")
	}

	entryRepo := repo.NewPostgres(pool)
	insightRepo := insightstore.NewRedis(redisClient)
	agentClient := analyzer.NewAgentClient(cfg.NLPAgent.URL, cfg.NLPAgent.Timeout)

	service := ingest.NewService(entryRepo, insightRepo, agentClient, backfillQueue,
		logger.With().Str("component", "ingest").Logger(),
		ingest.Options{
			AnalysisTimeout: cfg.NLPAgent.Timeout,
			PageSize:        cfg.Limits.PageSize,
			PageSizeMax:     cfg.Limits.PageSizeMax,
		})

	srv := httpinfra.NewServer(logger)
	registerRoutes(srv.Router, service)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	if err := srv.Run(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Error().Err(err).Msg("api: сервер остановлен")
	}
}

func buildBackfillQueue(cfg config.AppConfig, redisClient *redis.Client) (domain.BackfillQueue, error) {
	switch cfg.Queues.Driver {
	case "redis":
		return queue.NewRedisBackfillQueue(redisClient, cfg.Queues.Backfill), nil
	case "rabbitmq":
		return queue.NewRabbitBackfillQueue(cfg.Queues.AMQPURL, cfg.Queues.ManagementURL, cfg.Queues.Backfill)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("неизвестный драйвер очереди %q", cfg.Queues.Driver)
	}
}

func registerRoutes(r chi.Router, service domain.IngestionService) {
	r.Post("/api/v1/entries", func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		var body createEntryRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.UserID == "" {
			httpinfra.WriteError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		userID, err := uuid.Parse(body.UserID)
		if err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "user_id must be a uuid")
			return
		}

		result, err := service.CreateEntry(req.Context(), userID, body.Content)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyContent) || errors.Is(err, domain.ErrMissingUser) {
				httpinfra.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error().Err(err).Msg("api: create entry")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to create journal entry")
			return
		}
		httpinfra.WriteJSON(w, http.StatusCreated, toEntryResponse(result))
	})

	r.Get("/api/v1/entries/{entryID}", func(w http.ResponseWriter, req *http.Request) {
		entryID, err := uuid.Parse(chi.URLParam(req, "entryID"))
		if err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "entry id must be a uuid")
			return
		}
		result, err := service.GetEntry(req.Context(), entryID)
		if err != nil {
			if errors.Is(err, domain.ErrEntryNotFound) {
				httpinfra.WriteError(w, http.StatusNotFound, "entry not found")
				return
			}
			log.Error().Err(err).Msg("api: get entry")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to load journal entry")
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, toEntryResponse(result))
	})

	r.Get("/api/v1/entries", func(w http.ResponseWriter, req *http.Request) {
		rawUserID := req.URL.Query().Get("user_id")
		if rawUserID == "" {
			httpinfra.WriteError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		userID, err := uuid.Parse(rawUserID)
		if err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "user_id must be a uuid")
			return
		}
		page := queryInt(req, "page", 1)
		pageSize := queryInt(req, "page_size", 0)

		entries, total, err := service.ListEntries(req.Context(), userID, page, pageSize)
		if err != nil {
			log.Error().Err(err).Msg("api: list entries")
			httpinfra.WriteError(w, http.StatusInternalServerError, "failed to list journal entries")
			return
		}
		items := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			items = append(items, toEntryResponse(e))
		}
		httpinfra.WriteJSON(w, http.StatusOK, listEntriesResponse{Entries: items, Total: total, Page: page})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "entry-api",
			"version": serviceVersion,
		})
	})
}

func queryInt(req *http.Request, name string, def int) int {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

type createEntryRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

type entryResponse struct {
	EntryID   string            `json:"entry_id"`
	UserID    string            `json:"user_id"`
	Timestamp time.Time         `json:"timestamp"`
	Content   string            `json:"content"`
	Analysis  *analysisResponse `json:"analysis"`
}

type analysisResponse struct {
	Sentiment sentimentResponse `json:"sentiment"`
	Topics    []string          `json:"topics"`
}

type sentimentResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type listEntriesResponse struct {
	Entries []entryResponse `json:"entries"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
}

func toEntryResponse(e domain.EntryWithInsight) entryResponse {
	resp := entryResponse{
		EntryID:   e.Entry.ID.String(),
		UserID:    e.Entry.UserID.String(),
		Timestamp: e.Entry.Timestamp,
		Content:   e.Entry.Content,
	}
	if e.Insight != nil {
		topics := e.Insight.Topics
		if topics == nil {
			topics = []string{}
		}
		resp.Analysis = &analysisResponse{
			Sentiment: sentimentResponse{
				Label: e.Insight.Sentiment.Label,
				Score: e.Insight.Sentiment.Score,
			},
			Topics: topics,
		}
	}
	return resp
}
