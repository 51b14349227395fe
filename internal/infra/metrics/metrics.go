package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	EntriesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entries_created_total",
		Help: "Количество созданных записей дневника",
	})

	EntryCreateSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "entry_create_seconds",
		Help:    "Время обработки создания записи",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_failures_total",
		Help: "Отказы анализа текста по причинам",
	}, []string{"kind"})

	InsightWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insight_write_failures_total",
		Help: "Ошибки записи инсайтов в документное хранилище",
	})

	BackfillJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backfill_jobs_total",
		Help: "Обработанные задачи повторного анализа по статусам",
	}, []string{"status"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60, 120},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		EntriesCreatedTotal,
		EntryCreateSeconds,
		AnalysisFailuresTotal,
		InsightWriteFailuresTotal,
		BackfillJobsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// IncEntryCreated увеличивает счётчик созданных записей.
func IncEntryCreated() {
	EntriesCreatedTotal.Inc()
}

// IncAnalysisFailure увеличивает счётчик отказов анализа.
func IncAnalysisFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	AnalysisFailuresTotal.WithLabelValues(kind).Inc()
}

// IncInsightWriteFailure увеличивает счётчик ошибок записи инсайтов.
func IncInsightWriteFailure() {
	InsightWriteFailuresTotal.Inc()
}

// IncBackfillJob увеличивает счётчик задач повторного анализа.
func IncBackfillJob(status string) {
	BackfillJobsTotal.WithLabelValues(status).Inc()
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}
