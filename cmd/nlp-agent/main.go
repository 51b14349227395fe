package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"aura-journal/internal/adapters/analyzer"
	"aura-journal/internal/domain"
	"aura-journal/internal/infra/config"
	httpinfra "aura-journal/internal/infra/http"
	loginfra "aura-journal/internal/infra/log"
	"aura-journal/internal/infra/metrics"
	"aura-journal/internal/infra/openai"
)

const serviceVersion = "1.0.0"

func main() {
	cfg := config.Load()
	logger := loginfra.NewLogger(cfg.AppEnv, "nlp-agent")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var textAnalyzer domain.Analyzer
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		textAnalyzer = analyzer.NewOpenAI(client, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
		logger.Info().Str("model", cfg.OpenAI.Model).Msg("nlp-agent: анализ через OpenAI")
	} else {
		textAnalyzer = analyzer.NewSimple()
		logger.Info().Msg("nlp-agent: ключ OpenAI не задан, используется эвристика")
	}

	srv := httpinfra.NewServer(logger)

	srv.Router.Post("/analyze", func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		var body analyzeRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(body.Text) == "" {
			httpinfra.WriteError(w, http.StatusBadRequest, "text is required")
			return
		}

		analysis, err := textAnalyzer.Analyze(req.Context(), body.Text)
		if err != nil {
			log.Error().Err(err).Msg("nlp-agent: анализ не удался")
			httpinfra.WriteError(w, http.StatusInternalServerError, "error during text analysis")
			return
		}
		topics := analysis.Topics
		if topics == nil {
			topics = []string{}
		}
		httpinfra.WriteJSON(w, http.StatusOK, analyzeResponse{
			Sentiment: sentimentResponse{
				Label: analysis.Sentiment.Label,
				Score: analysis.Sentiment.Score,
			},
			Topics: topics,
		})
	})

	srv.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "nlp-agent",
			"version": serviceVersion,
		})
	})

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	if err := srv.Run(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Error().Err(err).Msg("nlp-agent: сервер остановлен")
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Sentiment sentimentResponse `json:"sentiment"`
	Topics    []string          `json:"topics"`
}

type sentimentResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
