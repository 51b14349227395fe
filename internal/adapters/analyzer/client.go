package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"aura-journal/internal/domain"
	"aura-journal/internal/infra/metrics"
)

// AgentClient вызывает сервис nlp-agent по HTTP.
// Текст передаётся как есть, валидация на совести вызывающей стороны.
type AgentClient struct {
	http    *http.Client
	baseURL string
}

var _ domain.Analyzer = (*AgentClient)(nil)

// NewAgentClient создаёт клиента анализа.
func NewAgentClient(baseURL string, timeout time.Duration) *AgentClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AgentClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzePayload struct {
	Sentiment *struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"sentiment"`
	Topics []string `json:"topics"`
}

// Analyze отправляет текст на анализ и классифицирует отказы.
func (c *AgentClient) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return domain.Analysis{}, domain.NewAnalysisError(domain.AnalysisBadPayload, fmt.Errorf("marshal request: %w", err))
	}
	endpoint := c.baseURL + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Analysis{}, domain.NewAnalysisError(domain.AnalysisRemote, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("nlp_agent", "analyze", "analyze", start, err)
		return domain.Analysis{}, domain.NewAnalysisError(classifyTransportError(err), fmt.Errorf("nlp agent: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.ObserveNetworkRequest("nlp_agent", "analyze", "analyze", start, err)
		return domain.Analysis{}, domain.NewAnalysisError(domain.AnalysisRemote, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("nlp agent: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("nlp_agent", "analyze", "analyze", start, err)
		return domain.Analysis{}, domain.NewAnalysisError(domain.AnalysisRemote, err)
	}

	var payload analyzePayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		metrics.ObserveNetworkRequest("nlp_agent", "analyze", "analyze", start, err)
		return domain.Analysis{}, domain.NewAnalysisError(domain.AnalysisBadPayload, fmt.Errorf("decode response: %w", err))
	}
	analysis, err := payload.toAnalysis()
	if err != nil {
		metrics.ObserveNetworkRequest("nlp_agent", "analyze", "analyze", start, err)
		return domain.Analysis{}, domain.NewAnalysisError(domain.AnalysisBadPayload, err)
	}
	metrics.ObserveNetworkRequest("nlp_agent", "analyze", "analyze", start, nil)
	return analysis, nil
}

func (p analyzePayload) toAnalysis() (domain.Analysis, error) {
	if p.Sentiment == nil {
		return domain.Analysis{}, errors.New("в ответе нет поля sentiment")
	}
	if !domain.KnownSentimentLabel(p.Sentiment.Label) {
		return domain.Analysis{}, fmt.Errorf("неизвестная метка тональности %q", p.Sentiment.Label)
	}
	topics := p.Topics
	if topics == nil {
		topics = []string{}
	}
	return domain.Analysis{
		Sentiment: domain.Sentiment{Label: p.Sentiment.Label, Score: p.Sentiment.Score},
		Topics:    topics,
	}, nil
}

func classifyTransportError(err error) domain.AnalysisErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.AnalysisTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.AnalysisTimeout
	}
	return domain.AnalysisRemote
}
