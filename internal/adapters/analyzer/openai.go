package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"aura-journal/internal/domain"
	openai "aura-journal/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const maxTopics = 5

// OpenAIAnalyzer извлекает тональность и темы через OpenAI Chat Completions.
type OpenAIAnalyzer struct {
	client  chatClient
	model   string
	timeout time.Duration
}

var _ domain.Analyzer = (*OpenAIAnalyzer)(nil)

// NewOpenAI создаёт LLM-анализатор.
func NewOpenAI(client chatClient, model string, timeout time.Duration) *OpenAIAnalyzer {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIAnalyzer{client: client, model: model, timeout: timeout}
}

type llmAnalysisPayload struct {
	Sentiment struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"sentiment"`
	Topics []string `json:"topics"`
}

// Analyze запрашивает у модели строгий JSON с тональностью и темами.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(`Analyze the sentiment and topics of the journal entry below.
Return JSON of the form {"sentiment": {"label": "...", "score": 0.0}, "topics": ["..."]} with no explanations.
The label must be one of POSITIVE, NEGATIVE, MIXED, NEUTRAL.
The score is a number from -1 to 1, negative for negative sentiment.
Topics are up to %d short noun phrases in the language of the entry.
Journal entry:
%s`, maxTopics, clipRunes(text, 4000))

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.1,
		MaxTokens:   300,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "You are a text analysis engine. Judge only from the text, never invent topics that are not mentioned.",
			},
			{
				Role:    openai.RoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Analysis{}, domain.NewAnalysisError(classifyTransportError(err), fmt.Errorf("openai completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return domain.Analysis{}, domain.NewAnalysisError(domain.AnalysisBadPayload, fmt.Errorf("openai completion: пустой ответ"))
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var parsed llmAnalysisPayload
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.Analysis{}, domain.NewAnalysisError(domain.AnalysisBadPayload, fmt.Errorf("распаковка ответа LLM: %w", err))
	}
	label := strings.ToUpper(strings.TrimSpace(parsed.Sentiment.Label))
	if !domain.KnownSentimentLabel(label) {
		return domain.Analysis{}, domain.NewAnalysisError(domain.AnalysisBadPayload, fmt.Errorf("неизвестная метка тональности %q", label))
	}
	topics := filterValues(parsed.Topics)
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return domain.Analysis{
		Sentiment: domain.Sentiment{Label: label, Score: parsed.Sentiment.Score},
		Topics:    topics,
	}, nil
}

func filterValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
