package insightstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"aura-journal/internal/domain"
	"aura-journal/internal/infra/metrics"
)

// Redis хранит инсайты как JSON-документы, по одному на запись.
// Ключ — идентификатор записи, запросов по другим полям нет.
type Redis struct {
	client *redis.Client
}

var _ domain.InsightRepo = (*Redis)(nil)

// NewRedis создаёт документное хранилище инсайтов.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

type insightDoc struct {
	EntryID   string       `json:"entry_id"`
	UserID    string       `json:"user_id"`
	Sentiment sentimentDoc `json:"sentiment"`
	Topics    []string     `json:"topics"`
}

type sentimentDoc struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func insightKey(entryID uuid.UUID) string {
	return "insight:" + entryID.String()
}

func marshalInsight(insight domain.Insight) ([]byte, error) {
	doc := insightDoc{
		EntryID: insight.EntryID.String(),
		UserID:  insight.UserID.String(),
		Sentiment: sentimentDoc{
			Label: insight.Sentiment.Label,
			Score: insight.Sentiment.Score,
		},
		Topics: insight.Topics,
	}
	if doc.Topics == nil {
		doc.Topics = []string{}
	}
	return json.Marshal(doc)
}

func unmarshalInsight(payload []byte) (domain.Insight, error) {
	var doc insightDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Insight{}, fmt.Errorf("decode insight: %w", err)
	}
	entryID, err := uuid.Parse(doc.EntryID)
	if err != nil {
		return domain.Insight{}, fmt.Errorf("parse entry id: %w", err)
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return domain.Insight{}, fmt.Errorf("parse user id: %w", err)
	}
	return domain.Insight{
		EntryID:   entryID,
		UserID:    userID,
		Sentiment: domain.Sentiment{Label: doc.Sentiment.Label, Score: doc.Sentiment.Score},
		Topics:    doc.Topics,
	}, nil
}

// SaveInsight сохраняет документ инсайта.
func (r *Redis) SaveInsight(ctx context.Context, insight domain.Insight) error {
	payload, err := marshalInsight(insight)
	if err != nil {
		return fmt.Errorf("marshal insight: %w", err)
	}
	start := time.Now()
	err = r.client.Set(ctx, insightKey(insight.EntryID), payload, 0).Err()
	metrics.ObserveNetworkRequest("redis", "insight_set", "insights", start, err)
	if err != nil {
		return fmt.Errorf("store insight: %w", err)
	}
	return nil
}

// GetInsight возвращает инсайт записи или domain.ErrInsightNotFound.
func (r *Redis) GetInsight(ctx context.Context, entryID uuid.UUID) (domain.Insight, error) {
	start := time.Now()
	payload, err := r.client.Get(ctx, insightKey(entryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "insight_get", "insights", start, nil)
		return domain.Insight{}, domain.ErrInsightNotFound
	}
	metrics.ObserveNetworkRequest("redis", "insight_get", "insights", start, err)
	if err != nil {
		return domain.Insight{}, fmt.Errorf("load insight: %w", err)
	}
	return unmarshalInsight(payload)
}
