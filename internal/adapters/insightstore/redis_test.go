package insightstore

import (
	"testing"

	"github.com/google/uuid"

	"aura-journal/internal/domain"
)

func TestInsightKey(t *testing.T) {
	id := uuid.MustParse("3f1d6d0e-8a3f-4a8e-9b8f-0e5d7c2a1b4c")
	if got := insightKey(id); got != "insight:3f1d6d0e-8a3f-4a8e-9b8f-0e5d7c2a1b4c" {
		t.Fatalf("неожиданный ключ %q", got)
	}
}

func TestMarshalUnmarshalInsight(t *testing.T) {
	insight := domain.Insight{
		EntryID:   uuid.New(),
		UserID:    uuid.New(),
		Sentiment: domain.Sentiment{Label: domain.SentimentMixed, Score: -0.1},
		Topics:    []string{"work", "family"},
	}

	payload, err := marshalInsight(insight)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	got, err := unmarshalInsight(payload)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got.EntryID != insight.EntryID || got.UserID != insight.UserID {
		t.Fatalf("идентификаторы не совпали")
	}
	if got.Sentiment != insight.Sentiment {
		t.Fatalf("тональность не совпала: %#v", got.Sentiment)
	}
	if len(got.Topics) != 2 || got.Topics[0] != "work" {
		t.Fatalf("темы не совпали: %#v", got.Topics)
	}
}

func TestMarshalInsightNilTopics(t *testing.T) {
	payload, err := marshalInsight(domain.Insight{EntryID: uuid.New(), UserID: uuid.New()})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	got, err := unmarshalInsight(payload)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got.Topics == nil {
		t.Fatalf("темы должны сериализоваться пустым списком, а не null")
	}
}

func TestUnmarshalInsightBadDocument(t *testing.T) {
	if _, err := unmarshalInsight([]byte(`{"entry_id":"не uuid"}`)); err == nil {
		t.Fatalf("ожидали ошибку разбора")
	}
}
