package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aura-journal/internal/domain"
)

func TestAgentClientAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sentiment":{"label":"POSITIVE","score":0.92},"topics":["gratitude","joy"]}`))
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, time.Second)
	analysis, err := client.Analyze(context.Background(), "Today was a wonderful day!")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if analysis.Sentiment.Label != domain.SentimentPositive {
		t.Fatalf("ожидали POSITIVE, получили %s", analysis.Sentiment.Label)
	}
	if analysis.Sentiment.Score != 0.92 {
		t.Fatalf("оценка должна передаваться как есть, получили %v", analysis.Sentiment.Score)
	}
	if len(analysis.Topics) != 2 {
		t.Fatalf("ожидали 2 темы, получили %d", len(analysis.Topics))
	}
}

func TestAgentClientRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, time.Second)
	_, err := client.Analyze(context.Background(), "текст")
	kind, ok := domain.AnalysisKind(err)
	if !ok || kind != domain.AnalysisRemote {
		t.Fatalf("ожидали отказ remote, получили %v", err)
	}
}

func TestAgentClientBadPayload(t *testing.T) {
	cases := map[string]string{
		"не json":       `{{{`,
		"нет sentiment": `{"topics":["a"]}`,
		"чужая метка":   `{"sentiment":{"label":"GREAT","score":1},"topics":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			client := NewAgentClient(srv.URL, time.Second)
			_, err := client.Analyze(context.Background(), "текст")
			kind, ok := domain.AnalysisKind(err)
			if !ok || kind != domain.AnalysisBadPayload {
				t.Fatalf("ожидали отказ bad_payload, получили %v", err)
			}
		})
	}
}

func TestAgentClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Analyze(ctx, "текст")
	kind, ok := domain.AnalysisKind(err)
	if !ok || kind != domain.AnalysisTimeout {
		t.Fatalf("ожидали отказ timeout, получили %v", err)
	}
}

func TestAgentClientConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // порт заведомо закрыт

	client := NewAgentClient(srv.URL, time.Second)
	_, err := client.Analyze(context.Background(), "текст")
	kind, ok := domain.AnalysisKind(err)
	if !ok || kind != domain.AnalysisRemote {
		t.Fatalf("ожидали отказ remote, получили %v", err)
	}
}

func TestAgentClientEmptyTopics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sentiment":{"label":"NEUTRAL","score":0}}`))
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, time.Second)
	analysis, err := client.Analyze(context.Background(), "текст")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if analysis.Topics == nil || len(analysis.Topics) != 0 {
		t.Fatalf("ожидали пустой список тем, получили %#v", analysis.Topics)
	}
}
