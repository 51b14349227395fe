package analyzer

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"aura-journal/internal/domain"
)

// SimpleAnalyzer реализует domain.Analyzer словарной эвристикой.
// Используется когда LLM-провайдер не настроен; детерминирован и
// никогда не возвращает ошибку.
type SimpleAnalyzer struct{}

var _ domain.Analyzer = (*SimpleAnalyzer)(nil)

// NewSimple создаёт эвристический анализатор.
func NewSimple() *SimpleAnalyzer {
	return &SimpleAnalyzer{}
}

var positiveWords = map[string]bool{
	"happy": true, "joy": true, "joyful": true, "grateful": true, "gratitude": true,
	"wonderful": true, "great": true, "good": true, "love": true, "loved": true,
	"calm": true, "peaceful": true, "excited": true, "proud": true, "hopeful": true,
	"amazing": true, "beautiful": true, "fun": true, "relaxed": true, "thankful": true,
}

var negativeWords = map[string]bool{
	"sad": true, "angry": true, "anger": true, "anxious": true, "anxiety": true,
	"tired": true, "exhausted": true, "afraid": true, "fear": true, "stress": true,
	"stressed": true, "lonely": true, "terrible": true, "awful": true, "bad": true,
	"hate": true, "hurt": true, "worried": true, "depressed": true, "pain": true,
}

var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"because": true, "about": true, "today": true,
	"been": true, "were": true, "they": true, "them": true, "then": true,
	"when": true, "what": true, "your": true, "just": true, "very": true,
	"really": true, "filled": true, "feel": true, "feeling": true, "felt": true,
}

// Analyze оценивает тональность по словарям и собирает частотные темы.
func (a *SimpleAnalyzer) Analyze(_ context.Context, text string) (domain.Analysis, error) {
	words := tokenize(text)

	var positive, negative int
	for _, w := range words {
		if positiveWords[w] {
			positive++
		}
		if negativeWords[w] {
			negative++
		}
	}

	score := 0.0
	hits := positive + negative
	if hits > 0 {
		score = float64(positive-negative) / float64(hits)
	}
	magnitude := float64(hits)

	// Пороговые значения совпадают с разметкой исходного провайдера.
	label := domain.SentimentNeutral
	switch {
	case score > 0.25:
		label = domain.SentimentPositive
	case score < -0.25:
		label = domain.SentimentNegative
	case magnitude > 1.5:
		label = domain.SentimentMixed
	}

	return domain.Analysis{
		Sentiment: domain.Sentiment{Label: label, Score: score},
		Topics:    extractTopics(words, maxTopics),
	}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// extractTopics возвращает самые частотные значимые слова, при равной
// частоте сохраняется порядок появления в тексте.
func extractTopics(words []string, limit int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, w := range words {
		if len([]rune(w)) < 4 || stopWords[w] {
			continue
		}
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	topics := make([]string, 0, len(order))
	topics = append(topics, order...)
	return topics
}
