package domain

import (
	"errors"
	"fmt"
)

// ErrEntryNotFound возвращается если запись не существует.
var ErrEntryNotFound = errors.New("запись не найдена")

// ErrInsightNotFound возвращается если у записи нет инсайта.
var ErrInsightNotFound = errors.New("инсайт для записи не найден")

// ErrEmptyContent возвращается при пустом тексте записи.
var ErrEmptyContent = errors.New("текст записи пуст")

// ErrMissingUser возвращается если не указан идентификатор пользователя.
var ErrMissingUser = errors.New("не указан идентификатор пользователя")

// AnalysisErrorKind различает причины отказа анализатора.
type AnalysisErrorKind string

const (
	// AnalysisTimeout — провайдер не ответил за отведённое время.
	AnalysisTimeout AnalysisErrorKind = "timeout"
	// AnalysisRemote — сетевая ошибка или ошибочный статус провайдера.
	AnalysisRemote AnalysisErrorKind = "remote"
	// AnalysisBadPayload — ответ провайдера не разбирается или неполон.
	AnalysisBadPayload AnalysisErrorKind = "bad_payload"
)

// AnalysisError — классифицированный отказ анализа. Никогда не фатален
// для создания записи: вызывающая сторона деградирует до Insight == nil.
type AnalysisError struct {
	Kind AnalysisErrorKind
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("анализ текста (%s): %v", e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// NewAnalysisError оборачивает ошибку с указанием причины.
func NewAnalysisError(kind AnalysisErrorKind, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Err: err}
}

// AnalysisKind извлекает причину отказа из цепочки ошибок.
func AnalysisKind(err error) (AnalysisErrorKind, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}
