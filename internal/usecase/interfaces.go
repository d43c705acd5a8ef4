package usecase

import (
	"context"
	"errors"
	"trendingreads/internal/domain"
)

var (
	// ErrAllSourcesFailed возвращается, если ни один источник категории не отработал.
	ErrAllSourcesFailed = errors.New("all sources failed")
	// ErrUnknownCategory возвращается для категории, отсутствующей в конфигурации.
	ErrUnknownCategory = errors.New("unknown category")
)

// SourceFetcher определяет интерфейс загрузчика одного источника.
// Возвращает уже оцененные статьи; ошибка означает, что источник упал целиком.
type SourceFetcher interface {
	Source() domain.FeedSource
	Fetch(ctx context.Context) ([]domain.Article, error)
}

// CategoryFetcher определяет интерфейс полного обновления категории.
type CategoryFetcher interface {
	Categories() []domain.Category
	FetchCategory(ctx context.Context, category domain.Category) (domain.CategoryResult, error)
}
