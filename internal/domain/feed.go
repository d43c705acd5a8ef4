package domain

import (
	"errors"
	"time"
)

// Category представляет тематическую корзину, по которой разбиты источники и выдача.
type Category string

const (
	CategoryPhilosophy    Category = "philosophy"
	CategoryEntertainment Category = "entertainment"
	CategoryTechnology    Category = "technology"
	CategoryScience       Category = "science"
)

// SourceType определяет способ получения статей из источника.
type SourceType string

const (
	SourceTypeRSS        SourceType = "rss"
	SourceTypeReddit     SourceType = "reddit"
	SourceTypeHackerNews SourceType = "hackernews"
)

// Valid сообщает, известен ли тип источника.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeRSS, SourceTypeReddit, SourceTypeHackerNews:
		return true
	}
	return false
}

// FeedSource описывает один настроенный источник: имя, адрес, категорию и тип загрузки.
// Создается при старте процесса и больше не изменяется.
type FeedSource struct {
	Name     string     `json:"name" yaml:"name"`
	URL      string     `json:"url" yaml:"url"`
	Category Category   `json:"category" yaml:"category"`
	Type     SourceType `json:"type" yaml:"type"`
}

// FeedItem представляет отдельную запись ленты, извлеченную парсером до нормализации в Article.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	PublishedAt *time.Time
	Thumbnail   string
}

// Article представляет статью в итоговом списке чтения.
// Score изменяется только на этапах конвейера: сырая эвристика, затем нормализация в 0-100.
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	SourceType  SourceType `json:"-"`
	Category    Category   `json:"category"`
	Score       float64    `json:"score"`
	Description string     `json:"description,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
}

// ResultStatus описывает исход загрузки одного источника.
type ResultStatus string

const (
	StatusOK     ResultStatus = "ok"
	StatusEmpty  ResultStatus = "empty"
	StatusFailed ResultStatus = "failed"
)

// SourceResult хранит результат загрузки одного источника.
// Позволяет отличить "источник вернул ноль статей" от "источник упал".
type SourceResult struct {
	Source   FeedSource
	Articles []Article
	Err      error
	Duration time.Duration
}

// Status возвращает итог загрузки источника.
func (r SourceResult) Status() ResultStatus {
	switch {
	case r.Err != nil:
		return StatusFailed
	case len(r.Articles) == 0:
		return StatusEmpty
	default:
		return StatusOK
	}
}

// CategoryResult содержит итоговый отсортированный список категории и исходы всех ее источников.
type CategoryResult struct {
	Category  Category
	Articles  []Article
	Sources   []SourceResult
	FetchedAt time.Time
}

// Failed возвращает число упавших источников.
func (r CategoryResult) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Status() == StatusFailed {
			n++
		}
	}
	return n
}

// AllFailed сообщает, что ни один источник категории не отработал успешно.
func (r CategoryResult) AllFailed() bool {
	return len(r.Sources) > 0 && r.Failed() == len(r.Sources)
}

// SourceErrors собирает ошибки всех упавших источников в одну.
func (r CategoryResult) SourceErrors() error {
	var errs []error
	for _, s := range r.Sources {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errors.Join(errs...)
}
