// Package pipeline сводит статьи всех источников категории в один детерминированный список:
// валидация, дедупликация по каноническому URL, нормализация оценок по группам и сортировка.
// Каждый этап - чистая функция, не изменяющая входной срез.
package pipeline

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"trendingreads/internal/domain"
	"unicode/utf8"
)

// DefaultMinTitleLength - заголовки короче этого числа символов отбрасываются.
const DefaultMinTitleLength = 5

// neutralScore выставляется всей группе, если максимум в ней равен нулю.
const neutralScore = 50

// Options настраивает конвейер.
type Options struct {
	MinTitleLength int
}

// Merge применяет все этапы по порядку: Validate, Deduplicate, Normalize, Sort.
// Порядок входа не важен: результат сортируется явно.
func Merge(articles []domain.Article, opts Options) []domain.Article {
	minTitle := opts.MinTitleLength
	if minTitle <= 0 {
		minTitle = DefaultMinTitleLength
	}
	valid := Validate(articles, minTitle)
	deduped := Deduplicate(valid)
	normalized := Normalize(deduped)
	return Sort(normalized)
}

// Validate отбрасывает статьи с пустым или слишком коротким заголовком
// и статьи, чей URL не является абсолютным HTTP(S) адресом.
func Validate(articles []domain.Article, minTitleLength int) []domain.Article {
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if utf8.RuneCountInString(strings.TrimSpace(a.Title)) < minTitleLength {
			continue
		}
		if !IsAbsoluteHTTPURL(a.URL) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// IsAbsoluteHTTPURL сообщает, что строка - абсолютный http или https URL с хостом.
func IsAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CanonicalURL возвращает ключ дедупликации: без схемы, без "www.", без завершающего слеша,
// в нижнем регистре. Для навигации не используется.
func CanonicalURL(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(key, "://"); i >= 0 {
		key = key[i+3:]
	}
	key = strings.TrimPrefix(key, "www.")
	return strings.TrimRight(key, "/")
}

// Deduplicate оставляет по одной статье на канонический URL - с большей сырой оценкой.
// При равных оценках побеждает встреченная первой; выжившие сохраняют порядок первого появления ключа.
func Deduplicate(articles []domain.Article) []domain.Article {
	index := make(map[string]int, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		key := CanonicalURL(a.URL)
		if i, ok := index[key]; ok {
			if a.Score > out[i].Score {
				out[i] = a
			}
			continue
		}
		index[key] = len(out)
		out = append(out, a)
	}
	return out
}

// Normalize приводит оценки к диапазону 0-100 отдельно для каждой группы типов источников
// и затем склеивает группы. Общая нормализация смешанного набора позволила бы одной шкале
// подавить другую.
func Normalize(articles []domain.Article) []domain.Article {
	groups := make(map[domain.SourceType][]int)
	var order []domain.SourceType
	for i, a := range articles {
		g := a.SourceType
		if _, ok := groups[g]; !ok {
			order = append(order, g)
		}
		groups[g] = append(groups[g], i)
	}
	out := make([]domain.Article, 0, len(articles))
	for _, g := range order {
		idx := groups[g]
		maxScore := 0.0
		for _, i := range idx {
			maxScore = math.Max(maxScore, articles[i].Score)
		}
		for _, i := range idx {
			a := articles[i]
			a.Score = scale(a.Score, maxScore)
			out = append(out, a)
		}
	}
	return out
}

func scale(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return neutralScore
	}
	v := math.Round(score / maxScore * 100)
	return math.Min(100, math.Max(0, v))
}

// Sort упорядочивает статьи по убыванию оценки, затем по свежести (статьи без даты - самые старые),
// затем по ID, чтобы порядок не зависел от порядка завершения загрузок.
func Sort(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ta, tb := unixOrZero(a), unixOrZero(b)
		if ta != tb {
			return ta > tb
		}
		return a.ID < b.ID
	})
	return out
}

func unixOrZero(a domain.Article) int64 {
	if a.PublishedAt == nil {
		return math.MinInt64
	}
	return a.PublishedAt.UnixNano()
}

// FilterBySearch оставляет статьи, у которых заголовок, источник или описание содержат запрос
// без учета регистра. Пустой запрос возвращает список без изменений.
func FilterBySearch(articles []domain.Article, query string) []domain.Article {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return articles
	}
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if strings.Contains(strings.ToLower(a.Title), q) ||
			strings.Contains(strings.ToLower(a.Source), q) ||
			strings.Contains(strings.ToLower(a.Description), q) {
			out = append(out, a)
		}
	}
	return out
}
