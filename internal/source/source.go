// Package source содержит загрузчики статей для каждого типа источника: RSS/Atom ленты,
// поиск Hacker News и листинги Reddit. Каждый загрузчик привязан к одному настроенному
// источнику и возвращает уже оцененные, но еще не нормализованные статьи.
package source

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"trendingreads/internal/domain"
	"trendingreads/internal/pipeline"
	"unicode"
)

const (
	// DefaultItemCap - сколько записей одной ленты попадает в выдачу.
	DefaultItemCap = 10
	// DefaultDescriptionLimit - длина описания для статей из лент.
	DefaultDescriptionLimit = 250
	// DefaultEngagementDescriptionLimit - длина описания для Hacker News и Reddit.
	DefaultEngagementDescriptionLimit = 200
)

// Fetcher - загрузчик одного источника.
type Fetcher interface {
	Source() domain.FeedSource
	Fetch(ctx context.Context) ([]domain.Article, error)
}

// BytesFetcher загружает тело ответа целиком.
type BytesFetcher interface {
	FetchBytes(ctx context.Context, url, accept string) ([]byte, error)
}

// Options - общие параметры загрузчиков.
type Options struct {
	ItemCap          int
	DescriptionLimit int
	Now              func() time.Time
}

func (o Options) withDefaults(descLimit int) Options {
	if o.ItemCap <= 0 {
		o.ItemCap = DefaultItemCap
	}
	if o.DescriptionLimit <= 0 {
		o.DescriptionLimit = descLimit
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// slug превращает имя источника в фрагмент идентификатора.
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// articleID строит идентификатор из имени источника, позиции и канонического URL.
func articleID(prefix, sourceName string, index int, link string) string {
	sum := sha1.Sum([]byte(pipeline.CanonicalURL(link)))
	return fmt.Sprintf("%s-%s-%d-%s", prefix, slug(sourceName), index, hex.EncodeToString(sum[:])[:10])
}
