package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"trendingreads/internal/domain"
)

// Имена стратегий, используемые в конфигурации.
const (
	StrategyDirect = "direct"
	StrategyProxy  = "proxy"
	StrategyGofeed = "gofeed"
)

// proxyPlaceholder заменяется в шаблоне прокси на экранированный URL ленты.
const proxyPlaceholder = "{url}"

// ItemParser преобразует сырую ленту в список элементов.
type ItemParser interface {
	Parse(ctx context.Context, r io.Reader) ([]domain.FeedItem, error)
}

// BytesFetcher загружает тело ответа целиком.
type BytesFetcher interface {
	FetchBytes(ctx context.Context, url, accept string) ([]byte, error)
}

// Strategy - один способ получить элементы ленты по ее URL.
type Strategy interface {
	Name() string
	Items(ctx context.Context, feedURL string) ([]domain.FeedItem, error)
}

type parseStrategy struct {
	name    string
	fetcher BytesFetcher
	parser  ItemParser
	target  func(feedURL string) string
}

func (s *parseStrategy) Name() string { return s.name }

func (s *parseStrategy) Items(ctx context.Context, feedURL string) ([]domain.FeedItem, error) {
	body, err := s.fetcher.FetchBytes(ctx, s.target(feedURL), AcceptFeed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	items, err := s.parser.Parse(ctx, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	return items, nil
}

// NewDirectStrategy загружает ленту напрямую и разбирает переданным парсером.
func NewDirectStrategy(f BytesFetcher, p ItemParser) Strategy {
	return &parseStrategy{
		name:    StrategyDirect,
		fetcher: f,
		parser:  p,
		target:  func(feedURL string) string { return feedURL },
	}
}

// NewProxyStrategy загружает ленту через посредника.
// Шаблон содержит {url}, куда подставляется экранированный адрес ленты;
// без плейсхолдера адрес дописывается в конец шаблона.
func NewProxyStrategy(f BytesFetcher, p ItemParser, template string) Strategy {
	return &parseStrategy{
		name:    StrategyProxy,
		fetcher: f,
		parser:  p,
		target:  func(feedURL string) string { return ProxyURL(template, feedURL) },
	}
}

// NewGofeedStrategy загружает ленту напрямую и разбирает ее альтернативным парсером.
func NewGofeedStrategy(f BytesFetcher, p ItemParser) Strategy {
	return &parseStrategy{
		name:    StrategyGofeed,
		fetcher: f,
		parser:  p,
		target:  func(feedURL string) string { return feedURL },
	}
}

// ProxyURL строит адрес запроса через посредника.
func ProxyURL(template, feedURL string) string {
	escaped := url.QueryEscape(feedURL)
	if strings.Contains(template, proxyPlaceholder) {
		return strings.ReplaceAll(template, proxyPlaceholder, escaped)
	}
	return template + escaped
}
