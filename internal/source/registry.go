package source

import (
	"fmt"
	"log/slog"
	"trendingreads/internal/adapter/fetcher"
	"trendingreads/internal/adapter/parser"
	"trendingreads/internal/config"
	"trendingreads/internal/domain"

	"golang.org/x/time/rate"
)

// Registry хранит загрузчики, сгруппированные по категориям в порядке конфигурации.
type Registry struct {
	categories []domain.Category
	fetchers   map[domain.Category][]Fetcher
}

// NewRegistry строит загрузчики для всех настроенных источников.
// Hacker News добавляется по одному загрузчику на категорию с поисковыми терминами.
func NewRegistry(cfg config.AppConfig, client *fetcher.HTTPFetcher, log *slog.Logger) (*Registry, error) {
	strategies, err := buildStrategies(cfg, client, log)
	if err != nil {
		return nil, err
	}
	opts := Options{ItemCap: cfg.ItemCap, DescriptionLimit: cfg.DescriptionLimit}

	r := &Registry{
		categories: cfg.Categories,
		fetchers:   make(map[domain.Category][]Fetcher, len(cfg.Categories)),
	}
	for _, src := range cfg.Sources {
		switch src.Type {
		case domain.SourceTypeRSS:
			r.add(src.Category, NewRSS(src, strategies, opts, log))
		case domain.SourceTypeReddit:
			r.add(src.Category, NewRedditListing(src, client, Options{ItemCap: cfg.ItemCap}, log))
		default:
			return nil, fmt.Errorf("unsupported source type %q for %s", src.Type, src.Name)
		}
	}

	hn := cfg.HackerNews
	if hn.Enabled {
		var limiter *rate.Limiter
		if hn.RatePerSecond > 0 {
			limiter = rate.NewLimiter(rate.Limit(hn.RatePerSecond), 1)
		}
		for _, cat := range cfg.Categories {
			terms := hn.Terms[cat]
			if len(terms) == 0 {
				continue
			}
			r.add(cat, NewHackerNews(cat, terms, client, HackerNewsOptions{
				Endpoint:    hn.Endpoint,
				HitsPerPage: hn.HitsPerPage,
				MinPoints:   hn.MinPoints,
				Limiter:     limiter,
			}, log))
		}
	}
	return r, nil
}

func buildStrategies(cfg config.AppConfig, client *fetcher.HTTPFetcher, log *slog.Logger) ([]fetcher.Strategy, error) {
	out := make([]fetcher.Strategy, 0, len(cfg.Strategies))
	for _, name := range cfg.Strategies {
		switch name {
		case fetcher.StrategyDirect:
			out = append(out, fetcher.NewDirectStrategy(client, parser.NewXMLParser(log)))
		case fetcher.StrategyProxy:
			out = append(out, fetcher.NewProxyStrategy(client, parser.NewXMLParser(log), cfg.ProxyURL))
		case fetcher.StrategyGofeed:
			out = append(out, fetcher.NewGofeedStrategy(client, parser.NewGofeedParser(log)))
		default:
			return nil, fmt.Errorf("unknown fetch strategy %q", name)
		}
	}
	return out, nil
}

func (r *Registry) add(cat domain.Category, f Fetcher) {
	r.fetchers[cat] = append(r.fetchers[cat], f)
}

// Categories возвращает настроенные категории.
func (r *Registry) Categories() []domain.Category {
	return r.categories
}

// Fetchers возвращает загрузчики категории.
func (r *Registry) Fetchers(cat domain.Category) []Fetcher {
	return r.fetchers[cat]
}
