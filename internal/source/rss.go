package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"trendingreads/internal/adapter/fetcher"
	"trendingreads/internal/adapter/parser"
	"trendingreads/internal/domain"
	"trendingreads/internal/scoring"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoStrategies возвращается, если у RSS-загрузчика нет ни одной стратегии.
var ErrNoStrategies = errors.New("no fetch strategies configured")

// RSS загружает одну RSS/Atom ленту, перебирая стратегии по порядку.
// Первая стратегия, давшая хотя бы одну пригодную запись, побеждает.
type RSS struct {
	src        domain.FeedSource
	strategies []fetcher.Strategy
	opts       Options
	log        *slog.Logger
}

// NewRSS создает загрузчик ленты.
func NewRSS(src domain.FeedSource, strategies []fetcher.Strategy, opts Options, log *slog.Logger) *RSS {
	return &RSS{
		src:        src,
		strategies: strategies,
		opts:       opts.withDefaults(DefaultDescriptionLimit),
		log: log.With(
			slog.String("component", "rss-source"),
			slog.String("source", src.Name),
		),
	}
}

func (r *RSS) Source() domain.FeedSource { return r.src }

// Fetch загружает ленту и превращает записи в статьи.
// Ноль записей от стратегии не считается ошибкой, но запускает следующую стратегию;
// если все стратегии отработали без ошибок и без записей, лента считается пустой.
func (r *RSS) Fetch(ctx context.Context) ([]domain.Article, error) {
	if len(r.strategies) == 0 {
		return nil, ErrNoStrategies
	}
	var errs []error
	for _, s := range r.strategies {
		items, err := s.Items(ctx, r.src.URL)
		if err != nil {
			r.log.Debug("Strategy failed",
				slog.String("strategy", s.Name()),
				slog.Any("error", err),
			)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		usable := usableItems(items)
		if len(usable) == 0 {
			r.log.Debug("Strategy yielded zero items", slog.String("strategy", s.Name()))
			continue
		}
		r.log.Debug("Feed fetched",
			slog.String("strategy", s.Name()),
			slog.Int("items", len(usable)),
		)
		return r.toArticles(usable), nil
	}
	if len(errs) == len(r.strategies) {
		return nil, fmt.Errorf("all strategies failed for %s: %w", r.src.Name, errors.Join(errs...))
	}
	return nil, nil
}

func usableItems(items []domain.FeedItem) []domain.FeedItem {
	out := make([]domain.FeedItem, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" || strings.TrimSpace(it.Link) == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (r *RSS) toArticles(items []domain.FeedItem) []domain.Article {
	if len(items) > r.opts.ItemCap {
		items = items[:r.opts.ItemCap]
	}
	now := r.opts.Now()
	reddit := IsRedditFeed(r.src)
	articles := make([]domain.Article, 0, len(items))
	for idx, it := range items {
		link := strings.TrimSpace(it.Link)
		if reddit {
			if ext, ok := ExtractExternalLink(it.Description); ok {
				link = ext
			}
		}
		desc := parser.Truncate(parser.StripHTML(it.Description), r.opts.DescriptionLimit)
		articles = append(articles, domain.Article{
			ID:          articleID("rss", r.src.Name, idx, link),
			Title:       it.Title,
			URL:         link,
			Source:      r.src.Name,
			SourceType:  r.src.Type,
			Category:    r.src.Category,
			Score:       scoring.ComputeScore(it.PublishedAt, idx, len([]rune(desc)), now),
			Description: desc,
			PublishedAt: it.PublishedAt,
			Thumbnail:   it.Thumbnail,
		})
	}
	return articles
}

// IsRedditFeed сообщает, что лента отдается Reddit и ее link ведет на обсуждение, а не на статью.
func IsRedditFeed(src domain.FeedSource) bool {
	if strings.HasPrefix(src.Name, "r/") {
		return true
	}
	u, err := url.Parse(src.URL)
	if err != nil {
		return false
	}
	return isRedditHost(u.Hostname())
}

func isRedditHost(host string) bool {
	host = strings.ToLower(host)
	return host == "reddit.com" || strings.HasSuffix(host, ".reddit.com")
}

// ExtractExternalLink ищет в HTML описания первую ссылку, ведущую за пределы Reddit.
// Отсутствие такой ссылки не ошибка: вызывающий оставляет ссылку на обсуждение.
func ExtractExternalLink(descriptionHTML string) (string, bool) {
	if !strings.Contains(descriptionHTML, "href") {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(descriptionHTML))
	if err != nil {
		return "", false
	}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return true
		}
		if isRedditHost(u.Hostname()) {
			return true
		}
		found = u.String()
		return false
	})
	return found, found != ""
}
