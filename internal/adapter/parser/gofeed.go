package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"trendingreads/internal/domain"

	"github.com/mmcdole/gofeed"
)

// GofeedParser - запасной парсер на базе gofeed.
// Понимает диалекты, которые сканер не разбирает (RDF, JSON Feed), и используется
// как альтернативная стратегия, когда основной разбор дал ноль записей.
type GofeedParser struct {
	parser *gofeed.Parser
	log    *slog.Logger
}

func NewGofeedParser(log *slog.Logger) *GofeedParser {
	return &GofeedParser{
		parser: gofeed.NewParser(),
		log:    log,
	}
}

// Parse реализует метод интерфейса FeedParser.
func (p *GofeedParser) Parse(ctx context.Context, reader io.Reader) ([]domain.FeedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		if err := SniffFeed(trimmed); err != nil {
			return nil, err
		}
	}
	feed, err := p.parser.ParseString(trimmed)
	if err != nil {
		p.log.Debug("gofeed failed to parse payload", slog.Any("error", err))
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	items := make([]domain.FeedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item := domain.FeedItem{
			Title:       StripHTML(entry.Title),
			Link:        itemLink(entry),
			Description: entry.Description,
			Thumbnail:   itemThumbnail(entry),
		}
		if item.Description == "" {
			item.Description = entry.Content
		}
		switch {
		case entry.PublishedParsed != nil:
			t := entry.PublishedParsed.UTC()
			item.PublishedAt = &t
		case entry.UpdatedParsed != nil:
			t := entry.UpdatedParsed.UTC()
			item.PublishedAt = &t
		}
		if item.Title == "" && item.Link == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// itemLink предпочитает явную ссылку и падает на GUID, если он похож на HTTP URL.
func itemLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return strings.TrimSpace(entry.Link)
	}
	if strings.HasPrefix(entry.GUID, "http") {
		return entry.GUID
	}
	return ""
}

func itemThumbnail(entry *gofeed.Item) string {
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	for _, enc := range entry.Enclosures {
		if enc != nil && strings.HasPrefix(strings.ToLower(enc.Type), "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if media, ok := entry.Extensions["media"]; ok {
		for _, name := range []string{"thumbnail", "content"} {
			for _, ext := range media[name] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	return ""
}
