package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"trendingreads/internal/domain"
)

var (
	descriptionTags = []string{"description", "summary", "content", "content:encoded"}
	dateTags        = []string{"pubdate", "published", "updated", "dc:date"}
)

// XMLParser извлекает записи из RSS и Atom без DOM и без XML-декодера.
// Терпим к CDATA, сущностям, произвольным атрибутам и регистру тегов.
type XMLParser struct {
	log *slog.Logger
}

func NewXMLParser(log *slog.Logger) *XMLParser {
	return &XMLParser{
		log: log,
	}
}

// Parse реализует метод интерфейса FeedParser.
func (p *XMLParser) Parse(ctx context.Context, reader io.Reader) ([]domain.FeedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString разбирает сырой текст ленты неизвестного диалекта.
// HTML-страница с ошибкой возвращает ErrHTMLPage, а не пустой список,
// чтобы ее нельзя было спутать с легально пустой лентой.
func (p *XMLParser) ParseString(ctx context.Context, raw string) ([]domain.FeedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := SniffFeed(raw); err != nil {
		p.log.Debug("Feed payload rejected", slog.Any("error", err))
		return nil, err
	}
	blocks := itemBlocks(newScanner(raw))
	items := make([]domain.FeedItem, 0, len(blocks))
	dropped := 0
	for _, block := range blocks {
		item := parseItem(block)
		if item.Title == "" && item.Link == "" {
			dropped++
			continue
		}
		items = append(items, item)
	}
	if dropped > 0 {
		p.log.Debug("Items without title and link dropped", slog.Int("count", dropped))
	}
	return items, nil
}

// itemBlocks возвращает содержимое всех <item> и <entry> в порядке появления.
func itemBlocks(s *scanner) []string {
	var blocks []string
	from := 0
	for {
		item, okItem := s.find("item", from)
		entry, okEntry := s.find("entry", from)
		var el element
		switch {
		case okItem && okEntry:
			el = item
			if entry.start < item.start {
				el = entry
			}
		case okItem:
			el = item
		case okEntry:
			el = entry
		default:
			return blocks
		}
		if !el.selfClosing {
			blocks = append(blocks, el.inner)
		}
		from = el.end
	}
}

func parseItem(block string) domain.FeedItem {
	s := newScanner(block)
	item := domain.FeedItem{
		Title:       titleText(s),
		Link:        extractLink(s),
		Description: firstText(s, descriptionTags...),
		Thumbnail:   extractThumbnail(s),
	}
	item.PublishedAt = ParseDate(firstText(s, dateTags...))
	return item
}

// titleText декодирует сущности заголовка ровно один раз, поэтому &lt;div&gt; остается текстом <div>.
// Atom-заголовок с type="html" или "xhtml" несет экранированную разметку: ее раскрываем и удаляем теги.
func titleText(s *scanner) string {
	el, ok := s.find("title", 0)
	if !ok || el.selfClosing {
		return ""
	}
	switch strings.ToLower(attr(el.attrs, "type")) {
	case "html", "xhtml":
		return StripHTML(textContent(el.inner))
	default:
		return StripHTML(rawContent(el.inner))
	}
}

// firstText возвращает текст первого непустого тега из списка, соблюдая порядок приоритета.
func firstText(s *scanner, names ...string) string {
	for _, name := range names {
		el, ok := s.find(name, 0)
		if !ok || el.selfClosing {
			continue
		}
		if text := textContent(el.inner); text != "" {
			return text
		}
	}
	return ""
}

// extractLink берет текст <link> (RSS), а при пустом содержимом атрибут href (Atom).
// Среди нескольких Atom-ссылок предпочитается rel="alternate" или ссылка без rel.
func extractLink(s *scanner) string {
	var fallback string
	for _, el := range s.findAll("link") {
		if !el.selfClosing {
			if text := strings.TrimSpace(textContent(el.inner)); text != "" {
				return text
			}
		}
		href := strings.TrimSpace(attr(el.attrs, "href"))
		if href == "" {
			continue
		}
		rel := strings.ToLower(attr(el.attrs, "rel"))
		if rel == "" || rel == "alternate" {
			return href
		}
		if fallback == "" {
			fallback = href
		}
	}
	return fallback
}

// extractThumbnail ищет изображение в media:thumbnail, media:content и enclosure с типом image/*.
func extractThumbnail(s *scanner) string {
	for _, el := range s.findAll("media:thumbnail") {
		if u := attr(el.attrs, "url"); u != "" {
			return u
		}
	}
	for _, el := range s.findAll("media:content") {
		u := attr(el.attrs, "url")
		if u == "" {
			continue
		}
		typ := strings.ToLower(attr(el.attrs, "type"))
		medium := strings.ToLower(attr(el.attrs, "medium"))
		if strings.HasPrefix(typ, "image/") || medium == "image" || (typ == "" && medium == "") {
			return u
		}
	}
	for _, el := range s.findAll("enclosure") {
		if strings.HasPrefix(strings.ToLower(attr(el.attrs, "type")), "image/") {
			if u := attr(el.attrs, "url"); u != "" {
				return u
			}
		}
	}
	return ""
}
