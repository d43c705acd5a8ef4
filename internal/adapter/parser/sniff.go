package parser

import (
	"bytes"
	"errors"
	"strings"
)

// minPayloadLength - тело короче этого порога не может быть осмысленной лентой.
const minPayloadLength = 50

var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrHTMLPage     = errors.New("got HTML page instead of feed")
	ErrNotFeed      = errors.New("payload has no RSS or Atom root")
	ErrNotJSON      = errors.New("payload is not JSON")
)

var feedRoots = []string{"rss", "feed", "rdf:rdf", "channel"}

// SniffFeed проверяет сырой текст до разбора.
// Отклоняет пустые ответы и документы без корня RSS/Atom. HTML-страница (doctype в любом месте
// или корень <html>) отклоняется, даже если внутри встречается тег <rss>.
func SniffFeed(raw string) error {
	trimmed := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if len(trimmed) < minPayloadLength {
		return ErrEmptyPayload
	}
	s := newScanner(trimmed)
	if strings.Contains(s.lower, "<!doctype html") || strings.HasPrefix(s.lower, "<html") {
		return ErrHTMLPage
	}
	for _, root := range feedRoots {
		if s.hasTag(root) {
			return nil
		}
	}
	if s.hasTag("html") {
		return ErrHTMLPage
	}
	return ErrNotFeed
}

// SniffJSON проверяет, что тело похоже на JSON-документ.
func SniffJSON(body []byte) error {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\ufeff")))
	if len(trimmed) == 0 {
		return ErrEmptyPayload
	}
	switch trimmed[0] {
	case '{', '[':
		return nil
	case '<':
		return ErrHTMLPage
	default:
		return ErrNotJSON
	}
}
