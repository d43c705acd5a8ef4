package parser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXMLParser_Parse_Success(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewXMLParser(logger)

	xmlData := `<?xml version="1.0" encoding="UTF-8"?>
	<rss version="2.0">
	<channel>
	<title>Test Feed</title>
	<link>https://example.com</link>
	<item>
	<title><![CDATA[Item 1 &amp; <b>friends</b>]]></title>
	<link>https://example.com/item1</link>
	<description>Item 1 Description</description>
	<pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
	</item>
	<item>
	<title><![CDATA[Item 2]]></title>
	<link>https://example.com/item2</link>
	<description><![CDATA[<p>Item 2 <i>Description</i></p>]]></description>
	<pubDate>Tue, 03 Jan 2006 12:00:00 +0000</pubDate>
	</item>
	</channel>
	</rss>`

	items, err := parser.Parse(context.Background(), strings.NewReader(xmlData))

	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Item 1 & friends", items[0].Title)
	assert.Equal(t, "https://example.com/item1", items[0].Link)
	assert.Equal(t, "Item 1 Description", items[0].Description)
	require.NotNil(t, items[0].PublishedAt)
	assert.WithinDuration(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC), *items[0].PublishedAt, time.Second)

	assert.Equal(t, "Item 2", items[1].Title)
	assert.Equal(t, "<p>Item 2 <i>Description</i></p>", items[1].Description)
	require.NotNil(t, items[1].PublishedAt)
	assert.WithinDuration(t, time.Date(2006, 1, 3, 12, 0, 0, 0, time.UTC), *items[1].PublishedAt, time.Second)
}

func TestXMLParser_Parse_Atom(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewXMLParser(logger)

	xmlData := `<?xml version="1.0" encoding="utf-8"?>
	<feed xmlns="http://www.w3.org/2005/Atom" xmlns:media="http://search.yahoo.com/mrss/">
	<title>Atom Feed</title>
	<ENTRY>
	<Title type="html">Atom &lt;em&gt;entry&lt;/em&gt;</Title>
	<link rel="self" href="https://example.com/self/1"/>
	<link rel="alternate" type="text/html" href="https://example.com/posts/1" />
	<summary>Short summary</summary>
	<content type="html">Longer content</content>
	<updated>2024-05-01T10:00:00Z</updated>
	<published>2024-04-30T08:00:00+02:00</published>
	<media:thumbnail url="https://example.com/thumb.jpg" width="120"/>
	</ENTRY>
	</feed>`

	items, err := parser.Parse(context.Background(), strings.NewReader(xmlData))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Atom entry", items[0].Title)
	assert.Equal(t, "https://example.com/posts/1", items[0].Link)
	assert.Equal(t, "Short summary", items[0].Description)
	assert.Equal(t, "https://example.com/thumb.jpg", items[0].Thumbnail)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, time.Date(2024, 4, 30, 6, 0, 0, 0, time.UTC), *items[0].PublishedAt)
}

func TestXMLParser_Parse_FallbackTags(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewXMLParser(logger)

	xmlData := `<rss><channel><title>Fallbacks</title>
	<item>
	<title>Only content</title>
	<link>https://example.com/a?x=1&amp;y=2</link>
	<content:encoded><![CDATA[<p>Encoded body</p>]]></content:encoded>
	<enclosure url="https://example.com/audio.mp3" type="audio/mpeg"/>
	<enclosure url="https://example.com/pic.png" type="image/png"/>
	</item>
	<item>
	<link>https://example.com/no-title</link>
	<dc:date>2024-01-02</dc:date>
	</item>
	<item>
	<description>Neither title nor link</description>
	</item>
	</channel></rss>`

	items, err := parser.Parse(context.Background(), strings.NewReader(xmlData))

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://example.com/a?x=1&y=2", items[0].Link)
	assert.Equal(t, "<p>Encoded body</p>", items[0].Description)
	assert.Equal(t, "https://example.com/pic.png", items[0].Thumbnail)
	assert.Nil(t, items[0].PublishedAt)

	assert.Empty(t, items[1].Title)
	require.NotNil(t, items[1].PublishedAt)
	assert.Equal(t, 2024, items[1].PublishedAt.Year())
}

func TestXMLParser_Parse_DescriptionPriority(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewXMLParser(logger)

	xmlData := `<feed xmlns="http://www.w3.org/2005/Atom"><title>Priority test feed</title>
	<entry><title>One</title><link href="https://example.com/1"/>
	<content>From content</content><summary>From summary</summary></entry>
	</feed>`

	items, err := parser.Parse(context.Background(), strings.NewReader(xmlData))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "From summary", items[0].Description)
}

func TestXMLParser_Parse_HTMLErrorPage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewXMLParser(logger)

	page := `<!DOCTYPE html>
	<html><head><title>502 Bad Gateway</title></head>
	<body><h1>Bad Gateway</h1><p>The proxy could not reach the upstream server.</p></body></html>`

	items, err := parser.Parse(context.Background(), strings.NewReader(page))

	assert.ErrorIs(t, err, ErrHTMLPage)
	assert.Empty(t, items)
}

func TestXMLParser_Parse_ContextCancelled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewXMLParser(logger)
	xmlData := `
<rss>
<channel>
<title>Test Feed</title>
<link>https://example.com</link>
<description>Test Description</description>
</channel>
</rss>`
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items, err := parser.Parse(ctx, strings.NewReader(xmlData))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, items)
}

func TestXMLParser_Parse_EmptyFeed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewXMLParser(logger)
	xmlData := `
	<rss>
	<channel>
	<title>Empty Feed</title>
	<link>https://example.com</link>
	<description>Empty Description</description>
	</channel>
	</rss>`

	items, err := parser.Parse(context.Background(), strings.NewReader(xmlData))

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestXMLParser_Parse_CDATAContainingCloseTag(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewXMLParser(logger)
	xmlData := `<rss><channel><title>Tricky</title>
	<item><title>Tricky</title><link>https://example.com/t</link>
	<description><![CDATA[text with </description> inside]]></description></item>
	</channel></rss>`

	items, err := parser.Parse(context.Background(), strings.NewReader(xmlData))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "text with </description> inside", items[0].Description)
}

func TestXMLParser_Parse_TitleEntitiesDecodedOnce(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewXMLParser(logger)
	xmlData := `<rss><channel><title>Escaped titles</title>
	<item><title>Why &lt;div&gt; soup breaks layouts</title><link>https://example.com/div</link></item>
	<item><title>AT&amp;amp;T &amp; friends</title><link>https://example.com/att</link></item>
	<item><title>  Spaced   &#8220;quotes&#8221;  </title><link>https://example.com/q</link></item>
	</channel></rss>`

	items, err := parser.Parse(context.Background(), strings.NewReader(xmlData))

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Why <div> soup breaks layouts", items[0].Title)
	assert.Equal(t, "AT&amp;T & friends", items[1].Title)
	assert.Equal(t, "Spaced \u201cquotes\u201d", items[2].Title)
}

func TestSniffFeed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrEmptyPayload},
		{"short", "<rss></rss>", ErrEmptyPayload},
		{"doctype", "<!DOCTYPE html><html><body>" + strings.Repeat("x", 60) + "</body></html>", ErrHTMLPage},
		{"html root", "<html><body>" + strings.Repeat("x", 60) + "</body></html>", ErrHTMLPage},
		{"html root with rss tag", "<html><body><p>see our <rss> feed " + strings.Repeat("x", 60) + "</p></body></html>", ErrHTMLPage},
		{"doctype after rss tag", "<div><p>see our <rss> feed</p>" + strings.Repeat("x", 60) + "<!DOCTYPE html></div>", ErrHTMLPage},
		{"json", `{"status":"error","message":"` + strings.Repeat("x", 60) + `"}`, ErrNotFeed},
		{"rss", `<?xml version="1.0"?><rss version="2.0"><channel><title>ok</title></channel></rss>`, nil},
		{"atom", `<feed xmlns="http://www.w3.org/2005/Atom"><title>a legit atom feed</title></feed>`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SniffFeed(tt.raw)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSniffJSON(t *testing.T) {
	assert.NoError(t, SniffJSON([]byte(` {"hits":[]}`)))
	assert.NoError(t, SniffJSON([]byte(`[1]`)))
	assert.ErrorIs(t, SniffJSON([]byte("  ")), ErrEmptyPayload)
	assert.ErrorIs(t, SniffJSON([]byte("<!DOCTYPE html>")), ErrHTMLPage)
	assert.ErrorIs(t, SniffJSON([]byte("rate limited")), ErrNotJSON)
}

func TestParseDate(t *testing.T) {
	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("yesterday"))

	got := ParseDate("Wed, 02 Oct 2024 15:00:00 +0300")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 10, 2, 12, 0, 0, 0, time.UTC), *got)

	got = ParseDate("2024-10-02T12:00:00.123Z")
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
}
