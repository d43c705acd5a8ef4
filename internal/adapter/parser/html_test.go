package parser

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"No tags here", "No tags here"},
		{"<div>  Multiple   spaces  </div>", "Multiple spaces"},
		{"", ""},
		{`<a href="url">Link</a> text`, "Link text"},
		{"Tom &amp; Jerry &lt;3 &gt; &quot;cats&quot; it&#39;s&nbsp;fine", `Tom & Jerry <3 > "cats" it's fine`},
		{"&#8220;quoted&#x201D;", "“quoted”"},
		{"<custom-tag foo=bar>kept text</custom-tag>", "kept text"},
		{"<script>alert(1)</script>visible<style>p{}</style>", "visible"},
		{"line<br/>break<p>para</p>", "line break para"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripHTML(tt.input), "StripHTML(%q)", tt.input)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a long string", 10, "this is..."},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"こんにちは世界です", 5, "こん..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.input, tt.n))
	}
}

func TestGofeedParser_Parse(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewGofeedParser(logger)

	rdf := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/">
  <channel rdf:about="https://example.com/"><title>RDF Feed</title><link>https://example.com/</link></channel>
  <item rdf:about="https://example.com/rdf-1">
    <title>RDF &amp; item</title>
    <link>https://example.com/rdf-1</link>
    <description>RDF description</description>
  </item>
</rdf:RDF>`

	items, err := parser.Parse(context.Background(), strings.NewReader(rdf))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "RDF & item", items[0].Title)
	assert.Equal(t, "https://example.com/rdf-1", items[0].Link)
	assert.Equal(t, "RDF description", items[0].Description)
}

func TestGofeedParser_RejectsHTML(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := NewGofeedParser(logger)

	_, err := parser.Parse(context.Background(), strings.NewReader("<!DOCTYPE html><html><body>"+strings.Repeat("oops ", 20)+"</body></html>"))

	assert.ErrorIs(t, err, ErrHTMLPage)
}
