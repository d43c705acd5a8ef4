package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"trendingreads/internal/adapter/fetcher"
	"trendingreads/internal/adapter/parser"
	"trendingreads/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rssFeed(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Feed</title>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title>Story number %d</title><link>https://example.com/story/%d</link>`+
			`<description>&lt;p&gt;Body %d&lt;/p&gt;</description><pubDate>Sat, 01 Jun 2024 10:00:00 GMT</pubDate></item>`, i, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

type stubStrategy struct {
	name  string
	items []domain.FeedItem
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Items(ctx context.Context, feedURL string) ([]domain.FeedItem, error) {
	s.calls++
	return s.items, s.err
}

func TestRSS_Fetch_CapsAndScores(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssFeed(15)))
	}))
	defer testServer.Close()
	log := testLogger()
	f := fetcher.NewHTTPFetcher(log)
	src := domain.FeedSource{Name: "Example Blog", URL: testServer.URL, Category: domain.CategoryTechnology, Type: domain.SourceTypeRSS}

	rss := NewRSS(src, []fetcher.Strategy{fetcher.NewDirectStrategy(f, parser.NewXMLParser(log))},
		Options{Now: func() time.Time { return testNow }}, log)
	articles, err := rss.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, articles, DefaultItemCap)
	first := articles[0]
	assert.Equal(t, "Story number 0", first.Title)
	assert.Equal(t, "Body 0", first.Description)
	assert.Equal(t, "https://example.com/story/0", first.URL)
	assert.Equal(t, domain.CategoryTechnology, first.Category)
	assert.Equal(t, domain.SourceTypeRSS, first.SourceType)
	assert.True(t, strings.HasPrefix(first.ID, "rss-example-blog-0-"), first.ID)
	// 2 часа: 80 + позиционный бонус 12
	assert.Equal(t, 92.0, first.Score)
	assert.Equal(t, 80.0+10, articles[1].Score)
	assert.NotEqual(t, articles[0].ID, articles[1].ID)
}

func TestRSS_Fetch_FallsBackOnZeroItems(t *testing.T) {
	empty := &stubStrategy{name: "direct"}
	broken := &stubStrategy{name: "proxy", err: parser.ErrHTMLPage}
	good := &stubStrategy{name: "gofeed", items: []domain.FeedItem{
		{Title: "", Link: "https://example.com/untitled"},
		{Title: "Recovered item", Link: "https://example.com/ok"},
	}}
	src := domain.FeedSource{Name: "Flaky", URL: "https://example.com/feed", Type: domain.SourceTypeRSS}

	rss := NewRSS(src, []fetcher.Strategy{empty, broken, good}, Options{}, testLogger())
	articles, err := rss.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Recovered item", articles[0].Title)
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, 1, broken.calls)
}

func TestRSS_Fetch_AllStrategiesFail(t *testing.T) {
	a := &stubStrategy{name: "direct", err: parser.ErrHTMLPage}
	b := &stubStrategy{name: "gofeed", err: errors.New("timeout")}
	src := domain.FeedSource{Name: "Down", URL: "https://example.com/feed", Type: domain.SourceTypeRSS}

	articles, err := NewRSS(src, []fetcher.Strategy{a, b}, Options{}, testLogger()).Fetch(context.Background())

	assert.ErrorIs(t, err, parser.ErrHTMLPage)
	assert.Nil(t, articles)
}

func TestRSS_Fetch_LegitimatelyEmpty(t *testing.T) {
	a := &stubStrategy{name: "direct"}
	b := &stubStrategy{name: "gofeed", err: errors.New("boom")}
	src := domain.FeedSource{Name: "Quiet", URL: "https://example.com/feed", Type: domain.SourceTypeRSS}

	articles, err := NewRSS(src, []fetcher.Strategy{a, b}, Options{}, testLogger()).Fetch(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, articles)
}

func TestRSS_Fetch_RedditExternalLink(t *testing.T) {
	items := []domain.FeedItem{
		{
			Title: "Interesting essay",
			Link:  "https://www.reddit.com/r/philosophy/comments/abc/interesting_essay/",
			Description: `<table><tr><td>submitted by <a href="https://www.reddit.com/user/someone">/u/someone</a><br/>` +
				`<span><a href="https://essays.example.org/post">[link]</a></span>` +
				`<span><a href="https://www.reddit.com/r/philosophy/comments/abc/">[comments]</a></span></td></tr></table>`,
		},
		{
			Title:       "Self post discussion",
			Link:        "https://www.reddit.com/r/philosophy/comments/def/self/",
			Description: `<a href="https://old.reddit.com/user/x">/u/x</a>`,
		},
	}
	src := domain.FeedSource{Name: "r/philosophy", URL: "https://www.reddit.com/r/philosophy/top/.rss", Type: domain.SourceTypeRSS}

	articles, err := NewRSS(src, []fetcher.Strategy{&stubStrategy{name: "direct", items: items}}, Options{}, testLogger()).
		Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "https://essays.example.org/post", articles[0].URL)
	assert.Equal(t, "https://www.reddit.com/r/philosophy/comments/def/self/", articles[1].URL)
}

func TestExtractExternalLink(t *testing.T) {
	link, ok := ExtractExternalLink(`<a href="/relative">x</a><a href="https://redd.it.example.com/a">y</a>`)
	assert.True(t, ok)
	assert.Equal(t, "https://redd.it.example.com/a", link)

	_, ok = ExtractExternalLink("plain text")
	assert.False(t, ok)

	_, ok = ExtractExternalLink(`<a href="https://reddit.com/r/x">x</a>`)
	assert.False(t, ok)
}

func TestIsRedditFeed(t *testing.T) {
	assert.True(t, IsRedditFeed(domain.FeedSource{Name: "r/books", URL: "https://example.com"}))
	assert.True(t, IsRedditFeed(domain.FeedSource{Name: "Books", URL: "https://old.reddit.com/r/books/.rss"}))
	assert.False(t, IsRedditFeed(domain.FeedSource{Name: "Aeon", URL: "https://aeon.co/feed.rss"}))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "the-atlantic-culture", slug("The Atlantic - Culture"))
	assert.Equal(t, "r-philosophy", slug("r/philosophy"))
}
