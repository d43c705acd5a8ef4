package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"trendingreads/internal/adapter/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0"?><rss version="2.0"><channel><title>Sample</title>
<item><title>First sample item</title><link>https://example.com/1</link></item>
<item><title>Second sample item</title><link>https://example.com/2</link></item>
</channel></rss>`

func TestHTTPFetcher_FetchBytes_Succsess(t *testing.T) {
	var gotAccept string
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response data"))
	}))
	defer testServer.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := NewHTTPFetcher(logger)

	ctx := context.Background()
	data, err := fetcher.FetchBytes(ctx, testServer.URL, AcceptFeed)

	require.NoError(t, err)
	assert.Equal(t, "test response data", string(data))
	assert.Equal(t, AcceptFeed, gotAccept)
}

func TestHTTPFetcher_FetchBytes_NotFound(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer testServer.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := NewHTTPFetcher(logger)

	data, err := fetcher.FetchBytes(context.Background(), testServer.URL, AcceptFeed)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 404")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Nil(t, data)
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := NewHTTPFetcher(logger)

	data, err := fetcher.FetchBytes(context.Background(), "invalid://url", AcceptFeed)

	assert.Error(t, err)
	assert.Nil(t, data)
}

func TestHTTPFecher_ContextCancelled(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("slow response"))
	}))
	defer testServer.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := NewHTTPFetcher(logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data, err := fetcher.FetchBytes(ctx, testServer.URL, AcceptFeed)

	assert.Error(t, err)
	assert.Nil(t, data)
}

func TestHTTPFetcher_FetchBytes_HeadersAndLimit(t *testing.T) {
	var gotUA, gotAccept string
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer testServer.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fetcher := NewHTTPFetcher(logger, WithUserAgent("test-agent"), WithMaxBodyBytes(64))
	data, err := fetcher.FetchBytes(context.Background(), testServer.URL, AcceptJSON)
	require.NoError(t, err)
	assert.Len(t, data, 64)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, AcceptJSON, gotAccept)

	small := NewHTTPFetcher(logger, WithMaxBodyBytes(10))
	_, err = small.FetchBytes(context.Background(), testServer.URL, AcceptJSON)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestProxyURL(t *testing.T) {
	assert.Equal(t,
		"https://proxy.local/get?url=https%3A%2F%2Fexample.com%2Ffeed%3Fa%3D1",
		ProxyURL("https://proxy.local/get?url={url}", "https://example.com/feed?a=1"))
	assert.Equal(t,
		"https://proxy.local/raw?u=https%3A%2F%2Fexample.com%2F",
		ProxyURL("https://proxy.local/raw?u=", "https://example.com/"))
}

func TestStrategies(t *testing.T) {
	var proxied string
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			w.Write([]byte(sampleFeed))
		case "/proxy":
			proxied = r.URL.Query().Get("url")
			w.Write([]byte(sampleFeed))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer testServer.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := NewHTTPFetcher(logger)
	ctx := context.Background()

	direct := NewDirectStrategy(f, parser.NewXMLParser(logger))
	items, err := direct.Items(ctx, testServer.URL+"/feed")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, StrategyDirect, direct.Name())

	proxy := NewProxyStrategy(f, parser.NewXMLParser(logger), testServer.URL+"/proxy?url={url}")
	items, err = proxy.Items(ctx, "https://example.com/feed")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "https://example.com/feed", proxied)

	gf := NewGofeedStrategy(f, parser.NewGofeedParser(logger))
	items, err = gf.Items(ctx, testServer.URL+"/feed")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "First sample item", items[0].Title)

	_, err = direct.Items(ctx, testServer.URL+"/broken")
	var statusErr *StatusError
	assert.True(t, errors.As(err, &statusErr))
}
