package snapshot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
	"trendingreads/internal/adapter/fetcher"
	"trendingreads/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc(at time.Time) Document {
	science := []domain.Article{
		{ID: "a", Title: "Quantum things", URL: "https://example.com/q", Source: "Quanta", Category: domain.CategoryScience, Score: 100},
	}
	categories := make(map[domain.Category][]domain.Article)
	categories[domain.CategoryScience] = science
	categories[domain.CategoryPhilosophy] = []domain.Article{}
	return Document{GeneratedAt: at, Categories: categories}
}

func TestWrite_ProducesDocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "feeds.json")
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, Write(path, sampleDoc(at)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "2024-06-01T12:00:00Z", generic["generatedAt"])
	categories, ok := generic["categories"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, categories, "science")
	assert.Contains(t, categories, "philosophy")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestLoader_FileLoadAndRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.json")
	first := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, Write(path, sampleDoc(first)))
	loader := NewLoader(path, nil)

	doc, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, doc.GeneratedAt.Equal(first))
	require.Len(t, doc.Categories[domain.CategoryScience], 1)

	second := first.Add(time.Hour)
	require.NoError(t, Write(path, sampleDoc(second)))

	doc, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, doc.GeneratedAt.Equal(first), "in-memory copy is served until refresh")

	doc, err = loader.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, doc.GeneratedAt.Equal(second))
}

func TestLoader_Unavailable(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.json"), nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"hello":"world"}`), 0o644))
	_, err = NewLoader(bad, nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewLoader("https://example.com/feeds.json", nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLoader_HTTP(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	body, err := json.Marshal(sampleDoc(at))
	require.NoError(t, err)
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer testServer.Close()

	doc, err := NewLoader(testServer.URL+"/feeds.json", fetcher.NewHTTPFetcher(slog.New(slog.NewTextHandler(io.Discard, nil)))).Load(context.Background())

	require.NoError(t, err)
	assert.True(t, doc.GeneratedAt.Equal(at))
}
