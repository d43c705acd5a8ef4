package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultUserAgent отправляется, если в конфигурации не задан свой.
	DefaultUserAgent = "trendingreads/1.0 (+https://github.com/trendingreads)"
	// DefaultMaxBodyBytes ограничивает размер тела ответа для FetchBytes.
	DefaultMaxBodyBytes int64 = 5 << 20

	// AcceptFeed - заголовок Accept для RSS/Atom лент.
	AcceptFeed = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
	// AcceptJSON - заголовок Accept для JSON API.
	AcceptJSON = "application/json"
)

// ErrBodyTooLarge возвращается, если тело ответа превысило лимит.
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError описывает ответ с кодом вне диапазона 2xx.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d for url %s", e.Code, e.URL)
}

// HTTPFetcher загружает ресурсы по HTTP.
// Содержит HTTP-клиент, User-Agent и лимит размера тела ответа.
// Сетевые ошибки, таймауты и коды вне 2xx возвращаются как ошибки, решение о деградации принимает вызывающий.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	log       *slog.Logger
}

// Option настраивает HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient задает HTTP-клиент.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithUserAgent задает заголовок User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodyBytes задает лимит размера тела ответа.
func WithMaxBodyBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewHTTPFetcher создает новый экземпляр HTTPFetcher.
// По умолчанию использует клиент с таймаутом 30 секунд; таймаут отдельного источника
// задается контекстом вызывающего.
func NewHTTPFetcher(log *slog.Logger, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: DefaultUserAgent,
		maxBytes:  DefaultMaxBodyBytes,
		log:       log.With(slog.String("component", "http-fetcher")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchBytes загружает тело ответа целиком с заданным заголовком Accept.
// Тело длиннее лимита отклоняется с ErrBodyTooLarge.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url, accept string) ([]byte, error) {
	body, err := f.do(ctx, url, accept)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%s: %w", url, ErrBodyTooLarge)
	}
	return data, nil
}

func (f *HTTPFetcher) do(ctx context.Context, url, accept string) (io.ReadCloser, error) {
	log := f.log.With(slog.String("url", url))
	log.Debug("Fetching URL")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for url %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		log.Debug("HTTP request failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to fetch url %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		log.Debug("Unexpected status code", slog.Int("status_code", resp.StatusCode))
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}
	log.Debug("Successfully fetched URL")
	return resp.Body, nil
}
