package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
	"trendingreads/internal/config"
)

const (
	logFile      = "trendingreads.log"
	errorLogFile = "trendingreads_error.log"
)

// New создает и настраивает логгер приложения на основе конфигурации.
// При output=file открывает в cfg.Dir файлы для обычных логов и ошибок,
// иначе пишет все в stderr. Возвращенный io.Closer закрывает открытые файлы.
func New(cfg config.LoggerConfig) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLogLevel(cfg.Level),
	}
	if cfg.Output != "file" {
		return slog.New(NewLevelDispatcherHandler(os.Stderr, os.Stderr, opts)), nopCloser{}, nil
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}
	logPath := filepath.Join(dir, logFile)
	logWriter, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	errorPath := filepath.Join(dir, errorLogFile)
	errorWriter, err := os.OpenFile(errorPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logWriter.Close()
		return nil, nil, fmt.Errorf("failed to open error log file %s: %w", errorPath, err)
	}
	handler := NewLevelDispatcherHandler(logWriter, errorWriter, opts)
	return slog.New(handler), files{logWriter, errorWriter}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type files []*os.File

func (f files) Close() error {
	var errs []error
	for _, file := range f {
		errs = append(errs, file.Close())
	}
	return errors.Join(errs...)
}

// parseLogLevel преобразует строковое представление уровня логирования в тип slog.Level.
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelDispatcherHandler реализует slog.Handler с маршрутизацией сообщений по уровням.
// Сообщения уровня ERROR и выше направляются в errorHandler, остальные - в defaultHandler.
type LevelDispatcherHandler struct {
	defaultHandler slog.Handler
	errorHandler   slog.Handler
}

// NewLevelDispatcherHandler создает новый обработчик логов с маршрутизацией по уровням.
// Если оба потока совпадают, записи сериализуются одной блокировкой.
func NewLevelDispatcherHandler(defaultOut, errorOut io.Writer, opts *slog.HandlerOptions) *LevelDispatcherHandler {
	defaultMu := &sync.Mutex{}
	errorMu := defaultMu
	if defaultOut != errorOut {
		errorMu = &sync.Mutex{}
	}
	return &LevelDispatcherHandler{
		defaultHandler: newReadableHandler(defaultOut, opts, defaultMu),
		errorHandler:   newReadableHandler(errorOut, opts, errorMu),
	}
}

func (h *LevelDispatcherHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.defaultHandler.Enabled(ctx, level)
}

func (h *LevelDispatcherHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return h.errorHandler.Handle(ctx, r)
	}
	return h.defaultHandler.Handle(ctx, r)
}

func (h *LevelDispatcherHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelDispatcherHandler{
		defaultHandler: h.defaultHandler.WithAttrs(attrs),
		errorHandler:   h.errorHandler.WithAttrs(attrs),
	}
}

func (h *LevelDispatcherHandler) WithGroup(name string) slog.Handler {
	return &LevelDispatcherHandler{
		defaultHandler: h.defaultHandler.WithGroup(name),
		errorHandler:   h.errorHandler.WithGroup(name),
	}
}

// ReadableHandler реализует slog.Handler с удобочитаемым форматированием логов.
// Строка имеет вид "[время] УРОВЕНЬ [component] (op) <файл:строка>: сообщение | k=v, ...".
type ReadableHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	opts   *slog.HandlerOptions
	attrs  []slog.Attr
	prefix string
}

// NewReadableHandler создает новый обработчик с читаемым форматированием.
// Если opts равен nil, используются настройки по умолчанию.
func NewReadableHandler(w io.Writer, opts *slog.HandlerOptions) *ReadableHandler {
	return newReadableHandler(w, opts, &sync.Mutex{})
}

func newReadableHandler(w io.Writer, opts *slog.HandlerOptions, mu *sync.Mutex) *ReadableHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ReadableHandler{w: w, mu: mu, opts: opts}
}

func (h *ReadableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle форматирует и записывает запись лога.
// Атрибуты component и op выносятся в префикс строки, остальные перечисляются после сообщения.
func (h *ReadableHandler) Handle(ctx context.Context, r slog.Record) error {
	var component, operation string
	var parts []string
	collect := func(a slog.Attr) {
		switch a.Key {
		case "component":
			component = a.Value.String()
		case "op":
			operation = a.Value.String()
		default:
			if a.Equal(slog.Attr{}) {
				return
			}
			parts = append(parts, h.formatAttr(a))
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		collect(a)
		return true
	})

	var line strings.Builder
	fmt.Fprintf(&line, "[%s] %s", r.Time.Format("15:04:05.000"), formatLevel(r.Level))
	if component != "" {
		fmt.Fprintf(&line, " [%s]", component)
	}
	if operation != "" {
		fmt.Fprintf(&line, " (%s)", operation)
	}
	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			fmt.Fprintf(&line, " <%s:%d>", filepath.Base(frame.File), frame.Line)
		}
	}
	line.WriteString(": ")
	line.WriteString(r.Message)
	if len(parts) > 0 {
		line.WriteString(" | ")
		line.WriteString(strings.Join(parts, ", "))
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func formatLevel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// formatAttr форматирует атрибут лога в зависимости от его типа и ключа.
func (h *ReadableHandler) formatAttr(attr slog.Attr) string {
	value := attr.Value.Resolve()
	switch {
	case attr.Key == "error" || strings.HasSuffix(attr.Key, ".error"):
		return fmt.Sprintf("%s=%q", attr.Key, value.String())
	case attr.Key == "url":
		return fmt.Sprintf("url=%s", shortenURL(value.String()))
	case value.Kind() == slog.KindDuration:
		return fmt.Sprintf("%s=%s", attr.Key, value.Duration().Round(time.Millisecond))
	case value.Kind() == slog.KindTime:
		return fmt.Sprintf("%s=%s", attr.Key, value.Time().Format(time.RFC3339))
	default:
		return fmt.Sprintf("%s=%s", attr.Key, value.String())
	}
}

// shortenURL сокращает длинные URL до схемы и домена.
func shortenURL(url string) string {
	if len(url) > 50 {
		parts := strings.Split(url, "/")
		if len(parts) >= 3 {
			return fmt.Sprintf("%s//%s/...", parts[0], parts[2])
		}
	}
	return url
}

// WithAttrs возвращает обработчик, добавляющий attrs к каждой записи.
func (h *ReadableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup возвращает обработчик, квалифицирующий ключи последующих атрибутов именем группы.
func (h *ReadableHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}
