package parser

import (
	"strings"
	"time"
)

var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate разбирает дату публикации в одном из известных форматов и приводит ее к UTC.
// Нераспознанная или пустая дата дает nil: отсутствие даты допустимо.
func ParseDate(dateStr string) *time.Time {
	s := strings.TrimSpace(dateStr)
	if s == "" {
		return nil
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
