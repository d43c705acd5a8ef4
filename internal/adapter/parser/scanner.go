package parser

import (
	"html"
	"strings"
)

const (
	cdataOpen  = "<![cdata["
	cdataClose = "]]>"
)

// element описывает найденный тег: сырые атрибуты, сырое содержимое и границы в исходном тексте.
type element struct {
	start       int
	end         int
	attrs       string
	inner       string
	selfClosing bool
}

// scanner ищет элементы по имени без построения DOM.
// lower хранит копию src, где в нижний регистр переведены только ASCII-буквы,
// поэтому смещения в обеих строках совпадают.
type scanner struct {
	src   string
	lower string
}

func newScanner(src string) *scanner {
	return &scanner{src: src, lower: asciiLower(src)}
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func isNameBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '>', '/':
		return true
	}
	return false
}

// indexTag возвращает позицию открывающего тега name начиная с from или -1.
// Имя должно совпадать целиком: поиск "link" не находит "<linkset" и "<link:foo".
func (s *scanner) indexTag(name string, from int) int {
	open := "<" + name
	for from < len(s.lower) {
		idx := strings.Index(s.lower[from:], open)
		if idx < 0 {
			return -1
		}
		pos := from + idx
		after := pos + len(open)
		if after >= len(s.lower) || isNameBoundary(s.lower[after]) {
			return pos
		}
		from = after
	}
	return -1
}

// indexClose ищет закрывающий тег, пропуская CDATA-секции, внутри которых он может встречаться как текст.
func (s *scanner) indexClose(name string, from int) int {
	closeTag := "</" + name
	for from < len(s.lower) {
		c := strings.Index(s.lower[from:], closeTag)
		if c < 0 {
			return -1
		}
		c += from
		d := strings.Index(s.lower[from:], cdataOpen)
		if d >= 0 && from+d < c {
			e := strings.Index(s.lower[from+d:], cdataClose)
			if e < 0 {
				return -1
			}
			from = from + d + e + len(cdataClose)
			continue
		}
		after := c + len(closeTag)
		if after >= len(s.lower) || isNameBoundary(s.lower[after]) {
			return c
		}
		from = after
	}
	return -1
}

// find возвращает первый элемент name, начинающийся не раньше from.
func (s *scanner) find(name string, from int) (element, bool) {
	for {
		start := s.indexTag(name, from)
		if start < 0 {
			return element{}, false
		}
		attrStart := start + len(name) + 1
		gt := strings.IndexByte(s.lower[attrStart:], '>')
		if gt < 0 {
			return element{}, false
		}
		tagEnd := attrStart + gt
		attrs := s.src[attrStart:tagEnd]
		if trimmed := strings.TrimSpace(attrs); strings.HasSuffix(trimmed, "/") {
			return element{
				start:       start,
				end:         tagEnd + 1,
				attrs:       strings.TrimSuffix(trimmed, "/"),
				selfClosing: true,
			}, true
		}
		closeAt := s.indexClose(name, tagEnd+1)
		if closeAt < 0 {
			// незакрытый тег пропускаем, ищем следующий
			from = tagEnd + 1
			continue
		}
		end := len(s.src)
		if gt := strings.IndexByte(s.lower[closeAt:], '>'); gt >= 0 {
			end = closeAt + gt + 1
		}
		return element{
			start: start,
			end:   end,
			attrs: attrs,
			inner: s.src[tagEnd+1 : closeAt],
		}, true
	}
}

// findAll возвращает все элементы name по порядку.
func (s *scanner) findAll(name string) []element {
	var out []element
	from := 0
	for {
		el, ok := s.find(name, from)
		if !ok {
			return out
		}
		out = append(out, el)
		from = el.end
	}
}

// hasTag сообщает, встречается ли в документе открывающий тег name.
func (s *scanner) hasTag(name string) bool {
	return s.indexTag(name, 0) >= 0
}

// textContent раскрывает CDATA-секции и декодирует сущности в остальном тексте.
// Содержимое CDATA остается как есть: это уже готовый HTML.
func textContent(inner string) string {
	return unwrapCDATA(inner, html.UnescapeString)
}

// rawContent раскрывает CDATA-секции, не трогая сущности.
func rawContent(inner string) string {
	return unwrapCDATA(inner, func(s string) string { return s })
}

func unwrapCDATA(inner string, decode func(string) string) string {
	var b strings.Builder
	for {
		i := strings.Index(asciiLower(inner), cdataOpen)
		if i < 0 {
			b.WriteString(decode(inner))
			break
		}
		b.WriteString(decode(inner[:i]))
		rest := inner[i+len(cdataOpen):]
		j := strings.Index(rest, cdataClose)
		if j < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:j])
		inner = rest[j+len(cdataClose):]
	}
	return strings.TrimSpace(b.String())
}

// attr возвращает значение атрибута name из сырой строки атрибутов.
// Поддерживает двойные, одинарные кавычки и значения без кавычек; регистр имени не важен.
func attr(attrs, name string) string {
	lower := asciiLower(attrs)
	from := 0
	for from < len(lower) {
		idx := strings.Index(lower[from:], name)
		if idx < 0 {
			return ""
		}
		pos := from + idx
		from = pos + len(name)
		if pos > 0 && !isSpace(lower[pos-1]) {
			continue
		}
		i := from
		for i < len(lower) && isSpace(lower[i]) {
			i++
		}
		if i >= len(lower) || lower[i] != '=' {
			continue
		}
		i++
		for i < len(lower) && isSpace(lower[i]) {
			i++
		}
		if i >= len(lower) {
			return ""
		}
		if q := attrs[i]; q == '"' || q == '\'' {
			end := strings.IndexByte(attrs[i+1:], q)
			if end < 0 {
				return html.UnescapeString(attrs[i+1:])
			}
			return html.UnescapeString(attrs[i+1 : i+1+end])
		}
		end := i
		for end < len(attrs) && !isSpace(attrs[end]) {
			end++
		}
		return html.UnescapeString(attrs[i:end])
	}
	return ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
