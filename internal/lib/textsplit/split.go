// Package textsplit режет длинные сообщения на части по границам строк.
package textsplit

import (
	"strings"
	"unicode/utf8"
)

// Split делит text на части не длиннее limit рун.
// Разрез идёт по переводу строки, строка длиннее limit режется по пробелам,
// слово длиннее limit режется по рунам. Разделитель остаётся в конце
// предыдущей части, поэтому strings.Join(parts, "") == text.
func Split(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	s := splitter{limit: limit}
	for _, line := range cut(text, '\n') {
		if s.fits(line) {
			s.add(line)
			continue
		}
		s.flush()
		if runes(line) <= limit {
			s.add(line)
			continue
		}
		for _, word := range cut(line, ' ') {
			if s.fits(word) {
				s.add(word)
				continue
			}
			s.flush()
			if runes(word) <= limit {
				s.add(word)
				continue
			}
			s.hard(word)
		}
	}
	s.flush()
	return s.parts
}

type splitter struct {
	limit int
	parts []string
	cur   strings.Builder
	n     int
}

func (s *splitter) fits(piece string) bool {
	return s.n+runes(piece) <= s.limit
}

func (s *splitter) add(piece string) {
	s.cur.WriteString(piece)
	s.n += runes(piece)
}

func (s *splitter) flush() {
	if s.n == 0 {
		return
	}
	s.parts = append(s.parts, s.cur.String())
	s.cur.Reset()
	s.n = 0
}

// hard режет слово по рунам, хвост остаётся в текущей части.
// Срез идёт по байтовым смещениям, невалидные байты UTF-8 сохраняются как есть.
func (s *splitter) hard(word string) {
	for runes(word) > s.limit {
		i := 0
		for range s.limit {
			_, size := utf8.DecodeRuneInString(word[i:])
			i += size
		}
		s.parts = append(s.parts, word[:i])
		word = word[i:]
	}
	s.add(word)
}

// cut делит строку после каждого sep, оставляя sep в куске.
func cut(text string, sep byte) []string {
	var pieces []string
	for len(text) > 0 {
		i := strings.IndexByte(text, sep)
		if i < 0 {
			pieces = append(pieces, text)
			break
		}
		pieces = append(pieces, text[:i+1])
		text = text[i+1:]
	}
	return pieces
}

func runes(s string) int {
	return utf8.RuneCountInString(s)
}
