package sql

import (
	"fmt"
	"strings"
)

// parsebuf is the character source of the tokenizer.
type parsebuf struct {
	pos int
	str string
}

func newParsebuf(s string) *parsebuf {
	return &parsebuf{0, s}
}

func (b *parsebuf) more() bool {
	return b.pos < len(b.str)
}

// get reads one character, or returns "" at the end.
func (b *parsebuf) get() string {
	if !b.more() {
		return ""
	}
	s := b.str[b.pos : b.pos+1]
	b.pos++
	return s
}

func (b *parsebuf) peek() string {
	if !b.more() {
		return ""
	}
	return b.str[b.pos : b.pos+1]
}

// peekDigit tells whether the next character is a decimal digit.
func (b *parsebuf) peekDigit() bool {
	p := b.peek()
	return p != "" && p[0] >= '0' && p[0] <= '9'
}

// set reads a run of characters from the allowed set.
func (b *parsebuf) set(allowed string) string {
	start := b.pos
	for b.more() && strings.Contains(allowed, b.peek()) {
		b.pos++
	}
	return b.str[start:b.pos]
}

// space skips whitespace and "--" comments.
func (b *parsebuf) space() {
	for {
		b.set(" \n\t\r")
		if !strings.HasPrefix(b.rest(), "--") {
			return
		}
		for b.more() && b.peek() != "\n" {
			b.pos++
		}
	}
}

// literal consumes s if it follows, ignoring case.
func (b *parsebuf) literal(s string) bool {
	if !strings.HasPrefix(strings.ToLower(b.rest()), strings.ToLower(s)) {
		return false
	}
	b.pos += len(s)
	return true
}

func (b *parsebuf) rest() string {
	return b.str[b.pos:]
}

// where describes a position as line:column.
func (b *parsebuf) where(pos int) string {
	line, col := 1, 1
	for _, c := range b.str[:pos] {
		if c == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return fmt.Sprintf("%d:%d", line, col)
}
