package sql

import (
	"fmt"
	"strings"
)

type tokenType string

const (
	tEnd        tokenType = "end"
	tString     tokenType = "string"
	tIdentifier tokenType = "identifier"
	tNumber     tokenType = "number"
	tKeyword    tokenType = "keyword"
	tOp         tokenType = "operator"
	tError      tokenType = "error"
)

type token struct {
	t   tokenType
	val string
}

func (t token) String() string {
	return fmt.Sprintf("[%s %s]", t.t, t.val)
}

type tokenizer struct {
	b     *parsebuf
	peeks []token
	err   error
}

func newTokenizer(s string) *tokenizer {
	return &tokenizer{b: newParsebuf(s)}
}

func (tr *tokenizer) unget(t token) {
	tr.peeks = append(tr.peeks, t)
}

func (tr *tokenizer) peek() token {
	s, err := tr.next()
	if err != nil {
		return token{tError, err.Error()}
	}
	if s.t != tEnd {
		tr.unget(s)
	}
	return s
}

// Two-character operators go first so that "<=" isn't read as "<".
var operators = []string{
	"<=", ">=", "<>", "!=",
	"=", "*", ".", "[", "]", "(", ")", ",", "<", ">",
}
var keywords = []string{
	"select", "as", "from", "join", "left", "inner", "outer", "on", "where",
	"order", "group", "by", "limit", "desc", "asc",
	"or", "and", "not", "is", "in", "exists",
	"array", "true", "false", "null",
}

func (tr *tokenizer) next() (token, error) {
	if len(tr.peeks) > 0 {
		r := tr.peeks[len(tr.peeks)-1]
		tr.peeks = tr.peeks[0 : len(tr.peeks)-1]
		return r, nil
	}
	if tr.err != nil {
		return token{}, tr.err
	}
	tr.b.space()
	start := tr.b.pos
	tok, err := tr.read()
	if err != nil {
		tr.err = fmt.Errorf("%s: %w", tr.b.where(start), err)
		return token{}, tr.err
	}
	return tok, nil
}

func (tr *tokenizer) read() (token, error) {
	if !tr.b.more() {
		return token{tEnd, ""}, nil
	}
	switch tr.b.peek() {
	case "'":
		s, err := readQuote(tr.b, "'")
		if err != nil {
			return token{}, err
		}
		return token{tString, s}, nil
	case "\"":
		s, err := readQuote(tr.b, "\"")
		if err != nil {
			return token{}, err
		}
		return token{tIdentifier, s}, nil
	case "-":
		tr.b.get()
		if !tr.b.peekDigit() {
			return token{}, fmt.Errorf("number expected after '-'")
		}
		return token{tNumber, "-" + tr.b.set("0123456789")}, nil
	}
	if tr.b.peekDigit() {
		return token{tNumber, tr.b.set("0123456789")}, nil
	}
	for _, s := range operators {
		if tr.b.literal(s) {
			return token{tOp, s}, nil
		}
	}

	s := tr.b.set("0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_")
	if s == "" {
		return token{}, fmt.Errorf("unexpected trailing string: %s", tr.b.rest())
	}
	for _, tok := range keywords {
		if strings.ToLower(s) == tok {
			return token{tKeyword, strings.ToUpper(s)}, nil
		}
	}
	return token{tIdentifier, s}, nil
}

// eat consumes the next token if it matches exactly.
func (tr *tokenizer) eat(t tokenType, val string) bool {
	p := tr.peek()
	if p.t == t && p.val == val {
		tr.next()
		return true
	}
	return false
}

// eati is eat with a case-insensitive value comparison.
func (tr *tokenizer) eati(t tokenType, val string) bool {
	p := tr.peek()
	if p.t == t && strings.EqualFold(p.val, val) {
		tr.next()
		return true
	}
	return false
}

func readQuote(b *parsebuf, q string) (string, error) {
	if !b.literal(q) {
		return "", fmt.Errorf("'%s' expected", q)
	}
	s := strings.Builder{}
	for b.more() {
		if b.literal("\\") {
			s.WriteString(b.get())
			continue
		}
		if b.peek() == q {
			break
		}
		s.WriteString(b.get())
	}
	if !b.literal(q) {
		return s.String(), fmt.Errorf("'%s' expected", q)
	}
	return s.String(), nil
}
