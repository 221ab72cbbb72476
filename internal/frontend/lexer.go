// Package frontend is a minimal lexer and parser that bridges real source
// text into the syntax.Node tree the compiler consumes. It is intentionally
// small: brace-delimited blocks and a pragmatic expression grammar rather
// than a full reimplementation of Koto's indentation-sensitive surface
// syntax, scoped to what cmd/koto and this repo's own tests need to drive
// the execution core end to end. String interpolation (`${}`) is parsed by
// the compiler's lowering but not emitted by this lexer; template strings
// here are plain double-quoted literals.
package frontend

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tInt
	tFloat
	tString
	tKeyword
	tPunct
)

type token struct {
	kind tokenKind
	text string
	ival int64
	fval float64
	line int
	col  int
}

var keywords = map[string]bool{
	"null": true, "true": true, "false": true,
	"if": true, "else": true, "while": true, "until": true, "loop": true,
	"for": true, "in": true, "break": true, "continue": true,
	"return": true, "throw": true, "try": true, "catch": true, "finally": true,
	"yield": true, "import": true, "from": true, "export": true,
	"and": true, "or": true, "not": true, "debug": true,
}

// Lexer turns source text into a flat token stream.
type Lexer struct {
	src   []rune
	pos   int
	line  int
	col   int
	toks  []token
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

// Lex tokenizes src entirely (this grammar is small enough that a
// one-shot token slice is simpler than a streaming lexer).
func Lex(src string) ([]token, error) {
	l := newLexer(src)
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.toks = append(l.toks, tok)
		if tok.kind == tEOF {
			break
		}
	}
	return l.toks, nil
}

func (l *Lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		r := l.peekRune()
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			l.advance()
			continue
		}
		if r == '#' {
			for l.pos < len(l.src) && l.peekRune() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
func isIdentCont(r rune) bool { return isIdentStart(r) || isDigit(r) }

func (l *Lexer) next() (token, error) {
	l.skipSpaceAndComments()
	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tEOF, line: line, col: col}, nil
	}
	r := l.peekRune()

	switch {
	case isIdentStart(r):
		start := l.pos
		for l.pos < len(l.src) && isIdentCont(l.peekRune()) {
			l.advance()
		}
		text := string(l.src[start:l.pos])
		if keywords[text] {
			return token{kind: tKeyword, text: text, line: line, col: col}, nil
		}
		return token{kind: tIdent, text: text, line: line, col: col}, nil

	case isDigit(r):
		return l.lexNumber(line, col)

	case r == '"':
		return l.lexString(line, col)

	default:
		return l.lexPunct(line, col)
	}
}

func (l *Lexer) lexNumber(line, col int) (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peekRune()) {
		l.advance()
	}
	isFloat := false
	if l.peekRune() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for l.pos < len(l.src) && isDigit(l.peekRune()) {
			l.advance()
		}
	}
	text := string(l.src[start:l.pos])
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, fmt.Errorf("%d:%d: invalid float literal %q", line, col, text)
		}
		return token{kind: tFloat, fval: f, line: line, col: col}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, fmt.Errorf("%d:%d: invalid int literal %q", line, col, text)
	}
	return token{kind: tInt, ival: n, line: line, col: col}, nil
}

func (l *Lexer) lexString(line, col int) (token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("%d:%d: unterminated string literal", line, col)
		}
		r := l.advance()
		if r == '"' {
			break
		}
		if r == '\\' {
			if l.pos >= len(l.src) {
				return token{}, fmt.Errorf("%d:%d: unterminated escape in string literal", line, col)
			}
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(r)
	}
	return token{kind: tString, text: sb.String(), line: line, col: col}, nil
}

// multi-char punctuation, longest match first.
var multiPunct = []string{
	"..=", "...", "->", "..", "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=", "?.",
}

func (l *Lexer) lexPunct(line, col int) (token, error) {
	rest := string(l.src[l.pos:])
	for _, p := range multiPunct {
		if strings.HasPrefix(rest, p) {
			for range p {
				l.advance()
			}
			return token{kind: tPunct, text: p, line: line, col: col}, nil
		}
	}
	r := l.advance()
	switch r {
	case '(', ')', '[', ']', '{', '}', ',', ';', ':', '.', '=', '+', '-', '*', '/', '%',
		'<', '>', '|', '@', '_':
		return token{kind: tPunct, text: string(r), line: line, col: col}, nil
	}
	return token{}, fmt.Errorf("%d:%d: unexpected character %q", line, col, r)
}
