// This lexer's state-function design is based on, and copied from, Rob Pike's talk
// on Go scanners (https://www.youtube.com/watch?v=HxaD_trXwRE，slides at
// https://talks.golang.org/2011/lex.slide#1), the same design the teacher's
// frontend lexer uses. It scans by rune, so VSOP source is treated as UTF-8.

package frontend

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// stateFunc defines the lexer's current state; each state function returns the
// next state to transition into, or nil to stop scanning.
type stateFunc func(*lexer) stateFunc

// tokenType differentiates the tokens scanned by the lexer.
type tokenType int

const (
	tokEOF tokenType = iota
	tokError

	tokInteger
	tokString
	tokTypeIdentifier   // Starts with an uppercase letter: class/type names.
	tokObjectIdentifier // Starts with a lowercase letter: field/method/variable names.

	// Keywords.
	tokAnd
	tokBool
	tokClass
	tokDo
	tokElse
	tokExtends
	tokFalse
	tokIf
	tokIn
	tokInt32
	tokIsnull
	tokLet
	tokNew
	tokNot
	tokSelf
	tokString_ // The "string" type keyword, distinct from a tokString literal.
	tokThen
	tokTrue
	tokUnit
	tokWhile

	// Punctuation and operators.
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
	tokColon
	tokSemicolon
	tokComma
	tokDot
	tokAssign // <-
	tokEquals
	tokLower
	tokLowerEqual
	tokPlus
	tokMinus
	tokTimes
	tokDiv
	tokPow
	tokTilde
)

var keywords = map[string]tokenType{
	"and":     tokAnd,
	"bool":    tokBool,
	"class":   tokClass,
	"do":      tokDo,
	"else":    tokElse,
	"extends": tokExtends,
	"false":   tokFalse,
	"if":      tokIf,
	"in":      tokIn,
	"int32":   tokInt32,
	"isnull":  tokIsnull,
	"let":     tokLet,
	"new":     tokNew,
	"not":     tokNot,
	"self":    tokSelf,
	"string":  tokString_,
	"then":    tokThen,
	"true":    tokTrue,
	"unit":    tokUnit,
	"while":   tokWhile,
}

// token is one lexeme scanned from the source, with its source position.
type token struct {
	typ  tokenType
	val  string
	line int
	col  int
}

// String renders t for diagnostics and the -l token stream mode.
func (t token) String() string {
	switch t.typ {
	case tokEOF:
		return "EOF"
	case tokError:
		return fmt.Sprintf("ERROR %s", t.val)
	}
	return fmt.Sprintf("%s %q (%d:%d)", tokenName(t.typ), t.val, t.line, t.col)
}

// lexer scans a VSOP source string into a channel of tokens.
type lexer struct {
	input string
	start int
	pos   int
	width int

	line      int
	startCol  int

	state stateFunc
	items chan token
}

const eof = rune(0)

// ---------------------------
// ----- Lexer functions -----
// ---------------------------

// newLexer returns a lexer ready to scan src.
func newLexer(src string) *lexer {
	return &lexer{
		input:    src,
		line:     1,
		startCol: 1,
		state:    lexText,
		items:    make(chan token, 2),
	}
}

// run drives the lexer's state machine until it is exhausted, emitting tokens on
// l.items. Meant to be run in its own goroutine, concurrently with a consumer
// ranging over l.items (scan in parser.go) -- the same pipeline shape the
// teacher's lexer uses relative to its parser.
func (l *lexer) run() {
	defer close(l.items)
	for state := l.state; state != nil; {
		state = state(l)
	}
}

// emit sends a token of type typ for the pending lexeme back to the consumer.
func (l *lexer) emit(typ tokenType) {
	l.items <- token{
		typ:  typ,
		val:  l.input[l.start:l.pos],
		line: l.line,
		col:  l.startCol,
	}
	l.startCol += runeLen(l.input[l.start:l.pos])
	l.start = l.pos
}

// runeLen returns the number of runes in s, used to advance column counters
// correctly for multi-byte UTF-8 sequences.
func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// next returns the next rune in the input, advancing past it.
func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

// backup steps back one rune. Must only be called once per call to next.
func (l *lexer) backup() {
	l.pos -= l.width
}

// peek returns, without consuming, the next rune.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// ignore discards the pending lexeme, advancing line/column counters across it.
func (l *lexer) ignore() {
	for _, r := range l.input[l.start:l.pos] {
		if r == '\n' {
			l.line++
			l.startCol = 1
		} else {
			l.startCol++
		}
	}
	l.start = l.pos
}

// accept consumes the next rune if it is in valid.
func (l *lexer) accept(valid string) bool {
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

// acceptRun consumes a run of runes from valid.
func (l *lexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}

// errorf emits an error token and stops the lexer.
func (l *lexer) errorf(format string, args ...interface{}) stateFunc {
	l.items <- token{
		typ:  tokError,
		val:  fmt.Sprintf(format, args...),
		line: l.line,
		col:  l.startCol,
	}
	return nil
}

// tokenName renders a tokenType for diagnostics.
func tokenName(t tokenType) string {
	switch t {
	case tokInteger:
		return "integer-literal"
	case tokString:
		return "string-literal"
	case tokTypeIdentifier:
		return "type-identifier"
	case tokObjectIdentifier:
		return "object-identifier"
	case tokLBrace:
		return "{"
	case tokRBrace:
		return "}"
	case tokLParen:
		return "("
	case tokRParen:
		return ")"
	case tokColon:
		return ":"
	case tokSemicolon:
		return ";"
	case tokComma:
		return ","
	case tokDot:
		return "."
	case tokAssign:
		return "<-"
	case tokEquals:
		return "="
	case tokLower:
		return "<"
	case tokLowerEqual:
		return "<="
	case tokPlus:
		return "+"
	case tokMinus:
		return "-"
	case tokTimes:
		return "*"
	case tokDiv:
		return "/"
	case tokPow:
		return "^"
	case tokTilde:
		return "not"
	}
	for kw, ty := range keywords {
		if ty == t {
			return kw
		}
	}
	return "?"
}
