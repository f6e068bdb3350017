// Package lexer implements the DFA-driven tokenizer: a 256×N byte/state
// transition table consumed one byte at a time, grounded on
// _examples/original_source/lexer.h's DfaState enum and lexer.cpp's
// accept-on-transition-to-Accept, reject-on-transition-to-Error loop.
//
// Like the reference implementation, the whole input is tokenized up front
// into an ordered queue; the parser drains it one token at a time.
package lexer

import (
	"fmt"

	"github.com/bx-lang/pasc/pkg/diag"
	"github.com/bx-lang/pasc/pkg/token"
)

// State is one of the DFA's thirteen real states plus the two pseudo-states
// Accept and Error.
type State int

const (
	Whitespace State = iota
	Letter
	IntegerState
	RealInit
	RealRational
	RealExp
	RealExpOp
	RealFirstExpDigit
	RealSecondExpDigit
	RealThirdExpDigit
	Special
	Dot
	Colon
	Accept
	Error
	numRealStates = Colon + 1
)

func (s State) String() string {
	names := [...]string{
		"Whitespace", "Letter", "Integer", "RealInit", "RealRational",
		"RealExp", "RealExpOp", "RealFirstExpDigit", "RealSecondExpDigit",
		"RealThirdExpDigit", "Special", "Dot", "Colon", "Accept", "Error",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const whitespaceBytes = " \n\r\t\f\v"
const specialBytes = "+-*/<>=(),;[]"

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isWS(c byte) bool {
	for i := 0; i < len(whitespaceBytes); i++ {
		if whitespaceBytes[i] == c {
			return true
		}
	}
	return false
}
func isSpecialByte(c byte) bool {
	for i := 0; i < len(specialBytes); i++ {
		if specialBytes[i] == c {
			return true
		}
	}
	return false
}

// table[state][byte] is the transition table, built once at init from the
// per-state classification rules below rather than written out literally —
// 256 hand-typed columns per state would be unreadable, and this is
// exactly equivalent in the hot path: a pure array lookup per byte.
var table [numRealStates][256]State

func init() {
	for s := State(0); s < numRealStates; s++ {
		for b := 0; b < 256; b++ {
			table[s][b] = Error
		}
	}
	for b := 0; b < 256; b++ {
		c := byte(b)
		switch {
		case isWS(c):
			table[Whitespace][b] = Whitespace
		case isLetter(c):
			table[Whitespace][b] = Letter
		case isDigit(c):
			table[Whitespace][b] = IntegerState
		case c == '.':
			table[Whitespace][b] = Dot
		case c == ':':
			table[Whitespace][b] = Colon
		case isSpecialByte(c):
			table[Whitespace][b] = Special
		}

		if isLetter(c) || isDigit(c) {
			table[Letter][b] = Letter
		} else {
			table[Letter][b] = Accept
		}

		if isDigit(c) {
			table[IntegerState][b] = IntegerState
		} else if c == '.' {
			table[IntegerState][b] = RealInit
		} else {
			table[IntegerState][b] = Accept
		}

		if isDigit(c) {
			table[RealInit][b] = RealRational
		} else {
			table[RealInit][b] = Error
		}

		if isDigit(c) {
			table[RealRational][b] = RealRational
		} else if c == 'e' || c == 'E' {
			table[RealRational][b] = RealExp
		} else {
			table[RealRational][b] = Accept
		}

		if c == '+' || c == '-' {
			table[RealExp][b] = RealExpOp
		} else if isDigit(c) {
			table[RealExp][b] = RealFirstExpDigit
		} else {
			table[RealExp][b] = Error
		}

		if isDigit(c) {
			table[RealExpOp][b] = RealFirstExpDigit
		} else {
			table[RealExpOp][b] = Error
		}

		if isDigit(c) {
			table[RealFirstExpDigit][b] = RealSecondExpDigit
		} else {
			table[RealFirstExpDigit][b] = Accept
		}

		if isDigit(c) {
			table[RealSecondExpDigit][b] = RealThirdExpDigit
		} else {
			table[RealSecondExpDigit][b] = Accept
		}

		if isDigit(c) {
			table[RealThirdExpDigit][b] = Error
		} else {
			table[RealThirdExpDigit][b] = Accept
		}

		table[Special][b] = Accept

		if c == '.' {
			table[Dot][b] = Dot
		} else {
			table[Dot][b] = Accept
		}

		if c == '=' {
			table[Colon][b] = Colon
		} else {
			table[Colon][b] = Accept
		}
	}
}

// Lexer holds the fully-tokenized queue for one source file plus a cursor.
type Lexer struct {
	file   string
	tokens []token.Token
	pos    int
}

// New tokenizes src in full and returns a Lexer positioned at its first
// token. Diagnostics raised during tokenization are attributed to file.
// It panics with a *diag.Error on a lexical error, matching the
// fatal-lex-error contract.
func New(file string, src []byte) *Lexer {
	l := &Lexer{file: file}
	l.tokens = scan(file, src)
	return l
}

// Next consumes and returns the next token, or (zero, false) at end of
// the queue.
func (l *Lexer) Next() (token.Token, bool) {
	if l.pos >= len(l.tokens) {
		return token.Token{}, false
	}
	t := l.tokens[l.pos]
	l.pos++
	return t, true
}

// Counts returns (total tokens produced, remaining unconsumed) — the
// driver uses this to verify the parser drained the queue completely.
func (l *Lexer) Counts() (produced int, remaining int) {
	return len(l.tokens), len(l.tokens) - l.pos
}

// scan runs the DFA over the entire input and returns the ordered token
// queue, exactly mirroring the reference's constructor-time tokenization.
func scan(file string, src []byte) []token.Token {
	var out []token.Token
	pos := 0
	line, col := 1, 1

	for pos < len(src) {
		state := Whitespace
		var lexeme []byte
		startLine, startCol := line, col
		tokenStarted := false

		for pos < len(src) {
			c := src[pos]
			next := table[state][c]
			// Digits followed by ".." end the integer, so "1..5" lexes as
			// Integer, "..", Integer rather than as a real that never
			// gets its fractional digit.
			if state == IntegerState && c == '.' && pos+1 < len(src) && src[pos+1] == '.' {
				next = Accept
			}
			if next == Accept {
				break
			}
			if next == Error {
				panic(&diag.Error{
					Kind: diag.LexError,
					File: file,
					Tok:  token.Token{Line: line, Column: col},
					Message: diag.Render("badByte", map[string]interface{}{
						"Byte":   fmt.Sprintf("%q", c),
						"State":  state.String(),
						"Lexeme": string(lexeme),
					}),
				})
			}
			if state == Whitespace && next == Whitespace {
				pos++
				if c == '\n' {
					line++
					col = 1
				} else {
					col++
				}
				startLine, startCol = line, col
				continue
			}
			if !tokenStarted {
				startLine, startCol = line, col
				tokenStarted = true
			}
			lexeme = append(lexeme, c)
			pos++
			if c == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			state = next
		}

		if len(lexeme) == 0 {
			continue
		}
		out = append(out, classify(file, state, lexeme, startLine, startCol))
	}

	return out
}

// classify maps the *prior* DFA state (the one the scanner was in just
// before transitioning to Accept) to a token variant.
func classify(file string, prior State, lexeme []byte, line, col int) token.Token {
	text := string(lexeme)
	switch prior {
	case Letter:
		return token.MakeWord(text, line, col)
	case IntegerState:
		return token.Token{Kind: token.Integer, Lexeme: text, Line: line, Column: col, Len: len(text)}
	case RealRational, RealThirdExpDigit:
		return token.Token{Kind: token.Real, Lexeme: text, Line: line, Column: col, Len: len(text)}
	case Special, Dot, Colon:
		return token.Token{Kind: token.Special, Lexeme: text, Line: line, Column: col, Len: len(text)}
	default:
		panic(&diag.Error{
			Kind: diag.LexError,
			File: file,
			Tok:  token.Token{Line: line, Column: col},
			Message: diag.Render("badByte", map[string]interface{}{
				"Byte":   "<eof>",
				"State":  prior.String(),
				"Lexeme": text,
			}),
		})
	}
}
