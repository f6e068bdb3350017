// Package diag renders compiler diagnostics: a colored, caret-annotated
// source line plus a templated message, and the Error type the parser
// panics with to abort a single file's compilation.
package diag

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/bx-lang/pasc/pkg/token"
)

// Kind classifies the five error categories the compiler can raise.
type Kind int

const (
	LexError Kind = iota
	SyntaxError
	TypeError
	ScopeError
	ResourceError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case SyntaxError:
		return "syntax error"
	case TypeError:
		return "type error"
	case ScopeError:
		return "scope error"
	case ResourceError:
		return "resource error"
	default:
		return "error"
	}
}

// Error is what the parser and lexer panic with. The batch driver recovers
// it at the per-file boundary and prints it; anything else that reaches the
// recover is a programmer error and is re-panicked.
type Error struct {
	Kind    Kind
	File    string
	Tok     token.Token
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, e.Kind, e.Message)
}

// templates holds the one compiled text/template per diagnostic shape.
// No third-party templating engine fits this narrow a job, so this is
// the one deliberate standard-library choice among the diagnostic
// plumbing.
var templates = map[string]*template.Template{
	"expected":    template.Must(template.New("expected").Parse(`expected {{.Expected}}, found {{.Found}}`)),
	"typeMismatch": template.Must(template.New("typeMismatch").Parse(
		`type mismatch: {{.Context}} expects {{.Want}}, got {{.Got}}`)),
	"unknownIdent": template.Must(template.New("unknownIdent").Parse(
		`{{.Kind}} {{.Name}} is not declared in this scope`)),
	"duplicate": template.Must(template.New("duplicate").Parse(
		`{{.Name}} is already declared in this scope`)),
	"realEquality": template.Must(template.New("realEquality").Parse(
		`equality is not defined for two real operands`)),
	"tooComplicated": template.Must(template.New("tooComplicated").Parse(
		`expression is too complicated (register pool exhausted)`)),
	"badByte": template.Must(template.New("badByte").Parse(
		`unexpected byte {{.Byte}} in state {{.State}} (lexeme so far: {{.Lexeme}})`)),
	"legacySize": template.Must(template.New("legacySize").Parse(
		`{{.Type}} is widened to a 4-byte scalar in this implementation`)),
}

// Render expands the named template against fields, a map of field name to
// value (any Go value usable by text/template's {{.Field}} syntax).
func Render(name string, fields map[string]interface{}) string {
	tmpl, ok := templates[name]
	if !ok {
		panic(fmt.Sprintf("diag: unknown template %q", name))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, fields); err != nil {
		panic(fmt.Sprintf("diag: template %q: %v", name, err))
	}
	return buf.String()
}

// ANSI color codes for diagnostic output.
const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

// SourceLine renders the single source line the token came from, with a
// caret-and-tildes underline beneath it, colored when color is true.
func SourceLine(source []string, tok token.Token, color bool) string {
	if tok.Line < 1 || tok.Line > len(source) {
		return ""
	}
	line := source[tok.Line-1]
	caretCol := tok.Column - 1
	if caretCol < 0 {
		caretCol = 0
	}
	underline := strings.Repeat(" ", caretCol) + "^" + strings.Repeat("~", max(0, tok.Len-1))
	if color {
		underline = colorGreen + underline + colorReset
	}
	return line + "\n" + underline
}

// Format renders a full diagnostic: "<file>:<line>:<col>: <kind>: <msg>"
// followed by the caret-annotated source line when source text is
// available.
func Format(e *Error, source []string, color bool) string {
	prefix := fmt.Sprintf("%s:%d:%d: ", e.File, e.Tok.Line, e.Tok.Column)
	kindLabel := e.Kind.String() + ":"
	if color {
		kindLabel = colorRed + kindLabel + colorReset
	}
	out := prefix + kindLabel + " " + e.Message
	if snippet := SourceLine(source, e.Tok, color); snippet != "" {
		out += "\n" + snippet
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
