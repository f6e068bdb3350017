package diag

import (
	"fmt"
	"io"

	"github.com/bx-lang/pasc/pkg/token"
)

// Warning is the one non-fatal diagnostic this compiler can raise: a
// legacy scalar size inconsistency recovered from the reference
// implementation and normalized away.
type Warning struct {
	File    string
	Tok     token.Token
	Message string
}

// Warn prints w to out, colored when color is true, and honors
// asError by returning a promoted *Error instead of nil.
func Warn(out io.Writer, w Warning, color bool, asError bool) *Error {
	label := "warning:"
	if color {
		label = colorGreen + label + colorReset
	}
	fmt.Fprintf(out, "%s:%d:%d: %s %s\n", w.File, w.Tok.Line, w.Tok.Column, label, w.Message)
	if asError {
		return &Error{Kind: TypeError, File: w.File, Tok: w.Tok, Message: w.Message}
	}
	return nil
}
