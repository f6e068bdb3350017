package lexer

import (
	"testing"

	"github.com/bx-lang/pasc/pkg/diag"
	"github.com/bx-lang/pasc/pkg/token"
	"github.com/google/go-cmp/cmp"
)

func tokensOf(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New("test.txt", []byte(src))
	var got []token.Token
	for {
		tok, ok := l.Next()
		if !ok {
			break
		}
		got = append(got, tok)
	}
	return got
}

func TestReservedVsWord(t *testing.T) {
	toks := tokensOf(t, "program begin end Foo")
	want := []token.Kind{token.ReservedWord, token.ReservedWord, token.ReservedWord, token.Word}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestIntegerLiteral(t *testing.T) {
	toks := tokensOf(t, "123")
	if len(toks) != 1 || toks[0].Kind != token.Integer || toks[0].Lexeme != "123" {
		t.Fatalf("got %v", toks)
	}
}

func TestRealLiteralWithExponent(t *testing.T) {
	toks := tokensOf(t, "3.14e+123")
	if len(toks) != 1 || toks[0].Kind != token.Real || toks[0].Lexeme != "3.14e+123" {
		t.Fatalf("got %v", toks)
	}
}

func TestRealLiteralWithOneOrTwoExponentDigitsIsLexError(t *testing.T) {
	for _, src := range []string{"1.5e1", "1.5e12"} {
		func() {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatalf("%s: expected a panic, got none", src)
				}
				e, ok := r.(*diag.Error)
				if !ok {
					t.Fatalf("%s: expected *diag.Error panic, got %T: %v", src, r, r)
				}
				if e.Kind != diag.LexError {
					t.Fatalf("%s: error kind = %v, want %v", src, e.Kind, diag.LexError)
				}
			}()
			New("test.txt", []byte(src))
		}()
	}
}

func TestRealLiteralNoExponent(t *testing.T) {
	toks := tokensOf(t, "0.5")
	if len(toks) != 1 || toks[0].Kind != token.Real || toks[0].Lexeme != "0.5" {
		t.Fatalf("got %v", toks)
	}
}

func TestAssignOperator(t *testing.T) {
	toks := tokensOf(t, "x := 1")
	if len(toks) != 3 {
		t.Fatalf("got %v", toks)
	}
	if toks[1].Kind != token.Special || toks[1].Lexeme != ":=" {
		t.Fatalf("got %v, want Special(\":=\")", toks[1])
	}
}

func TestRangeDots(t *testing.T) {
	toks := tokensOf(t, "1..5")
	want := []token.Kind{token.Integer, token.Special, token.Integer}
	if len(toks) != 3 {
		t.Fatalf("got %v", toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[1].Lexeme != ".." {
		t.Errorf("range dot lexeme = %q, want \"..\"", toks[1].Lexeme)
	}
}

func TestProgramTerminatorDot(t *testing.T) {
	toks := tokensOf(t, "end.")
	if len(toks) != 2 || toks[1].Lexeme != "." {
		t.Fatalf("got %v", toks)
	}
}

func TestCountsContract(t *testing.T) {
	l := New("test.txt", []byte("program P ; begin end ."))
	for {
		_, ok := l.Next()
		if !ok {
			break
		}
	}
	produced, remaining := l.Counts()
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if produced != 6 {
		t.Fatalf("produced = %d, want 6", produced)
	}
}

func TestBadByteIsFatal(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on an illegal byte")
		}
	}()
	New("test.txt", []byte("program @ end"))
}

func TestTokenSequenceMatchesExpected(t *testing.T) {
	got := tokensOf(t, "program P; begin end.")
	want := []token.Token{
		{Kind: token.ReservedWord, Lexeme: "program"},
		{Kind: token.Word, Lexeme: "P"},
		{Kind: token.Special, Lexeme: ";"},
		{Kind: token.ReservedWord, Lexeme: "begin"},
		{Kind: token.ReservedWord, Lexeme: "end"},
		{Kind: token.Special, Lexeme: "."},
	}
	opt := cmp.Comparer(func(a, b token.Token) bool {
		return a.Kind == b.Kind && a.Lexeme == b.Lexeme
	})
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Fatalf("token mismatch (-want +got):\n%s", diff)
	}
}
