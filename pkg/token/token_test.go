package token

import "testing"

func TestMakeWordClassifiesReservedLexemes(t *testing.T) {
	tok := MakeWord("begin", 1, 1)
	if tok.Kind != ReservedWord {
		t.Fatalf("Kind = %v, want ReservedWord", tok.Kind)
	}
}

func TestMakeWordClassifiesOrdinaryIdentifiers(t *testing.T) {
	tok := MakeWord("Foo", 1, 1)
	if tok.Kind != Word {
		t.Fatalf("Kind = %v, want Word", tok.Kind)
	}
}

func TestMakeWordSetsLenFromLexeme(t *testing.T) {
	tok := MakeWord("hello", 3, 7)
	if tok.Len != 5 || tok.Line != 3 || tok.Column != 7 {
		t.Fatalf("got %+v", tok)
	}
}

func TestIsMatchesSpecialOrReservedByLexeme(t *testing.T) {
	tok := Token{Kind: Special, Lexeme: ":="}
	if !tok.Is(":=") {
		t.Fatal("expected Is(\":=\") to match a Special token with that lexeme")
	}
	if tok.Is(":") {
		t.Fatal("expected Is to require an exact lexeme match")
	}
}

func TestIsNeverMatchesWordOrLiteralKinds(t *testing.T) {
	tok := Token{Kind: Word, Lexeme: "begin"}
	if tok.Is("begin") {
		t.Fatal("Is must not match a Word token even if the lexeme coincides with a keyword")
	}
}

func TestKindStringCoversEveryVariant(t *testing.T) {
	kinds := []Kind{Word, Integer, Real, Special, ReservedWord}
	for _, k := range kinds {
		if k.String() == "" {
			t.Errorf("Kind(%d).String() returned empty", k)
		}
	}
}

func TestReservedTableExcludesScalarTypeNames(t *testing.T) {
	// integer/boolean/char/real are ordinary Words, distinguished by
	// lexeme inside pkg/parser's datatype(), not reserved words.
	for _, name := range []string{"integer", "boolean", "char", "real"} {
		if Reserved[name] {
			t.Errorf("Reserved[%q] = true, want false", name)
		}
	}
}
