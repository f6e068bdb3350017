package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bx-lang/pasc/pkg/config"
	"github.com/bx-lang/pasc/pkg/diag"
)

func compile(t *testing.T, src string) []string {
	t.Helper()
	dir := t.TempDir()
	lst := filepath.Join(dir, "out.lst")
	p, err := New("t.pas", []byte(src), lst, config.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Compile()
	raw, err := os.ReadFile(lst)
	if err != nil {
		t.Fatalf("reading listing: %v", err)
	}
	var lines []string
	for _, l := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func mustPanic(t *testing.T, want diag.Kind, fn func()) *diag.Error {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic, got none")
		}
		e, ok := r.(*diag.Error)
		if !ok {
			t.Fatalf("expected *diag.Error panic, got %T: %v", r, r)
		}
		if e.Kind != want {
			t.Fatalf("error kind = %v, want %v (%v)", e.Kind, want, e)
		}
	}()
	fn()
	return nil
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) == want {
			return true
		}
	}
	return false
}

func indexOfLine(lines []string, want string) int {
	for i, l := range lines {
		if strings.TrimSpace(l) == want {
			return i
		}
	}
	return -1
}

func TestLiteralArithmeticFoldsWithoutEmittingOps(t *testing.T) {
	lines := compile(t, "program P ; var x : integer ; begin x := 1 + 2 end .")
	for _, l := range lines {
		if strings.Contains(l, "ADD") {
			t.Fatalf("expected no ADD instruction from folded literals, got line %q", l)
		}
	}
	if !containsLine(lines, "MOV EAX, 3") {
		t.Fatalf("expected folded literal 3 materialized once, lines: %v", lines)
	}
	if !containsLine(lines, "MOV [EBP+0], EAX") {
		t.Fatalf("expected global variable write via [EBP+0], lines: %v", lines)
	}
}

func TestIfEmitsDirectJumpThenJoinsAtEndLabel(t *testing.T) {
	lines := compile(t, "program P ; var x : integer ; begin if x > 0 then x := 1 else x := 2 end .")
	wantInOrder := []string{"JG if0", "JMP else0", "if0:", "JMP endif0", "else0:", "JMP endif0", "endif0:"}
	last := -1
	for _, w := range wantInOrder {
		// "JMP endif0" appears twice, so each line is searched for after
		// the previous match rather than from the top of the listing.
		idx := indexOfLine(lines[last+1:], w)
		if idx >= 0 {
			idx += last + 1
		} else {
			idx = indexOfLine(lines, w)
		}
		if idx < 0 {
			t.Fatalf("missing line %q in listing: %v", w, lines)
		}
		if idx <= last {
			t.Fatalf("line %q out of order (idx %d <= %d) in listing: %v", w, idx, last, lines)
		}
		last = idx
	}
}

func TestWhileRetestsAtTopAndLoopsBack(t *testing.T) {
	lines := compile(t, "program P ; var x : integer ; begin while x > 0 do x := 1 end .")
	wantInOrder := []string{"while0:", "JG while0inner", "JMP endwhile0", "while0inner:", "JMP while0", "endwhile0:"}
	last := -1
	for _, w := range wantInOrder {
		idx := indexOfLine(lines, w)
		if idx < 0 {
			t.Fatalf("missing line %q in listing: %v", w, lines)
		}
		if idx <= last {
			t.Fatalf("line %q out of order (idx %d <= %d) in listing: %v", w, idx, last, lines)
		}
		last = idx
	}
}

func TestAndShortCircuitsToOrLabel(t *testing.T) {
	lines := compile(t, "program P ; var x, y : integer ; begin if ( x > 0 ) and ( y > 0 ) then x := 1 end .")
	if !containsLine(lines, "JLE or0") {
		t.Fatalf("expected inverse-jump short circuit on 'and', lines: %v", lines)
	}
	if !containsLine(lines, "or0:") {
		t.Fatalf("expected or0 label placed after the chain, lines: %v", lines)
	}
}

func TestSequentialBareRelationalsDoNotLeakRegisters(t *testing.T) {
	src := "program P ; var x : integer ; begin " +
		"if x > 0 then x := 1 ; " +
		"if x > 0 then x := 1 ; " +
		"while x > 0 do x := 1 ; " +
		"while x > 0 do x := 1 ; " +
		"if x > 0 then x := 1 " +
		"end ."
	lines := compile(t, src)
	if !containsLine(lines, "endif1:") {
		t.Fatalf("expected the compile to finish without panicking, lines: %v", lines)
	}
}

func TestByReferenceParameterWriteDereferencesTwice(t *testing.T) {
	src := "program P ; " +
		"procedure Inc ( var n : integer ) ; " +
		"begin n := 1 end ; " +
		"var x : integer ; " +
		"begin Inc ( x ) end ."
	lines := compile(t, src)
	if !containsLine(lines, "MOV EBX, [EDI+8]") {
		t.Fatalf("expected the parameter slot's pointer to be loaded, lines: %v", lines)
	}
	if !containsLine(lines, "MOV [EBX], EAX") {
		t.Fatalf("expected the write to go through the loaded pointer, lines: %v", lines)
	}
	if !containsLine(lines, "ADD EAX, EBP") {
		t.Fatalf("expected the call site to pass the address of the global argument, lines: %v", lines)
	}
}

func TestRealEqualityIsRejected(t *testing.T) {
	mustPanic(t, diag.TypeError, func() {
		compile(t, "program P ; var x : real ; begin if x = 1.0 then x := 1.0 end .")
	})
}

func TestUnknownIdentifierIsScopeError(t *testing.T) {
	mustPanic(t, diag.ScopeError, func() {
		compile(t, "program P ; begin y := 1 end .")
	})
}

func TestDuplicateDeclarationIsScopeError(t *testing.T) {
	mustPanic(t, diag.ScopeError, func() {
		compile(t, "program P ; var x : integer ; var x : integer ; begin end .")
	})
}

func TestTypeMismatchOnAssignmentIsTypeError(t *testing.T) {
	mustPanic(t, diag.TypeError, func() {
		compile(t, "program P ; var x : boolean ; begin x := 1 end .")
	})
}

func TestTokenCountsFullyConsumedAfterCompile(t *testing.T) {
	dir := t.TempDir()
	lst := filepath.Join(dir, "out.lst")
	src := "program P ; var x : integer ; begin x := 1 + 2 end ."
	p, err := New("t.pas", []byte(src), lst, config.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Compile()
	produced, remaining := p.TokenCounts()
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0 (queue fully drained)", remaining)
	}
	if produced != 16 {
		t.Fatalf("produced = %d, want 16", produced)
	}
}

func TestFunctionCallMaterializesReturnValueFromEAX(t *testing.T) {
	src := "program P ; " +
		"function Double ( n : integer ) : integer ; " +
		"begin Double := n + n end ; " +
		"var x : integer ; " +
		"begin x := Double ( 2 ) end ."
	lines := compile(t, src)
	if !containsLine(lines, "CALL Double") {
		t.Fatalf("expected a CALL to the function, lines: %v", lines)
	}
	found := false
	for _, l := range lines {
		if strings.Contains(strings.TrimSpace(l), "MOV") && strings.Contains(l, "EAX") && !strings.Contains(l, "PUSHAD") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the return value to be captured out of EAX, lines: %v", lines)
	}
}
