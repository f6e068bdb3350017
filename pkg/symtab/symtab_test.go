package symtab

import "testing"

func TestAddVariableOffsets(t *testing.T) {
	tab := New()
	if !tab.AddVariable("x", Integer, ScalarSize, false, false) {
		t.Fatal("expected first add to succeed")
	}
	if !tab.AddVariable("y", Real, ScalarSize, false, false) {
		t.Fatal("expected second add to succeed")
	}
	vx, _ := tab.GetVarInfo("x")
	vy, _ := tab.GetVarInfo("y")
	if vx.Offset != 0 || vy.Offset != ScalarSize {
		t.Fatalf("got offsets %d, %d; want 0, %d", vx.Offset, vy.Offset, ScalarSize)
	}
	if tab.AddVariable("x", Integer, ScalarSize, false, false) {
		t.Fatal("expected duplicate add in same scope to fail")
	}
}

func TestParamOffsetsStartAtEight(t *testing.T) {
	tab := New()
	tab.EnterProcScope("P")
	tab.AddVariable("a", Integer, ScalarSize, false, true)
	tab.AddVariable("b", Boolean, ScalarSize, true, true)
	va, _ := tab.GetVarInfo("a")
	vb, _ := tab.GetVarInfo("b")
	if va.Offset != 8 {
		t.Fatalf("first param offset = %d, want 8", va.Offset)
	}
	if vb.Offset != 8+ScalarSize {
		t.Fatalf("second param offset = %d, want %d", vb.Offset, 8+ScalarSize)
	}
}

func TestShadowingTerminatesSearch(t *testing.T) {
	tab := New()
	tab.AddVariable("x", Integer, ScalarSize, false, false)
	tab.EnterProcScope("P")
	tab.EnterProcScope("x") // shadow "x" as a procedure name in the inner scope
	if _, ok := tab.Find("x", KindVar); ok {
		t.Fatal("shadowing by a procedure entry should prevent finding the outer variable")
	}
}

func TestFindWalksOuterScopes(t *testing.T) {
	tab := New()
	tab.AddVariable("g", Integer, ScalarSize, false, false)
	tab.EnterProcScope("P")
	if _, ok := tab.Find("g", KindVar); !ok {
		t.Fatal("expected to find outer-scope variable g")
	}
}

func TestLeaveScopeIsNoOpAtRoot(t *testing.T) {
	tab := New()
	tab.LeaveScope()
	if !tab.AtGlobalScope() {
		t.Fatal("expected to remain at global scope")
	}
}

func TestFuncScopeCreatesReturnSlot(t *testing.T) {
	tab := New()
	fe, _ := tab.EnterFuncScope("F")
	tab.SetFuncReturnType(fe, Real)
	v, ok := tab.GetVarInfo("F")
	if !ok {
		t.Fatal("expected return-slot variable named after the function")
	}
	if v.Type != Real {
		t.Fatalf("return slot type = %v, want Real", v.Type)
	}
}

func TestEnterScopeDuplicateNameFails(t *testing.T) {
	tab := New()
	tab.AddVariable("P", Integer, ScalarSize, false, false)
	if _, ok := tab.EnterProcScope("P"); ok {
		t.Fatal("expected EnterProcScope to fail on a name already bound in the current scope")
	}
}

func TestGetProcInfoAndGetFuncInfoAreScopeLocal(t *testing.T) {
	tab := New()
	tab.EnterProcScope("P")
	tab.LeaveScope()
	if _, ok := tab.GetProcInfo("P"); !ok {
		t.Fatal("expected GetProcInfo to find P declared in the current (global) scope")
	}
	fe, _ := tab.EnterFuncScope("F")
	tab.SetFuncReturnType(fe, Integer)
	tab.LeaveScope()
	if _, ok := tab.GetFuncInfo("F"); !ok {
		t.Fatal("expected GetFuncInfo to find F declared in the current scope")
	}
	// F's return-slot variable lives in F's own scope, not the caller's.
	if _, ok := tab.GetVarInfo("F"); ok {
		t.Fatal("expected the return-slot variable to not be visible from the enclosing scope")
	}
}

func TestFindAnyIgnoresKind(t *testing.T) {
	tab := New()
	tab.EnterProcScope("P")
	tab.LeaveScope()
	e, ok := tab.FindAny("P")
	if !ok || e.Kind != KindProc {
		t.Fatalf("got %v, %v; want a KindProc entry", e, ok)
	}
}

func TestScopeNameReflectsTheCurrentProcedure(t *testing.T) {
	tab := New()
	if tab.ScopeName() != "" {
		t.Fatalf("ScopeName() at root = %q, want empty", tab.ScopeName())
	}
	tab.EnterProcScope("P")
	if tab.ScopeName() != "P" {
		t.Fatalf("ScopeName() = %q, want %q", tab.ScopeName(), "P")
	}
}
