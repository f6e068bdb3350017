// Package symtab implements the nested-scope symbol table: a tree of
// scopes threaded by parent handles, holding variable/procedure/function
// entries and assigning stack-frame offsets as declarations are parsed.
//
// Scopes are never raw pointers (the C++ reference this is grounded on,
// symtab.hpp/symtab.cpp, threads them that way and never frees them) — here
// they live in an arena and are addressed by integer handle, which is the
// redesign this module's specification calls for: a scope is never reached
// except through the arena, and the arena alone owns teardown.
package symtab

// VarType is the language's scalar type set. Arrays are parsed by the
// grammar but never reach the symbol table — see pkg/parser's dim/mdim.
type VarType int

const (
	Integer VarType = iota
	Boolean
	Character
	Real
)

func (t VarType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Boolean:
		return "boolean"
	case Character:
		return "char"
	case Real:
		return "real"
	default:
		return "?"
	}
}

// Scalars are uniformly 4 bytes in this implementation, resolving the
// reference's 1-byte boolean/char parameter inconsistency by aligning
// every scalar to the machine word.
const ScalarSize = 4

// Kind tags which of the three entry shapes an Entry holds.
type Kind int

const (
	KindVar Kind = iota
	KindProc
	KindFunc
)

// VarEntry describes a declared variable or parameter.
type VarEntry struct {
	Type    VarType
	Size    int
	Offset  int
	ByRef   bool
	IsParam bool
}

// ProcEntry describes a declared procedure; Scope is the handle of its
// body's inner scope.
type ProcEntry struct {
	Name  string
	Scope handle
}

// FuncEntry describes a declared function; Scope is the handle of its
// body's inner scope, which always contains a VarEntry named the same as
// the function itself — the return slot.
type FuncEntry struct {
	Name       string
	Scope      handle
	ReturnType VarType
}

// Entry is a tagged union over the three declaration shapes a name can
// resolve to within a scope.
type Entry struct {
	Kind Kind
	Var  *VarEntry
	Proc *ProcEntry
	Func *FuncEntry
}

type handle int

const noParent handle = -1

type scope struct {
	table       map[string]*Entry
	declOrder   []string
	paramOffset int
	varOffset   int
	name        string
	parent      handle
}

// Table is the symbol table: an arena of scopes plus a cursor onto the
// scope currently being populated.
type Table struct {
	arena []*scope
	cur   handle
}

// New returns a Table positioned at a freshly created global scope.
func New() *Table {
	t := &Table{}
	t.cur = t.newScope("", noParent)
	return t
}

func (t *Table) newScope(name string, parent handle) handle {
	t.arena = append(t.arena, &scope{
		table:  make(map[string]*Entry),
		name:   name,
		parent: parent,
	})
	return handle(len(t.arena) - 1)
}

func (t *Table) scopeAt(h handle) *scope { return t.arena[h] }

func (t *Table) current() *scope { return t.arena[t.cur] }

// AddVariable inserts name into the current scope. It reports false (and
// inserts nothing) if name already exists in the current scope. Frame
// offsets follow the reference's rule: parameters get 8+param_offset then
// advance param_offset by size; locals get var_offset then advance
// var_offset by size.
func (t *Table) AddVariable(name string, typ VarType, size int, byRef, isParam bool) bool {
	s := t.current()
	if _, exists := s.table[name]; exists {
		return false
	}
	v := &VarEntry{Type: typ, Size: size, ByRef: byRef, IsParam: isParam}
	if isParam {
		v.Offset = 8 + s.paramOffset
		s.paramOffset += size
	} else {
		v.Offset = s.varOffset
		s.varOffset += size
	}
	s.table[name] = &Entry{Kind: KindVar, Var: v}
	s.declOrder = append(s.declOrder, name)
	return true
}

// ProcParams returns p's formal parameters in declaration order.
func (t *Table) ProcParams(p *ProcEntry) []*VarEntry {
	return t.orderedParams(p.Scope)
}

// FuncParams returns f's formal parameters in declaration order (the
// return-slot variable, which shares f's name, is never a parameter and
// is excluded).
func (t *Table) FuncParams(f *FuncEntry) []*VarEntry {
	return t.orderedParams(f.Scope)
}

func (t *Table) orderedParams(h handle) []*VarEntry {
	s := t.scopeAt(h)
	var out []*VarEntry
	for _, name := range s.declOrder {
		if e := s.table[name]; e.Kind == KindVar && e.Var.IsParam {
			out = append(out, e.Var)
		}
	}
	return out
}

// EnterProcScope declares a procedure named name in the current scope and
// makes its fresh child scope current. Reports false if name already
// exists in the current scope.
func (t *Table) EnterProcScope(name string) (*ProcEntry, bool) {
	s := t.current()
	if _, exists := s.table[name]; exists {
		return nil, false
	}
	child := t.newScope(name, t.cur)
	pe := &ProcEntry{Name: name, Scope: child}
	s.table[name] = &Entry{Kind: KindProc, Proc: pe}
	t.cur = child
	return pe, true
}

// EnterFuncScope declares a function named name in the current scope and
// makes its fresh child scope current. The return type is not known at
// this grammar point (it follows the parameter list in the source), so
// the return-slot variable is added separately by SetFuncReturnType once
// the parser has parsed it.
func (t *Table) EnterFuncScope(name string) (*FuncEntry, bool) {
	s := t.current()
	if _, exists := s.table[name]; exists {
		return nil, false
	}
	child := t.newScope(name, t.cur)
	fe := &FuncEntry{Name: name, Scope: child}
	s.table[name] = &Entry{Kind: KindFunc, Func: fe}
	t.cur = child
	return fe, true
}

// SetFuncReturnType records f's return type and adds its return-slot
// variable — named the same as the function — to f's own scope, which
// must be current.
func (t *Table) SetFuncReturnType(f *FuncEntry, rt VarType) {
	f.ReturnType = rt
	t.AddVariable(f.Name, rt, ScalarSize, false, false)
}

// LeaveScope moves the cursor to the current scope's parent. No-op at the
// root scope.
func (t *Table) LeaveScope() {
	if p := t.current().parent; p != noParent {
		t.cur = p
	}
}

// Find walks from the current scope outward to the root. On the first
// scope containing name, it returns that entry if its Kind matches want;
// otherwise it returns (nil, false) immediately without continuing
// outward — shadowing terminates the search, by design.
func (t *Table) Find(name string, want Kind) (*Entry, bool) {
	for h := t.cur; ; {
		s := t.scopeAt(h)
		if e, ok := s.table[name]; ok {
			if e.Kind == want {
				return e, true
			}
			return nil, false
		}
		if s.parent == noParent {
			return nil, false
		}
		h = s.parent
	}
}

// FindScoped is Find plus whether the match was in the current scope
// (isLocal) rather than an ancestor — the parser needs this to choose the
// right-hand side's addressing mode ([FP ± offset] for local, [BP + offset]
// for outer/global).
func (t *Table) FindScoped(name string, want Kind) (entry *Entry, isLocal bool, ok bool) {
	for h := t.cur; ; {
		s := t.scopeAt(h)
		if e, found := s.table[name]; found {
			if e.Kind == want {
				return e, h == t.cur, true
			}
			return nil, false, false
		}
		if s.parent == noParent {
			return nil, false, false
		}
		h = s.parent
	}
}

// FindAny is like Find but returns the entry regardless of kind, for
// callers that need to branch on what kind of name was found rather than
// assert one. The parser's statement resolution does not use it; it
// calls FindScoped and Find per kind.
func (t *Table) FindAny(name string) (*Entry, bool) {
	for h := t.cur; ; {
		s := t.scopeAt(h)
		if e, ok := s.table[name]; ok {
			return e, true
		}
		if s.parent == noParent {
			return nil, false
		}
		h = s.parent
	}
}

// IsCurrentScopeFind reports whether name resolves to want within the
// current scope specifically, without walking outward. It backs
// GetVarInfo/GetProcInfo/GetFuncInfo; the parser tells local from
// outer-scope variables by FindScoped's isLocal result instead.
func (t *Table) IsCurrentScopeFind(name string, want Kind) (*Entry, bool) {
	if e, ok := t.current().table[name]; ok && e.Kind == want {
		return e, true
	}
	return nil, false
}

// GetVarInfo, GetProcInfo, GetFuncInfo restrict lookup to the current
// scope only, mirroring the reference's get_var_info/get_proc_info/
// get_func_info.
func (t *Table) GetVarInfo(name string) (*VarEntry, bool) {
	e, ok := t.IsCurrentScopeFind(name, KindVar)
	if !ok {
		return nil, false
	}
	return e.Var, true
}

func (t *Table) GetProcInfo(name string) (*ProcEntry, bool) {
	e, ok := t.IsCurrentScopeFind(name, KindProc)
	if !ok {
		return nil, false
	}
	return e.Proc, true
}

func (t *Table) GetFuncInfo(name string) (*FuncEntry, bool) {
	e, ok := t.IsCurrentScopeFind(name, KindFunc)
	if !ok {
		return nil, false
	}
	return e.Func, true
}

// ScopeName returns the current scope's name, empty for the global scope.
func (t *Table) ScopeName() string { return t.current().name }

// TotalLocalsSize sums the sizes of every non-parameter variable declared
// directly in the current scope — used to emit the frame's SUB ESP, n.
func (t *Table) TotalLocalsSize() int {
	total := 0
	for _, e := range t.current().table {
		if e.Kind == KindVar && !e.Var.IsParam {
			total += e.Var.Size
		}
	}
	return total
}

// TotalParamsSize sums the sizes of every parameter declared directly in
// the current scope — used to emit the callee's RET n.
func (t *Table) TotalParamsSize() int {
	total := 0
	for _, e := range t.current().table {
		if e.Kind == KindVar && e.Var.IsParam {
			total += e.Var.Size
		}
	}
	return total
}

// AtGlobalScope reports whether the cursor is at the root scope.
func (t *Table) AtGlobalScope() bool {
	return t.current().parent == noParent
}
