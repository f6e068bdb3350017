package parser

import "github.com/bx-lang/pasc/pkg/diag"

// regPool is the fixed four-register rotation: a
// monotonically rising/falling "next free" index into a fixed name list.
// Binary operators consume the top two active registers and leave the
// result in the lower one.
type regPool struct {
	names [4]string
	next  int
}

func newRegPool() *regPool {
	return &regPool{names: [4]string{"EAX", "EBX", "ECX", "EDX"}}
}

// alloc returns the next free register name, or panics with a
// *diag.Error ("too complicated") if the pool is exhausted.
func (r *regPool) alloc(file string) string {
	if r.next >= len(r.names) {
		panic(&diag.Error{
			Kind:    diag.ResourceError,
			File:    file,
			Message: diag.Render("tooComplicated", nil),
		})
	}
	name := r.names[r.next]
	r.next++
	return name
}

// free releases the most recently allocated register.
func (r *regPool) free() {
	if r.next > 0 {
		r.next--
	}
}

// depth reports how many registers are currently in use.
func (r *regPool) depth() int { return r.next }
