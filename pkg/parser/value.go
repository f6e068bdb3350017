package parser

import (
	"fmt"

	"github.com/bx-lang/pasc/pkg/symtab"
)

// value is what every expression-grammar function returns: a type plus
// either a register holding the live result or a still-unrealized
// literal. A value with Reg == "" and Literal != nil is "lazy" — it has
// not yet been realized into a register, which is how pure-literal
// subexpressions stay fold-able without ever emitting a MOV that constant
// folding would otherwise have to discard. A value with Reg != "" is
// materialized: its current contents live in that register.
type value struct {
	Type    symtab.VarType
	Literal interface{} // nil, int32, float64, or bool
	Reg     string
}

// literalOperand renders v's literal as an assembly-listing immediate.
func literalOperand(v value) string {
	switch lv := v.Literal.(type) {
	case int32:
		return fmt.Sprintf("%d", lv)
	case float64:
		return fmt.Sprintf("%g", lv)
	case bool:
		if lv {
			return "1"
		}
		return "0"
	default:
		return "0"
	}
}

