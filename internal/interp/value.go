// Package interp is a reference evaluator over DAG-IR, used only as a
// testing oracle (never on the optimization hot path). Grounded directly
// on the reference implementation's interpreter.rs.
package interp

import (
	"fmt"
	"math"

	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

// Pointer is {start address, allocation size, offset}, exactly the model
// interpreter.rs uses — addr/size are the allocation's own bookkeeping,
// offset is added/subtracted by PtrAdd without ever touching the other two
// fields, so an out-of-bounds offset is detected at dereference time rather
// than at PtrAdd time.
type Pointer struct {
	Addr   int
	Size   int
	Offset int64
}

// ResolvedAddr returns the pointer's absolute memory address, or EVA001 if
// Offset falls outside [0, Size).
func (p Pointer) ResolvedAddr() (int, error) {
	if p.Offset < 0 || p.Offset >= int64(p.Size) {
		return 0, diag.New(diag.EVA001, "pointer out of bounds: offset %d, allocation size %d", p.Offset, p.Size)
	}
	return p.Addr + int(p.Offset), nil
}

func (p Pointer) String() string { return fmt.Sprintf("Pointer{%d, %d, %d}", p.Addr, p.Size, p.Offset) }

// ValueKind tags which field of Value is populated.
type ValueKind int

const (
	ConstVal ValueKind = iota
	PtrVal
	TupleVal
	StateVal
)

// Value is Const(constant) | Ptr(pointer) | Tuple([value...]) | State —
// the interpreter's runtime value, one level more concrete than ir.Constant
// since it also covers pointers, tuples, and the opaque State token.
type Value struct {
	Kind  ValueKind
	Const ir.Constant
	Ptr   Pointer
	Tuple []Value
}

func ConstV(c ir.Constant) Value { return Value{Kind: ConstVal, Const: c} }
func IntV(v int64) Value         { return ConstV(ir.IntC(v)) }
func BoolV(v bool) Value         { return ConstV(ir.BoolC(v)) }
func FloatV(v float64) Value     { return ConstV(ir.FloatC(v)) }
func PtrV(p Pointer) Value       { return Value{Kind: PtrVal, Ptr: p} }
func TupleV(vs ...Value) Value   { return Value{Kind: TupleVal, Tuple: vs} }
func StateV() Value              { return Value{Kind: StateVal} }

// Equal is structural value equality, used by DoWhile's loop-continuation
// check and by round-trip tests.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ConstVal:
		return v.Const.Equal(o.Const)
	case PtrVal:
		return v.Ptr == o.Ptr
	case TupleVal:
		if len(v.Tuple) != len(o.Tuple) {
			return false
		}
		for i := range v.Tuple {
			if !v.Tuple[i].Equal(o.Tuple[i]) {
				return false
			}
		}
		return true
	default: // StateVal
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ConstVal:
		return v.Const.String()
	case PtrVal:
		return v.Ptr.String()
	case TupleVal:
		s := "("
		for i, e := range v.Tuple {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	default:
		return "State"
	}
}

// BrilPrint renders a value the way the print effect writes it to the log.
// Only scalars are representable in Bril; tuples, pointers, and State have
// no Bril-level printed form.
func (v Value) BrilPrint() (string, error) {
	if v.Kind != ConstVal {
		return "", diag.New(diag.EVA002, "value %v has no bril-printable representation", v)
	}
	switch v.Const.Kind {
	case ir.IntConst:
		return fmt.Sprintf("%d", v.Const.Int), nil
	case ir.BoolConst:
		return fmt.Sprintf("%t", v.Const.Bool), nil
	case ir.FloatConst:
		f := float64(v.Const.Float)
		switch {
		case math.IsInf(f, 1):
			return "Infinity", nil
		case math.IsInf(f, -1):
			return "-Infinity", nil
		case math.IsNaN(f):
			return "NaN", nil
		default:
			return fmt.Sprintf("%.17f", f), nil
		}
	}
	return "", diag.New(diag.EVA002, "value %v has no bril-printable representation", v)
}
