// Package ir implements the DAG-IR data model: expression nodes, the base
// and tuple type system, and context (assumption) tagging. Nodes live in an
// arena and are identified by a stable NodeID; sharing is by identity, never
// by structural equality, per the arena-index design recommended for the
// cyclic-free-by-construction DAG.
package ir

import (
	"fmt"
	"math"
)

// BaseKind is one of the five base types. Pointer carries its pointee kind
// in a separate field rather than nesting BaseKind, since pointers may only
// point at non-State base types (checked by the type checker, not here).
type BaseKind int

const (
	Int BaseKind = iota
	Bool
	Float
	State
	Pointer
)

func (b BaseKind) String() string {
	switch b {
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Float:
		return "float"
	case State:
		return "state"
	case Pointer:
		return "ptr"
	default:
		return "?base"
	}
}

// Base is a concrete base type: a scalar, or a pointer to a scalar.
type Base struct {
	Kind      BaseKind
	PointeeOf BaseKind // meaningful only when Kind == Pointer
}

func (b Base) String() string {
	if b.Kind == Pointer {
		return fmt.Sprintf("ptr<%s>", b.PointeeOf)
	}
	return b.Kind.String()
}

// ContainsState reports whether this base type is itself State. Pointers
// may not point at State, so there is no recursive case.
func (b Base) ContainsState() bool { return b.Kind == State }

// TypeKind distinguishes the four shapes a Type can take.
type TypeKind int

const (
	BaseT TypeKind = iota
	TupleT
	UnknownT
	SymbolicT
)

// Type is Base(b) | Tuple([b...]) | Unknown | Symbolic(name). Tuple only
// ever holds base types — tuples of tuples are not representable, matching
// the flattening the RVSDG bridges rely on.
type Type struct {
	Kind    TypeKind
	Base    Base
	Tuple   []Base
	SymName string
}

func BaseType(k BaseKind) Type       { return Type{Kind: BaseT, Base: Base{Kind: k}} }
func PointerType(elem BaseKind) Type { return Type{Kind: BaseT, Base: Base{Kind: Pointer, PointeeOf: elem}} }
func TupleType(elems ...Base) Type   { return Type{Kind: TupleT, Tuple: elems} }
func Unknown() Type                  { return Type{Kind: UnknownT} }
func Symbolic(name string) Type      { return Type{Kind: SymbolicT, SymName: name} }

var (
	IntT   = BaseType(Int)
	BoolT  = BaseType(Bool)
	FloatT = BaseType(Float)
	StateT = BaseType(State)
)

// ContainsState is the disjunction over a type's components.
func (t Type) ContainsState() bool {
	switch t.Kind {
	case BaseT:
		return t.Base.ContainsState()
	case TupleT:
		for _, b := range t.Tuple {
			if b.ContainsState() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Equal is structural type equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case BaseT:
		return t.Base == o.Base
	case TupleT:
		if len(t.Tuple) != len(o.Tuple) {
			return false
		}
		for i := range t.Tuple {
			if t.Tuple[i] != o.Tuple[i] {
				return false
			}
		}
		return true
	case SymbolicT:
		return t.SymName == o.SymName
	default: // UnknownT
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case BaseT:
		return t.Base.String()
	case TupleT:
		s := "("
		for i, b := range t.Tuple {
			if i > 0 {
				s += ", "
			}
			s += b.String()
		}
		return s + ")"
	case SymbolicT:
		return "symbolic<" + t.SymName + ">"
	default:
		return "unknown"
	}
}

// OrderedFloat wraps float64 so Float constants remain comparable/hashable
// (used as map keys in cost-set and interpreter caches), mirroring the
// reference implementation's use of an ordered-float wrapper so NaN never
// breaks total ordering assumptions; NaN compares equal only to itself here.
type OrderedFloat float64

func (f OrderedFloat) Less(o OrderedFloat) bool {
	if math.IsNaN(float64(f)) {
		return false
	}
	if math.IsNaN(float64(o)) {
		return true
	}
	return f < o
}

// ConstKind tags which field of Constant is populated.
type ConstKind int

const (
	IntConst ConstKind = iota
	BoolConst
	FloatConst
)

// Constant is Int(i64) | Bool(bool) | Float(ordered-f64).
type Constant struct {
	Kind  ConstKind
	Int   int64
	Bool  bool
	Float OrderedFloat
}

func IntC(v int64) Constant        { return Constant{Kind: IntConst, Int: v} }
func BoolC(v bool) Constant        { return Constant{Kind: BoolConst, Bool: v} }
func FloatC(v float64) Constant    { return Constant{Kind: FloatConst, Float: OrderedFloat(v)} }

func (c Constant) Equal(o Constant) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case IntConst:
		return c.Int == o.Int
	case BoolConst:
		return c.Bool == o.Bool
	case FloatConst:
		return c.Float == o.Float
	}
	return false
}

func (c Constant) String() string {
	switch c.Kind {
	case IntConst:
		return fmt.Sprintf("%d", c.Int)
	case BoolConst:
		return fmt.Sprintf("%t", c.Bool)
	case FloatConst:
		return fmt.Sprintf("%g", float64(c.Float))
	}
	return "?const"
}

// BaseOf returns the natural base type of a constant.
func (c Constant) BaseOf() Base {
	switch c.Kind {
	case IntConst:
		return Base{Kind: Int}
	case BoolConst:
		return Base{Kind: Bool}
	case FloatConst:
		return Base{Kind: Float}
	}
	return Base{}
}
