// Package rewrite defines the boundary between this compiler and an
// external equality-saturation engine: an opaque Engine that accepts
// program terms and a rule set/schedule and hands back a serialized
// e-graph, plus the wire types that serialized e-graph is made of. Running
// an actual rule set to fixpoint is out of scope — this package only has
// to make the interface exercisable end to end.
package rewrite

import "github.com/egraphs-good/eggcc-go/internal/ir"

// ClassID names an e-class; NodeID names one e-node within a class.
// Strings rather than ints, matching the reference rewrite engine's own
// serialized format, which keys classes/nodes by opaque string ids.
type ClassID string
type NodeID string

// EGraph is the serialized e-graph exchanged across the engine boundary.
// ClassOrder records class insertion order alongside the maps: iteration
// over e-classes during extraction must be deterministic, and a bare Go
// map provides no ordering guarantee.
type EGraph struct {
	Classes       map[ClassID]*EClass `json:"classes"`
	Nodes         map[NodeID]*ENode   `json:"nodes"`
	ClassOrder    []ClassID           `json:"class_order"`
	Root          ClassID             `json:"root"`
	Unextractable map[string]bool     `json:"unextractable,omitempty"`
}

// EClass is one e-class: a type tag ("Expr" or one of the engine's own
// internal plumbing sorts) and the e-nodes it contains.
type EClass struct {
	ID    ClassID  `json:"id"`
	Nodes []NodeID `json:"nodes"`
	Type  string   `json:"type"`
}

// ENode is one e-node. Op names a DAG-IR ExprKind ("Const", "Bop", "If",
// ...); Children are the e-classes of its operands, in the field order
// ir.Expr itself uses for that Kind. The op-specific fields below carry
// exactly the payload ir.Expr stores inline for that Kind (constant value,
// operator, projection index, ...).
//
// Two simplifications relative to the reference wire format, both
// recorded in DESIGN.md: Ty and Ctx are carried as plain value fields
// (ConstTy, FuncInTy, ...) rather than as separate e-classes, since this
// project's own ir.Type/ir.Assumption are already inline struct fields
// rather than arena-shared nodes; consequently there is no "assumption
// edge" to flag on Children; and an e-node's Cost field is computed at
// Serialize time from a supplied CostFn rather than carried from
// insertion, so a caller never has to keep it in sync by hand.
type ENode struct {
	ID       NodeID    `json:"id"`
	Op       string    `json:"op"`
	Children []ClassID `json:"children"`
	Cost     float64   `json:"cost"`

	ConstVal     ir.Constant `json:"const_val,omitempty"`
	ConstTy      ir.Base     `json:"const_ty,omitempty"`
	BopOp        ir.BopKind  `json:"bop_op,omitempty"`
	UopOp        ir.UopKind  `json:"uop_op,omitempty"`
	TopOp        ir.TopKind  `json:"top_op,omitempty"`
	GetIdx       int         `json:"get_idx,omitempty"`
	FuncName     string      `json:"func_name,omitempty"`
	FuncInTy     ir.Type     `json:"func_in_ty,omitempty"`
	FuncOutTy    ir.Type     `json:"func_out_ty,omitempty"`
	CallName     string      `json:"call_name,omitempty"`
	SymbolicName string      `json:"symbolic_name,omitempty"`
	SymbolicTy   ir.Type     `json:"symbolic_ty,omitempty"`
	AllocSiteID  int64       `json:"alloc_site_id,omitempty"`
	AllocBase    ir.BaseKind `json:"alloc_base,omitempty"`
	NumInputs    int         `json:"num_inputs,omitempty"`
}

// ChildKind classifies one child edge of an e-node. IsSubregion marks a
// child that begins a fresh region (an If/Switch branch, a DoWhile body, a
// Function body) — cost accounting and region-reachability both treat a
// subregion edge as a boundary rather than an ordinary data edge, for the
// region-aware cost model's sake.
type ChildKind struct {
	Class       ClassID
	IsSubregion bool
}

// ChildKinds classifies n's children, mirroring the reference extractor's
// enode_children: pattern-matched on Op, since the subregion/data split is
// positional (e.g. If's last two children are always its branches).
func (n *ENode) ChildKinds() []ChildKind {
	cs := n.Children
	switch n.Op {
	case "DoWhile", "Function":
		if len(cs) == 0 {
			return nil
		}
		out := make([]ChildKind, 0, len(cs))
		for _, c := range cs[:len(cs)-1] {
			out = append(out, ChildKind{Class: c})
		}
		out = append(out, ChildKind{Class: cs[len(cs)-1], IsSubregion: true})
		return out
	case "If":
		if len(cs) < 3 {
			return nil
		}
		out := []ChildKind{{Class: cs[0]}}
		for _, c := range cs[1 : len(cs)-2] {
			out = append(out, ChildKind{Class: c})
		}
		out = append(out, ChildKind{Class: cs[len(cs)-2], IsSubregion: true})
		out = append(out, ChildKind{Class: cs[len(cs)-1], IsSubregion: true})
		return out
	case "Switch":
		if len(cs) < 1 {
			return nil
		}
		out := []ChildKind{{Class: cs[0]}}
		for i, c := range cs[1:] {
			out = append(out, ChildKind{Class: c, IsSubregion: i >= n.NumInputs})
		}
		return out
	default:
		out := make([]ChildKind, len(cs))
		for i, c := range cs {
			out[i] = ChildKind{Class: c}
		}
		return out
	}
}
