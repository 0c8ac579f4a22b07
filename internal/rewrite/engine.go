package rewrite

import "github.com/egraphs-good/eggcc-go/internal/ir"

// Term is the insertion-side term language: a straightforward encoding of
// one DAG-IR node, whose children are classes already returned by earlier
// InsertTerm calls — structural sharing is the caller's responsibility,
// exactly as it is when building an ir.Arena.
type Term struct {
	Op       string
	Children []ClassID

	ConstVal     ir.Constant
	ConstTy      ir.Base
	BopOp        ir.BopKind
	UopOp        ir.UopKind
	TopOp        ir.TopKind
	GetIdx       int
	FuncName     string
	FuncInTy     ir.Type
	FuncOutTy    ir.Type
	CallName     string
	SymbolicName string
	SymbolicTy   ir.Type
	AllocSiteID  int64
	AllocBase    ir.BaseKind
	NumInputs    int
}

// CostFn assigns a per-operator cost, independent of its children — the
// shape every internal/extract.CostModel exposes as a method value, so
// Serialize can populate ENode.Cost without internal/rewrite importing
// internal/extract.
type CostFn func(op string) float64

// Engine is the boundary to an external equality-saturation engine: insert
// program terms, run a rule set under a schedule, and read back a
// serialized e-graph. Both ruleset and schedule are opaque strings — this
// package never interprets their contents.
type Engine interface {
	// InsertTerm adds t (whose children must already be classes returned
	// by this engine) and returns the class it now belongs to.
	InsertTerm(t Term) (ClassID, error)
	// RunSchedule applies ruleset under schedule. A no-op is a valid
	// implementation — running rules to fixpoint is out of scope here.
	RunSchedule(ruleset, schedule string) error
	// Serialize exports the current e-graph, pricing every e-node with
	// cost, and reports which function symbols are unextractable (match
	// artifacts that must never appear in extracted output).
	Serialize(cost CostFn) (*EGraph, error)
}
