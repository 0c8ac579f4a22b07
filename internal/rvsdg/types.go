// Package rvsdg builds a Regionalized Value-State Dependence Graph from a
// restructured CFG by symbolic execution. Grounded on the reference
// implementation's from_cfg.rs.
package rvsdg

import (
	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

// NodeID indexes a Region's Nodes slice; it is local to that region, not
// global across the whole RVSDG (mirroring the region-nested structure).
type NodeID int

// OperandKind distinguishes the three ways a value can be referenced
// within a region: the region's own argument tuple, the whole (single)
// result of a node, or one projected field of a multi-output node.
type OperandKind int

const (
	ArgOperand OperandKind = iota
	IdOperand
	ProjectOperand
)

// Operand is a reference to a value visible in the current region.
type Operand struct {
	Kind      OperandKind
	ArgIndex  int
	Node      NodeID
	ProjIndex int
}

func Arg(i int) Operand          { return Operand{Kind: ArgOperand, ArgIndex: i} }
func Id(n NodeID) Operand        { return Operand{Kind: IdOperand, Node: n} }
func Project(i int, n NodeID) Operand { return Operand{Kind: ProjectOperand, Node: n, ProjIndex: i} }

// BodyKind tags which shape of RVSDG node a Body is.
type BodyKind int

const (
	BasicOpBody BodyKind = iota
	GammaBody
	ThetaBody
)

// Body is one RVSDG node. BasicOp nodes wrap a single CFG instruction;
// Gamma wraps an n-way branch region set (n==2 for a boolean predicate);
// Theta wraps a tail-controlled loop region whose first internal output is
// the continuation predicate.
type Body struct {
	ID NodeID
	Kind BodyKind

	// BasicOpBody
	Op         cfg.Op
	Args       []Operand
	ConstVal   ir.Constant
	ConstTy    ir.Base
	CallName   string
	NumOutputs int

	// GammaBody
	Pred     Operand
	PredTy   ir.Base // the predicate's source type: Bool means emit DAG-IR If, else Switch
	Inputs   []Operand // shared by Gamma and Theta
	Branches []*Region // GammaBody only

	// ThetaBody
	LoopBody *Region // first output is the continuation predicate
}

// Region is one nested sub-graph: its own node list plus the operands (in
// terms of its own Arg(i)/Id/Project namespace) that constitute its output
// tuple.
type Region struct {
	Nodes   []*Body
	Outputs []Operand
}

func (r *Region) add(b *Body) NodeID {
	id := NodeID(len(r.Nodes))
	b.ID = id
	r.Nodes = append(r.Nodes, b)
	return id
}

// Add appends a node to the region and returns its id. Exported for
// internal/bridge's up-bridge, which builds fresh regions node-by-node from
// a DAG-IR expression tree; the builder package itself uses the unexported
// add.
func (r *Region) Add(b *Body) NodeID { return r.add(b) }

// Function is one RVSDG function: a flat argument list (the source
// parameters plus a reserved trailing State argument) and a body region
// whose outputs are the return value (if any) followed by the final State.
type Function struct {
	Name     string
	ArgTypes []ir.Base
	RetType  *ir.Base // nil for void; the source return base type (the last ArgTypes/Outputs entry is always the reserved State slot, separate from this)
	Body     *Region
}

// Program is a whole RVSDG compilation unit.
type Program struct {
	Functions []*Function
}

func (p *Program) Func(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
