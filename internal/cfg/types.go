// Package cfg is the shared control-flow-graph model consumed by both the
// restructurer (internal/restructure) and the branch simplifier
// (internal/simplify): basic blocks, conditional/unconditional edges with
// CondVal selectors, and the footer annotations the RVSDG builder consumes
// to recover branch/return values after restructuring synthesizes demux
// predicates.
package cfg

import "github.com/egraphs-good/eggcc-go/internal/ir"

// BlockID indexes Function.Blocks; it is also used as the stable "name" of
// a block across passes (restructuring adds blocks but never renumbers
// existing ones).
type BlockID int

const NoBlock BlockID = -1

// Op names a straight-line instruction's operation using Bril's own
// operation vocabulary, so the front end (internal/bril) can translate
// wire instructions into cfg.Instr with no semantic renaming.
type Op string

const (
	OpConst  Op = "const"
	OpId     Op = "id"
	OpNop    Op = "nop"
	OpAdd    Op = "add"
	OpSub    Op = "sub"
	OpMul    Op = "mul"
	OpDiv    Op = "div"
	OpAnd    Op = "and"
	OpOr     Op = "or"
	OpNot    Op = "not"
	OpLt     Op = "lt"
	OpGt     Op = "gt"
	OpLe     Op = "le"
	OpGe     Op = "ge"
	OpEq     Op = "eq"
	OpSmax   Op = "smax"
	OpSmin   Op = "smin"
	OpShl    Op = "shl"
	OpShr    Op = "shr"
	OpFAdd   Op = "fadd"
	OpFSub   Op = "fsub"
	OpFMul   Op = "fmul"
	OpFDiv   Op = "fdiv"
	OpFEq    Op = "feq"
	OpFLt    Op = "flt"
	OpFGt    Op = "fgt"
	OpFLe    Op = "fle"
	OpFGe    Op = "fge"
	OpFmax   Op = "fmax"
	OpFmin   Op = "fmin"
	OpPtrAdd Op = "ptradd"
	OpLoad   Op = "load"
	OpStore  Op = "store"
	OpAlloc  Op = "alloc"
	OpFree   Op = "free"
	OpPrint  Op = "print"
	OpCall   Op = "call"
	OpSelect Op = "select"
)

// administrativeOps is the set of operations the branch simplifier treats
// as "constant or identity copy" — a block built only of these is an
// administrative node eligible for hoist/sink rewrites.
var administrativeOps = map[Op]bool{OpConst: true, OpId: true}

// Instr is one straight-line instruction inside a block.
type Instr struct {
	Dest     string
	DestType ir.Base
	Op       Op
	Args     []string
	ConstVal ir.Constant
	CallName string
}

// CondVal is a multi-way branch selector: this edge is taken when the
// tested variable equals Val, out of Of possible arms.
type CondVal struct {
	Val int64
	Of  int64
}

// Edge is one outgoing control-flow edge from a block. Cond == nil means an
// unconditional jump; otherwise Var names the block-local variable tested
// and Cond gives the selector value this edge corresponds to.
type Edge struct {
	Dest BlockID
	Var  string
	Cond *CondVal
}

func (e Edge) IsJmp() bool { return e.Cond == nil }

// AnnotationKind tags a footer annotation synthesized by restructuring (or
// present in the original program) that the RVSDG builder consumes to
// recover values logically produced "at the end of" a block.
type AnnotationKind int

const (
	AssignCond AnnotationKind = iota
	AssignRet
)

// Annotation is a footer pseudo-instruction: AssignCond binds Var to a
// constant CondVal (used by synthesized demux predicates); AssignRet marks
// Var as the function's return value at this point.
type Annotation struct {
	Kind AnnotationKind
	Var  string
	Cond CondVal
}

// Block is one CFG basic block.
type Block struct {
	ID      BlockID
	Label   string
	Instrs  []Instr
	Footer  []Annotation
	Out     []Edge
}

// IsAdministrative reports whether this block contains only constant or
// identity-copy instructions — the predicate the branch simplifier uses to
// decide whether a block is eligible for hoist/sink rewrites.
func (b *Block) IsAdministrative() bool {
	for _, in := range b.Instrs {
		if !administrativeOps[in.Op] {
			return false
		}
	}
	return true
}

// Kills reports whether this block assigns (kills) the given variable.
func (b *Block) Kills(v string) bool {
	for _, in := range b.Instrs {
		if in.Dest == v {
			return true
		}
	}
	for _, a := range b.Footer {
		if a.Var == v {
			return true
		}
	}
	return false
}

// ConstAssignment returns the CondVal a block's footer assigns to v, if
// any — used both by restructuring's synthesized demux heads/tails and by
// the branch simplifier's value analysis seeding.
func (b *Block) ConstAssignment(v string) (CondVal, bool) {
	for _, a := range b.Footer {
		if a.Kind == AssignCond && a.Var == v {
			return a.Cond, true
		}
	}
	for _, in := range b.Instrs {
		if in.Dest == v && in.Op == OpConst && in.ConstVal.Kind == ir.BoolConst {
			val := int64(0)
			if in.ConstVal.Bool {
				val = 1
			}
			return CondVal{Val: val, Of: 2}, true
		}
		if in.Dest == v && in.Op == OpConst && in.ConstVal.Kind == ir.IntConst {
			return CondVal{Val: in.ConstVal.Int, Of: 0}, true
		}
	}
	return CondVal{}, false
}

// Param is one function argument.
type Param struct {
	Name string
	Type ir.Base
}

// Function is one CFG function: a flat slice of blocks plus a designated
// entry/exit. Block 0 is not assumed to be the entry; Entry is explicit so
// restructuring can synthesize new head blocks without renumbering.
type Function struct {
	Name    string
	Args    []Param
	RetType *ir.Base // nil for void
	Blocks  []*Block
	Entry   BlockID
	Exit    BlockID
}

func (f *Function) Block(id BlockID) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// AddBlock appends a new block with the next unused BlockID and returns it.
func (f *Function) AddBlock(label string) *Block {
	id := BlockID(len(f.Blocks))
	for f.Block(id) != nil {
		id++
	}
	b := &Block{ID: id, Label: label}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Program is a whole compilation unit: a set of functions.
type Program struct {
	Funcs []*Function
}

func (p *Program) Func(name string) *Function {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
