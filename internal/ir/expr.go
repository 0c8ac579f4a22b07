package ir

// NodeID is a stable arena index. Identity for sharing purposes is the
// NodeID, not structural content: two builder calls that should denote one
// computation must reuse the same NodeID, and two NodeIDs with identical
// content but distinct indices denote two separate computations.
type NodeID uint32

// InvalidNode is never a valid arena index; zero-valued fields that don't
// apply to a given variant are left at this value.
const InvalidNode NodeID = 1<<32 - 1

// ExprKind tags which variant of the DAG-IR sum type a node is.
type ExprKind int

const (
	ConstExpr ExprKind = iota
	ArgExpr
	EmptyExpr
	SingleExpr
	ConcatExpr
	GetExpr
	UopExpr
	BopExpr
	TopExpr
	AllocExpr
	IfExpr
	SwitchExpr
	DoWhileExpr
	FunctionExpr
	CallExpr
	SymbolicExpr
)

func (k ExprKind) String() string {
	names := [...]string{"Const", "Arg", "Empty", "Single", "Concat", "Get",
		"Uop", "Bop", "Top", "Alloc", "If", "Switch", "DoWhile", "Function",
		"Call", "Symbolic"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?Expr"
}

// UopKind enumerates the unary operators.
type UopKind int

const ( Not UopKind = iota )

func (k UopKind) String() string { return "not" }

// BopKind enumerates the binary operators: integer/float arithmetic,
// comparisons, boolean connectives, pointer arithmetic (PtrAdd, which does
// not touch State), and the three state-threading effects (Load, Print,
// Free all take/produce State via Bop per the data model). Smax/Smin/Shl/Shr and the float-specific comparison/op set are
// carried over from the reference interpreter's operator set even though
// the distilled data model only calls out arithmetic/comparisons/And/Or in
// summary form.
type BopKind int

const (
	Add BopKind = iota
	Sub
	Mul
	Div
	Smax
	Smin
	Shl
	Shr
	And
	Or
	LessThan
	GreaterThan
	LessEq
	GreaterEq
	Eq
	PtrAdd
	Load
	Print
	Free
	FAdd
	FSub
	FMul
	FDiv
	FEq
	FLessThan
	FGreaterThan
	FLessEq
	FGreaterEq
	Fmax
	Fmin
)

var bopNames = [...]string{"add", "sub", "mul", "div", "smax", "smin", "shl",
	"shr", "and", "or", "lt", "gt", "le", "ge", "eq", "ptradd", "load",
	"print", "free", "fadd", "fsub", "fmul", "fdiv", "feq", "flt", "fgt",
	"fle", "fge", "fmax", "fmin"}

func (k BopKind) String() string {
	if int(k) < len(bopNames) {
		return bopNames[k]
	}
	return "?bop"
}

// IsEffectful reports whether this operator consumes/produces a State
// value as its trailing operand/result: Load, Print, Free (Write lives on
// Top instead, since it's ternary).
func (k BopKind) IsEffectful() bool { return k == Load || k == Print || k == Free }

// TopKind enumerates the ternary operators.
type TopKind int

const (
	Write TopKind = iota
	Select
)

func (k TopKind) String() string {
	if k == Write {
		return "write"
	}
	return "select"
}

// Expr is a single DAG-IR node. It is a tagged union rendered as one struct
// per the arena-of-nodes design in the Design Notes: every node lives in an
// Arena's slice and is referenced only by NodeID, never copied once built.
// Only the fields relevant to Kind are meaningful; the rest are zero.
type Expr struct {
	ID   NodeID
	Kind ExprKind
	Ty   Type       // concrete after type checking; Unknown before
	Ctx  Assumption // NoCtx for nodes with no context requirement

	// ConstExpr
	Const Constant

	// SingleExpr
	Single NodeID

	// ConcatExpr
	ConcatL, ConcatR NodeID

	// GetExpr
	GetSrc NodeID
	GetIdx int

	// UopExpr
	UopOp  UopKind
	UopArg NodeID

	// BopExpr
	BopOp   BopKind
	BopL, BopR NodeID

	// TopExpr
	TopOp      TopKind
	TopA, TopB, TopC NodeID

	// AllocExpr
	AllocSiteID int64
	AllocSize   NodeID
	AllocState  NodeID
	AllocBase   BaseKind

	// IfExpr: pred/inputs live in this region; Then/Else are subregion
	// roots (one expression each, the branch's output tuple).
	IfPred   NodeID
	IfInputs []NodeID
	IfThen   NodeID
	IfElse   NodeID

	// SwitchExpr
	SwitchPred     NodeID
	SwitchInputs   []NodeID
	SwitchBranches []NodeID

	// DoWhileExpr: Body is a subregion root producing Tuple([Bool, ...]).
	DoWhileInputs []NodeID
	DoWhileBody   NodeID

	// FunctionExpr
	FuncName  string
	FuncInTy  Type
	FuncOutTy Type
	FuncBody  NodeID

	// CallExpr
	CallName string
	CallArgs []NodeID

	// SymbolicExpr
	SymbolicName string
}

func (e *Expr) variantName() string { return e.Kind.String() }
