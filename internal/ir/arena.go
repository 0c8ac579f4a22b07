package ir

// Arena owns every Expr node ever built for a program. Nodes are appended,
// never mutated after construction (functional DAG) and never removed —
// reachability, not the arena, determines what is "live" for a given pass.
// Constructors do not hash-cons: producing structural sharing is the
// client's responsibility.
type Arena struct {
	nodes []Expr
}

func NewArena() *Arena { return &Arena{} }

func (a *Arena) Get(id NodeID) *Expr { return &a.nodes[id] }

func (a *Arena) Len() int { return len(a.nodes) }

func (a *Arena) alloc(e Expr) NodeID {
	id := NodeID(len(a.nodes))
	e.ID = id
	a.nodes = append(a.nodes, e)
	return id
}

// --- constructors for every variant ---

func (a *Arena) ConstNode(c Constant, ty Type, ctx Assumption) NodeID {
	return a.alloc(Expr{Kind: ConstExpr, Const: c, Ty: ty, Ctx: ctx})
}

func (a *Arena) Arg(ty Type, ctx Assumption) NodeID {
	return a.alloc(Expr{Kind: ArgExpr, Ty: ty, Ctx: ctx})
}

func (a *Arena) Empty(ty Type, ctx Assumption) NodeID {
	return a.alloc(Expr{Kind: EmptyExpr, Ty: ty, Ctx: ctx})
}

func (a *Arena) Single(e NodeID) NodeID {
	return a.alloc(Expr{Kind: SingleExpr, Single: e})
}

func (a *Arena) Concat(l, r NodeID) NodeID {
	return a.alloc(Expr{Kind: ConcatExpr, ConcatL: l, ConcatR: r})
}

func (a *Arena) Get_(src NodeID, idx int) NodeID {
	return a.alloc(Expr{Kind: GetExpr, GetSrc: src, GetIdx: idx})
}

func (a *Arena) Uop(op UopKind, arg NodeID) NodeID {
	return a.alloc(Expr{Kind: UopExpr, UopOp: op, UopArg: arg})
}

func (a *Arena) Bop(op BopKind, l, r NodeID) NodeID {
	return a.alloc(Expr{Kind: BopExpr, BopOp: op, BopL: l, BopR: r})
}

func (a *Arena) Top(op TopKind, x, y, z NodeID) NodeID {
	return a.alloc(Expr{Kind: TopExpr, TopOp: op, TopA: x, TopB: y, TopC: z})
}

func (a *Arena) Alloc(siteID int64, size, state NodeID, base BaseKind) NodeID {
	return a.alloc(Expr{Kind: AllocExpr, AllocSiteID: siteID, AllocSize: size, AllocState: state, AllocBase: base})
}

func (a *Arena) If(pred NodeID, inputs []NodeID, then, els NodeID) NodeID {
	return a.alloc(Expr{Kind: IfExpr, IfPred: pred, IfInputs: inputs, IfThen: then, IfElse: els})
}

func (a *Arena) Switch(pred NodeID, inputs []NodeID, branches []NodeID) NodeID {
	return a.alloc(Expr{Kind: SwitchExpr, SwitchPred: pred, SwitchInputs: inputs, SwitchBranches: branches})
}

func (a *Arena) DoWhile(inputs []NodeID, body NodeID) NodeID {
	return a.alloc(Expr{Kind: DoWhileExpr, DoWhileInputs: inputs, DoWhileBody: body})
}

func (a *Arena) Function(name string, inTy, outTy Type, body NodeID) NodeID {
	return a.alloc(Expr{Kind: FunctionExpr, FuncName: name, FuncInTy: inTy, FuncOutTy: outTy, FuncBody: body})
}

func (a *Arena) Call(name string, args []NodeID) NodeID {
	return a.alloc(Expr{Kind: CallExpr, CallName: name, CallArgs: args})
}

func (a *Arena) Symbolic(name string, ty Type) NodeID {
	return a.alloc(Expr{Kind: SymbolicExpr, SymbolicName: name, Ty: ty})
}

// --- sugar over the above, mirroring the reference implementation's
// convenience constructors (int, add, tif, dowhile, ...) ---

func (a *Arena) IntLit(v int64, ctx Assumption) NodeID {
	return a.ConstNode(IntC(v), Unknown(), ctx)
}

func (a *Arena) BoolLit(v bool, ctx Assumption) NodeID {
	return a.ConstNode(BoolC(v), Unknown(), ctx)
}

func (a *Arena) FloatLit(v float64, ctx Assumption) NodeID {
	return a.ConstNode(FloatC(v), Unknown(), ctx)
}

func (a *Arena) AddN(l, r NodeID) NodeID { return a.Bop(Add, l, r) }
func (a *Arena) SubN(l, r NodeID) NodeID { return a.Bop(Sub, l, r) }
func (a *Arena) MulN(l, r NodeID) NodeID { return a.Bop(Mul, l, r) }
func (a *Arena) NotN(e NodeID) NodeID    { return a.Uop(Not, e) }

// Tif builds an If whose branches are each a single sub-expression wrapped
// by the caller into a region-root Expr (callers build `then`/`els` inside
// a freshly-contextualized sub-builder and pass the resulting root here).
func (a *Arena) Tif(pred NodeID, inputs []NodeID, then, els NodeID) NodeID {
	return a.If(pred, inputs, then, els)
}

func (a *Arena) DoWhileN(inputs []NodeID, body NodeID) NodeID {
	return a.DoWhile(inputs, body)
}
