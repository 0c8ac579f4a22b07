package rewrite

import "github.com/egraphs-good/eggcc-go/internal/ir"

// inserter lowers one DAG-IR arena into an Engine's term language,
// memoizing by NodeID so a node reachable from more than one parent is
// inserted exactly once — the term-insertion side of the same
// identity-sharing invariant internal/bridge's translators preserve on
// the way into the DAG-IR.
type inserter struct {
	engine Engine
	arena  *ir.Arena
	memo   map[ir.NodeID]ClassID
}

// InsertProgram inserts every function in prog into e, in Program.Functions
// order, and returns each function's top-level class keyed by name. Nodes
// shared across functions (there are none today, since internal/bridge
// gives every function body its own subtree, but the memo is keyed by
// NodeID across the whole arena regardless) are still inserted once.
func InsertProgram(e Engine, prog *ir.Program) (map[string]ClassID, error) {
	ins := &inserter{engine: e, arena: prog.Arena, memo: map[ir.NodeID]ClassID{}}
	out := make(map[string]ClassID, len(prog.Functions))
	for _, id := range prog.Functions {
		cid, err := ins.insert(id)
		if err != nil {
			return nil, err
		}
		out[prog.Arena.Get(id).FuncName] = cid
	}
	return out, nil
}

// InsertExpr inserts the single DAG-IR subtree rooted at id and returns its
// class — the entry point used when only one function (rather than a whole
// multi-function program) needs to cross the engine boundary.
func InsertExpr(e Engine, arena *ir.Arena, id ir.NodeID) (ClassID, error) {
	ins := &inserter{engine: e, arena: arena, memo: map[ir.NodeID]ClassID{}}
	return ins.insert(id)
}

func (ins *inserter) insert(id ir.NodeID) (ClassID, error) {
	if cid, ok := ins.memo[id]; ok {
		return cid, nil
	}
	e := ins.arena.Get(id)

	t := Term{Op: e.Kind.String()}
	switch e.Kind {
	case ir.ConstExpr:
		t.ConstVal = e.Const
		t.ConstTy = e.Const.BaseOf()
	case ir.ArgExpr, ir.EmptyExpr:
		// no children, no extra payload
	case ir.SingleExpr:
		if err := ins.addChild(&t, e.Single); err != nil {
			return "", err
		}
	case ir.ConcatExpr:
		if err := ins.addChild(&t, e.ConcatL); err != nil {
			return "", err
		}
		if err := ins.addChild(&t, e.ConcatR); err != nil {
			return "", err
		}
	case ir.GetExpr:
		t.GetIdx = e.GetIdx
		if err := ins.addChild(&t, e.GetSrc); err != nil {
			return "", err
		}
	case ir.UopExpr:
		t.UopOp = e.UopOp
		if err := ins.addChild(&t, e.UopArg); err != nil {
			return "", err
		}
	case ir.BopExpr:
		t.BopOp = e.BopOp
		if err := ins.addChild(&t, e.BopL); err != nil {
			return "", err
		}
		if err := ins.addChild(&t, e.BopR); err != nil {
			return "", err
		}
	case ir.TopExpr:
		t.TopOp = e.TopOp
		for _, c := range []ir.NodeID{e.TopA, e.TopB, e.TopC} {
			if err := ins.addChild(&t, c); err != nil {
				return "", err
			}
		}
	case ir.AllocExpr:
		t.AllocSiteID = e.AllocSiteID
		t.AllocBase = e.AllocBase
		if err := ins.addChild(&t, e.AllocSize); err != nil {
			return "", err
		}
		if err := ins.addChild(&t, e.AllocState); err != nil {
			return "", err
		}
	case ir.IfExpr:
		if err := ins.addChild(&t, e.IfPred); err != nil {
			return "", err
		}
		for _, in := range e.IfInputs {
			if err := ins.addChild(&t, in); err != nil {
				return "", err
			}
		}
		if err := ins.addChild(&t, e.IfThen); err != nil {
			return "", err
		}
		if err := ins.addChild(&t, e.IfElse); err != nil {
			return "", err
		}
	case ir.SwitchExpr:
		t.NumInputs = len(e.SwitchInputs)
		if err := ins.addChild(&t, e.SwitchPred); err != nil {
			return "", err
		}
		for _, in := range e.SwitchInputs {
			if err := ins.addChild(&t, in); err != nil {
				return "", err
			}
		}
		for _, b := range e.SwitchBranches {
			if err := ins.addChild(&t, b); err != nil {
				return "", err
			}
		}
	case ir.DoWhileExpr:
		for _, in := range e.DoWhileInputs {
			if err := ins.addChild(&t, in); err != nil {
				return "", err
			}
		}
		if err := ins.addChild(&t, e.DoWhileBody); err != nil {
			return "", err
		}
	case ir.FunctionExpr:
		t.FuncName = e.FuncName
		t.FuncInTy = e.FuncInTy
		t.FuncOutTy = e.FuncOutTy
		if err := ins.addChild(&t, e.FuncBody); err != nil {
			return "", err
		}
	case ir.CallExpr:
		t.CallName = e.CallName
		for _, a := range e.CallArgs {
			if err := ins.addChild(&t, a); err != nil {
				return "", err
			}
		}
	case ir.SymbolicExpr:
		t.SymbolicName = e.SymbolicName
		t.SymbolicTy = e.Ty
	}

	cid, err := ins.engine.InsertTerm(t)
	if err != nil {
		return "", err
	}
	ins.memo[id] = cid
	return cid, nil
}

func (ins *inserter) addChild(t *Term, id ir.NodeID) error {
	cid, err := ins.insert(id)
	if err != nil {
		return err
	}
	t.Children = append(t.Children, cid)
	return nil
}
