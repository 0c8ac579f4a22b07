package ir

import "fmt"

// Pretty renders a node (and everything beneath it, including nested
// regions) as a debug string. It
// does not attempt to dedupe shared nodes — callers wanting a DAG-faithful
// dump should use a memoized walker (see internal/rewrite for the
// e-graph-facing serialization instead).
func Pretty(a *Arena, id NodeID) string {
	e := a.Get(id)
	switch e.Kind {
	case ConstExpr:
		return e.Const.String()
	case ArgExpr:
		return "arg"
	case EmptyExpr:
		return "()"
	case SingleExpr:
		return fmt.Sprintf("(%s)", Pretty(a, e.Single))
	case ConcatExpr:
		return fmt.Sprintf("(%s ++ %s)", Pretty(a, e.ConcatL), Pretty(a, e.ConcatR))
	case GetExpr:
		return fmt.Sprintf("%s.%d", Pretty(a, e.GetSrc), e.GetIdx)
	case UopExpr:
		return fmt.Sprintf("%s(%s)", e.UopOp, Pretty(a, e.UopArg))
	case BopExpr:
		return fmt.Sprintf("%s(%s, %s)", e.BopOp, Pretty(a, e.BopL), Pretty(a, e.BopR))
	case TopExpr:
		return fmt.Sprintf("%s(%s, %s, %s)", e.TopOp, Pretty(a, e.TopA), Pretty(a, e.TopB), Pretty(a, e.TopC))
	case AllocExpr:
		return fmt.Sprintf("alloc#%d(%s, %s)", e.AllocSiteID, Pretty(a, e.AllocSize), e.AllocBase)
	case IfExpr:
		return fmt.Sprintf("if(%s) {%s} else {%s}", Pretty(a, e.IfPred), Pretty(a, e.IfThen), Pretty(a, e.IfElse))
	case SwitchExpr:
		return fmt.Sprintf("switch(%s) [%d branches]", Pretty(a, e.SwitchPred), len(e.SwitchBranches))
	case DoWhileExpr:
		return fmt.Sprintf("dowhile(%v) {%s}", e.DoWhileInputs, Pretty(a, e.DoWhileBody))
	case FunctionExpr:
		return fmt.Sprintf("fn %s(%s) -> %s {%s}", e.FuncName, e.FuncInTy, e.FuncOutTy, Pretty(a, e.FuncBody))
	case CallExpr:
		return fmt.Sprintf("call %s(%d args)", e.CallName, len(e.CallArgs))
	case SymbolicExpr:
		return fmt.Sprintf("sym<%s>", e.SymbolicName)
	default:
		return "?"
	}
}
