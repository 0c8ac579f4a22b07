package ir

// ChildKind classifies an edge out of a node for traversal purposes.
type ChildKind int

const (
	// DataChild is an ordinary in-scope operand: traversal that must not
	// cross a region boundary follows these.
	DataChild ChildKind = iota
	// SubregionChild points at the root of a nested region (an If/Switch
	// branch, a DoWhile body, a Function body). Traversal within the
	// current region must not follow these.
	SubregionChild
	// AssumptionChild is a context edge: a reference from a node's
	// Assumption back into the enclosing region. It participates in node
	// identity and in structural-equality/hash comparisons but is neither
	// a data edge nor a same-region edge, and the extractor skips it when
	// computing region-reachability closure.
	AssumptionChild
)

// ChildRef names one outgoing edge of a node.
type ChildRef struct {
	ID   NodeID
	Kind ChildKind
}

// Children enumerates every outgoing edge of a node, classified by
// ChildKind. ChildrenSameScope and the structural equality in equal.go
// build on it; the type checker, the interpreter and the bridges walk the
// Expr fields directly.
func Children(a *Arena, id NodeID) []ChildRef {
	e := a.Get(id)
	var out []ChildRef

	switch e.Kind {
	case ConstExpr, ArgExpr, EmptyExpr, SymbolicExpr:
		// no children
	case SingleExpr:
		out = append(out, ChildRef{e.Single, DataChild})
	case ConcatExpr:
		out = append(out, ChildRef{e.ConcatL, DataChild}, ChildRef{e.ConcatR, DataChild})
	case GetExpr:
		out = append(out, ChildRef{e.GetSrc, DataChild})
	case UopExpr:
		out = append(out, ChildRef{e.UopArg, DataChild})
	case BopExpr:
		out = append(out, ChildRef{e.BopL, DataChild}, ChildRef{e.BopR, DataChild})
	case TopExpr:
		out = append(out, ChildRef{e.TopA, DataChild}, ChildRef{e.TopB, DataChild}, ChildRef{e.TopC, DataChild})
	case AllocExpr:
		out = append(out, ChildRef{e.AllocSize, DataChild}, ChildRef{e.AllocState, DataChild})
	case IfExpr:
		out = append(out, ChildRef{e.IfPred, DataChild})
		for _, in := range e.IfInputs {
			out = append(out, ChildRef{in, DataChild})
		}
		out = append(out, ChildRef{e.IfThen, SubregionChild}, ChildRef{e.IfElse, SubregionChild})
	case SwitchExpr:
		out = append(out, ChildRef{e.SwitchPred, DataChild})
		for _, in := range e.SwitchInputs {
			out = append(out, ChildRef{in, DataChild})
		}
		for _, b := range e.SwitchBranches {
			out = append(out, ChildRef{b, SubregionChild})
		}
	case DoWhileExpr:
		for _, in := range e.DoWhileInputs {
			out = append(out, ChildRef{in, DataChild})
		}
		out = append(out, ChildRef{e.DoWhileBody, SubregionChild})
	case FunctionExpr:
		out = append(out, ChildRef{e.FuncBody, SubregionChild})
	case CallExpr:
		for _, arg := range e.CallArgs {
			out = append(out, ChildRef{arg, DataChild})
		}
	}

	if e.Ctx.Kind != NoCtx {
		if e.Ctx.Pred != InvalidNode {
			out = append(out, ChildRef{e.Ctx.Pred, AssumptionChild})
		}
		for _, in := range e.Ctx.Inputs {
			out = append(out, ChildRef{in, AssumptionChild})
		}
		if e.Ctx.Kind == InLoop && e.Ctx.Body != InvalidNode {
			out = append(out, ChildRef{e.Ctx.Body, AssumptionChild})
		}
	}

	return out
}

// ChildrenSameScope returns only the in-scope data children — the
// traversal primitive used by code that must not cross region boundaries
// or follow assumption edges.
func ChildrenSameScope(a *Arena, id NodeID) []NodeID {
	var out []NodeID
	for _, c := range Children(a, id) {
		if c.Kind == DataChild {
			out = append(out, c.ID)
		}
	}
	return out
}
