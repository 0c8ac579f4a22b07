// Package extract picks one e-node per reachable e-class out of a
// serialized e-graph (internal/rewrite.EGraph), producing an acyclic,
// state-linear, cost-minimal DAG-IR program. Two implementations are
// provided: a greedy region-aware extractor and an exact extractor built
// on a branch-and-bound search over the same integer program an ILP
// solver would otherwise be handed.
package extract

// CostModel assigns a cost to an operator, independent of its operands —
// ported from the reference extractor's CostModel trait.
type CostModel interface {
	// GetOpCost returns op's per-node cost.
	GetOpCost(op string) float64
	// IgnoreChildren reports whether op's children should be excluded
	// from its cost-set accumulation (used for context tags such as
	// InLoop/InIf/InSwitch/NoContext, whose children are never actual
	// data dependencies).
	IgnoreChildren(op string) bool
}

// DefaultCostModel is the reference cost table: structural/list/type
// plumbing is free, arithmetic is cheap, effects and control flow cost
// more, and Call is priced punitively since its real cost depends on the
// callee (a TODO the reference extractor carries too).
type DefaultCostModel struct{}

func (DefaultCostModel) GetOpCost(op string) float64 {
	switch op {
	case "Const":
		return 1
	case "Arg":
		return 0
	case "Empty", "Single", "Concat", "Get":
		return 0
	case "Add", "PtrAdd", "Sub", "And", "Or", "Not":
		return 10
	case "Mul":
		return 30
	case "Div":
		return 50
	case "Eq", "LessThan", "GreaterThan", "LessEq", "GreaterEq":
		return 10
	case "Print", "Write", "Load":
		return 50
	case "Alloc", "Free":
		return 100
	case "Call":
		return 1000
	case "Program", "Function":
		return 0
	case "DoWhile":
		return 100
	case "If", "Switch":
		return 50
	case "Uop", "Bop", "Top":
		return 0
	case "Symbolic":
		return 0
	default:
		return 0
	}
}

func (DefaultCostModel) IgnoreChildren(op string) bool {
	switch op {
	case "InLoop", "NoContext", "InSwitch", "InIf":
		return true
	default:
		return false
	}
}

// Fn returns m.GetOpCost as a rewrite.CostFn method value, for handing
// straight to Engine.Serialize.
func (m DefaultCostModel) Fn() func(op string) float64 { return m.GetOpCost }
