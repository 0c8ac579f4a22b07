package extract

import (
	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rewrite"
)

// rebuilder converts one region's winning CostSet tree back into a fresh
// ir.Arena region, mirroring internal/bridge's upTranslator: each region
// gets its own rebuilder (own cache, own Ctx), and crossing into a
// subregion child spawns a fresh rebuilder with a freshly synthesized
// ir.Assumption rather than reading one off the wire, since ENode never
// carries Ctx (see DESIGN.md's rewrite-package note on why Ty/Ctx are
// plain value fields rather than assumption edges).
type rebuilder struct {
	arena *ir.Arena
	costs map[rewrite.ClassID]map[rewrite.ClassID]*CostSet
	info  *graphInfo
	root  rewrite.ClassID
	ctx   ir.Assumption
	cache map[rewrite.ClassID]ir.NodeID
}

func newRebuilder(arena *ir.Arena, costs map[rewrite.ClassID]map[rewrite.ClassID]*CostSet, info *graphInfo, root rewrite.ClassID, ctx ir.Assumption) *rebuilder {
	return &rebuilder{arena: arena, costs: costs, info: info, root: root, ctx: ctx, cache: map[rewrite.ClassID]ir.NodeID{}}
}

// Rebuild converts the CostSet tree rooted at g.Root back into a fresh
// ir.Program holding that one function. InMemoryEngine never synthesizes a
// multi-function wrapping term (see its doc comment), so a whole program
// with several functions is extracted one function at a time: point
// EGraph.Root at each function's class in turn (Engine.Serialize already
// does this for the most-recently-inserted term) and call Rebuild once per
// function, merging the resulting Programs' Functions/Arena at the call
// site. A real equality-saturation engine's wrapping "Program" term, had
// this package needed to consume one, would instead let a single Rebuild
// call walk every function in one pass.
func Rebuild(g *rewrite.EGraph, costs map[rewrite.ClassID]map[rewrite.ClassID]*CostSet, info *graphInfo) (*ir.Program, error) {
	arena := ir.NewArena()
	r := newRebuilder(arena, costs, info, g.Root, ir.Assumption{Kind: ir.NoCtx})
	id, err := r.build(g.Root)
	if err != nil {
		return nil, err
	}
	if arena.Get(id).Kind != ir.FunctionExpr {
		return nil, diag.New(diag.EXT001, "extraction root did not resolve to a Function node")
	}
	return &ir.Program{Arena: arena, Functions: []ir.NodeID{id}}, nil
}

func (r *rebuilder) build(class rewrite.ClassID) (ir.NodeID, error) {
	if cached, ok := r.cache[class]; ok {
		return cached, nil
	}
	regionCosts := r.costs[r.root]
	cs := regionCosts[class]
	if cs == nil {
		return ir.InvalidNode, diag.New(diag.EXT001, "no chosen e-node for class %q in region %q", class, r.root)
	}
	node := r.info.g.Nodes[cs.Node]
	if node == nil {
		return ir.InvalidNode, diag.New(diag.EXT001, "chosen e-node %q missing from e-graph", cs.Node)
	}

	kinds := node.ChildKinds()
	plain := make([]ir.NodeID, 0, len(kinds))
	for _, ck := range kinds {
		if ck.IsSubregion {
			continue
		}
		id, err := r.build(ck.Class)
		if err != nil {
			return ir.InvalidNode, err
		}
		plain = append(plain, id)
	}

	id, err := r.buildNode(node, kinds, plain)
	if err != nil {
		return ir.InvalidNode, err
	}
	r.cache[class] = id
	return id, nil
}

// buildNode dispatches on the chosen e-node's Op, constructing the matching
// ir.Arena node. plain holds the already-rebuilt non-subregion children, in
// Children order (skipping subregion slots); subregion children are rebuilt
// here, on demand, each via a fresh rebuilder carrying a freshly synthesized
// Assumption.
func (r *rebuilder) buildNode(node *rewrite.ENode, kinds []rewrite.ChildKind, plain []ir.NodeID) (ir.NodeID, error) {
	switch node.Op {
	case "Const":
		return r.arena.ConstNode(node.ConstVal, wrapBase(node.ConstTy), r.ctx), nil
	case "Arg":
		return r.arena.Arg(ir.Unknown(), r.ctx), nil
	case "Empty":
		return r.arena.Empty(ir.Unknown(), r.ctx), nil
	case "Single":
		return r.arena.Single(plain[0]), nil
	case "Concat":
		return r.arena.Concat(plain[0], plain[1]), nil
	case "Get":
		return r.arena.Get_(plain[0], node.GetIdx), nil
	case "Uop":
		return r.arena.Uop(node.UopOp, plain[0]), nil
	case "Bop":
		return r.arena.Bop(node.BopOp, plain[0], plain[1]), nil
	case "Top":
		return r.arena.Top(node.TopOp, plain[0], plain[1], plain[2]), nil
	case "Alloc":
		return r.arena.Alloc(node.AllocSiteID, plain[0], plain[1], node.AllocBase), nil
	case "Symbolic":
		return r.arena.Symbolic(node.SymbolicName, node.SymbolicTy), nil
	case "Call":
		return r.arena.Call(node.CallName, plain), nil
	case "If":
		return r.buildIf(node, kinds, plain)
	case "Switch":
		return r.buildSwitch(node, kinds, plain)
	case "DoWhile":
		return r.buildDoWhile(node, plain)
	case "Function":
		return r.buildFunction(node, kinds)
	default:
		return ir.InvalidNode, diag.New(diag.EXT001, "extractor has no reconstruction rule for op %q", node.Op)
	}
}

func (r *rebuilder) buildIf(node *rewrite.ENode, kinds []rewrite.ChildKind, plain []ir.NodeID) (ir.NodeID, error) {
	pred := plain[0]
	inputs := plain[1:]
	thenClass, elseClass := kinds[len(kinds)-2].Class, kinds[len(kinds)-1].Class

	thenCtx := ir.Assumption{Kind: ir.InIf, Branch: true, Pred: pred, Inputs: inputs, Body: ir.InvalidNode}
	elseCtx := ir.Assumption{Kind: ir.InIf, Branch: false, Pred: pred, Inputs: inputs, Body: ir.InvalidNode}
	thenID, err := newRebuilder(r.arena, r.costs, r.info, thenClass, thenCtx).build(thenClass)
	if err != nil {
		return ir.InvalidNode, err
	}
	elseID, err := newRebuilder(r.arena, r.costs, r.info, elseClass, elseCtx).build(elseClass)
	if err != nil {
		return ir.InvalidNode, err
	}
	return r.arena.If(pred, inputs, thenID, elseID), nil
}

func (r *rebuilder) buildSwitch(node *rewrite.ENode, kinds []rewrite.ChildKind, plain []ir.NodeID) (ir.NodeID, error) {
	pred := plain[0]
	inputs := plain[1:]
	branchClasses := make([]rewrite.ClassID, 0, len(kinds))
	for _, ck := range kinds {
		if ck.IsSubregion {
			branchClasses = append(branchClasses, ck.Class)
		}
	}
	branches := make([]ir.NodeID, len(branchClasses))
	for i, bc := range branchClasses {
		ctx := ir.Assumption{Kind: ir.InSwitch, SwitchBranch: int64(i), Pred: pred, Inputs: inputs, Body: ir.InvalidNode}
		id, err := newRebuilder(r.arena, r.costs, r.info, bc, ctx).build(bc)
		if err != nil {
			return ir.InvalidNode, err
		}
		branches[i] = id
	}
	return r.arena.Switch(pred, inputs, branches), nil
}

func (r *rebuilder) buildDoWhile(node *rewrite.ENode, plain []ir.NodeID) (ir.NodeID, error) {
	inputs := plain
	bodyClass := node.Children[len(node.Children)-1]
	// The loop body's own Assumption.Body is meant to reference the loop's
	// pred-and-body expression itself, which does not exist yet while the
	// body is still being built — left as InvalidNode, matching
	// internal/bridge's down-translator (see its DoWhile case): this only
	// weakens the loop context's identity for the (out-of-scope) rewrite
	// engine, never the extracted value.
	ctx := ir.Assumption{Kind: ir.InLoop, Inputs: inputs, Pred: ir.InvalidNode, Body: ir.InvalidNode}
	bodyID, err := newRebuilder(r.arena, r.costs, r.info, bodyClass, ctx).build(bodyClass)
	if err != nil {
		return ir.InvalidNode, err
	}
	return r.arena.DoWhile(inputs, bodyID), nil
}

func (r *rebuilder) buildFunction(node *rewrite.ENode, kinds []rewrite.ChildKind) (ir.NodeID, error) {
	if len(kinds) == 0 {
		return ir.InvalidNode, diag.New(diag.EXT001, "function %q has no body", node.FuncName)
	}
	bodyClass := kinds[len(kinds)-1].Class
	ctx := ir.Assumption{Kind: ir.InFunc, FuncName: node.FuncName, Pred: ir.InvalidNode, Body: ir.InvalidNode}
	bodyID, err := newRebuilder(r.arena, r.costs, r.info, bodyClass, ctx).build(bodyClass)
	if err != nil {
		return ir.InvalidNode, err
	}
	return r.arena.Function(node.FuncName, node.FuncInTy, node.FuncOutTy, bodyID), nil
}

// wrapBase promotes a Base into the Type it denotes, the inverse of the
// BaseT/Type split ir.Expr's Ty field relies on elsewhere.
func wrapBase(b ir.Base) ir.Type { return ir.Type{Kind: ir.BaseT, Base: b} }
