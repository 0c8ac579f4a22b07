package rvsdg

import (
	"sort"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

const stateVar = "__state"

type funcSig struct {
	hasRet bool
}

// builder holds the symbolic-execution state for one region under
// construction: the region itself, the live "store" mapping source
// variable names to the Operand currently bound to them, and a parallel
// type map used to synthesize correctly-typed placeholder constants for
// variables live on a branch arm that never assigns them.
type builder struct {
	cfgFunc  *cfg.Function
	dom      *cfg.Dominators
	joins    map[cfg.BlockID]cfg.BlockID
	funcSigs map[string]funcSig

	region *Region
	store  map[string]Operand
	types  map[string]ir.Base
	retVar string
}

// BuildProgram lowers every restructured CFG function into an RVSDG
// function by symbolic execution.
func BuildProgram(prog *cfg.Program) (*Program, error) {
	sigs := map[string]funcSig{}
	for _, f := range prog.Funcs {
		sigs[f.Name] = funcSig{hasRet: f.RetType != nil}
	}
	out := &Program{}
	for _, f := range prog.Funcs {
		rf, err := buildFunction(f, sigs)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, rf)
	}
	return out, nil
}

func buildFunction(f *cfg.Function, sigs map[string]funcSig) (*Function, error) {
	dom := cfg.ComputeDominators(f, f.Entry)
	joins := computeJoinPoints(f, dom)

	region := &Region{}
	store := map[string]Operand{}
	types := map[string]ir.Base{}
	for i, p := range f.Args {
		store[p.Name] = Arg(i)
		types[p.Name] = p.Type
	}
	stateIdx := len(f.Args)
	store[stateVar] = Arg(stateIdx)
	types[stateVar] = ir.Base{Kind: ir.State}

	b := &builder{cfgFunc: f, dom: dom, joins: joins, funcSigs: sigs, region: region, store: store, types: types}

	if err := b.drive(f.Entry, cfg.NoBlock); err != nil {
		return nil, err
	}

	var outputs []Operand
	argTypes := make([]ir.Base, 0, len(f.Args)+1)
	for _, p := range f.Args {
		argTypes = append(argTypes, p.Type)
	}
	argTypes = append(argTypes, ir.Base{Kind: ir.State})

	if f.RetType != nil {
		if b.retVar == "" {
			return nil, diag.New(diag.RVB001, "function %q declares a return type but no AssignRet was reached", f.Name)
		}
		op, ok := b.store[b.retVar]
		if !ok {
			return nil, diag.New(diag.RVB001, "undefined return variable %q in function %q", b.retVar, f.Name)
		}
		outputs = append(outputs, op)
	}
	outputs = append(outputs, b.store[stateVar])
	region.Outputs = outputs

	return &Function{Name: f.Name, ArgTypes: argTypes, RetType: f.RetType, Body: region}, nil
}

// drive symbolically executes blocks starting at cur until it reaches stop
// (or a block with no successors), handling loop heads and branch heads as
// it goes.
func (b *builder) drive(cur, stop cfg.BlockID) error {
	for cur != stop && cur != cfg.NoBlock {
		if b.isLoopHead(cur) {
			next, err := b.tryLoop(cur)
			if err != nil {
				return err
			}
			cur = next
			continue
		}

		if err := b.translateStraightLine(cur); err != nil {
			return err
		}

		succs := cfg.Successors(b.cfgFunc, cur)
		switch len(succs) {
		case 0:
			return nil
		case 1:
			cur = succs[0]
		default:
			next, err := b.tryBranch(cur, succs)
			if err != nil {
				return err
			}
			cur = next
		}
	}
	return nil
}

// driveLoopBody is like drive but for the body of the loop headed at head
// itself: it must not re-detect head as a (nested) loop head on its first
// step, since that structural back-edge property belongs to the loop this
// call is already building.
func (b *builder) driveLoopBody(head, tail cfg.BlockID) error {
	cur := head
	first := true
	for {
		if !first {
			if cur == tail {
				return nil
			}
			if b.isLoopHead(cur) {
				next, err := b.tryLoop(cur)
				if err != nil {
					return err
				}
				cur = next
				continue
			}
		}
		first = false

		if err := b.translateStraightLine(cur); err != nil {
			return err
		}
		if cur == tail {
			return nil
		}

		succs := cfg.Successors(b.cfgFunc, cur)
		switch len(succs) {
		case 0:
			return nil
		case 1:
			cur = succs[0]
		default:
			next, err := b.tryBranch(cur, succs)
			if err != nil {
				return err
			}
			cur = next
		}
	}
}

// isLoopHead reports whether cur has a back edge into it — i.e. some
// predecessor it dominates — which after restructuring also implies cur is
// the unique entry of a tail-controlled loop.
func (b *builder) isLoopHead(cur cfg.BlockID) bool {
	for _, p := range cfg.Predecessors(b.cfgFunc, cur) {
		if b.dom.Dominates(cur, p) {
			return true
		}
	}
	return false
}

// loopTail finds the predecessor whose edge into head is the back edge.
func (b *builder) loopTail(head cfg.BlockID) cfg.BlockID {
	for _, p := range cfg.Predecessors(b.cfgFunc, head) {
		if b.dom.Dominates(head, p) {
			return p
		}
	}
	return cfg.NoBlock
}

func sortedVars(m map[string]Operand) []string {
	vars := make([]string, 0, len(m))
	for v := range m {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// tryLoop builds a Theta node for the loop headed at head and returns the
// block execution should resume from after the loop exits.
func (b *builder) tryLoop(head cfg.BlockID) (cfg.BlockID, error) {
	tail := b.loopTail(head)
	if tail == cfg.NoBlock {
		return cfg.NoBlock, diag.New(diag.RVB002, "loop headed at block %d has no detectable back edge", int(head))
	}
	tailBlock := b.cfgFunc.Block(tail)
	if len(tailBlock.Out) != 2 {
		return cfg.NoBlock, diag.New(diag.RVB002, "loop tail block %d has %d arms, expected 2", int(tail), len(tailBlock.Out))
	}

	var backEdge cfg.Edge
	var exitBlock cfg.BlockID = cfg.NoBlock
	for _, e := range tailBlock.Out {
		if e.Dest == head {
			backEdge = e
		} else {
			exitBlock = e.Dest
		}
	}
	if exitBlock == cfg.NoBlock {
		return cfg.NoBlock, diag.New(diag.RVB002, "loop tail block %d has no exit arm", int(tail))
	}

	liveIn := sortedVars(b.store)

	childRegion := &Region{}
	childStore := map[string]Operand{}
	childTypes := map[string]ir.Base{}
	for i, v := range liveIn {
		childStore[v] = Arg(i)
		childTypes[v] = b.types[v]
	}
	child := &builder{cfgFunc: b.cfgFunc, dom: b.dom, joins: b.joins, funcSigs: b.funcSigs, region: childRegion, store: childStore, types: childTypes}

	if err := child.driveLoopBody(head, tail); err != nil {
		return cfg.NoBlock, err
	}
	if child.retVar != "" && b.retVar == "" {
		b.retVar = child.retVar
	}

	// The loop-carried tuple is every variable live going in, unioned with
	// every variable the body assigns — a value first defined inside the
	// loop still needs a carried slot if anything after the loop reads it,
	// and since it is never read back via Arg within the body itself its
	// placeholder initial value is never observed.
	carried := unionVars(liveIn, sortedVars(child.store))

	inputs := make([]Operand, len(carried))
	for i, v := range carried {
		if op, ok := b.store[v]; ok {
			inputs[i] = op
			continue
		}
		ty := child.types[v]
		id := b.region.add(placeholderConst(ty))
		inputs[i] = Id(id)
	}

	predVar := backEdge.Var
	predOp, ok := child.store[predVar]
	if !ok {
		return cfg.NoBlock, diag.New(diag.RVB001, "undefined loop predicate variable %q", predVar)
	}
	// backEdge.Cond.Val is the selector value that routes control back to
	// head; negate when that value is 0 so the Theta body's predicate means
	// "continue iterating".
	if backEdge.Cond != nil && backEdge.Cond.Val == 0 {
		notID := childRegion.add(&Body{Kind: BasicOpBody, Op: cfg.OpNot, Args: []Operand{predOp}, NumOutputs: 1})
		predOp = Id(notID)
	}

	outputs := make([]Operand, 0, len(carried)+1)
	outputs = append(outputs, predOp)
	for _, v := range carried {
		outputs = append(outputs, child.store[v])
	}
	childRegion.Outputs = outputs

	thetaID := b.region.add(&Body{Kind: ThetaBody, Inputs: inputs, LoopBody: childRegion, NumOutputs: len(carried)})
	for i, v := range carried {
		b.store[v] = Project(i, thetaID)
		b.types[v] = child.types[v]
	}
	return exitBlock, nil
}

// unionVars returns the sorted set union of several variable-name lists.
func unionVars(lists ...[]string) []string {
	set := map[string]bool{}
	for _, l := range lists {
		for _, v := range l {
			set[v] = true
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// tryBranch builds a Gamma node for the branch at brBlock (its straight-line
// code must already have been translated by the caller) and returns the
// block execution should resume from at the reconvergence point.
func (b *builder) tryBranch(brBlock cfg.BlockID, succs []cfg.BlockID) (cfg.BlockID, error) {
	block := b.cfgFunc.Block(brBlock)
	if len(block.Out) == 0 {
		return cfg.NoBlock, diag.New(diag.RVB001, "branch block %d has no outgoing edges", int(brBlock))
	}
	predVar := block.Out[0].Var
	predOp, ok := b.store[predVar]
	if !ok {
		return cfg.NoBlock, diag.New(diag.RVB001, "undefined branch predicate variable %q", predVar)
	}
	predTy := b.types[predVar]

	join, ok := b.joins[brBlock]
	if !ok {
		join = cfg.NoBlock
	}

	// Order arms by CondVal.Val so Branches[i] always corresponds to
	// selector value i.
	type arm struct {
		val  int64
		dest cfg.BlockID
	}
	var arms []arm
	seenVal := map[int64]bool{}
	for _, e := range block.Out {
		if e.Cond == nil {
			continue
		}
		if seenVal[e.Cond.Val] {
			continue
		}
		seenVal[e.Cond.Val] = true
		arms = append(arms, arm{val: e.Cond.Val, dest: e.Dest})
	}
	sort.Slice(arms, func(i, j int) bool { return arms[i].val < arms[j].val })

	liveIn := sortedVars(b.store)

	children := make([]*builder, len(arms))
	for i, a := range arms {
		childRegion := &Region{}
		childStore := map[string]Operand{}
		childTypes := map[string]ir.Base{}
		for j, v := range liveIn {
			childStore[v] = Arg(j)
			childTypes[v] = b.types[v]
		}
		child := &builder{cfgFunc: b.cfgFunc, dom: b.dom, joins: b.joins, funcSigs: b.funcSigs, region: childRegion, store: childStore, types: childTypes}
		if err := child.drive(a.dest, join); err != nil {
			return cfg.NoBlock, err
		}
		children[i] = child
		if child.retVar != "" && b.retVar == "" {
			b.retVar = child.retVar
		}
	}

	// The Gamma's output tuple is every variable live going in, unioned
	// with every variable any arm assigns — a fresh value computed only on
	// one arm still needs a slot if the continuation reads it, and arms
	// that never assign it get a typed placeholder instead.
	outVars := liveIn
	for _, c := range children {
		outVars = unionVars(outVars, sortedVars(c.store))
	}

	branches := make([]*Region, len(arms))
	for i, c := range children {
		outputs := make([]Operand, len(outVars))
		for j, v := range outVars {
			if op, ok := c.store[v]; ok {
				outputs[j] = op
				continue
			}
			ty := b.types[v]
			if ty.Kind == 0 && ty.PointeeOf == 0 {
				for _, other := range children {
					if t, ok := other.types[v]; ok {
						ty = t
						break
					}
				}
			}
			id := c.region.add(placeholderConst(ty))
			outputs[j] = Id(id)
		}
		c.region.Outputs = outputs
		branches[i] = c.region
	}

	inputs := make([]Operand, len(liveIn))
	for i, v := range liveIn {
		inputs[i] = b.store[v]
	}

	gammaID := b.region.add(&Body{Kind: GammaBody, Pred: predOp, PredTy: predTy, Inputs: inputs, Branches: branches, NumOutputs: len(outVars)})
	for i, v := range outVars {
		b.store[v] = Project(i, gammaID)
		for _, c := range children {
			if t, ok := c.types[v]; ok {
				b.types[v] = t
				break
			}
		}
	}
	if join == cfg.NoBlock {
		return cfg.NoBlock, nil
	}
	return join, nil
}

func placeholderConst(ty ir.Base) *Body {
	switch ty.Kind {
	case ir.Bool:
		return &Body{Kind: BasicOpBody, Op: cfg.OpConst, ConstVal: ir.BoolC(false), ConstTy: ty, NumOutputs: 1}
	case ir.Float:
		return &Body{Kind: BasicOpBody, Op: cfg.OpConst, ConstVal: ir.FloatC(0), ConstTy: ty, NumOutputs: 1}
	default:
		return &Body{Kind: BasicOpBody, Op: cfg.OpConst, ConstVal: ir.IntC(0), ConstTy: ty, NumOutputs: 1}
	}
}

// translateStraightLine lowers one block's instructions and footer
// annotations into BasicOp nodes, threading the single State value through
// every effectful operation so each one observes the last one's effect.
func (b *builder) translateStraightLine(id cfg.BlockID) error {
	block := b.cfgFunc.Block(id)
	for _, in := range block.Instrs {
		if err := b.translateInstr(in); err != nil {
			return err
		}
	}
	for _, ann := range block.Footer {
		switch ann.Kind {
		case cfg.AssignCond:
			ty := ir.Base{Kind: ir.Int}
			var cv ir.Constant
			if ann.Cond.Of == 2 {
				ty = ir.Base{Kind: ir.Bool}
				cv = ir.BoolC(ann.Cond.Val != 0)
			} else {
				cv = ir.IntC(ann.Cond.Val)
			}
			nid := b.region.add(&Body{Kind: BasicOpBody, Op: cfg.OpConst, ConstVal: cv, ConstTy: ty, NumOutputs: 1})
			b.store[ann.Var] = Id(nid)
			b.types[ann.Var] = ty
		case cfg.AssignRet:
			b.retVar = ann.Var
		}
	}
	return nil
}

func (b *builder) translateInstr(in cfg.Instr) error {
	lookup := func(name string) (Operand, error) {
		op, ok := b.store[name]
		if !ok {
			return Operand{}, diag.New(diag.RVB001, "undefined variable %q", name)
		}
		return op, nil
	}

	switch in.Op {
	case cfg.OpNop:
		return nil
	case cfg.OpId:
		op, err := lookup(in.Args[0])
		if err != nil {
			return err
		}
		b.store[in.Dest] = op
		b.types[in.Dest] = b.types[in.Args[0]]
		return nil
	case cfg.OpConst:
		nid := b.region.add(&Body{Kind: BasicOpBody, Op: cfg.OpConst, ConstVal: in.ConstVal, ConstTy: in.DestType, NumOutputs: 1})
		b.store[in.Dest] = Id(nid)
		b.types[in.Dest] = in.DestType
		return nil
	case cfg.OpLoad:
		ptr, err := lookup(in.Args[0])
		if err != nil {
			return err
		}
		st, err := lookup(stateVar)
		if err != nil {
			return err
		}
		nid := b.region.add(&Body{Kind: BasicOpBody, Op: cfg.OpLoad, Args: []Operand{ptr, st}, NumOutputs: 2})
		b.store[in.Dest] = Project(0, nid)
		b.types[in.Dest] = in.DestType
		b.store[stateVar] = Project(1, nid)
		return nil
	case cfg.OpAlloc:
		size, err := lookup(in.Args[0])
		if err != nil {
			return err
		}
		st, err := lookup(stateVar)
		if err != nil {
			return err
		}
		// ConstTy is reused here (off-label from its OpConst meaning) to carry
		// the allocation's pointer-to-element type through to the down-bridge,
		// which needs the pointee base kind to call ir.Arena.Alloc.
		nid := b.region.add(&Body{Kind: BasicOpBody, Op: cfg.OpAlloc, Args: []Operand{size, st}, ConstTy: in.DestType, NumOutputs: 2})
		b.store[in.Dest] = Project(0, nid)
		b.types[in.Dest] = in.DestType
		b.store[stateVar] = Project(1, nid)
		return nil
	case cfg.OpStore:
		ptr, err := lookup(in.Args[0])
		if err != nil {
			return err
		}
		val, err := lookup(in.Args[1])
		if err != nil {
			return err
		}
		st, err := lookup(stateVar)
		if err != nil {
			return err
		}
		nid := b.region.add(&Body{Kind: BasicOpBody, Op: cfg.OpStore, Args: []Operand{ptr, val, st}, NumOutputs: 1})
		b.store[stateVar] = Id(nid)
		return nil
	case cfg.OpFree:
		ptr, err := lookup(in.Args[0])
		if err != nil {
			return err
		}
		st, err := lookup(stateVar)
		if err != nil {
			return err
		}
		nid := b.region.add(&Body{Kind: BasicOpBody, Op: cfg.OpFree, Args: []Operand{ptr, st}, NumOutputs: 1})
		b.store[stateVar] = Id(nid)
		return nil
	case cfg.OpPrint:
		val, err := lookup(in.Args[0])
		if err != nil {
			return err
		}
		st, err := lookup(stateVar)
		if err != nil {
			return err
		}
		nid := b.region.add(&Body{Kind: BasicOpBody, Op: cfg.OpPrint, Args: []Operand{val, st}, NumOutputs: 1})
		b.store[stateVar] = Id(nid)
		return nil
	case cfg.OpCall:
		args := make([]Operand, 0, len(in.Args)+1)
		for _, a := range in.Args {
			op, err := lookup(a)
			if err != nil {
				return err
			}
			args = append(args, op)
		}
		st, err := lookup(stateVar)
		if err != nil {
			return err
		}
		args = append(args, st)
		sig, known := b.funcSigs[in.CallName]
		hasRet := in.Dest != "" && (!known || sig.hasRet)
		numOut := 1
		if hasRet {
			numOut = 2
		}
		nid := b.region.add(&Body{Kind: BasicOpBody, Op: cfg.OpCall, CallName: in.CallName, Args: args, NumOutputs: numOut})
		if hasRet {
			b.store[in.Dest] = Project(0, nid)
			b.types[in.Dest] = in.DestType
			b.store[stateVar] = Project(1, nid)
		} else {
			b.store[stateVar] = Id(nid)
		}
		return nil
	default:
		// pure value operation: add, sub, mul, div, and, or, not, lt, gt,
		// le, ge, eq, the float variants, and ptradd all take their
		// operands from the current region and produce a single value
		// with no state thread.
		args := make([]Operand, 0, len(in.Args))
		for _, a := range in.Args {
			op, err := lookup(a)
			if err != nil {
				return err
			}
			args = append(args, op)
		}
		nid := b.region.add(&Body{Kind: BasicOpBody, Op: in.Op, Args: args, NumOutputs: 1})
		b.store[in.Dest] = Id(nid)
		b.types[in.Dest] = in.DestType
		return nil
	}
}
