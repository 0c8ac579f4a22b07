package rvsdg

import (
	"fmt"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

// cfgValue is a value visible while lowering a region back to straight-line
// CFG code: either the (implicit) State thread, which never materializes as
// a named instruction, or a named, typed Bril-style variable. Carrying the
// type alongside the name avoids a second type-inference pass over the
// emitted instructions, mirroring the RvsdgValue split the reference
// implementation's to_cfg.rs threads through the same lowering.
type cfgValue struct {
	isState bool
	name    string
	ty      ir.Base
}

// pendingEdge is an edge whose source block is already finished but whose
// destination is not yet known — attached to whatever block toCfg.finish
// produces next. Gamma reconvergence and a Theta's entry/exit both need this:
// the block that follows a structured construct isn't created until the
// construct's own lowering returns control to its caller.
type pendingEdge struct {
	from cfg.BlockID
	var_ string
	cond *cfg.CondVal
}

// toCfg holds the state shared across an entire function's lowering: the
// cfg.Function under construction, the block currently being filled in, and
// the edges queued to land on whichever block is finished next. Nested
// regions (Gamma branches, a Theta's loop body) share this state with their
// parent so that blocks they create interleave correctly with the parent's.
type toCfg struct {
	f         *cfg.Function
	cur       []cfg.Instr
	pending   []pendingEdge
	haveEntry bool
	entry     cfg.BlockID
	fresh     int
	retVar    string
	retTypes  map[string]*ir.Base
}

// ToCFG lowers an RVSDG program back into the restructured-CFG form
// (Component D's input shape), the step that closes the loop after
// extraction and the up-bridge so the branch simplifier and Bril emission —
// both of which only know how to walk a *cfg.Function — can run on the
// optimized program. Grounded on the reference implementation's to_cfg.rs,
// generalized from its single-function, two-arm-Gamma assumptions to this
// package's n-way GammaBody and multi-function Program.
func ToCFG(prog *Program) (*cfg.Program, error) {
	retTypes := map[string]*ir.Base{}
	for _, f := range prog.Functions {
		retTypes[f.Name] = f.RetType
	}
	out := &cfg.Program{}
	for _, f := range prog.Functions {
		cf, err := functionToCFG(f, retTypes)
		if err != nil {
			return nil, err
		}
		out.Funcs = append(out.Funcs, cf)
	}
	return out, nil
}

func functionToCFG(f *Function, retTypes map[string]*ir.Base) (*cfg.Function, error) {
	cf := &cfg.Function{Name: f.Name, RetType: f.RetType}
	nArgs := len(f.ArgTypes) - 1 // last ArgTypes entry is the reserved State slot
	args := make([]cfgValue, len(f.ArgTypes))
	for i := 0; i < nArgs; i++ {
		name := fmt.Sprintf("arg%d", i)
		cf.Args = append(cf.Args, cfg.Param{Name: name, Type: f.ArgTypes[i]})
		args[i] = cfgValue{name: name, ty: f.ArgTypes[i]}
	}
	args[nArgs] = cfgValue{isState: true}

	t := &toCfg{f: cf, retTypes: retTypes}
	rc := &regionLowerer{t: t, region: f.Body, args: args, cache: map[NodeID][]cfgValue{}}

	outs := make([]cfgValue, len(f.Body.Outputs))
	for i, op := range f.Body.Outputs {
		v, err := rc.operand(op)
		if err != nil {
			return nil, err
		}
		outs[i] = v
	}
	if f.RetType != nil {
		if len(outs) == 0 || outs[0].isState {
			return nil, diag.New(diag.RVB001, "function %q declares a return type but its body produced no return value", f.Name)
		}
		t.retVar = outs[0].name
	}

	exit := t.finish()
	if t.retVar != "" {
		last := cf.Block(exit)
		last.Footer = append(last.Footer, cfg.Annotation{Kind: cfg.AssignRet, Var: t.retVar})
	}
	cf.Entry = t.entry
	cf.Exit = exit
	return cf, nil
}

func (t *toCfg) freshVar() string {
	t.fresh++
	return fmt.Sprintf("__v%d", t.fresh)
}

func (t *toCfg) emit(in cfg.Instr) { t.cur = append(t.cur, in) }

// finish closes out the block under construction, draining every pending
// edge onto it (they may originate from several different already-finished
// blocks, e.g. every arm of a Gamma reconverging here) and returns its id.
func (t *toCfg) finish() cfg.BlockID {
	b := t.f.AddBlock(fmt.Sprintf("b%d", len(t.f.Blocks)))
	b.Instrs = t.cur
	t.cur = nil
	if !t.haveEntry {
		t.entry = b.ID
		t.haveEntry = true
	}
	for _, p := range t.pending {
		from := t.f.Block(p.from)
		from.Out = append(from.Out, cfg.Edge{Dest: b.ID, Var: p.var_, Cond: p.cond})
	}
	t.pending = nil
	return b.ID
}

func (t *toCfg) addEdge(from cfg.BlockID, e cfg.Edge) {
	b := t.f.Block(from)
	b.Out = append(b.Out, e)
}

func (t *toCfg) queueDirect(from cfg.BlockID) {
	t.pending = append(t.pending, pendingEdge{from: from})
}

func (t *toCfg) queueCond(from cfg.BlockID, v string, val int64) {
	t.pending = append(t.pending, pendingEdge{from: from, var_: v, cond: &cfg.CondVal{Val: val, Of: 2}})
}

// freshVarsFor allocates one fresh variable per non-state value in vals,
// preserving each value's type and threading State through unchanged —
// used to materialize the shared result slots a Gamma/Theta exposes to its
// continuation, since each arm/iteration computes its own instance.
func (t *toCfg) freshVarsFor(vals []cfgValue) []cfgValue {
	out := make([]cfgValue, len(vals))
	for i, v := range vals {
		if v.isState {
			out[i] = cfgValue{isState: true}
			continue
		}
		out[i] = cfgValue{name: t.freshVar(), ty: v.ty}
	}
	return out
}

// assignToVars emits `dst := id src` for every non-state pair, copying each
// arm's/iteration's locally computed value into its shared slot.
func (t *toCfg) assignToVars(src, dst []cfgValue) {
	for i := range src {
		if dst[i].isState {
			continue
		}
		t.emit(cfg.Instr{Dest: dst[i].name, DestType: dst[i].ty, Op: cfg.OpId, Args: []string{src[i].name}})
	}
}

// regionLowerer lowers one Region's worth of Bodies into CFG instructions,
// appending them to the shared toCfg's block-in-progress. Its node cache is
// scoped to this region alone — Region.Nodes is indexed locally (per
// types.go), so no region ever needs to disambiguate its ids against a
// parent or sibling region's.
type regionLowerer struct {
	t      *toCfg
	region *Region
	args   []cfgValue
	cache  map[NodeID][]cfgValue
}

func (r *regionLowerer) operand(op Operand) (cfgValue, error) {
	switch op.Kind {
	case ArgOperand:
		if op.ArgIndex < 0 || op.ArgIndex >= len(r.args) {
			return cfgValue{}, diag.New(diag.RVB001, "argument index %d out of range", op.ArgIndex)
		}
		return r.args[op.ArgIndex], nil
	case IdOperand:
		res, err := r.body(op.Node)
		if err != nil {
			return cfgValue{}, err
		}
		if len(res) != 1 {
			return cfgValue{}, diag.New(diag.RVB003, "node %d referenced by Id has %d outputs, expected 1", int(op.Node), len(res))
		}
		return res[0], nil
	case ProjectOperand:
		res, err := r.body(op.Node)
		if err != nil {
			return cfgValue{}, err
		}
		if op.ProjIndex < 0 || op.ProjIndex >= len(res) {
			return cfgValue{}, diag.New(diag.RVB003, "projection %d of node %d out of range (%d outputs)", op.ProjIndex, int(op.Node), len(res))
		}
		return res[op.ProjIndex], nil
	default:
		return cfgValue{}, diag.New(diag.RVB003, "unknown operand kind %d", int(op.Kind))
	}
}

func (r *regionLowerer) body(id NodeID) ([]cfgValue, error) {
	if v, ok := r.cache[id]; ok {
		return v, nil
	}
	if int(id) < 0 || int(id) >= len(r.region.Nodes) {
		return nil, diag.New(diag.RVB003, "node id %d out of range", int(id))
	}
	b := r.region.Nodes[id]
	var res []cfgValue
	var err error
	switch b.Kind {
	case BasicOpBody:
		res, err = r.lowerBasicOp(b)
	case GammaBody:
		res, err = r.lowerGamma(b)
	case ThetaBody:
		res, err = r.lowerTheta(b)
	default:
		return nil, diag.New(diag.RVB003, "unknown body kind %d", int(b.Kind))
	}
	if err != nil {
		return nil, err
	}
	r.cache[id] = res
	return res, nil
}

// resultType computes a BasicOp's output type from its (already-typed)
// operands, mirroring the type rules internal/typecheck enforces forward —
// Body has no generic output-type field, only the special cases ConstTy
// (Const, Alloc) carries.
func resultType(op cfg.Op, args []cfgValue) ir.Base {
	switch op {
	case cfg.OpAdd, cfg.OpSub, cfg.OpMul, cfg.OpDiv, cfg.OpSmax, cfg.OpSmin, cfg.OpShl, cfg.OpShr:
		return ir.Base{Kind: ir.Int}
	case cfg.OpAnd, cfg.OpOr, cfg.OpNot:
		return ir.Base{Kind: ir.Bool}
	case cfg.OpLt, cfg.OpGt, cfg.OpLe, cfg.OpGe, cfg.OpEq:
		return ir.Base{Kind: ir.Bool}
	case cfg.OpFAdd, cfg.OpFSub, cfg.OpFMul, cfg.OpFDiv, cfg.OpFmax, cfg.OpFmin:
		return ir.Base{Kind: ir.Float}
	case cfg.OpFEq, cfg.OpFLt, cfg.OpFGt, cfg.OpFLe, cfg.OpFGe:
		return ir.Base{Kind: ir.Bool}
	case cfg.OpPtrAdd:
		return args[0].ty
	case cfg.OpSelect:
		return args[1].ty
	default:
		if len(args) > 0 {
			return args[0].ty
		}
		return ir.Base{Kind: ir.Int}
	}
}

func (r *regionLowerer) lowerBasicOp(b *Body) ([]cfgValue, error) {
	args := make([]cfgValue, len(b.Args))
	for i, a := range b.Args {
		v, err := r.operand(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	t := r.t

	switch b.Op {
	case cfg.OpConst:
		name := t.freshVar()
		t.emit(cfg.Instr{Dest: name, DestType: b.ConstTy, Op: cfg.OpConst, ConstVal: b.ConstVal})
		return []cfgValue{{name: name, ty: b.ConstTy}}, nil

	case cfg.OpLoad:
		if len(args) != 2 {
			return nil, diag.New(diag.RVB003, "load node has %d args, expected 2", len(args))
		}
		name := t.freshVar()
		ty := ir.Base{Kind: args[0].ty.PointeeOf}
		t.emit(cfg.Instr{Dest: name, DestType: ty, Op: cfg.OpLoad, Args: []string{args[0].name}})
		return []cfgValue{{name: name, ty: ty}, {isState: true}}, nil

	case cfg.OpAlloc:
		if len(args) != 2 {
			return nil, diag.New(diag.RVB003, "alloc node has %d args, expected 2", len(args))
		}
		name := t.freshVar()
		t.emit(cfg.Instr{Dest: name, DestType: b.ConstTy, Op: cfg.OpAlloc, Args: []string{args[0].name}})
		return []cfgValue{{name: name, ty: b.ConstTy}, {isState: true}}, nil

	case cfg.OpStore:
		if len(args) != 3 {
			return nil, diag.New(diag.RVB003, "store node has %d args, expected 3", len(args))
		}
		t.emit(cfg.Instr{Op: cfg.OpStore, Args: []string{args[0].name, args[1].name}})
		return []cfgValue{{isState: true}}, nil

	case cfg.OpFree:
		if len(args) != 2 {
			return nil, diag.New(diag.RVB003, "free node has %d args, expected 2", len(args))
		}
		t.emit(cfg.Instr{Op: cfg.OpFree, Args: []string{args[0].name}})
		return []cfgValue{{isState: true}}, nil

	case cfg.OpPrint:
		if len(args) != 2 {
			return nil, diag.New(diag.RVB003, "print node has %d args, expected 2", len(args))
		}
		t.emit(cfg.Instr{Op: cfg.OpPrint, Args: []string{args[0].name}})
		return []cfgValue{{isState: true}}, nil

	case cfg.OpCall:
		if len(args) == 0 {
			return nil, diag.New(diag.RVB003, "call node %q has no args (missing reserved state arg)", b.CallName)
		}
		callArgs := make([]string, 0, len(args)-1)
		for _, a := range args[:len(args)-1] {
			callArgs = append(callArgs, a.name)
		}
		if b.NumOutputs == 2 {
			retTy := t.retTypes[b.CallName]
			if retTy == nil {
				return nil, diag.New(diag.RVB003, "call to %q expects a return value but it has no registered return type", b.CallName)
			}
			name := t.freshVar()
			t.emit(cfg.Instr{Dest: name, DestType: *retTy, Op: cfg.OpCall, Args: callArgs, CallName: b.CallName})
			return []cfgValue{{name: name, ty: *retTy}, {isState: true}}, nil
		}
		t.emit(cfg.Instr{Op: cfg.OpCall, Args: callArgs, CallName: b.CallName})
		return []cfgValue{{isState: true}}, nil

	default:
		name := t.freshVar()
		ty := resultType(b.Op, args)
		argNames := make([]string, len(args))
		for i, a := range args {
			argNames[i] = a.name
		}
		t.emit(cfg.Instr{Dest: name, DestType: ty, Op: b.Op, Args: argNames})
		return []cfgValue{{name: name, ty: ty}}, nil
	}
}

// lowerGamma emits the predicate evaluation into the block under
// construction, finishes it, lowers each branch region into its own fresh
// block(s) off of that predicate, and queues a direct edge from every arm
// back onto whatever block the caller finishes next — the reconvergence
// point. Branches[i] always corresponds to selector value i (builder.go's
// construction invariant), so the n conditional edges out of the predicate
// block are just their index.
func (r *regionLowerer) lowerGamma(b *Body) ([]cfgValue, error) {
	inputVals := make([]cfgValue, len(b.Inputs))
	for i, op := range b.Inputs {
		v, err := r.operand(op)
		if err != nil {
			return nil, err
		}
		inputVals[i] = v
	}
	predVal, err := r.operand(b.Pred)
	if err != nil {
		return nil, err
	}

	t := r.t
	predBlock := t.finish()

	n := len(b.Branches)
	if n == 0 {
		return nil, diag.New(diag.RVB003, "gamma node has no branches")
	}
	var shared []cfgValue
	armBlocks := make([]cfg.BlockID, n)
	for i, branch := range b.Branches {
		child := &regionLowerer{t: t, region: branch, args: inputVals, cache: map[NodeID][]cfgValue{}}
		outs := make([]cfgValue, len(branch.Outputs))
		for j, op := range branch.Outputs {
			v, err := child.operand(op)
			if err != nil {
				return nil, err
			}
			outs[j] = v
		}
		if shared == nil {
			shared = t.freshVarsFor(outs)
		}
		t.assignToVars(outs, shared)
		armBlocks[i] = t.finish()
	}

	for i, dest := range armBlocks {
		t.addEdge(predBlock, cfg.Edge{Dest: dest, Var: predVal.name, Cond: &cfg.CondVal{Val: int64(i), Of: int64(n)}})
	}
	for _, ab := range armBlocks {
		t.queueDirect(ab)
	}
	return shared, nil
}

// lowerTheta materializes the loop-carried variables' initial values,
// enters the loop body once (it is tail-controlled: the body always runs at
// least once before the predicate is tested), re-binds the carried
// variables to the iteration's fresh results, and closes the loop with a
// self-edge on "continue" and a queued exit edge on "stop". LoopBody's
// first output is always the continuation predicate (already normalized by
// the forward builder so true means keep iterating), the rest are the
// carried variables' next values in the same order as Inputs.
func (r *regionLowerer) lowerTheta(b *Body) ([]cfgValue, error) {
	inputVals := make([]cfgValue, len(b.Inputs))
	for i, op := range b.Inputs {
		v, err := r.operand(op)
		if err != nil {
			return nil, err
		}
		inputVals[i] = v
	}
	t := r.t
	loopVars := t.freshVarsFor(inputVals)
	t.assignToVars(inputVals, loopVars)

	entryBlock := t.finish()
	t.queueDirect(entryBlock)

	child := &regionLowerer{t: t, region: b.LoopBody, args: loopVars, cache: map[NodeID][]cfgValue{}}
	outs := make([]cfgValue, len(b.LoopBody.Outputs))
	for i, op := range b.LoopBody.Outputs {
		v, err := child.operand(op)
		if err != nil {
			return nil, err
		}
		outs[i] = v
	}
	if len(outs) == 0 {
		return nil, diag.New(diag.RVB003, "theta loop body produced no outputs (missing continuation predicate)")
	}
	predVal, body := outs[0], outs[1:]
	if predVal.isState {
		return nil, diag.New(diag.RVB003, "theta loop body's continuation predicate resolved to the state thread")
	}
	if len(body) != len(loopVars) {
		return nil, diag.New(diag.RVB003, "theta loop body produced %d carried values, expected %d", len(body), len(loopVars))
	}
	t.assignToVars(body, loopVars)

	loopBlock := t.finish()
	t.addEdge(loopBlock, cfg.Edge{Dest: loopBlock, Var: predVal.name, Cond: &cfg.CondVal{Val: 1, Of: 2}})
	t.queueCond(loopBlock, predVal.name, 0)

	return loopVars, nil
}
