package interp

import (
	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

// Result is the outcome of interpreting a program or a standalone
// expression: the produced value, the final memory image, and the print
// log accumulated along the way.
type Result struct {
	Value  Value
	Memory map[int]Value
	Log    []string
}

// vm keeps track of state while running one DAG-IR program: the memory
// side-table, the next free allocation address, an at-most-once evaluation
// cache keyed by node identity (the arena NodeID plays the role the
// reference implementation fills with Rc pointer identity), and the print
// log.
type vm struct {
	arena     *ir.Arena
	program   *ir.Program
	nextAddr  int
	memory    map[int]Value
	evalCache map[ir.NodeID]Value
	log       []string
}

// InterpretProgram runs funcName's body against arg and returns its result.
func InterpretProgram(prog *ir.Program, funcName string, arg Value) (Result, error) {
	m := &vm{arena: prog.Arena, program: prog, memory: map[int]Value{}, evalCache: map[ir.NodeID]Value{}}
	val, err := m.interpretCall(funcName, arg)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: val, Memory: m.memory, Log: m.log}, nil
}

// InterpretExpr runs a single call-free expression directly, bypassing any
// Function lookup — useful for exercising one DAG-IR fragment in isolation.
func InterpretExpr(arena *ir.Arena, rootID ir.NodeID, arg Value) (Result, error) {
	m := &vm{arena: arena, program: &ir.Program{Arena: arena}, memory: map[int]Value{}, evalCache: map[ir.NodeID]Value{}}
	val, err := m.interpretRegion(rootID, arg)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: val, Memory: m.memory, Log: m.log}, nil
}

func (m *vm) interpretCall(name string, arg Value) (Value, error) {
	id := m.program.Func(name)
	if id == ir.InvalidNode {
		return Value{}, diag.New(diag.TC006, "call to undeclared function %q", name)
	}
	e := m.arena.Get(id)
	return m.interpretRegion(e.FuncBody, arg)
}

// interpretRegion evaluates root in a fresh evaluation cache, restoring the
// caller's cache afterward — entering a new region (a function body, an
// If/Switch branch, a DoWhile body) must not let a structurally-equal but
// logically-distinct node in the new region read a value cached by the
// surrounding region, and vice versa.
func (m *vm) interpretRegion(root ir.NodeID, arg Value) (Value, error) {
	saved := m.evalCache
	m.evalCache = map[ir.NodeID]Value{}
	res, err := m.interpretExpr(root, arg)
	m.evalCache = saved
	return res, err
}

func (m *vm) interpretExpr(id ir.NodeID, arg Value) (Value, error) {
	if v, ok := m.evalCache[id]; ok {
		return v, nil
	}
	e := m.arena.Get(id)

	var res Value
	var err error
	switch e.Kind {
	case ir.ConstExpr:
		res = ConstV(e.Const)
	case ir.ArgExpr:
		res = arg
	case ir.EmptyExpr:
		res = TupleV()
	case ir.SingleExpr:
		var v Value
		v, err = m.interpretExpr(e.Single, arg)
		res = TupleV(v)
	case ir.ConcatExpr:
		res, err = m.interpretConcat(e, arg)
	case ir.GetExpr:
		res, err = m.interpretGet(e, arg)
	case ir.UopExpr:
		res, err = m.interpretUop(e, arg)
	case ir.BopExpr:
		res, err = m.interpretBop(e, arg)
	case ir.TopExpr:
		res, err = m.interpretTop(e, arg)
	case ir.AllocExpr:
		res, err = m.interpretAlloc(e, arg)
	case ir.IfExpr:
		res, err = m.interpretIf(e, arg)
	case ir.SwitchExpr:
		res, err = m.interpretSwitch(e, arg)
	case ir.DoWhileExpr:
		res, err = m.interpretDoWhile(e, arg)
	case ir.CallExpr:
		res, err = m.interpretCallExpr(e, arg)
	case ir.FunctionExpr:
		err = diag.New(diag.EVA003, "a Function node cannot be evaluated as an expression")
	case ir.SymbolicExpr:
		err = diag.New(diag.TC005, "symbolic placeholder %q reached the interpreter", e.SymbolicName)
	default:
		err = diag.New(diag.EVA003, "dag-ir node kind %v has no interpreter semantics", e.Kind)
	}
	if err != nil {
		return Value{}, err
	}
	m.evalCache[id] = res
	return res, nil
}

func (m *vm) interpretConcat(e *ir.Expr, arg Value) (Value, error) {
	l, err := m.interpretExpr(e.ConcatL, arg)
	if err != nil {
		return Value{}, err
	}
	if l.Kind != TupleVal {
		return Value{}, diag.New(diag.EVA004, "concat expects a tuple on the left, got %v", l)
	}
	r, err := m.interpretExpr(e.ConcatR, arg)
	if err != nil {
		return Value{}, err
	}
	if r.Kind != TupleVal {
		return Value{}, diag.New(diag.EVA004, "concat expects a tuple on the right, got %v", r)
	}
	out := make([]Value, 0, len(l.Tuple)+len(r.Tuple))
	out = append(out, l.Tuple...)
	out = append(out, r.Tuple...)
	return TupleV(out...), nil
}

func (m *vm) interpretGet(e *ir.Expr, arg Value) (Value, error) {
	src, err := m.interpretExpr(e.GetSrc, arg)
	if err != nil {
		return Value{}, err
	}
	if src.Kind != TupleVal {
		return Value{}, diag.New(diag.EVA004, "get expects a tuple, got %v", src)
	}
	if e.GetIdx < 0 || e.GetIdx >= len(src.Tuple) {
		return Value{}, diag.New(diag.TC003, "get index %d out of bounds for a %d-element tuple", e.GetIdx, len(src.Tuple))
	}
	return src.Tuple[e.GetIdx], nil
}

func (m *vm) interpretUop(e *ir.Expr, arg Value) (Value, error) {
	switch e.UopOp {
	case ir.Not:
		b, err := m.evalBool(e.UopArg, arg)
		if err != nil {
			return Value{}, err
		}
		return BoolV(!b), nil
	}
	return Value{}, diag.New(diag.EVA003, "unary op %v has no interpreter semantics", e.UopOp)
}

func (m *vm) interpretTop(e *ir.Expr, arg Value) (Value, error) {
	switch e.TopOp {
	case ir.Write:
		ptr, err := m.evalPtr(e.TopA, arg)
		if err != nil {
			return Value{}, err
		}
		val, err := m.interpretExpr(e.TopB, arg)
		if err != nil {
			return Value{}, err
		}
		if err := m.assertState(e.TopC, arg); err != nil {
			return Value{}, err
		}
		addr, err := ptr.ResolvedAddr()
		if err != nil {
			return Value{}, err
		}
		m.memory[addr] = val
		return StateV(), nil
	case ir.Select:
		cond, err := m.evalBool(e.TopA, arg)
		if err != nil {
			return Value{}, err
		}
		if cond {
			return m.interpretExpr(e.TopB, arg)
		}
		return m.interpretExpr(e.TopC, arg)
	}
	return Value{}, diag.New(diag.EVA003, "ternary op %v has no interpreter semantics", e.TopOp)
}

func (m *vm) interpretAlloc(e *ir.Expr, arg Value) (Value, error) {
	size, err := m.evalInt(e.AllocSize, arg)
	if err != nil {
		return Value{}, err
	}
	if size < 0 {
		return Value{}, diag.New(diag.EVA005, "negative allocation size %d", size)
	}
	if err := m.assertState(e.AllocState, arg); err != nil {
		return Value{}, err
	}
	addr := m.nextAddr
	m.nextAddr += int(size)
	return TupleV(PtrV(Pointer{Addr: addr, Size: int(size), Offset: 0}), StateV()), nil
}

func (m *vm) interpretIf(e *ir.Expr, arg Value) (Value, error) {
	pred, err := m.evalBool(e.IfPred, arg)
	if err != nil {
		return Value{}, err
	}
	input, err := m.evalTuple(e.IfInputs, arg)
	if err != nil {
		return Value{}, err
	}
	if pred {
		return m.interpretRegion(e.IfThen, input)
	}
	return m.interpretRegion(e.IfElse, input)
}

func (m *vm) interpretSwitch(e *ir.Expr, arg Value) (Value, error) {
	idx, err := m.evalInt(e.SwitchPred, arg)
	if err != nil {
		return Value{}, err
	}
	if idx < 0 || int(idx) >= len(e.SwitchBranches) {
		return Value{}, diag.New(diag.TC003, "switch index %d out of bounds for %d branches", idx, len(e.SwitchBranches))
	}
	input, err := m.evalTuple(e.SwitchInputs, arg)
	if err != nil {
		return Value{}, err
	}
	return m.interpretRegion(e.SwitchBranches[idx], input)
}

// interpretDoWhile always runs the body at least once, then re-runs while
// the body's first output component is true.
func (m *vm) interpretDoWhile(e *ir.Expr, arg Value) (Value, error) {
	input, err := m.evalTuple(e.DoWhileInputs, arg)
	if err != nil {
		return Value{}, err
	}
	vals := input.Tuple
	for {
		out, err := m.interpretRegion(e.DoWhileBody, TupleV(vals...))
		if err != nil {
			return Value{}, err
		}
		if out.Kind != TupleVal || len(out.Tuple) != len(vals)+1 {
			return Value{}, diag.New(diag.EVA004, "do-while body must produce one more value than it receives; got %d for %d inputs", len(out.Tuple), len(vals))
		}
		pred := out.Tuple[0]
		if pred.Kind != ConstVal || pred.Const.Kind != ir.BoolConst {
			return Value{}, diag.New(diag.EVA004, "do-while continuation must be a bool, got %v", pred)
		}
		vals = out.Tuple[1:]
		if !pred.Const.Bool {
			break
		}
	}
	return TupleV(vals...), nil
}

func (m *vm) interpretCallExpr(e *ir.Expr, arg Value) (Value, error) {
	input, err := m.evalTuple(e.CallArgs, arg)
	if err != nil {
		return Value{}, err
	}
	return m.interpretCall(e.CallName, input)
}

// evalTuple evaluates a flat list of scalar DAG-IR nodes and assembles them
// into one Tuple value — the shape If/Switch inputs, DoWhile inputs, and
// Call arguments are all stored in.
func (m *vm) evalTuple(ids []ir.NodeID, arg Value) (Value, error) {
	vals := make([]Value, len(ids))
	for i, id := range ids {
		v, err := m.interpretExpr(id, arg)
		if err != nil {
			return Value{}, err
		}
		vals[i] = v
	}
	return TupleV(vals...), nil
}

func (m *vm) evalInt(id ir.NodeID, arg Value) (int64, error) {
	v, err := m.interpretExpr(id, arg)
	if err != nil {
		return 0, err
	}
	if v.Kind != ConstVal || v.Const.Kind != ir.IntConst {
		return 0, diag.New(diag.EVA004, "expected an int value, got %v", v)
	}
	return v.Const.Int, nil
}

func (m *vm) evalBool(id ir.NodeID, arg Value) (bool, error) {
	v, err := m.interpretExpr(id, arg)
	if err != nil {
		return false, err
	}
	if v.Kind != ConstVal || v.Const.Kind != ir.BoolConst {
		return false, diag.New(diag.EVA004, "expected a bool value, got %v", v)
	}
	return v.Const.Bool, nil
}

func (m *vm) evalFloat(id ir.NodeID, arg Value) (float64, error) {
	v, err := m.interpretExpr(id, arg)
	if err != nil {
		return 0, err
	}
	if v.Kind != ConstVal || v.Const.Kind != ir.FloatConst {
		return 0, diag.New(diag.EVA004, "expected a float value, got %v", v)
	}
	return float64(v.Const.Float), nil
}

func (m *vm) evalPtr(id ir.NodeID, arg Value) (Pointer, error) {
	v, err := m.interpretExpr(id, arg)
	if err != nil {
		return Pointer{}, err
	}
	if v.Kind != PtrVal {
		return Pointer{}, diag.New(diag.EVA004, "expected a pointer value, got %v", v)
	}
	return v.Ptr, nil
}

func (m *vm) assertState(id ir.NodeID, arg Value) error {
	v, err := m.interpretExpr(id, arg)
	if err != nil {
		return err
	}
	if v.Kind != StateVal {
		return diag.New(diag.EVA004, "expected a state token, got %v", v)
	}
	return nil
}

func (m *vm) interpretBop(e *ir.Expr, arg Value) (Value, error) {
	switch e.BopOp {
	case ir.Load:
		return m.interpretLoad(e, arg)
	case ir.Free:
		return m.interpretFree(e, arg)
	case ir.Print:
		return m.interpretPrint(e, arg)
	case ir.PtrAdd:
		p, err := m.evalPtr(e.BopL, arg)
		if err != nil {
			return Value{}, err
		}
		off, err := m.evalInt(e.BopR, arg)
		if err != nil {
			return Value{}, err
		}
		return PtrV(Pointer{Addr: p.Addr, Size: p.Size, Offset: p.Offset + off}), nil
	case ir.And, ir.Or:
		l, err := m.evalBool(e.BopL, arg)
		if err != nil {
			return Value{}, err
		}
		r, err := m.evalBool(e.BopR, arg)
		if err != nil {
			return Value{}, err
		}
		if e.BopOp == ir.And {
			return BoolV(l && r), nil
		}
		return BoolV(l || r), nil
	case ir.FAdd, ir.FSub, ir.FMul, ir.FDiv, ir.FEq, ir.FLessThan, ir.FGreaterThan, ir.FLessEq, ir.FGreaterEq, ir.Fmax, ir.Fmin:
		l, err := m.evalFloat(e.BopL, arg)
		if err != nil {
			return Value{}, err
		}
		r, err := m.evalFloat(e.BopR, arg)
		if err != nil {
			return Value{}, err
		}
		return floatBop(e.BopOp, l, r)
	default:
		l, err := m.evalInt(e.BopL, arg)
		if err != nil {
			return Value{}, err
		}
		r, err := m.evalInt(e.BopR, arg)
		if err != nil {
			return Value{}, err
		}
		return intBop(e.BopOp, l, r)
	}
}

func (m *vm) interpretLoad(e *ir.Expr, arg Value) (Value, error) {
	ptr, err := m.evalPtr(e.BopL, arg)
	if err != nil {
		return Value{}, err
	}
	if err := m.assertState(e.BopR, arg); err != nil {
		return Value{}, err
	}
	addr, err := ptr.ResolvedAddr()
	if err != nil {
		return Value{}, err
	}
	v, ok := m.memory[addr]
	if !ok {
		return Value{}, diag.New(diag.EVA006, "no value bound at memory address %d", addr)
	}
	return TupleV(v, StateV()), nil
}

func (m *vm) interpretFree(e *ir.Expr, arg Value) (Value, error) {
	ptr, err := m.evalPtr(e.BopL, arg)
	if err != nil {
		return Value{}, err
	}
	if err := m.assertState(e.BopR, arg); err != nil {
		return Value{}, err
	}
	addr, err := ptr.ResolvedAddr()
	if err != nil {
		return Value{}, err
	}
	delete(m.memory, addr)
	return StateV(), nil
}

func (m *vm) interpretPrint(e *ir.Expr, arg Value) (Value, error) {
	v, err := m.interpretExpr(e.BopL, arg)
	if err != nil {
		return Value{}, err
	}
	if err := m.assertState(e.BopR, arg); err != nil {
		return Value{}, err
	}
	s, err := v.BrilPrint()
	if err != nil {
		return Value{}, err
	}
	m.log = append(m.log, s)
	return StateV(), nil
}

// intBop evaluates every integer-valued binary operator. Go's + - * already
// wrap on overflow like the reference implementation's wrapping_add/sub/mul;
// division and shifts are guarded explicitly since Go panics (rather than
// wrapping) on divide-by-zero and negative shift counts.
func intBop(op ir.BopKind, l, r int64) (Value, error) {
	switch op {
	case ir.Add:
		return IntV(l + r), nil
	case ir.Sub:
		return IntV(l - r), nil
	case ir.Mul:
		return IntV(l * r), nil
	case ir.Div:
		if r == 0 {
			return Value{}, diag.New(diag.EVA005, "integer division by zero")
		}
		return IntV(l / r), nil
	case ir.Smax:
		if l > r {
			return IntV(l), nil
		}
		return IntV(r), nil
	case ir.Smin:
		if l < r {
			return IntV(l), nil
		}
		return IntV(r), nil
	case ir.Shl:
		if r < 0 {
			return Value{}, diag.New(diag.EVA005, "negative shift amount %d", r)
		}
		return IntV(l << uint64(r)), nil
	case ir.Shr:
		if r < 0 {
			return Value{}, diag.New(diag.EVA005, "negative shift amount %d", r)
		}
		return IntV(l >> uint64(r)), nil
	case ir.LessThan:
		return BoolV(l < r), nil
	case ir.GreaterThan:
		return BoolV(l > r), nil
	case ir.LessEq:
		return BoolV(l <= r), nil
	case ir.GreaterEq:
		return BoolV(l >= r), nil
	case ir.Eq:
		return BoolV(l == r), nil
	}
	return Value{}, diag.New(diag.EVA003, "op %v is not an integer binary op", op)
}

func floatBop(op ir.BopKind, l, r float64) (Value, error) {
	switch op {
	case ir.FAdd:
		return FloatV(l + r), nil
	case ir.FSub:
		return FloatV(l - r), nil
	case ir.FMul:
		return FloatV(l * r), nil
	case ir.FDiv:
		return FloatV(l / r), nil
	case ir.FEq:
		return BoolV(l == r), nil
	case ir.FLessThan:
		return BoolV(l < r), nil
	case ir.FGreaterThan:
		return BoolV(l > r), nil
	case ir.FLessEq:
		return BoolV(l <= r), nil
	case ir.FGreaterEq:
		return BoolV(l >= r), nil
	case ir.Fmax:
		if l > r {
			return FloatV(l), nil
		}
		return FloatV(r), nil
	case ir.Fmin:
		if l < r {
			return FloatV(l), nil
		}
		return FloatV(r), nil
	}
	return Value{}, diag.New(diag.EVA003, "op %v is not a float binary op", op)
}
