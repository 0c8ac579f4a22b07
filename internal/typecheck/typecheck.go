// Package typecheck infers and validates the type of every DAG-IR
// expression, threading the enclosing region's argument type through
// region boundaries and rewriting Arg/Empty/Const nodes whose declared type
// is Unknown to a concrete type. Grounded on the reference implementation's
// typechecker.rs (`TypeStack`, memoized `add_arg_types_to_expr`).
package typecheck

import (
	"fmt"

	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

// Checker carries the type stack (one entry per nested region) and the
// type cache, both scoped to a single Check invocation and discarded at
// its end.
type Checker struct {
	arena     *ir.Arena
	program   *ir.Program
	stack     []ir.Type
	cache     map[cacheKey]ir.Type
	funcTypes map[string]funcSig
}

type funcSig struct {
	in, out ir.Type
}

// cacheKey mirrors the reference implementation's "(node-identity,
// current-arg-type)" memoization key: the same DAG node may in principle be
// reached under different arg types even though contexts usually prevent
// it, so the stronger key is required for soundness of sharing.
type cacheKey struct {
	node  ir.NodeID
	argTy string
}

// Check type-checks every function in the program, mutating each node's Ty
// field in place (a typed program is the same arena with concrete types
// filled in), and returns the first fatal error encountered.
func Check(program *ir.Program) error {
	c := &Checker{
		arena:     program.Arena,
		program:   program,
		cache:     map[cacheKey]ir.Type{},
		funcTypes: map[string]funcSig{},
	}
	for _, id := range program.Functions {
		e := c.arena.Get(id)
		c.funcTypes[e.FuncName] = funcSig{in: e.FuncInTy, out: e.FuncOutTy}
	}
	for _, id := range program.Functions {
		if _, err := c.checkFunction(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkFunction(id ir.NodeID) (ir.Type, error) {
	e := c.arena.Get(id)
	c.stack = append(c.stack, e.FuncInTy)
	bodyTy, err := c.check(e.FuncBody)
	c.stack = c.stack[:len(c.stack)-1]
	if err != nil {
		return ir.Type{}, err
	}
	if !bodyTy.Equal(e.FuncOutTy) {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(id), "function %q body type %s does not match declared return type %s", e.FuncName, bodyTy, e.FuncOutTy)
	}
	e.Ty = e.FuncOutTy
	return e.Ty, nil
}

func (c *Checker) currentArg() (ir.Type, bool) {
	if len(c.stack) == 0 {
		return ir.Type{}, false
	}
	return c.stack[len(c.stack)-1], true
}

// check recursively annotates id's subtree and returns its type, memoized
// by (node, current arg type).
func (c *Checker) check(id ir.NodeID) (ir.Type, error) {
	argTy, _ := c.currentArg()
	key := cacheKey{id, argTy.String()}
	if t, ok := c.cache[key]; ok {
		return t, nil
	}

	e := c.arena.Get(id)
	ty, err := c.checkNode(e)
	if err != nil {
		return ir.Type{}, err
	}
	e.Ty = ty
	c.cache[key] = ty
	return ty, nil
}

func (c *Checker) checkNode(e *ir.Expr) (ir.Type, error) {
	switch e.Kind {
	case ir.ConstExpr:
		return ir.BaseType(e.Const.BaseOf().Kind), nil

	case ir.ArgExpr:
		argTy, ok := c.currentArg()
		if !ok {
			return ir.Type{}, diag.AtNode(diag.TC004, uint32(e.ID), "Arg reached with an empty type stack")
		}
		return argTy, nil

	case ir.EmptyExpr:
		return ir.TupleType(), nil

	case ir.SingleExpr:
		inner, err := c.check(e.Single)
		if err != nil {
			return ir.Type{}, err
		}
		if inner.Kind != ir.BaseT {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "Single expects a base-typed child, got %s", inner)
		}
		return ir.TupleType(inner.Base), nil

	case ir.ConcatExpr:
		l, err := c.check(e.ConcatL)
		if err != nil {
			return ir.Type{}, err
		}
		r, err := c.check(e.ConcatR)
		if err != nil {
			return ir.Type{}, err
		}
		if l.Kind != ir.TupleT || r.Kind != ir.TupleT {
			return ir.Type{}, diag.AtNode(diag.TC002, uint32(e.ID), "Concat expects tuple operands")
		}
		return ir.TupleType(append(append([]ir.Base{}, l.Tuple...), r.Tuple...)...), nil

	case ir.GetExpr:
		src, err := c.check(e.GetSrc)
		if err != nil {
			return ir.Type{}, err
		}
		if src.Kind != ir.TupleT {
			return ir.Type{}, diag.AtNode(diag.TC002, uint32(e.ID), "Get expects a tuple, got %s", src)
		}
		if e.GetIdx < 0 || e.GetIdx >= len(src.Tuple) {
			return ir.Type{}, diag.AtNode(diag.TC003, uint32(e.ID), "index %d out of bounds for tuple of arity %d", e.GetIdx, len(src.Tuple))
		}
		return ir.Type{Kind: ir.BaseT, Base: src.Tuple[e.GetIdx]}, nil

	case ir.UopExpr:
		arg, err := c.check(e.UopArg)
		if err != nil {
			return ir.Type{}, err
		}
		if !arg.Equal(ir.BoolT) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "not expects bool, got %s", arg)
		}
		return ir.BoolT, nil

	case ir.BopExpr:
		return c.checkBop(e)

	case ir.TopExpr:
		return c.checkTop(e)

	case ir.AllocExpr:
		size, err := c.check(e.AllocSize)
		if err != nil {
			return ir.Type{}, err
		}
		if !size.Equal(ir.IntT) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "alloc size must be int, got %s", size)
		}
		state, err := c.check(e.AllocState)
		if err != nil {
			return ir.Type{}, err
		}
		if !state.Equal(ir.StateT) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "alloc expects a state operand, got %s", state)
		}
		return ir.TupleType(ir.Base{Kind: ir.Pointer, PointeeOf: e.AllocBase}, ir.Base{Kind: ir.State}), nil

	case ir.IfExpr:
		return c.checkIf(e)

	case ir.SwitchExpr:
		return c.checkSwitch(e)

	case ir.DoWhileExpr:
		return c.checkDoWhile(e)

	case ir.FunctionExpr:
		return c.checkFunction(e.ID)

	case ir.CallExpr:
		return c.checkCall(e)

	case ir.SymbolicExpr:
		return ir.Type{}, diag.AtNode(diag.TC005, uint32(e.ID), "symbolic placeholder %q in final program", e.SymbolicName)
	}
	return ir.Type{}, fmt.Errorf("unreachable expr kind %v", e.Kind)
}

func (c *Checker) checkBop(e *ir.Expr) (ir.Type, error) {
	l, err := c.check(e.BopL)
	if err != nil {
		return ir.Type{}, err
	}
	r, err := c.check(e.BopR)
	if err != nil {
		return ir.Type{}, err
	}

	expectEqual := func(want ir.Type) error {
		if !l.Equal(want) {
			return diag.AtNode(diag.TC001, uint32(e.ID), "%s expects %s, left operand is %s", e.BopOp, want, l)
		}
		if !r.Equal(want) {
			return diag.AtNode(diag.TC001, uint32(e.ID), "%s expects %s, right operand is %s", e.BopOp, want, r)
		}
		return nil
	}

	switch e.BopOp {
	case ir.Add, ir.Sub, ir.Mul, ir.Div, ir.Smax, ir.Smin, ir.Shl, ir.Shr:
		if err := expectEqual(ir.IntT); err != nil {
			return ir.Type{}, err
		}
		return ir.IntT, nil
	case ir.And, ir.Or:
		if err := expectEqual(ir.BoolT); err != nil {
			return ir.Type{}, err
		}
		return ir.BoolT, nil
	case ir.LessThan, ir.GreaterThan, ir.LessEq, ir.GreaterEq, ir.Eq:
		if err := expectEqual(ir.IntT); err != nil {
			return ir.Type{}, err
		}
		return ir.BoolT, nil
	case ir.FAdd, ir.FSub, ir.FMul, ir.FDiv, ir.Fmax, ir.Fmin:
		if err := expectEqual(ir.FloatT); err != nil {
			return ir.Type{}, err
		}
		return ir.FloatT, nil
	case ir.FEq, ir.FLessThan, ir.FGreaterThan, ir.FLessEq, ir.FGreaterEq:
		if err := expectEqual(ir.FloatT); err != nil {
			return ir.Type{}, err
		}
		return ir.BoolT, nil
	case ir.PtrAdd:
		if l.Kind != ir.BaseT || l.Base.Kind != ir.Pointer {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "ptradd expects a pointer, got %s", l)
		}
		if !r.Equal(ir.IntT) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "ptradd offset must be int, got %s", r)
		}
		return l, nil
	case ir.Load:
		if l.Kind != ir.BaseT || l.Base.Kind != ir.Pointer {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "load expects a pointer, got %s", l)
		}
		if !r.Equal(ir.StateT) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "load expects a state operand, got %s", r)
		}
		return ir.TupleType(ir.Base{Kind: l.Base.PointeeOf}, ir.Base{Kind: ir.State}), nil
	case ir.Print:
		if !r.Equal(ir.StateT) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "print expects a state operand, got %s", r)
		}
		return ir.StateT, nil
	case ir.Free:
		if l.Kind != ir.BaseT || l.Base.Kind != ir.Pointer {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "free expects a pointer, got %s", l)
		}
		if !r.Equal(ir.StateT) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "free expects a state operand, got %s", r)
		}
		return ir.StateT, nil
	}
	return ir.Type{}, fmt.Errorf("unreachable bop %v", e.BopOp)
}

func (c *Checker) checkTop(e *ir.Expr) (ir.Type, error) {
	switch e.TopOp {
	case ir.Write:
		p, err := c.check(e.TopA)
		if err != nil {
			return ir.Type{}, err
		}
		v, err := c.check(e.TopB)
		if err != nil {
			return ir.Type{}, err
		}
		s, err := c.check(e.TopC)
		if err != nil {
			return ir.Type{}, err
		}
		if p.Kind != ir.BaseT || p.Base.Kind != ir.Pointer {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "write expects a pointer, got %s", p)
		}
		if v.Kind != ir.BaseT || v.Base.Kind != p.Base.PointeeOf {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "write value type %s does not match pointee %s", v, p.Base.PointeeOf)
		}
		if !s.Equal(ir.StateT) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "write expects a state operand, got %s", s)
		}
		return ir.StateT, nil
	case ir.Select:
		cond, err := c.check(e.TopA)
		if err != nil {
			return ir.Type{}, err
		}
		if !cond.Equal(ir.BoolT) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "select predicate must be bool, got %s", cond)
		}
		thenTy, err := c.check(e.TopB)
		if err != nil {
			return ir.Type{}, err
		}
		elseTy, err := c.check(e.TopC)
		if err != nil {
			return ir.Type{}, err
		}
		if !thenTy.Equal(elseTy) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "select arms disagree: %s vs %s", thenTy, elseTy)
		}
		return thenTy, nil
	}
	return ir.Type{}, fmt.Errorf("unreachable top %v", e.TopOp)
}

func (c *Checker) checkRegionInputs(inputs []ir.NodeID) ([]ir.Base, error) {
	var bases []ir.Base
	for _, in := range inputs {
		t, err := c.check(in)
		if err != nil {
			return nil, err
		}
		if t.Kind != ir.BaseT {
			return nil, fmt.Errorf("region input must be base-typed, got %s", t)
		}
		bases = append(bases, t.Base)
	}
	return bases, nil
}

func (c *Checker) checkIf(e *ir.Expr) (ir.Type, error) {
	pred, err := c.check(e.IfPred)
	if err != nil {
		return ir.Type{}, err
	}
	if !pred.Equal(ir.BoolT) {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "if predicate must be bool, got %s", pred)
	}
	bases, err := c.checkRegionInputs(e.IfInputs)
	if err != nil {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "%v", err)
	}
	argTy := ir.TupleType(bases...)

	c.stack = append(c.stack, argTy)
	thenTy, err := c.check(e.IfThen)
	c.stack = c.stack[:len(c.stack)-1]
	if err != nil {
		return ir.Type{}, err
	}

	c.stack = append(c.stack, argTy)
	elseTy, err := c.check(e.IfElse)
	c.stack = c.stack[:len(c.stack)-1]
	if err != nil {
		return ir.Type{}, err
	}

	if !thenTy.Equal(elseTy) {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "if branches disagree: %s vs %s", thenTy, elseTy)
	}
	return thenTy, nil
}

func (c *Checker) checkSwitch(e *ir.Expr) (ir.Type, error) {
	pred, err := c.check(e.SwitchPred)
	if err != nil {
		return ir.Type{}, err
	}
	if !pred.Equal(ir.IntT) {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "switch predicate must be int, got %s", pred)
	}
	bases, err := c.checkRegionInputs(e.SwitchInputs)
	if err != nil {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "%v", err)
	}
	argTy := ir.TupleType(bases...)

	var branchTy ir.Type
	for i, br := range e.SwitchBranches {
		c.stack = append(c.stack, argTy)
		ty, err := c.check(br)
		c.stack = c.stack[:len(c.stack)-1]
		if err != nil {
			return ir.Type{}, err
		}
		if i == 0 {
			branchTy = ty
		} else if !ty.Equal(branchTy) {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "switch branch %d type %s disagrees with branch 0 type %s", i, ty, branchTy)
		}
	}
	return branchTy, nil
}

func (c *Checker) checkDoWhile(e *ir.Expr) (ir.Type, error) {
	bases, err := c.checkRegionInputs(e.DoWhileInputs)
	if err != nil {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "%v", err)
	}
	argTy := ir.TupleType(bases...)

	c.stack = append(c.stack, argTy)
	bodyTy, err := c.check(e.DoWhileBody)
	c.stack = c.stack[:len(c.stack)-1]
	if err != nil {
		return ir.Type{}, err
	}
	if bodyTy.Kind != ir.TupleT || len(bodyTy.Tuple) != len(bases)+1 {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "dowhile body must return Tuple([Bool, ...inputs]), got %s", bodyTy)
	}
	if bodyTy.Tuple[0].Kind != ir.Bool {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "dowhile body's first result must be bool, got %s", bodyTy.Tuple[0])
	}
	for i, b := range bases {
		if bodyTy.Tuple[i+1] != b {
			return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "dowhile body result %d type %s does not match input type %s", i, bodyTy.Tuple[i+1], b)
		}
	}
	return ir.TupleType(bases...), nil
}

func (c *Checker) checkCall(e *ir.Expr) (ir.Type, error) {
	sig, ok := c.funcTypes[e.CallName]
	if !ok {
		return ir.Type{}, diag.AtNode(diag.TC006, uint32(e.ID), "call to undeclared function %q", e.CallName)
	}
	bases, err := c.checkRegionInputs(e.CallArgs)
	if err != nil {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "%v", err)
	}
	argTy := ir.TupleType(bases...)
	if !argTy.Equal(sig.in) {
		return ir.Type{}, diag.AtNode(diag.TC001, uint32(e.ID), "call to %q: argument type %s does not match parameter type %s", e.CallName, argTy, sig.in)
	}
	return sig.out, nil
}
