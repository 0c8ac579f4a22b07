package pipeline

import (
	"fmt"
	"strings"

	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rvsdg"
)

// DumpDagIR renders every extracted function as an indented tree, one node
// per line, between a "(Function name" line and a closing ")" line, for
// --emit=dag-ir. This is debug
// text, not a machine-readable wire format anything reads back in, so a
// flat textual dump is all --emit=dag-ir promises.
func DumpDagIR(optimized []Optimized) string {
	var b strings.Builder
	for _, o := range optimized {
		fmt.Fprintf(&b, "(Function %s\n", o.Name)
		fn := o.Program.Arena.Get(o.Program.Func(o.Name))
		dumpExpr(&b, o.Program.Arena, fn.FuncBody, 1)
		b.WriteString(")\n")
	}
	return b.String()
}

func dumpExpr(b *strings.Builder, arena *ir.Arena, id ir.NodeID, depth int) {
	indent := strings.Repeat("  ", depth)
	e := arena.Get(id)
	switch e.Kind {
	case ir.ConstExpr:
		fmt.Fprintf(b, "%s(Const %s)\n", indent, e.Const)
	case ir.ArgExpr:
		fmt.Fprintf(b, "%sArg\n", indent)
	case ir.EmptyExpr:
		fmt.Fprintf(b, "%sEmpty\n", indent)
	case ir.SingleExpr:
		fmt.Fprintf(b, "%sSingle\n", indent)
		dumpExpr(b, arena, e.Single, depth+1)
	case ir.ConcatExpr:
		fmt.Fprintf(b, "%sConcat\n", indent)
		dumpExpr(b, arena, e.ConcatL, depth+1)
		dumpExpr(b, arena, e.ConcatR, depth+1)
	case ir.GetExpr:
		fmt.Fprintf(b, "%sGet[%d]\n", indent, e.GetIdx)
		dumpExpr(b, arena, e.GetSrc, depth+1)
	case ir.UopExpr:
		fmt.Fprintf(b, "%s%s\n", indent, e.UopOp)
		dumpExpr(b, arena, e.UopArg, depth+1)
	case ir.BopExpr:
		fmt.Fprintf(b, "%s%s\n", indent, e.BopOp)
		dumpExpr(b, arena, e.BopL, depth+1)
		dumpExpr(b, arena, e.BopR, depth+1)
	case ir.TopExpr:
		fmt.Fprintf(b, "%s%s\n", indent, e.TopOp)
		dumpExpr(b, arena, e.TopA, depth+1)
		dumpExpr(b, arena, e.TopB, depth+1)
		dumpExpr(b, arena, e.TopC, depth+1)
	case ir.AllocExpr:
		fmt.Fprintf(b, "%sAlloc[site=%d]\n", indent, e.AllocSiteID)
		dumpExpr(b, arena, e.AllocSize, depth+1)
		dumpExpr(b, arena, e.AllocState, depth+1)
	case ir.IfExpr:
		fmt.Fprintf(b, "%sIf\n", indent)
		dumpExpr(b, arena, e.IfPred, depth+1)
		for _, in := range e.IfInputs {
			dumpExpr(b, arena, in, depth+1)
		}
		fmt.Fprintf(b, "%sthen:\n", indent)
		dumpExpr(b, arena, e.IfThen, depth+1)
		fmt.Fprintf(b, "%selse:\n", indent)
		dumpExpr(b, arena, e.IfElse, depth+1)
	case ir.SwitchExpr:
		fmt.Fprintf(b, "%sSwitch\n", indent)
		dumpExpr(b, arena, e.SwitchPred, depth+1)
		for _, in := range e.SwitchInputs {
			dumpExpr(b, arena, in, depth+1)
		}
		for i, br := range e.SwitchBranches {
			fmt.Fprintf(b, "%sbranch[%d]:\n", indent, i)
			dumpExpr(b, arena, br, depth+1)
		}
	case ir.DoWhileExpr:
		fmt.Fprintf(b, "%sDoWhile\n", indent)
		for _, in := range e.DoWhileInputs {
			dumpExpr(b, arena, in, depth+1)
		}
		dumpExpr(b, arena, e.DoWhileBody, depth+1)
	case ir.FunctionExpr:
		fmt.Fprintf(b, "%sFunction %s\n", indent, e.FuncName)
		dumpExpr(b, arena, e.FuncBody, depth+1)
	case ir.CallExpr:
		fmt.Fprintf(b, "%sCall %s\n", indent, e.CallName)
		for _, a := range e.CallArgs {
			dumpExpr(b, arena, a, depth+1)
		}
	case ir.SymbolicExpr:
		fmt.Fprintf(b, "%sSymbolic %s\n", indent, e.SymbolicName)
	}
}

// DumpRVSDGDot renders an RVSDG program as Graphviz dot, one cluster per
// function (nested regions are drawn inside their function's cluster), for
// --emit=rvsdg-dot.
func DumpRVSDGDot(prog *rvsdg.Program) string {
	var b strings.Builder
	b.WriteString("digraph rvsdg {\n")
	for fi, f := range prog.Functions {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n    label=%q;\n", fi, f.Name)
		dumpRegionDot(&b, fmt.Sprintf("f%d", fi), f.Body)
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func dumpRegionDot(b *strings.Builder, prefix string, r *rvsdg.Region) {
	for i, node := range r.Nodes {
		nodeName := fmt.Sprintf("%s_n%d", prefix, i)
		label := bodyLabel(node)
		fmt.Fprintf(b, "    %s [label=%q];\n", nodeName, label)
		for _, op := range node.Args {
			if ref, ok := operandNode(prefix, op); ok {
				fmt.Fprintf(b, "    %s -> %s;\n", ref, nodeName)
			}
		}
		for _, op := range node.Inputs {
			if ref, ok := operandNode(prefix, op); ok {
				fmt.Fprintf(b, "    %s -> %s;\n", ref, nodeName)
			}
		}
		if ref, ok := operandNode(prefix, node.Pred); node.Kind != rvsdg.BasicOpBody && ok {
			fmt.Fprintf(b, "    %s -> %s [label=pred];\n", ref, nodeName)
		}
		for bi, branch := range node.Branches {
			branchPrefix := fmt.Sprintf("%s_n%d_b%d", prefix, i, bi)
			dumpRegionDot(b, branchPrefix, branch)
		}
		if node.LoopBody != nil {
			dumpRegionDot(b, fmt.Sprintf("%s_n%d_loop", prefix, i), node.LoopBody)
		}
	}
}

func bodyLabel(b *rvsdg.Body) string {
	switch b.Kind {
	case rvsdg.GammaBody:
		return "Gamma"
	case rvsdg.ThetaBody:
		return "Theta"
	default:
		return string(b.Op)
	}
}

func operandNode(prefix string, op rvsdg.Operand) (string, bool) {
	switch op.Kind {
	case rvsdg.IdOperand, rvsdg.ProjectOperand:
		return fmt.Sprintf("%s_n%d", prefix, op.Node), true
	default:
		return "", false
	}
}
