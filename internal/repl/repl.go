// Package repl is the interactive front end: load one Bril JSON program
// once, then repeatedly extract, emit, and interpret it against
// line-edited input (github.com/peterh/liner for history and line
// editing, github.com/fatih/color for the prompt/error palette).
package repl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/egraphs-good/eggcc-go/internal/bril"
	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/config"
	"github.com/egraphs-good/eggcc-go/internal/interp"
	"github.com/egraphs-good/eggcc-go/internal/pipeline"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// REPL holds the one loaded program (if any) and the extractor settings
// the loaded commands act against.
type REPL struct {
	version string
	cfg     config.Config

	wire       *bril.Program
	built      *cfg.Program // bril.Build output, before restructuring
	path       string
	emitFormat string
}

// New creates a REPL with default extractor settings.
func New(version string) *REPL {
	if version == "" {
		version = "dev"
	}
	return &REPL{version: version, cfg: config.Default(), emitFormat: "bril"}
}

func (r *REPL) prompt() string {
	if r.path == "" {
		return "eggcc> "
	}
	return fmt.Sprintf("eggcc[%s]> ", filepath.Base(r.path))
}

// Start runs the read-eval-print loop against in/out until the user quits
// or in hits EOF: a liner instance with a persisted history file, a
// completer over the colon commands, and one HandleCommand call per line.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	historyFile := filepath.Join(os.TempDir(), ".eggcc_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintf(out, "%s %s\n", bold("eggcc"), bold(r.version))
	fmt.Fprintln(out, "Type :help for commands, :quit to exit")

	line.SetCompleter(func(s string) (c []string) {
		if !strings.HasPrefix(s, ":") {
			return nil
		}
		for _, cmd := range []string{":help", ":quit", ":load", ":interp", ":extract", ":emit", ":set"} {
			if strings.HasPrefix(cmd, s) {
				c = append(c, cmd)
			}
		}
		return
	})

	for {
		input, err := line.Prompt(r.prompt())
		if err == io.EOF {
			fmt.Fprintln(out, green("goodbye"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == ":quit" || input == ":q" {
			fmt.Fprintln(out, green("goodbye"))
			break
		}
		if strings.HasPrefix(input, ":") {
			r.handleCommand(input, out)
			continue
		}
		fmt.Fprintf(out, "%s: expressions aren't accepted directly, use a colon command\n", yellow("note"))
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func (r *REPL) handleCommand(input string, out io.Writer) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case ":help":
		r.printHelp(out)
	case ":load":
		r.cmdLoad(args, out)
	case ":interp":
		r.cmdInterp(args, out)
	case ":extract":
		r.cmdExtract(args, out)
	case ":emit":
		r.cmdEmit(args, out)
	case ":set":
		r.cmdSet(args, out)
	default:
		fmt.Fprintf(out, "%s: unknown command %q, try :help\n", red("error"), cmd)
	}
}

func (r *REPL) printHelp(out io.Writer) {
	fmt.Fprintln(out, cyan(":load <path>")+"          load a Bril JSON program")
	fmt.Fprintln(out, cyan(":interp <func> [arg]")+"  run the oracle interpreter on a loaded function")
	fmt.Fprintln(out, cyan(":extract")+"              run the full pipeline and print the extracted program")
	fmt.Fprintln(out, cyan(":emit <bril|dag-ir|rvsdg-dot>")+" pick :extract's output format")
	fmt.Fprintln(out, cyan(":set extract <greedy|ilp>")+"    pick the extractor")
	fmt.Fprintln(out, cyan(":quit")+"                  exit")
}

func (r *REPL) cmdLoad(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage :load <path>\n", red("error"))
		return
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	var wire bril.Program
	if err := json.Unmarshal(bril.Normalize(data), &wire); err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	if err := bril.Validate(&wire); err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	built, err := bril.Build(&wire)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	r.wire, r.built, r.path = &wire, built, args[0]
	fmt.Fprintf(out, "%s loaded %d function(s) from %s\n", green("ok"), len(wire.Functions), args[0])
}

func (r *REPL) cmdInterp(args []string, out io.Writer) {
	if r.built == nil {
		fmt.Fprintf(out, "%s: no program loaded, try :load\n", red("error"))
		return
	}
	if len(args) < 1 {
		fmt.Fprintf(out, "%s: usage :interp <func> [arg]\n", red("error"))
		return
	}
	built, err := bril.Build(r.wire)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	dag, err := pipeline.ToDagIR(pipeline.Frontend(built))
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	arg := interp.TupleV(interp.StateV())
	if len(args) > 1 {
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			return
		}
		arg = interp.TupleV(interp.IntV(n), interp.StateV())
	}
	res, err := interp.InterpretProgram(dag, args[0], arg)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	fmt.Fprintf(out, "%s %s\n", cyan("=>"), res.Value)
	for _, line := range res.Log {
		fmt.Fprintln(out, line)
	}
}

func (r *REPL) cmdExtract(args []string, out io.Writer) {
	if r.built == nil {
		fmt.Fprintf(out, "%s: no program loaded, try :load\n", red("error"))
		return
	}
	built, err := bril.Build(r.wire)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	final, optimized, err := pipeline.Compile(built, r.cfg)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	switch r.emitFormat {
	case "dag-ir":
		fmt.Fprint(out, pipeline.DumpDagIR(optimized))
	case "rvsdg-dot":
		rv, err := pipeline.ToRVSDG(optimized)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			return
		}
		fmt.Fprint(out, pipeline.DumpRVSDGDot(rv))
	default:
		data, err := json.MarshalIndent(bril.Emit(final), "", "  ")
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			return
		}
		fmt.Fprintln(out, string(data))
	}
}

func (r *REPL) cmdEmit(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage :emit <bril|dag-ir|rvsdg-dot>\n", red("error"))
		return
	}
	switch args[0] {
	case "bril", "dag-ir", "rvsdg-dot":
		r.emitFormat = args[0]
		fmt.Fprintf(out, "%s output format set to %s\n", green("ok"), args[0])
	default:
		fmt.Fprintf(out, "%s: unknown format %q\n", red("error"), args[0])
	}
}

func (r *REPL) cmdSet(args []string, out io.Writer) {
	if len(args) != 2 || args[0] != "extract" {
		fmt.Fprintf(out, "%s: usage :set extract <greedy|ilp>\n", red("error"))
		return
	}
	switch config.ExtractMode(args[1]) {
	case config.ExtractGreedy, config.ExtractILP:
		r.cfg.Extract = config.ExtractMode(args[1])
		fmt.Fprintf(out, "%s extractor set to %s\n", green("ok"), args[1])
	default:
		fmt.Fprintf(out, "%s: unknown extract mode %q\n", red("error"), args[1])
	}
}
