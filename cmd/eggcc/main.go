// Command eggcc is the whole-program optimizing compiler's CLI:
// flag-based subcommand dispatch via flag.Arg(0), colored-output helpers,
// and one handler function per subcommand.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/egraphs-good/eggcc-go/internal/bril"
	"github.com/egraphs-good/eggcc-go/internal/config"
	"github.com/egraphs-good/eggcc-go/internal/interp"
	"github.com/egraphs-good/eggcc-go/internal/pipeline"
	"github.com/egraphs-good/eggcc-go/internal/repl"
)

// Set via -ldflags at release build time; "dev" otherwise.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	flag.Usage = printHelp
	flag.Parse()

	switch flag.Arg(0) {
	case "", "help":
		printHelp()
	case "version":
		printVersion()
	case "compile":
		compileCmd(flag.Args()[1:])
	case "check":
		checkCmd(flag.Args()[1:])
	case "run":
		runCmd(flag.Args()[1:])
	case "repl":
		repl.New(Version).Start(os.Stdin, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("error"), flag.Arg(0))
		printHelp()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("%s %s (commit %s, built %s)\n", bold("eggcc"), Version, Commit, BuildTime)
}

func printHelp() {
	fmt.Println(bold("eggcc") + " - whole-program optimizing compiler over a region-structured IR")
	fmt.Println()
	fmt.Println("Usage: eggcc <command> [flags] <file.json>")
	fmt.Println()
	fmt.Println(cyan("Commands:"))
	fmt.Println("  compile   run the full saturation/extraction pipeline and emit the result")
	fmt.Println("  check     parse, restructure, lift, and type-check without extracting")
	fmt.Println("  run       interpret one function with the oracle evaluator")
	fmt.Println("  repl      start an interactive session")
	fmt.Println("  version   print version information")
	fmt.Println("  help      print this message")
	fmt.Println()
	fmt.Println(cyan("compile flags:"))
	fmt.Println("  -extract=greedy|ilp    extractor to run (default greedy)")
	fmt.Println("  -ilp-timeout=<seconds> ILP extractor wall-clock budget (default 10)")
	fmt.Println("  -emit=bril|rvsdg-dot|dag-ir  output format (default bril)")
	fmt.Println("  -config=<path>         load extractor/ruleset settings from a YAML file")
	fmt.Println()
	fmt.Println(cyan("run flags:"))
	fmt.Println("  -func=<name>  function to interpret (default main)")
	fmt.Println("  -arg=<int>    integer argument passed to the function")
}

func loadWire(path string) (*bril.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var wire bril.Program
	if err := json.Unmarshal(bril.Normalize(data), &wire); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := bril.Validate(&wire); err != nil {
		return nil, err
	}
	return &wire, nil
}

func compileCmd(args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	extract := fs.String("extract", "greedy", "extractor: greedy|ilp")
	ilpTimeout := fs.Float64("ilp-timeout", 10, "ILP extractor wall-clock budget, in seconds")
	emit := fs.String("emit", "bril", "output format: bril|rvsdg-dot|dag-ir")
	configPath := fs.String("config", "", "YAML run configuration overriding the above flags")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s: usage: eggcc compile [flags] <file.json>\n", red("error"))
		os.Exit(1)
	}

	cfg := config.Config{Extract: config.ExtractMode(*extract), ILPTimeoutSeconds: *ilpTimeout, RuleSet: "default", Schedule: "default"}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	wire, err := loadWire(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	built, err := bril.Build(wire)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}

	final, optimized, err := pipeline.Compile(built, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}

	switch *emit {
	case "dag-ir":
		fmt.Print(pipeline.DumpDagIR(optimized))
	case "rvsdg-dot":
		rv, err := pipeline.ToRVSDG(optimized)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
			os.Exit(1)
		}
		fmt.Print(pipeline.DumpRVSDGDot(rv))
	case "bril":
		data, err := json.MarshalIndent(bril.Emit(final), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown -emit value %q\n", red("error"), *emit)
		os.Exit(1)
	}
}

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s: usage: eggcc check <file.json>\n", red("error"))
		os.Exit(1)
	}
	wire, err := loadWire(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	built, err := bril.Build(wire)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	if _, err := pipeline.ToDagIR(pipeline.Frontend(built)); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	fmt.Println(green("ok") + ": restructuring, RVSDG lifting, and type checking all succeeded")
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	funcName := fs.String("func", "main", "function to interpret")
	argVal := fs.Int64("arg", 0, "integer argument passed to the function")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s: usage: eggcc run [flags] <file.json>\n", red("error"))
		os.Exit(1)
	}
	wire, err := loadWire(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	built, err := bril.Build(wire)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	dag, err := pipeline.ToDagIR(pipeline.Frontend(built))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	arg := interp.TupleV(interp.StateV())
	for _, id := range dag.Functions {
		if e := dag.Arena.Get(id); e.FuncName == *funcName && len(e.FuncInTy.Tuple) > 1 {
			arg = interp.TupleV(interp.IntV(*argVal), interp.StateV())
		}
	}
	res, err := interp.InterpretProgram(dag, *funcName, arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
	for _, line := range res.Log {
		fmt.Println(line)
	}
	fmt.Printf("%s %s\n", cyan("=>"), res.Value)
}
