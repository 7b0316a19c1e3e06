// Command teascript is the CLI host that exercises the embedding API
// (pkg/embed) end to end, mirroring cmd/funxy/main.go's shape: flag
// handling, stdin/file dispatch, a REPL for interactive terminals, and
// an optional run-history log.
//
// Usage:
//
//	teascript script.tea              run a file
//	teascript -e "1 + 2"              evaluate an expression
//	teascript -c script.tea           compile to a .tsb image
//	teascript -r script.tsb           run a compiled image
//	teascript -history runs.db ...    append a run record to a SQLite log
//	teascript                         REPL (interactive) or read stdin (piped)
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/tsvm-lang/teascript/internal/config"
	"github.com/tsvm-lang/teascript/internal/parserstate"
	"github.com/tsvm-lang/teascript/internal/program"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/tsvm"
	"github.com/tsvm-lang/teascript/pkg/embed"
)

func main() {
	args := os.Args[1:]

	var historyPath, configPath string
	var compileOut, runCompiled, evalExpr string
	var rest []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-history":
			if i+1 >= len(args) {
				fatalf("-history requires a path")
			}
			i++
			historyPath = args[i]
		case "-config":
			if i+1 >= len(args) {
				fatalf("-config requires a path")
			}
			i++
			configPath = args[i]
		case "-c", "--compile":
			if i+1 >= len(args) {
				fatalf("-c requires a source file")
			}
			i++
			compileOut = args[i]
		case "-r", "--run":
			if i+1 >= len(args) {
				fatalf("-r requires a .tsb file")
			}
			i++
			runCompiled = args[i]
		case "-e", "--eval":
			if i+1 >= len(args) {
				fatalf("-e requires an expression")
			}
			i++
			evalExpr = args[i]
		default:
			rest = append(rest, args[i])
		}
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	var hist *historyLog
	if historyPath != "" {
		h, err := openHistoryLog(historyPath)
		if err != nil {
			fatalf("opening history log: %v", err)
		}
		defer h.Close()
		hist = h
	}

	switch {
	case compileOut != "":
		runCompileMode(cfg, compileOut)
	case runCompiled != "":
		runCompiledMode(cfg, runCompiled, hist)
	case evalExpr != "":
		runEvalMode(cfg, evalExpr, hist)
	case len(rest) >= 1:
		runFileMode(cfg, rest[0], hist)
	default:
		runInteractiveOrStdin(cfg, hist)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runFileMode(cfg config.Bootstrap, path string, hist *historyLog) {
	vm := embed.New(cfg)
	start := time.Now()
	result, err := vm.LoadFile(path)
	record(hist, path, program.OptO0, start, resultState(err), err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	if !result.IsNaV() {
		fmt.Println(result.String())
	}
}

func runEvalMode(cfg config.Bootstrap, expr string, hist *historyLog) {
	if cfg.OptOuts.NoEval {
		fatalf("eval disabled by bootstrap configuration")
	}
	vm := embed.New(cfg)
	start := time.Now()
	result, err := vm.Eval("<eval>", expr)
	record(hist, "<eval>", program.OptO0, start, resultState(err), err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Println(result.String())
}

func runCompileMode(cfg config.Bootstrap, sourcePath string) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		fatalf("reading %s: %v", sourcePath, err)
	}
	vm := embed.New(cfg)
	root, err := vm.Parse(sourcePath, string(data))
	if err != nil {
		fatalf("parse error: %v", err)
	}
	prog, err := vm.Compile(root, sourcePath, program.OptO1)
	if err != nil {
		fatalf("compile error: %v", err)
	}
	outPath := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + ".tsb"
	f, err := os.Create(outPath)
	if err != nil {
		fatalf("creating %s: %v", outPath, err)
	}
	defer f.Close()
	if err := prog.Save(f); err != nil {
		fatalf("saving %s: %v", outPath, err)
	}
	fmt.Printf("Compiled %s -> %s\n", sourcePath, outPath)
}

func runCompiledMode(cfg config.Bootstrap, path string, hist *historyLog) {
	f, err := os.Open(path)
	if err != nil {
		fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	prog, err := program.Load(f)
	if err != nil {
		fatalf("loading %s: %v", path, err)
	}
	vm := embed.New(cfg)
	start := time.Now()
	result, err := vm.Run(prog, tsvm.Unlimited)
	record(hist, path, prog.OptLevel, start, resultState(err), err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	if !result.IsNaV() {
		fmt.Println(result.String())
	}
}

// runInteractiveOrStdin dispatches between the REPL (stdin is a
// terminal) and a one-shot read of a piped script, the same
// go-isatty-gated prompt behavior cmd/funxy/main.go uses.
func runInteractiveOrStdin(cfg config.Bootstrap, hist *historyLog) {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		runREPL(cfg, hist)
		return
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatalf("reading stdin: %v", err)
	}
	vm := embed.New(cfg)
	start := time.Now()
	result, err := vm.Eval("<stdin>", string(data))
	record(hist, "<stdin>", program.OptO0, start, resultState(err), err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	if !result.IsNaV() {
		fmt.Println(result.String())
	}
}

func resultState(err error) string {
	if err == nil {
		return "finished"
	}
	if te, ok := err.(*teaerr.Error); ok {
		return "error:" + te.Kind.String()
	}
	return "error"
}

func record(hist *historyLog, name string, level program.OptLevel, start time.Time, state string, runErr error) {
	if hist == nil {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := hist.Append(runRecord{
		Name:      name,
		OptLevel:  level.String(),
		StartedAt: start,
		EndedAt:   time.Now(),
		State:     state,
		ErrorMsg:  msg,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write run history: %v\n", err)
	}
}

// runREPL drives a read-compile-run loop over stdin, using a
// parserstate.State to buffer multi-line input until a statement
// closes, supporting incremental/partial parsing with open-statement
// detection.
func runREPL(cfg config.Bootstrap, hist *historyLog) {
	vm := embed.New(cfg)
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Println("teascript REPL — ctrl-d to exit")
	state := parserstate.New("<repl>")
	for {
		if !state.IsOpenStatement() {
			fmt.Print("> ")
		} else {
			fmt.Print("... ")
		}
		if !in.Scan() {
			fmt.Println()
			return
		}
		state.Feed(in.Text() + "\n")
		root, ok, err := state.TryParse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			state.Reset()
			continue
		}
		if !ok {
			continue
		}
		start := time.Now()
		prog, err := vm.Compile(root, "<repl>", program.OptO0)
		if err != nil {
			record(hist, "<repl>", program.OptO0, start, resultState(err), err)
			fmt.Fprintf(os.Stderr, "%s\n", err)
			continue
		}
		result, err := vm.Run(prog, tsvm.Unlimited)
		record(hist, "<repl>", program.OptO0, start, resultState(err), err)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			continue
		}
		if !result.IsNaV() {
			fmt.Println(result.String())
		}
	}
}
