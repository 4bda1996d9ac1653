package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lookbusy1344/shitty-vm/config"
	"github.com/lookbusy1344/shitty-vm/debugger"
	"github.com/lookbusy1344/shitty-vm/loader"
	"github.com/lookbusy1344/shitty-vm/tools"
	"github.com/lookbusy1344/shitty-vm/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "-version", "--version":
		printVersion()
		os.Exit(0)
	case "-help", "--help", "-h":
		printHelp()
		os.Exit(0)
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "compile":
		os.Exit(cmdCompile(os.Args[2:]))
	case "exec":
		os.Exit(cmdExec(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "lint":
		os.Exit(cmdLint(os.Args[2:]))
	case "xref":
		os.Exit(cmdXref(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "shitty: unknown subcommand %q\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("shitty %s\n", Version)
	if Commit != "unknown" {
		fmt.Printf("Commit: %s\n", Commit)
	}
	if Date != "unknown" {
		fmt.Printf("Built: %s\n", Date)
	}
}

func printHelp() {
	fmt.Print(`shitty - toy assembly/script toolchain and register VM

Usage:
  shitty run [-f file | source] [flags]   parse and execute assembly, script, or container source
  shitty compile -o out.shc <source>      parse a source file and write a compiled container
  shitty exec <container>                 execute a compiled container
  shitty fmt|lint|xref <source>           developer tools, see below
  shitty -version                         show version information
  shitty -help                            show this help

Source form is chosen by file extension: .shc is a compiled container,
.shs is script source, anything else is assembly text.

Common flags (run, exec):
  -truncate        truncate r0 to 8 bits and use it as the process exit code
  -max-ticks N      override the configured tick limit (0 = use config default)
  -trace            write a line-oriented execution trace to stderr
  -trace-format fmt  "text" or "json" (default from config)
  -debug             start the line-oriented debugger instead of running directly
  -tui               start the tview debugger instead of running directly

run-only flags:
  -f file            read source from file instead of the positional argument

compile flags:
  -o file            output path for the compiled container (required)

Developer tools:
  shitty fmt [-compact] <source>    pretty-print assembly source
  shitty lint <source>              run structural checks over assembly source
  shitty xref <source>              print a label cross-reference table
`)
}

func cmdFmt(args []string) int {
	fs := flag.NewFlagSet("fmt", flag.ExitOnError)
	compact := fs.Bool("compact", false, "use compact formatting (minimal whitespace)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "shitty fmt: missing source file")
		return 1
	}

	prog, err := loader.LoadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "shitty fmt: %v\n", err)
		return 1
	}

	opts := tools.DefaultFormatOptions()
	if *compact {
		opts = tools.CompactFormatOptions()
	}
	fmt.Print(tools.Format(prog, opts))
	return 0
}

func cmdLint(args []string) int {
	fs := flag.NewFlagSet("lint", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "shitty lint: missing source file")
		return 1
	}

	prog, err := loader.LoadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "shitty lint: %v\n", err)
		return 1
	}

	issues := tools.Lint(prog, nil)
	exitCode := 0
	for _, issue := range issues {
		fmt.Println(issue.String())
		if issue.Level == tools.LintError {
			exitCode = 1
		}
	}
	return exitCode
}

func cmdXref(args []string) int {
	fs := flag.NewFlagSet("xref", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "shitty xref: missing source file")
		return 1
	}

	prog, err := loader.LoadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "shitty xref: %v\n", err)
		return 1
	}

	fmt.Print(tools.Report(tools.CrossReference(prog)))
	return 0
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	file := fs.String("f", "", "source file (alternative to positional argument)")
	truncate := fs.Bool("truncate", false, "truncate r0 to 8 bits and use it as the process exit code")
	maxTicks := fs.Uint64("max-ticks", 0, "override the configured tick limit (0 = use config default)")
	trace := fs.Bool("trace", false, "write a line-oriented execution trace to stderr")
	traceFormat := fs.String("trace-format", "", "trace format: text or json (default from config)")
	debugMode := fs.Bool("debug", false, "start the line-oriented debugger")
	tuiMode := fs.Bool("tui", false, "start the tview debugger")
	_ = fs.Parse(args)

	path := *file
	if path == "" && fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "shitty run: no source given (positional argument or -f)")
		return 1
	}

	prog, err := loader.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shitty run: %v\n", err)
		return 1
	}

	return execute(prog, runOptions{
		truncate:    *truncate,
		maxTicks:    *maxTicks,
		trace:       *trace,
		traceFormat: *traceFormat,
		debugMode:   *debugMode,
		tuiMode:     *tuiMode,
	})
}

func cmdCompile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	out := fs.String("o", "", "output path for the compiled container (required)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "shitty compile: missing source file")
		return 1
	}
	if *out == "" {
		fmt.Fprintln(os.Stderr, "shitty compile: -o is required")
		return 1
	}

	path := fs.Arg(0)
	prog, err := loader.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shitty compile: %v\n", err)
		return 1
	}

	f, err := os.Create(filepath.Clean(*out))
	if err != nil {
		fmt.Fprintf(os.Stderr, "shitty compile: %v\n", err)
		return 1
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := loader.SaveContainer(w, prog); err != nil {
		fmt.Fprintf(os.Stderr, "shitty compile: %v\n", err)
		return 1
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "shitty compile: %v\n", err)
		return 1
	}

	return 0
}

func cmdExec(args []string) int {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	truncate := fs.Bool("truncate", false, "truncate r0 to 8 bits and use it as the process exit code")
	maxTicks := fs.Uint64("max-ticks", 0, "override the configured tick limit (0 = use config default)")
	trace := fs.Bool("trace", false, "write a line-oriented execution trace to stderr")
	traceFormat := fs.String("trace-format", "", "trace format: text or json (default from config)")
	debugMode := fs.Bool("debug", false, "start the line-oriented debugger")
	tuiMode := fs.Bool("tui", false, "start the tview debugger")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "shitty exec: missing container path")
		return 1
	}

	f, err := os.Open(filepath.Clean(fs.Arg(0)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "shitty exec: %v\n", err)
		return 1
	}
	defer f.Close()

	prog, err := loader.LoadContainer(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shitty exec: %v\n", err)
		return 1
	}

	return execute(prog, runOptions{
		truncate:    *truncate,
		maxTicks:    *maxTicks,
		trace:       *trace,
		traceFormat: *traceFormat,
		debugMode:   *debugMode,
		tuiMode:     *tuiMode,
	})
}

type runOptions struct {
	truncate    bool
	maxTicks    uint64
	trace       bool
	traceFormat string
	debugMode   bool
	tuiMode     bool
}

// execute constructs a Machine from prog and either hands it to a
// debugger or runs it to completion, applying config defaults for
// anything the caller's flags left unset.
func execute(prog *vm.Program, opts runOptions) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shitty: loading config: %v\n", err)
		return 1
	}

	machine := loader.NewMachine(prog)

	if opts.debugMode || opts.tuiMode {
		dbg := debugger.NewDebuggerWithConfig(machine, cfg)
		if opts.tuiMode {
			if err := debugger.RunTUI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "shitty: debugger: %v\n", err)
				return 1
			}
			return 0
		}
		if err := debugger.RunCLI(dbg); err != nil {
			fmt.Fprintf(os.Stderr, "shitty: debugger: %v\n", err)
			return 1
		}
		return 0
	}

	maxTicks := cfg.Execution.MaxTicks
	if opts.maxTicks > 0 {
		maxTicks = opts.maxTicks
	}

	enableTrace := cfg.Execution.EnableTrace || opts.trace
	traceFormat := cfg.Execution.TraceFormat
	if opts.traceFormat != "" {
		traceFormat = opts.traceFormat
	}

	var traceWriter *bufio.Writer
	if enableTrace {
		traceWriter = bufio.NewWriter(os.Stderr)
		defer traceWriter.Flush()
		machine.Trace = newTraceFunc(traceWriter, traceFormat)
	}

	var ticks uint64
	machine.State = vm.StateRunning
	for machine.State == vm.StateRunning {
		if maxTicks > 0 && ticks >= maxTicks {
			fmt.Fprintf(os.Stderr, "shitty: tick limit (%d) exceeded\n", maxTicks)
			return 1
		}
		if err := machine.Tick(); err != nil {
			fmt.Fprintf(os.Stderr, "shitty: %v\n", err)
			return 1
		}
		ticks++
	}

	if machine.State == vm.StateFailed {
		fmt.Fprintf(os.Stderr, "shitty: %v\n", machine.Err)
		return 1
	}

	if opts.truncate {
		width := cfg.Execution.ExitTruncate
		if width <= 0 || width > 64 {
			width = 8
		}
		mask := vm.Integer(1)<<uint(width) - 1
		return int(machine.Output() & mask)
	}

	fmt.Println(machine.Output())
	return 0
}

// traceEntry is the JSON shape of one -trace-format=json record.
type traceEntry struct {
	Tick int64  `json:"tick"`
	Kind string `json:"kind"`
	Arg0 string `json:"arg0,omitempty"`
	Arg1 string `json:"arg1,omitempty"`
}

// newTraceFunc builds the Machine.Trace callback for the requested
// format, one line per executed instruction, flushed by the caller
// once the run completes.
func newTraceFunc(w *bufio.Writer, format string) func(pc int64, cmd vm.Command) {
	if format == "json" {
		enc := json.NewEncoder(w)
		return func(pc int64, cmd vm.Command) {
			entry := traceEntry{Tick: pc, Kind: cmd.Kind.String()}
			if cmd.Arg0.Kind != vm.ArgNone {
				entry.Arg0 = cmd.Arg0.String()
			}
			if cmd.Arg1.Kind != vm.ArgNone {
				entry.Arg1 = cmd.Arg1.String()
			}
			_ = enc.Encode(entry)
		}
	}
	return func(pc int64, cmd vm.Command) {
		fmt.Fprintf(w, "%6d  %-10s %s %s\n", pc, cmd.Kind, cmd.Arg0.String(), cmd.Arg1.String())
	}
}
