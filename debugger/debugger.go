package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/shitty-vm/config"
	"github.com/lookbusy1344/shitty-vm/vm"
)

// Debugger represents the debugger state and functionality
type Debugger struct {
	Machine *vm.Machine

	// Breakpoint management
	Breakpoints *BreakpointManager

	// Watchpoint management
	Watchpoints *WatchpointManager

	// Command history
	History *CommandHistory

	// Expression evaluator
	Evaluator *ExpressionEvaluator

	// Execution control
	Running           bool
	StepMode          StepMode
	StepOverCallDepth int   // Track call depth for step over
	StepOverPC        int64 // PC to return to after step over

	// Symbol table (label name -> line index), built from the loaded
	// program's Label instructions.
	Symbols map[string]int64

	// Last command (for repeat on empty input)
	LastCommand string

	// Output buffer
	Output strings.Builder
}

// StepMode represents different stepping modes
type StepMode int

const (
	StepNone   StepMode = iota // Not stepping
	StepSingle                 // Step one instruction
	StepOver                   // Step over function calls
	StepOut                    // Step out of current function
)

// NewDebugger creates a debugger with a DefaultHistorySize command
// history. Use NewDebuggerWithConfig when a config.Config has already
// been loaded, so the history size follows Debugger.HistorySize.
func NewDebugger(machine *vm.Machine) *Debugger {
	return newDebugger(machine, NewCommandHistory())
}

// NewDebuggerWithConfig creates a debugger whose command history is
// capped at cfg.Debugger.HistorySize.
func NewDebuggerWithConfig(machine *vm.Machine, cfg *config.Config) *Debugger {
	if cfg == nil {
		return NewDebugger(machine)
	}
	return newDebugger(machine, NewCommandHistoryWithSize(cfg.Debugger.HistorySize))
}

func newDebugger(machine *vm.Machine, history *CommandHistory) *Debugger {
	d := &Debugger{
		Machine:     machine,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		History:     history,
		Evaluator:   NewExpressionEvaluator(),
		Running:     false,
		StepMode:    StepNone,
		Symbols:     make(map[string]int64),
	}
	d.rebuildSymbols()
	return d
}

// rebuildSymbols scans the loaded program for Label instructions and
// records their line index under the label's source name.
func (d *Debugger) rebuildSymbols() {
	if d.Machine == nil || d.Machine.Program == nil {
		return
	}
	for _, line := range d.Machine.Program.Keys() {
		cmd, _ := d.Machine.Program.Get(line)
		if cmd.Kind == vm.CmdLabel {
			d.Symbols[cmd.Arg0.Label] = line
		}
	}
}

// ResolveAddress resolves a label to a line index, or parses a numeric
// line index.
func (d *Debugger) ResolveAddress(addrStr string) (int64, error) {
	if addr, exists := d.Symbols[addrStr]; exists {
		return addr, nil
	}

	if strings.HasPrefix(addrStr, "0x") || strings.HasPrefix(addrStr, "0X") {
		addr, err := strconv.ParseInt(addrStr[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid address: %s", addrStr)
		}
		return addr, nil
	}

	addr, err := strconv.ParseInt(addrStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %s", addrStr)
	}
	return addr, nil
}

// ExecuteCommand processes and executes a debugger command
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)

	// Empty command repeats last command (for step, next, etc.)
	if cmdLine == "" {
		cmdLine = d.LastCommand
	}

	if cmdLine != "" {
		d.History.Add(cmdLine)
		d.LastCommand = cmdLine
	}

	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	return d.handleCommand(cmd, args)
}

// handleCommand dispatches commands to appropriate handlers
func (d *Debugger) handleCommand(cmd string, args []string) error {
	switch cmd {
	// Execution control
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s", "si":
		return d.cmdStep(args)
	case "next", "n":
		return d.cmdNext(args)
	case "finish", "fin":
		return d.cmdFinish(args)

	// Breakpoints
	case "break", "b":
		return d.cmdBreak(args)
	case "tbreak", "tb":
		return d.cmdTBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args)
	case "disable":
		return d.cmdDisable(args)

	// Watchpoints
	case "watch", "w":
		return d.cmdWatch(args)

	// Inspection
	case "print", "p":
		return d.cmdPrint(args)
	case "info", "i":
		return d.cmdInfo(args)
	case "backtrace", "bt", "where":
		return d.cmdBacktrace(args)
	case "list", "l":
		return d.cmdList(args)

	// State modification
	case "set":
		return d.cmdSet(args)

	// Program control
	case "load":
		return d.cmdLoad(args)
	case "reset":
		return d.cmdReset(args)

	// Help
	case "help", "h", "?":
		return d.cmdHelp(args)

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// ShouldBreak checks if execution should pause at the current PC
func (d *Debugger) ShouldBreak() (bool, string) {
	pc := d.Machine.PC

	switch d.StepMode {
	case StepSingle:
		d.StepMode = StepNone
		return true, "single step"

	case StepOver:
		if pc == d.StepOverPC {
			d.StepMode = StepNone
			return true, "step over complete"
		}

	case StepOut:
		if pc == d.StepOverPC {
			d.StepMode = StepNone
			return true, "step out complete"
		}
	}

	if bp := d.Breakpoints.GetBreakpoint(pc); bp != nil {
		if !bp.Enabled {
			return false, ""
		}

		if bp.Condition != "" {
			result, err := d.Evaluator.Evaluate(bp.Condition, d.Machine)
			if err != nil {
				return true, fmt.Sprintf("breakpoint %d (condition error: %v)", bp.ID, err)
			}
			if !result {
				return false, ""
			}
		}

		bp.HitCount++

		if bp.Temporary {
			_ = d.Breakpoints.DeleteBreakpoint(bp.ID) // Ignore error on cleanup
		}

		return true, fmt.Sprintf("breakpoint %d", bp.ID)
	}

	if wp, changed := d.Watchpoints.CheckWatchpoints(d.Machine); wp != nil && changed {
		return true, fmt.Sprintf("watchpoint %d: r%d is now %d", wp.ID, wp.Register, wp.LastValue)
	}

	return false, ""
}

// GetOutput returns and clears the output buffer
func (d *Debugger) GetOutput() string {
	output := d.Output.String()
	d.Output.Reset()
	return output
}

// Printf writes formatted output to the output buffer
func (d *Debugger) Printf(format string, args ...interface{}) {
	d.Output.WriteString(fmt.Sprintf(format, args...))
}

// Println writes a line to the output buffer
func (d *Debugger) Println(args ...interface{}) {
	d.Output.WriteString(fmt.Sprintln(args...))
}

// SetStepOver configures the debugger to step over function calls: if
// the instruction at the current PC is a Call, run until control
// returns to the line right after it; otherwise this is just a single
// step.
func (d *Debugger) SetStepOver() {
	cmd, ok := d.Machine.Program.Get(d.Machine.PC)
	if ok && cmd.Kind == vm.CmdCall {
		d.StepOverPC = d.Machine.PC + 1
		d.StepMode = StepOver
		d.Running = true
		return
	}

	d.StepMode = StepSingle
	d.Running = true
}

// SetStepOut configures the debugger to step out of the current
// function: run until control returns to the line after the nearest
// enclosing Call, whose line is read from the top of the call stack.
// Outside any call (empty call stack) this is just a single step.
func (d *Debugger) SetStepOut() {
	ret, ok := d.Machine.CallStack.Pop()
	if !ok {
		d.StepMode = StepSingle
		d.Running = true
		return
	}
	d.Machine.CallStack.Push(ret)
	d.StepOverPC = int64(ret) + 1
	d.StepMode = StepOut
	d.Running = true
}
