package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/shitty-vm/loader"
	"github.com/lookbusy1344/shitty-vm/vm"
)

// Command handler implementations

// cmdRun starts or restarts program execution
func (d *Debugger) cmdRun(args []string) error {
	d.Machine.Reset()
	d.Machine.State = vm.StateRunning
	d.Running = true
	d.StepMode = StepNone

	d.Println("Starting program execution...")
	return nil
}

// cmdContinue continues execution from current point
func (d *Debugger) cmdContinue(args []string) error {
	if d.Machine.State == vm.StateHalted {
		return fmt.Errorf("program is not running")
	}

	d.Machine.State = vm.StateRunning
	d.Running = true
	d.StepMode = StepNone

	d.Println("Continuing...")
	return nil
}

// cmdStep executes a single instruction
func (d *Debugger) cmdStep(args []string) error {
	d.StepMode = StepSingle
	d.Running = true
	return nil
}

// cmdNext steps over function calls (step to next instruction at same level)
func (d *Debugger) cmdNext(args []string) error {
	d.SetStepOver()
	return nil
}

// cmdFinish steps out of current function
func (d *Debugger) cmdFinish(args []string) error {
	d.SetStepOut()
	return nil
}

// cmdBreak sets a breakpoint
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <line|label> [if <condition>]")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	var condition string
	if len(args) > 1 && strings.ToLower(args[1]) == "if" {
		condition = strings.Join(args[2:], " ")
	}

	bp := d.Breakpoints.AddBreakpoint(address, false, condition)

	if condition != "" {
		d.Printf("Breakpoint %d at line %d (condition: %s)\n", bp.ID, address, condition)
	} else {
		d.Printf("Breakpoint %d at line %d\n", bp.ID, address)
	}

	return nil
}

// cmdTBreak sets a temporary breakpoint (auto-delete after hit)
func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tbreak <line|label>")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	bp := d.Breakpoints.AddBreakpoint(address, true, "")
	d.Printf("Temporary breakpoint %d at line %d\n", bp.ID, address)

	return nil
}

// cmdDelete deletes breakpoint(s)
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Println("All breakpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.DeleteBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

// cmdEnable enables breakpoint(s)
func (d *Debugger) cmdEnable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: enable <breakpoint-id>")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.EnableBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d enabled\n", id)
	return nil
}

// cmdDisable disables breakpoint(s)
func (d *Debugger) cmdDisable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: disable <breakpoint-id>")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.DisableBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d disabled\n", id)
	return nil
}

// cmdWatch sets a watchpoint on a register
func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <register>")
	}

	register, err := d.parseWatchRegister(args[0])
	if err != nil {
		return err
	}

	wp := d.Watchpoints.AddWatchpoint(register)

	if err := d.Watchpoints.InitializeWatchpoint(wp.ID, d.Machine); err != nil {
		_ = d.Watchpoints.DeleteWatchpoint(wp.ID)
		return err
	}

	d.Printf("Watchpoint %d: r%d\n", wp.ID, register)
	return nil
}

// parseWatchRegister parses a register reference such as "r3" or "pc".
func (d *Debugger) parseWatchRegister(expr string) (int, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))

	if expr == "pc" {
		return 0, fmt.Errorf("pc cannot be watched, only general-purpose registers r0-r15")
	}

	if strings.HasPrefix(expr, "r") {
		n, err := strconv.Atoi(expr[1:])
		if err == nil && n >= 0 && n <= 15 {
			return n, nil
		}
	}

	return 0, fmt.Errorf("invalid register: %s", expr)
}

// cmdPrint evaluates and prints an expression
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <expression>")
	}

	expression := strings.Join(args, " ")
	result, err := d.Evaluator.EvaluateExpression(expression, d.Machine)
	if err != nil {
		return err
	}

	num := d.Evaluator.GetValueNumber()
	d.Printf("$%d = %d (0x%016X)\n", num, result, result)
	return nil
}

// cmdInfo displays information about program state
func (d *Debugger) cmdInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: info <registers|breakpoints|watchpoints|stack>")
	}

	switch strings.ToLower(args[0]) {
	case "registers", "reg", "r":
		return d.showRegisters()
	case "breakpoints", "break", "b":
		return d.showBreakpoints()
	case "watchpoints", "watch", "w":
		return d.showWatchpoints()
	case "stack", "s":
		return d.showStack()
	default:
		return fmt.Errorf("unknown info command: %s", args[0])
	}
}

// showRegisters displays all register values
func (d *Debugger) showRegisters() error {
	d.Println("Registers:")
	for i := 0; i < 16; i++ {
		d.Printf("  r%-2d = %d (0x%016X)\n", i, d.Machine.Regs[i], d.Machine.Regs[i])
	}
	d.Printf("  pc  = %d\n", d.Machine.PC)

	flags := ""
	for _, set := range []struct {
		name string
		on   bool
	}{
		{"EQ", d.Machine.Flags.Equal},
		{"LT", d.Machine.Flags.Less},
		{"GT", d.Machine.Flags.Greater},
		{"OV", d.Machine.Flags.Overflow},
	} {
		if set.on {
			flags += set.name + " "
		}
	}
	d.Printf("  flags = [%s]\n", strings.TrimSpace(flags))

	return nil
}

// showBreakpoints displays all breakpoints
func (d *Debugger) showBreakpoints() error {
	breakpoints := d.Breakpoints.GetAllBreakpoints()
	if len(breakpoints) == 0 {
		d.Println("No breakpoints")
		return nil
	}

	d.Println("Breakpoints:")
	for _, bp := range breakpoints {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}

		temp := ""
		if bp.Temporary {
			temp = " (temporary)"
		}

		condition := ""
		if bp.Condition != "" {
			condition = fmt.Sprintf(" if %s", bp.Condition)
		}

		d.Printf("  %d: line %d %s%s%s (hit %d times)\n",
			bp.ID, bp.Line, status, temp, condition, bp.HitCount)
	}

	return nil
}

// showWatchpoints displays all watchpoints
func (d *Debugger) showWatchpoints() error {
	watchpoints := d.Watchpoints.GetAllWatchpoints()
	if len(watchpoints) == 0 {
		d.Println("No watchpoints")
		return nil
	}

	d.Println("Watchpoints:")
	for _, wp := range watchpoints {
		status := "enabled"
		if !wp.Enabled {
			status = "disabled"
		}

		d.Printf("  %d: r%d %s (hit %d times, last value: %d)\n",
			wp.ID, wp.Register, status, wp.HitCount, wp.LastValue)
	}

	return nil
}

// showStack displays the contents of both stacks
func (d *Debugger) showStack() error {
	d.Printf("Stack (depth %d):\n", d.Machine.Stack.Len())
	d.printStackItems(&d.Machine.Stack)

	d.Printf("Call stack (depth %d):\n", d.Machine.CallStack.Len())
	d.printStackItems(&d.Machine.CallStack)

	return nil
}

// printStackItems prints a stack's contents top-first, without
// mutating it (Pop/re-push round trip).
func (d *Debugger) printStackItems(s *vm.Stack) {
	var popped []vm.Integer
	for {
		v, ok := s.Pop()
		if !ok {
			break
		}
		popped = append(popped, v)
	}
	for i := len(popped) - 1; i >= 0; i-- {
		s.Push(popped[i])
	}
	for i, v := range popped {
		d.Printf("  [%d]: %d\n", i, v)
	}
}

// cmdBacktrace shows the call stack
func (d *Debugger) cmdBacktrace(args []string) error {
	d.Println("Call stack:")
	d.Printf("  #0  pc=%d\n", d.Machine.PC)

	var returns []vm.Integer
	for {
		v, ok := d.Machine.CallStack.Pop()
		if !ok {
			break
		}
		returns = append(returns, v)
	}
	for i := len(returns) - 1; i >= 0; i-- {
		d.Machine.CallStack.Push(returns[i])
	}
	for i, ret := range returns {
		d.Printf("  #%d  return to line %d\n", i+1, ret)
	}

	return nil
}

// cmdList shows the program around the current PC
func (d *Debugger) cmdList(args []string) error {
	pc := d.Machine.PC

	for offset := int64(-CodeContextLinesBeforeCompact); offset <= CodeContextLinesAfterCompact; offset++ {
		line := pc + offset
		if line < 0 {
			continue
		}
		cmd, ok := d.Machine.Program.Get(line)
		marker := "  "
		if line == pc {
			marker = "=>"
		}
		if ok {
			d.Printf("%s %4d: %s\n", marker, line, formatCommand(cmd))
		}
	}

	return nil
}

func formatCommand(cmd vm.Command) string {
	return fmt.Sprintf("%-10s %s %s", cmd.Kind, cmd.Arg0.String(), cmd.Arg1.String())
}

// cmdSet modifies a register value
func (d *Debugger) cmdSet(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: set <register> = <value>")
	}

	if args[1] != "=" {
		return fmt.Errorf("usage: set <register> = <value>")
	}

	target := strings.ToLower(args[0])
	valueStr := args[2]

	value, err := d.Evaluator.EvaluateExpression(valueStr, d.Machine)
	if err != nil {
		return err
	}

	register := -1
	if strings.HasPrefix(target, "r") {
		register, err = strconv.Atoi(target[1:])
		if err != nil || register < 0 || register > 15 {
			return fmt.Errorf("invalid register: %s", target)
		}
	} else {
		return fmt.Errorf("invalid target: %s", target)
	}

	d.Machine.Regs[register] = value
	d.Printf("Register r%d set to %d\n", register, value)

	return nil
}

// cmdLoad replaces the debugger's program with the one read from a
// file, re-detecting its source kind (assembly, script, or container)
// the same way the CLI's run subcommand does.
func (d *Debugger) cmdLoad(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: load <filename>")
	}

	prog, err := loader.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	d.Machine.Program = prog
	d.Machine.Reset()
	d.Symbols = make(map[string]int64)
	d.rebuildSymbols()
	d.Printf("Loaded %s (%d lines)\n", args[0], prog.Len())
	return nil
}

// cmdReset resets the machine
func (d *Debugger) cmdReset(args []string) error {
	d.Machine.Reset()
	d.rebuildSymbols()
	d.Println("Machine reset")
	return nil
}

// cmdHelp displays help information
func (d *Debugger) cmdHelp(args []string) error {
	if len(args) > 0 {
		return d.showCommandHelp(args[0])
	}

	d.Println("Debugger Commands:")
	d.Println()
	d.Println("Execution Control:")
	d.Println("  run (r)           - Start program execution")
	d.Println("  continue (c)      - Continue execution")
	d.Println("  step (s, si)      - Execute single instruction")
	d.Println("  next (n)          - Step over function calls")
	d.Println("  finish (fin)      - Step out of current function")
	d.Println()
	d.Println("Breakpoints:")
	d.Println("  break (b) <line>  - Set breakpoint")
	d.Println("  tbreak (tb) <line>- Set temporary breakpoint")
	d.Println("  delete (d) [id]   - Delete breakpoint(s)")
	d.Println("  enable <id>       - Enable breakpoint")
	d.Println("  disable <id>      - Disable breakpoint")
	d.Println()
	d.Println("Watchpoints:")
	d.Println("  watch (w) <reg>   - Watch a register for changes")
	d.Println()
	d.Println("Inspection:")
	d.Println("  print (p) <expr>  - Evaluate expression")
	d.Println("  info (i) <what>   - Show information")
	d.Println("  backtrace (bt)    - Show call stack")
	d.Println("  list (l)          - List program around pc")
	d.Println()
	d.Println("Modification:")
	d.Println("  set <reg> = <val> - Modify register")
	d.Println()
	d.Println("Control:")
	d.Println("  reset             - Reset machine")
	d.Println("  help (h, ?)       - Show this help")
	d.Println()
	d.Println("Type 'help <command>' for detailed help on a specific command.")

	return nil
}

// showCommandHelp shows detailed help for a specific command
func (d *Debugger) showCommandHelp(cmd string) error {
	helpText := map[string]string{
		"break": "break <line|label> [if <condition>]\n  Set a breakpoint at the specified line or label.\n  Optional condition will be evaluated each time.",
		"step":  "step\n  Execute a single instruction.",
		"next":  "next\n  Step over function calls (execute until the line after a Call returns).",
		"print": "print <expression>\n  Evaluate and print an expression.\n  Expressions can include registers, integers, and arithmetic.",
		"info":  "info <registers|breakpoints|watchpoints|stack>\n  Display information about program state.",
	}

	if help, exists := helpText[cmd]; exists {
		d.Println(help)
		return nil
	}

	return fmt.Errorf("no help available for command: %s", cmd)
}
