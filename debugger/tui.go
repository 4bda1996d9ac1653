package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/shitty-vm/vm"
)

// TUI represents the text user interface for the debugger
type TUI struct {
	// Core components
	Debugger *Debugger
	App      *tview.Application
	Pages    *tview.Pages

	// Layout containers
	MainLayout *tview.Flex
	LeftPanel  *tview.Flex
	RightPanel *tview.Flex

	// View panels
	SourceView      *tview.TextView
	RegisterView    *tview.TextView
	StackView       *tview.TextView
	BreakpointsView *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField

	Running bool
}

// NewTUI creates a new text user interface
func NewTUI(debugger *Debugger) *TUI {
	return newTUI(debugger, tview.NewApplication())
}

// NewTUIWithScreen creates a TUI bound to an explicit tcell screen,
// letting tests drive it against a simulation screen instead of a
// real terminal.
func NewTUIWithScreen(debugger *Debugger, screen tcell.Screen) *TUI {
	app := tview.NewApplication().SetScreen(screen)
	return newTUI(debugger, app)
}

func newTUI(debugger *Debugger, app *tview.Application) *TUI {
	tui := &TUI{
		Debugger: debugger,
		App:      app,
		Running:  false,
	}

	tui.initializeViews()
	tui.buildLayout()
	tui.setupKeyBindings()

	return tui
}

// initializeViews creates all the view panels
func (t *TUI) initializeViews() {
	t.SourceView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.SourceView.SetBorder(true).SetTitle(" Program ")

	t.RegisterView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.StackView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.StackView.SetBorder(true).SetTitle(" Stacks ")

	t.BreakpointsView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.BreakpointsView.SetBorder(true).SetTitle(" Breakpoints/Watchpoints ")

	t.OutputView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

// buildLayout constructs the TUI layout
func (t *TUI) buildLayout() {
	// Left panel: Program listing
	t.LeftPanel = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.SourceView, 0, 1, false)

	// Right panel top: Registers, Stacks
	rightTop := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 10, 0, false).
		AddItem(t.StackView, 0, 1, false)

	t.RightPanel = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(rightTop, 0, 3, false).
		AddItem(t.BreakpointsView, 8, 0, false)

	mainContent := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.LeftPanel, 0, 2, false).
		AddItem(t.RightPanel, 0, 1, false)

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(mainContent, 0, 4, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)

	t.Pages = tview.NewPages().
		AddPage("main", t.MainLayout, true, true)
}

// setupKeyBindings sets up keyboard shortcuts
func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			t.executeCommand("help")
			return nil
		case tcell.KeyF5:
			t.executeCommand("continue")
			return nil
		case tcell.KeyF9:
			t.executeCommand("break")
			return nil
		case tcell.KeyF10:
			t.executeCommand("next")
			return nil
		case tcell.KeyF11:
			t.executeCommand("step")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			t.RefreshAll()
			return nil
		}
		return event
	})
}

// handleCommand processes command input
func (t *TUI) handleCommand(key tcell.Key) {
	if key == tcell.KeyEnter {
		cmd := t.CommandInput.GetText()
		if cmd != "" {
			t.executeCommand(cmd)
			t.CommandInput.SetText("")
		}
	}
}

// executeCommand executes a debugger command
func (t *TUI) executeCommand(cmd string) {
	t.Debugger.Output.Reset()

	err := t.Debugger.ExecuteCommand(cmd)
	output := t.Debugger.GetOutput()

	if err != nil {
		t.WriteOutput(fmt.Sprintf("[red]Error:[white] %v\n", err))
	}
	if output != "" {
		t.WriteOutput(output)
	}

	// A run/continue/step/next/finish command leaves the debugger in
	// Running state; drive it to the next stop point before redrawing.
	for t.Debugger.Running {
		if shouldBreak, reason := t.Debugger.ShouldBreak(); shouldBreak {
			t.Debugger.Running = false
			t.WriteOutput(fmt.Sprintf("Stopped: %s at pc=%d\n", reason, t.Debugger.Machine.PC))
			break
		}
		if tickErr := t.Debugger.Machine.Tick(); tickErr != nil {
			t.Debugger.Running = false
			t.WriteOutput(fmt.Sprintf("[red]Runtime error:[white] %v\n", tickErr))
			break
		}
		if t.Debugger.Machine.State == vm.StateHalted {
			t.Debugger.Running = false
			t.WriteOutput(fmt.Sprintf("Program halted, r0 = %d\n", t.Debugger.Machine.Output()))
			break
		}
	}

	t.RefreshAll()
}

// WriteOutput writes to the output view
func (t *TUI) WriteOutput(text string) {
	_, _ = t.OutputView.Write([]byte(text)) // Ignore write errors in TUI
	t.OutputView.ScrollToEnd()
}

// RefreshAll refreshes all view panels
func (t *TUI) RefreshAll() {
	t.UpdateSourceView()
	t.UpdateRegisterView()
	t.UpdateStackView()
	t.UpdateBreakpointsView()
	t.App.Draw()
}

// UpdateSourceView updates the program listing view
func (t *TUI) UpdateSourceView() {
	t.SourceView.Clear()

	if t.Debugger.Machine == nil || t.Debugger.Machine.Program == nil {
		t.SourceView.SetText("[yellow]No program loaded[white]")
		return
	}

	pc := t.Debugger.Machine.PC
	var lines []string

	for _, line := range t.Debugger.Machine.Program.Keys() {
		if line < pc-CodeContextLinesBefore || line > pc+CodeContextLinesAfter {
			continue
		}
		cmd, ok := t.Debugger.Machine.Program.Get(line)
		if !ok {
			continue
		}

		marker := "  "
		color := "white"
		if line == pc {
			marker = "->"
			color = "yellow"
		}
		if t.Debugger.Breakpoints.GetBreakpoint(line) != nil {
			marker = "* "
		}

		text := fmt.Sprintf("[%s]%s %4d: %s[white]", color, marker, line, formatCommand(cmd))
		lines = append(lines, text)
	}

	t.SourceView.SetText(strings.Join(lines, "\n"))
}

// UpdateRegisterView updates the register view
func (t *TUI) UpdateRegisterView() {
	t.RegisterView.Clear()

	if t.Debugger.Machine == nil {
		return
	}
	regs := t.Debugger.Machine.Regs

	var lines []string
	for i := 0; i < RegisterGroupSize*3; i += RegisterGroupSize {
		var cols []string
		for j := 0; j < RegisterGroupSize && i+j < 16; j++ {
			reg := i + j
			cols = append(cols, fmt.Sprintf("r%-2d: %d", reg, regs[reg]))
		}
		lines = append(lines, strings.Join(cols, "  "))
	}

	lines = append(lines, fmt.Sprintf("pc: %d", t.Debugger.Machine.PC))

	flags := t.Debugger.Machine.Flags
	flagStr := ""
	for _, s := range []struct {
		name string
		on   bool
	}{
		{"EQ", flags.Equal}, {"LT", flags.Less}, {"GT", flags.Greater}, {"OV", flags.Overflow},
	} {
		if s.on {
			flagStr += "[green]" + s.name + "[white] "
		} else {
			flagStr += strings.ToLower(s.name) + " "
		}
	}
	lines = append(lines, "flags: "+flagStr)

	t.RegisterView.SetText(strings.Join(lines, "\n"))
}

// UpdateStackView updates the stack view
func (t *TUI) UpdateStackView() {
	t.StackView.Clear()

	if t.Debugger.Machine == nil {
		return
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("[yellow]Data stack (depth %d)[white]", t.Debugger.Machine.Stack.Len()))
	lines = append(lines, snapshotStack(&t.Debugger.Machine.Stack)...)
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("[yellow]Call stack (depth %d)[white]", t.Debugger.Machine.CallStack.Len()))
	lines = append(lines, snapshotStack(&t.Debugger.Machine.CallStack)...)

	t.StackView.SetText(strings.Join(lines, "\n"))
}

// snapshotStack returns a stack's contents top-first without mutating
// it (pop/re-push round trip).
func snapshotStack(s *vm.Stack) []string {
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

	lines := make([]string, 0, len(popped))
	for i, v := range popped {
		lines = append(lines, fmt.Sprintf("  [%d]: %d", i, v))
	}
	return lines
}

// UpdateBreakpointsView updates the breakpoints and watchpoints view
func (t *TUI) UpdateBreakpointsView() {
	t.BreakpointsView.Clear()

	var lines []string

	bps := t.Debugger.Breakpoints.GetAllBreakpoints()
	if len(bps) > 0 {
		lines = append(lines, "[yellow]Breakpoints:[white]")
		for _, bp := range bps {
			status := "enabled"
			color := "green"
			if !bp.Enabled {
				status = "disabled"
				color = "red"
			}

			line := fmt.Sprintf("  %d: [%s]%s[white] line %d", bp.ID, color, status, bp.Line)

			if sym := t.findSymbolForAddress(bp.Line); sym != "" {
				line += fmt.Sprintf(" <%s>", sym)
			}
			if bp.Condition != "" {
				line += fmt.Sprintf(" if %s", bp.Condition)
			}
			line += fmt.Sprintf(" (hits: %d)", bp.HitCount)

			lines = append(lines, line)
		}
	} else {
		lines = append(lines, "[yellow]No breakpoints set[white]")
	}

	lines = append(lines, "")

	wps := t.Debugger.Watchpoints.GetAllWatchpoints()
	if len(wps) > 0 {
		lines = append(lines, "[yellow]Watchpoints:[white]")
		for _, wp := range wps {
			lines = append(lines, fmt.Sprintf("  %d: watch r%d = %d", wp.ID, wp.Register, wp.LastValue))
		}
	}

	t.BreakpointsView.SetText(strings.Join(lines, "\n"))
}

// findSymbolForAddress finds a label name for a line index
func (t *TUI) findSymbolForAddress(line int64) string {
	for sym, symLine := range t.Debugger.Symbols {
		if symLine == line {
			return sym
		}
	}
	return ""
}

// Run starts the TUI application
func (t *TUI) Run() error {
	t.RefreshAll()

	t.WriteOutput("[green]Debugger TUI[white]\n")
	t.WriteOutput("Press F1 for help, F5 to continue, F10 to step over, F11 to step\n")
	t.WriteOutput("Type 'help' for command list\n\n")

	return t.App.SetRoot(t.Pages, true).SetFocus(t.CommandInput).Run()
}

// Stop stops the TUI application
func (t *TUI) Stop() {
	t.App.Stop()
}
