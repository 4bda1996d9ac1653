package tools

import (
	"fmt"

	"github.com/lookbusy1344/shitty-vm/vm"
)

// LintLevel is the severity of a lint finding.
type LintLevel int

const (
	LintError   LintLevel = iota // would fail at run time
	LintWarning                  // likely mistake, still runs
)

func (l LintLevel) String() string {
	switch l {
	case LintError:
		return "error"
	case LintWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// LintIssue is a single finding, anchored to the program line it was
// found on.
type LintIssue struct {
	Level   LintLevel
	Line    int64
	Message string
	Code    string
}

func (i *LintIssue) String() string {
	return fmt.Sprintf("line %d: %s: %s [%s]", i.Line, i.Level, i.Message, i.Code)
}

// LintOptions controls which checks the linter runs.
type LintOptions struct {
	CheckUnusedLabels bool
}

// DefaultLintOptions enables every check.
func DefaultLintOptions() *LintOptions {
	return &LintOptions{CheckUnusedLabels: true}
}

// Lint runs every enabled structural check over prog and returns the
// per-line findings in program order, followed by any unused-label
// warnings, whose order among themselves is not defined. A nil options
// argument is equivalent to DefaultLintOptions.
func Lint(prog *vm.Program, options *LintOptions) []*LintIssue {
	if options == nil {
		options = DefaultLintOptions()
	}

	declared := make(map[string]int64)
	referenced := make(map[string]bool)

	var issues []*LintIssue
	keys := prog.Keys()

	for _, line := range keys {
		cmd, _ := prog.Get(line)
		switch cmd.Kind {
		case vm.CmdLabel:
			declared[cmd.Arg0.Label] = line
		case vm.CmdLabelledData:
			declared[cmd.Label] = line
		}
	}

	for _, line := range keys {
		cmd, _ := prog.Get(line)
		issues = append(issues, checkCommand(line, cmd, declared, referenced)...)
	}

	if options.CheckUnusedLabels {
		for name, line := range declared {
			if !referenced[name] {
				issues = append(issues, &LintIssue{
					Level:   LintWarning,
					Line:    line,
					Message: fmt.Sprintf("label %q is never referenced", name),
					Code:    "UNUSED_LABEL",
				})
			}
		}
	}

	return issues
}

func checkCommand(line int64, cmd vm.Command, declared map[string]int64, referenced map[string]bool) []*LintIssue {
	var issues []*LintIssue

	noteRef := func(arg vm.Argument) {
		if arg.Kind != vm.ArgRawLabel && arg.Kind != vm.ArgHeapRef && arg.Kind != vm.ArgHeapDeref {
			return
		}
		referenced[arg.Label] = true
		if _, ok := declared[arg.Label]; !ok {
			issues = append(issues, &LintIssue{
				Level:   LintError,
				Line:    line,
				Message: fmt.Sprintf("undefined label %q", arg.Label),
				Code:    "UNDEF_LABEL",
			})
		}
	}

	if cmd.Kind != vm.CmdLabel {
		noteRef(cmd.Arg0)
	}
	noteRef(cmd.Arg1)

	switch cmd.Kind {
	case vm.CmdMove, vm.CmdAdd, vm.CmdSubtract, vm.CmdMultiply, vm.CmdDivide, vm.CmdModulo:
		if cmd.Arg0.Kind != vm.ArgRegister {
			issues = append(issues, &LintIssue{
				Level:   LintError,
				Line:    line,
				Message: fmt.Sprintf("%s: destination operand must be a register", cmd.Kind),
				Code:    "BAD_WRITE_DEST",
			})
		}
	}

	switch cmd.Kind {
	case vm.CmdDivide, vm.CmdModulo:
		if cmd.Arg1.Kind == vm.ArgRaw && cmd.Arg1.Raw == 0 {
			issues = append(issues, &LintIssue{
				Level:   LintError,
				Line:    line,
				Message: fmt.Sprintf("%s by literal zero", cmd.Kind),
				Code:    "DIV_BY_ZERO",
			})
		}
	}

	for _, arg := range [2]vm.Argument{cmd.Arg0, cmd.Arg1} {
		if arg.Kind == vm.ArgRegister && (arg.Reg < 0 || arg.Reg > 15) {
			issues = append(issues, &LintIssue{
				Level:   LintError,
				Line:    line,
				Message: fmt.Sprintf("register r%d out of range", arg.Reg),
				Code:    "REG_RANGE",
			})
		}
	}

	return issues
}
