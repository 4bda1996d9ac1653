// Package tools collects the assembly toolchain's developer-facing
// utilities: a pretty-printer, a structural linter, and a label
// cross-referencer, each operating directly on a parsed vm.Program.
package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lookbusy1344/shitty-vm/vm"
)

// mnemonicFor reverses the parser's mnemonic table, so the formatter
// prints text the parser accepts back.
var mnemonicFor = map[vm.CommandKind]string{
	vm.CmdMove:               "mov",
	vm.CmdAdd:                "add",
	vm.CmdSubtract:           "sub",
	vm.CmdMultiply:           "mul",
	vm.CmdDivide:             "div",
	vm.CmdModulo:             "mod",
	vm.CmdBranchGreater:      "bgr",
	vm.CmdBranchGreaterEqual: "bge",
	vm.CmdBranchLesser:       "bl",
	vm.CmdBranchLesserEqual:  "ble",
	vm.CmdBranchEqual:        "beq",
	vm.CmdBranchNotEqual:     "bne",
	vm.CmdBranch:             "b",
	vm.CmdCompare:            "cmp",
	vm.CmdCall:               "call",
	vm.CmdPush:               "push",
	vm.CmdPop:                "pop",
}

// FormatStyle selects how tightly the formatter packs operands.
type FormatStyle int

const (
	FormatDefault  FormatStyle = iota // instruction and operands column-aligned
	FormatCompact                     // one space between tokens, no alignment
)

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	Style             FormatStyle
	InstructionColumn int // column instructions start at when a label doesn't fill it
	OperandColumn     int // column operands are aligned to
}

// DefaultFormatOptions returns the standard column layout.
func DefaultFormatOptions() *FormatOptions {
	return &FormatOptions{
		Style:             FormatDefault,
		InstructionColumn: 8,
		OperandColumn:     16,
	}
}

// CompactFormatOptions returns minimal-whitespace layout.
func CompactFormatOptions() *FormatOptions {
	return &FormatOptions{Style: FormatCompact}
}

// Format renders prog as assembly text the parser can read back,
// one line per occupied program line plus a blank line for each gap
// so that line numbers are preserved on a round trip.
func Format(prog *vm.Program, options *FormatOptions) string {
	if options == nil {
		options = DefaultFormatOptions()
	}

	var out strings.Builder
	keys := prog.Keys()
	if len(keys) == 0 {
		return ""
	}

	next := int64(0)
	for _, line := range keys {
		for next < line {
			out.WriteString("\n")
			next++
		}
		cmd, _ := prog.Get(line)
		out.WriteString(formatCommand(cmd, options))
		out.WriteString("\n")
		next = line + 1
	}

	return out.String()
}

func formatCommand(cmd vm.Command, options *FormatOptions) string {
	var line strings.Builder

	switch cmd.Kind {
	case vm.CmdLabel:
		line.WriteString(cmd.Arg0.Label)
		line.WriteString(":")
		return line.String()

	case vm.CmdLabelledData:
		line.WriteString(cmd.Label)
		line.WriteString(": db ")
		line.WriteString(formatSeq(cmd.Arg0.Seq))
		return line.String()

	case vm.CmdReturn:
		line.WriteString("ret")
		return line.String()
	}

	mnemonic, ok := mnemonicFor[cmd.Kind]
	if !ok {
		mnemonic = cmd.Kind.String()
	}

	if options.Style != FormatCompact {
		padTo(&line, options.InstructionColumn)
	}
	line.WriteString(mnemonic)

	operands := formatOperands(cmd)
	if operands != "" {
		if options.Style == FormatCompact || options.OperandColumn <= line.Len() {
			line.WriteString(" ")
		} else {
			padTo(&line, options.OperandColumn)
		}
		line.WriteString(operands)
	}

	return line.String()
}

func formatOperands(cmd vm.Command) string {
	var parts []string
	if cmd.Arg0.Kind != vm.ArgNone {
		parts = append(parts, cmd.Arg0.String())
	}
	if cmd.Arg1.Kind != vm.ArgNone {
		parts = append(parts, cmd.Arg1.String())
	}
	return strings.Join(parts, " ")
}

func formatSeq(seq []vm.Integer) string {
	parts := make([]string, len(seq))
	for i, v := range seq {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

func padTo(sb *strings.Builder, column int) {
	for sb.Len() < column {
		sb.WriteString(" ")
	}
}

// Labels returns every label name declared in prog (both Label and
// LabelledData commands), sorted, for tools that want a stable order
// without pulling in a full cross-reference.
func Labels(prog *vm.Program) []string {
	seen := make(map[string]bool)
	var names []string
	for _, line := range prog.Keys() {
		cmd, _ := prog.Get(line)
		var name string
		switch cmd.Kind {
		case vm.CmdLabel:
			name = cmd.Arg0.Label
		case vm.CmdLabelledData:
			name = cmd.Label
		default:
			continue
		}
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
