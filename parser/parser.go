// Package parser turns the toolchain's textual assembly surface into a
// vm.Program. See the operand grammar in operand.go and the
// per-mnemonic dispatch table in this file.
package parser

import (
	"strings"

	"github.com/lookbusy1344/shitty-vm/vm"
)

// mnemonics maps the recognized instruction keywords to their Command
// kind. "ret" and the implicit label/labelled-data forms are handled
// outside this table since they don't follow the general shape.
var mnemonics = map[string]vm.CommandKind{
	"mov":  vm.CmdMove,
	"add":  vm.CmdAdd,
	"sub":  vm.CmdSubtract,
	"mul":  vm.CmdMultiply,
	"div":  vm.CmdDivide,
	"mod":  vm.CmdModulo,
	"bgr":  vm.CmdBranchGreater,
	"bge":  vm.CmdBranchGreaterEqual,
	"bl":   vm.CmdBranchLesser,
	"ble":  vm.CmdBranchLesserEqual,
	"beq":  vm.CmdBranchEqual,
	"bne":  vm.CmdBranchNotEqual,
	"b":    vm.CmdBranch,
	"cmp":  vm.CmdCompare,
	"call": vm.CmdCall,
	"push": vm.CmdPush,
	"pop":  vm.CmdPop,
}

// Parse consumes assembly source text line by line and returns the
// resulting Program. Line indices (0-based) of non-empty lines become
// Program keys; blank/whitespace-only lines are skipped, leaving a gap.
func Parse(source string) (*vm.Program, error) {
	prog := vm.NewProgram()
	lines := strings.Split(source, "\n")

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		label, rest, hasLabel := cutLabelPrefix(trimmed)
		if hasLabel {
			cmd, err := parseLabelledLine(i, label, rest)
			if err != nil {
				return nil, err
			}
			prog.Set(int64(i), cmd)
			continue
		}

		cmd, err := parseInstructionLine(i, trimmed)
		if err != nil {
			return nil, err
		}
		prog.Set(int64(i), cmd)
	}

	return prog, nil
}

// cutLabelPrefix looks for a run of characters up to, but not
// including, the first space or colon, followed immediately by a
// colon. If found, it returns the label name and the (trimmed)
// remainder of the line after the colon.
func cutLabelPrefix(line string) (label, rest string, ok bool) {
	for i, r := range line {
		if r == ' ' || r == '\t' {
			return "", "", false
		}
		if r == ':' {
			return line[:i], strings.TrimSpace(line[i+1:]), true
		}
	}
	return "", "", false
}

// parseLabelledLine handles a line with a label prefix: either a bare
// label declaration, or a label attached to a "db" literal, which
// becomes a LabelledData instruction carrying that literal as its
// payload (the only instruction whose argument-0 invariant is a
// Literal).
func parseLabelledLine(lineNo int, label, rest string) (vm.Command, error) {
	if rest == "" {
		return vm.Command{
			Kind: vm.CmdLabel,
			Arg0: vm.Argument{Kind: vm.ArgRawLabel, Label: label},
		}, nil
	}

	word, remainder, _ := cutFirstToken(rest)
	if word != "db" {
		return vm.Command{}, errf(lineNo, "label %q can only be followed by a db literal, got %q", label, word)
	}
	if remainder == "" {
		return vm.Command{}, errf(lineNo, "db directive missing literal items")
	}
	seq, err := parseDBLiteral(remainder)
	if err != nil {
		return vm.Command{}, errf(lineNo, "invalid db literal: %v", err)
	}
	return vm.Command{
		Kind:  vm.CmdLabelledData,
		Label: label,
		Arg0:  vm.Argument{Kind: vm.ArgLiteral, Seq: seq},
	}, nil
}

// parseInstructionLine handles a line with no label prefix: a
// mnemonic, optionally followed by up to two operands.
func parseInstructionLine(lineNo int, line string) (vm.Command, error) {
	mnemonic, remainder, _ := cutFirstToken(line)

	if mnemonic == "ret" {
		if remainder != "" {
			return vm.Command{}, errf(lineNo, "ret takes no operands, got %q", remainder)
		}
		return vm.Command{Kind: vm.CmdReturn}, nil
	}

	kind, known := mnemonics[mnemonic]
	if !known {
		return vm.Command{}, errf(lineNo, "unknown mnemonic %q", mnemonic)
	}
	if remainder == "" {
		return vm.Command{}, errf(lineNo, "%s: missing operands", mnemonic)
	}

	tokens := tokenizeOperands(remainder)
	if len(tokens) > 2 {
		return vm.Command{}, errf(lineNo, "%s: too many operands (%d)", mnemonic, len(tokens))
	}

	cmd := vm.Command{Kind: kind}
	args := [2]vm.Argument{}
	for idx, tok := range tokens {
		arg, ok := parseOperand(tok)
		if !ok {
			return vm.Command{}, errf(lineNo, "%s: invalid operand %q", mnemonic, tok)
		}
		args[idx] = arg
	}
	cmd.Arg0, cmd.Arg1 = args[0], args[1]
	return cmd, nil
}

// cutFirstToken splits off the first whitespace-delimited token,
// trimming the remainder.
func cutFirstToken(s string) (first, rest string, found bool) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, "", s != ""
	}
	return s[:i], strings.TrimSpace(s[i+1:]), true
}
