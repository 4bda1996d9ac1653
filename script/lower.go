package script

import (
	"fmt"

	"github.com/lookbusy1344/shitty-vm/vm"
)

const mainLabel = ".main"

// hoistedLiteral is one string literal lifted out of a function body
// into labelled heap data, keyed by its synthetic label name and
// recorded in the order it was first encountered.
type hoistedLiteral struct {
	label string
	value string
}

// Lower parses and lowers script source into a vm.Program, following
// the same register/stack calling convention the assembly surface
// targets: callers push arguments left-to-right, callees pop them into
// registers 1..N, and a return value is pushed before Return.
func Lower(source string) (*vm.Program, error) {
	ast, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return LowerProgram(ast)
}

// LowerProgram lowers an already-parsed AST.
func LowerProgram(ast *Program) (*vm.Program, error) {
	var cmds []vm.Command

	cmds = append(cmds, vm.Command{Kind: vm.CmdBranch, Arg0: rawLabel(mainLabel)})

	var funcDefs []*FuncDef
	var topLevel []Line
	var hoisted []hoistedLiteral

	for i := range ast.Lines {
		line := ast.Lines[i]
		if line.FuncDef != nil {
			hoistStrings(line.FuncDef, &hoisted)
			funcDefs = append(funcDefs, line.FuncDef)
			continue
		}
		topLevel = append(topLevel, line)
	}

	for _, h := range hoisted {
		seq := make([]vm.Integer, 0, len(h.value))
		for _, r := range h.value {
			seq = append(seq, vm.Integer(r))
		}
		cmds = append(cmds, vm.Command{
			Kind:  vm.CmdLabelledData,
			Label: h.label,
			Arg0:  vm.Argument{Kind: vm.ArgLiteral, Seq: seq},
		})
	}

	for _, fn := range funcDefs {
		cmds = append(cmds, vm.Command{Kind: vm.CmdLabel, Arg0: rawLabel(fn.Name)})

		argRegisters := make(map[string]int, len(fn.Params))
		for i, param := range fn.Params {
			reg := i + 1
			argRegisters[param] = reg
			cmds = append(cmds, vm.Command{Kind: vm.CmdPop, Arg0: vm.Argument{Kind: vm.ArgRegister, Reg: reg}})
		}

		for _, stmt := range fn.Body {
			if stmt.Expr != nil {
				var err error
				cmds, err = encodeExpression(stmt.Expr, cmds, argRegisters)
				if err != nil {
					return nil, err
				}
			} else if stmt.Return != nil {
				var err error
				cmds, err = encodeReturn(stmt.Return, cmds, argRegisters)
				if err != nil {
					return nil, err
				}
			}
			cmds = append(cmds, vm.Command{Kind: vm.CmdReturn})
		}
	}

	cmds = append(cmds, vm.Command{Kind: vm.CmdLabel, Arg0: rawLabel(mainLabel)})

	for _, line := range topLevel {
		if line.Call == nil {
			continue // bare top-level term: no-op
		}
		var err error
		cmds, err = encodeFunctionCall(line.Call, cmds, nil)
		if err != nil {
			return nil, err
		}
	}

	cmds = append(cmds, vm.Command{Kind: vm.CmdPop, Arg0: vm.Argument{Kind: vm.ArgRegister, Reg: 0}})

	prog := vm.NewProgram()
	for i, cmd := range cmds {
		prog.Set(int64(i), cmd)
	}
	return prog, nil
}

func rawLabel(name string) vm.Argument {
	return vm.Argument{Kind: vm.ArgRawLabel, Label: name}
}

// hoistStrings collects every string-literal term in a function body,
// replaces each with a synthesized PointerRef naming its hoisted
// label, and appends the literal to hoisted in encounter order.
func hoistStrings(fn *FuncDef, hoisted *[]hoistedLiteral) {
	index := 0
	visitTerm := func(t *Term) {
		if t.Kind != TermString {
			return
		}
		label := fmt.Sprintf("%s_%d", fn.Name, index)
		index++
		*hoisted = append(*hoisted, hoistedLiteral{label: label, value: t.Str})
		t.Kind = TermPointerRef
		t.Label = label
		t.Str = ""
	}

	for si := range fn.Body {
		stmt := &fn.Body[si]
		if stmt.Return != nil {
			visitTerm(stmt.Return)
		}
		if stmt.Expr != nil {
			visitExpressionTerms(stmt.Expr, visitTerm)
		}
	}
}

func visitExpressionTerms(expr *Expression, visit func(*Term)) {
	if expr.Term != nil {
		visit(expr.Term)
		return
	}
	if expr.Call != nil {
		for i := range expr.Call.Args {
			visitExpressionTerms(&expr.Call.Args[i], visit)
		}
	}
}

// encodeReturn lowers a `return term;` statement.
func encodeReturn(term *Term, cmds []vm.Command, argRegisters map[string]int) ([]vm.Command, error) {
	switch term.Kind {
	case TermIdent:
		reg, ok := argRegisters[term.Ident]
		if !ok {
			return nil, fmt.Errorf("script: variable not found: %s", term.Ident)
		}
		return append(cmds, vm.Command{Kind: vm.CmdPush, Arg0: vm.Argument{Kind: vm.ArgRegister, Reg: reg}}), nil
	case TermNumber:
		return append(cmds, vm.Command{Kind: vm.CmdPush, Arg0: vm.Argument{Kind: vm.ArgRaw, Raw: term.Number}}), nil
	case TermPointerRef:
		return append(cmds, vm.Command{Kind: vm.CmdPush, Arg0: rawLabel(term.Label)}), nil
	default:
		return nil, fmt.Errorf("script: a string literal cannot be returned directly (should have been hoisted)")
	}
}

// encodeExpression lowers an expression statement: a bare term is a
// no-op, a function call emits the calling convention.
func encodeExpression(expr *Expression, cmds []vm.Command, argRegisters map[string]int) ([]vm.Command, error) {
	if expr.Call != nil {
		return encodeFunctionCall(expr.Call, cmds, argRegisters)
	}
	return cmds, nil
}

// encodeFunctionCall lowers a call: push each argument, then Call.
// Nested function calls as arguments are not supported by this base
// lowering, matching the reference implementation.
func encodeFunctionCall(call *Call, cmds []vm.Command, argRegisters map[string]int) ([]vm.Command, error) {
	for i := range call.Args {
		arg := &call.Args[i]
		if arg.Call != nil {
			return nil, fmt.Errorf("script: nested function calls as arguments are not supported: %s(...)", call.Name)
		}
		term := arg.Term
		switch term.Kind {
		case TermNumber:
			cmds = append(cmds, vm.Command{Kind: vm.CmdPush, Arg0: vm.Argument{Kind: vm.ArgRaw, Raw: term.Number}})
		case TermPointerRef:
			cmds = append(cmds, vm.Command{Kind: vm.CmdPush, Arg0: rawLabel(term.Label)})
		case TermIdent:
			reg, ok := argRegisters[term.Ident]
			if !ok {
				return nil, fmt.Errorf("script: variable not found: %s", term.Ident)
			}
			cmds = append(cmds, vm.Command{Kind: vm.CmdPush, Arg0: vm.Argument{Kind: vm.ArgRegister, Reg: reg}})
		case TermString:
			return nil, fmt.Errorf("script: string literal used directly as a call argument outside a function body: %s(...)", call.Name)
		}
	}
	cmds = append(cmds, vm.Command{Kind: vm.CmdCall, Arg0: rawLabel(call.Name)})
	return cmds, nil
}
