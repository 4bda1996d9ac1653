package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lookbusy1344/shitty-vm/vm"
)

// ReferenceType indicates how a symbol is used at a given line.
type ReferenceType int

const (
	RefDefinition ReferenceType = iota // the label declaration itself
	RefBranch                          // branch target
	RefCall                            // call target
	RefDataDeref                       // heap-deref read of a labelled data block
)

func (r ReferenceType) String() string {
	switch r {
	case RefDefinition:
		return "definition"
	case RefBranch:
		return "branch"
	case RefCall:
		return "call"
	case RefDataDeref:
		return "deref"
	default:
		return "unknown"
	}
}

// Reference is a single use (or the definition) of a symbol at a
// program line.
type Reference struct {
	Type ReferenceType
	Line int64
}

// Symbol collects every reference to one label name across a Program.
type Symbol struct {
	Name       string
	Definition *Reference
	References []*Reference
	IsData     bool // declared by a LabelledData command rather than a bare Label
}

// CrossReference walks prog once and returns a symbol table keyed by
// label name: where each label is declared, and every line that
// branches to it, calls it, or dereferences it as heap data.
func CrossReference(prog *vm.Program) map[string]*Symbol {
	symbols := make(map[string]*Symbol)

	get := func(name string) *Symbol {
		sym, ok := symbols[name]
		if !ok {
			sym = &Symbol{Name: name}
			symbols[name] = sym
		}
		return sym
	}

	for _, line := range prog.Keys() {
		cmd, _ := prog.Get(line)

		switch cmd.Kind {
		case vm.CmdLabel:
			sym := get(cmd.Arg0.Label)
			sym.Definition = &Reference{Type: RefDefinition, Line: line}
		case vm.CmdLabelledData:
			sym := get(cmd.Label)
			sym.Definition = &Reference{Type: RefDefinition, Line: line}
			sym.IsData = true
		}

		refType := RefBranch
		if cmd.Kind == vm.CmdCall {
			refType = RefCall
		}

		for i, arg := range [2]vm.Argument{cmd.Arg0, cmd.Arg1} {
			if i == 0 && cmd.Kind == vm.CmdLabel {
				continue // the declaration's own name, already recorded above
			}
			switch arg.Kind {
			case vm.ArgRawLabel, vm.ArgHeapRef:
				sym := get(arg.Label)
				sym.References = append(sym.References, &Reference{Type: refType, Line: line})
			case vm.ArgHeapDeref:
				sym := get(arg.Label)
				sym.References = append(sym.References, &Reference{Type: RefDataDeref, Line: line})
			}
		}
	}

	return symbols
}

// Report renders a cross-reference table, one line per symbol in
// alphabetical order, in the format
// `name [label|data]: def=<line|undefined> refs=<line>(<type>),...`.
func Report(symbols map[string]*Symbol) string {
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	var out strings.Builder
	for _, name := range names {
		sym := symbols[name]
		def := "undefined"
		if sym.Definition != nil {
			def = fmt.Sprintf("%d", sym.Definition.Line)
		}

		refLines := make([]string, len(sym.References))
		for i, ref := range sym.References {
			refLines[i] = fmt.Sprintf("%d(%s)", ref.Line, ref.Type)
		}

		kind := "label"
		if sym.IsData {
			kind = "data"
		}

		fmt.Fprintf(&out, "%s [%s]: def=%s refs=%s\n", name, kind, def, strings.Join(refLines, ","))
	}
	return out.String()
}
