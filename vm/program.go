package vm

import "sort"

// Program is a sparse mapping from line index to Command. Keys need
// not be contiguous: gaps are permitted and execute as no-ops.
type Program struct {
	lines map[int64]Command
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{lines: make(map[int64]Command)}
}

// Set records the command at the given line index, overwriting any
// previous command at that index.
func (p *Program) Set(line int64, cmd Command) {
	p.lines[line] = cmd
}

// Get returns the command at the given line index, and whether one is
// present (false means the line is a gap and executes as a no-op).
func (p *Program) Get(line int64) (Command, bool) {
	c, ok := p.lines[line]
	return c, ok
}

// Len returns the number of occupied lines.
func (p *Program) Len() int { return len(p.lines) }

// Keys returns the occupied line indices in ascending order.
func (p *Program) Keys() []int64 {
	keys := make([]int64, 0, len(p.lines))
	for k := range p.lines {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// End returns (largest key + 1), the exclusive upper bound of the
// program counter; for an empty program it is 0.
func (p *Program) End() int64 {
	var max int64 = -1
	for k := range p.lines {
		if k > max {
			max = k
		}
	}
	return max + 1
}

// Equal reports whether two programs contain exactly the same
// (line, Command) pairs, used to check container round-trips and
// parser idempotence.
func (p *Program) Equal(other *Program) bool {
	if other == nil || len(p.lines) != len(other.lines) {
		return false
	}
	for k, c := range p.lines {
		oc, ok := other.lines[k]
		if !ok || !commandEqual(c, oc) {
			return false
		}
	}
	return true
}

func commandEqual(a, b Command) bool {
	if a.Kind != b.Kind || a.Label != b.Label {
		return false
	}
	return argumentEqual(a.Arg0, b.Arg0) && argumentEqual(a.Arg1, b.Arg1)
}

func argumentEqual(a, b Argument) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ArgRaw:
		return a.Raw == b.Raw
	case ArgRegister:
		return a.Reg == b.Reg
	case ArgRawLabel, ArgHeapRef:
		return a.Label == b.Label
	case ArgHeapDeref:
		return a.Label == b.Label && a.Offset == b.Offset
	case ArgLiteral:
		if len(a.Seq) != len(b.Seq) {
			return false
		}
		for i := range a.Seq {
			if a.Seq[i] != b.Seq[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}
