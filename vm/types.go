// Package vm implements the register-based virtual machine: its core
// value types, execution state, and the instruction loop that drives a
// Program to completion.
package vm

import "hash/fnv"

// Integer is the machine's only numeric type: an unsigned 64-bit word.
// All arithmetic wraps silently; overflow is reported via Flags, never
// returned as an error.
type Integer = uint64

// LabelID is the 64-bit hash of a label name, used as a key into the
// label table (for both statically-scanned instruction labels and
// dynamically-appended labelled heap data).
type LabelID = uint64

// HashLabel computes the deterministic 64-bit identifier for a label
// name. Two equal strings always hash to the same LabelID, and the
// hash is stable across runs and platforms (FNV-1a, stdlib hash/fnv).
//
// The reference implementation this toolchain is modeled on hashes
// labels with Rust's DefaultHasher (SipHash, fixed-keyed for that
// specific hasher but still not a portable wire format); that choice
// is not part of the observable contract here — only self-consistency
// of the hash matters, which FNV-1a provides.
func HashLabel(name string) LabelID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// ArgumentKind discriminates the variants of Argument.
type ArgumentKind int

const (
	// ArgNone is the zero value: an absent/unset argument slot.
	ArgNone ArgumentKind = iota
	// ArgRaw is a bare immediate integer.
	ArgRaw
	// ArgRegister names a register by index (0..15).
	ArgRegister
	// ArgRawLabel is a symbolic reference resolved through the label
	// table at read time.
	ArgRawLabel
	// ArgHeapDeref dereferences the labelled data block identified by
	// a label, at a constant integer offset.
	ArgHeapDeref
	// ArgLiteral is an inline sequence of integers; only valid as the
	// payload of a LabelledData instruction.
	ArgLiteral
	// ArgHeapRef is reserved for direct heap addressing; it resolves
	// identically to ArgRawLabel (table[id]) but is never produced by
	// the parser or script compiler.
	ArgHeapRef
)

// Argument is the tagged union of operand forms an instruction can
// take, mirroring the reference implementation's Argument enum.
type Argument struct {
	Kind ArgumentKind

	Raw    Integer // ArgRaw, ArgLiteral-less immediate
	Reg    int     // ArgRegister
	Label  string  // ArgRawLabel, ArgHeapDeref, ArgHeapRef: label text
	Offset Integer // ArgHeapDeref: constant offset added to the heap index
	Seq    []Integer
}

// ID returns the LabelID for arguments carrying a label name.
func (a Argument) ID() LabelID { return HashLabel(a.Label) }

func (a Argument) String() string {
	switch a.Kind {
	case ArgRaw:
		return "#" + itoa(a.Raw)
	case ArgRegister:
		return "r" + itoa(uint64(a.Reg))
	case ArgRawLabel:
		return ":" + a.Label
	case ArgHeapDeref:
		if a.Offset == 0 {
			return "[:" + a.Label + "]"
		}
		return "[:" + a.Label + " + " + itoa(a.Offset) + "]"
	case ArgLiteral:
		return "db <literal>"
	case ArgHeapRef:
		return "heap_ref(" + a.Label + ")"
	default:
		return "<none>"
	}
}

// CommandKind discriminates the variants of Command.
type CommandKind int

const (
	CmdNoop CommandKind = iota
	CmdLabel
	CmdLabelledData
	CmdBranch
	CmdBranchEqual
	CmdBranchNotEqual
	CmdBranchGreater
	CmdBranchGreaterEqual
	CmdBranchLesser
	CmdBranchLesserEqual
	CmdCompare
	CmdMove
	CmdAdd
	CmdSubtract
	CmdMultiply
	CmdDivide
	CmdModulo
	CmdPush
	CmdPop
	CmdCall
	CmdReturn
	// CmdFunction is reserved by the data model but never emitted by
	// the parser or script compiler in this toolchain.
	CmdFunction
)

var commandKindNames = map[CommandKind]string{
	CmdNoop:               "noop",
	CmdLabel:              "label",
	CmdLabelledData:       "data",
	CmdBranch:             "branch",
	CmdBranchEqual:        "branch_eq",
	CmdBranchNotEqual:     "branch_ne",
	CmdBranchGreater:      "branch_gt",
	CmdBranchGreaterEqual: "branch_ge",
	CmdBranchLesser:       "branch_lt",
	CmdBranchLesserEqual:  "branch_le",
	CmdCompare:            "compare",
	CmdMove:               "move",
	CmdAdd:                "add",
	CmdSubtract:           "subtract",
	CmdMultiply:           "multiply",
	CmdDivide:             "divide",
	CmdModulo:             "modulo",
	CmdPush:               "push",
	CmdPop:                "pop",
	CmdCall:               "call",
	CmdReturn:             "return",
	CmdFunction:           "function",
}

// String returns a human-readable name for the instruction kind, used
// by the debugger's source listing and execution trace. It is not the
// parser's mnemonic spelling (see tools.mnemonicFor for that).
func (k CommandKind) String() string {
	if name, ok := commandKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is a single instruction: an opcode plus up to two arguments.
// Unused argument slots carry Kind ArgNone.
//
// LabelledData carries its label name directly on the Command (not as
// an Argument) per the data model: Command variant LabelledData(id)
// is itself parameterized by the label id, with argument 0 holding the
// Literal payload. The name, not just its hash, is retained so the
// pretty-printer can reproduce the original source text.
type Command struct {
	Kind  CommandKind
	Label string // CmdLabelledData: the label name being declared
	Arg0  Argument
	Arg1  Argument
}

// LabelID returns the hashed identifier for a CmdLabelledData command.
func (c Command) LabelID() LabelID { return HashLabel(c.Label) }

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
