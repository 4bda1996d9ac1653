package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lookbusy1344/shitty-vm/vm"
)

// commandTags gives the short wire tag for each Command variant, per
// the container format's fixed vocabulary.
var commandTags = map[vm.CommandKind]string{
	vm.CmdNoop:                "_",
	vm.CmdLabel:                "lbl",
	vm.CmdLabelledData:         "ld",
	vm.CmdBranch:               "b",
	vm.CmdBranchEqual:          "be",
	vm.CmdBranchNotEqual:       "bne",
	vm.CmdBranchGreaterEqual:   "bge",
	vm.CmdBranchGreater:        "bg",
	vm.CmdBranchLesser:         "bl",
	vm.CmdBranchLesserEqual:    "ble",
	vm.CmdCompare:              "cmp",
	vm.CmdMove:                 "mov",
	vm.CmdAdd:                  "add",
	vm.CmdSubtract:             "sub",
	vm.CmdMultiply:             "mul",
	vm.CmdDivide:               "div",
	vm.CmdModulo:               "mod",
	vm.CmdPush:                 "push",
	vm.CmdPop:                  "pop",
	vm.CmdCall:                 "call",
	vm.CmdFunction:             "func",
	vm.CmdReturn:               "ret",
}

var commandKindsByTag = func() map[string]vm.CommandKind {
	m := make(map[string]vm.CommandKind, len(commandTags))
	for k, v := range commandTags {
		m[v] = k
	}
	return m
}()

// argumentTags gives the short wire tag for each Argument variant.
var argumentTags = map[vm.ArgumentKind]string{
	vm.ArgNone:       "_",
	vm.ArgRaw:        "raw",
	vm.ArgRegister:   "reg",
	vm.ArgHeapRef:    "heap_ref",
	vm.ArgRawLabel:   "rlbl",
	vm.ArgLiteral:    "lit",
	vm.ArgHeapDeref:  "heap_deref",
}

var argumentKindsByTag = func() map[string]vm.ArgumentKind {
	m := make(map[string]vm.ArgumentKind, len(argumentTags))
	for k, v := range argumentTags {
		m[v] = k
	}
	return m
}()

func writeTag(w *bufio.Writer, tag string) error {
	if len(tag) > 255 {
		return fmt.Errorf("tag %q exceeds 255 bytes", tag)
	}
	if err := w.WriteByte(byte(len(tag))); err != nil {
		return err
	}
	_, err := w.WriteString(tag)
	return err
}

func readTag(r *bufio.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r *bufio.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeCommand(w *bufio.Writer, cmd vm.Command) error {
	tag, ok := commandTags[cmd.Kind]
	if !ok {
		return fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
	if err := writeTag(w, tag); err != nil {
		return err
	}
	if cmd.Kind == vm.CmdLabelledData {
		if err := writeString(w, cmd.Label); err != nil {
			return err
		}
	}
	if err := writeArgument(w, cmd.Arg0); err != nil {
		return err
	}
	return writeArgument(w, cmd.Arg1)
}

func readCommand(r *bufio.Reader) (vm.Command, error) {
	tag, err := readTag(r)
	if err != nil {
		return vm.Command{}, err
	}
	kind, ok := commandKindsByTag[tag]
	if !ok {
		return vm.Command{}, fmt.Errorf("unknown command tag %q", tag)
	}
	cmd := vm.Command{Kind: kind}
	if kind == vm.CmdLabelledData {
		label, err := readString(r)
		if err != nil {
			return vm.Command{}, err
		}
		cmd.Label = label
	}
	arg0, err := readArgument(r)
	if err != nil {
		return vm.Command{}, err
	}
	arg1, err := readArgument(r)
	if err != nil {
		return vm.Command{}, err
	}
	cmd.Arg0, cmd.Arg1 = arg0, arg1
	return cmd, nil
}

func writeArgument(w *bufio.Writer, arg vm.Argument) error {
	tag, ok := argumentTags[arg.Kind]
	if !ok {
		return fmt.Errorf("unknown argument kind %d", arg.Kind)
	}
	if err := writeTag(w, tag); err != nil {
		return err
	}
	switch arg.Kind {
	case vm.ArgRaw:
		return binary.Write(w, binary.BigEndian, arg.Raw)
	case vm.ArgRegister:
		return binary.Write(w, binary.BigEndian, uint32(arg.Reg))
	case vm.ArgRawLabel, vm.ArgHeapRef:
		return writeString(w, arg.Label)
	case vm.ArgHeapDeref:
		if err := writeString(w, arg.Label); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, arg.Offset)
	case vm.ArgLiteral:
		if err := binary.Write(w, binary.BigEndian, uint64(len(arg.Seq))); err != nil {
			return err
		}
		for _, v := range arg.Seq {
			if err := binary.Write(w, binary.BigEndian, v); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func readArgument(r *bufio.Reader) (vm.Argument, error) {
	tag, err := readTag(r)
	if err != nil {
		return vm.Argument{}, err
	}
	kind, ok := argumentKindsByTag[tag]
	if !ok {
		return vm.Argument{}, fmt.Errorf("unknown argument tag %q", tag)
	}
	arg := vm.Argument{Kind: kind}
	switch kind {
	case vm.ArgRaw:
		if err := binary.Read(r, binary.BigEndian, &arg.Raw); err != nil {
			return vm.Argument{}, err
		}
	case vm.ArgRegister:
		var reg uint32
		if err := binary.Read(r, binary.BigEndian, &reg); err != nil {
			return vm.Argument{}, err
		}
		arg.Reg = int(reg)
	case vm.ArgRawLabel, vm.ArgHeapRef:
		label, err := readString(r)
		if err != nil {
			return vm.Argument{}, err
		}
		arg.Label = label
	case vm.ArgHeapDeref:
		label, err := readString(r)
		if err != nil {
			return vm.Argument{}, err
		}
		arg.Label = label
		if err := binary.Read(r, binary.BigEndian, &arg.Offset); err != nil {
			return vm.Argument{}, err
		}
	case vm.ArgLiteral:
		var n uint64
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return vm.Argument{}, err
		}
		arg.Seq = make([]vm.Integer, n)
		for i := range arg.Seq {
			if err := binary.Read(r, binary.BigEndian, &arg.Seq[i]); err != nil {
				return vm.Argument{}, err
			}
		}
	}
	return arg, nil
}
