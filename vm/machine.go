package vm

import "fmt"

// MachineState is the VM's lifecycle state.
type MachineState int

const (
	StateReady MachineState = iota
	StateRunning
	StateHalted
	StateFailed
)

func (s MachineState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Machine is the register-based virtual machine: it owns one Program
// for the duration of a run, plus the registers, flags, program
// counter, heap, stack, and label table that make up its execution
// state.
type Machine struct {
	Program *Program

	Regs      Registers
	Flags     Flags
	Heap      Heap
	Stack     Stack // Push/Pop and the calling convention's argument/return-value passing
	CallStack Stack // return addresses pushed by Call, popped by Return
	Table     *LabelTable

	PC    int64
	State MachineState
	Err   error

	// Trace, if non-nil, receives one call per executed (non-gap)
	// instruction. Used by the CLI's -trace flag.
	Trace func(pc int64, cmd Command)
}

// NewMachine constructs a Machine for the given program: registers
// zeroed, flags cleared, heap and stack empty, program counter 0, and
// the static half of the label table built by scanning every Label
// instruction once.
func NewMachine(p *Program) *Machine {
	m := &Machine{
		Program: p,
		Table:   NewLabelTable(),
		State:   StateReady,
	}
	for _, line := range p.Keys() {
		cmd, _ := p.Get(line)
		if cmd.Kind == CmdLabel {
			m.Table.Set(cmd.Arg0.ID(), line)
		}
	}
	return m
}

// Run drives Tick to completion: Ready -> Running -> Halted | Failed.
// It returns the same error Tick last produced, if any.
func (m *Machine) Run() error {
	m.State = StateRunning
	for m.State == StateRunning {
		if err := m.Tick(); err != nil {
			m.State = StateFailed
			m.Err = err
			return err
		}
	}
	return nil
}

// Output returns the value of register 0, the VM's sole observable
// result once Run has returned.
func (m *Machine) Output() Integer { return m.Regs[0] }

// Reset restores the machine to its just-loaded state: registers,
// flags, heap, both stacks and the program counter are cleared, and
// the label table is rebuilt from the program. Used by the debugger's
// "run" and "reset" commands to restart execution without reloading
// the program from disk.
func (m *Machine) Reset() {
	m.Regs = Registers{}
	m.Flags = Flags{}
	m.Heap = Heap{}
	m.Stack = Stack{}
	m.CallStack = Stack{}
	m.PC = 0
	m.State = StateReady
	m.Err = nil

	m.Table = NewLabelTable()
	for _, line := range m.Program.Keys() {
		cmd, _ := m.Program.Get(line)
		if cmd.Kind == CmdLabel {
			m.Table.Set(cmd.Arg0.ID(), line)
		}
	}
}

// Tick executes exactly one step: halting if the program counter has
// run off the end of the program, skipping a gap line, or applying the
// instruction at the program counter and advancing.
func (m *Machine) Tick() error {
	end := m.Program.End()
	if m.PC >= end {
		m.State = StateHalted
		return nil
	}

	cmd, ok := m.Program.Get(m.PC)
	if !ok {
		m.PC++
		return nil
	}

	if m.Trace != nil {
		m.Trace(m.PC, cmd)
	}

	if err := m.apply(cmd); err != nil {
		return fmt.Errorf("line %d: %w", m.PC, err)
	}
	m.PC++
	return nil
}

func (m *Machine) apply(cmd Command) error {
	switch cmd.Kind {
	case CmdNoop, CmdLabel, CmdFunction:
		return nil

	case CmdLabelledData:
		idx := m.Heap.Append(cmd.Arg0.Seq)
		m.Table.Set(cmd.LabelID(), idx)
		return nil

	case CmdMove:
		v, err := m.resolveRead(cmd.Arg1)
		if err != nil {
			return err
		}
		return m.resolveWrite(cmd.Arg0, v)

	case CmdBranch:
		return m.branchTo(cmd.Arg0)
	case CmdBranchEqual:
		if m.Flags.Equal {
			return m.branchTo(cmd.Arg0)
		}
		return nil
	case CmdBranchNotEqual:
		if !m.Flags.Equal {
			return m.branchTo(cmd.Arg0)
		}
		return nil
	case CmdBranchGreater:
		if m.Flags.Greater {
			return m.branchTo(cmd.Arg0)
		}
		return nil
	case CmdBranchGreaterEqual:
		if m.Flags.Greater || m.Flags.Equal {
			return m.branchTo(cmd.Arg0)
		}
		return nil
	case CmdBranchLesser:
		if m.Flags.Less {
			return m.branchTo(cmd.Arg0)
		}
		return nil
	case CmdBranchLesserEqual:
		if m.Flags.Less || m.Flags.Equal {
			return m.branchTo(cmd.Arg0)
		}
		return nil

	case CmdCompare:
		a, err := m.resolveRead(cmd.Arg0)
		if err != nil {
			return err
		}
		b, err := m.resolveRead(cmd.Arg1)
		if err != nil {
			return err
		}
		m.Flags.clearComparison()
		switch {
		case a == b:
			m.Flags.Equal = true
		case a > b:
			m.Flags.Greater = true
		default:
			m.Flags.Less = true
		}
		return nil

	case CmdAdd:
		return m.arithmetic(cmd, func(a, b Integer) (Integer, bool) {
			r := a + b
			return r, r < a
		})
	case CmdSubtract:
		return m.arithmetic(cmd, func(a, b Integer) (Integer, bool) {
			r := a - b
			return r, b > a
		})
	case CmdMultiply:
		return m.arithmetic(cmd, func(a, b Integer) (Integer, bool) {
			r := a * b
			return r, a != 0 && r/a != b
		})
	case CmdDivide:
		a, b, err := m.arithmeticOperands(cmd)
		if err != nil {
			return err
		}
		if b == 0 {
			return ErrDivisionByZero
		}
		m.Flags.Overflow = false
		return m.resolveWrite(cmd.Arg0, a/b)
	case CmdModulo:
		a, b, err := m.arithmeticOperands(cmd)
		if err != nil {
			return err
		}
		if b == 0 {
			return ErrDivisionByZero
		}
		m.Flags.Overflow = false
		return m.resolveWrite(cmd.Arg0, a%b)

	case CmdPush:
		v, err := m.resolveRead(cmd.Arg0)
		if err != nil {
			return err
		}
		m.Stack.Push(v)
		return nil
	case CmdPop:
		if v, ok := m.Stack.Pop(); ok {
			return m.resolveWrite(cmd.Arg0, v)
		}
		return nil

	case CmdCall:
		addr, err := m.labelAddr(cmd.Arg0)
		if err != nil {
			return err
		}
		// The return address goes on CallStack, not Stack: the caller's
		// arguments are already sitting on Stack at this point, and a
		// callee's first instructions pop its parameters off Stack, so
		// the return address must live somewhere they can't collide.
		m.CallStack.Push(Integer(m.PC))
		m.PC = addr - 1 // Tick() increments PC after apply returns
		return nil
	case CmdReturn:
		// The pushed value is the PC of the Call instruction itself
		// (not yet incremented); Tick's unconditional PC++ after apply
		// advances it to the line immediately following that call.
		if v, ok := m.CallStack.Pop(); ok {
			m.PC = int64(v)
		}
		return nil

	default:
		return fmt.Errorf("%w: %d", ErrUnknownCommand, cmd.Kind)
	}
}

// arithmetic resolves both operands, applies op, writes the result to
// the writable destination operand, and updates the overflow flag.
func (m *Machine) arithmetic(cmd Command, op func(a, b Integer) (Integer, bool)) error {
	a, b, err := m.arithmeticOperands(cmd)
	if err != nil {
		return err
	}
	result, overflow := op(a, b)
	m.Flags.Overflow = overflow
	return m.resolveWrite(cmd.Arg0, result)
}

func (m *Machine) arithmeticOperands(cmd Command) (Integer, Integer, error) {
	a, err := m.resolveRead(cmd.Arg0)
	if err != nil {
		return 0, 0, err
	}
	b, err := m.resolveRead(cmd.Arg1)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (m *Machine) branchTo(target Argument) error {
	addr, err := m.labelAddr(target)
	if err != nil {
		return err
	}
	m.PC = addr - 1 // Tick() increments PC after apply returns
	return nil
}

func (m *Machine) labelAddr(arg Argument) (int64, error) {
	if arg.Kind != ArgRawLabel && arg.Kind != ArgHeapRef {
		return 0, ErrUnresolvableRead
	}
	addr, ok := m.Table.Lookup(arg.ID())
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrLabelNotFound, arg.Label)
	}
	return addr, nil
}

// resolveRead implements the read-side operand resolution table: every
// Argument variant except Literal and None produces a value.
func (m *Machine) resolveRead(arg Argument) (Integer, error) {
	switch arg.Kind {
	case ArgRaw:
		return arg.Raw, nil
	case ArgRegister:
		if arg.Reg < 0 || arg.Reg > 15 {
			return 0, fmt.Errorf("%w: r%d", ErrRegisterOutOfRange, arg.Reg)
		}
		return m.Regs[arg.Reg], nil
	case ArgRawLabel, ArgHeapRef:
		addr, ok := m.Table.Lookup(arg.ID())
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrLabelNotFound, arg.Label)
		}
		return Integer(addr), nil
	case ArgHeapDeref:
		addr, ok := m.Table.Lookup(arg.ID())
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrLabelNotFound, arg.Label)
		}
		block, ok := m.Heap.Block(addr)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrHeapBlockNotFound, arg.Label)
		}
		if arg.Offset >= Integer(len(block)) {
			return 0, fmt.Errorf("%w: %q[%d]", ErrHeapOffsetOutOfRange, arg.Label, arg.Offset)
		}
		return block[arg.Offset], nil
	default:
		return 0, ErrUnresolvableRead
	}
}

// resolveWrite implements the write-side operand resolution: only
// Register is a canonical writable cell in this toolchain.
func (m *Machine) resolveWrite(arg Argument, v Integer) error {
	if arg.Kind != ArgRegister {
		return ErrUnresolvableWrite
	}
	if arg.Reg < 0 || arg.Reg > 15 {
		return fmt.Errorf("%w: r%d", ErrRegisterOutOfRange, arg.Reg)
	}
	m.Regs[arg.Reg] = v
	return nil
}
