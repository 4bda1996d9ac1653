package parser

import (
	"testing"

	"github.com/lookbusy1344/shitty-vm/vm"
)

func reg(k int) vm.Argument     { return vm.Argument{Kind: vm.ArgRegister, Reg: k} }
func raw(n vm.Integer) vm.Argument { return vm.Argument{Kind: vm.ArgRaw, Raw: n} }
func lbl(name string) vm.Argument  { return vm.Argument{Kind: vm.ArgRawLabel, Label: name} }

func mustParse(t *testing.T, src string) *vm.Program {
	t.Helper()
	p, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return p
}

func requireCommand(t *testing.T, p *vm.Program, line int64, want vm.Command) {
	t.Helper()
	got, ok := p.Get(line)
	if !ok {
		t.Fatalf("line %d: no command (gap)", line)
	}
	if got.Kind != want.Kind || got.Label != want.Label {
		t.Fatalf("line %d: got %+v, want %+v", line, got, want)
	}
}

func TestParseSimpleProgram(t *testing.T) {
	p := mustParse(t, "mov r0 #7\nmov r1 #2\nadd r0 r1\n")
	requireCommand(t, p, 0, vm.Command{Kind: vm.CmdMove})
	requireCommand(t, p, 1, vm.Command{Kind: vm.CmdMove})
	requireCommand(t, p, 2, vm.Command{Kind: vm.CmdAdd})

	c0, _ := p.Get(0)
	if c0.Arg0.Kind != vm.ArgRegister || c0.Arg0.Reg != 0 || c0.Arg1.Kind != vm.ArgRaw || c0.Arg1.Raw != 7 {
		t.Fatalf("line 0 args = %+v %+v", c0.Arg0, c0.Arg1)
	}
}

func TestParseProgramWithLabels(t *testing.T) {
	src := "cmp r0 #10\n" +
		"bgr :condition_a\n" +
		"mul r0 #5\n" +
		"b :stop\n" +
		"condition_a:\n" +
		"sub r0 #10\n" +
		"stop:\n"
	p := mustParse(t, src)

	requireCommand(t, p, 0, vm.Command{Kind: vm.CmdCompare})
	requireCommand(t, p, 1, vm.Command{Kind: vm.CmdBranchGreater})
	requireCommand(t, p, 4, vm.Command{Kind: vm.CmdLabel})
	requireCommand(t, p, 6, vm.Command{Kind: vm.CmdLabel})

	c1, _ := p.Get(1)
	if c1.Arg0.Kind != vm.ArgRawLabel || c1.Arg0.Label != "condition_a" {
		t.Fatalf("branch target = %+v", c1.Arg0)
	}
}

func TestParseProgramWithCalls(t *testing.T) {
	src := "mov r0 #15\n" +
		"call :add_one\n" +
		"mul r0 #7\n" +
		"b :end\n" +
		"add_one:\n" +
		"add r0 #100\n" +
		"ret\n" +
		"end:\n"
	p := mustParse(t, src)

	requireCommand(t, p, 1, vm.Command{Kind: vm.CmdCall})
	requireCommand(t, p, 6, vm.Command{Kind: vm.CmdReturn})
	requireCommand(t, p, 7, vm.Command{Kind: vm.CmdLabel})
}

func TestParseProgramWithString(t *testing.T) {
	src := "\ndata_str: db \"Hallo\",0,98\nmov r0 :data_str\n"
	p := mustParse(t, src)

	if _, ok := p.Get(0); ok {
		t.Fatal("line 0 should be a gap (blank leading line)")
	}
	c1, ok := p.Get(1)
	if !ok || c1.Kind != vm.CmdLabelledData || c1.Label != "data_str" {
		t.Fatalf("line 1 = %+v, %v", c1, ok)
	}
	want := []vm.Integer{'H', 'a', 'l', 'l', 'o', 0, 98}
	if len(c1.Arg0.Seq) != len(want) {
		t.Fatalf("literal seq = %v, want %v", c1.Arg0.Seq, want)
	}
	for i := range want {
		if c1.Arg0.Seq[i] != want[i] {
			t.Fatalf("literal seq[%d] = %d, want %d", i, c1.Arg0.Seq[i], want[i])
		}
	}

	c2, ok := p.Get(2)
	if !ok || c2.Kind != vm.CmdMove || c2.Arg1.Label != "data_str" {
		t.Fatalf("line 2 = %+v, %v", c2, ok)
	}
}

func TestParseHeapDerefOperands(t *testing.T) {
	src := "mov r1 [:data_str]\n" +
		"mov r2 [:data_str+1]\n" +
		"mov r3 [ :data_str + 2 ]\n"
	p := mustParse(t, src)

	for i, wantOffset := range []vm.Integer{0, 1, 2} {
		c, ok := p.Get(int64(i))
		if !ok || c.Arg1.Kind != vm.ArgHeapDeref || c.Arg1.Label != "data_str" || c.Arg1.Offset != wantOffset {
			t.Fatalf("line %d arg1 = %+v, want heap_deref(data_str, %d)", i, c.Arg1, wantOffset)
		}
	}
}

func TestParseUnknownMnemonicFails(t *testing.T) {
	if _, err := Parse("frobnicate r0 r1\n"); err == nil {
		t.Fatal("expected parse error for unknown mnemonic")
	}
}

func TestParseTooManyOperandsFails(t *testing.T) {
	if _, err := Parse("add r0 r1 r2\n"); err == nil {
		t.Fatal("expected parse error for too many operands")
	}
}

func TestParseModulo(t *testing.T) {
	p := mustParse(t, "mod r0 r1\n")
	requireCommand(t, p, 0, vm.Command{Kind: vm.CmdModulo})
}
