package container

import (
	"testing"

	"github.com/lookbusy1344/shitty-vm/parser"
)

func TestRoundTrip(t *testing.T) {
	source := `
data_str: db "Hallo",0,98
mov r0 :data_str
mov r1 [:data_str]
mov r2 [:data_str+1]
mov r3 [ :data_str + 2 ]
`
	prog, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	encoded, err := Encode(prog)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !prog.Equal(decoded) {
		t.Fatalf("round trip mismatch: got %d lines, want %d", decoded.Len(), prog.Len())
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	if _, err := Decode([]byte("not a container")); err == nil {
		t.Fatal("expected error decoding garbage input")
	}
}

func TestDecodeRejectsFutureVersion(t *testing.T) {
	prog, err := parser.Parse("mov r0 #1\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	encoded, err := Encode(prog)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// version is magic(4) + uint32 version: flip a version byte.
	encoded[7] = 0xFF
	if _, err := Decode(encoded); err == nil {
		t.Fatal("expected error decoding unsupported version")
	}
}
