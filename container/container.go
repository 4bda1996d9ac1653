// Package container implements the versioned binary artifact that
// wraps a vm.Program for storage and reload: `compile` writes one,
// `exec` reads one back. The encoding is self-delimiting — every
// variable-length field (tags, label names, literal sequences) is
// length-prefixed, so decode never needs to guess where a field ends.
package container

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lookbusy1344/shitty-vm/vm"
)

// Version is the only container format version this toolchain emits
// or accepts.
const Version uint32 = 0

var magic = [4]byte{'S', 'H', 'I', 'T'}

// Encode serializes a Program as a versioned container.
func Encode(p *vm.Program) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if _, err := w.Write(magic[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.BigEndian, Version); err != nil {
		return nil, err
	}

	keys := p.Keys()
	if err := binary.Write(w, binary.BigEndian, uint64(len(keys))); err != nil {
		return nil, err
	}
	for _, key := range keys {
		cmd, _ := p.Get(key)
		if err := binary.Write(w, binary.BigEndian, key); err != nil {
			return nil, err
		}
		if err := writeCommand(w, cmd); err != nil {
			return nil, fmt.Errorf("container: encode line %d: %w", key, err)
		}
	}

	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a versioned container back into a Program. It is the
// exact inverse of Encode: decode(encode(p)) == p for every Program p.
func Decode(data []byte) (*vm.Program, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("container: reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("container: bad magic %q, not a program container", gotMagic)
	}

	var version uint32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("container: reading version: %w", err)
	}
	if version != Version {
		return nil, fmt.Errorf("container: unsupported version %d", version)
	}

	var count uint64
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("container: reading program length: %w", err)
	}

	prog := vm.NewProgram()
	for i := uint64(0); i < count; i++ {
		var key int64
		if err := binary.Read(r, binary.BigEndian, &key); err != nil {
			return nil, fmt.Errorf("container: reading key %d: %w", i, err)
		}
		cmd, err := readCommand(r)
		if err != nil {
			return nil, fmt.Errorf("container: decode line %d: %w", key, err)
		}
		prog.Set(key, cmd)
	}
	return prog, nil
}
