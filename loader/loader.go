// Package loader turns one of the toolchain's three source forms
// (assembly text, script text, or a compiled container) into a
// vm.Program ready to run, picking the form by file extension the same
// way the CLI in main.go does.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lookbusy1344/shitty-vm/container"
	"github.com/lookbusy1344/shitty-vm/parser"
	"github.com/lookbusy1344/shitty-vm/script"
	"github.com/lookbusy1344/shitty-vm/vm"
)

// SourceKind identifies which front end produced (or should consume) a
// Program.
type SourceKind int

const (
	KindAssembly SourceKind = iota
	KindScript
	KindContainer
)

// DetectKind chooses a SourceKind from a file's extension:
// .shc is a compiled container, .shs is script source, anything else
// (including .shasm and no extension) is assembly text.
func DetectKind(path string) SourceKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shc":
		return KindContainer
	case ".shs":
		return KindScript
	default:
		return KindAssembly
	}
}

// LoadFile reads path and lowers/parses/decodes it into a Program,
// picking the front end from DetectKind(path).
func LoadFile(path string) (*vm.Program, error) {
	switch DetectKind(path) {
	case KindContainer:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		return LoadContainer(bytes.NewReader(data))
	case KindScript:
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		return LoadScript(string(src))
	default:
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		return LoadAssembly(string(src))
	}
}

// LoadAssembly parses assembly source text into a Program.
func LoadAssembly(source string) (*vm.Program, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	return prog, nil
}

// LoadScript lexes, parses, and lowers script source text into a
// Program via the calling convention the assembly surface also targets.
func LoadScript(source string) (*vm.Program, error) {
	prog, err := script.Lower(source)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	return prog, nil
}

// LoadContainer decodes a compiled container read from r.
func LoadContainer(r io.Reader) (*vm.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	prog, err := container.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	return prog, nil
}

// SaveContainer encodes prog and writes it to w in the toolchain's
// container format, the inverse of LoadContainer, used by the CLI's
// "compile" subcommand.
func SaveContainer(w io.Writer, prog *vm.Program) error {
	data, err := container.Encode(prog)
	if err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	return nil
}

// NewMachine constructs a ready-to-run Machine from a loaded Program.
func NewMachine(prog *vm.Program) *vm.Machine {
	return vm.NewMachine(prog)
}
