package vm

import "errors"

// Sentinel errors surfaced by Machine.Tick/Run, matching the error
// kinds spec'd for this toolchain: link, resolve, bounds, invalid-op,
// and arithmetic failures all propagate to the caller of Run.
var (
	ErrLabelNotFound        = errors.New("vm: label not found in label table")
	ErrUnresolvableRead     = errors.New("vm: argument is not a resolvable read operand")
	ErrUnresolvableWrite    = errors.New("vm: argument is not a writable operand")
	ErrRegisterOutOfRange   = errors.New("vm: register index out of range")
	ErrHeapBlockNotFound    = errors.New("vm: heap block not found for label")
	ErrHeapOffsetOutOfRange = errors.New("vm: heap offset out of range")
	ErrDivisionByZero       = errors.New("vm: division by zero")
	ErrUnknownCommand       = errors.New("vm: unknown command kind")
)
