package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lookbusy1344/shitty-vm/vm"
)

// ExpressionEvaluator evaluates the small expression language accepted
// by print/watch/breakpoint-condition commands: register names (r0..r15
// and pc), $-history references, integer literals, and the usual
// arithmetic/bitwise binary operators. Label names are not recognised.
type ExpressionEvaluator struct {
	valueHistory []vm.Integer
}

// NewExpressionEvaluator creates a new expression evaluator.
func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{}
}

// EvaluateExpression evaluates an expression and records the result in
// the $-history.
func (e *ExpressionEvaluator) EvaluateExpression(expr string, machine *vm.Machine) (vm.Integer, error) {
	result, err := e.evaluate(expr, machine)
	if err != nil {
		return 0, err
	}
	e.valueHistory = append(e.valueHistory, result)
	return result, nil
}

// Evaluate evaluates an expression as a breakpoint/watch condition: the
// result is true unless it is exactly zero.
func (e *ExpressionEvaluator) Evaluate(expr string, machine *vm.Machine) (bool, error) {
	result, err := e.evaluate(expr, machine)
	if err != nil {
		return false, err
	}
	return result != 0, nil
}

// GetValueNumber returns the number of values recorded in the
// $-history so far.
func (e *ExpressionEvaluator) GetValueNumber() int {
	return len(e.valueHistory)
}

// GetValue returns a value from the $-history by its 1-based number.
func (e *ExpressionEvaluator) GetValue(number int) (vm.Integer, error) {
	if number < 1 || number > len(e.valueHistory) {
		return 0, fmt.Errorf("value $%d not in history", number)
	}
	return e.valueHistory[number-1], nil
}

// Reset clears the $-history.
func (e *ExpressionEvaluator) Reset() {
	e.valueHistory = e.valueHistory[:0]
}

func (e *ExpressionEvaluator) evaluate(expr string, machine *vm.Machine) (vm.Integer, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty expression")
	}

	if val, err := e.trySimpleEval(expr, machine); err == nil {
		return val, nil
	}

	operators := []string{"<<", ">>", "&", "|", "^", "+", "-", "*", "/", "%"}
	for _, op := range operators {
		for _, pattern := range []string{" " + op + " ", " " + op, op + " "} {
			idx := strings.Index(expr, pattern)
			if idx < 0 {
				continue
			}
			opPos := idx
			if pattern[0] == ' ' {
				opPos++
			}
			left := strings.TrimSpace(expr[:opPos])
			right := strings.TrimSpace(expr[opPos+len(op):])
			if left == "" || right == "" {
				continue
			}
			leftVal, err := e.evaluate(left, machine)
			if err != nil {
				continue
			}
			rightVal, err := e.evaluate(right, machine)
			if err != nil {
				continue
			}
			return e.applyOperator(leftVal, rightVal, op)
		}
	}

	return 0, fmt.Errorf("invalid expression: %s", expr)
}

func (e *ExpressionEvaluator) trySimpleEval(expr string, machine *vm.Machine) (vm.Integer, error) {
	expr = strings.TrimSpace(expr)

	if strings.HasPrefix(expr, "$") {
		num, err := strconv.Atoi(expr[1:])
		if err != nil {
			return 0, fmt.Errorf("invalid value reference: %s", expr)
		}
		return e.GetValue(num)
	}

	if val, err := e.evalRegister(expr, machine); err == nil {
		return val, nil
	}

	if val, err := parseLiteral(expr); err == nil {
		return val, nil
	}

	return 0, fmt.Errorf("unknown identifier: %s", expr)
}

// evalRegister evaluates a register reference: "r0".."r15", or "pc" as
// an alias for the machine's program counter.
func (e *ExpressionEvaluator) evalRegister(expr string, machine *vm.Machine) (vm.Integer, error) {
	expr = strings.ToLower(expr)

	if expr == "pc" {
		return vm.Integer(machine.PC), nil
	}

	if strings.HasPrefix(expr, "r") {
		n, err := strconv.Atoi(expr[1:])
		if err == nil && n >= 0 && n <= 15 {
			return machine.Regs[n], nil
		}
	}

	return 0, fmt.Errorf("not a register")
}

func parseLiteral(expr string) (vm.Integer, error) {
	expr = strings.TrimSpace(expr)

	lower := strings.ToLower(expr)
	if strings.HasPrefix(lower, "0x") {
		val, err := strconv.ParseUint(lower[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return vm.Integer(val), nil
	}

	val, err := strconv.ParseUint(expr, 10, 64)
	if err != nil {
		return 0, err
	}
	return vm.Integer(val), nil
}

func (e *ExpressionEvaluator) applyOperator(left, right vm.Integer, op string) (vm.Integer, error) {
	switch op {
	case "+":
		return left + right, nil
	case "-":
		return left - right, nil
	case "*":
		return left * right, nil
	case "/":
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return left / right, nil
	case "%":
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return left % right, nil
	case "&":
		return left & right, nil
	case "|":
		return left | right, nil
	case "^":
		return left ^ right, nil
	case "<<":
		return left << right, nil
	case ">>":
		return left >> right, nil
	default:
		return 0, fmt.Errorf("unknown operator: %s", op)
	}
}
