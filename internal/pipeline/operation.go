package pipeline

import (
	"fmt"
	"strings"
)

// Operation is a user-facing job that maps onto a set of stages.
type Operation string

const (
	OpUpscale  Operation = "upscale"
	OpMatte    Operation = "matte"
	OpAnnotate Operation = "annotate"
	OpConvert  Operation = "convert"
)

// Operations lists every operation in display order.
func Operations() []Operation {
	return []Operation{OpUpscale, OpMatte, OpAnnotate, OpConvert}
}

// ParseOperation accepts an operation name case-insensitively.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Operations() {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q (want upscale, matte, annotate or convert)", s)
}

// ForOperation returns a copy of c with exactly the stages op needs enabled.
// Convert runs no stage and only re-encodes.
func (c Config) ForOperation(op Operation) Config {
	c.Upscale.Enabled = op == OpUpscale
	c.Matte.Enabled = op == OpMatte
	c.Annotate.Enabled = op == OpAnnotate
	return c
}

// OutputSuffix is the file name suffix an operation's outputs get.
func (op Operation) OutputSuffix() string {
	switch op {
	case OpUpscale:
		return "-upscaled"
	case OpMatte:
		return "-nobg"
	case OpAnnotate:
		return "-annotated"
	default:
		return ""
	}
}
