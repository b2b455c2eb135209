package compiler

import "fmt"

// BailoutReason explains why the baseline refused to compile a function.
// A bailout is not an error: the caller is expected to retry the function
// with a higher-tier compiler.
type BailoutReason byte

const (
	BailoutNone BailoutReason = iota
	BailoutUnsupportedOpcode
	BailoutUnsupportedValueType
	BailoutOversizedOperandStack
	BailoutOversizedGlobal
	BailoutUnsupportedParamLocation
	BailoutMultiValueReturn
)

func (r BailoutReason) String() string {
	switch r {
	case BailoutNone:
		return "none"
	case BailoutUnsupportedOpcode:
		return "unsupported opcode"
	case BailoutUnsupportedValueType:
		return "unsupported value type"
	case BailoutOversizedOperandStack:
		return "operand stack exceeds MaxStackHeight"
	case BailoutOversizedGlobal:
		return "global exceeds supported size"
	case BailoutUnsupportedParamLocation:
		return "unsupported parameter location"
	case BailoutMultiValueReturn:
		return "multi-value return unsupported"
	default:
		return fmt.Sprintf("BailoutReason(%d)", byte(r))
	}
}

// internalError marks a programmer-error condition: a use-count mismatch,
// an unbound label at function end, or allocator over-subscription. These
// must never be reachable given a correct decoder, so this panics rather
// than threading an error return through every call site.
func internalError(format string, args ...interface{}) {
	panic(fmt.Sprintf("compiler: internal invariant violated: "+format, args...))
}
