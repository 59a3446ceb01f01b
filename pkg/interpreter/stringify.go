package interpreter

import (
	"fmt"
	"strconv"
	"strings"

	"flux/interpreter-go/pkg/runtime"
)

// FormatValue renders a value the way print would; the REPL uses it to show
// scope contents.
func FormatValue(val runtime.Value) string {
	return valueToString(val)
}

// valueToString renders a value for print output. Strings render bare;
// sequences render in the language's own literal syntax with their string
// elements quoted, so printed sequences read back as valid literals.
func valueToString(val runtime.Value) string {
	switch v := val.(type) {
	case runtime.StringValue:
		return v.Val
	case runtime.BoolValue:
		if v.Val {
			return "true"
		}
		return "false"
	case runtime.IntegerValue:
		return strconv.FormatInt(v.Val, 10)
	case runtime.FloatValue:
		return fmt.Sprintf("%g", v.Val)
	case runtime.NilValue:
		return "nil"
	case *runtime.SequenceValue:
		parts := make([]string, 0, len(v.Elements))
		for _, el := range v.Elements {
			parts = append(parts, encodeLiteral(el))
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("[%s]", val.Kind())
	}
}

// encodeLiteral renders a value as expression source text that evaluates back
// to the same value. Substitution splices these encodings into expression
// text in place of variable names.
func encodeLiteral(val runtime.Value) string {
	switch v := val.(type) {
	case runtime.StringValue:
		return strconv.Quote(v.Val)
	case runtime.BoolValue:
		if v.Val {
			return "true"
		}
		return "false"
	case runtime.IntegerValue:
		return strconv.FormatInt(v.Val, 10)
	case runtime.FloatValue:
		s := strconv.FormatFloat(v.Val, 'g', -1, 64)
		// Keep floats recognizably float so the round-trip preserves the kind.
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case runtime.NilValue:
		return "nil"
	case *runtime.SequenceValue:
		parts := make([]string, 0, len(v.Elements))
		for _, el := range v.Elements {
			parts = append(parts, encodeLiteral(el))
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	default:
		return "nil"
	}
}

// isTruthy mirrors the original evaluator's truthiness: zero numbers, empty
// strings and sequences, false, and the absence value are falsy.
func isTruthy(val runtime.Value) bool {
	switch v := val.(type) {
	case runtime.NilValue:
		return false
	case runtime.BoolValue:
		return v.Val
	case runtime.IntegerValue:
		return v.Val != 0
	case runtime.FloatValue:
		return v.Val != 0
	case runtime.StringValue:
		return v.Val != ""
	case *runtime.SequenceValue:
		return len(v.Elements) != 0
	default:
		return true
	}
}
