package runtime

import "fmt"

// Kind identifies the runtime value category.
type Kind int

const (
	KindNil Kind = iota
	KindInteger
	KindFloat
	KindString
	KindBool
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindSequence:
		return "sequence"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

// NilValue is the absence value: the result of a failed evaluation and the
// return value of a function that never reaches a top-level return.
type NilValue struct{}

func (NilValue) Kind() Kind { return KindNil }

type IntegerValue struct {
	Val int64
}

func (IntegerValue) Kind() Kind { return KindInteger }

type FloatValue struct {
	Val float64
}

func (FloatValue) Kind() Kind { return KindFloat }

type StringValue struct {
	Val string
}

func (StringValue) Kind() Kind { return KindString }

type BoolValue struct {
	Val bool
}

func (BoolValue) Kind() Kind { return KindBool }

// SequenceValue is an ordered, heterogeneous, zero-indexed sequence. The
// language has no element-mutation operator; sequences change only by
// re-binding a name to a new sequence.
type SequenceValue struct {
	Elements []Value
}

func (*SequenceValue) Kind() Kind { return KindSequence }

// Seq builds a sequence value from its elements.
func Seq(elements ...Value) *SequenceValue {
	return &SequenceValue{Elements: elements}
}
