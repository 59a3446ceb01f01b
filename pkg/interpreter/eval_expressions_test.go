package interpreter

import (
	"bytes"
	"strings"
	"testing"

	"flux/interpreter-go/pkg/runtime"
)

func evalIn(t *testing.T, expr string, scope *runtime.Scope) (runtime.Value, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	interp := NewWithStreams(&stdout, &stderr)
	val := interp.evaluate(expr, scope)
	return val, stderr.String()
}

func mustInt(t *testing.T, val runtime.Value, want int64) {
	t.Helper()
	iv, ok := val.(runtime.IntegerValue)
	if !ok || iv.Val != want {
		t.Fatalf("expected integer %d, got %#v", want, val)
	}
}

func TestLengthOperatorOnSequence(t *testing.T) {
	scope := runtime.NewScope()
	scope.Define("xs", runtime.Seq(
		runtime.IntegerValue{Val: 1},
		runtime.IntegerValue{Val: 2},
		runtime.IntegerValue{Val: 3},
	))
	val, diag := evalIn(t, "$xs", scope)
	if diag != "" {
		t.Fatalf("unexpected diagnostic: %s", diag)
	}
	mustInt(t, val, 3)
}

func TestLengthOperatorOnString(t *testing.T) {
	scope := runtime.NewScope()
	scope.Define("s", runtime.StringValue{Val: "hello"})
	val, _ := evalIn(t, "$s", scope)
	mustInt(t, val, 5)
}

func TestSubstitutionSubstringSafe(t *testing.T) {
	scope := runtime.NewScope()
	scope.Define("a", runtime.IntegerValue{Val: 1})
	scope.Define("ab", runtime.IntegerValue{Val: 10})
	val, diag := evalIn(t, "a+ab", scope)
	if diag != "" {
		t.Fatalf("unexpected diagnostic: %s", diag)
	}
	mustInt(t, val, 11)
}

func TestSubstitutionSkipsStringLiterals(t *testing.T) {
	scope := runtime.NewScope()
	scope.Define("a", runtime.IntegerValue{Val: 1})
	val, diag := evalIn(t, `"a" + "b"`, scope)
	if diag != "" {
		t.Fatalf("unexpected diagnostic: %s", diag)
	}
	sv, ok := val.(runtime.StringValue)
	if !ok || sv.Val != "ab" {
		t.Fatalf("expected \"ab\", got %#v", val)
	}
}

func TestSubstitutedStringValueStaysInert(t *testing.T) {
	// A string value containing another variable's name must not be
	// re-substituted after it is spliced in.
	scope := runtime.NewScope()
	scope.Define("msg", runtime.StringValue{Val: "b wins"})
	scope.Define("b", runtime.IntegerValue{Val: 2})
	val, diag := evalIn(t, "msg", scope)
	if diag != "" {
		t.Fatalf("unexpected diagnostic: %s", diag)
	}
	sv, ok := val.(runtime.StringValue)
	if !ok || sv.Val != "b wins" {
		t.Fatalf("expected \"b wins\", got %#v", val)
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	val, _ := evalIn(t, "2 + 3 * 4", runtime.NewScope())
	mustInt(t, val, 14)

	val, _ = evalIn(t, "(2 + 3) * 4", runtime.NewScope())
	mustInt(t, val, 20)

	val, _ = evalIn(t, "-2 * 3", runtime.NewScope())
	mustInt(t, val, -6)
}

func TestDivisionYieldsFloat(t *testing.T) {
	val, _ := evalIn(t, "7 / 2", runtime.NewScope())
	fv, ok := val.(runtime.FloatValue)
	if !ok || fv.Val != 3.5 {
		t.Fatalf("expected 3.5, got %#v", val)
	}
}

func TestModulo(t *testing.T) {
	val, _ := evalIn(t, "10 % 3", runtime.NewScope())
	mustInt(t, val, 1)

	val, _ = evalIn(t, "-7 % 3", runtime.NewScope())
	mustInt(t, val, 2)
}

func TestComparisons(t *testing.T) {
	cases := map[string]bool{
		"1 < 2":            true,
		"2 <= 1":           false,
		"3 == 3":           true,
		"3 != 3":           false,
		`"a" < "b"`:        true,
		`"x" == "x"`:       true,
		`1 == "1"`:         false,
		"1 == 1.0":         true,
		"{1, 2} == {1, 2}": true,
		"{1, 2} == {2, 1}": false,
	}
	for expr, want := range cases {
		val, diag := evalIn(t, expr, runtime.NewScope())
		if diag != "" {
			t.Fatalf("%s: unexpected diagnostic: %s", expr, diag)
		}
		bv, ok := val.(runtime.BoolValue)
		if !ok || bv.Val != want {
			t.Fatalf("%s = %#v, want %v", expr, val, want)
		}
	}
}

func TestStringConcatenation(t *testing.T) {
	val, _ := evalIn(t, `"foo" + "bar"`, runtime.NewScope())
	sv, ok := val.(runtime.StringValue)
	if !ok || sv.Val != "foobar" {
		t.Fatalf("expected \"foobar\", got %#v", val)
	}
}

func TestSequenceIndexing(t *testing.T) {
	scope := runtime.NewScope()
	scope.Define("xs", runtime.Seq(
		runtime.IntegerValue{Val: 7},
		runtime.StringValue{Val: "mid"},
		runtime.IntegerValue{Val: 9},
	))
	val, _ := evalIn(t, "xs[2]", scope)
	mustInt(t, val, 9)

	val, _ = evalIn(t, "xs[1]", scope)
	sv, ok := val.(runtime.StringValue)
	if !ok || sv.Val != "mid" {
		t.Fatalf("expected \"mid\", got %#v", val)
	}
}

func TestIndexOutOfRangeIsRecoverable(t *testing.T) {
	scope := runtime.NewScope()
	scope.Define("xs", runtime.Seq(runtime.IntegerValue{Val: 1}))
	val, diag := evalIn(t, "xs[5]", scope)
	if _, ok := val.(runtime.NilValue); !ok {
		t.Fatalf("expected absence value, got %#v", val)
	}
	if !strings.Contains(diag, "out of range") {
		t.Fatalf("diagnostic should mention the index error, got: %s", diag)
	}
}

func TestBuiltins(t *testing.T) {
	val, _ := evalIn(t, `length("hey")`, runtime.NewScope())
	mustInt(t, val, 3)

	val, _ = evalIn(t, `int("12") + 1`, runtime.NewScope())
	mustInt(t, val, 13)

	val, _ = evalIn(t, `float(3) / 2`, runtime.NewScope())
	fv, ok := val.(runtime.FloatValue)
	if !ok || fv.Val != 1.5 {
		t.Fatalf("expected 1.5, got %#v", val)
	}

	val, _ = evalIn(t, "str(42) + \"!\"", runtime.NewScope())
	sv, ok := val.(runtime.StringValue)
	if !ok || sv.Val != "42!" {
		t.Fatalf("expected \"42!\", got %#v", val)
	}
}

func TestMalformedExpressionIsRecoverable(t *testing.T) {
	val, diag := evalIn(t, "1 +", runtime.NewScope())
	if _, ok := val.(runtime.NilValue); !ok {
		t.Fatalf("expected absence value, got %#v", val)
	}
	if !strings.Contains(diag, "could not evaluate expression") {
		t.Fatalf("unexpected diagnostic: %s", diag)
	}
}

func TestDiagnosticShowsOriginalAndSubstituted(t *testing.T) {
	scope := runtime.NewScope()
	scope.Define("x", runtime.StringValue{Val: "oops"})
	_, diag := evalIn(t, "x - 1", scope)
	if !strings.Contains(diag, `"oops" - 1`) || !strings.Contains(diag, "x - 1") {
		t.Fatalf("diagnostic should show both expression forms, got: %s", diag)
	}
}

func TestUnboundNameIsRecoverable(t *testing.T) {
	val, diag := evalIn(t, "mystery + 1", runtime.NewScope())
	if _, ok := val.(runtime.NilValue); !ok {
		t.Fatalf("expected absence value, got %#v", val)
	}
	if !strings.Contains(diag, "'mystery' is not defined") {
		t.Fatalf("unexpected diagnostic: %s", diag)
	}
}

func TestDivisionByZeroIsRecoverable(t *testing.T) {
	val, diag := evalIn(t, "1 / 0", runtime.NewScope())
	if _, ok := val.(runtime.NilValue); !ok {
		t.Fatalf("expected absence value, got %#v", val)
	}
	if !strings.Contains(diag, "division by zero") {
		t.Fatalf("unexpected diagnostic: %s", diag)
	}
}

func TestEvaluationDoesNotMutateScope(t *testing.T) {
	scope := runtime.NewScope()
	scope.Define("a", runtime.IntegerValue{Val: 1})
	evalIn(t, "a + 1", scope)
	if scope.Len() != 1 {
		t.Fatalf("scope grew during evaluation: %v", scope.Names())
	}
	mustIntBinding(t, scope, "a", 1)
}

func mustIntBinding(t *testing.T, scope *runtime.Scope, name string, want int64) {
	t.Helper()
	val, ok := scope.Lookup(name)
	if !ok {
		t.Fatalf("missing binding %q", name)
	}
	mustInt(t, val, want)
}

func TestFloatRoundTripKeepsKind(t *testing.T) {
	scope := runtime.NewScope()
	scope.Define("f", runtime.FloatValue{Val: 2.0})
	val, _ := evalIn(t, "f", scope)
	if _, ok := val.(runtime.FloatValue); !ok {
		t.Fatalf("float binding came back as %#v", val)
	}
}
