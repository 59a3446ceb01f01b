package parser

import (
	"strings"
	"testing"

	"flux/interpreter-go/pkg/ast"
)

func TestBlockEndMatchesNesting(t *testing.T) {
	lines := []string{
		"while (i < 10) {",
		"    ifthen (i % 2 == 0) {",
		"        print(i)",
		"    }",
		"    i = i + 1",
		"}",
	}
	end, err := BlockEnd(lines, 0)
	if err != nil {
		t.Fatalf("BlockEnd returned error: %v", err)
	}
	if end != 5 {
		t.Fatalf("BlockEnd = %d, want 5", end)
	}
}

func TestBlockEndCombinedElseLine(t *testing.T) {
	lines := []string{
		"ifthen (x) {",
		"    print(1)",
		"} else {",
		"    print(2)",
		"}",
	}
	end, err := BlockEnd(lines, 0)
	if err != nil {
		t.Fatalf("BlockEnd returned error: %v", err)
	}
	if end != 2 {
		t.Fatalf("BlockEnd = %d, want 2 (the '} else {' line closes the block)", end)
	}
}

func TestBlockEndIgnoresBracesInStrings(t *testing.T) {
	lines := []string{
		"while (x) {",
		`    print("closing } brace")`,
		"}",
	}
	end, err := BlockEnd(lines, 0)
	if err != nil {
		t.Fatalf("BlockEnd returned error: %v", err)
	}
	if end != 2 {
		t.Fatalf("BlockEnd = %d, want 2", end)
	}
}

func TestBlockEndUnmatched(t *testing.T) {
	lines := []string{
		"while (x) {",
		"    print(1)",
	}
	if _, err := BlockEnd(lines, 0); err == nil {
		t.Fatalf("expected unmatched-brace error")
	}
}

func TestParseUnmatchedBraceNamesConstruct(t *testing.T) {
	_, err := Parse("while (1) {\nprint(1)\n")
	if err == nil {
		t.Fatalf("expected load error")
	}
	if !strings.Contains(err.Error(), "'while'") {
		t.Fatalf("error should name the construct, got: %v", err)
	}
}

func TestParseHoistsFunctions(t *testing.T) {
	src := `
fn add(a, b) {
    return(a + b)
}
x = 1
add(1, 2)
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("expected 1 hoisted function, got %d", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "add" || len(fn.Params) != 2 || fn.Params[0] != "a" || fn.Params[1] != "b" {
		t.Fatalf("unexpected function definition %+v", fn)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body))
	}
	if _, ok := fn.Body[0].(*ast.ReturnStatement); !ok {
		t.Fatalf("expected return statement, got %s", fn.Body[0].NodeType())
	}
	if len(prog.Body) != 2 {
		t.Fatalf("expected 2 top-level statements, got %d", len(prog.Body))
	}
}

func TestParseMalformedFunctionHeader(t *testing.T) {
	if _, err := Parse("fn broken( {\n}\n"); err == nil {
		t.Fatalf("expected malformed function definition error")
	}
}

func TestParseIfWithElseOnNextLine(t *testing.T) {
	src := `
ifthen (x == 1) {
    print("one")
}
else {
    print("other")
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(prog.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Body))
	}
	stmt, ok := prog.Body[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected IfStatement, got %s", prog.Body[0].NodeType())
	}
	if stmt.Condition != "x == 1" {
		t.Fatalf("condition = %q", stmt.Condition)
	}
	if len(stmt.Then) != 1 || len(stmt.Else) != 1 {
		t.Fatalf("then/else lengths = %d/%d, want 1/1", len(stmt.Then), len(stmt.Else))
	}
}

func TestParseIfWithCombinedElseLine(t *testing.T) {
	src := `
ifthen (x == 1) {
    print("one")
} else {
    print("other")
}
print("after")
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(prog.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Body))
	}
	stmt := prog.Body[0].(*ast.IfStatement)
	if len(stmt.Then) != 1 || len(stmt.Else) != 1 {
		t.Fatalf("then/else lengths = %d/%d, want 1/1", len(stmt.Then), len(stmt.Else))
	}
}

func TestParseNestedConditionParens(t *testing.T) {
	prog, err := Parse("ifthen ((a + b) > c) {\n}\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	stmt := prog.Body[0].(*ast.IfStatement)
	if stmt.Condition != "(a + b) > c" {
		t.Fatalf("condition = %q, want whole nested expression", stmt.Condition)
	}
}

func TestParseSequenceAssignment(t *testing.T) {
	prog, err := Parse(`a = {1, "hello", 3}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	stmt, ok := prog.Body[0].(*ast.SequenceAssignment)
	if !ok {
		t.Fatalf("expected SequenceAssignment, got %s", prog.Body[0].NodeType())
	}
	if len(stmt.Elements) != 3 || stmt.Elements[1] != `"hello"` {
		t.Fatalf("unexpected elements %q", stmt.Elements)
	}
}

func TestParsePrintSplitsTopLevelCommas(t *testing.T) {
	prog, err := Parse(`print(f(a, b), "x, y", 2)`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	stmt := prog.Body[0].(*ast.PrintStatement)
	want := []string{"f(a, b)", `"x, y"`, "2"}
	if len(stmt.Args) != len(want) {
		t.Fatalf("args = %q, want %q", stmt.Args, want)
	}
	for i := range want {
		if stmt.Args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, stmt.Args[i], want[i])
		}
	}
}

func TestParsePrintEmpty(t *testing.T) {
	prog, err := Parse("print()")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	stmt := prog.Body[0].(*ast.PrintStatement)
	if len(stmt.Args) != 0 {
		t.Fatalf("expected no args, got %q", stmt.Args)
	}
}

func TestParseAssignmentVersusComparison(t *testing.T) {
	prog, err := Parse("x = y == 1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	stmt, ok := prog.Body[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("expected Assignment, got %s", prog.Body[0].NodeType())
	}
	if stmt.Name != "x" || stmt.Expr != "y == 1" {
		t.Fatalf("assignment = %q / %q", stmt.Name, stmt.Expr)
	}
}

func TestParseIgnoresUnrecognizedLines(t *testing.T) {
	prog, err := Parse("??? what is this\nx = 1\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(prog.Body) != 1 {
		t.Fatalf("expected unrecognized line to be dropped, got %d statements", len(prog.Body))
	}
}

func TestParseStripsInlineComments(t *testing.T) {
	prog, err := Parse("fn f() {\nreturn(0) // zero means no\n}\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ret := prog.Functions[0].Body[0].(*ast.ReturnStatement)
	if ret.Expr != "0" {
		t.Fatalf("return expr = %q, want \"0\"", ret.Expr)
	}
}

func TestParseKeepsSlashesInStrings(t *testing.T) {
	prog, err := Parse(`print("http://example")`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	stmt := prog.Body[0].(*ast.PrintStatement)
	if len(stmt.Args) != 1 || stmt.Args[0] != `"http://example"` {
		t.Fatalf("args = %q", stmt.Args)
	}
}

func TestNeedsContinuation(t *testing.T) {
	if NeedsContinuation("x = 1") {
		t.Fatalf("complete statement should not continue")
	}
	if !NeedsContinuation("while (1) {") {
		t.Fatalf("open block should continue")
	}
	if NeedsContinuation("while (1) {\nprint(1)\n}") {
		t.Fatalf("closed block should not continue")
	}
	if NeedsContinuation(`x = "unbalanced {"`) {
		t.Fatalf("brace inside string should not count")
	}
}
