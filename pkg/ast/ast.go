// Package ast defines the block tree produced by the program loader.
//
// The language is line oriented, so statements correspond one-to-one with
// source lines; nested blocks become child statement slices. Expressions are
// carried as raw source text rather than parsed sub-trees: evaluation
// substitutes live variable values into the text first, and the diagnostics
// for a failed evaluation report that substituted text.
package ast

// Statement is the shared behaviour for all block-tree nodes.
type Statement interface {
	NodeType() string
	// Pos reports the 1-based source line the statement came from.
	Pos() int
}

// Program is a parsed source unit: hoisted function definitions plus the
// remaining top-level statements.
type Program struct {
	Functions []*FunctionDefinition
	Body      []Statement
}

// FunctionDefinition records one hoisted `fn` block.
type FunctionDefinition struct {
	Name   string
	Params []string
	Body   []Statement
	Line   int
}

func (*FunctionDefinition) NodeType() string { return "FunctionDefinition" }
func (f *FunctionDefinition) Pos() int       { return f.Line }

// Assignment binds a name to the result of one expression.
type Assignment struct {
	Name string
	Expr string
	Line int
}

func (*Assignment) NodeType() string { return "Assignment" }
func (a *Assignment) Pos() int       { return a.Line }

// SequenceAssignment binds a name to a sequence literal; each element is an
// independent expression.
type SequenceAssignment struct {
	Name     string
	Elements []string
	Line     int
}

func (*SequenceAssignment) NodeType() string { return "SequenceAssignment" }
func (s *SequenceAssignment) Pos() int       { return s.Line }

// PrintStatement writes its evaluated arguments, space separated, followed by
// a newline. An empty Args writes a bare newline.
type PrintStatement struct {
	Args []string
	Line int
}

func (*PrintStatement) NodeType() string { return "PrintStatement" }
func (p *PrintStatement) Pos() int       { return p.Line }

// CallStatement invokes a user function and discards the result.
type CallStatement struct {
	Name string
	Args []string
	Line int
}

func (*CallStatement) NodeType() string { return "CallStatement" }
func (c *CallStatement) Pos() int       { return c.Line }

// ReturnStatement yields a value to the nearest enclosing function call, or
// ends the program when executed at the top level.
type ReturnStatement struct {
	Expr string
	Line int
}

func (*ReturnStatement) NodeType() string { return "ReturnStatement" }
func (r *ReturnStatement) Pos() int       { return r.Line }

// IfStatement is an `ifthen` block with an optional `else` block.
type IfStatement struct {
	Condition string
	Then      []Statement
	Else      []Statement
	Line      int
}

func (*IfStatement) NodeType() string { return "IfStatement" }
func (i *IfStatement) Pos() int       { return i.Line }

// WhileStatement re-evaluates its condition before every iteration.
type WhileStatement struct {
	Condition string
	Body      []Statement
	Line      int
}

func (*WhileStatement) NodeType() string { return "WhileStatement" }
func (w *WhileStatement) Pos() int       { return w.Line }
