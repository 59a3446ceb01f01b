package interpreter

import (
	"fmt"
	"regexp"
	"strings"

	"flux/interpreter-go/pkg/ast"
	"flux/interpreter-go/pkg/runtime"
)

func (i *Interpreter) executeBlock(stmts []ast.Statement, scope *runtime.Scope) error {
	for _, stmt := range stmts {
		if err := i.executeStatement(stmt, scope); err != nil {
			return err
		}
	}
	return nil
}

// executeStatement dispatches one block-tree node. Conditional and loop
// bodies execute against the same scope object as their surroundings; only
// function calls copy (see callFunction).
func (i *Interpreter) executeStatement(stmt ast.Statement, scope *runtime.Scope) error {
	switch n := stmt.(type) {
	case *ast.Assignment:
		val, err := i.evalOperand(n.Expr, scope)
		if err != nil {
			return err
		}
		scope.Define(n.Name, val)
		return nil

	case *ast.SequenceAssignment:
		elements := make([]runtime.Value, 0, len(n.Elements))
		for _, expr := range n.Elements {
			val, err := i.evalOperand(expr, scope)
			if err != nil {
				return err
			}
			elements = append(elements, val)
		}
		scope.Define(n.Name, &runtime.SequenceValue{Elements: elements})
		return nil

	case *ast.PrintStatement:
		if len(n.Args) == 0 {
			fmt.Fprintln(i.stdout)
			return nil
		}
		parts := make([]string, 0, len(n.Args))
		for _, arg := range n.Args {
			val, err := i.evalOperand(arg, scope)
			if err != nil {
				return err
			}
			parts = append(parts, valueToString(val))
		}
		fmt.Fprintln(i.stdout, strings.Join(parts, " "))
		return nil

	case *ast.CallStatement:
		args, err := i.evalArgs(n.Args, scope)
		if err != nil {
			return err
		}
		_, err = i.callFunction(n.Name, args, scope)
		return err

	case *ast.ReturnStatement:
		val, err := i.evalOperand(n.Expr, scope)
		if err != nil {
			return err
		}
		return returnSignal{value: val}

	case *ast.IfStatement:
		cond, err := i.evalOperand(n.Condition, scope)
		if err != nil {
			return err
		}
		if isTruthy(cond) {
			return i.executeBlock(n.Then, scope)
		}
		return i.executeBlock(n.Else, scope)

	case *ast.WhileStatement:
		for {
			cond, err := i.evalOperand(n.Condition, scope)
			if err != nil {
				return err
			}
			if !isTruthy(cond) {
				return nil
			}
			if err := i.executeBlock(n.Body, scope); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("unsupported statement type: %s", stmt.NodeType())
	}
}

// evalArgs evaluates a call's argument expressions left to right.
func (i *Interpreter) evalArgs(exprs []string, scope *runtime.Scope) ([]runtime.Value, error) {
	args := make([]runtime.Value, 0, len(exprs))
	for _, expr := range exprs {
		val, err := i.evalOperand(expr, scope)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return args, nil
}

var callShapePattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// evalOperand evaluates one operand position: an assignment right-hand side,
// a print or call argument, or a return expression. If the operand is a call
// to a registered user function, the call is dispatched here — the expression
// grammar itself stays effect-free — and its fatal errors (arity mismatch)
// propagate. Anything else goes to the expression evaluator, where failures
// are recoverable.
func (i *Interpreter) evalOperand(expr string, scope *runtime.Scope) (runtime.Value, error) {
	expr = strings.TrimSpace(expr)
	if name, argText, ok := callShape(expr); ok && i.isDefined(name) {
		var argExprs []string
		if strings.TrimSpace(argText) != "" {
			argExprs = splitCallArgs(argText)
		}
		args, err := i.evalArgs(argExprs, scope)
		if err != nil {
			return nil, err
		}
		return i.callFunction(name, args, scope)
	}
	return i.evaluate(expr, scope), nil
}

// callShape recognizes `name(...)` where the parenthesis opened after the
// name closes at the very end of the expression, so `f(1)+g(2)` is left to
// the expression evaluator.
func callShape(expr string) (name, args string, ok bool) {
	m := callShapePattern.FindStringSubmatch(expr)
	if m == nil {
		return "", "", false
	}
	open := strings.IndexByte(expr, '(')
	depth := 0
	inString := false
	for i := open; i < len(expr); i++ {
		c := expr[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if i != len(expr)-1 {
					return "", "", false
				}
				return expr[:open], expr[open+1 : i], true
			}
		}
	}
	return "", "", false
}

func splitCallArgs(text string) []string {
	var args []string
	depth := 0
	inString := false
	last := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(text[last:i]))
				last = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(text[last:]))
	return args
}
