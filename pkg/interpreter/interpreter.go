// Package interpreter executes Flux block trees.
//
// All interpreter state — the function registry, the global scope, and the
// output streams — lives on the Interpreter session object, so independent
// runs are fully isolated. Program output goes to the session's stdout;
// evaluation diagnostics go to its stderr.
package interpreter

import (
	"fmt"
	"io"
	"os"

	"flux/interpreter-go/pkg/ast"
	"flux/interpreter-go/pkg/parser"
	"flux/interpreter-go/pkg/runtime"
)

// Interpreter drives evaluation of Flux programs.
type Interpreter struct {
	functions map[string]*function
	global    *runtime.Scope
	stdout    io.Writer
	stderr    io.Writer
}

// function is one registry entry. Definitions are immutable once hoisted;
// redefining a name overwrites the prior entry.
type function struct {
	name   string
	params []string
	body   []ast.Statement
}

// New returns an interpreter writing to the process streams.
func New() *Interpreter {
	return NewWithStreams(os.Stdout, os.Stderr)
}

// NewWithStreams returns an interpreter writing program output to stdout and
// diagnostics to stderr.
func NewWithStreams(stdout, stderr io.Writer) *Interpreter {
	return &Interpreter{
		functions: make(map[string]*function),
		global:    runtime.NewScope(),
		stdout:    stdout,
		stderr:    stderr,
	}
}

// GlobalScope returns the session's global scope.
func (i *Interpreter) GlobalScope() *runtime.Scope {
	return i.global
}

// RunProgram parses and executes a complete program against a fresh global
// scope and function registry. Load-fatal errors (unmatched braces) and
// call-fatal errors (undefined function, argument count mismatch) are
// returned; evaluation failures are reported to the diagnostic stream and
// execution continues.
func (i *Interpreter) RunProgram(source string) error {
	prog, err := parser.Parse(source)
	if err != nil {
		return err
	}
	i.functions = make(map[string]*function)
	i.global = runtime.NewScope()
	return i.Run(prog)
}

// Run registers the program's hoisted functions and executes its body against
// the session's current global scope. State persists across calls, which is
// what the REPL builds on.
func (i *Interpreter) Run(prog *ast.Program) error {
	for _, def := range prog.Functions {
		i.define(def)
	}
	if err := i.executeBlock(prog.Body, i.global); err != nil {
		// A top-level return ends the program normally.
		if _, ok := err.(returnSignal); ok {
			return nil
		}
		return err
	}
	return nil
}

func (i *Interpreter) define(def *ast.FunctionDefinition) {
	i.functions[def.Name] = &function{name: def.Name, params: def.Params, body: def.Body}
}

func (i *Interpreter) isDefined(name string) bool {
	_, ok := i.functions[name]
	return ok
}

// callFunction invokes a registered function. The callee executes against a
// full copy of the caller's scope with parameters bound on top, so caller
// bindings are readable inside the call but callee mutations are invisible
// after return.
func (i *Interpreter) callFunction(name string, args []runtime.Value, caller *runtime.Scope) (runtime.Value, error) {
	fn, ok := i.functions[name]
	if !ok {
		return nil, fmt.Errorf("function '%s' is not defined", name)
	}
	if len(args) != len(fn.params) {
		return nil, fmt.Errorf("function '%s' expected %d arguments, but got %d", name, len(fn.params), len(args))
	}

	scope := caller.Clone()
	for idx, param := range fn.params {
		scope.Define(param, args[idx])
	}

	if err := i.executeBlock(fn.body, scope); err != nil {
		if sig, ok := err.(returnSignal); ok {
			return sig.value, nil
		}
		return nil, err
	}
	return runtime.NilValue{}, nil
}

// returnSignal unwinds a `return` through enclosing loop and conditional
// bodies up to the nearest function-call boundary.
type returnSignal struct {
	value runtime.Value
}

func (returnSignal) Error() string { return "return" }
