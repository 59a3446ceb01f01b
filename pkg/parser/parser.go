// Package parser turns Flux source text into the block tree executed by the
// interpreter. Loading is two-pass: hoist every top-level `fn` definition,
// then parse the remaining lines as the main program body. Parsing happens
// once; loop iterations re-execute tree nodes instead of re-scanning lines.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"flux/interpreter-go/pkg/ast"
)

var (
	identPattern    = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	bareCallPattern = regexp.MustCompile(`^\w+\(.*\)$`)
	fnHeaderPattern = regexp.MustCompile(`^fn\s+(\w+)\s*\(([^)]*)\)\s*\{$`)
)

type sourceLine struct {
	text string // trimmed content
	num  int    // 1-based source line
}

// Parse loads a whole program: function definitions hoisted first, the rest
// parsed as the top-level block. Unmatched braces and malformed `fn` headers
// are load-fatal and reported here, before anything executes.
func Parse(source string) (*ast.Program, error) {
	lines := splitLines(source)
	prog := &ast.Program{}

	var rest []sourceLine
	i := 0
	for i < len(lines) {
		line := lines[i]
		if strings.HasPrefix(line.text, "fn ") || strings.HasPrefix(line.text, "fn\t") {
			def, next, err := parseFunction(lines, i)
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, def)
			i = next
			continue
		}
		rest = append(rest, line)
		i++
	}

	body, err := parseBlock(rest)
	if err != nil {
		return nil, err
	}
	prog.Body = body
	return prog, nil
}

// NeedsContinuation reports whether the source ends with at least one block
// still open. The REPL keeps prompting for more lines while this holds.
func NeedsContinuation(source string) bool {
	depth := 0
	for _, line := range splitLines(source) {
		opens, closes := countBraces(line.text)
		depth += opens - closes
	}
	return depth > 0
}

func splitLines(source string) []sourceLine {
	raw := strings.Split(source, "\n")
	out := make([]sourceLine, len(raw))
	for i, line := range raw {
		out[i] = sourceLine{text: strings.TrimSpace(stripComment(line)), num: i + 1}
	}
	return out
}

// stripComment removes a trailing `//` comment, leaving `//` inside string
// literals alone.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		if c == '/' && i+1 < len(line) && line[i+1] == '/' {
			return line[:i]
		}
	}
	return line
}

// BlockEnd exposes brace matching over raw lines: given the index of a line
// containing an opening '{', it returns the index of the line whose '}'
// balances it, or an error if the input ends first.
func BlockEnd(lines []string, start int) (int, error) {
	wrapped := make([]sourceLine, len(lines))
	for i, line := range lines {
		wrapped[i] = sourceLine{text: strings.TrimSpace(stripComment(line)), num: i + 1}
	}
	return blockEnd(wrapped, start)
}

func parseFunction(lines []sourceLine, start int) (*ast.FunctionDefinition, int, error) {
	header := lines[start]
	m := fnHeaderPattern.FindStringSubmatch(header.text)
	if m == nil {
		return nil, 0, fmt.Errorf("line %d: malformed function definition: %q", header.num, header.text)
	}
	name := m[1]
	var params []string
	for _, p := range strings.Split(m[2], ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !identPattern.MatchString(p) {
			return nil, 0, fmt.Errorf("line %d: invalid parameter %q in function '%s'", header.num, p, name)
		}
		params = append(params, p)
	}

	end, err := blockEnd(lines, start)
	if err != nil {
		return nil, 0, fmt.Errorf("function '%s': %w", name, err)
	}
	body, err := parseBlock(lines[start+1 : end])
	if err != nil {
		return nil, 0, err
	}
	return &ast.FunctionDefinition{Name: name, Params: params, Body: body, Line: header.num}, end + 1, nil
}

func parseBlock(lines []sourceLine) ([]ast.Statement, error) {
	var stmts []ast.Statement
	i := 0
	for i < len(lines) {
		line := lines[i]
		text := line.text

		switch {
		case text == "" || strings.HasPrefix(text, "//"):
			i++

		case hasKeyword(text, "ifthen"):
			stmt, next, err := parseIf(lines, i)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
			i = next

		case hasKeyword(text, "while"):
			cond, ok := headerExpr(text)
			if !ok {
				return nil, fmt.Errorf("line %d: 'while' header missing condition: %q", line.num, text)
			}
			end, err := blockEnd(lines, i)
			if err != nil {
				return nil, fmt.Errorf("'while' block: %w", err)
			}
			body, err := parseBlock(lines[i+1 : end])
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, &ast.WhileStatement{Condition: cond, Body: body, Line: line.num})
			i = end + 1

		case strings.HasPrefix(text, "return(") && strings.HasSuffix(text, ")"):
			expr := text[len("return(") : len(text)-1]
			stmts = append(stmts, &ast.ReturnStatement{Expr: expr, Line: line.num})
			i++

		default:
			if stmt := parseSimpleStatement(text, line.num); stmt != nil {
				stmts = append(stmts, stmt)
			}
			// Unrecognized non-blank lines fall through silently.
			// TODO: grow a strict mode that rejects them instead.
			i++
		}
	}
	return stmts, nil
}

func parseIf(lines []sourceLine, start int) (ast.Statement, int, error) {
	line := lines[start]
	cond, ok := headerExpr(line.text)
	if !ok {
		return nil, 0, fmt.Errorf("line %d: 'ifthen' header missing condition: %q", line.num, line.text)
	}
	end, err := blockEnd(lines, start)
	if err != nil {
		return nil, 0, fmt.Errorf("'ifthen' block: %w", err)
	}
	thenBody, err := parseBlock(lines[start+1 : end])
	if err != nil {
		return nil, 0, err
	}
	stmt := &ast.IfStatement{Condition: cond, Then: thenBody, Line: line.num}

	// The else branch may share the closing line (`} else {`) or start on the
	// line immediately after it (`else {`).
	elseStart := -1
	if combinedElse(lines[end].text) {
		elseStart = end
	} else if end+1 < len(lines) && strings.HasPrefix(lines[end+1].text, "else") {
		elseStart = end + 1
	}
	if elseStart < 0 {
		return stmt, end + 1, nil
	}

	elseEnd, err := blockEnd(lines, elseStart)
	if err != nil {
		return nil, 0, fmt.Errorf("'else' block: %w", err)
	}
	elseBody, err := parseBlock(lines[elseStart+1 : elseEnd])
	if err != nil {
		return nil, 0, err
	}
	stmt.Else = elseBody
	return stmt, elseEnd + 1, nil
}

func parseSimpleStatement(text string, num int) ast.Statement {
	if strings.HasPrefix(text, "print(") && strings.HasSuffix(text, ")") {
		content := strings.TrimSpace(text[len("print(") : len(text)-1])
		var args []string
		if content != "" {
			for _, part := range splitTopLevel(content) {
				args = append(args, strings.TrimSpace(part))
			}
		}
		return &ast.PrintStatement{Args: args, Line: num}
	}

	if name, rhs, ok := splitAssignment(text); ok {
		if strings.HasPrefix(rhs, "{") && strings.HasSuffix(rhs, "}") {
			inner := rhs[1 : len(rhs)-1]
			var elements []string
			for _, part := range splitTopLevel(inner) {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				elements = append(elements, part)
			}
			return &ast.SequenceAssignment{Name: name, Elements: elements, Line: num}
		}
		return &ast.Assignment{Name: name, Expr: rhs, Line: num}
	}

	if bareCallPattern.MatchString(text) {
		open := strings.IndexByte(text, '(')
		name := text[:open]
		content := strings.TrimSpace(text[open+1 : len(text)-1])
		var args []string
		if content != "" {
			for _, part := range splitTopLevel(content) {
				args = append(args, strings.TrimSpace(part))
			}
		}
		return &ast.CallStatement{Name: name, Args: args, Line: num}
	}

	return nil
}

// hasKeyword reports whether the line begins with the keyword as a whole
// word, so that e.g. an assignment to `whilex` is not taken for a loop.
func hasKeyword(text, keyword string) bool {
	if !strings.HasPrefix(text, keyword) {
		return false
	}
	rest := text[len(keyword):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '('
}

// combinedElse matches a line of the shape `} else {`, the usual way of
// writing the branch switch on one line.
func combinedElse(text string) bool {
	if !strings.HasPrefix(text, "}") {
		return false
	}
	rest := strings.TrimSpace(text[1:])
	return strings.HasPrefix(rest, "else") && strings.HasSuffix(rest, "{")
}

// splitAssignment recognizes `name = expr`: the first top-level '=' that is
// not part of a comparison operator, with a bare identifier on the left.
func splitAssignment(text string) (name, rhs string, ok bool) {
	depth := 0
	inString := false
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
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(text) && text[i+1] == '=' {
				i++ // skip '=='
				continue
			}
			if i > 0 && (text[i-1] == '=' || text[i-1] == '!' || text[i-1] == '<' || text[i-1] == '>') {
				continue
			}
			lhs := strings.TrimSpace(text[:i])
			if !identPattern.MatchString(lhs) {
				return "", "", false
			}
			return lhs, strings.TrimSpace(text[i+1:]), true
		}
	}
	return "", "", false
}

// splitTopLevel splits on commas that sit outside any parentheses, brackets,
// braces, and string literals.
func splitTopLevel(text string) []string {
	var parts []string
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
				parts = append(parts, text[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, text[last:])
	return parts
}

// headerExpr extracts the parenthesized expression of an `ifthen`/`while`
// header, matching nested parentheses instead of stopping at the first ')'.
func headerExpr(text string) (string, bool) {
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return "", false
	}
	depth := 0
	inString := false
	for i := open; i < len(text); i++ {
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
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[open+1 : i]), true
			}
		}
	}
	return "", false
}

// blockEnd finds the line whose closing brace balances the opening brace on
// lines[start]. Braces are counted in character order, skipping string
// literals; the block ends on the line where depth first reaches zero, so a
// `} else {` line closes the block even though its net brace count is zero.
func blockEnd(lines []sourceLine, start int) (int, error) {
	depth := 1
	for i := start + 1; i < len(lines); i++ {
		closed, rest := scanLineBraces(lines[i].text, depth)
		if closed {
			return i, nil
		}
		depth = rest
	}
	return 0, fmt.Errorf("line %d: unmatched '{': block was never closed", lines[start].num)
}

// scanLineBraces walks one line's braces in order. It reports whether depth
// reached zero on this line; otherwise it returns the depth after the line.
func scanLineBraces(text string, depth int) (bool, int) {
	inString := false
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return true, 0
			}
		}
	}
	return false, depth
}

func countBraces(text string) (opens, closes int) {
	inString := false
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
		case '{':
			opens++
		case '}':
			closes++
		}
	}
	return opens, closes
}
