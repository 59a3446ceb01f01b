package interpreter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"flux/interpreter-go/pkg/runtime"
)

// evaluate evaluates one expression against a scope. The pipeline follows the
// language's substitution model: rewrite every `$name` to `length(name)`,
// substitute bound variables (longest name first) with literal encodings of
// their values, then run the resulting literal-only text through the
// restricted expression grammar. Failures are recoverable: they are reported
// to the diagnostic stream with the original and substituted text, and the
// result is the absence value.
func (i *Interpreter) evaluate(expr string, scope *runtime.Scope) runtime.Value {
	substituted := substituteScope(expr, scope)
	val, err := evalSubstituted(substituted)
	if err != nil {
		fmt.Fprintf(i.stderr, "runtime error: could not evaluate expression '%s' (from '%s'): %v\n", substituted, expr, err)
		return runtime.NilValue{}
	}
	return val
}

var lengthPattern = regexp.MustCompile(`\$(\w+)`)

// substituteScope performs the textual rewrite phase. Both rewrites skip the
// inside of string literals, including literals inserted by an earlier
// substitution, so a value containing another variable's name cannot corrupt
// the expression.
func substituteScope(expr string, scope *runtime.Scope) string {
	expr = mapOutsideStrings(expr, func(seg string) string {
		return lengthPattern.ReplaceAllString(seg, "length($1)")
	})
	for _, name := range scope.NamesByLength() {
		val, _ := scope.Lookup(name)
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		encoded := encodeLiteral(val)
		expr = mapOutsideStrings(expr, func(seg string) string {
			return pattern.ReplaceAllLiteralString(seg, encoded)
		})
	}
	return expr
}

// mapOutsideStrings applies f to every maximal segment of text that lies
// outside double-quoted string literals.
func mapOutsideStrings(text string, f func(string) string) string {
	var b strings.Builder
	segStart := 0
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				b.WriteString(text[segStart : i+1])
				segStart = i + 1
				inString = false
			}
			continue
		}
		if c == '"' {
			b.WriteString(f(text[segStart:i]))
			segStart = i
			inString = true
		}
	}
	if inString {
		b.WriteString(text[segStart:])
	} else {
		b.WriteString(f(text[segStart:]))
	}
	return b.String()
}

// evalSubstituted parses and evaluates a literal-only expression. It is total
// over the restricted grammar and has no access to scopes or streams, so
// evaluation cannot mutate anything or perform I/O.
func evalSubstituted(text string) (runtime.Value, error) {
	toks, err := lexExpression(text)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected '%s'", tok.describe())
	}
	return val, nil
}

//-----------------------------------------------------------------------------
// Lexer
//-----------------------------------------------------------------------------

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokFloat
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind     tokenKind
	text     string
	intVal   int64
	floatVal float64
	strVal   string
}

func (t token) describe() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return t.text
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func lexExpression(text string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t':
			i++

		case isDigit(c):
			start := i
			isFloat := false
			for i < len(text) && isDigit(text[i]) {
				i++
			}
			if i < len(text) && text[i] == '.' {
				isFloat = true
				i++
				for i < len(text) && isDigit(text[i]) {
					i++
				}
			}
			if i < len(text) && (text[i] == 'e' || text[i] == 'E') {
				j := i + 1
				if j < len(text) && (text[j] == '+' || text[j] == '-') {
					j++
				}
				if j < len(text) && isDigit(text[j]) {
					isFloat = true
					i = j
					for i < len(text) && isDigit(text[i]) {
						i++
					}
				}
			}
			lit := text[start:i]
			if isFloat {
				f, err := strconv.ParseFloat(lit, 64)
				if err != nil {
					return nil, fmt.Errorf("bad number literal '%s'", lit)
				}
				toks = append(toks, token{kind: tokFloat, text: lit, floatVal: f})
			} else {
				n, err := strconv.ParseInt(lit, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("bad number literal '%s'", lit)
				}
				toks = append(toks, token{kind: tokInt, text: lit, intVal: n})
			}

		case c == '"':
			j := i + 1
			for j < len(text) {
				if text[j] == '\\' {
					j += 2
					continue
				}
				if text[j] == '"' {
					break
				}
				j++
			}
			if j >= len(text) {
				return nil, fmt.Errorf("unterminated string literal")
			}
			raw := text[i : j+1]
			s, err := strconv.Unquote(raw)
			if err != nil {
				return nil, fmt.Errorf("bad string literal %s", raw)
			}
			toks = append(toks, token{kind: tokString, text: raw, strVal: s})
			i = j + 1

		case isIdentStart(c):
			start := i
			for i < len(text) && isIdentPart(text[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: text[start:i]})

		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < len(text) && text[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: text[i : i+2]})
				i += 2
			} else if c == '<' || c == '>' {
				toks = append(toks, token{kind: tokOp, text: string(c)})
				i++
			} else {
				return nil, fmt.Errorf("unexpected character '%c'", c)
			}

		case strings.IndexByte("+-*/%()[]{},", c) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(c)})
			i++

		default:
			return nil, fmt.Errorf("unexpected character '%c'", c)
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

//-----------------------------------------------------------------------------
// Recursive-descent evaluation
//-----------------------------------------------------------------------------

type exprParser struct {
	toks []token
	pos  int
}

func (p *exprParser) peek() token { return p.toks[p.pos] }

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) acceptOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.next()
			return op, true
		}
	}
	return "", false
}

func (p *exprParser) expectOp(op string) error {
	t := p.peek()
	if t.kind != tokOp || t.text != op {
		return fmt.Errorf("expected '%s', found '%s'", op, t.describe())
	}
	p.next()
	return nil
}

func (p *exprParser) parseExpression() (runtime.Value, error) {
	return p.parseComparison()
}

func (p *exprParser) parseComparison() (runtime.Value, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("==", "!=", "<", "<=", ">", ">=")
		if !ok {
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left, err = applyComparison(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *exprParser) parseAdditive() (runtime.Value, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left, err = applyArithmetic(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *exprParser) parseMultiplicative() (runtime.Value, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left, err = applyArithmetic(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *exprParser) parseUnary() (runtime.Value, error) {
	if _, ok := p.acceptOp("-"); ok {
		val, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		switch v := val.(type) {
		case runtime.IntegerValue:
			return runtime.IntegerValue{Val: -v.Val}, nil
		case runtime.FloatValue:
			return runtime.FloatValue{Val: -v.Val}, nil
		default:
			return nil, fmt.Errorf("unary '-' requires a number, got %s", val.Kind())
		}
	}
	return p.parsePostfix()
}

func (p *exprParser) parsePostfix() (runtime.Value, error) {
	val, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("["); !ok {
			return val, nil
		}
		idx, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("]"); err != nil {
			return nil, err
		}
		val, err = indexValue(val, idx)
		if err != nil {
			return nil, err
		}
	}
}

func (p *exprParser) parsePrimary() (runtime.Value, error) {
	t := p.peek()
	switch t.kind {
	case tokInt:
		p.next()
		return runtime.IntegerValue{Val: t.intVal}, nil

	case tokFloat:
		p.next()
		return runtime.FloatValue{Val: t.floatVal}, nil

	case tokString:
		p.next()
		return runtime.StringValue{Val: t.strVal}, nil

	case tokIdent:
		p.next()
		switch t.text {
		case "nil":
			return runtime.NilValue{}, nil
		case "true":
			return runtime.BoolValue{Val: true}, nil
		case "false":
			return runtime.BoolValue{Val: false}, nil
		case "length", "str", "int", "float":
			if err := p.expectOp("("); err != nil {
				return nil, err
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return applyBuiltin(t.text, arg)
		default:
			return nil, fmt.Errorf("name '%s' is not defined", t.text)
		}

	case tokOp:
		switch t.text {
		case "(":
			p.next()
			val, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return val, nil
		case "{":
			p.next()
			return p.parseSequenceLiteral()
		}
	}
	return nil, fmt.Errorf("unexpected '%s'", t.describe())
}

func (p *exprParser) parseSequenceLiteral() (runtime.Value, error) {
	var elements []runtime.Value
	if _, ok := p.acceptOp("}"); ok {
		return &runtime.SequenceValue{Elements: elements}, nil
	}
	for {
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elements = append(elements, val)
		if _, ok := p.acceptOp(","); ok {
			continue
		}
		if err := p.expectOp("}"); err != nil {
			return nil, err
		}
		return &runtime.SequenceValue{Elements: elements}, nil
	}
}

//-----------------------------------------------------------------------------
// Operator semantics
//-----------------------------------------------------------------------------

func asFloat(v runtime.Value) (float64, bool) {
	switch n := v.(type) {
	case runtime.IntegerValue:
		return float64(n.Val), true
	case runtime.FloatValue:
		return n.Val, true
	default:
		return 0, false
	}
}

func bothIntegers(a, b runtime.Value) (int64, int64, bool) {
	ai, ok := a.(runtime.IntegerValue)
	if !ok {
		return 0, 0, false
	}
	bi, ok := b.(runtime.IntegerValue)
	if !ok {
		return 0, 0, false
	}
	return ai.Val, bi.Val, true
}

func applyArithmetic(op string, a, b runtime.Value) (runtime.Value, error) {
	switch op {
	case "+":
		if as, ok := a.(runtime.StringValue); ok {
			if bs, ok := b.(runtime.StringValue); ok {
				return runtime.StringValue{Val: as.Val + bs.Val}, nil
			}
		}
		if aseq, ok := a.(*runtime.SequenceValue); ok {
			if bseq, ok := b.(*runtime.SequenceValue); ok {
				joined := make([]runtime.Value, 0, len(aseq.Elements)+len(bseq.Elements))
				joined = append(joined, aseq.Elements...)
				joined = append(joined, bseq.Elements...)
				return &runtime.SequenceValue{Elements: joined}, nil
			}
		}
		if ai, bi, ok := bothIntegers(a, b); ok {
			return runtime.IntegerValue{Val: ai + bi}, nil
		}
		if af, ok := asFloat(a); ok {
			if bf, ok := asFloat(b); ok {
				return runtime.FloatValue{Val: af + bf}, nil
			}
		}

	case "-":
		if ai, bi, ok := bothIntegers(a, b); ok {
			return runtime.IntegerValue{Val: ai - bi}, nil
		}
		if af, ok := asFloat(a); ok {
			if bf, ok := asFloat(b); ok {
				return runtime.FloatValue{Val: af - bf}, nil
			}
		}

	case "*":
		if ai, bi, ok := bothIntegers(a, b); ok {
			return runtime.IntegerValue{Val: ai * bi}, nil
		}
		if af, ok := asFloat(a); ok {
			if bf, ok := asFloat(b); ok {
				return runtime.FloatValue{Val: af * bf}, nil
			}
		}

	case "/":
		if af, ok := asFloat(a); ok {
			if bf, ok := asFloat(b); ok {
				if bf == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				// Division always yields a float, as in the original evaluator.
				return runtime.FloatValue{Val: af / bf}, nil
			}
		}

	case "%":
		if ai, bi, ok := bothIntegers(a, b); ok {
			if bi == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			return runtime.IntegerValue{Val: flooredMod(ai, bi)}, nil
		}
	}
	return nil, fmt.Errorf("unsupported operands for '%s': %s and %s", op, a.Kind(), b.Kind())
}

// flooredMod matches the original evaluator's modulo: the result takes the
// sign of the divisor.
func flooredMod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func applyComparison(op string, a, b runtime.Value) (runtime.Value, error) {
	switch op {
	case "==":
		return runtime.BoolValue{Val: valuesEqual(a, b)}, nil
	case "!=":
		return runtime.BoolValue{Val: !valuesEqual(a, b)}, nil
	}

	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return runtime.BoolValue{Val: compareOrder(op, af, bf)}, nil
		}
	}
	if as, ok := a.(runtime.StringValue); ok {
		if bs, ok := b.(runtime.StringValue); ok {
			var cmp float64
			switch {
			case as.Val < bs.Val:
				cmp = -1
			case as.Val > bs.Val:
				cmp = 1
			}
			return runtime.BoolValue{Val: compareOrder(op, cmp, 0)}, nil
		}
	}
	return nil, fmt.Errorf("unsupported operands for '%s': %s and %s", op, a.Kind(), b.Kind())
}

func compareOrder(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func valuesEqual(a, b runtime.Value) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}
	switch av := a.(type) {
	case runtime.NilValue:
		_, ok := b.(runtime.NilValue)
		return ok
	case runtime.BoolValue:
		bv, ok := b.(runtime.BoolValue)
		return ok && av.Val == bv.Val
	case runtime.StringValue:
		bv, ok := b.(runtime.StringValue)
		return ok && av.Val == bv.Val
	case *runtime.SequenceValue:
		bv, ok := b.(*runtime.SequenceValue)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !valuesEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func indexValue(target, idx runtime.Value) (runtime.Value, error) {
	iv, ok := idx.(runtime.IntegerValue)
	if !ok {
		return nil, fmt.Errorf("index must be an integer, got %s", idx.Kind())
	}
	switch t := target.(type) {
	case *runtime.SequenceValue:
		if iv.Val < 0 || iv.Val >= int64(len(t.Elements)) {
			return nil, fmt.Errorf("index %d out of range for sequence of length %d", iv.Val, len(t.Elements))
		}
		return t.Elements[iv.Val], nil
	case runtime.StringValue:
		runes := []rune(t.Val)
		if iv.Val < 0 || iv.Val >= int64(len(runes)) {
			return nil, fmt.Errorf("index %d out of range for string of length %d", iv.Val, len(runes))
		}
		return runtime.StringValue{Val: string(runes[iv.Val])}, nil
	default:
		return nil, fmt.Errorf("%s is not indexable", target.Kind())
	}
}

func applyBuiltin(name string, arg runtime.Value) (runtime.Value, error) {
	switch name {
	case "length":
		switch v := arg.(type) {
		case *runtime.SequenceValue:
			return runtime.IntegerValue{Val: int64(len(v.Elements))}, nil
		case runtime.StringValue:
			return runtime.IntegerValue{Val: int64(len([]rune(v.Val)))}, nil
		default:
			return nil, fmt.Errorf("length() requires a sequence or string, got %s", arg.Kind())
		}

	case "str":
		return runtime.StringValue{Val: valueToString(arg)}, nil

	case "int":
		switch v := arg.(type) {
		case runtime.IntegerValue:
			return v, nil
		case runtime.FloatValue:
			return runtime.IntegerValue{Val: int64(v.Val)}, nil
		case runtime.StringValue:
			n, err := strconv.ParseInt(strings.TrimSpace(v.Val), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("int() cannot parse '%s'", v.Val)
			}
			return runtime.IntegerValue{Val: n}, nil
		default:
			return nil, fmt.Errorf("int() requires a number or string, got %s", arg.Kind())
		}

	case "float":
		switch v := arg.(type) {
		case runtime.IntegerValue:
			return runtime.FloatValue{Val: float64(v.Val)}, nil
		case runtime.FloatValue:
			return v, nil
		case runtime.StringValue:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.Val), 64)
			if err != nil {
				return nil, fmt.Errorf("float() cannot parse '%s'", v.Val)
			}
			return runtime.FloatValue{Val: f}, nil
		default:
			return nil, fmt.Errorf("float() requires a number or string, got %s", arg.Kind())
		}
	}
	return nil, fmt.Errorf("unknown builtin '%s'", name)
}
