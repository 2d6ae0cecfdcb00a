package stencil

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil/value"
)

// ExpressionNode represents a node in the expression AST
type ExpressionNode interface {
	String() string
	Evaluate(env *ExpressionEnv) (value.Value, error)
}

// ExpressionEnv is the data an expression is evaluated against.
type ExpressionEnv struct {
	Vars     map[string]value.Value
	Registry FunctionRegistry
}

// lookup finds a variable by exact name, then case-insensitively. Unknown
// names evaluate to Undefined.
func (env *ExpressionEnv) lookup(name string) value.Value {
	if v, ok := env.Vars[name]; ok {
		return v
	}
	names := make([]string, 0, len(env.Vars))
	for k := range env.Vars {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if strings.EqualFold(k, name) {
			return env.Vars[k]
		}
	}
	return value.Undefined
}

// LiteralNode represents a literal value (string, number, boolean, null)
type LiteralNode struct {
	Value value.Value
}

func (n *LiteralNode) String() string {
	if n.Value.Kind() == value.KindString {
		return fmt.Sprintf("Literal(%q)", n.Value.Display())
	}
	if n.Value.Kind() == value.KindNull {
		return "Literal(null)"
	}
	return fmt.Sprintf("Literal(%s)", n.Value.Display())
}

func (n *LiteralNode) Evaluate(_ *ExpressionEnv) (value.Value, error) {
	return n.Value, nil
}

// IdentifierNode represents a variable reference
type IdentifierNode struct {
	Name string
}

func (n *IdentifierNode) String() string {
	return fmt.Sprintf("Identifier(%s)", n.Name)
}

func (n *IdentifierNode) Evaluate(env *ExpressionEnv) (value.Value, error) {
	return env.lookup(n.Name), nil
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Left     ExpressionNode
	Operator string
	Right    ExpressionNode
}

func (n *BinaryOpNode) String() string {
	return fmt.Sprintf("BinaryOp(%s %s %s)", n.Left.String(), n.Operator, n.Right.String())
}

func (n *BinaryOpNode) Evaluate(env *ExpressionEnv) (value.Value, error) {
	leftVal, err := n.Left.Evaluate(env)
	if err != nil {
		return value.Undefined, err
	}

	// short-circuit logical operators
	switch n.Operator {
	case "&", "&&":
		if !value.IsTruthy(leftVal) {
			return value.Bool(false), nil
		}
	case "|", "||":
		if value.IsTruthy(leftVal) {
			return value.Bool(true), nil
		}
	}

	rightVal, err := n.Right.Evaluate(env)
	if err != nil {
		return value.Undefined, err
	}

	return EvaluateBinaryOperation(leftVal, n.Operator, rightVal)
}

// UnaryOpNode represents a unary operation
type UnaryOpNode struct {
	Operator string
	Operand  ExpressionNode
}

func (n *UnaryOpNode) String() string {
	return fmt.Sprintf("UnaryOp(%s %s)", n.Operator, n.Operand.String())
}

func (n *UnaryOpNode) Evaluate(env *ExpressionEnv) (value.Value, error) {
	operandVal, err := n.Operand.Evaluate(env)
	if err != nil {
		return value.Undefined, err
	}

	switch n.Operator {
	case "!":
		return value.Bool(!value.IsTruthy(operandVal)), nil
	case "-", "+":
		num, ok := toNumber(operandVal)
		if !ok {
			return value.Undefined, fmt.Errorf("cannot apply unary %s to %s", n.Operator, operandVal.Kind())
		}
		if n.Operator == "-" {
			num = -num
		}
		return value.Number(num), nil
	default:
		return value.Undefined, fmt.Errorf("unknown unary operator: %s", n.Operator)
	}
}

// FieldAccessNode represents field access (obj.field)
type FieldAccessNode struct {
	Object ExpressionNode
	Field  string
}

func (n *FieldAccessNode) String() string {
	return fmt.Sprintf("FieldAccess(%s.%s)", n.Object.String(), n.Field)
}

func (n *FieldAccessNode) Evaluate(env *ExpressionEnv) (value.Value, error) {
	obj, err := n.Object.Evaluate(env)
	if err != nil {
		return value.Undefined, err
	}
	v, _ := value.Resolve(obj, []string{n.Field})
	return v, nil
}

// IndexAccessNode represents index access (obj[index])
type IndexAccessNode struct {
	Object ExpressionNode
	Index  ExpressionNode
}

func (n *IndexAccessNode) String() string {
	return fmt.Sprintf("IndexAccess(%s[%s])", n.Object.String(), n.Index.String())
}

func (n *IndexAccessNode) Evaluate(env *ExpressionEnv) (value.Value, error) {
	obj, err := n.Object.Evaluate(env)
	if err != nil {
		return value.Undefined, err
	}

	indexVal, err := n.Index.Evaluate(env)
	if err != nil {
		return value.Undefined, err
	}

	var segment string
	switch {
	case indexVal.Kind() == value.KindNumber:
		f, _ := indexVal.Float()
		if f != math.Trunc(f) {
			return value.Undefined, fmt.Errorf("array index must be an integer, got %s", indexVal.Display())
		}
		segment = strconv.Itoa(int(f))
	case indexVal.IsStringLike():
		segment = indexVal.Display()
	default:
		return value.Undefined, fmt.Errorf("invalid index type: %s", indexVal.Kind())
	}

	v, _ := value.Resolve(obj, []string{segment})
	return v, nil
}

// FunctionCallNode represents a function call
type FunctionCallNode struct {
	Name string
	Args []ExpressionNode
}

func (n *FunctionCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("FunctionCall(%s, [%s])", n.Name, strings.Join(args, ", "))
}

func (n *FunctionCallNode) Evaluate(env *ExpressionEnv) (value.Value, error) {
	registry := env.Registry
	if registry == nil {
		registry = GetDefaultFunctionRegistry()
	}

	fn, exists := registry.GetFunction(n.Name)
	if !exists {
		return value.Undefined, fmt.Errorf("unknown function: %s", n.Name)
	}

	args := make([]value.Value, len(n.Args))
	for i, arg := range n.Args {
		val, err := arg.Evaluate(env)
		if err != nil {
			return value.Undefined, fmt.Errorf("failed to evaluate argument %d for function %s: %w", i, n.Name, err)
		}
		args[i] = val
	}

	return fn.Call(args...)
}

// ExpressionToken represents a token in an expression
type ExpressionToken struct {
	Type  ExpressionTokenType
	Value string
	Pos   int
}

type ExpressionTokenType int

const (
	ExprTokenIdentifier ExpressionTokenType = iota
	ExprTokenNumber
	ExprTokenString
	ExprTokenOperator
	ExprTokenLeftParen
	ExprTokenRightParen
	ExprTokenComma
	ExprTokenEOF
)

var (
	identifierRegex  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`)
	numberRegex      = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)?`)
	leadingDotRegex  = regexp.MustCompile(`^\.[0-9]+`)
	stringRegex      = regexp.MustCompile(`^"([^"\\]|\\.)*"`)
	singleQuoteRegex = regexp.MustCompile(`^'([^'\\]|\\.)*'`)
	operatorRegex    = regexp.MustCompile(`^(==|!=|<=|>=|&&|\|\||\+|\-|\*|\/|\%|\&|\||\!|<|>|\.|\[|\])`)
)

// TokenizeExpression tokenizes an expression string
func TokenizeExpression(expr string) ([]ExpressionToken, error) {
	var tokens []ExpressionToken
	pos := 0

	emit := func(typ ExpressionTokenType, val string, width int) {
		tokens = append(tokens, ExpressionToken{Type: typ, Value: val, Pos: pos})
		pos += width
	}

	for pos < len(expr) {
		switch expr[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
			continue
		case '(':
			emit(ExprTokenLeftParen, "(", 1)
			continue
		case ')':
			emit(ExprTokenRightParen, ")", 1)
			continue
		case ',':
			emit(ExprTokenComma, ",", 1)
			continue
		}

		remaining := expr[pos:]

		if match := identifierRegex.FindString(remaining); match != "" {
			emit(ExprTokenIdentifier, match, len(match))
			continue
		}

		if match := numberRegex.FindString(remaining); match != "" {
			emit(ExprTokenNumber, match, len(match))
			continue
		}

		// .5 is a number unless the dot follows an operand: items.0
		if !followsOperand(tokens) {
			if match := leadingDotRegex.FindString(remaining); match != "" {
				emit(ExprTokenNumber, "0"+match, len(match))
				continue
			}
		}

		if match := stringRegex.FindString(remaining); match != "" {
			text := match[1 : len(match)-1]
			text = strings.ReplaceAll(text, `\"`, `"`)
			text = strings.ReplaceAll(text, `\\`, `\`)
			emit(ExprTokenString, text, len(match))
			continue
		}

		if match := singleQuoteRegex.FindString(remaining); match != "" {
			text := match[1 : len(match)-1]
			text = strings.ReplaceAll(text, `\'`, `'`)
			text = strings.ReplaceAll(text, `\\`, `\`)
			emit(ExprTokenString, text, len(match))
			continue
		}

		if match := operatorRegex.FindString(remaining); match != "" {
			emit(ExprTokenOperator, match, len(match))
			continue
		}

		return nil, NewParseError(fmt.Sprintf("unexpected character '%c'", expr[pos]), string(expr[pos]), pos)
	}

	tokens = append(tokens, ExpressionToken{Type: ExprTokenEOF, Pos: pos})
	return tokens, nil
}

func followsOperand(tokens []ExpressionToken) bool {
	if len(tokens) == 0 {
		return false
	}
	last := tokens[len(tokens)-1]
	switch last.Type {
	case ExprTokenIdentifier, ExprTokenNumber, ExprTokenString, ExprTokenRightParen:
		return true
	case ExprTokenOperator:
		return last.Value == "]"
	}
	return false
}

// ParseExpression parses an expression string into an AST. Trailing tokens
// are an error.
func ParseExpression(expr string) (ExpressionNode, error) {
	tokens, err := TokenizeExpression(expr)
	if err != nil {
		return nil, err
	}

	parser := &ExpressionParser{tokens: tokens}

	node, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}

	if token := parser.current(); token.Type != ExprTokenEOF {
		return nil, NewParseError("unexpected trailing token", token.Value, token.Pos)
	}

	return node, nil
}

// ExpressionParser parses expressions into AST nodes
type ExpressionParser struct {
	tokens []ExpressionToken
	pos    int
}

func (p *ExpressionParser) current() ExpressionToken {
	if p.pos >= len(p.tokens) {
		return ExpressionToken{Type: ExprTokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *ExpressionParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *ExpressionParser) atOperator(ops ...string) (string, bool) {
	tok := p.current()
	if tok.Type != ExprTokenOperator {
		return "", false
	}
	for _, op := range ops {
		if tok.Value == op {
			return op, true
		}
	}
	return "", false
}

func (p *ExpressionParser) errorf(format string, args ...interface{}) error {
	tok := p.current()
	return NewParseError(fmt.Sprintf(format, args...), tok.Value, tok.Pos)
}

// binaryPrecedence ranks the binary operators; higher binds tighter. All of
// them are left-associative.
var binaryPrecedence = map[string]int{
	"|": 1, "||": 1,
	"&": 2, "&&": 2,
	"==": 3, "!=": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

func (p *ExpressionParser) parseExpression() (ExpressionNode, error) {
	return p.parseBinary(1)
}

// parseBinary parses operators of at least minPrec by precedence climbing.
func (p *ExpressionParser) parseBinary(minPrec int) (ExpressionNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		prec, ok := binaryPrecedence[tok.Value]
		if tok.Type != ExprTokenOperator || !ok || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: tok.Value, Right: right}
	}
}

// parseUnary handles prefix !, - and +, which bind tighter than any binary
// operator.
func (p *ExpressionParser) parseUnary() (ExpressionNode, error) {
	if op, ok := p.atOperator("!", "-", "+"); ok {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{Operator: op, Operand: operand}, nil
	}

	return p.parsePostfix()
}

// parsePostfix applies .field and [index] accessors to a primary.
func (p *ExpressionParser) parsePostfix() (ExpressionNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		if _, ok := p.atOperator("."); ok {
			p.advance()
			tok := p.current()
			// numeric segments index arrays: items.0.price
			if tok.Type != ExprTokenIdentifier && tok.Type != ExprTokenNumber {
				return nil, p.errorf("expected identifier after '.'")
			}
			p.advance()
			left = &FieldAccessNode{Object: left, Field: tok.Value}
		} else if _, ok := p.atOperator("["); ok {
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, ok := p.atOperator("]"); !ok {
				return nil, p.errorf("expected ']' after array index")
			}
			p.advance()
			left = &IndexAccessNode{Object: left, Index: index}
		} else {
			return left, nil
		}
	}
}

// parsePrimary parses literals, identifiers, calls and parenthesized
// expressions.
func (p *ExpressionParser) parsePrimary() (ExpressionNode, error) {
	token := p.current()

	switch token.Type {
	case ExprTokenNumber:
		p.advance()
		num, ok := value.NumberFromText(token.Value)
		if !ok {
			return nil, NewParseError("invalid number", token.Value, token.Pos)
		}
		return &LiteralNode{Value: num}, nil

	case ExprTokenString:
		p.advance()
		return &LiteralNode{Value: value.String(token.Value)}, nil

	case ExprTokenIdentifier:
		p.advance()
		switch token.Value {
		case "true":
			return &LiteralNode{Value: value.Bool(true)}, nil
		case "false":
			return &LiteralNode{Value: value.Bool(false)}, nil
		case "null", "nil":
			return &LiteralNode{Value: value.Null()}, nil
		}

		if p.current().Type == ExprTokenLeftParen {
			return p.parseFunctionCall(token.Value)
		}

		return &IdentifierNode{Name: token.Value}, nil

	case ExprTokenLeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().Type != ExprTokenRightParen {
			return nil, p.errorf("expected ')' after expression")
		}
		p.advance()
		return expr, nil

	case ExprTokenEOF:
		return nil, NewParseError("unexpected end of expression", "", token.Pos)

	default:
		return nil, NewParseError("unexpected token", token.Value, token.Pos)
	}
}

// parseFunctionCall parses a function call
func (p *ExpressionParser) parseFunctionCall(name string) (ExpressionNode, error) {
	p.advance() // consume '('

	var args []ExpressionNode

	if p.current().Type == ExprTokenRightParen {
		p.advance()
		return &FunctionCallNode{Name: name, Args: args}, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		switch p.current().Type {
		case ExprTokenComma:
			p.advance()
			continue
		case ExprTokenRightParen:
			p.advance()
			return &FunctionCallNode{Name: name, Args: args}, nil
		}

		return nil, p.errorf("expected ',' or ')' in function arguments")
	}
}

// ExpressionIdentifiers returns the root variable names an expression reads,
// sorted and without duplicates. Function names are not included.
func ExpressionIdentifiers(expr string) ([]string, error) {
	node, err := ParseExpression(expr)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	collectIdentifiers(node, seen)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func collectIdentifiers(node ExpressionNode, seen map[string]bool) {
	switch n := node.(type) {
	case *IdentifierNode:
		seen[n.Name] = true
	case *BinaryOpNode:
		collectIdentifiers(n.Left, seen)
		collectIdentifiers(n.Right, seen)
	case *UnaryOpNode:
		collectIdentifiers(n.Operand, seen)
	case *FieldAccessNode:
		collectIdentifiers(n.Object, seen)
	case *IndexAccessNode:
		collectIdentifiers(n.Object, seen)
		collectIdentifiers(n.Index, seen)
	case *FunctionCallNode:
		for _, arg := range n.Args {
			collectIdentifiers(arg, seen)
		}
	}
}

// EvaluateBinaryOperation evaluates a binary operation between two values
func EvaluateBinaryOperation(left value.Value, operator string, right value.Value) (value.Value, error) {
	switch operator {
	case "+":
		return evaluateAddition(left, right)
	case "-", "*", "/", "%":
		return evaluateArithmetic(left, operator, right)
	case "==":
		return value.Bool(evaluateEquals(left, right)), nil
	case "!=":
		return value.Bool(!evaluateEquals(left, right)), nil
	case "<", ">", "<=", ">=":
		return evaluateComparison(left, operator, right)
	case "&", "&&":
		return value.Bool(value.IsTruthy(left) && value.IsTruthy(right)), nil
	case "|", "||":
		return value.Bool(value.IsTruthy(left) || value.IsTruthy(right)), nil
	default:
		return value.Undefined, fmt.Errorf("unknown binary operator: %s", operator)
	}
}

// evaluateAddition adds numbers. A quoted string on either side, or any
// operand that is not numeric, turns it into concatenation.
func evaluateAddition(left, right value.Value) (value.Value, error) {
	if left.Kind() != value.KindString && right.Kind() != value.KindString {
		leftNum, leftOk := toNumber(left)
		rightNum, rightOk := toNumber(right)
		if leftOk && rightOk {
			return value.Number(leftNum + rightNum), nil
		}
	}
	if left.IsStringLike() || right.IsStringLike() {
		return value.String(left.Display() + right.Display()), nil
	}
	return value.Undefined, fmt.Errorf("cannot add %s and %s", left.Kind(), right.Kind())
}

func evaluateArithmetic(left value.Value, operator string, right value.Value) (value.Value, error) {
	leftNum, leftOk := toNumber(left)
	rightNum, rightOk := toNumber(right)
	if !leftOk || !rightOk {
		return value.Undefined, fmt.Errorf("cannot apply %s to %s and %s", operator, left.Kind(), right.Kind())
	}

	switch operator {
	case "-":
		return value.Number(leftNum - rightNum), nil
	case "*":
		return value.Number(leftNum * rightNum), nil
	case "/":
		if rightNum == 0 {
			return value.Undefined, fmt.Errorf("division by zero")
		}
		return value.Number(leftNum / rightNum), nil
	default:
		if rightNum == 0 {
			return value.Undefined, fmt.Errorf("modulo by zero")
		}
		return value.Number(math.Mod(leftNum, rightNum)), nil
	}
}

func evaluateEquals(left, right value.Value) bool {
	if left.IsNil() && right.IsNil() {
		return true
	}
	if left.IsNil() || right.IsNil() {
		return false
	}

	if leftNum, leftOk := toNumber(left); leftOk {
		if rightNum, rightOk := toNumber(right); rightOk {
			return leftNum == rightNum
		}
	}

	return left.Equal(right)
}

func evaluateComparison(left value.Value, operator string, right value.Value) (value.Value, error) {
	var cmp int
	leftNum, leftOk := toNumber(left)
	rightNum, rightOk := toNumber(right)
	switch {
	case leftOk && rightOk:
		switch {
		case leftNum < rightNum:
			cmp = -1
		case leftNum > rightNum:
			cmp = 1
		}
	case left.IsStringLike() && right.IsStringLike():
		cmp = strings.Compare(left.Display(), right.Display())
	default:
		return value.Undefined, fmt.Errorf("cannot compare %s and %s", left.Kind(), right.Kind())
	}

	switch operator {
	case "<":
		return value.Bool(cmp < 0), nil
	case ">":
		return value.Bool(cmp > 0), nil
	case "<=":
		return value.Bool(cmp <= 0), nil
	default:
		return value.Bool(cmp >= 0), nil
	}
}

// toNumber converts numbers and numeric text. Flat variables arrive as text,
// so "12.50" and "1,200" count as numbers.
func toNumber(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KindNumber:
		return v.Float()
	case value.KindText, value.KindString:
		return parseDecimal(v.Display())
	}
	return 0, false
}
