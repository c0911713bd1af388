package spreadsheet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type NodePosition struct {
	Start int
	End   int
}

// evalScope is everything a node can see while evaluating: the cell the
// formula lives in, the grid reader, and the function table
type evalScope struct {
	point     Point
	read      CellAccessor
	functions *BuiltInFunctions
}

// ASTNode enables formula transformation and evaluation through tree
// traversal rather than string manipulation.
type ASTNode interface {
	Eval(scope *evalScope) (Primitive, error)
	GetPosition() NodePosition
	ToString() string
}

// Parser parses tokens into an AST
type Parser struct {
	tokens []Token
	pos    int
}

// StringNode represents a string literal
type StringNode struct {
	Value    string
	Position NodePosition
}

func (n *StringNode) Eval(*evalScope) (Primitive, error) {
	return n.Value, nil
}

func (n *StringNode) GetPosition() NodePosition {
	return n.Position
}

func (n *StringNode) ToString() string {
	return `"` + strings.ReplaceAll(n.Value, `"`, `""`) + `"`
}

// NumberNode represents a numeric literal
type NumberNode struct {
	Value    float64
	Position NodePosition
}

func (n *NumberNode) Eval(*evalScope) (Primitive, error) {
	return n.Value, nil
}

func (n *NumberNode) GetPosition() NodePosition {
	return n.Position
}

func (n *NumberNode) ToString() string {
	return formatNumber(n.Value)
}

// BooleanNode represents a boolean literal
type BooleanNode struct {
	Value    bool
	Position NodePosition
}

func (n *BooleanNode) Eval(*evalScope) (Primitive, error) {
	return n.Value, nil
}

func (n *BooleanNode) GetPosition() NodePosition {
	return n.Position
}

func (n *BooleanNode) ToString() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

// CellRefNode represents a single cell reference. the absolute markers only
// matter when the formula is printed or shifted
type CellRefNode struct {
	Point     Point
	AbsRow    bool
	AbsColumn bool
	Position  NodePosition
}

func (n *CellRefNode) Eval(scope *evalScope) (Primitive, error) {
	return readCell(scope.read, n.Point), nil
}

func (n *CellRefNode) GetPosition() NodePosition {
	return n.Position
}

func (n *CellRefNode) ToString() string {
	return formatReference(n.Point, n.AbsRow, n.AbsColumn)
}

// RangeNode represents a rectangle of cells
type RangeNode struct {
	Start    *CellRefNode
	End      *CellRefNode
	Position NodePosition
}

func (n *RangeNode) Eval(scope *evalScope) (Primitive, error) {
	return &cellRange{
		bounds: NewPointRange(n.Start.Point, n.End.Point),
		read:   scope.read,
	}, nil
}

func (n *RangeNode) GetPosition() NodePosition {
	return n.Position
}

func (n *RangeNode) ToString() string {
	return n.Start.ToString() + ":" + n.End.ToString()
}

// IdentifierNode is a bare name. there are no named ranges, so it always
// evaluates to #NAME?
type IdentifierNode struct {
	Name     string
	Position NodePosition
}

func (n *IdentifierNode) Eval(*evalScope) (Primitive, error) {
	return nil, NewSpreadsheetError(ErrorCodeName, fmt.Sprintf("Unknown name '%s'", n.Name))
}

func (n *IdentifierNode) GetPosition() NodePosition {
	return n.Position
}

func (n *IdentifierNode) ToString() string {
	return n.Name
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Op       BinaryOp
	Left     ASTNode
	Right    ASTNode
	Position NodePosition
}

// evalOperand evaluates a node and folds any failure into an error value
func evalOperand(node ASTNode, scope *evalScope) Primitive {
	value, err := node.Eval(scope)
	if err != nil {
		var spreadsheetErr *SpreadsheetError
		if errors.As(err, &spreadsheetErr) {
			return spreadsheetErr
		}
		return NewSpreadsheetError(ErrorCodeValue, err.Error())
	}
	// a bare range used as a scalar operand
	if _, ok := value.(Range); ok {
		return NewSpreadsheetError(ErrorCodeValue, "Range used where a single value is expected")
	}
	return value
}

func (n *BinaryOpNode) Eval(scope *evalScope) (Primitive, error) {
	leftVal := evalOperand(n.Left, scope)
	rightVal := evalOperand(n.Right, scope)

	// propagate errors, left first
	if err := checkForError(leftVal); err != nil {
		return err, nil
	}
	if err := checkForError(rightVal); err != nil {
		return err, nil
	}

	switch n.Op {
	case BinOpConcat:
		return toString(leftVal) + toString(rightVal), nil
	case BinOpEqual:
		return comparePrimitives(leftVal, rightVal) == 0, nil
	case BinOpNotEqual:
		return comparePrimitives(leftVal, rightVal) != 0, nil
	case BinOpLess:
		return comparePrimitives(leftVal, rightVal) < 0, nil
	case BinOpLessEqual:
		return comparePrimitives(leftVal, rightVal) <= 0, nil
	case BinOpGreater:
		return comparePrimitives(leftVal, rightVal) > 0, nil
	case BinOpGreaterEqual:
		return comparePrimitives(leftVal, rightVal) >= 0, nil
	}

	leftNum, leftOk := toNumber(leftVal)
	rightNum, rightOk := toNumber(rightVal)
	if !leftOk || !rightOk {
		return nil, NewSpreadsheetError(ErrorCodeValue, fmt.Sprintf("Operator %s requires numeric values", n.Op))
	}

	switch n.Op {
	case BinOpAdd:
		return leftNum + rightNum, nil
	case BinOpSubtract:
		return leftNum - rightNum, nil
	case BinOpMultiply:
		return leftNum * rightNum, nil
	case BinOpDivide:
		if rightNum == 0 {
			return nil, NewSpreadsheetError(ErrorCodeDiv0, "Division by zero")
		}
		return leftNum / rightNum, nil
	case BinOpPower:
		result := math.Pow(leftNum, rightNum)
		if math.IsNaN(result) || math.IsInf(result, 0) {
			return nil, NewSpreadsheetError(ErrorCodeNum, "Power result is not a finite number")
		}
		return result, nil
	default:
		return nil, NewSpreadsheetError(ErrorCodeValue, "Unknown operator")
	}
}

func (n *BinaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *BinaryOpNode) ToString() string {
	return fmt.Sprintf("(%s%s%s)", n.Left.ToString(), n.Op, n.Right.ToString())
}

var binaryOpSymbols = map[BinaryOp]string{
	BinOpAdd:          "+",
	BinOpSubtract:     "-",
	BinOpMultiply:     "*",
	BinOpDivide:       "/",
	BinOpPower:        "^",
	BinOpConcat:       "&",
	BinOpEqual:        "=",
	BinOpNotEqual:     "<>",
	BinOpLess:         "<",
	BinOpLessEqual:    "<=",
	BinOpGreater:      ">",
	BinOpGreaterEqual: ">=",
}

func (op BinaryOp) String() string {
	return binaryOpSymbols[op]
}

// UnaryOpNode represents a unary operation
type UnaryOpNode struct {
	Op       UnaryOp
	Operand  ASTNode
	Position NodePosition
}

func (n *UnaryOpNode) Eval(scope *evalScope) (Primitive, error) {
	val := evalOperand(n.Operand, scope)
	if err := checkForError(val); err != nil {
		return err, nil
	}

	num, ok := toNumber(val)
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeValue, "Unary operator requires a numeric value")
	}

	switch n.Op {
	case UnaryOpPlus:
		return num, nil
	case UnaryOpMinus:
		return -num, nil
	case UnaryOpPercent:
		return num / 100.0, nil
	default:
		return nil, NewSpreadsheetError(ErrorCodeValue, "Unknown unary operator")
	}
}

func (n *UnaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *UnaryOpNode) ToString() string {
	switch n.Op {
	case UnaryOpMinus:
		return "-" + n.Operand.ToString()
	case UnaryOpPercent:
		return fmt.Sprintf("(%s%%)", n.Operand.ToString())
	default:
		return "+" + n.Operand.ToString()
	}
}

// FunctionCallNode represents a function call
type FunctionCallNode struct {
	Name     string
	Args     []ASTNode
	Position NodePosition
}

func (n *FunctionCallNode) Eval(scope *evalScope) (Primitive, error) {
	args := make([]Primitive, len(n.Args))
	for i, argNode := range n.Args {
		// functions decide for themselves how to handle error values
		value, err := argNode.Eval(scope)
		if err != nil {
			var spreadsheetErr *SpreadsheetError
			if !errors.As(err, &spreadsheetErr) {
				spreadsheetErr = NewSpreadsheetError(ErrorCodeValue, err.Error())
			}
			value = spreadsheetErr
		}
		args[i] = value
	}
	return scope.functions.Call(n.Name, args...)
}

func (n *FunctionCallNode) GetPosition() NodePosition {
	return n.Position
}

func (n *FunctionCallNode) ToString() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.ToString()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ","))
}

// NewParser creates a new parser over lexed tokens
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseFormula lexes and parses a formula, with or without its leading '='
func ParseFormula(formula string) (ASTNode, error) {
	if !strings.HasPrefix(formula, formulaPrefix) {
		formula = formulaPrefix + formula
	}
	tokens, err := NewLexer(formula).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) errorf(format string, args ...any) error {
	return syntaxError(p.peek().Pos, format, args...)
}

// Parse parses the tokens into an AST
func (p *Parser) Parse() (ASTNode, error) {
	if p.peek().Type != TokenEquals {
		return nil, p.errorf("formula must start with '='")
	}
	p.pos++

	node, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, p.errorf("unexpected token after expression: %s", tok.Value)
	}
	return node, nil
}

var comparisonOps = map[string]BinaryOp{
	"=":  BinOpEqual,
	"<>": BinOpNotEqual,
	"<":  BinOpLess,
	"<=": BinOpLessEqual,
	">":  BinOpGreater,
	">=": BinOpGreaterEqual,
}

var additiveOps = map[string]BinaryOp{
	"+": BinOpAdd,
	"-": BinOpSubtract,
}

var multiplicativeOps = map[string]BinaryOp{
	"*": BinOpMultiply,
	"/": BinOpDivide,
}

var concatOps = map[string]BinaryOp{
	"&": BinOpConcat,
}

// parseLeftAssoc parses one left-associative precedence level
func (p *Parser) parseLeftAssoc(ops map[string]BinaryOp, next func() (ASTNode, error)) (ASTNode, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}
		op, ok := ops[tok.Value]
		if !ok {
			return left, nil
		}
		p.pos++

		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{
			Op:       op,
			Left:     left,
			Right:    right,
			Position: NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End},
		}
	}
}

// parseComparison handles comparison operators (lowest precedence)
func (p *Parser) parseComparison() (ASTNode, error) {
	return p.parseLeftAssoc(comparisonOps, p.parseConcatenation)
}

func (p *Parser) parseConcatenation() (ASTNode, error) {
	return p.parseLeftAssoc(concatOps, p.parseAddition)
}

func (p *Parser) parseAddition() (ASTNode, error) {
	return p.parseLeftAssoc(additiveOps, p.parseMultiplication)
}

func (p *Parser) parseMultiplication() (ASTNode, error) {
	return p.parseLeftAssoc(multiplicativeOps, p.parsePower)
}

// parsePower handles exponentiation, which is right-associative
func (p *Parser) parsePower() (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Type == TokenBinaryOp && tok.Value == "^" {
		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &BinaryOpNode{
			Op:       BinOpPower,
			Left:     left,
			Right:    right,
			Position: NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End},
		}, nil
	}
	return left, nil
}

// parseUnary handles prefix + and -, chained as deep as needed
func (p *Parser) parseUnary() (ASTNode, error) {
	tok := p.peek()
	if tok.Type != TokenUnaryPrefixOp {
		return p.parsePostfix()
	}
	p.pos++

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	op := UnaryOpPlus
	if tok.Value == "-" {
		op = UnaryOpMinus
	}
	return &UnaryOpNode{
		Op:       op,
		Operand:  operand,
		Position: NodePosition{Start: tok.Pos, End: operand.GetPosition().End},
	}, nil
}

// parsePostfix handles any number of trailing percent signs
func (p *Parser) parsePostfix() (ASTNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.peek().Type == TokenUnaryPostfixOp {
		end := p.peek().Pos + 1
		p.pos++
		node = &UnaryOpNode{
			Op:       UnaryOpPercent,
			Operand:  node,
			Position: NodePosition{Start: node.GetPosition().Start, End: end},
		}
	}
	return node, nil
}

// parsePrimary handles literals, references, functions, and parentheses
func (p *Parser) parsePrimary() (ASTNode, error) {
	tok := p.peek()
	position := NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)}

	switch tok.Type {
	case TokenNumber:
		p.pos++
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, syntaxError(tok.Pos, "invalid number: %s", tok.Value)
		}
		return &NumberNode{Value: val, Position: position}, nil

	case TokenString:
		p.pos++
		position.End += 2 // quotes
		return &StringNode{Value: tok.Value, Position: position}, nil

	case TokenBoolean:
		p.pos++
		return &BooleanNode{Value: tok.Value == "TRUE", Position: position}, nil

	case TokenCell:
		p.pos++
		return parseCellReference(tok.Value, position)

	case TokenRange:
		p.pos++
		return parseRange(tok.Value, position)

	case TokenIdentifier:
		p.pos++
		return &IdentifierNode{Name: tok.Value, Position: position}, nil

	case TokenFunction:
		return p.parseFunctionCall()

	case TokenLeftParen:
		p.pos++
		node, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if p.peek().Type != TokenRightParen {
			return nil, p.errorf("expected closing parenthesis")
		}
		p.pos++
		return node, nil

	case TokenEOF:
		return nil, p.errorf("unexpected end of expression")

	default:
		return nil, p.errorf("unexpected token: %s", tok.Value)
	}
}

// parseFunctionCall parses NAME(arg, ...)
func (p *Parser) parseFunctionCall() (ASTNode, error) {
	funcTok := p.peek()
	p.pos++

	if p.peek().Type != TokenLeftParen {
		return nil, p.errorf("expected '(' after function name")
	}
	p.pos++

	var args []ASTNode
	if p.peek().Type != TokenRightParen {
		for {
			arg, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.peek().Type != TokenComma {
				break
			}
			p.pos++
		}
	}

	if p.peek().Type != TokenRightParen {
		return nil, p.errorf("expected ',' or ')' in function arguments")
	}
	end := p.peek().Pos + 1
	p.pos++

	return &FunctionCallNode{
		Name:     funcTok.Value,
		Args:     args,
		Position: NodePosition{Start: funcTok.Pos, End: end},
	}, nil
}

// parseCellReference turns "B3" or "$B$3" into a CellRefNode
func parseCellReference(ref string, position NodePosition) (*CellRefNode, error) {
	point, err := ParsePoint(ref)
	if err != nil {
		return nil, syntaxError(position.Start, "invalid cell reference: %s", ref)
	}

	// "$B$3": a leading '$' pins the column, one before the digits pins the row
	letters := strings.TrimLeft(ref, "$")
	digits := strings.IndexFunc(letters, func(r rune) bool { return isDigit(r) || r == charDollar })
	return &CellRefNode{
		Point:     point,
		AbsColumn: strings.HasPrefix(ref, "$"),
		AbsRow:    digits >= 0 && letters[digits] == charDollar,
		Position:  position,
	}, nil
}

// parseRange turns "A1:B2" into a RangeNode
func parseRange(ref string, position NodePosition) (*RangeNode, error) {
	startRef, endRef, ok := strings.Cut(ref, ":")
	if !ok {
		return nil, syntaxError(position.Start, "invalid range format: %s", ref)
	}
	start, err := parseCellReference(startRef, position)
	if err != nil {
		return nil, err
	}
	end, err := parseCellReference(endRef, position)
	if err != nil {
		return nil, err
	}
	return &RangeNode{Start: start, End: end, Position: position}, nil
}

// formatReference prints a point in A1 form with its absolute markers
func formatReference(p Point, absRow, absColumn bool) string {
	name := p.String()
	if !absRow && !absColumn {
		return name
	}
	split := strings.IndexFunc(name, isDigit)
	if split < 0 {
		return name
	}
	var b strings.Builder
	if absColumn {
		b.WriteByte(charDollar)
	}
	b.WriteString(name[:split])
	if absRow {
		b.WriteByte(charDollar)
	}
	b.WriteString(name[split:])
	return b.String()
}

// comparePrimitives compares two primitive values. returns -1 if left < right,
// 0 if equal, 1 if left > right. numbers sort before text, text before
// booleans, and empty compares equal to zero or the empty string
func comparePrimitives(left, right Primitive) int {
	if left == nil && right == nil {
		return 0
	}
	if left == nil {
		left = zeroLike(right)
	}
	if right == nil {
		right = zeroLike(left)
	}

	leftRank, rightRank := typeRank(left), typeRank(right)
	if leftRank != rightRank {
		return compareInts(leftRank, rightRank)
	}

	switch leftRank {
	case rankNumber:
		leftNum, _ := toNumber(left)
		rightNum, _ := toNumber(right)
		switch {
		case leftNum < rightNum:
			return -1
		case leftNum > rightNum:
			return 1
		}
		return 0
	case rankBool:
		return compareInts(boolRank(left.(bool)), boolRank(right.(bool)))
	default:
		// text comparison is case-insensitive
		return strings.Compare(strings.ToLower(toString(left)), strings.ToLower(toString(right)))
	}
}

const (
	rankNumber = iota
	rankText
	rankBool
)

func typeRank(value Primitive) int {
	switch value.(type) {
	case float64, int, int64, time.Time:
		return rankNumber
	case bool:
		return rankBool
	default:
		return rankText
	}
}

func zeroLike(value Primitive) Primitive {
	switch typeRank(value) {
	case rankNumber:
		return 0.0
	case rankBool:
		return false
	default:
		return ""
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
