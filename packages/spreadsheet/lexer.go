package spreadsheet

import (
	"fmt"
	"strings"
)

// TokenType represents different types of tokens in formulas
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenEquals
	TokenNumber
	TokenString
	TokenBoolean
	TokenCell
	TokenRange
	TokenFunction
	TokenUnaryPrefixOp
	TokenUnaryPostfixOp
	TokenBinaryOp
	TokenComma
	TokenColon
	TokenLeftParen
	TokenRightParen
	TokenIdentifier
)

// BinaryOp represents binary operators in AST nodes
type BinaryOp int

const (
	BinOpAdd BinaryOp = iota
	BinOpSubtract
	BinOpMultiply
	BinOpDivide
	BinOpPower
	BinOpConcat
	BinOpEqual
	BinOpNotEqual
	BinOpLess
	BinOpLessEqual
	BinOpGreater
	BinOpGreaterEqual
)

// UnaryOp represents unary operators in AST nodes
type UnaryOp int

const (
	UnaryOpPlus UnaryOp = iota
	UnaryOpMinus
	UnaryOpPercent
)

// character classification constants. slightly easier to read.
const (
	charNull       = 0
	charTab        = '\t'
	charNewline    = '\n'
	charReturn     = '\r'
	charSpace      = ' '
	charQuote      = '"'
	charPercent    = '%'
	charAmpersand  = '&'
	charLParen     = '('
	charRParen     = ')'
	charAsterisk   = '*'
	charPlus       = '+'
	charComma      = ','
	charMinus      = '-'
	charPeriod     = '.'
	charSlash      = '/'
	charColon      = ':'
	charLess       = '<'
	charEqual      = '='
	charGreater    = '>'
	charCaret      = '^'
	charUnderscore = '_'
	charDollar     = '$'
)

// TokenState represents the lexer state for validation
type TokenState int

const (
	StateStart TokenState = iota
	StateAfterEquals
	StateAfterValue
	StateAfterOperator
	StateAfterLeftParen
	StateAfterRightParen
	StateAfterComma
	StateAfterIdentifier
)

// operand tokens may start an expression in most states
var operandTokens = []TokenType{
	TokenNumber, TokenString, TokenBoolean, TokenCell, TokenRange,
	TokenFunction, TokenIdentifier, TokenLeftParen, TokenUnaryPrefixOp,
}

// tokenTransitions maps the current state to valid next token types
var tokenTransitions = map[TokenState]map[TokenType]bool{
	StateStart:       {TokenEquals: true},
	StateAfterEquals: allow(operandTokens),
	StateAfterValue: allow([]TokenType{
		TokenBinaryOp, TokenUnaryPostfixOp, TokenRightParen, TokenComma, TokenEOF,
	}),
	StateAfterOperator: allow(operandTokens),
	// empty parens for arg-less functions like PI()
	StateAfterLeftParen:  allow(append([]TokenType{TokenRightParen}, operandTokens...)),
	StateAfterRightParen: allow([]TokenType{TokenBinaryOp, TokenUnaryPostfixOp, TokenRightParen, TokenComma, TokenEOF}),
	StateAfterComma:      allow(operandTokens),
	StateAfterIdentifier: allow([]TokenType{
		TokenLeftParen, TokenBinaryOp, TokenUnaryPostfixOp, TokenRightParen, TokenComma, TokenEOF,
	}),
}

func allow(types []TokenType) map[TokenType]bool {
	m := make(map[TokenType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// Token represents a lexical token with position information
type Token struct {
	Type  TokenType
	Value string
	Pos   int // rune position in input
}

// Lexer tokenizes spreadsheet formula expressions
type Lexer struct {
	runes      []rune // UTF-8 aware representation
	pos        int
	state      TokenState
	parenDepth int
	tokens     []Token
}

// NewLexer creates a new lexer for a formula, including its leading '='
func NewLexer(input string) *Lexer {
	return &Lexer{
		runes: []rune(input),
		state: StateStart,
	}
}

// syntaxError reports a lexing failure at a position
func syntaxError(pos int, format string, args ...any) error {
	return fmt.Errorf("%w at %d: %s", ErrFormulaSyntax, pos, fmt.Sprintf(format, args...))
}

// Tokenize tokenizes the entire input
func (l *Lexer) Tokenize() ([]Token, error) {
	if len(l.runes) == 0 || l.runes[0] != charEqual {
		return nil, syntaxError(0, "formula must start with '='")
	}

	for {
		l.skipWhitespace()
		if l.pos >= len(l.runes) {
			break
		}
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		if !tokenTransitions[l.state][tok.Type] {
			return nil, syntaxError(tok.Pos, "unexpected token: %s", tok.Value)
		}
		l.tokens = append(l.tokens, tok)
		l.updateState(tok.Type)
	}

	if l.parenDepth > 0 {
		return nil, syntaxError(l.pos, "unbalanced parentheses: missing closing parenthesis")
	}
	if !tokenTransitions[l.state][TokenEOF] {
		return nil, syntaxError(l.pos, "unexpected end of formula")
	}

	l.tokens = append(l.tokens, Token{Type: TokenEOF, Pos: l.pos})
	return l.tokens, nil
}

// updateState updates the lexer state based on the token type
func (l *Lexer) updateState(tokenType TokenType) {
	switch tokenType {
	case TokenEquals:
		l.state = StateAfterEquals
	case TokenNumber, TokenString, TokenBoolean, TokenCell, TokenRange:
		l.state = StateAfterValue
	case TokenUnaryPrefixOp, TokenBinaryOp:
		l.state = StateAfterOperator
	case TokenUnaryPostfixOp:
		// postfix operators don't change state
	case TokenLeftParen:
		l.state = StateAfterLeftParen
	case TokenRightParen:
		l.state = StateAfterRightParen
	case TokenComma:
		l.state = StateAfterComma
	case TokenIdentifier, TokenFunction:
		l.state = StateAfterIdentifier
	}
}

// nextToken returns the next token from the input
func (l *Lexer) nextToken() (Token, error) {
	startPos := l.pos
	ch := l.current()

	if ch == charQuote {
		return l.scanString()
	}

	if isDigit(ch) || (ch == charPeriod && isDigit(l.peek(1))) {
		return l.scanNumber(), nil
	}

	switch ch {
	case charLParen:
		l.pos++
		l.parenDepth++
		return Token{Type: TokenLeftParen, Value: "(", Pos: startPos}, nil
	case charRParen:
		l.pos++
		l.parenDepth--
		if l.parenDepth < 0 {
			return Token{}, syntaxError(startPos, "unexpected closing parenthesis")
		}
		return Token{Type: TokenRightParen, Value: ")", Pos: startPos}, nil
	case charComma:
		l.pos++
		return Token{Type: TokenComma, Value: ",", Pos: startPos}, nil
	case charColon:
		l.pos++
		return Token{Type: TokenColon, Value: ":", Pos: startPos}, nil
	case charPlus, charMinus:
		l.pos++
		if l.isUnaryContext() {
			return Token{Type: TokenUnaryPrefixOp, Value: string(ch), Pos: startPos}, nil
		}
		return Token{Type: TokenBinaryOp, Value: string(ch), Pos: startPos}, nil
	case charPercent:
		l.pos++
		return Token{Type: TokenUnaryPostfixOp, Value: "%", Pos: startPos}, nil
	case charEqual:
		l.pos++
		// the first character is the formula prefix, any other is comparison
		if startPos == 0 {
			return Token{Type: TokenEquals, Value: "=", Pos: startPos}, nil
		}
		return Token{Type: TokenBinaryOp, Value: "=", Pos: startPos}, nil
	case charAsterisk, charSlash, charCaret, charAmpersand, charLess, charGreater:
		return l.scanBinaryOp(), nil
	}

	if isAlpha(ch) || ch == charUnderscore || ch == charDollar {
		return l.scanIdentifierOrCell(), nil
	}

	return Token{}, syntaxError(startPos, "unexpected character: %s", string(ch))
}

// helper methods for character navigation and classification

func (l *Lexer) substring(start, end int) string {
	if start < 0 || end > len(l.runes) || start > end {
		return ""
	}
	return string(l.runes[start:end])
}

func (l *Lexer) current() rune {
	return l.peek(0)
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos >= len(l.runes) || pos < 0 {
		return charNull
	}
	return l.runes[pos]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.runes) {
		switch l.current() {
		case charSpace, charTab, charNewline, charReturn:
			l.pos++
		default:
			return
		}
	}
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isReferenceRune(ch rune) bool {
	return isAlpha(ch) || isDigit(ch) || ch == charDollar
}

// scanNumber scans a number token including decimals and scientific notation
func (l *Lexer) scanNumber() Token {
	startPos := l.pos

	for isDigit(l.current()) {
		l.pos++
	}

	if l.current() == charPeriod && isDigit(l.peek(1)) {
		l.pos++ // consume '.'
		for isDigit(l.current()) {
			l.pos++
		}
	}

	// scientific notation needs at least one exponent digit
	if l.current() == 'e' || l.current() == 'E' {
		savedPos := l.pos
		l.pos++
		if l.current() == charPlus || l.current() == charMinus {
			l.pos++
		}
		if !isDigit(l.current()) {
			l.pos = savedPos
		} else {
			for isDigit(l.current()) {
				l.pos++
			}
		}
	}

	return Token{Type: TokenNumber, Value: l.substring(startPos, l.pos), Pos: startPos}
}

// scanString scans a string literal with support for double-quote escapes
func (l *Lexer) scanString() (Token, error) {
	startPos := l.pos
	l.pos++ // consume opening quote

	var result []rune
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch != charQuote {
			result = append(result, ch)
			l.pos++
			continue
		}
		if l.peek(1) == charQuote {
			result = append(result, charQuote)
			l.pos += 2
			continue
		}
		l.pos++ // consume closing quote
		return Token{Type: TokenString, Value: string(result), Pos: startPos}, nil
	}

	return Token{}, syntaxError(startPos, "unclosed string literal")
}

// scanIdentifierOrCell scans identifiers, functions, cells, ranges, and booleans
func (l *Lexer) scanIdentifierOrCell() Token {
	startPos := l.pos

	for isReferenceRune(l.current()) || l.current() == charUnderscore || l.current() == charPeriod {
		l.pos++
	}

	value := l.substring(startPos, l.pos)
	upperValue := strings.ToUpper(value)

	if upperValue == "TRUE" || upperValue == "FALSE" {
		return Token{Type: TokenBoolean, Value: upperValue, Pos: startPos}
	}

	if isCell(value) {
		if l.current() != charColon {
			return Token{Type: TokenCell, Value: upperValue, Pos: startPos}
		}

		// try to scan the second half of a range (A1:B2)
		savedPos := l.pos
		l.pos++
		cellStart := l.pos
		for isReferenceRune(l.current()) {
			l.pos++
		}
		if second := l.substring(cellStart, l.pos); isCell(second) {
			return Token{Type: TokenRange, Value: upperValue + ":" + strings.ToUpper(second), Pos: startPos}
		}
		l.pos = savedPos
		return Token{Type: TokenCell, Value: upperValue, Pos: startPos}
	}

	if l.current() == charLParen {
		return Token{Type: TokenFunction, Value: upperValue, Pos: startPos}
	}

	return Token{Type: TokenIdentifier, Value: value, Pos: startPos}
}

// isCell checks if a string is a cell reference (A1, $B$12, c3)
func isCell(s string) bool {
	i := 0
	if i < len(s) && s[i] == charDollar {
		i++
	}
	letters := i
	for i < len(s) && isAlpha(rune(s[i])) {
		i++
	}
	if i == letters {
		return false
	}
	if i < len(s) && s[i] == charDollar {
		i++
	}
	digits := i
	for i < len(s) && isDigit(rune(s[i])) {
		i++
	}
	return i > digits && i == len(s)
}

// scanBinaryOp scans binary operators
func (l *Lexer) scanBinaryOp() Token {
	startPos := l.pos
	ch := l.current()
	l.pos++

	switch ch {
	case charLess:
		switch l.current() {
		case charEqual:
			l.pos++
			return Token{Type: TokenBinaryOp, Value: "<=", Pos: startPos}
		case charGreater:
			l.pos++
			return Token{Type: TokenBinaryOp, Value: "<>", Pos: startPos}
		}
	case charGreater:
		if l.current() == charEqual {
			l.pos++
			return Token{Type: TokenBinaryOp, Value: ">=", Pos: startPos}
		}
	}
	return Token{Type: TokenBinaryOp, Value: string(ch), Pos: startPos}
}

// isUnaryContext checks if the current context allows for unary operators
func (l *Lexer) isUnaryContext() bool {
	switch l.state {
	case StateStart, StateAfterEquals, StateAfterOperator, StateAfterLeftParen, StateAfterComma:
		return true
	default:
		return false
	}
}
