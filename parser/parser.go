package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/lexer"
	"github.com/thiremani/safec/token"
)

const (
	_ int = iota
	LOWEST
	ASSIGN      // = += ...
	LOGOR       // ||
	LOGAND      // &&
	BITOR       // |
	BITXOR      // ^
	BITAND      // &
	EQUALS      // == !=
	LESSGREATER // > or <
	SHIFT       // << >>
	SUM         // +
	PRODUCT     // *
	PREFIX      // -X or !X
	POSTFIX     // f(X), a[i], s.f, p->f, p++
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:     ASSIGN,
	token.ADD_ASSIGN: ASSIGN,
	token.SUB_ASSIGN: ASSIGN,
	token.MUL_ASSIGN: ASSIGN,
	token.QUO_ASSIGN: ASSIGN,
	token.REM_ASSIGN: ASSIGN,
	token.AND_ASSIGN: ASSIGN,
	token.OR_ASSIGN:  ASSIGN,
	token.XOR_ASSIGN: ASSIGN,
	token.SHL_ASSIGN: ASSIGN,
	token.SHR_ASSIGN: ASSIGN,
	token.LOR:        LOGOR,
	token.LAND:       LOGAND,
	token.OR:         BITOR,
	token.XOR:        BITXOR,
	token.AND:        BITAND,
	token.EQL:        EQUALS,
	token.NEQ:        EQUALS,
	token.LSS:        LESSGREATER,
	token.GTR:        LESSGREATER,
	token.LEQ:        LESSGREATER,
	token.GEQ:        LESSGREATER,
	token.SHL:        SHIFT,
	token.SHR:        SHIFT,
	token.ADD:        SUM,
	token.SUB:        SUM,
	token.MUL:        PRODUCT,
	token.QUO:        PRODUCT,
	token.REM:        PRODUCT,
	token.LPAREN:     POSTFIX,
	token.LBRACK:     POSTFIX,
	token.PERIOD:     POSTFIX,
	token.ARROW:      POSTFIX,
	token.INC:        POSTFIX,
	token.DEC:        POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	errors []*token.CompileError

	curToken  token.Token
	peekToken token.Token
	ahead     []token.Token

	typedefs map[string]ast.TypeExpr

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:        l,
		errors:   []*token.CompileError{},
		typedefs: make(map[string]ast.TypeExpr),
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.CHAR, p.parseCharLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	for _, t := range []token.TokenType{token.NOT, token.SUB, token.ADD, token.TILDE, token.MUL, token.AND, token.INC, token.DEC} {
		p.registerPrefix(t, p.parsePrefixExpression)
	}
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.KW_SIZEOF, p.parseSizeof)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for t, prec := range precedences {
		switch {
		case prec == ASSIGN:
			p.registerInfix(t, p.parseAssignExpression)
		case prec < POSTFIX:
			p.registerInfix(t, p.parseInfixExpression)
		}
	}
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACK, p.parseIndexExpression)
	p.registerInfix(token.PERIOD, p.parseMemberExpression)
	p.registerInfix(token.ARROW, p.parseMemberExpression)
	p.registerInfix(token.INC, p.parsePostfixExpression)
	p.registerInfix(token.DEC, p.parsePostfixExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Parse parses a whole file.
func Parse(file, src string) (*ast.TranslationUnit, []*token.CompileError) {
	p := New(lexer.New(file, src))
	tu := p.ParseTranslationUnit()
	tu.File = file
	return tu, p.Errors()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if len(p.ahead) > 0 {
		p.peekToken = p.ahead[0]
		p.ahead = p.ahead[1:]
		return
	}
	p.peekToken = p.l.NextToken()
}

// peekAhead returns the token after peekToken.
func (p *Parser) peekAhead() token.Token {
	if len(p.ahead) == 0 {
		p.ahead = append(p.ahead, p.l.NextToken())
	}
	return p.ahead[0]
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) expectCur(t token.TokenType) bool {
	if p.curTokenIs(t) {
		return true
	}
	p.errorf(p.curToken, "expected %s, got %q instead", t, p.curToken.Literal)
	return false
}

func (p *Parser) Errors() []*token.CompileError {
	return p.errors
}

func (p *Parser) errorf(tok token.Token, format string, args ...any) {
	p.errors = append(p.errors, &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) peekError(t token.TokenType) {
	p.errorf(p.peekToken, "expected next token to be %s, got %q instead", t, p.peekToken.Literal)
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	p.errorf(tok, "unexpected %q in expression", tok.Literal)
}

// skipTo advances until cur is one of the given tokens or EOF.
func (p *Parser) skipTo(types ...token.TokenType) {
	for !p.curTokenIs(token.EOF) {
		for _, t := range types {
			if p.curTokenIs(t) {
				return
			}
		}
		p.nextToken()
	}
}

// ParseTranslationUnit parses top-level declarations until EOF.
func (p *Parser) ParseTranslationUnit() *ast.TranslationUnit {
	tu := &ast.TranslationUnit{}
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		errCount := len(p.errors)
		decls := p.parseExternalDecl()
		if len(p.errors) > errCount {
			p.skipTo(token.SEMICOLON, token.RBRACE)
		}
		tu.Decls = append(tu.Decls, decls...)
		p.nextToken()
	}
	return tu
}

// ---- expressions ----

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}

	value, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err != nil {
		uvalue, uerr := strconv.ParseUint(p.curToken.Literal, 0, 64)
		if uerr != nil {
			p.errorf(p.curToken, "could not parse %q as integer", p.curToken.Literal)
			return nil
		}
		value = int64(uvalue)
		lit.Unsigned = true
	}

	lit.Value = value
	return lit
}

func (p *Parser) parseCharLiteral() ast.Expression {
	v, ok := unescapeChar(p.curToken.Literal)
	if !ok {
		p.errorf(p.curToken, "invalid character literal '%s'", p.curToken.Literal)
		return nil
	}
	return &ast.IntegerLiteral{Token: p.curToken, Value: v}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(p.curToken, "could not parse %q as float", p.curToken.Literal)
		return nil
	}
	return &ast.FloatLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	lit := &ast.StringLiteral{Token: p.curToken}
	var sb strings.Builder
	sb.WriteString(p.curToken.Literal)
	// adjacent literals concatenate
	for p.peekTokenIs(token.STRING) {
		p.nextToken()
		sb.WriteString(p.curToken.Literal)
	}
	lit.Value = sb.String()
	return lit
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Type,
	}

	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parsePostfixExpression(left ast.Expression) ast.Expression {
	return &ast.PostfixExpression{Token: p.curToken, Operator: p.curToken.Type, Left: left}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Type,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseAssignExpression is right associative.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	expression := &ast.AssignExpression{
		Token:    p.curToken,
		Operator: p.curToken.Type,
		Left:     left,
	}
	p.nextToken()
	expression.Right = p.parseExpression(ASSIGN - 1)
	if expression.Right == nil {
		return nil
	}
	return expression
}

// parseGroupedExpression handles both (expr) and casts (type)expr.
func (p *Parser) parseGroupedExpression() ast.Expression {
	lparen := p.curToken
	if p.isTypeStart(p.peekToken) {
		p.nextToken()
		typ := p.parseTypeName()
		if typ == nil || !p.expectPeek(token.RPAREN) {
			return nil
		}
		p.nextToken()
		right := p.parseExpression(PREFIX)
		if right == nil {
			return nil
		}
		return &ast.CastExpression{Token: lparen, Type: typ, Right: right}
	}

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseSizeof() ast.Expression {
	se := &ast.SizeofExpression{Token: p.curToken}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		if p.isTypeStart(p.peekToken) {
			p.nextToken()
			se.Type = p.parseTypeName()
			if se.Type == nil || !p.expectPeek(token.RPAREN) {
				return nil
			}
			return se
		}
		p.nextToken()
		se.Expr = p.parseExpression(LOWEST)
		if se.Expr == nil || !p.expectPeek(token.RPAREN) {
			return nil
		}
		return se
	}
	p.nextToken()
	se.Expr = p.parseExpression(PREFIX)
	if se.Expr == nil {
		return nil
	}
	return se
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.curToken, Function: function}
	exp.Arguments = p.parseCallArguments()
	if exp.Arguments == nil {
		return nil
	}
	return exp
}

func (p *Parser) parseCallArguments() []ast.Expression {
	args := []ast.Expression{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}

	p.nextToken()
	args = append(args, p.parseExpression(LOWEST))

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	for _, a := range args {
		if a == nil {
			return nil
		}
	}
	return args
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	if exp.Index == nil || !p.expectPeek(token.RBRACK) {
		return nil
	}
	return exp
}

func (p *Parser) parseMemberExpression(left ast.Expression) ast.Expression {
	exp := &ast.MemberExpression{Token: p.curToken, Left: left, Arrow: p.curTokenIs(token.ARROW)}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	exp.Name = p.curToken.Literal
	return exp
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// unescapeChar decodes the body of a character literal.
func unescapeChar(lit string) (int64, bool) {
	if lit == "" {
		return 0, false
	}
	if lit[0] != '\\' {
		r := []rune(lit)
		if len(r) != 1 {
			return 0, false
		}
		return int64(r[0]), true
	}
	if len(lit) < 2 {
		return 0, false
	}
	switch lit[1] {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case 'a':
		return 7, true
	case 'b':
		return 8, true
	case 'f':
		return 12, true
	case 'v':
		return 11, true
	case '\\', '\'', '"', '?':
		return int64(lit[1]), true
	case 'x':
		v, err := strconv.ParseInt(lit[2:], 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseInt(lit[1:], 8, 64)
	return v, err == nil
}
