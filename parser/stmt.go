package parser

import (
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/token"
)

// parseBlockStatement parses `{ ... }` with curToken on '{' and leaves
// curToken on '}'.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		errCount := len(p.errors)
		stmt := p.parseStatement()
		if len(p.errors) > errCount {
			p.skipTo(token.SEMICOLON, token.RBRACE)
			if p.curTokenIs(token.RBRACE) {
				break
			}
		} else if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	if !p.expectCur(token.RBRACE) {
		return nil
	}
	return block
}

// parseStatement parses one statement starting at curToken and leaves
// curToken on its last token.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.SEMICOLON:
		return nil
	case token.LBRACE:
		return nilIfBlockNil(p.parseBlockStatement())
	case token.KW_SAFE, token.KW_UNSAFE:
		return p.parseRegion()
	case token.KW_IF:
		return p.parseIfStatement()
	case token.KW_WHILE:
		return p.parseWhileStatement()
	case token.KW_DO:
		return p.parseDoWhileStatement()
	case token.KW_FOR:
		return p.parseForStatement()
	case token.KW_RETURN:
		return p.parseReturnStatement()
	case token.KW_BREAK, token.KW_CONTINUE:
		bs := &ast.BranchStatement{Token: p.curToken}
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
		return bs
	}
	if p.isTypeStart(p.curToken) {
		return p.parseDeclStatement()
	}
	return p.parseExpressionStatement()
}

func nilIfBlockNil(b *ast.BlockStatement) ast.Statement {
	if b == nil {
		return nil
	}
	return b
}

// parseRegion parses `__Safe__ { ... }` and `__Unsafe__ { ... }`.
func (p *Parser) parseRegion() ast.Statement {
	kw := p.curToken
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	block := p.parseBlockStatement()
	if block == nil {
		return nil
	}
	block.Token = kw
	block.Region = ast.RegionSafe
	if kw.Type == token.KW_UNSAFE {
		block.Region = ast.RegionUnsafe
	}
	return block
}

func (p *Parser) parseDeclStatement() ast.Statement {
	stmt := &ast.DeclStatement{Token: p.curToken}
	ds := p.parseDeclSpec()
	if ds == nil {
		return nil
	}
	if ds.structDef != nil && p.peekTokenIs(token.SEMICOLON) {
		p.errorf(ds.tok, "struct definitions are only supported at file scope")
		return nil
	}
	for {
		d := p.parseDeclarator(false)
		if d == nil {
			return nil
		}
		attrs := append(append([]*ast.Attribute{}, ds.attrs...), d.attrs...)
		vd := p.newVarDecl(ds, d, d.wrap(ds.base), attrs)
		if vd == nil {
			return nil
		}
		stmt.Decls = append(stmt.Decls, vd)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

// parseParenCondition parses `( expr )` with curToken before '('.
func (p *Parser) parseParenCondition() ast.Expression {
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return cond
}

// parseBody parses the statement after a control header; an empty
// statement becomes an empty block.
func (p *Parser) parseBody() ast.Statement {
	p.nextToken()
	if p.curTokenIs(token.SEMICOLON) {
		return &ast.BlockStatement{Token: p.curToken, Statements: []ast.Statement{}}
	}
	return p.parseStatement()
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	stmt.Condition = p.parseParenCondition()
	if stmt.Condition == nil {
		return nil
	}
	stmt.Consequence = p.parseBody()
	if stmt.Consequence == nil {
		return nil
	}
	if p.peekTokenIs(token.KW_ELSE) {
		p.nextToken()
		stmt.Alternative = p.parseBody()
		if stmt.Alternative == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}
	stmt.Condition = p.parseParenCondition()
	if stmt.Condition == nil {
		return nil
	}
	stmt.Body = p.parseBody()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken, DoWhile: true}
	stmt.Body = p.parseBody()
	if stmt.Body == nil || !p.expectPeek(token.KW_WHILE) {
		return nil
	}
	stmt.Condition = p.parseParenCondition()
	if stmt.Condition == nil || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	if !p.curTokenIs(token.SEMICOLON) {
		if p.isTypeStart(p.curToken) {
			stmt.Init = p.parseDeclStatement()
		} else {
			stmt.Init = p.parseExpressionStatement()
		}
		if stmt.Init == nil {
			return nil
		}
	}
	// curToken is the ';' ending the init clause
	if !p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		stmt.Condition = p.parseExpression(LOWEST)
		if stmt.Condition == nil {
			return nil
		}
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	if !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		stmt.Post = p.parseExpression(LOWEST)
		if stmt.Post == nil {
			return nil
		}
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	stmt.Body = p.parseBody()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}
