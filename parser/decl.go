package parser

import (
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/token"
)

// declSpec is the result of parsing declaration specifiers.
type declSpec struct {
	tok     token.Token
	base    ast.TypeExpr
	static  bool
	extern  bool
	typedef bool
	attrs   []*ast.Attribute
	// structDef is set when the specifiers define a struct body.
	structDef *ast.StructType
}

// typeWrap applies the declarator's derivations to a base type.
type typeWrap func(ast.TypeExpr) ast.TypeExpr

type declarator struct {
	tok   token.Token
	name  string
	wrap  typeWrap
	attrs []*ast.Attribute
}

func isBaseTypeKeyword(t token.TokenType) bool {
	switch t {
	case token.KW_VOID, token.KW_CHAR, token.KW_SHORT, token.KW_INT, token.KW_LONG,
		token.KW_FLOAT, token.KW_DOUBLE, token.KW_SIGNED, token.KW_UNSIGNED, token.KW_BOOL:
		return true
	}
	return false
}

// isTypeStart reports whether tok can begin a declaration or type name.
func (p *Parser) isTypeStart(tok token.Token) bool {
	if isBaseTypeKeyword(tok.Type) {
		return true
	}
	switch tok.Type {
	case token.KW_STRUCT, token.KW_CONST, token.KW_VOLATILE, token.KW_STATIC,
		token.KW_EXTERN, token.KW_TYPEDEF, token.KW_ATTRIBUTE:
		return true
	case token.IDENT:
		_, ok := p.typedefs[tok.Literal]
		return ok
	}
	return false
}

// parseDeclSpec parses specifiers starting at curToken and leaves curToken on
// the last specifier token.
func (p *Parser) parseDeclSpec() *declSpec {
	ds := &declSpec{tok: p.curToken}
	var names []string
	first := true
	for {
		if !first {
			if !p.isTypeStart(p.peekToken) {
				break
			}
			// a typedef name after a complete base type is the declarator
			if p.peekTokenIs(token.IDENT) && (len(names) > 0 || ds.base != nil) {
				break
			}
			p.nextToken()
		}
		first = false

		switch p.curToken.Type {
		case token.KW_STATIC:
			ds.static = true
		case token.KW_EXTERN:
			ds.extern = true
		case token.KW_TYPEDEF:
			ds.typedef = true
		case token.KW_CONST, token.KW_VOLATILE:
		case token.KW_ATTRIBUTE:
			ds.attrs = append(ds.attrs, p.parseAttributes()...)
		case token.KW_STRUCT:
			st := p.parseStructSpec()
			if st == nil {
				return nil
			}
			ds.base = st
			if st.Fields != nil {
				ds.structDef = st
			}
		case token.IDENT:
			ds.base = p.typedefs[p.curToken.Literal]
		default:
			if !isBaseTypeKeyword(p.curToken.Type) {
				p.errorf(p.curToken, "unexpected %q in declaration", p.curToken.Literal)
				return nil
			}
			names = append(names, p.curToken.Literal)
		}
	}
	if ds.base == nil {
		if len(names) == 0 {
			names = []string{"int"}
		}
		ds.base = &ast.BaseType{Token: ds.tok, Names: names}
	}
	return ds
}

// parseStructSpec parses `struct Name`, `struct Name { ... }` or `struct { ... }`.
func (p *Parser) parseStructSpec() *ast.StructType {
	st := &ast.StructType{Token: p.curToken}
	if p.peekTokenIs(token.IDENT) {
		p.nextToken()
		st.Name = p.curToken.Literal
	}
	if !p.peekTokenIs(token.LBRACE) {
		if st.Name == "" {
			p.errorf(p.curToken, "anonymous struct needs a body")
			return nil
		}
		return st
	}
	p.nextToken()
	st.Fields = []*ast.FieldDecl{}
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		fields := p.parseFieldDecl()
		if fields == nil {
			return nil
		}
		st.Fields = append(st.Fields, fields...)
		p.nextToken()
	}
	if !p.expectCur(token.RBRACE) {
		return nil
	}
	return st
}

// parseFieldDecl parses one member declaration line ending in ';'.
func (p *Parser) parseFieldDecl() []*ast.FieldDecl {
	ds := p.parseDeclSpec()
	if ds == nil {
		return nil
	}
	var fields []*ast.FieldDecl
	for {
		d := p.parseDeclarator(false)
		if d == nil {
			return nil
		}
		fd := &ast.FieldDecl{Token: d.tok, Name: d.name, Type: d.wrap(ds.base)}
		fd.Attrs = append(append([]*ast.Attribute{}, ds.attrs...), d.attrs...)
		fields = append(fields, fd)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return fields
}

// parseDeclarator parses a (possibly abstract) declarator that starts at
// peekToken. On return curToken is the last token of the declarator; an empty
// abstract declarator consumes nothing.
func (p *Parser) parseDeclarator(abstract bool) *declarator {
	d := &declarator{tok: p.peekToken}
	ptrs := 0
	for p.peekTokenIs(token.MUL) {
		p.nextToken()
		ptrs++
		// qualifiers and attributes after '*'
		for p.peekTokenIs(token.KW_CONST) || p.peekTokenIs(token.KW_VOLATILE) || p.peekTokenIs(token.KW_ATTRIBUTE) {
			p.nextToken()
			if p.curTokenIs(token.KW_ATTRIBUTE) {
				d.attrs = append(d.attrs, p.parseAttributes()...)
			}
		}
	}

	var inner *declarator
	switch {
	case p.peekTokenIs(token.LPAREN) && p.peekAhead().Type == token.MUL:
		p.nextToken()
		inner = p.parseDeclarator(abstract)
		if inner == nil || !p.expectPeek(token.RPAREN) {
			return nil
		}
		d.tok = inner.tok
		d.name = inner.name
		d.attrs = append(d.attrs, inner.attrs...)
	case p.peekTokenIs(token.IDENT):
		p.nextToken()
		d.tok = p.curToken
		d.name = p.curToken.Literal
	default:
		if !abstract {
			p.errorf(p.peekToken, "expected declarator name, got %q", p.peekToken.Literal)
			return nil
		}
	}

	var suffixes []typeWrap
	for p.peekTokenIs(token.LBRACK) || p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		var sfx typeWrap
		if p.curTokenIs(token.LBRACK) {
			sfx = p.parseArraySuffix()
		} else {
			sfx = p.parseParamsSuffix()
		}
		if sfx == nil {
			return nil
		}
		suffixes = append(suffixes, sfx)
	}

	for p.peekTokenIs(token.KW_ATTRIBUTE) {
		p.nextToken()
		d.attrs = append(d.attrs, p.parseAttributes()...)
	}

	tok := d.tok
	d.wrap = func(base ast.TypeExpr) ast.TypeExpr {
		t := base
		for i := 0; i < ptrs; i++ {
			t = &ast.PointerType{Token: tok, Elem: t}
		}
		for i := len(suffixes) - 1; i >= 0; i-- {
			t = suffixes[i](t)
		}
		if inner != nil {
			t = inner.wrap(t)
		}
		return t
	}
	return d
}

// parseArraySuffix parses `[N]` or `[]` with curToken on '['.
func (p *Parser) parseArraySuffix() typeWrap {
	tok := p.curToken
	var length ast.Expression
	if !p.peekTokenIs(token.RBRACK) {
		p.nextToken()
		length = p.parseExpression(LOWEST)
		if length == nil {
			return nil
		}
	}
	if !p.expectPeek(token.RBRACK) {
		return nil
	}
	return func(elem ast.TypeExpr) ast.TypeExpr {
		return &ast.ArrayType{Token: tok, Elem: elem, Len: length}
	}
}

// parseParamsSuffix parses a parameter list with curToken on '('.
func (p *Parser) parseParamsSuffix() typeWrap {
	tok := p.curToken
	var params []*ast.ParamDecl
	variadic := false

	switch {
	case p.peekTokenIs(token.RPAREN):
		p.nextToken()
	case p.peekTokenIs(token.KW_VOID) && p.peekAhead().Type == token.RPAREN:
		p.nextToken()
		p.nextToken()
	default:
		params = p.parseParamList()
		if params == nil {
			return nil
		}
	}
	if len(params) > 0 && params[len(params)-1] == nil {
		params = params[:len(params)-1]
		variadic = true
	}
	return func(ret ast.TypeExpr) ast.TypeExpr {
		return &ast.FuncType{Token: tok, Ret: ret, Params: params, Variadic: variadic}
	}
}

// parseParamList parses parameters after the '(' at curToken and consumes the
// closing ')'. A trailing nil entry marks '...'.
func (p *Parser) parseParamList() []*ast.ParamDecl {
	params := []*ast.ParamDecl{}
	for {
		if p.peekTokenIs(token.ELLIPSIS) {
			p.nextToken()
			params = append(params, nil)
			if !p.expectPeek(token.RPAREN) {
				return nil
			}
			return params
		}
		p.nextToken()
		ds := p.parseDeclSpec()
		if ds == nil {
			return nil
		}
		d := p.parseDeclarator(true)
		if d == nil {
			return nil
		}
		tok := d.tok
		if d.name == "" {
			tok = ds.tok
		}
		pd := &ast.ParamDecl{Token: tok, Name: d.name, Type: adjustParamType(d.wrap(ds.base))}
		pd.Attrs = append(append([]*ast.Attribute{}, ds.attrs...), d.attrs...)
		params = append(params, pd)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return params
	}
}

// adjustParamType decays array and function parameters to pointers.
func adjustParamType(t ast.TypeExpr) ast.TypeExpr {
	switch tt := t.(type) {
	case *ast.ArrayType:
		return &ast.PointerType{Token: tt.Token, Elem: tt.Elem}
	case *ast.FuncType:
		return &ast.PointerType{Token: tt.Token, Elem: tt}
	}
	return t
}

// parseTypeName parses a type for casts and sizeof, leaving curToken on its
// last token.
func (p *Parser) parseTypeName() ast.TypeExpr {
	ds := p.parseDeclSpec()
	if ds == nil {
		return nil
	}
	d := p.parseDeclarator(true)
	if d == nil {
		return nil
	}
	if d.name != "" {
		p.errorf(d.tok, "unexpected name %q in type", d.name)
		return nil
	}
	return d.wrap(ds.base)
}

// parseAttributes parses __attribute__((a, b(x))) with curToken on the keyword.
func (p *Parser) parseAttributes() []*ast.Attribute {
	if !p.expectPeek(token.LPAREN) || !p.expectPeek(token.LPAREN) {
		return nil
	}
	var attrs []*ast.Attribute
	for !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		if !p.curTokenIs(token.IDENT) && !p.curToken.IsKeyword() {
			p.errorf(p.curToken, "expected attribute name, got %q", p.curToken.Literal)
			return attrs
		}
		attr := &ast.Attribute{Token: p.curToken, Name: p.curToken.Literal}
		if p.peekTokenIs(token.LPAREN) {
			p.nextToken()
			attr.Args = p.parseCallArguments()
			if attr.Args == nil {
				return attrs
			}
		}
		attrs = append(attrs, attr)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.nextToken()
	if !p.expectPeek(token.RPAREN) {
		return attrs
	}
	return attrs
}

// parseExternalDecl parses one top-level declaration ending in ';' or a
// function body.
func (p *Parser) parseExternalDecl() []ast.Decl {
	ds := p.parseDeclSpec()
	if ds == nil {
		return nil
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		if ds.structDef != nil {
			return []ast.Decl{&ast.StructDecl{Token: ds.tok, Type: ds.structDef}}
		}
		return nil
	}

	var decls []ast.Decl
	if ds.structDef != nil {
		decls = append(decls, &ast.StructDecl{Token: ds.tok, Type: ds.structDef})
	}
	for {
		d := p.parseDeclarator(false)
		if d == nil {
			return decls
		}
		typ := d.wrap(ds.base)
		attrs := append(append([]*ast.Attribute{}, ds.attrs...), d.attrs...)

		if ds.typedef {
			p.typedefs[d.name] = typ
			decls = append(decls, &ast.TypedefDecl{Token: d.tok, Name: d.name, Type: typ})
		} else if ft, ok := typ.(*ast.FuncType); ok {
			fd := &ast.FuncDecl{Token: d.tok, Name: d.name, Type: ft, Attrs: attrs}
			if p.peekTokenIs(token.LBRACE) {
				p.nextToken()
				fd.Body = p.parseBlockStatement()
				if fd.Body == nil {
					return decls
				}
				return append(decls, fd)
			}
			decls = append(decls, fd)
		} else {
			vd := p.newVarDecl(ds, d, typ, attrs)
			if vd == nil {
				return decls
			}
			decls = append(decls, vd)
		}

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	p.expectPeek(token.SEMICOLON)
	return decls
}

// newVarDecl builds a variable declaration and parses an optional initializer.
func (p *Parser) newVarDecl(ds *declSpec, d *declarator, typ ast.TypeExpr, attrs []*ast.Attribute) *ast.VarDecl {
	vd := &ast.VarDecl{Token: d.tok, Name: d.name, Type: typ, Static: ds.static, Extern: ds.extern}
	vd.Attrs = attrs
	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		vd.Init = p.parseExpression(ASSIGN)
		if vd.Init == nil {
			return nil
		}
	}
	return vd
}
