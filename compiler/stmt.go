package compiler

import (
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// block lowers the statements of bs. The function body shares the scope of
// the parameters, so scoped is false for it.
func (c *Compiler) block(bs *ast.BlockStatement, scoped bool) {
	if bs.Region != ast.RegionInherit {
		c.fc.PushRegion(bs.Region)
		defer c.fc.PopRegion()
	}
	if scoped {
		PushScope(&c.Scopes, BlockScope)
		defer PopScope(&c.Scopes)
	}
	for _, s := range bs.Statements {
		if c.Diag.Limited() {
			return
		}
		c.stmt(s)
	}
}

func (c *Compiler) stmt(s ast.Statement) {
	switch s := s.(type) {
	case *ast.BlockStatement:
		c.block(s, true)
	case *ast.DeclStatement:
		for _, vd := range s.Decls {
			c.fc.BeginStmt()
			c.localVar(vd)
		}
	case *ast.ExpressionStatement:
		c.fc.BeginStmt()
		c.effect(s.Expression)
	case *ast.IfStatement:
		c.ifStmt(s)
	case *ast.WhileStatement:
		c.whileStmt(s)
	case *ast.ForStatement:
		c.forStmt(s)
	case *ast.ReturnStatement:
		c.returnStmt(s)
	case *ast.BranchStatement:
		if c.loops == 0 {
			c.errorf(s.Token, "%s statement not within a loop", s.Token.Literal)
			return
		}
		if s.Token.Type == token.KW_BREAK {
			c.emit(&ir.Break{Loc: s.Token.Pos})
		} else {
			c.emit(&ir.Continue{Loc: s.Token.Pos})
		}
	default:
		c.errorf(s.Tok(), "unsupported statement %s", s)
	}
}

// effect lowers e for its side effects only.
func (c *Compiler) effect(e ast.Expression) {
	switch e := e.(type) {
	case *ast.AssignExpression:
		c.assign(e)
		return
	case *ast.PostfixExpression:
		c.incDec(e.Left, e.Operator, true, e.Token)
		return
	case *ast.CallExpression:
		c.call(e)
		return
	}
	v := c.expr(e)
	if hasLoad(v) {
		c.emit(&ir.Eval{X: v, Loc: e.Tok().Pos})
	}
}

// cond lowers a controlling expression to a truth value.
func (c *Compiler) cond(e ast.Expression) ir.Expr {
	return c.scalarTruth(c.expr(e), e.Tok())
}

func (c *Compiler) ifStmt(is *ast.IfStatement) {
	c.fc.BeginStmt()
	cond := c.cond(is.Condition)
	s := &ir.If{Cond: cond, Loc: is.Token.Pos}
	s.Then = c.collect(func() { c.stmt(is.Consequence) })
	if is.Alternative != nil {
		s.Else = c.collect(func() { c.stmt(is.Alternative) })
	}
	c.emit(s)
}

// loop builds a While from a condition that may need statements of its own.
// Such a condition is tested inside the body, or in Post for do-while.
func (c *Compiler) loop(pre []ir.Stmt, cond ir.Expr, body, post []ir.Stmt, doWhile bool, loc token.Pos) *ir.While {
	w := &ir.While{Body: body, Post: post, Loc: loc}
	if len(pre) == 0 {
		w.Cond = cond
		w.DoWhile = doWhile && cond != nil
		return w
	}
	exit := &ir.If{Cond: negate(cond), Then: []ir.Stmt{&ir.Break{Loc: loc}}, Loc: loc}
	if doWhile {
		w.Post = append(append(w.Post, pre...), exit)
		return w
	}
	w.Body = append(append(pre, exit), body...)
	return w
}

func (c *Compiler) loopBody(s ast.Statement) []ir.Stmt {
	c.loops++
	defer func() { c.loops-- }()
	return c.collect(func() { c.stmt(s) })
}

func (c *Compiler) whileStmt(ws *ast.WhileStatement) {
	c.fc.BeginStmt()
	var cond ir.Expr
	pre := c.collect(func() { cond = c.cond(ws.Condition) })
	body := c.loopBody(ws.Body)
	c.emit(c.loop(pre, cond, body, nil, ws.DoWhile, ws.Token.Pos))
}

func (c *Compiler) forStmt(fs *ast.ForStatement) {
	PushScope(&c.Scopes, BlockScope)
	defer PopScope(&c.Scopes)
	if fs.Init != nil {
		c.stmt(fs.Init)
	}
	c.fc.BeginStmt()
	var cond ir.Expr
	var pre []ir.Stmt
	if fs.Condition != nil {
		pre = c.collect(func() { cond = c.cond(fs.Condition) })
	}
	body := c.loopBody(fs.Body)
	var post []ir.Stmt
	if fs.Post != nil {
		post = c.collect(func() {
			c.fc.BeginStmt()
			c.effect(fs.Post)
		})
	}
	c.emit(c.loop(pre, cond, body, post, false, fs.Token.Pos))
}

func (c *Compiler) returnStmt(rs *ast.ReturnStatement) {
	c.fc.BeginStmt()
	ret := c.fn.Sig.Ret
	if rs.Value == nil {
		if ret.Kind() != types.VoidKind {
			c.errorf(rs.Token, "non-void function %s should return a value", c.fn.Name)
		}
		c.emit(&ir.Return{Loc: rs.Token.Pos})
		return
	}
	v := c.expr(rs.Value)
	if ret.Kind() == types.VoidKind {
		if v.Type().Kind() != types.VoidKind {
			c.errorf(rs.Token, "void function %s should not return a value", c.fn.Name)
		}
		c.emit(&ir.Return{Loc: rs.Token.Pos})
		return
	}
	v = c.convertAssign(v, ret, rs.Token)
	if c.checking() {
		c.Enc.CheckFuncPtrAssign(ret, v, rs.Token.Pos)
		c.fc.CheckReturn(c.out, v, rs.Token.Pos)
	}
	c.emit(&ir.Return{Value: v, Loc: rs.Token.Pos})
}

// localVar lowers a block-scope declaration.
func (c *Compiler) localVar(vd *ast.VarDecl) {
	t := c.resolveType(vd.Type)
	if t == nil || c.reserved(vd.Token, vd.Name) {
		return
	}
	t = c.completeArray(t, vd.Init)
	if prev, ok := GetLocal(c.Scopes, vd.Name); ok && !(vd.Extern && prev.Var != nil && prev.Var.Global) {
		c.errorf(vd.Token, "redefinition of %s", vd.Name)
		return
	}
	switch {
	case vd.Extern:
		c.externLocal(vd, t)
		return
	case vd.Static:
		c.staticLocal(vd, t)
		return
	case t.Kind() == types.VoidKind || t.Kind() == types.FuncKind:
		c.errorf(vd.Token, "variable %s has type %s", vd.Name, t)
		return
	case t.Kind() == types.ArrayKind && t.(types.Array).Len == 0:
		c.errorf(vd.Token, "array %s has no length", vd.Name)
		return
	}
	v := ir.NewVar(c.uniqueLocal(vd.Name), t)
	v.Loc = vd.Token.Pos
	c.fn.AddLocal(v)
	Put(c.Scopes, vd.Name, &Symbol{Var: v})
	if c.Enc.Opts.Enabled() {
		c.Enc.ExtractVar(v, vd, nil)
	}
	if vd.Init == nil {
		if v.Attrs.Nonnull {
			c.fc.CheckNonnull(c.out, ir.AssignAssertNonnull, ir.Null(t), v.Name, vd.Token.Pos)
		}
		return
	}
	if s, ok := vd.Init.(*ast.StringLiteral); ok && t.Kind() == types.ArrayKind {
		c.initCharArray(v, c.strConst(s, t.(types.Array)))
		return
	}
	if t.Kind() == types.ArrayKind {
		c.errorf(vd.Token, "array %s must be initialized by a string literal", vd.Name)
		return
	}
	src := c.convertAssign(c.expr(vd.Init), t, vd.Init.Tok())
	c.store(lvalue{v: v, typ: t}, src, vd.Token.Pos)
}

// initCharArray stores a string literal byte by byte, padding with zeros.
func (c *Compiler) initCharArray(v *ir.Var, s *ir.Str) {
	arr := v.Type.(types.Array)
	base := ir.NewAddrOf(v, 0)
	for i := int64(0); i < arr.Len; i++ {
		var b int64
		if i < int64(len(s.Value)) {
			b = int64(s.Value[i])
		}
		addr := &ir.ArrayAddr{Base: base, Index: ir.NewInt(i, types.I64), Stride: arr.Elem.Size(), Len: arr.Len, Typ: base.Typ}
		c.emit(&ir.IAssign{Addr: addr, Src: ir.NewInt(b, arr.Elem), Loc: v.Loc})
	}
}

func (c *Compiler) externLocal(vd *ast.VarDecl, t types.Type) {
	v := c.Mod.Global(vd.Name)
	if v == nil {
		v = ir.NewVar(vd.Name, t)
		v.Global = true
		v.Extern = true
		v.Loc = vd.Token.Pos
		c.Mod.Globals = append(c.Mod.Globals, v)
		if c.Enc.Opts.Enabled() {
			c.Enc.ExtractVar(v, vd, nil)
		}
	}
	Put(c.Scopes, vd.Name, &Symbol{Var: v})
}

// staticLocal lowers a static local to a private global named after its
// function.
func (c *Compiler) staticLocal(vd *ast.VarDecl, t types.Type) {
	v := ir.NewVar(c.fn.Name+"."+c.uniqueLocal(vd.Name), t)
	v.Global = true
	v.Static = true
	v.Loc = vd.Token.Pos
	c.Mod.Globals = append(c.Mod.Globals, v)
	Put(c.Scopes, vd.Name, &Symbol{Var: v})
	fn, fc := c.fn, c.fc
	c.fn, c.fc = nil, c.Enc.Globals()
	defer func() { c.fn, c.fc = fn, fc }()
	if c.Enc.Opts.Enabled() {
		c.Enc.ExtractVar(v, vd, nil)
	}
	c.initGlobal(v, vd)
}
