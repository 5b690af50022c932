package compiler

import (
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// lvalue is an assignable location: variable v (or its field), or the
// object addr points to (or its field).
type lvalue struct {
	v       *ir.Var
	addr    ir.Expr
	fieldID int
	typ     types.Type
}

// read loads the value of lv. Arrays decay to the address of their first
// element.
func (lv lvalue) read() ir.Expr {
	if lv.typ.Kind() == types.ArrayKind {
		return lv.address()
	}
	if lv.v != nil {
		return ir.NewDRead(lv.v, lv.fieldID)
	}
	return ir.NewIRead(lv.addr, lv.fieldID)
}

func (lv lvalue) address() ir.Expr {
	if lv.v != nil {
		return ir.NewAddrOf(lv.v, lv.fieldID)
	}
	if lv.fieldID != 0 {
		return ir.NewIAddrOf(lv.addr, lv.fieldID)
	}
	if arr, ok := lv.typ.(types.Array); ok && !types.Equal(lv.addr.Type(), types.Ptr{Elem: arr.Elem}) {
		return ir.NewCvt(lv.addr, types.Ptr{Elem: arr.Elem})
	}
	return lv.addr
}

// invalid is returned after an error so lowering can continue.
func invalid() ir.Expr { return ir.NewInt(0, types.I32) }

func voidValue() ir.Expr { return ir.NewInt(0, types.VoidT) }

// expr lowers e as an rvalue. Statements it needs are emitted to c.out.
func (c *Compiler) expr(e ast.Expression) ir.Expr {
	switch e := e.(type) {
	case *ast.Identifier:
		return c.identifier(e)
	case *ast.IntegerLiteral:
		return intLiteral(e)
	case *ast.FloatLiteral:
		return &ir.Const{FVal: e.Value, Typ: types.F64}
	case *ast.StringLiteral:
		return c.stringLiteral(e)
	case *ast.PrefixExpression:
		return c.prefix(e)
	case *ast.PostfixExpression:
		return c.incDec(e.Left, e.Operator, false, e.Token)
	case *ast.InfixExpression:
		if e.Operator == token.LAND || e.Operator == token.LOR {
			return c.logical(e)
		}
		x := c.expr(e.Left)
		y := c.expr(e.Right)
		return c.binary(binOps[e.Operator], x, y, e.Token)
	case *ast.AssignExpression:
		return c.assign(e)
	case *ast.CallExpression:
		return c.call(e)
	case *ast.IndexExpression, *ast.MemberExpression:
		lv, ok := c.lval(e)
		if !ok {
			return invalid()
		}
		return lv.read()
	case *ast.CastExpression:
		return c.cast(e)
	case *ast.SizeofExpression:
		return c.sizeof(e)
	}
	c.errorf(e.Tok(), "unsupported expression %s", e)
	return invalid()
}

func intLiteral(il *ast.IntegerLiteral) ir.Expr {
	switch {
	case il.Token.Type == token.CHAR:
		return ir.NewInt(il.Value, types.I32)
	case il.Unsigned:
		return ir.NewInt(il.Value, types.U64)
	case il.Value > 1<<31-1 || il.Value < -1<<31:
		return ir.NewInt(il.Value, types.I64)
	}
	return ir.NewInt(il.Value, types.I32)
}

func (c *Compiler) identifier(id *ast.Identifier) ir.Expr {
	if c.lenLookup != nil {
		if e, ok := c.lenLookup(id.Value); ok {
			return e
		}
	}
	sym, ok := c.lookup(id.Value)
	if !ok {
		c.errorf(id.Token, "undeclared identifier %s", id.Value)
		return invalid()
	}
	if sym.Func != nil {
		return &ir.AddrOfFunc{Name: sym.Func.Name, Sig: sym.Func.Sig}
	}
	return lvalue{v: sym.Var, typ: sym.Var.Type}.read()
}

// lval lowers e as an assignable location.
func (c *Compiler) lval(e ast.Expression) (lvalue, bool) {
	switch e := e.(type) {
	case *ast.Identifier:
		if c.lenLookup != nil {
			if x, ok := c.lenLookup(e.Value); ok {
				if d, ok := x.(*ir.DRead); ok {
					return lvalue{v: d.Var, fieldID: d.FieldID, typ: d.Typ}, true
				}
				c.errorf(e.Token, "%s is not assignable", e.Value)
				return lvalue{}, false
			}
		}
		sym, ok := c.lookup(e.Value)
		if !ok {
			c.errorf(e.Token, "undeclared identifier %s", e.Value)
			return lvalue{}, false
		}
		if sym.Var == nil {
			c.errorf(e.Token, "function %s is not assignable", e.Value)
			return lvalue{}, false
		}
		return lvalue{v: sym.Var, typ: sym.Var.Type}, true
	case *ast.IndexExpression:
		return c.subscript(e)
	case *ast.MemberExpression:
		return c.member(e)
	case *ast.PrefixExpression:
		if e.Operator == token.MUL {
			p := c.expr(e.Right)
			return c.deref(p, e.Token)
		}
	}
	c.errorf(e.Tok(), "expression %s is not assignable", e)
	return lvalue{}, false
}

// isLvalueForm reports whether e syntactically names a location.
func (c *Compiler) isLvalueForm(e ast.Expression) bool {
	switch e := e.(type) {
	case *ast.Identifier:
		if c.lenLookup != nil {
			if x, ok := c.lenLookup(e.Value); ok {
				_, direct := x.(*ir.DRead)
				return direct
			}
		}
		sym, ok := c.lookup(e.Value)
		return ok && sym.Var != nil
	case *ast.IndexExpression, *ast.MemberExpression:
		return true
	case *ast.PrefixExpression:
		return e.Operator == token.MUL
	}
	return false
}

func (c *Compiler) deref(p ir.Expr, tok token.Token) (lvalue, bool) {
	if !types.IsPointer(p.Type()) {
		c.errorf(tok, "cannot dereference %s", p.Type())
		return lvalue{}, false
	}
	elem := types.Pointee(p.Type())
	switch elem.Kind() {
	case types.VoidKind:
		c.errorf(tok, "dereferencing a void pointer")
		return lvalue{}, false
	case types.FuncKind:
		c.errorf(tok, "function designator is not assignable")
		return lvalue{}, false
	}
	if c.checking() {
		c.fc.CheckDeref(c.out, p, tok.Pos)
	}
	return lvalue{addr: p, typ: elem}, true
}

func (c *Compiler) subscript(ie *ast.IndexExpression) (lvalue, bool) {
	var base ir.Expr
	var n int64
	if c.isLvalueForm(ie.Left) {
		lv, ok := c.lval(ie.Left)
		if !ok {
			return lvalue{}, false
		}
		if arr, isArr := lv.typ.(types.Array); isArr {
			n = arr.Len
		}
		base = lv.read()
	} else {
		base = c.expr(ie.Left)
	}
	idx := c.expr(ie.Index)
	if !types.IsPointer(base.Type()) && types.IsPointer(idx.Type()) {
		base, idx = idx, base
		n = 0
	}
	if !types.IsPointer(base.Type()) || !types.IsInteger(idx.Type()) {
		c.errorf(ie.Token, "subscripted value must be a pointer or array indexed by an integer")
		return lvalue{}, false
	}
	elem := types.Pointee(base.Type())
	if elem.Kind() == types.VoidKind || elem.Kind() == types.FuncKind {
		c.errorf(ie.Token, "subscript of pointer to %s", elem)
		return lvalue{}, false
	}
	typ := types.Type(types.Ptr{Elem: elem})
	if arr, ok := elem.(types.Array); ok {
		typ = types.Ptr{Elem: arr.Elem}
	}
	a := &ir.ArrayAddr{
		Base:   base,
		Index:  foldConst(convert(idx, types.I64)),
		Stride: elem.Size(),
		Len:    n,
		Typ:    typ,
	}
	if c.checking() {
		c.fc.CheckSubscript(c.out, a, ie.Token.Pos)
	}
	return lvalue{addr: a, typ: elem}, true
}

func (c *Compiler) member(me *ast.MemberExpression) (lvalue, bool) {
	if me.Arrow {
		p := c.expr(me.Left)
		if !types.IsPointer(p.Type()) {
			c.errorf(me.Token, "-> applied to non-pointer %s", p.Type())
			return lvalue{}, false
		}
		st, ok := types.Pointee(p.Type()).(*types.Struct)
		if !ok {
			c.errorf(me.Token, "-> applied to pointer to %s", types.Pointee(p.Type()))
			return lvalue{}, false
		}
		id, f, ok := c.field(st, me)
		if !ok {
			return lvalue{}, false
		}
		if c.checking() {
			c.fc.CheckDeref(c.out, p, me.Token.Pos)
		}
		return lvalue{addr: p, fieldID: id, typ: f.Type}, true
	}
	var lv lvalue
	if c.isLvalueForm(me.Left) {
		var ok bool
		if lv, ok = c.lval(me.Left); !ok {
			return lvalue{}, false
		}
	} else {
		val := c.expr(me.Left)
		d, ok := val.(*ir.DRead)
		if !ok {
			c.errorf(me.Token, "member access on a non-struct value")
			return lvalue{}, false
		}
		lv = lvalue{v: d.Var, fieldID: d.FieldID, typ: d.Typ}
	}
	st, ok := lv.typ.(*types.Struct)
	if !ok {
		c.errorf(me.Token, ". applied to %s", lv.typ)
		return lvalue{}, false
	}
	id, f, ok := c.field(st, me)
	if !ok {
		return lvalue{}, false
	}
	lv.fieldID += id
	lv.typ = f.Type
	return lv, true
}

func (c *Compiler) field(st *types.Struct, me *ast.MemberExpression) (int, *types.Field, bool) {
	if !st.Complete {
		c.errorf(me.Token, "member access into incomplete %s", st)
		return 0, nil, false
	}
	id, f, ok := st.FieldID(me.Name)
	if !ok {
		c.errorf(me.Token, "%s has no member named %s", st, me.Name)
	}
	return id, f, ok
}

func (c *Compiler) prefix(pe *ast.PrefixExpression) ir.Expr {
	switch pe.Operator {
	case token.MUL:
		p := c.expr(pe.Right)
		if types.IsFuncPointer(p.Type()) {
			return p
		}
		lv, ok := c.deref(p, pe.Token)
		if !ok {
			return invalid()
		}
		return lv.read()
	case token.AND:
		return c.addressOf(pe)
	case token.INC, token.DEC:
		return c.incDec(pe.Right, pe.Operator, true, pe.Token)
	}
	x := c.expr(pe.Right)
	switch pe.Operator {
	case token.NOT:
		if !types.IsScalar(x.Type()) {
			c.errorf(pe.Token, "invalid operand to !: %s", x.Type())
			return invalid()
		}
		return foldConst(ir.NewBinary(ir.Eq, x, zero(x.Type()), types.I32))
	case token.SUB, token.ADD, token.TILDE:
		t := promote(x.Type())
		if !types.IsInteger(t) && (pe.Operator == token.TILDE || !types.IsFloat(t)) {
			c.errorf(pe.Token, "invalid operand to %s: %s", pe.Operator, x.Type())
			return invalid()
		}
		x = convert(x, t)
		switch pe.Operator {
		case token.SUB:
			if k, ok := x.(*ir.Const); ok && types.IsFloat(t) {
				return &ir.Const{FVal: -k.FVal, Typ: t}
			}
			return foldConst(&ir.Unary{Op: ir.Neg, X: x, Typ: t})
		case token.TILDE:
			return foldConst(&ir.Unary{Op: ir.BNot, X: x, Typ: t})
		}
		return x
	}
	c.errorf(pe.Token, "unsupported prefix operator %s", pe.Operator)
	return invalid()
}

func (c *Compiler) addressOf(pe *ast.PrefixExpression) ir.Expr {
	switch r := pe.Right.(type) {
	case *ast.Identifier:
		if sym, ok := c.lookup(r.Value); ok && sym.Func != nil && c.lenLookup == nil {
			return &ir.AddrOfFunc{Name: sym.Func.Name, Sig: sym.Func.Sig}
		}
	case *ast.PrefixExpression:
		if r.Operator == token.MUL {
			p := c.expr(r.Right)
			if !types.IsPointer(p.Type()) {
				c.errorf(r.Token, "cannot dereference %s", p.Type())
				return invalid()
			}
			return p
		}
	}
	lv, ok := c.lval(pe.Right)
	if !ok {
		return invalid()
	}
	return lv.address()
}

// incDec lowers ++ and --. A postfix form yields the old value through a
// temporary.
func (c *Compiler) incDec(target ast.Expression, op token.TokenType, prefix bool, tok token.Token) ir.Expr {
	lv, ok := c.lval(target)
	if !ok {
		return invalid()
	}
	t := lv.typ
	var step func(old ir.Expr) ir.Expr
	switch {
	case types.IsPointer(t):
		size := types.ElemSize(t)
		if op == token.DEC {
			size = -size
		}
		step = func(old ir.Expr) ir.Expr {
			return ir.NewBinary(ir.Add, old, ir.NewInt(size, types.I64), t)
		}
	case types.IsInteger(t) || types.IsFloat(t):
		bop := ir.Add
		if op == token.DEC {
			bop = ir.Sub
		}
		pt := promote(t)
		step = func(old ir.Expr) ir.Expr {
			return convert(ir.NewBinary(bop, convert(old, pt), convert(ir.NewInt(1, types.I32), pt), pt), t)
		}
	default:
		c.errorf(tok, "invalid operand to %s: %s", op, t)
		return invalid()
	}
	if prefix || c.fn == nil {
		c.store(lv, step(lv.read()), tok.Pos)
		return lv.read()
	}
	tmp := c.newTemp(t)
	c.emit(&ir.Assign{Dst: tmp, Src: lv.read(), Loc: tok.Pos})
	c.store(lv, step(lv.read()), tok.Pos)
	return ir.NewDRead(tmp, 0)
}

// binary lowers x op y with the usual arithmetic conversions and byte
// granular pointer arithmetic.
func (c *Compiler) binary(op ir.BinOp, x, y ir.Expr, tok token.Token) ir.Expr {
	xt, yt := x.Type(), y.Type()
	if !types.IsScalar(xt) || !types.IsScalar(yt) {
		c.errorf(tok, "invalid operands to %s: %s and %s", op, xt, yt)
		return invalid()
	}
	xp, yp := types.IsPointer(xt), types.IsPointer(yt)
	switch {
	case op.IsComparison():
		switch {
		case xp && yp:
			return ir.NewBinary(op, x, convert(y, xt), types.I32)
		case xp:
			return ir.NewBinary(op, x, c.pointerOperand(y, xt, tok), types.I32)
		case yp:
			return ir.NewBinary(op, c.pointerOperand(x, yt, tok), y, types.I32)
		}
		t := arith(xt, yt)
		return foldConst(ir.NewBinary(op, convert(x, t), convert(y, t), types.I32))
	case op == ir.Add && xp && types.IsInteger(yt):
		return ir.NewBinary(ir.Add, x, scale(y, types.ElemSize(xt)), xt)
	case op == ir.Add && yp && types.IsInteger(xt):
		return ir.NewBinary(ir.Add, y, scale(x, types.ElemSize(yt)), yt)
	case op == ir.Sub && xp && types.IsInteger(yt):
		return ir.NewBinary(ir.Sub, x, scale(y, types.ElemSize(xt)), xt)
	case op == ir.Sub && xp && yp:
		diff := ir.NewBinary(ir.Sub, convert(x, types.I64), convert(y, types.I64), types.I64)
		if size := types.ElemSize(xt); size != 1 {
			return ir.NewBinary(ir.Div, diff, ir.NewInt(size, types.I64), types.I64)
		}
		return diff
	case xp || yp:
		c.errorf(tok, "invalid operands to %s: %s and %s", op, xt, yt)
		return invalid()
	case op == ir.Shl || op == ir.Shr:
		t := promote(xt)
		if !types.IsInteger(t) || !types.IsInteger(yt) {
			c.errorf(tok, "invalid operands to %s: %s and %s", op, xt, yt)
			return invalid()
		}
		return foldConst(ir.NewBinary(op, convert(x, t), convert(y, t), t))
	}
	t := arith(xt, yt)
	if types.IsFloat(t) && op != ir.Add && op != ir.Sub && op != ir.Mul && op != ir.Div {
		c.errorf(tok, "invalid operands to %s: %s and %s", op, xt, yt)
		return invalid()
	}
	return foldConst(ir.NewBinary(op, convert(x, t), convert(y, t), t))
}

// pointerOperand converts the integer side of a pointer comparison, which
// must be a null constant.
func (c *Compiler) pointerOperand(e ir.Expr, t types.Type, tok token.Token) ir.Expr {
	if !ir.IsNull(e) {
		c.Diag.Warnf(tok.Pos, diag.CodeSemantic, "comparison between pointer and integer")
	}
	return convert(e, t)
}

// logical lowers && and ||. A right operand with side effects or loads is
// evaluated only when needed.
func (c *Compiler) logical(ie *ast.InfixExpression) ir.Expr {
	op := ir.LAnd
	if ie.Operator == token.LOR {
		op = ir.LOr
	}
	l := c.scalarTruth(c.expr(ie.Left), ie.Token)
	var r ir.Expr
	rs := c.collect(func() { r = c.scalarTruth(c.expr(ie.Right), ie.Token) })
	if len(rs) == 0 && !hasLoad(r) {
		return foldConst(ir.NewBinary(op, l, r, types.I32))
	}
	if c.fn == nil {
		c.errorf(ie.Token, "expression is not a constant")
		return invalid()
	}
	tmp := c.newTemp(types.I32)
	c.emit(&ir.Assign{Dst: tmp, Src: l, Loc: ie.Token.Pos})
	cond := ir.Expr(ir.NewBinary(ir.Ne, ir.NewDRead(tmp, 0), ir.NewInt(0, types.I32), types.I32))
	if op == ir.LOr {
		cond = negate(cond)
	}
	then := append(rs, &ir.Assign{Dst: tmp, Src: r, Loc: ie.Token.Pos})
	c.emit(&ir.If{Cond: cond, Then: then, Loc: ie.Token.Pos})
	return ir.NewDRead(tmp, 0)
}

func (c *Compiler) scalarTruth(e ir.Expr, tok token.Token) ir.Expr {
	if !types.IsScalar(e.Type()) {
		c.errorf(tok, "scalar required, got %s", e.Type())
		return invalid()
	}
	return truth(e)
}

// hasLoad reports whether evaluating e reads memory through a pointer.
func hasLoad(e ir.Expr) bool {
	return ir.Contains(e, func(x ir.Expr) bool { return x.Kind() == ir.KindIRead })
}

func (c *Compiler) assign(ae *ast.AssignExpression) ir.Expr {
	lv, ok := c.lval(ae.Left)
	if !ok {
		return invalid()
	}
	if lv.typ.Kind() == types.ArrayKind {
		c.errorf(ae.Token, "assignment to array")
		return invalid()
	}
	var src ir.Expr
	if ae.Operator == token.ASSIGN {
		src = c.expr(ae.Right)
	} else {
		src = c.binary(binOps[ae.Operator], lv.read(), c.expr(ae.Right), ae.Token)
	}
	src = c.convertAssign(src, lv.typ, ae.Token)
	c.store(lv, src, ae.Token.Pos)
	return lv.read()
}

// store writes src to lv, running the nonnull and boundary hooks first. The
// pair update of a pointer store is emitted before the store itself since
// the store may overwrite a value src reads.
func (c *Compiler) store(lv lvalue, src ir.Expr, loc token.Pos) {
	dst := lv.read()
	if c.checking() {
		fc := c.fc
		fc.CheckNonnullStore(c.out, dst, src, loc)
		c.Enc.CheckFuncPtrAssign(lv.typ, src, loc)
		fc.CheckAssignRHS(c.out, src, loc)
		dstLen := fc.DeclaredLen(dst)
		fc.CheckDeclaredAssign(c.out, src, dstLen, loc)
		c.emit(fc.Assign(dst, src, dstLen, loc)...)
	}
	if lv.v != nil {
		c.emit(&ir.Assign{Dst: lv.v, FieldID: lv.fieldID, Src: src, Loc: loc})
		if c.checking() {
			c.fc.NoteStore(lv.v, lv.fieldID, loc)
		}
		return
	}
	c.emit(&ir.IAssign{Addr: lv.addr, FieldID: lv.fieldID, Src: src, Loc: loc})
}

// convertAssign applies the implicit conversion of an assignment to type t.
func (c *Compiler) convertAssign(src ir.Expr, t types.Type, tok token.Token) ir.Expr {
	st := src.Type()
	switch {
	case st.Kind() == types.VoidKind:
		c.errorf(tok, "void value not ignored as it ought to be")
		return zeroOf(t)
	case types.Equal(st, t):
		return src
	case types.IsPointer(t) && types.IsFloat(st), types.IsFloat(t) && types.IsPointer(st):
		c.errorf(tok, "cannot convert %s to %s", st, t)
		return zeroOf(t)
	case types.IsPointer(t) && types.IsInteger(st) && !ir.IsNull(src):
		c.Diag.Warnf(tok.Pos, diag.CodeSemantic, "conversion from %s to %s without a cast", st, t)
	case types.IsScalar(t) && types.IsScalar(st):
	default:
		c.errorf(tok, "cannot convert %s to %s", st, t)
		return zeroOf(t)
	}
	return convert(src, t)
}

func zeroOf(t types.Type) ir.Expr {
	if types.IsScalar(t) {
		return zero(t)
	}
	return invalid()
}

func (c *Compiler) call(ce *ast.CallExpression) ir.Expr {
	var callee ir.Expr
	if id, ok := ce.Function.(*ast.Identifier); ok {
		sym, found := c.lookup(id.Value)
		switch {
		case !found:
			c.errorf(id.Token, "implicit declaration of function %s", id.Value)
			return invalid()
		case sym.Func != nil:
			callee = &ir.AddrOfFunc{Name: sym.Func.Name, Sig: sym.Func.Sig}
		default:
			callee = c.expr(id)
		}
	} else {
		callee = c.expr(ce.Function)
	}
	if !types.IsFuncPointer(callee.Type()) {
		c.errorf(ce.Token, "called object of type %s is not a function", callee.Type())
		return invalid()
	}
	sig := types.Pointee(callee.Type()).(*types.Func)
	if len(ce.Arguments) < len(sig.Params) || (len(ce.Arguments) > len(sig.Params) && !sig.Variadic) {
		c.errorf(ce.Token, "call to %s expects %d arguments, got %d", callee, len(sig.Params), len(ce.Arguments))
		return invalid()
	}
	args := make([]ir.Expr, len(ce.Arguments))
	for i, a := range ce.Arguments {
		v := c.expr(a)
		if i < len(sig.Params) {
			v = c.convertAssign(v, sig.Params[i], a.Tok())
			if c.checking() {
				c.Enc.CheckFuncPtrAssign(sig.Params[i], v, a.Tok().Pos)
			}
		} else {
			v = defaultPromote(v)
		}
		args[i] = v
	}
	if c.fn == nil {
		c.errorf(ce.Token, "function call in a constant expression")
		return invalid()
	}
	call := &ir.Call{Callee: callee, Sig: sig, Args: args, Loc: ce.Token.Pos}
	if sig.Ret.Kind() != types.VoidKind {
		call.Result = c.newTemp(sig.Ret)
	}
	if c.checking() {
		c.fc.CheckCall(c.out, call)
	}
	c.emit(call)
	if c.checking() {
		c.emit(c.fc.BindCallResult(call)...)
	}
	if call.Result == nil {
		return voidValue()
	}
	return ir.NewDRead(call.Result, 0)
}

func defaultPromote(e ir.Expr) ir.Expr {
	switch t := e.Type().(type) {
	case types.Float:
		if t.Width < 64 {
			return convert(e, types.F64)
		}
	case types.Int:
		return convert(e, promote(t))
	}
	return e
}

func (c *Compiler) cast(ce *ast.CastExpression) ir.Expr {
	t := c.resolveType(ce.Type)
	v := c.expr(ce.Right)
	if t == nil {
		return invalid()
	}
	if t.Kind() == types.VoidKind {
		if hasLoad(v) && c.fn != nil {
			c.emit(&ir.Eval{X: v, Loc: ce.Token.Pos})
		}
		return voidValue()
	}
	if !types.IsScalar(t) || !types.IsScalar(v.Type()) {
		c.errorf(ce.Token, "cannot cast %s to %s", v.Type(), t)
		return invalid()
	}
	if types.IsFloat(t) && types.IsPointer(v.Type()) || types.IsPointer(t) && types.IsFloat(v.Type()) {
		c.errorf(ce.Token, "cannot cast %s to %s", v.Type(), t)
		return invalid()
	}
	return convert(v, t)
}

// sizeof never evaluates its operand.
func (c *Compiler) sizeof(se *ast.SizeofExpression) ir.Expr {
	if se.Type != nil {
		t := c.resolveType(se.Type)
		if t == nil {
			return invalid()
		}
		return c.sizeOf(se.Token, t)
	}
	if s, ok := se.Expr.(*ast.StringLiteral); ok {
		return ir.NewInt(int64(len(s.Value))+1, types.SizeT)
	}
	var t types.Type
	c.noChecks++
	c.collect(func() {
		if c.isLvalueForm(se.Expr) {
			if lv, ok := c.lval(se.Expr); ok {
				t = lv.typ
			}
			return
		}
		t = c.expr(se.Expr).Type()
	})
	c.noChecks--
	if t == nil {
		return invalid()
	}
	return c.sizeOf(se.Token, t)
}
