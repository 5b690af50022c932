package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/safec/types"
)

func pair() *types.Struct {
	return &types.Struct{Name: "pair", Complete: true, Fields: []*types.Field{
		{Name: "n", Type: types.I32},
		{Name: "p", Type: types.Ptr{Elem: types.Char}},
	}}
}

func TestHashStructural(t *testing.T) {
	p := NewVar("p", types.Ptr{Elem: types.I32})
	n := NewVar("n", types.I64)

	build := func() Expr {
		return NewBinary(Add, NewDRead(p, 0), NewBinary(Mul, NewDRead(n, 0), NewInt(4, types.I64), types.I64), p.Type)
	}
	a, b := build(), build()
	assert.NotSame(t, a, b)
	assert.Equal(t, a.Hash(), b.Hash(), "separately built expressions hash equal")

	c := NewBinary(Add, NewDRead(p, 0), NewBinary(Mul, NewDRead(n, 0), NewInt(8, types.I64), types.I64), p.Type)
	assert.NotEqual(t, a.Hash(), c.Hash())

	// same name, different storage class
	g := NewVar("p", p.Type)
	g.Global = true
	assert.NotEqual(t, NewDRead(p, 0).Hash(), NewDRead(g, 0).Hash())

	// field ids take part in the hash
	s := NewVar("s", pair())
	assert.NotEqual(t, NewDRead(s, 1).Hash(), NewDRead(s, 2).Hash())

	assert.NotEqual(t, NewInt(1, types.I32).Hash(), NewInt(1, types.I64).Hash())
	assert.Equal(t, (&ParamRef{Index: 1, Typ: types.I32}).Hash(), (&ParamRef{Index: 1, Typ: types.I32}).Hash())
	assert.NotEqual(t, (&ParamRef{Index: 1, Typ: types.I32}).Hash(), (&FieldRef{FieldID: 1, Typ: types.I32}).Hash())
}

func TestHashNormalizesNames(t *testing.T) {
	// "é" precomposed and decomposed
	a := NewVar("caf\u00e9", types.I32)
	b := NewVar("cafe\u0301", types.I32)
	assert.Equal(t, NewDRead(a, 0).Hash(), NewDRead(b, 0).Hash())
}

func TestClone(t *testing.T) {
	p := NewVar("p", types.Ptr{Elem: types.I32})
	orig := NewIRead(NewBinary(Add, NewDRead(p, 0), NewInt(4, types.I64), p.Type), 0)
	cp := orig.Clone().(*IRead)

	require.Equal(t, orig.Hash(), cp.Hash())
	require.NotSame(t, orig.Addr, cp.Addr)

	cp.Addr.(*Binary).Y.(*Const).Val = 8
	assert.Equal(t, int64(4), orig.Addr.(*Binary).Y.(*Const).Val, "clone must not share subtrees")
	assert.NotEqual(t, orig.Hash(), cp.Hash())
	assert.Same(t, p, cp.Addr.(*Binary).X.(*DRead).Var, "variables are shared, not copied")
}

func TestExprString(t *testing.T) {
	p := NewVar("p", types.Ptr{Elem: types.I32})
	s := NewVar("s", pair())
	q := NewVar("q", types.Ptr{Elem: pair()})

	tests := []struct {
		expr     Expr
		expected string
	}{
		{NewInt(-1, types.I64), "-1"},
		{Null(types.VoidPt), "null"},
		{NewInt(16, types.VoidPt), "0x10"},
		{&Const{FVal: 2.5, Typ: types.F64}, "2.5"},
		{NewDRead(s, 2), "s#2"},
		{NewAddrOf(p, 0), "&p"},
		{NewIRead(NewDRead(p, 0), 0), "*(p)"},
		{NewIRead(NewDRead(q, 0), 1), "(q)->#1"},
		{NewBinary(Sub, NewDRead(p, 0), NewInt(4, types.I64), p.Type), "(p - 4)"},
		{NewCvt(NewDRead(p, 0), types.U64), "cvt<" + types.U64.String() + ">(p)"},
		{&Unary{Op: Not, X: NewDRead(p, 0), Typ: types.I32}, "!p"},
		{&ArrayAddr{Base: NewDRead(p, 0), Index: NewInt(3, types.I64), Stride: 4, Typ: p.Type}, "array(p, 3, 4)"},
		{&ParamRef{Index: 2, Typ: types.I32}, "$param2"},
		{&FieldRef{FieldID: 1, Typ: types.I32}, "$field1"},
		{&Str{Value: "hi"}, `"hi"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.expr.String())
	}
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(Null(types.VoidPt)))
	assert.True(t, IsNull(NewInt(0, types.I32)))
	assert.True(t, IsNull(NewCvt(NewInt(0, types.I32), types.VoidPt)))
	assert.False(t, IsNull(NewInt(1, types.I32)))
	assert.False(t, IsNull(&Const{FVal: 0, Typ: types.F64}))
	assert.False(t, IsNull(NewDRead(NewVar("p", types.VoidPt), 0)))
}

func TestRewriteAndWalk(t *testing.T) {
	n := NewVar("n", types.I32)
	tmpl := NewBinary(Mul, &ParamRef{Index: 1, Typ: types.I32}, NewInt(4, types.I32), types.I32)
	require.True(t, IsTemplate(tmpl))

	got := Rewrite(tmpl, func(e Expr) (Expr, bool) {
		if pr, ok := e.(*ParamRef); ok && pr.Index == 1 {
			return NewDRead(n, 0), true
		}
		return nil, false
	})
	assert.Equal(t, "(n * 4)", got.String())
	assert.False(t, IsTemplate(got))
	assert.True(t, IsTemplate(tmpl), "rewrite leaves the template untouched")

	var kinds []ExprKind
	Walk(got, func(e Expr) bool {
		kinds = append(kinds, e.Kind())
		return true
	})
	assert.Equal(t, []ExprKind{KindBinary, KindDRead, KindConst}, kinds)

	kinds = nil
	Walk(got, func(e Expr) bool {
		kinds = append(kinds, e.Kind())
		return false
	})
	assert.Equal(t, []ExprKind{KindBinary}, kinds)
}

func TestMapStmts(t *testing.T) {
	x := NewVar("x", types.I32)
	inner := &Assign{Dst: x, Src: NewInt(1, types.I32)}
	loop := &While{Cond: NewDRead(x, 0), Body: []Stmt{inner}}
	body := []Stmt{loop, &Return{}}

	out := MapStmts(body, func(s Stmt) []Stmt {
		if a, ok := s.(*Assign); ok {
			return []Stmt{&NonnullAssert{Kind: AssignAssertNonnull, X: a.Src}, a}
		}
		return []Stmt{s}
	})
	require.Len(t, out, 2)
	require.Len(t, loop.Body, 2)

	var n int
	WalkStmts(out, func(Stmt) { n++ })
	assert.Equal(t, 4, n)
}

func TestModulePrinter(t *testing.T) {
	m := NewModule("t.c")
	st := pair()
	m.Structs = append(m.Structs, st)

	g := NewVar("gp", types.Ptr{Elem: types.I32})
	g.Global = true
	g.Attrs.Nonnull = true
	g.Init = Null(g.Type)
	m.Globals = append(m.Globals, g)

	sig := types.NewFunc(types.I32, []types.Type{types.Ptr{Elem: types.I32}}, false)
	p := NewVar("p", sig.Params[0])
	p.Param = true
	fn := &Func{Name: "get", Sig: sig, Params: []*Var{p}, Defined: true}
	fn.Sig.Attrs.Params[0].Nonnull = true
	lower := fn.AddLocal(NewVar(types.BoundaryPrefix+"p.lower", p.Type))
	fn.Entry = []Stmt{&Assign{Dst: lower, Src: NewDRead(p, 0)}}
	fn.Body = []Stmt{
		&Check{Op: CheckGE, X: NewDRead(p, 0), Bound: NewDRead(lower, 0), Kind: AssertGE},
		&If{Cond: NewDRead(p, 0), Then: []Stmt{&Return{Value: NewIRead(NewDRead(p, 0), 0)}}},
		&Return{Value: NewInt(0, types.I32)},
	}
	m.Funcs = append(m.Funcs, fn)

	out := m.String()
	assert.Contains(t, out, "global gp "+g.Type.String()+" [nonnull] = null\n")
	assert.Contains(t, out, "func get(p "+p.Type.String()+" [nonnull]) "+types.I32.String()+" {\n")
	assert.Contains(t, out, "  var _boundary.p.lower ")
	assert.Contains(t, out, "  _boundary.p.lower = p\n")
	assert.Contains(t, out, "  check.ge(p, _boundary.p.lower) assertge\n")
	assert.Contains(t, out, "  if p {\n    return *(p)\n  }\n")

	assert.Same(t, fn, m.Func("get"))
	assert.Nil(t, m.Func("put"))
	assert.Same(t, g, m.Global("gp"))
	assert.Same(t, p, fn.Local("p"))
	assert.True(t, lower.IsBoundary())
	assert.False(t, p.IsBoundary())
}

func TestStmtString(t *testing.T) {
	p := NewVar("p", types.Ptr{Elem: types.Char})
	x := NewVar("x", types.I32)
	tests := []struct {
		stmt     Stmt
		expected string
	}{
		{&BoundaryAssert{Kind: CallAssertLE, Cand: NewDRead(p, 0), Base: NewDRead(p, 0)}, "callassertle(p, p)"},
		{&NonnullAssert{Kind: CallAssertNonnull, X: NewDRead(p, 0)}, "callassertnonnull(p)"},
		{&IAssign{Addr: NewDRead(p, 0), Src: NewInt(0, types.Char)}, "*(p) = 0"},
		{&Call{Result: x, Callee: &AddrOfFunc{Name: "f", Sig: types.NewFunc(types.I32, nil, false)}, Args: []Expr{NewDRead(p, 0)}}, "x = call &f(p)"},
		{&While{Body: []Stmt{&Break{}}}, "while 1 {\n  break\n}"},
		{&While{Cond: NewDRead(x, 0), DoWhile: true, Body: []Stmt{&Continue{}}}, "do {\n  continue\n} while x"},
		{&Eval{X: NewIRead(NewDRead(p, 0), 0)}, "eval *(p)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, StmtString(tt.stmt))
	}
}
