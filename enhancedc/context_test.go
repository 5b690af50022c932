package enhancedc

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/config"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func boundaryOpts() config.Options {
	opts := config.Default()
	opts.NonnullCheck = true
	opts.BoundaryCheck = true
	return opts
}

func newModuleContext(opts config.Options) *ModuleContext {
	return NewModuleContext(opts, diag.NewReporter(), ir.NewModule("t.c"), nil)
}

// dupTarget describes
//
//	char *dup(char *src, int n);
func dupTarget() *FuncTarget {
	sig := types.NewFunc(types.Ptr{Elem: types.Char}, []types.Type{types.Ptr{Elem: types.Char}, types.I32}, false)
	return &FuncTarget{
		Name:   "dup",
		Sig:    sig,
		Params: []*ast.ParamDecl{{Name: "src"}, {Name: "n"}},
	}
}

func indexInfo(idx int) *ast.BoundaryInfo {
	bi := ast.NewBoundaryInfo(token.Pos{File: "t.c", Line: 1, Column: 1})
	bi.LenParamIdx = idx
	return bi
}

func TestResolveIsCached(t *testing.T) {
	mc := newModuleContext(boundaryOpts())
	ft := dupTarget()
	owner := &LenOwner{Kind: OwnerFunc, Name: ft.Name, Sig: ft.Sig, Params: ft.Params}

	first := mc.Resolve(owner, slotName(0), ft.Sig.Params[0], indexInfo(1), true)
	require.NotNil(t, first)
	require.Equal(t, 1, mc.Lens.Len())

	second := mc.Resolve(owner, slotName(0), ft.Sig.Params[0], indexInfo(1), true)
	require.NotNil(t, second)
	assert.Equal(t, first.Hash(), second.Hash())
	assert.Equal(t, 1, mc.Lens.Len(), "resolving again must not add a cache entry")

	assert.Equal(t, "cvt<u64>($param1)", first.String())
	assert.True(t, ft.Sig.Attrs.Params[1].FinalBoundarySize, "length source is marked")
}

func TestResolveScalesElementCounts(t *testing.T) {
	mc := newModuleContext(boundaryOpts())
	sig := types.NewFunc(types.VoidT, []types.Type{types.Ptr{Elem: types.I64}, types.I32}, false)
	owner := &LenOwner{Kind: OwnerFunc, Name: "f", Sig: sig, Params: []*ast.ParamDecl{{Name: "p"}, {Name: "n"}}}

	elems := mc.Resolve(owner, "param0", sig.Params[0], indexInfo(1), true)
	assert.Equal(t, "(cvt<u64>($param1) * 8)", elems.String())

	bytes := mc.Resolve(owner, "bytes", sig.Params[0], indexInfo(1), false)
	assert.Equal(t, "cvt<u64>($param1)", bytes.String())
}

func TestResolveErrors(t *testing.T) {
	mc := newModuleContext(boundaryOpts())
	ft := dupTarget()
	owner := &LenOwner{Kind: OwnerFunc, Name: ft.Name, Sig: ft.Sig, Params: ft.Params}

	assert.Nil(t, mc.Resolve(owner, "param1", ft.Sig.Params[1], indexInfo(0), true))
	assert.Len(t, mc.Diag.ByCode(diag.CodeAttrTarget), 1)

	assert.Nil(t, mc.Resolve(owner, "param0", ft.Sig.Params[0], indexInfo(0), true))
	assert.Len(t, mc.Diag.ByCode(diag.CodeLenType), 1, "a pointer is not a length")

	bi := ast.NewBoundaryInfo(token.Pos{Line: 2})
	bi.LenExpr = &ast.StringLiteral{Value: "len"}
	assert.Nil(t, mc.Resolve(owner, "param0", ft.Sig.Params[0], bi, true))
	assert.Len(t, mc.Diag.ByCode(diag.CodeLenName), 1)

	v := ir.NewVar("buf", types.Ptr{Elem: types.Char})
	vOwner := &LenOwner{Kind: OwnerVar, Name: "buf", Var: v}
	assert.Nil(t, mc.Resolve(vOwner, "buf", v.Type, bi, true))
	assert.Len(t, mc.Diag.ByCode(diag.CodeLenStringVar), 1, "string names are rejected on variables")
}

func TestReturnSlotBoundary(t *testing.T) {
	mc := newModuleContext(boundaryOpts())
	ft := dupTarget()

	require.True(t, mc.ProcessBoundaryLenExprInFunc(ft, types.ReturnIndex, indexInfo(1)))
	ret := ft.Sig.Attrs.Ret
	assert.True(t, ret.HasBoundary)
	assert.Equal(t, 1, ret.LenParamIdx)
	for i, p := range ft.Sig.Attrs.Params {
		assert.False(t, p.HasBoundary, "param %d", i)
	}
	tmpl, ok := mc.Lens.Get(ret.LenHash)
	require.True(t, ok)
	assert.Equal(t, "cvt<u64>($param1)", tmpl.String())

	n := ir.NewVar("len", types.I32)
	got := RealLenExprInFunc(tmpl, []ir.Expr{ir.Null(ft.Sig.Params[0]), ir.NewDRead(n, 0)})
	assert.Equal(t, "cvt<u64>(len)", got.String())
	got = RealLenExprInFunc(tmpl, []ir.Expr{ir.Null(ft.Sig.Params[0]), ir.NewInt(5, types.I32)})
	assert.Equal(t, "5", got.String())
}

func TestRealLenExprInField(t *testing.T) {
	tmpl := ir.NewBinary(ir.Mul, ir.NewCvt(&ir.FieldRef{FieldID: 1, Typ: types.I32}, types.SizeT), ir.NewInt(4, types.SizeT), types.SizeT)
	q := ir.NewVar("q", types.Ptr{Elem: &types.Struct{Name: "s", Complete: true, Fields: []*types.Field{
		{Name: "n", Type: types.I32},
		{Name: "p", Type: types.Ptr{Elem: types.I32}},
	}}})
	got := RealLenExprInField(tmpl, func(id int) ir.Expr { return ir.NewIRead(ir.NewDRead(q, 0), id) })
	assert.Equal(t, "(cvt<u64>((q)->#1) * 4)", got.String())
}

func newFuncContext(mc *ModuleContext) *FuncContext {
	fn := &ir.Func{Name: "f", Sig: types.NewFunc(types.VoidT, nil, false), Defined: true}
	mc.Mod.Funcs = append(mc.Mod.Funcs, fn)
	return mc.NewFuncContext(fn)
}

func TestGetOrCreateUniqueness(t *testing.T) {
	mc := newModuleContext(boundaryOpts())
	fc := newFuncContext(mc)
	p := ir.NewVar("p", types.Ptr{Elem: types.I32})
	q := ir.NewVar("q", types.Ptr{Elem: types.I32})

	a := fc.GetOrCreate(ir.NewDRead(p, 0))
	b := fc.GetOrCreate(ir.NewDRead(p, 0))
	assert.Same(t, a.Lower, b.Lower)
	assert.Same(t, a.Upper, b.Upper)

	c := fc.GetOrCreate(ir.NewDRead(q, 0))
	assert.NotSame(t, a.Lower, c.Lower)

	deref := fc.GetOrCreate(ir.NewIRead(ir.NewAddrOf(p, 0), 0))
	assert.NotSame(t, a.Lower, deref.Lower)
	assert.NotEqual(t, a.Lower.Name, deref.Lower.Name)

	assert.Len(t, fc.Fn.Locals, 6)
	for _, v := range fc.Fn.Locals {
		assert.True(t, v.IsBoundary(), v.Name)
	}

	fc.Finish()
	require.Len(t, fc.Fn.Entry, 6)
	first := fc.Fn.Entry[0].(*ir.Assign)
	assert.Same(t, a.Lower, first.Dst)
	assert.Equal(t, "0xffffffffffffffff", first.Src.String())
	assert.Equal(t, "null", fc.Fn.Entry[1].(*ir.Assign).Src.String())
}

func TestGlobalPairs(t *testing.T) {
	mc := newModuleContext(boundaryOpts())
	fc := newFuncContext(mc)
	g := ir.NewVar("gp", types.Ptr{Elem: types.Char})
	g.Global = true

	pair := fc.GetOrCreate(ir.NewDRead(g, 0))
	assert.True(t, pair.Lower.Global)
	assert.Equal(t, "0xffffffffffffffff", pair.Lower.Init.String())
	assert.Equal(t, "null", pair.Upper.Init.String())
	assert.Empty(t, fc.Fn.Locals)
	assert.Len(t, mc.Mod.Globals, 2)

	other := newFuncContext(mc)
	again, ok := other.Lookup(ir.NewDRead(g, 0))
	require.True(t, ok, "global pairs are visible from every function")
	assert.Same(t, pair.Lower, again.Lower)
}

func TestAssignSelfIsNoop(t *testing.T) {
	mc := newModuleContext(boundaryOpts())
	fc := newFuncContext(mc)
	p := ir.NewVar("p", types.Ptr{Elem: types.I32})
	read := ir.NewDRead(p, 0)

	assert.Empty(t, fc.Assign(read, read, nil, token.Pos{}))
	inc := ir.NewBinary(ir.Add, ir.NewDRead(p, 0), ir.NewInt(4, types.I64), p.Type)
	assert.Empty(t, fc.Assign(ir.NewDRead(p, 0), inc, nil, token.Pos{}))
	assert.Empty(t, fc.Fn.Locals, "no pair is created")
}

func TestAssignFromArray(t *testing.T) {
	mc := newModuleContext(boundaryOpts())
	fc := newFuncContext(mc)
	buf := fc.Fn.AddLocal(ir.NewVar("buf", types.Array{Elem: types.Char, Len: 10}))
	p := fc.Fn.AddLocal(ir.NewVar("p", types.Ptr{Elem: types.Char}))

	stmts := fc.Assign(ir.NewDRead(p, 0), ir.NewAddrOf(buf, 0), nil, token.Pos{})
	require.Len(t, stmts, 2)
	assert.Equal(t, "&buf", stmts[0].(*ir.Assign).Src.String())
	assert.Equal(t, "(&buf + 10)", stmts[1].(*ir.Assign).Src.String())

	// a second pointer copies the bounds of the first
	q := fc.Fn.AddLocal(ir.NewVar("q", types.Ptr{Elem: types.Char}))
	src := ir.NewBinary(ir.Add, ir.NewDRead(p, 0), ir.NewInt(2, types.I64), p.Type)
	stmts = fc.Assign(ir.NewDRead(q, 0), src, nil, token.Pos{})
	require.Len(t, stmts, 2)
	pp, _ := fc.Lookup(ir.NewDRead(p, 0))
	assert.Equal(t, pp.Lower.Name, stmts[0].(*ir.Assign).Src.String())
	assert.Equal(t, pp.Upper.Name, stmts[1].(*ir.Assign).Src.String())
}

func TestAssignUntracked(t *testing.T) {
	mc := newModuleContext(boundaryOpts())
	fc := newFuncContext(mc)
	p := ir.NewVar("p", types.Ptr{Elem: types.Char})
	q := ir.NewVar("q", types.Ptr{Elem: types.Char})
	assert.Empty(t, fc.Assign(ir.NewDRead(p, 0), ir.NewDRead(q, 0), nil, token.Pos{}))

	mc.Opts.BoundaryCheck = false
	buf := ir.NewVar("buf", types.Array{Elem: types.Char, Len: 4})
	assert.Empty(t, fc.Assign(ir.NewDRead(p, 0), ir.NewAddrOf(buf, 0), nil, token.Pos{}), "boundary checking off")
}

func TestFindBase(t *testing.T) {
	p := ir.NewVar("p", types.Ptr{Elem: types.I32})
	x := ir.NewVar("x", types.I32)
	arr := ir.NewVar("arr", types.Array{Elem: types.I32, Len: 3})

	sum := ir.NewBinary(ir.Add, ir.NewDRead(p, 0), ir.NewInt(8, types.I64), p.Type)
	assert.Equal(t, "p", FindBase(sum, false).String())
	assert.True(t, IsComputed(sum))
	assert.False(t, IsComputed(ir.NewDRead(p, 0)))

	elem := &ir.ArrayAddr{Base: ir.NewAddrOf(arr, 0), Index: ir.NewDRead(x, 0), Stride: 4, Len: 3, Typ: p.Type}
	assert.Equal(t, "&arr", FindBase(elem, false).String())

	assert.Nil(t, FindBase(ir.NewAddrOf(x, 0), false))
	assert.Equal(t, "&x", FindBase(ir.NewAddrOf(x, 0), true).String())
	assert.Nil(t, FindBase(ir.NewBinary(ir.Lt, ir.NewDRead(p, 0), ir.NewDRead(p, 0), types.I32), true))
	assert.Nil(t, FindBase(ir.NewDRead(x, 0), true))
}

func TestNeverNull(t *testing.T) {
	x := ir.NewVar("x", types.I32)
	p := ir.NewVar("p", types.Ptr{Elem: types.I32})
	assert.True(t, NeverNull(ir.NewAddrOf(x, 0)))
	assert.True(t, NeverNull(ir.NewCvt(ir.NewAddrOf(x, 0), types.VoidPt)))
	assert.False(t, NeverNull(ir.NewDRead(p, 0)))
}
