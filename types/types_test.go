package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nested builds
//
//	struct inner { int a; char *b; };
//	struct outer { char c; struct inner in; long d; };
func nested() (*Struct, *Struct) {
	inner := &Struct{Name: "inner", Complete: true, Fields: []*Field{
		{Name: "a", Type: I32},
		{Name: "b", Type: Ptr{Elem: Char}},
	}}
	outer := &Struct{Name: "outer", Complete: true, Fields: []*Field{
		{Name: "c", Type: Char},
		{Name: "in", Type: inner},
		{Name: "d", Type: I64},
	}}
	return inner, outer
}

func TestFlattenedFieldIDs(t *testing.T) {
	inner, outer := nested()
	require.Equal(t, 2, inner.NumFieldIDs())
	require.Equal(t, 5, outer.NumFieldIDs())

	tests := []struct {
		name string
		id   int
	}{
		{"c", 1},
		{"in", 2},
		{"d", 5},
	}
	for _, tt := range tests {
		id, f, ok := outer.FieldID(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.id, id, tt.name)
		assert.Equal(t, tt.name, f.Name)
	}
	_, _, ok := outer.FieldID("a")
	assert.False(t, ok, "nested members are not direct members")

	// id 4 is in.b: owned by inner, whose ids start after id 2
	owner, base, f, ok := outer.FieldByID(4)
	require.True(t, ok)
	assert.Same(t, inner, owner)
	assert.Equal(t, 2, base)
	assert.Equal(t, "b", f.Name)

	owner, base, f, ok = outer.FieldByID(5)
	require.True(t, ok)
	assert.Same(t, outer, owner)
	assert.Equal(t, 0, base)
	assert.Equal(t, "d", f.Name)

	_, _, _, ok = outer.FieldByID(6)
	assert.False(t, ok)

	assert.Equal(t, 2, outer.FieldIndex(5))
	assert.Equal(t, -1, outer.FieldIndex(3))
	assert.True(t, Equal(Ptr{Elem: Char}, outer.FieldType(4)))
	assert.Same(t, outer, outer.FieldType(0))
}

func TestLayout(t *testing.T) {
	inner, outer := nested()
	assert.Equal(t, int64(16), inner.Size())
	assert.Equal(t, int64(8), Align(inner))
	assert.Equal(t, int64(32), outer.Size())

	assert.Equal(t, int64(0), outer.Offset(1))
	assert.Equal(t, int64(8), outer.Offset(2))
	assert.Equal(t, int64(8), outer.Offset(3))
	assert.Equal(t, int64(16), outer.Offset(4))
	assert.Equal(t, int64(24), outer.Offset(5))
	assert.Panics(t, func() { outer.Offset(9) })

	arr := Array{Elem: I32, Len: 10}
	assert.Equal(t, int64(40), arr.Size())
	assert.Equal(t, int64(4), Align(arr))
}

func TestPredicates(t *testing.T) {
	fn := NewFunc(I32, []Type{Ptr{Elem: Char}}, false)
	fp := Ptr{Elem: fn}

	assert.True(t, IsPointer(fp))
	assert.True(t, IsFuncPointer(fp))
	assert.False(t, IsFuncPointer(Ptr{Elem: I32}))
	assert.True(t, IsScalar(F64))
	assert.False(t, IsScalar(Array{Elem: I32, Len: 2}))
	assert.Equal(t, int64(1), ElemSize(VoidPt))
	assert.Equal(t, int64(8), ElemSize(Ptr{Elem: I64}))
	assert.Panics(t, func() { Pointee(I32) })
}

func TestEqual(t *testing.T) {
	a := NewFunc(VoidT, []Type{Ptr{Elem: I32}, I64}, false)
	b := NewFunc(VoidT, []Type{Ptr{Elem: I32}, I64}, false)
	c := NewFunc(VoidT, []Type{Ptr{Elem: I32}, I64}, true)

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.True(t, Equal(Array{Elem: Char, Len: 4}, Array{Elem: Char, Len: 4}))
	assert.False(t, Equal(Array{Elem: Char, Len: 4}, Array{Elem: Char, Len: 5}))
	assert.False(t, Equal(I32, U32))

	s1 := &Struct{Name: "s"}
	s2 := &Struct{Name: "s"}
	assert.True(t, Equal(s1, s1))
	assert.False(t, Equal(s1, s2), "structs compare by identity")
}

func TestFuncAttrsSlots(t *testing.T) {
	fa := NewFuncAttrs(2)
	require.Equal(t, -1, fa.Params[0].LenParamIdx)

	fa.Slot(ReturnIndex).Nonnull = true
	fa.Slot(1).HasBoundary = true
	assert.True(t, fa.Ret.Nonnull)
	assert.True(t, fa.Params[1].HasBoundary)
	assert.Panics(t, func() { fa.Slot(2) })
}

func TestMismatch(t *testing.T) {
	dst := NewFuncAttrs(2)
	src := NewFuncAttrs(2)
	dst.Params[0].Nonnull = true
	src.Params[1].HasBoundary = true
	src.Params[1].LenHash = 7
	src.Ret.Nonnull = true

	params, ret := Mismatch(dst, src, true, true)
	assert.Equal(t, []int{0, 1}, params)
	assert.True(t, ret)

	params, ret = Mismatch(dst, src, false, true)
	assert.Equal(t, []int{1}, params)
	assert.False(t, ret)

	params, ret = Mismatch(dst, src, false, false)
	assert.Empty(t, params)
	assert.False(t, ret)

	dst.Params[1] = src.Params[1]
	assert.True(t, SameContract(dst.Params[1], src.Params[1], true, true))
	dst.Params[1].IsBytedLen = true
	assert.False(t, SameContract(dst.Params[1], src.Params[1], true, true))
}

func TestReservedNames(t *testing.T) {
	assert.True(t, IsReservedName(CheckFailFunc))
	assert.True(t, IsReservedName(BoundaryPrefix+"p.0.deadbeef.lower"))
	assert.False(t, IsReservedName("main"))
}

func TestAttrsString(t *testing.T) {
	a := NewAttrs()
	assert.Equal(t, "-", a.String())
	a.Nonnull = true
	a.HasBoundary = true
	a.IsBytedLen = true
	a.LenHash = 0xab
	assert.Equal(t, "nonnull byte_count#00000000000000ab", a.String())
}
