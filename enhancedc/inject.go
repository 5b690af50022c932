package enhancedc

import (
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// FindBase returns the innermost traceable pointer that e is computed from:
// a read of a data pointer or the address of an array. With includeAddrOf
// the address of a scalar object also counts. It returns nil when e is not
// derived from such a pointer.
func FindBase(e ir.Expr, includeAddrOf bool) ir.Expr {
	switch x := e.(type) {
	case *ir.Binary:
		if x.Op.IsComparison() {
			return nil
		}
		if b := FindBase(x.X, includeAddrOf); b != nil {
			return b
		}
		return FindBase(x.Y, includeAddrOf)
	case *ir.Unary:
		return FindBase(x.X, includeAddrOf)
	case *ir.ArrayAddr:
		return FindBase(x.Base, includeAddrOf)
	case *ir.AddrOf:
		if x.Target().Kind() == types.ArrayKind || includeAddrOf {
			return x
		}
	case *ir.IAddrOf:
		if x.Target().Kind() == types.ArrayKind || includeAddrOf {
			return x
		}
	case *ir.DRead, *ir.IRead:
		t := e.Type()
		if types.IsPointer(t) && !types.IsFuncPointer(t) {
			return e
		}
	}
	return nil
}

// IsComputed reports whether the pointer e is the result of address
// arithmetic rather than a plain read or address-of.
func IsComputed(e ir.Expr) bool {
	switch x := e.(type) {
	case *ir.Binary:
		return types.IsPointer(x.Typ) && (x.Op == ir.Add || x.Op == ir.Sub)
	case *ir.Unary:
		return IsComputed(x.X)
	case *ir.ArrayAddr:
		return true
	}
	return false
}

func (fc *FuncContext) boundaryAssert(kind ir.AssertKind, cand, base ir.Expr, loc token.Pos) *ir.BoundaryAssert {
	return &ir.BoundaryAssert{Kind: kind, Cand: cand, Base: base, Safe: fc.InSafe(), Loc: loc}
}

// rangeCheck appends the lower and upper checks of cand against base once
// per statement.
func (fc *FuncContext) rangeCheck(out *[]ir.Stmt, cand, base ir.Expr, loc token.Pos) {
	h := cand.Hash()
	if fc.checked[h] {
		return
	}
	fc.checked[h] = true
	*out = append(*out,
		fc.boundaryAssert(ir.AssertGE, cand, base, loc),
		fc.boundaryAssert(ir.AssertLT, cand, base, loc),
	)
}

// CheckSubscript guards the element address a. Range checks of an outer
// dimension of the same access that directly precede it are peeled.
func (fc *FuncContext) CheckSubscript(out *[]ir.Stmt, a *ir.ArrayAddr, loc token.Pos) {
	if !fc.BoundaryOn() {
		return
	}
	if c, ok := a.Index.(*ir.Const); ok && a.Len > 0 {
		if c.Val < 0 || c.Val >= a.Len {
			fc.Mod.Diag.Errorf(loc, diag.CodeStaticIndex, "index %d is out of range for array of length %d", c.Val, a.Len)
		}
		return
	}
	base := FindBase(a, false)
	if base == nil {
		return
	}
	if fc.checked[a.Hash()] {
		return
	}
	fc.peel(out, a, base.Hash())
	fc.rangeCheck(out, a, base, loc)
}

// peel drops the range checks on base among the asserts that end out when
// their candidate is a node of a's own base expression. An equal expression
// from a sibling access in the same statement is a different guard and stays.
func (fc *FuncContext) peel(out *[]ir.Stmt, a *ir.ArrayAddr, base uint64) {
	stmts := *out
	start := len(stmts)
	for start > 0 {
		if _, ok := stmts[start-1].(*ir.BoundaryAssert); !ok {
			break
		}
		start--
	}
	kept := stmts[:start]
	for _, s := range stmts[start:] {
		ba := s.(*ir.BoundaryAssert)
		if (ba.Kind == ir.AssertGE || ba.Kind == ir.AssertLT) && ba.Base.Hash() == base && within(a.Base, ba.Cand) {
			delete(fc.checked, ba.Cand.Hash())
			continue
		}
		kept = append(kept, ba)
	}
	*out = kept
}

// within reports whether the node inner is part of e.
func within(e, inner ir.Expr) bool {
	return ir.Contains(e, func(x ir.Expr) bool { return x == inner })
}

// CheckDeref guards a load or store through addr when addr is computed.
// Plain pointer reads are covered by the bounds bound at their assignment.
func (fc *FuncContext) CheckDeref(out *[]ir.Stmt, addr ir.Expr, loc token.Pos) {
	if !fc.BoundaryOn() || !IsComputed(addr) {
		return
	}
	if a, ok := addr.(*ir.ArrayAddr); ok {
		fc.CheckSubscript(out, a, loc)
		return
	}
	base := FindBase(addr, true)
	if base == nil {
		return
	}
	fc.rangeCheck(out, addr, base, loc)
}

// CheckAssignRHS guards a computed pointer before it is stored.
func (fc *FuncContext) CheckAssignRHS(out *[]ir.Stmt, src ir.Expr, loc token.Pos) {
	if !fc.BoundaryOn() || !types.IsPointer(src.Type()) || !IsComputed(src) {
		return
	}
	base := FindBase(src, true)
	if base == nil {
		return
	}
	fc.rangeCheck(out, src, base, loc)
}

// CheckDeclaredAssign asserts that the object src points into holds at
// least length bytes from src on.
func (fc *FuncContext) CheckDeclaredAssign(out *[]ir.Stmt, src, length ir.Expr, loc token.Pos) {
	if !fc.BoundaryOn() || length == nil || ir.IsNull(src) {
		return
	}
	base := FindBase(src, true)
	if base == nil {
		return
	}
	*out = append(*out, fc.boundaryAssert(ir.AssertLE, addPtr(src, length), base, loc))
}

// CheckCall asserts every argument passed for a boundary parameter covers
// the length the callee expects, with the actual arguments substituted into
// the callee's length.
func (fc *FuncContext) CheckCall(out *[]ir.Stmt, call *ir.Call) {
	sig := call.Sig
	for i, arg := range call.Args {
		if i >= len(sig.Params) {
			break
		}
		slot := sig.Attrs.Params[i]
		if slot.Nonnull {
			fc.CheckNonnull(out, ir.CallAssertNonnull, arg, slotName(i)+" of call", call.Loc)
		}
		if !slot.HasBoundary || !fc.BoundaryOn() || ir.IsNull(arg) {
			continue
		}
		tmpl, ok := fc.Mod.Lens.Get(slot.LenHash)
		if !ok {
			continue
		}
		base := FindBase(arg, true)
		if base == nil {
			continue
		}
		length := RealLenExprInFunc(tmpl, call.Args)
		*out = append(*out, fc.boundaryAssert(ir.CallAssertLE, addPtr(arg, length), base, call.Loc))
	}
}

// CheckReturn asserts a returned pointer against the function's declared
// return contract.
func (fc *FuncContext) CheckReturn(out *[]ir.Stmt, val ir.Expr, loc token.Pos) {
	ret := fc.Fn.Sig.Attrs.Ret
	if ret.Nonnull {
		fc.CheckNonnull(out, ir.ReturnAssertNonnull, val, "return value of "+fc.Fn.Name, loc)
	}
	if !ret.HasBoundary || !fc.BoundaryOn() || ir.IsNull(val) {
		return
	}
	length := fc.paramLen(types.ReturnIndex)
	base := FindBase(val, true)
	if length == nil || base == nil {
		return
	}
	*out = append(*out, fc.boundaryAssert(ir.ReturnAssertLE, addPtr(val, length), base, loc))
}
