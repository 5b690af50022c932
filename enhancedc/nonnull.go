package enhancedc

import (
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// CheckNonnull handles a value flowing into a nonnull slot described by
// what. A null constant is reported once and gets no runtime check; values
// that cannot be null need none either.
func (fc *FuncContext) CheckNonnull(out *[]ir.Stmt, kind ir.NonnullKind, val ir.Expr, what string, loc token.Pos) {
	if !fc.NonnullOn() {
		return
	}
	if ir.IsNull(val) {
		fc.Mod.Diag.Errorf(loc, diag.CodeNullInit, "null assigned to nonnull %s", what)
		return
	}
	if !types.IsPointer(val.Type()) || NeverNull(val) || fc.Fn == nil {
		return
	}
	*out = append(*out, &ir.NonnullAssert{Kind: kind, X: val, Loc: loc})
}

// NeverNull reports whether e is an address that cannot be null.
func NeverNull(e ir.Expr) bool {
	switch x := e.(type) {
	case *ir.AddrOf, *ir.IAddrOf, *ir.AddrOfFunc, *ir.Str:
		return true
	case *ir.Unary:
		return x.Op == ir.Cvt && NeverNull(x.X)
	}
	return false
}

// CheckNonnullStore checks a store into the variable or field dst.
func (fc *FuncContext) CheckNonnullStore(out *[]ir.Stmt, dst ir.Expr, val ir.Expr, loc token.Pos) {
	if !fc.NonnullOn() {
		return
	}
	attrs, name := targetAttrs(fc, dst)
	if attrs == nil || !attrs.Nonnull {
		return
	}
	fc.CheckNonnull(out, ir.AssignAssertNonnull, val, name, loc)
}

// targetAttrs returns the attribute set governing stores through dst.
func targetAttrs(fc *FuncContext, dst ir.Expr) (*types.Attrs, string) {
	switch x := dst.(type) {
	case *ir.DRead:
		if x.FieldID != 0 {
			st := x.Var.Type.(*types.Struct)
			_, _, f, _ := st.FieldByID(x.FieldID)
			return &f.Attrs, x.Var.Name + "." + f.Name
		}
		if x.Var.Param && fc.Fn != nil && !x.Var.Attrs.Nonnull {
			return &fc.Fn.Sig.Attrs.Params[x.Var.Index], x.Var.Name
		}
		return &x.Var.Attrs, x.Var.Name
	case *ir.IRead:
		if x.FieldID == 0 {
			return nil, ""
		}
		st, ok := types.Pointee(x.Addr.Type()).(*types.Struct)
		if !ok {
			panic("must be struct type!")
		}
		_, _, f, _ := st.FieldByID(x.FieldID)
		return &f.Attrs, st.Name + "." + f.Name
	}
	return nil, ""
}
