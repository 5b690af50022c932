package enhancedc

import (
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/types"
)

// ReplaceBoundaryChecking lowers every BoundaryAssert in stmts to a concrete
// Check against the bounds of its base. An assert whose base has no
// obtainable bound is reported and dropped.
func (fc *FuncContext) ReplaceBoundaryChecking(stmts []ir.Stmt) []ir.Stmt {
	return ir.MapStmts(stmts, func(s ir.Stmt) []ir.Stmt {
		ba, ok := s.(*ir.BoundaryAssert)
		if !ok {
			return []ir.Stmt{s}
		}
		lower, upper, ok := fc.bounds(ba.Base)
		if !ok {
			msg := "no boundary is known for %s; the %s check is omitted"
			if ba.Safe && fc.Mod.Opts.SafeRegion {
				fc.Mod.Diag.Errorf(ba.Loc, diag.CodeNoBound, msg, ba.Base, ba.Kind)
			} else {
				fc.Mod.Diag.Warnf(ba.Loc, diag.CodeNoBound, msg, ba.Base, ba.Kind)
			}
			return nil
		}
		t := ba.Cand.Type()
		check := &ir.Check{X: ba.Cand, Kind: ba.Kind, Loc: ba.Loc}
		switch ba.Kind {
		case ir.AssertGE:
			check.Op, check.Bound = ir.CheckGE, convert(lower, t)
		case ir.AssertLT:
			check.Op, check.Bound = ir.CheckLT, convert(upper, t)
		default:
			check.Op, check.Bound = ir.CheckLE, convert(upper, t)
		}
		return []ir.Stmt{check}
	})
}

// bounds finds the lower and upper address of the object base points into.
func (fc *FuncContext) bounds(base ir.Expr) (lower, upper ir.Expr, ok bool) {
	if size, sized := staticSize(base); sized {
		return base, addPtr(base, ir.NewInt(size, types.SizeT)), true
	}
	if p, tracked := fc.Lookup(base); tracked {
		return ir.NewDRead(p.Lower, 0), ir.NewDRead(p.Upper, 0), true
	}
	if length := fc.DeclaredLen(base); length != nil {
		return base, addPtr(base, length), true
	}
	if size, scalar := scalarSize(base); scalar {
		return base, addPtr(base, ir.NewInt(size, types.SizeT)), true
	}
	return nil, nil, false
}

// CheckGlobalInit evaluates the asserts produced while lowering a global
// initializer. File scope runs no code, so every assert must be decided at
// compile time: a violation is an error and an assert that cannot be
// decided is reported like a missing bound.
func (mc *ModuleContext) CheckGlobalInit(stmts []ir.Stmt) {
	fc := mc.globals
	for _, s := range stmts {
		ba, ok := s.(*ir.BoundaryAssert)
		if !ok {
			continue
		}
		lower, upper, ok := fc.bounds(ba.Base)
		if !ok {
			mc.Diag.Warnf(ba.Loc, diag.CodeNoBound, "no boundary is known for %s; the %s check is omitted", ba.Base, ba.Kind)
			continue
		}
		bound := upper
		if ba.Kind == ir.AssertGE {
			bound = lower
		}
		obj, x, okX := staticAddr(ba.Cand)
		bobj, b, okB := staticAddr(bound)
		if !okX || !okB || obj != bobj {
			mc.Diag.Warnf(ba.Loc, diag.CodeNoBound, "%s cannot be decided for the constant %s; the check is omitted", ba.Kind, ba.Cand)
			continue
		}
		var violated bool
		switch ba.Kind {
		case ir.AssertGE:
			violated = x < b
		case ir.AssertLT:
			violated = x >= b
		default:
			violated = x > b
		}
		if violated {
			mc.Diag.Errorf(ba.Loc, diag.CodeStaticBound, "%s is outside the bounds of %s (%s)", ba.Cand, ba.Base, ba.Kind)
		}
	}
}

// object names the storage a constant address points into.
type object struct {
	v       *ir.Var
	fieldID int
}

// staticAddr resolves a constant address to its object and byte offset.
func staticAddr(e ir.Expr) (object, int64, bool) {
	switch x := e.(type) {
	case *ir.AddrOf:
		return object{x.Var, x.FieldID}, 0, true
	case *ir.Unary:
		if x.Op == ir.Cvt {
			return staticAddr(x.X)
		}
	case *ir.Binary:
		if x.Op != ir.Add && x.Op != ir.Sub {
			break
		}
		obj, off, ok := staticAddr(x.X)
		n, nok := staticInt(x.Y)
		if !ok || !nok {
			break
		}
		if x.Op == ir.Sub {
			n = -n
		}
		return obj, off + n, true
	case *ir.ArrayAddr:
		obj, off, ok := staticAddr(x.Base)
		n, nok := staticInt(x.Index)
		if ok && nok {
			return obj, off + n*x.Stride, true
		}
	case *ir.DRead:
		if x.Var.IsBoundary() && x.Var.Init != nil {
			return staticAddr(x.Var.Init)
		}
	}
	return object{}, 0, false
}

func staticInt(e ir.Expr) (int64, bool) {
	switch x := e.(type) {
	case *ir.Const:
		return x.Val, types.IsInteger(x.Typ)
	case *ir.Unary:
		v, ok := staticInt(x.X)
		switch x.Op {
		case ir.Cvt:
			return v, ok && types.IsInteger(x.Typ)
		case ir.Neg:
			return -v, ok
		}
	case *ir.Binary:
		a, okA := staticInt(x.X)
		b, okB := staticInt(x.Y)
		if !okA || !okB {
			break
		}
		switch x.Op {
		case ir.Add:
			return a + b, true
		case ir.Sub:
			return a - b, true
		case ir.Mul:
			return a * b, true
		}
	}
	return 0, false
}
