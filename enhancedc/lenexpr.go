package enhancedc

import (
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/types"
)

type OwnerKind int

const (
	OwnerFunc OwnerKind = iota
	OwnerStruct
	OwnerVar
)

// LenOwner is the declaration scope a boundary length resolves in.
type LenOwner struct {
	Kind OwnerKind
	Name string

	// OwnerFunc
	Sig    *types.Func
	Params []*ast.ParamDecl

	// OwnerStruct
	Struct *types.Struct

	// OwnerVar
	Var    *ir.Var
	Lookup func(name string) (ir.Expr, bool)
}

func (o *LenOwner) key() any {
	switch o.Kind {
	case OwnerFunc:
		return o.Sig
	case OwnerStruct:
		return o.Struct
	}
	return o.Var
}

// Resolve turns a declared boundary into the IR expression computing its
// length in bytes. member names the declaration within owner. isSize means
// the length counts elements and is scaled by the pointee size.
//
// Function lengths refer to parameters through ParamRef and struct lengths
// to sibling fields through FieldRef; both are substituted at the use site.
// Resolving the same member twice returns the cached expression.
func (mc *ModuleContext) Resolve(owner *LenOwner, member string, declType types.Type, bi *ast.BoundaryInfo, isSize bool) ir.Expr {
	if e, ok := mc.Lens.member(owner.key(), member); ok {
		return e
	}
	if !types.IsPointer(declType) {
		mc.Diag.Errorf(bi.Pos, diag.CodeAttrTarget, "boundary attribute on %s requires a pointer type, got %s", member, declType)
		return nil
	}

	length := mc.resolveRaw(owner, member, bi)
	if length == nil {
		return nil
	}
	if !types.IsInteger(length.Type()) {
		mc.Diag.Errorf(bi.Pos, diag.CodeLenType, "boundary length of %s must be an integer, got %s", member, length.Type())
		return nil
	}
	length = convert(length, types.SizeT)
	if isSize {
		if sz := types.ElemSize(declType); sz != 1 {
			length = fold(ir.NewBinary(ir.Mul, length, ir.NewInt(sz, types.SizeT), types.SizeT))
		}
	}
	mc.markFinalSize(owner, length)
	mc.Lens.putMember(owner.key(), member, length)
	return length
}

func (mc *ModuleContext) resolveRaw(owner *LenOwner, member string, bi *ast.BoundaryInfo) ir.Expr {
	if bi.LenParamIdx >= 0 {
		return mc.resolveIndex(owner, member, bi)
	}
	if lit, ok := bi.LenExpr.(*ast.StringLiteral); ok {
		return mc.resolveName(owner, member, lit.Value, bi)
	}
	if bi.LenExpr == nil {
		mc.Diag.Errorf(bi.Pos, diag.CodeAttrUnknownArg, "boundary attribute on %s has no length", member)
		return nil
	}
	var lookup func(string) (ir.Expr, bool)
	switch owner.Kind {
	case OwnerFunc:
		lookup = func(name string) (ir.Expr, bool) { return owner.paramRef(name) }
	case OwnerStruct:
		lookup = func(name string) (ir.Expr, bool) { return owner.fieldRef(name) }
	default:
		lookup = owner.Lookup
	}
	e, ok := mc.Proc.LowerLenExpr(bi.LenExpr, lookup)
	if !ok {
		return nil
	}
	return e
}

// resolveIndex resolves a length given as a sibling index.
func (mc *ModuleContext) resolveIndex(owner *LenOwner, member string, bi *ast.BoundaryInfo) ir.Expr {
	idx := bi.LenParamIdx
	switch owner.Kind {
	case OwnerFunc:
		if idx >= len(owner.Sig.Params) {
			mc.Diag.Errorf(bi.Pos, diag.CodeAttrIndex, "length index %d of %s is out of range", idx+1, member)
			return nil
		}
		return &ir.ParamRef{Index: idx, Typ: owner.Sig.Params[idx]}
	case OwnerStruct:
		if idx >= len(owner.Struct.Fields) {
			mc.Diag.Errorf(bi.Pos, diag.CodeAttrIndex, "length index %d of %s is out of range", idx+1, member)
			return nil
		}
		e, _ := owner.fieldRef(owner.Struct.Fields[idx].Name)
		return e
	}
	mc.Diag.Errorf(bi.Pos, diag.CodeAttrIndex, "length index is only valid on parameters and fields, not on variable %s", member)
	return nil
}

// resolveName resolves a length given as a string literal naming a sibling.
// Variables have no siblings, so the form is rejected for them.
func (mc *ModuleContext) resolveName(owner *LenOwner, member, name string, bi *ast.BoundaryInfo) ir.Expr {
	var e ir.Expr
	var ok bool
	switch owner.Kind {
	case OwnerFunc:
		e, ok = owner.paramRef(name)
	case OwnerStruct:
		e, ok = owner.fieldRef(name)
	default:
		mc.Diag.Errorf(bi.Pos, diag.CodeLenStringVar, "string literal length %q is not allowed on variable %s", name, member)
		return nil
	}
	if !ok {
		mc.Diag.Errorf(bi.Pos, diag.CodeLenName, "length %q of %s not found", name, member)
		return nil
	}
	return e
}

func (o *LenOwner) paramRef(name string) (ir.Expr, bool) {
	for i, p := range o.Params {
		if p != nil && p.Name == name && name != "" {
			return &ir.ParamRef{Index: i, Typ: o.Sig.Params[i]}, true
		}
	}
	return nil, false
}

func (o *LenOwner) fieldRef(name string) (ir.Expr, bool) {
	id, f, ok := o.Struct.FieldID(name)
	if !ok {
		return nil, false
	}
	return &ir.FieldRef{FieldID: id, Typ: f.Type}, true
}

// markFinalSize flags every value the length reads.
func (mc *ModuleContext) markFinalSize(owner *LenOwner, length ir.Expr) {
	ir.Walk(length, func(e ir.Expr) bool {
		switch x := e.(type) {
		case *ir.ParamRef:
			owner.Sig.Attrs.Params[x.Index].FinalBoundarySize = true
		case *ir.FieldRef:
			if _, _, f, ok := owner.Struct.FieldByID(x.FieldID); ok {
				f.Attrs.FinalBoundarySize = true
			}
		case *ir.DRead:
			if x.FieldID == 0 {
				x.Var.Attrs.FinalBoundarySize = true
			}
		}
		return true
	})
}

// RealLenExprInFunc substitutes actual arguments for the parameter
// references of a function-level length.
func RealLenExprInFunc(tmpl ir.Expr, args []ir.Expr) ir.Expr {
	e := ir.Rewrite(tmpl, func(x ir.Expr) (ir.Expr, bool) {
		if p, ok := x.(*ir.ParamRef); ok {
			if p.Index >= len(args) {
				panic("parameter reference out of range")
			}
			return convert(args[p.Index].Clone(), p.Typ), true
		}
		return nil, false
	})
	return fold(e)
}

// RealLenExprInField rebases the sibling field references of a struct-level
// length onto the object that holds the field. field returns the read of
// flattened field id within the owning struct.
func RealLenExprInField(tmpl ir.Expr, field func(id int) ir.Expr) ir.Expr {
	e := ir.Rewrite(tmpl, func(x ir.Expr) (ir.Expr, bool) {
		if f, ok := x.(*ir.FieldRef); ok {
			return field(f.FieldID), true
		}
		return nil, false
	})
	return fold(e)
}

// fold evaluates integer arithmetic on constants and strips conversions of
// constants.
func fold(e ir.Expr) ir.Expr {
	switch x := e.(type) {
	case *ir.Binary:
		l, r := fold(x.X), fold(x.Y)
		lc, lok := l.(*ir.Const)
		rc, rok := r.(*ir.Const)
		if lok && rok && types.IsInteger(x.Typ) {
			if v, ok := foldInt(x.Op, lc.Val, rc.Val); ok {
				return ir.NewInt(v, x.Typ)
			}
		}
		if l == x.X && r == x.Y {
			return x
		}
		return ir.NewBinary(x.Op, l, r, x.Typ)
	case *ir.Unary:
		inner := fold(x.X)
		if c, ok := inner.(*ir.Const); ok && x.Op == ir.Cvt && types.IsInteger(x.Typ) && types.IsInteger(c.Typ) {
			return ir.NewInt(c.Val, x.Typ)
		}
		if inner == x.X {
			return x
		}
		return &ir.Unary{Op: x.Op, X: inner, Typ: x.Typ}
	}
	return e
}

func foldInt(op ir.BinOp, a, b int64) (int64, bool) {
	switch op {
	case ir.Add:
		return a + b, true
	case ir.Sub:
		return a - b, true
	case ir.Mul:
		return a * b, true
	case ir.Div:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case ir.Shl:
		return a << uint(b), true
	}
	return 0, false
}
