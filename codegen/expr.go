package codegen

import (
	"fmt"

	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/types"
	"tinygo.org/x/go-llvm"
)

// varAddr is the address of variable v, or of its flattened field.
func (g *Generator) varAddr(v *ir.Var, fieldID int) llvm.Value {
	base, ok := g.vars[v]
	if !ok {
		base, ok = g.globals[v]
	}
	if !ok {
		panic(fmt.Sprintf("unknown variable %s", v.Name))
	}
	return g.offset(base, varOffset(v.Type, fieldID))
}

func (g *Generator) offset(p llvm.Value, off int64) llvm.Value {
	if off == 0 {
		return p
	}
	return g.byteGEP(p, llvm.ConstInt(g.Context.Int64Type(), uint64(off), false))
}

func (g *Generator) byteGEP(p, off llvm.Value) llvm.Value {
	return g.builder.CreateGEP(g.Context.Int8Type(), p, []llvm.Value{off}, "")
}

// fieldAddr is the address of field fieldID of the struct addr points to.
func (g *Generator) fieldAddr(addr ir.Expr, fieldID int) llvm.Value {
	p := g.expr(addr)
	if fieldID == 0 {
		return p
	}
	return g.offset(p, types.Pointee(addr.Type()).(*types.Struct).Offset(fieldID))
}

func (g *Generator) expr(e ir.Expr) llvm.Value {
	switch x := e.(type) {
	case *ir.Const:
		return g.constant(x)
	case *ir.Str:
		return g.constString(x)
	case *ir.DRead:
		return g.createLoad(g.varAddr(x.Var, x.FieldID), x.Typ, x.Var.Name)
	case *ir.IRead:
		return g.createLoad(g.fieldAddr(x.Addr, x.FieldID), x.Typ, "")
	case *ir.AddrOf:
		return g.varAddr(x.Var, x.FieldID)
	case *ir.IAddrOf:
		return g.fieldAddr(x.Addr, x.FieldID)
	case *ir.AddrOfFunc:
		return g.funcValue(x.Name, x.Sig)
	case *ir.Binary:
		return g.binary(x)
	case *ir.Unary:
		return g.unary(x)
	case *ir.ArrayAddr:
		idx := g.convert(g.expr(x.Index), x.Index.Type(), types.I64)
		off := g.builder.CreateMul(idx, llvm.ConstInt(g.Context.Int64Type(), uint64(x.Stride), false), "")
		return g.byteGEP(g.expr(x.Base), off)
	}
	panic(fmt.Sprintf("cannot generate %s expression %s", e.Kind(), e))
}

func signed(t types.Type) bool {
	it, ok := t.(types.Int)
	return ok && !it.Unsigned
}

var intPreds = map[ir.BinOp][2]llvm.IntPredicate{
	ir.Eq: {llvm.IntEQ, llvm.IntEQ},
	ir.Ne: {llvm.IntNE, llvm.IntNE},
	ir.Lt: {llvm.IntULT, llvm.IntSLT},
	ir.Le: {llvm.IntULE, llvm.IntSLE},
	ir.Gt: {llvm.IntUGT, llvm.IntSGT},
	ir.Ge: {llvm.IntUGE, llvm.IntSGE},
}

var floatPreds = map[ir.BinOp]llvm.FloatPredicate{
	ir.Eq: llvm.FloatOEQ,
	ir.Ne: llvm.FloatUNE,
	ir.Lt: llvm.FloatOLT,
	ir.Le: llvm.FloatOLE,
	ir.Gt: llvm.FloatOGT,
	ir.Ge: llvm.FloatOGE,
}

func (g *Generator) binary(b *ir.Binary) llvm.Value {
	x, y := g.expr(b.X), g.expr(b.Y)
	xt := b.X.Type()
	if types.IsPointer(b.Typ) {
		off := g.convert(y, b.Y.Type(), types.I64)
		if b.Op == ir.Sub {
			off = g.builder.CreateNeg(off, "")
		}
		return g.byteGEP(x, off)
	}
	switch b.Op {
	case ir.LAnd, ir.LOr:
		zero := llvm.ConstInt(g.Context.Int32Type(), 0, false)
		l := g.builder.CreateICmp(llvm.IntNE, x, zero, "")
		r := g.builder.CreateICmp(llvm.IntNE, y, zero, "")
		var v llvm.Value
		if b.Op == ir.LAnd {
			v = g.builder.CreateAnd(l, r, "")
		} else {
			v = g.builder.CreateOr(l, r, "")
		}
		return g.builder.CreateZExt(v, g.Context.Int32Type(), "")
	case ir.Eq, ir.Ne, ir.Lt, ir.Le, ir.Gt, ir.Ge:
		var cmp llvm.Value
		switch {
		case types.IsFloat(xt):
			cmp = g.builder.CreateFCmp(floatPreds[b.Op], x, y, "")
		case types.IsPointer(xt):
			cmp = g.builder.CreateICmp(intPreds[b.Op][0], x, y, "")
		default:
			pred := intPreds[b.Op][0]
			if signed(xt) {
				pred = intPreds[b.Op][1]
			}
			cmp = g.builder.CreateICmp(pred, x, y, "")
		}
		return g.builder.CreateZExt(cmp, g.mapToLLVMType(b.Typ), "")
	}
	if types.IsFloat(b.Typ) {
		switch b.Op {
		case ir.Add:
			return g.builder.CreateFAdd(x, y, "")
		case ir.Sub:
			return g.builder.CreateFSub(x, y, "")
		case ir.Mul:
			return g.builder.CreateFMul(x, y, "")
		case ir.Div:
			return g.builder.CreateFDiv(x, y, "")
		}
		panic(fmt.Sprintf("invalid float operator %s", b.Op))
	}
	sgn := signed(b.Typ)
	switch b.Op {
	case ir.Add:
		return g.builder.CreateAdd(x, y, "")
	case ir.Sub:
		return g.builder.CreateSub(x, y, "")
	case ir.Mul:
		return g.builder.CreateMul(x, y, "")
	case ir.Div:
		if sgn {
			return g.builder.CreateSDiv(x, y, "")
		}
		return g.builder.CreateUDiv(x, y, "")
	case ir.Rem:
		if sgn {
			return g.builder.CreateSRem(x, y, "")
		}
		return g.builder.CreateURem(x, y, "")
	case ir.Shl:
		return g.builder.CreateShl(x, y, "")
	case ir.Shr:
		if sgn {
			return g.builder.CreateAShr(x, y, "")
		}
		return g.builder.CreateLShr(x, y, "")
	case ir.And:
		return g.builder.CreateAnd(x, y, "")
	case ir.Or:
		return g.builder.CreateOr(x, y, "")
	case ir.Xor:
		return g.builder.CreateXor(x, y, "")
	}
	panic(fmt.Sprintf("invalid operator %s", b.Op))
}

func (g *Generator) unary(u *ir.Unary) llvm.Value {
	x := g.expr(u.X)
	switch u.Op {
	case ir.Neg:
		if types.IsFloat(u.Typ) {
			return g.builder.CreateFNeg(x, "")
		}
		return g.builder.CreateNeg(x, "")
	case ir.BNot:
		return g.builder.CreateNot(x, "")
	case ir.Not:
		var cmp llvm.Value
		if types.IsFloat(u.X.Type()) {
			cmp = g.builder.CreateFCmp(llvm.FloatOEQ, x, llvm.ConstNull(x.Type()), "")
		} else {
			cmp = g.builder.CreateICmp(llvm.IntEQ, x, llvm.ConstNull(x.Type()), "")
		}
		return g.builder.CreateZExt(cmp, g.mapToLLVMType(u.Typ), "")
	}
	return g.convert(x, u.X.Type(), u.Typ)
}

// convert emits the conversion of v from type from to type to.
func (g *Generator) convert(v llvm.Value, from, to types.Type) llvm.Value {
	dst := g.mapToLLVMType(to)
	switch {
	case types.Equal(from, to):
		return v
	case types.IsPointer(from) && types.IsPointer(to):
		return v
	case types.IsPointer(from):
		return g.builder.CreatePtrToInt(v, dst, "")
	case types.IsPointer(to):
		if types.IsInteger(from) && from.Size() < types.PointerSize {
			v = g.convert(v, from, types.I64)
		}
		return g.builder.CreateIntToPtr(v, dst, "")
	case types.IsInteger(from) && types.IsInteger(to):
		fw, tw := from.Size(), to.Size()
		switch {
		case fw == tw:
			return v
		case fw > tw:
			return g.builder.CreateTrunc(v, dst, "")
		case signed(from):
			return g.builder.CreateSExt(v, dst, "")
		}
		return g.builder.CreateZExt(v, dst, "")
	case types.IsInteger(from) && types.IsFloat(to):
		if signed(from) {
			return g.builder.CreateSIToFP(v, dst, "")
		}
		return g.builder.CreateUIToFP(v, dst, "")
	case types.IsFloat(from) && types.IsInteger(to):
		if signed(to) {
			return g.builder.CreateFPToSI(v, dst, "")
		}
		return g.builder.CreateFPToUI(v, dst, "")
	case types.IsFloat(from) && types.IsFloat(to):
		fw, tw := from.Size(), to.Size()
		switch {
		case fw == tw:
			return v
		case fw > tw:
			return g.builder.CreateFPTrunc(v, dst, "")
		}
		return g.builder.CreateFPExt(v, dst, "")
	}
	panic(fmt.Sprintf("cannot convert %s to %s", from, to))
}
