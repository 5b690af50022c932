package compiler

import (
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// binOps maps binary and compound assignment operators to IR operators.
var binOps = map[token.TokenType]ir.BinOp{
	token.ADD: ir.Add,
	token.SUB: ir.Sub,
	token.MUL: ir.Mul,
	token.QUO: ir.Div,
	token.REM: ir.Rem,
	token.SHL: ir.Shl,
	token.SHR: ir.Shr,
	token.AND: ir.And,
	token.OR:  ir.Or,
	token.XOR: ir.Xor,
	token.EQL: ir.Eq,
	token.NEQ: ir.Ne,
	token.LSS: ir.Lt,
	token.LEQ: ir.Le,
	token.GTR: ir.Gt,
	token.GEQ: ir.Ge,

	token.ADD_ASSIGN: ir.Add,
	token.SUB_ASSIGN: ir.Sub,
	token.MUL_ASSIGN: ir.Mul,
	token.QUO_ASSIGN: ir.Div,
	token.REM_ASSIGN: ir.Rem,
	token.SHL_ASSIGN: ir.Shl,
	token.SHR_ASSIGN: ir.Shr,
	token.AND_ASSIGN: ir.And,
	token.OR_ASSIGN:  ir.Or,
	token.XOR_ASSIGN: ir.Xor,
}

// promote applies the integer promotions.
func promote(t types.Type) types.Type {
	if it, ok := t.(types.Int); ok && it.Width < 32 {
		return types.I32
	}
	return t
}

// arith returns the common type of the usual arithmetic conversions.
func arith(a, b types.Type) types.Type {
	if types.IsFloat(a) || types.IsFloat(b) {
		fa, aok := a.(types.Float)
		fb, bok := b.(types.Float)
		switch {
		case aok && bok:
			if fa.Width >= fb.Width {
				return fa
			}
			return fb
		case aok:
			return fa
		}
		return fb
	}
	ia, ib := promote(a).(types.Int), promote(b).(types.Int)
	switch {
	case ia.Width > ib.Width:
		return ia
	case ib.Width > ia.Width:
		return ib
	}
	return types.Int{Width: ia.Width, Unsigned: ia.Unsigned || ib.Unsigned}
}

// convert changes e to type t, folding integer constants.
func convert(e ir.Expr, t types.Type) ir.Expr {
	if types.Equal(e.Type(), t) {
		return e
	}
	if k, ok := e.(*ir.Const); ok {
		switch {
		case types.IsInteger(k.Typ) && types.IsInteger(t):
			return ir.NewInt(truncate(k.Val, t.(types.Int)), t)
		case types.IsInteger(k.Typ) && types.IsPointer(t) && k.Val == 0:
			return ir.Null(t)
		case types.IsInteger(k.Typ) && types.IsFloat(t):
			return &ir.Const{FVal: float64(k.Val), Typ: t}
		case types.IsFloat(k.Typ) && types.IsFloat(t):
			return &ir.Const{FVal: k.FVal, Typ: t}
		}
	}
	return ir.NewCvt(e, t)
}

func truncate(v int64, t types.Int) int64 {
	if t.Width >= 64 {
		return v
	}
	shift := 64 - t.Width
	if t.Unsigned {
		return int64(uint64(v) << shift >> shift)
	}
	return v << shift >> shift
}

// foldConst evaluates integer constant arithmetic.
func foldConst(e ir.Expr) ir.Expr {
	switch x := e.(type) {
	case *ir.Binary:
		l, r := foldConst(x.X), foldConst(x.Y)
		lc, lok := l.(*ir.Const)
		rc, rok := r.(*ir.Const)
		if !lok || !rok || !types.IsInteger(lc.Typ) || !types.IsInteger(rc.Typ) {
			return ir.NewBinary(x.Op, l, r, x.Typ)
		}
		a, b := lc.Val, rc.Val
		ua, ub := uint64(a), uint64(b)
		uns := lc.Typ.(types.Int).Unsigned
		var v int64
		switch x.Op {
		case ir.Add:
			v = a + b
		case ir.Sub:
			v = a - b
		case ir.Mul:
			v = a * b
		case ir.Div, ir.Rem:
			if b == 0 {
				return ir.NewBinary(x.Op, l, r, x.Typ)
			}
			switch {
			case uns && x.Op == ir.Div:
				v = int64(ua / ub)
			case uns:
				v = int64(ua % ub)
			case x.Op == ir.Div:
				v = a / b
			default:
				v = a % b
			}
		case ir.Shl:
			v = a << ub
		case ir.Shr:
			if uns {
				v = int64(ua >> ub)
			} else {
				v = a >> ub
			}
		case ir.And:
			v = a & b
		case ir.Or:
			v = a | b
		case ir.Xor:
			v = a ^ b
		case ir.Eq:
			v = b2i(a == b)
		case ir.Ne:
			v = b2i(a != b)
		case ir.Lt:
			v = b2i(a < b && !uns || ua < ub && uns)
		case ir.Le:
			v = b2i(a <= b && !uns || ua <= ub && uns)
		case ir.Gt:
			v = b2i(a > b && !uns || ua > ub && uns)
		case ir.Ge:
			v = b2i(a >= b && !uns || ua >= ub && uns)
		case ir.LAnd:
			v = b2i(a != 0 && b != 0)
		case ir.LOr:
			v = b2i(a != 0 || b != 0)
		default:
			return ir.NewBinary(x.Op, l, r, x.Typ)
		}
		if !types.IsInteger(x.Typ) {
			return ir.NewBinary(x.Op, l, r, x.Typ)
		}
		return ir.NewInt(truncate(v, x.Typ.(types.Int)), x.Typ)
	case *ir.Unary:
		inner := foldConst(x.X)
		k, ok := inner.(*ir.Const)
		if !ok || !types.IsInteger(k.Typ) {
			return &ir.Unary{Op: x.Op, X: inner, Typ: x.Typ}
		}
		switch x.Op {
		case ir.Neg:
			return ir.NewInt(-k.Val, x.Typ)
		case ir.BNot:
			return ir.NewInt(^k.Val, x.Typ)
		case ir.Cvt:
			return convert(k, x.Typ)
		}
		return &ir.Unary{Op: x.Op, X: inner, Typ: x.Typ}
	}
	return e
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// scale multiplies an integer offset by an element size in bytes.
func scale(n ir.Expr, size int64) ir.Expr {
	n = convert(n, types.I64)
	if size == 1 {
		return n
	}
	return foldConst(ir.NewBinary(ir.Mul, n, ir.NewInt(size, types.I64), types.I64))
}

// zero returns the zero value of scalar type t.
func zero(t types.Type) ir.Expr {
	switch {
	case types.IsPointer(t):
		return ir.Null(t)
	case types.IsFloat(t):
		return &ir.Const{Typ: t}
	}
	return ir.NewInt(0, t)
}

// truth turns a scalar into a comparison against zero.
func truth(e ir.Expr) ir.Expr {
	if b, ok := e.(*ir.Binary); ok && b.Op.IsComparison() {
		return e
	}
	return ir.NewBinary(ir.Ne, e, zero(e.Type()), types.I32)
}

// negate returns the logical negation of a truth value.
func negate(e ir.Expr) ir.Expr {
	if b, ok := e.(*ir.Binary); ok {
		inv := map[ir.BinOp]ir.BinOp{ir.Eq: ir.Ne, ir.Ne: ir.Eq, ir.Lt: ir.Ge, ir.Ge: ir.Lt, ir.Gt: ir.Le, ir.Le: ir.Gt}
		if op, ok := inv[b.Op]; ok {
			return ir.NewBinary(op, b.X, b.Y, b.Typ)
		}
	}
	return ir.NewBinary(ir.Eq, e, zero(e.Type()), types.I32)
}
