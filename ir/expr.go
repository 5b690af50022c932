package ir

import (
	"fmt"
	"strconv"

	"github.com/thiremani/safec/types"
)

type ExprKind int

const (
	KindConst ExprKind = iota
	KindStr
	KindDRead
	KindIRead
	KindAddrOf
	KindIAddrOf
	KindAddrOfFunc
	KindBinary
	KindUnary
	KindArrayAddr
	KindParamRef
	KindFieldRef
)

var kindNames = [...]string{
	KindConst:      "const",
	KindStr:        "str",
	KindDRead:      "dread",
	KindIRead:      "iread",
	KindAddrOf:     "addrof",
	KindIAddrOf:    "iaddrof",
	KindAddrOfFunc: "addroffunc",
	KindBinary:     "binary",
	KindUnary:      "unary",
	KindArrayAddr:  "array",
	KindParamRef:   "paramref",
	KindFieldRef:   "fieldref",
}

func (k ExprKind) String() string { return kindNames[k] }

// Expr is a side-effect free IR expression. Nodes are immutable once built;
// the set of implementations is closed.
type Expr interface {
	Kind() ExprKind
	Type() types.Type
	// Hash is structural: equal expressions hash equal.
	Hash() uint64
	Clone() Expr
	String() string
	encode(*encoder)
}

// Const is an integer, float or pointer constant.
type Const struct {
	Val  int64
	FVal float64
	Typ  types.Type
}

func NewInt(v int64, t types.Type) *Const { return &Const{Val: v, Typ: t} }

// Null is the null pointer constant of pointer type t.
func Null(t types.Type) *Const { return &Const{Typ: t} }

func (c *Const) Kind() ExprKind   { return KindConst }
func (c *Const) Type() types.Type { return c.Typ }
func (c *Const) Hash() uint64     { return hashExpr(c) }
func (c *Const) Clone() Expr      { cp := *c; return &cp }
func (c *Const) String() string {
	switch c.Typ.Kind() {
	case types.FloatKind:
		return strconv.FormatFloat(c.FVal, 'g', -1, 64)
	case types.PtrKind:
		if c.Val == 0 {
			return "null"
		}
		return fmt.Sprintf("0x%x", uint64(c.Val))
	}
	return strconv.FormatInt(c.Val, 10)
}

// IsNull reports whether e is a constant null pointer or integer zero.
func IsNull(e Expr) bool {
	switch x := e.(type) {
	case *Const:
		return x.Typ.Kind() != types.FloatKind && x.Val == 0
	case *Unary:
		return x.Op == Cvt && IsNull(x.X)
	}
	return false
}

// Str is a string literal, valid only as a global initializer.
type Str struct {
	Value string
	Typ   types.Array
}

func (s *Str) Kind() ExprKind   { return KindStr }
func (s *Str) Type() types.Type { return s.Typ }
func (s *Str) Hash() uint64     { return hashExpr(s) }
func (s *Str) Clone() Expr      { cp := *s; return &cp }
func (s *Str) String() string   { return strconv.Quote(s.Value) }

// DRead reads variable Var, or its flattened field FieldID when non-zero.
type DRead struct {
	Var     *Var
	FieldID int
	Typ     types.Type
}

func NewDRead(v *Var, fieldID int) *DRead {
	return &DRead{Var: v, FieldID: fieldID, Typ: memberType(v.Type, fieldID)}
}

func (d *DRead) Kind() ExprKind   { return KindDRead }
func (d *DRead) Type() types.Type { return d.Typ }
func (d *DRead) Hash() uint64     { return hashExpr(d) }
func (d *DRead) Clone() Expr      { cp := *d; return &cp }
func (d *DRead) String() string   { return varField(d.Var.Name, d.FieldID) }

// IRead loads through Addr, selecting field FieldID of the pointee struct
// when non-zero.
type IRead struct {
	Addr    Expr
	FieldID int
	Typ     types.Type
}

func NewIRead(addr Expr, fieldID int) *IRead {
	return &IRead{Addr: addr, FieldID: fieldID, Typ: memberType(types.Pointee(addr.Type()), fieldID)}
}

func (r *IRead) Kind() ExprKind   { return KindIRead }
func (r *IRead) Type() types.Type { return r.Typ }
func (r *IRead) Hash() uint64     { return hashExpr(r) }
func (r *IRead) Clone() Expr      { return &IRead{Addr: r.Addr.Clone(), FieldID: r.FieldID, Typ: r.Typ} }
func (r *IRead) String() string {
	if r.FieldID == 0 {
		return "*(" + r.Addr.String() + ")"
	}
	return "(" + r.Addr.String() + ")->#" + strconv.Itoa(r.FieldID)
}

// AddrOf is the address of a variable or one of its fields. An array target
// decays to a pointer to its first element.
type AddrOf struct {
	Var     *Var
	FieldID int
	Typ     types.Type
}

func NewAddrOf(v *Var, fieldID int) *AddrOf {
	return &AddrOf{Var: v, FieldID: fieldID, Typ: addrType(memberType(v.Type, fieldID))}
}

func (a *AddrOf) Kind() ExprKind   { return KindAddrOf }
func (a *AddrOf) Type() types.Type { return a.Typ }
func (a *AddrOf) Hash() uint64     { return hashExpr(a) }
func (a *AddrOf) Clone() Expr      { cp := *a; return &cp }
func (a *AddrOf) String() string   { return "&" + varField(a.Var.Name, a.FieldID) }

// Target is the type of the addressed object.
func (a *AddrOf) Target() types.Type { return memberType(a.Var.Type, a.FieldID) }

// IAddrOf is the address of field FieldID of the struct Addr points to.
type IAddrOf struct {
	Addr    Expr
	FieldID int
	Typ     types.Type
}

func NewIAddrOf(addr Expr, fieldID int) *IAddrOf {
	return &IAddrOf{Addr: addr, FieldID: fieldID, Typ: addrType(memberType(types.Pointee(addr.Type()), fieldID))}
}

func (a *IAddrOf) Kind() ExprKind   { return KindIAddrOf }
func (a *IAddrOf) Type() types.Type { return a.Typ }
func (a *IAddrOf) Hash() uint64     { return hashExpr(a) }
func (a *IAddrOf) Clone() Expr      { return &IAddrOf{Addr: a.Addr.Clone(), FieldID: a.FieldID, Typ: a.Typ} }
func (a *IAddrOf) String() string {
	return "&(" + a.Addr.String() + ")->#" + strconv.Itoa(a.FieldID)
}

func (a *IAddrOf) Target() types.Type {
	return memberType(types.Pointee(a.Addr.Type()), a.FieldID)
}

// AddrOfFunc is a function designator.
type AddrOfFunc struct {
	Name string
	Sig  *types.Func
}

func (f *AddrOfFunc) Kind() ExprKind   { return KindAddrOfFunc }
func (f *AddrOfFunc) Type() types.Type { return types.Ptr{Elem: f.Sig} }
func (f *AddrOfFunc) Hash() uint64     { return hashExpr(f) }
func (f *AddrOfFunc) Clone() Expr      { cp := *f; return &cp }
func (f *AddrOfFunc) String() string   { return "&" + f.Name }

type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
	Shl
	Shr
	And
	Or
	Xor
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	LAnd
	LOr
)

var binOpNames = [...]string{"+", "-", "*", "/", "%", "<<", ">>", "&", "|", "^", "==", "!=", "<", "<=", ">", ">=", "&&", "||"}

func (op BinOp) String() string { return binOpNames[op] }

// IsComparison reports whether op yields a truth value.
func (op BinOp) IsComparison() bool { return op >= Eq }

// Binary is an arithmetic, bitwise or comparison operation. Pointer
// arithmetic is in bytes: for a pointer-typed Add or Sub, Y is a byte offset.
type Binary struct {
	Op  BinOp
	X   Expr
	Y   Expr
	Typ types.Type
}

func NewBinary(op BinOp, x, y Expr, t types.Type) *Binary {
	return &Binary{Op: op, X: x, Y: y, Typ: t}
}

func (b *Binary) Kind() ExprKind   { return KindBinary }
func (b *Binary) Type() types.Type { return b.Typ }
func (b *Binary) Hash() uint64     { return hashExpr(b) }
func (b *Binary) Clone() Expr      { return &Binary{Op: b.Op, X: b.X.Clone(), Y: b.Y.Clone(), Typ: b.Typ} }
func (b *Binary) String() string {
	return "(" + b.X.String() + " " + b.Op.String() + " " + b.Y.String() + ")"
}

type UnOp int

const (
	Neg UnOp = iota
	Not
	BNot
	Cvt
)

// Unary is negation, logical or bitwise not, or a conversion to Typ.
type Unary struct {
	Op  UnOp
	X   Expr
	Typ types.Type
}

func NewCvt(x Expr, t types.Type) *Unary { return &Unary{Op: Cvt, X: x, Typ: t} }

func (u *Unary) Kind() ExprKind   { return KindUnary }
func (u *Unary) Type() types.Type { return u.Typ }
func (u *Unary) Hash() uint64     { return hashExpr(u) }
func (u *Unary) Clone() Expr      { return &Unary{Op: u.Op, X: u.X.Clone(), Typ: u.Typ} }
func (u *Unary) String() string {
	switch u.Op {
	case Neg:
		return "-" + u.X.String()
	case Not:
		return "!" + u.X.String()
	case BNot:
		return "~" + u.X.String()
	}
	return "cvt<" + u.Typ.String() + ">(" + u.X.String() + ")"
}

// ArrayAddr is Base + Index*Stride. Len is the extent of the indexed
// dimension when known, 0 otherwise.
type ArrayAddr struct {
	Base   Expr
	Index  Expr
	Stride int64
	Len    int64
	Typ    types.Type
}

func (a *ArrayAddr) Kind() ExprKind   { return KindArrayAddr }
func (a *ArrayAddr) Type() types.Type { return a.Typ }
func (a *ArrayAddr) Hash() uint64     { return hashExpr(a) }
func (a *ArrayAddr) Clone() Expr {
	return &ArrayAddr{Base: a.Base.Clone(), Index: a.Index.Clone(), Stride: a.Stride, Len: a.Len, Typ: a.Typ}
}
func (a *ArrayAddr) String() string {
	return fmt.Sprintf("array(%s, %s, %d)", a.Base, a.Index, a.Stride)
}

// ParamRef stands for parameter Index inside a function-level length
// template; it is substituted before use.
type ParamRef struct {
	Index int
	Typ   types.Type
}

func (p *ParamRef) Kind() ExprKind   { return KindParamRef }
func (p *ParamRef) Type() types.Type { return p.Typ }
func (p *ParamRef) Hash() uint64     { return hashExpr(p) }
func (p *ParamRef) Clone() Expr      { cp := *p; return &cp }
func (p *ParamRef) String() string   { return "$param" + strconv.Itoa(p.Index) }

// FieldRef stands for a sibling field inside a struct-level length template.
type FieldRef struct {
	FieldID int
	Typ     types.Type
}

func (f *FieldRef) Kind() ExprKind   { return KindFieldRef }
func (f *FieldRef) Type() types.Type { return f.Typ }
func (f *FieldRef) Hash() uint64     { return hashExpr(f) }
func (f *FieldRef) Clone() Expr      { cp := *f; return &cp }
func (f *FieldRef) String() string   { return "$field" + strconv.Itoa(f.FieldID) }

func memberType(t types.Type, fieldID int) types.Type {
	if fieldID == 0 {
		return t
	}
	st, ok := t.(*types.Struct)
	if !ok {
		panic("must be struct type!")
	}
	return st.FieldType(fieldID)
}

func addrType(target types.Type) types.Type {
	if arr, ok := target.(types.Array); ok {
		return types.Ptr{Elem: arr.Elem}
	}
	return types.Ptr{Elem: target}
}

func varField(name string, fieldID int) string {
	if fieldID == 0 {
		return name
	}
	return name + "#" + strconv.Itoa(fieldID)
}
