package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"golang.org/x/text/unicode/norm"
)

// DomainExpr separates expression hashes from any other hash domain; the
// version suffix changes whenever the canonical encoding does.
const DomainExpr = "safec/expr/v1"

// encoder produces the canonical byte encoding of an expression.
type encoder struct {
	buf bytes.Buffer
	tmp [binary.MaxVarintLen64]byte
}

func (e *encoder) tag(k ExprKind) {
	e.buf.WriteByte(byte(k))
}

func (e *encoder) int(v int64) {
	n := binary.PutVarint(e.tmp[:], v)
	e.buf.Write(e.tmp[:n])
}

func (e *encoder) str(s string) {
	s = norm.NFC.String(s)
	n := binary.PutUvarint(e.tmp[:], uint64(len(s)))
	e.buf.Write(e.tmp[:n])
	e.buf.WriteString(s)
}

func hashExpr(x Expr) uint64 {
	var enc encoder
	x.encode(&enc)
	h := sha256.New()
	h.Write([]byte(DomainExpr))
	h.Write([]byte{0x00})
	h.Write(enc.buf.Bytes())
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}

func (c *Const) encode(e *encoder) {
	e.tag(KindConst)
	e.str(c.Typ.String())
	e.int(c.Val)
	e.int(int64(math.Float64bits(c.FVal)))
}

func (s *Str) encode(e *encoder) {
	e.tag(KindStr)
	e.str(s.Value)
}

func (v *Var) encode(e *encoder) {
	e.str(v.Name)
	if v.Global {
		e.int(1)
	} else {
		e.int(0)
	}
}

func (d *DRead) encode(e *encoder) {
	e.tag(KindDRead)
	d.Var.encode(e)
	e.int(int64(d.FieldID))
	e.str(d.Typ.String())
}

func (r *IRead) encode(e *encoder) {
	e.tag(KindIRead)
	r.Addr.encode(e)
	e.int(int64(r.FieldID))
	e.str(r.Typ.String())
}

func (a *AddrOf) encode(e *encoder) {
	e.tag(KindAddrOf)
	a.Var.encode(e)
	e.int(int64(a.FieldID))
	e.str(a.Typ.String())
}

func (a *IAddrOf) encode(e *encoder) {
	e.tag(KindIAddrOf)
	a.Addr.encode(e)
	e.int(int64(a.FieldID))
	e.str(a.Typ.String())
}

func (f *AddrOfFunc) encode(e *encoder) {
	e.tag(KindAddrOfFunc)
	e.str(f.Name)
}

func (b *Binary) encode(e *encoder) {
	e.tag(KindBinary)
	e.int(int64(b.Op))
	e.str(b.Typ.String())
	b.X.encode(e)
	b.Y.encode(e)
}

func (u *Unary) encode(e *encoder) {
	e.tag(KindUnary)
	e.int(int64(u.Op))
	e.str(u.Typ.String())
	u.X.encode(e)
}

func (a *ArrayAddr) encode(e *encoder) {
	e.tag(KindArrayAddr)
	e.int(a.Stride)
	e.str(a.Typ.String())
	a.Base.encode(e)
	a.Index.encode(e)
}

func (p *ParamRef) encode(e *encoder) {
	e.tag(KindParamRef)
	e.int(int64(p.Index))
	e.str(p.Typ.String())
}

func (f *FieldRef) encode(e *encoder) {
	e.tag(KindFieldRef)
	e.int(int64(f.FieldID))
	e.str(f.Typ.String())
}
