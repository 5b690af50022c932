package types

import (
	"fmt"
	"strings"
)

type Kind int

const (
	VoidKind Kind = iota
	IntKind
	FloatKind
	PtrKind
	ArrayKind
	StructKind
	FuncKind
)

// Type is the interface for all C types known to the compiler.
type Type interface {
	String() string
	Kind() Kind
	// Size is the storage size in bytes.
	Size() int64
}

// Common concrete types for readability.
var (
	VoidT  Type = Void{}
	Bool   Type = Int{Width: 8, Unsigned: true}
	Char   Type = Int{Width: 8}
	I16    Type = Int{Width: 16}
	I32    Type = Int{Width: 32}
	I64    Type = Int{Width: 64}
	U32    Type = Int{Width: 32, Unsigned: true}
	U64    Type = Int{Width: 64, Unsigned: true}
	SizeT  Type = U64
	F32    Type = Float{Width: 32}
	F64    Type = Float{Width: 64}
	VoidPt Type = Ptr{Elem: Void{}}
)

// PointerSize is the target pointer width in bytes.
const PointerSize = 8

type Void struct{}

func (v Void) Kind() Kind     { return VoidKind }
func (v Void) String() string { return "void" }
func (v Void) Size() int64    { return 1 }

// Int represents an integer type with a given bit width.
type Int struct {
	Width    uint32 // 8, 16, 32, 64
	Unsigned bool
}

func (i Int) String() string {
	if i.Unsigned {
		return fmt.Sprintf("u%d", i.Width)
	}
	return fmt.Sprintf("i%d", i.Width)
}

func (i Int) Kind() Kind  { return IntKind }
func (i Int) Size() int64 { return int64(i.Width) / 8 }

// Float represents a floating-point type. long double is Float{Width: 128}
// and is widened to a 64-bit double on the target.
type Float struct {
	Width uint32
}

func (f Float) String() string { return fmt.Sprintf("f%d", f.Width) }
func (f Float) Kind() Kind     { return FloatKind }
func (f Float) Size() int64 {
	if f.Width > 64 {
		return 8
	}
	return int64(f.Width) / 8
}

// Ptr represents a pointer type to some element type.
type Ptr struct {
	Elem Type
}

func (p Ptr) String() string {
	if s, ok := p.Elem.(*Struct); ok {
		return "ptr<" + s.String() + ">"
	}
	return "ptr<" + p.Elem.String() + ">"
}
func (p Ptr) Kind() Kind  { return PtrKind }
func (p Ptr) Size() int64 { return PointerSize }

// Array is a C array; Len 0 means the length is unknown.
type Array struct {
	Elem Type
	Len  int64
}

func (a Array) String() string { return fmt.Sprintf("[%d]%s", a.Len, a.Elem.String()) }
func (a Array) Kind() Kind     { return ArrayKind }
func (a Array) Size() int64    { return a.Len * a.Elem.Size() }

// Field is one direct member of a struct.
type Field struct {
	Name  string
	Type  Type
	Attrs Attrs
}

// Struct is a named struct. Fields are addressed by flattened field ids:
// ids are assigned 1-based in depth-first order and descend into members
// of nested struct type, so field id k of a struct member m at id j in the
// enclosing struct is j+k there.
type Struct struct {
	Name     string
	Fields   []*Field
	Complete bool
}

func (s *Struct) String() string { return "struct " + s.Name }
func (s *Struct) Kind() Kind     { return StructKind }

func (s *Struct) Size() int64 {
	var off int64
	for _, f := range s.Fields {
		off = alignUp(off, Align(f.Type)) + f.Type.Size()
	}
	return alignUp(off, Align(s))
}

// NumFieldIDs is the number of flattened field ids of the struct.
func (s *Struct) NumFieldIDs() int {
	n := 0
	for _, f := range s.Fields {
		n++
		if st, ok := f.Type.(*Struct); ok {
			n += st.NumFieldIDs()
		}
	}
	return n
}

// FieldID returns the flattened id of the direct member name.
func (s *Struct) FieldID(name string) (int, *Field, bool) {
	id := 1
	for _, f := range s.Fields {
		if f.Name == name {
			return id, f, true
		}
		id++
		if st, ok := f.Type.(*Struct); ok {
			id += st.NumFieldIDs()
		}
	}
	return 0, nil, false
}

// FieldByID resolves a flattened id. It returns the struct that directly
// owns the field, the id of the owner within s (0 when s owns it) and the
// field.
func (s *Struct) FieldByID(id int) (owner *Struct, base int, f *Field, ok bool) {
	next := 1
	for _, fld := range s.Fields {
		if next == id {
			return s, 0, fld, true
		}
		st, nested := fld.Type.(*Struct)
		next++
		if !nested {
			continue
		}
		if id < next+st.NumFieldIDs() {
			o, b, f, ok := st.FieldByID(id - next + 1)
			if !ok {
				return nil, 0, nil, false
			}
			return o, b + next - 1, f, true
		}
		next += st.NumFieldIDs()
	}
	return nil, 0, nil, false
}

// FieldIndex returns the direct member index for a flattened id owned by s.
func (s *Struct) FieldIndex(id int) int {
	next := 1
	for i, fld := range s.Fields {
		if next == id {
			return i
		}
		next++
		if st, ok := fld.Type.(*Struct); ok {
			next += st.NumFieldIDs()
		}
	}
	return -1
}

// FieldType returns the type of flattened field id; id 0 is s itself.
func (s *Struct) FieldType(id int) Type {
	if id == 0 {
		return s
	}
	_, _, f, ok := s.FieldByID(id)
	if !ok {
		panic(fmt.Sprintf("field id %d out of range for %s", id, s))
	}
	return f.Type
}

// Offset returns the byte offset of flattened field id.
func (s *Struct) Offset(id int) int64 {
	if id == 0 {
		return 0
	}
	var off int64
	next := 1
	for _, fld := range s.Fields {
		off = alignUp(off, Align(fld.Type))
		if next == id {
			return off
		}
		next++
		if st, ok := fld.Type.(*Struct); ok {
			if id < next+st.NumFieldIDs() {
				return off + st.Offset(id-next+1)
			}
			next += st.NumFieldIDs()
		}
		off += fld.Type.Size()
	}
	panic(fmt.Sprintf("field id %d out of range for %s", id, s))
}

// Func is a function signature together with its safety attributes.
type Func struct {
	Ret      Type
	Params   []Type
	Variadic bool
	Attrs    FuncAttrs
}

func NewFunc(ret Type, params []Type, variadic bool) *Func {
	return &Func{Ret: ret, Params: params, Variadic: variadic, Attrs: NewFuncAttrs(len(params))}
}

func (f *Func) String() string {
	parts := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		parts = append(parts, p.String())
	}
	if f.Variadic {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("func(%s) %s", strings.Join(parts, ", "), f.Ret.String())
}
func (f *Func) Kind() Kind  { return FuncKind }
func (f *Func) Size() int64 { return 1 }

func alignUp(off, align int64) int64 {
	if align <= 1 {
		return off
	}
	return (off + align - 1) / align * align
}

// Align returns the alignment of t in bytes.
func Align(t Type) int64 {
	switch tt := t.(type) {
	case Array:
		return Align(tt.Elem)
	case *Struct:
		a := int64(1)
		for _, f := range tt.Fields {
			a = max(a, Align(f.Type))
		}
		return a
	case Void, *Func:
		return 1
	}
	return max(t.Size(), 1)
}

func IsPointer(t Type) bool { return t.Kind() == PtrKind }
func IsInteger(t Type) bool { return t.Kind() == IntKind }
func IsFloat(t Type) bool   { return t.Kind() == FloatKind }

func IsScalar(t Type) bool {
	switch t.Kind() {
	case IntKind, FloatKind, PtrKind:
		return true
	}
	return false
}

// IsFuncPointer reports whether t is a pointer to a function.
func IsFuncPointer(t Type) bool {
	p, ok := t.(Ptr)
	if !ok {
		return false
	}
	_, ok = p.Elem.(*Func)
	return ok
}

// Pointee returns the element type of a pointer type.
func Pointee(t Type) Type {
	p, ok := t.(Ptr)
	if !ok {
		panic("must be pointer type!")
	}
	return p.Elem
}

// ElemSize is the byte size of one element addressed by pointer type t.
// void pointers step by one byte.
func ElemSize(t Type) int64 {
	elem := Pointee(t)
	if elem.Kind() == VoidKind || elem.Kind() == FuncKind {
		return 1
	}
	return elem.Size()
}

// Equal reports structural type identity. Structs compare by identity.
func Equal(a, b Type) bool {
	switch at := a.(type) {
	case Ptr:
		bt, ok := b.(Ptr)
		return ok && Equal(at.Elem, bt.Elem)
	case Array:
		bt, ok := b.(Array)
		return ok && at.Len == bt.Len && Equal(at.Elem, bt.Elem)
	case *Func:
		bt, ok := b.(*Func)
		if !ok || at.Variadic != bt.Variadic || len(at.Params) != len(bt.Params) || !Equal(at.Ret, bt.Ret) {
			return false
		}
		for i := range at.Params {
			if !Equal(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}
