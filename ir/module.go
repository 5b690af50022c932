package ir

import (
	"strings"

	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// Var is a named storage location: a global, a parameter or a local.
// Names are unique within their function (locals) or module (globals).
type Var struct {
	Name   string
	Type   types.Type
	Attrs  types.Attrs
	Global bool
	Param  bool
	Index  int  // parameter index when Param
	Extern bool // declared but defined elsewhere
	Static bool
	Init   Expr // constant initializer of a global
	Loc    token.Pos
}

func NewVar(name string, t types.Type) *Var {
	return &Var{Name: name, Type: t, Attrs: types.NewAttrs()}
}

// IsBoundary reports whether v is a synthesized shadow boundary variable.
func (v *Var) IsBoundary() bool {
	return strings.HasPrefix(v.Name, types.BoundaryPrefix)
}

type Func struct {
	Name   string
	Sig    *types.Func
	Params []*Var
	Locals []*Var
	// Entry runs before Body: shadow variable initialization and parameter
	// bounds.
	Entry   []Stmt
	Body    []Stmt
	Defined bool
	Static  bool
	Loc     token.Pos
}

// AddLocal registers a new local variable.
func (f *Func) AddLocal(v *Var) *Var {
	f.Locals = append(f.Locals, v)
	return v
}

// Local returns the local or parameter named name.
func (f *Func) Local(name string) *Var {
	for _, v := range f.Params {
		if v.Name == name {
			return v
		}
	}
	for _, v := range f.Locals {
		if v.Name == name {
			return v
		}
	}
	return nil
}

type Module struct {
	Name    string
	Structs []*types.Struct
	Globals []*Var
	Funcs   []*Func
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

func (m *Module) Func(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (m *Module) Global(name string) *Var {
	for _, v := range m.Globals {
		if v.Name == name {
			return v
		}
	}
	return nil
}
