package compiler

import (
	"slices"
	"strconv"

	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/enhancedc"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// resolveType maps a syntactic type to a types.Type. It reports an error and
// returns nil for invalid types.
func (c *Compiler) resolveType(t ast.TypeExpr) types.Type {
	switch t := t.(type) {
	case *ast.BaseType:
		return c.baseType(t)
	case *ast.StructType:
		return c.resolveStruct(t)
	case *ast.PointerType:
		if ft, ok := t.Elem.(*ast.FuncType); ok {
			sig := c.funcTypeSig(ft, "function pointer")
			if sig == nil {
				return nil
			}
			return types.Ptr{Elem: sig}
		}
		elem := c.resolveType(t.Elem)
		if elem == nil {
			return nil
		}
		return types.Ptr{Elem: elem}
	case *ast.ArrayType:
		elem := c.resolveType(t.Elem)
		if elem == nil {
			return nil
		}
		if elem.Kind() == types.VoidKind || elem.Kind() == types.FuncKind {
			c.errorf(t.Token, "array of %s", elem)
			return nil
		}
		if t.Len == nil {
			return types.Array{Elem: elem}
		}
		n, ok := c.constInt(t.Len)
		if !ok || n <= 0 {
			c.errorf(t.Token, "array length must be a positive integer constant")
			return nil
		}
		return types.Array{Elem: elem, Len: n}
	case *ast.FuncType:
		sig := c.funcSig(t)
		if sig == nil {
			return nil
		}
		return sig
	}
	panic("unknown type expression")
}

func (c *Compiler) baseType(bt *ast.BaseType) types.Type {
	names := slices.Clone(bt.Names)
	unsigned := false
	names = slices.DeleteFunc(names, func(n string) bool {
		switch n {
		case "unsigned":
			unsigned = true
			return true
		case "signed":
			return true
		}
		return false
	})
	key := ""
	for i, n := range names {
		if i > 0 {
			key += " "
		}
		key += n
	}
	switch key {
	case "void":
		return types.VoidT
	case "_Bool":
		return types.Bool
	case "char":
		return types.Int{Width: 8, Unsigned: unsigned}
	case "short", "short int":
		return types.Int{Width: 16, Unsigned: unsigned}
	case "", "int":
		return types.Int{Width: 32, Unsigned: unsigned}
	case "long", "long int", "long long", "long long int":
		return types.Int{Width: 64, Unsigned: unsigned}
	case "float":
		return types.F32
	case "double":
		return types.F64
	case "long double":
		return types.Float{Width: 128}
	}
	c.errorf(bt.Token, "unknown type %q", bt.String())
	return nil
}

// resolveStruct returns the struct named by st, defining it when st carries
// a body. A body is processed once even when the same syntax is reached
// through several typedef uses.
func (c *Compiler) resolveStruct(st *ast.StructType) types.Type {
	if s, ok := c.structDefs[st]; ok {
		return s
	}
	name := st.Name
	if name == "" {
		c.anonCount++
		name = "anon." + strconv.Itoa(c.anonCount)
	}
	s, ok := c.structs[name]
	if !ok {
		s = &types.Struct{Name: name}
		c.structs[name] = s
		c.Mod.Structs = append(c.Mod.Structs, s)
	}
	if st.Fields == nil {
		return s
	}
	if s.Complete {
		c.errorf(st.Token, "redefinition of struct %s", name)
		return s
	}
	c.structDefs[st] = s
	seen := make(map[string]bool)
	for _, fd := range st.Fields {
		ft := c.resolveType(fd.Type)
		if ft == nil {
			ft = types.I32
		}
		if seen[fd.Name] {
			c.errorf(fd.Token, "duplicate member %s", fd.Name)
		}
		seen[fd.Name] = true
		if inner, ok := ft.(*types.Struct); ok && (!inner.Complete || inner == s) {
			c.errorf(fd.Token, "member %s has incomplete type %s", fd.Name, inner)
		}
		f := &types.Field{Name: fd.Name, Type: ft, Attrs: types.NewAttrs()}
		s.Fields = append(s.Fields, f)
	}
	s.Complete = true
	if c.Enc.Opts.Enabled() {
		c.Enc.ExtractStruct(s, st.Fields)
	}
	return s
}

// funcSig builds a signature without reading attributes.
func (c *Compiler) funcSig(ft *ast.FuncType) *types.Func {
	ret := c.resolveType(ft.Ret)
	if ret == nil {
		return nil
	}
	if ret.Kind() == types.ArrayKind || ret.Kind() == types.FuncKind {
		c.errorf(ft.Token, "function cannot return %s", ret)
		return nil
	}
	params := make([]types.Type, len(ft.Params))
	for i, pd := range ft.Params {
		pt := c.resolveType(pd.Type)
		if pt == nil {
			return nil
		}
		params[i] = pt
	}
	return types.NewFunc(ret, params, ft.Variadic)
}

// funcTypeSig builds the signature of a function pointer type and reads the
// attributes of its parameters.
func (c *Compiler) funcTypeSig(ft *ast.FuncType, name string) *types.Func {
	sig := c.funcSig(ft)
	if sig != nil && c.Enc.Opts.Enabled() {
		c.Enc.ExtractFunc(&enhancedc.FuncTarget{Name: name, Pos: ft.Token.Pos, Sig: sig, Params: ft.Params})
	}
	return sig
}

// completeArray fills in the length of an unsized array from a string
// initializer.
func (c *Compiler) completeArray(t types.Type, init ast.Expression) types.Type {
	arr, ok := t.(types.Array)
	if !ok || arr.Len != 0 {
		return t
	}
	if s, ok := init.(*ast.StringLiteral); ok {
		arr.Len = int64(len(s.Value)) + 1
		return arr
	}
	return t
}

// constInt evaluates an integer constant expression.
func (c *Compiler) constInt(e ast.Expression) (int64, bool) {
	var v ir.Expr
	c.noChecks++
	stmts := c.collect(func() { v = c.expr(e) })
	c.noChecks--
	k, ok := foldConst(v).(*ir.Const)
	if len(stmts) > 0 || !ok || !types.IsInteger(k.Typ) {
		return 0, false
	}
	return k.Val, true
}

// sizeOf returns the storage size of t for sizeof.
func (c *Compiler) sizeOf(tok token.Token, t types.Type) ir.Expr {
	switch {
	case t.Kind() == types.FuncKind || t.Kind() == types.VoidKind:
		c.errorf(tok, "invalid application of sizeof to %s", t)
	case t.Kind() == types.StructKind && !t.(*types.Struct).Complete:
		c.errorf(tok, "invalid application of sizeof to incomplete %s", t)
	}
	return ir.NewInt(t.Size(), types.SizeT)
}
