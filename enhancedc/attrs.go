package enhancedc

import (
	"log/slog"
	"strconv"

	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

const (
	AttrNonnull        = "nonnull"
	AttrReturnsNonnull = "returns_nonnull"
)

// boundaryAttr describes one spelling of the boundary attribute family.
type boundaryAttr struct {
	byted   bool // length in bytes, not elements
	index   bool // length given as a 1-based sibling index
	returns bool // applies to the return value
}

var boundaryAttrs = map[string]boundaryAttr{
	"count":                    {},
	"byte_count":               {byted: true},
	"count_index":              {index: true},
	"byte_count_index":         {byted: true, index: true},
	"returns_count":            {returns: true},
	"returns_byte_count":       {byted: true, returns: true},
	"returns_count_index":      {index: true, returns: true},
	"returns_byte_count_index": {byted: true, index: true, returns: true},
}

// FuncTarget is a function declaration or function pointer type whose
// signature receives extracted attributes.
type FuncTarget struct {
	Name   string
	Pos    token.Pos
	Sig    *types.Func
	Params []*ast.ParamDecl
	Attrs  []*ast.Attribute // function-level attributes
	Decl   *ast.FuncDecl    // nil for function pointer types
}

func slotName(idx int) string {
	if idx == types.ReturnIndex {
		return "return"
	}
	return "param" + strconv.Itoa(idx)
}

// ExtractFunc reads the safety attributes of a function and its parameters
// and records the resolved contracts on ft.Sig.
func (mc *ModuleContext) ExtractFunc(ft *FuncTarget) {
	infos := make(map[int]*ast.BoundaryInfo)
	for i, pd := range ft.Params {
		for _, a := range pd.Attrs {
			mc.paramAttr(ft, i, a, infos)
		}
	}
	for _, a := range ft.Attrs {
		mc.funcAttr(ft, a, infos)
	}
	for i := range ft.Sig.Params {
		if bi := infos[i]; bi != nil {
			mc.ProcessBoundaryLenExprInFunc(ft, i, bi)
		}
	}
	if bi := infos[types.ReturnIndex]; bi != nil {
		mc.ProcessBoundaryLenExprInFunc(ft, types.ReturnIndex, bi)
	}
}

// paramAttr handles an attribute written on a single parameter.
func (mc *ModuleContext) paramAttr(ft *FuncTarget, i int, a *ast.Attribute, infos map[int]*ast.BoundaryInfo) {
	if a.Name == AttrNonnull {
		if len(a.Args) > 0 {
			mc.Diag.Errorf(a.Token.Pos, diag.CodeAttrUnknownArg, "nonnull on a parameter takes no arguments")
			return
		}
		mc.setNonnull(ft, i, a.Token.Pos)
		return
	}
	ba, ok := boundaryAttrs[a.Name]
	if !ok {
		slog.Debug("ignoring attribute", "name", a.Name, "pos", a.Token.Pos.String())
		return
	}
	if ba.returns {
		mc.Diag.Errorf(a.Token.Pos, diag.CodeAttrTarget, "%s applies to functions, not parameters", a.Name)
		return
	}
	if len(a.Args) != 1 {
		mc.Diag.Errorf(a.Token.Pos, diag.CodeAttrUnknownArg, "%s on a parameter takes exactly one argument", a.Name)
		return
	}
	bi, ok := mc.boundaryInfo(a, ba, len(ft.Sig.Params))
	if ok {
		mc.noteLiteralCount(a, ba, ft.Sig.Params)
		infos[i] = bi
	}
}

// funcAttr handles a function-level attribute. Without an explicit target
// list, nonnull and boundary attributes apply to every pointer parameter.
func (mc *ModuleContext) funcAttr(ft *FuncTarget, a *ast.Attribute, infos map[int]*ast.BoundaryInfo) {
	pos := a.Token.Pos
	switch a.Name {
	case AttrNonnull:
		if len(a.Args) == 0 {
			for i, t := range ft.Sig.Params {
				if types.IsPointer(t) {
					mc.setNonnull(ft, i, pos)
				}
			}
			return
		}
		for _, arg := range a.Args {
			if i, ok := mc.indexArg(a, arg, len(ft.Sig.Params)); ok {
				mc.setNonnull(ft, i, pos)
			}
		}
		return
	case AttrReturnsNonnull:
		mc.setNonnull(ft, types.ReturnIndex, pos)
		return
	}

	ba, ok := boundaryAttrs[a.Name]
	if !ok {
		slog.Debug("ignoring attribute", "name", a.Name, "pos", pos.String())
		return
	}
	if len(a.Args) == 0 {
		mc.Diag.Errorf(pos, diag.CodeAttrUnknownArg, "%s requires a length argument", a.Name)
		return
	}
	bi, ok := mc.boundaryInfo(a, ba, len(ft.Sig.Params))
	if !ok {
		return
	}
	mc.noteLiteralCount(a, ba, ft.Sig.Params)
	if ba.returns {
		if len(a.Args) > 1 {
			mc.Diag.Errorf(pos, diag.CodeAttrUnknownArg, "%s takes exactly one argument", a.Name)
			return
		}
		infos[types.ReturnIndex] = bi
		return
	}
	if len(a.Args) == 1 {
		for i, t := range ft.Sig.Params {
			if types.IsPointer(t) {
				infos[i] = bi
			}
		}
		return
	}
	for _, arg := range a.Args[1:] {
		if i, ok := mc.indexArg(a, arg, len(ft.Sig.Params)); ok {
			infos[i] = bi
		}
	}
}

// boundaryInfo builds the normalized length from the first attribute
// argument.
func (mc *ModuleContext) boundaryInfo(a *ast.Attribute, ba boundaryAttr, nparams int) (*ast.BoundaryInfo, bool) {
	bi := ast.NewBoundaryInfo(a.Token.Pos)
	bi.IsBytedLen = ba.byted
	if !ba.index {
		bi.LenExpr = a.Args[0]
		return bi, true
	}
	idx, ok := mc.indexArg(a, a.Args[0], nparams)
	if !ok {
		return nil, false
	}
	bi.LenParamIdx = idx
	return bi, true
}

// noteLiteralCount warns when a constant length could be misread as a
// parameter index, as in count(1) next to an integer first parameter.
func (mc *ModuleContext) noteLiteralCount(a *ast.Attribute, ba boundaryAttr, params []types.Type) {
	if ba.index {
		return
	}
	lit, ok := a.Args[0].(*ast.IntegerLiteral)
	if !ok || lit.Value < 1 || lit.Value > int64(len(params)) || !types.IsInteger(params[lit.Value-1]) {
		return
	}
	mc.Diag.Warnf(lit.Token.Pos, diag.CodeAttrIndex, "%s(%d) is a constant length of %d; write %s_index(%d) for the length in parameter %d",
		a.Name, lit.Value, lit.Value, a.Name, lit.Value, lit.Value)
}

// indexArg converts a 1-based source index into a 0-based one.
func (mc *ModuleContext) indexArg(a *ast.Attribute, arg ast.Expression, n int) (int, bool) {
	lit, ok := arg.(*ast.IntegerLiteral)
	if !ok {
		mc.Diag.Errorf(a.Token.Pos, diag.CodeAttrUnknownArg, "%s: index %s is not an integer constant", a.Name, arg)
		return 0, false
	}
	if lit.Value < 1 || lit.Value > int64(n) {
		mc.Diag.Errorf(lit.Token.Pos, diag.CodeAttrIndex, "%s: index %d out of range [1, %d]", a.Name, lit.Value, n)
		return 0, false
	}
	return int(lit.Value) - 1, true
}

func (mc *ModuleContext) setNonnull(ft *FuncTarget, idx int, pos token.Pos) {
	t := ft.Sig.Ret
	if idx != types.ReturnIndex {
		t = ft.Sig.Params[idx]
	}
	if !types.IsPointer(t) {
		mc.Diag.Errorf(pos, diag.CodeAttrTarget, "nonnull on %s of %s requires a pointer type, got %s", slotName(idx), ft.Name, t)
		return
	}
	ft.Sig.Attrs.Slot(idx).Nonnull = true
	if idx == types.ReturnIndex {
		if ft.Decl != nil {
			ft.Decl.ReturnsNonnull = true
		}
	} else if idx < len(ft.Params) {
		ft.Params[idx].Nonnull = true
	}
}

// ProcessBoundaryLenExprInFunc resolves the boundary of parameter idx, or of
// the return value when idx is types.ReturnIndex, and records it on the
// signature.
func (mc *ModuleContext) ProcessBoundaryLenExprInFunc(ft *FuncTarget, idx int, bi *ast.BoundaryInfo) bool {
	declType := ft.Sig.Ret
	if idx != types.ReturnIndex {
		declType = ft.Sig.Params[idx]
	}
	owner := &LenOwner{Kind: OwnerFunc, Name: ft.Name, Sig: ft.Sig, Params: ft.Params}
	length := mc.Resolve(owner, slotName(idx), declType, bi, !bi.IsBytedLen)
	if length == nil {
		return false
	}
	slot := ft.Sig.Attrs.Slot(idx)
	slot.HasBoundary = true
	slot.LenHash = length.Hash()
	slot.LenParamIdx = bi.LenParamIdx
	slot.IsBytedLen = bi.IsBytedLen
	if idx == types.ReturnIndex {
		if ft.Decl != nil {
			ft.Decl.ReturnBoundary = bi
		}
	} else if idx < len(ft.Params) {
		ft.Params[idx].Boundary = bi
	}
	return true
}

// ExtractStruct reads the attributes of the direct members of st. decls
// parallels st.Fields.
func (mc *ModuleContext) ExtractStruct(st *types.Struct, decls []*ast.FieldDecl) {
	owner := &LenOwner{Kind: OwnerStruct, Name: st.Name, Struct: st}
	for i, fd := range decls {
		f := st.Fields[i]
		for _, a := range fd.Attrs {
			bi, ok := mc.memberAttr(a, f.Name, f.Type, len(st.Fields))
			if !ok {
				continue
			}
			if bi == nil {
				f.Attrs.Nonnull = true
				fd.Nonnull = true
				continue
			}
			length := mc.Resolve(owner, f.Name, f.Type, bi, !bi.IsBytedLen)
			if length == nil {
				continue
			}
			f.Attrs.HasBoundary = true
			f.Attrs.LenHash = length.Hash()
			f.Attrs.LenParamIdx = bi.LenParamIdx
			f.Attrs.IsBytedLen = bi.IsBytedLen
			fd.Boundary = bi
		}
	}
}

// ExtractVar reads the attributes of a variable declaration. lookup resolves
// the identifiers a length expression names.
func (mc *ModuleContext) ExtractVar(v *ir.Var, vd *ast.VarDecl, lookup func(name string) (ir.Expr, bool)) {
	owner := &LenOwner{Kind: OwnerVar, Name: v.Name, Var: v, Lookup: lookup}
	for _, a := range vd.Attrs {
		bi, ok := mc.memberAttr(a, v.Name, v.Type, 0)
		if !ok {
			continue
		}
		if bi == nil {
			v.Attrs.Nonnull = true
			vd.Nonnull = true
			continue
		}
		length := mc.Resolve(owner, v.Name, v.Type, bi, !bi.IsBytedLen)
		if length == nil {
			continue
		}
		v.Attrs.HasBoundary = true
		v.Attrs.LenHash = length.Hash()
		v.Attrs.IsBytedLen = bi.IsBytedLen
		vd.Boundary = bi
	}
}

// memberAttr parses an attribute of a field or variable. It returns a nil
// info for nonnull.
func (mc *ModuleContext) memberAttr(a *ast.Attribute, name string, t types.Type, nsiblings int) (*ast.BoundaryInfo, bool) {
	pos := a.Token.Pos
	if a.Name == AttrNonnull {
		if !types.IsPointer(t) {
			mc.Diag.Errorf(pos, diag.CodeAttrTarget, "nonnull on %s requires a pointer type, got %s", name, t)
			return nil, false
		}
		return nil, true
	}
	ba, ok := boundaryAttrs[a.Name]
	if !ok {
		slog.Debug("ignoring attribute", "name", a.Name, "pos", pos.String())
		return nil, false
	}
	if ba.returns {
		mc.Diag.Errorf(pos, diag.CodeAttrTarget, "%s applies to functions, not %s", a.Name, name)
		return nil, false
	}
	if len(a.Args) != 1 {
		mc.Diag.Errorf(pos, diag.CodeAttrUnknownArg, "%s on %s takes exactly one argument", a.Name, name)
		return nil, false
	}
	if ba.index && nsiblings == 0 {
		mc.Diag.Errorf(pos, diag.CodeAttrIndex, "%s is only valid on parameters and fields, not on variable %s", a.Name, name)
		return nil, false
	}
	return mc.boundaryInfo(a, ba, nsiblings)
}
