package enhancedc

import (
	"fmt"
	"log/slog"

	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// Pair is the shadow lower/upper bound of one pointer expression.
type Pair struct {
	Lower *ir.Var
	Upper *ir.Var
}

// LowerSentinel is the value of a lower bound that was never set. No
// address compares unsigned greater or equal to it except itself.
func LowerSentinel(t types.Type) ir.Expr { return ir.NewInt(-1, t) }

// UpperSentinel is the value of an upper bound that was never set. No
// address compares unsigned less than it.
func UpperSentinel(t types.Type) ir.Expr { return ir.Null(t) }

// Lookup returns the pair tracking e, if any. Function pairs shadow the
// module-level pairs of globals.
func (fc *FuncContext) Lookup(e ir.Expr) (Pair, bool) {
	h := e.Hash()
	if p, ok := fc.pairs[h]; ok {
		return p, true
	}
	if g := fc.Mod.globals; g != fc {
		p, ok := g.pairs[h]
		return p, ok
	}
	return Pair{}, false
}

// GetOrCreate returns the pair tracking e, creating it on first use. Pairs
// of expressions rooted in a global variable are module globals; all others
// are function locals initialized to the sentinels on entry.
func (fc *FuncContext) GetOrCreate(e ir.Expr) Pair {
	if p, ok := fc.Lookup(e); ok {
		return p
	}
	owner := fc
	if fc.Fn == nil || rootedInGlobal(e) {
		owner = fc.Mod.globals
	}
	h := e.Hash()
	name := pairName(e, h)
	t := e.Type()
	p := Pair{
		Lower: ir.NewVar(name+".lower", t),
		Upper: ir.NewVar(name+".upper", t),
	}
	if owner.Fn == nil {
		for _, v := range []*ir.Var{p.Lower, p.Upper} {
			v.Global = true
			v.Static = true
		}
		p.Lower.Init = LowerSentinel(t)
		p.Upper.Init = UpperSentinel(t)
		fc.Mod.Mod.Globals = append(fc.Mod.Mod.Globals, p.Lower, p.Upper)
	} else {
		owner.Fn.AddLocal(p.Lower)
		owner.Fn.AddLocal(p.Upper)
		owner.sentinel = append(owner.sentinel,
			&ir.Assign{Dst: p.Lower, Src: LowerSentinel(t)},
			&ir.Assign{Dst: p.Upper, Src: UpperSentinel(t)},
		)
	}
	owner.pairs[h] = p
	slog.Debug("boundary pair", "expr", e.String(), "name", name)
	return p
}

func pairName(e ir.Expr, h uint64) string {
	short := uint32(h)
	switch x := e.(type) {
	case *ir.DRead:
		return fmt.Sprintf("%s%s.%d.%08x", types.BoundaryPrefix, x.Var.Name, x.FieldID, short)
	case *ir.IRead:
		if st, ok := types.Pointee(x.Addr.Type()).(*types.Struct); ok && x.FieldID != 0 {
			_, _, f, _ := st.FieldByID(x.FieldID)
			return fmt.Sprintf("%s%s.%s.%08x", types.BoundaryPrefix, st.Name, f.Name, short)
		}
		return fmt.Sprintf("%sderef.%08x", types.BoundaryPrefix, short)
	}
	return fmt.Sprintf("%sexpr.%08x", types.BoundaryPrefix, short)
}

func rootedInGlobal(e ir.Expr) bool {
	switch x := e.(type) {
	case *ir.DRead:
		return x.Var.Global
	case *ir.AddrOf:
		return x.Var.Global
	}
	return false
}

// Assign updates the bounds of dst after the pointer assignment dst = src.
// dstLen is the declared length of dst in bytes, nil when dst declares no
// boundary. Each assignment derives the bounds from src alone; nothing is
// merged across control flow.
func (fc *FuncContext) Assign(dst, src, dstLen ir.Expr, loc token.Pos) []ir.Stmt {
	if !fc.BoundaryOn() {
		return nil
	}
	dt, st := dst.Type(), src.Type()
	if !types.IsPointer(dt) || !types.IsPointer(st) || types.IsFuncPointer(dt) || types.IsFuncPointer(st) {
		return nil
	}
	if d, ok := dst.(*ir.DRead); ok && d.Var.IsBoundary() {
		return nil
	}
	base := FindBase(src, true)
	if base == nil || base.Hash() == dst.Hash() {
		return nil
	}

	srcPair, tracked := fc.Lookup(base)
	size, sized := staticSize(base)
	declared := fc.DeclaredLen(base)
	scalar, isScalar := scalarSize(base)
	if !tracked && !sized && declared == nil && !isScalar && dstLen == nil {
		return nil
	}

	p := fc.GetOrCreate(dst)
	var lower, upper ir.Expr
	switch {
	case tracked:
		lower = ir.NewDRead(srcPair.Lower, 0)
		upper = ir.NewDRead(srcPair.Upper, 0)
	case sized:
		lower = base
		upper = addPtr(base, ir.NewInt(size, types.SizeT))
	case declared != nil:
		lower = base
		upper = addPtr(base, declared)
	case isScalar:
		lower = base
		upper = addPtr(base, ir.NewInt(scalar, types.SizeT))
	default:
		lower = base
		upper = UpperSentinel(dt)
	}
	if dstLen != nil {
		upper = addPtr(ir.NewDRead(p.Lower, 0), dstLen)
	}
	return []ir.Stmt{
		&ir.Assign{Dst: p.Lower, Src: convert(lower, p.Lower.Type), Loc: loc},
		&ir.Assign{Dst: p.Upper, Src: convert(upper, p.Upper.Type), Loc: loc},
	}
}

// staticSize returns the byte size of the array an address-of base names.
func staticSize(base ir.Expr) (int64, bool) {
	var target types.Type
	switch x := base.(type) {
	case *ir.AddrOf:
		target = x.Target()
	case *ir.IAddrOf:
		target = x.Target()
	default:
		return 0, false
	}
	arr, ok := target.(types.Array)
	if !ok || arr.Len == 0 {
		return 0, false
	}
	return arr.Size(), true
}

// scalarSize treats the address of a non-array object as a one element array.
func scalarSize(base ir.Expr) (int64, bool) {
	var target types.Type
	switch x := base.(type) {
	case *ir.AddrOf:
		target = x.Target()
	case *ir.IAddrOf:
		target = x.Target()
	default:
		return 0, false
	}
	if target.Kind() == types.ArrayKind {
		return 0, false
	}
	return target.Size(), true
}

// DeclaredLen returns the declared byte length of the pointer read e
// evaluated at the current point, or nil when e carries no boundary
// attribute.
func (fc *FuncContext) DeclaredLen(e ir.Expr) ir.Expr {
	switch x := e.(type) {
	case *ir.DRead:
		v := x.Var
		if x.FieldID != 0 {
			st := v.Type.(*types.Struct)
			return fc.fieldLen(st, x.FieldID, func(id int) ir.Expr { return ir.NewDRead(v, id) })
		}
		if v.Param && fc.Fn != nil {
			return fc.paramLen(v.Index)
		}
		if v.Attrs.HasBoundary {
			tmpl, ok := fc.Mod.Lens.Get(v.Attrs.LenHash)
			if ok {
				return tmpl
			}
		}
	case *ir.IRead:
		if x.FieldID == 0 {
			return nil
		}
		st, ok := types.Pointee(x.Addr.Type()).(*types.Struct)
		if !ok {
			panic("must be struct type!")
		}
		addr := x.Addr
		return fc.fieldLen(st, x.FieldID, func(id int) ir.Expr { return ir.NewIRead(addr, id) })
	}
	return nil
}

func (fc *FuncContext) fieldLen(st *types.Struct, id int, read func(int) ir.Expr) ir.Expr {
	_, base, f, ok := st.FieldByID(id)
	if !ok || !f.Attrs.HasBoundary {
		return nil
	}
	tmpl, ok := fc.Mod.Lens.Get(f.Attrs.LenHash)
	if !ok {
		return nil
	}
	return RealLenExprInField(tmpl, func(k int) ir.Expr { return read(base + k) })
}

// paramLen instantiates the length of parameter idx (or the return slot)
// with the function's own parameters.
func (fc *FuncContext) paramLen(idx int) ir.Expr {
	slot := fc.Fn.Sig.Attrs.Slot(idx)
	if !slot.HasBoundary {
		return nil
	}
	tmpl, ok := fc.Mod.Lens.Get(slot.LenHash)
	if !ok {
		return nil
	}
	args := make([]ir.Expr, len(fc.Fn.Params))
	for i, p := range fc.Fn.Params {
		args[i] = ir.NewDRead(p, 0)
	}
	return RealLenExprInFunc(tmpl, args)
}

// InitParams binds the pairs of boundary-carrying parameters on entry.
func (fc *FuncContext) InitParams() {
	if !fc.BoundaryOn() {
		return
	}
	for _, p := range fc.Fn.Params {
		length := fc.paramLen(p.Index)
		if length == nil {
			continue
		}
		read := ir.NewDRead(p, 0)
		pair := fc.GetOrCreate(read)
		fc.prologue = append(fc.prologue,
			&ir.Assign{Dst: pair.Lower, Src: read, Loc: p.Loc},
			&ir.Assign{Dst: pair.Upper, Src: addPtr(read, length), Loc: p.Loc},
		)
	}
}

// BindCallResult binds the pair of a call result whose callee declares a
// returned length.
func (fc *FuncContext) BindCallResult(call *ir.Call) []ir.Stmt {
	if !fc.BoundaryOn() || call.Result == nil || !call.Sig.Attrs.Ret.HasBoundary {
		return nil
	}
	tmpl, ok := fc.Mod.Lens.Get(call.Sig.Attrs.Ret.LenHash)
	if !ok {
		return nil
	}
	length := RealLenExprInFunc(tmpl, call.Args)
	read := ir.NewDRead(call.Result, 0)
	p := fc.GetOrCreate(read)
	return []ir.Stmt{
		&ir.Assign{Dst: p.Lower, Src: read, Loc: call.Loc},
		&ir.Assign{Dst: p.Upper, Src: addPtr(read, length), Loc: call.Loc},
	}
}

// NoteStore warns when a value some boundary uses as its length is
// reassigned.
func (fc *FuncContext) NoteStore(v *ir.Var, fieldID int, loc token.Pos) {
	if !fc.BoundaryOn() || v.IsBoundary() {
		return
	}
	final := false
	if fieldID != 0 {
		if st, ok := v.Type.(*types.Struct); ok {
			if _, _, f, ok := st.FieldByID(fieldID); ok {
				final = f.Attrs.FinalBoundarySize
			}
		}
	} else {
		final = v.Attrs.FinalBoundarySize
		if v.Param && fc.Fn != nil {
			final = final || fc.Fn.Sig.Attrs.Params[v.Index].FinalBoundarySize
		}
	}
	if final {
		fc.Mod.Diag.Warnf(loc, diag.CodeFinalSize, "%s is used as a boundary length and should not be reassigned", v.Name)
	}
}

// FoldGlobalInits turns the pair updates produced while lowering global
// initializers into constant initializers of the pair variables.
func (mc *ModuleContext) FoldGlobalInits(stmts []ir.Stmt) {
	for _, s := range stmts {
		a, ok := s.(*ir.Assign)
		if !ok || !a.Dst.Global || a.FieldID != 0 {
			continue
		}
		a.Dst.Init = ir.Rewrite(a.Src, func(e ir.Expr) (ir.Expr, bool) {
			d, ok := e.(*ir.DRead)
			if ok && d.Var.IsBoundary() && d.Var.Init != nil {
				return d.Var.Init.Clone(), true
			}
			return nil, false
		})
	}
}
