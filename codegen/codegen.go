// Package codegen emits LLVM IR for an instrumented ir.Module.
//
// Pointers are opaque and all address arithmetic is done with i8 GEPs on
// byte offsets, matching the byte granular pointer arithmetic of the ir
// model. Structs are laid out as [N x i8] aggregates; their fields are
// reached through the offsets types.Struct computes.
package codegen

import (
	"fmt"

	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/types"
	"tinygo.org/x/go-llvm"
)

type loopTargets struct {
	brk  llvm.BasicBlock
	cont llvm.BasicBlock
}

type Generator struct {
	Context llvm.Context
	Module  llvm.Module
	builder llvm.Builder

	src     *ir.Module
	globals map[*ir.Var]llvm.Value
	funcs   map[string]llvm.Value

	// current function state
	fn    *ir.Func
	llfn  llvm.Value
	vars  map[*ir.Var]llvm.Value
	loops []loopTargets
}

func NewGenerator(ctx llvm.Context, m *ir.Module) *Generator {
	return &Generator{
		Context: ctx,
		Module:  ctx.NewModule(m.Name),
		builder: ctx.NewBuilder(),
		src:     m,
		globals: make(map[*ir.Var]llvm.Value),
		funcs:   make(map[string]llvm.Value),
	}
}

// Generate lowers m into a new LLVM module owned by ctx.
func Generate(ctx llvm.Context, m *ir.Module) (llvm.Module, error) {
	g := NewGenerator(ctx, m)
	if err := g.Run(); err != nil {
		return llvm.Module{}, err
	}
	return g.Module, nil
}

// Run declares every symbol first so bodies and initializers can refer to
// anything in the module, then emits definitions.
func (g *Generator) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("codegen %s: %v", g.src.Name, r)
		}
	}()
	for _, f := range g.src.Funcs {
		g.declareFunc(f)
	}
	for _, v := range g.src.Globals {
		g.declareGlobal(v)
	}
	for _, v := range g.src.Globals {
		g.initGlobal(v)
	}
	for _, f := range g.src.Funcs {
		if f.Defined {
			g.defineFunc(f)
		}
	}
	return llvm.VerifyModule(g.Module, llvm.ReturnStatusAction)
}

func (g *Generator) ptrType() llvm.Type {
	return llvm.PointerType(g.Context.Int8Type(), 0)
}

func (g *Generator) mapToLLVMType(t types.Type) llvm.Type {
	switch t := t.(type) {
	case types.Void:
		return g.Context.VoidType()
	case types.Int:
		return g.Context.IntType(int(t.Width))
	case types.Float:
		if t.Width == 32 {
			return g.Context.FloatType()
		}
		return g.Context.DoubleType()
	case types.Ptr:
		return g.ptrType()
	case types.Array:
		return llvm.ArrayType(g.mapToLLVMType(t.Elem), int(t.Len))
	case *types.Struct:
		return llvm.ArrayType(g.Context.Int8Type(), int(t.Size()))
	case *types.Func:
		return g.funcType(t)
	}
	panic(fmt.Sprintf("unsupported type %s", t))
}

func (g *Generator) funcType(sig *types.Func) llvm.Type {
	params := make([]llvm.Type, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = g.mapToLLVMType(p)
	}
	return llvm.FunctionType(g.mapToLLVMType(sig.Ret), params, sig.Variadic)
}

func setInstAlignment(inst llvm.Value, t types.Type) {
	inst.SetAlignment(int(types.Align(t)))
}

func (g *Generator) declareFunc(f *ir.Func) llvm.Value {
	if fn, ok := g.funcs[f.Name]; ok {
		return fn
	}
	fn := g.Module.NamedFunction(f.Name)
	if fn.IsNil() {
		fn = llvm.AddFunction(g.Module, f.Name, g.funcType(f.Sig))
	}
	if f.Static {
		fn.SetLinkage(llvm.InternalLinkage)
	}
	g.funcs[f.Name] = fn
	return fn
}

func (g *Generator) declareGlobal(v *ir.Var) {
	gv := llvm.AddGlobal(g.Module, g.mapToLLVMType(v.Type), v.Name)
	gv.SetAlignment(int(types.Align(v.Type)))
	if v.Static {
		gv.SetLinkage(llvm.InternalLinkage)
	}
	g.globals[v] = gv
}

func (g *Generator) initGlobal(v *ir.Var) {
	if v.Extern {
		return
	}
	gv := g.globals[v]
	if v.Init == nil {
		gv.SetInitializer(llvm.ConstNull(g.mapToLLVMType(v.Type)))
		return
	}
	gv.SetInitializer(g.constExpr(v.Init))
}

// constExpr lowers a static initializer.
func (g *Generator) constExpr(e ir.Expr) llvm.Value {
	switch x := e.(type) {
	case *ir.Const:
		return g.constant(x)
	case *ir.Str:
		return g.constString(x)
	case *ir.AddrOf:
		return g.constOffset(g.globals[x.Var], varOffset(x.Var.Type, x.FieldID))
	case *ir.AddrOfFunc:
		return g.funcValue(x.Name, x.Sig)
	case *ir.Unary:
		inner := g.constExpr(x.X)
		switch {
		case types.IsPointer(x.Typ) && types.IsPointer(x.X.Type()):
			return inner
		case types.IsPointer(x.Typ):
			return llvm.ConstIntToPtr(inner, g.ptrType())
		case types.IsPointer(x.X.Type()):
			return llvm.ConstPtrToInt(inner, g.mapToLLVMType(x.Typ))
		}
	case *ir.Binary:
		if k, ok := x.Y.(*ir.Const); ok && types.IsPointer(x.Typ) {
			off := k.Val
			if x.Op == ir.Sub {
				off = -off
			}
			return g.constOffset(g.constExpr(x.X), off)
		}
	case *ir.ArrayAddr:
		if k, ok := x.Index.(*ir.Const); ok {
			return g.constOffset(g.constExpr(x.Base), k.Val*x.Stride)
		}
	}
	panic(fmt.Sprintf("initializer %s is not a constant", e))
}

func (g *Generator) constOffset(p llvm.Value, off int64) llvm.Value {
	if off == 0 {
		return p
	}
	return llvm.ConstGEP(g.Context.Int8Type(), p, []llvm.Value{llvm.ConstInt(g.Context.Int64Type(), uint64(off), false)})
}

func (g *Generator) constant(k *ir.Const) llvm.Value {
	t := g.mapToLLVMType(k.Typ)
	switch {
	case types.IsFloat(k.Typ):
		return llvm.ConstFloat(t, k.FVal)
	case types.IsPointer(k.Typ):
		if k.Val == 0 {
			return llvm.ConstPointerNull(t)
		}
		return llvm.ConstIntToPtr(llvm.ConstInt(g.Context.Int64Type(), uint64(k.Val), true), t)
	case k.Typ.Kind() == types.VoidKind:
		return llvm.Value{}
	}
	return llvm.ConstInt(t, uint64(k.Val), true)
}

func (g *Generator) constString(s *ir.Str) llvm.Value {
	buf := make([]byte, s.Typ.Len)
	copy(buf, s.Value)
	return g.Context.ConstString(string(buf), false)
}

func (g *Generator) funcValue(name string, sig *types.Func) llvm.Value {
	if fn, ok := g.funcs[name]; ok {
		return fn
	}
	fn := llvm.AddFunction(g.Module, name, g.funcType(sig))
	g.funcs[name] = fn
	return fn
}

// varOffset is the byte offset of a flattened field inside a variable.
func varOffset(t types.Type, fieldID int) int64 {
	if fieldID == 0 {
		return 0
	}
	return t.(*types.Struct).Offset(fieldID)
}

func (g *Generator) defineFunc(f *ir.Func) {
	g.fn = f
	g.llfn = g.funcs[f.Name]
	g.vars = make(map[*ir.Var]llvm.Value)
	g.loops = nil
	entry := g.Context.AddBasicBlock(g.llfn, "entry")
	g.builder.SetInsertPointAtEnd(entry)

	for i, p := range f.Params {
		slot := g.createEntryBlockAlloca(p.Type, p.Name+".addr")
		g.createStore(g.llfn.Param(i), slot, p.Type)
		g.vars[p] = slot
	}
	for _, v := range f.Locals {
		g.vars[v] = g.createEntryBlockAlloca(v.Type, v.Name)
	}
	g.stmts(f.Entry)
	g.stmts(f.Body)
	if g.terminated() {
		return
	}
	ret := f.Sig.Ret
	if ret.Kind() == types.VoidKind {
		g.builder.CreateRetVoid()
		return
	}
	g.builder.CreateRet(llvm.ConstNull(g.mapToLLVMType(ret)))
}

func (g *Generator) createEntryBlockAlloca(t types.Type, name string) llvm.Value {
	current := g.builder.GetInsertBlock()
	entry := g.llfn.EntryBasicBlock()
	first := entry.FirstInstruction()

	if first.IsNil() {
		g.builder.SetInsertPointAtEnd(entry)
	} else {
		g.builder.SetInsertPointBefore(first)
	}

	alloca := g.builder.CreateAlloca(g.mapToLLVMType(t), name)
	setInstAlignment(alloca, t)
	g.builder.SetInsertPointAtEnd(current)
	return alloca
}

func (g *Generator) createStore(val, ptr llvm.Value, t types.Type) llvm.Value {
	store := g.builder.CreateStore(val, ptr)
	setInstAlignment(store, t)
	return store
}

func (g *Generator) createLoad(ptr llvm.Value, t types.Type, name string) llvm.Value {
	load := g.builder.CreateLoad(g.mapToLLVMType(t), ptr, name)
	setInstAlignment(load, t)
	return load
}

// terminated reports whether the current block already ends in a
// terminator.
func (g *Generator) terminated() bool {
	last := g.builder.GetInsertBlock().LastInstruction()
	return !last.IsNil() && !last.IsATerminatorInst().IsNil()
}
