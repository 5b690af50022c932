// Package enhancedc implements the enhanced-C safety instrumentation: it
// turns nonnull and boundary attributes into per-declaration contracts,
// tracks shadow lower/upper bounds for pointer values and injects the
// runtime assertions that enforce them.
//
// All state is carried in explicit contexts. A ModuleContext lives for one
// translation unit; a FuncContext lives while one function is lowered.
package enhancedc

import (
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/config"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/types"
)

// ExprProcessor lowers a side-effect free source expression to IR, resolving
// identifiers through lookup first. It reports its own diagnostics.
type ExprProcessor interface {
	LowerLenExpr(e ast.Expression, lookup func(name string) (ir.Expr, bool)) (ir.Expr, bool)
}

type ModuleContext struct {
	Opts config.Options
	Diag *diag.Reporter
	Lens *LenCache
	Mod  *ir.Module
	Proc ExprProcessor

	// globals owns the shadow pairs of global pointers.
	globals *FuncContext
}

func NewModuleContext(opts config.Options, rep *diag.Reporter, mod *ir.Module, proc ExprProcessor) *ModuleContext {
	mc := &ModuleContext{
		Opts: opts,
		Diag: rep,
		Lens: NewLenCache(),
		Mod:  mod,
		Proc: proc,
	}
	mc.globals = &FuncContext{Mod: mc, pairs: make(map[uint64]Pair), checked: make(map[uint64]bool)}
	return mc
}

// Globals is the context used while lowering global initializers.
func (mc *ModuleContext) Globals() *FuncContext { return mc.globals }

// FuncContext is the per-function lowering state of the instrumentation.
type FuncContext struct {
	Mod *ModuleContext
	Fn  *ir.Func // nil for the global initializer context

	pairs    map[uint64]Pair
	sentinel []ir.Stmt
	prologue []ir.Stmt
	regions  []ast.SafetyRegion
	checked  map[uint64]bool
}

func (mc *ModuleContext) NewFuncContext(fn *ir.Func) *FuncContext {
	return &FuncContext{
		Mod:     mc,
		Fn:      fn,
		pairs:   make(map[uint64]Pair),
		checked: make(map[uint64]bool),
	}
}

// BeginStmt starts a new source statement; per-statement idempotence of
// checks resets here.
func (fc *FuncContext) BeginStmt() {
	clear(fc.checked)
}

func (fc *FuncContext) PushRegion(r ast.SafetyRegion) {
	fc.regions = append(fc.regions, r)
}

func (fc *FuncContext) PopRegion() {
	fc.regions = fc.regions[:len(fc.regions)-1]
}

func (fc *FuncContext) region() ast.SafetyRegion {
	for i := len(fc.regions) - 1; i >= 0; i-- {
		if fc.regions[i] != ast.RegionInherit {
			return fc.regions[i]
		}
	}
	return ast.RegionInherit
}

// InSafe reports whether lowering is inside a __Safe__ block.
func (fc *FuncContext) InSafe() bool { return fc.region() == ast.RegionSafe }

// InUnsafe reports whether lowering is inside an __Unsafe__ block, where no
// checks are injected.
func (fc *FuncContext) InUnsafe() bool { return fc.region() == ast.RegionUnsafe }

// BoundaryOn reports whether boundary logic runs at this point.
func (fc *FuncContext) BoundaryOn() bool {
	return fc.Mod.Opts.BoundaryCheck && !fc.InUnsafe()
}

// NonnullOn reports whether nonnull logic runs at this point.
func (fc *FuncContext) NonnullOn() bool {
	return fc.Mod.Opts.NonnullCheck && !fc.InUnsafe()
}

// strict reports whether missing bounds are hard errors here.
func (fc *FuncContext) strict() bool {
	return fc.Mod.Opts.SafeRegion && fc.InSafe()
}

// Finish installs the entry statements and lowers every abstract assertion
// of the function body to concrete checks.
func (fc *FuncContext) Finish() {
	fc.Fn.Entry = append(append(fc.Fn.Entry, fc.sentinel...), fc.prologue...)
	fc.Fn.Body = fc.ReplaceBoundaryChecking(fc.Fn.Body)
}

func addPtr(p, n ir.Expr) ir.Expr {
	if c, ok := n.(*ir.Const); ok && c.Val == 0 {
		return p
	}
	return ir.NewBinary(ir.Add, p, n, p.Type())
}

func convert(e ir.Expr, t types.Type) ir.Expr {
	if types.Equal(e.Type(), t) {
		return e
	}
	return ir.NewCvt(e, t)
}
