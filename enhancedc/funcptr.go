package enhancedc

import (
	"strconv"
	"strings"

	"github.com/thiremani/safec/config"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// CheckFuncPtrAssign reports a function pointer store whose source promises
// different nonnull or boundary contracts than the destination type
// declares. Mismatched parameters are collected into one diagnostic; the
// return value gets its own.
func (mc *ModuleContext) CheckFuncPtrAssign(dstType types.Type, src ir.Expr, loc token.Pos) {
	if !mc.Opts.Enabled() || !types.IsFuncPointer(dstType) || !types.IsFuncPointer(src.Type()) || ir.IsNull(src) {
		return
	}
	dst := types.Pointee(dstType).(*types.Func)
	from := types.Pointee(src.Type()).(*types.Func)
	if dst == from {
		return
	}
	params, ret := types.Mismatch(dst.Attrs, from.Attrs, mc.Opts.NonnullCheck, mc.Opts.BoundaryCheck)
	sev := diag.Warning
	if mc.Opts.FuncPtrMismatch == config.SeverityError {
		sev = diag.Error
	}
	if len(params) > 0 {
		idx := make([]string, len(params))
		for i, p := range params {
			idx[i] = strconv.Itoa(p + 1)
		}
		mc.Diag.Report(sev, loc, diag.CodeFuncPtrMismatch,
			"function pointer assignment from %s: attributes of parameter(s) %s do not match", src, strings.Join(idx, ", "))
	}
	if ret {
		mc.Diag.Report(sev, loc, diag.CodeFuncPtrMismatch,
			"function pointer assignment from %s: return value attributes do not match", src)
	}
}
