package codegen

import (
	"github.com/thiremani/safec/types"
	"tinygo.org/x/go-llvm"
)

const (
	// Check failures
	CHECK_FAIL = types.CheckFailFunc
)

// GetFnType returns the LLVM FunctionType for a runtime helper name.
func (g *Generator) GetFnType(name string) llvm.Type {
	i32 := g.Context.Int32Type()

	switch name {
	case CHECK_FAIL:
		return llvm.FunctionType(g.Context.VoidType(), []llvm.Type{i32, i32}, false)
	default:
		panic("Unknown function name")
	}
}

func (g *Generator) GetCFunc(name string) (llvm.Type, llvm.Value) {
	fnType := g.GetFnType(name)
	fn := g.Module.NamedFunction(name)
	if fn.IsNil() {
		fn = llvm.AddFunction(g.Module, name, fnType)
		noreturn := llvm.AttributeKindID("noreturn")
		fn.AddFunctionAttr(g.Context.CreateEnumAttribute(noreturn, 0))
	}

	return fnType, fn
}
