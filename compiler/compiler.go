// Package compiler lowers a parsed translation unit to the ir model and
// drives the safety instrumentation while doing so.
package compiler

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/config"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/enhancedc"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// Symbol is a name bound in some scope: a variable or a function.
type Symbol struct {
	Var  *ir.Var
	Func *ir.Func
}

type Compiler struct {
	Scopes []Scope[*Symbol]
	Mod    *ir.Module
	Diag   *diag.Reporter
	Enc    *enhancedc.ModuleContext

	structs    map[string]*types.Struct
	structDefs map[*ast.StructType]*types.Struct
	anonCount  int
	strCount   int

	// current function state; fn is nil at file scope
	fn       *ir.Func
	fc       *enhancedc.FuncContext
	out      *[]ir.Stmt
	tmpCount int
	names    map[string]int
	loops    int

	// lenLookup resolves identifiers first while lowering a length expression
	lenLookup func(name string) (ir.Expr, bool)
	noChecks  int
}

func NewCompiler(name string, opts config.Options, rep *diag.Reporter) *Compiler {
	mod := ir.NewModule(name)
	c := &Compiler{
		Scopes:     []Scope[*Symbol]{NewScope[*Symbol](FileScope)},
		Mod:        mod,
		Diag:       rep,
		structs:    make(map[string]*types.Struct),
		structDefs: make(map[*ast.StructType]*types.Struct),
	}
	c.Enc = enhancedc.NewModuleContext(opts, rep, mod, c)
	c.fc = c.Enc.Globals()
	return c
}

// Compile lowers tu into the compiler's module.
func Compile(tu *ast.TranslationUnit, opts config.Options, rep *diag.Reporter) *ir.Module {
	c := NewCompiler(tu.File, opts, rep)
	c.CompileUnit(tu)
	return c.Mod
}

func (c *Compiler) CompileUnit(tu *ast.TranslationUnit) {
	for _, d := range tu.Decls {
		if c.Diag.Limited() {
			slog.Debug("error limit reached", "file", tu.File)
			return
		}
		c.compileDecl(d)
	}
}

func (c *Compiler) compileDecl(d ast.Decl) {
	switch d := d.(type) {
	case *ast.StructDecl:
		c.resolveStruct(d.Type)
	case *ast.TypedefDecl:
		// the parser substitutes typedef names; only validate the type
		c.resolveType(d.Type)
	case *ast.VarDecl:
		if c.reserved(d.Token, d.Name) {
			return
		}
		c.compileGlobalVar(d)
	case *ast.FuncDecl:
		if c.reserved(d.Token, d.Name) {
			return
		}
		fn := c.declareFunc(d)
		if fn != nil && d.Body != nil {
			c.compileFuncBody(fn, d)
		}
	default:
		panic(fmt.Sprintf("Cannot handle declaration type %T", d))
	}
}

func (c *Compiler) errorf(tok token.Token, format string, args ...any) {
	c.Diag.Errorf(tok.Pos, diag.CodeSemantic, format, args...)
}

// reserved reports an error when name belongs to the instrumentation.
func (c *Compiler) reserved(tok token.Token, name string) bool {
	if !types.IsReservedName(name) {
		return false
	}
	c.errorf(tok, "%s is reserved", name)
	return true
}

func (c *Compiler) lookup(name string) (*Symbol, bool) {
	return Get(c.Scopes, name)
}

// checking reports whether instrumentation hooks run for the code being
// lowered.
func (c *Compiler) checking() bool {
	return c.noChecks == 0 && c.Enc.Opts.Enabled()
}

func (c *Compiler) emit(s ...ir.Stmt) {
	*c.out = append(*c.out, s...)
}

// collect lowers body into a fresh statement list.
func (c *Compiler) collect(body func()) []ir.Stmt {
	saved := c.out
	var stmts []ir.Stmt
	c.out = &stmts
	body()
	c.out = saved
	return stmts
}

func (c *Compiler) newTemp(t types.Type) *ir.Var {
	c.tmpCount++
	v := ir.NewVar("tmp."+strconv.Itoa(c.tmpCount), t)
	return c.fn.AddLocal(v)
}

// uniqueLocal returns name, or a renamed variant when an outer block of the
// same function already uses it.
func (c *Compiler) uniqueLocal(name string) string {
	n, used := c.names[name]
	c.names[name] = n + 1
	if !used {
		return name
	}
	return name + "." + strconv.Itoa(n)
}

// compileGlobalVar lowers a file-scope variable. Its initializer must be a
// constant.
func (c *Compiler) compileGlobalVar(vd *ast.VarDecl) {
	t := c.resolveType(vd.Type)
	if t == nil {
		return
	}
	if sym, ok := GetLocal(c.Scopes, vd.Name); ok && sym.Var != nil {
		if vd.Init == nil {
			return
		}
		if sym.Var.Init != nil && !sym.Var.Extern {
			c.errorf(vd.Token, "redefinition of %s", vd.Name)
			return
		}
		sym.Var.Extern = false
		c.initGlobal(sym.Var, vd)
		return
	}
	t = c.completeArray(t, vd.Init)
	v := ir.NewVar(vd.Name, t)
	v.Global = true
	v.Static = vd.Static
	v.Extern = vd.Extern && vd.Init == nil
	v.Loc = vd.Token.Pos
	c.Mod.Globals = append(c.Mod.Globals, v)
	Put(c.Scopes, vd.Name, &Symbol{Var: v})
	if c.Enc.Opts.Enabled() {
		c.Enc.ExtractVar(v, vd, nil)
	}
	c.initGlobal(v, vd)
}

func (c *Compiler) initGlobal(v *ir.Var, vd *ast.VarDecl) {
	if vd.Init == nil {
		if v.Attrs.Nonnull && !v.Extern {
			c.fc.CheckNonnull(nil, ir.AssignAssertNonnull, ir.Null(v.Type), v.Name, vd.Token.Pos)
		}
		return
	}
	if s, ok := vd.Init.(*ast.StringLiteral); ok && v.Type.Kind() == types.ArrayKind {
		v.Init = c.strConst(s, v.Type.(types.Array))
		return
	}
	var src ir.Expr
	stmts := c.collect(func() {
		src = c.convertAssign(c.expr(vd.Init), v.Type, vd.Init.Tok())
		c.store(lvalue{v: v, typ: v.Type}, src, vd.Token.Pos)
	})
	// file scope has no runtime checks; asserts are decided here and only
	// the pair updates survive
	var rest []ir.Stmt
	for _, s := range stmts {
		switch s := s.(type) {
		case *ir.BoundaryAssert:
			continue
		case *ir.Assign:
			if s.Dst == v {
				continue
			}
		}
		rest = append(rest, s)
	}
	for _, s := range rest {
		if a, ok := s.(*ir.Assign); !ok || !a.Dst.IsBoundary() {
			c.errorf(vd.Init.Tok(), "initializer of %s is not a constant", v.Name)
			return
		}
	}
	if !isConstInit(src) {
		c.errorf(vd.Init.Tok(), "initializer of %s is not a constant", v.Name)
		return
	}
	v.Init = src
	c.Enc.CheckGlobalInit(stmts)
	c.Enc.FoldGlobalInits(rest)
}

// isConstInit reports whether e can be emitted as a static initializer.
func isConstInit(e ir.Expr) bool {
	switch x := e.(type) {
	case *ir.Const, *ir.Str, *ir.AddrOfFunc:
		return true
	case *ir.AddrOf:
		return x.Var.Global
	case *ir.Unary:
		return x.Op == ir.Cvt && isConstInit(x.X)
	case *ir.Binary:
		return (x.Op == ir.Add || x.Op == ir.Sub) && isConstInit(x.X) && isConstInit(x.Y)
	case *ir.ArrayAddr:
		return isConstInit(x.Base) && isConstInit(x.Index)
	}
	return false
}

func (c *Compiler) strConst(s *ast.StringLiteral, arr types.Array) *ir.Str {
	if int64(len(s.Value)) > arr.Len {
		c.errorf(s.Token, "string of length %d does not fit in %s", len(s.Value), arr)
	}
	return &ir.Str{Value: s.Value, Typ: arr}
}

// stringLiteral places a literal in a private global and returns its
// decayed address.
func (c *Compiler) stringLiteral(s *ast.StringLiteral) ir.Expr {
	arr := types.Array{Elem: types.Char, Len: int64(len(s.Value)) + 1}
	v := ir.NewVar(".str."+strconv.Itoa(c.strCount), arr)
	c.strCount++
	v.Global = true
	v.Static = true
	v.Init = &ir.Str{Value: s.Value, Typ: arr}
	v.Loc = s.Token.Pos
	c.Mod.Globals = append(c.Mod.Globals, v)
	return ir.NewAddrOf(v, 0)
}
