package compiler

import (
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/enhancedc"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/types"
)

// declareFunc binds the function d declares. The first declaration fixes
// the signature; later ones must agree with it and may add attributes.
func (c *Compiler) declareFunc(d *ast.FuncDecl) *ir.Func {
	sig := c.funcSig(d.Type)
	if sig == nil {
		return nil
	}
	if sym, ok := GetLocal(c.Scopes, d.Name); ok {
		if sym.Func == nil {
			c.errorf(d.Token, "%s redeclared as a different kind of symbol", d.Name)
			return nil
		}
		fn := sym.Func
		if !types.Equal(fn.Sig, sig) {
			c.errorf(d.Token, "conflicting types for %s: %s and %s", d.Name, fn.Sig, sig)
			return nil
		}
		if d.Body != nil && fn.Defined {
			c.errorf(d.Token, "redefinition of %s", d.Name)
			return nil
		}
		c.extractFunc(fn.Sig, d)
		return fn
	}
	fn := &ir.Func{Name: d.Name, Sig: sig, Loc: d.Token.Pos}
	c.extractFunc(sig, d)
	c.Mod.Funcs = append(c.Mod.Funcs, fn)
	Put(c.Scopes, d.Name, &Symbol{Func: fn})
	return fn
}

func (c *Compiler) extractFunc(sig *types.Func, d *ast.FuncDecl) {
	if !c.Enc.Opts.Enabled() {
		return
	}
	c.Enc.ExtractFunc(&enhancedc.FuncTarget{
		Name:   d.Name,
		Pos:    d.Token.Pos,
		Sig:    sig,
		Params: d.Type.Params,
		Attrs:  d.Attrs,
		Decl:   d,
	})
}

// compileFuncBody lowers the body of fn and replaces its abstract
// assertions with concrete checks.
func (c *Compiler) compileFuncBody(fn *ir.Func, d *ast.FuncDecl) {
	fn.Defined = true
	fn.Loc = d.Token.Pos
	fn.Params = fn.Params[:0]
	c.fn = fn
	c.fc = c.Enc.NewFuncContext(fn)
	c.tmpCount = 0
	c.names = make(map[string]int)
	PushScope(&c.Scopes, FuncScope)
	defer func() {
		PopScope(&c.Scopes)
		c.fn = nil
		c.fc = c.Enc.Globals()
		c.out = nil
	}()

	for i, pd := range d.Type.Params {
		if pd.Name == "" {
			c.errorf(pd.Token, "parameter %d of %s has no name", i+1, d.Name)
			continue
		}
		if _, dup := GetLocal(c.Scopes, pd.Name); dup {
			c.errorf(pd.Token, "redefinition of parameter %s", pd.Name)
		}
		v := ir.NewVar(pd.Name, fn.Sig.Params[i])
		v.Param = true
		v.Index = i
		v.Attrs = fn.Sig.Attrs.Params[i]
		v.Loc = pd.Token.Pos
		c.names[pd.Name] = 1
		fn.Params = append(fn.Params, v)
		Put(c.Scopes, pd.Name, &Symbol{Var: v})
	}
	if len(fn.Params) != len(fn.Sig.Params) {
		return
	}
	c.fc.InitParams()

	var body []ir.Stmt
	c.out = &body
	c.block(d.Body, false)
	fn.Body = body
	c.fc.Finish()
}
