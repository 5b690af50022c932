package compiler

import (
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/ir"
)

// LowerLenExpr lowers a boundary length expression. Names resolve through
// lookup first, then through the enclosing scopes. The expression must not
// need statements of its own.
func (c *Compiler) LowerLenExpr(e ast.Expression, lookup func(name string) (ir.Expr, bool)) (ir.Expr, bool) {
	saved := c.lenLookup
	c.lenLookup = lookup
	c.noChecks++
	errs := c.Diag.ErrorCount()
	var v ir.Expr
	stmts := c.collect(func() { v = c.expr(e) })
	c.noChecks--
	c.lenLookup = saved
	if c.Diag.ErrorCount() > errs {
		return nil, false
	}
	if len(stmts) > 0 {
		c.errorf(e.Tok(), "length expression %s has side effects", e)
		return nil, false
	}
	return foldConst(v), true
}
