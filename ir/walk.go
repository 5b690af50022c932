package ir

import "fmt"

// Rewrite rebuilds e top-down. When fn returns (r, true) the subtree is
// replaced by r and not visited further.
func Rewrite(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if r, ok := fn(e); ok {
		return r
	}
	switch x := e.(type) {
	case *Const, *Str, *DRead, *AddrOf, *AddrOfFunc, *ParamRef, *FieldRef:
		return x.Clone()
	case *IRead:
		return &IRead{Addr: Rewrite(x.Addr, fn), FieldID: x.FieldID, Typ: x.Typ}
	case *IAddrOf:
		return &IAddrOf{Addr: Rewrite(x.Addr, fn), FieldID: x.FieldID, Typ: x.Typ}
	case *Binary:
		return &Binary{Op: x.Op, X: Rewrite(x.X, fn), Y: Rewrite(x.Y, fn), Typ: x.Typ}
	case *Unary:
		return &Unary{Op: x.Op, X: Rewrite(x.X, fn), Typ: x.Typ}
	case *ArrayAddr:
		return &ArrayAddr{Base: Rewrite(x.Base, fn), Index: Rewrite(x.Index, fn), Stride: x.Stride, Len: x.Len, Typ: x.Typ}
	}
	panic(fmt.Sprintf("unknown expression %T", e))
}

// Walk visits e and its subexpressions in pre-order while fn returns true.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	switch x := e.(type) {
	case *IRead:
		Walk(x.Addr, fn)
	case *IAddrOf:
		Walk(x.Addr, fn)
	case *Binary:
		Walk(x.X, fn)
		Walk(x.Y, fn)
	case *Unary:
		Walk(x.X, fn)
	case *ArrayAddr:
		Walk(x.Base, fn)
		Walk(x.Index, fn)
	}
}

// Contains reports whether any subexpression of e satisfies pred.
func Contains(e Expr, pred func(Expr) bool) bool {
	found := false
	Walk(e, func(x Expr) bool {
		if found {
			return false
		}
		if pred(x) {
			found = true
			return false
		}
		return true
	})
	return found
}

// IsTemplate reports whether e still holds ParamRef or FieldRef placeholders.
func IsTemplate(e Expr) bool {
	return Contains(e, func(x Expr) bool {
		k := x.Kind()
		return k == KindParamRef || k == KindFieldRef
	})
}

// MapStmts applies fn to every statement, descending into If and While
// bodies first. fn returns the statements that replace s.
func MapStmts(stmts []Stmt, fn func(Stmt) []Stmt) []Stmt {
	out := make([]Stmt, 0, len(stmts))
	for _, s := range stmts {
		switch s := s.(type) {
		case *If:
			s.Then = MapStmts(s.Then, fn)
			s.Else = MapStmts(s.Else, fn)
		case *While:
			s.Body = MapStmts(s.Body, fn)
			s.Post = MapStmts(s.Post, fn)
		}
		out = append(out, fn(s)...)
	}
	return out
}

// WalkStmts visits every statement, including nested ones, in order.
func WalkStmts(stmts []Stmt, fn func(Stmt)) {
	for _, s := range stmts {
		fn(s)
		switch s := s.(type) {
		case *If:
			WalkStmts(s.Then, fn)
			WalkStmts(s.Else, fn)
		case *While:
			WalkStmts(s.Body, fn)
			WalkStmts(s.Post, fn)
		}
	}
}
