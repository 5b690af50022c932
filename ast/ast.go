package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/thiremani/safec/token"
)

// The base Node interface
type Node interface {
	Tok() token.Token
	String() string
}

// All statement nodes implement this
type Statement interface {
	Node
	statementNode()
}

// All expression nodes implement this
type Expression interface {
	Node
	expressionNode()
}

// All top-level declarations implement this
type Decl interface {
	Node
	declNode()
}

// TranslationUnit is one parsed source file.
type TranslationUnit struct {
	File  string
	Decls []Decl
}

func (tu *TranslationUnit) Tok() token.Token {
	if len(tu.Decls) > 0 {
		return tu.Decls[0].Tok()
	}
	return token.Token{Type: token.EOF, Pos: token.Pos{File: tu.File}}
}

func (tu *TranslationUnit) String() string {
	var out bytes.Buffer
	for _, d := range tu.Decls {
		out.WriteString(d.String())
		out.WriteString("\n")
	}
	return out.String()
}

// Funcs returns the function declarations in source order.
func (tu *TranslationUnit) Funcs() []*FuncDecl {
	var fns []*FuncDecl
	for _, d := range tu.Decls {
		if fd, ok := d.(*FuncDecl); ok {
			fns = append(fns, fd)
		}
	}
	return fns
}

func printVec(a []Expression) string {
	parts := make([]string, 0, len(a))
	for _, e := range a {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}

// Attribute is one raw entry of an __attribute__((...)) list.
type Attribute struct {
	Token token.Token // the attribute name
	Name  string
	Args  []Expression
}

func (a *Attribute) String() string {
	if len(a.Args) == 0 {
		return a.Name
	}
	return a.Name + "(" + printVec(a.Args) + ")"
}

// BoundaryInfo is the normalized length contract of a pointer declaration.
// Exactly one of LenExpr and LenParamIdx is meaningful.
type BoundaryInfo struct {
	LenExpr     Expression
	LenParamIdx int // -1 when unset
	IsBytedLen  bool
	Pos         token.Pos
}

func NewBoundaryInfo(pos token.Pos) *BoundaryInfo {
	return &BoundaryInfo{LenParamIdx: -1, Pos: pos}
}

func (bi *BoundaryInfo) String() string {
	kind := "count"
	if bi.IsBytedLen {
		kind = "byte_count"
	}
	if bi.LenExpr != nil {
		return kind + "(" + bi.LenExpr.String() + ")"
	}
	return kind + "_index(" + strconv.Itoa(bi.LenParamIdx+1) + ")"
}

// Safety attributes shared by every pointer-bearing declaration.
type Safety struct {
	Attrs    []*Attribute
	Nonnull  bool
	Boundary *BoundaryInfo
}

// ---- type syntax ----

// TypeExpr is the syntactic form of a C type.
type TypeExpr interface {
	Node
	typeNode()
}

type BaseType struct {
	Token token.Token
	Names []string // e.g. ["unsigned", "long"]; a typedef name is a single entry
}

func (bt *BaseType) typeNode()        {}
func (bt *BaseType) Tok() token.Token { return bt.Token }
func (bt *BaseType) String() string   { return strings.Join(bt.Names, " ") }

type StructType struct {
	Token  token.Token
	Name   string
	Fields []*FieldDecl // nil for a reference to a previously defined struct
}

func (st *StructType) typeNode()        {}
func (st *StructType) Tok() token.Token { return st.Token }
func (st *StructType) String() string   { return "struct " + st.Name }

type PointerType struct {
	Token token.Token
	Elem  TypeExpr
}

func (pt *PointerType) typeNode()        {}
func (pt *PointerType) Tok() token.Token { return pt.Token }
func (pt *PointerType) String() string   { return pt.Elem.String() + "*" }

type ArrayType struct {
	Token token.Token
	Elem  TypeExpr
	Len   Expression // nil when unsized
}

func (at *ArrayType) typeNode()        {}
func (at *ArrayType) Tok() token.Token { return at.Token }
func (at *ArrayType) String() string {
	if at.Len == nil {
		return at.Elem.String() + "[]"
	}
	return at.Elem.String() + "[" + at.Len.String() + "]"
}

type FuncType struct {
	Token    token.Token
	Ret      TypeExpr
	Params   []*ParamDecl
	Variadic bool
}

func (ft *FuncType) typeNode()        {}
func (ft *FuncType) Tok() token.Token { return ft.Token }
func (ft *FuncType) String() string {
	params := make([]string, 0, len(ft.Params))
	for _, p := range ft.Params {
		params = append(params, p.String())
	}
	if ft.Variadic {
		params = append(params, "...")
	}
	return ft.Ret.String() + "(" + strings.Join(params, ", ") + ")"
}

// ---- declarations ----

type FieldDecl struct {
	Token token.Token
	Name  string
	Type  TypeExpr
	Safety
}

func (fd *FieldDecl) Tok() token.Token { return fd.Token }
func (fd *FieldDecl) String() string   { return fd.Type.String() + " " + fd.Name }

type ParamDecl struct {
	Token token.Token
	Name  string // may be empty in prototypes
	Type  TypeExpr
	Safety
}

func (pd *ParamDecl) Tok() token.Token { return pd.Token }
func (pd *ParamDecl) String() string {
	if pd.Name == "" {
		return pd.Type.String()
	}
	return pd.Type.String() + " " + pd.Name
}

type StructDecl struct {
	Token token.Token
	Type  *StructType
}

func (sd *StructDecl) declNode()        {}
func (sd *StructDecl) Tok() token.Token { return sd.Token }
func (sd *StructDecl) String() string {
	var out bytes.Buffer
	out.WriteString("struct " + sd.Type.Name + " {")
	for _, f := range sd.Type.Fields {
		out.WriteString(" " + f.String() + ";")
	}
	out.WriteString(" }")
	return out.String()
}

type TypedefDecl struct {
	Token token.Token
	Name  string
	Type  TypeExpr
}

func (td *TypedefDecl) declNode()        {}
func (td *TypedefDecl) Tok() token.Token { return td.Token }
func (td *TypedefDecl) String() string   { return "typedef " + td.Type.String() + " " + td.Name }

type VarDecl struct {
	Token  token.Token // the name token
	Name   string
	Type   TypeExpr
	Init   Expression
	Static bool
	Extern bool
	Safety
}

func (vd *VarDecl) declNode()        {}
func (vd *VarDecl) Tok() token.Token { return vd.Token }
func (vd *VarDecl) String() string {
	s := vd.Type.String() + " " + vd.Name
	if vd.Init != nil {
		s += " = " + vd.Init.String()
	}
	return s
}

type FuncDecl struct {
	Token token.Token // the name token
	Name  string
	Type  *FuncType
	Body  *BlockStatement // nil for a prototype
	Attrs []*Attribute

	ReturnsNonnull bool
	ReturnBoundary *BoundaryInfo
}

func (fd *FuncDecl) declNode()        {}
func (fd *FuncDecl) Tok() token.Token { return fd.Token }
func (fd *FuncDecl) String() string {
	params := make([]string, 0, len(fd.Type.Params))
	for _, p := range fd.Type.Params {
		params = append(params, p.String())
	}
	s := fd.Type.Ret.String() + " " + fd.Name + "(" + strings.Join(params, ", ") + ")"
	if fd.Body != nil {
		s += " " + fd.Body.String()
	}
	return s
}

// ---- statements ----

type SafetyRegion int

const (
	RegionInherit SafetyRegion = iota
	RegionSafe
	RegionUnsafe
)

type BlockStatement struct {
	Token      token.Token // the { token, or the __Safe__/__Unsafe__ keyword
	Statements []Statement
	Region     SafetyRegion
}

func (bs *BlockStatement) statementNode()   {}
func (bs *BlockStatement) Tok() token.Token { return bs.Token }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	switch bs.Region {
	case RegionSafe:
		out.WriteString("__Safe__ ")
	case RegionUnsafe:
		out.WriteString("__Unsafe__ ")
	}
	out.WriteString("{")
	for _, s := range bs.Statements {
		out.WriteString(" ")
		out.WriteString(s.String())
	}
	out.WriteString(" }")
	return out.String()
}

type DeclStatement struct {
	Token token.Token
	Decls []*VarDecl
}

func (ds *DeclStatement) statementNode()   {}
func (ds *DeclStatement) Tok() token.Token { return ds.Token }
func (ds *DeclStatement) String() string {
	parts := make([]string, 0, len(ds.Decls))
	for _, d := range ds.Decls {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, "; ") + ";"
}

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()   {}
func (es *ExpressionStatement) Tok() token.Token { return es.Token }
func (es *ExpressionStatement) String() string   { return es.Expression.String() + ";" }

type IfStatement struct {
	Token       token.Token
	Condition   Expression
	Consequence Statement
	Alternative Statement // may be nil
}

func (is *IfStatement) statementNode()   {}
func (is *IfStatement) Tok() token.Token { return is.Token }
func (is *IfStatement) String() string {
	s := "if (" + is.Condition.String() + ") " + is.Consequence.String()
	if is.Alternative != nil {
		s += " else " + is.Alternative.String()
	}
	return s
}

type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      Statement
	DoWhile   bool
}

func (ws *WhileStatement) statementNode()   {}
func (ws *WhileStatement) Tok() token.Token { return ws.Token }
func (ws *WhileStatement) String() string {
	if ws.DoWhile {
		return "do " + ws.Body.String() + " while (" + ws.Condition.String() + ");"
	}
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

type ForStatement struct {
	Token     token.Token
	Init      Statement  // may be nil
	Condition Expression // may be nil
	Post      Expression // may be nil
	Body      Statement
}

func (fs *ForStatement) statementNode()   {}
func (fs *ForStatement) Tok() token.Token { return fs.Token }
func (fs *ForStatement) String() string {
	var out bytes.Buffer
	out.WriteString("for (")
	if fs.Init != nil {
		out.WriteString(fs.Init.String())
	} else {
		out.WriteString(";")
	}
	out.WriteString(" ")
	if fs.Condition != nil {
		out.WriteString(fs.Condition.String())
	}
	out.WriteString("; ")
	if fs.Post != nil {
		out.WriteString(fs.Post.String())
	}
	out.WriteString(") ")
	out.WriteString(fs.Body.String())
	return out.String()
}

type ReturnStatement struct {
	Token token.Token
	Value Expression // may be nil
}

func (rs *ReturnStatement) statementNode()   {}
func (rs *ReturnStatement) Tok() token.Token { return rs.Token }
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return;"
	}
	return "return " + rs.Value.String() + ";"
}

type BranchStatement struct {
	Token token.Token // break or continue
}

func (bs *BranchStatement) statementNode()   {}
func (bs *BranchStatement) Tok() token.Token { return bs.Token }
func (bs *BranchStatement) String() string   { return bs.Token.Literal + ";" }

// ---- expressions ----

type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()  {}
func (i *Identifier) Tok() token.Token { return i.Token }
func (i *Identifier) String() string   { return i.Value }

type IntegerLiteral struct {
	Token    token.Token
	Value    int64
	Unsigned bool
}

func (il *IntegerLiteral) expressionNode()  {}
func (il *IntegerLiteral) Tok() token.Token { return il.Token }
func (il *IntegerLiteral) String() string {
	if il.Token.Type == token.CHAR {
		return "'" + il.Token.Literal + "'"
	}
	return il.Token.Literal
}

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()  {}
func (fl *FloatLiteral) Tok() token.Token { return fl.Token }
func (fl *FloatLiteral) String() string   { return fl.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()  {}
func (sl *StringLiteral) Tok() token.Token { return sl.Token }
func (sl *StringLiteral) String() string   { return `"` + sl.Token.Literal + `"` }

type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. !
	Operator token.TokenType
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()  {}
func (pe *PrefixExpression) Tok() token.Token { return pe.Token }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator.String() + pe.Right.String() + ")"
}

type PostfixExpression struct {
	Token    token.Token // ++ or --
	Operator token.TokenType
	Left     Expression
}

func (pe *PostfixExpression) expressionNode()  {}
func (pe *PostfixExpression) Tok() token.Token { return pe.Token }
func (pe *PostfixExpression) String() string {
	return "(" + pe.Left.String() + pe.Operator.String() + ")"
}

type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Left     Expression
	Operator token.TokenType
	Right    Expression
}

func (ie *InfixExpression) expressionNode()  {}
func (ie *InfixExpression) Tok() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator.String() + " " + ie.Right.String() + ")"
}

type AssignExpression struct {
	Token    token.Token // = or a compound assignment operator
	Left     Expression
	Operator token.TokenType
	Right    Expression
}

func (ae *AssignExpression) expressionNode()  {}
func (ae *AssignExpression) Tok() token.Token { return ae.Token }
func (ae *AssignExpression) String() string {
	return ae.Left.String() + " " + ae.Operator.String() + " " + ae.Right.String()
}

type CallExpression struct {
	Token     token.Token // The '(' token
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()  {}
func (ce *CallExpression) Tok() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	return ce.Function.String() + "(" + printVec(ce.Arguments) + ")"
}

type IndexExpression struct {
	Token token.Token // the [ token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()  {}
func (ie *IndexExpression) Tok() token.Token { return ie.Token }
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}

type MemberExpression struct {
	Token token.Token // . or ->
	Left  Expression
	Name  string
	Arrow bool
}

func (me *MemberExpression) expressionNode()  {}
func (me *MemberExpression) Tok() token.Token { return me.Token }
func (me *MemberExpression) String() string {
	if me.Arrow {
		return me.Left.String() + "->" + me.Name
	}
	return me.Left.String() + "." + me.Name
}

type CastExpression struct {
	Token token.Token // the ( token
	Type  TypeExpr
	Right Expression
}

func (ce *CastExpression) expressionNode()  {}
func (ce *CastExpression) Tok() token.Token { return ce.Token }
func (ce *CastExpression) String() string {
	return "((" + ce.Type.String() + ")" + ce.Right.String() + ")"
}

// SizeofExpression holds either a type or an expression operand.
type SizeofExpression struct {
	Token token.Token
	Type  TypeExpr
	Expr  Expression
}

func (se *SizeofExpression) expressionNode()  {}
func (se *SizeofExpression) Tok() token.Token { return se.Token }
func (se *SizeofExpression) String() string {
	if se.Type != nil {
		return "sizeof(" + se.Type.String() + ")"
	}
	return "sizeof(" + se.Expr.String() + ")"
}
