package token

import (
	"fmt"
	"strconv"
)

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	COMMENT

	literal_beg
	// Identifiers + literals
	IDENT  // add, foobar, x, y, ...
	INT    // 1343456
	FLOAT  // 123.45
	CHAR   // 'a'
	STRING // "abc"
	literal_end

	operator_beg
	// Operators and delimiters
	ASSIGN // =
	NOT    // !
	TILDE  // ~
	QUEST  // ?
	COLON  // :

	ADD // +
	SUB // -
	MUL // *
	QUO // /
	REM // %

	AND // &
	OR  // |
	XOR // ^
	SHL // <<
	SHR // >>

	LAND  // &&
	LOR   // ||
	INC   // ++
	DEC   // --
	ARROW // ->

	ADD_ASSIGN // +=
	SUB_ASSIGN // -=
	MUL_ASSIGN // *=
	QUO_ASSIGN // /=
	REM_ASSIGN // %=

	AND_ASSIGN // &=
	OR_ASSIGN  // |=
	XOR_ASSIGN // ^=
	SHL_ASSIGN // <<=
	SHR_ASSIGN // >>=

	LPAREN    // (
	LBRACK    // [
	LBRACE    // {
	COMMA     // ,
	PERIOD    // .
	SEMICOLON // ;
	ELLIPSIS  // ...

	RPAREN // )
	RBRACK // ]
	RBRACE // }
	operator_end

	comparison_beg
	EQL // ==
	LSS // <
	GTR // >
	NEQ // !=
	LEQ // <=
	GEQ // >=
	comparison_end

	keyword_beg
	KW_VOID
	KW_CHAR
	KW_SHORT
	KW_INT
	KW_LONG
	KW_FLOAT
	KW_DOUBLE
	KW_SIGNED
	KW_UNSIGNED
	KW_BOOL
	KW_STRUCT
	KW_CONST
	KW_VOLATILE
	KW_STATIC
	KW_EXTERN
	KW_TYPEDEF
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_DO
	KW_FOR
	KW_RETURN
	KW_BREAK
	KW_CONTINUE
	KW_SIZEOF
	KW_ATTRIBUTE
	KW_SAFE
	KW_UNSAFE
	keyword_end
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",

	EOF:     "EOF",
	COMMENT: "COMMENT",

	IDENT:  "IDENT",
	INT:    "INT",
	FLOAT:  "FLOAT",
	CHAR:   "CHAR",
	STRING: "STRING",

	ASSIGN: "=",
	NOT:    "!",
	TILDE:  "~",
	QUEST:  "?",
	COLON:  ":",

	ADD: "+",
	SUB: "-",
	MUL: "*",
	QUO: "/",
	REM: "%",

	AND: "&",
	OR:  "|",
	XOR: "^",
	SHL: "<<",
	SHR: ">>",

	LAND:  "&&",
	LOR:   "||",
	INC:   "++",
	DEC:   "--",
	ARROW: "->",

	ADD_ASSIGN: "+=",
	SUB_ASSIGN: "-=",
	MUL_ASSIGN: "*=",
	QUO_ASSIGN: "/=",
	REM_ASSIGN: "%=",

	AND_ASSIGN: "&=",
	OR_ASSIGN:  "|=",
	XOR_ASSIGN: "^=",
	SHL_ASSIGN: "<<=",
	SHR_ASSIGN: ">>=",

	LPAREN:    "(",
	LBRACK:    "[",
	LBRACE:    "{",
	COMMA:     ",",
	PERIOD:    ".",
	SEMICOLON: ";",
	ELLIPSIS:  "...",

	RPAREN: ")",
	RBRACK: "]",
	RBRACE: "}",

	EQL: "==",
	LSS: "<",
	GTR: ">",
	NEQ: "!=",
	LEQ: "<=",
	GEQ: ">=",

	KW_VOID:      "void",
	KW_CHAR:      "char",
	KW_SHORT:     "short",
	KW_INT:       "int",
	KW_LONG:      "long",
	KW_FLOAT:     "float",
	KW_DOUBLE:    "double",
	KW_SIGNED:    "signed",
	KW_UNSIGNED:  "unsigned",
	KW_BOOL:      "_Bool",
	KW_STRUCT:    "struct",
	KW_CONST:     "const",
	KW_VOLATILE:  "volatile",
	KW_STATIC:    "static",
	KW_EXTERN:    "extern",
	KW_TYPEDEF:   "typedef",
	KW_IF:        "if",
	KW_ELSE:      "else",
	KW_WHILE:     "while",
	KW_DO:        "do",
	KW_FOR:       "for",
	KW_RETURN:    "return",
	KW_BREAK:     "break",
	KW_CONTINUE:  "continue",
	KW_SIZEOF:    "sizeof",
	KW_ATTRIBUTE: "__attribute__",
	KW_SAFE:      "__Safe__",
	KW_UNSAFE:    "__Unsafe__",
}

var keywords = func() map[string]TokenType {
	m := make(map[string]TokenType, keyword_end-keyword_beg)
	for t := keyword_beg + 1; t < keyword_end; t++ {
		m[tokens[t]] = t
	}
	m["__attribute"] = KW_ATTRIBUTE
	return m
}()

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Pos is a source position. Line and Column are 1-based; the zero Pos is unknown.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		if p.File != "" {
			return p.File
		}
		return "-"
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     Pos
}

func (t Token) IsComparison() bool {
	return comparison_beg < t.Type && comparison_end > t.Type
}

func (t Token) IsKeyword() bool {
	return keyword_beg < t.Type && keyword_end > t.Type
}

func (t Token) String() string {
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}

// CompileError is a user-facing error tied to a source position.
type CompileError struct {
	Token Token
	Msg   string
}

func (ce *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", ce.Token.Pos, ce.Msg)
}
