package lexer

import (
	"testing"

	"github.com/thiremani/safec/token"
)

type Test struct {
	expectedType    token.TokenType
	expectedLiteral string
}

func checkInput(t *testing.T, input string, tests []Test) {
	l := New("test.c", input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken(t *testing.T) {
	input := `#include <stdio.h>
int *buf __attribute__((count(n)));
// line comment
void f(int n, char *p) {
    /* block
       comment */
    p[n - 1] = 'a';
    n <<= 2; n >>= 1;
    if (p != 0 && n >= 3 || !n) return;
    s->x.y += 0x1F;
}
`
	tests := []Test{
		{token.KW_INT, "int"},
		{token.MUL, "*"},
		{token.IDENT, "buf"},
		{token.KW_ATTRIBUTE, "__attribute__"},
		{token.LPAREN, "("},
		{token.LPAREN, "("},
		{token.IDENT, "count"},
		{token.LPAREN, "("},
		{token.IDENT, "n"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.KW_VOID, "void"},
		{token.IDENT, "f"},
		{token.LPAREN, "("},
		{token.KW_INT, "int"},
		{token.IDENT, "n"},
		{token.COMMA, ","},
		{token.KW_CHAR, "char"},
		{token.MUL, "*"},
		{token.IDENT, "p"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "p"},
		{token.LBRACK, "["},
		{token.IDENT, "n"},
		{token.SUB, "-"},
		{token.INT, "1"},
		{token.RBRACK, "]"},
		{token.ASSIGN, "="},
		{token.CHAR, "a"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "n"},
		{token.SHL_ASSIGN, "<<="},
		{token.INT, "2"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "n"},
		{token.SHR_ASSIGN, ">>="},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.KW_IF, "if"},
		{token.LPAREN, "("},
		{token.IDENT, "p"},
		{token.NEQ, "!="},
		{token.INT, "0"},
		{token.LAND, "&&"},
		{token.IDENT, "n"},
		{token.GEQ, ">="},
		{token.INT, "3"},
		{token.LOR, "||"},
		{token.NOT, "!"},
		{token.IDENT, "n"},
		{token.RPAREN, ")"},
		{token.KW_RETURN, "return"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "s"},
		{token.ARROW, "->"},
		{token.IDENT, "x"},
		{token.PERIOD, "."},
		{token.IDENT, "y"},
		{token.ADD_ASSIGN, "+="},
		{token.INT, "0x1F"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	}
	checkInput(t, input, tests)
}

func TestSafeRegionKeywords(t *testing.T) {
	input := `__Safe__ { x++; } __Unsafe__ { --x; }`
	tests := []Test{
		{token.KW_SAFE, "__Safe__"},
		{token.LBRACE, "{"},
		{token.IDENT, "x"},
		{token.INC, "++"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.KW_UNSAFE, "__Unsafe__"},
		{token.LBRACE, "{"},
		{token.DEC, "--"},
		{token.IDENT, "x"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	}
	checkInput(t, input, tests)
}

func TestNumbers(t *testing.T) {
	input := `42u 7UL 3.5 .25 1e3 2.0f "a\"b" '\n' ...`
	tests := []Test{
		{token.INT, "42"},
		{token.INT, "7"},
		{token.FLOAT, "3.5"},
		{token.FLOAT, ".25"},
		{token.FLOAT, "1e3"},
		{token.FLOAT, "2.0"},
		{token.STRING, `a\"b`},
		{token.CHAR, `\n`},
		{token.ELLIPSIS, "..."},
		{token.EOF, ""},
	}
	checkInput(t, input, tests)
}

func TestPositions(t *testing.T) {
	l := New("pos.c", "int x;\n  x = 1;")
	want := []token.Pos{
		{File: "pos.c", Line: 1, Column: 1},
		{File: "pos.c", Line: 1, Column: 5},
		{File: "pos.c", Line: 1, Column: 6},
		{File: "pos.c", Line: 2, Column: 3},
		{File: "pos.c", Line: 2, Column: 5},
	}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Pos != w {
			t.Fatalf("tests[%d] - position wrong. expected=%v, got=%v", i, w, tok.Pos)
		}
	}
}
