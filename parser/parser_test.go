package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thiremani/safec/ast"
	"github.com/thiremani/safec/token"
)

func mustParse(t *testing.T, src string) *ast.TranslationUnit {
	t.Helper()
	tu, errs := Parse("test.c", src)
	for _, e := range errs {
		t.Errorf("parser error: %s", e)
	}
	require.Empty(t, errs)
	return tu
}

func mustFunc(t *testing.T, tu *ast.TranslationUnit, name string) *ast.FuncDecl {
	t.Helper()
	for _, fd := range tu.Funcs() {
		if fd.Name == name {
			return fd
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

// exprOf parses a function body with one expression statement.
func exprOf(t *testing.T, expr string) ast.Expression {
	t.Helper()
	tu := mustParse(t, "void f(int a, int b, int c, int *p, struct s *q) { "+expr+"; }")
	fd := mustFunc(t, tu, "f")
	require.Len(t, fd.Body.Statements, 1)
	es, ok := fd.Body.Statements[0].(*ast.ExpressionStatement)
	require.True(t, ok, "statement is not *ast.ExpressionStatement. got=%T", fd.Body.Statements[0])
	return es.Expression
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a * b + c", "((a * b) + c)"},
		{"-a * b", "((-a) * b)"},
		{"!a || b && c", "((!a) || (b && c))"},
		{"a << 1 < b", "((a << 1) < b)"},
		{"a & b == c", "(a & (b == c))"},
		{"a | b ^ c & a", "(a | (b ^ (c & a)))"},
		{"a = b = c", "a = b = c"},
		{"a += b - c", "a += (b - c)"},
		{"*p++", "(*(p++))"},
		{"p[a + 1]", "p[(a + 1)]"},
		{"q->x.y", "q->x.y"},
		{"&q->x", "(&q->x)"},
		{"(char *)p + 1", "(((char*)p) + 1)"},
		{"f(a, b + c)", "f(a, (b + c))"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, exprOf(t, tt.input).String())
		})
	}
}

func TestSizeof(t *testing.T) {
	se, ok := exprOf(t, "sizeof(int *)").(*ast.SizeofExpression)
	require.True(t, ok)
	require.NotNil(t, se.Type)
	require.Nil(t, se.Expr)

	se, ok = exprOf(t, "sizeof a").(*ast.SizeofExpression)
	require.True(t, ok)
	require.Nil(t, se.Type)
	require.Equal(t, "a", se.Expr.String())
}

func TestFunctionAttributes(t *testing.T) {
	src := `
int *dup(const int *src __attribute__((count(n))), int n)
    __attribute__((returns_count(n), nonnull(1)));
`
	tu := mustParse(t, src)
	fd := mustFunc(t, tu, "dup")
	require.Nil(t, fd.Body)
	require.Len(t, fd.Type.Params, 2)

	src0 := fd.Type.Params[0]
	require.Equal(t, "src", src0.Name)
	require.Len(t, src0.Attrs, 1)
	require.Equal(t, "count", src0.Attrs[0].Name)
	require.Equal(t, "count(n)", src0.Attrs[0].String())

	names := []string{}
	for _, a := range fd.Attrs {
		names = append(names, a.String())
	}
	require.Equal(t, []string{"returns_count(n)", "nonnull(1)"}, names)
}

func TestStructAndTypedef(t *testing.T) {
	src := `
struct buf {
    int len;
    char *data __attribute__((count("len")));
    struct { int a; int *b; } inner;
};
typedef struct buf buf_t;
buf_t *head;
`
	tu := mustParse(t, src)
	require.Len(t, tu.Decls, 3)

	sd, ok := tu.Decls[0].(*ast.StructDecl)
	require.True(t, ok)
	require.Equal(t, "buf", sd.Type.Name)
	require.Len(t, sd.Type.Fields, 3)
	data := sd.Type.Fields[1]
	require.Equal(t, "data", data.Name)
	require.Len(t, data.Attrs, 1)
	lit, ok := data.Attrs[0].Args[0].(*ast.StringLiteral)
	require.True(t, ok)
	require.Equal(t, "len", lit.Value)

	_, ok = tu.Decls[1].(*ast.TypedefDecl)
	require.True(t, ok)

	vd, ok := tu.Decls[2].(*ast.VarDecl)
	require.True(t, ok)
	pt, ok := vd.Type.(*ast.PointerType)
	require.True(t, ok, "typedef name should be substituted. got=%T", vd.Type)
	st, ok := pt.Elem.(*ast.StructType)
	require.True(t, ok)
	require.Equal(t, "buf", st.Name)
}

func TestStatements(t *testing.T) {
	src := `
int sum(int *a, int n) {
    int s = 0, i;
    for (i = 0; i < n; i++) {
        if (a[i] < 0) continue;
        else s += a[i];
    }
    do { s--; } while (s > 100);
    while (1) break;
    return s;
}
`
	tu := mustParse(t, src)
	fd := mustFunc(t, tu, "sum")
	stmts := fd.Body.Statements
	require.Len(t, stmts, 5)

	ds, ok := stmts[0].(*ast.DeclStatement)
	require.True(t, ok)
	require.Len(t, ds.Decls, 2)
	require.Equal(t, "int s = 0", ds.Decls[0].String())

	fs, ok := stmts[1].(*ast.ForStatement)
	require.True(t, ok)
	require.Equal(t, "(i < n)", fs.Condition.String())
	require.Equal(t, "(i++)", fs.Post.String())

	ws, ok := stmts[2].(*ast.WhileStatement)
	require.True(t, ok)
	require.True(t, ws.DoWhile)

	ws, ok = stmts[3].(*ast.WhileStatement)
	require.True(t, ok)
	require.False(t, ws.DoWhile)
	br, ok := ws.Body.(*ast.BranchStatement)
	require.True(t, ok)
	require.Equal(t, token.KW_BREAK, br.Token.Type)

	rs, ok := stmts[4].(*ast.ReturnStatement)
	require.True(t, ok)
	require.Equal(t, "s", rs.Value.String())
}

func TestSafeRegions(t *testing.T) {
	src := `
void f(int *p) {
    __Safe__ {
        p[0] = 1;
        __Unsafe__ { p[1] = 2; }
    }
}
`
	tu := mustParse(t, src)
	fd := mustFunc(t, tu, "f")
	require.Equal(t, ast.RegionInherit, fd.Body.Region)
	safe, ok := fd.Body.Statements[0].(*ast.BlockStatement)
	require.True(t, ok)
	require.Equal(t, ast.RegionSafe, safe.Region)
	unsafe, ok := safe.Statements[1].(*ast.BlockStatement)
	require.True(t, ok)
	require.Equal(t, ast.RegionUnsafe, unsafe.Region)
	require.Equal(t, "__Unsafe__ { p[1] = 2; }", unsafe.String())
}

func TestFunctionPointerDecl(t *testing.T) {
	tu := mustParse(t, "int (*cb)(int *p __attribute__((nonnull)), int);")
	vd, ok := tu.Decls[0].(*ast.VarDecl)
	require.True(t, ok)
	pt, ok := vd.Type.(*ast.PointerType)
	require.True(t, ok, "got=%T", vd.Type)
	ft, ok := pt.Elem.(*ast.FuncType)
	require.True(t, ok, "got=%T", pt.Elem)
	require.Len(t, ft.Params, 2)
	require.Equal(t, "nonnull", ft.Params[0].Attrs[0].Name)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		line  int
	}{
		{"int x = ;", 1},
		{"void f() {\n  int y\n}", 3},
		{"int g(int a {", 1},
	}
	for _, tt := range tests {
		_, errs := Parse("bad.c", tt.input)
		require.NotEmpty(t, errs, "input %q", tt.input)
		require.Equal(t, tt.line, errs[0].Token.Pos.Line, "input %q: %s", tt.input, errs[0])
	}
}
