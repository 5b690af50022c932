package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/safec/config"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/parser"
)

func mustCompile(t *testing.T, src string) *ir.Module {
	t.Helper()
	mod, rep := compileSource(t, src)
	for _, d := range rep.Diags {
		t.Errorf("unexpected diagnostic: %s", d)
	}
	return mod
}

func compileSource(t *testing.T, src string) (*ir.Module, *diag.Reporter) {
	t.Helper()
	tu, errs := parser.Parse("test.c", src)
	require.Empty(t, errs)
	rep := diag.NewReporter()
	return Compile(tu, config.Default(), rep), rep
}

func bodyLines(fn *ir.Func) []string {
	return strings.Split(strings.TrimRight(ir.FormatStmts(fn.Body), "\n"), "\n")
}

func TestConstantFolding(t *testing.T) {
	mod := mustCompile(t, `
int n = 1 << 4;
int g(void) { return (3 + 4) * 2 - 1; }
`)
	require.NotNil(t, mod.Global("n"))
	assert.Equal(t, "16", mod.Global("n").Init.String())
	assert.Equal(t, []string{"return 13"}, bodyLines(mod.Func("g")))
}

func TestPointerArithmetic(t *testing.T) {
	mod := mustCompile(t, `
int *add(int *p, int i) { return p + i; }
char *addc(char *q, int i) { return q + i; }
long diff(int *a, int *b) { return a - b; }
`)
	assert.Equal(t, []string{"return (p + (cvt<i64>(i) * 4))"}, bodyLines(mod.Func("add")))
	assert.Equal(t, []string{"return (q + cvt<i64>(i))"}, bodyLines(mod.Func("addc")))
	assert.Equal(t, []string{"return ((cvt<i64>(a) - cvt<i64>(b)) / 4)"}, bodyLines(mod.Func("diff")))
}

func TestPostfixIncrement(t *testing.T) {
	mod := mustCompile(t, `
int inc(int x) {
    int y = x++;
    return y;
}
`)
	expected := []string{
		"tmp.1 = x",
		"x = (x + 1)",
		"y = tmp.1",
		"return y",
	}
	fn := mod.Func("inc")
	assert.Equal(t, expected, bodyLines(fn))
	assert.NotNil(t, fn.Local("tmp.1"))
}

func TestShadowedLocals(t *testing.T) {
	mod := mustCompile(t, `
int f(void) {
    int a = 1;
    {
        int a = 2;
        return a;
    }
}
`)
	assert.Equal(t, []string{"a = 1", "a.1 = 2", "return a.1"}, bodyLines(mod.Func("f")))
}

func TestShortCircuit(t *testing.T) {
	mod := mustCompile(t, `
int f(int *p) { return p && *p; }
int g(int a, int b) { return a && b; }
`)
	f := mod.Func("f")
	require.Len(t, f.Body, 3)
	assert.IsType(t, &ir.Assign{}, f.Body[0])
	cond, ok := f.Body[1].(*ir.If)
	require.True(t, ok)
	require.Len(t, cond.Then, 1)
	assert.Equal(t, "return tmp.1", ir.StmtString(f.Body[2]))

	// no loads on the right, so no branch is needed
	g := mod.Func("g")
	require.Len(t, g.Body, 1)
	assert.IsType(t, &ir.Return{}, g.Body[0])
}

func TestLoops(t *testing.T) {
	mod := mustCompile(t, `
int sum(int n) {
    int s = 0;
    int i;
    for (i = 0; i < n; i++)
        s += i;
    do { s--; } while (s > 100);
    return s;
}
`)
	fn := mod.Func("sum")
	var loops []*ir.While
	for _, s := range fn.Body {
		if w, ok := s.(*ir.While); ok {
			loops = append(loops, w)
		}
	}
	require.Len(t, loops, 2)
	assert.NotNil(t, loops[0].Cond)
	assert.False(t, loops[0].DoWhile)
	assert.Len(t, loops[0].Post, 1)
	assert.True(t, loops[1].DoWhile)
}

func TestCharArrayInit(t *testing.T) {
	mod := mustCompile(t, `
char greeting[4] = "hi";
void f(void) { char s[4] = "hi"; }
`)
	g := mod.Global("greeting")
	require.NotNil(t, g)
	str, ok := g.Init.(*ir.Str)
	require.True(t, ok)
	assert.Equal(t, "hi", str.Value)

	fn := mod.Func("f")
	require.Len(t, fn.Body, 4, "one store per element, padded with zeros")
	for _, s := range fn.Body {
		assert.IsType(t, &ir.IAssign{}, s)
	}
}

func TestStructFieldIDs(t *testing.T) {
	mod := mustCompile(t, `
struct A { int a; };
struct B { struct A a; struct A *pa; int d; };
int f(void) {
    struct B b;
    b.a.a = 1;
    b.d = 2;
    return b.a.a + b.d;
}
`)
	assert.Equal(t, []string{"b#2 = 1", "b#4 = 2", "return (b#2 + b#4)"}, bodyLines(mod.Func("f")))
}

func TestLowerWithoutChecks(t *testing.T) {
	mod := mustCompile(t, `
int get(int *p __attribute__((count(n))), int n, int i) { return p[i]; }
`)
	fn := mod.Func("get")
	for _, s := range fn.Body {
		assert.NotContains(t, ir.StmtString(s), "check.")
	}
	assert.Empty(t, fn.Entry)
	assert.Len(t, fn.Locals, 0)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"int __enc_check_fail(void);", "__enc_check_fail is reserved"},
		{"int f(void) { return x; }", "undeclared identifier x"},
		{"void f(void) { break; }", "break statement not within a loop"},
		{"int f(int a) { int a; return a; }", "redefinition of a"},
		{"int f(void);\nlong f(void);", "conflicting types for f"},
		{"void f(void) { int a[2]; a = 0; }", "assignment to array"},
		{"int g = 1;\nint h = g;", "initializer of h is not a constant"},
		{"void f(void) { return 1; }", "void function f should not return a value"},
		{"int f(void) { return; }", "non-void function f should return a value"},
		{"int f(int x) { return *x; }", "cannot dereference"},
		{"int f(void) { return g(); }", "implicit declaration of function g"},
		{"int g(int a);\nint f(void) { return g(); }", "expects 1 arguments, got 0"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			_, rep := compileSource(t, tt.src)
			require.NotZero(t, rep.ErrorCount())
			var msgs []string
			for _, d := range rep.ByCode(diag.CodeSemantic) {
				msgs = append(msgs, d.Message)
			}
			assert.Contains(t, strings.Join(msgs, "\n"), tt.msg)
		})
	}
}

func TestScopes(t *testing.T) {
	scopes := []Scope[int]{NewScope[int](FileScope)}
	Put(scopes, "x", 1)
	PushScope(&scopes, FuncScope)
	Put(scopes, "y", 2)

	v, ok := Get(scopes, "x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = GetLocal(scopes, "x")
	assert.False(t, ok)

	PutBulk(scopes, map[string]int{"x": 3})
	v, _ = Get(scopes, "x")
	assert.Equal(t, 3, v, "inner scope shadows")

	PopScope(&scopes)
	_, ok = Get(scopes, "y")
	assert.False(t, ok)
	assert.Panics(t, func() { PopScope(&scopes) })
}
