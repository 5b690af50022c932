package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/safec/codegen"
	"github.com/thiremani/safec/compiler"
	"github.com/thiremani/safec/config"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/parser"
	"tinygo.org/x/go-llvm"
)

func generateIR(t *testing.T, src string, opts config.Options) string {
	t.Helper()
	tu, errs := parser.Parse("test.c", src)
	require.Empty(t, errs)
	rep := diag.NewReporter()
	mod := compiler.Compile(tu, opts, rep)
	require.Zero(t, rep.ErrorCount(), "%v", rep.Diags)

	ctx := llvm.NewContext()
	defer ctx.Dispose()
	m, err := codegen.Generate(ctx, mod)
	require.NoError(t, err)
	return m.String()
}

func checked() config.Options {
	opts := config.Default()
	opts.NonnullCheck = true
	opts.BoundaryCheck = true
	return opts
}

const getSrc = `
int get(int *p __attribute__((count(n), nonnull)), int n, int i) {
    return p[i];
}
`

func TestGenerateBoundaryChecks(t *testing.T) {
	out := generateIR(t, getSrc, checked())
	assert.Contains(t, out, "define i32 @get(")
	assert.Contains(t, out, "declare void @__enc_check_fail(i32, i32)")
	assert.Contains(t, out, "icmp uge")
	assert.Contains(t, out, "icmp ult")
	assert.Contains(t, out, "check.fail")
	assert.Contains(t, out, "unreachable")
	assert.Contains(t, out, "noreturn")
}

func TestGenerateWithoutChecks(t *testing.T) {
	out := generateIR(t, getSrc, config.Default())
	assert.Contains(t, out, "define i32 @get(")
	assert.NotContains(t, out, "__enc_check_fail")
	assert.NotContains(t, out, "icmp uge")
}

func TestGenerateCallCheck(t *testing.T) {
	src := `
void fill(int *buf __attribute__((count_index(2))), int n);
void caller(void) {
    int arr[8];
    fill(arr, 5);
}
`
	out := generateIR(t, src, checked())
	assert.Contains(t, out, "declare void @fill(ptr, i32)")
	assert.Contains(t, out, "icmp ule")
	assert.Contains(t, out, "call void @fill(")
}

func TestGenerateGlobals(t *testing.T) {
	src := `
char gbuf[8];
char *gp = gbuf;
char msg[6] = "hello";
int count = 3;
void f(int i) {
    gp[i] = 0;
}
`
	out := generateIR(t, src, checked())
	assert.Contains(t, out, "@gbuf = ")
	assert.Contains(t, out, "@gp = ")
	assert.Contains(t, out, `c"hello\00"`)
	assert.Contains(t, out, "@count = global i32 3")
	assert.Contains(t, out, "_boundary.gp.")
}

func TestGenerateControlFlow(t *testing.T) {
	src := `
struct pt { int x; int y; };
int sum(struct pt *ps, int n) {
    int s = 0;
    int i;
    for (i = 0; i < n; i++) {
        if (ps[i].x < 0)
            continue;
        s += ps[i].x * ps[i].y;
        if (s > 1000)
            break;
    }
    while (s > 10 && n)
        s = s / 2;
    return s;
}
`
	out := generateIR(t, src, config.Default())
	assert.Contains(t, out, "define i32 @sum(ptr")
	assert.Contains(t, out, "sdiv")
	assert.Contains(t, out, "br i1")
}
