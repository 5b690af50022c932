package codegen

import (
	"fmt"

	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/types"
	"tinygo.org/x/go-llvm"
)

func (g *Generator) stmts(ss []ir.Stmt) {
	for _, s := range ss {
		if g.terminated() {
			// code after break, continue or return is unreachable
			g.builder.SetInsertPointAtEnd(g.Context.AddBasicBlock(g.llfn, "dead"))
		}
		g.stmt(s)
	}
}

func (g *Generator) stmt(s ir.Stmt) {
	switch s := s.(type) {
	case *ir.Assign:
		t := s.Dst.Type
		if s.FieldID != 0 {
			t = t.(*types.Struct).FieldType(s.FieldID)
		}
		g.createStore(g.expr(s.Src), g.varAddr(s.Dst, s.FieldID), t)
	case *ir.IAssign:
		g.createStore(g.expr(s.Src), g.fieldAddr(s.Addr, s.FieldID), s.Src.Type())
	case *ir.Eval:
		g.expr(s.X)
	case *ir.Call:
		g.call(s)
	case *ir.Return:
		if s.Value == nil {
			g.builder.CreateRetVoid()
			return
		}
		g.builder.CreateRet(g.expr(s.Value))
	case *ir.If:
		g.ifStmt(s)
	case *ir.While:
		g.while(s)
	case *ir.Break:
		g.builder.CreateBr(g.loops[len(g.loops)-1].brk)
	case *ir.Continue:
		g.builder.CreateBr(g.loops[len(g.loops)-1].cont)
	case *ir.Check:
		g.check(s)
	case *ir.NonnullAssert:
		v := g.expr(s.X)
		ok := g.builder.CreateICmp(llvm.IntNE, v, llvm.ConstNull(v.Type()), "nonnull")
		g.guard(ok, int(s.Kind), s.Loc.Line)
	case *ir.BoundaryAssert:
		panic(fmt.Sprintf("%s: unreplaced %s", s.Loc, s.Kind))
	default:
		panic(fmt.Sprintf("unsupported statement %T", s))
	}
}

func (g *Generator) call(s *ir.Call) {
	args := make([]llvm.Value, len(s.Args))
	for i, a := range s.Args {
		args[i] = g.expr(a)
	}
	name := ""
	if s.Result != nil {
		name = s.Result.Name
	}
	v := g.builder.CreateCall(g.funcType(s.Sig), g.expr(s.Callee), args, name)
	if s.Result != nil {
		g.createStore(v, g.varAddr(s.Result, 0), s.Result.Type)
	}
}

// truth turns a scalar ir value into an i1.
func (g *Generator) truth(e ir.Expr) llvm.Value {
	v := g.expr(e)
	if types.IsFloat(e.Type()) {
		return g.builder.CreateFCmp(llvm.FloatUNE, v, llvm.ConstNull(v.Type()), "")
	}
	return g.builder.CreateICmp(llvm.IntNE, v, llvm.ConstNull(v.Type()), "")
}

// createIfElseCont creates then, else and continuation blocks and branches
// on cond.
func (g *Generator) createIfElseCont(cond llvm.Value, thenName, elseName, contName string) (thenBlock, elseBlock, contBlock llvm.BasicBlock) {
	thenBlock = g.Context.AddBasicBlock(g.llfn, thenName)
	elseBlock = g.Context.AddBasicBlock(g.llfn, elseName)
	contBlock = g.Context.AddBasicBlock(g.llfn, contName)
	g.builder.CreateCondBr(cond, thenBlock, elseBlock)
	return
}

func (g *Generator) branchTo(b llvm.BasicBlock) {
	if !g.terminated() {
		g.builder.CreateBr(b)
	}
}

func (g *Generator) ifStmt(s *ir.If) {
	thenBlock, elseBlock, contBlock := g.createIfElseCont(g.truth(s.Cond), "if.then", "if.else", "if.end")
	g.builder.SetInsertPointAtEnd(thenBlock)
	g.stmts(s.Then)
	g.branchTo(contBlock)
	g.builder.SetInsertPointAtEnd(elseBlock)
	g.stmts(s.Else)
	g.branchTo(contBlock)
	g.builder.SetInsertPointAtEnd(contBlock)
}

func (g *Generator) while(s *ir.While) {
	condBlock := g.Context.AddBasicBlock(g.llfn, "loop.cond")
	bodyBlock := g.Context.AddBasicBlock(g.llfn, "loop.body")
	postBlock := g.Context.AddBasicBlock(g.llfn, "loop.post")
	exitBlock := g.Context.AddBasicBlock(g.llfn, "loop.exit")

	if s.DoWhile {
		g.builder.CreateBr(bodyBlock)
	} else {
		g.builder.CreateBr(condBlock)
	}

	g.builder.SetInsertPointAtEnd(condBlock)
	if s.Cond == nil {
		g.builder.CreateBr(bodyBlock)
	} else {
		g.builder.CreateCondBr(g.truth(s.Cond), bodyBlock, exitBlock)
	}

	g.loops = append(g.loops, loopTargets{brk: exitBlock, cont: postBlock})
	g.builder.SetInsertPointAtEnd(bodyBlock)
	g.stmts(s.Body)
	g.branchTo(postBlock)

	g.builder.SetInsertPointAtEnd(postBlock)
	g.stmts(s.Post)
	g.branchTo(condBlock)
	g.loops = g.loops[:len(g.loops)-1]

	g.builder.SetInsertPointAtEnd(exitBlock)
}

var checkPreds = [...]llvm.IntPredicate{
	ir.CheckGE: llvm.IntUGE,
	ir.CheckLT: llvm.IntULT,
	ir.CheckLE: llvm.IntULE,
}

// check compares the two addresses as unsigned integers.
func (g *Generator) check(s *ir.Check) {
	i64 := g.Context.Int64Type()
	x := g.builder.CreatePtrToInt(g.expr(s.X), i64, "")
	b := g.builder.CreatePtrToInt(g.expr(s.Bound), i64, "")
	ok := g.builder.CreateICmp(checkPreds[s.Op], x, b, s.Kind.String())
	g.guard(ok, int(s.Kind), s.Loc.Line)
}

// guard continues in a fresh block when ok holds and reports a failure of
// the given kind otherwise.
func (g *Generator) guard(ok llvm.Value, kind, line int) {
	okBlock := g.Context.AddBasicBlock(g.llfn, "check.ok")
	failBlock := g.Context.AddBasicBlock(g.llfn, "check.fail")
	g.builder.CreateCondBr(ok, okBlock, failBlock)

	g.builder.SetInsertPointAtEnd(failBlock)
	fnType, fn := g.GetCFunc(CHECK_FAIL)
	i32 := g.Context.Int32Type()
	g.builder.CreateCall(fnType, fn, []llvm.Value{
		llvm.ConstInt(i32, uint64(kind), false),
		llvm.ConstInt(i32, uint64(line), false),
	}, "")
	g.builder.CreateUnreachable()

	g.builder.SetInsertPointAtEnd(okBlock)
}
