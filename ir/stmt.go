package ir

import (
	"github.com/thiremani/safec/token"
	"github.com/thiremani/safec/types"
)

// Stmt is one IR statement.
type Stmt interface {
	Pos() token.Pos
	stmtNode()
}

// Assign stores Src into variable Dst, or into its field FieldID.
type Assign struct {
	Dst     *Var
	FieldID int
	Src     Expr
	Loc     token.Pos
}

// IAssign stores Src through Addr, into field FieldID of the pointee struct
// when non-zero.
type IAssign struct {
	Addr    Expr
	FieldID int
	Src     Expr
	Loc     token.Pos
}

// Call invokes Callee and stores a non-void result into Result when set.
type Call struct {
	Result *Var
	Callee Expr
	Sig    *types.Func
	Args   []Expr
	Loc    token.Pos
}

type Return struct {
	Value Expr // nil for void
	Loc   token.Pos
}

type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Loc  token.Pos
}

// While loops while Cond holds; a nil Cond loops until a Break. Post runs
// after Body and on Continue.
type While struct {
	Cond    Expr
	Body    []Stmt
	Post    []Stmt
	DoWhile bool
	Loc     token.Pos
}

type Break struct{ Loc token.Pos }
type Continue struct{ Loc token.Pos }

// Eval evaluates X for a memory access without storing the result.
type Eval struct {
	X   Expr
	Loc token.Pos
}

type AssertKind int

const (
	AssertGE AssertKind = iota + 1
	AssertLT
	AssertLE
	CallAssertLE
	ReturnAssertLE
)

var assertNames = [...]string{
	AssertGE:       "assertge",
	AssertLT:       "assertlt",
	AssertLE:       "assertle",
	CallAssertLE:   "callassertle",
	ReturnAssertLE: "returnassertle",
}

func (k AssertKind) String() string { return assertNames[k] }

// BoundaryAssert is an abstract bounds assertion: Cand must lie within the
// bounds of the object Base addresses. It is replaced by Check statements
// before code generation.
type BoundaryAssert struct {
	Kind AssertKind
	Cand Expr
	Base Expr
	// Safe is set when the assertion was created inside a safe region.
	Safe bool
	Loc  token.Pos
}

type CheckOp int

const (
	CheckGE CheckOp = iota
	CheckLT
	CheckLE
)

var checkOpNames = [...]string{"ge", "lt", "le"}

func (op CheckOp) String() string { return checkOpNames[op] }

// Check is a concrete unsigned pointer comparison X op Bound; a false
// result traps.
type Check struct {
	Op    CheckOp
	X     Expr
	Bound Expr
	Kind  AssertKind
	Loc   token.Pos
}

type NonnullKind int

const (
	AssertNonnull NonnullKind = iota + 10
	AssignAssertNonnull
	CallAssertNonnull
	ReturnAssertNonnull
)

var nonnullNames = map[NonnullKind]string{
	AssertNonnull:       "assertnonnull",
	AssignAssertNonnull: "assignassertnonnull",
	CallAssertNonnull:   "callassertnonnull",
	ReturnAssertNonnull: "returnassertnonnull",
}

func (k NonnullKind) String() string { return nonnullNames[k] }

// NonnullAssert traps when X is null.
type NonnullAssert struct {
	Kind NonnullKind
	X    Expr
	Loc  token.Pos
}

func (s *Assign) Pos() token.Pos         { return s.Loc }
func (s *IAssign) Pos() token.Pos        { return s.Loc }
func (s *Call) Pos() token.Pos           { return s.Loc }
func (s *Return) Pos() token.Pos         { return s.Loc }
func (s *If) Pos() token.Pos             { return s.Loc }
func (s *While) Pos() token.Pos          { return s.Loc }
func (s *Break) Pos() token.Pos          { return s.Loc }
func (s *Continue) Pos() token.Pos       { return s.Loc }
func (s *Eval) Pos() token.Pos           { return s.Loc }
func (s *BoundaryAssert) Pos() token.Pos { return s.Loc }
func (s *Check) Pos() token.Pos          { return s.Loc }
func (s *NonnullAssert) Pos() token.Pos  { return s.Loc }

func (s *Assign) stmtNode()         {}
func (s *IAssign) stmtNode()        {}
func (s *Call) stmtNode()           {}
func (s *Return) stmtNode()         {}
func (s *If) stmtNode()             {}
func (s *While) stmtNode()          {}
func (s *Break) stmtNode()          {}
func (s *Continue) stmtNode()       {}
func (s *Eval) stmtNode()           {}
func (s *BoundaryAssert) stmtNode() {}
func (s *Check) stmtNode()          {}
func (s *NonnullAssert) stmtNode()  {}
