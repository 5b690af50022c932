package ir

import (
	"bytes"
	"fmt"
	"strings"
)

// String prints the module in a stable text form.
func (m *Module) String() string {
	var out bytes.Buffer
	for _, st := range m.Structs {
		out.WriteString(st.String() + " {")
		for _, f := range st.Fields {
			fmt.Fprintf(&out, " %s %s", f.Name, f.Type)
			if a := f.Attrs.String(); a != "-" {
				out.WriteString(" [" + a + "]")
			}
			out.WriteString(";")
		}
		out.WriteString(" }\n")
	}
	for _, g := range m.Globals {
		out.WriteString(globalString(g))
		out.WriteString("\n")
	}
	for _, fn := range m.Funcs {
		out.WriteString(fn.String())
	}
	return out.String()
}

func globalString(g *Var) string {
	s := "global " + g.Name + " " + g.Type.String()
	if a := g.Attrs.String(); a != "-" {
		s += " [" + a + "]"
	}
	if g.Init != nil {
		s += " = " + g.Init.String()
	}
	return s
}

func (f *Func) String() string {
	var out bytes.Buffer
	params := make([]string, 0, len(f.Params))
	for i, p := range f.Params {
		ps := p.Name + " " + p.Type.String()
		if a := f.Sig.Attrs.Params[i].String(); a != "-" {
			ps += " [" + a + "]"
		}
		params = append(params, ps)
	}
	fmt.Fprintf(&out, "func %s(%s) %s", f.Name, strings.Join(params, ", "), f.Sig.Ret)
	if a := f.Sig.Attrs.Ret.String(); a != "-" {
		out.WriteString(" [" + a + "]")
	}
	if !f.Defined {
		out.WriteString("\n")
		return out.String()
	}
	out.WriteString(" {\n")
	for _, v := range f.Locals {
		fmt.Fprintf(&out, "  var %s %s\n", v.Name, v.Type)
	}
	writeStmts(&out, f.Entry, 1)
	writeStmts(&out, f.Body, 1)
	out.WriteString("}\n")
	return out.String()
}

// FormatStmts prints a statement list, one statement per line.
func FormatStmts(stmts []Stmt) string {
	var out bytes.Buffer
	writeStmts(&out, stmts, 0)
	return out.String()
}

// StmtString prints a single statement.
func StmtString(s Stmt) string {
	return strings.TrimRight(FormatStmts([]Stmt{s}), "\n")
}

func writeStmts(out *bytes.Buffer, stmts []Stmt, depth int) {
	for _, s := range stmts {
		writeStmt(out, s, depth)
	}
}

func writeStmt(out *bytes.Buffer, s Stmt, depth int) {
	ind := strings.Repeat("  ", depth)
	switch s := s.(type) {
	case *Assign:
		fmt.Fprintf(out, "%s%s = %s\n", ind, varField(s.Dst.Name, s.FieldID), s.Src)
	case *IAssign:
		if s.FieldID == 0 {
			fmt.Fprintf(out, "%s*(%s) = %s\n", ind, s.Addr, s.Src)
		} else {
			fmt.Fprintf(out, "%s(%s)->#%d = %s\n", ind, s.Addr, s.FieldID, s.Src)
		}
	case *Call:
		args := make([]string, 0, len(s.Args))
		for _, a := range s.Args {
			args = append(args, a.String())
		}
		lhs := ""
		if s.Result != nil {
			lhs = s.Result.Name + " = "
		}
		fmt.Fprintf(out, "%s%scall %s(%s)\n", ind, lhs, s.Callee, strings.Join(args, ", "))
	case *Return:
		if s.Value == nil {
			fmt.Fprintf(out, "%sreturn\n", ind)
		} else {
			fmt.Fprintf(out, "%sreturn %s\n", ind, s.Value)
		}
	case *If:
		fmt.Fprintf(out, "%sif %s {\n", ind, s.Cond)
		writeStmts(out, s.Then, depth+1)
		if len(s.Else) > 0 {
			fmt.Fprintf(out, "%s} else {\n", ind)
			writeStmts(out, s.Else, depth+1)
		}
		fmt.Fprintf(out, "%s}\n", ind)
	case *While:
		cond := "1"
		if s.Cond != nil {
			cond = s.Cond.String()
		}
		if s.DoWhile {
			fmt.Fprintf(out, "%sdo {\n", ind)
		} else {
			fmt.Fprintf(out, "%swhile %s {\n", ind, cond)
		}
		writeStmts(out, s.Body, depth+1)
		if len(s.Post) > 0 {
			fmt.Fprintf(out, "%s} post {\n", ind)
			writeStmts(out, s.Post, depth+1)
		}
		if s.DoWhile {
			fmt.Fprintf(out, "%s} while %s\n", ind, cond)
		} else {
			fmt.Fprintf(out, "%s}\n", ind)
		}
	case *Break:
		fmt.Fprintf(out, "%sbreak\n", ind)
	case *Continue:
		fmt.Fprintf(out, "%scontinue\n", ind)
	case *Eval:
		fmt.Fprintf(out, "%seval %s\n", ind, s.X)
	case *BoundaryAssert:
		fmt.Fprintf(out, "%s%s(%s, %s)\n", ind, s.Kind, s.Cand, s.Base)
	case *Check:
		fmt.Fprintf(out, "%scheck.%s(%s, %s) %s\n", ind, s.Op, s.X, s.Bound, s.Kind)
	case *NonnullAssert:
		fmt.Fprintf(out, "%s%s(%s)\n", ind, s.Kind, s.X)
	default:
		panic(fmt.Sprintf("unknown statement %T", s))
	}
}
