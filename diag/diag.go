// Package diag collects user-facing compiler diagnostics. Diagnostics never
// unwind: every component reports and keeps going so one run surfaces as
// many problems as possible.
package diag

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/thiremani/safec/token"
)

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Code identifies the diagnostic category.
type Code string

const (
	// Attribute resolution.
	CodeAttrIndex      Code = "ENC001" // index out of range
	CodeAttrTarget     Code = "ENC002" // attribute on a non-pointer
	CodeLenType        Code = "ENC003" // length source is not an integer
	CodeLenName        Code = "ENC004" // length name not found among siblings
	CodeLenStringVar   Code = "ENC005" // string literal length on a variable
	CodeAttrUnknownArg Code = "ENC006" // malformed attribute arguments

	// Checking.
	CodeNullInit        Code = "ENC101" // null stored into a nonnull target
	CodeNoBound         Code = "ENC102" // no bound obtainable for a check
	CodeStaticIndex     Code = "ENC103" // constant index out of range
	CodeFuncPtrMismatch Code = "ENC104"
	CodeFinalSize       Code = "ENC105" // boundary length source modified
	CodeStaticBound     Code = "ENC106" // constant address outside its object

	// Front end.
	CodeSyntax   Code = "C001"
	CodeSemantic Code = "C002"
)

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	Pos      token.Pos
	Code     Code
	Message  string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Pos, d.Severity, d.Message, d.Code)
}

// ErrTooManyErrors is returned by Err once the error limit is reached.
var ErrTooManyErrors = errors.New("too many errors")

// Reporter accumulates diagnostics for one compilation.
type Reporter struct {
	Diags []*Diagnostic
	// Limit stops recording errors after this many; 0 means unlimited.
	Limit int
	// WarningsAsErrors promotes every warning.
	WarningsAsErrors bool

	errors   int
	warnings int
}

func NewReporter() *Reporter {
	return &Reporter{Diags: []*Diagnostic{}}
}

// Report records a diagnostic.
func (r *Reporter) Report(sev Severity, pos token.Pos, code Code, format string, args ...any) {
	if sev == Warning && r.WarningsAsErrors {
		sev = Error
	}
	if sev == Error && r.Limited() {
		return
	}
	d := &Diagnostic{Severity: sev, Pos: pos, Code: code, Message: fmt.Sprintf(format, args...)}
	r.Diags = append(r.Diags, d)
	if sev == Error {
		r.errors++
	} else {
		r.warnings++
	}
	slog.Debug("diagnostic", "severity", sev.String(), "code", string(code), "pos", pos.String())
}

func (r *Reporter) Errorf(pos token.Pos, code Code, format string, args ...any) {
	r.Report(Error, pos, code, format, args...)
}

func (r *Reporter) Warnf(pos token.Pos, code Code, format string, args ...any) {
	r.Report(Warning, pos, code, format, args...)
}

// AddCompileErrors records front-end errors.
func (r *Reporter) AddCompileErrors(errs []*token.CompileError, code Code) {
	for _, e := range errs {
		r.Errorf(e.Token.Pos, code, "%s", e.Msg)
	}
}

func (r *Reporter) ErrorCount() int   { return r.errors }
func (r *Reporter) WarningCount() int { return r.warnings }

// Limited reports whether the error limit has been reached.
func (r *Reporter) Limited() bool {
	return r.Limit > 0 && r.errors >= r.Limit
}

// Err summarizes the reported errors, nil when there are none.
func (r *Reporter) Err() error {
	if r.errors == 0 {
		return nil
	}
	if r.Limited() {
		return fmt.Errorf("%d errors: %w", r.errors, ErrTooManyErrors)
	}
	return fmt.Errorf("%d errors", r.errors)
}

// ByCode returns the diagnostics carrying code.
func (r *Reporter) ByCode(code Code) []*Diagnostic {
	var out []*Diagnostic
	for _, d := range r.Diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}
