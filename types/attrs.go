package types

import "fmt"

// ReturnIndex is the parameter index that denotes a function's return value.
const ReturnIndex = -1

// Attrs is the safety attribute set of a variable, field, parameter or
// return value.
type Attrs struct {
	Nonnull     bool
	HasBoundary bool
	// LenParamIdx is the 0-based sibling index holding the length, -1 if unset.
	LenParamIdx int
	// LenHash keys the resolved length expression in the module length cache.
	LenHash    uint64
	IsBytedLen bool
	// FinalBoundarySize marks a value that some boundary uses as its length.
	FinalBoundarySize bool
}

func NewAttrs() Attrs {
	return Attrs{LenParamIdx: -1}
}

func (a Attrs) String() string {
	s := ""
	if a.Nonnull {
		s += "nonnull "
	}
	if a.HasBoundary {
		kind := "count"
		if a.IsBytedLen {
			kind = "byte_count"
		}
		s += fmt.Sprintf("%s#%016x ", kind, a.LenHash)
	}
	if s == "" {
		return "-"
	}
	return s[:len(s)-1]
}

// FuncAttrs holds one attribute set per parameter plus the return value.
type FuncAttrs struct {
	Params []Attrs
	Ret    Attrs
}

func NewFuncAttrs(n int) FuncAttrs {
	fa := FuncAttrs{Params: make([]Attrs, n), Ret: NewAttrs()}
	for i := range fa.Params {
		fa.Params[i] = NewAttrs()
	}
	return fa
}

// Slot returns the attribute set for param index idx, or the return value
// attributes for ReturnIndex.
func (fa *FuncAttrs) Slot(idx int) *Attrs {
	if idx == ReturnIndex {
		return &fa.Ret
	}
	if idx < 0 || idx >= len(fa.Params) {
		panic(fmt.Sprintf("attribute slot %d out of range", idx))
	}
	return &fa.Params[idx]
}

// SameContract reports whether two attribute slots promise the same thing
// for the checks that are enabled.
func SameContract(a, b Attrs, nonnull, boundary bool) bool {
	if nonnull && a.Nonnull != b.Nonnull {
		return false
	}
	if !boundary {
		return true
	}
	if a.HasBoundary != b.HasBoundary {
		return false
	}
	if !a.HasBoundary {
		return true
	}
	return a.IsBytedLen == b.IsBytedLen && a.LenHash == b.LenHash
}

// Mismatch returns the 0-based parameter indices whose contracts differ and
// whether the return contracts differ.
func Mismatch(dst, src FuncAttrs, nonnull, boundary bool) (params []int, ret bool) {
	n := min(len(dst.Params), len(src.Params))
	for i := 0; i < n; i++ {
		if !SameContract(dst.Params[i], src.Params[i], nonnull, boundary) {
			params = append(params, i)
		}
	}
	ret = !SameContract(dst.Ret, src.Ret, nonnull, boundary)
	return params, ret
}
