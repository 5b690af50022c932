package enhancedc

import "github.com/thiremani/safec/ir"

// memberKey names one declared boundary: a parameter or return slot of a
// function signature, a field of a struct, or a variable.
type memberKey struct {
	owner  any
	member string
}

// LenCache holds resolved length expressions for the whole module, keyed by
// structural hash and by declaring member.
type LenCache struct {
	byHash   map[uint64]ir.Expr
	byMember map[memberKey]uint64
}

func NewLenCache() *LenCache {
	return &LenCache{
		byHash:   make(map[uint64]ir.Expr),
		byMember: make(map[memberKey]uint64),
	}
}

// Put stores e and returns its hash. Storing an equal expression again
// keeps the first entry.
func (lc *LenCache) Put(e ir.Expr) uint64 {
	h := e.Hash()
	if _, ok := lc.byHash[h]; !ok {
		lc.byHash[h] = e
	}
	return h
}

// Get returns a copy of the cached expression for hash h.
func (lc *LenCache) Get(h uint64) (ir.Expr, bool) {
	e, ok := lc.byHash[h]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

func (lc *LenCache) member(owner any, member string) (ir.Expr, bool) {
	h, ok := lc.byMember[memberKey{owner, member}]
	if !ok {
		return nil, false
	}
	return lc.Get(h)
}

func (lc *LenCache) putMember(owner any, member string, e ir.Expr) uint64 {
	h := lc.Put(e)
	lc.byMember[memberKey{owner, member}] = h
	return h
}

// Len is the number of distinct cached expressions.
func (lc *LenCache) Len() int { return len(lc.byHash) }
