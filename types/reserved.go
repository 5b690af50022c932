package types

import "strings"

// BoundaryPrefix starts the name of every synthesized shadow boundary variable.
const BoundaryPrefix = "_boundary."

// CheckFailFunc is the runtime hook called when an injected check fails.
const CheckFailFunc = "__enc_check_fail"

var reservedNames = []string{
	CheckFailFunc,
}

var reservedSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(reservedNames))
	for _, n := range reservedNames {
		m[n] = struct{}{}
	}
	return m
}()

// IsReservedName reports whether user code may not define name.
func IsReservedName(name string) bool {
	if strings.HasPrefix(name, BoundaryPrefix) {
		return true
	}
	_, ok := reservedSet[name]
	return ok
}
