// types.go defines the VSOP type universe and the two relations the checker and
// lowerer both need: ConformsTo (subtyping) and Join (least common ancestor),
// grounded on the class-graph walk the teacher's ir/validate.go does for type
// matching, generalized here from node-kind equality to the class hierarchy.
package sema

import "vsopc/src/ast"

// Unknown is the sentinel type assigned to an expression once a semantic error
// makes its real type impossible to infer, so downstream checks don't cascade
// spurious errors from the same mistake.
const Unknown = "<unknown>"

const (
	Int32  = "int32"
	Bool   = "bool"
	String = "string"
	Unit   = "unit"
)

func isPrimitive(t string) bool {
	switch t {
	case Int32, Bool, String, Unit:
		return true
	}
	return false
}

// ConformsTo reports whether sub is sub is a subtype of (or equal to) sup: the
// VSOP "conforms to" relation used for assignment, formal binding, and return
// values. Unknown conforms to everything and everything conforms to Unknown, so
// a single bad expression doesn't cause a flood of unrelated errors.
func ConformsTo(sub, sup string, classes map[string]*ast.Class) bool {
	if sub == Unknown || sup == Unknown {
		return true
	}
	if sub == sup {
		return true
	}
	if isPrimitive(sub) || isPrimitive(sup) {
		return false
	}
	// Both are (purportedly) class names: walk sub's ancestor chain.
	c, ok := classes[sub]
	if !ok {
		return false
	}
	for c != nil {
		if c.Name == sup {
			return true
		}
		c = c.Parent
	}
	return false
}

// Join returns the least common ancestor of a and b in the "conforms to"
// partial order: for two classes, their closest common superclass; for two
// equal primitive or unit types, that type; unit if either side is unit;
// otherwise Unknown, since VSOP gives primitives no common supertype besides
// themselves.
func Join(a, b string, classes map[string]*ast.Class) string {
	if a == Unknown || b == Unknown {
		return Unknown
	}
	if a == b {
		return a
	}
	if a == Unit || b == Unit {
		return Unit
	}
	if isPrimitive(a) || isPrimitive(b) {
		return Unknown
	}
	ca, ok := classes[a]
	if !ok {
		return Unknown
	}
	cb, ok := classes[b]
	if !ok {
		return Unknown
	}

	ancestors := map[string]bool{}
	for c := ca; c != nil; c = c.Parent {
		ancestors[c.Name] = true
	}
	for c := cb; c != nil; c = c.Parent {
		if ancestors[c.Name] {
			return c.Name
		}
	}
	return Unknown
}

// IsClass reports whether t names a declared class (including Object).
func IsClass(t string, classes map[string]*ast.Class) bool {
	_, ok := classes[t]
	return ok
}
