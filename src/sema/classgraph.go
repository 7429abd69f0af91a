// classgraph.go resolves a parsed ast.Program's class declarations into a
// usable class graph: injecting the synthetic Object root, linking each class
// to its parent, merging inherited fields/methods, and rejecting structurally
// broken programs (cycles, unknown parents, duplicate members, incompatible
// overrides). Grounded on the ancestor-walk ir/validate.go performs before
// type-checking a node, and on original_source/ast.cpp's field/method index
// assignment (fields from 1, methods from 0, overrides keep their parent's
// slot).
package sema

import (
	"sort"

	"vsopc/src/ast"
	"vsopc/src/util"
)

// objectMethod describes one of Object's six built-in methods: no VSOP source,
// just a signature, resolved directly to a runtime symbol by the lowerer.
type objectMethod struct {
	name       string
	formals    []ast.Formal
	returnType string
}

var objectMethods = []objectMethod{
	{"print", []ast.Formal{{Name: "s", Type: String}}, "Object"},
	{"printBool", []ast.Formal{{Name: "b", Type: Bool}}, "Object"},
	{"printInt32", []ast.Formal{{Name: "i", Type: Int32}}, "Object"},
	{"inputLine", nil, String},
	{"inputBool", nil, Bool},
	{"inputInt32", nil, Int32},
}

// Resolve builds the class graph for prog: injecting Object, linking parents,
// merging inherited members, and reporting every structural error it finds into
// diags. Returns the set of classes that remain well-formed enough to
// type-check; classes removed because of unresolvable errors (a cyclic or
// unknown parent) are dropped entirely rather than partially checked.
func Resolve(prog *ast.Program, diags *util.Diagnostics) map[string]*ast.Class {
	object := newObjectClass()
	prog.Classes["Object"] = object
	prog.Order = append([]*ast.Class{object}, prog.Order...)

	registered := map[string]*ast.Class{"Object": object}
	seen := map[string]bool{"Object": true}
	var order []*ast.Class
	order = append(order, object)

	// Register in declaration order, dropping redeclarations of a name (the
	// first wins, matching how the teacher's symbol table resolves duplicate
	// top-level declarations).
	for _, c := range prog.Order {
		if c == object {
			continue
		}
		if seen[c.Name] {
			diags.Errorf(c.Pos, "Redefinition of class %s", c.Name)
			continue
		}
		seen[c.Name] = true
		registered[c.Name] = c
		order = append(order, c)
	}

	for _, c := range order {
		if c == object {
			continue
		}
		checkDuplicateMembers(c, diags)
	}

	// Link parents and drop classes whose parent is unknown or whose ancestry
	// is cyclic -- those can't be laid out at all.
	valid := map[string]*ast.Class{"Object": object}
	for _, c := range order {
		if c == object {
			continue
		}
		parent, ok := registered[c.ParentName]
		if !ok {
			diags.Errorf(c.Pos, "class %s cannot extend class %s", c.Name, c.ParentName)
			continue
		}
		c.Parent = parent
		valid[c.Name] = c
	}
	for name, c := range valid {
		if name == "Object" {
			continue
		}
		broken := hasCycle(c)
		for p := c; !broken && p != object; p = p.Parent {
			broken = p.Parent == nil // An ancestor whose own parent never resolved.
		}
		if broken {
			diags.Errorf(c.Pos, "class %s cannot extend class %s", c.Name, c.ParentName)
			delete(valid, name)
		}
	}

	// Merge inherited members and validate overrides, in topological
	// (parent-before-child) order.
	for _, c := range topoOrder(valid, object) {
		buildIndex(c, diags)
	}

	checkMain(valid, diags)
	return valid
}

func newObjectClass() *ast.Class {
	c := &ast.Class{Name: "Object", FieldIndex: map[string]*ast.Field{}, MethodIndex: map[string]*ast.Method{}}
	for i1, om := range objectMethods {
		formals := make([]*ast.Formal, len(om.formals))
		for i2 := range om.formals {
			f := om.formals[i2]
			formals[i2] = &f
		}
		m := &ast.Method{
			Name:        om.name,
			ReturnType:  om.returnType,
			Formals:     formals,
			Owner:       c,
			VtableIndex: i1,
		}
		c.Methods = append(c.Methods, m)
		c.MethodIndex[om.name] = m
	}
	return c
}

func checkDuplicateMembers(c *ast.Class, diags *util.Diagnostics) {
	fields := map[string]bool{}
	keptFields := c.Fields[:0]
	for _, f := range c.Fields {
		if fields[f.Name] {
			diags.Errorf(f.Pos, "field %s is already defined in class %s", f.Name, c.Name)
			continue
		}
		fields[f.Name] = true
		keptFields = append(keptFields, f)
	}
	c.Fields = keptFields
	methods := map[string]bool{}
	keptMethods := c.Methods[:0]
	for _, m := range c.Methods {
		if methods[m.Name] {
			diags.Errorf(m.Pos, "method %s is already defined in class %s", m.Name, c.Name)
			continue
		}
		methods[m.Name] = true
		keptMethods = append(keptMethods, m)

		formals := map[string]bool{}
		keptFormals := m.Formals[:0]
		for _, fm := range m.Formals {
			if formals[fm.Name] {
				diags.Errorf(fm.Pos, "formal %s is already defined in method %s", fm.Name, m.Name)
				continue
			}
			formals[fm.Name] = true
			keptFormals = append(keptFormals, fm)
		}
		m.Formals = keptFormals
	}
	c.Methods = keptMethods
}

func hasCycle(c *ast.Class) bool {
	slow, fast := c, c
	for {
		if fast.Parent == nil {
			return false
		}
		fast = fast.Parent
		if fast.Parent == nil {
			return false
		}
		fast = fast.Parent
		slow = slow.Parent
		if slow == fast {
			return true
		}
	}
}

// topoOrder returns valid's classes sorted so every class appears after its
// parent, so buildIndex can assume the parent's index maps are already final.
func topoOrder(valid map[string]*ast.Class, object *ast.Class) []*ast.Class {
	depth := func(c *ast.Class) int {
		d := 0
		for p := c; p != object; p = p.Parent {
			d++
		}
		return d
	}
	names := make([]string, 0, len(valid))
	for n := range valid {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := valid[names[i]], valid[names[j]]
		if di, dj := depth(ci), depth(cj); di != dj {
			return di < dj
		}
		return names[i] < names[j]
	})
	out := make([]*ast.Class, len(names))
	for i1, n := range names {
		out[i1] = valid[n]
	}
	return out
}

// buildIndex merges c's inherited fields and methods into its FieldIndex and
// MethodIndex, assigns vtable/struct slots per original_source/ast.cpp's layout
// rule (fields count from 1, methods from 0; overrides keep the parent's slot,
// field shadowing and incompatible-signature overrides are errors), and checks
// that c's own members conform.
func buildIndex(c *ast.Class, diags *util.Diagnostics) {
	c.FieldIndex = map[string]*ast.Field{}
	c.MethodIndex = map[string]*ast.Method{}
	nextField := 1
	nextMethod := 0
	if c.Parent != nil {
		for k, v := range c.Parent.FieldIndex {
			c.FieldIndex[k] = v
			if v.Type != Unit && v.VtableIndex+1 > nextField {
				nextField = v.VtableIndex + 1
			}
		}
		for k, v := range c.Parent.MethodIndex {
			c.MethodIndex[k] = v
		}
		nextMethod = len(c.Parent.MethodIndex)
	}

	for _, f := range c.Fields {
		f.Owner = c
		if existing, ok := c.FieldIndex[f.Name]; ok {
			diags.Errorf(f.Pos, "field %s redefines an inherited field declared in class %s", f.Name, existing.Owner.Name)
			continue
		}
		if f.Type == Unit {
			// A unit field needs no storage: it carries the previous slot's
			// index rather than consuming a fresh one.
			f.VtableIndex = nextField - 1
		} else {
			f.VtableIndex = nextField
			nextField++
		}
		c.FieldIndex[f.Name] = f
	}

	for _, m := range c.Methods {
		m.Owner = c
		if existing, ok := c.MethodIndex[m.Name]; ok && existing.Owner != c {
			if !signaturesMatch(existing, m) {
				diags.Errorf(m.Pos, "method %s overrides class %s's method %s with an incompatible signature", m.Name, existing.Owner.Name, m.Name)
			}
			m.VtableIndex = existing.VtableIndex
		} else {
			m.VtableIndex = nextMethod
			nextMethod++
		}
		c.MethodIndex[m.Name] = m
	}
}

func signaturesMatch(a, b *ast.Method) bool {
	if a.ReturnType != b.ReturnType {
		return false
	}
	if len(a.Formals) != len(b.Formals) {
		return false
	}
	for i1 := range a.Formals {
		if a.Formals[i1].Type != b.Formals[i1].Type {
			return false
		}
	}
	return true
}

// checkMain enforces the entry-point requirement: a class Main must exist,
// defining Object, must declare a no-argument method main returning int32.
func checkMain(valid map[string]*ast.Class, diags *util.Diagnostics) {
	main, ok := valid["Main"]
	if !ok {
		diags.Errorf(util.Pos{Line: 1, Col: 1}, "program has no class Main")
		return
	}
	m, ok := main.MethodIndex["main"]
	if !ok {
		diags.Errorf(main.Pos, "class Main has no method main")
		return
	}
	if len(m.Formals) != 0 {
		diags.Errorf(m.Pos, "method Main.main must take no arguments, found %d", len(m.Formals))
	}
	if m.ReturnType != Int32 {
		diags.Errorf(m.Pos, "method Main.main must return int32, found %s", m.ReturnType)
	}
}
