// scope.go is the checker's lexical symbol table: a map from name to a stack of
// bindings, the same shape ir/validate.go keeps via util.Stack for its scope
// handling, generalized here to Go generics instead of interface{}.
package sema

import "vsopc/src/util"

// binding is one (name, type) pair pushed into scope: a formal, a let-bound
// variable, or a field.
type binding struct {
	typ string
}

// scope is a block-structured symbol table. Entering a block pushes a new frame;
// leaving it pops that frame's bindings back off, so shadowing within a method
// body resolves to the innermost declaration.
type scope struct {
	vars map[string]*util.Stack[binding]
	// frames records, per block-nesting depth, the names bound in that frame so
	// leave() knows exactly what to pop.
	frames [][]string
}

func newScope() *scope {
	return &scope{vars: map[string]*util.Stack[binding]{}}
}

// enter pushes a new, initially empty block frame.
func (s *scope) enter() {
	s.frames = append(s.frames, nil)
}

// leave pops the current block frame, removing every binding it introduced.
func (s *scope) leave() {
	n := len(s.frames) - 1
	names := s.frames[n]
	s.frames = s.frames[:n]
	for _, name := range names {
		st := s.vars[name]
		st.Pop()
		if st.Size() == 0 {
			delete(s.vars, name)
		}
	}
}

// bind introduces name with type typ into the current frame.
func (s *scope) bind(name, typ string) {
	st, ok := s.vars[name]
	if !ok {
		st = &util.Stack[binding]{}
		s.vars[name] = st
	}
	st.Push(binding{typ: typ})
	n := len(s.frames) - 1
	s.frames[n] = append(s.frames[n], name)
}

// lookup returns the innermost binding of name, if any.
func (s *scope) lookup(name string) (string, bool) {
	st, ok := s.vars[name]
	if !ok {
		return "", false
	}
	b, ok := st.Peek()
	if !ok {
		return "", false
	}
	return b.typ, true
}
