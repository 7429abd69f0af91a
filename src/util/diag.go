// diag.go provides a diagnostics context threaded explicitly through every compiler
// phase, rather than the package-level file name and error counter the teacher's
// ambient code keeps. Unlike the teacher's perror, this is not goroutine-backed:
// spec.md requires the resolver, checker and lowerer to run single-threaded and
// synchronous, so each phase owns its Diagnostics exclusively and no locking is
// required.

package util

import "fmt"

// Pos is a source position: a line and column, both one-indexed.
type Pos struct {
	Line int
	Col  int
}

// String renders p as "line:col".
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Diagnostics accumulates semantic errors for a single compiler run against a
// single source file. Errors never abort a phase; they are recorded here and the
// offending AST node is given the unknown type or dropped from its container.
type Diagnostics struct {
	File     string
	messages []string
}

// NewDiagnostics returns a Diagnostics context reporting positions in file.
func NewDiagnostics(file string) *Diagnostics {
	return &Diagnostics{File: file}
}

// Errorf records a semantic error at position pos, formatted per spec.md §6:
// "<file>:<line>:<col>: semantic error: <message>".
func (d *Diagnostics) Errorf(pos Pos, format string, args ...interface{}) {
	msg := fmt.Sprintf("%s:%s: semantic error: %s", d.File, pos, fmt.Sprintf(format, args...))
	d.messages = append(d.messages, msg)
}

// Count returns the number of errors reported so far.
func (d *Diagnostics) Count() int {
	return len(d.messages)
}

// Messages returns all reported error messages, in report order.
func (d *Diagnostics) Messages() []string {
	return d.messages
}
