// Package llvm lowers a checked VSOP program to an LLVM module, the same job
// hhramberg-go-vslc/src/ir/llvm/transform.go does for VSL: build a context,
// builder and module, walk the syntax tree generating IR, then hand the
// finished module to LLVM's target-machine machinery. Unlike transform.go's
// GenLLVM, every pass here runs on a single goroutine with a single builder:
// spec.md's concurrency constraint rules out the worker-pool split
// transform.go uses for parallel header/body generation, and a class-based
// vtable layout has no natural per-function independence to parallelize
// anyway (every method body can reference any class's struct/vtable type).
package llvm

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"tinygo.org/x/go-llvm"

	"vsopc/src/ast"
	"vsopc/src/sema"
)

// module holds the cross-phase state built once up front (struct/vtable
// types, vtable constants, function declarations) and then threaded through
// every method body lowered afterwards -- the layout-then-bodies split
// transform.go's GenLLVM itself uses (genFuncHeader for every function before
// any genFuncBody runs).
type module struct {
	ctx llvm.Context
	mod llvm.Module
	b   llvm.Builder

	classes map[string]*ast.Class
	order   []*ast.Class // Object first, then parent-before-child.

	structTypes   map[string]llvm.Type  // class name -> object struct type
	vtableTypes   map[string]llvm.Type  // class name -> vtable struct type
	vtableGlobals map[string]llvm.Value // class name -> global vtable constant
	methodFuncs   map[string]llvm.Value // "Owner.Name" -> declared/defined function
	newFuncs      map[string]llvm.Value // class name -> VSOP_new_<Class>
	initFuncs     map[string]llvm.Value // class name -> VSOP_init_<Class>
	strings       map[string]llvm.Value // literal text -> cached global

	rt runtimeFuncs
}

// Lower type-checks nothing (the caller already ran sema.Resolve/Check) and
// lowers prog's class graph into a complete LLVM module, returning its
// textual IR representation.
func Lower(srcName string, prog *ast.Program, classes map[string]*ast.Class) (string, error) {
	m, err := newModule(srcName, classes)
	if err != nil {
		return "", err
	}
	defer m.dispose()

	if err := m.run(); err != nil {
		return "", err
	}
	return m.mod.String(), nil
}

// CompileToObject lowers prog exactly as Lower does, then asks LLVM's target
// machine to emit a native object file, the way transform.go's GenLLVM tail
// does with EmitToMemoryBuffer.
func CompileToObject(srcName string, prog *ast.Program, classes map[string]*ast.Class, objPath string) error {
	m, err := newModule(srcName, classes)
	if err != nil {
		return err
	}
	defer m.dispose()

	if err := m.run(); err != nil {
		return err
	}
	return m.emitObject(objPath)
}

// CompileToExecutable runs the default full-compile pipeline: lower to LLVM
// IR, emit a native object file in-process via go-llvm (see emitObject; no llc
// process is run), then shell out to the system C compiler/linker ($CC, or cc
// by default) to produce a native executable linked against the runtime object
// file at runtimeObj.
func CompileToExecutable(srcName string, prog *ast.Program, classes map[string]*ast.Class, runtimeObj, outPath string) error {
	objPath := outPath + ".o"
	if err := CompileToObject(srcName, prog, classes, objPath); err != nil {
		return err
	}
	defer os.Remove(objPath)

	cc := "cc"
	if v := os.Getenv("CC"); v != "" {
		cc = v
	}
	cmd := exec.Command(cc, objPath, runtimeObj, "-o", outPath, "-lm")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("vsopc: link failed: %w", err)
	}
	return nil
}

func newModule(srcName string, classes map[string]*ast.Class) (*module, error) {
	ctx := llvm.NewContext()
	mod := ctx.NewModule(strings.TrimSuffix(filepath.Base(srcName), filepath.Ext(srcName)))
	b := ctx.NewBuilder()

	m := &module{
		ctx:           ctx,
		mod:           mod,
		b:             b,
		classes:       classes,
		order:         topoOrder(classes),
		structTypes:   map[string]llvm.Type{},
		vtableTypes:   map[string]llvm.Type{},
		vtableGlobals: map[string]llvm.Value{},
		methodFuncs:   map[string]llvm.Value{},
		newFuncs:      map[string]llvm.Value{},
		initFuncs:     map[string]llvm.Value{},
		strings:       map[string]llvm.Value{},
	}
	return m, nil
}

func (m *module) dispose() {
	m.b.Dispose()
	m.mod.Dispose()
	m.ctx.Dispose()
}

// run performs the whole lowering in the teacher's layout-then-bodies order:
// declare every struct/vtable type, declare the runtime ABI, declare every
// method/new/init function header, build the vtable constants, then emit
// every function body, and finally the C entry point.
func (m *module) run() error {
	m.rt = declareRuntime(m.ctx, m.mod)
	m.declareTypes()
	m.declareFunctions()
	m.buildVtables()
	if err := m.lowerBodies(); err != nil {
		return err
	}
	m.genCMain()
	return nil
}

// topoOrder returns classes sorted parent-before-child, the order struct
// bodies and vtable constants must be built in since a subclass's layout and
// vtable both reference its parent's.
func topoOrder(classes map[string]*ast.Class) []*ast.Class {
	depth := func(c *ast.Class) int {
		d := 0
		for p := c; p != nil && p.Name != "Object"; p = p.Parent {
			d++
		}
		return d
	}
	names := make([]string, 0, len(classes))
	for n := range classes {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := classes[names[i]], classes[names[j]]
		if di, dj := depth(ci), depth(cj); di != dj {
			return di < dj
		}
		return names[i] < names[j]
	})
	out := make([]*ast.Class, len(names))
	for i1, n := range names {
		out[i1] = classes[n]
	}
	return out
}

// orderedFields returns c's non-unit fields (inherited and own), sorted by
// struct slot, the layout original_source/ast.cpp builds by appending each
// ancestor's own fields in declaration order.
func orderedFields(c *ast.Class) []*ast.Field {
	fields := make([]*ast.Field, 0, len(c.FieldIndex))
	for _, f := range c.FieldIndex {
		if f.Type == sema.Unit {
			continue
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].VtableIndex < fields[j].VtableIndex })
	return fields
}

// orderedMethods returns the method that occupies each vtable slot of c, in
// slot order -- the resolved (possibly-overriding) method, not necessarily the
// one that first introduced the slot.
func orderedMethods(c *ast.Class) []*ast.Method {
	methods := make([]*ast.Method, 0, len(c.MethodIndex))
	for _, mm := range c.MethodIndex {
		methods = append(methods, mm)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].VtableIndex < methods[j].VtableIndex })
	return methods
}

func (m *module) emitObject(path string) error {
	llvm.InitializeAllTargetInfos()
	llvm.InitializeAllTargets()
	llvm.InitializeAllTargetMCs()
	llvm.InitializeAllAsmParsers()
	llvm.InitializeAllAsmPrinters()

	triple := llvm.DefaultTargetTriple()
	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return err
	}
	tm := target.CreateTargetMachine(triple, "generic", "",
		llvm.CodeGenLevelDefault, llvm.RelocDefault, llvm.CodeModelDefault)
	defer tm.Dispose()

	td := tm.CreateTargetData()
	defer td.Dispose()
	m.mod.SetDataLayout(td.String())
	m.mod.SetTarget(triple)

	buf, err := tm.EmitToMemoryBuffer(m.mod, llvm.ObjectFile)
	if err != nil {
		return err
	}
	if buf.IsNil() {
		return fmt.Errorf("vsopc: LLVM produced no object code")
	}

	fd, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer fd.Close()
	_, err = fd.Write(buf.Bytes())
	return err
}
