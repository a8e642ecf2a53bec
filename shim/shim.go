// Package shim synthesizes C++ shims for functions returning aggregates by
// value.
//
// Some foreign calling conventions cannot receive a record wider than a
// register pair. A shim with C linkage calls the original function and
// writes the result through a trailing output pointer instead.
package shim

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/refaktor/zigbind/codeio"
	"github.com/refaktor/zigbind/decl"
	"github.com/refaktor/zigbind/diag"
)

// Workaround is one synthesized shim.
type Workaround struct {
	// Header the original function was declared in.
	Header string
	// Code is the shim's C++ definition.
	Code string
	// Name is the shim's unmangled symbol.
	Name string
	// OutParam is the name of the trailing output pointer.
	OutParam string
}

// Call describes a function or method returning an aggregate by value.
type Call struct {
	Header string
	// Owner is the struct of a method, nil for free functions.
	Owner    *decl.Struct
	Function *decl.Function
	Method   *decl.Method
}

func FromFunction(f *decl.Function) Call {
	return Call{Header: f.Header, Function: f}
}

func FromMethod(owner *decl.Struct, m *decl.Method) Call {
	return Call{Header: owner.Header, Owner: owner, Method: m}
}

func (c Call) name() string {
	if c.Method != nil {
		return c.Method.Name
	}
	return c.Function.Name
}

func (c Call) params() []decl.Param {
	if c.Method != nil {
		return c.Method.Params
	}
	return c.Function.Params
}

func (c Call) result() decl.TypeRef {
	if c.Method != nil {
		return c.Method.Result
	}
	return c.Function.Result
}

func (c Call) variadic() bool {
	if c.Method != nil {
		return c.Method.Variadic
	}
	return c.Function.Variadic
}

func (c Call) qualifiedName() string {
	if c.Method != nil {
		return c.Owner.QualifiedName() + "::" + c.Method.Name
	}
	return c.Function.QualifiedName()
}

// BaseName returns the shim name for c before overload disambiguation.
//
//   - methods: Struct_Method
//   - namespaced functions: lower-cased namespace, "_", name (imgui_GetWindowPos)
//   - other C++ functions: the plain name; the shim overloads the original
//   - C functions: header stem, "_", name
func BaseName(c Call) string {
	switch {
	case c.Method != nil:
		return c.Owner.Name + "_" + c.Method.Name
	case c.Function.Namespace != "":
		ns := strings.ToLower(strings.ReplaceAll(c.Function.Namespace, "::", "_"))
		return ns + "_" + c.Function.Name
	case !c.Function.CLinkage():
		return c.Function.Name
	default:
		return strcase.ToSnake(headerStem(c.Header)) + "_" + c.Function.Name
	}
}

func headerStem(header string) string {
	base := filepath.Base(header)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutParamName returns "out", or "out" followed by as many underscores as
// needed to avoid colliding with a parameter name.
func OutParamName(params []decl.Param) string {
	return freshName("out", params)
}

func freshName(name string, params []decl.Param) string {
	taken := make(map[string]bool, len(params))
	for _, p := range params {
		taken[p.Name] = true
	}
	for taken[name] {
		name += "_"
	}
	return name
}

// Synthesizer renders the shims of one generation run. Shim names are
// unique within a run; repeated names get "_1", "_2" suffixes in the
// order they are requested.
type Synthesizer struct {
	used map[string]int
}

func (s *Synthesizer) uniqueName(base string) string {
	if s.used == nil {
		s.used = make(map[string]int)
	}
	n := s.used[base]
	s.used[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%v_%v", base, n)
}

// Reserve marks name as used, so no shim gets it.
func (s *Synthesizer) Reserve(name string) {
	if s.used == nil {
		s.used = make(map[string]int)
	}
	if s.used[name] == 0 {
		s.used[name] = 1
	}
}

// Synthesize renders the shim for c. It returns a
// *diag.UnsupportedReturnLayoutError if c cannot be forwarded.
func (s *Synthesizer) Synthesize(c Call) (Workaround, error) {
	unsupported := func(reason string) (Workaround, error) {
		return Workaround{}, &diag.UnsupportedReturnLayoutError{Function: c.qualifiedName(), Reason: reason}
	}
	if c.variadic() {
		return unsupported("variadic arguments cannot be forwarded")
	}
	res := c.result()
	if res.Anonymous || res.Spelling == "" {
		return unsupported("return type has no stable spelling")
	}
	resSpelling := strings.TrimPrefix(res.Spelling, "const ")

	params := c.params()
	out := OutParamName(params)
	var decls, args []string
	self := ""
	if c.Method != nil && !c.Method.Static {
		self = freshName("self", params)
		ownerSpelling := c.Owner.QualifiedName() + " *" + self
		if c.Method.Const {
			ownerSpelling = "const " + ownerSpelling
		}
		decls = append(decls, ownerSpelling)
	}
	for i, p := range params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%v", i)
		}
		d, ok := declarator(p.Type, name)
		if !ok {
			return unsupported(fmt.Sprintf("parameter %v has no stable spelling", name))
		}
		decls = append(decls, d)
		args = append(args, name)
	}
	decls = append(decls, resSpelling+" *"+out)

	var callee string
	switch {
	case self != "":
		callee = self + "->" + c.Method.Name
	case c.Method != nil:
		callee = c.Owner.QualifiedName() + "::" + c.Method.Name
	default:
		callee = "::" + c.Function.QualifiedName()
	}

	name := s.uniqueName(BaseName(c))

	var cb codeio.CodeBuilder
	cb.Block(fmt.Sprintf("void %v(%v) {", name, strings.Join(decls, ", ")), "}", func() {
		cb.Linef("*%v = %v(%v);", out, callee, strings.Join(args, ", "))
	})
	return Workaround{
		Header:   c.Header,
		Code:     cb.String(),
		Name:     name,
		OutParam: out,
	}, nil
}

// declarator spells a parameter declaration, placing name where C++
// grammar requires it.
func declarator(t decl.TypeRef, name string) (string, bool) {
	if t.Spelling == "" || t.Anonymous {
		return "", false
	}
	switch {
	case t.Kind == decl.Array:
		if t.Elem == nil || t.Elem.Spelling == "" {
			return "", false
		}
		n := ""
		if t.Len >= 0 {
			n = fmt.Sprint(t.Len)
		}
		return fmt.Sprintf("%v %v[%v]", t.Elem.Spelling, name, n), true
	case strings.Contains(t.Spelling, "(*)"):
		return strings.Replace(t.Spelling, "(*)", "(*"+name+")", 1), true
	case strings.HasSuffix(t.Spelling, "*") || strings.HasSuffix(t.Spelling, "&"):
		return t.Spelling + name, true
	default:
		return t.Spelling + " " + name, true
	}
}
