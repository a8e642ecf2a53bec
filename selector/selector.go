// Package selector decides which struct methods are bound as free
// functions.
package selector

import (
	"log/slog"

	"github.com/refaktor/zigbind/decl"
	"github.com/refaktor/zigbind/diag"
	"github.com/refaktor/zigbind/resolve"
)

// MethodPolicy is one of [NoMethods], [AllMethods] or [NamedMethods].
type MethodPolicy interface {
	methodPolicy()
}

// NoMethods binds the struct's layout only.
type NoMethods struct{}

// AllMethods binds every eligible method.
type AllMethods struct{}

// NamedMethods binds the eligible methods whose name is listed. All
// overloads of a listed name are included.
type NamedMethods struct {
	Names []string
}

func (NoMethods) methodPolicy()    {}
func (AllMethods) methodPolicy()   {}
func (NamedMethods) methodPolicy() {}

type Selector struct {
	Resolver *resolve.Resolver
	// Logger receives one warning per dropped method. May be nil.
	Logger *slog.Logger
}

// Eligible reports whether m can be bound at all, regardless of whether
// its types resolve.
func Eligible(m *decl.Method) bool {
	return m.Access == decl.Public && !m.Deleted && !m.IsOperator()
}

// SelectMethods returns the methods of owner to bind under policy, in
// header declaration order. Methods whose signature does not resolve are
// left out and returned as diagnostics.
func (s *Selector) SelectMethods(policy MethodPolicy, owner *decl.Struct) ([]decl.Method, []diag.Diagnostic) {
	var wanted map[string]bool
	switch p := policy.(type) {
	case nil, NoMethods:
		return nil, nil
	case AllMethods:
	case NamedMethods:
		wanted = make(map[string]bool, len(p.Names))
		for _, name := range p.Names {
			wanted[name] = true
		}
	default:
		panic("invalid method policy")
	}

	var selected []decl.Method
	var dropped []diag.Diagnostic
	found := make(map[string]bool)
	for i := range owner.Methods {
		m := &owner.Methods[i]
		if wanted != nil && !wanted[m.Name] {
			continue
		}
		found[m.Name] = true
		if !Eligible(m) {
			continue
		}
		if err := s.CheckSignature(m); err != nil {
			d := diag.Diagnostic{
				Kind:   diag.KindOf(err),
				Entity: "method " + owner.QualifiedName() + "::" + m.Name,
				Header: owner.Header,
				Err:    err,
			}
			dropped = append(dropped, d)
			s.logSkip(d)
			continue
		}
		selected = append(selected, *m)
	}

	if p, ok := policy.(NamedMethods); ok && s.Logger != nil {
		for _, name := range p.Names {
			if !found[name] {
				s.Logger.Warn("configured method not declared", "struct", owner.QualifiedName(), "method", name)
			}
		}
	}
	return selected, dropped
}

// CheckSignature resolves every parameter and the result of m.
func (s *Selector) CheckSignature(m *decl.Method) error {
	for _, p := range m.Params {
		if _, err := s.Resolver.ResolveParam(p.Type); err != nil {
			return err
		}
	}
	_, err := s.Resolver.ResolveResult(m.Result)
	return err
}

func (s *Selector) logSkip(d diag.Diagnostic) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn("skipped "+d.Entity, "header", d.Header, "kind", d.Kind.String(), "reason", d.Err)
}
