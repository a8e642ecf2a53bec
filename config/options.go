package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/refaktor/zigbind/config/rules"
	"github.com/refaktor/zigbind/diag"
	"github.com/refaktor/zigbind/emit"
	"github.com/refaktor/zigbind/resolve"
	"github.com/refaktor/zigbind/selector"
)

// Policy returns the struct's method selection policy.
func (s *Struct) Policy() (selector.MethodPolicy, error) {
	switch s.Methods {
	case "":
		if len(s.MethodNames) > 0 {
			return selector.NamedMethods{Names: s.MethodNames}, nil
		}
		return selector.NoMethods{}, nil
	case "none":
		return selector.NoMethods{}, nil
	case "all":
		return selector.AllMethods{}, nil
	case "named":
		if len(s.MethodNames) == 0 {
			return nil, errors.New("methods = \"named\" requires method-names")
		}
		return selector.NamedMethods{Names: s.MethodNames}, nil
	default:
		return nil, fmt.Errorf("unknown method policy %q (expected none, all or named)", s.Methods)
	}
}

// Rule returns the override as a resolver rule.
func (o *Override) Rule() (resolve.Rule, error) {
	n := 0
	for _, set := range []bool{o.Template != "", o.Prefix != "", o.Alias != "", o.Pattern != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return resolve.Rule{}, errors.New("expected exactly one of template, prefix, alias and pattern")
	}
	switch {
	case o.Template != "":
		return resolve.TemplateRule(o.Template, o.Name), nil
	case o.Name == "":
		return resolve.Rule{}, errors.New("missing name")
	case o.Prefix != "":
		return resolve.PrefixRule(o.Prefix, o.Name), nil
	case o.Alias != "":
		return resolve.AliasRule(o.Alias, o.Name), nil
	default:
		return resolve.PatternRule(o.Pattern, o.Name), nil
	}
}

// Policy returns the target's diagnostics policy.
func (t *Target) Policy() diag.Policy {
	if t.Strict {
		return diag.Strict
	}
	return diag.Lenient
}

// EmitOptions converts the target into emitter options. Declarations are
// expected to carry the header paths as configured.
func (t *Target) EmitOptions(symbols *rules.List, logger *slog.Logger) (emit.Options, error) {
	opts := emit.Options{
		Comment:           t.Comment,
		Structs:           make(map[string]emit.StructConfig, len(t.Structs)),
		SymbolRules:       t.Rules,
		Symbols:           symbols,
		Policy:            t.Policy(),
		ByValueWorkaround: t.ByValueWorkaround,
		Logger:            logger,
	}
	if t.Preamble != "" {
		opts.Preambles = append(opts.Preambles, emit.Preamble{Text: t.Preamble})
	}
	noWorkaround := make(map[string]bool)
	for _, h := range t.Headers {
		if h.Preamble != "" {
			opts.Preambles = append(opts.Preambles, emit.Preamble{Name: filepath.Base(h.Path), Text: h.Preamble})
		}
		if !h.WorkaroundEnabled() {
			noWorkaround[h.Path] = true
		}
	}
	if len(noWorkaround) > 0 {
		opts.SkipWorkaround = func(header string) bool { return noWorkaround[header] }
	}
	for _, s := range t.Structs {
		policy, err := s.Policy()
		if err != nil {
			return emit.Options{}, fmt.Errorf("struct %v: %w", s.Name, err)
		}
		if _, ok := opts.Structs[s.Name]; ok {
			return emit.Options{}, fmt.Errorf("struct %v configured twice", s.Name)
		}
		opts.Structs[s.Name] = emit.StructConfig{Methods: policy, Preamble: s.Preamble}
	}
	for i, o := range t.Overrides {
		r, err := o.Rule()
		if err != nil {
			return emit.Options{}, fmt.Errorf("override %v: %w", i, err)
		}
		opts.Overrides = append(opts.Overrides, r)
	}
	return opts, nil
}
