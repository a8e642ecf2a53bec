// Package emit renders declarations as Zig bindings.
//
// Output is deterministic: the same declarations and options always give
// byte-identical source.
package emit

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/refaktor/zigbind/config/rules"
	"github.com/refaktor/zigbind/decl"
	"github.com/refaktor/zigbind/diag"
	"github.com/refaktor/zigbind/resolve"
	"github.com/refaktor/zigbind/selector"
	"github.com/refaktor/zigbind/shim"
)

const generatedComment = "Code generated by zigbind. DO NOT EDIT."

// Preamble is hand-written source emitted verbatim between region markers.
type Preamble struct {
	// Name labels the markers, e.g. a header path. Empty for the target
	// preamble.
	Name string
	Text string
}

// StructConfig is the per-struct configuration, keyed by qualified name.
type StructConfig struct {
	Methods selector.MethodPolicy
	// Preamble is emitted at the struct's position.
	Preamble string
}

type Options struct {
	// Comment is added to the generated file's header comment.
	Comment   string
	Preambles []Preamble
	Structs   map[string]StructConfig
	Overrides resolve.Rules
	// SymbolRules rename or hide public symbols.
	SymbolRules []rules.Rule
	// Symbols is applied after SymbolRules. May be nil.
	Symbols *rules.List
	Policy  diag.Policy
	// ByValueWorkaround routes aggregate returns through shims.
	ByValueWorkaround bool
	// SkipWorkaround reports headers whose functions are bound as declared
	// even if ByValueWorkaround is set. May be nil.
	SkipWorkaround func(header string) bool
	// Logger may be nil.
	Logger *slog.Logger
}

// Symbol is a public symbol before renaming, as listed in a symbol list.
type Symbol struct {
	Name        string
	Description string
}

type Output struct {
	Source      []byte
	Workarounds []shim.Workaround
	Diagnostics []diag.Diagnostic
	Symbols     []Symbol
	Stats       Stats
}

type Emitter struct {
	opts Options
}

func New(opts Options) *Emitter {
	return &Emitter{opts: opts}
}

type item struct {
	kind rules.SymbolKind
	d    decl.Declaration

	// Struct methods
	owner  *decl.Struct
	method *decl.Method

	// Internal identifier; for C++ functions the mangled symbol.
	internal string
	mangled  bool
	// Public name before and after rules.
	base    string
	public  string
	include bool

	overridden bool
	skip       error
	// Methods dropped by the selector
	dropped []diag.Diagnostic

	// Resolved signature of functions and methods
	self       string
	params     []decl.Param
	paramTypes []string
	result     string
	variadic   bool
	workaround *shim.Workaround
	// Pointee of the workaround's output parameter
	outType string
}

func (it *item) entity() string {
	if it.method != nil {
		return "method " + it.owner.QualifiedName() + "::" + it.method.Name
	}
	return decl.String(it.d)
}

// anonymousEnum reports an enum without a name, whose constants are bound
// on their own.
func (it *item) anonymousEnum() bool {
	e, ok := it.d.(*decl.Enum)
	return ok && e.Name == ""
}

func (it *item) header() string {
	if it.owner != nil {
		return it.owner.Header
	}
	return it.d.HeaderPath()
}

func (it *item) category() Category {
	switch it.kind {
	case rules.SymbolStruct:
		return CategoryStruct
	case rules.SymbolEnum:
		return CategoryEnum
	case rules.SymbolAlias:
		return CategoryAlias
	case rules.SymbolFunc:
		return CategoryFunction
	default:
		return CategoryMethod
	}
}

// run holds the state of one Emit call.
type run struct {
	opts  *Options
	log   *slog.Logger
	diags diag.List
	stats Stats

	items     []*item
	scope     resolve.Scope
	res       *resolve.Resolver
	used      map[string]bool
	constants map[*decl.Enum][]string

	shims shim.Synthesizer
}

// Emit renders decls. Skipped declarations are reported in the output's
// diagnostics; the returned error is non-nil only if the run must abort,
// e.g. on an unresolvable type in strict mode.
func (e *Emitter) Emit(decls []decl.Declaration) (*Output, error) {
	if err := e.opts.Overrides.Validate(); err != nil {
		return nil, err
	}
	r := &run{
		opts:      &e.opts,
		log:       e.opts.Logger,
		diags:     diag.List{Policy: e.opts.Policy},
		used:      make(map[string]bool),
		constants: make(map[*decl.Enum][]string),
	}
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}

	r.collect(decls)
	r.nameTypes()
	// Shims share the binding's namespace with types and C functions.
	for name := range r.used {
		r.shims.Reserve(name)
	}
	r.computeScope()
	r.resolveCallables()
	if err := r.reportSkipped(); err != nil {
		return nil, err
	}
	r.nameCallables()
	symbols, err := r.applySymbolRules()
	if err != nil {
		return nil, err
	}

	src := r.render()
	var workarounds []shim.Workaround
	for _, it := range r.items {
		if it.workaround != nil && it.emitted() && it.include {
			workarounds = append(workarounds, *it.workaround)
		}
	}
	r.stats.Emitted[CategoryShim] = len(workarounds)
	return &Output{
		Source:      src,
		Workarounds: workarounds,
		Diagnostics: r.diags.Items(),
		Symbols:     symbols,
		Stats:       r.stats,
	}, nil
}

// collect drops redeclarations and forward declarations of defined
// structs, keeping declaration order.
func (r *run) collect(decls []decl.Declaration) {
	defined := make(map[string]bool)
	for _, d := range decls {
		if s, ok := d.(*decl.Struct); ok && s.Complete {
			defined[s.QualifiedName()] = true
		}
	}
	seenType := make(map[string]bool)
	seenFunc := make(map[string]bool)
	for _, d := range decls {
		qn := d.QualifiedName()
		switch d := d.(type) {
		case *decl.Struct:
			if (!d.Complete && defined[qn]) || seenType[qn] {
				continue
			}
			seenType[qn] = true
			r.items = append(r.items, &item{kind: rules.SymbolStruct, d: d})
		case *decl.Enum:
			if d.Name != "" && seenType[qn] {
				continue
			}
			seenType[qn] = true
			r.items = append(r.items, &item{kind: rules.SymbolEnum, d: d})
		case *decl.TypeAlias:
			if isIdentityAlias(d) || seenType[qn] {
				continue
			}
			seenType[qn] = true
			r.items = append(r.items, &item{kind: rules.SymbolAlias, d: d})
		case *decl.Function:
			key := d.Mangled
			if d.CLinkage() {
				key = d.Name
			}
			if seenFunc[key] {
				continue
			}
			seenFunc[key] = true
			r.items = append(r.items, &item{kind: rules.SymbolFunc, d: d})
		}
	}
}

// isIdentityAlias reports typedefs like "typedef struct ImVec2 ImVec2".
func isIdentityAlias(a *decl.TypeAlias) bool {
	t := a.Target
	return t.Kind == decl.Named && !t.Anonymous && len(t.Args) == 0 &&
		(t.Name == a.QualifiedName() || t.Name == a.Name)
}

// unique returns name, or name with the first free "_N" suffix.
func (r *run) unique(name string) string {
	res := name
	for i := 1; r.used[res]; i++ {
		res = fmt.Sprintf("%v_%v", name, i)
	}
	r.used[res] = true
	return res
}

// nameTypes assigns internal Zig names. C function names are reserved
// first since their symbol cannot change.
func (r *run) nameTypes() {
	for _, rule := range r.opts.Overrides {
		r.used[rule.Canonical] = true
	}
	for _, it := range r.items {
		if f, ok := it.d.(*decl.Function); ok && f.CLinkage() {
			r.used[f.Name] = true
		}
	}
	for _, it := range r.items {
		switch it.kind {
		case rules.SymbolStruct, rules.SymbolEnum, rules.SymbolAlias:
		default:
			continue
		}
		if it.anonymousEnum() {
			e := it.d.(*decl.Enum)
			for _, c := range e.Constants {
				r.constants[e] = append(r.constants[e], r.unique(c.Name))
			}
			continue
		}
		qn := it.d.QualifiedName()
		if it.kind == rules.SymbolStruct {
			if _, ok := r.opts.Overrides.LookupName(qn, false); ok {
				it.overridden = true
				continue
			}
		}
		base := nameOf(it.d)
		if r.used[base] {
			base = strings.ReplaceAll(qn, "::", "_")
		}
		it.internal = r.unique(base)
		it.base = it.internal
		if e, ok := it.d.(*decl.Enum); ok {
			for _, c := range e.Constants {
				r.constants[e] = append(r.constants[e], r.unique(c.Name))
			}
		}
	}
}

func originOf(d decl.Declaration) decl.Origin {
	switch d := d.(type) {
	case *decl.Struct:
		return d.Origin
	case *decl.Enum:
		return d.Origin
	case *decl.TypeAlias:
		return d.Origin
	case *decl.Function:
		return d.Origin
	default:
		panic("invalid declaration")
	}
}

func nameOf(d decl.Declaration) string {
	return originOf(d).Name
}

func unresolvable(qn, reason string) error {
	return &diag.UnresolvableTypeError{Type: qn, Reason: reason}
}

// computeScope finds the types with a known layout. A struct or alias
// depending by value on a skipped type is skipped too, so the scope is
// narrowed until it no longer changes.
func (r *run) computeScope() {
	r.scope = resolve.Scope{}
	probe := resolve.New(nil, nil)
	for _, it := range r.items {
		if it.overridden || it.internal == "" {
			continue
		}
		switch d := it.d.(type) {
		case *decl.Struct:
			if !d.Complete {
				it.skip = unresolvable(d.QualifiedName(), "forward declaration without definition")
				continue
			}
			for _, f := range d.Fields {
				if f.BitWidth > 0 {
					it.skip = unresolvable(d.QualifiedName(), fmt.Sprintf("bit-field %v has no portable layout", f.Name))
					break
				}
			}
			if it.skip == nil {
				r.scope[d.QualifiedName()] = resolve.Entry{Zig: ident(it.internal), Aggregate: true}
			}
		case *decl.Enum:
			if _, err := probe.Resolve(decl.BuiltinType(underlying(d))); err != nil {
				it.skip = err
				continue
			}
			r.scope[d.QualifiedName()] = resolve.Entry{Zig: ident(it.internal)}
		case *decl.TypeAlias:
			r.scope[d.QualifiedName()] = resolve.Entry{Zig: ident(it.internal)}
		}
	}

	for changed := true; changed; {
		changed = false
		res := resolve.New(r.opts.Overrides, r.scope)
		for _, it := range r.items {
			if it.skip != nil || it.overridden || it.internal == "" {
				continue
			}
			qn := it.d.QualifiedName()
			switch d := it.d.(type) {
			case *decl.Struct:
				for _, f := range d.Fields {
					if _, err := res.ResolveField(f.Type); err != nil {
						it.skip = fmt.Errorf("field %v: %w", f.Name, err)
						break
					}
				}
			case *decl.TypeAlias:
				t, err := res.ResolveField(d.Target)
				if err != nil {
					it.skip = err
				} else if t.Align != 0 {
					it.skip = unresolvable(qn, "alias of an anonymous record")
				} else if e := r.scope[qn]; e.Aggregate != t.Aggregate {
					e.Aggregate = t.Aggregate
					r.scope[qn] = e
					changed = true
				}
			}
			if it.skip != nil {
				delete(r.scope, qn)
				changed = true
			}
		}
	}
	r.res = resolve.New(r.opts.Overrides, r.scope)
}

func underlying(e *decl.Enum) string {
	if e.Underlying == "" {
		return "int"
	}
	return e.Underlying
}

// reportSkipped records a diagnostic for every skipped item, in
// declaration order.
func (r *run) reportSkipped() error {
	for _, it := range r.items {
		// Already logged by the selector.
		for _, d := range it.dropped {
			r.stats.Skipped[CategoryMethod]++
			if err := r.diags.Report(d); err != nil {
				return err
			}
		}
		if it.skip == nil {
			continue
		}
		r.stats.Skipped[it.category()]++
		d := diag.Diagnostic{Kind: diag.KindOf(it.skip), Entity: it.entity(), Header: it.header(), Err: it.skip}
		r.log.Warn("skipped "+d.Entity, "header", d.Header, "kind", d.Kind.String(), "reason", d.Err)
		if err := r.diags.Report(d); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) wantsWorkaround(header string, result resolve.Type) bool {
	if !r.opts.ByValueWorkaround || !result.Aggregate {
		return false
	}
	return r.opts.SkipWorkaround == nil || !r.opts.SkipWorkaround(header)
}

// resolveCallables resolves function signatures, selects methods of
// emitted structs and synthesizes shims. Methods are placed right after
// their struct.
func (r *run) resolveCallables() {
	sel := &selector.Selector{Resolver: r.res, Logger: r.log}
	var items []*item
	for _, it := range r.items {
		items = append(items, it)
		switch d := it.d.(type) {
		case *decl.Function:
			r.resolveFunction(it, d)
		case *decl.Struct:
			cfg, ok := r.opts.Structs[d.QualifiedName()]
			if !ok || it.skip != nil || it.overridden {
				continue
			}
			var selected []decl.Method
			selected, it.dropped = sel.SelectMethods(cfg.Methods, d)
			for i := range selected {
				mi := &item{kind: rules.SymbolMethod, d: d, owner: d, method: &selected[i]}
				r.resolveMethod(mi, it)
				items = append(items, mi)
			}
		}
	}
	r.items = items
}

func (r *run) resolveParams(params []decl.Param) ([]string, error) {
	var res []string
	for i, p := range params {
		t, err := r.res.ResolveParam(p.Type)
		if err != nil {
			if p.Name != "" {
				return nil, fmt.Errorf("parameter %v: %w", p.Name, err)
			}
			return nil, fmt.Errorf("parameter %v: %w", i, err)
		}
		res = append(res, t.Zig)
	}
	return res, nil
}

func (r *run) resolveFunction(it *item, f *decl.Function) {
	params, err := r.resolveParams(f.Params)
	var result resolve.Type
	if err == nil {
		result, err = r.res.ResolveResult(f.Result)
	}
	if err != nil {
		it.skip = err
		return
	}
	it.params, it.paramTypes = f.Params, params
	it.result = result.Zig
	it.variadic = f.Variadic
	it.internal = f.Name
	if !f.CLinkage() {
		it.internal, it.mangled = f.Mangled, true
	}
	if r.wantsWorkaround(f.Header, result) {
		r.applyWorkaround(it, shim.FromFunction(f), result)
	}
}

func (r *run) resolveMethod(it *item, owner *item) {
	m := it.method
	params, err := r.resolveParams(m.Params)
	var result resolve.Type
	if err == nil {
		result, err = r.res.ResolveResult(m.Result)
	}
	if err != nil {
		it.skip = err
		return
	}
	it.params, it.paramTypes = m.Params, params
	it.result = result.Zig
	it.variadic = m.Variadic
	if !m.Static {
		if m.Const {
			it.self = "self: *const " + ident(owner.internal)
		} else {
			it.self = "self: *" + ident(owner.internal)
		}
	}
	if r.wantsWorkaround(it.header(), result) {
		r.applyWorkaround(it, shim.FromMethod(it.owner, m), result)
		return
	}
	if m.Mangled == "" {
		it.skip = unresolvable(it.owner.QualifiedName()+"::"+m.Name, "method has no linker symbol")
		return
	}
	it.internal, it.mangled = m.Mangled, true
}

// applyWorkaround binds c through a shim that returns its result through
// a trailing output pointer.
func (r *run) applyWorkaround(it *item, c shim.Call, result resolve.Type) {
	w, err := r.shims.Synthesize(c)
	if err != nil {
		it.skip = err
		r.stats.Skipped[CategoryShim]++
		return
	}
	it.workaround = &w
	it.internal, it.mangled = w.Name, false
	it.outType = result.Zig
	it.result = "void"
	it.variadic = false
}

// nameCallables assigns public names to functions and methods. C++
// overloads get "_1", "_2" suffixes in declaration order.
func (r *run) nameCallables() {
	for _, it := range r.items {
		if it.skip != nil {
			continue
		}
		switch it.kind {
		case rules.SymbolFunc:
			f := it.d.(*decl.Function)
			if f.CLinkage() {
				// Reserved in nameTypes.
				it.base = f.Name
			} else {
				it.base = r.unique(f.Name)
			}
		case rules.SymbolMethod:
			it.base = r.unique(it.owner.Name + "_" + it.method.Name)
		}
		if it.workaround != nil && it.workaround.Name != it.base {
			r.used[it.workaround.Name] = true
		}
	}
}

func (it *item) emitted() bool {
	return it.skip == nil && !it.overridden && (it.base != "" || it.anonymousEnum())
}

func (it *item) symbol() rules.Symbol {
	sym := rules.Symbol{Name: it.base}
	if it.owner != nil {
		sym.Owner = it.owner.QualifiedName()
	} else {
		sym.Owner = originOf(it.d).Namespace
	}
	return sym
}

// applySymbolRules decides the public name of every emitted item.
func (r *run) applySymbolRules() ([]Symbol, error) {
	var specs []rules.SymbolSpec
	var symbols []Symbol
	for _, it := range r.items {
		if !it.emitted() || it.anonymousEnum() {
			continue
		}
		specs = append(specs, rules.SymbolSpec{Symbol: it.symbol(), Kind: it.kind})
		symbols = append(symbols, Symbol{Name: it.base, Description: it.entity()})
	}
	names, included, err := rules.Execute(r.opts.SymbolRules, specs)
	if err != nil {
		return nil, err
	}
	for _, it := range r.items {
		if !it.emitted() {
			continue
		}
		if it.anonymousEnum() {
			it.include = true
			continue
		}
		sym := it.symbol()
		it.public = names[sym]
		if renamed := r.opts.Symbols.Rename(it.base); renamed != it.base {
			it.public = renamed
		}
		it.include = included[sym] && r.opts.Symbols.IsEnabled(it.base)
		if it.include && it.public != it.base {
			if r.used[it.public] {
				return nil, fmt.Errorf("cannot rename %v to %v: name already taken", it.base, it.public)
			}
			r.used[it.public] = true
		}
	}
	return symbols, nil
}
