package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/refaktor/zigbind/codeio"
	"github.com/refaktor/zigbind/config/rules"
	"github.com/refaktor/zigbind/decl"
	"github.com/refaktor/zigbind/textutils"
)

func (r *run) render() []byte {
	var cb codeio.CodeBuilder
	cb.Write(textutils.PrefixLines(generatedComment, "// "))
	if r.opts.Comment != "" {
		cb.Write(textutils.PrefixLines(r.opts.Comment, "// "))
	}
	for _, p := range r.opts.Preambles {
		renderPreamble(&cb, p.Name, p.Text)
	}

	var prev *item
	for _, it := range r.items {
		if s, ok := it.d.(*decl.Struct); ok && it.method == nil {
			if cfg := r.opts.Structs[s.QualifiedName()]; cfg.Preamble != "" {
				renderPreamble(&cb, s.QualifiedName(), cfg.Preamble)
				prev = nil
			}
		}
		if !it.emitted() || (!it.include && isCallable(it)) {
			continue
		}
		if prev == nil || multiline(prev) || multiline(it) || isCallable(prev) != isCallable(it) {
			cb.Blank()
		}
		switch it.kind {
		case rules.SymbolStruct:
			r.renderStruct(&cb, it)
		case rules.SymbolEnum:
			r.renderEnum(&cb, it)
		case rules.SymbolAlias:
			t, _ := r.res.ResolveField(it.d.(*decl.TypeAlias).Target)
			cb.Linef("%v = %v;", r.constPrefix(it), t.Zig)
			r.renderPublicAlias(&cb, it)
		default:
			r.renderFunc(&cb, it)
		}
		r.stats.Emitted[it.category()]++
		prev = it
	}
	return []byte(cb.String())
}

func multiline(it *item) bool {
	return it.kind == rules.SymbolStruct || it.kind == rules.SymbolEnum
}

func isCallable(it *item) bool {
	return it.kind == rules.SymbolFunc || it.kind == rules.SymbolMethod
}

func renderPreamble(cb *codeio.CodeBuilder, name, text string) {
	if text == "" {
		return
	}
	suffix := ""
	if name != "" {
		suffix = " " + name
	}
	cb.Blank()
	cb.Linef("// zigbind: begin preamble%v", suffix)
	cb.Write(text)
	if !strings.HasSuffix(text, "\n") {
		cb.Write("\n")
	}
	cb.Linef("// zigbind: end preamble%v", suffix)
}

// constPrefix declares the item's internal name, publicly if nothing
// renames or hides it.
func (r *run) constPrefix(it *item) string {
	if it.include && it.public == it.internal {
		return "pub const " + ident(it.internal)
	}
	return "const " + ident(it.internal)
}

// renderPublicAlias exposes a renamed item under its public name.
func (r *run) renderPublicAlias(cb *codeio.CodeBuilder, it *item) {
	if it.include && it.public != it.internal {
		cb.Linef("pub const %v = %v;", ident(it.public), ident(it.internal))
	}
}

func (r *run) renderStruct(cb *codeio.CodeBuilder, it *item) {
	s := it.d.(*decl.Struct)
	if len(s.Fields) == 0 && s.Size > 0 {
		// Empty C++ records still occupy storage.
		cb.Block(r.constPrefix(it)+" = extern struct {", "};", func() {
			if s.Align > 1 {
				cb.Linef("_pad: [%v]u8 align(%v),", s.Size, s.Align)
			} else {
				cb.Linef("_pad: [%v]u8,", s.Size)
			}
		})
	} else if len(s.Fields) == 0 {
		cb.Linef("%v = extern struct {};", r.constPrefix(it))
	} else {
		cb.Block(r.constPrefix(it)+" = extern struct {", "};", func() {
			anon := 0
			for _, f := range s.Fields {
				t, _ := r.res.ResolveField(f.Type)
				name := f.Name
				if name == "" {
					name = fmt.Sprintf("anon%v", anon)
					anon++
				}
				if t.Align != 0 {
					cb.Linef("%v: %v align(%v),", ident(name), t.Zig, t.Align)
				} else {
					cb.Linef("%v: %v,", ident(name), t.Zig)
				}
			}
		})
	}
	r.renderPublicAlias(cb, it)
}

func (r *run) renderEnum(cb *codeio.CodeBuilder, it *item) {
	e := it.d.(*decl.Enum)
	t, _ := r.res.Resolve(decl.BuiltinType(underlying(e)))
	if it.anonymousEnum() {
		for i, c := range e.Constants {
			cb.Linef("pub const %v: %v = %v;", ident(r.constants[e][i]), t.Zig, c.Value)
		}
		return
	}
	cb.Linef("%v = %v;", r.constPrefix(it), t.Zig)
	r.renderPublicAlias(cb, it)
	pub := ""
	if it.include {
		pub = "pub "
	}
	for i, c := range e.Constants {
		cb.Linef("%vconst %v: %v = %v;", pub, ident(r.constants[e][i]), ident(it.internal), c.Value)
	}
}

// paramDecls returns the Zig parameter list of a callable. Names must not
// shadow container-level declarations.
func (r *run) paramDecls(it *item) []string {
	var res []string
	if it.self != "" {
		res = append(res, it.self)
	}
	out := ""
	if it.workaround != nil {
		out = it.workaround.OutParam
		for r.used[out] {
			out += "_"
		}
	}
	taken := map[string]bool{"self": true, out: true}
	for i, p := range it.params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%v", i)
		}
		for r.used[name] || taken[name] {
			name += "_"
		}
		taken[name] = true
		res = append(res, ident(name)+": "+it.paramTypes[i])
	}
	if out != "" {
		res = append(res, ident(out)+": *"+it.outType)
	}
	if it.variadic {
		res = append(res, "...")
	}
	return res
}

func (r *run) renderFunc(cb *codeio.CodeBuilder, it *item) {
	internal := ident(it.internal)
	if it.mangled {
		internal = "@" + strconv.Quote(it.internal)
	}
	proto := fmt.Sprintf("extern fn %v(%v) %v;", internal, strings.Join(r.paramDecls(it), ", "), it.result)
	if it.public == it.internal {
		cb.Linef("pub %v", proto)
		return
	}
	cb.Linef("%v", proto)
	cb.Linef("pub const %v = %v;", ident(it.public), internal)
}
