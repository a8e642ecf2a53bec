// Package resolve maps C/C++ type references to Zig type expressions.
//
// A [Resolver] first consults its override [Rules] (template collapse,
// then aliases) and falls back to a structural mapping of builtins,
// pointers, arrays and function pointers. Named declarations resolve only
// if they are in the resolver's [Scope].
package resolve

import (
	"fmt"
	"strings"

	"github.com/refaktor/zigbind/decl"
	"github.com/refaktor/zigbind/diag"
)

// Type is a resolved type.
type Type struct {
	// Zig type expression.
	Zig string
	// Aggregate is true for records, which are returned in memory by some
	// calling conventions.
	Aggregate bool
	// Align is the required field alignment of an inline blob standing in
	// for an anonymous record, 0 otherwise.
	Align int64
}

// Entry is a named declaration visible to the resolver.
type Entry struct {
	Zig       string
	Aggregate bool
}

// Scope holds the named types with a known layout, keyed by qualified
// name.
type Scope map[string]Entry

type Resolver struct {
	rules Rules
	scope Scope
}

func New(rules Rules, scope Scope) *Resolver {
	if scope == nil {
		scope = Scope{}
	}
	return &Resolver{rules: rules, scope: scope}
}

// Resolve resolves ref in value position, e.g. a struct field or alias
// target. Returned errors are *diag.UnresolvableTypeError.
func (r *Resolver) Resolve(ref decl.TypeRef) (Type, error) {
	switch ref.Kind {
	case decl.Builtin:
		if ref.IsVoid() {
			return Type{Zig: "void"}, nil
		}
		if zig, ok := builtinTypes[ref.Name]; ok {
			return Type{Zig: zig}, nil
		}
		return Type{}, unresolvable(ref, "unsupported builtin type")
	case decl.Named:
		return r.resolveNamed(ref)
	case decl.Pointer, decl.Reference:
		return r.resolvePointer(ref)
	case decl.Array:
		if ref.Elem == nil {
			return Type{}, unresolvable(ref, "array without element type")
		}
		if ref.Len < 0 {
			return Type{}, unresolvable(ref, "array length is not a constant")
		}
		elem, err := r.ResolveField(*ref.Elem)
		if err != nil {
			return Type{}, err
		}
		return Type{Zig: fmt.Sprintf("[%v]%v", ref.Len, elem.Zig)}, nil
	case decl.FuncProto:
		return r.resolveFunc(ref)
	default:
		return Type{}, unresolvable(ref, "unknown type kind")
	}
}

// ResolveField is like [Resolver.Resolve] but rejects void.
func (r *Resolver) ResolveField(ref decl.TypeRef) (Type, error) {
	if ref.IsVoid() {
		return Type{}, unresolvable(ref, "void is not a value type")
	}
	return r.Resolve(ref)
}

// ResolveParam resolves a function parameter. Arrays decay to pointers and
// function types to function pointers.
func (r *Resolver) ResolveParam(ref decl.TypeRef) (Type, error) {
	switch ref.Kind {
	case decl.Array:
		if ref.Elem == nil {
			return Type{}, unresolvable(ref, "array without element type")
		}
		elem, err := r.pointee(*ref.Elem)
		if err != nil {
			return Type{}, err
		}
		return Type{Zig: "[*c]" + constPrefix(ref.Elem.Const) + elem}, nil
	case decl.FuncProto:
		fn, err := r.resolveFunc(ref)
		if err != nil {
			return Type{}, err
		}
		return Type{Zig: "?*const " + fn.Zig}, nil
	}
	t, err := r.ResolveField(ref)
	if err != nil {
		return Type{}, err
	}
	if t.Align != 0 {
		return Type{}, unresolvable(ref, "anonymous record passed by value")
	}
	return t, nil
}

// ResolveResult resolves a function result; void is allowed.
func (r *Resolver) ResolveResult(ref decl.TypeRef) (Type, error) {
	if ref.IsVoid() {
		return Type{Zig: "void"}, nil
	}
	return r.ResolveParam(ref)
}

func (r *Resolver) resolveNamed(ref decl.TypeRef) (Type, error) {
	if ref.Anonymous {
		if ref.Size <= 0 {
			return Type{}, unresolvable(ref, "anonymous record of unknown size")
		}
		align := ref.Align
		if align <= 0 {
			align = 1
		}
		return Type{Zig: fmt.Sprintf("[%v]u8", ref.Size), Aggregate: true, Align: align}, nil
	}
	if name, ok := r.rules.Lookup(ref); ok {
		return Type{Zig: name, Aggregate: true}, nil
	}
	if len(ref.Args) > 0 {
		return Type{}, unresolvable(ref, "template instantiation without override")
	}
	if e, ok := r.scope[ref.Name]; ok {
		return Type{Zig: e.Zig, Aggregate: e.Aggregate}, nil
	}
	// Typedef names from <stdint.h> and <stddef.h> often reach us as named
	// references rather than builtins.
	if zig, ok := builtinTypes[ref.Name]; ok {
		return Type{Zig: zig}, nil
	}
	return Type{}, unresolvable(ref, "unknown or incomplete type")
}

// pointee resolves the target of a pointer or reference. Any named type
// without a known layout becomes anyopaque.
func (r *Resolver) pointee(elem decl.TypeRef) (string, error) {
	switch elem.Kind {
	case decl.Builtin:
		if elem.IsVoid() {
			return "anyopaque", nil
		}
	case decl.Named:
		t, err := r.resolveNamed(elem)
		if err != nil || t.Align != 0 {
			return "anyopaque", nil
		}
		return t.Zig, nil
	case decl.FuncProto:
		return "", unresolvable(elem, "function pointer target must be resolved as a pointer")
	}
	t, err := r.ResolveField(elem)
	if err != nil {
		return "", err
	}
	return t.Zig, nil
}

func (r *Resolver) resolvePointer(ref decl.TypeRef) (Type, error) {
	if ref.Elem == nil {
		return Type{}, unresolvable(ref, "pointer without target type")
	}
	elem := *ref.Elem
	if elem.Kind == decl.FuncProto {
		fn, err := r.resolveFunc(elem)
		if err != nil {
			return Type{}, err
		}
		if ref.Kind == decl.Reference {
			return Type{Zig: "*const " + fn.Zig}, nil
		}
		return Type{Zig: "?*const " + fn.Zig}, nil
	}
	if ref.Kind == decl.Pointer && elem.Kind == decl.Builtin && isChar(elem.Name) {
		// C strings.
		if elem.Const {
			return Type{Zig: "?[*:0]const u8"}, nil
		}
		return Type{Zig: "[*c]u8"}, nil
	}
	target, err := r.pointee(elem)
	if err != nil {
		return Type{}, err
	}
	prefix := "?*"
	if ref.Kind == decl.Reference {
		prefix = "*"
	}
	return Type{Zig: prefix + constPrefix(elem.Const) + target}, nil
}

func (r *Resolver) resolveFunc(ref decl.TypeRef) (Type, error) {
	if ref.Sig == nil {
		return Type{}, unresolvable(ref, "function type without signature")
	}
	var b strings.Builder
	b.WriteString("fn (")
	for i, p := range ref.Sig.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		t, err := r.ResolveParam(p)
		if err != nil {
			return Type{}, err
		}
		b.WriteString(t.Zig)
	}
	if ref.Sig.Variadic {
		if len(ref.Sig.Params) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteString(") callconv(.C) ")
	if ref.Sig.Result == nil {
		b.WriteString("void")
	} else {
		res, err := r.ResolveResult(*ref.Sig.Result)
		if err != nil {
			return Type{}, err
		}
		b.WriteString(res.Zig)
	}
	return Type{Zig: b.String()}, nil
}

func constPrefix(isConst bool) string {
	if isConst {
		return "const "
	}
	return ""
}

func isChar(name string) bool {
	return name == "char"
}

func unresolvable(ref decl.TypeRef, reason string) error {
	return &diag.UnresolvableTypeError{Type: ref.String(), Reason: reason}
}

var builtinTypes = map[string]string{
	"bool":               "bool",
	"_Bool":              "bool",
	"char":               "u8",
	"signed char":        "i8",
	"unsigned char":      "u8",
	"char8_t":            "u8",
	"char16_t":           "u16",
	"char32_t":           "u32",
	"short":              "c_short",
	"unsigned short":     "c_ushort",
	"int":                "c_int",
	"unsigned int":       "c_uint",
	"long":               "c_long",
	"unsigned long":      "c_ulong",
	"long long":          "c_longlong",
	"unsigned long long": "c_ulonglong",
	"float":              "f32",
	"double":             "f64",
	"long double":        "c_longdouble",

	"int8_t":    "i8",
	"int16_t":   "i16",
	"int32_t":   "i32",
	"int64_t":   "i64",
	"uint8_t":   "u8",
	"uint16_t":  "u16",
	"uint32_t":  "u32",
	"uint64_t":  "u64",
	"size_t":    "usize",
	"ssize_t":   "isize",
	"ptrdiff_t": "isize",
	"intptr_t":  "isize",
	"uintptr_t": "usize",
}
