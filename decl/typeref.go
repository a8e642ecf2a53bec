package decl

import (
	"fmt"
	"strconv"
	"strings"
)

type TypeKind int

const (
	Builtin TypeKind = iota
	Named
	Pointer
	Reference
	Array
	FuncProto
)

func (k TypeKind) String() string {
	switch k {
	case Builtin:
		return "builtin"
	case Named:
		return "named"
	case Pointer:
		return "pointer"
	case Reference:
		return "reference"
	case Array:
		return "array"
	case FuncProto:
		return "function"
	default:
		panic("invalid type kind")
	}
}

// Signature is the prototype of a function type.
type Signature struct {
	Params   []TypeRef `json:"params,omitempty"`
	Result   *TypeRef  `json:"result,omitempty"`
	Variadic bool      `json:"variadic,omitempty"`
}

// TypeRef references a builtin or a declared type.
//
// Args is only non-empty for template instantiations, e.g. ImVector<int>
// has Name "ImVector" and Args ["int"].
type TypeRef struct {
	Kind TypeKind `json:"kind"`
	// Builtin name ("int", "unsigned char") or qualified declaration name.
	Name  string   `json:"name,omitempty"`
	Args  []string `json:"args,omitempty"`
	Const bool     `json:"const,omitempty"`
	// Pointee, referee or array element.
	Elem *TypeRef `json:"elem,omitempty"`
	// Array length, -1 if not a constant the model can express.
	Len int64 `json:"len,omitempty"`
	// Only set for FuncProto.
	Sig *Signature `json:"sig,omitempty"`
	// Native spelling as written for a C++ compiler, e.g. "const ImVec2 &".
	Spelling string `json:"spelling,omitempty"`
	// Anonymous record (e.g. an unnamed union member). Size and Align are in
	// bytes, 0 if unknown.
	Anonymous bool  `json:"anonymous,omitempty"`
	Size      int64 `json:"size,omitempty"`
	Align     int64 `json:"align,omitempty"`
}

func BuiltinType(name string) TypeRef {
	return TypeRef{Kind: Builtin, Name: name, Spelling: name}
}

func NamedType(name string, args ...string) TypeRef {
	t := TypeRef{Kind: Named, Name: name, Args: args}
	t.Spelling = t.FullName()
	return t
}

func PointerTo(elem TypeRef) TypeRef {
	return TypeRef{Kind: Pointer, Elem: &elem, Spelling: elem.Spelling + " *"}
}

func ConstOf(t TypeRef) TypeRef {
	t.Const = true
	if t.Kind == Pointer {
		t.Spelling += "const"
	} else {
		t.Spelling = "const " + t.Spelling
	}
	return t
}

func ReferenceTo(elem TypeRef) TypeRef {
	return TypeRef{Kind: Reference, Elem: &elem, Spelling: elem.Spelling + " &"}
}

func ArrayOf(elem TypeRef, n int64) TypeRef {
	lenStr := ""
	if n >= 0 {
		lenStr = strconv.FormatInt(n, 10)
	}
	return TypeRef{Kind: Array, Elem: &elem, Len: n, Spelling: elem.Spelling + " [" + lenStr + "]"}
}

// FullName returns the name including generic arguments, e.g. "Pool<Widget>".
func (t TypeRef) FullName() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	return t.Name + "<" + strings.Join(t.Args, ", ") + ">"
}

// String returns a human-readable representation for diagnostics.
func (t TypeRef) String() string {
	if t.Spelling != "" {
		return t.Spelling
	}
	switch t.Kind {
	case Pointer, Reference, Array:
		s := "<nil>"
		if t.Elem != nil {
			s = t.Elem.String()
		}
		switch t.Kind {
		case Pointer:
			return s + " *"
		case Reference:
			return s + " &"
		default:
			return s + "[" + strconv.FormatInt(t.Len, 10) + "]"
		}
	case FuncProto:
		return "function type"
	}
	if t.Anonymous {
		return "anonymous record"
	}
	return t.FullName()
}

func (t TypeRef) IsVoid() bool {
	return t.Kind == Builtin && t.Name == "void"
}

func (k TypeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TypeKind) UnmarshalText(text []byte) error {
	for _, kind := range []TypeKind{Builtin, Named, Pointer, Reference, Array, FuncProto} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown type kind %q", text)
}
