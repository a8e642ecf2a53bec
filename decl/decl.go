// Package decl is the declaration model handed to the generator by a header
// parser. Values are treated as immutable once parsed.
package decl

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindStruct Kind = iota
	KindFunction
	KindEnum
	KindTypeAlias
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindFunction:
		return "function"
	case KindEnum:
		return "enum"
	case KindTypeAlias:
		return "alias"
	default:
		panic("invalid declaration kind")
	}
}

// Declaration is one of [*Struct], [*Function], [*Enum] or [*TypeAlias].
type Declaration interface {
	Kind() Kind
	// QualifiedName is the name including the namespace, e.g. "ImGui::Begin".
	QualifiedName() string
	// HeaderPath is the header the declaration was found in.
	HeaderPath() string
}

// Parser turns a header into declarations. Implementations live outside
// the generator core (see package cparse).
type Parser interface {
	Parse(path string, includeDirs []string) ([]Declaration, error)
}

// Origin holds the attributes common to all declarations.
type Origin struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"` // "A::B", or "" for the global namespace
	Header    string `json:"header,omitempty"`
}

func (o Origin) QualifiedName() string {
	return qualify(o.Namespace, o.Name)
}

func (o Origin) HeaderPath() string {
	return o.Header
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "::" + name
}

type Field struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
	// Bit width of a bit-field, 0 otherwise.
	BitWidth int `json:"bitWidth,omitempty"`
}

type Access int

const (
	Public Access = iota
	Protected
	Private
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		panic("invalid access specifier")
	}
}

func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Access) UnmarshalText(text []byte) error {
	switch string(text) {
	case "public":
		*a = Public
	case "protected":
		*a = Protected
	case "private":
		*a = Private
	default:
		return fmt.Errorf("unknown access specifier %q", text)
	}
	return nil
}

type Param struct {
	Name string  `json:"name,omitempty"`
	Type TypeRef `json:"type"`
}

type Method struct {
	Name     string  `json:"name"`
	Params   []Param `json:"params,omitempty"`
	Result   TypeRef `json:"result"`
	Access   Access  `json:"access,omitempty"`
	Static   bool    `json:"static,omitempty"`
	Const    bool    `json:"const,omitempty"`
	Deleted  bool    `json:"deleted,omitempty"`
	Variadic bool    `json:"variadic,omitempty"`
	// Linker symbol.
	Mangled string `json:"mangled,omitempty"`
}

// IsOperator reports whether m is an operator overload.
func (m *Method) IsOperator() bool {
	rest, ok := strings.CutPrefix(m.Name, "operator")
	if !ok {
		return false
	}
	// operatorFoo is a plain method name, "operator+" and "operator bool" are not.
	return rest == "" || !isIdentRune(rune(rest[0]))
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

type Struct struct {
	Origin
	Fields  []Field  `json:"fields,omitempty"`
	Methods []Method `json:"methods,omitempty"`
	// False for forward declarations.
	Complete bool `json:"complete"`
	// Size and Align in bytes, or 0 if unknown.
	Size  int64 `json:"size,omitempty"`
	Align int64 `json:"align,omitempty"`
}

func (*Struct) Kind() Kind { return KindStruct }

type Function struct {
	Origin
	Params   []Param `json:"params,omitempty"`
	Result   TypeRef `json:"result"`
	Variadic bool    `json:"variadic,omitempty"`
	// Linker symbol. Empty or equal to Name for C linkage.
	Mangled string `json:"mangled,omitempty"`
}

func (*Function) Kind() Kind { return KindFunction }

// CLinkage reports whether the function can be called through its plain name.
func (f *Function) CLinkage() bool {
	return f.Mangled == "" || f.Mangled == f.Name
}

type EnumConstant struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Enum is a C enum. An anonymous enum has an empty Name; only its
// constants are bound.
type Enum struct {
	Origin
	// Underlying builtin type name, "int" if empty.
	Underlying string         `json:"underlying,omitempty"`
	Constants  []EnumConstant `json:"constants"`
}

func (*Enum) Kind() Kind { return KindEnum }

type TypeAlias struct {
	Origin
	Target TypeRef `json:"target"`
}

func (*TypeAlias) Kind() Kind { return KindTypeAlias }

// String returns a short description for diagnostics, e.g. "function ImGui::Begin".
func String(d Declaration) string {
	return fmt.Sprintf("%v %v", d.Kind(), d.QualifiedName())
}
