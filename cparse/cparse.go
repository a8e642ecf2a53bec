// Package cparse reads C and C++ headers with libclang.
//
// Only declarations written in the parsed header itself are returned;
// declarations from included headers are left to their own parse.
package cparse

import (
	"errors"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-clang/clang-v13/clang"

	"github.com/refaktor/zigbind/decl"
	"github.com/refaktor/zigbind/diag"
)

// DefaultArgs parse headers as C++17.
var DefaultArgs = []string{"-x", "c++", "-std=c++17"}

// Parser implements [decl.Parser]. A Parser may be used by one goroutine
// at a time.
type Parser struct {
	// Args are passed to clang before the include directories. Defaults to
	// DefaultArgs.
	Args   []string
	Logger *slog.Logger
}

func (p *Parser) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

func (p *Parser) Parse(path string, includeDirs []string) ([]decl.Declaration, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &diag.ParseFailureError{Header: path, Err: err}
	}

	args := p.Args
	if args == nil {
		args = DefaultArgs
	}
	args = append([]string(nil), args...)
	for _, dir := range includeDirs {
		args = append(args, "-I"+dir)
	}

	idx := clang.NewIndex(0, 0)
	defer idx.Dispose()

	tu := idx.ParseTranslationUnit(path, args, nil, uint32(clang.TranslationUnit_SkipFunctionBodies))
	if tu == (clang.TranslationUnit{}) {
		return nil, &diag.ParseFailureError{Header: path, Err: errors.New("libclang could not create a translation unit")}
	}
	defer tu.Dispose()

	var errs []string
	for _, d := range tu.Diagnostics() {
		switch d.Severity() {
		case clang.Diagnostic_Error, clang.Diagnostic_Fatal:
			errs = append(errs, d.Spelling())
		case clang.Diagnostic_Warning:
			p.logger().Debug("clang warning", "header", path, "message", d.Spelling())
		}
		d.Dispose()
	}
	if len(errs) > 0 {
		return nil, &diag.ParseFailureError{Header: path, Err: errors.New(strings.Join(errs, "; "))}
	}

	w := &walker{header: path, logger: p.logger()}
	w.visitChildren(tu.TranslationUnitCursor(), "")
	p.logger().Debug("parsed header", "header", path, "decls", len(w.decls))
	return w.decls, nil
}

type walker struct {
	header string
	logger *slog.Logger
	decls  []decl.Declaration

	// Anonymous enums, named later if a typedef refers to them.
	anonEnums []anonEnum
}

type anonEnum struct {
	c clang.Cursor
	e *decl.Enum
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "::" + name
}

func (w *walker) visitChildren(c clang.Cursor, ns string) {
	c.Visit(func(cursor, parent clang.Cursor) clang.ChildVisitResult {
		if !cursor.Location().IsFromMainFile() {
			return clang.ChildVisit_Continue
		}
		w.visit(cursor, ns)
		return clang.ChildVisit_Continue
	})
}

func (w *walker) visit(c clang.Cursor, ns string) {
	switch c.Kind() {
	case clang.Cursor_Namespace:
		if c.Spelling() == "" {
			return
		}
		w.visitChildren(c, qualify(ns, c.Spelling()))
	case clang.Cursor_LinkageSpec:
		w.visitChildren(c, ns)
	case clang.Cursor_StructDecl, clang.Cursor_ClassDecl, clang.Cursor_UnionDecl:
		if c.IsAnonymous() {
			return
		}
		w.record(c, ns, c.Spelling())
	case clang.Cursor_EnumDecl:
		if c.IsAnonymous() || c.Spelling() == "" {
			w.anonEnums = append(w.anonEnums, anonEnum{c: c, e: w.enum(c, ns, "")})
			return
		}
		w.enum(c, ns, c.Spelling())
	case clang.Cursor_TypedefDecl, clang.Cursor_TypeAliasDecl:
		w.typedef(c, ns)
	case clang.Cursor_FunctionDecl:
		w.function(c, ns)
	}
}

func (w *walker) origin(ns, name string) decl.Origin {
	return decl.Origin{Name: name, Namespace: ns, Header: w.header}
}

// blob is an anonymous field covering size bytes.
func blob(t clang.Type) decl.TypeRef {
	return decl.TypeRef{Kind: decl.Named, Anonymous: true, Size: t.SizeOf(), Align: t.AlignOf()}
}

func (w *walker) record(c clang.Cursor, ns, name string) {
	s := &decl.Struct{
		Origin:   w.origin(ns, name),
		Complete: c.IsCursorDefinition(),
	}
	if !s.Complete {
		w.decls = append(w.decls, s)
		return
	}
	t := c.Type()
	if size := t.SizeOf(); size > 0 {
		s.Size = size
		s.Align = t.AlignOf()
	}

	// Nested records follow their parent.
	var nested []clang.Cursor
	polymorphic := false
	nBases := 0
	c.Visit(func(child, parent clang.Cursor) clang.ChildVisitResult {
		switch child.Kind() {
		case clang.Cursor_CXXBaseSpecifier:
			field := "_base"
			if nBases > 0 {
				field += strconv.Itoa(nBases)
			}
			nBases++
			s.Fields = append(s.Fields, decl.Field{Name: field, Type: typeRef(child.Type())})
		case clang.Cursor_FieldDecl:
			f := decl.Field{Name: child.Spelling(), Type: typeRef(child.Type())}
			if child.IsBitField() {
				f.BitWidth = int(child.FieldDeclBitWidth())
			}
			s.Fields = append(s.Fields, f)
		case clang.Cursor_StructDecl, clang.Cursor_ClassDecl, clang.Cursor_UnionDecl:
			if child.IsAnonymousRecordDecl() {
				s.Fields = append(s.Fields, decl.Field{Type: blob(child.Type())})
			} else if !child.IsAnonymous() {
				nested = append(nested, child)
			}
		case clang.Cursor_CXXMethod:
			if child.CXXMethod_IsVirtual() {
				polymorphic = true
			}
			s.Methods = append(s.Methods, method(child))
		}
		return clang.ChildVisit_Continue
	})
	if c.Kind() == clang.Cursor_UnionDecl || polymorphic {
		// Only the size and alignment are portable.
		s.Fields = []decl.Field{{Type: blob(t)}}
	}
	w.decls = append(w.decls, s)

	for _, n := range nested {
		w.record(n, s.QualifiedName(), n.Spelling())
	}
}

// enum adds the enum declared by c. An empty name declares an anonymous
// enum.
func (w *walker) enum(c clang.Cursor, ns, name string) *decl.Enum {
	e := &decl.Enum{
		Origin:     w.origin(ns, name),
		Underlying: builtinName(c.EnumDeclIntegerType()),
	}
	c.Visit(func(child, parent clang.Cursor) clang.ChildVisitResult {
		if child.Kind() == clang.Cursor_EnumConstantDecl {
			e.Constants = append(e.Constants, decl.EnumConstant{
				Name:  child.Spelling(),
				Value: child.EnumConstantDeclValue(),
			})
		}
		return clang.ChildVisit_Continue
	})
	w.decls = append(w.decls, e)
	return e
}

func (w *walker) typedef(c clang.Cursor, ns string) {
	name := c.Spelling()
	underlying := c.TypedefDeclUnderlyingType()
	// typedef struct { ... } Name;
	if d := underlyingDecl(underlying); d.IsAnonymous() {
		switch d.Kind() {
		case clang.Cursor_StructDecl, clang.Cursor_UnionDecl:
			w.record(d, ns, name)
			return
		case clang.Cursor_EnumDecl:
			for _, a := range w.anonEnums {
				if a.c.Equal(d) {
					a.e.Name = name
					return
				}
			}
			w.enum(d, ns, name)
			return
		}
	}
	w.decls = append(w.decls, &decl.TypeAlias{
		Origin: w.origin(ns, name),
		Target: typeRef(underlying),
	})
}

func underlyingDecl(t clang.Type) clang.Cursor {
	for t.Kind() == clang.Type_Elaborated {
		t = t.NamedType()
	}
	return t.Declaration()
}

func (w *walker) function(c clang.Cursor, ns string) {
	f := &decl.Function{
		Origin:   w.origin(ns, c.Spelling()),
		Params:   params(c),
		Result:   typeRef(c.ResultType()),
		Variadic: c.IsVariadic(),
		Mangled:  mangling(c),
	}
	if f.Mangled == "" {
		f.Mangled = f.Name
	}
	w.decls = append(w.decls, f)
}

func method(c clang.Cursor) decl.Method {
	m := decl.Method{
		Name:     c.Spelling(),
		Params:   params(c),
		Result:   typeRef(c.ResultType()),
		Static:   c.CXXMethod_IsStatic(),
		Const:    c.CXXMethod_IsConst(),
		Deleted:  c.Availability() == clang.Availability_NotAvailable,
		Variadic: c.IsVariadic(),
		Mangled:  mangling(c),
	}
	switch c.AccessSpecifier() {
	case clang.AccessSpecifier_Protected:
		m.Access = decl.Protected
	case clang.AccessSpecifier_Private:
		m.Access = decl.Private
	}
	return m
}

func params(c clang.Cursor) []decl.Param {
	n := int(c.NumArguments())
	res := make([]decl.Param, 0, max(n, 0))
	for i := 0; i < n; i++ {
		arg := c.Argument(uint32(i))
		res = append(res, decl.Param{Name: arg.Spelling(), Type: typeRef(arg.Type())})
	}
	return res
}

// mangling returns the linker symbol without the platform's global symbol
// prefix.
func mangling(c clang.Cursor) string {
	s := c.Mangling()
	if runtime.GOOS == "darwin" {
		s = strings.TrimPrefix(s, "_")
	}
	return s
}

// qualifiedName joins the names of the enclosing namespaces and records.
func qualifiedName(c clang.Cursor) string {
	name := c.Spelling()
	for p := c.SemanticParent(); ; p = p.SemanticParent() {
		switch p.Kind() {
		case clang.Cursor_Namespace, clang.Cursor_StructDecl, clang.Cursor_ClassDecl,
			clang.Cursor_UnionDecl, clang.Cursor_ClassTemplate:
			if p.Spelling() != "" {
				name = p.Spelling() + "::" + name
			}
			continue
		}
		return name
	}
}

func builtinName(t clang.Type) string {
	switch t.Kind() {
	case clang.Type_Void:
		return "void"
	case clang.Type_Bool:
		return "bool"
	case clang.Type_Char_S, clang.Type_Char_U:
		return "char"
	case clang.Type_SChar:
		return "signed char"
	case clang.Type_UChar:
		return "unsigned char"
	case clang.Type_Char16:
		return "char16_t"
	case clang.Type_Char32:
		return "char32_t"
	case clang.Type_Short:
		return "short"
	case clang.Type_UShort:
		return "unsigned short"
	case clang.Type_Int:
		return "int"
	case clang.Type_UInt:
		return "unsigned int"
	case clang.Type_Long:
		return "long"
	case clang.Type_ULong:
		return "unsigned long"
	case clang.Type_LongLong:
		return "long long"
	case clang.Type_ULongLong:
		return "unsigned long long"
	case clang.Type_Float:
		return "float"
	case clang.Type_Double:
		return "double"
	case clang.Type_LongDouble:
		return "long double"
	}
	return ""
}

// typeRef converts a clang type. Spelling is the type as clang prints it,
// which is valid C++.
func typeRef(t clang.Type) decl.TypeRef {
	res := convert(t)
	res.Const = t.IsConstQualifiedType()
	res.Spelling = t.Spelling()
	return res
}

func convert(t clang.Type) decl.TypeRef {
	if name := builtinName(t); name != "" {
		return decl.BuiltinType(name)
	}
	switch t.Kind() {
	case clang.Type_Elaborated:
		return convert(t.NamedType())
	case clang.Type_Pointer:
		return decl.PointerTo(typeRef(t.PointeeType()))
	case clang.Type_LValueReference, clang.Type_RValueReference:
		return decl.ReferenceTo(typeRef(t.PointeeType()))
	case clang.Type_ConstantArray:
		return decl.ArrayOf(typeRef(t.ArrayElementType()), t.ArraySize())
	case clang.Type_IncompleteArray, clang.Type_VariableArray, clang.Type_DependentSizedArray:
		return decl.ArrayOf(typeRef(t.ArrayElementType()), -1)
	case clang.Type_FunctionProto, clang.Type_FunctionNoProto:
		sig := &decl.Signature{Variadic: t.IsFunctionTypeVariadic()}
		result := typeRef(t.ResultType())
		sig.Result = &result
		for i := int32(0); i < t.NumArgTypes(); i++ {
			sig.Params = append(sig.Params, typeRef(t.ArgType(uint32(i))))
		}
		return decl.TypeRef{Kind: decl.FuncProto, Sig: sig}
	case clang.Type_Typedef, clang.Type_Enum:
		return decl.NamedType(qualifiedName(t.Declaration()))
	case clang.Type_Record:
		d := t.Declaration()
		if d.IsAnonymous() {
			return blob(t)
		}
		var args []string
		for i := int32(0); i < t.NumTemplateArguments(); i++ {
			arg := t.TemplateArgumentAsType(uint32(i))
			if arg.Kind() == clang.Type_Invalid {
				args = append(args, "?")
				continue
			}
			args = append(args, arg.Spelling())
		}
		return decl.NamedType(qualifiedName(d), args...)
	case clang.Type_Unexposed:
		if c := t.CanonicalType(); c.Kind() != clang.Type_Unexposed {
			return convert(c)
		}
	}
	return decl.NamedType(t.Spelling())
}
