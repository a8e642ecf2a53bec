package decl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	require := require.New(t)

	src := `[
	{"struct": {"name": "Vec2", "complete": true, "fields": [
		{"name": "x", "type": {"kind": "builtin", "name": "float"}},
		{"name": "y", "type": {"kind": "builtin", "name": "float"}}
	]}},
	{"function": {"name": "Add", "mangled": "_Z3Add4Vec2S_",
		"params": [
			{"name": "a", "type": {"kind": "named", "name": "Vec2", "spelling": "Vec2"}},
			{"name": "b", "type": {"kind": "named", "name": "Vec2", "spelling": "Vec2"}}
		],
		"result": {"kind": "named", "name": "Vec2", "spelling": "Vec2"}}},
	{"enum": {"name": "Dir", "header": "other.h", "constants": [{"name": "Dir_Left", "value": 0}]}},
	{"alias": {"name": "ImU32", "target": {"kind": "builtin", "name": "unsigned int"}}}
]`
	decls, err := ReadJSON(strings.NewReader(src), "vec.h")
	require.NoError(err)
	require.Len(decls, 4)

	s, ok := decls[0].(*Struct)
	require.True(ok)
	require.Equal("Vec2", s.QualifiedName())
	require.Equal("vec.h", s.HeaderPath())
	require.Len(s.Fields, 2)
	require.Equal(Builtin, s.Fields[1].Type.Kind)

	f, ok := decls[1].(*Function)
	require.True(ok)
	require.False(f.CLinkage())
	require.Equal(Named, f.Result.Kind)

	require.Equal("other.h", decls[2].HeaderPath())
	require.Equal(KindTypeAlias, decls[3].Kind())

	var buf bytes.Buffer
	require.NoError(WriteJSON(&buf, decls))
	again, err := ReadJSON(&buf, "")
	require.NoError(err)
	require.Equal(decls, again)
}

func TestReadJSONErrors(t *testing.T) {
	require := require.New(t)

	_, err := ReadJSON(strings.NewReader(`[{}]`), "a.h")
	require.EqualError(err, "declaration 0: expected exactly one of struct, function, enum or alias")

	_, err = ReadJSON(strings.NewReader(`[{"enum": {"name": "E", "constants": []}, "alias": {"name": "A", "target": {"kind": "builtin", "name": "int"}}}]`), "a.h")
	require.Error(err)

	_, err = ReadJSON(strings.NewReader(`[{"function": {"result": {"kind": "builtin", "name": "void"}}}]`), "a.h")
	require.EqualError(err, "declaration 0: missing name")

	_, err = ReadJSON(strings.NewReader(`[{"alias": {"name": "A", "target": {"kind": "lambda"}}}]`), "a.h")
	require.ErrorContains(err, `unknown type kind "lambda"`)

	// Enums may be anonymous.
	decls, err := ReadJSON(strings.NewReader(`[{"enum": {"constants": [{"name": "ImGuiKey_COUNT", "value": 666}]}}]`), "a.h")
	require.NoError(err)
	require.Len(decls, 1)
	require.Empty(decls[0].(*Enum).Name)
	require.Equal("a.h", decls[0].HeaderPath())
}

func TestIsOperator(t *testing.T) {
	require := require.New(t)

	for name, want := range map[string]bool{
		"operator=":     true,
		"operator[]":    true,
		"operator bool": true,
		"operator":      true,
		"operatorName":  false,
		"AddLine":       false,
		"Operator":      false,
	} {
		m := Method{Name: name}
		require.Equal(want, m.IsOperator(), name)
	}
}

func TestTypeRefNames(t *testing.T) {
	require := require.New(t)

	pool := NamedType("Pool", "Widget")
	require.Equal("Pool<Widget>", pool.FullName())
	require.Equal("Pool<Widget>", pool.Spelling)

	p := ConstOf(PointerTo(ConstOf(BuiltinType("char"))))
	require.Equal("const char *const", p.Spelling)
	require.True(p.Const)
	require.True(p.Elem.Const)

	arr := ArrayOf(BuiltinType("float"), 4)
	require.Equal("float [4]", arr.String())
	require.Equal(int64(-1), ArrayOf(BuiltinType("int"), -1).Len)

	require.True(BuiltinType("void").IsVoid())
	require.False(PointerTo(BuiltinType("void")).IsVoid())
}
