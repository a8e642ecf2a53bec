package selector

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/refaktor/zigbind/decl"
	"github.com/refaktor/zigbind/diag"
	"github.com/refaktor/zigbind/resolve"
	"github.com/stretchr/testify/require"
)

func drawList() *decl.Struct {
	vec2 := decl.NamedType("ImVec2")
	return &decl.Struct{
		Origin:   decl.Origin{Name: "ImDrawList", Header: "imgui.h"},
		Complete: true,
		Methods: []decl.Method{
			{Name: "PushClipRect", Params: []decl.Param{{Name: "min", Type: vec2}, {Name: "max", Type: vec2}}, Result: decl.BuiltinType("void")},
			{Name: "AddCallback", Params: []decl.Param{{Name: "cb", Type: decl.NamedType("ImDrawCallback")}}, Result: decl.BuiltinType("void")},
			{Name: "operator=", Result: decl.BuiltinType("void")},
			{Name: "_ResetForNewFrame", Access: decl.Private, Result: decl.BuiltinType("void")},
			{Name: "ImDrawList", Deleted: true, Result: decl.BuiltinType("void")},
			{Name: "GetClipRectMin", Const: true, Result: vec2},
			{Name: "AddLine", Params: []decl.Param{{Name: "p1", Type: vec2}}, Result: decl.BuiltinType("void")},
			{Name: "AddLine", Params: []decl.Param{{Name: "p1", Type: vec2}, {Name: "p2", Type: vec2}}, Result: decl.BuiltinType("void")},
		},
	}
}

func names(ms []decl.Method) []string {
	var res []string
	for _, m := range ms {
		res = append(res, m.Name)
	}
	return res
}

func TestSelectAll(t *testing.T) {
	require := require.New(t)

	var logBuf bytes.Buffer
	s := &Selector{
		Resolver: resolve.New(nil, resolve.Scope{"ImVec2": {Zig: "ImVec2", Aggregate: true}}),
		Logger:   slog.New(slog.NewTextHandler(&logBuf, nil)),
	}
	selected, dropped := s.SelectMethods(AllMethods{}, drawList())
	require.Equal([]string{"PushClipRect", "GetClipRectMin", "AddLine", "AddLine"}, names(selected))
	require.Len(dropped, 1)
	require.Equal("method ImDrawList::AddCallback", dropped[0].Entity)
	require.Equal(diag.UnresolvableType, dropped[0].Kind)
	require.Equal("imgui.h", dropped[0].Header)
	require.Contains(logBuf.String(), "skipped method ImDrawList::AddCallback")

	// Regenerating gives the same order.
	again, _ := s.SelectMethods(AllMethods{}, drawList())
	require.Equal(selected, again)
}

func TestSelectNamed(t *testing.T) {
	require := require.New(t)

	var logBuf bytes.Buffer
	s := &Selector{
		Resolver: resolve.New(nil, resolve.Scope{"ImVec2": {Zig: "ImVec2", Aggregate: true}}),
		Logger:   slog.New(slog.NewTextHandler(&logBuf, nil)),
	}
	selected, dropped := s.SelectMethods(NamedMethods{Names: []string{"AddLine", "operator=", "Missing"}}, drawList())
	require.Equal([]string{"AddLine", "AddLine"}, names(selected))
	require.Empty(dropped)
	require.Contains(logBuf.String(), "method=Missing")
	require.NotContains(logBuf.String(), "method=operator=")
}

func TestSelectNone(t *testing.T) {
	require := require.New(t)

	s := &Selector{Resolver: resolve.New(nil, nil)}
	selected, dropped := s.SelectMethods(NoMethods{}, drawList())
	require.Empty(selected)
	require.Empty(dropped)
	selected, _ = s.SelectMethods(nil, drawList())
	require.Empty(selected)
}
