package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refaktor/zigbind/diag"
	"github.com/refaktor/zigbind/resolve"
	"github.com/refaktor/zigbind/selector"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const imguiTOML = `
imports = ["more/glfw.toml"]

[[target]]
name = "imgui"
output = "out/imgui.zig"
strict = true
byvalue-workaround = true
preamble = "pub const ImVector = extern struct { Size: c_int, Capacity: c_int, Data: ?*anyopaque };"

[[target.header]]
path = "include/imgui.h"
include-dirs = ["include"]
include = "<imgui.h>"

[[target.header]]
path = "include/imgui_internal.h"
workaround = false

[[target.struct]]
name = "ImDrawList"
methods = "all"

[[target.struct]]
name = "ImFontAtlas"
method-names = ["Build", "Clear"]

[[target.override]]
template = "ImVector"

[[target.override]]
alias = "ImStb::STB_TexteditState"
name = "STB_TexteditState"

[[target.override]]
pattern = "ImPool<.*>"
name = "ImPool"

[[target.rule]]
select.name = ".*Callback"
action.include = false
`

const glfwTOML = `
[[target]]
name = "glfw"
output = "glfw.zig"

[[target.header]]
path = "/usr/include/GLFW/glfw3.h"
decls = "glfw3.decls.json"
`

func TestLoad(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zigbind.toml"), imguiTOML)
	writeFile(t, filepath.Join(dir, "more", "glfw.toml"), glfwTOML)

	c, err := Load(filepath.Join(dir, "zigbind.toml"))
	require.NoError(err)
	require.Len(c.Targets, 2)

	imgui, ok := c.Target("imgui")
	require.True(ok)
	require.Equal(filepath.Join(dir, "out", "imgui.zig"), imgui.Path(imgui.Output))
	require.Equal(filepath.Join(dir, "include", "imgui.h"), imgui.Path(imgui.Headers[0].Path))
	require.True(imgui.Headers[0].WorkaroundEnabled())
	require.False(imgui.Headers[1].WorkaroundEnabled())
	require.Equal(diag.Strict, imgui.Policy())

	glfw, ok := c.Target("glfw")
	require.True(ok)
	require.Equal(filepath.Join(dir, "more", "glfw3.decls.json"), glfw.Path(glfw.Headers[0].Decls))
	require.Equal("/usr/include/GLFW/glfw3.h", glfw.Path(glfw.Headers[0].Path))
	require.Equal(diag.Lenient, glfw.Policy())

	_, ok = c.Target("nanovg")
	require.False(ok)

	opts, err := imgui.EmitOptions(nil, nil)
	require.NoError(err)
	require.True(opts.ByValueWorkaround)
	require.Len(opts.Preambles, 1)
	require.Equal(selector.AllMethods{}, opts.Structs["ImDrawList"].Methods)
	require.Equal(selector.NamedMethods{Names: []string{"Build", "Clear"}}, opts.Structs["ImFontAtlas"].Methods)
	require.Len(opts.Overrides, 3)
	require.Equal(resolve.TemplateRule("ImVector", ""), opts.Overrides[0])
	require.Equal(resolve.AliasRule("ImStb::STB_TexteditState", "STB_TexteditState"), opts.Overrides[1])
	require.Equal(resolve.MatchPattern, opts.Overrides[2].Match)
	require.True(opts.SkipWorkaround("include/imgui_internal.h"))
	require.False(opts.SkipWorkaround("include/imgui.h"))
	require.Len(opts.SymbolRules, 1)
}

func TestLoadYAML(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zigbind.yaml"), `
target:
  - name: nanovg
    output: nanovg.zig
    header:
      - path: nanovg.h
        preamble: "pub const NVGcontext = opaque {};"
    rule:
      - select:
          kind: func
        action:
          to-casing: snake
`)
	c, err := Load(filepath.Join(dir, "zigbind.yaml"))
	require.NoError(err)
	require.Len(c.Targets, 1)
	tgt := &c.Targets[0]
	require.Equal(dir, tgt.Dir)
	require.Equal("snake", tgt.Rules[0].Actions.ToCasing)

	opts, err := tgt.EmitOptions(nil, nil)
	require.NoError(err)
	require.Equal("nanovg.h", opts.Preambles[0].Name)
	require.Nil(opts.SkipWorkaround)
}

func TestLoadErrors(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	load := func(name, content string) error {
		path := filepath.Join(dir, name)
		writeFile(t, path, content)
		_, err := Load(path)
		return err
	}

	err := load("unknown.toml", "[[target]]\nname = \"x\"\nexport = true\n")
	var cErr *Error
	require.True(errors.As(err, &cErr))
	require.Contains(cErr.String(), "Error in file")

	err = load("methods.toml", `
[[target]]
name = "x"
output = "x.zig"
header = [{ path = "x.h" }]
struct = [{ name = "S", methods = "some" }]
`)
	require.ErrorContains(err, `target x: struct S: unknown method policy "some"`)

	err = load("override.toml", `
[[target]]
name = "x"
output = "x.zig"
header = [{ path = "x.h" }]
override = [{ alias = "A", template = "B", name = "C" }]
`)
	require.ErrorContains(err, "target x: override 0: expected exactly one of template, prefix, alias and pattern")

	err = load("dup.toml", `
[[target]]
name = "x"
output = "x.zig"
header = [{ path = "x.h" }]

[[target]]
name = "x"
output = "y.zig"
header = [{ path = "y.h" }]
`)
	require.ErrorContains(err, "duplicate target x")

	err = load("noheaders.toml", "[[target]]\nname = \"x\"\noutput = \"x.zig\"\n")
	require.ErrorContains(err, "target x: no headers")

	err = load("imports.toml", "imports = [\"missing.toml\"]\n")
	require.True(errors.As(err, &cErr))
	require.ErrorIs(err, os.ErrNotExist)
}
