package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refaktor/zigbind"
	"github.com/refaktor/zigbind/config"
	"github.com/refaktor/zigbind/logging"
)

const testConfig = `
[[target]]
name = "a"
output = "a.zig"

[[target.header]]
path = "a.h"
decls = "a.decls.json"

[[target]]
name = "b"
output = "b.zig"

[[target.header]]
path = "b.h"
decls = "missing.json"
`

const testDecls = `[
  {"function": {"name": "a_init", "result": {"kind": "builtin", "name": "int"}}},
  {"struct": {"name": "Fwd"}}
]`

func loadTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zigbind.toml"), []byte(testConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.decls.json"), []byte(testDecls), 0o644))
	cfg, err := config.Load(filepath.Join(dir, "zigbind.toml"))
	require.NoError(t, err)
	return dir, cfg
}

func TestSelectTargets(t *testing.T) {
	require := require.New(t)

	_, cfg := loadTestConfig(t)

	ts, err := selectTargets(cfg, nil)
	require.NoError(err)
	require.Len(ts, 2)

	ts, err = selectTargets(cfg, []string{"b", "a"})
	require.NoError(err)
	require.Equal("b", ts[0].Name)
	require.Equal("a", ts[1].Name)

	_, err = selectTargets(cfg, []string{"c"})
	require.EqualError(err, `unknown target "c"`)
}

func TestRunTargets(t *testing.T) {
	require := require.New(t)

	dir, cfg := loadTestConfig(t)
	ts, err := selectTargets(cfg, nil)
	require.NoError(err)

	var logs bytes.Buffer
	h := logging.NewHandler(&logs, &logging.Options{Level: logging.LevelTrace})
	results, err := runTargets(ts, RunFlags{Jobs: 2}, h, (*zigbind.GenerationRun).Generate)

	// b fails, a is still generated.
	require.ErrorContains(err, "target b: parse b.h: ")
	require.Len(results, 1)
	require.Equal("a", results[0].Target)
	src, err := os.ReadFile(filepath.Join(dir, "a.zig"))
	require.NoError(err)
	require.Contains(string(src), "pub extern fn a_init() c_int;\n")
	require.Contains(logs.String(), "a INFO: generated bindings target=a skipped=1 shim_files=0\n")

	var out bytes.Buffer
	printStats(&out, results)
	require.Contains(out.String(), "==Binding stats==\n")
	require.Contains(out.String(), "Generated 1 target(s) with 0 shim file(s).\n")
	require.Contains(out.String(), "==Timing stats==\n")
	require.Contains(out.String(), "==TOTAL==")
	require.Contains(out.String(), "==Skipped declarations==\na: 1 declarations skipped:\n  struct Fwd: cannot resolve Fwd: forward declaration without definition\n")
}
