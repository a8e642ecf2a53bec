package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &Options{Prefix: "imgui"}))
	logger.Debug("hidden")
	logger.Info("parsed header", "path", "imgui.h", "decls", 412)
	logger.Warn("skipped struct ImDrawData", "reason", "cannot resolve ImVector<ImDrawList*>: no rule")
	logger.Error("two\nlines", "header", "imgui.h")
	require.Equal(`imgui INFO: parsed header path=imgui.h decls=412
imgui WARNING: skipped struct ImDrawData reason="cannot resolve ImVector<ImDrawList*>: no rule"
imgui ERROR:
  two
  lines
  header=imgui.h
`, buf.String())
}

func TestHandlerAttrsAndGroups(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &Options{Level: LevelTrace}))
	logger.With("target", "glfw").WithGroup("stats").Log(t.Context(), LevelTrace, "done", "structs", 3, slog.Group("shims", "n", 0))
	require.Equal("TRACE: done target=glfw stats.structs=3 stats.shims.n=0\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	require := require.New(t)

	for s, want := range map[string]slog.Level{
		"trace":   LevelTrace,
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		l, err := ParseLevel(s)
		require.NoError(err)
		require.Equal(want, l, s)
	}
	_, err := ParseLevel("loud")
	require.EqualError(err, "invalid log level: loud")
}

func TestHandlerWithPrefix(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	h := NewHandler(&buf, &Options{Level: slog.LevelWarn})
	slog.New(h.WithPrefix("glfw")).Warn("skipped function glfwGetProcAddress")
	slog.New(h).Info("hidden")
	slog.New(h).Error("failed")
	require.Equal("glfw WARNING: skipped function glfwGetProcAddress\nERROR: failed\n", buf.String())
}
