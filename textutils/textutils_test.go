package textutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndentString(t *testing.T) {
	require := require.New(t)

	require.Equal(`  Hello
  World`,
		IndentString(`Hello
World`, "  ", 1),
	)

	require.Equal(`  Hello
  World
`,
		IndentString(`Hello
World
`, "  ", 1),
	)

	require.Equal(`  Hello
  World
`,
		IndentString(`Hello
World
  `, "  ", 1),
	)

	require.Equal(`    Hello

    World
`,
		IndentString(`Hello
  
World
`, "  ", 2),
	)
}

func TestPrefixLines(t *testing.T) {
	require := require.New(t)

	require.Equal("// Generated.\n//\n// Do not edit.\n", PrefixLines("Generated.\n\nDo not edit.", "// "))
	require.Equal("", PrefixLines("", "// "))
}

func TestEnsureNewline(t *testing.T) {
	require := require.New(t)

	require.Equal("a\r\nb\n", EnsureNewline("a\r\nb"))
	require.Equal("a\r\n", EnsureNewline("a\r\n"))
	require.Equal("a\n", EnsureNewline("a\n"))
	require.Equal("", EnsureNewline(""))
}
