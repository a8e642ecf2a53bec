package shim

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"
)

// Companion is the shim source for one header.
type Companion struct {
	Header string
	// Include is the argument of the #include directive, e.g. `"imgui.h"`
	// or `<imgui.h>`.
	Include     string
	Workarounds []Workaround
}

// Group splits ws by originating header. Companions are ordered by the
// first workaround of each header, workarounds keep their order.
func Group(ws []Workaround) []Companion {
	var res []Companion
	idx := make(map[string]int)
	for _, w := range ws {
		i, ok := idx[w.Header]
		if !ok {
			i = len(res)
			idx[w.Header] = i
			res = append(res, Companion{
				Header:  w.Header,
				Include: DefaultInclude(w.Header),
			})
		}
		res[i].Workarounds = append(res[i].Workarounds, w)
	}
	return res
}

// DefaultInclude quotes the base name of header.
func DefaultInclude(header string) string {
	return `"` + filepath.Base(header) + `"`
}

// DefaultFileName returns the companion file name for header, e.g.
// "imgui_internal_byvalue.cpp" for "include/imgui_internal.h".
func DefaultFileName(header string) string {
	return strcase.ToSnake(headerStem(header)) + "_byvalue.cpp"
}

const companionTemplate = `// Code generated by zigbind. DO NOT EDIT.
// By-value return shims for {{.Base}}.

#include {{.Include}}

#ifdef __cplusplus
extern "C" {
#endif
{{range .Workarounds}}
{{.Code}}{{end}}
#ifdef __cplusplus
}
#endif
`

var companionTmpl = template.Must(template.New("companion").Parse(companionTemplate))

// Render returns the companion's C++ source.
func (c Companion) Render() ([]byte, error) {
	include := c.Include
	if include == "" {
		include = DefaultInclude(c.Header)
	} else if !strings.HasPrefix(include, `"`) && !strings.HasPrefix(include, "<") {
		include = `"` + include + `"`
	}
	data := struct {
		Base        string
		Include     string
		Workarounds []Workaround
	}{
		Base:        filepath.Base(c.Header),
		Include:     include,
		Workarounds: c.Workarounds,
	}
	var buf bytes.Buffer
	if err := companionTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}
