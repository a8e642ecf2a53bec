package rules

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/natefinch/atomic"
)

// List switches individual symbols on or off and renames them. It is kept
// in a text file with [enabled] and [disabled] sections, one symbol per
// line:
//
//	[enabled]
//	ImDrawList_AddLine => AddLine  "method ImDrawList::AddLine"
//
//	[disabled]
//	ImDrawList_AddCallback         "method ImDrawList::AddCallback"
type List struct {
	Enabled map[string]bool
	Renames map[string]string
}

func NewList() *List {
	return &List{
		Enabled: make(map[string]bool),
		Renames: make(map[string]string),
	}
}

// IsEnabled reports whether name is enabled. Names not in the list are.
func (l *List) IsEnabled(name string) bool {
	if l == nil {
		return true
	}
	enabled, ok := l.Enabled[name]
	return !ok || enabled
}

// Rename returns the new name for name, or name.
func (l *List) Rename(name string) string {
	if l == nil {
		return name
	}
	if s, ok := l.Renames[name]; ok {
		return s
	}
	return name
}

func LoadListFromFile(filename string) (*List, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadList(f, filename)
}

// ReadList parses a symbol list. filename is used in error messages.
func ReadList(r io.Reader, filename string) (*List, error) {
	res := NewList()

	type section int
	const (
		sectionNone section = iota
		sectionEnabled
		sectionDisabled
	)

	currSection := sectionNone
	sc := bufio.NewScanner(r)
	for lineNum := 1; sc.Scan(); lineNum++ {
		makeErr := func(format string, a ...any) error {
			return fmt.Errorf("%v: line %v: %v", filename, lineNum, fmt.Errorf(format, a...))
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			switch line {
			case "[enabled]":
				currSection = sectionEnabled
			case "[disabled]":
				currSection = sectionDisabled
			default:
				return nil, makeErr("invalid section name %v", line)
			}
			continue
		}
		fields := strings.FieldsFunc(line, unicode.IsSpace)
		name := fields[0]
		if currSection == sectionNone {
			return nil, makeErr("expected symbol name \"%v\" to be under a section ([enabled] or [disabled])", name)
		}
		if len(fields) >= 2 && fields[1] == "=>" {
			if len(fields) < 3 || strings.HasPrefix(fields[2], `"`) {
				return nil, makeErr("expected new name after \"=>\" (rename)")
			}
			res.Renames[name] = fields[2]
		}
		enabled := currSection == sectionEnabled
		if v, ok := res.Enabled[name]; ok && v != enabled {
			return nil, makeErr("cannot have symbol \"%v\" in both [enabled] and [disabled] sections", name)
		}
		res.Enabled[name] = enabled
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return res, nil
}

// Write writes the list, adding every symbol in descriptions that is not
// listed yet as enabled. Symbols without a description are left out, so
// stale entries disappear.
func (l *List) Write(w io.Writer, descriptions map[string]string) error {
	isEnabled := maps.Clone(l.Enabled)
	for name := range descriptions {
		if _, ok := isEnabled[name]; !ok {
			isEnabled[name] = true
		}
	}

	var enabledSyms []string
	var disabledSyms []string
	for name, enabled := range isEnabled {
		if _, ok := descriptions[name]; !ok {
			continue
		}
		if enabled {
			enabledSyms = append(enabledSyms, name)
		} else {
			disabledSyms = append(disabledSyms, name)
		}
	}
	slices.Sort(enabledSyms)
	slices.Sort(disabledSyms)

	var res bytes.Buffer
	fmt.Fprintln(&res, "# This file lists the public symbols of a binding, which can be enabled/disabled by placing them under the according section.")
	fmt.Fprintln(&res, "# Re-run `zigbind list` to update and sort the list.")
	fmt.Fprintln(&res, "# Renaming a symbol: e.g. `ImDrawList_AddLine => DrawList_AddLine`")

	writeSyms := func(syms []string) {
		getRenameStr := func(name string) string {
			if s, ok := l.Renames[name]; ok {
				return " => " + s
			}
			return ""
		}

		maxCol0Len := 0
		for _, name := range syms {
			maxCol0Len = max(maxCol0Len, len(name+getRenameStr(name)))
		}

		for _, name := range syms {
			col0 := name + getRenameStr(name)
			fmt.Fprintf(
				&res,
				"%v %v%v\n",
				col0,
				strings.Repeat(" ", maxCol0Len-len(col0)),
				strconv.Quote(descriptions[name]),
			)
		}
	}
	fmt.Fprintln(&res)
	fmt.Fprintln(&res, "[enabled]")
	writeSyms(enabledSyms)
	fmt.Fprintln(&res)
	fmt.Fprintln(&res, "[disabled]")
	writeSyms(disabledSyms)

	_, err := w.Write(res.Bytes())
	return err
}

// SaveToFile atomically replaces filename with the list.
func (l *List) SaveToFile(filename string, descriptions map[string]string) error {
	var buf bytes.Buffer
	if err := l.Write(&buf, descriptions); err != nil {
		return err
	}
	return atomic.WriteFile(filename, &buf)
}
