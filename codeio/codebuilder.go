// Package codeio builds generated source text and writes it to disk.
package codeio

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/refaktor/zigbind/textutils"
)

// CodeBuilder is a wrapper around [strings.Builder] that simplifies
// building indented code.
//
// The zero value is safely ready to use and indents with four spaces.
type CodeBuilder struct {
	// Indent is the indentation level.
	Indent int
	// IndentUnit is written Indent times before each line. Defaults to four
	// spaces.
	IndentUnit string

	b         strings.Builder
	lastBlank bool
}

func (w *CodeBuilder) unit() string {
	if w.IndentUnit == "" {
		return "    "
	}
	return w.IndentUnit
}

// Write appends a raw string.
func (w *CodeBuilder) Write(s string) {
	w.b.WriteString(s)
	w.lastBlank = strings.HasSuffix(s, "\n\n")
}

// Append writes the given string line by line with correct indentation.
func (w *CodeBuilder) Append(s string) {
	w.Write(textutils.IndentString(textutils.EnsureNewline(s), w.unit(), w.Indent))
}

// Linef writes a single line, prepended by the current indentation.
//
// Takes format and args like [fmt.Printf].
func (w *CodeBuilder) Linef(format string, args ...any) {
	for i := 0; i < w.Indent; i++ {
		w.b.WriteString(w.unit())
	}
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteString("\n")
	w.lastBlank = false
}

// Blank writes an empty line, unless the last line already was one or
// nothing was written yet.
func (w *CodeBuilder) Blank() {
	if w.lastBlank || w.b.Len() == 0 {
		return
	}
	w.b.WriteString("\n")
	w.lastBlank = true
}

// Block writes open, calls body one level deeper and writes close.
func (w *CodeBuilder) Block(open, close string, body func()) {
	w.Linef("%v", open)
	w.Indent++
	body()
	w.Indent--
	w.Linef("%v", close)
}

// String returns the current code.
func (w *CodeBuilder) String() string {
	return w.b.String()
}

// WriteFile atomically replaces path with code. A reader of path sees
// either the old or the new contents, never a partial write.
func WriteFile(path string, code []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(code))
}
