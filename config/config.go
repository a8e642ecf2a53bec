package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/refaktor/zigbind/config/rules"
)

type Header struct {
	Path        string   `toml:"path" yaml:"path"`
	IncludeDirs []string `toml:"include-dirs" yaml:"include-dirs"`
	// Workaround may switch off by-value shims for this header.
	Workaround *bool `toml:"workaround" yaml:"workaround"`
	// ShimFile is the companion source path. Defaults to
	// "<snake_stem>_byvalue.cpp" next to the target output.
	ShimFile string `toml:"shim-file" yaml:"shim-file"`
	// Include is the companion's #include argument, e.g. "<imgui.h>".
	Include string `toml:"include" yaml:"include"`
	// Decls reads declarations from a JSON dump instead of parsing Path.
	Decls    string `toml:"decls" yaml:"decls"`
	Preamble string `toml:"preamble" yaml:"preamble"`
}

// WorkaroundEnabled reports whether by-value shims may be generated for
// the header.
func (h *Header) WorkaroundEnabled() bool {
	return h.Workaround == nil || *h.Workaround
}

type Struct struct {
	Name string `toml:"name" yaml:"name"`
	// Methods is "none", "all" or "named". Defaults to "named" if
	// MethodNames is set, "none" otherwise.
	Methods     string   `toml:"methods" yaml:"methods"`
	MethodNames []string `toml:"method-names" yaml:"method-names"`
	Preamble    string   `toml:"preamble" yaml:"preamble"`
}

// Override maps type names to a canonical name. Exactly one of Template,
// Prefix, Alias and Pattern must be set.
type Override struct {
	Template string         `toml:"template" yaml:"template"`
	Prefix   string         `toml:"prefix" yaml:"prefix"`
	Alias    string         `toml:"alias" yaml:"alias"`
	Pattern  *regexp.Regexp `toml:"pattern" yaml:"pattern"`
	Name     string         `toml:"name" yaml:"name"`
}

type Target struct {
	Name   string `toml:"name" yaml:"name"`
	Output string `toml:"output" yaml:"output"`
	// Strict aborts on the first unresolvable type instead of skipping
	// the declaration.
	Strict            bool         `toml:"strict" yaml:"strict"`
	ByValueWorkaround bool         `toml:"byvalue-workaround" yaml:"byvalue-workaround"`
	Comment           string       `toml:"comment" yaml:"comment"`
	Preamble          string       `toml:"preamble" yaml:"preamble"`
	Symbols           string       `toml:"symbols" yaml:"symbols"`
	Headers           []Header     `toml:"header" yaml:"header"`
	Structs           []Struct     `toml:"struct" yaml:"struct"`
	Overrides         []Override   `toml:"override" yaml:"override"`
	Rules             []rules.Rule `toml:"rule" yaml:"rule"`

	// Dir is the directory of the file the target was declared in.
	Dir string `toml:"-" yaml:"-"`
}

// Path resolves p against the target's directory.
func (t *Target) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || t.Dir == "" {
		return p
	}
	return filepath.Join(t.Dir, p)
}

type Config struct {
	Imports []string `toml:"imports" yaml:"imports"`
	Targets []Target `toml:"target" yaml:"target"`
}

// Target returns the target called name.
func (c *Config) Target(name string) (*Target, bool) {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i], true
		}
	}
	return nil, false
}

type Error struct {
	filePath string
	err      error  // short, single-line error
	str      string // full, multi-line error string, or err string, if none
}

// Error returns a short error message.
func (e *Error) Error() string {
	return e.filePath + ": " + e.err.Error()
}

// String returns the full multi-line error string.
func (e *Error) String() string {
	if e.str != "" {
		return "Error in file " + strconv.Quote(e.filePath) + ":\n" + e.str
	} else {
		return e.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

func decode(path string, data []byte, c *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(c)
	default:
		return toml.NewDecoder(bytes.NewReader(data)).
			DisallowUnknownFields().
			Decode(c)
	}
}

// Load reads a TOML or YAML config file (by extension) and merges the
// files it imports. Imported targets are appended after the file's own.
func Load(path string) (_ *Config, err error) {
	defer func() {
		if err != nil {
			if cErr := (&Error{}); errors.As(err, &cErr) {
				return
			}
			if tErr := (&toml.DecodeError{}); errors.As(err, &tErr) {
				err = &Error{filePath: path, err: err, str: tErr.String()}
			} else if tErr := (&toml.StrictMissingError{}); errors.As(err, &tErr) {
				err = &Error{filePath: path, err: err, str: tErr.String()}
			} else {
				err = &Error{filePath: path, err: err}
			}
		}
	}()

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := &Config{}
	if err := decode(path, file, c); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range c.Targets {
		c.Targets[i].Dir = dir
	}

	var importedCs []*Config // collect imported files first so their imports don't leak into our file's imports
	for _, imp := range c.Imports {
		if !filepath.IsAbs(imp) {
			imp = filepath.Join(dir, imp)
		}
		newC, err := Load(imp)
		if err != nil {
			return nil, err
		}
		importedCs = append(importedCs, newC)
	}
	for _, newC := range importedCs {
		if err := mergo.Merge(c, newC, mergo.WithAppendSlice); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	names := make(map[string]bool)
	for i := range c.Targets {
		t := &c.Targets[i]
		if t.Name == "" {
			return fmt.Errorf("target %v: missing name", i)
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate target %v", t.Name)
		}
		names[t.Name] = true
		if err := t.Validate(); err != nil {
			return fmt.Errorf("target %v: %w", t.Name, err)
		}
	}
	return nil
}

func (t *Target) Validate() error {
	if t.Output == "" {
		return errors.New("missing output")
	}
	if len(t.Headers) == 0 {
		return errors.New("no headers")
	}
	for i, h := range t.Headers {
		if h.Path == "" {
			return fmt.Errorf("header %v: missing path", i)
		}
	}
	for _, s := range t.Structs {
		if _, err := s.Policy(); err != nil {
			return fmt.Errorf("struct %v: %w", s.Name, err)
		}
	}
	for i, o := range t.Overrides {
		if _, err := o.Rule(); err != nil {
			return fmt.Errorf("override %v: %w", i, err)
		}
	}
	for i := range t.Rules {
		if err := t.Rules[i].Validate(); err != nil {
			return fmt.Errorf("rule %v: %w", i, err)
		}
	}
	return nil
}
