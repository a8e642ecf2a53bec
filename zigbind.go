package zigbind

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/refaktor/zigbind/codeio"
	"github.com/refaktor/zigbind/config"
	"github.com/refaktor/zigbind/config/rules"
	"github.com/refaktor/zigbind/decl"
	"github.com/refaktor/zigbind/diag"
	"github.com/refaktor/zigbind/emit"
	"github.com/refaktor/zigbind/shim"
)

// GenerationRun generates the bindings of one target. A run is not safe
// for concurrent use; run targets in parallel with one GenerationRun (and
// one Parser) each.
type GenerationRun struct {
	Target *config.Target
	// Parser reads headers that have no declaration dump. May be nil if
	// every header has one.
	Parser decl.Parser
	// Strict overrides the target's policy if set.
	Strict bool
	Logger *slog.Logger
}

// CompanionFile is a rendered shim source.
type CompanionFile struct {
	Path   string
	Header string
	Source []byte
	Shims  int
}

type Timing struct {
	Parse time.Duration
	Emit  time.Duration
	Write time.Duration
}

type Result struct {
	Target string
	// OutputPath is the resolved path of the binding.
	OutputPath string
	Output     *emit.Output
	Companions []CompanionFile
	Timing     Timing
}

func (r *GenerationRun) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Run parses the target's headers and emits its binding and shims
// without writing any file.
func (r *GenerationRun) Run() (*Result, error) {
	t := r.Target
	res := &Result{Target: t.Name, OutputPath: t.Path(t.Output)}

	timeStart := time.Now()
	var decls []decl.Declaration
	for _, h := range t.Headers {
		ds, err := r.parseHeader(&h)
		if err != nil {
			return nil, err
		}
		r.logger().Debug("read header", "header", h.Path, "decls", len(ds))
		decls = append(decls, ds...)
	}
	res.Timing.Parse = time.Since(timeStart)
	timeStart = time.Now()

	symbols, err := r.loadSymbols()
	if err != nil {
		return nil, err
	}
	opts, err := t.EmitOptions(symbols, r.logger())
	if err != nil {
		return nil, fmt.Errorf("target %v: %w", t.Name, err)
	}
	if r.Strict {
		opts.Policy = diag.Strict
	}
	out, err := emit.New(opts).Emit(decls)
	if err != nil {
		return nil, fmt.Errorf("target %v: %w", t.Name, err)
	}
	res.Output = out

	companions := shim.Group(out.Workarounds)
	paths, err := r.companionPaths(res.OutputPath, companions)
	if err != nil {
		return nil, err
	}
	for i, c := range companions {
		for _, h := range t.Headers {
			if h.Path == c.Header && h.Include != "" {
				c.Include = h.Include
			}
		}
		src, err := c.Render()
		if err != nil {
			return nil, fmt.Errorf("render shims for %v: %w", c.Header, err)
		}
		res.Companions = append(res.Companions, CompanionFile{
			Path:   paths[i],
			Header: c.Header,
			Source: src,
			Shims:  len(c.Workarounds),
		})
	}
	res.Timing.Emit = time.Since(timeStart)
	return res, nil
}

// companionPaths returns the file of every companion. Configured shim
// files must be distinct; default names next to the binding get a "_N"
// suffix when two headers share a stem.
func (r *GenerationRun) companionPaths(output string, cs []shim.Companion) ([]string, error) {
	t := r.Target
	paths := make([]string, len(cs))
	owner := make(map[string]string)
	for i, c := range cs {
		for _, h := range t.Headers {
			if h.Path == c.Header && h.ShimFile != "" {
				paths[i] = t.Path(h.ShimFile)
			}
		}
		if paths[i] == "" {
			continue
		}
		if other, ok := owner[paths[i]]; ok {
			return nil, fmt.Errorf("target %v: shims of %v and %v both go to %v", t.Name, other, c.Header, paths[i])
		}
		owner[paths[i]] = c.Header
	}
	for i, c := range cs {
		if paths[i] != "" {
			continue
		}
		def := filepath.Join(filepath.Dir(output), shim.DefaultFileName(c.Header))
		path := def
		for n := 1; owner[path] != ""; n++ {
			path = fmt.Sprintf("%v_%v%v", strings.TrimSuffix(def, ".cpp"), n, ".cpp")
		}
		if path != def {
			r.logger().Warn("companion file name taken, set shim-file to choose one", "header", c.Header, "path", path)
		}
		paths[i] = path
		owner[path] = c.Header
	}
	return paths, nil
}

func (r *GenerationRun) parseHeader(h *config.Header) ([]decl.Declaration, error) {
	t := r.Target
	var ds []decl.Declaration
	var err error
	if h.Decls != "" {
		ds, err = decl.LoadJSON(t.Path(h.Decls), h.Path)
	} else if r.Parser == nil {
		err = errors.New("no parser and no declaration dump")
	} else {
		includeDirs := make([]string, len(h.IncludeDirs))
		for i, dir := range h.IncludeDirs {
			includeDirs[i] = t.Path(dir)
		}
		ds, err = r.Parser.Parse(t.Path(h.Path), includeDirs)
	}
	if err != nil {
		if !errors.Is(err, diag.ErrParseFailure) {
			err = &diag.ParseFailureError{Header: h.Path, Err: err}
		}
		return nil, fmt.Errorf("target %v: %w", t.Name, err)
	}
	// Declarations carry the header as configured, so that per-header
	// options apply to them.
	for _, d := range ds {
		setHeader(d, h.Path)
	}
	return ds, nil
}

// DumpDecls parses every header of the target with the Parser and writes
// its declarations as JSON, to the header's decls file if one is
// configured and to "<stem>.decls.json" next to the binding otherwise.
// Later runs can then read the dumps without libclang.
func (r *GenerationRun) DumpDecls() ([]string, error) {
	t := r.Target
	if r.Parser == nil {
		return nil, fmt.Errorf("target %v: no parser", t.Name)
	}
	var paths []string
	for _, h := range t.Headers {
		parsed := h
		parsed.Decls = ""
		ds, err := r.parseHeader(&parsed)
		if err != nil {
			return nil, err
		}
		path := t.Path(h.Decls)
		if h.Decls == "" {
			base := filepath.Base(h.Path)
			path = filepath.Join(filepath.Dir(t.Path(t.Output)), strings.TrimSuffix(base, filepath.Ext(base))+".decls.json")
		}
		var buf bytes.Buffer
		if err := decl.WriteJSON(&buf, ds); err != nil {
			return nil, fmt.Errorf("target %v: dump %v: %w", t.Name, h.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := codeio.WriteFile(path, buf.Bytes()); err != nil {
			return nil, fmt.Errorf("write %v: %w", path, err)
		}
		r.logger().Info("wrote declarations", "header", h.Path, "path", path, "decls", len(ds))
		paths = append(paths, path)
	}
	return paths, nil
}

func setHeader(d decl.Declaration, header string) {
	switch d := d.(type) {
	case *decl.Struct:
		d.Header = header
	case *decl.Function:
		d.Header = header
	case *decl.Enum:
		d.Header = header
	case *decl.TypeAlias:
		d.Header = header
	}
}

// loadSymbols reads the target's symbol list. A missing file is an empty
// list.
func (r *GenerationRun) loadSymbols() (*rules.List, error) {
	if r.Target.Symbols == "" {
		return nil, nil
	}
	path := r.Target.Path(r.Target.Symbols)
	l, err := rules.LoadListFromFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("target %v: %w", r.Target.Name, err)
	}
	return l, nil
}

// Write atomically writes the binding and its companion shim sources.
func (r *GenerationRun) Write(res *Result) error {
	timeStart := time.Now()
	type file struct {
		path string
		src  []byte
	}
	files := []file{{res.OutputPath, res.Output.Source}}
	for _, c := range res.Companions {
		files = append(files, file{c.Path, c.Source})
	}
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return err
		}
		if err := codeio.WriteFile(f.path, f.src); err != nil {
			return fmt.Errorf("write %v: %w", f.path, err)
		}
		r.logger().Info("wrote file", "path", f.path)
	}
	res.Timing.Write = time.Since(timeStart)
	return nil
}

// Generate runs the target and writes its files.
func (r *GenerationRun) Generate() (*Result, error) {
	res, err := r.Run()
	if err != nil {
		return nil, err
	}
	if err := r.Write(res); err != nil {
		return nil, err
	}
	r.logger().Info("generated bindings",
		"target", res.Target,
		"skipped", len(res.Output.Diagnostics),
		"shim_files", len(res.Companions),
	)
	return res, nil
}

// UpdateSymbolList rewrites the target's symbol list from res, keeping
// existing renames and disabled symbols.
func (r *GenerationRun) UpdateSymbolList(res *Result) error {
	if r.Target.Symbols == "" {
		return fmt.Errorf("target %v: no symbols file configured", r.Target.Name)
	}
	l, err := r.loadSymbols()
	if err != nil {
		return err
	}
	if l == nil {
		l = rules.NewList()
	}
	descs := make(map[string]string, len(res.Output.Symbols))
	for _, s := range res.Output.Symbols {
		descs[s.Name] = s.Description
	}
	return l.SaveToFile(r.Target.Path(r.Target.Symbols), descs)
}
