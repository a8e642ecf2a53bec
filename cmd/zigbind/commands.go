package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/refaktor/zigbind"
	"github.com/refaktor/zigbind/config"
	"github.com/refaktor/zigbind/cparse"
	"github.com/refaktor/zigbind/logging"
)

type RunFlags struct {
	Target []string `help:"Only run the named targets (repeatable)" short:"t"`
	Jobs   int      `help:"Number of targets run in parallel; 0 for no limit" short:"j" default:"1"`
	Strict bool     `help:"Abort a target on the first unresolvable type"`
}

type GenerateCmd struct {
	RunFlags `embed:""`

	Stats bool `help:"Print binding and timing stats"`
}

func (c *GenerateCmd) Run(cli *CLI, h *logging.Handler) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	targets, err := selectTargets(cfg, c.Target)
	if err != nil {
		return err
	}
	results, err := runTargets(targets, c.RunFlags, h, (*zigbind.GenerationRun).Generate)
	if c.Stats && len(results) > 0 {
		printStats(os.Stdout, results)
	}
	return err
}

type ListCmd struct {
	RunFlags `embed:""`
}

func (c *ListCmd) Run(cli *CLI, h *logging.Handler) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	targets, err := selectTargets(cfg, c.Target)
	if err != nil {
		return err
	}
	_, err = runTargets(targets, c.RunFlags, h, func(r *zigbind.GenerationRun) (*zigbind.Result, error) {
		res, err := r.Run()
		if err != nil {
			return nil, err
		}
		if err := r.UpdateSymbolList(res); err != nil {
			return nil, err
		}
		r.Logger.Info("updated symbol list", "path", r.Target.Path(r.Target.Symbols), "symbols", len(res.Output.Symbols))
		return res, nil
	})
	return err
}

type DumpCmd struct {
	RunFlags `embed:""`
}

func (c *DumpCmd) Run(cli *CLI, h *logging.Handler) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	targets, err := selectTargets(cfg, c.Target)
	if err != nil {
		return err
	}
	_, err = runTargets(targets, c.RunFlags, h, func(r *zigbind.GenerationRun) (*zigbind.Result, error) {
		_, err := r.DumpDecls()
		return nil, err
	})
	return err
}

// selectTargets returns the named targets in order, or all targets if
// names is empty.
func selectTargets(cfg *config.Config, names []string) ([]*config.Target, error) {
	var res []*config.Target
	if len(names) == 0 {
		for i := range cfg.Targets {
			res = append(res, &cfg.Targets[i])
		}
		return res, nil
	}
	for _, name := range names {
		t, ok := cfg.Target(name)
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}
		res = append(res, t)
	}
	return res, nil
}

// runTargets runs fn for every target, at most flags.Jobs at a time. A
// failing target does not stop the others; the results of successful
// targets are returned in target order along with all errors.
func runTargets(
	targets []*config.Target,
	flags RunFlags,
	h *logging.Handler,
	fn func(*zigbind.GenerationRun) (*zigbind.Result, error),
) ([]*zigbind.Result, error) {
	var g errgroup.Group
	if flags.Jobs > 0 {
		g.SetLimit(flags.Jobs)
	}

	var mu sync.Mutex
	var errs error
	results := make([]*zigbind.Result, len(targets))
	for i, t := range targets {
		g.Go(func() error {
			logger := slog.New(h.WithPrefix(t.Name))
			run := &zigbind.GenerationRun{
				Target: t,
				Parser: &cparse.Parser{Logger: logger},
				Strict: flags.Strict,
				Logger: logger,
			}
			res, err := fn(run)
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var res []*zigbind.Result
	for _, r := range results {
		if r != nil {
			res = append(res, r)
		}
	}
	return res, errs
}
