// Package internal runs the reflection rewrite over whole programs.
//
// # Architecture
//
// This package serves as the bridge between the public pass and the
// per-method machinery:
//
//	┌─────────────────────────────────────────────────────────────────────────┐
//	│                           Rewrite Flow                                   │
//	│                                                                          │
//	│   reflectfold.go (public)                                                │
//	│        │                                                                 │
//	│        ▼                                                                 │
//	│   internal/runner.go   ◀── You are here                                  │
//	│   ┌─────────────────────────────────────────────────────────────────┐   │
//	│   │  Run()                                                          │   │
//	│   │    │                                                            │   │
//	│   │    ├── Build ignore set from directives                         │   │
//	│   │    ├── Visit methods on an errgroup (Workers limit)             │   │
//	│   │    │     ├── ignored: dry run, mark directive used              │   │
//	│   │    │     └── otherwise: chain.Analyzer + ir.Verify              │   │
//	│   │    ├── Print debug graphs for filtered methods                  │   │
//	│   │    └── Report unused ignore directives                          │   │
//	│   └─────────────────────────────────────────────────────────────────┘   │
//	│        │                                                                 │
//	│        ▼                                                                 │
//	│   internal/chain/analyzer.go                                             │
//	│   (Per-method rewrite)                                                   │
//	└─────────────────────────────────────────────────────────────────────────┘
//
// # Concurrency
//
// Each visit mutates only its own method body and reads the shared class
// table, so methods of one program are visited in parallel. Reports are
// written to per-method slots and assembled after all visits finish.
package internal

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"runtime"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mpyw/reflectfold/internal/chain"
	"github.com/mpyw/reflectfold/internal/debug"
	"github.com/mpyw/reflectfold/internal/directive"
	"github.com/mpyw/reflectfold/internal/ir"
)

// Config configures a program run.
type Config struct {
	Workers     int              // Concurrent method visits, GOMAXPROCS when <= 0
	Strategy    chain.Strategy   // Default member selection
	DebugFilter *regexp.Regexp   // Methods whose graph is dumped, nil to disable
	DebugOut    io.Writer        // Destination of graph dumps, nil to only collect
	Collector   *debug.Collector // Receives graph snapshots of filtered methods
	Logger      log.Interface
	DryRun      bool // Build graphs but leave every method untouched

	DropWrappedValues bool // See chain.Matcher
}

// =============================================================================
// Reports
// =============================================================================

// Report summarizes a program run.
type Report struct {
	File          string         `yaml:"file,omitempty"`
	Generated     bool           `yaml:"generated,omitempty"`
	Methods       []MethodReport `yaml:"methods"`
	Totals        Totals         `yaml:"totals"`
	UnusedIgnores []string       `yaml:"unused_ignores,omitempty"`
}

// MethodReport summarizes one method visit.
type MethodReport struct {
	Method        string       `yaml:"method"`
	Ignored       bool         `yaml:"ignored,omitempty"`
	Strategy      string       `yaml:"strategy,omitempty"`
	Roots         int          `yaml:"roots"`
	Unresolved    int          `yaml:"unresolved,omitempty"`
	Discarded     int          `yaml:"discarded,omitempty"`
	Constructions int          `yaml:"constructions"`
	Invocations   int          `yaml:"invocations"`
	Removed       int          `yaml:"removed"`
	Skipped       []SkipReport `yaml:"skipped,omitempty"`
	Dangling      []string     `yaml:"dangling,omitempty"`
}

// SkipReport is a chain part left unrewritten.
type SkipReport struct {
	Node   string `yaml:"node"`
	Insn   string `yaml:"insn"`
	Reason string `yaml:"reason"`
}

// Totals aggregates the method reports of a run.
type Totals struct {
	Methods       int `yaml:"methods"`
	Rewritten     int `yaml:"rewritten"`
	Ignored       int `yaml:"ignored"`
	Roots         int `yaml:"roots"`
	Constructions int `yaml:"constructions"`
	Invocations   int `yaml:"invocations"`
	Removed       int `yaml:"removed"`
	Skipped       int `yaml:"skipped"`
	Dangling      int `yaml:"dangling"`
}

// Add merges the totals of another run.
func (t *Totals) Add(o Totals) {
	t.Methods += o.Methods
	t.Rewritten += o.Rewritten
	t.Ignored += o.Ignored
	t.Roots += o.Roots
	t.Constructions += o.Constructions
	t.Invocations += o.Invocations
	t.Removed += o.Removed
	t.Skipped += o.Skipped
	t.Dangling += o.Dangling
}

func (t *Totals) addMethod(r MethodReport) {
	t.Methods++
	if r.Ignored {
		t.Ignored++
	}
	if r.Constructions > 0 || r.Invocations > 0 || r.Removed > 0 {
		t.Rewritten++
	}
	t.Roots += r.Roots
	t.Constructions += r.Constructions
	t.Invocations += r.Invocations
	t.Removed += r.Removed
	t.Skipped += len(r.Skipped)
	t.Dangling += len(r.Dangling)
}

// =============================================================================
// Entry Point
// =============================================================================

// Run visits every method with a body in prog.
//
// Processing flow for each method:
//  1. Skip if the file or method carries a reflectfold:ignore directive
//     (a dry run decides whether the directive was needed)
//  2. Pick the strategy (method-level reflectfold:strategy overrides)
//  3. Run chain.Analyzer, snapshotting the graph if the debug filter matches
//  4. Verify the rewritten body and warn about operands left undefined
//
// Returns an error only if ctx is canceled before all methods were visited.
func Run(ctx context.Context, prog *ir.Program, cfg Config) (*Report, error) {
	r := newRunner(prog, cfg)
	methods := prog.Methods()
	reports := make([]MethodReport, len(methods))

	if r.ignores.FileIgnored() {
		r.log.Debug("file ignored by directive")
		for i, m := range methods {
			reports[i] = MethodReport{Method: m.FullName(), Ignored: true}
		}
		return r.report(reports), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, m := range methods {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = r.visit(m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "visit methods")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "visit methods")
	}

	r.printDebug()
	return r.report(reports), nil
}

// VisitMethod runs a single method visit without directives of the program.
func VisitMethod(prog *ir.Program, m *ir.Method, cfg Config) MethodReport {
	r := newRunner(prog, cfg)
	rep := r.visit(m)
	r.printDebug()
	return rep
}

// =============================================================================
// Runner
// =============================================================================

// runner holds the state shared by the method visits of one run.
type runner struct {
	prog      *ir.Program
	cfg       Config
	log       log.Interface
	workers   int
	ignores   *directive.IgnoreSet
	collector *debug.Collector
}

func newRunner(prog *ir.Program, cfg Config) *runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Log
	}
	if cfg.Strategy == nil {
		cfg.Strategy = chain.FirstMatch{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	collector := cfg.Collector
	if collector == nil {
		collector = debug.NewCollector()
	}
	return &runner{
		prog:      prog,
		cfg:       cfg,
		log:       logger,
		workers:   workers,
		ignores:   directive.BuildIgnoreSet(prog),
		collector: collector,
	}
}

// visit processes one method. It is called concurrently.
func (r *runner) visit(m *ir.Method) MethodReport {
	logger := r.log.WithField("method", m.FullName())
	strategy, strategyName := r.strategyFor(m, logger)
	debugMode := r.cfg.DebugFilter != nil && r.cfg.DebugFilter.MatchString(m.FullName())

	if r.ignores.ShouldIgnore(m) {
		res := chain.NewAnalyzer(m, chain.Config{
			Resolver: r.prog,
			Strategy: strategy,
			Logger:   logger,
			DryRun:   true,

			DropWrappedValues: r.cfg.DropWrappedValues,
		}).Analyze()
		if res.Optimized {
			r.ignores.MarkUsed(m)
		}
		logger.Debug("ignored by directive")
		return MethodReport{Method: m.FullName(), Ignored: true, Roots: res.Roots}
	}

	res := chain.NewAnalyzer(m, chain.Config{
		Resolver: r.prog,
		Strategy: strategy,
		Logger:   logger,
		Snapshot: debugMode,
		DryRun:   r.cfg.DryRun,

		DropWrappedValues: r.cfg.DropWrappedValues,
	}).Analyze()
	r.collector.Record(res.Snapshot)

	rep := MethodReport{
		Method:        res.Method,
		Strategy:      strategyName,
		Roots:         res.Roots,
		Unresolved:    res.Unresolved,
		Discarded:     res.Discarded,
		Constructions: res.Constructions,
		Invocations:   res.Invocations,
		Removed:       res.Removed,
	}
	for _, s := range res.Skips {
		rep.Skipped = append(rep.Skipped, SkipReport{Node: s.Kind.String(), Insn: s.Insn, Reason: s.Reason})
	}

	if res.Rewritten() {
		for _, d := range ir.Verify(m) {
			insn := ir.FormatInsn(d.Insn)
			logger.WithFields(log.Fields{
				"block": d.Block,
				"var":   d.Var.Name,
				"insn":  insn,
			}).Warn("operand left without definition")
			rep.Dangling = append(rep.Dangling, fmt.Sprintf("b%d: %s in %s", d.Block, d.Var.Name, insn))
		}
	}
	return rep
}

// strategyFor returns the strategy for m and its name when a directive
// overrides the default.
func (r *runner) strategyFor(m *ir.Method, logger log.Interface) (chain.Strategy, string) {
	name, ok := directive.MethodStrategy(m)
	if !ok {
		return r.cfg.Strategy, ""
	}
	s, err := chain.StrategyByName(name)
	if err != nil {
		logger.WithError(err).Warn("ignoring strategy directive")
		return r.cfg.Strategy, ""
	}
	return s, name
}

// printDebug writes the collected graph snapshots, sorted by method.
func (r *runner) printDebug() {
	if r.cfg.DebugOut == nil || r.cfg.DebugFilter == nil {
		return
	}
	for _, s := range r.collector.Snapshots() {
		fmt.Fprintf(r.cfg.DebugOut, "\n=== Debug output for %s ===\n", s.Method)
		fmt.Fprint(r.cfg.DebugOut, debug.FormatGraph(s))
	}
}

// report assembles the final report and warns about unused directives.
func (r *runner) report(methods []MethodReport) *Report {
	rep := &Report{Methods: methods}
	for _, m := range methods {
		rep.Totals.addMethod(m)
	}
	for _, m := range r.ignores.UnusedIgnores() {
		r.log.WithField("method", m.FullName()).Warn("unused reflectfold:ignore directive")
		rep.UnusedIgnores = append(rep.UnusedIgnores, m.FullName())
	}
	return rep
}
