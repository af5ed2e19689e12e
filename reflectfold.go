// Package reflectfold rewrites reflective call chains in decompiled
// programs into direct calls.
//
// A chain starts with Class.forName on a constant class name, obtains a
// constructor or method handle from the class, and invokes the handle.
// When the class and member resolve statically, the invocation is replaced
// by a direct construction or virtual call and the bootstrap instructions
// are removed.
//
// Programs are given in the textual IR of package internal/ir. Methods can
// opt out with a "; reflectfold:ignore" directive and pick a resolution
// strategy with "; reflectfold:strategy NAME".
package reflectfold

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/mpyw/reflectfold/internal"
	"github.com/mpyw/reflectfold/internal/chain"
	"github.com/mpyw/reflectfold/internal/debug"
	"github.com/mpyw/reflectfold/internal/ir"
)

const (
	// Name is the name of the pass.
	Name = "reflectfold"
	// Doc describes the pass.
	Doc = "rewrites Class.forName/getConstructor/getMethod chains into direct calls"
)

type (
	// Report summarizes a program run.
	Report = internal.Report
	// MethodReport summarizes one method visit.
	MethodReport = internal.MethodReport
	// Totals aggregates method reports.
	Totals = internal.Totals
)

// Options configures a Pass.
type Options struct {
	Workers     int       // Concurrent method visits, GOMAXPROCS when <= 0
	Strategy    string    // Member selection, see chain.StrategyNames
	DebugFilter string    // Regular expression on method full names
	DebugOut    io.Writer // Destination of graph dumps
	Logger      log.Interface
	DryRun      bool

	// Collector receives graph snapshots of methods matching DebugFilter.
	Collector *debug.Collector

	// DropWrappedValues removes a newInstance or invoke call wrapped in the
	// operands of another reflective call from that call's operands. The
	// rewritten outer call then loses the value, e.g. its receiver.
	DropWrappedValues bool
}

// Pass is a validated rewrite configuration, reusable across programs.
type Pass struct {
	cfg internal.Config
}

// New validates opts and returns a Pass.
func New(opts Options) (*Pass, error) {
	strategy, err := chain.StrategyByName(opts.Strategy)
	if err != nil {
		return nil, err
	}
	cfg := internal.Config{
		Workers:   opts.Workers,
		Strategy:  strategy,
		DebugOut:  opts.DebugOut,
		Collector: opts.Collector,
		Logger:    opts.Logger,
		DryRun:    opts.DryRun,

		DropWrappedValues: opts.DropWrappedValues,
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Log
	}
	if opts.DebugFilter != "" {
		re, err := regexp.Compile(opts.DebugFilter)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid debug filter %q", opts.DebugFilter)
		}
		cfg.DebugFilter = re
	}
	return &Pass{cfg: cfg}, nil
}

// Run rewrites every method of prog in place.
// Generated programs are left alone.
func (p *Pass) Run(ctx context.Context, prog *ir.Program) (*Report, error) {
	if isGenerated(prog) {
		p.cfg.Logger.Debug("skipping generated program")
		return &Report{Generated: true}, nil
	}
	return internal.Run(ctx, prog, p.cfg)
}

// VisitMethod rewrites a single method of prog in place.
func (p *Pass) VisitMethod(prog *ir.Program, m *ir.Method) MethodReport {
	return internal.VisitMethod(prog, m, p.cfg)
}

// Rewrite parses src, runs the pass and returns the printed result.
// name labels the report and parse errors.
func (p *Pass) Rewrite(ctx context.Context, name string, src []byte) ([]byte, *Report, error) {
	prog, err := ir.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, nil, errors.Wrap(err, name)
	}
	rep, err := p.Run(ctx, prog)
	if err != nil {
		return nil, nil, errors.Wrap(err, name)
	}
	rep.File = name
	if rep.Generated {
		return src, rep, nil
	}
	var buf bytes.Buffer
	if err := ir.Format(&buf, prog); err != nil {
		return nil, nil, errors.Wrap(err, name)
	}
	return buf.Bytes(), rep, nil
}

// Run is New followed by Pass.Run.
func Run(ctx context.Context, prog *ir.Program, opts Options) (*Report, error) {
	p, err := New(opts)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, prog)
}

// isGenerated reports whether prog carries the conventional
// "Code generated ... DO NOT EDIT." marker in its file-level comments.
func isGenerated(prog *ir.Program) bool {
	for _, d := range prog.Directives {
		if strings.HasPrefix(d, "Code generated ") && strings.HasSuffix(d, " DO NOT EDIT.") {
			return true
		}
	}
	return false
}
