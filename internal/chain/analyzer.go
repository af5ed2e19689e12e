package chain

import (
	"github.com/apex/log"

	"github.com/mpyw/reflectfold/internal/ir"
)

// Config configures an Analyzer.
type Config struct {
	Resolver ClassResolver // Class table for FORNAME targets
	Strategy Strategy      // Member selection, FirstMatch when nil
	Logger   log.Interface // Decision log, log.Log when nil

	Snapshot bool // Capture the graph before rewriting
	DryRun   bool // Build the graph but leave the method untouched

	// DropWrappedValues removes wrapped newInstance/invoke calls from the
	// operands of the call containing them. See Matcher.
	DropWrappedValues bool
}

// Result summarizes one method visit.
type Result struct {
	Method string

	Roots      int // FORNAME roots found
	Unresolved int // Roots whose class the program does not define
	Nodes      int // Attached non-root nodes
	Discarded  int // Classified nodes without a parent
	Optimized  bool

	Constructions int // newInstance calls rewritten
	Invocations   int // invoke calls rewritten
	Removed       int // Bootstrap instructions removed
	Skips         []Skip

	Snapshot *Snapshot // Graph before rewriting, when requested
}

// Rewritten reports whether the visit changed the method.
func (r *Result) Rewritten() bool {
	return r.Constructions > 0 || r.Invocations > 0 || r.Removed > 0
}

// Skip records a part of a chain that was left unrewritten.
type Skip struct {
	Kind   Kind
	Insn   string
	Reason string
}

// Analyzer finds and rewrites the reflective chains of one method.
//
// # Phases
//
//  1. Classify: every top-level instruction of every block goes through the
//     Matcher; the nodes it yields are inserted into a fresh Graph.
//  2. Decide: Graph.ShouldOptimize.
//  3. Rewrite: the Devirtualizer processes every root.
//
// The graph is local to Analyze and dropped when it returns.
type Analyzer struct {
	method   *ir.Method
	matcher  *Matcher
	strategy Strategy
	log      log.Interface
	snapshot bool
	dryRun   bool
}

// NewAnalyzer creates an Analyzer for method.
func NewAnalyzer(method *ir.Method, cfg Config) *Analyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Log
	}
	strategy := cfg.Strategy
	if strategy == nil {
		strategy = FirstMatch{}
	}
	matcher := NewMatcher(cfg.Resolver)
	matcher.DropWrappedValues = cfg.DropWrappedValues
	return &Analyzer{
		method:   method,
		matcher:  matcher,
		strategy: strategy,
		log:      logger.WithField("method", method.FullName()),
		snapshot: cfg.Snapshot,
		dryRun:   cfg.DryRun,
	}
}

// Analyze runs all phases and reports what happened.
func (a *Analyzer) Analyze() Result {
	res := Result{Method: a.method.FullName()}

	graph := a.build(&res)

	res.Roots = len(graph.Roots())
	for _, root := range graph.Roots() {
		if !root.Resolved() {
			res.Unresolved++
		}
	}
	res.Nodes = graph.Len()
	if a.snapshot {
		res.Snapshot = graph.Snapshot(a.method.FullName())
	}

	if !graph.ShouldOptimize() {
		if res.Roots > 0 {
			a.log.Debug("no Method.invoke call; leaving chains alone")
		}
		return res
	}
	res.Optimized = true
	if a.dryRun {
		return res
	}

	NewDevirtualizer(a.method, graph, a.strategy, a.log).Run(&res)
	a.log.WithFields(log.Fields{
		"constructions": res.Constructions,
		"invocations":   res.Invocations,
		"removed":       res.Removed,
	}).Debug("rewrote chains")
	return res
}

// build classifies every instruction of the method into a new graph.
func (a *Analyzer) build(res *Result) *Graph {
	graph := NewGraph()
	for _, b := range a.method.Blocks {
		for _, insn := range b.Insns {
			var acc []*Node
			if !a.matcher.Classify(insn, &acc) {
				continue
			}
			for _, run := range splitChains(acc) {
				if graph.InsertChain(run) {
					continue
				}
				res.Discarded += len(run)
				a.log.WithFields(log.Fields{
					"node":  run[0].Kind.String(),
					"block": b.ID,
				}).Debug("no parent; discarded")
			}
		}
	}
	return graph
}

// splitChains cuts the nodes classified from one instruction into maximal
// runs where each node's wrapped producer is the node before it.
func splitChains(nodes []*Node) [][]*Node {
	var runs [][]*Node
	start := 0
	for i := 1; i <= len(nodes); i++ {
		if i < len(nodes) && nodes[i].producer == nodes[i-1] {
			continue
		}
		runs = append(runs, nodes[start:i])
		start = i
	}
	return runs
}
