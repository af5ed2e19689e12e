package chain

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/mpyw/reflectfold/internal/ir"
)

// Strategy picks the member of a resolved class that a rewritten call
// should target.
//
// Arguments are the normalized operands of the invocation. For methods,
// args[0] is the receiver.
type Strategy interface {
	Constructor(c *ir.Class, args []ir.Arg) *ir.Method
	Method(c *ir.Class, name string, args []ir.Arg) *ir.Method
}

// FirstMatch picks the first declared constructor with as many parameters
// as there are arguments, and the first declared method with the name.
type FirstMatch struct{}

// Constructor implements Strategy.
func (FirstMatch) Constructor(c *ir.Class, args []ir.Arg) *ir.Method {
	return firstConstructor(c, len(args))
}

// Method implements Strategy.
func (FirstMatch) Method(c *ir.Class, name string, _ []ir.Arg) *ir.Method {
	if c == nil {
		return nil
	}
	for _, m := range c.Methods {
		if m.Ref.Name == name && !m.IsConstructor() {
			return m
		}
	}
	return nil
}

// ArityMatch picks constructors like FirstMatch and additionally requires
// methods to declare one parameter per argument after the receiver.
type ArityMatch struct{}

// Constructor implements Strategy.
func (ArityMatch) Constructor(c *ir.Class, args []ir.Arg) *ir.Method {
	return firstConstructor(c, len(args))
}

// Method implements Strategy.
func (ArityMatch) Method(c *ir.Class, name string, args []ir.Arg) *ir.Method {
	if c == nil || len(args) == 0 {
		return nil
	}
	arity := len(args) - 1
	for _, m := range c.Methods {
		if m.Ref.Name == name && !m.IsConstructor() && m.Ref.Arity() == arity {
			return m
		}
	}
	return nil
}

func firstConstructor(c *ir.Class, arity int) *ir.Method {
	if c == nil {
		return nil
	}
	for _, m := range c.Constructors() {
		if m.Ref.Arity() == arity {
			return m
		}
	}
	return nil
}

// =============================================================================
// Strategy Registry
// =============================================================================

// DefaultStrategy is the name of the strategy used when none is configured.
const DefaultStrategy = "first-match"

var strategies = map[string]Strategy{
	"first-match": FirstMatch{},
	"arity":       ArityMatch{},
}

// StrategyByName returns the named strategy.
// The empty name selects DefaultStrategy.
func StrategyByName(name string) (Strategy, error) {
	if name == "" {
		name = DefaultStrategy
	}
	s, ok := strategies[name]
	if !ok {
		return nil, errors.Errorf("unknown strategy %q (available: %s)", name, strings.Join(StrategyNames(), ", "))
	}
	return s, nil
}

// StrategyNames returns the registered strategy names, sorted.
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
