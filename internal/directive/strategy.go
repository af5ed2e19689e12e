package directive

import (
	"github.com/mpyw/reflectfold/internal/ir"
)

// MethodStrategy returns the strategy name given by the last strategy
// directive of m. Returns false when m has none or the directive names
// no strategy.
func MethodStrategy(m *ir.Method) (string, bool) {
	name, found := "", false
	for _, d := range m.Directives {
		if args, ok := directiveArgs(d, "strategy"); ok && args != "" {
			name, found = args, true
		}
	}
	return name, found
}
