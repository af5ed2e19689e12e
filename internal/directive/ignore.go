package directive

import (
	"sort"
	"sync"

	"github.com/mpyw/reflectfold/internal/ir"
)

// ignoreEntry tracks an ignore directive and whether it was used.
type ignoreEntry struct {
	used bool // Whether the ignored method would have been rewritten
}

// IgnoreSet tracks the methods of one program that carry an ignore directive.
//
// An entry counts as used once the runner finds that the ignored method
// would otherwise have been rewritten. Entries are marked from concurrent
// method visits, so access is synchronized.
type IgnoreSet struct {
	mu      sync.Mutex
	file    bool
	methods map[*ir.Method]*ignoreEntry
}

// BuildIgnoreSet scans a program for ignore directives.
//
// Example:
//
//	; reflectfold:ignore        → file-level: every method ignored
//	class test.Main
//	  ; reflectfold:ignore      → method-level: legacy() ignored
//	  method legacy() void {
//
// File-level ignores are always considered used (no warning for them).
func BuildIgnoreSet(p *ir.Program) *IgnoreSet {
	s := &IgnoreSet{methods: make(map[*ir.Method]*ignoreEntry)}
	for _, d := range p.Directives {
		if IsIgnoreDirective(d) {
			s.file = true
		}
	}
	for _, c := range p.Classes {
		for _, m := range c.Methods {
			for _, d := range m.Directives {
				if IsIgnoreDirective(d) {
					s.methods[m] = &ignoreEntry{}
					break
				}
			}
		}
	}
	return s
}

// FileIgnored reports whether the whole program is ignored.
func (s *IgnoreSet) FileIgnored() bool {
	return s != nil && s.file
}

// ShouldIgnore returns true if the method must be left untouched.
func (s *IgnoreSet) ShouldIgnore(m *ir.Method) bool {
	if s == nil {
		return false
	}
	if s.file {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.methods[m]
	return ok
}

// MarkUsed marks the ignore directive of m as used.
func (s *IgnoreSet) MarkUsed(m *ir.Method) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.methods[m]; ok {
		entry.used = true
	}
}

// UnusedIgnores returns the methods whose ignore directive was never used,
// sorted by full name. Under a file-level ignore nothing is reported.
func (s *IgnoreSet) UnusedIgnores() []*ir.Method {
	if s == nil || s.file {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var unused []*ir.Method
	for m, entry := range s.methods {
		if !entry.used {
			unused = append(unused, m)
		}
	}
	sort.Slice(unused, func(i, j int) bool {
		return unused[i].FullName() < unused[j].FullName()
	})
	return unused
}
