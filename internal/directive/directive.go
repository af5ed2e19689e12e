// Package directive handles reflectfold comment directives in IR text.
//
// # Supported Directives
//
//	; reflectfold:ignore          - Leave the method (or the whole file) untouched
//	; reflectfold:strategy NAME   - Resolve members of this method with strategy NAME
//
// # Directive Placement
//
// Directives are comment lines:
//   - Directly before a "method" header (method-level)
//   - Before the first "class" line (file-level)
//
// # Examples
//
// Method-level ignore:
//
//	class test.Main
//	  ; reflectfold:ignore
//	  method legacy() void {
//	  ...
//
// File-level ignore:
//
//	; reflectfold:ignore
//	class test.Main
//	...
//
// Strategy override:
//
//	  ; reflectfold:strategy arity
//	  method overloaded() void {
package directive

import "strings"

const directivePrefix = "reflectfold:"

// directiveArgs returns the text after "reflectfold:name" if the comment is
// that directive. Leading ';' and spaces are ignored.
func directiveArgs(text, name string) (string, bool) {
	text = strings.TrimLeft(text, ";")
	text = strings.TrimSpace(text)
	rest, ok := strings.CutPrefix(text, directivePrefix+name)
	if !ok {
		return "", false
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// hasDirective checks if a comment is the specified directive.
func hasDirective(text, name string) bool {
	_, ok := directiveArgs(text, name)
	return ok
}

// IsIgnoreDirective checks if a comment is an ignore directive.
func IsIgnoreDirective(text string) bool { return hasDirective(text, "ignore") }

// IsStrategyDirective checks if a comment is a strategy directive.
func IsStrategyDirective(text string) bool { return hasDirective(text, "strategy") }
