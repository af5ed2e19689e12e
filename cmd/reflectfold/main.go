// Command reflectfold rewrites reflective call chains in textual IR
// programs into direct calls.
//
// Usage:
//
//	reflectfold run program.jir
//	reflectfold run --diff --strategy arity program.jir
//	reflectfold graph --output graphs/ program.jir
package main

import "github.com/mpyw/reflectfold/cmd/reflectfold/cmd"

func main() {
	cmd.Execute()
}
