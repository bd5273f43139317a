// Command l3 is the command-line driver for the L3 interpreter: it
// lexes and parses a source file (or REPL line) into the AST the
// interpreter core consumes, then hands it to interp.Run.
package main

import (
	"fmt"
	"os"

	"l3/cmd/l3/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
