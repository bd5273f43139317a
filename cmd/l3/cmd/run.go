package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"l3/internal/ast"
	"l3/internal/interp"
	"l3/internal/lexer"
	"l3/internal/parser"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run an L3 source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFile,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runFile(_ *cobra.Command, args []string) error {
	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	program, err := compile(string(source))
	if err != nil {
		exitWithError("%s: %v", path, err)
		return nil
	}

	ip := interp.New(cfg.Debug, cfg.SweepThreshold)
	ip.Run(program)
	return nil
}

// compile lexes and parses source into the AST the interpreter core
// consumes; a parse error here exits non-zero before Run is ever called.
func compile(source string) (*ast.Program, error) {
	tokens := lexer.NewScanner(source).ScanTokens()
	return parser.Parse(tokens)
}
