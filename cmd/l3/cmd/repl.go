package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"l3/internal/interp"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive L3 session",
	Args:  cobra.NoArgs,
	RunE:  runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(_ *cobra.Command, _ []string) error {
	ip := interp.New(cfg.Debug, cfg.SweepThreshold)
	scanner := bufio.NewScanner(os.Stdin)

	prompt := "> "
	colored := isatty.IsTerminal(os.Stdout.Fd())

	for {
		if colored {
			fmt.Fprint(os.Stdout, "\033[36m"+prompt+"\033[0m")
		} else {
			fmt.Fprint(os.Stdout, prompt)
		}
		if !scanner.Scan() {
			fmt.Fprintln(os.Stdout)
			return nil
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		program, err := compile(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		ip.Run(program)
	}
}
