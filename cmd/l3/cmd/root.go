// Package cmd implements the l3 command-line driver: the external
// lex/parse/run plumbing that sits outside the core interpreter,
// built on github.com/spf13/cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	// Version is set by build flags (ldflags).
	Version   = "0.1.0-dev"
	GitCommit = "unknown"

	configPath string
	cfg        = defaultConfig()
)

// Config holds the settings cmd/l3 reads from --config's YAML file.
// Debug may be overridden by the --debug flag; SweepThreshold has no flag.
type Config struct {
	SweepThreshold int  `yaml:"sweep_threshold"`
	Debug          bool `yaml:"debug"`
}

func defaultConfig() Config {
	return Config{SweepThreshold: 0, Debug: false}
}

var rootCmd = &cobra.Command{
	Use:     "l3",
	Short:   "L3 interpreter",
	Version: Version,
	Long: `l3 runs programs written in L3, a small tree-walking scripting
language with closures, currying, and mark-and-sweep garbage collection.`,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("l3 version {{.Version}} (%s)\n", GitCommit))
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&cfg.Debug, "debug", false, "enable debug tracing")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", configPath, err)
	}
	fileCfg := defaultConfig()
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", configPath, err)
	}
	if !cmd.Flags().Changed("debug") {
		cfg.Debug = fileCfg.Debug
	}
	if fileCfg.SweepThreshold > 0 {
		cfg.SweepThreshold = fileCfg.SweepThreshold
	}
	return nil
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
