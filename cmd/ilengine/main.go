// Command ilengine is the host harness around internal/engine: it boots an
// Engine from layered configuration (internal/config) and exposes the
// loader's wire protocol, flash lifecycle, and test-fixture bundle loading
// as a cobra command tree.
//
// Grounded on the teacher's tools/build.go, whose flag-parsing loop and
// target dispatch play the same front-door role this file's cobra tree
// plays here, restructured onto github.com/spf13/cobra rather than a
// hand-rolled arg scanner.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clrfirmata/ilengine/internal/config"
)

var flagVerbose bool

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(cmd.Flags())
}

func main() {
	root := &cobra.Command{
		Use:   "ilengine",
		Short: "Embedded stack-based managed bytecode engine",
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable development (human-readable) logging")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newLoadCmd(), newFreezeCmd(), newDumpCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
