// Command otab is the OpenTab command-line front end: a thin binary
// wiring the parser, validators, formatter, and encoders/importers
// together behind a cobra subcommand tree.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "otab",
		Short:         "otab manipulates OpenTab plain-text guitar tablature files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newParseCmd())
	root.AddCommand(newFmtCmd())
	root.AddCommand(newToCmd())
	root.AddCommand(newImportCmd())

	return root
}
