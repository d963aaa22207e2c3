package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/homeputers/opentab/internal/format"
)

func newFmtCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Reformat an OpenTab file to its canonical layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			formatted, err := format.Format(string(src))
			if err != nil {
				return fmt.Errorf("formatting %s: %w", args[0], err)
			}

			if write {
				if err := os.WriteFile(args[0], []byte(formatted), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", args[0], err)
				}
				return nil
			}

			fmt.Fprint(cmd.OutOrStdout(), formatted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "overwrite the input file instead of printing to stdout")
	return cmd
}
