package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/homeputers/opentab/internal/importing/asciiimport"
	"github.com/homeputers/opentab/internal/importing/gpximport"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Best-effort import another tab format into OpenTab source",
	}

	cmd.AddCommand(newImportGPCmd(), newImportASCIICmd())
	return cmd
}

func newImportGPCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "gp <file.gpx>",
		Short: "Import a Guitar Pro .gpx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := gpximport.ImportFile(args[0])
			if err != nil {
				return fmt.Errorf("importing %s: %w", args[0], err)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return writeImportResult(cmd, res.Source, outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the imported OpenTab source to this path instead of stdout")
	return cmd
}

func newImportASCIICmd() *cobra.Command {
	var outPath string
	var rhythm string

	cmd := &cobra.Command{
		Use:   "ascii <file.txt>",
		Short: "Import a plain-text ASCII tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			strategy := asciiimport.RhythmStrategy(rhythm)
			switch strategy {
			case "", asciiimport.RhythmUnknown, asciiimport.RhythmFixedEighth, asciiimport.RhythmColumnGrid:
			default:
				return fmt.Errorf("unrecognized --rhythm %q: want one of unknown, fixed-eighth, column-grid", rhythm)
			}

			res := asciiimport.Import(string(src), strategy)
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return writeImportResult(cmd, res.Source, outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the imported OpenTab source to this path instead of stdout")
	cmd.Flags().StringVar(&rhythm, "rhythm", "", "rhythm assignment strategy: unknown, fixed-eighth, or column-grid")
	return cmd
}

func writeImportResult(cmd *cobra.Command, source, outPath string) error {
	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(source), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), source)
	return nil
}
