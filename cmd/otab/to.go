package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/homeputers/opentab/internal/encoding/asciitab"
	"github.com/homeputers/opentab/internal/encoding/midiexport"
	"github.com/homeputers/opentab/internal/encoding/musicxml"
	"github.com/homeputers/opentab/internal/encoding/svgrender"
	"github.com/homeputers/opentab/internal/model"
	"github.com/homeputers/opentab/internal/parser"
)

func newToCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "to",
		Short: "Encode a parsed OpenTab document into another format",
	}

	cmd.AddCommand(
		newToSubCmd("ascii", "plain ASCII tablature", func(doc *model.Document) ([]byte, error) {
			return []byte(asciitab.Render(doc)), nil
		}),
		newToSubCmd("midi", "Standard MIDI File", midiexport.Encode),
		newToSubCmd("musicxml", "partwise MusicXML 3.1", musicxml.Encode),
		newToSubCmd("svg", "SVG tablature rendering", func(doc *model.Document) ([]byte, error) {
			return []byte(svgrender.Render(doc)), nil
		}),
	)

	return cmd
}

func newToSubCmd(name, desc string, encode func(*model.Document) ([]byte, error)) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   name + " <file>",
		Short: "Encode to " + desc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			doc, err := parser.Parse(string(src))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			encoded, err := encode(doc)
			if err != nil {
				return fmt.Errorf("encoding %s to %s: %w", args[0], name, err)
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", outPath, err)
				}
				return nil
			}

			_, err = cmd.OutOrStdout().Write(encoded)
			return err
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write output to this path instead of stdout")
	return cmd
}
