package main

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/homeputers/opentab/internal/model"
	"github.com/homeputers/opentab/internal/parser"
	"github.com/homeputers/opentab/internal/schema"
)

var parseJSONAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type parseOutput struct {
	OK       bool                `json:"ok"`
	Errors   []schema.FieldError `json:"errors"`
	Document *model.Document     `json:"document,omitempty"`
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse an OpenTab file and print its document tree and schema result as JSON",
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

			result := schema.Validate(doc)
			out := parseOutput{OK: result.OK, Errors: result.Errors}
			if result.OK {
				out.Document = doc
			}

			encoded, err := parseJSONAPI.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
}
