package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"edition-publisher/validators"
)

var (
	slugKind string
	slugJSON bool
)

var validateSlugCmd = &cobra.Command{
	Use:   "validate-slug <slug>",
	Short: "Check a slug against the rules for a content kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := validators.ValidateSlug(slugKind, args[0])
		out := cmd.OutOrStdout()

		if slugJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		if res.Valid {
			fmt.Fprintln(out, "valid")
			return nil
		}
		for _, r := range res.Reasons {
			fmt.Fprintln(out, r)
		}
		return fmt.Errorf("slug %q is not valid for kind %q", args[0], slugKind)
	},
}

func init() {
	validateSlugCmd.Flags().StringVarP(&slugKind, "kind", "k", "", "content kind, e.g. answer, help_page, travel-advice")
	validateSlugCmd.Flags().BoolVar(&slugJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(validateSlugCmd)
}
