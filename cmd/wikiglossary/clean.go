package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"wikiglossary/pkg/markup"
)

var (
	cleanJSON           bool
	cleanMaxRelated     int
	cleanMetaNamespaces []string
)

// cleanCmd runs the markup cleaner on one document
var cleanCmd = &cobra.Command{
	Use:   "clean [file]",
	Short: "Clean wiki markup from a file or stdin",
	Long: `Run the markup cleaner and related-term extraction on a single document and
print the result. Reads stdin when no file is given. Useful for checking how a
page will look in the glossary.`,
	Example: `  wikiglossary clean page.wiki
  curl -s 'https://example.fandom.com/wiki/Page?action=raw' | wikiglossary clean --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

type cleanResult struct {
	Redirect     bool     `json:"redirect"`
	Definition   string   `json:"definition"`
	RelatedTerms []string `json:"relatedTerms,omitempty"`
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().BoolVar(&cleanJSON, "json", false, "print the result as JSON")
	cleanCmd.Flags().IntVar(&cleanMaxRelated, "max-related", markup.DefaultMaxRelated, "maximum related terms to extract")
	cleanCmd.Flags().StringSliceVar(&cleanMetaNamespaces, "meta-namespace", nil, "extra project namespaces whose links are not related terms")
}

func runClean(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer file.Close()
		in = file
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	result := cleanResult{
		Redirect:     markup.IsRedirect(string(raw)),
		Definition:   markup.Clean(string(raw)),
		RelatedTerms: markup.ExtractRelated(string(raw), cleanMaxRelated, cleanMetaNamespaces...),
	}

	out := cmd.OutOrStdout()
	if cleanJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.Redirect {
		fmt.Fprintln(out, "(redirect)")
		return nil
	}
	fmt.Fprintln(out, result.Definition)
	if len(result.RelatedTerms) > 0 {
		fmt.Fprintln(out)
		for _, term := range result.RelatedTerms {
			fmt.Fprintf(out, "  - %s\n", term)
		}
	}
	return nil
}
