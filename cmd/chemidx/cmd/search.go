package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chemidx/chemidx/internal/output"
)

type searchOptions struct {
	limit  int
	format string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <mode> <query>",
		Short: "Search the index",
		Long: `Search runs one of the index's five search modes against query and
prints the matching primary keys, best match first.

Modes: free, name, exact, fp, substructure`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, mode, query string, opts searchOptions) error {
	facade, _, err := openFacade(indexDir)
	if err != nil {
		return err
	}
	defer func() { _ = facade.Shutdown() }()

	var hits []string
	switch mode {
	case "free":
		hits, err = facade.SearchFree(query, opts.limit)
	case "name":
		hits, err = facade.SearchByName(query, opts.limit)
	case "exact":
		hits, err = facade.SearchExact(query, opts.limit)
	case "fp":
		hits, err = facade.SearchByFP(query, opts.limit)
	case "substructure":
		hits, err = facade.SearchSubstructure(query, opts.limit)
	default:
		return fmt.Errorf("unknown search mode %q (want one of: free, name, exact, fp, substructure)", mode)
	}
	if err != nil {
		return err
	}

	return formatSearchResults(cmd, query, hits, opts.format)
}

func formatSearchResults(cmd *cobra.Command, query string, hits []string, format string) error {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	out := output.New(cmd.OutOrStdout())
	if len(hits) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	out.Statusf("", "Found %d result(s) for %q:", len(hits), query)
	for i, pk := range hits {
		out.Statusf("", "%d. %s", i+1, pk)
	}
	return nil
}
