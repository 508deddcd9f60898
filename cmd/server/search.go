package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// searchOutput mirrors the HTTP search response
type searchOutput struct {
	Query     string                  `json:"query"`
	QtyFilter *string                 `json:"qtyFilter"`
	Results   []domain.RetailerResult `json:"results"`
	Products  []usecase.ViewProduct   `json:"products"`
	Facets    usecase.Facets          `json:"facets"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search every retailer once and print the results",
	Long: `search runs a single price comparison from the command line. A trailing
package size in the query ("kwark 1kg") becomes a quantity filter unless
--qty is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		household, _ := cmd.Flags().GetString("household")
		format, _ := cmd.Flags().GetString("format")
		sortFlag, _ := cmd.Flags().GetString("sort")
		brand, _ := cmd.Flags().GetString("brand")
		qty, _ := cmd.Flags().GetString("qty")

		if format != "json" && format != "yaml" {
			return fmt.Errorf("unsupported format %q: use json or yaml", format)
		}
		order, err := usecase.ParseSortOrder(sortFlag)
		if err != nil {
			return err
		}

		deps, err := buildDependencies(cfg, log)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		opts := usecase.ViewOptions{Sort: order, Brand: brand, Quantity: qty}
		return runSearch(cmd.Context(), deps.prices, cmd.OutOrStdout(), query, household, opts, format)
	},
}

// runSearch performs one comparison and writes only the rendered document to w
func runSearch(ctx context.Context, prices *usecase.PriceService, w io.Writer, query, household string, opts usecase.ViewOptions, format string) error {
	query = strings.TrimSpace(query)
	if opts.Quantity == "" {
		if extracted := usecase.ExtractQuantityFromQuery(query); extracted.HasFilter {
			query, opts.Quantity = extracted.CleanQuery, extracted.QtyFilter
		}
	}

	results, err := prices.SearchAll(ctx, query, household)
	if err != nil {
		return err
	}

	view := usecase.BuildView(results, opts)
	out := searchOutput{
		Query:     query,
		QtyFilter: domain.StringPtr(opts.Quantity),
		Results:   results,
		Products:  view.Products,
		Facets:    view.Facets,
	}
	return writeOutput(w, out, format)
}

// writeOutput renders v as indented JSON or as YAML with the same keys
func writeOutput(w io.Writer, v any, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}

	// Round-trip through JSON so YAML keys follow the json tags
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("writing yaml: %w", err)
	}
	return enc.Close()
}

func init() {
	searchCmd.Flags().String("household", "", "household whose retailer sessions to use")
	searchCmd.Flags().String("format", "json", "output format: json or yaml")
	searchCmd.Flags().String("sort", "price", "order products by price or unit_price")
	searchCmd.Flags().String("brand", "", "only show products of this brand")
	searchCmd.Flags().String("qty", "", "only show this package size, e.g. 1_kg")

	rootCmd.AddCommand(searchCmd)
}
