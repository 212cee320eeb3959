package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/internal/pricing"
	"github.com/GTDGit/keyprice_api/internal/service"
	"github.com/GTDGit/keyprice_api/pkg/allkeyshop"
	"github.com/GTDGit/keyprice_api/pkg/steampage"
)

// Dependencies are the collaborators the commands run against. Nil fields
// are built from the persistent flags.
type Dependencies struct {
	Catalog service.Catalog
	Titles  TitleFetcher
}

// TitleFetcher downloads a store page and extracts its title.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, rawURL string) (string, error)
}

type rootFlags struct {
	BaseURL string
	Timeout time.Duration
	Verbose bool
}

func newRootCommand(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = &Dependencies{}
	}
	var flags rootFlags

	root := &cobra.Command{
		Use:           "keyprice",
		Short:         "Compare game key prices across stores.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if flags.Verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()

			if deps.Catalog == nil {
				deps.Catalog = service.NewAllkeyshopCatalog(allkeyshop.NewClient(allkeyshop.Config{
					BaseURL: flags.BaseURL,
					Timeout: flags.Timeout,
				}))
			}
			if deps.Titles == nil {
				deps.Titles = steampage.NewFetcher(flags.Timeout)
			}
		},
	}

	root.PersistentFlags().StringVar(&flags.BaseURL, "base-url", allkeyshop.DefaultBaseURL, "Catalog base URL")
	root.PersistentFlags().DurationVar(&flags.Timeout, "timeout", 15*time.Second, "HTTP timeout")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Log catalog requests")

	root.AddCommand(newSearchCommand(deps))
	root.AddCommand(newTitleCommand(deps))
	return root
}

type searchFlags struct {
	Currency string
	Platform string
	Stores   []string
	Regions  []string
	Editions []string
	Min      float64
	Max      float64
	JSON     bool
}

func newSearchCommand(deps *Dependencies) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "List the cheapest offer of every store for a game.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return errors.New("title is required")
			}

			opts := &models.FilterOptions{
				Stores:   flags.Stores,
				Regions:  flags.Regions,
				Editions: flags.Editions,
				Currency: flags.Currency,
				Platform: flags.Platform,
			}
			if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
				opts.PriceRange = &models.PriceRange{Min: flags.Min, Max: flags.Max}
			}
			criteria, err := pricing.NewCriteria(opts, pricing.DefaultCurrency, pricing.DefaultPlatform)
			if err != nil {
				return err
			}

			result, err := deps.Catalog.Search(cmd.Context(), title, criteria.Currency, criteria.Platform)
			if err != nil {
				return fmt.Errorf("catalog search failed: %w", err)
			}
			if !result.Success {
				return fmt.Errorf("game not found: %s", title)
			}

			groups, stats := pricing.Build(result, criteria)
			log.Debug().
				Int("considered", stats.Considered).
				Int("missing_price", stats.MissingPrice).
				Int("rejected", stats.Rejected).
				Int("groups", stats.Groups).
				Msg("offers filtered")

			offers := pricing.Present(groups)
			if flags.JSON {
				return writeJSON(cmd.OutOrStdout(), offers)
			}
			return writeOfferTable(cmd.OutOrStdout(), offers)
		},
	}

	cmd.Flags().StringVar(&flags.Currency, "currency", "", "Currency code (default eur)")
	cmd.Flags().StringVar(&flags.Platform, "platform", "", "Platform (default pc)")
	cmd.Flags().StringSliceVar(&flags.Stores, "store", nil, "Only these stores (repeatable)")
	cmd.Flags().StringSliceVar(&flags.Regions, "region", nil, "Only these regions (repeatable)")
	cmd.Flags().StringSliceVar(&flags.Editions, "edition", nil, "Only these editions (repeatable)")
	cmd.Flags().Float64Var(&flags.Min, "min", 0, "Minimum price")
	cmd.Flags().Float64Var(&flags.Max, "max", math.MaxFloat64, "Maximum price")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newTitleCommand(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "title <path|url>",
		Short: "Extract the game title from a saved store page or a store URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, err := resolveTitle(cmd.Context(), deps.Titles, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", title, steampage.Slug(title))
			return nil
		},
	}
}

func resolveTitle(ctx context.Context, fetcher TitleFetcher, source string) (string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetcher.FetchTitle(ctx, source)
	}
	f, err := os.Open(source)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return steampage.ExtractTitle(f)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeOfferTable(w io.Writer, offers []models.GroupedOfferResponse) error {
	if len(offers) == 0 {
		_, err := fmt.Fprintln(w, "no offers match the filters")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STORE\tPRICE\tEDITION\tREGION\tURL")
	for _, o := range offers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.MerchantName,
			o.CheapestOffer.Price.PriceWithoutCoupon,
			o.CheapestOffer.Edition,
			o.CheapestOffer.Region,
			o.CheapestOffer.RedirectURL,
		)
	}
	return tw.Flush()
}
