package cmd

import (
	"context"
	"fmt"

	scrapeerrors "bookscrape/internal/errors"
	"bookscrape/internal/extract"
	"bookscrape/internal/fetch"
	"bookscrape/internal/logging"

	"github.com/spf13/cobra"
)

// RunCategoriesCommand fetches the home page and prints the discovered
// categories.
func RunCategoriesCommand(baseURL string) error {
	logCfg := logging.DefaultConfig()
	logCfg.EnableConsole = false
	if verbose {
		logCfg.Level = "debug"
		logCfg.EnableConsole = true
	}
	if err := logging.Setup(logCfg); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = logging.Close() }()

	client, err := fetch.NewClient(fetch.DefaultConfig())
	if err != nil {
		return err
	}

	html, err := client.Get(context.Background(), baseURL)
	if err != nil {
		return fmt.Errorf("failed to fetch home page: %w", err)
	}

	categories, err := extract.Categories(html, baseURL)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return scrapeerrors.NewExtractNoCategoriesError(baseURL)
	}

	fmt.Printf("%-28s %-28s %s\n", "NAME", "SLUG", "URL")
	for _, c := range categories {
		fmt.Printf("%-28s %-28s %s\n", c.Name, c.Slug, c.URL)
	}
	fmt.Printf("\n%d categories\n", len(categories))

	return nil
}

// setupCategoriesCmd configures the categories command.
func setupCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [url]",
		Short: "List the categories discovered on the home page",
		Long: `Fetch the catalogue home page and list every category found in the
side navigation, with its slug and listing URL.

Examples:
  bookscrape categories
  bookscrape categories https://books.toscrape.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := DefaultBaseURL
			if len(args) == 1 {
				baseURL = args[0]
			}
			return RunCategoriesCommand(baseURL)
		},
	}
}
