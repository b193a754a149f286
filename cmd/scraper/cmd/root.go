// Package cmd provides the CLI commands for the bookscrape agent.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bookscrape",
	Short: "Book catalogue scraping ETL",
	Long: `Bookscrape is a scraping agent for online book catalogues:
  - Discovers categories from the home page navigation
  - Walks each category's paginated listings for book detail pages
  - Extracts title, UPC, prices, availability, rating, and description
  - Downloads cover images into per-category directories
  - Writes one CSV file per category and loads a sqlite catalog`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (reserved)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(setupScrapeCmd())
	rootCmd.AddCommand(setupCategoriesCmd())
	rootCmd.AddCommand(setupStatsCmd())
}
