package cmd

import (
	"context"
	"fmt"

	"bookscrape/internal/catalog"
	"bookscrape/internal/logging"

	"github.com/spf13/cobra"
)

// RunStatsCommand prints statistics from the sqlite catalog.
func RunStatsCommand(dbPath string) error {
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

	store, err := catalog.Open(dbPath, logging.L())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Books:          %d\n", stats.TotalBooks)
	fmt.Printf("Average rating: %.2f\n", stats.AvgRating)
	if len(stats.Categories) > 0 {
		fmt.Println("\nBooks per category:")
		for _, cc := range stats.Categories {
			fmt.Printf("  %-28s %d\n", cc.Category, cc.Count)
		}
	}

	return nil
}

// setupStatsCmd configures the stats command.
func setupStatsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics from the sqlite catalog",
		Long: `Print catalog statistics: total books, average star rating, and the
number of books per category.

Examples:
  bookscrape stats
  bookscrape stats --db ./books.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunStatsCommand(dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "books.db", "sqlite catalog path")

	return cmd
}
