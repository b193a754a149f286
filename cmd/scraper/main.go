// Package main provides the entry point for the bookscrape agent.
// The agent scrapes an online book catalogue into per-category CSV files,
// cover images, and an optional sqlite catalog.
package main

import (
	"os"

	"bookscrape/cmd/scraper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
