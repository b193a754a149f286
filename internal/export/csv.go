// Package export writes per-category CSV files of scraped books.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"

	scrapeerrors "bookscrape/internal/errors"
	"bookscrape/internal/models"
)

// WriteCategoryCSV writes <dir>/<slug>.csv with the fixed column header and
// one row per book in input order. An existing file is overwritten; zero
// books still produces a file with just the header.
func WriteCategoryCSV(dir, slug string, books []*models.Book) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", scrapeerrors.NewExportWriteError(dir, err)
	}

	path := filepath.Join(dir, slug+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", scrapeerrors.NewExportWriteError(path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.CSVColumns); err != nil {
		return "", scrapeerrors.NewExportWriteError(path, err)
	}
	for _, book := range books {
		if book == nil {
			continue
		}
		if err := w.Write(book.CSVRow()); err != nil {
			return "", scrapeerrors.NewExportWriteError(path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", scrapeerrors.NewExportWriteError(path, err)
	}
	if err := f.Close(); err != nil {
		return "", scrapeerrors.NewExportWriteError(path, err)
	}

	return path, nil
}
