// Package catalog persists scraped books in a sqlite database.
//
// The store is optional: a scrape run without a database path degrades to
// CSV and image output only. Books are keyed on UPC, so re-running a scrape
// updates existing rows instead of duplicating them.
package catalog

import (
	"context"
	"database/sql"

	scrapeerrors "bookscrape/internal/errors"
	"bookscrape/internal/logging"
	"bookscrape/internal/models"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		upc             TEXT PRIMARY KEY,
		title           TEXT NOT NULL,
		price_incl_tax  TEXT,
		price_excl_tax  TEXT,
		availability    TEXT,
		available_count INTEGER,
		description     TEXT,
		category        TEXT,
		rating          TEXT,
		rating_value    INTEGER,
		image_url       TEXT,
		image_path      TEXT,
		source_url      TEXT,
		scraped_at      INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_category ON books(category)`,
}

// Store is a sqlite-backed book catalog.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the catalog database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.L()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, scrapeerrors.NewStorageWriteError(path, err.Error())
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, scrapeerrors.NewStorageWriteError(path, err.Error())
	}
	for _, s := range schema {
		if _, err := db.Exec(s); err != nil {
			_ = db.Close()
			return nil, scrapeerrors.NewStorageWriteError(path, err.Error())
		}
	}

	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "catalog"), logging.Path(path)),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertBooks inserts or updates the given books in one transaction.
// Books without a UPC are skipped. Returns the number of rows written.
func (s *Store) UpsertBooks(ctx context.Context, books []*models.Book) (int, error) {
	if len(books) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, scrapeerrors.NewStorageWriteError("books", err.Error())
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO books(
		upc, title, price_incl_tax, price_excl_tax, availability,
		available_count, description, category, rating, rating_value,
		image_url, image_path, source_url, scraped_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(upc) DO UPDATE SET
		title=excluded.title,
		price_incl_tax=excluded.price_incl_tax,
		price_excl_tax=excluded.price_excl_tax,
		availability=excluded.availability,
		available_count=excluded.available_count,
		description=excluded.description,
		category=excluded.category,
		rating=excluded.rating,
		rating_value=excluded.rating_value,
		image_url=excluded.image_url,
		image_path=excluded.image_path,
		source_url=excluded.source_url,
		scraped_at=excluded.scraped_at`)
	if err != nil {
		return 0, scrapeerrors.NewStorageWriteError("books", err.Error())
	}
	defer stmt.Close()

	written := 0
	for _, book := range books {
		if book == nil || book.UPC == "" {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			book.UPC, book.Title, book.PriceInclTax, book.PriceExclTax,
			book.Availability, book.AvailableCount(), book.Description,
			book.Category, book.Rating, book.RatingValue(),
			book.ImageURL, book.ImagePath, book.SourceURL,
			book.ScrapedAt.Unix(),
		)
		if err != nil {
			return 0, scrapeerrors.NewStorageWriteError("books", err.Error())
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, scrapeerrors.NewStorageWriteError("books", err.Error())
	}

	s.logger.Debug("books_upserted", logging.Count(written))
	return written, nil
}

// HandleBatch implements the batch handler contract so the store can act
// as the sink of a batch processor.
func (s *Store) HandleBatch(ctx context.Context, batch []*models.Book) (int, error) {
	return s.UpsertBooks(ctx, batch)
}

// CategoryCount is the number of books in one category.
type CategoryCount struct {
	Category string
	Count    int
}

// Stats summarizes the catalog.
type Stats struct {
	TotalBooks int
	AvgRating  float64
	Categories []CategoryCount
}

// Stats returns catalog statistics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating_value), 0) FROM books`)
	if err := row.Scan(&stats.TotalBooks, &stats.AvgRating); err != nil {
		return nil, scrapeerrors.NewStorageReadError("books", err.Error())
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM books GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, scrapeerrors.NewStorageReadError("books", err.Error())
	}
	defer rows.Close()

	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, scrapeerrors.NewStorageReadError("books", err.Error())
		}
		stats.Categories = append(stats.Categories, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, scrapeerrors.NewStorageReadError("books", err.Error())
	}

	return stats, nil
}
