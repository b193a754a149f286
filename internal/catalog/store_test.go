package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bookscrape/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "books.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testBook(upc, title, category, rating string) *models.Book {
	return &models.Book{
		Title:        title,
		UPC:          upc,
		PriceInclTax: "51.77",
		PriceExclTax: "51.77",
		Availability: "In stock (22 available)",
		Category:     category,
		Rating:       rating,
		SourceURL:    "https://books.toscrape.com/catalogue/" + upc + "/index.html",
		ScrapedAt:    time.Now().UTC(),
	}
}

func TestUpsertBooks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	written, err := store.UpsertBooks(ctx, []*models.Book{
		testBook("u1", "One", "Poetry", "Three"),
		testBook("u2", "Two", "Travel", "Five"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBooks)
}

func TestUpsertBooksUpdatesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertBooks(ctx, []*models.Book{testBook("u1", "Old Title", "Poetry", "One")})
	require.NoError(t, err)

	updated := testBook("u1", "New Title", "Poetry", "Five")
	written, err := store.UpsertBooks(ctx, []*models.Book{updated})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalBooks, "re-scraping the same UPC must not duplicate the row")
	assert.InDelta(t, 5.0, stats.AvgRating, 0.001)
}

func TestUpsertBooksSkipsBlank(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	written, err := store.UpsertBooks(ctx, []*models.Book{
		nil,
		{Title: "No UPC"},
		testBook("u1", "Real", "Fiction", "Two"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestUpsertBooksEmpty(t *testing.T) {
	store := openTestStore(t)

	written, err := store.UpsertBooks(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertBooks(ctx, []*models.Book{
		testBook("u1", "One", "Poetry", "Two"),
		testBook("u2", "Two", "Poetry", "Four"),
		testBook("u3", "Three", "Travel", "Three"),
	})
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalBooks)
	assert.InDelta(t, 3.0, stats.AvgRating, 0.001)
	require.Len(t, stats.Categories, 2)
	assert.Equal(t, CategoryCount{Category: "Poetry", Count: 2}, stats.Categories[0])
	assert.Equal(t, CategoryCount{Category: "Travel", Count: 1}, stats.Categories[1])
}

func TestStatsEmpty(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBooks)
	assert.Zero(t, stats.AvgRating)
	assert.Empty(t, stats.Categories)
}

func TestHandleBatch(t *testing.T) {
	store := openTestStore(t)

	written, err := store.HandleBatch(context.Background(), []*models.Book{
		testBook("u1", "One", "Poetry", "Three"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}
