// Package images downloads book cover images into per-category directories.
package images

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	scrapeerrors "bookscrape/internal/errors"
	"bookscrape/internal/fetch"
	"bookscrape/internal/logging"
	"bookscrape/internal/models"

	"go.uber.org/zap"
)

// SanitizeFilename strips characters that are invalid in file names.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		}
		return r
	}, name)
}

// Downloader fetches cover images and writes them under a root directory.
type Downloader struct {
	client *fetch.Client
	root   string
	logger *zap.Logger
}

// NewDownloader creates a downloader writing below root.
func NewDownloader(client *fetch.Client, root string, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = logging.L()
	}
	return &Downloader{
		client: client,
		root:   root,
		logger: logger.With(zap.String("component", "image_downloader")),
	}
}

// Download fetches the book's cover and writes it to
// <root>/<sanitized category>/<sanitized title>.jpg, recording the written
// path on the book. Books without an image URL are skipped silently.
func (d *Downloader) Download(ctx context.Context, book *models.Book) error {
	if book == nil || book.ImageURL == "" {
		return nil
	}

	dir := filepath.Join(d.root, SanitizeFilename(book.Category))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return scrapeerrors.NewStorageWriteError(dir, err.Error())
	}

	body, err := d.client.Get(ctx, book.ImageURL)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, SanitizeFilename(book.Title)+".jpg")
	if err := os.WriteFile(path, body, 0644); err != nil {
		return scrapeerrors.NewStorageWriteError(path, err.Error())
	}

	book.ImagePath = path
	d.logger.Debug("image_saved",
		logging.URL(book.ImageURL),
		logging.Path(path),
		zap.Int("bytes", len(body)),
	)

	return nil
}

// DownloadAll downloads covers for all books using a bounded worker pool.
// Individual failures are logged and counted, never fatal; the number of
// failed downloads is returned.
func (d *Downloader) DownloadAll(ctx context.Context, books []*models.Book, workers int) int {
	if workers <= 0 {
		workers = 1
	}

	var failed int64
	jobs := make(chan *models.Book)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for book := range jobs {
				if err := d.Download(ctx, book); err != nil {
					atomic.AddInt64(&failed, 1)
					d.logger.Warn("image_download_failed",
						logging.URL(book.ImageURL),
						zap.String("title", book.Title),
						zap.Error(err),
					)
				}
			}
		}()
	}

	for _, book := range books {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return int(atomic.LoadInt64(&failed))
		case jobs <- book:
		}
	}
	close(jobs)
	wg.Wait()

	return int(atomic.LoadInt64(&failed))
}
