package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bookscrape/internal/batch"
	"bookscrape/internal/catalog"
	scrapeerrors "bookscrape/internal/errors"
	"bookscrape/internal/export"
	"bookscrape/internal/extract"
	"bookscrape/internal/fetch"
	"bookscrape/internal/images"
	"bookscrape/internal/logging"
	"bookscrape/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DefaultBaseURL is the catalogue scraped when no URL argument is given.
const DefaultBaseURL = "https://books.toscrape.com/"

// ScrapeOptions holds options for the scrape command.
type ScrapeOptions struct {
	BaseURL      string
	OutDir       string
	ImagesDir    string
	SkipImages   bool
	Workers      int
	Delay        time.Duration
	Timeout      time.Duration
	MaxRetries   int
	DBPath       string
	CategorySlug string
	DryRun       bool
}

// DefaultScrapeOptions returns the default scrape options.
func DefaultScrapeOptions() *ScrapeOptions {
	return &ScrapeOptions{
		BaseURL:    DefaultBaseURL,
		OutDir:     ".",
		ImagesDir:  "images",
		SkipImages: false,
		Workers:    4,
		Delay:      0,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		DBPath:     "books.db",
		DryRun:     false,
	}
}

// ScrapeRunner handles the full ETL workflow.
type ScrapeRunner struct {
	options    *ScrapeOptions
	logger     *zap.Logger
	client     *fetch.Client
	downloader *images.Downloader
	store      *catalog.Store
	processor  *batch.Processor
}

// NewScrapeRunner creates a new scrape runner with the given options.
func NewScrapeRunner(opts *ScrapeOptions) (*ScrapeRunner, error) {
	if opts == nil {
		opts = DefaultScrapeOptions()
	}

	// Set up logging
	logCfg := logging.DefaultConfig()
	logCfg.ConsoleFormat = "plain"
	if verbose {
		logCfg.Level = "debug"
	}
	if err := logging.Setup(logCfg); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	logger := logging.L().With(
		zap.String("command", "scrape"),
		logging.URL(opts.BaseURL),
	)

	fetchCfg := fetch.DefaultConfig()
	fetchCfg.Timeout = opts.Timeout
	fetchCfg.MaxRetries = opts.MaxRetries
	fetchCfg.Delay = opts.Delay
	fetchCfg.Logger = logger

	client, err := fetch.NewClient(fetchCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch client: %w", err)
	}

	runner := &ScrapeRunner{
		options: opts,
		logger:  logger,
		client:  client,
	}

	if !opts.SkipImages && !opts.DryRun {
		runner.downloader = images.NewDownloader(client, opts.ImagesDir, logger)
	}

	return runner, nil
}

// Run executes the ETL workflow.
func (r *ScrapeRunner) Run(ctx context.Context) error {
	r.logger.Info("scrape_starting",
		zap.String("out_dir", r.options.OutDir),
		zap.Int("workers", r.options.Workers),
		zap.Bool("dry_run", r.options.DryRun),
	)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			r.logger.Info("received_signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	// Open the catalog store and batch processor unless disabled
	if r.options.DBPath != "" && !r.options.DryRun {
		store, err := catalog.Open(r.options.DBPath, r.logger)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		r.store = store
		defer func() { _ = r.store.Close() }()

		batchCfg := batch.DefaultConfig()
		batchCfg.Logger = r.logger
		processor, err := batch.NewProcessor(batchCfg, r.store)
		if err != nil {
			return fmt.Errorf("failed to create batch processor: %w", err)
		}
		r.processor = processor
		defer func() {
			if err := r.processor.Close(); err != nil {
				r.logger.Error("batch_processor_close_error", zap.Error(err))
			}
		}()
	}

	// Discover categories
	categories, err := r.discoverCategories(ctx)
	if err != nil {
		return err
	}

	startTime := time.Now()
	totalBooks := 0
	totalFailed := 0
	imagesFailed := 0

	for _, category := range categories {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		books, failed, err := r.scrapeCategory(ctx, category)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("category_failed",
				logging.Category(category.Slug),
				zap.Error(err),
			)
			continue
		}
		totalBooks += len(books)
		totalFailed += failed

		if len(books) == 0 {
			r.logger.Warn("category_empty", logging.Category(category.Slug))
			continue
		}

		if r.downloader != nil {
			imagesFailed += r.downloader.DownloadAll(ctx, books, r.options.Workers)
		}

		if !r.options.DryRun {
			path, err := export.WriteCategoryCSV(r.options.OutDir, category.Slug, books)
			if err != nil {
				r.logger.Error("csv_write_failed",
					logging.Category(category.Slug),
					zap.Error(err),
				)
			} else {
				r.logger.Info("csv_written",
					logging.Category(category.Slug),
					logging.Path(path),
					logging.Count(len(books)),
				)
			}
		}

		if r.processor != nil {
			if err := r.processor.AddBatch(books); err != nil {
				r.logger.Warn("failed_to_add_books", zap.Error(err))
			}
		}
	}

	// Final flush into the catalog
	if r.processor != nil {
		if err := r.processor.Flush(context.Background()); err != nil {
			r.logger.Error("final_flush_failed", zap.Error(err))
		}
	}

	// Log completion
	summary := []zap.Field{
		zap.Int("categories", len(categories)),
		zap.Int("books_scraped", totalBooks),
		zap.Int("books_failed", totalFailed),
		zap.Int("images_failed", imagesFailed),
		logging.Duration(time.Since(startTime)),
	}
	if r.processor != nil {
		metrics := r.processor.GetMetrics()
		summary = append(summary,
			zap.Int64("catalog_loaded", metrics.TotalProcessed),
			zap.Int64("catalog_batches", metrics.TotalBatches),
		)
	}
	r.logger.Info("scrape_complete", summary...)

	return nil
}

// discoverCategories fetches the home page and extracts category URLs,
// applying the --category filter when set.
func (r *ScrapeRunner) discoverCategories(ctx context.Context) ([]models.Category, error) {
	html, err := r.client.Get(ctx, r.options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch home page: %w", err)
	}

	categories, err := extract.Categories(html, r.options.BaseURL)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, scrapeerrors.NewExtractNoCategoriesError(r.options.BaseURL)
	}

	if r.options.CategorySlug != "" {
		for _, c := range categories {
			if c.Slug == r.options.CategorySlug {
				return []models.Category{c}, nil
			}
		}
		return nil, fmt.Errorf("category %q not found", r.options.CategorySlug)
	}

	r.logger.Info("categories_discovered", logging.Count(len(categories)))
	return categories, nil
}

// collectBookURLs walks a category's paginated listings and returns all
// book detail URLs in listing order.
func (r *ScrapeRunner) collectBookURLs(ctx context.Context, category models.Category) ([]string, error) {
	var urls []string
	pageURL := category.URL
	page := 0

	for pageURL != "" {
		page++
		html, err := r.client.Get(ctx, pageURL)
		if err != nil {
			return urls, err
		}

		pageURLs, next, err := extract.BookURLs(html, pageURL)
		if err != nil {
			return urls, err
		}
		urls = append(urls, pageURLs...)

		r.logger.Debug("listing_page_walked",
			logging.Category(category.Slug),
			logging.Page(page),
			logging.Count(len(pageURLs)),
		)

		pageURL = next
	}

	return urls, nil
}

// scrapeCategory collects and extracts every book in a category.
// Detail pages are fetched concurrently; listing order is preserved in the
// result. Returns the books and the number of failed extractions.
func (r *ScrapeRunner) scrapeCategory(ctx context.Context, category models.Category) ([]*models.Book, int, error) {
	r.logger.Info("category_started",
		logging.Category(category.Slug),
		zap.String("name", category.Name),
	)

	urls, err := r.collectBookURLs(ctx, category)
	if err != nil {
		return nil, 0, err
	}

	workers := r.options.Workers
	if workers <= 0 {
		workers = 1
	}

	type job struct {
		idx int
		url string
	}

	results := make([]*models.Book, len(urls))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				book, err := r.scrapeBook(ctx, j.url)
				if err != nil {
					if ctx.Err() == nil {
						r.logger.Warn("book_failed",
							logging.URL(j.url),
							zap.Error(err),
						)
					}
					continue
				}
				results[j.idx] = book
			}
		}()
	}

	for i, u := range urls {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, 0, ctx.Err()
		case jobs <- job{idx: i, url: u}:
		}
	}
	close(jobs)
	wg.Wait()

	// Compact while preserving listing order
	books := make([]*models.Book, 0, len(results))
	for _, b := range results {
		if b != nil {
			books = append(books, b)
		}
	}
	failed := len(urls) - len(books)

	r.logger.Info("category_finished",
		logging.Category(category.Slug),
		logging.Count(len(books)),
		zap.Int("failed", failed),
	)

	return books, failed, nil
}

// scrapeBook fetches and extracts one book detail page.
func (r *ScrapeRunner) scrapeBook(ctx context.Context, bookURL string) (*models.Book, error) {
	html, err := r.client.Get(ctx, bookURL)
	if err != nil {
		return nil, err
	}
	return extract.BookPage(html, bookURL)
}

// Close releases resources.
func (r *ScrapeRunner) Close() error {
	if r.processor != nil {
		if err := r.processor.Close(); err != nil {
			return err
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			return err
		}
	}
	return logging.Close()
}

// RunScrapeCommand executes the scrape command with the given options.
func RunScrapeCommand(opts *ScrapeOptions) error {
	runner, err := NewScrapeRunner(opts)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	return runner.Run(context.Background())
}

// setupScrapeCmd configures the scrape command.
func setupScrapeCmd() *cobra.Command {
	opts := DefaultScrapeOptions()

	cmd := &cobra.Command{
		Use:   "scrape [url]",
		Short: "Scrape the book catalogue into CSV files, images, and the catalog",
		Long: `Scrape the full book catalogue starting at the given home page URL.
One CSV file per category is written to the output directory; cover images
go to the images directory; books are loaded into the sqlite catalog.

Examples:
  bookscrape scrape
  bookscrape scrape https://books.toscrape.com/
  bookscrape scrape --category travel_2 --out-dir ./out
  bookscrape scrape --skip-images --db ""
  bookscrape scrape --dry-run --verbose`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.BaseURL = args[0]
			}
			return RunScrapeCommand(opts)
		},
	}

	cmd.Flags().StringVar(&opts.OutDir, "out-dir", ".", "directory for per-category CSV files")
	cmd.Flags().StringVar(&opts.ImagesDir, "images-dir", "images", "directory for cover images")
	cmd.Flags().BoolVar(&opts.SkipImages, "skip-images", false, "do not download cover images")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "concurrent detail page fetches per category")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "politeness delay between requests")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout")
	cmd.Flags().IntVar(&opts.MaxRetries, "max-retries", 3, "retry attempts for transient fetch errors")
	cmd.Flags().StringVar(&opts.DBPath, "db", "books.db", "sqlite catalog path (empty disables the catalog)")
	cmd.Flags().StringVar(&opts.CategorySlug, "category", "", "restrict the scrape to one category slug")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "walk and extract without writing anything")

	return cmd
}
