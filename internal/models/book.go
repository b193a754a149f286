// Package models defines the core data structures used across the scraper.
package models

import (
	"encoding/json"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CSVColumns is the fixed column order for exported category files.
var CSVColumns = []string{
	"title",
	"upc",
	"price_incl_tax",
	"price_excl_tax",
	"availability",
	"description",
	"category",
	"rating",
	"image_url",
	"image_path",
}

// ratingWords maps the star-rating class word to its numeric value.
var ratingWords = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

var availableRe = regexp.MustCompile(`(\d+)`)

// Book is the canonical record extracted from a product detail page.
type Book struct {
	// Title is the book title from the page heading.
	Title string `json:"title"`

	// UPC is the universal product code, unique per book.
	UPC string `json:"upc"`

	// PriceInclTax is the price including tax, without the currency sign.
	PriceInclTax string `json:"price_incl_tax"`

	// PriceExclTax is the price excluding tax, without the currency sign.
	PriceExclTax string `json:"price_excl_tax"`

	// Availability is the raw availability text, e.g. "In stock (22 available)".
	Availability string `json:"availability"`

	// Description is the product description meta content.
	Description string `json:"description,omitempty"`

	// Category is the human-readable category from the breadcrumb.
	Category string `json:"category"`

	// Rating is the star rating word (One through Five).
	Rating string `json:"rating,omitempty"`

	// ImageURL is the absolute URL of the cover image.
	ImageURL string `json:"image_url,omitempty"`

	// ImagePath is the relative path of the downloaded cover, if any.
	ImagePath string `json:"image_path,omitempty"`

	// SourceURL is the detail page this record was extracted from.
	SourceURL string `json:"source_url,omitempty"`

	// ScrapedAt is when the record was extracted.
	ScrapedAt time.Time `json:"scraped_at,omitempty"`
}

// RatingValue returns the numeric star rating, or 0 for an unknown word.
func (b *Book) RatingValue() int {
	return ratingWords[b.Rating]
}

// AvailableCount parses the stock count out of the availability text.
// Returns 0 when no number is present.
func (b *Book) AvailableCount() int {
	m := availableRe.FindString(b.Availability)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// CSVRow returns the book's field values in CSVColumns order.
func (b *Book) CSVRow() []string {
	return []string{
		b.Title,
		b.UPC,
		b.PriceInclTax,
		b.PriceExclTax,
		b.Availability,
		b.Description,
		b.Category,
		b.Rating,
		b.ImageURL,
		b.ImagePath,
	}
}

// ToJSON serializes the Book to JSON bytes.
func (b *Book) ToJSON() ([]byte, error) {
	return json.Marshal(b)
}

// FromJSON deserializes a Book from JSON bytes.
func FromJSON(data []byte) (*Book, error) {
	var book Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// Category identifies one catalogue category.
type Category struct {
	// Name is the human-readable category title.
	Name string `json:"name"`

	// Slug is the URL path segment identifying the category, e.g. "travel_2".
	Slug string `json:"slug"`

	// URL is the absolute URL of the category's first listing page.
	URL string `json:"url"`
}

var slugIndexRe = regexp.MustCompile(`_\d+$`)

// CategoryFromURL derives a Category from a category listing URL.
// The slug is the last path segment before index.html; the display name is
// the slug with its trailing numeric index removed, dashes as spaces,
// title-cased.
func CategoryFromURL(rawurl string) (Category, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return Category{}, err
	}

	p := strings.TrimSuffix(u.Path, "/")
	if base := path.Base(p); strings.HasSuffix(base, ".html") {
		p = path.Dir(p)
	}
	slug := path.Base(p)
	if slug == "." || slug == "/" || slug == "" {
		return Category{}, &url.Error{Op: "parse", URL: rawurl, Err: errNoSlug}
	}

	name := slugIndexRe.ReplaceAllString(slug, "")
	name = strings.ReplaceAll(name, "-", " ")
	name = titleCase(name)

	return Category{Name: name, Slug: slug, URL: rawurl}, nil
}

var errNoSlug = modelError("category URL has no path segment")

type modelError string

func (e modelError) Error() string { return string(e) }

// titleCase upper-cases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
