package models

import (
	"testing"
)

func TestBook_RatingValue(t *testing.T) {
	tests := []struct {
		name   string
		rating string
		want   int
	}{
		{"one star", "One", 1},
		{"three stars", "Three", 3},
		{"five stars", "Five", 5},
		{"unknown word", "Six", 0},
		{"lowercase is not a rating", "three", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Book{Rating: tt.rating}
			if got := b.RatingValue(); got != tt.want {
				t.Errorf("RatingValue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBook_AvailableCount(t *testing.T) {
	tests := []struct {
		name         string
		availability string
		want         int
	}{
		{"in stock with count", "In stock (22 available)", 22},
		{"single copy", "In stock (1 available)", 1},
		{"no number", "Out of stock", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Book{Availability: tt.availability}
			if got := b.AvailableCount(); got != tt.want {
				t.Errorf("AvailableCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBook_CSVRow(t *testing.T) {
	b := &Book{
		Title:        "A Light in the Attic",
		UPC:          "a897fe39b1053632",
		PriceInclTax: "51.77",
		PriceExclTax: "51.77",
		Availability: "In stock (22 available)",
		Description:  "It's hard to imagine a world without A Light in the Attic.",
		Category:     "Poetry",
		Rating:       "Three",
		ImageURL:     "https://books.toscrape.com/media/cache/fe/72/cover.jpg",
		ImagePath:    "images/Poetry/A Light in the Attic.jpg",
	}

	row := b.CSVRow()
	if len(row) != len(CSVColumns) {
		t.Fatalf("CSVRow() length = %d, want %d", len(row), len(CSVColumns))
	}
	if row[0] != b.Title {
		t.Errorf("column 0 = %q, want title", row[0])
	}
	if row[1] != b.UPC {
		t.Errorf("column 1 = %q, want upc", row[1])
	}
	if row[7] != b.Rating {
		t.Errorf("column 7 = %q, want rating", row[7])
	}
	if row[9] != b.ImagePath {
		t.Errorf("column 9 = %q, want image_path", row[9])
	}
}

func TestBook_JSONRoundTrip(t *testing.T) {
	b := &Book{
		Title:        "Sharp Objects",
		UPC:          "e00eb4fd7b871a48",
		PriceInclTax: "47.82",
		PriceExclTax: "47.82",
		Availability: "In stock (20 available)",
		Category:     "Mystery",
		Rating:       "Four",
	}

	data, err := b.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if got.Title != b.Title || got.UPC != b.UPC || got.Rating != b.Rating {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, b)
	}
}

func TestFromJSON_Invalid(t *testing.T) {
	if _, err := FromJSON([]byte("not json")); err == nil {
		t.Error("FromJSON() should fail on invalid input")
	}
}

func TestCategoryFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantSlug string
		wantName string
		wantErr  bool
	}{
		{
			name:     "category index page",
			url:      "https://books.toscrape.com/catalogue/category/books/travel_2/index.html",
			wantSlug: "travel_2",
			wantName: "Travel",
		},
		{
			name:     "multi-word category",
			url:      "https://books.toscrape.com/catalogue/category/books/science-fiction_16/index.html",
			wantSlug: "science-fiction_16",
			wantName: "Science Fiction",
		},
		{
			name:     "paginated listing page",
			url:      "https://books.toscrape.com/catalogue/category/books/fiction_10/page-2.html",
			wantSlug: "fiction_10",
			wantName: "Fiction",
		},
		{
			name:     "trailing slash",
			url:      "https://books.toscrape.com/catalogue/category/books/poetry_23/",
			wantSlug: "poetry_23",
			wantName: "Poetry",
		},
		{
			name:    "no path segment",
			url:     "https://books.toscrape.com/",
			wantErr: true,
		},
		{
			name:    "unparseable url",
			url:     "://nope",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := CategoryFromURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CategoryFromURL(%q) expected error, got %+v", tt.url, cat)
				}
				return
			}
			if err != nil {
				t.Fatalf("CategoryFromURL(%q) error = %v", tt.url, err)
			}
			if cat.Slug != tt.wantSlug {
				t.Errorf("Slug = %q, want %q", cat.Slug, tt.wantSlug)
			}
			if cat.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", cat.Name, tt.wantName)
			}
			if cat.URL != tt.url {
				t.Errorf("URL = %q, want %q", cat.URL, tt.url)
			}
		})
	}
}
