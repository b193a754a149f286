// Package extract turns fetched HTML pages into canonical records.
//
// Selectors target the books.toscrape.com catalogue layout: the side
// navigation for categories, paginated product listings, and the product
// detail page with its information table.
package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"time"

	scrapeerrors "bookscrape/internal/errors"
	"bookscrape/internal/models"

	"github.com/PuerkitoBio/goquery"
)

var spaceRe = regexp.MustCompile(`\s+`)

// norm collapses whitespace and trims the string.
func norm(s string) string {
	s = strings.TrimSpace(s)
	return spaceRe.ReplaceAllString(s, " ")
}

// parseDoc builds a goquery document from raw HTML.
func parseDoc(html []byte, pageURL string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, scrapeerrors.NewExtractParseError(pageURL, err)
	}
	return doc, nil
}

// resolve resolves href against base, returning "" for unparseable links.
func resolve(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// Categories extracts the category listing URLs from the home page's side
// navigation. The top-level "Books" entry is skipped. An absent navigation
// yields an empty slice, not an error.
func Categories(html []byte, pageURL string) ([]models.Category, error) {
	doc, err := parseDoc(html, pageURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, scrapeerrors.NewExtractParseError(pageURL, err)
	}

	var categories []models.Category
	// Category links are the nested list items under the "Books" entry.
	doc.Find("ul.nav-list li li a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		abs := resolve(base, href)
		if abs == "" {
			return
		}
		cat, err := models.CategoryFromURL(abs)
		if err != nil {
			return
		}
		if name := norm(s.Text()); name != "" {
			cat.Name = name
		}
		categories = append(categories, cat)
	})

	return categories, nil
}

// BookURLs extracts the book detail URLs from one listing page, plus the
// absolute URL of the next listing page ("" when on the last page).
func BookURLs(html []byte, pageURL string) (urls []string, next string, err error) {
	doc, err := parseDoc(html, pageURL)
	if err != nil {
		return nil, "", err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", scrapeerrors.NewExtractParseError(pageURL, err)
	}

	doc.Find("article.product_pod h3 a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		if abs := resolve(base, href); abs != "" {
			urls = append(urls, abs)
		}
	})

	if href, ok := doc.Find("li.next a").First().Attr("href"); ok && href != "" {
		next = resolve(base, href)
	}

	return urls, next, nil
}

// productField reads the td value for the given th label from the product
// information table.
func productField(doc *goquery.Document, label string) string {
	var out string
	doc.Find("table th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		if norm(th.Text()) != label {
			return true
		}
		out = norm(th.Parent().Find("td").First().Text())
		return false
	})
	return out
}

// trimCurrency strips a leading currency sign from a price string.
func trimCurrency(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return r != '.' && (r < '0' || r > '9')
	})
}

// ratingWord returns the star-rating class word from p.star-rating.
func ratingWord(doc *goquery.Document) string {
	cls := doc.Find("p.star-rating").First().AttrOr("class", "")
	for _, w := range strings.Fields(cls) {
		if w != "star-rating" {
			return w
		}
	}
	return ""
}

// BookPage extracts a full Book record from a product detail page.
// A page with neither a heading nor a product table is rejected.
func BookPage(html []byte, pageURL string) (*models.Book, error) {
	doc, err := parseDoc(html, pageURL)
	if err != nil {
		return nil, err
	}

	pu, err := url.Parse(pageURL)
	if err != nil {
		return nil, scrapeerrors.NewExtractParseError(pageURL, err)
	}

	title := norm(doc.Find("h1").First().Text())
	upc := productField(doc, "UPC")
	if title == "" && upc == "" {
		return nil, scrapeerrors.NewExtractNotBookPageError(pageURL)
	}

	book := &models.Book{
		Title:        title,
		UPC:          upc,
		PriceInclTax: trimCurrency(productField(doc, "Price (incl. tax)")),
		PriceExclTax: trimCurrency(productField(doc, "Price (excl. tax)")),
		Availability: productField(doc, "Availability"),
		Rating:       ratingWord(doc),
		SourceURL:    pageURL,
		ScrapedAt:    time.Now().UTC(),
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		book.Description = norm(desc)
	}

	// The category is the third breadcrumb entry (Home > Books > Category > Title).
	crumbs := doc.Find("ul.breadcrumb li")
	if crumbs.Length() > 2 {
		book.Category = norm(crumbs.Eq(2).Text())
	}

	// The cover src is relative to the site root, not the page.
	if src, ok := doc.Find("div.item.active img").First().Attr("src"); ok && src != "" {
		root := &url.URL{Scheme: pu.Scheme, Host: pu.Host, Path: "/"}
		book.ImageURL = resolve(root, src)
	}

	return book, nil
}
