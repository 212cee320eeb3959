// Package steampage extracts game titles from Steam store pages.
package steampage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// StoreHost is the only host Fetcher downloads from.
const StoreHost = "store.steampowered.com"

// ErrTitleNotFound is returned when no title element is present on the page.
var ErrTitleNotFound = errors.New("TITLE_NOT_FOUND")

// ErrUnsupportedURL is returned for URLs outside the Steam store.
var ErrUnsupportedURL = errors.New("UNSUPPORTED_URL")

var titleSelectors = []string{".apphub_AppName", "#appHubAppName"}

// ExtractTitle parses an HTML document and returns the cleaned game title.
// The app hub heading wins over the og:title meta tag.
func ExtractTitle(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	for _, sel := range titleSelectors {
		if title := CleanTitle(doc.Find(sel).First().Text()); title != "" {
			return title, nil
		}
	}

	og := doc.Find("meta[property='og:title']").AttrOr("content", "")
	if title := CleanTitle(strings.TrimSuffix(strings.TrimSpace(og), " on Steam")); title != "" {
		return title, nil
	}
	return "", ErrTitleNotFound
}

// CleanTitle removes trademark symbols and collapses whitespace.
func CleanTitle(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '™', '®', '©':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Slug lower-cases title and joins its alphanumeric words with '-'.
func Slug(title string) string {
	words := strings.FieldsFunc(strings.ToLower(CleanTitle(title)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "-")
}

// Fetcher downloads Steam store pages.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher returns a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{httpClient: &http.Client{Timeout: timeout}}
}

// FetchTitle downloads rawURL and extracts its title. Only https URLs on
// StoreHost are accepted.
func (f *Fetcher) FetchTitle(ctx context.Context, rawURL string) (string, error) {
	u, err := ValidateStoreURL(rawURL)
	if err != nil {
		return "", err
	}
	return f.fetch(ctx, u.String())
}

func (f *Fetcher) fetch(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// Skips the age gate on mature titles.
	req.AddCookie(&http.Cookie{Name: "birthtime", Value: "0"})
	req.AddCookie(&http.Cookie{Name: "wants_mature_content", Value: "1"})

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return ExtractTitle(resp.Body)
}

// ValidateStoreURL parses rawURL and checks it points at the Steam store.
func ValidateStoreURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "https" || !strings.EqualFold(u.Hostname(), StoreHost) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}
	return u, nil
}
