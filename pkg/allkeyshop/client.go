package allkeyshop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public Allkeyshop host.
	DefaultBaseURL = "https://www.allkeyshop.com"

	productsPath = "/api/latest/vaks.php"
	offersPath   = "/blog/wp-admin/admin-ajax.php"
)

// Config configures a Client. Zero values fall back to DefaultBaseURL and a 15s timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a minimal HTTP client for the Allkeyshop catalog.
type Client struct {
	httpClient *http.Client
	baseURL    string
	debug      bool
}

// NewClient constructs a new Allkeyshop client.
func NewClient(cfg Config) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		debug:      os.Getenv("ENV") == "development",
	}
}

// Search resolves title to a product and fetches its offers. A title with no
// matching product yields SearchResult{Success: false} and a nil error.
func (c *Client) Search(ctx context.Context, title string, opts Options) (*SearchResult, error) {
	product, err := c.FindProduct(ctx, title, opts)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return &SearchResult{Success: false}, nil
	}

	offers, err := c.GetOffers(ctx, product.ID, opts.Currency)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Success:        offers.Success,
		Product:        product,
		OffersResponse: *offers,
	}, nil
}

// FindProduct returns the best product match for title, or nil when the
// catalog has none. An exact case-insensitive name match wins over the
// first result.
func (c *Client) FindProduct(ctx context.Context, title string, opts Options) (*Product, error) {
	q := url.Values{}
	q.Set("action", "products")
	q.Set("showOffers", "0")
	q.Set("locale", "en")
	q.Set("currency", opts.Currency)
	q.Set("platform", opts.Platform)
	q.Set("search", title)

	var resp ProductsResponse
	if err := c.doRequest(ctx, productsPath, q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Products) == 0 {
		return nil, nil
	}

	want := strings.ToLower(strings.TrimSpace(title))
	for i := range resp.Products {
		if strings.ToLower(strings.TrimSpace(resp.Products[i].Name)) == want {
			return &resp.Products[i], nil
		}
	}
	return &resp.Products[0], nil
}

// GetOffers retrieves every offer of a product priced in currency.
func (c *Client) GetOffers(ctx context.Context, productID ID, currency string) (*OffersResponse, error) {
	q := url.Values{}
	q.Set("action", "get_offers")
	q.Set("product", string(productID))
	q.Set("currency", currency)
	q.Set("use_beta_offers_display", "1")

	var resp OffersResponse
	if err := c.doRequest(ctx, offersPath, q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doRequest performs a GET against the catalog and decodes the JSON response
// into result. Non-2xx responses are returned as *HTTPError.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, result any) error {
	endpoint := c.baseURL + path + "?" + query.Encode()

	// Debug logging for development
	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Msg("[ALLKEYSHOP] Outgoing request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		log.Debug().
			Str("endpoint", path).
			Int("status_code", resp.StatusCode).
			Int("bytes", len(respBody)).
			Msg("[ALLKEYSHOP] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
		if resp.StatusCode == http.StatusTooManyRequests {
			httpErr.RetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return httpErr
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
