package allkeyshop

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is assumed when a 429 response has no usable Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// HTTPError is returned for non-2xx catalog responses.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration
	Body       string
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 429 {
		return fmt.Sprintf("allkeyshop: rate limited (status 429), retry after %s", e.RetryAfter)
	}
	return fmt.Sprintf("allkeyshop: unexpected status %d", e.StatusCode)
}

// IsRateLimited reports whether the catalog answered 429.
func (e *HTTPError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// ParseRetryAfter reads a Retry-After header holding a number of seconds.
// Missing, malformed or non-positive values yield DefaultRetryAfter.
func ParseRetryAfter(header string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || n <= 0 {
		return DefaultRetryAfter
	}
	return time.Duration(n) * time.Second
}
