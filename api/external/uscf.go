/* uscf.go
 * Contains the client used to fetch data from the USCF ratings api: the paginated members endpoints and the
 * plumbing shared with the standings fetcher
 */

package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"uscf-gamelist/api/shared"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL      = "https://ratings-api.uschess.org/api/v1/"
	DefaultTimeout      = 30 * time.Second
	DefaultRequestDelay = time.Second
	PageSize            = 100

	userAgent = "USCFGameList/1.0"
)

// ErrTimeout is wrapped into errors caused by a request that did not complete in time
var ErrTimeout = errors.New("request timed out")

// Client talks to the USCF ratings api. Requests are issued one at a time by the caller; standings requests are
// additionally paced by limiter
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the api root, mostly for tests
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the default http client (30 second timeout)
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithRequestDelay sets the minimum spacing between standings requests. Zero disables pacing
func WithRequestDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.limiter = newLimiter(delay)
	}
}

// WithLogger sets the logger used for per request debug output and skipped sections
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the ratings api
// Preconditions: Receives optional configuration
// Postconditions: Returns the client, or an error if the base url is not an absolute http(s) url
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: newLimiter(DefaultRequestDelay),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	parsed, err := url.Parse(c.baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", c.baseURL)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// GetMemberSections fetches every rated section for a member, 100 per page
// Preconditions: Receives a context, the member's USCF id and an optional progress sink
// Postconditions: Returns all sections, or an error if any page could not be fetched or decoded
func (c *Client) GetMemberSections(ctx context.Context, memberID string, progress ProgressFunc) ([]shared.Section, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, fmt.Errorf("member id is required")
	}
	path := fmt.Sprintf("members/%s/sections", url.PathEscape(memberID))
	sections, err := fetchAllPages[shared.Section](ctx, c, path, "sections", progress)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sections: %w", err)
	}
	progress.report("Fetched %d total sections", len(sections))
	return sections, nil
}

// GetMemberGames fetches the member's game history from the games endpoint, 100 per page. The endpoint does not
// carry round numbers or opponent ratings so the refresh flow builds games from standings instead
// Preconditions: Receives a context, the member's USCF id and an optional progress sink
// Postconditions: Returns all games, or an error if any page could not be fetched or decoded
func (c *Client) GetMemberGames(ctx context.Context, memberID string, progress ProgressFunc) ([]shared.Game, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, fmt.Errorf("member id is required")
	}
	path := fmt.Sprintf("members/%s/games", url.PathEscape(memberID))
	games, err := fetchAllPages[shared.Game](ctx, c, path, "games", progress)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch games: %w", err)
	}
	progress.report("Fetched %d total games", len(games))
	return games, nil
}

// fetchAllPages walks an offset/size paginated endpoint until a short page is returned
func fetchAllPages[T any](ctx context.Context, c *Client, path string, label string, progress ProgressFunc) ([]T, error) {
	var all []T
	for offset := 0; ; offset += PageSize {
		progress.report("Fetching %s... (page %d)", label, offset/PageSize+1)

		query := url.Values{}
		query.Set("offset", strconv.Itoa(offset))
		query.Set("size", strconv.Itoa(PageSize))

		body, err := c.get(ctx, path, query)
		if err != nil {
			return nil, err
		}

		items, err := decodeItems[T](body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s page at offset %d: %w", label, offset, err)
		}
		all = append(all, items...)

		if len(items) < PageSize {
			return all, nil
		}
	}
}

// decodeItems accepts either the {"items": [...]} envelope or a bare list
func decodeItems[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope page[T]
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// get issues a GET against the api and returns the body of a 2xx response
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", userAgent)

	started := time.Now()
	response, err := c.http.Do(request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		if isTimeout(err) {
			return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, c.http.Timeout, fullURL)
		}
		return nil, fmt.Errorf("request to %s failed: %w", fullURL, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w reading body: %s", ErrTimeout, fullURL)
		}
		return nil, fmt.Errorf("failed to read response from %s: %w", fullURL, err)
	}

	c.logger.Debug("uscf request",
		zap.String("url", fullURL),
		zap.Int("status", response.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(started)),
	)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &APIError{StatusCode: response.StatusCode, Body: string(body), URL: fullURL}
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
