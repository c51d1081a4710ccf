package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the English Wikipedia action API.
const DefaultBaseURL = "https://en.wikipedia.org/w/api.php"

const userAgent = "trialclean-cli/1.0 (https://github.com/KaramelBytes/trialclean-cli)"

type Client struct {
	httpClient       *http.Client
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	log              zerolog.Logger
}

// Page holds the image metadata of a single wiki page.
type Page struct {
	Title     string   `json:"title"`
	PageID    int64    `json:"pageid"`
	PageImage string   `json:"page_image,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Original  string   `json:"original,omitempty"`
	Images    []string `json:"images"`
}

type queryResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Pages []struct {
			PageID    int64  `json:"pageid"`
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Invalid   bool   `json:"invalid"`
			PageImage string `json:"pageimage"`
			Thumbnail struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
			Original struct {
				Source string `json:"source"`
			} `json:"original"`
			Images []struct {
				Title string `json:"title"`
			} `json:"images"`
		} `json:"pages"`
	} `json:"query"`
	Error *APIError `json:"error"`
}

// NewClient returns a client with default timeouts and retry strategy.
func NewClient() *Client {
	return NewClientWithBaseURL(30*time.Second, 3, 500*time.Millisecond, 4*time.Second, DefaultBaseURL)
}

// NewClientWithBaseURL allows customizing HTTP timeout, retry/backoff behavior
// and the API endpoint.
func NewClientWithBaseURL(httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 30 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient:       &http.Client{Timeout: httpTimeout},
		baseURL:          baseURL,
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
		log:              zerolog.Nop(),
	}
}

// WithLogger sets the logger used for retry diagnostics.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.log = l
	return c
}

func (c *Client) endpoint(title, cont string) string {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("formatversion", "2")
	q.Set("prop", "pageimages|images")
	q.Set("piprop", "thumbnail|original|name")
	q.Set("pithumbsize", "220")
	q.Set("imlimit", "max")
	q.Set("redirects", "1")
	q.Set("titles", title)
	if cont != "" {
		q.Set("imcontinue", cont)
	}
	return c.baseURL + "?" + q.Encode()
}

// PageImages returns the lead image and every file used on the page named by
// title, following image continuation until the list is complete.
func (c *Client) PageImages(ctx context.Context, title string) (*Page, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title cannot be empty")
	}
	var page *Page
	cont := ""
	for {
		var resp queryResponse
		if err := c.get(ctx, c.endpoint(title, cont), &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			resp.Error.StatusCode = http.StatusOK
			return nil, resp.Error
		}
		if len(resp.Query.Pages) == 0 {
			return nil, &NotFoundError{Title: title}
		}
		p := resp.Query.Pages[0]
		if p.Missing || p.Invalid {
			return nil, &NotFoundError{Title: title}
		}
		if page == nil {
			page = &Page{Title: p.Title, PageID: p.PageID}
		}
		if page.PageImage == "" {
			page.PageImage = p.PageImage
		}
		if page.Thumbnail == "" {
			page.Thumbnail = p.Thumbnail.Source
		}
		if page.Original == "" {
			page.Original = p.Original.Source
		}
		for _, im := range p.Images {
			page.Images = append(page.Images, im.Title)
		}
		cont = resp.Continue["imcontinue"]
		if cont == "" {
			return page, nil
		}
	}
}

// get issues a GET with retry on transient failures and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	backoff := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if isRetryableNetErr(err) && attempt < c.retryMaxAttempts {
				lastErr = err
				c.log.Warn().Err(err).Int("attempt", attempt).Msg("wiki request failed, retrying")
				if err := sleep(ctx, c.capped(withJitter(backoff))); err != nil {
					return err
				}
				backoff *= 2
				continue
			}
			return fmt.Errorf("http request: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}

		apiErr := readAPIError(resp)
		resp.Body.Close()
		lastErr = classifyAPIError(apiErr, resp)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt == c.retryMaxAttempts {
			return lastErr
		}
		wait := c.capped(withJitter(backoff))
		var rl *RateLimitError
		if errors.As(lastErr, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		} else if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		c.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Dur("wait", wait).Msg("wiki request throttled, retrying")
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		backoff *= 2
	}
	return lastErr
}

func (c *Client) capped(d time.Duration) time.Duration {
	if c.retryMaxDelay > 0 && d > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: extractRequestID(resp)}
	var env struct {
		Error *APIError `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Info = env.Error.Info
	}
	return apiErr
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF)
}

// parseRetryAfterSeconds tries to interpret Retry-After header value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	switch {
	case sc == http.StatusTooManyRequests:
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func extractRequestID(resp *http.Response) string {
	return resp.Header.Get("X-Request-Id")
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
