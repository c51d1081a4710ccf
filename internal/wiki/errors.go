package wiki

import (
	"fmt"
	"time"
)

// APIError is a non-2xx response or a MediaWiki error envelope.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Info       string `json:"info,omitempty"`
	RequestID  string `json:"-"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("wiki api error: status=%d", e.StatusCode)
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.RequestID != "" {
		msg += " request_id=" + e.RequestID
	}
	if e.Info != "" {
		msg += " info=" + e.Info
	}
	return msg
}

// NotFoundError means the title does not resolve to a page.
type NotFoundError struct{ Title string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("page not found: %q", e.Title) }

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ServerError indicates 5xx errors from the wiki.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("wiki server error: %s", e.APIError.Error()) }
