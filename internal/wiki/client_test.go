package wiki

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	s := &ipv4Server{URL: "http://" + ln.Addr().String() + "/w/api.php", srv: srv}
	t.Cleanup(s.Close)
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

const etPage = `{"batchcomplete":true,"query":{"pages":[{"pageid":73441,"ns":0,"title":"E.T. the Extra-Terrestrial",
"pageimage":"E_t_the_extra_terrestrial_ver3.jpg",
"original":{"source":"https://upload.wikimedia.org/wikipedia/en/6/66/E_t_the_extra_terrestrial_ver3.jpg"},
"thumbnail":{"source":"https://upload.wikimedia.org/wikipedia/en/thumb/6/66/E_t_the_extra_terrestrial_ver3.jpg/220px-E_t_the_extra_terrestrial_ver3.jpg"},
"images":[{"ns":6,"title":"File:E t the extra terrestrial ver3.jpg"},{"ns":6,"title":"File:Steven Spielberg by Gage Skidmore.jpg"}]}]}}`

func TestPageImages(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.Method != http.MethodGet || q.Get("action") != "query" || q.Get("titles") != "E.T. the Extra-Terrestrial" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "pageimages|images", q.Get("prop"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, etPage)
	}))

	c := NewClientWithBaseURL(2*time.Second, 1, 0, 0, srv.URL)
	page, err := c.PageImages(context.Background(), "E.T. the Extra-Terrestrial")
	require.NoError(t, err)
	assert.Equal(t, int64(73441), page.PageID)
	assert.Equal(t, "E_t_the_extra_terrestrial_ver3.jpg", page.PageImage)
	assert.Contains(t, page.Thumbnail, "220px-")
	assert.Equal(t, "https://upload.wikimedia.org/wikipedia/en/6/66/E_t_the_extra_terrestrial_ver3.jpg", page.Original)
	assert.Equal(t, []string{"File:E t the extra terrestrial ver3.jpg", "File:Steven Spielberg by Gage Skidmore.jpg"}, page.Images)
}

func TestPageImagesFollowsContinuation(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("imcontinue") == "" {
			fmt.Fprint(w, `{"continue":{"imcontinue":"73441|B.jpg","continue":"||"},"query":{"pages":[{"pageid":1,"title":"T","images":[{"title":"File:A.jpg"}]}]}}`)
			return
		}
		assert.Equal(t, "73441|B.jpg", r.URL.Query().Get("imcontinue"))
		fmt.Fprint(w, `{"query":{"pages":[{"pageid":1,"title":"T","images":[{"title":"File:B.jpg"}]}]}}`)
	}))

	page, err := NewClientWithBaseURL(2*time.Second, 1, 0, 0, srv.URL).PageImages(context.Background(), "T")
	require.NoError(t, err)
	assert.Equal(t, []string{"File:A.jpg", "File:B.jpg"}, page.Images)
}

func TestPageImagesRetriesOn429(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, etPage)
	}))

	c := NewClientWithBaseURL(2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	page, err := c.PageImages(ctx, "E.T. the Extra-Terrestrial")
	require.NoError(t, err)
	assert.Equal(t, "E.T. the Extra-Terrestrial", page.Title)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPageImagesRateLimitExhausted(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.Header().Set("X-Request-Id", "req_wiki_1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := NewClientWithBaseURL(2*time.Second, 1, 0, 0, srv.URL).PageImages(context.Background(), "T")
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
	assert.Contains(t, err.Error(), "req_wiki_1")
}

func TestPageImagesServerErrorRetried(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := NewClientWithBaseURL(2*time.Second, 2, time.Millisecond, 5*time.Millisecond, srv.URL).PageImages(context.Background(), "T")
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPageImagesNotFound(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"pages":[{"ns":0,"title":"No Such Film","missing":true}]}}`)
	}))

	_, err := NewClientWithBaseURL(2*time.Second, 1, 0, 0, srv.URL).PageImages(context.Background(), "No Such Film")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "No Such Film", nf.Title)
}

func TestPageImagesAPIErrorEnvelope(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":"badvalue","info":"Unrecognized value for parameter \"prop\""}}`)
	}))

	_, err := NewClientWithBaseURL(2*time.Second, 1, 0, 0, srv.URL).PageImages(context.Background(), "T")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "badvalue", apiErr.Code)
}

func TestPageImagesEmptyTitle(t *testing.T) {
	_, err := NewClient().PageImages(context.Background(), "  ")
	assert.Error(t, err)
}

func TestParseRetryAfterSeconds(t *testing.T) {
	s, err := parseRetryAfterSeconds("3")
	require.NoError(t, err)
	assert.Equal(t, 3, s)

	s, err = parseRetryAfterSeconds(time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat))
	require.NoError(t, err)
	assert.Equal(t, 0, s)

	_, err = parseRetryAfterSeconds("soon")
	assert.Error(t, err)
}
