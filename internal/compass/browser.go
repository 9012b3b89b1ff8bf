package compass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jkairys/bellbird/internal/session"
)

const (
	// The upstream runs bot detection against obvious automation, so
	// requests present a plain browser identity.
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	acceptLanguage   = "en-AU,en;q=0.9"

	maxPageBytes     = 4 << 20
	maxResponseBytes = 8 << 20
)

// Page is the outcome of one navigation: the final URL after redirects,
// the HTTP status, and the rendered document body.
type Page struct {
	URL    string
	Status int
	Body   string
}

// Browser is the automation capability a Driver runs on: navigate,
// submit forms, call JSON services, read and seed session cookies.
// One Browser backs exactly one Driver and is released with it.
type Browser interface {
	Navigate(ctx context.Context, url string) (Page, error)
	SubmitForm(ctx context.Context, url string, form url.Values) (Page, error)
	PostJSON(ctx context.Context, url string, payload any) ([]byte, error)
	Cookies() []session.Cookie
	SetCookies(cookies []session.Cookie) error
	Close() error
}

// BrowserFactory allocates one Browser per driver. It is the only
// source of automation resources; nothing in this package holds a
// process-wide browser.
type BrowserFactory interface {
	NewBrowser(ctx context.Context, baseURL string) (Browser, error)
}

// HTTPFactory produces cookie-jar backed browsers over plain HTTP.
// It tracks how many browsers are currently live so callers can verify
// that every request released its resource.
type HTTPFactory struct {
	timeout   time.Duration
	userAgent string
	live      atomic.Int64
}

func NewHTTPFactory(timeout time.Duration) *HTTPFactory {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFactory{timeout: timeout, userAgent: defaultUserAgent}
}

func (f *HTTPFactory) NewBrowser(ctx context.Context, baseURL string) (Browser, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute http(s)", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	f.live.Add(1)
	return &httpBrowser{
		factory: f,
		base:    base,
		jar:     jar,
		client: &http.Client{
			Jar:     jar,
			Timeout: f.timeout,
		},
	}, nil
}

// Live reports the number of browsers allocated and not yet closed.
func (f *HTTPFactory) Live() int64 {
	return f.live.Load()
}

type httpBrowser struct {
	factory   *HTTPFactory
	base      *url.URL
	jar       http.CookieJar
	client    *http.Client
	closeOnce sync.Once
	closed    atomic.Bool
}

func (b *httpBrowser) Navigate(ctx context.Context, target string) (Page, error) {
	req, err := b.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, err
	}
	return b.doPage(req)
}

func (b *httpBrowser) SubmitForm(ctx context.Context, target string, form url.Values) (Page, error) {
	req, err := b.newRequest(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.doPage(req)
}

func (b *httpBrowser) PostJSON(ctx context.Context, target string, payload any) ([]byte, error) {
	body, err := encodeJSON(payload)
	if err != nil {
		return nil, err
	}
	req, err := b.newRequest(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("upstream service returned status %d", resp.StatusCode)
	}
	return data, nil
}

func (b *httpBrowser) Cookies() []session.Cookie {
	var cookies []session.Cookie
	for _, c := range b.jar.Cookies(b.base) {
		cookies = append(cookies, session.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies
}

func (b *httpBrowser) SetCookies(cookies []session.Cookie) error {
	if b.closed.Load() {
		return ErrDriverClosed
	}
	hc := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc = append(hc, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	b.jar.SetCookies(b.base, hc)
	return nil
}

func (b *httpBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		b.client.CloseIdleConnections()
		b.factory.live.Add(-1)
	})
	return nil
}

func (b *httpBrowser) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	if b.closed.Load() {
		return nil, ErrDriverClosed
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", b.factory.userAgent)
	req.Header.Set("Accept-Language", acceptLanguage)
	return req, nil
}

func (b *httpBrowser) doPage(req *http.Request) (Page, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Page{}, err
	}
	return Page{
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Body:   string(body),
	}, nil
}

func encodeJSON(payload any) (io.Reader, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return bytes.NewReader(data), nil
}
