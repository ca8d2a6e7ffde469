// Package linkexpander follows maps short links to the full URL they point at.
package linkexpander

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/gmaps"
)

const (
	defaultMaxRedirects = 10
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodyBytes        = 1 << 20
)

var errTooManyRedirects = errors.New("linkexpander: too many redirects")

type Expander struct {
	client       *http.Client
	maxRedirects int
	userAgent    string
	logger       *zap.Logger
}

type Option func(*Expander)

func WithHTTPClient(client *http.Client) Option {
	return func(e *Expander) {
		e.client = client
	}
}

func WithMaxRedirects(n int) Option {
	return func(e *Expander) {
		e.maxRedirects = n
	}
}

func WithUserAgent(ua string) Option {
	return func(e *Expander) {
		e.userAgent = ua
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Expander) {
		e.logger = logger
	}
}

func New(opts ...Option) *Expander {
	e := &Expander{
		maxRedirects: defaultMaxRedirects,
		userAgent:    defaultUserAgent,
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.client == nil {
		e.client = &http.Client{Timeout: 15 * time.Second}
	}

	client := *e.client
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) >= e.maxRedirects {
			return errTooManyRedirects
		}

		return nil
	}

	e.client = &client

	return e
}

// Expand returns the URL shortURL leads to, or "" when it leads nowhere else.
// HTTP redirects are followed first; pages that redirect in markup are read
// for a meta refresh or a canonical maps link.
func (e *Expander) Expand(ctx context.Context, shortURL string) (string, error) {
	shortURL = gmaps.WithScheme(shortURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to follow %s: %w", shortURL, err)
	}
	defer resp.Body.Close()

	if resp.Request == nil || resp.Request.URL == nil {
		return "", nil
	}

	final := resp.Request.URL.String()
	if !sameURL(final, shortURL) {
		e.logger.Debug("short link expanded", zap.String("url", shortURL), zap.String("expanded", final))

		return final, nil
	}

	target := documentRedirect(resp.Body, resp.Request.URL)
	if target != "" && !sameURL(target, shortURL) {
		e.logger.Debug("short link expanded from document", zap.String("url", shortURL), zap.String("expanded", target))

		return target, nil
	}

	return "", nil
}

func documentRedirect(body io.Reader, base *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return ""
	}

	var candidates []string

	doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
			return
		}

		if target := refreshTarget(s.AttrOr("content", "")); target != "" {
			candidates = append(candidates, target)
		}
	})

	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		candidates = append(candidates, href)
	}

	for _, c := range candidates {
		ref, err := url.Parse(strings.TrimSpace(c))
		if err != nil {
			continue
		}

		abs := base.ResolveReference(ref).String()
		if gmaps.IsMapsURL(abs) {
			return abs
		}
	}

	return ""
}

// refreshTarget extracts the URL of a meta refresh content such as "0; url=https://...".
func refreshTarget(content string) string {
	idx := strings.Index(strings.ToLower(content), "url=")
	if idx < 0 {
		return ""
	}

	return strings.Trim(strings.TrimSpace(content[idx+len("url="):]), `'"`)
}

func sameURL(a, b string) bool {
	return strings.TrimRight(strings.TrimSpace(a), "/") == strings.TrimRight(strings.TrimSpace(b), "/")
}
