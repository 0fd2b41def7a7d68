package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/dealmungchi/offerwatcher/logger"
	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
	"github.com/dealmungchi/offerwatcher/services/cache"
)

const fetcherSource = "fetcher"

// Browser identity sent with every request. The site serves different markup
// (or a block page) to default Go clients.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	acceptHeader          = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
)

// FetcherConfig contains configuration for a Fetcher
type FetcherConfig struct {
	Timeout        time.Duration
	BlockTime      time.Duration
	UserAgent      string
	AcceptLanguage string
}

// Fetcher downloads listing pages. It never retries; a failed page is picked
// up again on the next tick.
type Fetcher struct {
	client         *http.Client
	cacheSvc       cache.CacheService
	blockTime      time.Duration
	userAgent      string
	acceptLanguage string
	log            *logger.Logger
}

// NewFetcher creates a new fetcher. cacheSvc may be nil, which disables
// rate-limit blocking.
func NewFetcher(cfg FetcherConfig, cacheSvc cache.CacheService) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = DefaultAcceptLanguage
	}

	return &Fetcher{
		client:         &http.Client{Timeout: cfg.Timeout},
		cacheSvc:       cacheSvc,
		blockTime:      cfg.BlockTime,
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
		log:            logger.ForFetcher(),
	}
}

// Fetch sends a GET request for pageURL and parses the UTF-8 converted body
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	blockKey := rateLimitKey(pageURL)
	if f.isBlocked(blockKey) {
		return nil, apperrors.NewRateLimit(fetcherSource, f.blockTime)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, apperrors.NewTransport(fetcherSource, "failed to create request", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", f.acceptLanguage)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewTransport(fetcherSource, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	f.log.Debug().
		Str("url", pageURL).
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("HTTP request completed")

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 430 {
		f.block(blockKey, resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewHTTPStatus(fetcherSource, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransport(fetcherSource, "failed to read response body", err)
	}

	reader, err := toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, apperrors.NewParsing(fetcherSource, "failed to convert body to UTF-8", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, apperrors.NewParsing(fetcherSource, "failed to parse HTML", err)
	}
	return doc, nil
}

// toUTF8 converts body to UTF-8 based on the Content-Type header and body sniffing
func toUTF8(body []byte, contentType string) (io.Reader, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(body), nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return nil, err
	}
	return &buf, nil
}

func rateLimitKey(pageURL string) string {
	return "ratelimit:" + HostOf(pageURL)
}

func (f *Fetcher) isBlocked(key string) bool {
	if f.cacheSvc == nil || f.blockTime <= 0 {
		return false
	}
	_, err := f.cacheSvc.Get(key)
	if err == nil {
		return true
	}
	if !cache.IsMiss(err) {
		f.log.Warn().Err(err).Str("key", key).Msg("Rate-limit lookup failed, fetching anyway")
	}
	return false
}

func (f *Fetcher) block(key, retryAfter string) {
	if f.cacheSvc == nil || f.blockTime <= 0 {
		return
	}

	duration := f.blockTime
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		duration = max(duration, time.Duration(seconds)*time.Second)
	}

	if err := f.cacheSvc.Set(key, []byte(fmt.Sprintf("%d", int(duration/time.Second))), duration); err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("Failed to record rate-limit block")
		return
	}
	f.log.Warn().Str("key", key).Dur("block", duration).Msg("Rate limited by site, suspending requests")
}
