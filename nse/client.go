package nse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"optionchain/metrics"
	"optionchain/models"
)

const chainPath = "/api/option-chain-v3"

type Config struct {
	BaseURL        string
	UserAgent      string
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
}

// Client fetches option chains the way a browser tab would: every fetch gets
// a fresh cookie jar, loads the site root first, then asks for the JSON.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
	limiter   *rate.Limiter
	metrics   *metrics.Registry
}

func NewClient(cfg Config, m *metrics.Registry) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		timeout:   cfg.RequestTimeout,
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(limit, cfg.RateBurst),
		metrics:   m,
	}
}

func (c *Client) newSession() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Transport: c.transport,
		Timeout:   c.timeout,
		Jar:       jar,
	}
}

func (c *Client) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", c.baseURL+"/")
	return req, nil
}

// ChainURL builds the option chain endpoint for symbol and expiry.
func (c *Client) ChainURL(symbol, expiry string) string {
	q := url.Values{}
	q.Set("type", "Indices")
	q.Set("symbol", symbol)
	q.Set("expiry", expiry)
	return c.baseURL + chainPath + "?" + q.Encode()
}

// FetchChain returns the parsed chain or a *BlockedError / *MalformedError.
// It never retries.
func (c *Client) FetchChain(ctx context.Context, symbol, expiry string) (*models.OptionChainResp, error) {
	session := c.newSession()
	c.warmUp(ctx, session)

	resp, err := c.fetch(ctx, session, symbol, expiry)
	c.metrics.ObserveFetch(outcome(err))
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Str("expiry", expiry).Msg("option chain fetch failed")
		return nil, err
	}
	return resp, nil
}

// warmUp loads the root page so the session picks up the cookies the API
// insists on. Its outcome is only logged.
func (c *Client) warmUp(ctx context.Context, session *http.Client) {
	if err := c.limiter.Wait(ctx); err != nil {
		return
	}
	req, err := c.newRequest(ctx, c.baseURL+"/")
	if err != nil {
		return
	}
	res, err := session.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("warm-up request failed")
		return
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	log.Debug().Int("status", res.StatusCode).Int("cookies", len(res.Cookies())).Msg("warm-up done")
}

func (c *Client) fetch(ctx context.Context, session *http.Client, symbol, expiry string) (*models.OptionChainResp, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &BlockedError{Err: err}
	}
	req, err := c.newRequest(ctx, c.ChainURL(symbol, expiry))
	if err != nil {
		return nil, fmt.Errorf("building chain request: %w", err)
	}

	start := time.Now()
	res, err := session.Do(req)
	if err != nil {
		return nil, &BlockedError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &BlockedError{StatusCode: res.StatusCode}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &BlockedError{Err: err}
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &MalformedError{Snippet: snippet(trimmed)}
	}

	var chain models.OptionChainResp
	if err := json.Unmarshal(trimmed, &chain); err != nil {
		return nil, &MalformedError{Snippet: snippet(trimmed), Err: err}
	}

	log.Debug().
		Str("symbol", symbol).
		Str("expiry", expiry).
		Int("strikes", len(chain.Records.Data)).
		Dur("duration", time.Since(start)).
		Msg("option chain retrieved")
	return &chain, nil
}

func snippet(b []byte) string {
	const limit = 64
	if len(b) > limit {
		return string(b[:limit])
	}
	return string(b)
}

func outcome(err error) string {
	switch err.(type) {
	case nil:
		return "ok"
	case *BlockedError:
		return "blocked"
	case *MalformedError:
		return "malformed"
	}
	return "error"
}
