package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"optionchain/cache"
	"optionchain/chain"
	"optionchain/config"
	"optionchain/emphasis"
	"optionchain/models"
	"optionchain/nse"
)

var (
	ErrInvalidExpiry   = errors.New("expiry is not listed upstream")
	ErrInvalidInterval = errors.New("refresh interval must be between 15s and 120s")
	ErrNotStarted      = errors.New("pipeline has no metadata yet")
)

type Options struct {
	Symbol          string
	DefaultExpiry   string
	CacheTTL        time.Duration
	WindowHalfWidth float64
	RefreshInterval time.Duration
	AutoRefresh     bool
}

func OptionsFrom(cfg config.Config) Options {
	return Options{
		Symbol:          cfg.Symbol,
		DefaultExpiry:   cfg.DefaultExpiry,
		CacheTTL:        cfg.CacheTTL,
		WindowHalfWidth: cfg.WindowHalfWidth,
		RefreshInterval: cfg.RefreshInterval,
		AutoRefresh:     cfg.AutoRefresh,
	}
}

// Settings are the user inputs retained between cycles.
type Settings struct {
	Expiry      string
	AutoRefresh bool
	Interval    time.Duration
}

// Pipeline owns the cache and the retained settings. Refresh is the single
// entry point a scheduler invokes; it never schedules itself.
type Pipeline struct {
	opts   Options
	client chain.Fetcher
	gate   *cache.Gate

	mu       sync.RWMutex
	settings Settings
	expiries []string
	latest   *models.Snapshot
	changed  chan struct{}
}

// New wires the pipeline. client is used for the base metadata fetch, gate for
// the windowed fetches.
func New(opts Options, client chain.Fetcher, gate *cache.Gate) *Pipeline {
	if opts.WindowHalfWidth <= 0 {
		opts.WindowHalfWidth = chain.DefaultWindowHalfWidth
	}
	return &Pipeline{
		opts:   opts,
		client: client,
		gate:   gate,
		settings: Settings{
			AutoRefresh: opts.AutoRefresh,
			Interval:    config.ClampInterval(opts.RefreshInterval),
		},
		changed: make(chan struct{}, 1),
	}
}

// Start resolves the expiry list and picks the active expiry. A failure here
// is fatal for the caller: without metadata there is nothing to select from.
func (p *Pipeline) Start(ctx context.Context) (models.ChainMetadata, error) {
	p.mu.RLock()
	provisional := p.settings.Expiry
	p.mu.RUnlock()
	if provisional == "" {
		provisional = p.opts.DefaultExpiry
	}

	meta, err := chain.ResolveMetadata(ctx, p.client, p.opts.Symbol, provisional)
	if err != nil {
		return models.ChainMetadata{}, fmt.Errorf("resolving metadata for %s: %w", p.opts.Symbol, err)
	}

	p.mu.Lock()
	p.expiries = meta.ExpiryDates
	p.settings.Expiry = chain.SelectExpiry(meta.ExpiryDates, p.settings.Expiry, p.opts.DefaultExpiry)
	expiry := p.settings.Expiry
	p.mu.Unlock()

	log.Info().
		Str("symbol", p.opts.Symbol).
		Str("expiry", expiry).
		Int("expiries", len(meta.ExpiryDates)).
		Float64("underlying", meta.UnderlyingValue).
		Msg("option chain metadata resolved")
	return meta, nil
}

// Refresh runs one cycle for the given settings: cached fetch, transform,
// emphasis. The returned snapshot carries the error in Meta.Error when err
// is non-nil; the previous table is not reused.
func (p *Pipeline) Refresh(ctx context.Context, s Settings) (models.Snapshot, error) {
	p.mu.RLock()
	expiries := p.expiries
	p.mu.RUnlock()
	if expiries == nil {
		return p.fail(s.Expiry, ErrNotStarted), ErrNotStarted
	}
	expiry := chain.SelectExpiry(expiries, s.Expiry, p.opts.DefaultExpiry)
	if expiry != s.Expiry {
		p.mu.Lock()
		if p.settings.Expiry == s.Expiry {
			p.settings.Expiry = expiry
		}
		p.mu.Unlock()
		if s.Expiry != "" {
			log.Info().Str("requested", s.Expiry).Str("expiry", expiry).Msg("selected expiry no longer listed")
		}
	}

	resp, err := p.gate.GetOrFetch(ctx, p.opts.Symbol, expiry, p.opts.CacheTTL)
	if err != nil {
		return p.fail(expiry, err), err
	}

	snap, err := p.build(resp, expiry)
	if err != nil {
		return p.fail(expiry, err), err
	}
	if len(resp.Records.ExpiryDates) > 0 {
		expiries = slices.Clone(resp.Records.ExpiryDates)
		p.mu.Lock()
		p.expiries = expiries
		p.mu.Unlock()
	}
	snap.Meta.ExpiryDates = slices.Clone(expiries)
	p.store(snap)
	return snap, nil
}

func (p *Pipeline) build(resp *models.OptionChainResp, expiry string) (models.Snapshot, error) {
	rec := resp.Records
	if rec.UnderlyingValue == nil {
		return models.Snapshot{}, &chain.SchemaError{Field: "records.underlyingValue"}
	}
	underlying := *rec.UnderlyingValue
	lastUpdated, err := chain.LastUpdated(rec.Timestamp)
	if err != nil {
		return models.Snapshot{}, err
	}

	table, err := chain.Transform(rec.Data, underlying, p.opts.WindowHalfWidth)
	if err != nil {
		return models.Snapshot{}, err
	}

	return models.Snapshot{
		Data: models.ChainView{
			Columns:  models.Columns(),
			Rows:     table,
			Emphasis: emphasis.Compute(table, underlying),
		},
		Meta: models.Meta{
			Symbol:      p.opts.Symbol,
			Expiry:      expiry,
			Underlying:  underlying,
			LastUpdated: lastUpdated,
		},
	}, nil
}

func (p *Pipeline) fail(expiry string, err error) models.Snapshot {
	p.mu.RLock()
	expiries := p.expiries
	p.mu.RUnlock()
	snap := models.Snapshot{
		Data: models.ChainView{Columns: models.Columns()},
		Meta: models.Meta{
			Symbol:      p.opts.Symbol,
			Expiry:      expiry,
			ExpiryDates: expiries,
			Error:       &models.ErrorInfo{Kind: ErrorKind(err), Message: UserMessage(err)},
		},
	}
	p.store(snap)
	return snap
}

func (p *Pipeline) store(snap models.Snapshot) {
	p.mu.Lock()
	p.latest = &snap
	p.mu.Unlock()
}

// Latest returns the most recent snapshot, successful or not.
func (p *Pipeline) Latest() (models.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return models.Snapshot{}, false
	}
	return *p.latest, true
}

func (p *Pipeline) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

func (p *Pipeline) Expiries() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.expiries)
}

// Update is a partial settings change; nil fields are left alone.
type Update struct {
	Expiry      *string
	AutoRefresh *bool
	Interval    *time.Duration
}

// UpdateSettings validates and applies u, then wakes whoever waits on Changed.
func (p *Pipeline) UpdateSettings(u Update) (Settings, error) {
	p.mu.Lock()
	next := p.settings
	if u.Expiry != nil {
		if !slices.Contains(p.expiries, *u.Expiry) {
			p.mu.Unlock()
			return Settings{}, fmt.Errorf("%w: %q", ErrInvalidExpiry, *u.Expiry)
		}
		next.Expiry = *u.Expiry
	}
	if u.Interval != nil {
		if *u.Interval < config.MinRefreshInterval || *u.Interval > config.MaxRefreshInterval {
			p.mu.Unlock()
			return Settings{}, fmt.Errorf("%w: %s", ErrInvalidInterval, *u.Interval)
		}
		next.Interval = *u.Interval
	}
	if u.AutoRefresh != nil {
		next.AutoRefresh = *u.AutoRefresh
	}
	p.settings = next
	p.mu.Unlock()

	select {
	case p.changed <- struct{}{}:
	default:
	}
	return next, nil
}

// Changed fires after a settings update. At most one notification is queued.
func (p *Pipeline) Changed() <-chan struct{} {
	return p.changed
}

// ErrorKind names the failure class for display and metrics.
func ErrorKind(err error) string {
	var (
		blocked   *nse.BlockedError
		malformed *nse.MalformedError
		schema    *chain.SchemaError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &blocked):
		return "blocked"
	case errors.As(err, &malformed):
		return "malformed"
	case errors.As(err, &schema):
		return "schema"
	case errors.Is(err, chain.ErrEmptyResult):
		return "empty"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	}
	return "error"
}

func UserMessage(err error) string {
	var blocked *nse.BlockedError
	switch {
	case errors.As(err, &blocked) && blocked.StatusCode != 0:
		return fmt.Sprintf("NSE blocked request (HTTP %d)", blocked.StatusCode)
	case ErrorKind(err) == "malformed":
		return "NSE returned non-JSON response (blocked by NSE)"
	case errors.Is(err, chain.ErrEmptyResult):
		return "No option data available near ATM"
	}
	return err.Error()
}
