package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	MinRefreshInterval = 15 * time.Second
	MaxRefreshInterval = 120 * time.Second
)

type Config struct {
	BaseURL         string
	Symbol          string
	DefaultExpiry   string
	UserAgent       string
	RequestTimeout  time.Duration
	CacheTTL        time.Duration
	WindowHalfWidth float64
	RefreshInterval time.Duration
	AutoRefresh     bool
	RateLimit       float64
	RateBurst       int
	RedisURL        string
	HTTPAddr        string
	LogLevel        string
	RenderTerminal  bool
}

func Default() Config {
	return Config{
		BaseURL:         "https://www.nseindia.com",
		Symbol:          "NIFTY",
		DefaultExpiry:   "28-Apr-2026",
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64)",
		RequestTimeout:  10 * time.Second,
		CacheTTL:        30 * time.Second,
		WindowHalfWidth: 500,
		RefreshInterval: MinRefreshInterval,
		AutoRefresh:     true,
		RateLimit:       1,
		RateBurst:       2,
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		RenderTerminal:  true,
	}
}

// Load reads .env files (if any) and then the environment on top of Default.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("loading env file: %w", err)
	}

	cfg := Default()
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("NSE_BASE_URL", &cfg.BaseURL)
	str("NSE_SYMBOL", &cfg.Symbol)
	str("DEFAULT_EXPIRY", &cfg.DefaultExpiry)
	str("USER_AGENT", &cfg.UserAgent)
	str("REDIS_URL", &cfg.RedisURL)
	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("LOG_LEVEL", &cfg.LogLevel)

	var err error
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", cfg.CacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshInterval, err = durationEnv("REFRESH_INTERVAL", cfg.RefreshInterval); err != nil {
		return Config{}, err
	}
	cfg.RefreshInterval = ClampInterval(cfg.RefreshInterval)
	if cfg.WindowHalfWidth, err = floatEnv("WINDOW_HALF_WIDTH", cfg.WindowHalfWidth); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = floatEnv("NSE_RATE_LIMIT", cfg.RateLimit); err != nil {
		return Config{}, err
	}
	if v, ok := os.LookupEnv("NSE_RATE_BURST"); ok && v != "" {
		if cfg.RateBurst, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("NSE_RATE_BURST: %w", err)
		}
	}
	if cfg.AutoRefresh, err = boolEnv("AUTO_REFRESH", cfg.AutoRefresh); err != nil {
		return Config{}, err
	}
	if cfg.RenderTerminal, err = boolEnv("RENDER_TERMINAL", cfg.RenderTerminal); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ClampInterval keeps a refresh interval inside [15s, 120s].
func ClampInterval(d time.Duration) time.Duration {
	if d < MinRefreshInterval {
		return MinRefreshInterval
	}
	if d > MaxRefreshInterval {
		return MaxRefreshInterval
	}
	return d
}

// durationEnv accepts Go durations ("30s") or bare seconds ("30").
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
