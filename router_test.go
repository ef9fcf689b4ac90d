package main

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionchain/cache"
	"optionchain/controllers"
	"optionchain/metrics"
	"optionchain/models"
	"optionchain/pipeline"
	"optionchain/workers"
)

type idleUpstream struct{}

func (idleUpstream) FetchChain(ctx context.Context, symbol, expiry string) (*models.OptionChainResp, error) {
	return &models.OptionChainResp{}, nil
}

func newTestRouter() http.Handler {
	up := idleUpstream{}
	p := pipeline.New(pipeline.Options{
		Symbol:          "NIFTY",
		DefaultExpiry:   "28-Apr-2026",
		CacheTTL:        30 * time.Second,
		RefreshInterval: 15 * time.Second,
	}, up, cache.New(up))
	return registerRoutes(
		controllers.NewHandler(p, workers.NewManager()),
		controllers.NewHub(p.Latest),
		metrics.New(),
	)
}

func get(h http.Handler, path, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept-Encoding", accept)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMetrics_EncodingMatchesBody(t *testing.T) {
	rec := get(newTestRouter(), "/metrics", "gzip, deflate, br, zstd")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), "optionchain_rows_in_window")
}

func TestRoot_Zstd(t *testing.T) {
	rec := get(newTestRouter(), "/", "gzip, zstd")
	require.Equal(t, "zstd", rec.Header().Get("Content-Encoding"))

	dec, err := zstd.NewReader(rec.Body)
	require.NoError(t, err)
	defer dec.Close()
	body, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "Option chain service is running", string(body))
}
