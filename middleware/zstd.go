package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zstdResponseWriter picks its encoding on the first WriteHeader. Responses
// that already carry a Content-Encoding, or have no body, are written as is.
type zstdResponseWriter struct {
	http.ResponseWriter
	head        bool
	encoder     *zstd.Encoder
	wroteHeader bool
}

func (w *zstdResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.Header()
	if !w.head && bodyAllowed(code) && h.Get("Content-Encoding") == "" {
		encoder, err := zstd.NewWriter(w.ResponseWriter)
		if err != nil {
			log.Error().Err(err).Msg("zstd encoder")
		} else {
			w.encoder = encoder
			h.Set("Content-Encoding", "zstd")
			h.Del("Content-Length")
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *zstdResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}
	if w.encoder == nil {
		return w.ResponseWriter.Write(b)
	}
	return w.encoder.Write(b)
}

func (w *zstdResponseWriter) close() error {
	if w.encoder == nil {
		return nil
	}
	return w.encoder.Close()
}

func bodyAllowed(code int) bool {
	switch {
	case code >= 100 && code < 200:
		return false
	case code == http.StatusNoContent, code == http.StatusNotModified:
		return false
	}
	return true
}

// acceptsZstd reports whether zstd is listed with a non-zero quality.
func acceptsZstd(header string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(part, ";")
		if !strings.EqualFold(strings.TrimSpace(name), "zstd") {
			continue
		}
		for _, param := range strings.Split(params, ";") {
			key, value, ok := strings.Cut(param, "=")
			if ok && strings.EqualFold(strings.TrimSpace(key), "q") {
				q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
				return err == nil && q > 0
			}
		}
		return true
	}
	return false
}

// Zstd compresses responses for clients that ask for it. Websocket upgrades
// pass through untouched.
func Zstd(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptsZstd(r.Header.Get("Accept-Encoding")) ||
			strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")
		zw := &zstdResponseWriter{ResponseWriter: w, head: r.Method == http.MethodHead}
		next.ServeHTTP(zw, r)
		if err := zw.close(); err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("zstd close")
		}
	})
}
