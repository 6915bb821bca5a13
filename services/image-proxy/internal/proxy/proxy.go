// Package proxy streams premium page images to clients holding a valid
// signed URL. The catalog signs (url, uid, exp) with a shared secret; this
// service verifies the triple and fetches the upstream image on the
// client's behalf, so raw storage URLs never reach the apps.
package proxy

import (
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/reading-platform/internal/platform/signing"
)

// maxImageBytes caps a single proxied image.
const maxImageBytes = 20 << 20

// Handler verifies the signature and proxies the upstream image.
func Handler(s *signing.Signer, client *http.Client, log *zap.Logger) http.HandlerFunc {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		rawURL, uid, exp, sig, err := signing.ExtractSigned(r.URL.Query())
		if err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if !s.Verify(rawURL, uid, exp, sig) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		req.Header.Set("Accept", "image/*")

		resp, err := client.Do(req)
		if err != nil {
			log.Warn("upstream fetch", zap.String("url", rawURL), zap.Error(err))
			http.Error(w, "upstream", http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			http.Error(w, "upstream", http.StatusBadGateway)
			return
		}
		contentType := resp.Header.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, "image/") {
			http.Error(w, "unsupported content", http.StatusBadGateway)
			return
		}

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		// Signed URLs are user-bound; only the browser may cache.
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, io.LimitReader(resp.Body, maxImageBytes))
	}
}
