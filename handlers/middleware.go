package handlers

import (
	"net/http"
	"strings"

	"evite/uploads"
)

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline'; " +
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
	"font-src 'self' https://fonts.gstatic.com; " +
	"img-src 'self' data: https:; " +
	"frame-ancestors 'self'"

// uploadPolicy applies to user uploads, which may be of any type. A sandboxed
// document gets an opaque origin and cannot run script.
const uploadPolicy = "default-src 'none'; img-src 'self'; style-src 'unsafe-inline'; sandbox"

const uploadsPath = "/static/" + uploads.Prefix + "/"

func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if strings.HasPrefix(r.URL.Path, uploadsPath) {
			h.Set("Content-Security-Policy", uploadPolicy)
		} else {
			h.Set("Content-Security-Policy", contentSecurityPolicy)
		}

		// Pages carry flashes and guest data; only public assets may be cached.
		if !strings.HasPrefix(r.URL.Path, "/static/") {
			h.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}
