// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// responseHeaders are set on every response. Register pages and concept
// views are plain HTML with one stylesheet; the RDF and JSON
// representations are fetched by harvesters and SPARQL tooling running on
// other origins.
var responseHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "SAMEORIGIN"},
	{"X-XSS-Protection", "0"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "interest-cohort=()"},
	{"Content-Security-Policy", "default-src 'self'; frame-ancestors 'self'"},

	// Harvesters read Link for alternate views and Vary for the negotiated
	// representation.
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Expose-Headers", "Link, Vary, " + RequestIDHeader},
}

// SecureHeaders applies responseHeaders before the handler runs, so error
// pages carry them too.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range responseHeaders {
			h.Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}
