// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP ingress middleware stack shared by all
// daemon routes.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stagecast/rundownd/internal/log"
)

// HeaderRequestID is the correlation header echoed on every response.
const HeaderRequestID = "X-Request-Id"

// RequestID adds a unique ID to every request, honoring a caller-supplied one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
