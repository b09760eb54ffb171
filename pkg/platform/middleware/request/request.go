// Package request assigns correlation IDs to incoming requests.
package request

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"proctor/pkg/requestcontext"
)

const HeaderRequestID = "X-Request-ID"

// validRequestID bounds caller-supplied IDs so they are safe to log.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID reuses a well-formed X-Request-ID from the caller or generates
// one, stores it in the context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(requestID) {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), requestID)))
	})
}
