package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

const panicBody = `{"success":false,"error":"Internal Server Error","code":500}`

// Middleware turns a panic in a downstream handler into a logged 500. A
// panic raised with http.ErrAbortHandler is re-raised so net/http can abort
// the connection quietly.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Error().
				Interface("panic", rec).
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("remote", r.RemoteAddr).
				Str("request_id", w.Header().Get("X-Request-ID")).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(panicBody))
		}()
		next.ServeHTTP(w, r)
	})
}
