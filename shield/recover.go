package shield

import (
	"errors"
	"net/http"
	"runtime/debug"
)

// Recover catches panics in downstream handlers, logs them with the stack
// and answers 500 with the API error body.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			GetLogger(r.Context()).ErrorContext(r.Context(), "shield: handler panic recovered",
				"panic", rec,
				"path", r.URL.Path,
				"stack", string(debug.Stack()))
			WriteError(w, http.StatusInternalServerError, "internal error")
		}()
		next.ServeHTTP(w, r)
	})
}
