package middleware

import (
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/emiliopalmerini/mtranscript/internal/ports"
)

// RequestLogger reports every request to logger. Server errors are logged at
// error level, everything else at debug level.
func RequestLogger(logger ports.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			line := fmt.Sprintf("%s %s %d %s [%s]", r.Method, r.URL.Path, status,
				time.Since(start).Round(time.Microsecond), chimw.GetReqID(r.Context()))
			if status >= http.StatusInternalServerError {
				logger.Error(line)
				return
			}
			logger.Debug(line)
		})
	}
}
