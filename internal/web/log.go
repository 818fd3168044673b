package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Flush is passed through so that event streams keep working when logged
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		ancli.PrintOK(fmt.Sprintf("%v %v -> %v (%v)\n", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond)))
	})
}
