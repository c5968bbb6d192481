package runtime

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const defaultReadyTimeout = 2 * time.Second

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name    string
	Check   func(context.Context) error
	Timeout time.Duration
}

func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if failures := runChecks(r.Context(), checks); len(failures) > 0 {
			writeText(w, http.StatusServiceUnavailable, strings.Join(failures, "; "))
			return
		}
		writeText(w, http.StatusOK, "ok")
	})
	return mux
}

func runChecks(ctx context.Context, checks []ReadyCheck) []string {
	var failures []string
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		timeout := check.Timeout
		if timeout <= 0 {
			timeout = defaultReadyTimeout
		}
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := check.Check(checkCtx)
		cancel()
		if err != nil {
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			failures = append(failures, name+": "+err.Error())
		}
	}
	return failures
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
