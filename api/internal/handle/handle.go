// Package handle exposes the extraction and interpretation operations over HTTP.
package handle

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"lab-interpreter/api/internal/extract"
	"lab-interpreter/api/internal/interpret"
)

type Handle struct {
	Extractor   *extract.Extractor
	Interpreter *interpret.Interpreter
}

func New(x *extract.Extractor, in *interpret.Interpreter) *Handle {
	return &Handle{Extractor: x, Interpreter: in}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// requestDeadline honors X-Request-Timeout (seconds) or ?timeoutSec.
func requestDeadline(r *http.Request, def time.Duration) time.Duration {
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return def
}
