package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"lab-interpreter/api/internal/interpret"
)

type InterpretRequest struct {
	TestName string `json:"test_name"`
	Report   string `json:"report"`
	Disease  string `json:"disease"`
}

// Interpret handles POST /v1/report/interpret.
func (h *Handle) Interpret(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req InterpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.TestName) == "" || strings.TrimSpace(req.Report) == "" {
		http.Error(w, "test_name and report are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r, 300*time.Second))
	defer cancel()

	res, err := h.Interpreter.Interpret(ctx, req.TestName, req.Report, req.Disease)
	if err != nil {
		if errors.Is(err, interpret.ErrRetrievalFailed) {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, "interpret error: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
