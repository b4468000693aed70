package handle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lab-interpreter/api/internal/extract"
)

type ExtractRequest struct {
	ImageB64 string `json:"image_b64"`
}

const maxImageBytes = 10 << 20

// Extract handles POST /v1/report/extract: image in, LabRecord out.
// Accepts either multipart/form-data with a "file" field or a JSON body
// carrying the image as base64.
func (h *Handle) Extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	img, err := readImage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r, 180*time.Second))
	defer cancel()

	rec, err := h.Extractor.Extract(ctx, img)
	if err != nil {
		if errors.Is(err, extract.ErrExtractionFailed) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "extract error: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func readImage(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			return nil, fmt.Errorf("bad multipart body: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New(`multipart field "file" is required`)
		}
		defer file.Close()
		img, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
		if err != nil {
			return nil, err
		}
		if len(img) == 0 {
			return nil, errors.New("empty image upload")
		}
		return img, nil
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("bad json: %w", err)
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.ImageB64))
	if err != nil || len(img) == 0 {
		return nil, errors.New("bad image_b64")
	}
	return img, nil
}
