package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyResponse marks a completed generation call that produced no text.
// Callers decide whether that consumes a retry attempt or aborts.
var ErrEmptyResponse = errors.New("llm: empty response")

// Engine drives the Gemini generation service for both text and vision calls.
type Engine struct {
	APIKey      string
	Model       string
	VisionModel string
}

func New(apiKey, model, visionModel string) *Engine {
	return &Engine{
		APIKey:      strings.TrimSpace(apiKey),
		Model:       strings.TrimSpace(model),
		VisionModel: strings.TrimSpace(visionModel),
	}
}

func (e *Engine) Name() string { return "gemini" }

// GenerateText sends a text-only prompt and returns the first candidate text.
func (e *Engine) GenerateText(ctx context.Context, prompt string) (string, error) {
	return e.generate(ctx, e.Model, genai.Text(prompt))
}

// GenerateVision sends a prompt plus an image and returns the first candidate text.
// The image MIME type is sniffed from the bytes.
func (e *Engine) GenerateVision(ctx context.Context, prompt string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("llm: empty image")
	}
	return e.generate(ctx, e.VisionModel,
		genai.Text(prompt),
		&genai.Blob{MIMEType: pickMIME(image), Data: image},
	)
}

func (e *Engine) generate(ctx context.Context, model string, parts ...genai.Part) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(strings.TrimSpace(model))
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}

	// Retries cover 5xx/transient failures only
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}
		txt := firstText(resp)
		if strings.TrimSpace(txt) == "" {
			return "", ErrEmptyResponse
		}
		return StripReasoning(txt), nil
	}
	return "", lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func pickMIME(data []byte) string {
	if len(data) == 0 {
		return "image/jpeg"
	}
	return http.DetectContentType(data)
}

func ptrFloat32(v float32) *float32 { return &v }
