// Package extract turns a lab-report image into a schema-validated LabRecord
// by driving a vision-capable generation service through bounded retries.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log"

	"lab-interpreter/api/internal/llm"
	"lab-interpreter/api/internal/report"
)

// ErrExtractionFailed is returned once the attempt budget is exhausted
// without a single candidate passing validation.
var ErrExtractionFailed = errors.New("failed to extract a valid lab record")

// VisionGenerator is the slice of the generation service the extractor needs.
type VisionGenerator interface {
	GenerateVision(ctx context.Context, prompt string, image []byte) (string, error)
}

// Extractor runs the extraction retry loop.
type Extractor struct {
	Vision      VisionGenerator
	MaxAttempts int

	// RetryTransient counts service/transport failures against the attempt
	// budget instead of surfacing them immediately. Off by default: a dead
	// upstream should be visible, not disguised as bad model output.
	RetryTransient bool
}

const permissivePrompt = `You are an expert medical data extraction assistant.
Extract all the information from the lab report image into a JSON object.

JSON Schema:
%s

Rules:
- Return ONLY valid JSON (no explanations, no markdown, no code fences).
- Preserve the original structure of the report.
- Do NOT enforce fixed field names like 'parameter' or 'unit'. Extract fields
  exactly as they appear in the report (e.g. 'Result', 'Value', 'Flag', 'Observation').
- For tabular reports, each column/row becomes an entry in "entries".
- For descriptive/narrative reports, break the text into meaningful key-value pairs.
- Ignore irrelevant personal details (patient name, ID, address).`

const strictPrompt = `Retry attempt %d: extract the lab report again and return valid JSON only.
Your previous output did not parse. Follow this schema strictly, output a single
JSON object and absolutely nothing else:
%s`

// Extract runs up to MaxAttempts extraction attempts against the image.
// Attempt 1 uses the permissive prompt; later attempts restate the schema
// and demand JSON-only output. Attempts are strictly sequential.
func (x *Extractor) Extract(ctx context.Context, image []byte) (*report.LabRecord, error) {
	maxAttempts := x.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt := fmt.Sprintf(permissivePrompt, report.Schema)
		if attempt > 1 {
			prompt = fmt.Sprintf(strictPrompt, attempt, report.Schema)
		}

		raw, err := x.Vision.GenerateVision(ctx, prompt, image)
		if err != nil {
			if errors.Is(err, llm.ErrEmptyResponse) {
				// An empty completion is a failed attempt, not a crash.
				log.Printf("extract: attempt %d: empty response", attempt)
				lastErr = err
				continue
			}
			if x.RetryTransient && ctx.Err() == nil {
				log.Printf("extract: attempt %d: transient service error: %v", attempt, err)
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("generation service: %w", err)
		}

		rec, err := report.Validate(raw)
		if err != nil {
			log.Printf("extract: attempt %d failed validation: %v", attempt, err)
			lastErr = err
			continue
		}
		log.Printf("extract: parsed lab record on attempt %d (test=%q, entries=%d)",
			attempt, rec.TestName, len(rec.Entries))
		return rec, nil
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrExtractionFailed, maxAttempts, lastErr)
}
