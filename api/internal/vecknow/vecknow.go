// Package vecknow retrieves semantic context for a lab report. Raw numeric
// lab values embed poorly, so the branch first asks the generation service
// for short natural-language descriptions of the findings and uses those as
// similarity-search probes.
package vecknow

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"lab-interpreter/api/internal/vectorstore"
)

type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Branch is the vector-knowledge side of the retrieval pipeline.
type Branch struct {
	Gen   Generator
	Embed Embedder
	Index vectorstore.Searcher
	TopK  int
}

const probePrompt = `You are an expert doctor. I have provided the test type, the suspected disease
(if mentioned by the patient), and the lab report. Since the lab report
primarily consists of numerical values, retrieving relevant context from my
RAG system is challenging. Your task is to generate a maximum of 200-300 words
textual summary that best represents this report, incorporating key
abnormalities or notable findings. Provide 2 descriptions which are inside the
<p>*</p> tag (don't use any other mode for separating them). This summary will
be used to fetch the most relevant medical context, which, along with the
report, will help provide an accurate interpretation.
Don't write anything else, other than the relevant interpretation.

Type: %s
Disease: %s
Report: %s

Answer:
`

var pTagRe = regexp.MustCompile(`(?s)<p>(.*?)</p>`)

// probePassages pulls the <p>-delimited descriptions out of model output.
func probePassages(raw string) []string {
	var out []string
	for _, m := range pTagRe.FindAllStringSubmatch(raw, -1) {
		if p := strings.TrimSpace(m[1]); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Retrieve generates probe passages for the report, queries the similarity
// index for each, and merges the neighbors into one deduplicated context.
// It returns the merged context, the probe passages, and an error only when
// the branch produced nothing because of service failures.
func (b *Branch) Retrieve(ctx context.Context, testName, reportText, disease string) (string, []string, error) {
	raw, err := b.Gen.GenerateText(ctx, fmt.Sprintf(probePrompt, testName, disease, reportText))
	if err != nil {
		return "", nil, fmt.Errorf("probe generation: %w", err)
	}

	probes := probePassages(raw)
	if len(probes) == 0 {
		// No delimited passages at all: fall back to the raw description.
		if raw = strings.TrimSpace(raw); raw != "" {
			probes = []string{raw}
		}
	}
	if len(probes) > 2 {
		probes = probes[:2]
	}
	if len(probes) < 2 {
		log.Printf("vecknow: %d probe passage(s) instead of 2, proceeding", len(probes))
	}
	if len(probes) == 0 {
		return "", nil, nil
	}

	topK := b.TopK
	if topK <= 0 {
		topK = 5
	}

	var merged []string
	seen := make(map[string]struct{})
	var lastErr error
	queried := 0
	for _, p := range probes {
		vec, err := b.Embed.Embed(ctx, p)
		if err != nil {
			log.Printf("vecknow: embed probe failed: %v", err)
			lastErr = err
			continue
		}
		neighbors, err := b.Index.Search(ctx, vec, topK)
		if err != nil {
			log.Printf("vecknow: similarity query failed: %v", err)
			lastErr = err
			continue
		}
		queried++
		for _, n := range neighbors {
			if _, dup := seen[n.Text]; dup || n.Text == "" {
				continue
			}
			seen[n.Text] = struct{}{}
			merged = append(merged, n.Text)
		}
	}
	if queried == 0 && lastErr != nil {
		return "", probes, fmt.Errorf("vector retrieval: %w", lastErr)
	}

	var ctxBlob strings.Builder
	for _, m := range merged {
		ctxBlob.WriteString("- ")
		ctxBlob.WriteString(m)
		ctxBlob.WriteString("\n")
	}
	return ctxBlob.String(), probes, nil
}
