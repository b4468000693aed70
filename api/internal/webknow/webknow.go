// Package webknow builds a knowledge digest for a lab test from a summarized
// web search: search, fetch, clean, chunk, per-chunk relevance extraction,
// then a bounded summary that is persisted to the digest cache.
package webknow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"lab-interpreter/api/internal/cache"
	"lab-interpreter/api/internal/chunk"
	"lab-interpreter/api/internal/fetch"
)

type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Branch is the web-knowledge side of the retrieval pipeline.
//
// Page-level failures are absorbed: a page that cannot be fetched is skipped
// and a chunk whose extraction fails is dropped. BuildDigest returns an error
// only when the branch could not run at all (search or summarization down);
// callers degrade that to an empty digest.
type Branch struct {
	Search Searcher
	Fetch  Fetcher
	Gen    Generator
	Cache  cache.Store

	ResultCount    int
	MaxChunkTokens int
}

const chunkExtractPrompt = `You are a medical expert providing the relevant content from the given one.
Based on the following information:

%s

extract the information that can help in interpreting the medical report related
to %s (test). Don't type anything else. Just provide the relevant information
from the content, nothing else. If there is nothing relevant then just respond
with 'there is nothing helpful' but don't type anything from your knowledge.`

const summarizePrompt = `You are a medical expert. Summarize the provided content in a maximum of 1000
words to aid in interpreting the medical report related to %s. Ensure the
summary remains within the word limit while retaining key insights.

Content: %s`

// BuildDigest runs the whole branch for testName and stores the result in the
// cache on success.
func (b *Branch) BuildDigest(ctx context.Context, testName string) (cache.Digest, error) {
	empty := cache.Digest{TestName: testName}

	query := fmt.Sprintf("how to interpret %s report", testName)
	urls, err := b.Search.Search(ctx, query, b.resultCount())
	if err != nil {
		return empty, fmt.Errorf("web search: %w", err)
	}
	log.Printf("webknow: %q: %d search results", testName, len(urls))

	var cleaned []string
	for _, u := range urls {
		content, err := b.Fetch.Fetch(ctx, u)
		if err != nil {
			log.Printf("webknow: skipping %s: %v", u, err)
			continue
		}
		if text := fetch.CleanHTML(content); text != "" {
			cleaned = append(cleaned, text)
		}
	}
	if len(cleaned) == 0 {
		return empty, nil
	}

	chunks := chunk.Split(strings.Join(cleaned, "\n\n"), b.maxChunkTokens(), nil)

	var extractions []string
	var lastErr error
	for i, c := range chunks {
		out, err := b.Gen.GenerateText(ctx, fmt.Sprintf(chunkExtractPrompt, c, testName))
		if err != nil {
			log.Printf("webknow: chunk %d/%d extraction failed: %v", i+1, len(chunks), err)
			lastErr = err
			continue
		}
		extractions = append(extractions, out)
	}
	if len(extractions) == 0 {
		if lastErr != nil {
			return empty, fmt.Errorf("chunk extraction: %w", lastErr)
		}
		return empty, nil
	}

	summary, err := b.Gen.GenerateText(ctx,
		fmt.Sprintf(summarizePrompt, testName, strings.Join(extractions, "")))
	if err != nil {
		return empty, fmt.Errorf("summarize web content: %w", err)
	}

	d := cache.Digest{TestName: testName, SummaryText: strings.TrimSpace(summary)}
	if b.Cache != nil && d.SummaryText != "" {
		if err := b.Cache.Put(ctx, d); err != nil {
			// A failed cache write costs a recomputation later, not the request.
			log.Printf("webknow: cache put %q: %v", testName, err)
		}
	}
	return d, nil
}

func (b *Branch) resultCount() int {
	if b.ResultCount > 0 {
		return b.ResultCount
	}
	return 2
}

func (b *Branch) maxChunkTokens() int {
	if b.MaxChunkTokens > 0 {
		return b.MaxChunkTokens
	}
	return 4500
}
