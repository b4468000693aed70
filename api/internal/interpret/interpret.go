// Package interpret fuses the two knowledge branches with the lab report and
// produces the final plain-language interpretation.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"lab-interpreter/api/internal/cache"
	"lab-interpreter/api/internal/ranges"
)

// ErrRetrievalFailed is returned only when both knowledge branches fail
// irrecoverably. A single failed branch degrades to single-source context.
var ErrRetrievalFailed = errors.New("both knowledge branches failed")

type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type WebBranch interface {
	BuildDigest(ctx context.Context, testName string) (cache.Digest, error)
}

type VectorBranch interface {
	Retrieve(ctx context.Context, testName, reportText, disease string) (string, []string, error)
}

// Result is the final interpretation for one request.
type Result struct {
	Text string `json:"result"`
}

// Interpreter orchestrates cache lookup, the two branches, the relevance
// filter and the final synthesis. Requests are independent; the digest cache
// is the only shared state.
type Interpreter struct {
	Cache  cache.Store
	Web    WebBranch
	Vector VectorBranch
	Gen    Generator
	Ranges *ranges.Table

	// BranchTimeout bounds each knowledge branch; chained generation calls
	// dominate wall-clock time, so the default is generous.
	BranchTimeout time.Duration
}

const filterPrompt = `You are an expert doctor. Your task is to extract only the most relevant
information from the provided medical context and discard anything unrelated.

### Given Information:
- **Test Type:** %s
- **Medical Report:** %s
- **Normal Ranges:** %s
- **Context:** %s
%s

### Instructions:
- Read the retrieved context carefully.
- Identify the information that is directly relevant to the test %s and the
  provided ranges (only consider the provided ranges if the normal ranges are
  not present in the test report, otherwise consider the ones in the report).
- Extract only the relevant paragraphs and discard anything that is not
  directly related.

### Output Format:
Return the filtered context as clean paragraphs that are relevant to %s.
Do not include any unrelated information, just provide the paragraphs, nothing else.`

const synthesizePrompt = `You are an expert doctor. You have to interpret the medical lab report of the
patient. I have provided you the lab report, the test type, the disease which
the patient thinks they are suffering from and some context which may assist
you in interpreting the report. Interpret the report in layman understandable
form in just 2-3 lines, not more than that, and do not write anything else
other than the interpretation. If you think that the disease they think they
are suffering from does not match the report, you can mention that as well and
recommend the possible diseases. In case the Context is not beneficial, you
can ignore it and answer from your own knowledge.

Context: %s
Type: %s
Disease: %s
Report: %s
Random Context (it can be wrong): %s
Answer:
`

type webOut struct {
	digest cache.Digest
	err    error
}

type vecOut struct {
	context string
	probes  []string
	err     error
}

// Interpret produces the final interpretation for one report.
func (i *Interpreter) Interpret(ctx context.Context, testName, reportText, disease string) (Result, error) {
	cached, cacheErr := i.Cache.Get(ctx, testName)
	cacheHit := cacheErr == nil
	if cacheErr != nil && !errors.Is(cacheErr, cache.ErrNotFound) {
		// A broken cache only costs a web search.
		log.Printf("interpret: cache lookup %q: %v", testName, cacheErr)
	}

	var (
		wg  sync.WaitGroup
		web webOut
		vec vecOut
	)

	// On a cache hit the web branch is never invoked for this request.
	if !cacheHit {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bctx, cancel := i.branchContext(ctx)
			defer cancel()
			web.digest, web.err = i.Web.BuildDigest(bctx, testName)
		}()
	} else {
		web.digest = cached
		log.Printf("interpret: cache hit for %q, skipping web search", testName)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		bctx, cancel := i.branchContext(ctx)
		defer cancel()
		vec.context, vec.probes, vec.err = i.Vector.Retrieve(bctx, testName, reportText, disease)
	}()

	// Join barrier: both branches are always awaited, even when one fails,
	// so no background work outlives the request.
	wg.Wait()

	if web.err != nil && vec.err != nil {
		return Result{}, fmt.Errorf("%w: web: %v; vector: %v", ErrRetrievalFailed, web.err, vec.err)
	}
	if web.err != nil {
		log.Printf("interpret: web branch degraded for %q: %v", testName, web.err)
		web.digest = cache.Digest{TestName: testName}
	}
	if vec.err != nil {
		log.Printf("interpret: vector branch degraded for %q: %v", testName, vec.err)
		vec.context, vec.probes = "", nil
	}

	filtered, err := i.filter(ctx, testName, reportText, vec.context, web.digest.SummaryText)
	if err != nil {
		return Result{}, err
	}
	text, err := i.synthesize(ctx, testName, reportText, disease, filtered, vec.probes)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, errors.New("generation service returned an empty interpretation")
	}
	return Result{Text: strings.TrimSpace(text)}, nil
}

// filter keeps only context paragraphs relevant to the test and its ranges.
// With no context at all there is nothing to filter.
func (i *Interpreter) filter(ctx context.Context, testName, reportText, vecContext, webDigest string) (string, error) {
	if strings.TrimSpace(vecContext) == "" && strings.TrimSpace(webDigest) == "" {
		return "", nil
	}
	defaults := i.Ranges.Lookup(testName)
	if defaults == "" {
		defaults = "not provided; rely on ranges embedded in the report"
	}
	prompt := fmt.Sprintf(filterPrompt,
		testName, reportText, defaults, vecContext, webDigest, testName, testName)
	out, err := i.Gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("context filter: %w", err)
	}
	return out, nil
}

func (i *Interpreter) synthesize(ctx context.Context, testName, reportText, disease, filtered string, probes []string) (string, error) {
	if strings.TrimSpace(filtered) == "" {
		filtered = "no additional context available; answer from your own knowledge"
	}
	out, err := i.Gen.GenerateText(ctx, fmt.Sprintf(synthesizePrompt,
		filtered, testName, disease, reportText, strings.Join(probes, "\n")))
	if err != nil {
		return "", fmt.Errorf("synthesize interpretation: %w", err)
	}
	return out, nil
}

func (i *Interpreter) branchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := i.BranchTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
