package interpret

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"lab-interpreter/api/internal/cache"
	"lab-interpreter/api/internal/ranges"
)

type fakeWeb struct {
	calls  atomic.Int32
	digest cache.Digest
	err    error
}

func (f *fakeWeb) BuildDigest(_ context.Context, testName string) (cache.Digest, error) {
	f.calls.Add(1)
	if f.err != nil {
		return cache.Digest{TestName: testName}, f.err
	}
	return f.digest, nil
}

type fakeVector struct {
	calls   atomic.Int32
	context string
	probes  []string
	err     error
}

func (f *fakeVector) Retrieve(context.Context, string, string, string) (string, []string, error) {
	f.calls.Add(1)
	return f.context, f.probes, f.err
}

type fakeGen struct {
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeGen) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply(prompt)
}

func echoGen() *fakeGen {
	return &fakeGen{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "extract only the most relevant") {
			return "filtered context paragraphs", nil
		}
		return "Your platelet count is low, which fits dengue; consult a doctor.", nil
	}}
}

func emptyRanges() *ranges.Table { return &ranges.Table{Tests: map[string]string{}} }

func newInterpreter(store cache.Store, web *fakeWeb, vec *fakeVector, gen *fakeGen) *Interpreter {
	return &Interpreter{Cache: store, Web: web, Vector: vec, Gen: gen, Ranges: emptyRanges()}
}

func TestInterpret_CacheHitSkipsWebBranch(t *testing.T) {
	store := cache.NewMemory()
	_ = store.Put(context.Background(), cache.Digest{TestName: "CBC", SummaryText: "cached digest"})

	web := &fakeWeb{}
	vec := &fakeVector{context: "- passage\n", probes: []string{"p1", "p2"}}
	gen := echoGen()
	in := newInterpreter(store, web, vec, gen)

	res, err := in.Interpret(context.Background(), "CBC", "Platelets 90000/µL", "Dengue")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if web.calls.Load() != 0 {
		t.Fatal("web branch must not run on a cache hit")
	}
	if vec.calls.Load() != 1 {
		t.Fatal("vector branch must always run")
	}
	if res.Text == "" {
		t.Fatal("empty interpretation")
	}
	// the cached digest reaches the filter
	joined := strings.Join(gen.prompts, "\n")
	if !strings.Contains(joined, "cached digest") {
		t.Fatal("cached digest missing from filter prompt")
	}
}

func TestInterpret_CacheMissRunsBothBranches(t *testing.T) {
	web := &fakeWeb{digest: cache.Digest{TestName: "CBC", SummaryText: "fresh digest"}}
	vec := &fakeVector{context: "- passage\n"}
	in := newInterpreter(cache.NewMemory(), web, vec, echoGen())

	if _, err := in.Interpret(context.Background(), "CBC", "report", "Dengue"); err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if web.calls.Load() != 1 || vec.calls.Load() != 1 {
		t.Fatalf("branch calls: web=%d vec=%d", web.calls.Load(), vec.calls.Load())
	}
}

func TestInterpret_BothBranchesFail(t *testing.T) {
	web := &fakeWeb{err: errors.New("search down")}
	vec := &fakeVector{err: errors.New("index down")}
	in := newInterpreter(cache.NewMemory(), web, vec, echoGen())

	_, err := in.Interpret(context.Background(), "CBC", "report", "Dengue")
	if !errors.Is(err, ErrRetrievalFailed) {
		t.Fatalf("err = %v, want ErrRetrievalFailed", err)
	}
}

func TestInterpret_SingleBranchFailureDegrades(t *testing.T) {
	for name, in := range map[string]*Interpreter{
		"web fails": newInterpreter(cache.NewMemory(),
			&fakeWeb{err: errors.New("search down")},
			&fakeVector{context: "- passage\n"},
			echoGen()),
		"vector fails": newInterpreter(cache.NewMemory(),
			&fakeWeb{digest: cache.Digest{TestName: "CBC", SummaryText: "digest"}},
			&fakeVector{err: errors.New("index down")},
			echoGen()),
	} {
		res, err := in.Interpret(context.Background(), "CBC", "report", "Dengue")
		if err != nil {
			t.Fatalf("%s: Interpret = %v, want degraded success", name, err)
		}
		if res.Text == "" {
			t.Fatalf("%s: empty interpretation", name)
		}
	}
}

func TestInterpret_EmptySourcesStillAnswer(t *testing.T) {
	// both knowledge sources come back empty without error: no filter call,
	// synthesis falls back to the model's own knowledge
	gen := &fakeGen{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "extract only the most relevant") {
			t.Fatal("filter must be skipped with no context")
		}
		return "General interpretation from model knowledge.", nil
	}}
	web := &fakeWeb{digest: cache.Digest{TestName: "CBC"}}
	vec := &fakeVector{}
	in := newInterpreter(cache.NewMemory(), web, vec, gen)

	res, err := in.Interpret(context.Background(), "CBC", "report", "")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Text != "General interpretation from model knowledge." {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestInterpret_DefaultRangesReachFilter(t *testing.T) {
	gen := echoGen()
	in := newInterpreter(cache.NewMemory(),
		&fakeWeb{digest: cache.Digest{TestName: "CBC", SummaryText: "digest"}},
		&fakeVector{}, gen)
	in.Ranges = &ranges.Table{Tests: map[string]string{"CBC": "Hemoglobin 12-16 g/dL"}}

	if _, err := in.Interpret(context.Background(), "CBC", "report", ""); err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if !strings.Contains(strings.Join(gen.prompts, "\n"), "Hemoglobin 12-16 g/dL") {
		t.Fatal("default ranges missing from filter prompt")
	}
}

func TestInterpret_ProbeTextPassedAsLowTrustHint(t *testing.T) {
	gen := echoGen()
	vec := &fakeVector{context: "- c\n", probes: []string{"probe one", "probe two"}}
	in := newInterpreter(cache.NewMemory(), &fakeWeb{}, vec, gen)

	if _, err := in.Interpret(context.Background(), "CBC", "report", "Dengue"); err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	last := gen.prompts[len(gen.prompts)-1]
	if !strings.Contains(last, "Random Context") || !strings.Contains(last, "probe one") {
		t.Fatalf("probe hint missing from synthesis prompt:\n%s", last)
	}
}

func TestInterpret_SynthesisErrorSurfaces(t *testing.T) {
	boom := errors.New("generation down")
	gen := &fakeGen{reply: func(string) (string, error) { return "", boom }}
	in := newInterpreter(cache.NewMemory(), &fakeWeb{}, &fakeVector{}, gen)

	if _, err := in.Interpret(context.Background(), "CBC", "report", ""); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped generation error", err)
	}
}
