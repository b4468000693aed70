package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"lab-interpreter/api/internal/cache"
	"lab-interpreter/api/internal/config"
	"lab-interpreter/api/internal/embed"
	"lab-interpreter/api/internal/extract"
	"lab-interpreter/api/internal/fetch"
	"lab-interpreter/api/internal/handle"
	"lab-interpreter/api/internal/interpret"
	"lab-interpreter/api/internal/llm"
	"lab-interpreter/api/internal/ranges"
	"lab-interpreter/api/internal/search"
	"lab-interpreter/api/internal/vecknow"
	"lab-interpreter/api/internal/vectorstore/qdrant"
	"lab-interpreter/api/internal/webknow"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	} else if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = "8001"
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()
	{
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pctx); err != nil {
			log.Fatalf("db.Ping: %v", err)
		}
	}

	digests := cache.NewPostgres(pool)
	if err := digests.EnsureSchema(ctx); err != nil {
		log.Fatalf("cache schema: %v", err)
	}

	tbl, err := ranges.Load(cfg.RangesFile)
	if err != nil {
		log.Fatalf("ranges.Load: %v", err)
	}

	engine := llm.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiVisionModel)

	extractor := &extract.Extractor{
		Vision:         engine,
		MaxAttempts:    cfg.ExtractMaxAttempts,
		RetryTransient: cfg.ExtractRetryTransient,
	}

	web := &webknow.Branch{
		Search:         search.NewClient(cfg.SerperAPIKey),
		Fetch:          fetch.NewClient(),
		Gen:            engine,
		Cache:          digests,
		ResultCount:    cfg.SearchResultCount,
		MaxChunkTokens: cfg.ChunkMaxTokens,
	}

	vector := &vecknow.Branch{
		Gen: engine,
		Embed: embed.NewClient(embed.Config{
			BaseURL: cfg.EmbedBaseURL,
			APIKey:  cfg.EmbedAPIKey,
			Model:   cfg.EmbedModel,
		}),
		Index: qdrant.NewStorage(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		}),
		TopK: cfg.RetrievalTopK,
	}

	interp := &interpret.Interpreter{
		Cache:         digests,
		Web:           web,
		Vector:        vector,
		Gen:           engine,
		Ranges:        tbl,
		BranchTimeout: cfg.BranchTimeout,
	}

	h := handle.New(extractor, interp)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		pctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/report/extract", h.Extract)
	mux.HandleFunc("/v1/report/interpret", h.Interpret)

	addr := ":" + cfg.Port
	log.Printf("lab-interpreter listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
