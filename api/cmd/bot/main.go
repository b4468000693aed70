package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"lab-interpreter/api/internal/cache"
	"lab-interpreter/api/internal/config"
	"lab-interpreter/api/internal/embed"
	"lab-interpreter/api/internal/extract"
	"lab-interpreter/api/internal/fetch"
	"lab-interpreter/api/internal/interpret"
	"lab-interpreter/api/internal/llm"
	"lab-interpreter/api/internal/ranges"
	"lab-interpreter/api/internal/search"
	"lab-interpreter/api/internal/telegram"
	"lab-interpreter/api/internal/vecknow"
	"lab-interpreter/api/internal/vectorstore/qdrant"
	"lab-interpreter/api/internal/webknow"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required for the bot")
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

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot: bot,
		Extractor: &extract.Extractor{
			Vision:         engine,
			MaxAttempts:    cfg.ExtractMaxAttempts,
			RetryTransient: cfg.ExtractRetryTransient,
		},
		Interpreter: &interpret.Interpreter{
			Cache: digests,
			Web: &webknow.Branch{
				Search:         search.NewClient(cfg.SerperAPIKey),
				Fetch:          fetch.NewClient(),
				Gen:            engine,
				Cache:          digests,
				ResultCount:    cfg.SearchResultCount,
				MaxChunkTokens: cfg.ChunkMaxTokens,
			},
			Vector: &vecknow.Branch{
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
			},
			Gen:           engine,
			Ranges:        tbl,
			BranchTimeout: cfg.BranchTimeout,
		},
	}

	http.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		pctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := "0.0.0.0:" + cfg.Port

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(addr, bot, r, webhookURL)
	} else {
		startPollingMode(addr, bot, r)
	}
}

func startWebhookMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	// tgbotapi.ListenForWebhook registers its handler on DefaultServeMux
	updates := bot.ListenForWebhook(path)

	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		log.Printf("webhook updates channel closed")
	}()

	log.Printf("webhook listening on %s%s", addr, path)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}

func startPollingMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router) {
	go func() {
		log.Printf("health server listening on %s/healthz", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Fatal(err)
		}
	}()

	runPolling(context.Background(), bot, r.HandleUpdate)
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Printf("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			log.Printf("polling error: %v; retry in %v", err, d)
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
