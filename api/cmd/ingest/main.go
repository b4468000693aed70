// Command ingest loads reference documents into the vector index:
// it chunks each file, embeds the chunks, and upserts them into Qdrant.
package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lab-interpreter/api/internal/chunk"
	"lab-interpreter/api/internal/embed"
	"lab-interpreter/api/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	path := flag.String("path", "", "file or directory with .txt/.md documents")
	maxTokens := flag.Int("chunk", 4500, "max tokens per chunk")
	batch := flag.Int("batch", 64, "points per upsert request")
	flag.Parse()

	if *path == "" {
		log.Fatal("usage: ingest -path <file-or-dir> [-chunk N] [-batch N]")
	}

	files, err := gatherFiles(*path)
	if err != nil {
		log.Fatal(err)
	}
	if len(files) == 0 {
		log.Fatalf("no .txt or .md files under %s", *path)
	}

	client := embed.NewClient(embed.Config{
		BaseURL: getEnv("EMBED_BASE_URL", "https://api.openai.com/v1"),
		APIKey:  os.Getenv("EMBED_API_KEY"),
		Model:   getEnv("EMBED_MODEL", "text-embedding-3-small"),
	})
	store := qdrant.NewStorage(qdrant.Config{
		URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		Collection: getEnv("QDRANT_COLLECTION", "medical-data"),
	})

	ctx := context.Background()
	initialized := false
	total := 0
	start := time.Now()

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		chunks := chunk.Split(string(data), *maxTokens, nil)
		if len(chunks) == 0 {
			log.Printf("%s: empty, skipped", f)
			continue
		}

		for lo := 0; lo < len(chunks); lo += *batch {
			hi := lo + *batch
			if hi > len(chunks) {
				hi = len(chunks)
			}
			texts := chunks[lo:hi]
			vectors := make([][]float64, len(texts))
			for i, t := range texts {
				v, err := client.Embed(ctx, t)
				if err != nil {
					log.Fatalf("embed %s chunk %d: %v", f, lo+i, err)
				}
				vectors[i] = v
			}
			if !initialized {
				if err := store.Init(ctx, client.Dimension()); err != nil {
					log.Fatalf("init collection: %v", err)
				}
				initialized = true
			}
			if err := store.Upsert(ctx, texts, vectors); err != nil {
				log.Fatalf("upsert %s: %v", f, err)
			}
			total += len(texts)
		}
		log.Printf("%s: %d chunks", f, len(chunks))
	}

	log.Printf("done: %d chunks from %d files in %v", total, len(files), time.Since(start).Round(time.Second))
}

func gatherFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".txt", ".md":
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
