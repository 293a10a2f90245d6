package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/taxtaxi/tariffd/internal/domain"
	domcorpus "github.com/taxtaxi/tariffd/internal/domain/corpus"
	corpusrepo "github.com/taxtaxi/tariffd/internal/repository/corpus"
)

const (
	formatJSONL = "jsonl"
	formatUSITC = "usitc"

	maxJSONLLine = 1 << 20
)

// corpusRecord is one line of a JSONL corpus file. Records without an id
// get a generated one.
type corpusRecord struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	HTSCode  string `json:"hts_code"`
}

func runIndex(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	var (
		file   = fs.String("file", "", "corpus file to ingest")
		format = fs.String("format", "", "input format: jsonl or usitc (default: by extension)")
		purge  = fs.Bool("purge", false, "drop existing documents before ingest")
		dryRun = fs.Bool("dry-run", false, "parse and report without touching the database")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("index: -file is required")
	}

	start := time.Now()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	docs, inherited, err := stageLoad(*file, *format)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("index: no indexable documents in %s", *file)
	}
	if *dryRun {
		log.Printf("dry run: %d documents parsed (%d with inherited duty rates), nothing written",
			len(docs), inherited)
		return nil
	}

	logger, err := newCLILogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	vec, provName, err := configuredVectorizer(cfg.Embedding)
	if err != nil {
		return err
	}

	log.Println("=== Stage 2: Connect ===")
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Printf("embedding family: %s/%s (%d dims)", vec.Provider, vec.Model, vec.Dimensions)

	repo := corpusrepo.New(store, vec).WithHNSW(corpusrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if *purge {
		n, err := repo.Purge(ctx)
		if err != nil {
			return fmt.Errorf("purge corpus: %w", err)
		}
		log.Printf("purged %d existing documents", n)
	}
	if err := repo.EnsureIndex(ctx); err != nil {
		if errors.Is(err, domain.ErrVectorizerMismatch) {
			return fmt.Errorf("ensure index: %w (rebuild with -purge after an embedding family change)", err)
		}
		return fmt.Errorf("ensure index: %w", err)
	}

	embedder, err := buildDocEmbedder(cfg, provName, vec, store, logger)
	if err != nil {
		return err
	}

	indexed, tokens, err := stageEmbed(ctx, repo, embedder, docs, cfg.Index.MaxBatchSize)
	if err != nil {
		return err
	}

	meta := corpusrepo.Meta{
		Provider:   vec.Provider,
		Model:      vec.Model,
		Dimensions: vec.Dimensions,
		BuiltAt:    time.Now().UTC().Format(time.RFC3339),
		Documents:  indexed,
	}
	if err := repo.WriteMeta(ctx, meta); err != nil {
		return fmt.Errorf("write index metadata: %w", err)
	}

	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	log.Printf("%s %d documents indexed (%d inherited duty rates, %d embedding tokens) in %s",
		green("done:"), indexed, inherited, tokens, time.Since(start).Round(time.Millisecond))
	return nil
}

func stageLoad(path, format string) ([]domcorpus.Document, int, error) {
	log.Println("=== Stage 1: Load ===")

	if format == "" {
		if strings.EqualFold(filepath.Ext(path), ".jsonl") {
			format = formatJSONL
		} else {
			format = formatUSITC
		}
	}

	var (
		docs      []domcorpus.Document
		inherited int
		err       error
	)
	switch format {
	case formatJSONL:
		docs, err = loadJSONL(path)
	case formatUSITC:
		docs, inherited, err = loadUSITC(path)
	default:
		return nil, 0, fmt.Errorf("index: unknown format %q", format)
	}
	if err != nil {
		return nil, 0, err
	}

	log.Printf("parsed %d documents from %s (%s)", len(docs), path, format)
	return docs, inherited, nil
}

func loadJSONL(path string) ([]domcorpus.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus file: %w", err)
	}
	defer f.Close()

	var docs []domcorpus.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec corpusRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}

		doc, err := domcorpus.New(rec.ID, rec.SourceID, rec.Title, rec.Excerpt, rec.HTSCode)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	return docs, nil
}

// stageEmbed vectorizes and upserts documents in batches sized for the
// store, not the embedding API (the embedder chunks API calls itself).
// Returns the number of documents written and the tokens consumed.
func stageEmbed(
	ctx context.Context,
	repo *corpusrepo.Repo,
	embedder domain.BatchEmbedder,
	docs []domcorpus.Document,
	batchSize int,
) (int, int, error) {
	log.Println("=== Stage 3: Embed and upsert ===")
	if batchSize <= 0 {
		batchSize = 100
	}

	indexed, tokens := 0, 0
	for from := 0; from < len(docs); from += batchSize {
		to := min(from+batchSize, len(docs))
		batch := docs[from:to]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].EmbeddingText()
		}

		res, err := embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return indexed, tokens, fmt.Errorf("embed batch %d-%d: %w", from, to, err)
		}
		if len(res.Embeddings) != len(batch) {
			return indexed, tokens, fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts",
				from, to, len(res.Embeddings), len(batch))
		}

		withVectors := make([]domcorpus.Document, len(batch))
		for i := range batch {
			withVectors[i] = batch[i].WithVector(res.Embeddings[i])
		}
		if err := repo.UpsertBatch(ctx, withVectors); err != nil {
			return indexed, tokens, fmt.Errorf("upsert batch %d-%d: %w", from, to, err)
		}

		indexed += len(batch)
		tokens += res.TotalTokens
		log.Printf("batch %d-%d upserted (%d/%d)", from, to, indexed, len(docs))
	}
	return indexed, tokens, nil
}
