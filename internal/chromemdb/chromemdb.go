package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"document-chatbot/internal/config"
	"document-chatbot/internal/helper"
	"document-chatbot/internal/models"
)

const (
	defaultCollectionName = "documents"
	indexFileName         = "index.gob"

	metaSeq    = "seq"
	metaVector = "vector"
)

// Options control where and how an index is written
type Options struct {
	CollectionName string
	EncryptionKey  string
	Compress       bool
}

// OptionsFromConfig picks the index options out of the RAG config
func OptionsFromConfig(cfg config.RAGConfig) Options {
	return Options{
		CollectionName: cfg.CollectionName,
		EncryptionKey:  cfg.EncryptionKey,
		Compress:       cfg.Compress,
	}
}

func (o Options) withDefaults() Options {
	if o.CollectionName == "" {
		o.CollectionName = defaultCollectionName
	}
	return o
}

// fileName follows chromem-go's naming for compressed and encrypted exports
func (o Options) fileName() string {
	name := indexFileName
	if o.Compress {
		name += ".gz"
	}
	if o.EncryptionKey != "" {
		name += ".enc"
	}
	return name
}

// Entry is one indexed chunk
type Entry struct {
	ID     string
	Text   string
	Vector []float32
}

// Index holds the chunks of one ingest in a chromem-go collection. Entry IDs
// are the insertion sequence.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	entries    []Entry
	opts       Options
}

// Build creates an in-memory index from chunks and their vectors
func Build(ctx context.Context, chunks []string, vectors [][]float32, opts Options) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors", models.ErrLengthMismatch, len(chunks), len(vectors))
	}
	opts = opts.withDefaults()

	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(opts.CollectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	entries := make([]Entry, len(chunks))
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		id := strconv.Itoa(i)
		vector := append([]float32(nil), vectors[i]...)
		entries[i] = Entry{ID: id, Text: chunk, Vector: vector}
		// chromem normalises stored embeddings, so the raw vector rides along in metadata
		docs[i] = chromem.Document{
			ID:        id,
			Content:   chunk,
			Embedding: append([]float32(nil), vector...),
			Metadata: map[string]string{
				metaSeq:    id,
				metaVector: encodeVector(vector),
			},
		}
	}

	if len(docs) > 0 {
		if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("failed to add documents: %w", err)
		}
	}

	return &Index{db: db, collection: collection, entries: entries, opts: opts}, nil
}

// Load reads the index saved at location. It fails with
// models.ErrIndexNotFound when nothing has been saved there yet.
func Load(ctx context.Context, location string, opts Options) (*Index, error) {
	opts = opts.withDefaults()
	path := filepath.Join(location, opts.fileName())
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrIndexNotFound, location)
		}
		return nil, fmt.Errorf("failed to stat index: %w", err)
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(path, opts.EncryptionKey, opts.CollectionName); err != nil {
		return nil, fmt.Errorf("failed to import index: %w", err)
	}
	collection := db.GetCollection(opts.CollectionName, nil)
	if collection == nil {
		return nil, fmt.Errorf("%w: no collection %q in %s", models.ErrIndexNotFound, opts.CollectionName, location)
	}

	count := collection.Count()
	entries := make([]Entry, count)
	for i := 0; i < count; i++ {
		doc, err := collection.GetByID(ctx, strconv.Itoa(i))
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %d: %w", i, err)
		}
		vector, err := decodeVector(doc.Metadata[metaVector])
		if err != nil {
			return nil, fmt.Errorf("failed to decode vector of entry %d: %w", i, err)
		}
		entries[i] = Entry{ID: doc.ID, Text: doc.Content, Vector: vector}
	}

	log.Debug().Str("path", path).Int("entries", count).Msg("Loaded index")
	return &Index{db: db, collection: collection, entries: entries, opts: opts}, nil
}

// Save replaces whatever index is stored at location. The export goes to a
// temp file in the same directory that is synced and renamed into place, so a
// reader sees either the old or the new index, never a partial one.
func (idx *Index) Save(location string) (err error) {
	if err := helper.CreateFolder(location); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(location, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if err := idx.db.ExportToFile(tmpPath, idx.opts.Compress, idx.opts.EncryptionKey, idx.opts.CollectionName); err != nil {
		return fmt.Errorf("failed to export index: %w", err)
	}
	if err := syncFile(tmpPath); err != nil {
		return err
	}

	target := filepath.Join(location, idx.opts.fileName())
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("failed to replace index: %w", err)
	}
	if err := syncFile(location); err != nil {
		log.Warn().Err(err).Str("location", location).Msg("Could not sync index directory")
	}

	log.Debug().Str("path", target).Int("entries", len(idx.entries)).Msg("Saved index")
	return nil
}

// Search returns the k entries most similar to query, best first. Equal
// scores keep insertion order. k is clamped to the index size.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	count := idx.collection.Count()
	if count == 0 || k <= 0 {
		return []models.SearchResult{}, nil
	}
	k = min(k, count)

	// rank everything so ties at the cut-off are decided by insertion order
	results, err := idx.collection.QueryEmbedding(ctx, query, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	seq := func(r chromem.Result) int {
		n, _ := strconv.Atoi(r.Metadata[metaSeq])
		return n
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return seq(results[i]) < seq(results[j])
	})

	out := make([]models.SearchResult, k)
	for i := range out {
		out[i] = models.SearchResult{
			ID:    results[i].ID,
			Text:  results[i].Content,
			Score: float64(results[i].Similarity),
		}
	}
	return out, nil
}

// Entries returns a copy of the indexed chunks in insertion order
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = Entry{ID: e.ID, Text: e.Text, Vector: append([]float32(nil), e.Vector...)}
	}
	return out
}

// Len returns the number of indexed chunks
func (idx *Index) Len() int {
	return len(idx.entries)
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for sync: %w", path, err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return nil
}
