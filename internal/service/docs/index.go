// Package docs serves policy and FAQ documents to the search_documents tool.
package docs

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

const (
	chunkSize    = 500
	chunkOverlap = 50
	defaultTopK  = 3
	embedBatch   = 16
)

var extensions = map[string]bool{".txt": true, ".md": true}

type chunk struct {
	id     string
	source string
	text   string
	tokens map[string]struct{}
	vector []float64
}

// Index is an in-memory retriever over a document directory. With an
// embedder it ranks chunks by cosine similarity, otherwise by shared words.
type Index struct {
	dir      string
	embedder embedding.Embedder
	log      zerolog.Logger

	mu       sync.RWMutex
	chunks   []chunk
	semantic bool
}

var _ retriever.Retriever = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithEmbedder enables similarity search through e.
func WithEmbedder(e embedding.Embedder) Option {
	return func(idx *Index) { idx.embedder = e }
}

// NewIndex creates an empty index over dir. Call Load to read the files.
func NewIndex(dir string, log zerolog.Logger, opts ...Option) *Index {
	idx := &Index{dir: dir, log: log.With().Str("component", "docs").Str("dir", dir).Logger()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Load (re)reads every document under the directory and swaps the index.
// When embedding fails the new index falls back to keyword ranking.
func (idx *Index) Load(ctx context.Context) error {
	var chunks []chunk
	err := filepath.WalkDir(idx.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, _ := filepath.Rel(idx.dir, path)
		for i, text := range split(string(data), chunkSize, chunkOverlap) {
			chunks = append(chunks, chunk{
				id:     fmt.Sprintf("%s#%d", rel, i),
				source: rel,
				text:   text,
				tokens: tokenSet(text),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	semantic := false
	if idx.embedder != nil && len(chunks) > 0 {
		if err := idx.embed(ctx, chunks); err != nil {
			idx.log.Warn().Err(err).Msg("embedding failed, using keyword ranking")
		} else {
			semantic = true
		}
	}

	idx.mu.Lock()
	idx.chunks = chunks
	idx.semantic = semantic
	idx.mu.Unlock()

	idx.log.Info().Int("chunks", len(chunks)).Bool("semantic", semantic).Msg("document index loaded")
	return nil
}

// embed fills the vector of every chunk, or none of them.
func (idx *Index) embed(ctx context.Context, chunks []chunk) error {
	vectors := make([][]float64, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatch {
		end := min(start+embedBatch, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.text)
		}

		out, err := idx.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(out) != len(texts) {
			return fmt.Errorf("embed chunks: got %d vectors for %d texts", len(out), len(texts))
		}
		vectors = append(vectors, out...)
	}

	for i := range chunks {
		chunks[i].vector = vectors[i]
	}
	return nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

type hit struct {
	pos   int
	score float64
}

// Retrieve returns the topK chunks closest to query.
func (idx *Index) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := defaultTopK
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &topK}, opts...)
	if options.TopK != nil && *options.TopK > 0 {
		topK = *options.TopK
	}

	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	idx.mu.RLock()
	semantic := idx.semantic
	idx.mu.RUnlock()

	var queryVector []float64
	if semantic {
		out, err := idx.embedder.EmbedStrings(ctx, []string{query})
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		if len(out) != 1 {
			return nil, fmt.Errorf("embed query: got %d vectors", len(out))
		}
		queryVector = out[0]
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []hit
	// A reload may have replaced the chunks while the query was embedded.
	if queryVector != nil && idx.semantic {
		hits = idx.similar(queryVector)
	} else {
		hits = idx.overlapping(tokenSet(query))
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]*schema.Document, 0, len(hits))
	for _, h := range hits {
		c := idx.chunks[h.pos]
		doc := &schema.Document{
			ID:       c.id,
			Content:  c.text,
			MetaData: map[string]any{"source": c.source},
		}
		out = append(out, doc.WithScore(h.score))
	}
	return out, nil
}

func (idx *Index) similar(query []float64) []hit {
	var hits []hit
	for i, c := range idx.chunks {
		if score := cosine(query, c.vector); score > 0 {
			hits = append(hits, hit{pos: i, score: score})
		}
	}
	return hits
}

func (idx *Index) overlapping(terms map[string]struct{}) []hit {
	if len(terms) == 0 {
		return nil
	}

	var hits []hit
	for i, c := range idx.chunks {
		matched := 0
		for term := range terms {
			if _, ok := c.tokens[term]; ok {
				matched++
			}
		}
		if matched > 0 {
			hits = append(hits, hit{pos: i, score: float64(matched) / float64(len(terms))})
		}
	}
	return hits
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// split cuts text into windows of at most size runes that overlap by
// overlap runes, preferring to break on whitespace.
func split(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var out []string
	for start := 0; start < len(runes); {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes[start:end]); cut > size/2 {
			end = start + cut
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}
