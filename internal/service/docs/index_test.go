package docs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// topicEmbedder maps texts onto fixed topic axes so that synonyms land
// close together.
type topicEmbedder struct {
	calls int
	err   error
}

var topics = [][]string{
	{"iade", "geri"},
	{"kargo", "teslimat", "gönderi"},
	{"garanti"},
}

func (e *topicEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := make([]float64, len(topics))
		for axis, words := range topics {
			for _, w := range words {
				if strings.Contains(lower, w) {
					vec[axis]++
				}
			}
		}
		out[i] = vec
	}
	return out, nil
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "iade.md", "İade politikası: ürünler 14 gün içinde iade edilebilir.")
	writeDoc(t, dir, "kargo.txt", "Kargo süresi genellikle 2 iş günüdür.")

	embedder := &topicEmbedder{}
	idx := NewIndex(dir, zerolog.Nop(), WithEmbedder(embedder))
	require.NoError(t, idx.Load(context.Background()))

	// No word of the query appears in the policy text.
	docs, err := idx.Retrieve(context.Background(), "Ürünü geri yollayabilir miyim?")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "iade.md", docs[0].MetaData["source"])
	assert.InDelta(t, 1.0, docs[0].Score(), 1e-9)
	assert.Equal(t, 2, embedder.calls)
}

func TestLoadFallsBackToKeywordsWhenEmbeddingFails(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "kargo.txt", "Kargo süresi 2 iş günüdür.")

	embedder := &topicEmbedder{err: errors.New("quota exceeded")}
	idx := NewIndex(dir, zerolog.Nop(), WithEmbedder(embedder))
	require.NoError(t, idx.Load(context.Background()))

	docs, err := idx.Retrieve(context.Background(), "kargo süresi")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, embedder.calls)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.Zero(t, cosine([]float64{1, 0}, []float64{0, 1}))
	assert.Zero(t, cosine([]float64{1}, []float64{1, 2}))
	assert.Zero(t, cosine([]float64{0, 0}, []float64{1, 1}))
}

func TestRetrieveRanksByOverlap(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "iade.md", "İade politikası: ürünler teslimattan sonra 14 gün içinde iade edilebilir.")
	writeDoc(t, dir, "kargo.txt", "Kargo süresi genellikle 2 iş günüdür.")
	writeDoc(t, dir, "notes.pdf", "iade iade iade")

	idx := NewIndex(dir, zerolog.Nop())
	require.NoError(t, idx.Load(context.Background()))
	assert.Equal(t, 2, idx.Len())

	docs, err := idx.Retrieve(context.Background(), "İade politikası nedir?")
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Contains(t, docs[0].Content, "14 gün")
	assert.Equal(t, "iade.md", docs[0].MetaData["source"])
	assert.Greater(t, docs[0].Score(), 0.0)
}

func TestRetrieveHonoursTopK(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeDoc(t, dir, name, "garanti süresi iki yıldır")
	}

	idx := NewIndex(dir, zerolog.Nop())
	require.NoError(t, idx.Load(context.Background()))

	docs, err := idx.Retrieve(context.Background(), "garanti", retriever.WithTopK(2))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestRetrieveWithoutMatches(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "kargo.txt", "Kargo süresi 2 iş günüdür.")

	idx := NewIndex(dir, zerolog.Nop())
	require.NoError(t, idx.Load(context.Background()))

	docs, err := idx.Retrieve(context.Background(), "taksit")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadMissingDirectory(t *testing.T) {
	idx := NewIndex(filepath.Join(t.TempDir(), "missing"), zerolog.Nop())
	assert.Error(t, idx.Load(context.Background()))
	assert.Zero(t, idx.Len())
}

func TestSplitOverlaps(t *testing.T) {
	text := strings.Repeat("kelime ", 200)
	chunks := split(text, chunkSize, chunkOverlap)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), chunkSize)
	}
	first := []rune(chunks[0])
	tail := string(first[len(first)-20:])
	assert.Contains(t, chunks[1], strings.TrimSpace(tail))
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "kargo.txt", "Kargo süresi 2 iş günüdür.")

	idx := NewIndex(dir, zerolog.Nop())
	require.NoError(t, idx.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- idx.Watch(ctx) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeDoc(t, dir, "garanti.md", "Garanti süresi iki yıldır.")

	assert.Eventually(t, func() bool { return idx.Len() == 2 }, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
