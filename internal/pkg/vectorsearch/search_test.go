package vectorsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/queryhub/QueryHub/app/models"
)

type fakeDocumentSource struct {
	docs []models.KnowledgeDocument
	err  error
}

func (f *fakeDocumentSource) GetByUserID(userID uint) ([]models.KnowledgeDocument, error) {
	return f.docs, f.err
}

func mustDoc(t *testing.T, id uint, title, content string) models.KnowledgeDocument {
	t.Helper()
	raw, err := EncodeVector(Embed(content))
	if err != nil {
		t.Fatalf("encode vector: %v", err)
	}
	return models.KnowledgeDocument{ID: id, Title: title, Content: content, EmbeddingJSON: raw}
}

func TestEmbedDeterministic(t *testing.T) {
	a := Embed("machine learning for search pipelines")
	b := Embed("machine learning for search pipelines")
	assert.Equal(t, a, b)
	assert.Len(t, a, Dimensions)
}

func TestEmbedCaseInsensitive(t *testing.T) {
	a := Embed("Redis Queue Worker")
	b := Embed("redis queue worker")
	assert.Equal(t, a, b)
}

func TestEmbedEmptyText(t *testing.T) {
	vec := Embed("   \t \n ")
	assert.Len(t, vec, Dimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestCosineSimilaritySelf(t *testing.T) {
	vec := Embed("kubernetes cluster autoscaling guide")
	assert.InDelta(t, 1.0, CosineSimilarity(vec, vec), 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	vec := Embed("anything at all")
	zero := make([]float64, Dimensions)
	assert.Zero(t, CosineSimilarity(vec, zero))
	assert.Zero(t, CosineSimilarity(zero, zero))
}

func TestCosineSimilarityLengthMismatch(t *testing.T) {
	assert.Zero(t, CosineSimilarity([]float64{1, 0}, []float64{1, 0, 0}))
}

func TestSearchRanksByDescendingScore(t *testing.T) {
	source := &fakeDocumentSource{docs: []models.KnowledgeDocument{
		mustDoc(t, 1, "billing", "stripe invoices and subscription billing"),
		mustDoc(t, 2, "search", "vector search ranks documents by cosine similarity"),
		mustDoc(t, 3, "infra", "terraform modules for cloud infrastructure"),
	}}

	results, err := NewSearcher(source).Search(42, "cosine similarity vector search", 0)
	assert.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, uint(2), results[0].Document.ID)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestSearchTopKBound(t *testing.T) {
	docs := make([]models.KnowledgeDocument, 0, 8)
	for i := uint(1); i <= 8; i++ {
		docs = append(docs, mustDoc(t, i, "doc", "shared content for every document"))
	}
	source := &fakeDocumentSource{docs: docs}

	results, err := NewSearcher(source).Search(1, "shared content", 3)
	assert.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchDefaultTopK(t *testing.T) {
	docs := make([]models.KnowledgeDocument, 0, 9)
	for i := uint(1); i <= 9; i++ {
		docs = append(docs, mustDoc(t, i, "doc", "shared content for every document"))
	}
	source := &fakeDocumentSource{docs: docs}

	results, err := NewSearcher(source).Search(1, "shared content", 0)
	assert.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestSearchStableTieOrder(t *testing.T) {
	// Identical content embeds identically, so all scores tie and the
	// repository's id ASC order must survive the sort.
	docs := []models.KnowledgeDocument{
		mustDoc(t, 1, "first", "identical text"),
		mustDoc(t, 2, "second", "identical text"),
		mustDoc(t, 3, "third", "identical text"),
	}
	source := &fakeDocumentSource{docs: docs}

	results, err := NewSearcher(source).Search(1, "identical text", 10)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), results[0].Document.ID)
	assert.Equal(t, uint(2), results[1].Document.ID)
	assert.Equal(t, uint(3), results[2].Document.ID)
}

func TestSearchSkipsCorruptVectors(t *testing.T) {
	good := mustDoc(t, 1, "good", "valid document content")
	bad := models.KnowledgeDocument{ID: 2, Title: "bad", EmbeddingJSON: "{not json"}
	source := &fakeDocumentSource{docs: []models.KnowledgeDocument{good, bad}}

	results, err := NewSearcher(source).Search(1, "valid document", 10)
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, uint(1), results[0].Document.ID)
}
