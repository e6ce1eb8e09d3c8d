package vectorsearch

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/queryhub/QueryHub/app/models"
)

// DefaultTopK bounds result counts when the caller does not specify one.
const DefaultTopK = 5

// Result pairs a document with its similarity score.
type Result struct {
	Document models.KnowledgeDocument `json:"document"`
	Score    float64                  `json:"score"`
}

// DocumentSource loads the full candidate set for one user. The repository
// layer implements this; tests use in-memory fakes.
type DocumentSource interface {
	GetByUserID(userID uint) ([]models.KnowledgeDocument, error)
}

// Searcher ranks a user's documents against a query by cosine similarity.
// The whole document set is loaded into memory for every query; there is no
// index structure. Purely a ranking heuristic, no semantic relevance is
// guaranteed.
type Searcher struct {
	docs     DocumentSource
	embedder Embedder
}

// NewSearcher creates a searcher over the given document source.
func NewSearcher(docs DocumentSource) *Searcher {
	return &Searcher{docs: docs, embedder: LocalEmbedder{}}
}

// NewSearcherWithEmbedder creates a searcher with a custom embedder.
func NewSearcherWithEmbedder(docs DocumentSource, embedder Embedder) *Searcher {
	return &Searcher{docs: docs, embedder: embedder}
}

// Search embeds the query, scores every stored document and returns at most
// topK results sorted by descending similarity. Ties keep storage iteration
// order (stable sort over the insertion-ordered snapshot).
func (s *Searcher) Search(userID uint, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	docs, err := s.docs.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	queryVec := s.embedder.Embed(query)

	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		vec, err := DecodeVector(doc.EmbeddingJSON)
		if err != nil {
			// A row with a corrupt vector is skipped, not fatal.
			continue
		}
		results = append(results, Result{
			Document: doc,
			Score:    CosineSimilarity(queryVec, vec),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
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

// EncodeVector serializes a vector for column storage.
func EncodeVector(vec []float64) (string, error) {
	data, err := json.Marshal(vec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeVector deserializes a stored vector.
func DecodeVector(raw string) ([]float64, error) {
	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, err
	}
	return vec, nil
}
