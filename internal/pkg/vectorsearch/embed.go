package vectorsearch

import (
	"strings"
	"unicode"
)

// Dimensions is the fixed length of every embedding vector. Tokens are
// hashed into this many buckets; collisions are possible and accepted.
const Dimensions = 384

// Embed maps text to a fixed-length term-count vector: lower-case, split on
// non-word runs, hash each token into a bucket with a deterministic 32-bit
// rolling hash, accumulate counts. This is a hashed bag-of-words feature
// map, not a semantic embedding.
func Embed(text string) []float64 {
	vec := make([]float64, Dimensions)
	for _, token := range tokenize(text) {
		vec[int(hashToken(token)%Dimensions)]++
	}
	return vec
}

// Embedder produces document vectors. The hashed bag-of-words implementation
// is the only one shipped; the interface exists so a hosted embedding model
// can be swapped in without touching the search path.
type Embedder interface {
	Embed(text string) []float64
}

// LocalEmbedder implements Embedder with the hashed bag-of-words map.
type LocalEmbedder struct{}

func (LocalEmbedder) Embed(text string) []float64 {
	return Embed(text)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// hashToken is a 31-multiplier rolling hash over the token bytes, kept at
// 32 bits so bucket assignment is identical on every platform.
func hashToken(token string) uint32 {
	var h uint32
	for i := 0; i < len(token); i++ {
		h = h*31 + uint32(token[i])
	}
	return h
}
