package kb

import (
	"math"
	"regexp"
	"strings"
)

// tokenPattern matches runs of two or more Unicode letters, digits or
// underscores.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Index is an immutable TF-IDF index over the questions of a knowledge base.
type Index struct {
	pairs     []Pair
	vocab     map[string]int
	idf       []float64
	vectors   []sparseVector
	stopWords bool
}

type sparseVector map[int]float64

// NewIndex builds an index over pairs. Term weights use raw counts times a
// smoothed idf, ln((1+n)/(1+df))+1, and each vector is L2-normalized.
func NewIndex(pairs []Pair, stopWords bool) *Index {
	idx := &Index{
		pairs:     pairs,
		vocab:     make(map[string]int),
		stopWords: stopWords,
	}

	docs := make([][]string, len(pairs))
	var df []int
	for i, p := range pairs {
		docs[i] = idx.tokenize(p.Question)
		seen := make(map[int]bool)
		for _, tok := range docs[i] {
			id, ok := idx.vocab[tok]
			if !ok {
				id = len(idx.vocab)
				idx.vocab[tok] = id
				df = append(df, 0)
			}
			if !seen[id] {
				seen[id] = true
				df[id]++
			}
		}
	}

	n := float64(len(pairs))
	idx.idf = make([]float64, len(df))
	for id, d := range df {
		idx.idf[id] = math.Log((1+n)/(1+float64(d))) + 1
	}

	idx.vectors = make([]sparseVector, len(docs))
	for i, toks := range docs {
		idx.vectors[i] = idx.vectorize(toks)
	}
	return idx
}

// Len returns the number of indexed pairs.
func (idx *Index) Len() int {
	return len(idx.pairs)
}

// Best returns the position and cosine similarity of the question closest
// to query, or -1 when nothing shares a term with it.
func (idx *Index) Best(query string) (int, float64) {
	q := idx.vectorize(idx.tokenize(query))
	if len(q) == 0 {
		return -1, 0
	}

	best, bestScore := -1, 0.0
	for i, v := range idx.vectors {
		score := dot(q, v)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

func (idx *Index) tokenize(s string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(s), -1)
	if !idx.stopWords {
		return raw
	}
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := englishStopWords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

// vectorize ignores tokens outside the vocabulary.
func (idx *Index) vectorize(tokens []string) sparseVector {
	v := make(sparseVector)
	for _, tok := range tokens {
		if id, ok := idx.vocab[tok]; ok {
			v[id]++
		}
	}

	var norm float64
	for id, tf := range v {
		w := tf * idx.idf[id]
		v[id] = w
		norm += w * w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for id := range v {
		v[id] /= norm
	}
	return v
}

func dot(a, b sparseVector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float64
	for id, w := range a {
		sum += w * b[id]
	}
	return sum
}
