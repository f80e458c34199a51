// Package lexical provides a stateless sparse encoder. Terms are hashed
// into a 32-bit index space, so no vocabulary has to be built or stored.
package lexical

import (
	"math"
	"regexp"
	"strings"

	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/fingerprint"
)

// Ensure Encoder implements the interface.
var _ driven.SparseEncoder = (*Encoder)(nil)

// Encoder maps text to log-scaled, L2-normalised term frequencies.
type Encoder struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEncoder creates a sparse encoder with the default English stopwords.
func NewEncoder() *Encoder {
	return &Encoder{
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this encoder.
func (e *Encoder) Name() string { return "lexical" }

// EncodeSparse returns the sparse vector of text. Text without any
// indexable term yields an empty map.
func (e *Encoder) EncodeSparse(text string) map[uint32]float32 {
	tf := make(map[uint32]int)
	for _, tok := range e.Tokenize(text) {
		tf[fingerprint.Term(tok)]++
	}

	vec := make(map[uint32]float32, len(tf))
	if len(tf) == 0 {
		return vec
	}

	weights := make(map[uint32]float64, len(tf))
	norm := 0.0
	for idx, count := range tf {
		w := 1 + math.Log(float64(count))
		weights[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for idx, w := range weights {
		vec[idx] = float32(w / norm)
	}
	return vec
}

// Tokenize lowercases text and returns its terms without stopwords.
func (e *Encoder) Tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that",
		"these", "those", "from", "into", "about", "than", "so", "such", "do", "does", "did", "can",
		"will", "would", "should", "what", "which", "who", "how", "i", "you", "we", "me", "my",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
