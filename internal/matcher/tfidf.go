package matcher

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// wordPattern matches runs of two or more word characters.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(norm.NFKC.String(text)), -1)
}

// tfidfScores fits a TF-IDF model on the query plus documents and returns the
// cosine similarity of the query to each document. It reports false when the
// corpus has no vocabulary.
func tfidfScores(query string, documents []string) ([]float64, bool) {
	corpus := make([][]string, 0, len(documents)+1)
	corpus = append(corpus, tokenize(query))
	for _, doc := range documents {
		corpus = append(corpus, tokenize(doc))
	}

	df := make(map[string]int)
	for _, tokens := range corpus {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, false
	}

	n := float64(len(corpus))
	idf := make(map[string]float64, len(df))
	for tok, count := range df {
		idf[tok] = math.Log((1+n)/(1+float64(count))) + 1
	}

	vectors := make([]map[string]float64, len(corpus))
	for i, tokens := range corpus {
		vectors[i] = weigh(tokens, idf)
	}

	scores := make([]float64, len(documents))
	for i := range documents {
		scores[i] = dot(vectors[0], vectors[i+1])
	}
	return scores, true
}

// weigh returns the L2-normalized tf-idf vector of tokens.
func weigh(tokens []string, idf map[string]float64) map[string]float64 {
	vec := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		vec[tok]++
	}
	var norm2 float64
	for tok, tf := range vec {
		w := tf * idf[tok]
		vec[tok] = w
		norm2 += w * w
	}
	if norm2 == 0 {
		return vec
	}
	length := math.Sqrt(norm2)
	for tok := range vec {
		vec[tok] /= length
	}
	return vec
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for tok, w := range a {
		sum += w * b[tok]
	}
	return sum
}

func lexicalTokens(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ReplaceAll(text, "-", " ")) {
		tokens[strings.ToLower(tok)] = struct{}{}
	}
	return tokens
}

func jaccard(a, b map[string]struct{}) float64 {
	var overlap int
	for tok := range a {
		if _, ok := b[tok]; ok {
			overlap++
		}
	}
	union := len(a) + len(b) - overlap
	if union == 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}
