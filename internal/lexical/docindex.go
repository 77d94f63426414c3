package lexical

import (
	"math"
	"sort"
	"strings"
)

// Phrase match weights for quoted query segments.
const (
	phraseTextWeight  = 3.0
	phraseTitleWeight = 2.0
)

// Document is a whole-document unit for keyword search with metadata
// fields. Empty fields are simply not indexed.
type Document struct {
	ID     string
	Text   string
	Title  string
	Author string
	Type   string
	Class  string
}

// FieldWeights maps field names to their postings weight. Matches in
// higher-weighted fields rank above incidental body matches without a
// separate scoring pass. Unknown field names are ignored.
type FieldWeights map[string]float64

// DefaultFieldWeights returns the standard weighting: title 3, author 2,
// type 2, class 1, text 1.
func DefaultFieldWeights() FieldWeights {
	return FieldWeights{
		"text":   1,
		"title":  3,
		"author": 2,
		"type":   2,
		"class":  1,
	}
}

// DocHit is one result from a document search.
type DocHit struct {
	ID      string
	Score   float64
	Snippet string
}

// DocIndex is a field-weighted inverted index over whole documents. Each
// term occurrence increments the posting by its field's weight at build
// time.
type DocIndex struct {
	docs     []Document
	postings map[string]map[int]float64 // term -> doc -> weighted count
	lengths  []int
	avgLen   float64
	vocab    []string
	stop     map[string]struct{}
}

// NewDocIndex builds a document index. Stop words apply to free-text
// scoring only; quoted phrases bypass tokenization entirely. Unknown keys
// in weights are ignored; missing keys fall back to the defaults.
func NewDocIndex(docs []Document, weights FieldWeights, stop map[string]struct{}) *DocIndex {
	defaults := DefaultFieldWeights()
	weightOf := func(field string) float64 {
		if weights != nil {
			if w, ok := weights[field]; ok {
				return w
			}
		}
		return defaults[field]
	}

	idx := &DocIndex{
		docs:     docs,
		postings: make(map[string]map[int]float64),
		lengths:  make([]int, len(docs)),
		stop:     stop,
	}

	totalLen := 0
	for i, doc := range docs {
		fields := []struct {
			text   string
			weight float64
		}{
			{doc.Text, weightOf("text")},
			{doc.Title, weightOf("title")},
			{doc.Author, weightOf("author")},
			{doc.Type, weightOf("type")},
			{doc.Class, weightOf("class")},
		}

		for _, f := range fields {
			if f.text == "" || f.weight == 0 {
				continue
			}
			for _, term := range Tokenize(f.text) {
				counts := idx.postings[term]
				if counts == nil {
					counts = make(map[int]float64)
					idx.postings[term] = counts
				}
				counts[i] += f.weight
			}
		}

		idx.lengths[i] = len(Tokenize(doc.Text))
		totalLen += idx.lengths[i]
	}

	if len(docs) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(docs))
	}

	idx.vocab = make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		idx.vocab = append(idx.vocab, term)
	}
	sort.Strings(idx.vocab)

	return idx
}

// Len returns the number of indexed documents.
func (idx *DocIndex) Len() int {
	return len(idx.docs)
}

// Search scores documents against the query and returns up to limit hits
// with extracted snippets. Quoted segments are matched as literal
// substrings against text and title; the rest is token-scored with prefix
// expansion.
func (idx *DocIndex) Search(query string, limit int) []DocHit {
	if idx.Len() == 0 || strings.TrimSpace(query) == "" {
		return nil
	}

	phrases, rest := extractPhrases(query)
	tokens := TokenizeFiltered(rest, idx.stop)

	scores := make(map[int]float64)
	for _, token := range tokens {
		for _, term := range idx.expand(token) {
			idx.score(term, scores)
		}
	}

	for _, phrase := range phrases {
		lower := strings.ToLower(phrase)
		for i, doc := range idx.docs {
			if strings.Contains(strings.ToLower(doc.Text), lower) {
				scores[i] += phraseTextWeight
			}
			if doc.Title != "" && strings.Contains(strings.ToLower(doc.Title), lower) {
				scores[i] += phraseTitleWeight
			}
		}
	}

	snippetTerms := append(tokens, phrases...)

	hits := make([]DocHit, 0, len(scores))
	for i, score := range scores {
		hits = append(hits, DocHit{
			ID:      idx.docs[i].ID,
			Score:   score,
			Snippet: Snippet(idx.docs[i].Text, snippetTerms, DefaultSnippetWidth),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (idx *DocIndex) score(term string, scores map[int]float64) {
	counts := idx.postings[term]
	if len(counts) == 0 {
		return
	}

	n := float64(idx.Len())
	df := float64(len(counts))
	idf := math.Log((n-df+0.5)/(df+0.5) + 1)
	if idf < 0 {
		idf = 0
	}

	avg := idx.avgLen
	if avg == 0 {
		avg = 1
	}
	for doc, tf := range counts {
		norm := 0.5 + 1.5*(float64(idx.lengths[doc])/avg)
		scores[doc] += idf * tf / norm
	}
}

func (idx *DocIndex) expand(token string) []string {
	if len(token) < minPrefixLen {
		return []string{token}
	}
	lo := sort.SearchStrings(idx.vocab, token)
	terms := []string{token}
	for i := lo; i < len(idx.vocab); i++ {
		term := idx.vocab[i]
		if !strings.HasPrefix(term, token) {
			break
		}
		if term != token {
			terms = append(terms, term)
		}
	}
	return terms
}

// extractPhrases pulls quoted segments out of a query, returning the
// phrases and the remaining unquoted text.
func extractPhrases(query string) (phrases []string, rest string) {
	var restBuilder strings.Builder
	for {
		open := strings.IndexByte(query, '"')
		if open < 0 {
			restBuilder.WriteString(query)
			break
		}
		close := strings.IndexByte(query[open+1:], '"')
		if close < 0 {
			restBuilder.WriteString(query)
			break
		}
		restBuilder.WriteString(query[:open])
		restBuilder.WriteByte(' ')
		phrase := strings.TrimSpace(query[open+1 : open+1+close])
		if phrase != "" {
			phrases = append(phrases, phrase)
		}
		query = query[open+close+2:]
	}
	return phrases, restBuilder.String()
}
