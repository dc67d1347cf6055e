// Package search provides the registry's lexical full-text index: BM25
// scoring over five fields (name, id, scopes, type, body), with a two-phase
// AddDoc/Commit API so a bulk load (BatchLoad) can stage every document and
// recompute corpus statistics once instead of on every insert.
package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// BM25 parameters (standard values).
const (
	bm25K1 = 1.2  // term frequency saturation
	bm25B  = 0.75 // length normalization
)

// Field names the five indexed fields a Doc carries. Each field gets its own
// inverted index and average-length statistic, so a query matching an
// entity's Type scores independently of a match in its Body.
type Field int

const (
	FieldName Field = iota
	FieldID
	FieldScopes
	FieldType
	FieldBody
	numFields
)

// Doc is the document one entity contributes to the index.
type Doc struct {
	ID     string
	Name   string
	Scopes string
	Type   string
	Body   string
}

func (d Doc) field(f Field) string {
	switch f {
	case FieldName:
		return d.Name
	case FieldID:
		return d.ID
	case FieldScopes:
		return d.Scopes
	case FieldType:
		return d.Type
	case FieldBody:
		return d.Body
	default:
		return ""
	}
}

// Result is one scored match.
type Result struct {
	ID    string
	Score float64
}

type fieldIndex struct {
	inverted     map[string]map[string]int // term -> docID -> frequency
	docLengths   map[string]int
	avgDocLength float64
}

func newFieldIndex() *fieldIndex {
	return &fieldIndex{
		inverted:   make(map[string]map[string]int),
		docLengths: make(map[string]int),
	}
}

// Index is the registry's BM25 full-text index. Doc mutation happens in two
// phases: AddDoc stages a document without touching corpus statistics;
// Commit recomputes every field's average length and must be called before
// the newly staged documents affect Search scores. A single AddDoc+Commit
// pair is equivalent to one Index call; BatchLoad instead calls AddDoc for
// every entity once and Commit only at the end, avoiding O(n) recomputation
// passes during a bulk load.
type Index struct {
	mu      sync.RWMutex
	docs    map[string]Doc
	fields  [numFields]*fieldIndex
	enabled bool
}

// New creates an empty index. Indexing is enabled by default; Disable/Enable
// bracket a bulk load so AddDoc calls made while disabled are recorded (so
// Commit still sees them) but Search returns nothing until Enable runs.
func New() *Index {
	idx := &Index{docs: make(map[string]Doc), enabled: true}
	for i := range idx.fields {
		idx.fields[i] = newFieldIndex()
	}
	return idx
}

// Disable suspends Search results while a bulk load is staged via AddDoc.
func (idx *Index) Disable() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.enabled = false
}

// Enable resumes Search after a bulk load's final Commit.
func (idx *Index) Enable() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.enabled = true
}

// AddDoc stages doc into the index without recomputing field statistics. Any
// existing document under the same ID is replaced. Call Commit afterward
// (once per batch, not once per AddDoc) to make the staged documents
// searchable with accurate BM25 scores.
func (idx *Index) AddDoc(doc Doc) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(doc.ID)
	idx.docs[doc.ID] = doc
	for f := Field(0); f < numFields; f++ {
		idx.indexFieldLocked(f, doc.ID, doc.field(f))
	}
}

// Commit recomputes every field's average document length. Must be called
// after one or more AddDoc calls for their documents to score correctly;
// Search works against whatever statistics the last Commit produced.
func (idx *Index) Commit() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, fi := range idx.fields {
		fi.updateAvgLength()
	}
}

// Index is the single-document fast path: AddDoc followed by Commit.
func (idx *Index) Index(doc Doc) {
	idx.AddDoc(doc)
	idx.Commit()
}

// Remove deletes a document from every field's index.
func (idx *Index) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
	for _, fi := range idx.fields {
		fi.updateAvgLength()
	}
}

func (idx *Index) removeLocked(id string) {
	doc, exists := idx.docs[id]
	if !exists {
		return
	}
	for f := Field(0); f < numFields; f++ {
		idx.fields[f].remove(id, doc.field(f))
	}
	delete(idx.docs, id)
}

func (idx *Index) indexFieldLocked(f Field, id, text string) {
	fi := idx.fields[f]
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return
	}
	fi.docLengths[id] = len(tokens)
	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}
	for term, n := range freq {
		if fi.inverted[term] == nil {
			fi.inverted[term] = make(map[string]int)
		}
		fi.inverted[term][id] = n
	}
}

func (fi *fieldIndex) remove(id, text string) {
	for _, tok := range tokenize(text) {
		if docs, ok := fi.inverted[tok]; ok {
			delete(docs, id)
			if len(docs) == 0 {
				delete(fi.inverted, tok)
			}
		}
	}
	delete(fi.docLengths, id)
}

func (fi *fieldIndex) updateAvgLength() {
	if len(fi.docLengths) == 0 {
		fi.avgDocLength = 0
		return
	}
	var total int
	for _, n := range fi.docLengths {
		total += n
	}
	fi.avgDocLength = float64(total) / float64(len(fi.docLengths))
}

func (fi *fieldIndex) idf(term string) float64 {
	df := float64(len(fi.inverted[term]))
	n := float64(len(fi.docLengths))
	idf := math.Log(1 + (n-df+0.5)/(df+0.5))
	if idf < 0 {
		return 0
	}
	return idf
}

func (fi *fieldIndex) score(term string, scores map[string]float64, weight float64) {
	docs, ok := fi.inverted[term]
	if !ok || fi.avgDocLength == 0 {
		return
	}
	idf := fi.idf(term)
	for id, tf := range docs {
		docLen := float64(fi.docLengths[id])
		tff := float64(tf)
		numerator := tff * (bm25K1 + 1)
		denominator := tff + bm25K1*(1-bm25B+bm25B*(docLen/fi.avgDocLength))
		scores[id] += weight * idf * (numerator / denominator)
	}
}

// fieldWeights favors exact name/id matches over a hit buried in body text.
var fieldWeights = [numFields]float64{
	FieldName:   3.0,
	FieldID:     3.0,
	FieldScopes: 1.5,
	FieldType:   1.0,
	FieldBody:   1.0,
}

// Search runs a BM25 query across every field and returns the top limit
// matches sorted by combined score, descending.
func (idx *Index) Search(query string, limit int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.enabled || len(idx.docs) == 0 {
		return nil
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	scores := make(map[string]float64)
	for _, term := range terms {
		for f := Field(0); f < numFields; f++ {
			idx.fields[f].score(term, scores, fieldWeights[f])
		}
	}

	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		results = append(results, Result{ID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Count returns the number of indexed documents.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

func tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 2 || isStopWord(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// isStopWord filters a minimal list of generic English words; technical
// terms like "feature" or "anchor" are deliberately not filtered.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"with": true, "this": true, "but": true, "they": true,
	"we": true, "you": true, "your": true, "my": true, "their": true,
	"been": true, "do": true, "does": true, "did": true,
}

func isStopWord(word string) bool { return stopWords[word] }
