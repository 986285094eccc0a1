package search

import (
	"sort"

	"github.com/franz/music-catalog/internal/catalog"
)

// Field is a weighted document field
type Field int

const (
	FieldTitle Field = iota
	FieldAlbum
	FieldArtist
)

// Weight returns the score multiplier for a field: title > album > artist
func (f Field) Weight() int {
	switch f {
	case FieldTitle:
		return 3
	case FieldAlbum:
		return 2
	case FieldArtist:
		return 1
	}
	return 0
}

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldAlbum:
		return "album"
	case FieldArtist:
		return "artist"
	}
	return "unknown"
}

var fields = []Field{FieldTitle, FieldAlbum, FieldArtist}

// Document is the searchable text of one entity
type Document struct {
	Ref    catalog.EntityRef
	Fields map[Field][]string
}

// Equal reports whether two documents carry the same text
func (d *Document) Equal(o *Document) bool {
	if d.Ref != o.Ref {
		return false
	}
	for _, f := range fields {
		a, b := d.Fields[f], o.Fields[f]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// Query is a ranked token query. All terms must match. Limit <= 0 means
// no limit; callers page with Offset.
type Query struct {
	Tokens []string
	Limit  int
	Offset int
}

// Hit is one ranked result
type Hit struct {
	Ref   catalog.EntityRef `json:"ref"`
	Score int               `json:"score"`
}

// Index is an inverted index with field-weighted term frequency scoring.
// Reads may run concurrently; writes need exclusive access.
type Index struct {
	tok Tokenizer

	docs     map[catalog.EntityRef]*Document
	postings map[string]map[catalog.EntityRef]int // term -> ref -> weighted frequency
	docTerms map[catalog.EntityRef][]string
	terms    *trie
}

// New creates an empty index
func New(tok Tokenizer) *Index {
	return &Index{
		tok:      tok,
		docs:     make(map[catalog.EntityRef]*Document),
		postings: make(map[string]map[catalog.EntityRef]int),
		docTerms: make(map[catalog.EntityRef][]string),
		terms:    newTrie(),
	}
}

// Tokenizer returns the tokenizer the index was built with
func (ix *Index) Tokenizer() Tokenizer {
	return ix.tok
}

// Index upserts a document
func (ix *Index) Index(doc *Document) {
	ix.Remove(doc.Ref)

	weighted := make(map[string]int)
	for _, f := range fields {
		for _, text := range doc.Fields[f] {
			for _, tok := range ix.tok.Tokens(text) {
				weighted[tok] += f.Weight()
			}
		}
	}

	terms := make([]string, 0, len(weighted))
	for tok, score := range weighted {
		posting := ix.postings[tok]
		if posting == nil {
			posting = make(map[catalog.EntityRef]int)
			ix.postings[tok] = posting
			ix.terms.insert(tok)
		}
		posting[doc.Ref] = score
		terms = append(terms, tok)
	}

	ix.docs[doc.Ref] = doc
	ix.docTerms[doc.Ref] = terms
}

// Remove deletes a document. Returns false if it was not indexed.
func (ix *Index) Remove(ref catalog.EntityRef) bool {
	if _, ok := ix.docs[ref]; !ok {
		return false
	}
	for _, tok := range ix.docTerms[ref] {
		posting := ix.postings[tok]
		delete(posting, ref)
		if len(posting) == 0 {
			delete(ix.postings, tok)
			ix.terms.remove(tok)
		}
	}
	delete(ix.docs, ref)
	delete(ix.docTerms, ref)
	return true
}

// Query ranks documents matching every term by descending score, ties by ref.
// An empty effective query matches nothing.
func (ix *Index) Query(q Query) []Hit {
	terms := ix.tok.parse(q.Tokens)
	if len(terms) == 0 {
		return nil
	}

	var acc map[catalog.EntityRef]int
	for i, t := range terms {
		scores := ix.match(t)
		if i == 0 {
			acc = scores
		} else {
			for ref := range acc {
				s, ok := scores[ref]
				if !ok {
					delete(acc, ref)
					continue
				}
				acc[ref] += s
			}
		}
		if len(acc) == 0 {
			return nil
		}
	}

	hits := make([]Hit, 0, len(acc))
	for ref, score := range acc {
		hits = append(hits, Hit{Ref: ref, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ref.Less(hits[j].Ref)
	})

	if q.Offset > 0 {
		if q.Offset >= len(hits) {
			return nil
		}
		hits = hits[q.Offset:]
	}
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits
}

// match scores every document containing the term
func (ix *Index) match(t term) map[catalog.EntityRef]int {
	scores := make(map[catalog.EntityRef]int)
	if !t.prefix {
		for ref, s := range ix.postings[t.text] {
			scores[ref] = s
		}
		return scores
	}
	for _, word := range ix.terms.withPrefix(t.text) {
		for ref, s := range ix.postings[word] {
			scores[ref] += s
		}
	}
	return scores
}

// Document returns the indexed document for a ref
func (ix *Index) Document(ref catalog.EntityRef) (*Document, bool) {
	d, ok := ix.docs[ref]
	return d, ok
}

// Documents returns every indexed document ordered by ref
func (ix *Index) Documents() []*Document {
	out := make([]*Document, 0, len(ix.docs))
	for _, d := range ix.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.Less(out[j].Ref) })
	return out
}

// Len returns the number of indexed documents
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Terms returns the number of distinct indexed terms
func (ix *Index) Terms() int {
	return ix.terms.size
}
