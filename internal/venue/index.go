package venue

// entryKind distinguishes what text an index entry was built from, so name
// and address searches stay separate.
type entryKind int

const (
	kindName entryKind = iota
	kindAlias
	kindAddress
)

type indexEntry struct {
	venueIdx int
	kind     entryKind
	text     string
	ngrams   int
}

// trigramIndex is a precomputed posting list from trigram to entry ids.
// Lookup cost scales with the query's trigram count and posting-list
// lengths, not with registry size, so resolution stays responsive as the
// registry grows into the thousands.
type trigramIndex struct {
	entries  []indexEntry
	postings map[string][]int
}

func newTrigramIndex() *trigramIndex {
	return &trigramIndex{postings: make(map[string][]int)}
}

func (idx *trigramIndex) add(venueIdx int, kind entryKind, text string) {
	grams := trigrams(text)
	if len(grams) == 0 {
		return
	}
	id := len(idx.entries)
	idx.entries = append(idx.entries, indexEntry{
		venueIdx: venueIdx,
		kind:     kind,
		text:     text,
		ngrams:   len(grams),
	})
	for _, g := range grams {
		idx.postings[g] = append(idx.postings[g], id)
	}
}

type hit struct {
	entry      indexEntry
	similarity float64
}

// search returns every entry of the wanted kinds whose Jaccard similarity
// with the query strictly exceeds threshold.
func (idx *trigramIndex) search(query string, threshold float64, kinds ...entryKind) []hit {
	grams := trigrams(query)
	if len(grams) == 0 {
		return nil
	}

	wanted := make(map[entryKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	shared := make(map[int]int)
	for _, g := range grams {
		for _, id := range idx.postings[g] {
			shared[id]++
		}
	}

	var hits []hit
	for id, overlap := range shared {
		e := idx.entries[id]
		if !wanted[e.kind] {
			continue
		}
		sim := float64(overlap) / float64(len(grams)+e.ngrams-overlap)
		if sim > threshold {
			hits = append(hits, hit{entry: e, similarity: sim})
		}
	}
	return hits
}
