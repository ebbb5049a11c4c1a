// Package resultadapter turns a collector's score-ordered entries into
// the ordered list of primary keys callers of the facade actually want.
package resultadapter

import (
	"github.com/chemidx/chemidx/internal/collector"
	"github.com/chemidx/chemidx/internal/store"
)

// DocumentSource loads a document's field map by its store document
// id, the shape both store.Searcher and test doubles satisfy.
type DocumentSource interface {
	GetDocument(docID string) (map[string]string, error)
}

// Adapt walks entries in collector order, loads each document from
// source, and appends its pk field. Sentinel (never-collected) entries
// and documents with no pk field are skipped silently. Returns an
// empty, never nil, slice when entries is empty or source is nil.
func Adapt(source DocumentSource, entries []collector.Entry) []string {
	pks := make([]string, 0, len(entries))
	if source == nil {
		return pks
	}

	for _, e := range entries {
		if collector.IsSentinel(e) {
			continue
		}
		fields, err := source.GetDocument(e.DocID)
		if err != nil {
			continue
		}
		pk, ok := fields[store.FieldPK]
		if !ok || pk == "" {
			continue
		}
		pks = append(pks, pk)
	}

	return pks
}
