package resultadapter

import (
	"fmt"
	"testing"

	"github.com/chemidx/chemidx/internal/collector"
	"github.com/chemidx/chemidx/internal/store"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	docs map[string]map[string]string
}

func (f *fakeSource) GetDocument(docID string) (map[string]string, error) {
	doc, ok := f.docs[docID]
	if !ok {
		return nil, fmt.Errorf("not found: %s", docID)
	}
	return doc, nil
}

func TestAdapt_ReturnsPksInCollectorOrder(t *testing.T) {
	source := &fakeSource{docs: map[string]map[string]string{
		"docA": {store.FieldPK: "PK-A"},
		"docB": {store.FieldPK: "PK-B"},
	}}
	entries := []collector.Entry{{DocID: "docA", Score: 9}, {DocID: "docB", Score: 1}}

	assert.Equal(t, []string{"PK-A", "PK-B"}, Adapt(source, entries))
}

func TestAdapt_SkipsSentinelEntries(t *testing.T) {
	c := collector.New(3)
	c.Collect("docA", 1.0)
	source := &fakeSource{docs: map[string]map[string]string{"docA": {store.FieldPK: "PK-A"}}}

	pks := Adapt(source, c.Output())
	assert.Equal(t, []string{"PK-A"}, pks)
}

func TestAdapt_SkipsDocumentsMissingPK(t *testing.T) {
	source := &fakeSource{docs: map[string]map[string]string{"docA": {"smiles": "CCO"}}}
	entries := []collector.Entry{{DocID: "docA", Score: 1}}

	assert.Equal(t, []string{}, Adapt(source, entries))
}

func TestAdapt_SkipsDocumentsThatFailToLoad(t *testing.T) {
	source := &fakeSource{docs: map[string]map[string]string{}}
	entries := []collector.Entry{{DocID: "missing", Score: 1}}

	assert.Equal(t, []string{}, Adapt(source, entries))
}

func TestAdapt_EmptyEntriesReturnsEmptyNeverNil(t *testing.T) {
	pks := Adapt(&fakeSource{}, nil)
	assert.NotNil(t, pks)
	assert.Empty(t, pks)
}

func TestAdapt_NilSourceReturnsEmptyNeverNil(t *testing.T) {
	pks := Adapt(nil, []collector.Entry{{DocID: "docA", Score: 1}})
	assert.NotNil(t, pks)
	assert.Empty(t, pks)
}
