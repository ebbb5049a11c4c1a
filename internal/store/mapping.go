package store

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping constructs the field contract as a Bleve document
// mapping: pk and smiles are stored keyword fields (not analyzed), fp
// is an indexed-only keyword field carrying one token per set bit,
// name is a stored keyword field with multiple values, and any other
// property is picked up by the dynamic default field, stored and not
// analyzed (bleve's IndexMapping stores and indexes dynamic fields by
// default; setting the document's default analyzer to keyword keeps
// them untokenized).
func buildIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()
	doc.DefaultAnalyzer = keyword.Name

	pk := bleve.NewTextFieldMapping()
	pk.Analyzer = keyword.Name
	pk.Store = true
	pk.Index = true
	doc.AddFieldMappingsAt(FieldPK, pk)

	smiles := bleve.NewTextFieldMapping()
	smiles.Analyzer = keyword.Name
	smiles.Store = true
	smiles.Index = true
	doc.AddFieldMappingsAt(FieldSMILES, smiles)

	fp := bleve.NewTextFieldMapping()
	fp.Analyzer = keyword.Name
	fp.Store = false
	fp.Index = true
	doc.AddFieldMappingsAt(FieldFP, fp)

	name := bleve.NewTextFieldMapping()
	name.Analyzer = keyword.Name
	name.Store = true
	name.Index = true
	doc.AddFieldMappingsAt(FieldName, name)

	im.DefaultMapping = doc

	return im
}
