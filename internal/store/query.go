package store

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// NewTermQuery builds an exact term match against field.
func NewTermQuery(field, value string) query.Query {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

// NewBooleanQuery combines must (AND) and should (OR) sub-queries, the
// two occurrence kinds the store's query primitives support.
func NewBooleanQuery(must, should []query.Query) query.Query {
	b := bleve.NewBooleanQuery()
	if len(must) > 0 {
		b.AddMust(must...)
	}
	if len(should) > 0 {
		b.AddShould(should...)
	}
	return b
}

// NewMultiFieldQuery parses text as a match query spread as a
// disjunction across fields, the primitive search_free builds on.
func NewMultiFieldQuery(text string, fields []string) query.Query {
	if len(fields) == 0 {
		mq := bleve.NewMatchQuery(text)
		return mq
	}
	disjuncts := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(text)
		mq.SetField(f)
		disjuncts = append(disjuncts, mq)
	}
	return bleve.NewDisjunctionQuery(disjuncts...)
}
