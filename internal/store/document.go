package store

import "strconv"

// Field names per the store's field contract. pk and smiles are stored
// and not analyzed; fp is indexed only, one token per set fingerprint
// bit; name holds zero or more stored synonym strings; arbitrary
// additional property fields are stored and not analyzed under their
// own field name.
const (
	FieldPK     = "pk"
	FieldSMILES = "smiles"
	FieldFP     = "fp"
	FieldName   = "name"
)

// Document is one record ready to be written to the store.
type Document struct {
	PK         string
	SMILES     string
	FPBits     []int
	Names      []string
	Properties map[string]string
}

// toIndexable converts a Document into the dynamic map bleve indexes.
// fp is encoded as decimal-string tokens of the set bit positions, per
// the field contract.
func (d Document) toIndexable() map[string]interface{} {
	m := map[string]interface{}{
		FieldPK:     d.PK,
		FieldSMILES: d.SMILES,
	}

	if len(d.FPBits) > 0 {
		tokens := make([]string, len(d.FPBits))
		for i, bit := range d.FPBits {
			tokens[i] = strconv.Itoa(bit)
		}
		m[FieldFP] = tokens
	}

	if len(d.Names) > 0 {
		m[FieldName] = d.Names
	}

	for k, v := range d.Properties {
		m[k] = v
	}

	return m
}
