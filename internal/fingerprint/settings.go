// Package fingerprint computes structure and query fingerprints as
// fixed-width bit vectors, delegating the actual bit computation to the
// native toolkit binding in internal/chem.
package fingerprint

// Kind selects the fingerprint algorithm. Only Avalon is currently
// bound to the native toolkit; the type exists so a future kind can be
// added without changing the Settings shape.
type Kind string

// KindAvalon is the only supported fingerprint algorithm.
const KindAvalon Kind = "avalon"

// DefaultWidth is the default bit vector width.
const DefaultWidth = 512

// Settings configures one flavour of fingerprint computation: either
// the structure settings used at ingest time, or the query settings
// used at search time. The two must differ only in AvalonQueryFlag for
// the subset-invariant (bits(query_fp(S)) ⊆ bits(structure_fp(M)) for
// S ⊆ M) to hold.
type Settings struct {
	Kind            Kind
	Width           int
	AvalonQueryFlag int
	AvalonBitFlags  uint32
	ExtraParams     map[string]string
}

// StructureSettings returns the default settings for computing and
// storing a structure fingerprint at ingest time.
func StructureSettings(width int, bitFlags uint32) Settings {
	if width <= 0 {
		width = DefaultWidth
	}
	return Settings{
		Kind:            KindAvalon,
		Width:           width,
		AvalonQueryFlag: 0,
		AvalonBitFlags:  bitFlags,
	}
}

// QuerySettings returns the settings for computing a query fingerprint
// at search time. Width and bitFlags must match the structure settings
// an index was built with, or the subset invariant does not hold.
func QuerySettings(width int, bitFlags uint32) Settings {
	if width <= 0 {
		width = DefaultWidth
	}
	return Settings{
		Kind:            KindAvalon,
		Width:           width,
		AvalonQueryFlag: 1,
		AvalonBitFlags:  bitFlags,
	}
}
