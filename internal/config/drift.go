package config

import "fmt"

// FingerprintSignature identifies the fingerprint settings an index was
// built with, for the rebuild-on-schema-change check at construction.
type FingerprintSignature struct {
	Kind           string `yaml:"kind" json:"kind"`
	Width          int    `yaml:"width" json:"width"`
	AvalonBitFlags uint32 `yaml:"avalon_bit_flags" json:"avalon_bit_flags"`
}

// Signature extracts the fingerprint signature from the configuration.
func (c *Config) Signature() FingerprintSignature {
	return FingerprintSignature{
		Kind:           c.Fingerprint.Kind,
		Width:          c.Fingerprint.Width,
		AvalonBitFlags: c.Fingerprint.AvalonBitFlags,
	}
}

// CheckDrift compares want against the signature recorded for an
// existing index directory and reports a descriptive error if they
// differ, so callers can surface a clear "rebuild the index" message
// instead of silently misinterpreting stored fingerprints.
func CheckDrift(want, stored FingerprintSignature) error {
	if want == stored {
		return nil
	}
	return fmt.Errorf("fingerprint settings changed since this index was built: "+
		"have kind=%s width=%d avalon_bit_flags=%d, index was built with kind=%s width=%d avalon_bit_flags=%d; "+
		"rebuild the index from source records",
		want.Kind, want.Width, want.AvalonBitFlags,
		stored.Kind, stored.Width, stored.AvalonBitFlags)
}
