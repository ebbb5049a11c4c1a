package chem

import "unsafe"

// Molecule is an owned handle to a native molecule object. It must be
// handed to a resource.Tracker for release; calling Release directly is
// only for the tracker's own use.
type Molecule struct {
	handle  uintptr
	toolkit *Toolkit
}

// Release frees the native molecule. It implements resource.Releasable
// so Molecule values can be registered with a resource.Tracker
// directly. It zeroes the handle, so a second call is a no-op.
func (m *Molecule) Release() error {
	if m.handle == 0 {
		return nil
	}
	m.toolkit.freeMol(m.handle)
	m.handle = 0
	return nil
}

// ToCanonicalSMILES returns the canonicalization-normalized SMILES for
// the molecule.
func (m *Molecule) ToCanonicalSMILES() (string, error) {
	s := m.toolkit.toCanonicalSmiles(m.handle)
	if s == "" {
		return "", internalFailure("to_canonical_smiles returned empty string", nil)
	}
	return s, nil
}

// UpdatePropertyCache initializes ring perception and aromaticity.
// HasSubstructureMatch requires this to have been called on the
// haystack molecule.
func (m *Molecule) UpdatePropertyCache() {
	m.toolkit.updatePropertyCache(m.handle)
}

// HasSubstructureMatch reports whether needle matches as a
// substructure of the receiver (the haystack). UpdatePropertyCache must
// have been called on the receiver first.
func (m *Molecule) HasSubstructureMatch(needle *Molecule) bool {
	return m.toolkit.hasSubstructureMatch(m.handle, needle.handle) != 0
}

// ToBinary returns the toolkit's stable binary serialization of the
// molecule, suitable for round-tripping through FromBinary.
func (m *Molecule) ToBinary() ([]byte, error) {
	var outLen int32
	ptr := m.toolkit.toBinary(m.handle, &outLen)
	if ptr == 0 || outLen == 0 {
		return nil, internalFailure("to_binary produced an empty buffer", nil)
	}
	defer m.toolkit.freeBuffer(ptr)

	src := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(outLen))
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// AvalonFingerprint computes an Avalon-style fingerprint of the given
// width for the molecule. queryFlag selects structure mode (0) or query
// mode (1); bitFlags selects the toolkit-defined bit classes. Calls are
// serialized against every other Avalon call in the process.
func (m *Molecule) AvalonFingerprint(width int, queryFlag int, bitFlags uint32) ([]byte, error) {
	t := m.toolkit
	t.avalonMu.Lock()
	defer t.avalonMu.Unlock()

	buf := make([]byte, (width+7)/8)
	rc := t.avalonFingerprint(m.handle, int32(width), int32(queryFlag), bitFlags, unsafe.Pointer(&buf[0]))
	if rc == 0 {
		return nil, t.classifyFailure("avalon_fingerprint")
	}
	return buf, nil
}
