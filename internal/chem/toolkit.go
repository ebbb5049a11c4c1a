// Package chem wraps a native chemistry toolkit library through purego,
// exposing molecule parsing, canonicalization, substructure matching,
// and fingerprint computation without cgo. Loading the shared library
// itself (finding it on disk, choosing the right build for the host
// platform) is an external collaborator's responsibility per the
// Non-goals; this package only knows how to bind symbols once it has a
// path.
package chem

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Toolkit is a bound handle to the native chemistry library. All
// exported methods are safe for concurrent use except where documented
// otherwise (avalon fingerprint calls are internally serialized).
type Toolkit struct {
	lib uintptr

	parseSmiles          func(smiles string, sanitize int32) uintptr
	parseMolblock        func(molblock string) uintptr
	toCanonicalSmiles    func(mol uintptr) string
	updatePropertyCache  func(mol uintptr)
	hasSubstructureMatch func(haystack, needle uintptr) int32
	freeMol              func(mol uintptr)
	lastError            func() string
	toBinary             func(mol uintptr, outLen *int32) uintptr
	fromBinary           func(data unsafe.Pointer, length int32) uintptr
	freeBuffer           func(ptr uintptr)
	avalonFingerprint    func(mol uintptr, width int32, queryFlag int32, bitFlags uint32, outBuf unsafe.Pointer) int32

	// avalonMu serializes every call into the native Avalon fingerprint
	// routine, per the process-wide mutex required in the component
	// design; other fingerprint kinds are not subject to it.
	avalonMu sync.Mutex
}

// Open loads the native chemistry toolkit from libPath and binds its
// symbols. The caller owns the returned Toolkit and must call Close
// when finished.
func Open(libPath string) (*Toolkit, error) {
	lib, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("chem: failed to load toolkit library %s: %w", libPath, err)
	}

	t := &Toolkit{lib: lib}

	purego.RegisterLibFunc(&t.parseSmiles, lib, "chem_parse_smiles")
	purego.RegisterLibFunc(&t.parseMolblock, lib, "chem_parse_molblock")
	purego.RegisterLibFunc(&t.toCanonicalSmiles, lib, "chem_to_canonical_smiles")
	purego.RegisterLibFunc(&t.updatePropertyCache, lib, "chem_update_property_cache")
	purego.RegisterLibFunc(&t.hasSubstructureMatch, lib, "chem_has_substructure_match")
	purego.RegisterLibFunc(&t.freeMol, lib, "chem_free_mol")
	purego.RegisterLibFunc(&t.lastError, lib, "chem_last_error")
	purego.RegisterLibFunc(&t.toBinary, lib, "chem_to_binary")
	purego.RegisterLibFunc(&t.fromBinary, lib, "chem_from_binary")
	purego.RegisterLibFunc(&t.freeBuffer, lib, "chem_free_buffer")
	purego.RegisterLibFunc(&t.avalonFingerprint, lib, "chem_avalon_fingerprint")

	return t, nil
}

// Close unloads the native library. The Toolkit must not be used
// afterward.
func (t *Toolkit) Close() error {
	return purego.Dlclose(t.lib)
}

// ParseSMILES parses text as SMILES, optionally sanitizing the result.
// The returned Molecule is an owned resource; the caller must register
// it with a resource.Tracker.
func (t *Toolkit) ParseSMILES(text string, sanitize bool) (*Molecule, error) {
	s := int32(0)
	if sanitize {
		s = 1
	}
	h := t.parseSmiles(text, s)
	if h == 0 {
		return nil, t.classifyFailure("parse_smiles")
	}
	return &Molecule{handle: h, toolkit: t}, nil
}

// ParseMolblock parses text as a V2000/V3000 molblock.
func (t *Toolkit) ParseMolblock(text string) (*Molecule, error) {
	h := t.parseMolblock(text)
	if h == 0 {
		return nil, t.classifyFailure("parse_molblock")
	}
	return &Molecule{handle: h, toolkit: t}, nil
}

// FromBinary reconstructs a Molecule from the stable binary
// serialization produced by Molecule.ToBinary.
func (t *Toolkit) FromBinary(data []byte) (*Molecule, error) {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = unsafe.Pointer(&data[0])
	}
	h := t.fromBinary(ptr, int32(len(data)))
	if h == 0 {
		return nil, internalFailure("from_binary produced a null handle", nil)
	}
	return &Molecule{handle: h, toolkit: t}, nil
}

// classifyFailure reads the toolkit's thread-local last-error message
// and tags it as a parse, sanitation, or internal Failure based on its
// content. The native ABI does not yet distinguish these mechanically,
// so this is a best-effort classification against known prefixes.
func (t *Toolkit) classifyFailure(op string) error {
	msg := t.lastError()
	if msg == "" {
		msg = op + ": toolkit returned a null handle with no error message"
	}
	switch {
	case hasPrefix(msg, "sanitize:") || hasPrefix(msg, "valence:") || hasPrefix(msg, "aromaticity:"):
		return sanitationFailure(msg)
	case hasPrefix(msg, "parse:") || hasPrefix(msg, "syntax:"):
		return parseFailure(msg)
	default:
		return internalFailure(msg, nil)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
