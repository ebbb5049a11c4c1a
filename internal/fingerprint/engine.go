package fingerprint

import (
	"github.com/chemidx/chemidx/internal/chem"
	"github.com/chemidx/chemidx/internal/resource"
)

// Engine computes structure and query fingerprints according to a
// configured pair of Settings. The pair must stay in lock-step: width
// and AvalonBitFlags must match between StructureSettings and
// QuerySettings for the subset invariant to hold.
type Engine struct {
	toolkit   *chem.Toolkit
	tracker   *resource.Tracker
	structure Settings
	query     Settings
}

// New creates a fingerprint Engine bound to toolkit for native calls and
// tracker for the temporary wave-scoped allocations query fingerprinting
// requires.
func New(toolkit *chem.Toolkit, tracker *resource.Tracker, structure, query Settings) *Engine {
	return &Engine{toolkit: toolkit, tracker: tracker, structure: structure, query: query}
}

// StructureSettings returns the engine's configured structure settings.
func (e *Engine) StructureSettings() Settings { return e.structure }

// QuerySettings returns the engine's configured query settings.
func (e *Engine) QuerySettings() Settings { return e.query }

// StructureFP computes the structure fingerprint of an already-parsed
// molecule, for storage alongside its indexed document.
func (e *Engine) StructureFP(mol *chem.Molecule) (BitVector, error) {
	return e.fingerprint(mol, e.structure)
}

// QueryFP computes the query fingerprint of a SMILES string. If
// canonical is true, the caller asserts smiles is already canonical and
// the engine may skip sanitation on its fast path; this only affects
// the parse step, not the fingerprint settings used.
func (e *Engine) QueryFP(smiles string, canonical bool) (BitVector, error) {
	wave := e.tracker.FreshWaveID()
	defer e.tracker.Cleanup(wave)

	mol, err := e.toolkit.ParseSMILES(smiles, !canonical)
	if err != nil {
		return BitVector{}, err
	}
	e.tracker.Mark(mol, wave, false)

	return e.fingerprint(mol, e.query)
}

func (e *Engine) fingerprint(mol *chem.Molecule, settings Settings) (BitVector, error) {
	packed, err := mol.AvalonFingerprint(settings.Width, settings.AvalonQueryFlag, settings.AvalonBitFlags)
	if err != nil {
		return BitVector{}, err
	}
	return NewBitVector(settings.Width, packed), nil
}
