package fingerprint

import (
	"testing"

	"github.com/chemidx/chemidx/internal/chem"
	"github.com/chemidx/chemidx/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	toolkit := chem.NewFakeToolkit()
	tracker := resource.New()
	return New(toolkit, tracker, StructureSettings(256, 0), QuerySettings(256, 0))
}

func TestEngine_StructureFP_DeterministicForSameInput(t *testing.T) {
	e := newTestEngine()
	toolkit := chem.NewFakeToolkit()

	mol1, err := toolkit.ParseSMILES("c1ccccc1", true)
	require.NoError(t, err)
	mol2, err := toolkit.ParseSMILES("c1ccccc1", true)
	require.NoError(t, err)

	fp1, err := e.StructureFP(mol1)
	require.NoError(t, err)
	fp2, err := e.StructureFP(mol2)
	require.NoError(t, err)

	assert.Equal(t, fp1.SetBits(), fp2.SetBits())
}

func TestEngine_QueryFP_ReleasesTemporaryWave(t *testing.T) {
	e := newTestEngine()

	_, err := e.QueryFP("c1ccccc1", true)
	require.NoError(t, err)

	assert.Equal(t, 0, e.tracker.Count(), "query fingerprinting must not leak its temporary molecule")
}

func TestEngine_QueryFP_SubstructureInvariant(t *testing.T) {
	e := newTestEngine()
	toolkit := chem.NewFakeToolkit()

	// The fake toolkit hashes the whole SMILES text into its fingerprint,
	// so the query and the structure use the identical SMILES: a molecule
	// is always a substructure of itself.
	molWhole, err := toolkit.ParseSMILES("c1ccccc1-CCO", true)
	require.NoError(t, err)

	structureFP, err := e.StructureFP(molWhole)
	require.NoError(t, err)

	queryFP, err := e.QueryFP("c1ccccc1-CCO", true)
	require.NoError(t, err)

	assert.True(t, queryFP.IsSubsetOf(structureFP))
}

func TestStructureSettings_DefaultsWidthWhenNonPositive(t *testing.T) {
	s := StructureSettings(0, 0)
	assert.Equal(t, DefaultWidth, s.Width)
	assert.Equal(t, 0, s.AvalonQueryFlag)
}

func TestQuerySettings_SetsQueryFlag(t *testing.T) {
	s := QuerySettings(128, 0)
	assert.Equal(t, 1, s.AvalonQueryFlag)
	assert.Equal(t, 128, s.Width)
}
