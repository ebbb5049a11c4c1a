package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStoredSignature_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chemidx.yaml")

	_, err := readStoredSignature(path)

	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestReadStoredSignature_ReadsFingerprintSectionOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chemidx.yaml")
	contents := `
fingerprint:
  kind: avalon
  width: 512
  avalon_bit_flags: 32767
query:
  avalon_query_flag: 1
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	sig, err := readStoredSignature(path)

	require.NoError(t, err)
	assert.Equal(t, "avalon", sig.Kind)
	assert.Equal(t, 512, sig.Width)
	assert.Equal(t, uint32(32767), sig.AvalonBitFlags)
}
