package filemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msqc/domain/core"
)

func TestAssign_DerivesDistinctShorts(t *testing.T) {
	m := New()
	err := m.Assign([]string{
		"20240101_QE_lab2_SampleA_01.raw",
		"20240101_QE_lab2_SampleB_01.raw",
		"20240101_QE_lab2_Control_01.raw",
	}, 0)
	require.NoError(t, err)

	a, ok := m.Short("20240101_QE_lab2_SampleA_01.raw")
	require.True(t, ok)
	b, ok := m.Short("20240101_QE_lab2_SampleB_01.raw")
	require.True(t, ok)
	c, ok := m.Short("20240101_QE_lab2_Control_01.raw")
	require.True(t, ok)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "SampleA")
	assert.Contains(t, b, "SampleB")
	assert.Contains(t, c, "Control")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), MappingFile)

	m := New()
	require.NoError(t, m.Assign([]string{"run_alpha_01.raw", "run_beta_01.raw"}, 0))
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Shorts(), loaded.Shorts())
	assert.Equal(t, m.Longs(), loaded.Longs())
}

func TestLoad_MissingFileYieldsEmptyMap(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), MappingFile))
	require.NoError(t, err)
	assert.Zero(t, m.Len())
}

func TestAssign_PreservesManualEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), MappingFile)
	content := "long name\tshort name\nrun_alpha_01.raw\tmy plasma sample\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	err = m.Assign([]string{"run_alpha_01.raw", "run_beta_01.raw"}, 0)
	require.NoError(t, err)

	short, ok := m.Short("run_alpha_01.raw")
	require.True(t, ok)
	assert.Equal(t, "my plasma sample", short, "manual edit must survive reassignment")

	fresh, ok := m.Short("run_beta_01.raw")
	require.True(t, ok)
	assert.NotEmpty(t, fresh)
	assert.NotEqual(t, "my plasma sample", fresh)
}

func TestAssign_DisambiguatesTakenShort(t *testing.T) {
	m := New()
	require.NoError(t, m.put("some_other_long_name.raw", "plasma01"))

	// A single fresh name shortens to itself, colliding with the manual
	// entry above.
	require.NoError(t, m.Assign([]string{"plasma01"}, 0))

	short, ok := m.Short("plasma01")
	require.True(t, ok)
	assert.Equal(t, "plasma01_2", short)
}

func TestLoad_DuplicateShortRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), MappingFile)
	content := "a.raw\tsame\nb.raw\tsame\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNameCollision)
}

func TestLoad_MalformedLineRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), MappingFile)
	require.NoError(t, os.WriteFile(path, []byte("only-one-field\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrBadInput)
}

func TestAssign_IsIdempotent(t *testing.T) {
	m := New()
	names := []string{"x_run1.raw", "x_run2.raw"}
	require.NoError(t, m.Assign(names, 0))
	before := m.Shorts()

	require.NoError(t, m.Assign(names, 0))
	assert.Equal(t, before, m.Shorts())
	assert.Equal(t, 2, m.Len())
}
