package mztab

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msqc/domain/core"
	"msqc/domain/table"
	"msqc/internal/resolve"
)

func writeContainer(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.mztab")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func testContainer(t *testing.T) *Container {
	t.Helper()
	path := writeContainer(t,
		"COM\tsmall fixture for reader tests",
		"MTD\tmzTab-version\t1.0.0",
		"MTD\ttitle\tQC test set",
		"MTD\tsoftware[1]\t[MS, MS:1001583, MaxQuant, 1.6.10.43]",
		"MTD\tcustom[match between runs]\tTrue",
		"MTD\tms_run[1]-location\tfile:///data/run_alpha_01.raw",
		"MTD\tms_run[2]-location\tfile:///data/run_beta_01.raw",
		"MTD\tassay[1]-ms_run_ref\tms_run[1]",
		"MTD\tassay[2]-ms_run_ref\tms_run[2]",
		"MTD\tcustom[ms_run[1] ms/ms identified [%]]\t43.2",
		"MTD\tcustom[ms_run[2] ms/ms identified [%]]\t38.9",
		"PRH\taccession\tdescription\tprotein_abundance_assay[1]\tprotein_abundance_assay[2]\topt_global_potential_contaminant",
		"PRT\tP01308\tInsulin\t123456.7\t98765.4\t",
		"PRT\tCON__P02769\tBSA\t55555.5\t44444.4\t+",
		"PSH\tPSM_ID\taccession\tsequence\tcharge\tretention_time\texp_mass_to_charge\tspectra_ref\topt_global_mass_error_ppm\topt_global_missed_cleavages",
		"PSM\t1\tP01308\tGIVEQCCTSICSLYQLENYCN\t2\t55.3\t1200.5\tms_run[1]:scan=1234\t1.2\t0",
		"PSM\t2\tP01308\tFVNQHLCGSHLVEALYLVCGER\t3\t60.1\t800.25\tms_run[2]:scan=999\t-0.8\t1",
	)
	c, err := ReadAll(path, nil)
	require.NoError(t, err)
	return c
}

func TestParameters_KeepsSettingsDropsPlumbing(t *testing.T) {
	c := testContainer(t)

	tbl, err := c.Parameters()
	require.NoError(t, err)
	require.NotNil(t, tbl)

	params := tbl.Strings("parameter")
	values := tbl.Strings("value")
	require.Equal(t, len(params), len(values))

	byName := make(map[string]string, len(params))
	for i, p := range params {
		byName[p] = values[i]
	}
	assert.Equal(t, "True", byName["match between runs"], "custom wrapper must be unwrapped")
	assert.Contains(t, byName, "title")
	assert.Contains(t, byName, "software[1]")
	assert.NotContains(t, byName, "ms_run[1]-location")
	assert.NotContains(t, byName, "assay[1]-ms_run_ref")
}

func TestSummary_DerivedPerRun(t *testing.T) {
	c := testContainer(t)

	tbl, err := c.Summary()
	require.NoError(t, err)
	require.NotNil(t, tbl)

	assert.Equal(t, []string{"run_alpha_01", "run_beta_01"}, tbl.Strings("raw file"))
	assert.Equal(t, []string{"43.2", "38.9"}, tbl.Strings("ms/ms identified [%]"))
}

func TestProteins_MapsAssayAbundanceToIntensityColumns(t *testing.T) {
	c := testContainer(t)

	tbl, err := c.Proteins()
	require.NoError(t, err)
	require.NotNil(t, tbl)

	assert.Equal(t, 2, tbl.Rows())
	assert.True(t, tbl.HasColumn("accession"))
	assert.True(t, tbl.HasColumn("potential contaminant"))
	assert.Equal(t, []string{"123456.7", "55555.5"}, tbl.Strings("intensity run alpha 01"))
	assert.Equal(t, []string{"98765.4", "44444.4"}, tbl.Strings("intensity run beta 01"))
}

func TestEvidence_DerivesRawFileFromSpectraRef(t *testing.T) {
	c := testContainer(t)

	tbl, err := c.Evidence()
	require.NoError(t, err)
	require.NotNil(t, tbl)

	assert.Equal(t, []string{"run_alpha_01", "run_beta_01"}, tbl.Strings("raw file"))
	assert.Equal(t, []string{"1", "2"}, tbl.Strings("psm id"))
	assert.Equal(t, []string{"1.2", "-0.8"}, tbl.Strings("mass error ppm"))
}

func TestEvidence_ResolvesAgainstCanonicalRules(t *testing.T) {
	c := testContainer(t)

	raw, err := c.Evidence()
	require.NoError(t, err)

	tbl, _, err := resolve.Canonical(raw, 0)
	require.NoError(t, err)

	charge := tbl.Floats("charge")
	require.Len(t, charge, 2)
	assert.Equal(t, 2.0, charge[0])
	assert.Equal(t, 3.0, charge[1])
	assert.Equal(t, []string{"run_alpha_01", "run_beta_01"}, tbl.Strings("raw file"))
	ppm := tbl.Floats("mass error [ppm]")
	require.Len(t, ppm, 2)
	assert.Equal(t, 1.2, ppm[0])
}

func TestMSMSScans_AllRowsIdentified(t *testing.T) {
	c := testContainer(t)

	tbl, err := c.MSMSScans(true)
	require.NoError(t, err)
	require.NotNil(t, tbl)

	assert.Equal(t, table.KindMSMSScans, tbl.Kind)
	assert.Equal(t, 2, tbl.Rows())
	assert.Equal(t, []string{"+", "+"}, tbl.Strings("identified"))
	assert.True(t, tbl.HasColumn("retention time"))

	same, err := c.MSMSScans(false)
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows(), same.Rows(), "container holds identified scans only")
}

func TestReadAll_RowBeforeHeaderRejected(t *testing.T) {
	path := writeContainer(t,
		"MTD\tmzTab-version\t1.0.0",
		"PSM\t1\tP01308",
	)
	_, err := ReadAll(path, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrBadInput)
}

func TestReadAll_FieldCountMismatchRejected(t *testing.T) {
	path := writeContainer(t,
		"PSH\tPSM_ID\tsequence",
		"PSM\t1\tPEPTIDE\tstray",
	)
	_, err := ReadAll(path, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrBadInput)
}

func TestReadAll_UnknownSectionIgnored(t *testing.T) {
	path := writeContainer(t,
		"MTD\tmzTab-version\t1.0.0",
		"XYZ\tsomething\telse",
	)
	c, err := ReadAll(path, nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestMissingSectionsYieldNilTables(t *testing.T) {
	path := writeContainer(t, "MTD\tmzTab-version\t1.0.0")
	c, err := ReadAll(path, nil)
	require.NoError(t, err)

	prot, err := c.Proteins()
	require.NoError(t, err)
	assert.Nil(t, prot)

	evd, err := c.Evidence()
	require.NoError(t, err)
	assert.Nil(t, evd)

	scans, err := c.MSMSScans(true)
	require.NoError(t, err)
	assert.Nil(t, scans)

	sum, err := c.Summary()
	require.NoError(t, err)
	assert.Nil(t, sum)
}
