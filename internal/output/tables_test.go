package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/codon-counter/internal/extract"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestTables(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	tables, err := CreateTables(dir)
	require.NoError(t, err)

	indels := extract.IndelTable{
		{Position: 200, Depth: 3, IndelLength: -3, Reference: "TAACGTAAC", Read: "TAAC--"}: 1,
	}
	removal := extract.ReadsToRemove{200: {2: 1}}

	require.NoError(t, tables.Write(&extract.SourceResult{
		Sample:        "s1",
		Substitutions: []*extract.SiteResult{testSite()},
		Indels:        indels,
		ReadsToRemove: removal,
		Depth:         []extract.DepthRow{{Pos: 101, Depth: 10}},
	}))
	require.NoError(t, tables.Write(&extract.SourceResult{Sample: "s2", Skipped: true}))
	require.NoError(t, tables.Write(nil))
	require.NoError(t, tables.Close())

	subs := readLines(t, filepath.Join(dir, SubstitutionsFile))
	assert.Len(t, subs, 2)
	assert.True(t, strings.HasPrefix(subs[1], "s1\t101\tA"))

	assert.Len(t, readLines(t, filepath.Join(dir, CodonWindowsFile)), 3)
	assert.Equal(t, "s1\t201\t3\t-3\tTAACGTAAC\tTAAC--\t1\t33.33", readLines(t, filepath.Join(dir, IndelsFile))[1])
	assert.Equal(t, []string{"sample\tpos\tdepth", "s1\t101\t10"}, readLines(t, filepath.Join(dir, DepthFile)))
	assert.Equal(t, []string{"sample\tpos\toverhang\tcount", "s1\t201\t2\t1"}, readLines(t, filepath.Join(dir, ReadsToRemoveFile)))
}

func TestTables_HeadersOnly(t *testing.T) {
	dir := t.TempDir()
	tables, err := CreateTables(dir)
	require.NoError(t, err)
	require.NoError(t, tables.Close())

	for _, name := range []string{SubstitutionsFile, CodonWindowsFile, IndelsFile, DepthFile, ReadsToRemoveFile} {
		assert.Len(t, readLines(t, filepath.Join(dir, name)), 1, name)
	}
}
