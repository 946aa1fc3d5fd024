package mpileup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/codon-counter/internal/extract"
	"github.com/inodb/codon-counter/internal/vcf"
)

var region = extract.Region{RefName: "ref1", Start: 1, End: 40}

func testdata(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join("..", "..", "testdata", name)
	_, err := os.Stat(p)
	require.NoError(t, err, "test file %s", name)
	return p
}

func TestBcftools_Args(t *testing.T) {
	th := extract.DefaultThresholds()
	th.MinMappingQuality = 20
	th.MinBaseQuality = 13
	th.MaxSeqDepth = 5000

	b := NewBcftools("ref.fa", "", th)
	got := b.Args("s1.bam", region, "/tmp/s1.vcf")

	want := "mpileup --annotate FORMAT/AD -d 5000 -L 5000 -m 1 -e 40 --open-prob 40 -B -q 20 -C0 -Q 13 " +
		"-r ref1:1-40 --no-BAQ -f ref.fa -o /tmp/s1.vcf s1.bam -x"
	assert.Equal(t, want, strings.Join(got, " "))
}

func TestBcftools_ArgsPairPolicy(t *testing.T) {
	tests := []struct {
		name         string
		overlaps     bool
		orphans      bool
		wantOverlaps bool
		wantOrphans  bool
	}{
		{"defaults", true, true, true, false},
		{"keep overlaps", false, true, false, false},
		{"keep orphans", true, false, true, true},
		{"keep both", false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := extract.DefaultThresholds()
			th.IgnoreOverlaps = tt.overlaps
			th.IgnoreOrphans = tt.orphans
			args := NewBcftools("ref.fa", "", th).Args("s.bam", region, "out.vcf")
			assert.Equal(t, tt.wantOverlaps, contains(args, "-x"))
			assert.Equal(t, tt.wantOrphans, contains(args, "-A"))
		})
	}
}

func contains(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestBcftools_Candidates(t *testing.T) {
	vcfData, err := os.ReadFile(testdata(t, "mpileup.vcf"))
	require.NoError(t, err)

	tmp := t.TempDir()
	b := NewBcftools("ref.fa", tmp, extract.DefaultThresholds())

	var gotName string
	var gotOut string
	b.SetRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		for i, a := range args {
			if a == "-o" {
				gotOut = args[i+1]
			}
		}
		return os.WriteFile(gotOut, vcfData, 0o644)
	})

	rows, err := b.Candidates(context.Background(), "/data/sample1.bam", region)
	require.NoError(t, err)

	assert.Equal(t, "bcftools", gotName)
	assert.Equal(t, tmp, filepath.Dir(gotOut))
	assert.True(t, strings.HasPrefix(filepath.Base(gotOut), "sample1-"))
	_, err = os.Stat(gotOut)
	assert.True(t, os.IsNotExist(err), "intermediate VCF should be removed")

	assert.Equal(t, []extract.CandidateRow{
		{Pos: 5, Support: []int{9, 1, 0}},
		{Pos: 6, Support: []int{10, 0}},
		{Pos: 12, Support: []int{6, 4, 0}, IsIndel: true},
		{Pos: 12, Support: []int{12, 0}},
	}, rows)
}

func TestBcftools_RunnerError(t *testing.T) {
	b := NewBcftools("ref.fa", t.TempDir(), extract.DefaultThresholds())
	errExit := errors.New("exit status 255")
	b.SetRunner(func(context.Context, string, ...string) error { return errExit })

	_, err := b.Candidates(context.Background(), "s.bam", region)
	assert.ErrorIs(t, err, errExit)
}

func TestReadRows_MalformedSupport(t *testing.T) {
	input := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\ts1\n" +
		"ref1\t5\t.\tA\tT,<*>\t0\t.\tDP=10\tPL:AD\t0,3,30:9,x,0\n"

	_, err := ReadRows(strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedCandidate)
	assert.ErrorIs(t, err, vcf.ErrMalformedSupport)
	assert.ErrorContains(t, err, "line 3")
}

func TestReadRows_Empty(t *testing.T) {
	input := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\ts1\n"

	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadFile(t *testing.T) {
	rows, err := ReadFile(testdata(t, "mpileup.vcf"))
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.vcf"))
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	s := Static{"s1": {{Pos: 3, Support: []int{1, 1}}}}

	rows, err := s.Candidates(context.Background(), "dir/s1.bam", region)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = s.Candidates(context.Background(), "s2.bam", region)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
