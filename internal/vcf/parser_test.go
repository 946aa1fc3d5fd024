package vcf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParser_MpileupFile(t *testing.T) {
	testFile := findTestFile(t, "mpileup.vcf")

	parser, err := NewParser(testFile)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	defer parser.Close()

	if got := parser.SampleNames(); len(got) != 1 || got[0] != "sample1" {
		t.Errorf("SampleNames() = %v, want [sample1]", got)
	}

	var variants []*Variant
	for {
		v, err := parser.Next()
		if err != nil {
			t.Fatalf("Error reading variant: %v", err)
		}
		if v == nil {
			break
		}
		variants = append(variants, v)
	}

	if len(variants) != 4 {
		t.Fatalf("Expected 4 variants, got %d", len(variants))
	}

	first := variants[0]
	if first.Chrom != "ref1" || first.Pos != 5 {
		t.Errorf("Expected ref1:5, got %s:%d", first.Chrom, first.Pos)
	}
	if first.IsIndel() {
		t.Error("ref1:5 should not be an indel")
	}

	ad, err := first.AlleleDepths(0)
	if err != nil {
		t.Fatalf("AlleleDepths: %v", err)
	}
	if len(ad) != 3 || ad[0] != 9 || ad[1] != 1 || ad[2] != 0 {
		t.Errorf("AlleleDepths() = %v, want [9 1 0]", ad)
	}

	if !variants[2].IsIndel() {
		t.Error("ref1:12 TTTTG>TG should be flagged INDEL")
	}
	if variants[3].IsIndel() {
		t.Error("ref1:12 T><*> should not be flagged INDEL")
	}
}

func TestParser_MissingHeader(t *testing.T) {
	_, err := NewParserFromReader(strings.NewReader("ref1\t5\t.\tA\tT\t0\t.\t.\n"))
	if err == nil {
		t.Fatal("Expected error for missing #CHROM header")
	}

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *ParseError, got %T", err)
	}
	if pe.Line != 1 {
		t.Errorf("Expected error on line 1, got %d", pe.Line)
	}
}

func TestParser_TooFewColumns(t *testing.T) {
	input := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\nref1\t5\tA\n"
	parser, err := NewParserFromReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	_, err = parser.Next()
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *ParseError, got %v", err)
	}
	if pe.Line != 2 {
		t.Errorf("Expected error on line 2, got %d", pe.Line)
	}
}

func TestParser_NoTrailingNewline(t *testing.T) {
	input := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\ts\nref1\t7\t.\tA\t<*>\t0\t.\tDP=3\tAD\t3,0"
	parser, err := NewParserFromReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	v, err := parser.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if v == nil || v.Pos != 7 {
		t.Fatalf("Expected variant at 7, got %+v", v)
	}

	v, err = parser.Next()
	if err != nil || v != nil {
		t.Errorf("Expected end of input, got %v, %v", v, err)
	}
}

func TestParser_SampleColumns(t *testing.T) {
	header := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\ts1\n"
	tests := []struct {
		name string
		line string
	}{
		{"extra sample column", "ref1\t5\t.\tA\t<*>\t0\t.\tDP=3\tAD\t3,0\t2,1\n"},
		{"more values than keys", "ref1\t5\t.\tA\t<*>\t0\t.\tDP=3\tAD\t3,0:7\n"},
		{"bad quality", "ref1\t5\t.\tA\t<*>\tlow\t.\tDP=3\tAD\t3,0\n"},
		{"zero position", "ref1\t0\t.\tA\t<*>\t0\t.\tDP=3\tAD\t3,0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser, err := NewParserFromReader(strings.NewReader(header + tt.line))
			if err != nil {
				t.Fatalf("Failed to create parser: %v", err)
			}
			_, err = parser.Next()
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Expected *ParseError, got %v", err)
			}
			if pe.Line != 2 {
				t.Errorf("Expected error on line 2, got %d", pe.Line)
			}
		})
	}
}

func TestParseInfo(t *testing.T) {
	info := parseInfo("INDEL;IDV=4;IMF=0.4")
	if v, ok := info["INDEL"]; !ok || v != "" {
		t.Errorf("INDEL = %q, %v; want flag", v, ok)
	}
	if info["IDV"] != "4" {
		t.Errorf("IDV = %q, want 4", info["IDV"])
	}
	if len(parseInfo(".")) != 0 {
		t.Error("expected empty INFO for '.'")
	}
}

func findTestFile(t *testing.T, name string) string {
	t.Helper()

	paths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "..", "testdata", name),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	t.Fatalf("Test file not found: %s", name)
	return ""
}
