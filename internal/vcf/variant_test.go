package vcf

import (
	"errors"
	"testing"
)

func TestVariant_IsIndel(t *testing.T) {
	tests := []struct {
		name string
		info map[string]string
		want bool
	}{
		{"INDEL flag", map[string]string{"INDEL": "", "DP": "10"}, true},
		{"no flag", map[string]string{"DP": "10"}, false},
		{"empty info", map[string]string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Info: tt.info}
			if got := v.IsIndel(); got != tt.want {
				t.Errorf("IsIndel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariant_AlleleDepths(t *testing.T) {
	tests := []struct {
		name    string
		format  []string
		sample  []string
		want    []int
		wantErr bool
	}{
		{"PL then AD", []string{"PL", "AD"}, []string{"0,3,30", "9,1"}, []int{9, 1}, false},
		{"AD first", []string{"AD", "DP"}, []string{"4,0,2", "6"}, []int{4, 0, 2}, false},
		{"missing AD", []string{"PL"}, []string{"0,3,30"}, nil, true},
		{"non-integer", []string{"AD"}, []string{"4,x"}, nil, true},
		{"missing value", []string{"AD"}, []string{"."}, nil, true},
		{"negative", []string{"AD"}, []string{"4,-1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Chrom: "ref1", Pos: 5, Format: tt.format, Samples: [][]string{tt.sample}}
			got, err := v.AlleleDepths(0)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedSupport) {
					t.Fatalf("expected ErrMalformedSupport, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AlleleDepths: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("AlleleDepths() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("AlleleDepths()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestVariant_FormatValueOutOfRange(t *testing.T) {
	v := &Variant{Format: []string{"AD"}, Samples: [][]string{{"1,2"}}}
	if _, ok := v.FormatValue(1, "AD"); ok {
		t.Error("expected no value for missing sample")
	}
}
