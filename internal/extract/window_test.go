package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitutionWindow(t *testing.T) {
	clipped := read("NNTAACG", 3)
	clipped.AlignmentStart = 2

	tests := []struct {
		name     string
		pos      int
		read     func() ReadEvent
		wantRef  string
		wantRead string
	}{
		{
			name:     "interior",
			pos:      100,
			read:     func() ReadEvent { r := read("TATCG", 2); return Classify(&r, false) },
			wantRef:  "TAACG",
			wantRead: "TATCG",
		},
		{
			name:     "first base of contig",
			pos:      0,
			read:     func() ReadEvent { r := read("ACGTA", 0); return Classify(&r, false) },
			wantRef:  "--ACG",
			wantRead: "--ACG",
		},
		{
			name:     "read ends after anchor",
			pos:      102,
			read:     func() ReadEvent { r := read("TAACG", 4); return Classify(&r, false) },
			wantRef:  "ACGTA",
			wantRead: "ACG--",
		},
		{
			name:     "soft clip is not context",
			pos:      100,
			read:     func() ReadEvent { return Classify(&clipped, false) },
			wantRef:  "TAACG",
			wantRead: "-TAAC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := SubstitutionWindow(testRef, tt.pos, 10, tt.read())
			assert.Equal(t, tt.wantRef, w.Reference)
			assert.Equal(t, tt.wantRead, w.Read)
			assert.Equal(t, tt.pos, w.Position)
			assert.Equal(t, 10, w.Depth)
			assert.Equal(t, 0, w.IndelLength)
		})
	}
}

func TestIndelWindow(t *testing.T) {
	tests := []struct {
		name     string
		read     func() ReadEvent
		wantRef  string
		wantRead string
	}{
		{
			name:     "deletion ending near read end",
			read:     func() ReadEvent { r := indelRead("CGTAAC", 4, -3); return Classify(&r, true) },
			wantRef:  "TAACGTAAC",
			wantRead: "TAAC--",
		},
		{
			name:     "deletion near read start",
			read:     func() ReadEvent { r := indelRead("AACGT", 1, -3); return Classify(&r, true) },
			wantRef:  "TAACGTAAC",
			wantRead: "-AACGT",
		},
		{
			name:     "deletion two bases into read",
			read:     func() ReadEvent { r := indelRead("ACGTACGTAC", 2, -3); return Classify(&r, true) },
			wantRef:  "TAACGTAAC",
			wantRead: "ACGTAC",
		},
		{
			name: "deletion after soft clip",
			read: func() ReadEvent {
				r := indelRead("NAACGT", 2, -3)
				r.AlignmentStart = 1
				return Classify(&r, true)
			},
			wantRef:  "TAACGTAAC",
			wantRead: "-AACGT",
		},
		{
			name:     "insertion at first aligned base",
			read:     func() ReadEvent { r := indelRead("ACGTACGTAC", 0, 3); return Classify(&r, true) },
			wantRef:  "TAACGT",
			wantRead: "--ACGTACG",
		},
		{
			name:     "insertion",
			read:     func() ReadEvent { r := indelRead("GTAAGGGCGTA", 3, 3); return Classify(&r, true) },
			wantRef:  "TAACGT",
			wantRead: "TAAGGGCGT",
		},
		{
			name:     "insertion near read end",
			read:     func() ReadEvent { r := indelRead("GTAAGGG", 3, 3); return Classify(&r, true) },
			wantRef:  "TAACGT",
			wantRead: "TAAGGG---",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.read()
			require.Equal(t, EventIndel, ev.Kind)
			w := IndelWindow(testRef, 200, 7, ev)
			assert.Equal(t, tt.wantRef, w.Reference)
			assert.Equal(t, tt.wantRead, w.Read)
			assert.Equal(t, ev.Obs.IndelLength, w.IndelLength)
		})
	}
}

func TestWindows_WidthInvariant(t *testing.T) {
	seq := "ACGTACGTAC"
	for qp := 0; qp < len(seq); qp++ {
		r := read(seq, qp)
		w := SubstitutionWindow(testRef, qp, 1, Classify(&r, false))
		assert.Len(t, w.Read, 5, "substitution read window at %d", qp)
		assert.Len(t, w.Reference, 5, "substitution reference window at %d", qp)

		for _, n := range []int{-6, -3, 3, 6} {
			r := indelRead(seq, qp, n)
			w := IndelWindow(testRef, 0, 1, Classify(&r, true))
			if n < 0 {
				assert.Len(t, w.Read, 6, "deletion read window at %d", qp)
				assert.Len(t, w.Reference, 6-n, "deletion reference window at %d", qp)
			} else {
				assert.Len(t, w.Read, 6+n, "insertion read window at %d", qp)
				assert.Len(t, w.Reference, 6, "insertion reference window at %d", qp)
			}
		}
	}
}

func TestFramePreserving(t *testing.T) {
	for _, n := range []int{-9, -6, -3, 3, 6, 9} {
		assert.True(t, FramePreserving(n), "%d", n)
	}
	for _, n := range []int{-4, -2, -1, 1, 2, 4} {
		assert.False(t, FramePreserving(n), "%d", n)
	}
}
