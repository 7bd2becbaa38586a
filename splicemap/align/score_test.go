// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package align

import (
	"testing"

	"github.com/shenwei356/SpliceMap/splicemap/util"
)

func TestScorer(t *testing.T) {
	p := DefaultParams()
	sc := NewScorer(p)

	if s := sc.GenomicLength(100); s != -2 {
		t.Errorf("genomic length score of 100: %d", s)
	}
	if s := sc.GenomicLength(1); s != 0 {
		t.Errorf("genomic length score of 1: %d", s)
	}
	if s := sc.Deletion(3); s != -8 {
		t.Errorf("deletion score: %d", s)
	}
	if s := sc.Insertion(1); s != -4 {
		t.Errorf("insertion score: %d", s)
	}

	junctions := []struct {
		motif     uint8
		annotated bool
		score     int
	}{
		{MotifGTAG, false, 0},
		{MotifCTAC, false, 0},
		{MotifGCAG, false, -4},
		{MotifATAC, false, -8},
		{MotifNonCanonical, false, -8},
		{MotifNonCanonical, true, 2},
	}
	for _, j := range junctions {
		if s := sc.Junction(j.motif, j.annotated); s != j.score {
			t.Errorf("junction %s (annotated: %v): %d, expected %d", MotifNames[j.motif], j.annotated, s, j.score)
		}
	}
}

func TestScoreTranscript(t *testing.T) {
	p := DefaultParams()
	sc := NewScorer(p)

	read := util.Seq2Codes([]byte("ACGTACGTAAGGCCTT"), nil)
	seq := util.Seq2Codes([]byte("ACGTACGTNNNNNNNNNNAAGGCATT"), nil)

	var tr Transcript
	tr.Exons[0] = Exon{RStart: 0, GStart: 0, Len: 8}
	tr.Gaps[0] = Gap{Kind: GapDeletion, Len: 10}
	tr.Exons[1] = Exon{RStart: 8, GStart: 18, Len: 8}
	tr.NExons = 2
	tr.computeStats(read, seq)

	if tr.NMatch != 15 || tr.NMM != 1 || tr.NDel != 1 || tr.NDelBases != 10 {
		t.Errorf("unexpected stats: %+v", tr)
	}
	if tr.GStart != 0 || tr.GEnd != 26 || tr.RStart != 0 || tr.REnd != 16 {
		t.Errorf("unexpected ranges: %d-%d, %d-%d", tr.RStart, tr.REnd, tr.GStart, tr.GEnd)
	}
	want := 15 - 1 + sc.Deletion(10) + sc.GenomicLength(26)
	if s := sc.Score(&tr, 1); s != want {
		t.Errorf("unexpected score: %d, expected %d", s, want)
	}
	if c := string(tr.AppendCIGAR(nil, [2]int{20, 0}, 1)); c != "8M10D8M4S" {
		t.Errorf("unexpected CIGAR: %s", c)
	}
}

func TestIntronMotif(t *testing.T) {
	cases := []struct {
		intron string
		motif  uint8
		strand uint8
	}{
		{"GTAAAAAG", MotifGTAG, 1},
		{"CTAAAAAC", MotifCTAC, 2},
		{"GCAAAAAG", MotifGCAG, 1},
		{"CTAAAAGC", MotifCTGC, 2},
		{"ATAAAAAC", MotifATAC, 1},
		{"GTAAAAAT", MotifGTAT, 2},
		{"GGAAAAAG", MotifNonCanonical, 0},
		{"GTAAAANG", MotifNonCanonical, 0},
	}
	for _, c := range cases {
		seq := util.Seq2Codes([]byte("AA"+c.intron+"AA"), nil)
		m := intronMotif(seq, 2, 2+len(c.intron))
		if m != c.motif {
			t.Errorf("%s: motif %s, expected %s", c.intron, MotifNames[m], MotifNames[c.motif])
		}
		if s := motifStrand(m); s != c.strand {
			t.Errorf("%s: strand %d, expected %d", c.intron, s, c.strand)
		}
	}

	if m := intronMotif([]uint8{2, 3}, 0, 2); m != MotifNonCanonical {
		t.Errorf("too short intron: %d", m)
	}
}

func TestJunctionRepeats(t *testing.T) {
	// exon ...CAG | GTAG...CAG | GTC...
	seq := util.Seq2Codes([]byte("TTCAGGTAGAAAAACAGGTCTT"), nil)
	l, r := junctionRepeats(seq, 5, 17, 5, 5)
	if l != 3 || r != 2 {
		t.Errorf("unexpected repeats: %d, %d", l, r)
	}
}

func TestSortTranscripts(t *testing.T) {
	trs := []*Transcript{
		{Score: 90, Chr: 0, GStart: 10},
		{Score: 98, Chr: 2, GStart: 10},
		{Score: 98, Chr: 1, GStart: 50},
		{Score: 98, Chr: 1, GStart: 20, Strand: 1},
		{Score: 98, Chr: 1, GStart: 20, Strand: 0, IWindow: 3},
		{Score: 98, Chr: 1, GStart: 20, Strand: 0, IWindow: 1},
	}
	expected := []*Transcript{trs[5], trs[4], trs[3], trs[2], trs[1], trs[0]}
	sortTranscripts(trs)
	for i := range trs {
		if trs[i] != expected[i] {
			t.Errorf("unexpected order at %d: %+v", i, *trs[i])
		}
	}
}

func TestMapq(t *testing.T) {
	for n, q := range map[int]int{1: 255, 2: 3, 3: 1, 4: 1, 5: 0, 100: 0} {
		if v := mapqOf(n); v != q {
			t.Errorf("MAPQ of %d loci: %d, expected %d", n, v, q)
		}
	}
}
