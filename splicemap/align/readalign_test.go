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
	"bytes"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/shenwei356/SpliceMap/splicemap/genome"
	"github.com/shenwei356/SpliceMap/splicemap/index"
)

// the test genome:
//
//	chr1: 20000 bp, GT..AG introns at [2050, 2550) and [12050, 12550)
//	chr2, chr3: 10000 bp, sharing a 100-bp repeat at 3000
type testGenome struct {
	g    *genome.Genome
	idx  *index.Index
	chrs [][]byte
}

var (
	_testGenome     *testGenome
	_testGenomeOnce sync.Once
	_testGenomeErr  error
)

func randSeq(r *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = "ACGT"[r.Intn(4)]
	}
	return s
}

func revComp(s []byte) []byte {
	rc := make([]byte, len(s))
	for i, b := range s {
		switch b {
		case 'A':
			b = 'T'
		case 'C':
			b = 'G'
		case 'G':
			b = 'C'
		case 'T':
			b = 'A'
		}
		rc[len(s)-1-i] = b
	}
	return rc
}

// plantIntron makes [s, e) an intron starting with GT and ending with AG.
// The flanking bases are chosen so that the junction could not be shifted.
func plantIntron(chr []byte, s, e int) {
	chr[s-1] = 'C'
	chr[s], chr[s+1] = 'G', 'T'
	chr[e-2], chr[e-1] = 'A', 'G'
	chr[e] = 'C'
}

func getTestGenome(t *testing.T) *testGenome {
	_testGenomeOnce.Do(func() {
		r := rand.New(rand.NewSource(1))
		chr1 := randSeq(r, 20000)
		chr2 := randSeq(r, 10000)
		chr3 := randSeq(r, 10000)
		plantIntron(chr1, 2050, 2550)
		plantIntron(chr1, 12050, 12550)
		repeat := randSeq(r, 100)
		copy(chr2[3000:], repeat)
		copy(chr3[3000:], repeat)

		g, err := genome.New(12)
		if err != nil {
			_testGenomeErr = err
			return
		}
		for i, s := range [][]byte{chr1, chr2, chr3} {
			if err = g.AddChromosome(fmt.Sprintf("chr%d", i+1), s); err != nil {
				_testGenomeErr = err
				return
			}
		}
		idx, err := index.Build(g, 16, nil)
		if err != nil {
			_testGenomeErr = err
			return
		}
		_testGenome = &testGenome{g: g, idx: idx, chrs: [][]byte{chr1, chr2, chr3}}
	})
	if _testGenomeErr != nil {
		t.Fatal(_testGenomeErr)
	}
	return _testGenome
}

func (tg *testGenome) newEngine(t *testing.T, p *Params, iChunk int) *ReadAlign {
	ra, err := NewReadAlign(p, tg.idx, iChunk)
	if err != nil {
		t.Fatal(err)
	}
	return ra
}

func singleRead(name string, s ...[]byte) *Read {
	var seq []byte
	for _, b := range s {
		seq = append(seq, b...)
	}
	return &Read{Name: []byte(name), Mates: [2][]byte{seq}, NMates: 1}
}

// summary describes a result in one line, for comparing results.
func summary(res *Result) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s/%s n=%d mapq=%d", res.Class, res.Reason, res.NTr, res.MAPQ)
	for _, tr := range res.Tr {
		fmt.Fprintf(&b, " [%d%c%d %d %s]", tr.Chr, "+-"[tr.Strand], tr.GStart, tr.Score,
			tr.AppendCIGAR(nil, res.ReadLength, res.NMates))
	}
	if res.Chim != nil {
		fmt.Fprintf(&b, " chim:%d:%d:%d", res.Chim.ReadJunction, res.Chim.JunctionType, res.Chim.Score)
	}
	return b.String()
}

func cigar(res *Result, i int) string {
	return string(res.Tr[i].AppendCIGAR(nil, res.ReadLength, res.NMates))
}

func TestUniqueRead(t *testing.T) {
	tg := getTestGenome(t)
	p := DefaultParams()
	ra := tg.newEngine(t, p, 0)
	chr1 := tg.chrs[0]

	for strand, s := range [][]byte{chr1[1000:1100], revComp(chr1[1000:1100])} {
		res := ra.OneRead(singleRead("r1", s))
		t.Log(summary(res))

		if res.Class != ClassUnique || res.NTr != 1 || res.MAPQ != 255 {
			t.Fatalf("strand %d: unexpected result: %s", strand, summary(res))
		}
		tr := res.Tr[res.Primary]
		if tr.Chr != 0 || tr.GStart != tg.g.Chrs[0].Start+1000 || int(tr.Strand) != strand {
			t.Errorf("strand %d: unexpected locus: %d %d %d", strand, tr.Chr, tr.GStart, tr.Strand)
		}
		if tr.Score != p.PerfectScore(100) || tr.Score != 98 {
			t.Errorf("strand %d: unexpected score: %d", strand, tr.Score)
		}
		if c := cigar(res, 0); c != "100M" {
			t.Errorf("strand %d: unexpected CIGAR: %s", strand, c)
		}
		if !tr.Primary || tr.NMM != 0 || tr.NMatch != 100 {
			t.Errorf("strand %d: unexpected stats: %+v", strand, tr)
		}
	}
}

func TestSplicedRead(t *testing.T) {
	tg := getTestGenome(t)
	p := DefaultParams()
	ra := tg.newEngine(t, p, 0)
	chr1 := tg.chrs[0]

	res := ra.OneRead(singleRead("r2", chr1[2000:2050], chr1[2550:2600]))
	t.Log(summary(res))
	if res.Class != ClassUnique {
		t.Fatalf("unexpected result: %s", summary(res))
	}
	tr := res.Tr[0]
	if tr.NExons != 2 || tr.Gaps[0].Kind != GapSplice || tr.Gaps[0].Len != 500 {
		t.Fatalf("unexpected transcript: %s", summary(res))
	}
	if c := cigar(res, 0); c != "50M500N50M" {
		t.Errorf("unexpected CIGAR: %s", c)
	}
	if tr.Gaps[0].Motif != MotifGTAG || tr.Gaps[0].Annotated {
		t.Errorf("unexpected junction motif: %s", MotifNames[tr.Gaps[0].Motif])
	}
	if want := 100 + genomicLengthScore(p.ScoreGenomicLengthLog2scale, 600); tr.Score != want {
		t.Errorf("unexpected score: %d, expected %d", tr.Score, want)
	}

	if len(res.Junctions) != 1 {
		t.Fatalf("unexpected number of junctions: %d", len(res.Junctions))
	}
	j := res.Junctions[0]
	start := tg.g.Chrs[0].Start + 2050
	if j.Kind != JunctionCanonical || j.Strand != 1 || j.Start != start || j.End != start+500 ||
		j.Donor != start || j.Acceptor != start+499 {
		t.Errorf("unexpected junction: %+v", j)
	}

	// a chain is never worse than any of its seeds
	var lMax int
	for _, sd := range ra.Seeds() {
		if sd.Dir == 0 && sd.Len > lMax {
			lMax = sd.Len
		}
	}
	if lMax != 50 || tr.Score < p.PerfectScore(lMax) {
		t.Errorf("the longest seed: %d, the score of the chain: %d", lMax, tr.Score)
	}
}

func TestPairedRead(t *testing.T) {
	tg := getTestGenome(t)
	p := DefaultParams()
	ra := tg.newEngine(t, p, 0)
	chr1 := tg.chrs[0]

	read := &Read{
		Name:   []byte("r3"),
		Mates:  [2][]byte{chr1[8000:8100], revComp(chr1[8200:8300])},
		NMates: 2,
	}
	res := ra.OneRead(read)
	t.Log(summary(res))
	if res.Class != ClassUnique || res.Lread != 201 {
		t.Fatalf("unexpected result: %s", summary(res))
	}
	tr := res.Tr[0]
	if tr.Mates != 3 || tr.NExons != 2 || tr.Gaps[0].Kind != GapMateGap || tr.Gaps[0].Len != 100 {
		t.Errorf("unexpected transcript: %s", summary(res))
	}
	if c := cigar(res, 0); c != "100M100p100M" {
		t.Errorf("unexpected CIGAR: %s", c)
	}
	if want := 200 + genomicLengthScore(p.ScoreGenomicLengthLog2scale, 300) + p.ScoreProperPair; tr.Score != want {
		t.Errorf("unexpected score: %d, expected %d", tr.Score, want)
	}
	if len(res.Junctions) != 1 || res.Junctions[0].Kind != JunctionNone {
		t.Errorf("a mate gap is not a splice junction: %+v", res.Junctions)
	}
}

func TestMultiMappedRead(t *testing.T) {
	tg := getTestGenome(t)
	p := DefaultParams()
	ra := tg.newEngine(t, p, 0)

	read := singleRead("r4", tg.chrs[1][3000:3100])
	res := ra.OneRead(read)
	t.Log(summary(res))
	if res.Class != ClassMulti || res.NTr != 2 || res.MAPQ != 3 {
		t.Fatalf("unexpected result: %s", summary(res))
	}
	if res.Tr[0].Chr != 1 || res.Tr[1].Chr != 2 || res.Tr[0].Score != res.Tr[1].Score {
		t.Errorf("unexpected order: %s", summary(res))
	}
	if res.Primary != 0 || !res.Tr[0].Primary || res.Tr[1].Primary {
		t.Errorf("unexpected primary alignment: %d", res.Primary)
	}

	// all best ones are primary
	p2 := DefaultParams()
	p2.OutSAMprimaryFlag = "AllBestScore"
	res = tg.newEngine(t, p2, 0).OneRead(read)
	if !res.Tr[0].Primary || !res.Tr[1].Primary {
		t.Errorf("all best alignments should be primary")
	}

	// too many loci
	p3 := DefaultParams()
	p3.OutFilterMultimapNmax = 1
	res = tg.newEngine(t, p3, 0).OneRead(read)
	if res.Class != ClassTooManyLoci || res.Reason != ReasonTooManyLoci || res.Mapped() {
		t.Errorf("expected too many loci: %s", summary(res))
	}
}

func TestWindowOverflow(t *testing.T) {
	tg := getTestGenome(t)
	p := DefaultParams()
	p.AlignWindowsPerReadNmax = 1
	ra := tg.newEngine(t, p, 0)

	res := ra.OneRead(singleRead("r5", tg.chrs[1][3000:3100]))
	t.Log(summary(res))
	if res.Flags&FlagWindowOverflow == 0 {
		t.Errorf("window overflow is not flagged")
	}
	if res.Class != ClassUnique || res.Tr[0].Chr != 1 {
		t.Errorf("unexpected result: %s", summary(res))
	}
	if len(ra.Windows()) != 1 {
		t.Errorf("unexpected number of windows: %d", len(ra.Windows()))
	}
}

func TestWindowBins(t *testing.T) {
	tg := getTestGenome(t)
	ra := tg.newEngine(t, DefaultParams(), 0)
	chr1 := tg.chrs[0]

	ra.OneRead(singleRead("r6", chr1[2000:2050], chr1[2550:2600]))
	for i, w := range ra.Windows() {
		if w.BinEnd < w.BinStart || w.GStart >= w.GEnd {
			t.Errorf("window %d: invalid range: %+v", i, w)
			continue
		}
		for b := w.BinStart; b <= w.BinEnd; b++ {
			if int(ra.winBin[w.Strand][b]) != i {
				t.Errorf("window %d: bin %d is owned by %d", i, b, ra.winBin[w.Strand][b])
			}
		}
		c := &tg.g.Chrs[w.Chr]
		if w.GStart < c.Start || w.GEnd > c.End() {
			t.Errorf("window %d: out of the chromosome: %+v", i, w)
		}
		for k := 1; k < len(w.Aligns); k++ {
			a, b := w.Aligns[k-1], w.Aligns[k]
			if a.RStart > b.RStart || a.RStart == b.RStart && a.GStart > b.GStart {
				t.Errorf("window %d: aligns are not sorted", i)
			}
		}
	}

	// bins are released for the next read
	ra.ResetN()
	for s := 0; s < 2; s++ {
		for b, i := range ra.winBin[s] {
			if i >= 0 {
				t.Fatalf("bin %d of strand %d is not released", b, s)
			}
		}
	}
}

func chimericRead(tg *testGenome) *Read {
	return singleRead("r7", tg.chrs[0][5000:5050], tg.chrs[1][7000:7050])
}

func TestChimericRead(t *testing.T) {
	tg := getTestGenome(t)
	p := DefaultParams()
	p.ChimSegmentMin = 20
	ra := tg.newEngine(t, p, 0)

	res := ra.OneRead(chimericRead(tg))
	t.Log(summary(res))
	if res.Class == ClassUnique {
		t.Fatalf("a chimeric read should not be mapped uniquely: %s", summary(res))
	}
	chim := res.Chim
	if chim == nil {
		t.Fatalf("chimeric alignment not found: %s", summary(res))
	}
	s1, s2 := chim.Seg[0], chim.Seg[1]
	if s1.Chr != 0 || s2.Chr != 1 {
		t.Errorf("unexpected chromosomes of segments: %d, %d", s1.Chr, s2.Chr)
	}
	if s1.GStart != tg.g.Chrs[0].Start+5000 || s2.GEnd != tg.g.Chrs[1].Start+7050 {
		t.Errorf("unexpected segment ranges: %d, %d", s1.GStart, s2.GEnd)
	}
	if chim.ReadJunction < 50-chim.RepeatLeft-3 || chim.ReadJunction > 50+chim.RepeatRight+3 {
		t.Errorf("unexpected junction position in the read: %d", chim.ReadJunction)
	}
	if s1.REnd != chim.ReadJunction || s2.RStart != chim.ReadJunction {
		t.Errorf("segments are not trimmed at the junction: %d, %d, %d", s1.REnd, s2.RStart, chim.ReadJunction)
	}
	if chim.Donor.Chr == chim.Acceptor.Chr {
		t.Errorf("unexpected donor and acceptor: %+v, %+v", chim.Donor, chim.Acceptor)
	}
	if chim.Score+p.ChimScoreDropMax < 100 || chim.Ambiguous {
		t.Errorf("unexpected chimeric score: %d", chim.Score)
	}

	// below the score threshold
	p2 := DefaultParams()
	p2.ChimSegmentMin = 20
	p2.ChimScoreMin = 200
	if res = tg.newEngine(t, p2, 0).OneRead(chimericRead(tg)); res.Chim != nil || res.Class != ClassUnmapped {
		t.Errorf("chimeric score below the threshold: %s", summary(res))
	}

	// a normal read
	res = ra.OneRead(singleRead("r1", tg.chrs[0][1000:1100]))
	if res.Chim != nil {
		t.Errorf("unexpected chimeric alignment of a normal read: %s", summary(res))
	}
}

func testReads(tg *testGenome) []*Read {
	chr1 := tg.chrs[0]
	return []*Read{
		singleRead("unique", chr1[1000:1100]),
		singleRead("spliced", chr1[2000:2050], chr1[2550:2600]),
		singleRead("multi", tg.chrs[1][3000:3100]),
		chimericRead(tg),
		{Name: []byte("paired"), Mates: [2][]byte{chr1[8000:8100], revComp(chr1[8200:8300])}, NMates: 2},
		singleRead("random", randSeq(rand.New(rand.NewSource(3)), 100)),
	}
}

func TestDeterminism(t *testing.T) {
	tg := getTestGenome(t)
	for _, order := range []string{"Old_2.4", "Random"} {
		p := DefaultParams()
		p.ChimSegmentMin = 20
		p.OutMultimapperOrder = order
		ra1 := tg.newEngine(t, p, 0)
		ra2 := tg.newEngine(t, p, 0)
		for _, read := range testReads(tg) {
			s1 := summary(ra1.OneRead(read))
			s2 := summary(ra2.OneRead(read))
			if s1 != s2 {
				t.Errorf("%s: %s: different results:\n%s\n%s", order, read.Name, s1, s2)
			}
		}
	}
}

func TestNoLeakBetweenReads(t *testing.T) {
	tg := getTestGenome(t)
	p := DefaultParams()
	p.ChimSegmentMin = 20
	reads := testReads(tg)

	first := make([]string, len(reads))
	for i, read := range reads {
		first[i] = summary(tg.newEngine(t, p, 0).OneRead(read))
	}

	ra := tg.newEngine(t, p, 0)
	for round := 0; round < 2; round++ {
		for i := len(reads) - 1; i >= 0; i-- {
			if s := summary(ra.OneRead(reads[i])); s != first[i] {
				t.Errorf("%s: result changed after other reads:\n%s\n%s", reads[i].Name, first[i], s)
			}
		}
	}
}

func TestSkippedReads(t *testing.T) {
	tg := getTestGenome(t)
	p := DefaultParams()
	ra := tg.newEngine(t, p, 0)

	cases := []struct {
		read *Read
		err  error
	}{
		{&Read{Name: []byte("a"), NMates: 3}, ErrMateCount},
		{&Read{Name: []byte("b"), NMates: 1}, ErrEmptyRead},
		{singleRead("c", bytes.Repeat([]byte("A"), p.ReadMatesLengthMax+1)), ErrReadTooLong},
		{singleRead("d", []byte("ACGT..........ACGTACGTACGT")), ErrInvalidBases},
		{singleRead(string(bytes.Repeat([]byte("n"), p.ReadNameLengthMax+1)), []byte("ACGT")), ErrReadNameTooLong},
	}
	for _, c := range cases {
		res := ra.OneRead(c.read)
		if res.Status != StatusSkipped || res.Err != c.err || res.Reason != ReasonSkipped {
			t.Errorf("%s: expected %v, returned %v", c.read.Name, c.err, res.Err)
		}
	}

	// no seeds
	res := ra.OneRead(singleRead("e", bytes.Repeat([]byte("N"), 5)))
	if res.Status != StatusOK || res.Class != ClassUnmapped || res.Reason != ReasonNoSeeds {
		t.Errorf("expected no seeds: %s", summary(res))
	}
}

func TestAnnotatedJunction(t *testing.T) {
	tg := getTestGenome(t)
	db := NewSJDB(tg.g)
	if err := db.Add("chr1", 2051, 2550, '+'); err != nil {
		t.Fatal(err)
	}
	chr1 := tg.chrs[0]
	annotated := singleRead("annotated", chr1[2000:2050], chr1[2550:2600])
	novel := singleRead("novel", chr1[12000:12050], chr1[12550:12600])

	p := DefaultParams()
	p.SJDB = db
	ra := tg.newEngine(t, p, 0)
	res := ra.OneRead(annotated)
	if res.Class != ClassUnique || !res.Tr[0].Gaps[0].Annotated || !res.Junctions[0].Annotated {
		t.Fatalf("junction not annotated: %s", summary(res))
	}
	if want := 100 + p.ScoreSJannotated + genomicLengthScore(p.ScoreGenomicLengthLog2scale, 600); res.Tr[0].Score != want {
		t.Errorf("unexpected score: %d, expected %d", res.Tr[0].Score, want)
	}
	res = ra.OneRead(novel)
	if res.Class != ClassUnique || res.Tr[0].NExons != 2 || res.Tr[0].Gaps[0].Annotated {
		t.Errorf("unexpected result of a novel junction: %s", summary(res))
	}

	// only annotated junctions are allowed in super-transcripts
	p2 := DefaultParams()
	p2.SJDB = db
	p2.GenomeType = "SuperTranscriptome"
	ra2 := tg.newEngine(t, p2, 0)
	res = ra2.OneRead(annotated)
	if res.Class != ClassUnique || cigar(res, 0) != "50M500N50M" {
		t.Errorf("unexpected result in a super-transcript: %s", summary(res))
	}
	for _, w := range ra2.Windows() {
		lo, hi := ra2.chrBins(w.Chr)
		if w.BinStart != lo || w.BinEnd != hi {
			t.Errorf("a window should cover the whole super-transcript: %+v", w)
		}
	}
	res = ra2.OneRead(novel)
	for _, tr := range res.Tr {
		if tr.NJunc > 0 {
			t.Errorf("novel junction used in a super-transcript: %s", summary(res))
		}
	}
	if res.Mapped() {
		t.Errorf("a half-aligned read should not be mapped: %s", summary(res))
	}
}

func TestParamsCheckedAtConstruction(t *testing.T) {
	tg := getTestGenome(t)
	p := DefaultParams()
	tg.newEngine(t, p, 0)

	p.AlignEndsType = "Bogus"
	if _, err := NewReadAlign(p, tg.idx, 1); err == nil {
		t.Errorf("invalid alignEndsType accepted")
	}
	p.AlignEndsType = "Local"
	p.OutFilterMultimapNmax = 0
	p.AlignTranscriptsPerReadNmax = 0
	if _, err := NewReadAlign(p, tg.idx, 1); err == nil {
		t.Errorf("invalid capacities accepted")
	}

	// options changed later only affect new engines
	p = DefaultParams()
	ra := tg.newEngine(t, p, 0)
	p.AlignEndsType = "EndToEnd"
	ra2 := tg.newEngine(t, p, 1)
	if ra.Params() == p || ra.Params().endsType != EndsLocal {
		t.Errorf("the engine does not own its parameters")
	}
	if ra2.Params().endsType != EndsEndToEnd {
		t.Errorf("changed alignEndsType ignored: %d", ra2.Params().endsType)
	}
}

// the indel genome:
//
//	chrA: 6000 bp, a 3-bp deletion site at 1050, a 2-bp insertion site at 3050
//	chrB: 6000 bp, holding a copy of chrA[4000:4100] at 2000, with one mismatch at 2050
type indelGenome struct {
	idx  *index.Index
	chrs [][]byte
	ins  []byte
}

var (
	_indelGenome     *indelGenome
	_indelGenomeOnce sync.Once
	_indelGenomeErr  error
)

func getIndelGenome(t *testing.T) *indelGenome {
	_indelGenomeOnce.Do(func() {
		r := rand.New(rand.NewSource(7))
		chrA := randSeq(r, 6000)
		chrB := randSeq(r, 6000)

		// the deletion of [1050, 1053) could not be shifted
		chrA[1049], chrA[1050], chrA[1052], chrA[1053] = 'A', 'C', 'G', 'T'
		// neither could the insertion before 3050
		chrA[3049], chrA[3050] = 'A', 'C'
		ins := []byte("GT")

		copy(chrB[2000:2100], chrA[4000:4100])
		if chrA[4050] == 'A' {
			chrB[2050] = 'C'
		} else {
			chrB[2050] = 'A'
		}

		g, err := genome.New(12)
		if err != nil {
			_indelGenomeErr = err
			return
		}
		if err = g.AddChromosome("chrA", chrA); err != nil {
			_indelGenomeErr = err
			return
		}
		if err = g.AddChromosome("chrB", chrB); err != nil {
			_indelGenomeErr = err
			return
		}
		idx, err := index.Build(g, 16, nil)
		if err != nil {
			_indelGenomeErr = err
			return
		}
		_indelGenome = &indelGenome{idx: idx, chrs: [][]byte{chrA, chrB}, ins: ins}
	})
	if _indelGenomeErr != nil {
		t.Fatal(_indelGenomeErr)
	}
	return _indelGenome
}

func TestIndels(t *testing.T) {
	ig := getIndelGenome(t)
	p := DefaultParams()
	ra, err := NewReadAlign(p, ig.idx, 0)
	if err != nil {
		t.Fatal(err)
	}
	sc := NewScorer(p)
	chrA := ig.chrs[0]

	cases := []struct {
		name  string
		read  *Read
		cigar string
		kind  GapKind
		score int
	}{
		{"deletion", singleRead("del", chrA[1000:1050], chrA[1053:1103]),
			"50M3D50M", GapDeletion, 100 + sc.Deletion(3) + sc.GenomicLength(103)},
		{"insertion", singleRead("ins", chrA[3000:3050], ig.ins, chrA[3050:3098]),
			"50M2I48M", GapInsertion, 98 + sc.Insertion(2) + sc.GenomicLength(98)},
	}
	for _, c := range cases {
		res := ra.OneRead(c.read)
		t.Log(summary(res))
		if res.Class != ClassUnique {
			t.Errorf("%s: unexpected result: %s", c.name, summary(res))
			continue
		}
		tr := res.Tr[0]
		if s := cigar(res, 0); s != c.cigar {
			t.Errorf("%s: unexpected CIGAR: %s, expected %s", c.name, s, c.cigar)
		}
		if tr.NExons != 2 || tr.Gaps[0].Kind != c.kind || tr.NMM != 0 || tr.NJunc != 0 {
			t.Errorf("%s: unexpected transcript: %s", c.name, summary(res))
		}
		if tr.Score != c.score {
			t.Errorf("%s: unexpected score: %d, expected %d", c.name, tr.Score, c.score)
		}
		for _, j := range res.Junctions {
			if j.Kind != JunctionNone {
				t.Errorf("%s: an indel is not a splice junction: %+v", c.name, j)
			}
		}
	}
}

func TestMultimapScoreRange(t *testing.T) {
	ig := getIndelGenome(t)
	read := singleRead("r8", ig.chrs[0][4000:4100])

	for _, scoreRange := range []int{0, 1, 2, 5} {
		p := DefaultParams()
		p.OutFilterMultimapScoreRange = scoreRange
		ra, err := NewReadAlign(p, ig.idx, 0)
		if err != nil {
			t.Fatal(err)
		}
		res := ra.OneRead(read)
		t.Logf("range %d: %s", scoreRange, summary(res))

		best := p.PerfectScore(100)
		if res.NTr < 1 || res.Tr[0].Chr != 0 || res.Tr[0].Score != best {
			t.Errorf("range %d: unexpected best alignment: %s", scoreRange, summary(res))
			continue
		}
		for _, tr := range res.Tr {
			if tr.Score < best-scoreRange {
				t.Errorf("range %d: alignment out of the score range kept: %s", scoreRange, summary(res))
			}
		}

		// the copy with one mismatch scores 2 less
		if scoreRange < 2 {
			if res.Class != ClassUnique || res.NTr != 1 {
				t.Errorf("range %d: expected unique: %s", scoreRange, summary(res))
			}
			continue
		}
		if res.Class != ClassMulti || res.NTr != 2 {
			t.Errorf("range %d: expected two loci: %s", scoreRange, summary(res))
			continue
		}
		tr := res.Tr[1]
		if tr.Chr != 1 || tr.NMM != 1 || tr.Score != best-2 || tr.Primary {
			t.Errorf("range %d: unexpected second alignment: %s", scoreRange, summary(res))
		}
	}
}

func TestReadQuals(t *testing.T) {
	tg := getTestGenome(t)
	ra := tg.newEngine(t, DefaultParams(), 0)
	chr1 := tg.chrs[0]

	q1 := bytes.Repeat([]byte("I"), 100)
	q2 := append(bytes.Repeat([]byte("5"), 99), '#')
	read := &Read{
		Name:   []byte("r9"),
		Mates:  [2][]byte{chr1[8000:8100], revComp(chr1[8200:8300])},
		Quals:  [2][]byte{q1, q2},
		NMates: 2,
	}
	res := ra.OneRead(read)
	if res.Class != ClassUnique {
		t.Fatalf("unexpected result: %s", summary(res))
	}
	quals := ra.ReadQuals()
	if len(quals) != res.Lread || quals[99] != 'I' || quals[100] != qualSpacer ||
		quals[101] != '#' || quals[200] != '5' {
		t.Errorf("unexpected qualities: %s", quals)
	}

	// qualities are optional
	read.Quals = [2][]byte{}
	ra.OneRead(read)
	if len(ra.ReadQuals()) != 0 {
		t.Errorf("qualities of the previous read kept: %s", ra.ReadQuals())
	}

	read.Quals = [2][]byte{q1, q2[:50]}
	res = ra.OneRead(read)
	if res.Status != StatusSkipped || res.Err != ErrQualityLength {
		t.Errorf("qualities of a wrong length accepted: %v", res.Err)
	}
}
