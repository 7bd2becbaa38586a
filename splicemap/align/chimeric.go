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

import "github.com/shenwei356/SpliceMap/splicemap/util"

// ChimericLocus is one side of a chimeric junction.
type ChimericLocus struct {
	Chr    int
	Pos    int   // global position of the first intronic base next to the segment
	Strand uint8 // 1: +, 2: -
}

// ChimericAlignment is a read aligned as two segments on distant loci.
type ChimericAlignment struct {
	// the two segments in the order of the read, trimmed at the junction
	Seg [2]*Transcript

	// 1: GT/AG, 2: CT/AC, 0: others, -1: the junction lies between the two mates
	JunctionType int

	Donor, Acceptor ChimericLocus

	RepeatLeft, RepeatRight int

	ReadJunction int // read position of the first base of the second segment
	Score        int
	Ambiguous    bool // another chimeric alignment has a close score
}

// chimJunction is a candidate of chimeric junction between two transcripts.
type chimJunction struct {
	seg1, seg2 *Transcript
	jR         int
	jType      int
	score      int
	repeatL    int
	repeatR    int
}

// chimericDetect searches chimeric alignments with the best transcript and
// transcripts of other windows.
func (ra *ReadAlign) chimericDetect() {
	p := ra.p
	res := &ra.res
	best := ra.trBest
	if p.ChimSegmentMin <= 0 || best == nil {
		return
	}
	if res.Class == ClassUnique && !p.ChimOutWithUnique {
		return
	}

	lsum := ra.readLength[0] + ra.readLength[1]
	covered := best.REnd - best.RStart
	if best.Mates == 3 {
		covered--
	}
	if covered < p.ChimSegmentMin {
		return
	}
	if lsum-covered < p.ChimSegmentMin && best.Score >= lsum-p.ChimNonchimScoreDropMin {
		return
	}
	if best.NJuncMotif[MotifNonCanonical] > 0 {
		return
	}
	var nMain int
	for _, tr := range ra.trPtr {
		if tr.Score >= best.Score-p.OutFilterMultimapScoreRange {
			nMain++
		}
	}
	if nMain > p.ChimMainSegmentMultNmax {
		return
	}

	var cj, cjBest chimJunction
	score2 := scoreNone
	cjBest.score = scoreNone
	for _, tr := range ra.trPtr {
		if tr == best || tr.IWindow == best.IWindow {
			continue
		}
		if !ra.chimJunctionOf(best, tr, &cj) {
			continue
		}
		if cj.score > cjBest.score {
			score2 = cjBest.score
			cjBest = cj
		} else if cj.score > score2 {
			score2 = cj.score
		}
	}
	if cjBest.seg1 == nil {
		return
	}
	if cjBest.score < p.ChimScoreMin || cjBest.score+p.ChimScoreDropMax < lsum {
		return
	}

	ra.setChimeric(&cjBest)
	if score2 > scoreNone && score2 > cjBest.score-p.ChimScoreSeparation {
		ra.chim.Ambiguous = true
		ra.flags |= FlagChimAmbiguous
	}
	res.Chim = &ra.chim
}

// origRange converts a range of the combined read in one direction to that of the forward read.
func (ra *ReadAlign) origRange(strand uint8, rStart, rEnd int) (int, int) {
	if strand == 0 {
		return rStart, rEnd
	}
	return ra.lread - rEnd, ra.lread - rStart
}

// diagPos returns the genome position on the diagonal of an exon for a position o of the forward read.
func (ra *ReadAlign) diagPos(strand uint8, e *Exon, o int) int {
	if strand == 0 {
		return e.GStart + o - e.RStart
	}
	return e.GStart + ra.lread - 1 - o - e.RStart
}

// diagBase returns the genome base at diagPos, in the orientation of the forward read.
func (ra *ReadAlign) diagBase(strand uint8, e *Exon, o int) uint8 {
	c := ra.g.BaseAt(ra.diagPos(strand, e, o))
	if strand == 1 && c < util.BaseN {
		c = 3 - c
	}
	return c
}

// junction exons: the one at the right end (in the forward read) of seg1,
// and the one at the left end of seg2.
func tailExon(tr *Transcript) *Exon {
	if tr.Strand == 0 {
		return &tr.Exons[tr.NExons-1]
	}
	return &tr.Exons[0]
}

func headExon(tr *Transcript) *Exon {
	if tr.Strand == 0 {
		return &tr.Exons[0]
	}
	return &tr.Exons[tr.NExons-1]
}

// chimJunctionOf checks whether two transcripts could form a chimeric alignment,
// and locates the junction.
func (ra *ReadAlign) chimJunctionOf(a, b *Transcript, cj *chimJunction) bool {
	p := ra.p
	as, ae := ra.origRange(a.Strand, a.RStart, a.REnd)
	bs, be := ra.origRange(b.Strand, b.RStart, b.REnd)
	if bs < as {
		a, b = b, a
		as, ae, bs, be = bs, be, as, ae
	}
	if be <= ae { // nested
		return false
	}
	if ae-as < p.ChimSegmentMin || be-bs < p.ChimSegmentMin {
		return false
	}

	*cj = chimJunction{seg1: a, seg2: b}
	e1, e2 := tailExon(a), headExon(b)

	// segments on different mates
	if e1.Mate != e2.Mate {
		if bs < ae {
			return false
		}
		cj.jType = -1
		cj.jR = bs
		cj.score = a.Score + b.Score
		return true
	}

	if bs-ae > p.ChimSegmentReadGapMax {
		return false
	}

	x1, _ := ra.origRange(a.Strand, e1.RStart, e1.REnd())
	_, y2 := ra.origRange(b.Strand, e2.RStart, e2.REnd())
	lo, hi := min(ae, bs), max(ae, bs)
	if lo < x1 || hi > y2 { // the overlap goes beyond the junction exons
		return false
	}

	// scores along the two diagonals in [lo, hi)
	sc := ra.scorer
	read := ra.readCodes[0]
	n := hi - lo
	pa, sb := ra.scrA[:n+1], ra.scrB[:n+1]
	pa[0] = 0
	for k := 0; k < n; k++ {
		pa[k+1] = pa[k] + sc.baseScore(read[lo+k], ra.diagBase(a.Strand, e1, lo+k))
	}
	sb[n] = 0
	for k := n - 1; k >= 0; k-- {
		sb[k] = sb[k+1] + sc.baseScore(read[lo+k], ra.diagBase(b.Strand, e2, lo+k))
	}
	// scores of the overlapped bases counted in both transcripts
	overlap := pa[ae-lo] - pa[0] + sb[bs-lo] - sb[n]
	if ae <= bs {
		overlap = 0
	}

	ovh := max(1, p.ChimJunctionOverhangMin)
	jMin := max(lo, x1+ovh)
	jMax := min(hi, y2-ovh)
	if jMin > jMax {
		return false
	}

	best, bestType, bestJ := scoreNone, 0, -1
	var s, t int
	for j := jMin; j <= jMax; j++ {
		t = ra.chimMotif(a, e1, b, e2, j)
		s = pa[j-lo] + sb[j-lo]
		if t == 0 {
			s += p.ChimScoreJunctionNonGTAG
		}
		if s > best {
			best, bestType, bestJ = s, t, j
		}
	}
	if bestJ < 0 {
		return false
	}

	cj.jR = bestJ
	cj.jType = bestType
	cj.score = a.Score + b.Score - overlap + best
	cj.repeatL, cj.repeatR = ra.chimRepeats(a, e1, b, e2, bestJ, x1, y2)

	// each segment should still be long enough after trimming at the junction
	if bestJ-as < p.ChimSegmentMin || be-bestJ < p.ChimSegmentMin {
		return false
	}
	return true
}

// chimMotif returns 1 for GT/AG, 2 for CT/AC and 0 for others, for a junction
// before the read position j, in the orientation of the forward read.
func (ra *ReadAlign) chimMotif(a *Transcript, e1 *Exon, b *Transcript, e2 *Exon, j int) int {
	d1, d2 := ra.diagBase(a.Strand, e1, j), ra.diagBase(a.Strand, e1, j+1)
	a1, a2 := ra.diagBase(b.Strand, e2, j-2), ra.diagBase(b.Strand, e2, j-1)
	switch {
	case d1 == util.BaseG && d2 == util.BaseT && a1 == util.BaseA && a2 == util.BaseG:
		return 1
	case d1 == util.BaseC && d2 == util.BaseT && a1 == util.BaseA && a2 == util.BaseC:
		return 2
	}
	return 0
}

// chimRepeats counts bases the junction could be shifted with the same sequence.
func (ra *ReadAlign) chimRepeats(a *Transcript, e1 *Exon, b *Transcript, e2 *Exon, j, x1, y2 int) (int, int) {
	var l, r int
	for o := j - 1; o >= x1; o-- {
		c := ra.diagBase(a.Strand, e1, o)
		if c > util.BaseT || c != ra.diagBase(b.Strand, e2, o) {
			break
		}
		l++
	}
	for o := j; o < y2; o++ {
		c := ra.diagBase(b.Strand, e2, o)
		if c > util.BaseT || c != ra.diagBase(a.Strand, e1, o) {
			break
		}
		r++
	}
	return l, r
}

// setChimeric fills the chimeric alignment, with segments trimmed at the junction.
func (ra *ReadAlign) setChimeric(cj *chimJunction) {
	seg1, seg2 := &ra.chimSeg[0], &ra.chimSeg[1]
	*seg1 = *cj.seg1
	*seg2 = *cj.seg2
	jR := cj.jR

	if cj.jType >= 0 {
		ra.trimSegment(seg1, jR, true)
		ra.trimSegment(seg2, jR, false)
	}

	// the two ends differ only for junctions between mates
	_, end1 := ra.origRange(seg1.Strand, seg1.RStart, seg1.REnd)
	start2, _ := ra.origRange(seg2.Strand, seg2.RStart, seg2.REnd)
	e1, e2 := tailExon(seg1), headExon(seg2)
	donor := ChimericLocus{Chr: seg1.Chr, Pos: ra.diagPos(seg1.Strand, e1, end1), Strand: seg1.Strand + 1}
	acceptor := ChimericLocus{Chr: seg2.Chr, Pos: ra.diagPos(seg2.Strand, e2, start2-1), Strand: seg2.Strand + 1}
	if cj.jType == 2 { // the read comes from the opposite strand of the transcript
		donor, acceptor = acceptor, donor
		donor.Strand = 3 - donor.Strand
		acceptor.Strand = 3 - acceptor.Strand
	}

	ra.chim = ChimericAlignment{
		Seg:          [2]*Transcript{seg1, seg2},
		JunctionType: cj.jType,
		Donor:        donor,
		Acceptor:     acceptor,
		RepeatLeft:   cj.repeatL,
		RepeatRight:  cj.repeatR,
		ReadJunction: jR,
		Score:        cj.score,
	}
}

// trimSegment moves the end (tail) or the start (head) of a segment, in the forward read,
// to the read position j, and updates its statistics.
func (ra *ReadAlign) trimSegment(tr *Transcript, j int, tail bool) {
	var e *Exon
	var shift int
	// in the aligned direction, the segment end is moved for tails of forward
	// segments and for heads of reverse complemented ones
	if tail == (tr.Strand == 0) {
		e = &tr.Exons[tr.NExons-1]
		if tr.Strand == 0 {
			e.Len = j - e.RStart
		} else {
			e.Len = ra.lread - j - e.RStart
		}
	} else {
		e = &tr.Exons[0]
		if tr.Strand == 0 {
			shift = j - e.RStart
		} else {
			shift = ra.lread - j - e.RStart
		}
		e.RStart += shift
		e.GStart += shift
		e.Len -= shift
	}
	tr.computeStats(ra.readCodes[tr.Strand], ra.seq)
	tr.Score = ra.scorer.Score(tr, ra.nMates)
}
