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

import "math"

const scoreNone = math.MinInt32

// stitchResult describes how two aligned blocks are joined.
type stitchResult struct {
	kind      GapKind
	x         int // read position where the gap starts, the right block starts at x+len for insertions
	gapLen    int // length of the insertion, deletion or intron, or the genome gap between mates
	motif     uint8
	annotated bool
	repeatL   int
	repeatR   int

	// score of joining, relative to the score of the left block as all matched:
	// bases realigned around the gap, the gap penalty and the remaining bases of the right block
	score int
}

// stitchBlocks joins the left block A and the right block B, in the same window.
// Overlapped read bases are trimmed from B, and the gap position is chosen by
// scanning all split points around the gap, preferring the leftmost one for ties.
func (ra *ReadAlign) stitchBlocks(dir uint8, aR, aG, aL, bR, bG, bL int, res *stitchResult) bool {
	aEnd, bEnd := aR+aL, bR+bL
	if bR < aR || bEnd <= aEnd {
		return false
	}
	*res = stitchResult{}

	mA, mB := ra.mateOf(dir, aR), ra.mateOf(dir, bR)
	if mA != mB {
		return ra.stitchMates(dir, mA, mB, aR, aG, aL, bR, bG, bL, res)
	}

	p := ra.p
	read := ra.readCodes[dir]
	seq := ra.seq
	sc := ra.scorer

	dA, dB := aG-aR, bG-bR
	if bR < aEnd {
		bR = aEnd
	}
	delta := dB - dA
	if delta < 0 && bR+dB < aEnd+dA { // the right block should start after the left one in the genome
		bR = aEnd + dA - dB
		if bR >= bEnd {
			return false
		}
	}

	if delta == 0 {
		var s int
		for r := aEnd; r < bR; r++ {
			s += sc.baseScore(read[r], seq[r+dA])
		}
		res.kind = GapMismatch
		res.x = bR
		res.score = s + sc.Match(bEnd-bR)
		return true
	}

	var kind GapKind
	var insLen int
	switch {
	case delta < 0:
		kind = GapInsertion
		insLen = -delta
	case delta < p.AlignIntronMin:
		kind = GapDeletion
	default:
		kind = GapSplice
	}

	// region [lo, hi) to realign: the left block could shrink to lo, the right block could start at hi at most
	lo := aR + 1
	hi := bEnd - 1
	if shift := p.AlignSJstitchShiftMax; shift > 0 {
		lo = max(lo, aEnd-shift)
		hi = min(hi, bR+shift)
	}
	lo = min(lo, aEnd)
	hi = max(hi, bR)
	if hi-lo < insLen {
		return false
	}

	// prefix scores of the left diagonal and suffix scores of the right diagonal
	n := hi - lo
	pa, sb := ra.scrA[:n+1], ra.scrB[:n+1]
	// bases inserted are never realigned
	pa[0] = 0
	for k := 0; k < n-insLen; k++ {
		pa[k+1] = pa[k] + sc.baseScore(read[lo+k], seq[lo+k+dA])
	}
	sb[n] = 0
	for k := n - 1; k >= insLen; k-- {
		sb[k] = sb[k+1] + sc.baseScore(read[lo+k], seq[lo+k+dB])
	}

	var penalty int
	switch kind {
	case GapInsertion:
		penalty = sc.Insertion(insLen)
	case GapDeletion:
		penalty = sc.Deletion(delta)
	case GapSplice:
		if ra.sjdb != nil {
			ra.sjBuf = ra.sjdb.overlaps(lo+dA, hi+dA, ra.sjBuf)
		}
	}

	best := scoreNone
	var bestX int
	var bestMotif uint8
	var bestAnnot bool
	var s, ovh int
	var motif uint8
	var annotated bool
	for x := lo; x+insLen <= hi; x++ {
		s = pa[x-lo] + sb[x+insLen-lo]
		if kind == GapSplice {
			motif = intronMotif(seq, x+dA, x+dA+delta)
			annotated = false
			for _, k := range ra.sjBuf {
				if j := &ra.sjdb.Junctions[k]; j.Start == x+dA && j.End == x+dA+delta {
					annotated = true
					break
				}
			}
			if !ra.mapper.allowSplice(ra, x+dA, x+dA+delta, annotated) {
				continue
			}
			ovh = p.AlignSJoverhangMin
			if annotated {
				ovh = p.AlignSJDBoverhangMin
			}
			if x-aR < ovh || bEnd-x < ovh {
				continue
			}
			penalty = sc.Junction(motif, annotated)
		}
		s += penalty
		if s > best {
			best, bestX, bestMotif, bestAnnot = s, x, motif, annotated
		}
	}
	if kind == GapSplice && ra.sjdb != nil {
		ra.sjBuf = ra.sjBuf[:0]
	}
	if best == scoreNone {
		return false
	}

	res.kind = kind
	res.x = bestX
	res.score = best + sc.Match(bEnd-hi) - sc.Match(aEnd-lo)
	if kind == GapInsertion {
		res.gapLen = insLen
		return true
	}
	res.gapLen = delta
	if kind == GapSplice {
		res.motif = bestMotif
		res.annotated = bestAnnot
		res.repeatL, res.repeatR = junctionRepeats(seq, bestX+dA, bestX+dB, bestX-aR, bEnd-bestX)
	}
	return true
}

// junctionRepeats counts the bases a junction could be shifted to the left or right
// without changing the aligned sequence. gL and gR are genome positions of the first base
// after the left exon and the first base of the right exon.
func junctionRepeats(seq []uint8, gL, gR, maxL, maxR int) (int, int) {
	var l, r int
	for l < maxL-1 && gL-1-l >= 0 && seq[gL-1-l] == seq[gR-1-l] && seq[gR-1-l] < 4 {
		l++
	}
	for r < maxR-1 && gR+r < len(seq) && seq[gL+r] == seq[gR+r] && seq[gL+r] < 4 {
		r++
	}
	return l, r
}

// stitchMates joins the last block of the first mate and the first block of the second one.
// The score does not include extensions of the two blocks to their mate ends.
func (ra *ReadAlign) stitchMates(dir uint8, mA, mB int, aR, aG, aL, bR, bG, bL int, res *stitchResult) bool {
	if mA < 0 || mB < 0 || mA != int(dir) && ra.nMates == 2 {
		return false
	}
	sA, _ := ra.mateRange(dir, mA)
	sB, _ := ra.mateRange(dir, mB)

	// the second mate should not start before the first one
	if sB+bG-bR+ra.p.AlignEndsProtrude < sA+aG-aR {
		return false
	}
	gap := bG - (aG + aL)
	if gap > ra.matesGapMax {
		return false
	}

	res.kind = GapMateGap
	res.x = aR + aL
	res.gapLen = gap
	res.score = ra.scorer.Match(bL)
	return true
}

// stitchWindow creates transcripts of a window from chains of aligns.
// After each chain, its aligns are excluded and the chaining is repeated,
// keeping transcripts within the score range of the best one and not overlapping previous ones.
func (ra *ReadAlign) stitchWindow(iW int) {
	p := ra.p
	w := &ra.windows[iW]
	w.TrStart, w.TrN = ra.nTrAll, 0
	if len(w.Aligns) == 0 {
		return
	}
	ra.extendAligns(w)

	bestScore := scoreNone
	var tr *Transcript
	var overlapped bool
	for w.TrN < p.AlignTranscriptsPerWindowNmax {
		if !ra.chainAligns(w) {
			break
		}
		if ra.nTrAll >= len(ra.trAll) {
			ra.flags |= FlagTranscriptOverflow
			break
		}
		tr = &ra.trAll[ra.nTrAll]
		ok := ra.buildTranscript(w, iW, tr)
		for _, i := range ra.chain {
			w.Incl[i] = false
		}
		if !ok {
			continue
		}

		if w.TrN > 0 {
			if tr.Score < bestScore-p.OutFilterMultimapScoreRange {
				break
			}
			overlapped = false
			for k := w.TrStart; k < ra.nTrAll; k++ {
				if ra.trAll[k].overlaps(tr) {
					overlapped = true
					break
				}
			}
			if overlapped {
				continue
			}
		}

		ra.nTrAll++
		w.TrN++
		bestScore = max(bestScore, tr.Score)
	}
}

// betterChain tells whether a chain beats the current best one:
// a higher score, then fewer junctions, then a smaller read start.
// Equal chains keep the current one, i.e., the one ending at the lower index.
func betterChain(score, nJunc, start, bestScore, bestNJunc, bestStart int) bool {
	if score != bestScore {
		return score > bestScore
	}
	if nJunc != bestNJunc {
		return nJunc < bestNJunc
	}
	return start < bestStart
}

// chainAligns finds the best chain of included aligns with dynamic programming,
// and saves indexes of its aligns in ra.chain.
//
// The transition score of j->i is saved in scoreSeedToSeed[i*(i+1)/2+j].
// Ties are broken by fewer junctions, then the leftmost chain start, then the lower index.
func (ra *ReadAlign) chainAligns(w *Window) bool {
	aligns := w.Aligns
	n := len(aligns)
	best := ra.scoreSeedBest[:n]
	prev := ra.scoreSeedBestInd[:n]
	first := ra.seedChainStart[:n]
	nJunc := ra.seedNJunc[:n]
	table := ra.scoreSeedToSeed
	sc := ra.scorer

	var res stitchResult
	var a, b *WindowAlign
	var base, s, cand, nj int
	for i := 0; i < n; i++ {
		best[i] = scoreNone
		if !w.Incl[i] {
			continue
		}
		a = &aligns[i]
		best[i] = sc.Match(a.Len)
		prev[i] = -1
		first[i] = i
		nJunc[i] = 0

		base = i * (i + 1) / 2
		for j := 0; j < i; j++ {
			table[base+j] = scoreNone
			if best[j] == scoreNone {
				continue
			}
			b = &aligns[j]
			if !ra.stitchBlocks(w.Strand, b.RStart, b.GStart, b.Len, a.RStart, a.GStart, a.Len, &res) {
				continue
			}
			s = res.score
			if res.kind == GapMateGap {
				s += ra.extR[j].score + ra.extL[i].score
			}
			table[base+j] = s

			cand = best[j] + s
			nj = nJunc[j]
			if res.kind == GapSplice {
				nj++
			}
			if betterChain(cand, nj, aligns[first[j]].RStart, best[i], nJunc[i], aligns[first[i]].RStart) {
				best[i] = cand
				prev[i] = j
				first[i] = first[j]
				nJunc[i] = nj
			}
		}
	}

	// the terminal align, with extensions of both ends
	iBest := -1
	bestTotal := scoreNone
	var total int
	for i := 0; i < n; i++ {
		if best[i] == scoreNone {
			continue
		}
		total = best[i] + ra.extL[first[i]].score + ra.extR[i].score
		if iBest < 0 ||
			betterChain(total, nJunc[i], aligns[first[i]].RStart, bestTotal, nJunc[iBest], aligns[first[iBest]].RStart) {
			iBest, bestTotal = i, total
		}
	}
	if iBest < 0 {
		return false
	}

	ra.chain = ra.chain[:0]
	for i := iBest; i >= 0; i = prev[i] {
		ra.chain = append(ra.chain, i)
	}
	for i, j := 0, len(ra.chain)-1; i < j; i, j = i+1, j-1 {
		ra.chain[i], ra.chain[j] = ra.chain[j], ra.chain[i]
	}
	return true
}

// buildTranscript converts the chain into exons, extends both ends, and computes the score.
func (ra *ReadAlign) buildTranscript(w *Window, iW int, tr *Transcript) bool {
	tr.reset()
	tr.Strand = w.Strand
	tr.Chr = w.Chr
	tr.IWindow = iW

	a := &w.Aligns[ra.chain[0]]
	tr.Exons[0] = Exon{RStart: a.RStart, GStart: a.GStart, Len: a.Len, Mate: a.Mate}
	tr.NExons = 1

	var res stitchResult
	var e *Exon
	var b *WindowAlign
	var bEnd, y int
	for k := 1; k < len(ra.chain); k++ {
		b = &w.Aligns[ra.chain[k]]
		e = &tr.Exons[tr.NExons-1]
		if !ra.stitchBlocks(w.Strand, e.RStart, e.GStart, e.Len, b.RStart, b.GStart, b.Len, &res) {
			// the exon has been changed by previous stitching, the chain stops here
			ra.chain = ra.chain[:k]
			break
		}
		bEnd = b.REnd()

		if res.kind == GapMismatch {
			e.Len = bEnd - e.RStart
			continue
		}
		if tr.NExons == MaxExons {
			ra.flags |= FlagExonOverflow
			return false
		}

		if res.kind == GapMateGap {
			ra.extendExon(w.Strand, e, false)
			ne := Exon{RStart: b.RStart, GStart: b.GStart, Len: b.Len, Mate: b.Mate}
			ra.extendExon(w.Strand, &ne, true)
			tr.Gaps[tr.NExons-1] = Gap{Kind: GapMateGap, Len: ne.GStart - e.GEnd()}
			tr.Exons[tr.NExons] = ne
			tr.NExons++
			continue
		}

		e.Len = res.x - e.RStart
		y = res.x
		if res.kind == GapInsertion {
			y += res.gapLen
		}
		tr.Gaps[tr.NExons-1] = Gap{
			Kind:        res.kind,
			Len:         res.gapLen,
			Motif:       res.motif,
			Annotated:   res.annotated,
			RepeatLeft:  res.repeatL,
			RepeatRight: res.repeatR,
		}
		tr.Exons[tr.NExons] = Exon{RStart: y, GStart: y + b.GStart - b.RStart, Len: bEnd - y, Mate: b.Mate}
		tr.NExons++
	}

	ra.extendExon(w.Strand, &tr.Exons[0], true)
	ra.extendExon(w.Strand, &tr.Exons[tr.NExons-1], false)

	tr.computeStats(ra.readCodes[w.Strand], ra.seq)
	tr.Score = ra.scorer.Score(tr, ra.nMates)
	return true
}
