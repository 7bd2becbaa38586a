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

// extension is the result of extending an aligned block.
type extension struct {
	len   int
	score int
	nMM   int
}

// extendBlock extends an aligned block by at most n bases, towards the left
// (step < 0, from bases r-1 and g-1) or the right (step > 0, from bases r and g).
//
// In local mode, the extension with the maximal score is chosen, and mismatches are limited.
// In end-to-end mode, all bases are extended unless the chromosome ends.
func (ra *ReadAlign) extendBlock(dir uint8, r, g, n, step int, ext *extension) {
	*ext = extension{}
	if n <= 0 {
		return
	}
	p := ra.p
	read := ra.readCodes[dir]
	seq := ra.seq
	endToEnd := p.endsType == EndsEndToEnd
	maxMM := min(p.OutFilterMismatchNmax, int(p.OutFilterMismatchNoverLmax*float64(n)))

	var score, nMM, best, rr, gg int
	var a, b uint8
	for k := 0; k < n; k++ {
		if step > 0 {
			rr, gg = r+k, g+k
		} else {
			rr, gg = r-1-k, g-1-k
		}
		if gg < 0 || gg >= len(seq) || seq[gg] == util.BaseSpacer {
			break
		}
		a, b = read[rr], seq[gg]
		if a <= util.BaseT && b <= util.BaseT {
			if a == b {
				score += p.ScoreMatch
			} else {
				nMM++
				if !endToEnd && nMM > maxMM {
					break
				}
				score += p.ScoreMismatch
			}
		}

		if endToEnd {
			ext.len, ext.score, ext.nMM = k+1, score, nMM
		} else if score > best {
			best = score
			ext.len, ext.score, ext.nMM = k+1, score, nMM
		}
	}
}

// extendExon extends an exon to the start (left) or the end of its mate.
func (ra *ReadAlign) extendExon(dir uint8, e *Exon, left bool) {
	s, end := ra.mateRange(dir, e.Mate)
	var ext extension
	if left {
		ra.extendBlock(dir, e.RStart, e.GStart, e.RStart-s, -1, &ext)
		e.RStart -= ext.len
		e.GStart -= ext.len
		e.Len += ext.len
		return
	}
	ra.extendBlock(dir, e.REnd(), e.GEnd(), end-e.REnd(), 1, &ext)
	e.Len += ext.len
}

// extendAligns computes extensions of all aligns of a window to their mate ends.
func (ra *ReadAlign) extendAligns(w *Window) {
	var a *WindowAlign
	var s, end int
	for i := range w.Aligns {
		a = &w.Aligns[i]
		s, end = ra.mateRange(w.Strand, a.Mate)
		ra.extendBlock(w.Strand, a.RStart, a.GStart, a.RStart-s, -1, &ra.extL[i])
		ra.extendBlock(w.Strand, a.REnd(), a.GEnd(), end-a.REnd(), 1, &ra.extR[i])
	}
}
