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

// multMapSelect collects transcripts of all windows, selects the multi-mapped set
// around the best score, orders them, and classifies the read.
func (ra *ReadAlign) multMapSelect() {
	p := ra.p
	res := &ra.res

	trs := ra.trPtr[:0]
	var w *Window
	var tr *Transcript
	for i := range ra.windows {
		w = &ra.windows[i]
		for k := w.TrStart; k < w.TrStart+w.TrN; k++ {
			trs = append(trs, &ra.trAll[k])
		}
	}
	ra.trPtr = trs
	if len(trs) == 0 {
		ra.unmapped(ReasonTooShort)
		return
	}

	// the best one before filtering, which is used in chimeric detection
	for _, tr = range trs {
		if ra.trBest == nil || tr.Score > ra.trBest.Score {
			ra.trBest = tr
		}
	}

	// junction annotation and filters of junction motifs and strands
	kept := ra.trMult[:0]
	for _, tr = range trs {
		ra.classifyJunctions(tr)
		if ra.filteredByJunctions(tr) {
			continue
		}
		kept = append(kept, tr)
	}
	if len(kept) == 0 {
		ra.trMult = kept
		ra.unmapped(ReasonFiltered)
		return
	}

	maxScore := scoreNone
	for _, tr = range kept {
		maxScore = max(maxScore, tr.Score)
	}

	// the multi-mapped set, without duplicates
	mult := kept[:0]
	var dup bool
	for _, tr = range kept {
		if tr.Score < maxScore-p.OutFilterMultimapScoreRange {
			continue
		}
		dup = false
		for _, t := range mult {
			if t.sameBlocks(tr) {
				dup = true
				break
			}
		}
		if !dup {
			mult = append(mult, tr)
		}
	}
	sortTranscripts(mult)
	if p.multOrder == MultimapperOrderRandom {
		ra.rng.Shuffle(len(mult), func(i, j int) { mult[i], mult[j] = mult[j], mult[i] })
	}
	ra.trMult = mult

	nTr := len(mult)
	res.NTr = nTr
	res.Tr = mult

	var best *Transcript
	iBest := 0
	for i, tr := range mult {
		if tr.Score == maxScore {
			best, iBest = tr, i
			break
		}
	}

	lsum := ra.readLength[0] + ra.readLength[1]
	mapped := best.MappedLength()
	switch {
	case nTr > p.OutFilterMultimapNmax:
		res.Class, res.Reason = ClassTooManyLoci, ReasonTooManyLoci
	case best.Score < p.OutFilterScoreMin ||
		best.Score < int(p.OutFilterScoreMinOverLread*float64(lsum)) ||
		best.NMatch < p.OutFilterMatchNmin ||
		best.NMatch < int(p.OutFilterMatchNminOverLread*float64(lsum)):
		res.Class, res.Reason = ClassUnmapped, ReasonTooShort
	case best.NMM > p.OutFilterMismatchNmax ||
		float64(best.NMM) > p.OutFilterMismatchNoverLmax*float64(mapped) ||
		float64(best.NMM) > p.OutFilterMismatchNoverReadLmax*float64(lsum):
		res.Class, res.Reason = ClassUnmapped, ReasonTooManyMismatches
	case nTr > 1 && ra.flags&FlagWindowOverflow > 0:
		res.Class, res.Reason = ClassTooManyLoci, ReasonTooManyLoci
	case nTr == 1:
		res.Class = ClassUnique
	default:
		res.Class = ClassMulti
	}
	if !res.Mapped() {
		return
	}

	res.MAPQ = mapqOf(nTr)
	res.Primary = iBest
	best.Primary = true
	if p.primaryFlag == PrimaryAllBestScore {
		for _, tr := range mult {
			if tr.Score == maxScore {
				tr.Primary = true
			}
		}
	}

	for i, tr := range mult {
		for k := 0; k < tr.NExons-1; k++ {
			j := tr.Junctions[k]
			j.ITr = i
			ra.junctions = append(ra.junctions, j)
		}
	}
	res.Junctions = ra.junctions
}

// filteredByJunctions checks junction motifs and strands of a transcript.
func (ra *ReadAlign) filteredByJunctions(tr *Transcript) bool {
	p := ra.p
	if tr.StrandConflict && p.intronStrands == IntronStrandsRemoveInconsistent {
		return true
	}
	switch p.intronMotifs {
	case IntronMotifsRemoveNoncanonical:
		return tr.NJuncMotif[MotifNonCanonical] > 0
	case IntronMotifsRemoveNoncanonicalUnannotated:
		for i := 0; i < tr.NExons-1; i++ {
			if tr.Gaps[i].Kind == GapSplice && tr.Gaps[i].Motif == MotifNonCanonical && !tr.Gaps[i].Annotated {
				return true
			}
		}
	}
	return false
}

// sortTranscripts sorts transcripts by score (descending), chromosome, genome start,
// strand and window, with insertion sort, as the list is short.
func sortTranscripts(trs []*Transcript) {
	var t *Transcript
	var j int
	for i := 1; i < len(trs); i++ {
		t = trs[i]
		for j = i; j > 0 && transcriptLess(t, trs[j-1]); j-- {
			trs[j] = trs[j-1]
		}
		trs[j] = t
	}
}

func transcriptLess(a, b *Transcript) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Chr != b.Chr {
		return a.Chr < b.Chr
	}
	if a.GStart != b.GStart {
		return a.GStart < b.GStart
	}
	if a.Strand != b.Strand {
		return a.Strand < b.Strand
	}
	return a.IWindow < b.IWindow
}
