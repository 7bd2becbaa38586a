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

// WindowAlign is a seed placed at one locus of a window.
type WindowAlign struct {
	RStart int
	GStart int
	Len    int
	Nrep   int
	Anchor bool
	Mate   int
	ISeed  int
}

// REnd returns the read end (exclusive).
func (a *WindowAlign) REnd() int { return a.RStart + a.Len }

// GEnd returns the genome end (exclusive).
func (a *WindowAlign) GEnd() int { return a.GStart + a.Len }

// Window is a genome region of consecutive bins on one strand of one chromosome,
// where a read is aligned.
type Window struct {
	Strand   uint8
	Chr      int
	BinStart int // first bin
	BinEnd   int // last bin, inclusive
	GStart   int // genome range of alignment starts covered by the bins
	GEnd     int

	Aligns   []WindowAlign // ordered by read start and genome start
	Incl     []bool        // inclusion mask of aligns for stitching
	NAnchors int
	Alive    bool

	// read range covered by aligns
	CoverStart int
	CoverEnd   int

	// transcripts in the arena: [TrStart, TrStart+TrN)
	TrStart int
	TrN     int
}

// locusBin returns the bin of the alignment start implied by a seed locus,
// and the chromosome of the locus.
func (ra *ReadAlign) locusBin(rStart int, g int) (int, int) {
	chr := ra.g.ChrIndex(g)
	s := g - rStart
	if cs := ra.g.Chrs[chr].Start; s < cs {
		s = cs
	}
	return s >> ra.winBinNbits, chr
}

// chrBins returns the first and the last bins of a chromosome.
func (ra *ReadAlign) chrBins(chr int) (int, int) {
	c := &ra.g.Chrs[chr]
	return c.Start >> ra.winBinNbits, (c.End() - 1) >> ra.winBinNbits
}

// nearestWindow returns the nearest window to a bin in one direction (step: -1 or 1),
// within dist bins of the chromosome.
func (ra *ReadAlign) nearestWindow(wb []int32, bin, step, dist, lo, hi int) (int, int) {
	var b int
	for d := 1; d <= dist; d++ {
		b = bin + step*d
		if b < lo || b > hi {
			break
		}
		if wb[b] >= 0 {
			return int(wb[b]), d
		}
	}
	return -1, 0
}

// addAnchorBin makes a bin covered by a window, by extending the nearest window
// or creating a new one.
func (ra *ReadAlign) addAnchorBin(strand uint8, chr, bin int) {
	wb := ra.winBin[strand]
	if wb[bin] >= 0 {
		return
	}
	dist := ra.p.WinAnchorDistNbins
	lo, hi := ra.chrBins(chr)

	full := len(ra.windows) == cap(ra.windows)
	if full {
		ra.flags |= FlagWindowOverflow
		dist <<= 1
	}

	iL, dL := ra.nearestWindow(wb, bin, -1, dist, lo, hi)
	iR, dR := ra.nearestWindow(wb, bin, 1, dist, lo, hi)

	var w *Window
	switch {
	case iL >= 0 && (iR < 0 || dL <= dR):
		w = &ra.windows[iL]
		for b := w.BinEnd + 1; b <= bin; b++ {
			wb[b] = int32(iL)
		}
		w.BinEnd = bin
	case iR >= 0:
		w = &ra.windows[iR]
		for b := bin; b < w.BinStart; b++ {
			wb[b] = int32(iR)
		}
		w.BinStart = bin
	case !full:
		wb[bin] = int32(len(ra.windows))
		ra.windows = append(ra.windows, Window{Strand: strand, Chr: chr, BinStart: bin, BinEnd: bin})
	}
}

// extendWindowFlanks extends windows on both sides, without crossing chromosome
// boundaries or bins of other windows, and computes genome ranges.
func (ra *ReadAlign) extendWindowFlanks(flank int) {
	var w *Window
	var wb []int32
	var lo, hi, b int
	for i := range ra.windows {
		w = &ra.windows[i]
		wb = ra.winBin[w.Strand]
		lo, hi = ra.chrBins(w.Chr)
		for k := 0; k < flank; k++ {
			b = w.BinStart - 1
			if b < lo || wb[b] >= 0 {
				break
			}
			wb[b] = int32(i)
			w.BinStart = b
		}
		for k := 0; k < flank; k++ {
			b = w.BinEnd + 1
			if b > hi || wb[b] >= 0 {
				break
			}
			wb[b] = int32(i)
			w.BinEnd = b
		}
		ra.setWindowRange(w)
	}
}

func (ra *ReadAlign) setWindowRange(w *Window) {
	c := &ra.g.Chrs[w.Chr]
	w.GStart = max(c.Start, w.BinStart<<ra.winBinNbits)
	w.GEnd = min(c.End(), (w.BinEnd+1)<<ra.winBinNbits)
}
