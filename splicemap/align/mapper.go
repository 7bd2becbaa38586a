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

// mapper holds the parts of the engine depending on the genome type.
type mapper interface {
	// createWindows creates windows from anchors.
	createWindows(ra *ReadAlign)
	// allowSplice tells whether an intron of the global range [start, end) could be used in stitching.
	allowSplice(ra *ReadAlign, start, end int, annotated bool) bool
}

// standardMapper aligns reads to a full genome.
type standardMapper struct{}

func (m *standardMapper) createWindows(ra *ReadAlign) {
	p := ra.p
	var sd *Seed
	var bin, chr int
	for i := range ra.seeds {
		sd = &ra.seeds[i]
		if sd.LociN == 0 || sd.Nrep > p.WinAnchorMultimapNmax || sd.LowComplexity {
			continue
		}
		for _, l := range ra.loci[sd.LociStart : sd.LociStart+sd.LociN] {
			bin, chr = ra.locusBin(sd.RStart, int(l))
			ra.addAnchorBin(sd.Dir, chr, bin)
		}
	}
	ra.extendWindowFlanks(p.WinFlankNbins)
}

func (m *standardMapper) allowSplice(ra *ReadAlign, start, end int, annotated bool) bool {
	return end-start <= ra.intronMax
}
