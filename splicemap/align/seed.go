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
	"github.com/shenwei356/SpliceMap/splicemap/index"
	"github.com/shenwei356/SpliceMap/splicemap/util"
	"github.com/shenwei356/lexichash"
)

// Seed is a maximal mappable prefix of the read, in one direction.
type Seed struct {
	Dir    uint8 // 0: the read as given, 1: the reverse complement
	RStart int   // start position in the read of the direction
	Len    int
	NMM    int // number of mismatches, 0 for exact matches
	Nrep   int // number of genome loci

	Repetitive    bool // Nrep > SeedMultimapNmax, loci are not saved
	LowComplexity bool

	LociStart int // loci are saved in the arena in range [LociStart, LociStart+LociN)
	LociN     int
}

// REnd returns the read end (exclusive).
func (s *Seed) REnd() int { return s.RStart + s.Len }

// splitRead finds pieces of the combined read without N bases or the mate spacer.
func (ra *ReadAlign) splitRead() {
	ra.pieces = ra.pieces[:0]
	codes := ra.readCodes[0]
	start := -1
	for i, c := range codes {
		if c <= util.BaseT {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start >= ra.p.SeedSplitMin {
				ra.pieces = append(ra.pieces, [2]int{start, i})
			}
			start = -1
		}
	}
	if start >= 0 && len(codes)-start >= ra.p.SeedSplitMin {
		ra.pieces = append(ra.pieces, [2]int{start, len(codes)})
	}
}

// locateSeeds searches seeds of every piece in both directions,
// starting from several positions of each piece.
func (ra *ReadAlign) locateSeeds() {
	p := ra.p
	ra.splitRead()

	var L, nStart, lStart, start, end int
	var sd *index.Seed
	for _, pc := range ra.pieces {
		L = pc[1] - pc[0]
		nStart = 1
		if L > p.SeedSearchStartLmax {
			nStart = L/p.SeedSearchStartLmax + 1
		}
		lStart = L / nStart

		for dir := uint8(0); dir < 2; dir++ {
			for is := 0; is < nStart; is++ {
				if dir == 0 {
					start, end = pc[0]+is*lStart, pc[1]
				} else {
					start, end = ra.lread-pc[1]+is*lStart, ra.lread-pc[0]
				}

				ra.iSeeds, ra.iLoci = ra.idx.FindSeeds(ra.readCodes[dir][start:end],
					p.SeedSearchLmax, p.SeedMultimapNmax, ra.iSeeds, ra.iLoci)

				for k := range ra.iSeeds {
					sd = &ra.iSeeds[k]
					if sd.Len < p.SeedMapMin {
						continue
					}
					ra.storeSeed(dir, start+sd.Start, sd)
				}
			}
		}
	}
}

// storeSeed saves a seed, skipping identical and nested ones.
func (ra *ReadAlign) storeSeed(dir uint8, rStart int, sd *index.Seed) {
	p := ra.p
	loci := ra.iLoci[sd.LociStart : sd.LociStart+sd.LociN]
	rEnd := rStart + sd.Len
	var diag int
	if len(loci) > 0 {
		diag = int(loci[0]) - rStart
	}

	var o *Seed
	for i := range ra.seeds {
		o = &ra.seeds[i]
		if o.Dir != dir || o.Nrep != sd.NLoci {
			continue
		}
		if o.LociN > 0 && int(ra.loci[o.LociStart])-o.RStart != diag {
			continue
		}
		if o.RStart <= rStart && rEnd <= o.REnd() { // identical or nested
			return
		}
		if rStart <= o.RStart && o.REnd() <= rEnd { // the old one is nested, loci are of the same number
			o.RStart, o.Len = rStart, sd.Len
			copy(ra.loci[o.LociStart:o.LociStart+o.LociN], loci)
			o.LowComplexity = ra.isLowComplexity(dir, rStart, sd.Len)
			return
		}
	}

	if len(ra.seeds) >= p.SeedPerReadNmax || len(ra.loci)+len(loci) > p.SeedLociPerReadNmax {
		ra.flags |= FlagSeedOverflow
		return
	}

	ra.seeds = append(ra.seeds, Seed{
		Dir:           dir,
		RStart:        rStart,
		Len:           sd.Len,
		Nrep:          sd.NLoci,
		Repetitive:    sd.NLoci > p.SeedMultimapNmax,
		LowComplexity: ra.isLowComplexity(dir, rStart, sd.Len),
		LociStart:     len(ra.loci),
		LociN:         len(loci),
	})
	ra.loci = append(ra.loci, loci...)
}

// isLowComplexity checks short seeds only.
func (ra *ReadAlign) isLowComplexity(dir uint8, rStart, l int) bool {
	if l > ra.p.WinAnchorLowComplexityLmax {
		return false
	}
	code, err := util.EncodeCodes(ra.readCodes[dir][rStart : rStart+l])
	if err != nil {
		return false
	}
	return lexichash.IsLowComplexity(code, l)
}
