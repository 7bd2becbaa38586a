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
	"sort"

	"github.com/shenwei356/SpliceMap/splicemap/util"
)

// SpliceGraph holds annotated junctions of super-transcripts as edges,
// where each chromosome is a super-transcript.
type SpliceGraph struct {
	starts []int      // start positions of chromosomes
	edges  [][]uint64 // per chromosome, local intron start << 32 | local intron end, sorted
	n      int
}

// NewSpliceGraph builds a splice graph from annotated junctions.
// A nil SJDB gives an empty graph.
func NewSpliceGraph(db *SJDB) *SpliceGraph {
	sg := &SpliceGraph{}
	if db == nil {
		return sg
	}
	nChrs := db.g.NumChrs()
	sg.starts = make([]int, nChrs)
	sg.edges = make([][]uint64, nChrs)
	for i := range db.g.Chrs {
		sg.starts[i] = db.g.Chrs[i].Start
	}
	var s int
	for _, j := range db.Junctions {
		s = sg.starts[j.Chr]
		sg.edges[j.Chr] = append(sg.edges[j.Chr], uint64(j.Start-s)<<32|uint64(j.End-s))
	}
	for i := range sg.edges {
		util.UniqUint64s(&sg.edges[i])
		sg.n += len(sg.edges[i])
	}
	return sg
}

// NumEdges returns the number of edges.
func (sg *SpliceGraph) NumEdges() int {
	return sg.n
}

// HasEdge tells whether the intron [start, end) (global positions) of a chromosome is an edge.
func (sg *SpliceGraph) HasEdge(chr, start, end int) bool {
	if chr < 0 || chr >= len(sg.edges) {
		return false
	}
	s := sg.starts[chr]
	if start < s || end <= start {
		return false
	}
	es := sg.edges[chr]
	key := uint64(start-s)<<32 | uint64(end-s)
	i := sort.Search(len(es), func(i int) bool { return es[i] >= key })
	return i < len(es) && es[i] == key
}

// graphMapper aligns reads to super-transcripts: each strand of a super-transcript
// is one window, and splicing is only allowed along edges of the graph.
type graphMapper struct {
	sg *SpliceGraph
}

func newGraphMapper(sg *SpliceGraph) *graphMapper {
	return &graphMapper{sg: sg}
}

func (m *graphMapper) createWindows(ra *ReadAlign) {
	p := ra.p
	var sd *Seed
	var chr, lo, hi int
	var wb []int32
	var w *Window
	for i := range ra.seeds {
		sd = &ra.seeds[i]
		if sd.LociN == 0 || sd.Nrep > p.WinAnchorMultimapNmax || sd.LowComplexity {
			continue
		}
		wb = ra.winBin[sd.Dir]
		for _, l := range ra.loci[sd.LociStart : sd.LociStart+sd.LociN] {
			chr = ra.g.ChrIndex(int(l))
			lo, hi = ra.chrBins(chr)
			if wb[lo] >= 0 {
				continue
			}
			if len(ra.windows) == cap(ra.windows) {
				ra.flags |= FlagWindowOverflow
				continue
			}
			for b := lo; b <= hi; b++ {
				wb[b] = int32(len(ra.windows))
			}
			ra.windows = append(ra.windows, Window{Strand: sd.Dir, Chr: chr, BinStart: lo, BinEnd: hi})
			w = &ra.windows[len(ra.windows)-1]
			ra.setWindowRange(w)
		}
	}
}

func (m *graphMapper) allowSplice(ra *ReadAlign, start, end int, annotated bool) bool {
	return annotated && m.sg.HasEdge(ra.g.ChrIndex(start), start, end)
}
