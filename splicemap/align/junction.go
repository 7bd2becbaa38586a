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

// Junction motifs. Odd ones are on the + strand, even ones on the - strand.
const (
	MotifNonCanonical uint8 = iota
	MotifGTAG
	MotifCTAC
	MotifGCAG
	MotifCTGC
	MotifATAC
	MotifGTAT
)

// MotifNames are names of junction motifs.
var MotifNames = [7]string{"non-canonical", "GT/AG", "CT/AC", "GC/AG", "CT/GC", "AT/AC", "GT/AT"}

// intronMotif returns the motif of an intron [start, end) from the two first and two last bases.
func intronMotif(seq []uint8, start, end int) uint8 {
	if start < 0 || end > len(seq) || end-start < 4 {
		return MotifNonCanonical
	}
	if seq[start] > util.BaseT || seq[start+1] > util.BaseT || seq[end-2] > util.BaseT || seq[end-1] > util.BaseT {
		return MotifNonCanonical
	}
	d := seq[start]<<2 | seq[start+1]
	a := seq[end-2]<<2 | seq[end-1]
	const (
		AG = util.BaseA<<2 | util.BaseG
		AC = util.BaseA<<2 | util.BaseC
		AT = util.BaseA<<2 | util.BaseT
		GT = util.BaseG<<2 | util.BaseT
		GC = util.BaseG<<2 | util.BaseC
		CT = util.BaseC<<2 | util.BaseT
	)
	switch {
	case d == GT && a == AG:
		return MotifGTAG
	case d == CT && a == AC:
		return MotifCTAC
	case d == GC && a == AG:
		return MotifGCAG
	case d == CT && a == GC:
		return MotifCTGC
	case d == AT && a == AC:
		return MotifATAC
	case d == GT && a == AT:
		return MotifGTAT
	}
	return MotifNonCanonical
}

// motifStrand returns the transcription strand of a motif: 0 for undefined, 1 for +, 2 for -.
func motifStrand(motif uint8) uint8 {
	if motif == MotifNonCanonical {
		return 0
	}
	return 2 - motif&1
}

// JunctionKind is the type of a junction.
type JunctionKind uint8

const (
	JunctionNone JunctionKind = iota
	JunctionCanonical
	JunctionNonCanonical
	JunctionChimeric
)

var junctionKindNames = [...]string{"none", "canonical", "non-canonical", "chimeric"}

func (k JunctionKind) String() string {
	if int(k) < len(junctionKindNames) {
		return junctionKindNames[k]
	}
	return "unknown"
}

// Junction is the annotation of a gap.
type Junction struct {
	Kind      JunctionKind
	Strand    uint8 // 0: undefined, 1: +, 2: -
	Motif     uint8
	Annotated bool
	Ambiguous bool // the strand of a non-canonical junction is unknown

	Start, End int // global genome range of the gap, empty for insertions
	// global positions of the first intronic base next to the donor exon, and
	// the last intronic base next to the acceptor exon; -1 if the strand is undefined
	Donor, Acceptor int

	ITr int // index of the transcript in Result.Tr
}

// classifyJunctions annotates every gap of a transcript,
// and sets the transcription strand and the strand-conflict flag.
func (ra *ReadAlign) classifyJunctions(tr *Transcript) {
	tr.SJStrand = 0
	tr.StrandConflict = false

	var gap *Gap
	var j *Junction
	for i := 0; i < tr.NExons-1; i++ {
		gap = &tr.Gaps[i]
		j = &tr.Junctions[i]
		*j = Junction{
			Start:    tr.Exons[i].GEnd(),
			End:      tr.Exons[i+1].GStart,
			Donor:    -1,
			Acceptor: -1,
		}
		if gap.Kind != GapSplice {
			continue
		}

		j.Motif = gap.Motif
		j.Annotated = gap.Annotated
		if gap.Motif != MotifNonCanonical {
			j.Kind = JunctionCanonical
			j.Strand = motifStrand(gap.Motif)
		} else {
			j.Kind = JunctionNonCanonical
			if gap.Annotated && ra.sjdb != nil {
				if k, ok := ra.sjdb.Find(j.Start, j.End); ok {
					j.Strand = ra.sjdb.Junctions[k].Strand
				}
			}
			j.Ambiguous = j.Strand == 0
		}

		switch j.Strand {
		case 1:
			j.Donor, j.Acceptor = j.Start, j.End-1
		case 2:
			j.Donor, j.Acceptor = j.End-1, j.Start
		}

		if j.Strand > 0 {
			if tr.SJStrand == 0 {
				tr.SJStrand = j.Strand
			} else if tr.SJStrand != j.Strand {
				tr.StrandConflict = true
			}
		}
	}
}

// SJStat is a collapsed splice junction with read counts.
type SJStat struct {
	Chr         int
	Start, End  int // global range of the intron
	Strand      uint8
	Motif       uint8
	Annotated   bool
	NUnique     int // number of uniquely mapped reads crossing the junction
	NMulti      int // number of multi-mapped reads crossing the junction
	MaxOverhang int
}

// SJCollector collects splice junctions of aligned reads.
// It is not safe for concurrent use, each worker could own one and merge them at last.
type SJCollector struct {
	m map[[2]int]*SJStat
}

// NewSJCollector returns an empty collector.
func NewSJCollector() *SJCollector {
	return &SJCollector{m: make(map[[2]int]*SJStat, 1024)}
}

// Len returns the number of junctions.
func (c *SJCollector) Len() int {
	return len(c.m)
}

// Add adds splice junctions of a read uniquely or multiply mapped.
func (c *SJCollector) Add(res *Result) {
	if res.Class != ClassUnique && res.Class != ClassMulti {
		return
	}
	unique := res.Class == ClassUnique

	var tr *Transcript
	var j *Junction
	var sj *SJStat
	var ok bool
	var ovh int
	for _, tr = range res.Tr {
		for i := 0; i < tr.NExons-1; i++ {
			if tr.Gaps[i].Kind != GapSplice {
				continue
			}
			j = &tr.Junctions[i]
			key := [2]int{j.Start, j.End}
			if sj, ok = c.m[key]; !ok {
				sj = &SJStat{Chr: tr.Chr, Start: j.Start, End: j.End,
					Strand: j.Strand, Motif: j.Motif, Annotated: j.Annotated}
				c.m[key] = sj
			}
			if unique {
				sj.NUnique++
			} else {
				sj.NMulti++
			}
			ovh = min(tr.Exons[i].Len, tr.Exons[i+1].Len)
			if ovh > sj.MaxOverhang {
				sj.MaxOverhang = ovh
			}
		}
	}
}

// Merge adds all junctions of another collector.
func (c *SJCollector) Merge(o *SJCollector) {
	for key, s := range o.m {
		sj, ok := c.m[key]
		if !ok {
			v := *s
			c.m[key] = &v
			continue
		}
		sj.NUnique += s.NUnique
		sj.NMulti += s.NMulti
		if s.MaxOverhang > sj.MaxOverhang {
			sj.MaxOverhang = s.MaxOverhang
		}
	}
}

// Sorted returns junctions sorted by genome position.
func (c *SJCollector) Sorted() []*SJStat {
	list := make([]*SJStat, 0, len(c.m))
	for _, sj := range c.m {
		list = append(list, sj)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Start == list[j].Start {
			return list[i].End < list[j].End
		}
		return list[i].Start < list[j].Start
	})
	return list
}
