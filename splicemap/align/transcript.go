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
	"strconv"

	"github.com/shenwei356/SpliceMap/splicemap/util"
)

// MaxExons is the maximum number of exons (aligned blocks) of a transcript.
const MaxExons = 20

// GapKind is the type of a gap between two aligned blocks.
type GapKind uint8

const (
	GapNone GapKind = iota
	GapMismatch
	GapInsertion
	GapDeletion
	GapSplice
	GapMateGap
	GapChimeric
)

var gapKindNames = [...]string{"none", "mismatch", "insertion", "deletion", "splice", "mate-gap", "chimeric"}

func (k GapKind) String() string {
	if int(k) < len(gapKindNames) {
		return gapKindNames[k]
	}
	return "unknown"
}

// Exon is an ungapped aligned block. Read positions are in the aligned direction.
type Exon struct {
	RStart int
	GStart int
	Len    int
	Mate   int
}

// REnd returns the read end (exclusive).
func (e *Exon) REnd() int { return e.RStart + e.Len }

// GEnd returns the genome end (exclusive).
func (e *Exon) GEnd() int { return e.GStart + e.Len }

// Gap describes the gap between two adjacent exons.
type Gap struct {
	Kind      GapKind
	Len       int   // bases of the insertion, deletion or intron, or the genome distance between mates
	Motif     uint8 // junction motif, see MotifNames
	Annotated bool
	// numbers of bases the junction could be shifted to the left or right with the same sequence
	RepeatLeft  int
	RepeatRight int
}

// Transcript is a candidate alignment of a read in a window.
type Transcript struct {
	Exons     [MaxExons]Exon
	Gaps      [MaxExons]Gap      // Gaps[i] is between Exons[i] and Exons[i+1]
	Junctions [MaxExons]Junction // annotations of gaps, filled by the junction classifier
	NExons    int

	Strand  uint8 // 0: the read aligned to the forward strand, 1: the reverse complement
	Chr     int
	IWindow int

	RStart, REnd int // read range in the aligned direction
	GStart, GEnd int // genome range

	Score      int
	NMatch     int
	NMM        int
	NIns       int
	NInsBases  int
	NDel       int
	NDelBases  int
	NJunc      int
	NJuncMotif [7]int // numbers of junctions per motif
	NJuncAnnot int
	Mates      uint8 // bit flags of aligned mates

	SJStrand       uint8 // transcription strand from junctions, 0: undefined, 1: +, 2: -
	StrandConflict bool
	Primary        bool
}

// reset clears the transcript for reuse.
func (tr *Transcript) reset() {
	tr.NExons = 0
	tr.Score = 0
	tr.NMatch, tr.NMM = 0, 0
	tr.NIns, tr.NInsBases, tr.NDel, tr.NDelBases = 0, 0, 0, 0
	tr.NJunc, tr.NJuncAnnot = 0, 0
	tr.NJuncMotif = [7]int{}
	tr.Mates = 0
	tr.SJStrand = 0
	tr.StrandConflict = false
	tr.Primary = false
}

// MappedLength returns the number of aligned read bases.
func (tr *Transcript) MappedLength() int {
	var n int
	for i := 0; i < tr.NExons; i++ {
		n += tr.Exons[i].Len
	}
	return n
}

// NMates returns the number of aligned mates.
func (tr *Transcript) NMates() int {
	if tr.Mates == 3 {
		return 2
	}
	return 1
}

// overlaps checks if two transcripts overlap in the genome on the same strand.
func (tr *Transcript) overlaps(b *Transcript) bool {
	return tr.Strand == b.Strand && tr.GStart < b.GEnd && b.GStart < tr.GEnd
}

// sameBlocks checks if two transcripts have identical blocks.
func (tr *Transcript) sameBlocks(b *Transcript) bool {
	if tr.Strand != b.Strand || tr.NExons != b.NExons || tr.GStart != b.GStart || tr.GEnd != b.GEnd {
		return false
	}
	for i := 0; i < tr.NExons; i++ {
		if tr.Exons[i] != b.Exons[i] {
			return false
		}
	}
	return true
}

// computeStats counts matches, mismatches, indels and junctions,
// and updates ranges. Read Ns and genome Ns are neither matches nor mismatches.
func (tr *Transcript) computeStats(read, seq []uint8) {
	tr.NMatch, tr.NMM = 0, 0
	tr.NIns, tr.NInsBases, tr.NDel, tr.NDelBases = 0, 0, 0, 0
	tr.NJunc, tr.NJuncAnnot = 0, 0
	tr.NJuncMotif = [7]int{}
	tr.Mates = 0

	var e *Exon
	var r, g int
	var a, b uint8
	for i := 0; i < tr.NExons; i++ {
		e = &tr.Exons[i]
		tr.Mates |= 1 << e.Mate
		for r, g = e.RStart, e.GStart; r < e.REnd(); r, g = r+1, g+1 {
			a, b = read[r], seq[g]
			if a > util.BaseT || b > util.BaseT {
				continue
			}
			if a == b {
				tr.NMatch++
			} else {
				tr.NMM++
			}
		}
		if i == tr.NExons-1 {
			break
		}
		switch gap := &tr.Gaps[i]; gap.Kind {
		case GapInsertion:
			tr.NIns++
			tr.NInsBases += gap.Len
		case GapDeletion:
			tr.NDel++
			tr.NDelBases += gap.Len
		case GapSplice:
			tr.NJunc++
			tr.NJuncMotif[gap.Motif]++
			if gap.Annotated {
				tr.NJuncAnnot++
			}
		}
	}

	tr.RStart = tr.Exons[0].RStart
	tr.GStart = tr.Exons[0].GStart
	tr.REnd = tr.Exons[tr.NExons-1].REnd()
	tr.GEnd = tr.Exons[tr.NExons-1].GEnd()
}

// mateBounds returns the read range [start, end) of a mate in the given direction.
// In the reverse complement direction, the second mate comes first.
func mateBounds(dir uint8, mate int, readLength [2]int, nMates int) (int, int) {
	if nMates == 1 {
		return 0, readLength[0]
	}
	first := int(dir)
	if mate == first {
		return 0, readLength[first]
	}
	return readLength[first] + 1, readLength[0] + readLength[1] + 1
}

// AppendCIGAR appends the CIGAR string in the forward strand of the genome.
// Soft clips are relative to mate ends; the genome gap between mates is written as "p",
// which could be negative for overlapping mates.
func (tr *Transcript) AppendCIGAR(buf []byte, readLength [2]int, nMates int) []byte {
	var e, pe *Exon
	var s, end int
	for i := 0; i < tr.NExons; i++ {
		e = &tr.Exons[i]
		if i == 0 || e.Mate != pe.Mate {
			if i > 0 { // end of the previous mate
				_, end = mateBounds(tr.Strand, pe.Mate, readLength, nMates)
				buf = appendOp(buf, end-pe.REnd(), 'S')
				buf = strconv.AppendInt(buf, int64(e.GStart-pe.GEnd()), 10)
				buf = append(buf, 'p')
			}
			s, _ = mateBounds(tr.Strand, e.Mate, readLength, nMates)
			buf = appendOp(buf, e.RStart-s, 'S')
		} else {
			switch gap := &tr.Gaps[i-1]; gap.Kind {
			case GapInsertion:
				buf = appendOp(buf, gap.Len, 'I')
			case GapDeletion:
				buf = appendOp(buf, gap.Len, 'D')
			case GapSplice:
				buf = appendOp(buf, gap.Len, 'N')
			}
		}
		buf = appendOp(buf, e.Len, 'M')
		pe = e
	}
	if pe != nil {
		_, end = mateBounds(tr.Strand, pe.Mate, readLength, nMates)
		buf = appendOp(buf, end-pe.REnd(), 'S')
	}
	return buf
}

func appendOp(buf []byte, n int, op byte) []byte {
	if n <= 0 {
		return buf
	}
	buf = strconv.AppendInt(buf, int64(n), 10)
	return append(buf, op)
}
