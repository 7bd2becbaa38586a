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

// Status tells whether a read is processed.
type Status uint8

const (
	StatusOK Status = iota
	StatusSkipped
)

// Class is the mapping class of a read.
type Class uint8

const (
	ClassUnmapped Class = iota
	ClassUnique
	ClassMulti
	ClassTooManyLoci
)

var classNames = [...]string{"unmapped", "unique", "multi", "too-many-loci"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// Reason is the reason why a read is not mapped.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonNoSeeds
	ReasonNoWindows
	ReasonTooShort
	ReasonTooManyMismatches
	ReasonTooManyLoci
	ReasonFiltered // by junction motifs or strands
	ReasonSkipped
)

var reasonNames = [...]string{"", "no-seeds", "no-windows", "too-short", "too-many-mismatches",
	"too-many-loci", "filtered", "skipped"}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Flag records capacity overflows during the alignment of a read.
type Flag uint16

const (
	FlagSeedOverflow Flag = 1 << iota
	FlagWindowOverflow
	FlagSeedPerWindowOverflow
	FlagTranscriptOverflow
	FlagExonOverflow
	FlagChimAmbiguous
)

// Result is the alignment result of a read.
// It and all the data it points to are only valid till the next call of OneRead.
type Result struct {
	Status Status
	Err    error // why the read is skipped

	Class  Class
	Reason Reason
	Flags  Flag

	NTr     int           // number of loci
	Tr      []*Transcript // selected alignments
	Primary int           // index of the primary alignment in Tr, -1 for none
	MAPQ    int

	Junctions []Junction // gaps of all selected alignments

	Chim *ChimericAlignment

	Lread      int // length of the combined read, including the mate spacer
	ReadLength [2]int
	NMates     int

	NSeeds       int
	NWindows     int
	NTranscripts int // number of transcripts in all windows
}

// Mapped tells whether the read is uniquely or multiply mapped.
func (r *Result) Mapped() bool {
	return r.Class == ClassUnique || r.Class == ClassMulti
}

// mapqOf returns the mapping quality for a number of loci.
func mapqOf(nTr int) int {
	switch {
	case nTr == 1:
		return 255
	case nTr == 2:
		return 3
	case nTr <= 4:
		return 1
	default:
		return 0
	}
}
