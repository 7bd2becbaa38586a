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

package genome

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shenwei356/SpliceMap/splicemap/util"
)

// DefaultChrBinNbits is the default log2 of the chromosome alignment unit.
const DefaultChrBinNbits uint8 = 18

// ErrEmptySeq means the sequence is empty.
var ErrEmptySeq = errors.New("genome: empty sequence")

// ErrDuplicatedChr means a chromosome name is used twice.
var ErrDuplicatedChr = errors.New("genome: duplicated chromosome name")

// ErrChrBinNbitsOverflow means ChrBinNbits is out of range.
var ErrChrBinNbitsOverflow = errors.New("genome: chrBinNbits should be in range of [1, 32]")

// Chromosome is one reference sequence in the concatenated genome.
type Chromosome struct {
	Name   string
	Start  int      // 0-based start in the concatenated genome
	Length int      // number of bases
	NRuns  [][2]int // runs of N bases, local 0-based [start, end)
}

// End returns the global end position (exclusive).
func (c *Chromosome) End() int {
	return c.Start + c.Length
}

// Genome is the reference genome as one sequence of base codes.
// Each chromosome starts at a multiple of 1<<ChrBinNbits,
// the gaps are filled with spacers (at least one after each chromosome),
// so that no base match could cross chromosome boundaries.
type Genome struct {
	ChrBinNbits uint8
	Chrs        []Chromosome
	Seq         []uint8 // base codes, see util.Base*

	starts   []int
	name2idx map[string]int
}

// New returns an empty genome.
func New(chrBinNbits uint8) (*Genome, error) {
	if chrBinNbits < 1 || chrBinNbits > 32 {
		return nil, ErrChrBinNbitsOverflow
	}
	return &Genome{
		ChrBinNbits: chrBinNbits,
		Chrs:        make([]Chromosome, 0, 8),
		Seq:         make([]uint8, 0, 1<<chrBinNbits),
		starts:      make([]int, 0, 8),
		name2idx:    make(map[string]int, 8),
	}, nil
}

// AddChromosome appends a chromosome. Bases other than ACGTU are saved as N.
func (g *Genome) AddChromosome(name string, s []byte) error {
	if len(s) == 0 {
		return fmt.Errorf("%s: %w", name, ErrEmptySeq)
	}
	if _, ok := g.name2idx[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicatedChr)
	}

	chr := Chromosome{Name: name, Start: len(g.Seq), Length: len(s)}

	var c uint8
	inN := false
	var nStart int
	for i, b := range s {
		c = util.Base2Code[b]
		if c > util.BaseT {
			c = util.BaseN
			if !inN {
				inN = true
				nStart = i
			}
		} else if inN {
			chr.NRuns = append(chr.NRuns, [2]int{nStart, i})
			inN = false
		}
		g.Seq = append(g.Seq, c)
	}
	if inN {
		chr.NRuns = append(chr.NRuns, [2]int{nStart, len(s)})
	}

	g.pad()
	g.addChr(chr)
	return nil
}

// pad appends spacers till the next multiple of the chromosome bin size,
// keeping at least one spacer.
func (g *Genome) pad() {
	bin := 1 << g.ChrBinNbits
	end := ((len(g.Seq) + bin) >> g.ChrBinNbits) << g.ChrBinNbits
	for len(g.Seq) < end {
		g.Seq = append(g.Seq, util.BaseSpacer)
	}
}

func (g *Genome) addChr(chr Chromosome) {
	g.name2idx[chr.Name] = len(g.Chrs)
	g.Chrs = append(g.Chrs, chr)
	g.starts = append(g.starts, chr.Start)
}

// Len returns the length of the concatenated genome, including spacers.
func (g *Genome) Len() int {
	return len(g.Seq)
}

// NumChrs returns the number of chromosomes.
func (g *Genome) NumChrs() int {
	return len(g.Chrs)
}

// Bases returns the total number of bases of all chromosomes.
func (g *Genome) Bases() int {
	var n int
	for i := range g.Chrs {
		n += g.Chrs[i].Length
	}
	return n
}

// ChrIndex returns the index of the chromosome containing pos,
// or -1 if pos is in a spacer or out of range.
func (g *Genome) ChrIndex(pos int) int {
	if pos < 0 || pos >= len(g.Seq) || len(g.starts) == 0 {
		return -1
	}
	i := sort.Search(len(g.starts), func(i int) bool { return g.starts[i] > pos }) - 1
	if i < 0 || pos >= g.Chrs[i].End() {
		return -1
	}
	return i
}

// ChrIndexOfBin returns the index of the chromosome whose padded range holds pos,
// spacers after a chromosome included. It returns -1 for out of range positions.
func (g *Genome) ChrIndexOfBin(pos int) int {
	if pos < 0 || pos >= len(g.Seq) || len(g.starts) == 0 {
		return -1
	}
	return sort.Search(len(g.starts), func(i int) bool { return g.starts[i] > pos }) - 1
}

// ChrIndexByName returns the index of a chromosome name.
func (g *Genome) ChrIndexByName(name string) (int, bool) {
	i, ok := g.name2idx[name]
	return i, ok
}

// BaseAt returns the base code at pos, spacers for positions out of range.
func (g *Genome) BaseAt(pos int) uint8 {
	if pos < 0 || pos >= len(g.Seq) {
		return util.BaseSpacer
	}
	return g.Seq[pos]
}

// Locate converts a global position to a chromosome name and a local 0-based position.
func (g *Genome) Locate(pos int) (string, int, bool) {
	i := g.ChrIndex(pos)
	if i < 0 {
		return "", 0, false
	}
	return g.Chrs[i].Name, pos - g.Chrs[i].Start, true
}

// SubSeq returns the bases in [start, end) as ASCII, spacers as '-'.
func (g *Genome) SubSeq(start, end int) []byte {
	if start < 0 {
		start = 0
	}
	if end > len(g.Seq) {
		end = len(g.Seq)
	}
	if end <= start {
		return []byte{}
	}
	s := make([]byte, end-start)
	for i, c := range g.Seq[start:end] {
		s[i] = util.Code2Base[c]
	}
	return s
}
