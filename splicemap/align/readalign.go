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

// Package align is the per-read alignment engine of spliced RNA-seq reads:
// seed search against the genome index, clustering seeds into genome windows,
// stitching seeds into spliced alignments, scoring, multi-mapper selection,
// and detection of splice and chimeric junctions.
//
// A ReadAlign owns all buffers for aligning one read at a time, and is reused for
// all reads of a worker. Buffers are allocated once in NewReadAlign.
package align

import (
	"fmt"
	"math/rand"

	"github.com/shenwei356/SpliceMap/splicemap/genome"
	"github.com/shenwei356/SpliceMap/splicemap/index"
)

// Index is the genome index needed for alignment.
type Index interface {
	// FindSeeds searches maximal mappable prefixes from the start of a query till the end.
	FindSeeds(codes []uint8, maxLen, maxLoci int, seeds []index.Seed, loci []uint64) ([]index.Seed, []uint64)
	// Genome returns the genome.
	Genome() *genome.Genome
}

// ReadAlign is the alignment engine of a worker. It is not safe for concurrent use.
type ReadAlign struct {
	p      *Params
	idx    Index
	g      *genome.Genome
	seq    []uint8
	sjdb   *SJDB
	scorer *Scorer
	mapper mapper
	rng    *rand.Rand
	iChunk int

	winBinNbits int
	intronMax   int
	matesGapMax int

	// read

	readName   []byte
	readLength [2]int
	nMates     int
	lread      int
	readCodes  [2][]uint8 // the combined read and its reverse complement
	readQuals  []byte     // qualities of the combined read, empty if not given
	pieces     [][2]int   // good pieces of the read, without N or the mate spacer

	// seeds

	seeds  []Seed
	loci   []uint64
	iSeeds []index.Seed // buffers for the index
	iLoci  []uint64

	// windows

	winBin  [2][]int32 // window index of every bin of the genome, -1 for none
	windows []Window
	waBuf   []WindowAlign
	inclBuf []bool

	// stitching of a window

	scoreSeedToSeed  []int
	scoreSeedBest    []int
	scoreSeedBestInd []int
	seedChainStart   []int
	seedNJunc        []int
	extL, extR       []extension
	chain            []int
	scrA, scrB       []int
	sjBuf            []int

	// transcripts

	trAll     []Transcript
	nTrAll    int
	trPtr     []*Transcript
	trMult    []*Transcript
	trBest    *Transcript
	junctions []Junction

	// chimeric alignment

	chim    ChimericAlignment
	chimSeg [2]Transcript

	flags Flag
	res   Result
}

// NewReadAlign creates an alignment engine. The parameters are always checked,
// and the engine keeps its own copy of them.
// iChunk is the index of the worker, which is used to seed the random number generator.
func NewReadAlign(p *Params, idx Index, iChunk int) (*ReadAlign, error) {
	if p == nil || idx == nil {
		return nil, fmt.Errorf("align: nil parameters or index")
	}
	// the engine owns a checked copy, later changes to p do not affect it
	pc := *p
	if err := CheckParams(&pc); err != nil {
		return nil, err
	}
	p = &pc
	g := idx.Genome()
	if g == nil || g.NumChrs() == 0 {
		return nil, fmt.Errorf("align: empty genome")
	}
	if p.SJDB != nil && p.SJDB.g != g {
		return nil, invalid("annotated junctions were loaded for another genome")
	}

	ra := &ReadAlign{
		p:      p,
		idx:    idx,
		g:      g,
		seq:    g.Seq,
		sjdb:   p.SJDB,
		scorer: NewScorer(p),
		rng:    rand.New(rand.NewSource(p.RunRNGseed * int64(iChunk+1))),
		iChunk: iChunk,
	}

	// window bins should not span two chromosomes
	ra.winBinNbits = min(p.WinBinNbits, int(g.ChrBinNbits))
	ra.intronMax = p.AlignIntronMax
	if ra.intronMax == 0 {
		ra.intronMax = (1 << ra.winBinNbits) * p.WinAnchorDistNbins
	}
	ra.matesGapMax = p.AlignMatesGapMax
	if ra.matesGapMax == 0 {
		ra.matesGapMax = (1 << ra.winBinNbits) * p.WinAnchorDistNbins
	}

	switch p.genomeType {
	case GenomeSuperTranscriptome:
		ra.mapper = newGraphMapper(NewSpliceGraph(p.SJDB))
	default:
		ra.mapper = &standardMapper{}
	}

	lmax := p.ReadMatesLengthMax + 1
	ra.readName = make([]byte, 0, p.ReadNameLengthMax)
	ra.readCodes[0] = make([]uint8, 0, lmax)
	ra.readCodes[1] = make([]uint8, 0, lmax)
	ra.readQuals = make([]byte, 0, lmax)
	ra.pieces = make([][2]int, 0, lmax/2+1)

	ra.seeds = make([]Seed, 0, p.SeedPerReadNmax)
	ra.loci = make([]uint64, 0, p.SeedLociPerReadNmax)
	ra.iSeeds = make([]index.Seed, 0, 64)
	ra.iLoci = make([]uint64, 0, p.SeedMultimapNmax)

	nBins := g.Len()>>ra.winBinNbits + 1
	for i := 0; i < 2; i++ {
		ra.winBin[i] = make([]int32, nBins)
		for j := range ra.winBin[i] {
			ra.winBin[i][j] = -1
		}
	}
	ra.windows = make([]Window, 0, p.AlignWindowsPerReadNmax)
	ra.waBuf = make([]WindowAlign, p.AlignWindowsPerReadNmax*p.SeedPerWindowNmax)
	ra.inclBuf = make([]bool, p.AlignWindowsPerReadNmax*p.SeedPerWindowNmax)

	n := p.SeedPerWindowNmax
	ra.scoreSeedToSeed = make([]int, n*(n+1)/2)
	ra.scoreSeedBest = make([]int, n)
	ra.scoreSeedBestInd = make([]int, n)
	ra.seedChainStart = make([]int, n)
	ra.seedNJunc = make([]int, n)
	ra.extL = make([]extension, n)
	ra.extR = make([]extension, n)
	ra.chain = make([]int, 0, n)
	ra.scrA = make([]int, lmax+1)
	ra.scrB = make([]int, lmax+1)
	ra.sjBuf = make([]int, 0, 64)

	ra.trAll = make([]Transcript, p.AlignTranscriptsPerReadNmax)
	ra.trPtr = make([]*Transcript, 0, p.AlignTranscriptsPerReadNmax)
	ra.trMult = make([]*Transcript, 0, p.AlignTranscriptsPerReadNmax)
	ra.junctions = make([]Junction, 0, 64)

	return ra, nil
}

// Params returns the parameters.
func (ra *ReadAlign) Params() *Params { return ra.p }

// Genome returns the genome.
func (ra *ReadAlign) Genome() *genome.Genome { return ra.g }

// ResetN clears the state of the previous read.
// Only logical lengths and counters are reset, and window bins are cleared by walking windows.
func (ra *ReadAlign) ResetN() {
	var w *Window
	for i := range ra.windows {
		w = &ra.windows[i]
		for b := w.BinStart; b <= w.BinEnd; b++ {
			ra.winBin[w.Strand][b] = -1
		}
	}
	ra.windows = ra.windows[:0]

	ra.readName = ra.readName[:0]
	ra.readCodes[0] = ra.readCodes[0][:0]
	ra.readCodes[1] = ra.readCodes[1][:0]
	ra.readQuals = ra.readQuals[:0]
	ra.readLength = [2]int{}
	ra.nMates, ra.lread = 0, 0
	ra.pieces = ra.pieces[:0]

	ra.seeds = ra.seeds[:0]
	ra.loci = ra.loci[:0]

	ra.nTrAll = 0
	ra.trPtr = ra.trPtr[:0]
	ra.trMult = ra.trMult[:0]
	ra.trBest = nil
	ra.junctions = ra.junctions[:0]

	ra.flags = 0
	ra.res = Result{Primary: -1}
}

// OneRead aligns a read. The returned result is only valid till the next call.
func (ra *ReadAlign) OneRead(read *Read) *Result {
	ra.ResetN()
	res := &ra.res

	if err := ra.loadRead(read); err != nil {
		res.Status = StatusSkipped
		res.Err = err
		res.Class = ClassUnmapped
		res.Reason = ReasonSkipped
		return res
	}
	res.Lread = ra.lread
	res.ReadLength = ra.readLength
	res.NMates = ra.nMates

	ra.locateSeeds()
	res.NSeeds = len(ra.seeds)
	if len(ra.seeds) == 0 {
		ra.unmapped(ReasonNoSeeds)
		return res
	}

	ra.mapper.createWindows(ra)
	ra.assignSeedsToWindows()
	for i := range ra.windows {
		if ra.windows[i].Alive {
			res.NWindows++
		}
	}
	if res.NWindows == 0 {
		ra.unmapped(ReasonNoWindows)
		return res
	}

	for i := range ra.windows {
		if ra.windows[i].Alive {
			ra.stitchWindow(i)
		}
	}
	res.NTranscripts = ra.nTrAll

	ra.multMapSelect()
	ra.chimericDetect()

	res.Flags = ra.flags
	return res
}

func (ra *ReadAlign) unmapped(reason Reason) {
	ra.res.Class = ClassUnmapped
	ra.res.Reason = reason
	ra.res.Flags = ra.flags
}

// ReadName returns the name of the current read.
func (ra *ReadAlign) ReadName() []byte { return ra.readName }

// ReadQuals returns qualities of the current read, in the order of the combined read:
// mate 1, a spacer, and the reversed mate 2.
func (ra *ReadAlign) ReadQuals() []byte { return ra.readQuals }

// Seeds returns seeds of the current read.
func (ra *ReadAlign) Seeds() []Seed { return ra.seeds }

// SeedLoci returns genome loci of a seed.
func (ra *ReadAlign) SeedLoci(s *Seed) []uint64 {
	return ra.loci[s.LociStart : s.LociStart+s.LociN]
}

// Windows returns windows of the current read, including discarded ones.
func (ra *ReadAlign) Windows() []Window { return ra.windows }

// Transcripts returns all transcripts of all windows of the current read.
func (ra *ReadAlign) Transcripts() []Transcript { return ra.trAll[:ra.nTrAll] }
