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

// Package index provides the genome index used for seed search:
// the genome sequence and a k-mer radix tree of all genome positions,
// supporting maximal mappable prefix queries.
package index

import (
	"errors"
	"fmt"

	"github.com/shenwei356/SpliceMap/splicemap/genome"
	"github.com/shenwei356/SpliceMap/splicemap/tree"
	"github.com/shenwei356/SpliceMap/splicemap/util"
	"github.com/shenwei356/lexichash/iterator"
	"github.com/twotwotwo/sorts/sortutil"
)

// ErrKOverflow means an unsupported k-mer size.
var ErrKOverflow = errors.New("index: k-mer size should be in range of [8, 32]")

// ErrEmptyGenome means the genome has no chromosome.
var ErrEmptyGenome = errors.New("index: empty genome")

// Index is the genome index.
type Index struct {
	k      uint8
	genome *genome.Genome
	tree   *tree.Tree
}

// Build indexes every k-mer without N of the genome.
// The optional progress function is called after each chromosome.
func Build(g *genome.Genome, k int, progress func(iChr int)) (*Index, error) {
	if k < 8 || k > 32 {
		return nil, ErrKOverflow
	}
	if g.NumChrs() == 0 {
		return nil, ErrEmptyGenome
	}

	idx := &Index{k: uint8(k), genome: g, tree: tree.New(uint8(k))}

	for i := range g.Chrs {
		chr := &g.Chrs[i]

		// N-free runs
		start := 0
		for _, r := range chr.NRuns {
			if err := idx.indexRun(chr.Start+start, chr.Start+r[0]); err != nil {
				return nil, fmt.Errorf("%s: %w", chr.Name, err)
			}
			start = r[1]
		}
		if err := idx.indexRun(chr.Start+start, chr.End()); err != nil {
			return nil, fmt.Errorf("%s: %w", chr.Name, err)
		}

		if progress != nil {
			progress(i)
		}
	}
	return idx, nil
}

func (idx *Index) indexRun(start, end int) error {
	if end-start < int(idx.k) {
		return nil
	}
	iter, err := iterator.NewKmerIterator(idx.genome.SubSeq(start, end), int(idx.k))
	if err != nil {
		return err
	}
	var code uint64
	var ok bool
	for {
		code, ok, err = iter.NextPositiveKmer()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		idx.tree.Insert(code, uint64(start+iter.Index()))
	}
	return nil
}

// K returns the k-mer size.
func (idx *Index) K() int {
	return int(idx.k)
}

// Genome returns the genome.
func (idx *Index) Genome() *genome.Genome {
	return idx.genome
}

// NumKmers returns the number of distinct k-mers.
func (idx *Index) NumKmers() int {
	return idx.tree.NumLeafNodes()
}

// MaxMappablePrefix finds the longest prefix of a read (in base codes)
// that exactly matches the genome, and the number of genome loci of it.
//
// Loci are appended to the given slice (reset first) in ascending order,
// only if the number of loci is not bigger than maxLoci.
// A length of 0 means the first base is not found or is not A/C/G/T.
func (idx *Index) MaxMappablePrefix(codes []uint8, maxLoci int, loci []uint64) (int, int, []uint64) {
	loci = loci[:0]
	k := int(idx.k)

	l := len(codes)
	if l > k {
		l = k
	}
	for i, c := range codes[:l] {
		if c > util.BaseT {
			l = i
			break
		}
	}
	if l == 0 {
		return 0, 0, loci
	}

	code, _ := util.EncodeCodes(codes[:l])
	code <<= uint(k-l) << 1

	m := int(idx.tree.MatchLen(code, uint8(l)))
	if m == 0 {
		return 0, 0, loci
	}

	if m < k {
		srs, ok := idx.tree.Search(code, uint8(m))
		if !ok {
			return 0, 0, loci
		}
		var n int
		for _, sr := range *srs {
			n += len(sr.Values)
		}
		if n <= maxLoci {
			for _, sr := range *srs {
				loci = append(loci, sr.Values...)
			}
			sortutil.Uint64s(loci)
		}
		tree.RecycleSearchResult(srs)
		return m, n, loci
	}

	// extend full k-mer matches
	vals, ok := idx.tree.Get(code)
	if !ok {
		return 0, 0, loci
	}
	seq := idx.genome.Seq
	var best, n, e, p int
	for _, v := range vals {
		p = int(v)
		e = k
		for e < len(codes) && p+e < len(seq) && codes[e] <= util.BaseT && codes[e] == seq[p+e] {
			e++
		}
		if e < best {
			continue
		}
		if e > best {
			best = e
			n = 0
			loci = loci[:0]
		}
		n++
		if n <= maxLoci {
			loci = append(loci, v)
		}
	}
	if n > maxLoci {
		loci = loci[:0]
	} else {
		sortutil.Uint64s(loci)
	}
	return best, n, loci
}

// Seed is a maximal mappable prefix found by FindSeeds.
type Seed struct {
	Start int // start position in the query
	Len   int
	NLoci int // number of genome loci
	// loci are saved in the loci slice returned by FindSeeds, in range [LociStart, LociStart+LociN).
	// LociN is 0 if NLoci > maxLoci.
	LociStart int
	LociN     int
}

// FindSeeds searches maximal mappable prefixes from the start of a query till the end:
// after each search, the next one starts at the base after the mismatched one,
// and N bases are skipped. maxLen > 0 caps the length of each match,
// and loci are only saved for matches with no more than maxLoci loci.
//
// Seeds and loci are appended to the given slices, which are reset first.
func (idx *Index) FindSeeds(codes []uint8, maxLen, maxLoci int, seeds []Seed, loci []uint64) ([]Seed, []uint64) {
	seeds = seeds[:0]
	loci = loci[:0]

	var m, n, start int
	var _loci []uint64
	var q []uint8
	for start < len(codes) {
		if codes[start] > util.BaseT {
			start++
			continue
		}
		q = codes[start:]
		if maxLen > 0 && len(q) > maxLen {
			q = q[:maxLen]
		}

		start0 := len(loci)
		m, n, _loci = idx.MaxMappablePrefix(q, maxLoci, loci[start0:start0])
		if m == 0 {
			start++
			continue
		}
		loci = append(loci[:start0], _loci...) // _loci may share the backing array

		seeds = append(seeds, Seed{Start: start, Len: m, NLoci: n, LociStart: start0, LociN: len(_loci)})
		start += m + 1
	}
	return seeds, loci
}
