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

package index

import (
	"math/rand"
	"testing"

	"github.com/shenwei356/SpliceMap/splicemap/genome"
	"github.com/shenwei356/SpliceMap/splicemap/util"
)

func randSeq(r *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = "ACGT"[r.Intn(4)]
	}
	return s
}

func newTestIndex(t *testing.T) (*Index, [][]byte) {
	r := rand.New(rand.NewSource(11))
	chr1 := randSeq(r, 3000)
	chr2 := randSeq(r, 2000)
	repeat := randSeq(r, 40)
	copy(chr1[2500:], repeat)
	copy(chr2[1500:], repeat)
	for i := 1000; i < 1010; i++ {
		chr2[i] = 'N'
	}

	g, err := genome.New(10)
	if err != nil {
		t.Fatal(err)
	}
	if err = g.AddChromosome("chr1", chr1); err != nil {
		t.Fatal(err)
	}
	if err = g.AddChromosome("chr2", chr2); err != nil {
		t.Fatal(err)
	}

	var nChrs int
	idx, err := Build(g, 16, func(i int) { nChrs++ })
	if err != nil {
		t.Fatal(err)
	}
	if nChrs != 2 {
		t.Errorf("progress called %d times", nChrs)
	}
	return idx, [][]byte{chr1, chr2}
}

func TestMaxMappablePrefix(t *testing.T) {
	idx, chrs := newTestIndex(t)
	g := idx.Genome()
	t.Logf("k-mers: %d", idx.NumKmers())

	var loci []uint64
	var m, n int

	// a unique 50-mer
	codes := util.Seq2Codes(chrs[0][100:150], nil)
	m, n, loci = idx.MaxMappablePrefix(codes, 10, loci)
	if m != 50 || n != 1 || len(loci) != 1 || loci[0] != uint64(g.Chrs[0].Start+100) {
		t.Errorf("unique read: length %d, loci %d, %v", m, n, loci)
	}

	// a junction between two chromosomes
	s := append(append([]byte{}, chrs[0][300:330]...), chrs[1][200:230]...)
	codes = util.Seq2Codes(s, codes)
	m, n, loci = idx.MaxMappablePrefix(codes, 10, loci)
	if m < 30 || m >= 60 || n < 1 {
		t.Errorf("chimeric read: length %d, loci %d", m, n)
	}
	found := false
	for _, p := range loci {
		if p == uint64(g.Chrs[0].Start+300) {
			found = true
		}
	}
	if !found {
		t.Errorf("chimeric read: locus not found: %v", loci)
	}

	// a repeat
	codes = util.Seq2Codes(chrs[1][1500:1540], codes)
	m, n, loci = idx.MaxMappablePrefix(codes, 10, loci)
	if m != 40 || n != 2 || len(loci) != 2 {
		t.Errorf("repeat: length %d, loci %d, %v", m, n, loci)
	} else if loci[0] != uint64(g.Chrs[0].Start+2500) || loci[1] != uint64(g.Chrs[1].Start+1500) {
		t.Errorf("repeat: unexpected loci %v", loci)
	}
	m, n, loci = idx.MaxMappablePrefix(codes, 1, loci)
	if m != 40 || n != 2 || len(loci) != 0 {
		t.Errorf("repeat with maxLoci 1: length %d, loci %d, %v", m, n, loci)
	}

	// shorter than k
	codes = util.Seq2Codes(chrs[0][500:506], codes)
	m, n, loci = idx.MaxMappablePrefix(codes, 1000, loci)
	if m != 6 || n < 1 || len(loci) != n {
		t.Errorf("short read: length %d, loci %d", m, n)
	}

	// starting with N
	codes = util.Seq2Codes([]byte("NACGT"), codes)
	if m, _, _ = idx.MaxMappablePrefix(codes, 10, loci); m != 0 {
		t.Errorf("N: expected 0, returned %d", m)
	}
}

func TestFindSeeds(t *testing.T) {
	idx, chrs := newTestIndex(t)
	g := idx.Genome()

	s := append(append([]byte{}, chrs[0][300:330]...), chrs[1][200:230]...)
	s = append(s, 'N')
	codes := util.Seq2Codes(s, nil)

	seeds, loci := idx.FindSeeds(codes, 0, 10, nil, nil)
	if len(seeds) != 2 {
		t.Fatalf("expected 2 seeds, returned %d: %v", len(seeds), seeds)
	}
	if seeds[0].Start != 0 || seeds[0].Len < 30 || seeds[0].LociN < 1 {
		t.Errorf("unexpected first seed: %+v", seeds[0])
	}
	sd := seeds[1]
	if sd.Start != seeds[0].Len+1 || sd.Start+sd.Len != 60 || sd.LociN != 1 {
		t.Errorf("unexpected second seed: %+v", sd)
	} else if loci[sd.LociStart] != uint64(g.Chrs[1].Start+200+sd.Start-30) {
		t.Errorf("unexpected locus of the second seed: %d", loci[sd.LociStart])
	}

	// capped length
	seeds, _ = idx.FindSeeds(codes[:30], 10, 10, seeds, loci)
	if len(seeds) != 3 || seeds[0].Len != 10 || seeds[1].Start != 11 || seeds[2].Start != 22 {
		t.Errorf("unexpected seeds with capped length: %v", seeds)
	}
}

func TestSerialization(t *testing.T) {
	idx, chrs := newTestIndex(t)
	dir := t.TempDir() + "/idx"

	if err := idx.WriteToPath(dir, false); err != nil {
		t.Fatal(err)
	}
	if err := idx.WriteToPath(dir, false); err != ErrDirNotEmpty {
		t.Errorf("expected ErrDirNotEmpty, returned %v", err)
	}

	idx2, err := NewFromPath(dir)
	if err != nil {
		t.Fatal(err)
	}
	if idx2.K() != idx.K() || idx2.NumKmers() != idx.NumKmers() {
		t.Errorf("index changed: k %d/%d, k-mers %d/%d", idx2.K(), idx.K(), idx2.NumKmers(), idx.NumKmers())
	}

	codes := util.Seq2Codes(chrs[1][1500:1540], nil)
	m, n, loci := idx2.MaxMappablePrefix(codes, 10, nil)
	if m != 40 || n != 2 || len(loci) != 2 {
		t.Errorf("repeat: length %d, loci %d, %v", m, n, loci)
	}
}
