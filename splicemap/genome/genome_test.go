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
	"os"
	"path/filepath"
	"testing"

	"github.com/shenwei356/SpliceMap/splicemap/util"
)

func newTestGenome(t *testing.T) *Genome {
	g, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	if err = g.AddChromosome("chr1", []byte("ACGTACGTNNACGTA")); err != nil {
		t.Fatal(err)
	}
	if err = g.AddChromosome("chr2", []byte("ggccaattgn")); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGeometry(t *testing.T) {
	g := newTestGenome(t)

	// 15 bases + at least one spacer => 16
	if g.Chrs[1].Start != 16 {
		t.Errorf("start of chr2: expected 16, returned %d", g.Chrs[1].Start)
	}
	if g.Len() != 32 {
		t.Errorf("genome length: expected 32, returned %d", g.Len())
	}
	if g.Bases() != 25 {
		t.Errorf("bases: expected 25, returned %d", g.Bases())
	}

	tests := []struct {
		pos int
		chr int
	}{
		{0, 0}, {14, 0}, {15, -1}, {16, 1}, {25, 1}, {26, -1}, {100, -1}, {-1, -1},
	}
	for _, test := range tests {
		if i := g.ChrIndex(test.pos); i != test.chr {
			t.Errorf("ChrIndex(%d): expected %d, returned %d", test.pos, test.chr, i)
		}
	}
	if i := g.ChrIndexOfBin(15); i != 0 {
		t.Errorf("ChrIndexOfBin(15): expected 0, returned %d", i)
	}

	if g.BaseAt(8) != util.BaseN || g.BaseAt(15) != util.BaseSpacer || g.BaseAt(16) != util.BaseG {
		t.Errorf("unexpected bases: %d %d %d", g.BaseAt(8), g.BaseAt(15), g.BaseAt(16))
	}
	if len(g.Chrs[0].NRuns) != 1 || g.Chrs[0].NRuns[0] != [2]int{8, 10} {
		t.Errorf("unexpected N runs: %v", g.Chrs[0].NRuns)
	}

	name, pos, ok := g.Locate(18)
	if !ok || name != "chr2" || pos != 2 {
		t.Errorf("Locate(18): %s %d %v", name, pos, ok)
	}

	if s := string(g.SubSeq(12, 18)); s != "GTA-GG" {
		t.Errorf("SubSeq: %s", s)
	}

	if err := g.AddChromosome("chr1", []byte("ACGT")); err == nil {
		t.Errorf("duplicated names should be refused")
	}
	if err := g.AddChromosome("chr3", nil); err == nil {
		t.Errorf("empty sequences should be refused")
	}
}

func TestTwoBit(t *testing.T) {
	for n := 1; n < 10; n++ {
		codes := make([]uint8, n)
		for i := range codes {
			codes[i] = uint8(i*7) & 3
		}
		b2 := codes2TwoBit(codes, nil)
		if len(b2) != (n+3)/4 {
			t.Errorf("%d bases packed into %d bytes", n, len(b2))
		}
		codes2, err := twoBit2Codes(b2, n, nil)
		if err != nil {
			t.Error(err)
			continue
		}
		for i := range codes {
			if codes[i] != codes2[i] {
				t.Errorf("%d bases: mismatch at %d", n, i)
				break
			}
		}
	}
}

func TestSerialization(t *testing.T) {
	g := newTestGenome(t)
	dir := t.TempDir()

	if err := g.WriteToPath(dir); err != nil {
		t.Fatal(err)
	}

	g2, err := NewFromPath(dir)
	if err != nil {
		t.Fatal(err)
	}
	if g2.NumChrs() != g.NumChrs() || g2.Len() != g.Len() {
		t.Errorf("genome changed after reading: %d/%d chromosomes, %d/%d bases",
			g2.NumChrs(), g.NumChrs(), g2.Len(), g.Len())
	}
	for i := range g.Seq {
		if g.Seq[i] != g2.Seq[i] {
			t.Errorf("base mismatch at %d", i)
			break
		}
	}
	if i, ok := g2.ChrIndexByName("chr2"); !ok || i != 1 {
		t.Errorf("chromosome names not restored")
	}

	// a broken checksum
	file := filepath.Join(dir, InfoFile)
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	g.Seq[0] = util.BaseT
	if err = g.WriteToPath(dir); err != nil {
		t.Fatal(err)
	}
	if err = os.WriteFile(file, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err = NewFromPath(dir); err != ErrChecksumMismatch {
		t.Errorf("expected checksum mismatch, returned %v", err)
	}
}
