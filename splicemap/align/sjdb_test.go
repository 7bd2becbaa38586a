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
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/SpliceMap/splicemap/genome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSJDBGenome(t *testing.T) *genome.Genome {
	g, err := genome.New(10)
	require.NoError(t, err)
	require.NoError(t, g.AddChromosome("chr1", []byte(randSeqN(3000))))
	require.NoError(t, g.AddChromosome("chr2", []byte(randSeqN(2000))))
	return g
}

func randSeqN(n int) string {
	s := make([]byte, n)
	for i := range s {
		s[i] = "ACGT"[(i*7+i/3)&3]
	}
	return string(s)
}

func TestSJDB(t *testing.T) {
	g := newSJDBGenome(t)
	db := NewSJDB(g)

	require.NoError(t, db.Add("chr1", 101, 200, '+'))
	require.NoError(t, db.Add("chr1", 151, 400, '-'))
	require.NoError(t, db.Add("chr2", 11, 60, '.'))
	require.NoError(t, db.Add("chr1", 101, 200, '+')) // duplicated
	assert.Equal(t, 3, db.Len())

	err := db.Add("chr3", 1, 10, '+')
	assert.True(t, errors.Is(err, ErrInvalidJunction))
	err = db.Add("chr2", 1990, 2001, '+')
	assert.True(t, errors.Is(err, ErrInvalidJunction))

	s1, s2 := g.Chrs[0].Start, g.Chrs[1].Start
	i, ok := db.Find(s1+100, s1+200)
	require.True(t, ok)
	assert.Equal(t, AnnotatedJunction{Chr: 0, Start: s1 + 100, End: s1 + 200, Strand: 1}, db.Junctions[i])
	_, ok = db.Find(s1+100, s1+201)
	assert.False(t, ok)
	i, ok = db.Find(s2+10, s2+60)
	require.True(t, ok)
	assert.Equal(t, uint8(0), db.Junctions[i].Strand)

	buf := db.overlaps(s1+180, s1+190, nil)
	assert.Len(t, buf, 2)
	buf = db.overlaps(s1+300, s1+500, buf)
	assert.Len(t, buf, 1)
	buf = db.overlaps(s1+500, s1+600, buf)
	assert.Len(t, buf, 0)

	js := db.Sorted()
	require.Len(t, js, 3)
	assert.Equal(t, s1+100, js[0].Start)
	assert.Equal(t, s1+150, js[1].Start)
	assert.Equal(t, s2+10, js[2].Start)
}

func TestReadSJDB(t *testing.T) {
	g := newSJDBGenome(t)
	file := filepath.Join(t.TempDir(), "sjdb.tsv")

	require.NoError(t, os.WriteFile(file, []byte("# comment\nchr1\t101\t200\t+\n\nchr2\t11\t60\n"), 0644))
	db, err := ReadSJDB(file, g)
	require.NoError(t, err)
	assert.Equal(t, 2, db.Len())

	require.NoError(t, os.WriteFile(file, []byte("chr1\t101\n"), 0644))
	_, err = ReadSJDB(file, g)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(file, []byte("chr1\t101\tx\n"), 0644))
	_, err = ReadSJDB(file, g)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(file, []byte("chrX\t101\t200\n"), 0644))
	_, err = ReadSJDB(file, g)
	assert.True(t, errors.Is(err, ErrInvalidJunction))
}

func TestSpliceGraph(t *testing.T) {
	g := newSJDBGenome(t)
	db := NewSJDB(g)
	require.NoError(t, db.Add("chr1", 501, 900, '+'))
	require.NoError(t, db.Add("chr1", 101, 200, '+'))
	require.NoError(t, db.Add("chr2", 11, 60, '-'))

	sg := NewSpliceGraph(db)
	assert.Equal(t, 3, sg.NumEdges())

	s1, s2 := g.Chrs[0].Start, g.Chrs[1].Start
	assert.True(t, sg.HasEdge(0, s1+100, s1+200))
	assert.True(t, sg.HasEdge(0, s1+500, s1+900))
	assert.True(t, sg.HasEdge(1, s2+10, s2+60))
	assert.False(t, sg.HasEdge(0, s1+100, s1+201))
	assert.False(t, sg.HasEdge(1, s1+100, s1+200))
	assert.False(t, sg.HasEdge(-1, s1+100, s1+200))

	assert.Equal(t, 0, NewSpliceGraph(nil).NumEdges())
}

func TestSJCollector(t *testing.T) {
	var tr Transcript
	tr.Exons[0] = Exon{RStart: 0, GStart: 100, Len: 30}
	tr.Gaps[0] = Gap{Kind: GapSplice, Len: 200, Motif: MotifGTAG}
	tr.Exons[1] = Exon{RStart: 30, GStart: 330, Len: 40}
	tr.Gaps[1] = Gap{Kind: GapDeletion, Len: 3}
	tr.Exons[2] = Exon{RStart: 70, GStart: 373, Len: 30}
	tr.NExons = 3
	ra := &ReadAlign{}
	ra.classifyJunctions(&tr)

	assert.Equal(t, JunctionCanonical, tr.Junctions[0].Kind)
	assert.Equal(t, JunctionNone, tr.Junctions[1].Kind)
	assert.Equal(t, uint8(1), tr.SJStrand)

	c1 := NewSJCollector()
	c1.Add(&Result{Class: ClassUnique, Tr: []*Transcript{&tr}})
	c1.Add(&Result{Class: ClassUnmapped, Tr: []*Transcript{&tr}})
	c2 := NewSJCollector()
	c2.Add(&Result{Class: ClassMulti, Tr: []*Transcript{&tr}})
	c1.Merge(c2)

	sjs := c1.Sorted()
	require.Len(t, sjs, 1)
	sj := sjs[0]
	assert.Equal(t, 130, sj.Start)
	assert.Equal(t, 330, sj.End)
	assert.Equal(t, 1, sj.NUnique)
	assert.Equal(t, 1, sj.NMulti)
	assert.Equal(t, 30, sj.MaxOverhang)
}

func TestStrandConflict(t *testing.T) {
	var tr Transcript
	tr.Exons[0] = Exon{RStart: 0, GStart: 100, Len: 30}
	tr.Gaps[0] = Gap{Kind: GapSplice, Len: 200, Motif: MotifGTAG}
	tr.Exons[1] = Exon{RStart: 30, GStart: 330, Len: 40}
	tr.Gaps[1] = Gap{Kind: GapSplice, Len: 100, Motif: MotifCTAC}
	tr.Exons[2] = Exon{RStart: 70, GStart: 470, Len: 30}
	tr.NExons = 3

	p := DefaultParams()
	require.NoError(t, CheckParams(p))
	ra := &ReadAlign{p: p}
	ra.classifyJunctions(&tr)
	assert.True(t, tr.StrandConflict)
	assert.True(t, ra.filteredByJunctions(&tr))

	p.OutFilterIntronStrands = "None"
	require.NoError(t, CheckParams(p))
	assert.False(t, ra.filteredByJunctions(&tr))

	// non-canonical junctions
	tr.Gaps[1].Motif = MotifNonCanonical
	ra.classifyJunctions(&tr)
	assert.False(t, tr.StrandConflict)
	assert.True(t, tr.Junctions[1].Ambiguous)
	tr.NJuncMotif[MotifNonCanonical] = 1

	p.OutFilterIntronMotifs = "RemoveNoncanonical"
	require.NoError(t, CheckParams(p))
	assert.True(t, ra.filteredByJunctions(&tr))

	p.OutFilterIntronMotifs = "RemoveNoncanonicalUnannotated"
	require.NoError(t, CheckParams(p))
	assert.True(t, ra.filteredByJunctions(&tr))
	tr.Gaps[1].Annotated = true
	assert.False(t, ra.filteredByJunctions(&tr))
}
