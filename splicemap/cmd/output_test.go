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
package cmd

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shenwei356/SpliceMap/splicemap/align"
	"github.com/shenwei356/SpliceMap/splicemap/genome"
	"github.com/pkg/errors"
	"github.com/shenwei356/SpliceMap/splicemap/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOnce sync.Once
	testSeq  []byte
	testIdx  *index.Index
	testErr  error
)

func getTestIndex(t *testing.T) *index.Index {
	testOnce.Do(func() {
		r := rand.New(rand.NewSource(11))
		testSeq = make([]byte, 5000)
		for i := range testSeq {
			testSeq[i] = "ACGT"[r.Intn(4)]
		}

		var g *genome.Genome
		g, testErr = genome.New(12)
		if testErr != nil {
			return
		}
		if testErr = g.AddChromosome("chrA", testSeq); testErr != nil {
			return
		}
		testIdx, testErr = index.Build(g, 16, nil)
	})
	require.NoError(t, testErr)
	return testIdx
}

func newTestWorker(t *testing.T) *worker {
	idx := getTestIndex(t)
	p := align.DefaultParams()
	require.NoError(t, align.CheckParams(p))
	ra, err := align.NewReadAlign(p, idx, 0)
	require.NoError(t, err)
	return &worker{ra: ra, sj: align.NewSJCollector()}
}

func newTestTask(name string, seq []byte) *readTask {
	t := poolReadTask.Get().(*readTask)
	t.reset()
	t.name = append(t.name, name...)
	t.seqs[0] = append(t.seqs[0], seq...)
	t.setRead(1)
	return t
}

func TestWorkerAlign(t *testing.T) {
	wk := newTestWorker(t)

	task := newTestTask("r1", testSeq[1000:1100])
	wk.align(task, false)

	lines := strings.Split(strings.TrimRight(string(task.out), "\n"), "\n")
	require.Len(t, lines, 1)
	fields := strings.Split(lines[0], "\t")
	require.Len(t, fields, strings.Count(alignHeader, "\t")+1)

	assert.Equal(t, "r1", fields[0])
	assert.Equal(t, "1", fields[1])
	assert.Equal(t, "100", fields[2])
	assert.Equal(t, "unique", fields[3])
	assert.Equal(t, "*", fields[4])
	assert.Equal(t, "1", fields[5])
	assert.Equal(t, "1", fields[7])
	assert.Equal(t, "chrA", fields[8])
	assert.Equal(t, "1001", fields[9])
	assert.Equal(t, "1100", fields[10])
	assert.Equal(t, "+", fields[11])
	assert.Equal(t, "255", fields[13])
	assert.Equal(t, "100M", fields[14])
	assert.Equal(t, "0", fields[15])
	assert.Empty(t, task.chim)

	assert.Equal(t, align.ClassUnique, task.summary.class)
	assert.Equal(t, 100, task.summary.mappedLen)
	assert.Equal(t, 100, task.summary.length)

	// unmapped reads
	r := rand.New(rand.NewSource(3))
	s := make([]byte, 100)
	for i := range s {
		s[i] = "ACGT"[r.Intn(4)]
	}
	task = newTestTask("r2", s)
	wk.align(task, false)
	assert.Empty(t, task.out)
	assert.Equal(t, align.ClassUnmapped, task.summary.class)

	wk.align(task, true)
	fields = strings.Split(strings.TrimRight(string(task.out), "\n"), "\t")
	require.Len(t, fields, strings.Count(alignHeader, "\t")+1)
	assert.Equal(t, "unmapped", fields[3])
	assert.NotEqual(t, "*", fields[4])
	assert.Equal(t, "*", fields[14])
}

func TestAppendSJ(t *testing.T) {
	idx := getTestIndex(t)
	g := idx.Genome()

	sj := &align.SJStat{Chr: 0, Start: 2050, End: 2550, Strand: 1, Motif: 1,
		NUnique: 3, NMulti: 1, MaxOverhang: 40}
	line := string(appendSJ(nil, g, sj))
	assert.Equal(t, "chrA\t2051\t2550\t+\tGT/AG\t0\t3\t1\t40\n", line)
	assert.Equal(t, strings.Count(sjHeader, "\t"), strings.Count(line, "\t"))
}

func TestAppendChimeric(t *testing.T) {
	idx := getTestIndex(t)
	g := idx.Genome()

	var seg1, seg2 align.Transcript
	seg1.NExons = 1
	seg1.Exons[0] = align.Exon{RStart: 0, GStart: 100, Len: 50}
	seg1.GStart, seg1.GEnd = 100, 150
	seg2.NExons = 1
	seg2.Exons[0] = align.Exon{RStart: 50, GStart: 3000, Len: 50}
	seg2.GStart, seg2.GEnd = 3000, 3050

	res := &align.Result{
		NMates:     1,
		ReadLength: [2]int{100, 0},
		Chim: &align.ChimericAlignment{
			Seg:          [2]*align.Transcript{&seg1, &seg2},
			JunctionType: 0,
			Donor:        align.ChimericLocus{Chr: 0, Pos: 150, Strand: 1},
			Acceptor:     align.ChimericLocus{Chr: 0, Pos: 2999, Strand: 1},
		},
	}
	line := string(appendChimeric(nil, g, []byte("r1"), res))
	assert.Equal(t, "chrA\t151\t+\tchrA\t3000\t+\t0\t0\t0\tr1\t101\t50M50S\t3001\t50S50M\n", line)
	assert.Equal(t, strings.Count(chimHeader, "\t"), strings.Count(line, "\t"))

	res.Chim = nil
	assert.Empty(t, appendChimeric(nil, g, []byte("r1"), res))
}

func TestTrimMateSuffix(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"read/1", "read"},
		{"read/2", "read"},
		{"read/3", "read/3"},
		{"/1", "/1"},
		{"read", "read"},
	}
	for _, test := range tests {
		if got := string(trimMateSuffix([]byte(test.name))); got != test.want {
			t.Errorf("trimMateSuffix(%s): expected %s, returned %s", test.name, test.want, got)
		}
	}
}

func TestReadPairs(t *testing.T) {
	dir := t.TempDir()
	file1 := filepath.Join(dir, "r_1.fq")
	file2 := filepath.Join(dir, "r_2.fq")
	require.NoError(t, os.WriteFile(file1, []byte("@a/1\nACGTACGT\n+\nIIIIIIII\n@b/1\nGGGG\n+\nIIII\n"), 0644))
	require.NoError(t, os.WriteFile(file2, []byte("@a/2\nTTTTCCCC\n+\nABCDEFGH\n@b/2\nAAAA\n+\nIIII\n"), 0644))

	var names, mates1, mates2, quals2 []string
	err := readPairs(file1, file2, func(task *readTask) {
		names = append(names, string(task.read.Name))
		mates1 = append(mates1, string(task.read.Mates[0]))
		mates2 = append(mates2, string(task.read.Mates[1]))
		quals2 = append(quals2, string(task.read.Quals[1]))
		assert.Equal(t, 2, task.read.NMates)
		poolReadTask.Put(task)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Equal(t, []string{"ACGTACGT", "GGGG"}, mates1)
	assert.Equal(t, []string{"TTTTCCCC", "AAAA"}, mates2)
	assert.Equal(t, []string{"ABCDEFGH", "IIII"}, quals2)

	// unequal numbers of reads
	require.NoError(t, os.WriteFile(file2, []byte("@a/2\nTTTTCCCC\n+\nIIIIIIII\n"), 0644))
	err = readPairs(file1, file2, func(task *readTask) { poolReadTask.Put(task) })
	assert.Error(t, err)

	// single-end
	var n int
	err = readSingles(file1, func(task *readTask) {
		n++
		assert.Equal(t, 1, task.read.NMates)
		assert.Empty(t, task.read.Mates[1])
		assert.Empty(t, task.read.Quals[1])
		assert.Equal(t, len(task.read.Mates[0]), len(task.read.Quals[0]))
		poolReadTask.Put(task)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// limitedWriter fails once more than n bytes are written.
type limitedWriter struct {
	buf bytes.Buffer
	n   int
}

var errDiskFull = errors.New("no space left on device")

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.buf.Len()+len(p) > w.n {
		return 0, errDiskFull
	}
	return w.buf.Write(p)
}

func TestResultWriter(t *testing.T) {
	aln := &limitedWriter{n: 8}
	chim := &bytes.Buffer{}
	rw := &resultWriter{aln: aln, chim: chim}

	task := &readTask{out: []byte("r1\t1\n"), chim: []byte("c1\n")}
	rw.write(task)
	require.NoError(t, rw.err)
	assert.Equal(t, "r1\t1\n", aln.buf.String())
	assert.Equal(t, "c1\n", chim.String())

	// the write error is kept, and later results are not written
	rw.write(task)
	assert.Equal(t, errDiskFull, rw.err)
	task2 := &readTask{out: []byte("r\n"), chim: []byte("c2\n")}
	rw.write(task2)
	assert.Equal(t, errDiskFull, rw.err)
	assert.Equal(t, "r1\t1\n", aln.buf.String())
	assert.Equal(t, "c1\n", chim.String())

	// no chimeric output
	rw = &resultWriter{aln: &bytes.Buffer{}}
	rw.write(task)
	assert.NoError(t, rw.err)
}
