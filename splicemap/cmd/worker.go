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
	"sync"

	"github.com/shenwei356/SpliceMap/splicemap/align"
	"github.com/shenwei356/bio/seqio/fastx"
)

// worker owns an alignment engine and a junction collector.
type worker struct {
	ra *align.ReadAlign
	sj *align.SJCollector
}

// align aligns a read and formats the outputs, as the result is only valid
// before the engine handles the next read.
func (wk *worker) align(t *readTask, outUnmapped bool) {
	res := wk.ra.OneRead(&t.read)
	g := wk.ra.Genome()

	wk.sj.Add(res)
	t.summary.set(res)
	t.out = appendAlignments(t.out[:0], g, t.name, res, outUnmapped)
	t.chim = appendChimeric(t.chim[:0], g, t.name, res)
}

// readTask is a read and its formatted outputs.
type readTask struct {
	id   uint64
	name  []byte
	seqs  [2][]byte
	quals [2][]byte

	read align.Read

	out     []byte
	chim    []byte
	summary readSummary
}

func (t *readTask) reset() {
	t.name = t.name[:0]
	t.seqs[0] = t.seqs[0][:0]
	t.seqs[1] = t.seqs[1][:0]
	t.quals[0] = t.quals[0][:0]
	t.quals[1] = t.quals[1][:0]
	t.out = t.out[:0]
	t.chim = t.chim[:0]
}

// setMate copies the sequence and qualities of a mate, and the name of the first mate.
func (t *readTask) setMate(i int, record *fastx.Record) {
	if i == 0 {
		t.name = append(t.name, trimMateSuffix(record.ID)...)
	}
	t.seqs[i] = append(t.seqs[i], record.Seq.Seq...)
	t.quals[i] = append(t.quals[i], record.Seq.Qual...)
}

func (t *readTask) setRead(nMates int) {
	t.read = align.Read{Name: t.name, NMates: nMates}
	t.read.Mates[0] = t.seqs[0]
	t.read.Quals[0] = t.quals[0]
	if nMates == 2 {
		t.read.Mates[1] = t.seqs[1]
		t.read.Quals[1] = t.quals[1]
	}
}

var poolReadTask = &sync.Pool{New: func() interface{} {
	return &readTask{
		name:  make([]byte, 0, 128),
		seqs:  [2][]byte{make([]byte, 0, 256), make([]byte, 0, 256)},
		quals: [2][]byte{make([]byte, 0, 256), make([]byte, 0, 256)},
		out:   make([]byte, 0, 1024),
		chim:  make([]byte, 0, 256),
	}
}}
