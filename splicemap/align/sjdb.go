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
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rdleal/intervalst/interval"
	"github.com/shenwei356/SpliceMap/splicemap/genome"
	"github.com/shenwei356/xopen"
)

// AnnotatedJunction is an intron from gene annotations.
type AnnotatedJunction struct {
	Chr    int
	Start  int   // global 0-based position of the first intronic base
	End    int   // global position after the last intronic base
	Strand uint8 // 0: undefined, 1: +, 2: -
}

// SJDB is the database of annotated junctions, searched with interval trees, one per chromosome.
type SJDB struct {
	g         *genome.Genome
	trees     []*interval.SearchTree[int, int]
	Junctions []AnnotatedJunction
}

// ErrInvalidJunction means a junction out of the chromosome or with an unknown chromosome.
var ErrInvalidJunction = errors.New("align: invalid annotated junction")

// NewSJDB creates an empty junction database for a genome.
func NewSJDB(g *genome.Genome) *SJDB {
	cmpFn := func(x, y int) int { return x - y }
	trees := make([]*interval.SearchTree[int, int], g.NumChrs())
	for i := range trees {
		trees[i] = interval.NewSearchTree[int, int](cmpFn)
	}
	return &SJDB{g: g, trees: trees, Junctions: make([]AnnotatedJunction, 0, 1024)}
}

// Len returns the number of junctions.
func (db *SJDB) Len() int {
	return len(db.Junctions)
}

// Add adds an intron with 1-based inclusive local coordinates.
// The strand could be '+', '-', or others for undefined.
// Duplicated junctions are ignored.
func (db *SJDB) Add(chr string, start, end int, strand byte) error {
	iChr, ok := db.g.ChrIndexByName(chr)
	if !ok {
		return errors.Wrapf(ErrInvalidJunction, "unknown chromosome: %s", chr)
	}
	c := &db.g.Chrs[iChr]
	if start < 1 || end < start || end > c.Length {
		return errors.Wrapf(ErrInvalidJunction, "%s:%d-%d", chr, start, end)
	}
	var s uint8
	switch strand {
	case '+', '1':
		s = 1
	case '-', '2':
		s = 2
	}

	gs := c.Start + start - 1
	ge := c.Start + end
	if _, ok = db.Find(gs, ge); ok {
		return nil
	}
	db.Junctions = append(db.Junctions, AnnotatedJunction{Chr: iChr, Start: gs, End: ge, Strand: s})
	return db.trees[iChr].Insert(gs, ge-1, len(db.Junctions)-1)
}

// Find returns the index of an annotated junction with the exact global range [start, end).
func (db *SJDB) Find(start, end int) (int, bool) {
	iChr := db.g.ChrIndex(start)
	if iChr < 0 || end <= start {
		return -1, false
	}
	vals, ok := db.trees[iChr].AllIntersections(start, end-1)
	if !ok {
		return -1, false
	}
	for _, i := range vals {
		if db.Junctions[i].Start == start && db.Junctions[i].End == end {
			return i, true
		}
	}
	return -1, false
}

// overlaps appends indexes of junctions overlapping with the global range [start, end).
func (db *SJDB) overlaps(start, end int, buf []int) []int {
	buf = buf[:0]
	iChr := db.g.ChrIndexOfBin(start)
	if iChr < 0 || end <= start {
		return buf
	}
	vals, ok := db.trees[iChr].AllIntersections(start, end-1)
	if !ok {
		return buf
	}
	return append(buf, vals...)
}

// Sorted returns junctions sorted by position.
func (db *SJDB) Sorted() []AnnotatedJunction {
	js := make([]AnnotatedJunction, len(db.Junctions))
	copy(js, db.Junctions)
	sort.Slice(js, func(i, j int) bool {
		if js[i].Start == js[j].Start {
			return js[i].End < js[j].End
		}
		return js[i].Start < js[j].Start
	})
	return js
}

// ReadSJDB reads annotated junctions from a tab-delimited file with at least 3 columns:
// chromosome, first and last bases of the intron (1-based), and an optional strand.
// Lines starting with '#' are ignored.
func ReadSJDB(file string, g *genome.Genome) (*SJDB, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read junction file: %s", file)
	}
	defer fh.Close()

	db := NewSJDB(g)
	scanner := bufio.NewScanner(fh)
	var line string
	var items []string
	var start, end int
	var strand byte
	var n int
	for scanner.Scan() {
		n++
		line = strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || line[0] == '#' {
			continue
		}
		items = strings.Split(line, "\t")
		if len(items) < 3 {
			return nil, fmt.Errorf("%s: line %d: at least 3 columns needed", file, n)
		}
		if start, err = strconv.Atoi(items[1]); err != nil {
			return nil, fmt.Errorf("%s: line %d: invalid start: %s", file, n, items[1])
		}
		if end, err = strconv.Atoi(items[2]); err != nil {
			return nil, fmt.Errorf("%s: line %d: invalid end: %s", file, n, items[2])
		}
		strand = '.'
		if len(items) > 3 && items[3] != "" {
			strand = items[3][0]
		}
		if err = db.Add(items[0], start, end, strand); err != nil {
			return nil, errors.Wrapf(err, "%s: line %d", file, n)
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read junction file: %s", file)
	}
	return db, nil
}
