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

package tree

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/shenwei356/SpliceMap/splicemap/util"
	"github.com/shenwei356/xopen"
	"github.com/twotwotwo/sorts/sortutil"
)

var be = binary.BigEndian

// Magic number for checking file format
var Magic = [8]byte{'k', 'm', 'e', 'r', 't', 'r', 'e', 'e'}

// MainVersion is use for checking compatibility
var MainVersion uint8 = 1

// MinorVersion is less important
var MinorVersion uint8 = 0

// ErrInvalidFileFormat means invalid file format.
var ErrInvalidFileFormat = errors.New("k-mer tree: invalid binary format")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.New("k-mer tree: broken file")

// ErrKOverflow means K < 1 or K > 32.
var ErrKOverflow = errors.New("k-mer tree: k-mer size [1, 32] overflow")

// ErrVersionMismatch means version mismatch between files and program
var ErrVersionMismatch = errors.New("k-mer tree: version mismatch")

// NewFromFile creates a Tree from a file.
func NewFromFile(file string) (*Tree, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	return Read(fh)
}

// WriteToFile writes a tree to a file, optional with file extension of .gz, .xz, .zst, .bz2.
func (t *Tree) WriteToFile(file string) (int, error) {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return 0, err
	}
	defer outfh.Close()

	return t.Write(outfh)
}

// Write writes the tree to a writer.
//
// Header (24 bytes):
//
//	Magic number, 8 bytes, kmertree
//	Main and minor versions, 2 bytes
//	K, 1 byte
//	Blank, 5 bytes
//	Number of keys: 8 bytes
//
// Data, one record per k-mer, in the order of Walk():
//
//	Control byte, 1 byte
//	Delta of the k-mer to the previous one, and the number of values, 2-16 bytes
//	Delta-encoded sorted positions, as pairs of varints with their own control bytes
//
// Positions of a k-mer are sorted in place before writing.
func (t *Tree) Write(w io.Writer) (int, error) {
	var N int // the number of bytes.
	var err error

	if err = binary.Write(w, be, Magic); err != nil {
		return N, err
	}
	N += 8

	if err = binary.Write(w, be, [8]uint8{MainVersion, MinorVersion, t.k}); err != nil {
		return N, err
	}
	N += 8

	if err = binary.Write(w, be, uint64(t.numLeafNodes)); err != nil {
		return N, err
	}
	N += 8

	var preKey uint64
	var n, m int
	var ctrl byte
	var i int
	var pre uint64
	buf := make([]byte, 17)
	var sorted []uint64 // positions are sorted in a copy, the tree is left untouched

	t.Walk(func(key uint64, v []uint64) bool {
		sorted = append(sorted[:0], v...)
		sortutil.Uint64s(sorted)
		v = sorted

		ctrl, n = util.PutPair(buf[1:], key-preKey, uint64(len(v)))
		buf[0] = ctrl
		if _, err = w.Write(buf[:n+1]); err != nil {
			return true
		}
		N += n + 1
		preKey = key

		pre = 0
		for i = 0; i+1 < len(v); i += 2 {
			ctrl, m = util.PutPair(buf[1:], v[i]-pre, v[i+1]-v[i])
			buf[0] = ctrl
			if _, err = w.Write(buf[:m+1]); err != nil {
				return true
			}
			N += m + 1
			pre = v[i+1]
		}
		if i < len(v) { // the last single one
			ctrl, m = util.PutPair(buf[1:], v[i]-pre, 0)
			buf[0] = ctrl
			if _, err = w.Write(buf[:m+1]); err != nil {
				return true
			}
			N += m + 1
		}
		return false
	})

	return N, err
}

// Read reads a tree from an io.Reader.
func Read(r0 io.Reader) (*Tree, error) {
	r := bufio.NewReaderSize(r0, 65536)
	buf := make([]byte, 17)

	var err error

	// check the magic number
	if _, err = io.ReadFull(r, buf[:8]); err != nil {
		return nil, ErrBrokenFile
	}
	for i := 0; i < 8; i++ {
		if Magic[i] != buf[i] {
			return nil, ErrInvalidFileFormat
		}
	}

	// read metadata
	if _, err = io.ReadFull(r, buf[:8]); err != nil {
		return nil, ErrBrokenFile
	}
	if MainVersion != buf[0] {
		return nil, ErrVersionMismatch
	}
	if buf[2] < 1 || buf[2] > 32 {
		return nil, ErrKOverflow
	}

	t := New(buf[2])

	if _, err = io.ReadFull(r, buf[:8]); err != nil {
		return nil, ErrBrokenFile
	}
	nKmers := be.Uint64(buf[:8])

	readPair := func() (uint64, uint64, error) {
		ctrl, err := r.ReadByte()
		if err != nil {
			return 0, 0, ErrBrokenFile
		}
		nBytes := util.PairLen(ctrl)
		if _, err = io.ReadFull(r, buf[:nBytes]); err != nil {
			return 0, 0, ErrBrokenFile
		}
		v1, v2, n := util.Pair(ctrl, buf[:nBytes])
		if n == 0 {
			return 0, 0, ErrBrokenFile
		}
		return v1, v2, nil
	}

	var key, delta, nVals, d1, d2, pre uint64
	var j uint64
	for i := uint64(0); i < nKmers; i++ {
		if delta, nVals, err = readPair(); err != nil {
			return nil, err
		}
		key += delta

		vals := make([]uint64, 0, nVals)
		pre = 0
		for j = 0; j < nVals; j += 2 {
			if d1, d2, err = readPair(); err != nil {
				return nil, err
			}
			pre += d1
			vals = append(vals, pre)
			if j+1 < nVals {
				pre += d2
				vals = append(vals, pre)
			}
		}

		t.insert(key, vals, false)
	}

	return t, nil
}
