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
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

var be = binary.BigEndian

// Magic number of the 2bit file.
var Magic = [8]byte{'s', 'p', 'l', '2', 'b', 'i', 't', 's'}

// MainVersion is use for checking compatibility
var MainVersion uint8 = 0

// MinorVersion is less important
var MinorVersion uint8 = 1

// BufferSize is size of reading and writing buffer
var BufferSize = 65536

// ErrInvalidFileFormat means invalid file format.
var ErrInvalidFileFormat = errors.New("genome: invalid binary format")

// ErrInvalidTwoBitData means the length of two bit seq slice does not match the number of bases
var ErrInvalidTwoBitData = errors.New("genome: invalid two-bit data")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.New("genome: broken file")

// ErrVersionMismatch means version mismatch between files and program
var ErrVersionMismatch = errors.New("genome: version mismatch")

// twoBitWriter saves chromosomes in 2bit-packed base codes.
// N bases are saved as A and recovered from the N runs in the info file.
//
// Layout:
//
//	Magic number, 8 bytes
//	Main and minor versions, 2 bytes, and 6 preserved bytes
//	Records: #bytes (8 bytes), #bases (8 bytes), packed data
type twoBitWriter struct {
	fh  *os.File
	w   *bufio.Writer
	buf []byte
	b2  []byte
}

func newTwoBitWriter(file string) (*twoBitWriter, error) {
	fh, err := os.Create(file)
	if err != nil {
		return nil, err
	}
	w := &twoBitWriter{fh: fh, w: bufio.NewWriterSize(fh, BufferSize), buf: make([]byte, 16)}

	if err = binary.Write(w.w, be, Magic); err != nil {
		return nil, err
	}
	if err = binary.Write(w.w, be, [8]uint8{MainVersion, MinorVersion}); err != nil {
		return nil, err
	}
	return w, nil
}

// write packs and writes one chromosome.
func (w *twoBitWriter) write(codes []uint8) error {
	w.b2 = codes2TwoBit(codes, w.b2)

	be.PutUint64(w.buf[:8], uint64(len(w.b2)))
	be.PutUint64(w.buf[8:16], uint64(len(codes)))
	if _, err := w.w.Write(w.buf[:16]); err != nil {
		return err
	}
	_, err := w.w.Write(w.b2)
	return err
}

func (w *twoBitWriter) close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.fh.Close()
}

// readTwoBit reads n records and calls fn with the unpacked codes of each record.
// The code slice is reused between records.
func readTwoBit(file string, n int, fn func(i int, codes []uint8) error) error {
	fh, err := os.Open(file)
	if err != nil {
		return err
	}
	defer fh.Close()
	r := bufio.NewReaderSize(fh, BufferSize)

	buf := make([]byte, 16)
	if _, err = io.ReadFull(r, buf[:8]); err != nil {
		return ErrBrokenFile
	}
	for i := 0; i < 8; i++ {
		if Magic[i] != buf[i] {
			return ErrInvalidFileFormat
		}
	}
	if _, err = io.ReadFull(r, buf[:8]); err != nil {
		return ErrBrokenFile
	}
	if MainVersion != buf[0] {
		return ErrVersionMismatch
	}

	var b2, codes []byte
	var nBytes, nBases int
	for i := 0; i < n; i++ {
		if _, err = io.ReadFull(r, buf[:16]); err != nil {
			return ErrBrokenFile
		}
		nBytes = int(be.Uint64(buf[:8]))
		nBases = int(be.Uint64(buf[8:16]))

		if cap(b2) < nBytes {
			b2 = make([]byte, nBytes)
		}
		b2 = b2[:nBytes]
		if _, err = io.ReadFull(r, b2); err != nil {
			return ErrBrokenFile
		}

		codes, err = twoBit2Codes(b2, nBases, codes)
		if err != nil {
			return err
		}
		if err = fn(i, codes); err != nil {
			return err
		}
	}
	return nil
}

// codes2TwoBit packs base codes, 4 bases per byte, the first base in the highest bits.
func codes2TwoBit(codes []uint8, b2 []byte) []byte {
	b2 = b2[:0]
	n := len(codes) >> 2
	var j int
	for i := 0; i < n; i++ {
		j = i << 2
		b2 = append(b2, codes[j]&3<<6|codes[j+1]&3<<4|codes[j+2]&3<<2|codes[j+3]&3)
	}

	m := len(codes) & 3
	if m == 0 {
		return b2
	}
	var b byte
	j = n << 2
	for i := 0; i < m; i++ {
		b |= (codes[j+i] & 3) << (6 - 2*i)
	}
	return append(b2, b)
}

// twoBit2Codes unpacks bases.
func twoBit2Codes(b2 []byte, bases int, codes []uint8) ([]uint8, error) {
	// possible bases for b2 of n bytes: [n*4-3, n*4]
	if bases < (len(b2)<<2)-3 || bases > len(b2)<<2 {
		return nil, ErrInvalidTwoBitData
	}
	codes = codes[:0]
	for _, b := range b2 {
		codes = append(codes, b>>6&3, b>>4&3, b>>2&3, b&3)
	}
	return codes[:bases], nil
}
