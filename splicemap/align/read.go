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
	"errors"

	"github.com/shenwei356/SpliceMap/splicemap/util"
)

// Read is a single-end or paired-end read.
// For paired-end reads, the second mate is given as sequenced, i.e.,
// it will be reverse complemented and joined to the first one with a spacer.
type Read struct {
	Name   []byte
	Mates  [2][]byte
	Quals  [2][]byte // optional, either empty or as long as the mates
	NMates int       // 1 or 2
}

// Reasons for skipping a read, reported in Result.Err.
var (
	ErrEmptyRead       = errors.New("align: empty read sequence")
	ErrMateCount       = errors.New("align: number of mates should be 1 or 2")
	ErrReadTooLong     = errors.New("align: read longer than readMatesLengthMax")
	ErrReadNameTooLong = errors.New("align: read name longer than readNameLengthMax")
	ErrInvalidBases    = errors.New("align: too many invalid bases")
	ErrQualityLength   = errors.New("align: qualities and sequence of different lengths")
)

// loadRead converts a read into base codes of both directions.
func (ra *ReadAlign) loadRead(read *Read) error {
	p := ra.p
	if len(read.Name) > p.ReadNameLengthMax {
		return ErrReadNameTooLong
	}
	ra.readName = append(ra.readName[:0], read.Name...)

	if read.NMates != 1 && read.NMates != 2 {
		return ErrMateCount
	}
	for i := 0; i < read.NMates; i++ {
		if len(read.Mates[i]) == 0 {
			return ErrEmptyRead
		}
	}

	ra.nMates = read.NMates
	ra.readLength[0] = len(read.Mates[0])
	ra.readLength[1] = 0
	ra.lread = ra.readLength[0]
	if ra.nMates == 2 {
		ra.readLength[1] = len(read.Mates[1])
		ra.lread = ra.readLength[0] + 1 + ra.readLength[1]
	}
	if ra.lread > p.ReadMatesLengthMax {
		return ErrReadTooLong
	}

	var invalid int
	codes := ra.readCodes[0][:0]
	codes, invalid = appendReadCodes(codes, read.Mates[0], false, invalid)
	if ra.nMates == 2 {
		codes = append(codes, util.BaseSpacer)
		codes, invalid = appendReadCodes(codes, read.Mates[1], true, invalid)
	}
	ra.readCodes[0] = codes
	ra.readCodes[1] = util.RevCompCodes(codes, ra.readCodes[1])

	if err := ra.loadQuals(read); err != nil {
		return err
	}

	if float64(invalid) > p.ReadInvalidBasesMaxFraction*float64(ra.readLength[0]+ra.readLength[1]) {
		return ErrInvalidBases
	}
	return nil
}

// qualSpacer is the quality of the mate spacer.
const qualSpacer = '!'

// loadQuals copies qualities of the mates, if any, in the order of the combined read.
func (ra *ReadAlign) loadQuals(read *Read) error {
	quals := ra.readQuals[:0]
	if len(read.Quals[0]) == 0 && (ra.nMates == 1 || len(read.Quals[1]) == 0) {
		ra.readQuals = quals
		return nil
	}
	for i := 0; i < ra.nMates; i++ {
		if len(read.Quals[i]) != len(read.Mates[i]) {
			return ErrQualityLength
		}
	}
	quals = append(quals, read.Quals[0]...)
	if ra.nMates == 2 {
		quals = append(quals, qualSpacer)
		q := read.Quals[1]
		for i := len(q) - 1; i >= 0; i-- {
			quals = append(quals, q[i])
		}
	}
	ra.readQuals = quals
	return nil
}

// appendReadCodes appends base codes of s, reverse complemented if rc is true.
// Bytes that are not letters are counted as invalid and saved as N.
func appendReadCodes(codes []uint8, s []byte, rc bool, invalid int) ([]uint8, int) {
	var c uint8
	n := len(s)
	for i := range s {
		if rc {
			c = util.Base2Code[s[n-1-i]]
		} else {
			c = util.Base2Code[s[i]]
		}
		if c == util.BaseSpacer {
			invalid++
			c = util.BaseN
		} else if rc && c < util.BaseN {
			c = 3 - c
		}
		codes = append(codes, c)
	}
	return codes, invalid
}

// mateOf returns the mate (0 or 1) of a read position in the given direction.
// The spacer position returns -1.
func (ra *ReadAlign) mateOf(dir uint8, r int) int {
	if ra.nMates == 1 {
		return 0
	}
	first := 0 // the mate at the start of this direction
	if dir == 1 {
		first = 1
	}
	l := ra.readLength[first]
	if r < l {
		return first
	}
	if r == l {
		return -1
	}
	return 1 - first
}

// mateRange returns the read range [start, end) of a mate in the given direction.
func (ra *ReadAlign) mateRange(dir uint8, mate int) (int, int) {
	return mateBounds(dir, mate, ra.readLength, ra.nMates)
}
