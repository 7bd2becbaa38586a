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

package util

import (
	"errors"
	"math/bits"
)

// Base codes shared by the genome, the index and the aligner.
// A k-mer code only contains the first four.
const (
	BaseA      uint8 = 0
	BaseC      uint8 = 1
	BaseG      uint8 = 2
	BaseT      uint8 = 3
	BaseN      uint8 = 4 // any ambiguous base
	BaseSpacer uint8 = 5 // padding between chromosomes, and the mate spacer of paired reads
)

// Base2Code maps ASCII bases to base codes. Any letter that is not ACGTU is an N,
// other bytes are spacers.
var Base2Code [256]uint8

// Code2Base maps base codes back to ASCII bases.
var Code2Base = [6]byte{'A', 'C', 'G', 'T', 'N', '-'}

func init() {
	for i := range Base2Code {
		Base2Code[i] = BaseSpacer
	}
	for c := 'A'; c <= 'Z'; c++ {
		Base2Code[c] = BaseN
		Base2Code[c+32] = BaseN
	}
	for _, p := range [][2]byte{{'A', BaseA}, {'C', BaseC}, {'G', BaseG}, {'T', BaseT}, {'U', BaseT}} {
		Base2Code[p[0]] = p[1]
		Base2Code[p[0]+32] = p[1]
	}
}

// Seq2Codes converts a DNA sequence into base codes, reusing the buffer.
func Seq2Codes(s []byte, codes []uint8) []uint8 {
	codes = codes[:0]
	for _, b := range s {
		codes = append(codes, Base2Code[b])
	}
	return codes
}

// RevCompCodes writes the reverse complement of codes into rc.
// N and spacer codes are kept as they are.
func RevCompCodes(codes []uint8, rc []uint8) []uint8 {
	rc = rc[:0]
	var c uint8
	for i := len(codes) - 1; i >= 0; i-- {
		c = codes[i]
		if c < BaseN {
			c = 3 - c
		}
		rc = append(rc, c)
	}
	return rc
}

// ErrIllegalCode means a code other than A/C/G/T is met when encoding a k-mer.
var ErrIllegalCode = errors.New("util: illegal base code for k-mer")

// EncodeCodes encodes base codes into a 2-bit k-mer code. len(codes) <= 32.
func EncodeCodes(codes []uint8) (code uint64, err error) {
	for _, c := range codes {
		if c > BaseT {
			return 0, ErrIllegalCode
		}
		code = code<<2 | uint64(c)
	}
	return code, nil
}

// KmerBaseAt returns the base in pos i (0-based).
func KmerBaseAt(code uint64, k uint8, i uint8) uint8 {
	return uint8(code >> ((k - i - 1) << 1) & 3)
}

// KmerPrefix returns the first n bases. n needs to be > 0.
func KmerPrefix(code uint64, k uint8, n uint8) uint64 {
	return code >> ((k - n) << 1)
}

// KmerSuffix returns the suffix starting from position i (0-based).
func KmerSuffix(code uint64, k uint8, i uint8) uint64 {
	return code & (1<<((k-i)<<1) - 1)
}

// MustKmerLongestPrefix returns the length of the longest common prefix,
// by assuming k1 >= k2.
func MustKmerLongestPrefix(code1, code2 uint64, k1, k2 uint8) uint8 {
	code1 >>= ((k1 - k2) << 1)
	return uint8(bits.LeadingZeros64(code1^code2)>>1) + k2 - 32
}

// KmerHasPrefix checks if a k-mer has a prefix.
func KmerHasPrefix(code uint64, prefix uint64, k1, k2 uint8) bool {
	if k1 < k2 {
		return false
	}
	return code>>((k1-k2)<<1) == prefix
}

// MustKmerHasPrefix checks if a k-mer has a prefix, by assuming k1>=k2.
func MustKmerHasPrefix(code uint64, prefix uint64, k1, k2 uint8) bool {
	return code>>((k1-k2)<<1) == prefix
}

// KmerCommonPrefix returns the length of the common prefix of two k-mers of the same k.
func KmerCommonPrefix(code1, code2 uint64, k uint8) uint8 {
	n := uint8(bits.LeadingZeros64(code1^code2)>>1) - (32 - k)
	if n > k {
		return k
	}
	return n
}
