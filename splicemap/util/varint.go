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

import "math/bits"

// PutPair writes two integers into buf with the fewest big-endian bytes (1-8 each),
// and returns a control byte saving the two byte lengths, and the number of bytes written.
// buf needs at least 16 bytes.
//
// Bits 3-5 of the control byte is (bytes of v1 - 1), and bits 0-2 is (bytes of v2 - 1).
func PutPair(buf []byte, v1, v2 uint64) (ctrl byte, n int) {
	n1 := uintBytes(v1)
	n2 := uintBytes(v2)
	putUintBE(buf[:n1], v1)
	putUintBE(buf[n1:n1+n2], v2)
	return byte((n1-1)<<3 | (n2 - 1)), n1 + n2
}

// Pair reads two integers written by PutPair. n is 0 if buf is too short.
func Pair(ctrl byte, buf []byte) (v1, v2 uint64, n int) {
	n1 := int(ctrl>>3&7) + 1
	n2 := int(ctrl&7) + 1
	if len(buf) < n1+n2 {
		return 0, 0, 0
	}
	return uintBE(buf[:n1]), uintBE(buf[n1 : n1+n2]), n1 + n2
}

// PairLen returns the number of bytes following a control byte.
func PairLen(ctrl byte) int {
	return int(ctrl>>3&7) + int(ctrl&7) + 2
}

// uintBytes returns the number of bytes needed by v, at least 1.
func uintBytes(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 7) >> 3
}

func putUintBE(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func uintBE(b []byte) (v uint64) {
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
