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
	"testing"

	"github.com/shenwei356/kmers"
)

func TestUniqUint64s(t *testing.T) {
	tests := [][2][]uint64{
		{{}, {}},
		{{1}, {1}},
		{{3, 1, 2, 1, 3}, {1, 2, 3}},
		{{5, 5, 5}, {5}},
	}
	for i, test := range tests {
		list := append([]uint64{}, test[0]...)
		UniqUint64s(&list)
		if len(list) != len(test[1]) {
			t.Errorf("#%d: expected %v, returned %v", i, test[1], list)
			continue
		}
		for j, v := range list {
			if v != test[1][j] {
				t.Errorf("#%d: expected %v, returned %v", i, test[1], list)
				break
			}
		}
	}
}

func TestPairCodec(t *testing.T) {
	buf := make([]byte, 16)
	pairs := [][2]uint64{{0, 0}, {1, 255}, {256, 65536}, {1 << 40, 1<<64 - 1}}
	for _, p := range pairs {
		ctrl, n := PutPair(buf, p[0], p[1])
		if PairLen(ctrl) != n {
			t.Errorf("byte length mismatch for %v: %d vs %d", p, PairLen(ctrl), n)
		}
		v1, v2, m := Pair(ctrl, buf[:n])
		if m != n || v1 != p[0] || v2 != p[1] {
			t.Errorf("expected %v, returned %d, %d (%d bytes)", p, v1, v2, m)
		}
	}
}

func TestKmerCodes(t *testing.T) {
	s := []byte("ACGTNacgu")
	codes := Seq2Codes(s, nil)
	expected := []uint8{0, 1, 2, 3, 4, 0, 1, 2, 3}
	for i, c := range codes {
		if c != expected[i] {
			t.Errorf("base %c: expected %d, returned %d", s[i], expected[i], c)
		}
	}

	rc := RevCompCodes(codes[:5], nil)
	if rc[0] != BaseN || rc[1] != BaseA || rc[4] != BaseT {
		t.Errorf("unexpected reverse complement: %v", rc)
	}

	code, err := EncodeCodes(codes[:4])
	if err != nil {
		t.Error(err)
		return
	}
	code2, _ := kmers.Encode([]byte("ACGT"))
	if code != code2 {
		t.Errorf("code mismatch: %d vs %d", code, code2)
	}
	if _, err = EncodeCodes(codes[3:5]); err != ErrIllegalCode {
		t.Errorf("N should not be encoded")
	}

	a, _ := kmers.Encode([]byte("ACGTACGT"))
	b, _ := kmers.Encode([]byte("ACGTTCGT"))
	if n := KmerCommonPrefix(a, b, 8); n != 4 {
		t.Errorf("common prefix: expected 4, returned %d", n)
	}
	if n := KmerCommonPrefix(a, a, 8); n != 8 {
		t.Errorf("common prefix: expected 8, returned %d", n)
	}
	if KmerBaseAt(a, 8, 1) != BaseC {
		t.Errorf("base at 1 should be C")
	}
}
