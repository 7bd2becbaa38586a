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
	"io"
	"strconv"

	"github.com/shenwei356/SpliceMap/splicemap/align"
	"github.com/shenwei356/SpliceMap/splicemap/genome"
)

// Output files in the output directory.
const (
	fileAlignments = "Aligned.tsv.gz"
	fileSJ         = "SJ.tsv"
	fileChimeric   = "Chimeric.tsv"
	fileStats      = "Log.final.toml"
	fileParams     = "Params.toml"
)

// resultWriter writes formatted results of reads, and keeps the first write error,
// after which nothing is written.
type resultWriter struct {
	aln  io.Writer
	chim io.Writer // nil if chimeric detection is off
	err  error
}

func (rw *resultWriter) write(t *readTask) {
	if rw.err != nil {
		return
	}
	if len(t.out) > 0 {
		if _, rw.err = rw.aln.Write(t.out); rw.err != nil {
			return
		}
	}
	if rw.chim != nil && len(t.chim) > 0 {
		_, rw.err = rw.chim.Write(t.chim)
	}
}

const alignHeader = "read\tmates\tlength\tclass\treason\tloci\thit\tprimary\tchr\tstart\tend\tstrand\tscore\tmapq\tcigar\tmismatches\tjunctions\n"

const sjHeader = "chr\tstart\tend\tstrand\tmotif\tannotated\tunique\tmulti\toverhang\n"

const chimHeader = "chr_donor\tpos_donor\tstrand_donor\tchr_acceptor\tpos_acceptor\tstrand_acceptor\t" +
	"type\trepeat_left\trepeat_right\tread\tstart1\tcigar1\tstart2\tcigar2\n"

var strandChars = [2]byte{'+', '-'}

// locusStrands converts strands of junctions and chimeric loci (0: undefined, 1: +, 2: -).
var locusStrands = [3]byte{'.', '+', '-'}

func appendTab(buf []byte) []byte { return append(buf, '\t') }

func appendInt(buf []byte, v int) []byte {
	return strconv.AppendInt(buf, int64(v), 10)
}

// appendAlignments formats all alignments of a read, one per line.
// Reads without alignments are written only if unmapped is true.
func appendAlignments(buf []byte, g *genome.Genome, name []byte, res *align.Result, unmapped bool) []byte {
	if !res.Mapped() {
		if !unmapped {
			return buf
		}
		buf = appendReadColumns(buf, name, res)
		buf = append(buf, "\t0\t0\t*\t*\t*\t*\t*\t*\t*\t*\t*\t*\n"...)
		return buf
	}

	var chr *genome.Chromosome
	for i, tr := range res.Tr {
		chr = &g.Chrs[tr.Chr]

		buf = appendReadColumns(buf, name, res)
		buf = appendTab(buf)
		buf = appendInt(buf, res.NTr)
		buf = appendTab(buf)
		buf = appendInt(buf, i+1)
		buf = appendTab(buf)
		if tr.Primary {
			buf = append(buf, '1')
		} else {
			buf = append(buf, '0')
		}
		buf = appendTab(buf)
		buf = append(buf, chr.Name...)
		buf = appendTab(buf)
		buf = appendInt(buf, tr.GStart-chr.Start+1)
		buf = appendTab(buf)
		buf = appendInt(buf, tr.GEnd-chr.Start)
		buf = appendTab(buf)
		buf = append(buf, strandChars[tr.Strand])
		buf = appendTab(buf)
		buf = appendInt(buf, tr.Score)
		buf = appendTab(buf)
		buf = appendInt(buf, res.MAPQ)
		buf = appendTab(buf)
		buf = tr.AppendCIGAR(buf, res.ReadLength, res.NMates)
		buf = appendTab(buf)
		buf = appendInt(buf, tr.NMM)
		buf = appendTab(buf)
		buf = appendInt(buf, tr.NJunc)
		buf = append(buf, '\n')
	}
	return buf
}

func appendReadColumns(buf []byte, name []byte, res *align.Result) []byte {
	buf = append(buf, name...)
	buf = appendTab(buf)
	buf = appendInt(buf, res.NMates)
	buf = appendTab(buf)
	buf = appendInt(buf, res.ReadLength[0]+res.ReadLength[1])
	buf = appendTab(buf)
	buf = append(buf, res.Class.String()...)
	buf = appendTab(buf)
	if res.Reason == align.ReasonNone {
		buf = append(buf, '*')
	} else {
		buf = append(buf, res.Reason.String()...)
	}
	return buf
}

// appendSJ formats a collapsed splice junction, with 1-based intron positions.
func appendSJ(buf []byte, g *genome.Genome, sj *align.SJStat) []byte {
	chr := &g.Chrs[sj.Chr]
	buf = append(buf, chr.Name...)
	buf = appendTab(buf)
	buf = appendInt(buf, sj.Start-chr.Start+1)
	buf = appendTab(buf)
	buf = appendInt(buf, sj.End-chr.Start)
	buf = appendTab(buf)
	buf = append(buf, locusStrands[sj.Strand])
	buf = appendTab(buf)
	buf = append(buf, align.MotifNames[sj.Motif]...)
	buf = appendTab(buf)
	if sj.Annotated {
		buf = append(buf, '1')
	} else {
		buf = append(buf, '0')
	}
	buf = appendTab(buf)
	buf = appendInt(buf, sj.NUnique)
	buf = appendTab(buf)
	buf = appendInt(buf, sj.NMulti)
	buf = appendTab(buf)
	buf = appendInt(buf, sj.MaxOverhang)
	buf = append(buf, '\n')
	return buf
}

// appendChimeric formats a chimeric alignment, with 1-based positions.
func appendChimeric(buf []byte, g *genome.Genome, name []byte, res *align.Result) []byte {
	c := res.Chim
	if c == nil {
		return buf
	}
	buf = appendChimLocus(buf, g, &c.Donor)
	buf = appendTab(buf)
	buf = appendChimLocus(buf, g, &c.Acceptor)
	buf = appendTab(buf)
	buf = appendInt(buf, c.JunctionType)
	buf = appendTab(buf)
	buf = appendInt(buf, c.RepeatLeft)
	buf = appendTab(buf)
	buf = appendInt(buf, c.RepeatRight)
	buf = appendTab(buf)
	buf = append(buf, name...)
	for _, seg := range c.Seg {
		buf = appendTab(buf)
		buf = appendInt(buf, seg.GStart-g.Chrs[seg.Chr].Start+1)
		buf = appendTab(buf)
		buf = seg.AppendCIGAR(buf, res.ReadLength, res.NMates)
	}
	buf = append(buf, '\n')
	return buf
}

func appendChimLocus(buf []byte, g *genome.Genome, l *align.ChimericLocus) []byte {
	chr := &g.Chrs[l.Chr]
	buf = append(buf, chr.Name...)
	buf = appendTab(buf)
	buf = appendInt(buf, l.Pos-chr.Start+1)
	buf = appendTab(buf)
	buf = append(buf, locusStrands[l.Strand])
	return buf
}

// trimMateSuffix removes the "/1" or "/2" suffix of read names.
func trimMateSuffix(name []byte) []byte {
	if n := len(name); n > 2 && name[n-2] == '/' && (name[n-1] == '1' || name[n-1] == '2') {
		return name[:n-2]
	}
	return name
}
