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
	"math"
	"sort"

	"github.com/shenwei356/SpliceMap/splicemap/align"
	"gonum.org/v1/gonum/stat"
)

// readSummary is what the statistics need from the result of a read,
// which is only valid in the worker.
type readSummary struct {
	skipped  bool
	class    align.Class
	reason   align.Reason
	length   int
	chimeric bool

	// the first alignment of uniquely mapped reads
	mappedLen  int
	nMM        int
	nIns       int
	nInsBases  int
	nDel       int
	nDelBases  int
	nJuncMotif [7]int
	nJuncAnnot int
}

func (s *readSummary) set(res *align.Result) {
	*s = readSummary{
		skipped:  res.Status == align.StatusSkipped,
		class:    res.Class,
		reason:   res.Reason,
		length:   res.ReadLength[0] + res.ReadLength[1],
		chimeric: res.Chim != nil,
	}
	if res.Class != align.ClassUnique || len(res.Tr) == 0 {
		return
	}
	tr := res.Tr[0]
	s.mappedLen = tr.MappedLength()
	s.nMM = tr.NMM
	s.nIns, s.nInsBases = tr.NIns, tr.NInsBases
	s.nDel, s.nDelBases = tr.NDel, tr.NDelBases
	s.nJuncMotif = tr.NJuncMotif
	s.nJuncAnnot = tr.NJuncAnnot
}

// mappingStats accumulates summaries of reads.
type mappingStats struct {
	reads   int
	skipped int
	classes [4]int
	reasons [8]int

	chimeric int

	lengths       map[int]float64 // histogram of input lengths
	mappedLengths map[int]float64 // histogram of mapped lengths of unique reads

	mappedBases int
	nMM         int
	nIns        int
	nInsBases   int
	nDel        int
	nDelBases   int
	nJuncMotif  [7]int
	nJuncAnnot  int
}

func newMappingStats() *mappingStats {
	return &mappingStats{
		lengths:       make(map[int]float64, 128),
		mappedLengths: make(map[int]float64, 128),
	}
}

func (m *mappingStats) add(s *readSummary) {
	m.reads++
	if s.skipped {
		m.skipped++
	}
	m.lengths[s.length]++
	if int(s.class) < len(m.classes) {
		m.classes[s.class]++
	}
	if s.class == align.ClassUnmapped && int(s.reason) < len(m.reasons) {
		m.reasons[s.reason]++
	}
	if s.chimeric {
		m.chimeric++
	}
	if s.class != align.ClassUnique {
		return
	}

	m.mappedLengths[s.mappedLen]++
	m.mappedBases += s.mappedLen
	m.nMM += s.nMM
	m.nIns += s.nIns
	m.nInsBases += s.nInsBases
	m.nDel += s.nDel
	m.nDelBases += s.nDelBases
	for i, n := range s.nJuncMotif {
		m.nJuncMotif[i] += n
	}
	m.nJuncAnnot += s.nJuncAnnot
}

// FinalStats is the summary of an alignment run.
type FinalStats struct {
	InputReads         int     `toml:"input-reads" comment:"Input"`
	SkippedReads       int     `toml:"skipped-reads"`
	AverageInputLength float64 `toml:"average-input-length"`

	UniqueReads            int     `toml:"unique-reads" comment:"Uniquely mapped reads"`
	UniquePercent          float64 `toml:"unique-reads-percent"`
	AverageMappedLength    float64 `toml:"average-mapped-length"`
	StdevMappedLength      float64 `toml:"stdev-mapped-length"`
	Splices                int     `toml:"splices"`
	SplicesAnnotated       int     `toml:"splices-annotated"`
	SplicesGTAG            int     `toml:"splices-GT-AG"`
	SplicesGCAG            int     `toml:"splices-GC-AG"`
	SplicesATAC            int     `toml:"splices-AT-AC"`
	SplicesNonCanonical    int     `toml:"splices-non-canonical"`
	MismatchRate           float64 `toml:"mismatch-rate-percent"`
	DeletionRate           float64 `toml:"deletion-rate-percent"`
	DeletionAverageLength  float64 `toml:"deletion-average-length"`
	InsertionRate          float64 `toml:"insertion-rate-percent"`
	InsertionAverageLength float64 `toml:"insertion-average-length"`

	MultiReads          int     `toml:"multi-reads" comment:"Multi-mapped reads"`
	MultiPercent        float64 `toml:"multi-reads-percent"`
	TooManyLociReads    int     `toml:"too-many-loci-reads"`
	TooManyLociPercent  float64 `toml:"too-many-loci-reads-percent"`
	UnmappedMismatches  int     `toml:"unmapped-too-many-mismatches" comment:"Unmapped reads"`
	UnmappedMismatchPct float64 `toml:"unmapped-too-many-mismatches-percent"`
	UnmappedShort       int     `toml:"unmapped-too-short"`
	UnmappedShortPct    float64 `toml:"unmapped-too-short-percent"`
	UnmappedOther       int     `toml:"unmapped-other"`
	UnmappedOtherPct    float64 `toml:"unmapped-other-percent"`

	ChimericReads   int     `toml:"chimeric-reads" comment:"Chimeric reads"`
	ChimericPercent float64 `toml:"chimeric-reads-percent"`
}

func percent(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b) * 100
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// histMeanStdev returns the weighted mean and standard deviation of a histogram.
func histMeanStdev(hist map[int]float64) (float64, float64) {
	if len(hist) == 0 {
		return 0, 0
	}
	keys := make([]int, 0, len(hist))
	for k := range hist {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	x := make([]float64, len(keys))
	w := make([]float64, len(keys))
	var n float64
	for i, k := range keys {
		x[i] = float64(k)
		w[i] = hist[k]
		n += w[i]
	}
	mean, std := stat.MeanStdDev(x, w)
	if n <= 1 || math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

func (m *mappingStats) final() *FinalStats {
	s := &FinalStats{
		InputReads:   m.reads,
		SkippedReads: m.skipped,

		UniqueReads:      m.classes[align.ClassUnique],
		SplicesAnnotated: m.nJuncAnnot,
		SplicesGTAG:      m.nJuncMotif[1] + m.nJuncMotif[2],
		SplicesGCAG:      m.nJuncMotif[3] + m.nJuncMotif[4],
		SplicesATAC:      m.nJuncMotif[5] + m.nJuncMotif[6],

		SplicesNonCanonical: m.nJuncMotif[0],

		MultiReads:       m.classes[align.ClassMulti],
		TooManyLociReads: m.classes[align.ClassTooManyLoci],

		UnmappedMismatches: m.reasons[align.ReasonTooManyMismatches],
		UnmappedShort:      m.reasons[align.ReasonTooShort],

		ChimericReads: m.chimeric,
	}
	for _, n := range m.nJuncMotif {
		s.Splices += n
	}
	s.UnmappedOther = m.classes[align.ClassUnmapped] - s.UnmappedMismatches - s.UnmappedShort

	s.AverageInputLength, _ = histMeanStdev(m.lengths)
	s.AverageMappedLength, s.StdevMappedLength = histMeanStdev(m.mappedLengths)

	s.UniquePercent = percent(s.UniqueReads, m.reads)
	s.MultiPercent = percent(s.MultiReads, m.reads)
	s.TooManyLociPercent = percent(s.TooManyLociReads, m.reads)
	s.UnmappedMismatchPct = percent(s.UnmappedMismatches, m.reads)
	s.UnmappedShortPct = percent(s.UnmappedShort, m.reads)
	s.UnmappedOtherPct = percent(s.UnmappedOther, m.reads)
	s.ChimericPercent = percent(s.ChimericReads, m.reads)

	s.MismatchRate = percent(m.nMM, m.mappedBases)
	s.DeletionRate = percent(m.nDelBases, m.mappedBases)
	s.DeletionAverageLength = ratio(m.nDelBases, m.nDel)
	s.InsertionRate = percent(m.nInsBases, m.mappedBases)
	s.InsertionAverageLength = ratio(m.nInsBases, m.nIns)
	return s
}

func (s *FinalStats) log() {
	log.Infof("  input reads: %d, average length: %.2f", s.InputReads, s.AverageInputLength)
	if s.SkippedReads > 0 {
		log.Warningf("  skipped reads: %d", s.SkippedReads)
	}
	log.Infof("  uniquely mapped reads: %d (%.2f%%), mapped length: %.2f ± %.2f",
		s.UniqueReads, s.UniquePercent, s.AverageMappedLength, s.StdevMappedLength)
	log.Infof("    splices: %d, annotated: %d, GT/AG: %d, GC/AG: %d, AT/AC: %d, non-canonical: %d",
		s.Splices, s.SplicesAnnotated, s.SplicesGTAG, s.SplicesGCAG, s.SplicesATAC, s.SplicesNonCanonical)
	log.Infof("    mismatch rate per base: %.2f%%", s.MismatchRate)
	log.Infof("  multi-mapped reads: %d (%.2f%%), mapped to too many loci: %d (%.2f%%)",
		s.MultiReads, s.MultiPercent, s.TooManyLociReads, s.TooManyLociPercent)
	log.Infof("  unmapped reads: too many mismatches: %d (%.2f%%), too short: %d (%.2f%%), other: %d (%.2f%%)",
		s.UnmappedMismatches, s.UnmappedMismatchPct, s.UnmappedShort, s.UnmappedShortPct,
		s.UnmappedOther, s.UnmappedOtherPct)
	log.Infof("  chimeric reads: %d (%.2f%%)", s.ChimericReads, s.ChimericPercent)
}
