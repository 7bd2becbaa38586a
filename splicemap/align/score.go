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

import "math"

// Scorer computes alignment scores from parameters.
type Scorer struct {
	p *Params
}

// NewScorer returns a Scorer.
func NewScorer(p *Params) *Scorer {
	return &Scorer{p: p}
}

// Match returns the score of n matched bases.
func (s *Scorer) Match(n int) int { return n * s.p.ScoreMatch }

// Mismatch returns the score of n mismatched bases.
func (s *Scorer) Mismatch(n int) int { return n * s.p.ScoreMismatch }

// Deletion returns the score of a deletion.
func (s *Scorer) Deletion(l int) int { return s.p.ScoreDelOpen + l*s.p.ScoreDelBase }

// Insertion returns the score of an insertion.
func (s *Scorer) Insertion(l int) int { return s.p.ScoreInsOpen + l*s.p.ScoreInsBase }

// Junction returns the score of a splice junction.
// Annotated junctions get a bonus instead of the motif penalty.
func (s *Scorer) Junction(motif uint8, annotated bool) int {
	if annotated {
		return s.p.ScoreGap + s.p.ScoreSJannotated
	}
	switch motif {
	case MotifGTAG, MotifCTAC:
		return s.p.ScoreGap
	case MotifGCAG, MotifCTGC:
		return s.p.ScoreGap + s.p.ScoreGapGCAG
	case MotifATAC, MotifGTAT:
		return s.p.ScoreGap + s.p.ScoreGapATAC
	default:
		return s.p.ScoreGap + s.p.ScoreGapNoncan
	}
}

// GenomicLength returns the score of the genomic span, which is not positive.
func (s *Scorer) GenomicLength(span int) int {
	return genomicLengthScore(s.p.ScoreGenomicLengthLog2scale, span)
}

func genomicLengthScore(scale float64, span int) int {
	if scale == 0 || span <= 1 {
		return 0
	}
	return min(0, int(math.Ceil(math.Log2(float64(span))*scale-0.5)))
}

// Pairing returns the bonus or penalty of mate pairing of paired-end reads.
func (s *Scorer) Pairing(tr *Transcript, nMates int) int {
	if nMates < 2 {
		return 0
	}
	if tr.Mates == 3 {
		return s.p.ScoreProperPair
	}
	return s.p.ScoreSingleMate
}

// Score recomputes the full score of a transcript from its statistics and gaps.
func (s *Scorer) Score(tr *Transcript, nMates int) int {
	score := s.Match(tr.NMatch) + s.Mismatch(tr.NMM)
	var gap *Gap
	for i := 0; i < tr.NExons-1; i++ {
		gap = &tr.Gaps[i]
		switch gap.Kind {
		case GapInsertion:
			score += s.Insertion(gap.Len)
		case GapDeletion:
			score += s.Deletion(gap.Len)
		case GapSplice:
			score += s.Junction(gap.Motif, gap.Annotated)
		}
	}
	score += s.GenomicLength(tr.GEnd - tr.GStart)
	score += s.Pairing(tr, nMates)
	return score
}

// baseScore returns the score of aligning read base a to genome base b.
// Ns score 0.
func (s *Scorer) baseScore(a, b uint8) int {
	if a > 3 || b > 3 {
		return 0
	}
	if a == b {
		return s.p.ScoreMatch
	}
	return s.p.ScoreMismatch
}
