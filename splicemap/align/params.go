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
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Params contains all parameters of the alignment engine.
// Names in TOML files follow the command-line options of STAR.
type Params struct {
	// ------------------ reads ------------------

	ReadMatesLengthMax          int     `toml:"readMatesLengthMax" comment:"Reads\nmaximum length of a read, mates summed"`
	ReadNameLengthMax           int     `toml:"readNameLengthMax" comment:"maximum length of read names"`
	ReadInvalidBasesMaxFraction float64 `toml:"readInvalidBasesMaxFraction" comment:"maximum fraction of bases other than ACGTN"`

	// ------------------ seeds ------------------

	SeedSearchStartLmax int `toml:"seedSearchStartLmax" comment:"Seeds\nseed search start positions are spaced by at most this length"`
	SeedSearchLmax      int `toml:"seedSearchLmax" comment:"maximum length of seeds, 0 for no limit"`
	SeedMultimapNmax    int `toml:"seedMultimapNmax" comment:"seeds with more loci are repetitive, their loci are not used"`
	SeedPerReadNmax     int `toml:"seedPerReadNmax" comment:"maximum number of seeds per read"`
	SeedPerWindowNmax   int `toml:"seedPerWindowNmax" comment:"maximum number of seeds per window"`
	SeedLociPerReadNmax int `toml:"seedLociPerReadNmax" comment:"maximum number of seed loci per read"`
	SeedMapMin          int `toml:"seedMapMin" comment:"minimum length of seeds"`
	SeedSplitMin        int `toml:"seedSplitMin" comment:"minimum length of read pieces split by Ns and mate spacers"`

	// ------------------ windows ------------------

	WinBinNbits                int `toml:"winBinNbits" comment:"Windows\nlog2 of the window bin size"`
	WinAnchorDistNbins         int `toml:"winAnchorDistNbins" comment:"maximum number of bins between two anchors of one window"`
	WinFlankNbins              int `toml:"winFlankNbins" comment:"number of bins to extend windows on each side"`
	WinAnchorMultimapNmax      int `toml:"winAnchorMultimapNmax" comment:"maximum number of loci of anchors"`
	WinAnchorLowComplexityLmax int `toml:"winAnchorLowComplexityLmax" comment:"low-complexity seeds not longer than this could not be anchors, 0 for disabling, <= 32"`
	AlignWindowsPerReadNmax    int `toml:"alignWindowsPerReadNmax" comment:"maximum number of windows per read"`

	AlignTranscriptsPerWindowNmax int `toml:"alignTranscriptsPerWindowNmax" comment:"maximum number of transcripts per window"`
	AlignTranscriptsPerReadNmax   int `toml:"alignTranscriptsPerReadNmax" comment:"maximum number of transcripts per read"`

	// ------------------ alignment ------------------

	AlignIntronMin       int    `toml:"alignIntronMin" comment:"Alignment\nminimum intron length, shorter gaps are deletions"`
	AlignIntronMax       int    `toml:"alignIntronMax" comment:"maximum intron length, 0 for (2^winBinNbits)*winAnchorDistNbins"`
	AlignMatesGapMax     int    `toml:"alignMatesGapMax" comment:"maximum gap between two mates, 0 for (2^winBinNbits)*winAnchorDistNbins"`
	AlignSJoverhangMin   int    `toml:"alignSJoverhangMin" comment:"minimum overhang of unannotated junctions"`
	AlignSJDBoverhangMin int    `toml:"alignSJDBoverhangMin" comment:"minimum overhang of annotated junctions"`
	AlignEndsType        string `toml:"alignEndsType" comment:"Local or EndToEnd"`
	AlignEndsProtrude    int    `toml:"alignEndsProtrude" comment:"maximum number of bases the start of mate 2 could protrude past the start of mate 1"`

	AlignSJstitchShiftMax int `toml:"alignSJstitchShiftMax" comment:"maximum number of bases a gap could be shifted into the flanking seeds, 0 for no limit"`

	// ------------------ scoring ------------------

	ScoreMatch                  int     `toml:"scoreMatch" comment:"Scoring\nscore of a matched base"`
	ScoreMismatch               int     `toml:"scoreMismatch" comment:"score of a mismatched base"`
	ScoreGap                    int     `toml:"scoreGap" comment:"junction penalty, independent of the motif"`
	ScoreGapNoncan              int     `toml:"scoreGapNoncan" comment:"non-canonical junction penalty, in addition to scoreGap"`
	ScoreGapGCAG                int     `toml:"scoreGapGCAG" comment:"GC/AG and CT/GC junction penalty, in addition to scoreGap"`
	ScoreGapATAC                int     `toml:"scoreGapATAC" comment:"AT/AC and GT/AT junction penalty, in addition to scoreGap"`
	ScoreDelOpen                int     `toml:"scoreDelOpen" comment:"deletion open penalty"`
	ScoreDelBase                int     `toml:"scoreDelBase" comment:"deletion extension penalty per base"`
	ScoreInsOpen                int     `toml:"scoreInsOpen" comment:"insertion open penalty"`
	ScoreInsBase                int     `toml:"scoreInsBase" comment:"insertion extension penalty per base"`
	ScoreGenomicLengthLog2scale float64 `toml:"scoreGenomicLengthLog2scale" comment:"extra score: scale*log2(genomic length)"`
	ScoreSJannotated            int     `toml:"scoreSJannotated" comment:"bonus of annotated junctions, no motif penalty is applied to them"`
	ScoreProperPair             int     `toml:"scoreProperPair" comment:"bonus of properly paired mates"`
	ScoreSingleMate             int     `toml:"scoreSingleMate" comment:"penalty of paired reads with only one mate aligned"`

	// ------------------ output filters ------------------

	OutFilterMultimapScoreRange    int     `toml:"outFilterMultimapScoreRange" comment:"Output filters\nscore range below the best score for multi-mapped alignments"`
	OutFilterMultimapNmax          int     `toml:"outFilterMultimapNmax" comment:"maximum number of loci, reads with more are mapped to too many loci"`
	OutFilterScoreMin              int     `toml:"outFilterScoreMin" comment:"minimum alignment score"`
	OutFilterScoreMinOverLread     float64 `toml:"outFilterScoreMinOverLread" comment:"minimum alignment score normalized to read length"`
	OutFilterMatchNmin             int     `toml:"outFilterMatchNmin" comment:"minimum number of matched bases"`
	OutFilterMatchNminOverLread    float64 `toml:"outFilterMatchNminOverLread" comment:"minimum number of matched bases normalized to read length"`
	OutFilterMismatchNmax          int     `toml:"outFilterMismatchNmax" comment:"maximum number of mismatches"`
	OutFilterMismatchNoverLmax     float64 `toml:"outFilterMismatchNoverLmax" comment:"maximum number of mismatches relative to the mapped length"`
	OutFilterMismatchNoverReadLmax float64 `toml:"outFilterMismatchNoverReadLmax" comment:"maximum number of mismatches relative to the read length"`
	OutFilterIntronMotifs          string  `toml:"outFilterIntronMotifs" comment:"None, RemoveNoncanonical or RemoveNoncanonicalUnannotated"`
	OutFilterIntronStrands         string  `toml:"outFilterIntronStrands" comment:"RemoveInconsistentStrands or None"`
	OutMultimapperOrder            string  `toml:"outMultimapperOrder" comment:"Old_2.4 or Random"`
	OutSAMprimaryFlag              string  `toml:"outSAMprimaryFlag" comment:"OneBestScore or AllBestScore"`

	// ------------------ chimeric alignments ------------------

	ChimSegmentMin           int  `toml:"chimSegmentMin" comment:"Chimeric alignments\nminimum length of chimeric segments, 0 for disabling chimeric detection"`
	ChimScoreMin             int  `toml:"chimScoreMin" comment:"minimum total score of the chimeric segments"`
	ChimScoreDropMax         int  `toml:"chimScoreDropMax" comment:"maximum difference between the read length and the chimeric score"`
	ChimScoreSeparation      int  `toml:"chimScoreSeparation" comment:"minimum difference between the best and the second best chimeric scores"`
	ChimScoreJunctionNonGTAG int  `toml:"chimScoreJunctionNonGTAG" comment:"penalty of non-GT/AG chimeric junctions"`
	ChimJunctionOverhangMin  int  `toml:"chimJunctionOverhangMin" comment:"minimum overhang of chimeric junctions"`
	ChimSegmentReadGapMax    int  `toml:"chimSegmentReadGapMax" comment:"maximum gap in the read sequence between chimeric segments"`
	ChimMainSegmentMultNmax  int  `toml:"chimMainSegmentMultNmax" comment:"maximum number of loci of the main segment"`
	ChimNonchimScoreDropMin  int  `toml:"chimNonchimScoreDropMin" comment:"minimum difference between the read length and the best non-chimeric score"`
	ChimOutWithUnique        bool `toml:"chimOutWithUnique" comment:"report chimeric alignments of reads uniquely mapped"`

	// ------------------ others ------------------

	RunRNGseed int64  `toml:"runRNGseed" comment:"Others\nseed of the random number generator"`
	GenomeType string `toml:"genomeType" comment:"Full or SuperTranscriptome"`

	// SJDB holds annotated junctions, optional for Full genomes.
	SJDB *SJDB `toml:"-"`

	// parsed from string options
	endsType      int
	intronMotifs  int
	intronStrands int
	multOrder     int
	primaryFlag   int
	genomeType    int
}

const (
	EndsLocal = iota
	EndsEndToEnd
)

const (
	IntronMotifsNone = iota
	IntronMotifsRemoveNoncanonical
	IntronMotifsRemoveNoncanonicalUnannotated
)

const (
	IntronStrandsRemoveInconsistent = iota
	IntronStrandsNone
)

const (
	MultimapperOrderOld = iota
	MultimapperOrderRandom
)

const (
	PrimaryOneBestScore = iota
	PrimaryAllBestScore
)

const (
	GenomeFull = iota
	GenomeSuperTranscriptome
)

// DefaultParams returns the default parameters.
func DefaultParams() *Params {
	return &Params{
		ReadMatesLengthMax:          650,
		ReadNameLengthMax:           1024,
		ReadInvalidBasesMaxFraction: 0.1,

		SeedSearchStartLmax: 50,
		SeedSearchLmax:      0,
		SeedMultimapNmax:    10000,
		SeedPerReadNmax:     1000,
		SeedPerWindowNmax:   50,
		SeedLociPerReadNmax: 100000,
		SeedMapMin:          5,
		SeedSplitMin:        12,

		WinBinNbits:                16,
		WinAnchorDistNbins:         9,
		WinFlankNbins:              4,
		WinAnchorMultimapNmax:      50,
		WinAnchorLowComplexityLmax: 12,
		AlignWindowsPerReadNmax:    10000,

		AlignTranscriptsPerWindowNmax: 100,
		AlignTranscriptsPerReadNmax:   10000,

		AlignIntronMin:       21,
		AlignIntronMax:       0,
		AlignMatesGapMax:     0,
		AlignSJoverhangMin:   5,
		AlignSJDBoverhangMin: 3,
		AlignEndsType:        "Local",
		AlignEndsProtrude:    0,

		AlignSJstitchShiftMax: 0,

		ScoreMatch:                  1,
		ScoreMismatch:               -1,
		ScoreGap:                    0,
		ScoreGapNoncan:              -8,
		ScoreGapGCAG:                -4,
		ScoreGapATAC:                -8,
		ScoreDelOpen:                -2,
		ScoreDelBase:                -2,
		ScoreInsOpen:                -2,
		ScoreInsBase:                -2,
		ScoreGenomicLengthLog2scale: -0.25,
		ScoreSJannotated:            2,
		ScoreProperPair:             0,
		ScoreSingleMate:             0,

		OutFilterMultimapScoreRange:    1,
		OutFilterMultimapNmax:          10,
		OutFilterScoreMin:              0,
		OutFilterScoreMinOverLread:     0.66,
		OutFilterMatchNmin:             0,
		OutFilterMatchNminOverLread:    0.66,
		OutFilterMismatchNmax:          10,
		OutFilterMismatchNoverLmax:     0.3,
		OutFilterMismatchNoverReadLmax: 1.0,
		OutFilterIntronMotifs:          "None",
		OutFilterIntronStrands:         "RemoveInconsistentStrands",
		OutMultimapperOrder:            "Old_2.4",
		OutSAMprimaryFlag:              "OneBestScore",

		ChimSegmentMin:           0,
		ChimScoreMin:             0,
		ChimScoreDropMax:         20,
		ChimScoreSeparation:      10,
		ChimScoreJunctionNonGTAG: -1,
		ChimJunctionOverhangMin:  20,
		ChimSegmentReadGapMax:    0,
		ChimMainSegmentMultNmax:  10,
		ChimNonchimScoreDropMin:  20,
		ChimOutWithUnique:        false,

		RunRNGseed: 777,
		GenomeType: "Full",
	}
}

// ErrInvalidParams means some parameters are invalid or inconsistent.
var ErrInvalidParams = errors.New("align: invalid parameters")

func invalid(format string, a ...interface{}) error {
	return errors.Wrap(ErrInvalidParams, fmt.Sprintf(format, a...))
}

// CheckParams checks the parameters and parses the string options.
// NewReadAlign calls it on a private copy, so engines never see
// options edited after construction.
func CheckParams(p *Params) error {
	if p.ReadMatesLengthMax < 1 {
		return invalid("readMatesLengthMax should be positive: %d", p.ReadMatesLengthMax)
	}
	if p.ReadNameLengthMax < 1 {
		return invalid("readNameLengthMax should be positive: %d", p.ReadNameLengthMax)
	}
	if p.ReadInvalidBasesMaxFraction < 0 || p.ReadInvalidBasesMaxFraction > 1 {
		return invalid("readInvalidBasesMaxFraction should be in range of [0, 1]: %f", p.ReadInvalidBasesMaxFraction)
	}

	if p.SeedSearchStartLmax < 1 {
		return invalid("seedSearchStartLmax should be positive: %d", p.SeedSearchStartLmax)
	}
	if p.SeedSearchLmax < 0 {
		return invalid("seedSearchLmax should not be negative: %d", p.SeedSearchLmax)
	}
	if p.SeedMultimapNmax < 1 || p.SeedPerReadNmax < 1 || p.SeedPerWindowNmax < 1 || p.SeedLociPerReadNmax < 1 {
		return invalid("seedMultimapNmax, seedPerReadNmax, seedPerWindowNmax and seedLociPerReadNmax should be positive")
	}
	if p.SeedMapMin < 1 {
		return invalid("seedMapMin should be positive: %d", p.SeedMapMin)
	}
	if p.SeedSplitMin < p.SeedMapMin {
		return invalid("seedSplitMin (%d) should not be smaller than seedMapMin (%d)", p.SeedSplitMin, p.SeedMapMin)
	}
	if p.SeedLociPerReadNmax < p.WinAnchorMultimapNmax {
		return invalid("seedLociPerReadNmax (%d) should not be smaller than winAnchorMultimapNmax (%d)",
			p.SeedLociPerReadNmax, p.WinAnchorMultimapNmax)
	}

	if p.WinBinNbits < 1 || p.WinBinNbits > 32 {
		return invalid("winBinNbits should be in range of [1, 32]: %d", p.WinBinNbits)
	}
	if p.WinAnchorDistNbins < 1 || p.WinFlankNbins < 0 {
		return invalid("winAnchorDistNbins should be positive, and winFlankNbins should not be negative")
	}
	if p.WinAnchorMultimapNmax < 1 {
		return invalid("winAnchorMultimapNmax should be positive: %d", p.WinAnchorMultimapNmax)
	}
	if p.WinAnchorMultimapNmax > p.SeedMultimapNmax {
		return invalid("winAnchorMultimapNmax (%d) should not be bigger than seedMultimapNmax (%d)",
			p.WinAnchorMultimapNmax, p.SeedMultimapNmax)
	}
	if p.WinAnchorLowComplexityLmax < 0 || p.WinAnchorLowComplexityLmax > 32 {
		return invalid("winAnchorLowComplexityLmax should be in range of [0, 32]: %d", p.WinAnchorLowComplexityLmax)
	}
	if p.AlignWindowsPerReadNmax < 1 {
		return invalid("alignWindowsPerReadNmax should be positive: %d", p.AlignWindowsPerReadNmax)
	}
	if p.AlignTranscriptsPerWindowNmax < 1 || p.AlignTranscriptsPerReadNmax < 1 {
		return invalid("alignTranscriptsPerWindowNmax and alignTranscriptsPerReadNmax should be positive")
	}
	if p.AlignTranscriptsPerReadNmax < p.AlignTranscriptsPerWindowNmax {
		return invalid("alignTranscriptsPerReadNmax (%d) should not be smaller than alignTranscriptsPerWindowNmax (%d)",
			p.AlignTranscriptsPerReadNmax, p.AlignTranscriptsPerWindowNmax)
	}
	if p.OutFilterMultimapNmax < 1 {
		return invalid("outFilterMultimapNmax should be positive: %d", p.OutFilterMultimapNmax)
	}
	if p.AlignTranscriptsPerReadNmax < p.OutFilterMultimapNmax {
		return invalid("alignTranscriptsPerReadNmax (%d) should not be smaller than outFilterMultimapNmax (%d)",
			p.AlignTranscriptsPerReadNmax, p.OutFilterMultimapNmax)
	}

	if p.AlignIntronMin < 1 {
		return invalid("alignIntronMin should be positive: %d", p.AlignIntronMin)
	}
	if p.AlignIntronMax < 0 || p.AlignMatesGapMax < 0 {
		return invalid("alignIntronMax and alignMatesGapMax should not be negative")
	}
	if p.AlignIntronMax > 0 && p.AlignIntronMax < p.AlignIntronMin {
		return invalid("alignIntronMax (%d) should not be smaller than alignIntronMin (%d)", p.AlignIntronMax, p.AlignIntronMin)
	}
	if p.AlignSJoverhangMin < 1 || p.AlignSJDBoverhangMin < 1 {
		return invalid("alignSJoverhangMin and alignSJDBoverhangMin should be positive")
	}
	if p.AlignEndsProtrude < 0 {
		return invalid("alignEndsProtrude should not be negative: %d", p.AlignEndsProtrude)
	}

	if p.ScoreMatch < 1 {
		return invalid("scoreMatch should be positive: %d", p.ScoreMatch)
	}
	if p.ScoreMismatch > 0 || p.ScoreGapNoncan > 0 || p.ScoreGapGCAG > 0 || p.ScoreGapATAC > 0 ||
		p.ScoreDelOpen > 0 || p.ScoreDelBase > 0 || p.ScoreInsOpen > 0 || p.ScoreInsBase > 0 {
		return invalid("mismatch, junction motif and indel scores should not be positive")
	}
	if p.ScoreGenomicLengthLog2scale > 0 {
		return invalid("scoreGenomicLengthLog2scale should not be positive: %f", p.ScoreGenomicLengthLog2scale)
	}

	if p.OutFilterMultimapScoreRange < 0 {
		return invalid("outFilterMultimapScoreRange should not be negative: %d", p.OutFilterMultimapScoreRange)
	}
	if p.OutFilterScoreMinOverLread < 0 || p.OutFilterMatchNminOverLread < 0 ||
		p.OutFilterMismatchNoverLmax < 0 || p.OutFilterMismatchNoverReadLmax < 0 {
		return invalid("relative output filters should not be negative")
	}
	if p.OutFilterMismatchNmax < 0 {
		return invalid("outFilterMismatchNmax should not be negative: %d", p.OutFilterMismatchNmax)
	}

	if p.ChimSegmentMin < 0 || p.ChimJunctionOverhangMin < 0 || p.ChimSegmentReadGapMax < 0 {
		return invalid("chimSegmentMin, chimJunctionOverhangMin and chimSegmentReadGapMax should not be negative")
	}
	if p.ChimMainSegmentMultNmax < 1 {
		return invalid("chimMainSegmentMultNmax should be positive: %d", p.ChimMainSegmentMultNmax)
	}

	var ok bool
	if p.endsType, ok = parseOption(p.AlignEndsType, "Local", "EndToEnd"); !ok {
		return invalid("alignEndsType should be Local or EndToEnd: %s", p.AlignEndsType)
	}
	if p.intronMotifs, ok = parseOption(p.OutFilterIntronMotifs,
		"None", "RemoveNoncanonical", "RemoveNoncanonicalUnannotated"); !ok {
		return invalid("outFilterIntronMotifs should be None, RemoveNoncanonical or RemoveNoncanonicalUnannotated: %s",
			p.OutFilterIntronMotifs)
	}
	if p.intronStrands, ok = parseOption(p.OutFilterIntronStrands, "RemoveInconsistentStrands", "None"); !ok {
		return invalid("outFilterIntronStrands should be RemoveInconsistentStrands or None: %s", p.OutFilterIntronStrands)
	}
	if p.multOrder, ok = parseOption(p.OutMultimapperOrder, "Old_2.4", "Random"); !ok {
		return invalid("outMultimapperOrder should be Old_2.4 or Random: %s", p.OutMultimapperOrder)
	}
	if p.primaryFlag, ok = parseOption(p.OutSAMprimaryFlag, "OneBestScore", "AllBestScore"); !ok {
		return invalid("outSAMprimaryFlag should be OneBestScore or AllBestScore: %s", p.OutSAMprimaryFlag)
	}
	if p.genomeType, ok = parseOption(p.GenomeType, "Full", "SuperTranscriptome"); !ok {
		return invalid("genomeType should be Full or SuperTranscriptome: %s", p.GenomeType)
	}

	if p.AlignSJstitchShiftMax < 0 {
		return invalid("alignSJstitchShiftMax should not be negative: %d", p.AlignSJstitchShiftMax)
	}
	if p.genomeType == GenomeSuperTranscriptome && p.SJDB == nil {
		return invalid("annotated junctions are needed for genomeType SuperTranscriptome")
	}

	return nil
}

func parseOption(v string, options ...string) (int, bool) {
	for i, o := range options {
		if v == o {
			return i, true
		}
	}
	return -1, false
}

// PerfectScore returns the score of a perfect match of l bases, as a single block.
func (p *Params) PerfectScore(l int) int {
	return l*p.ScoreMatch + genomicLengthScore(p.ScoreGenomicLengthLog2scale, l)
}

// ReadParams reads parameters from a TOML file. Options missing in the file keep default values.
func ReadParams(file string) (*Params, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read parameter file")
	}
	p := DefaultParams()
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err = d.Decode(p); err != nil {
		return nil, errors.Wrapf(err, "parse parameter file: %s", file)
	}
	return p, nil
}

// MarshalTOML returns the parameters in TOML format.
func (p *Params) MarshalTOML() ([]byte, error) {
	return toml.Marshal(p)
}
