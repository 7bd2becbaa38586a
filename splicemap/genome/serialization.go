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
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/SpliceMap/splicemap/util"
	"github.com/shenwei356/xopen"
	"github.com/zeebo/wyhash"
)

// TwoBitFile stores the 2bit-packed chromosomes.
const TwoBitFile = "genome.2bit"

// InfoFile stores the chromosome names, lengths, N runs and a checksum.
const InfoFile = "genome.toml"

// ErrChecksumMismatch means the restored sequence differs from the indexed one.
var ErrChecksumMismatch = errors.New("genome: checksum mismatch")

const checksumSeed = 1

type chrInfo struct {
	Name   string `toml:"name"`
	Length int    `toml:"length"`
	NRuns  []int  `toml:"n_runs,omitempty"` // start, end, start, end, ...
}

type genomeInfo struct {
	MainVersion  uint8     `toml:"main-version"`
	MinorVersion uint8     `toml:"minor-version"`
	ChrBinNbits  uint8     `toml:"chr-bin-nbits"`
	Bases        int       `toml:"bases"`
	Checksum     string    `toml:"checksum"`
	Chromosomes  []chrInfo `toml:"chromosomes"`
}

// Checksum returns the wyhash value of the whole genome sequence.
func (g *Genome) Checksum() uint64 {
	return wyhash.Hash(g.Seq, checksumSeed)
}

// WriteToPath saves the genome into an existing directory.
func (g *Genome) WriteToPath(dir string) error {
	w, err := newTwoBitWriter(filepath.Join(dir, TwoBitFile))
	if err != nil {
		return errors.Wrap(err, "create 2bit file")
	}

	info := genomeInfo{
		MainVersion:  MainVersion,
		MinorVersion: MinorVersion,
		ChrBinNbits:  g.ChrBinNbits,
		Bases:        g.Bases(),
		Checksum:     fmt.Sprintf("%016x", g.Checksum()),
		Chromosomes:  make([]chrInfo, 0, len(g.Chrs)),
	}
	for i := range g.Chrs {
		chr := &g.Chrs[i]
		if err = w.write(g.Seq[chr.Start:chr.End()]); err != nil {
			return errors.Wrapf(err, "write chromosome %s", chr.Name)
		}

		ci := chrInfo{Name: chr.Name, Length: chr.Length}
		for _, r := range chr.NRuns {
			ci.NRuns = append(ci.NRuns, r[0], r[1])
		}
		info.Chromosomes = append(info.Chromosomes, ci)
	}
	if err = w.close(); err != nil {
		return errors.Wrap(err, "close 2bit file")
	}

	data, err := toml.Marshal(&info)
	if err != nil {
		return errors.Wrap(err, "marshal genome info")
	}
	outfh, err := xopen.Wopen(filepath.Join(dir, InfoFile))
	if err != nil {
		return err
	}
	defer outfh.Close()
	_, err = outfh.Write(data)
	return err
}

// NewFromPath reads a genome saved by WriteToPath.
func NewFromPath(dir string) (*Genome, error) {
	data, err := os.ReadFile(filepath.Join(dir, InfoFile))
	if err != nil {
		return nil, errors.Wrap(err, "read genome info")
	}
	var info genomeInfo
	if err = toml.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(err, "parse genome info")
	}
	if info.MainVersion != MainVersion {
		return nil, ErrVersionMismatch
	}

	g, err := New(info.ChrBinNbits)
	if err != nil {
		return nil, err
	}
	g.Seq = make([]uint8, 0, info.Bases+len(info.Chromosomes)<<info.ChrBinNbits)

	err = readTwoBit(filepath.Join(dir, TwoBitFile), len(info.Chromosomes), func(i int, codes []uint8) error {
		ci := &info.Chromosomes[i]
		if len(codes) != ci.Length {
			return errors.Wrapf(ErrBrokenFile, "length of chromosome %s", ci.Name)
		}
		if len(ci.NRuns)&1 == 1 {
			return errors.Wrapf(ErrBrokenFile, "N runs of chromosome %s", ci.Name)
		}
		chr := Chromosome{Name: ci.Name, Start: len(g.Seq), Length: ci.Length}
		g.Seq = append(g.Seq, codes...)
		for j := 0; j < len(ci.NRuns); j += 2 {
			s, e := ci.NRuns[j], ci.NRuns[j+1]
			if s < 0 || e > ci.Length || s >= e {
				return errors.Wrapf(ErrBrokenFile, "N runs of chromosome %s", ci.Name)
			}
			chr.NRuns = append(chr.NRuns, [2]int{s, e})
			for p := chr.Start + s; p < chr.Start+e; p++ {
				g.Seq[p] = util.BaseN
			}
		}
		g.pad()
		g.addChr(chr)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if fmt.Sprintf("%016x", g.Checksum()) != info.Checksum {
		return nil, ErrChecksumMismatch
	}
	return g, nil
}
