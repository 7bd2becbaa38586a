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

package index

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/SpliceMap/splicemap/genome"
	"github.com/shenwei356/SpliceMap/splicemap/tree"
	"github.com/shenwei356/util/pathutil"
)

// MainVersion is use for checking compatibility
var MainVersion uint8 = 0

// MinorVersion is less important
var MinorVersion uint8 = 1

// ErrVersionMismatch means version mismatch between files and program.
var ErrVersionMismatch = errors.New("index: version mismatch")

// ErrDirNotEmpty means the output directory is not empty.
var ErrDirNotEmpty = errors.New("index: output directory not empty")

// ErrPWDAsOutDir means the current directory is used as the output directory.
var ErrPWDAsOutDir = errors.New("index: current directory cant't be the output dir")

// ErrInvalidIndexDir means the path is not a valid index directory.
var ErrInvalidIndexDir = errors.New("index: invalid index directory")

// InfoFile contains some summary infomation.
const InfoFile = "info.toml"

// TreeFile stores the k-mer tree.
const TreeFile = "kmers.tree"

// Info is the summary information of an index.
type Info struct {
	MainVersion  uint8  `toml:"main-version" comment:"Index format"`
	MinorVersion uint8  `toml:"minor-version"`
	K            uint8  `toml:"k" comment:"K-mer size"`
	Chromosomes  int    `toml:"chromosomes" comment:"Reference"`
	Bases        int    `toml:"bases"`
	Kmers        int    `toml:"kmers"`
	Positions    int    `toml:"positions"`
	Created      string `toml:"created"`
}

// Info returns the summary information.
func (idx *Index) Info() Info {
	return Info{
		MainVersion:  MainVersion,
		MinorVersion: MinorVersion,
		K:            idx.k,
		Chromosomes:  idx.genome.NumChrs(),
		Bases:        idx.genome.Bases(),
		Kmers:        idx.tree.NumLeafNodes(),
		Positions:    idx.tree.NumValues(),
	}
}

// WriteToPath writes an index to a directory.
//
// Files:
//
//	info.toml, summary
//	genome.2bit, genome.toml, reference sequences
//	kmers.tree, k-mer tree
func (idx *Index) WriteToPath(outDir string, overwrite bool) error {
	pwd, _ := os.Getwd()
	if outDir == "./" || outDir == "." || pwd == filepath.Clean(outDir) {
		return ErrPWDAsOutDir
	}

	existed, err := pathutil.DirExists(outDir)
	if err != nil {
		return err
	}
	if existed {
		empty, err := pathutil.IsEmpty(outDir)
		if err != nil {
			return err
		}
		if !empty {
			if !overwrite {
				return ErrDirNotEmpty
			}
			if err = os.RemoveAll(outDir); err != nil {
				return err
			}
		}
	}
	if err = os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	if err = idx.genome.WriteToPath(outDir); err != nil {
		return errors.Wrap(err, "write genome")
	}

	if _, err = idx.tree.WriteToFile(filepath.Join(outDir, TreeFile)); err != nil {
		return errors.Wrap(err, "write k-mer tree")
	}

	info := idx.Info()
	info.Created = time.Now().Format(time.RFC3339)
	data, err := toml.Marshal(&info)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, InfoFile), data, 0644)
}

// ReadInfo reads the summary information of an index directory.
func ReadInfo(dir string) (Info, error) {
	var info Info
	data, err := os.ReadFile(filepath.Join(dir, InfoFile))
	if err != nil {
		return info, errors.Wrap(ErrInvalidIndexDir, err.Error())
	}
	if err = toml.Unmarshal(data, &info); err != nil {
		return info, errors.Wrap(err, "parse index info")
	}
	if info.MainVersion != MainVersion {
		return info, ErrVersionMismatch
	}
	return info, nil
}

// NewFromPath reads an index from a directory.
func NewFromPath(dir string) (*Index, error) {
	ok, err := pathutil.DirExists(dir)
	if err != nil || !ok {
		return nil, ErrInvalidIndexDir
	}

	info, err := ReadInfo(dir)
	if err != nil {
		return nil, err
	}

	g, err := genome.NewFromPath(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read genome")
	}

	t, err := tree.NewFromFile(filepath.Join(dir, TreeFile))
	if err != nil {
		return nil, errors.Wrap(err, "read k-mer tree")
	}
	if t.K() != int(info.K) {
		return nil, errors.Wrapf(ErrInvalidIndexDir, "k-mer size mismatch: %d != %d", t.K(), info.K)
	}

	return &Index{k: info.K, genome: g, tree: t}, nil
}
