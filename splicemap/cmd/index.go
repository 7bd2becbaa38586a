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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/SpliceMap/splicemap/genome"
	"github.com/shenwei356/SpliceMap/splicemap/index"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Generate an index from reference FASTA/Q sequences",
	Long: `Generate an index from reference FASTA/Q sequences

Input:
  1. Input plain or gzipped FASTA/Q files can be given via positional
     arguments or the flag -X/--infile-list with the list of input files,
  2. Or a directory containing sequence files via the flag -I/--in-dir,
     with multiple-level sub-directories allowed. A regular expression
     for matching sequencing files is available via the flag -r/--file-regexp.

Attentions:
  1. Every sequence is saved as a chromosome, and sequence IDs in all
     input files should be distinct.
  2. Unwanted sequences like scaffolds could be filtered out by
     the name via regular expressions (-B/--seq-name-filter).
  3. Bases other than ACGTU are saved as N, k-mers with N are not indexed.
  4. Each chromosome starts at a multiple of 2^(--chr-bin-bits) in the
     concatenated genome. Smaller values save memory for genomes with
     a large number of short sequences, e.g., transcriptomes.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------
		// basic flags

		k := getFlagPositiveInt(cmd, "kmer")
		if k < 8 || k > 32 {
			checkError(fmt.Errorf("the value of flag -k/--kmer should be in range of [8, 32]"))
		}
		chrBinNbits := getFlagPositiveInt(cmd, "chr-bin-bits")
		if chrBinNbits > 32 {
			checkError(fmt.Errorf("the value of flag --chr-bin-bits should be in range of [1, 32]"))
		}

		outDir := expandPath(getFlagString(cmd, "out-dir"))
		force := getFlagBool(cmd, "force")
		skipFileCheck := getFlagBool(cmd, "skip-file-check")
		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir is needed"))
		}
		outDir = filepath.Clean(outDir)

		var err error

		inDir := expandPath(getFlagString(cmd, "in-dir"))
		if inDir != "" && filepath.Clean(inDir) == outDir {
			checkError(fmt.Errorf("intput and output paths should not be the same: %s", outDir))
		}

		readFromDir := inDir != ""
		if readFromDir {
			var isDir bool
			isDir, err = pathutil.IsDir(inDir)
			if err != nil {
				checkError(errors.Wrapf(err, "checking -I/--in-dir"))
			}
			if !isDir {
				checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
			}
		}

		reFileStr := getFlagString(cmd, "file-regexp")
		var reFile *regexp.Regexp
		if reFileStr != "" {
			if !reIgnoreCase.MatchString(reFileStr) {
				reFileStr = reIgnoreCaseStr + reFileStr
			}
			reFile, err = regexp.Compile(reFileStr)
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))
		}

		reSeqNameStrs := getFlagStringSlice(cmd, "seq-name-filter")
		reSeqNames, err := compileRegexps(reSeqNameStrs)
		checkError(err)

		// ---------------------------------------------------------------
		// input files

		if outputLog {
			log.Infof("SpliceMap v%s", VERSION)
			log.Info("  https://github.com/shenwei356/SpliceMap")
			log.Info()

			log.Info("checking input files ...")
		}

		var files []string
		if readFromDir {
			files, err = getFileListFromDir(inDir, reFile, opt.NumCPUs)
			if err != nil {
				checkError(errors.Wrapf(err, "walking dir: %s", inDir))
			}
			if len(files) == 0 {
				log.Warningf("  no files matching regular expression: %s", reFileStr)
			}
		} else {
			files = getFileListFromArgsAndFile(cmd, args, !skipFileCheck, "infile-list", !skipFileCheck)
			if outputLog {
				if len(files) == 1 && isStdin(files[0]) {
					log.Info("  no files given, reading from stdin")
				}
			}
		}
		if len(files) < 1 {
			checkError(fmt.Errorf("FASTA/Q files needed"))
		} else if outputLog {
			log.Infof("  %d input file(s) given", len(files))
		}

		if outputLog {
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Infof("  input directory: %s", inDir)
			log.Infof("    regular expression of input files: %s", reFileStr)
			log.Infof("    regular expressions for filtering out sequences: %s", reSeqNameStrs)
			log.Infof("  output directory: %s", outDir)
			log.Infof("  k-mer size: %d", k)
			log.Infof("  chromosome bin size: 2^%d", chrBinNbits)
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
		}

		// ---------------------------------------------------------------
		// reading sequences

		if outputLog {
			log.Info("reading sequences ...")
		}

		g, err := genome.New(uint8(chrBinNbits))
		checkError(err)

		var record *fastx.Record
		var nFiltered, nEmpty int
		for _, file := range files {
			fastxReader, err := fastx.NewReader(nil, file, "")
			checkError(errors.Wrap(err, file))

			for {
				record, err = fastxReader.Read()
				if err != nil {
					if err == io.EOF {
						break
					}
					checkError(errors.Wrap(err, file))
					break
				}

				if len(reSeqNames) > 0 && matchAny(reSeqNames, string(record.Name)) {
					nFiltered++
					continue
				}
				if len(record.Seq.Seq) == 0 {
					nEmpty++
					continue
				}

				checkError(errors.Wrap(g.AddChromosome(string(record.ID), record.Seq.Seq), file))
			}
			fastxReader.Close()
		}

		if g.NumChrs() == 0 {
			checkError(fmt.Errorf("no valid sequences found"))
		}
		if outputLog {
			log.Infof("  %s chromosomes with %s bases (%s in the concatenated genome)",
				humanize.Comma(int64(g.NumChrs())), humanize.Comma(int64(g.Bases())),
				humanize.Bytes(uint64(g.Len())))
			if nFiltered > 0 {
				log.Infof("  %d sequences filtered out by name", nFiltered)
			}
			if nEmpty > 0 {
				log.Warningf("  %d empty sequences ignored", nEmpty)
			}
			log.Info()
			log.Info("building index ...")
		}

		// ---------------------------------------------------------------
		// index

		var pbs *mpb.Progress
		var bar *mpb.Bar
		var progress func(iChr int)
		if opt.Verbose {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(g.NumChrs()),
				mpb.PrependDecorators(
					decor.Name("indexed chromosomes: ", decor.WC{W: len("indexed chromosomes: "), C: decor.DindentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 10),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)

			t0 := time.Now()
			progress = func(iChr int) {
				bar.EwmaIncrBy(1, time.Since(t0))
				t0 = time.Now()
			}
		}

		idx, err := index.Build(g, k, progress)
		if opt.Verbose {
			if err != nil {
				bar.Abort(true)
			}
			pbs.Wait()
		}
		checkError(errors.Wrap(err, "failed to build the index"))

		err = idx.WriteToPath(outDir, force)
		if errors.Is(err, index.ErrDirNotEmpty) {
			checkError(fmt.Errorf("output directory not empty: %s, use --force to overwrite", outDir))
		}
		checkError(errors.Wrap(err, "failed to save the index"))

		if outputLog {
			info := idx.Info()
			log.Info()
			log.Infof("finished building the index in %s: %s k-mers with %s positions",
				time.Since(timeStart), humanize.Comma(int64(info.Kmers)), humanize.Comma(int64(info.Positions)))
			log.Infof("index saved: %s", outDir)
		}
	},
}

func init() {
	RootCmd.AddCommand(indexCmd)

	// -----------------------------  input  -----------------------------

	indexCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	indexCmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing FASTA/Q files. Directory symlinks are followed.`))

	indexCmd.Flags().StringP("file-regexp", "r", `\.(f[aq](st[aq])?|fna)(.gz)?$`,
		formatFlagUsage(`Regular expression for matching sequence files in -I/--in-dir, case ignored.`))

	indexCmd.Flags().StringSliceP("seq-name-filter", "B", []string{},
		formatFlagUsage(`List of regular expressions for filtering out sequences by header/name, case ignored.`))

	indexCmd.Flags().BoolP("skip-file-check", "S", false,
		formatFlagUsage(`Skip input file checking when given files or a file list.`))

	// -----------------------------  output  -----------------------------

	indexCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory.`))

	indexCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existed output directory.`))

	// -----------------------------  index  -----------------------------

	indexCmd.Flags().IntP("kmer", "k", 28,
		formatFlagUsage(`K-mer size of the k-mer tree, in range of [8, 32]. Longer seeds are extended on the genome.`))

	indexCmd.Flags().IntP("chr-bin-bits", "", int(genome.DefaultChrBinNbits),
		formatFlagUsage(`log2 of the chromosome bin size.`))

	indexCmd.SetUsageTemplate(usageTemplate("[-k <k>] {[-I <seqs dir>] | <seq files> | -X <file list>} -O <out dir>"))
}
