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
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/shenwei356/SpliceMap/splicemap/align"
	"github.com/shenwei356/SpliceMap/splicemap/index"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Align RNA-seq reads to an index",
	Long: `Align RNA-seq reads to an index

Input:
  1. Reads in plain or gzipped FASTA/Q files are given via positional
     arguments or the flag -X/--infile-list, or from stdin.
  2. For paired-end reads (-P/--paired), files are given in pairs:
     read1_1.fq.gz read1_2.fq.gz read2_1.fq.gz read2_2.fq.gz ...
     Mates in the two files should be in the same order.

Parameters:
  1. Default alignment parameters are printed by "splicemap params",
     a modified file could be given via -p/--params.
  2. Some frequently used parameters are also available as flags,
     which override values in the parameter file.
  3. Annotated junctions (--sjdb) are given in a tab-delimited file with
     at least 3 columns: chromosome, the first and the last bases of
     the intron (1-based), and an optional strand (+, - or .).
     They are needed for the genome type SuperTranscriptome, where
     every chromosome is a super-transcript.

Output files in the output directory:
  Aligned.tsv.gz    Alignments, the order of reads is kept.
  SJ.tsv            Collapsed splice junctions of mapped reads.
  Chimeric.tsv      Chimeric junctions (-c/--chim-segment-min > 0).
  Log.final.toml    Mapping statistics.
  Params.toml       Parameters used.

Columns of Aligned.tsv.gz:
  1.  read,        Read name.
  2.  mates,       Number of mates.
  3.  length,      Read length, mates summed.
  4.  class,       unique, multi, too-many-loci or unmapped.
  5.  reason,      Why the read is not mapped.
  6.  loci,        Number of loci.
  7.  hit,         Index of the alignment.
  8.  primary,     Whether it is the primary alignment.
  9.  chr,         Chromosome.
  10. start,       Start position (1-based).
  11. end,         End position (1-based).
  12. strand,      Strand of the read.
  13. score,       Alignment score.
  14. mapq,        Mapping quality, 255 for unique reads.
  15. cigar,       CIGAR in the forward strand; for paired-end reads,
                   the genome gap between mates is written as "p".
  16. mismatches,  Number of mismatches.
  17. junctions,   Number of splice junctions.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		verbose := opt.Verbose
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

		var err error

		// ---------------------------------------------------------------
		// flags

		dbDir := expandPath(getFlagString(cmd, "index"))
		if dbDir == "" {
			checkError(fmt.Errorf("flag -d/--index needed"))
		}
		outDir := expandPath(getFlagString(cmd, "out-dir"))
		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir needed"))
		}
		outDir = filepath.Clean(outDir)
		force := getFlagBool(cmd, "force")
		paired := getFlagBool(cmd, "paired")
		outUnmapped := getFlagBool(cmd, "out-unmapped")
		paramsFile := expandPath(getFlagString(cmd, "params"))
		sjdbFile := expandPath(getFlagString(cmd, "sjdb"))
		pprof := getFlagString(cmd, "pprof")
		if pprof != "" && pprof != "cpu" && pprof != "mem" {
			checkError(fmt.Errorf("the value of flag --pprof should be cpu or mem"))
		}

		var p *align.Params
		if paramsFile != "" {
			p, err = align.ReadParams(paramsFile)
			checkError(err)
		} else {
			p = align.DefaultParams()
		}
		overrideParams(cmd, p)

		// ---------------------------------------------------------------
		// input files

		if outputLog {
			log.Infof("SpliceMap v%s", VERSION)
			log.Info("  https://github.com/shenwei356/SpliceMap")
			log.Info()
			log.Info("checking input files ...")
		}

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		if paired {
			if len(files)%2 != 0 {
				checkError(fmt.Errorf("files of paired-end reads should be given in pairs, %d given", len(files)))
			}
			for _, file := range files {
				if isStdin(file) {
					checkError(fmt.Errorf("stdin is not supported for paired-end reads"))
				}
			}
		}

		if outputLog {
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("  no files given, reading from stdin")
			} else if paired {
				log.Infof("  %d pair(s) of input files given", len(files)/2)
			} else {
				log.Infof("  %d input file(s) given", len(files))
			}
		}

		// ---------------------------------------------------------------
		// index

		if outputLog {
			log.Info()
			log.Infof("loading index: %s", dbDir)
		}

		idx, err := index.NewFromPath(dbDir)
		checkError(errors.Wrapf(err, "loading index: %s", dbDir))
		g := idx.Genome()

		if outputLog {
			log.Infof("  index loaded in %s: %s chromosomes, %s bases, k=%d",
				time.Since(timeStart), humanize.Comma(int64(g.NumChrs())),
				humanize.Comma(int64(g.Bases())), idx.K())
		}

		if sjdbFile != "" {
			p.SJDB, err = align.ReadSJDB(sjdbFile, g)
			checkError(err)
			if outputLog {
				log.Infof("  %s annotated junctions loaded from %s", humanize.Comma(int64(p.SJDB.Len())), sjdbFile)
			}
		}
		checkError(align.CheckParams(p))

		if outputLog {
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Infof("  genome type: %s", p.GenomeType)
			log.Infof("  ends type: %s", p.AlignEndsType)
			log.Infof("  intron length: [%d, %d] (0 for auto)", p.AlignIntronMin, p.AlignIntronMax)
			log.Infof("  maximum number of loci: %d, score range: %d", p.OutFilterMultimapNmax, p.OutFilterMultimapScoreRange)
			log.Infof("  minimum chimeric segment length: %d (0 for disabling chimeric detection)", p.ChimSegmentMin)
			log.Infof("  random seed: %d", p.RunRNGseed)
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
		}

		// ---------------------------------------------------------------
		// output

		makeOutDir(outDir, force, "output directory", outputLog)

		if pprof == "cpu" {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(outDir), profile.Quiet).Stop()
		} else if pprof == "mem" {
			defer profile.Start(profile.MemProfile, profile.ProfilePath(outDir), profile.Quiet).Stop()
		}

		data, err := p.MarshalTOML()
		checkError(err)
		checkError(os.WriteFile(filepath.Join(outDir, fileParams), data, 0644))

		outFile := filepath.Join(outDir, fileAlignments)
		outfh, gw, w, err := outStream(outFile, isGzipped(outFile), opt.CompressionLevel)
		checkError(err)
		defer func() {
			checkError(errors.Wrap(outfh.Flush(), outFile))
			if gw != nil {
				checkError(errors.Wrap(gw.Close(), outFile))
			}
			checkError(errors.Wrap(w.Close(), outFile))
		}()

		var chimfh *bufioWriter
		if p.ChimSegmentMin > 0 {
			chimfh, err = newBufioWriter(filepath.Join(outDir, fileChimeric), opt.CompressionLevel)
			checkError(err)
			defer func() {
				checkError(errors.Wrap(chimfh.close(), fileChimeric))
			}()
			chimfh.WriteString(chimHeader)
		}

		outfh.WriteString(alignHeader)

		if outputLog {
			log.Info("aligning ...")
		}

		// ---------------------------------------------------------------
		// workers, each owns an engine

		workers := make(chan *worker, opt.NumCPUs)
		allWorkers := make([]*worker, opt.NumCPUs)
		for i := 0; i < opt.NumCPUs; i++ {
			ra, err := align.NewReadAlign(p, idx, i)
			checkError(err)
			allWorkers[i] = &worker{ra: ra, sj: align.NewSJCollector()}
			workers <- allWorkers[i]
		}

		timeStart1 := time.Now()
		stats := newMappingStats()
		var speed float64
		rw := &resultWriter{aln: outfh}
		if chimfh != nil {
			rw.chim = chimfh
		}

		output := func(t *readTask) {
			stats.add(&t.summary)
			rw.write(t)

			if verbose {
				total := stats.reads
				if (total < 4096 && total&63 == 0) || total&4095 == 0 {
					speed = float64(total) / 1000000 / time.Since(timeStart1).Minutes()
					fmt.Fprintf(os.Stderr, "processed reads: %d, speed: %.3f million reads per minute\r", total, speed)
				}
			}
			poolReadTask.Put(t)
		}

		// outputter, keeping the order of reads
		ch := make(chan *readTask, opt.NumCPUs)
		done := make(chan int)
		go func() {
			var next uint64
			buf := make(map[uint64]*readTask, 128)
			var t1 *readTask
			var ok bool
			for t := range ch {
				if t.id != next {
					buf[t.id] = t
					continue
				}
				output(t)
				next++

				for {
					if t1, ok = buf[next]; !ok {
						break
					}
					delete(buf, next)
					output(t1)
					next++
				}
			}
			done <- 1
		}()

		var wg sync.WaitGroup
		var id uint64
		dispatch := func(t *readTask) {
			t.id = id
			id++

			wk := <-workers
			wg.Add(1)
			go func(wk *worker, t *readTask) {
				defer func() {
					workers <- wk
					wg.Done()
				}()

				wk.align(t, outUnmapped)
				ch <- t
			}(wk, t)
		}

		if paired {
			for i := 0; i < len(files); i += 2 {
				checkError(readPairs(files[i], files[i+1], dispatch))
			}
		} else {
			for _, file := range files {
				checkError(readSingles(file, dispatch))
			}
		}
		wg.Wait()
		close(ch)
		<-done
		checkError(errors.Wrap(rw.err, "writing alignments"))

		// ---------------------------------------------------------------
		// junctions and statistics

		sjs := allWorkers[0].sj
		for _, wk := range allWorkers[1:] {
			sjs.Merge(wk.sj)
		}
		sjfh, err := newBufioWriter(filepath.Join(outDir, fileSJ), opt.CompressionLevel)
		checkError(err)
		sjfh.WriteString(sjHeader)
		var line []byte
		for _, sj := range sjs.Sorted() {
			line = appendSJ(line[:0], g, sj)
			if _, err = sjfh.Write(line); err != nil {
				checkError(errors.Wrap(err, fileSJ))
			}
		}
		checkError(sjfh.close())

		final := stats.final()
		data, err = toml.Marshal(final)
		checkError(err)
		checkError(os.WriteFile(filepath.Join(outDir, fileStats), data, 0644))

		if outputLog {
			if verbose {
				fmt.Fprintf(os.Stderr, "\n")
			}
			speed = float64(stats.reads) / 1000000 / time.Since(timeStart1).Minutes()
			log.Info()
			log.Infof("processed reads: %d, speed: %.3f million reads per minute", stats.reads, speed)
			final.log()
			log.Infof("  splice junctions: %s", humanize.Comma(int64(sjs.Len())))
			log.Info()
			log.Infof("results saved to: %s", outDir)
		}
	},
}

func init() {
	RootCmd.AddCommand(alignCmd)

	// -----------------------------  input  -----------------------------

	alignCmd.Flags().StringP("index", "d", "",
		formatFlagUsage(`Index directory created by "splicemap index".`))

	alignCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file list (one file per line). If given, they are appended to files from CLI arguments.`))

	alignCmd.Flags().BoolP("paired", "P", false,
		formatFlagUsage(`Input files are paired-end reads, given in pairs.`))

	alignCmd.Flags().StringP("sjdb", "", "",
		formatFlagUsage(`Tab-delimited file of annotated junctions: chr, intron start, intron end (1-based), strand.`))

	alignCmd.Flags().StringP("params", "p", "",
		formatFlagUsage(`Parameter file in TOML format, see "splicemap params".`))

	// -----------------------------  output  -----------------------------

	alignCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory.`))

	alignCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existed output directory.`))

	alignCmd.Flags().BoolP("out-unmapped", "u", false,
		formatFlagUsage(`Also write unmapped reads into the alignment file.`))

	// -----------------------------  parameters  -----------------------------

	alignCmd.Flags().StringP("genome-type", "", "Full",
		formatFlagUsage(`Genome type: Full, or SuperTranscriptome (annotated junctions needed).`))

	alignCmd.Flags().StringP("ends-type", "", "Local",
		formatFlagUsage(`Alignment type of read ends: Local or EndToEnd.`))

	alignCmd.Flags().IntP("intron-min", "", 21,
		formatFlagUsage(`Minimum intron length, shorter gaps are deletions.`))

	alignCmd.Flags().IntP("intron-max", "", 0,
		formatFlagUsage(`Maximum intron length, 0 for the window size.`))

	alignCmd.Flags().IntP("mates-gap-max", "", 0,
		formatFlagUsage(`Maximum genome gap between mates, 0 for the window size.`))

	alignCmd.Flags().IntP("multimap-nmax", "m", 10,
		formatFlagUsage(`Maximum number of loci, reads with more are reported as too-many-loci.`))

	alignCmd.Flags().IntP("score-range", "", 1,
		formatFlagUsage(`Score range below the best score for multi-mapped alignments.`))

	alignCmd.Flags().IntP("mismatch-nmax", "", 10,
		formatFlagUsage(`Maximum number of mismatches.`))

	alignCmd.Flags().StringP("intron-motifs", "", "None",
		formatFlagUsage(`Filter of junction motifs: None, RemoveNoncanonical or RemoveNoncanonicalUnannotated.`))

	alignCmd.Flags().StringP("multimapper-order", "", "Old_2.4",
		formatFlagUsage(`Order of multi-mapped alignments: Old_2.4 or Random.`))

	alignCmd.Flags().BoolP("all-best-primary", "", false,
		formatFlagUsage(`Mark all alignments with the best score as primary.`))

	alignCmd.Flags().IntP("chim-segment-min", "c", 0,
		formatFlagUsage(`Minimum length of chimeric segments, 0 for disabling chimeric detection.`))

	alignCmd.Flags().IntP("chim-score-min", "", 0,
		formatFlagUsage(`Minimum total score of chimeric segments.`))

	alignCmd.Flags().Int64P("seed", "s", 777,
		formatFlagUsage(`Seed of the random number generator.`))

	// -----------------------------  others  -----------------------------

	alignCmd.Flags().StringP("pprof", "", "",
		formatFlagUsage(`Save a cpu or mem profile in the output directory.`))

	alignCmd.SetUsageTemplate(usageTemplate("-d <index> [-p <params.toml>] {<reads.fq.gz ...> | -P <r1.fq.gz> <r2.fq.gz>} -O <out dir>"))
}

// overrideParams sets parameters from flags given in the command line.
func overrideParams(cmd *cobra.Command, p *align.Params) {
	changed := cmd.Flags().Changed

	if changed("genome-type") {
		p.GenomeType = getFlagString(cmd, "genome-type")
	}
	if changed("ends-type") {
		p.AlignEndsType = getFlagString(cmd, "ends-type")
	}
	if changed("intron-min") {
		p.AlignIntronMin = getFlagPositiveInt(cmd, "intron-min")
	}
	if changed("intron-max") {
		p.AlignIntronMax = getFlagNonNegativeInt(cmd, "intron-max")
	}
	if changed("mates-gap-max") {
		p.AlignMatesGapMax = getFlagNonNegativeInt(cmd, "mates-gap-max")
	}
	if changed("multimap-nmax") {
		p.OutFilterMultimapNmax = getFlagPositiveInt(cmd, "multimap-nmax")
	}
	if changed("score-range") {
		p.OutFilterMultimapScoreRange = getFlagNonNegativeInt(cmd, "score-range")
	}
	if changed("mismatch-nmax") {
		p.OutFilterMismatchNmax = getFlagNonNegativeInt(cmd, "mismatch-nmax")
	}
	if changed("intron-motifs") {
		p.OutFilterIntronMotifs = getFlagString(cmd, "intron-motifs")
	}
	if changed("multimapper-order") {
		p.OutMultimapperOrder = getFlagString(cmd, "multimapper-order")
	}
	if changed("all-best-primary") {
		if getFlagBool(cmd, "all-best-primary") {
			p.OutSAMprimaryFlag = "AllBestScore"
		} else {
			p.OutSAMprimaryFlag = "OneBestScore"
		}
	}
	if changed("chim-segment-min") {
		p.ChimSegmentMin = getFlagNonNegativeInt(cmd, "chim-segment-min")
	}
	if changed("chim-score-min") {
		p.ChimScoreMin = getFlagInt(cmd, "chim-score-min")
	}
	if changed("seed") {
		p.RunRNGseed = getFlagInt64(cmd, "seed")
	}
}

// readSingles reads single-end reads from a file.
func readSingles(file string, fn func(t *readTask)) error {
	fastxReader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		return errors.Wrap(err, file)
	}
	defer fastxReader.Close()

	var record *fastx.Record
	for {
		record, err = fastxReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return errors.Wrap(err, file)
		}

		t := poolReadTask.Get().(*readTask)
		t.reset()
		t.setMate(0, record)
		t.setRead(1)
		fn(t)
	}
	return nil
}

// readPairs reads paired-end reads from two files in lockstep.
func readPairs(file1, file2 string, fn func(t *readTask)) error {
	r1, err := fastx.NewReader(nil, file1, "")
	if err != nil {
		return errors.Wrap(err, file1)
	}
	defer r1.Close()
	r2, err := fastx.NewReader(nil, file2, "")
	if err != nil {
		return errors.Wrap(err, file2)
	}
	defer r2.Close()

	var rec1, rec2 *fastx.Record
	var err1, err2 error
	for {
		rec1, err1 = r1.Read()
		rec2, err2 = r2.Read()
		if err1 == io.EOF && err2 == io.EOF {
			break
		}
		if err1 == io.EOF || err2 == io.EOF {
			return fmt.Errorf("unequal numbers of reads in %s and %s", file1, file2)
		}
		if err1 != nil {
			return errors.Wrap(err1, file1)
		}
		if err2 != nil {
			return errors.Wrap(err2, file2)
		}

		t := poolReadTask.Get().(*readTask)
		t.reset()
		t.setMate(0, rec1)
		t.setMate(1, rec2)
		t.setRead(2)
		fn(t)
	}
	return nil
}
