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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

func checkError(err error) {
	if err != nil {
		log.Error(err)
		os.Exit(-1)
	}
}

func formatFlagUsage(s string) string {
	return "► " + s
}

func isStdin(file string) bool {
	return file == "-"
}

// expandPath replaces the leading "~" of a path with the home directory.
func expandPath(file string) string {
	if file == "" || isStdin(file) {
		return file
	}
	path, err := homedir.Expand(file)
	checkError(errors.Wrapf(err, "expanding path: %s", file))
	return path
}

func getFlagString(cmd *cobra.Command, flag string) string {
	value, err := cmd.Flags().GetString(flag)
	checkError(err)
	return value
}

func getFlagStringSlice(cmd *cobra.Command, flag string) []string {
	value, err := cmd.Flags().GetStringSlice(flag)
	checkError(err)
	return value
}

func getFlagBool(cmd *cobra.Command, flag string) bool {
	value, err := cmd.Flags().GetBool(flag)
	checkError(err)
	return value
}

func getFlagInt(cmd *cobra.Command, flag string) int {
	value, err := cmd.Flags().GetInt(flag)
	checkError(err)
	return value
}

func getFlagInt64(cmd *cobra.Command, flag string) int64 {
	value, err := cmd.Flags().GetInt64(flag)
	checkError(err)
	return value
}

func getFlagPositiveInt(cmd *cobra.Command, flag string) int {
	value, err := cmd.Flags().GetInt(flag)
	checkError(err)
	if value <= 0 {
		checkError(fmt.Errorf("value of flag --%s should be greater than 0", flag))
	}
	return value
}

func getFlagNonNegativeInt(cmd *cobra.Command, flag string) int {
	value, err := cmd.Flags().GetInt(flag)
	checkError(err)
	if value < 0 {
		checkError(fmt.Errorf("value of flag --%s should be greater than or equal to 0", flag))
	}
	return value
}

func getFlagNonNegativeFloat64(cmd *cobra.Command, flag string) float64 {
	value, err := cmd.Flags().GetFloat64(flag)
	checkError(err)
	if value < 0 {
		checkError(fmt.Errorf("value of flag --%s should be greater than or equal to 0", flag))
	}
	return value
}

// getFileList returns files from positional arguments, or stdin ("-") if none given.
func getFileList(args []string, checkFile bool) []string {
	files := make([]string, 0, 8)
	if len(args) == 0 {
		files = append(files, "-")
		return files
	}
	for _, file := range args {
		if isStdin(file) {
			files = append(files, file)
			continue
		}
		file = expandPath(file)
		if checkFile {
			if _, err := os.Stat(file); err != nil {
				checkError(errors.Wrap(err, file))
			}
		}
		files = append(files, file)
	}
	return files
}

// getFileListFromFile reads file paths, one per line.
func getFileListFromFile(file string, checkFile bool) ([]string, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, fmt.Errorf("read file list from '%s': %s", file, err)
	}

	var _file string
	lists := make([]string, 0, 8)
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		_file = strings.TrimSpace(scanner.Text())
		if _file == "" {
			continue
		}
		_file = expandPath(_file)
		if checkFile && !isStdin(_file) {
			if _, err = os.Stat(_file); err != nil {
				return lists, errors.Wrapf(err, "check file '%s' in file list '%s'", _file, file)
			}
		}
		lists = append(lists, _file)
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read file list from '%s': %s", file, err)
	}

	return lists, fh.Close()
}

func getFileListFromArgsAndFile(cmd *cobra.Command, args []string, checkFileFromArgs bool, flag string, checkFileFromFile bool) []string {
	infileList := expandPath(getFlagString(cmd, flag))
	files := getFileList(args, checkFileFromArgs)
	if infileList != "" {
		_files, err := getFileListFromFile(infileList, checkFileFromFile)
		checkError(err)
		if len(_files) == 0 {
			log.Warningf("no files found in file list: %s", infileList)
			return files
		}

		if len(files) == 1 && isStdin(files[0]) {
			return _files
		}
		files = append(files, _files...)
	}
	return files
}

// outStream creates a buffered writer to a file or stdout ("-"), optionally gzipped with pgzip.
// Callers flush the buffer, close gw if not nil, and then close w.
func outStream(file string, gzipped bool, level int) (*bufio.Writer, io.WriteCloser, *os.File, error) {
	var w *os.File
	if isStdin(file) {
		w = os.Stdout
	} else {
		dir := filepath.Dir(file)
		fi, err := os.Stat(dir)
		if err == nil && !fi.IsDir() {
			return nil, nil, nil, fmt.Errorf("can not write file into a non-directory path: %s", dir)
		}
		if os.IsNotExist(err) {
			if err = os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, nil, err
			}
		}

		w, err = os.Create(file)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "fail to write %s", file)
		}
	}

	if gzipped {
		gw, err := pgzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "fail to write %s", file)
		}
		return bufio.NewWriterSize(gw, os.Getpagesize()), gw, w, nil
	}
	return bufio.NewWriterSize(w, os.Getpagesize()), nil, w, nil
}

// bufioWriter bundles the writers returned by outStream.
type bufioWriter struct {
	*bufio.Writer
	gw io.WriteCloser
	w  *os.File
}

func newBufioWriter(file string, level int) (*bufioWriter, error) {
	outfh, gw, w, err := outStream(file, isGzipped(file), level)
	if err != nil {
		return nil, err
	}
	return &bufioWriter{Writer: outfh, gw: gw, w: w}, nil
}

func (b *bufioWriter) close() error {
	if err := b.Flush(); err != nil {
		return err
	}
	if b.gw != nil {
		if err := b.gw.Close(); err != nil {
			return err
		}
	}
	return b.w.Close()
}
