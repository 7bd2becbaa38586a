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
	"os"

	"github.com/shenwei356/SpliceMap/splicemap/align"
	"github.com/spf13/cobra"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print default alignment parameters in TOML format",
	Long: `Print default alignment parameters in TOML format

The output could be modified and given to "splicemap align -p".
Options missing in the file keep default values.

`,
	Run: func(cmd *cobra.Command, args []string) {
		outFile := expandPath(getFlagString(cmd, "out-file"))

		p := align.DefaultParams()
		checkError(align.CheckParams(p))

		data, err := p.MarshalTOML()
		checkError(err)

		outfh, gw, w, err := outStream(outFile, isGzipped(outFile), -1)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			if w != os.Stdout {
				w.Close()
			}
		}()

		outfh.Write(data)
	},
}

func init() {
	RootCmd.AddCommand(paramsCmd)

	paramsCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file ("-" for stdout).`))

	paramsCmd.SetUsageTemplate(usageTemplate("[-o params.toml]"))
}
