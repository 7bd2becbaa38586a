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

	"github.com/dustin/go-humanize"
	"github.com/shenwei356/SpliceMap/splicemap/index"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information

`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SpliceMap v%s\n", VERSION)

		if getFlagBool(cmd, "index-info") {
			dir := expandPath(getFlagString(cmd, "index"))
			if dir == "" {
				checkError(fmt.Errorf("flag -d/--index needed"))
			}
			info, err := index.ReadInfo(dir)
			checkError(err)
			fmt.Printf("index: %s\n", dir)
			fmt.Printf("  format version: v%d.%d\n", info.MainVersion, info.MinorVersion)
			fmt.Printf("  k-mer size: %d\n", info.K)
			fmt.Printf("  chromosomes: %s\n", humanize.Comma(int64(info.Chromosomes)))
			fmt.Printf("  bases: %s\n", humanize.Comma(int64(info.Bases)))
			fmt.Printf("  k-mers: %s, positions: %s\n", humanize.Comma(int64(info.Kmers)), humanize.Comma(int64(info.Positions)))
			fmt.Printf("  created: %s\n", info.Created)
		}
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolP("index-info", "i", false,
		formatFlagUsage(`Also print information of an index given by -d/--index.`))
	versionCmd.Flags().StringP("index", "d", "",
		formatFlagUsage(`Index directory.`))
}
