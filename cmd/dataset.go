// Copyright © 2026 accelerator-io
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

import ("encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/accelerator-io/accelerator/internal/common"
	"github.com/accelerator-io/accelerator/internal/dataset")

type rawDatasetCmdArgs struct {
	root string
	memoSize int
	chainLen int
	chainBack bool
}

var rawDatasetInspect rawDatasetCmdArgs

func init() {
	datasetCmd := &cobra.Command{
		Use: "dataset <jobid>[/<name>]",
		Short: "Inspect a dataset: shape, columns, and chain",
		Args: cobra.ExactArgs(1),
		RunE: runDataset,
	}
	datasetCmd.Flags().StringVar(&rawDatasetInspect.root, "root", ".", "workspace root holding job directories")
	datasetCmd.Flags().IntVar(&rawDatasetInspect.memoSize, "memo-size", 256, "descriptor memoization cache size")
	datasetCmd.Flags().IntVar(&rawDatasetInspect.chainLen, "chain", 0, "also print the chain of up to this many datasets, this one included (0 disables)")
	datasetCmd.Flags().BoolVar(&rawDatasetInspect.chainBack, "chain-reverse", false, "list the chain newest-first (this dataset first)")
	rootCmd.AddCommand(datasetCmd)
}

func runDataset(cmd *cobra.Command, args []string) error {
	store := dataset.NewStore(rawDatasetInspect.root, rawDatasetInspect.memoSize)
	ds, err := store.Open(args[0])
	if err != nil {
		return err
	}
	printDatasetSummary(ds)

	if rawDatasetInspect.chainLen > 0 {
		chain, err := ds.Chain(rawDatasetInspect.chainLen, rawDatasetInspect.chainBack, "")
		if err != nil {
			return err
		}
		fmt.Println("chain:")
		for _, link := range chain {
			fmt.Println(" " + link.ID())
		}
	}
	return nil
}

func printDatasetSummary(ds *dataset.Dataset) {
	if acceleratorOutputFormat == common.EOutputFormat.Json() {
		cols, rows := ds.Shape()
		enc, _ := json.MarshalIndent(map[string]interface{}{
			"id": ds.ID(),
			"name": ds.Name(),
			"jobid": ds.JobID(),
			"rows": rows,
			"cols": cols,
			"hashlabel": ds.Hashlabel(),
			"previous": ds.Previous(),
			"parent": ds.Parent(),
			"caption": ds.Caption(),
		}, "", " ")
		fmt.Println(string(enc))
		return
	}
	cols, rows := ds.Shape()
	fmt.Printf("%s\n", ds.ID())
	fmt.Printf(" caption: %s\n", ds.Caption())
	fmt.Printf(" shape: %d columns, %d rows\n", cols, rows)
	fmt.Printf(" hashlabel: %s\n", ds.Hashlabel())
	if ds.Previous() != "" {
		fmt.Printf(" previous: %s\n", ds.Previous())
	}
	if ds.Parent() != "" {
		fmt.Printf(" parent: %s\n", ds.Parent())
	}
	names := make([]string, 0, len(ds.Columns()))
	for name := range ds.Columns() {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println(" columns:")
	for _, name := range names {
		col := ds.Columns()[name]
		fmt.Fprintf(os.Stdout, " %-30s %s\n", name, col.Type)
	}
}
