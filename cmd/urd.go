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

import ("context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accelerator-io/accelerator/internal/automation"
	"github.com/accelerator-io/accelerator/internal/common"
	"github.com/accelerator-io/accelerator/internal/daemon"
	"github.com/accelerator-io/accelerator/internal/urd")

type rawUrdBuildArgs struct {
	name string
	caption string
	chained bool
	options []string
	datasets []string
}

var rawUrdBuild rawUrdBuildArgs

func init() {
	beginCmd := &cobra.Command{
		Use: "urd-begin <path> <timestamp>",
		Short: "Open a ledger transaction against path at timestamp",
		Args: cobra.ExactArgs(2),
		RunE: runUrdBegin,
	}
	latestCmd := &cobra.Command{
		Use: "urd-latest <path>",
		Short: "Print the ledger's latest recorded joblist for path",
		Args: cobra.ExactArgs(1),
		RunE: runUrdLatest,
	}
	finishCmd := &cobra.Command{
		Use: "urd-finish <path>",
		Short: "Close the open ledger transaction, posting its recorded jobs",
		Args: cobra.ExactArgs(1),
		RunE: runUrdFinish,
	}
	buildCmd := &cobra.Command{
		Use: "urd-build <method>",
		Short: "Build a method through the bound automation, within an open ledger transaction",
		Args: cobra.ExactArgs(1),
		RunE: runUrdBuild,
	}
	buildCmd.Flags().StringVar(&rawUrdBuild.name, "name", "", "name the resulting job is recorded under")
	buildCmd.Flags().StringVar(&rawUrdBuild.caption, "caption", "", "submission caption")
	buildCmd.Flags().BoolVar(&rawUrdBuild.chained, "chained", false, "chain from the last ledger dependency's recorded entry")
	buildCmd.Flags().StringArrayVar(&rawUrdBuild.options, "option", nil, "method option as key=value, repeatable")
	buildCmd.Flags().StringArrayVar(&rawUrdBuild.datasets, "dataset", nil, "dataset argument as key=value, repeatable")

	rootCmd.AddCommand(beginCmd, latestCmd, finishCmd, buildCmd)
}

func newUrdClient(ctx context.Context) (*urd.Client, *automation.Automation, error) {
	client := daemon.New(daemonURL)
	a, err := automation.New(ctx, client, "", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	a.Monitor = common.NewMonitor()
	return urd.New(urdURL, urdUser, urdPassword, a), a, nil
}

func runUrdBegin(cmd *cobra.Command, args []string) error {
	u, _, err := newUrdClient(cmd.Context())
	if err != nil {
		return err
	}
	return u.Begin(args[0], args[1], "", false)
}

func runUrdLatest(cmd *cobra.Command, args []string) error {
	u, _, err := newUrdClient(cmd.Context())
	if err != nil {
		return err
	}
	resp, err := u.PeekLatest(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if resp.Empty() {
		fmt.Println("(nothing recorded)")
		return nil
	}
	fmt.Printf("%s %s %s\n", resp.Timestamp, resp.Caption, resp.JobList.Pretty())
	return nil
}

func runUrdFinish(cmd *cobra.Command, args []string) error {
	u, _, err := newUrdClient(cmd.Context())
	if err != nil {
		return err
	}
	return u.Finish(cmd.Context(), args[0], "", "")
}

func runUrdBuild(cmd *cobra.Command, args []string) error {
	u, _, err := newUrdClient(cmd.Context())
	if err != nil {
		return err
	}
	opts := urd.BuildOptions{
		Options: stringMapToAny(splitKeyValues(rawUrdBuild.options)),
		Datasets: splitKeyValues(rawUrdBuild.datasets),
		Name: rawUrdBuild.name,
		Caption: rawUrdBuild.caption,
	}
	var jobid string
	var whyBuild json.RawMessage
	if rawUrdBuild.chained {
		jobid, whyBuild, err = u.BuildChained(cmd.Context(), args[0], opts)
	} else {
		jobid, whyBuild, err = u.Build(cmd.Context(), args[0], opts)
	}
	if err != nil {
		return err
	}
	if whyBuild != nil {
		fmt.Println(string(whyBuild))
		return nil
	}
	fmt.Println(jobid)
	return nil
}
