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

import ("fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/accelerator-io/accelerator/internal/automation"
	"github.com/accelerator-io/accelerator/internal/common"
	"github.com/accelerator-io/accelerator/internal/daemon")

type rawCallCmdArgs struct {
	options []string
	datasets []string
	jobids []string
	recordAs string
	caption string
	verbose string
	whyBuild bool
}

func (r rawCallCmdArgs) parseVerbose() automation.Verbose {
	switch r.verbose {
	case "dots":
		return automation.VerboseDots
	case "log":
		return automation.VerboseLog
	case "true":
		return automation.VerboseLine
	default:
		return automation.VerboseSilent
	}
}

func splitKeyValues(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, _ := strings.Cut(kv, "=")
		out[k] = v
	}
	return out
}

var rawCall rawCallCmdArgs

func init() {
	callCmd := &cobra.Command{
		Use: "call <method>",
		Short: "Submit a method and its dependency closure, and wait for completion",
		Args: cobra.ExactArgs(1),
		RunE: runCall,
	}
	callCmd.Flags().StringArrayVar(&rawCall.options, "option", nil, "method option as key=value, repeatable")
	callCmd.Flags().StringArrayVar(&rawCall.datasets, "dataset", nil, "dataset argument as key=value, repeatable")
	callCmd.Flags().StringArrayVar(&rawCall.jobids, "jobid", nil, "jobid argument as key=value, repeatable")
	callCmd.Flags().StringVar(&rawCall.recordAs, "record-as", "", "name under which the resulting job is recorded")
	callCmd.Flags().StringVar(&rawCall.caption, "caption", "", "caption for the submission (default fsm_<method>)")
	callCmd.Flags().StringVar(&rawCall.verbose, "verbose", "", "progress display: dots, log, true, or omitted for silent")
	callCmd.Flags().BoolVar(&rawCall.whyBuild, "why-build", false, "report what would be built without submitting")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	method := args[0]
	ctx := cmd.Context()

	client := daemon.New(daemonURL)
	a, err := automation.New(ctx, client, "", nil)
	if err != nil {
		return fmt.Errorf("connecting to daemon: %w", err)
	}
	a.Verbose = rawCall.parseVerbose()
	a.Monitor = common.NewMonitor()

	opts := automation.CallOptions{
		Options: automation.NormalizeOptions(method, stringMapToAny(splitKeyValues(rawCall.options))),
		Datasets: automation.NormalizeDatasets(method, stringMapToAny(splitKeyValues(rawCall.datasets))),
		JobIDs: automation.NormalizeDatasets(method, stringMapToAny(splitKeyValues(rawCall.jobids))),
		RecordAs: rawCall.recordAs,
		Caption: rawCall.caption,
	}
	if rawCall.whyBuild {
		opts.WhyBuild = "true"
	}

	jobid, whyBuild, err := a.CallMethod(ctx, method, opts)
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

func stringMapToAny(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
