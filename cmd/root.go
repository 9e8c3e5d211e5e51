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

// Package cmd is the command-line front end: one cobra subcommand per
// file, with flags registered at init time.
package cmd

import ("fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/accelerator-io/accelerator/internal/common")

var (daemonURL string
	urdURL string
	urdUser string
	urdPassword string
	outputFormatRaw string
	acceleratorOutputFormat common.OutputFormat)

const rootCmdShortDescription = "Drive a data-processing automation daemon and its reproducibility ledger."

const rootCmdLongDescription = `accelerator builds method invocations against a running execution daemon,
waits for jobs to complete, and records the resulting jobs for later chaining
through a reproducibility ledger.`

var rootCmd = &cobra.Command{
	Use: "accelerator",
	Short: rootCmdShortDescription,
	Long: rootCmdLongDescription,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return acceleratorOutputFormat.Parse(outputFormatRaw)
	},
	SilenceUsage: true,
}

// Execute runs the root command, the package's sole exported entry
// point (called from main).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&daemonURL, "daemon-url", "http://localhost:8080", "base URL of the execution daemon")
	rootCmd.PersistentFlags().StringVar(&urdURL, "urd-url", "", "base URL of the reproducibility ledger")
	rootCmd.PersistentFlags().StringVar(&urdUser, "urd-user", "", "ledger session user")
	rootCmd.PersistentFlags().StringVar(&urdPassword, "urd-password", "", "ledger HTTP Basic password")
	rootCmd.PersistentFlags().StringVar(&outputFormatRaw, "output-type", "text", "format of the command's output (text, json)")
}
