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
	"sort"

	"github.com/spf13/cobra"

	"github.com/accelerator-io/accelerator/internal/common"
	"github.com/accelerator-io/accelerator/internal/daemon")

func init() {
	workspacesCmd := &cobra.Command{
		Use: "workspaces",
		Short: "List workspaces known to the daemon",
		Args: cobra.NoArgs,
		RunE: runWorkspaces,
	}
	methodsCmd := &cobra.Command{
		Use: "methods",
		Short: "List methods and their dependencies known to the daemon",
		Args: cobra.NoArgs,
		RunE: runMethods,
	}
	statusCmd := &cobra.Command{
		Use: "status",
		Short: "Print the daemon's current idle/busy status",
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
	rootCmd.AddCommand(workspacesCmd, methodsCmd, statusCmd)
}

func runWorkspaces(cmd *cobra.Command, args []string) error {
	client := daemon.New(daemonURL)
	out, err := client.ListWorkspaces(cmd.Context())
	if err != nil {
		return err
	}
	return printMap(out)
}

func runMethods(cmd *cobra.Command, args []string) error {
	client := daemon.New(daemonURL)
	methods, err := client.Methods(cmd.Context())
	if err != nil {
		return err
	}
	if acceleratorOutputFormat == common.EOutputFormat.Json() {
		enc, err := json.MarshalIndent(methods, "", " ")
		if err != nil {
			return err
		}
		fmt.Println(string(enc))
		return nil
	}
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dep := methods[name].Dep
		if len(dep) == 0 {
			fmt.Println(name)
			continue
		}
		fmt.Printf("%s depends on %v\n", name, dep)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := daemon.New(daemonURL)
	status, err := client.Status(cmd.Context(), false, "", 0)
	if err != nil {
		return err
	}
	if status.Idle {
		fmt.Println("idle")
		return nil
	}
	if status.Current != nil {
		fmt.Printf("busy: %s (%.1fs, job %.1fs elapsed)\n", status.Current.Method, status.Current.Elapsed, status.Current.MethodElapsed)
		return nil
	}
	fmt.Println("busy")
	return nil
}

func printMap(m map[string]interface{}) error {
	if acceleratorOutputFormat == common.EOutputFormat.Json() {
		enc, err := json.MarshalIndent(m, "", " ")
		if err != nil {
			return err
		}
		fmt.Println(string(enc))
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-20s %v\n", k, m[k])
	}
	return nil
}
