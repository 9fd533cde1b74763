// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package analyze implements the front-end of the batch analysis of contracts.
package analyze

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awslabs/ar-evm-tools/analysis/checkers"
	"github.com/awslabs/ar-evm-tools/analysis/contract"
	"github.com/awslabs/ar-evm-tools/cmd/argot-evm/tools"
	"github.com/awslabs/ar-evm-tools/internal/formatutil"
	"github.com/olekukonko/tablewriter"
)

// Usage of the analyze sub-command
const Usage = `Resolve the jumps of contracts and run the vulnerability checkers on them.

Usage:
  argot-evm analyze [options] <contract files or directories>

Contract files hold the hex-encoded runtime bytecode (.hex, .bin or .evm in directories).

Examples:
% argot-evm analyze -config config.yaml contracts/
% argot-evm analyze -checkers txorigin,reentrancy token.hex
`

// Flags represents the flags for the analyze sub-command.
type Flags struct {
	tools.CommonFlags
	checkers   []string
	reportsDir string
}

// NewFlags returns parsed flags for analyze.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("analyze")
	checkerList := flags.FlagSet.String("checkers", "", "comma-separated checkers to run, overrides the config")
	reportsDir := flags.FlagSet.String("reports", "", "directory of the reports, overrides the config")
	tools.SetUsage(flags.FlagSet, Usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	f := Flags{CommonFlags: common, reportsDir: *reportsDir}
	if *checkerList != "" {
		f.checkers = strings.Split(*checkerList, ",")
	}
	return f, nil
}

// Run analyzes the contracts named by the arguments and prints a summary on standard output
func Run(flags Flags) error {
	conf, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	if flags.checkers != nil {
		conf.Checkers = flags.checkers
	}
	if flags.reportsDir != "" {
		conf.ReportsDir = flags.reportsDir
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	logger := tools.NewLogger(conf, os.Stderr)

	contracts, err := contract.LoadContracts(flags.FlagSet.Args())
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		return fmt.Errorf("no contract to analyze")
	}
	opts, err := contract.OptionsFromConfig(conf, logger)
	if err != nil {
		return err
	}
	opts.OnWarning = func(c contract.Contract, w checkers.Warning) {
		logger.Debugf("%s: new %s warning at pc %d", c.Name, w.Checker, w.PC)
	}
	fmt.Fprintln(os.Stderr, formatutil.Faint(fmt.Sprintf("Analyzing %d contracts with %d workers", len(contracts),
		opts.NumWorkers)))
	results, cc, err := contract.AnalyzeAll(context.Background(), contracts, opts, logger)
	if err != nil {
		return err
	}
	PrintSummary(os.Stdout, results)
	PrintWarnings(os.Stdout, results)
	if errs := cc.Errors(); len(errs) > 0 {
		fmt.Fprintf(os.Stderr, "%s\n", formatutil.Yellow(fmt.Sprintf("%d contracts could not be analyzed", len(errs))))
	}
	return nil
}

// PrintSummary writes a table of the statistics of the results
func PrintSummary(w io.Writer, results []contract.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Contract", "Opcodes", "Jumps", "Resolved", "Unreachable", "Maybe unsound",
		"Warnings", "Time (s)", "Status"})
	for _, r := range results {
		status := "ok"
		if r.Failed() {
			status = "failed"
		}
		table.Append([]string{
			r.Contract.Name,
			fmt.Sprint(r.Stats.Opcodes),
			fmt.Sprint(r.Stats.Jumps),
			fmt.Sprint(r.Stats.Resolved),
			fmt.Sprint(r.Stats.Unreachable),
			fmt.Sprint(r.Stats.MaybeUnsound),
			fmt.Sprint(r.Stats.Warnings),
			fmt.Sprintf("%.3f", r.Stats.Duration.Seconds()),
			status,
		})
	}
	table.Render()
}

// PrintWarnings writes the warnings of the results, one per line
func PrintWarnings(w io.Writer, results []contract.Result) {
	for _, r := range results {
		if r.Failed() {
			fmt.Fprintf(w, "%s: %s\n", formatutil.Bold(r.Contract.Name), formatutil.Red(r.Err))
			continue
		}
		for _, warning := range r.Warnings {
			sev := formatutil.Red(warning.Severity)
			if warning.Severity == checkers.Info {
				sev = formatutil.Faint(warning.Severity)
			}
			fmt.Fprintf(w, "%s: %s [%s] pc %#x: %s\n", formatutil.Bold(r.Contract.Name), sev, warning.Checker,
				warning.PC, warning.Message)
		}
	}
}
