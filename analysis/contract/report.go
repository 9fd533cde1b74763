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

package contract

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"gopkg.in/yaml.v3"
)

// Report is the serialized summary of a Result
type Report struct {
	Contract  string          `yaml:"contract"`
	CFGID     string          `yaml:"cfg-id"`
	Error     string          `yaml:"error,omitempty"`
	Stats     ReportStats     `yaml:"stats"`
	Jumps     []ReportJump    `yaml:"jumps"`
	Selectors []string        `yaml:"selectors,omitempty"`
	Warnings  []ReportWarning `yaml:"warnings"`
}

type ReportStats struct {
	Opcodes      int     `yaml:"opcodes"`
	BasicBlocks  int     `yaml:"basic-blocks"`
	Jumps        int     `yaml:"jumps"`
	PushedJumps  int     `yaml:"pushed-jumps"`
	Resolved     int     `yaml:"resolved"`
	Unreachable  int     `yaml:"unreachable"`
	MaybeUnsound int     `yaml:"maybe-unsound"`
	Rounds       int     `yaml:"rounds"`
	Loops        int     `yaml:"loops"`
	Warnings     int     `yaml:"warnings"`
	Seconds      float64 `yaml:"seconds"`
}

type ReportJump struct {
	PC      uint64   `yaml:"pc"`
	Op      string   `yaml:"op"`
	Class   string   `yaml:"class"`
	Targets []uint64 `yaml:"targets,omitempty,flow"`
}

type ReportWarning struct {
	Checker  string `yaml:"checker"`
	Severity string `yaml:"severity"`
	PC       uint64 `yaml:"pc"`
	Message  string `yaml:"message"`
	Key      string `yaml:"key"`
}

// NewReport summarizes r
func NewReport(r Result) Report {
	rep := Report{
		Contract: r.Contract.Name,
		CFGID:    r.CFGID,
		Stats: ReportStats{
			Opcodes:      r.Stats.Opcodes,
			BasicBlocks:  r.Stats.BasicBlocks,
			Jumps:        r.Stats.Jumps,
			PushedJumps:  r.Stats.PushedJumps,
			Resolved:     r.Stats.Resolved,
			Unreachable:  r.Stats.Unreachable,
			MaybeUnsound: r.Stats.MaybeUnsound,
			Rounds:       r.Stats.Rounds,
			Loops:        r.Stats.Loops,
			Warnings:     r.Stats.Warnings,
			Seconds:      r.Stats.Duration.Seconds(),
		},
	}
	if r.Err != nil {
		rep.Error = r.Err.Error()
	}
	for _, j := range r.Jumps {
		rep.Jumps = append(rep.Jumps, ReportJump{PC: j.PC, Op: j.Op.String(), Class: j.Class.String(), Targets: j.Targets})
	}
	for _, e := range r.Selectors {
		rep.Selectors = append(rep.Selectors, fmt.Sprintf("0x%08x", e.Selector))
	}
	for _, w := range r.Warnings {
		rep.Warnings = append(rep.Warnings, ReportWarning{
			Checker:  w.Checker,
			Severity: w.Severity.String(),
			PC:       w.PC,
			Message:  w.Message,
			Key:      w.Key,
		})
	}
	return rep
}

// WriteReports writes the yaml report of r and the DOT file of its resolved graph in dir
func WriteReports(dir string, r Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(NewReport(r))
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, r.Contract.Name+".yaml"), b, 0o644); err != nil {
		return err
	}
	if r.Resolution == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(dir, r.Contract.Name+".dot"))
	if err != nil {
		return err
	}
	defer f.Close()
	return cfg.WriteDOT(f, r.Resolution.Graph, r.Contract.Name)
}
