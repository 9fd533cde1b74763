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

package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/awslabs/ar-evm-tools/analysis/config"
	"github.com/awslabs/ar-evm-tools/analysis/jumps"
)

func TestLoadConfigDefault(t *testing.T) {
	c, err := LoadConfig("", true)
	if err != nil {
		t.Fatalf("default config failed: %v", err)
	}
	if c.LogLevel != int(config.DebugLevel) {
		t.Errorf("verbose should raise the log level, got %d", c.LogLevel)
	}
	if _, err := LoadConfig("does-not-exist.yaml", false); err == nil {
		t.Errorf("missing config file should be an error")
	}
}

func TestCommonFlags(t *testing.T) {
	flags, err := NewCommonFlags("jumps", []string{"-verbose", "-config", "c.yaml", "a.hex"}, "usage")
	if err != nil {
		t.Fatalf("could not parse flags: %v", err)
	}
	if !flags.Verbose || flags.ConfigPath != "c.yaml" || flags.FlagSet.Arg(0) != "a.hex" {
		t.Errorf("unexpected flags %+v", flags)
	}
}

func TestLoadSingleAndResolve(t *testing.T) {
	file := filepath.Join(t.TempDir(), "jump.hex")
	// PUSH1 6 DUP1 POP JUMP INVALID JUMPDEST STOP
	if err := os.WriteFile(file, []byte("0x6006805056fe5b00\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSingle([]string{file, file}); err == nil {
		t.Errorf("two files should be an error")
	}
	c, err := LoadSingle([]string{file})
	if err != nil {
		t.Fatalf("could not load contract: %v", err)
	}
	conf := config.NewDefault()
	ctx, cancel := Context(conf)
	defer cancel()
	r, err := Resolve(ctx, c, conf, NewLogger(conf, os.Stderr))
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}
	if s := r.Stats(); s.Resolved != 1 || len(r.Filter(jumps.Resolved)[0].Targets) != 1 {
		t.Errorf("expected one resolved jump, got %+v", s)
	}
}
