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

// Package contract implements the analysis pipeline of a contract: graph construction, jump resolution,
// taint analyses and checkers. AnalyzeAll runs the pipeline over a batch of contracts.
package contract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-evm-tools/analysis/cfg"
	"golang.org/x/exp/slices"
)

// Contract is the runtime bytecode of a contract
type Contract struct {
	// Name identifies the contract in reports, usually the base name of its file
	Name     string
	Bytecode []byte
	// Address is the hex address of the deployed contract. The configured address is used when empty.
	Address string
}

// Extensions of the files holding hex-encoded bytecode
var bytecodeExtensions = map[string]bool{".hex": true, ".bin": true, ".evm": true}

// IsBytecodeFile returns true if the name of the file has one of the extensions of bytecode files
func IsBytecodeFile(name string) bool {
	return bytecodeExtensions[strings.ToLower(filepath.Ext(name))]
}

// Load reads the hex-encoded bytecode in filename
func Load(filename string) (Contract, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return Contract{}, fmt.Errorf("could not read contract: %w", err)
	}
	code, err := cfg.ParseHex(string(b))
	if err != nil {
		return Contract{}, fmt.Errorf("contract %s: %w", filename, err)
	}
	base := filepath.Base(filename)
	return Contract{Name: strings.TrimSuffix(base, filepath.Ext(base)), Bytecode: code}, nil
}

// LoadContracts loads every path. Directories are walked and the bytecode files they contain are loaded in
// lexical order.
func LoadContracts(paths []string) ([]Contract, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		var inDir []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsBytecodeFile(p) {
				inDir = append(inDir, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(inDir)
		files = append(files, inDir...)
	}
	contracts := make([]Contract, 0, len(files))
	for _, f := range files {
		c, err := Load(f)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}
