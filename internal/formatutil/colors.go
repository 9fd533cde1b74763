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

// Package formatutil manipulates string colors and other formatting operations.
package formatutil

import (
	"fmt"

	"github.com/logrusorgru/aurora"
	"golang.org/x/term"
)

var au = aurora.NewAurora(term.IsTerminal(1))

var (
	Bold    = Color(au.Bold)
	Faint   = Color(au.Faint)
	Italic  = Color(au.Italic)
	Red     = Color(func(x interface{}) aurora.Value { return au.Bold(au.Red(x)) })
	Green   = Color(func(x interface{}) aurora.Value { return au.Bold(au.Green(x)) })
	Yellow  = Color(func(x interface{}) aurora.Value { return au.Bold(au.Yellow(x)) })
	Blue    = Color(func(x interface{}) aurora.Value { return au.Bold(au.Blue(x)) })
	Magenta = Color(func(x interface{}) aurora.Value { return au.Bold(au.Magenta(x)) })
	Cyan    = Color(func(x interface{}) aurora.Value { return au.Bold(au.Cyan(x)) })
)

// Color returns a printing function that formats its arguments like fmt.Sprint and colors the result with
// the aurora styling function. Styles are dropped when standard output is not a terminal.
func Color(style func(interface{}) aurora.Value) func(...interface{}) string {
	return func(args ...interface{}) string {
		return style(fmt.Sprint(args...)).String()
	}
}
