// Copyright 2025 The Procdog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jlevy/procdog/dist"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the metadata record as JSON",
	Long: `Print derives the metadata record from the about manifest and
writes it to stdout as indented JSON.  The output is deterministic:
the same manifest always produces the same bytes.`,
	Args: cobra.NoArgs,
	RunE: runPrint,
}

func init() {
	rootCmd.AddCommand(printCmd)
}

func runPrint(cmd *cobra.Command, args []string) error {
	rec, err := dist.BuildFromFile(manifestPath)
	if err != nil {
		return err
	}
	b, err := rec.EncodeJSON()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(b)
	return err
}
