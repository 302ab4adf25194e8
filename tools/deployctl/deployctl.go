// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// deployctl is the operator CLI for the container deployment service.
package main

import (
	"log"

	"github.com/aboyz1/workflow/tools/deployctl/command/deploy"
	"github.com/aboyz1/workflow/tools/deployctl/command/export"
	"github.com/aboyz1/workflow/tools/deployctl/command/history"
	"github.com/aboyz1/workflow/tools/deployctl/command/logs"
	"github.com/aboyz1/workflow/tools/deployctl/command/status"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "deployctl",
	Short: "A control tool for the container deployment service",
}

func init() {
	rootCmd.AddCommand(deploy.Command())
	rootCmd.AddCommand(status.Command())
	rootCmd.AddCommand(logs.Command())
	rootCmd.AddCommand(history.Command())
	rootCmd.AddCommand(export.Command())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
