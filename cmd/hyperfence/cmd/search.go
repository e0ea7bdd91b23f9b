// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	hyperfence "github.com/packetclsfy/hyperfence"
	"github.com/packetclsfy/hyperfence/internal/driver"
)

var (
	searchRuleFile  string
	searchFormat    string
	searchGroup     bool
	searchTraceFile string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Build a forest and classify every packet in a trace file",
	RunE: func(cmd *cobra.Command, args []string) error {
		part, err := loadPartition(searchRuleFile, searchFormat, searchGroup)
		if err != nil {
			return err
		}

		trees, err := driver.BuildForest(part, viper.GetInt("max_nodes"))
		if err != nil {
			return err
		}

		trace, err := readTrace(searchTraceFile)
		if err != nil {
			return err
		}

		results := driver.Search(trees, trace.Packets)

		mismatches := 0
		for i, res := range results {
			if i < len(trace.MatchRule) && trace.MatchRule[i] >= 0 && res.Priority != trace.MatchRule[i] {
				mismatches++
			}
		}

		if mismatches > 0 {
			fmt.Printf("%v: %d/%d packets disagreed with the trace's recorded match\n", hyperfence.ErrMatchMismatch, mismatches, len(results))
		} else {
			fmt.Printf("all %d packets matched the trace's recorded rule\n", len(results))
		}

		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchRuleFile, "rule", "r", "", "rule or partition file (required)")
	searchCmd.Flags().StringVarP(&searchFormat, "format", "f", "wustl", "rule file format: wustl, wustl_g")
	searchCmd.Flags().BoolVarP(&searchGroup, "group", "g", false, "group the rule set with RFG before building")
	searchCmd.Flags().StringVarP(&searchTraceFile, "trace", "t", "", "wustl-format packet trace file (required)")
	_ = searchCmd.MarkFlagRequired("rule")
	_ = searchCmd.MarkFlagRequired("trace")

	rootCmd.AddCommand(searchCmd)
}
