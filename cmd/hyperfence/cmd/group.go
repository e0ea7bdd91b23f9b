// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/packetclsfy/hyperfence/internal/driver"
)

var (
	groupRuleFile string
	groupOutFile  string
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Split a rule file into a replication-free partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(groupRuleFile)
		if err != nil {
			return err
		}
		defer f.Close()

		rs, err := readRules(f)
		if err != nil {
			return err
		}

		part, err := driver.GroupRules(rs, viper.GetInt("max_subsets"))
		if err != nil {
			return err
		}

		return writePartitionFile(groupOutFile, part)
	},
}

func init() {
	groupCmd.Flags().StringVarP(&groupRuleFile, "rule", "r", "", "wustl-format rule file (required)")
	groupCmd.Flags().StringVarP(&groupOutFile, "out", "o", "group_result.txt", "partition dump output file")
	_ = groupCmd.MarkFlagRequired("rule")

	rootCmd.AddCommand(groupCmd)
}
