// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	hyperfence "github.com/packetclsfy/hyperfence"
	"github.com/packetclsfy/hyperfence/internal/driver"
)

var (
	buildRuleFile string
	buildFormat   string
	buildGroup    bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a HyperSplit forest from a rule file or partition dump",
	RunE: func(cmd *cobra.Command, args []string) error {
		part, err := loadPartition(buildRuleFile, buildFormat, buildGroup)
		if err != nil {
			return err
		}

		trees, err := driver.BuildForest(part, viper.GetInt("max_nodes"))
		if err != nil {
			return err
		}

		for i, t := range trees {
			s := t.Stats
			fmt.Printf("subset %d: %d internal, %d external, max depth %d, mean depth %.2f\n",
				i, s.InternalCount, s.ExternalCount, s.MaxDepth, s.MeanDepth)
		}

		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildRuleFile, "rule", "r", "", "rule or partition file (required)")
	buildCmd.Flags().StringVarP(&buildFormat, "format", "f", "wustl", "rule file format: wustl, wustl_g")
	buildCmd.Flags().BoolVarP(&buildGroup, "group", "g", false, "group the rule set with RFG before building")
	_ = buildCmd.MarkFlagRequired("rule")

	rootCmd.AddCommand(buildCmd)
}

// loadPartition reads ruleFile in the given format and, if group is
// true (or the file is already a wustl_g partition), returns it
// regrouped/as-is as a Partition ready to build.
func loadPartition(ruleFile, format string, group bool) (hyperfence.Partition, error) {
	f, err := os.Open(ruleFile)
	if err != nil {
		return hyperfence.Partition{}, err
	}
	defer f.Close()

	switch format {
	case "wustl":
		rs, err := readRules(f)
		if err != nil {
			return hyperfence.Partition{}, err
		}
		if group {
			return driver.GroupRules(rs, viper.GetInt("max_subsets"))
		}
		return hyperfence.Partition{Subsets: []hyperfence.RuleSet{rs}}, nil

	case "wustl_g":
		part, err := readPartition(f)
		if err != nil {
			return hyperfence.Partition{}, err
		}
		if group {
			rs := hyperfence.Flatten(part)
			return driver.GroupRules(rs, viper.GetInt("max_subsets"))
		}
		return part, nil

	default:
		return hyperfence.Partition{}, fmt.Errorf("unknown rule format %q (valid: wustl, wustl_g)", format)
	}
}
