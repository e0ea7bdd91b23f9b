// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package cmd wires the hyperfence command-line tool: load a rule
// file or a partition dump, optionally group it, build a forest, and
// search a trace against it. The subcommand/flag split and viper-backed
// config file follow junjiewwang/perf-analysis's cmd/cli/cmd layout;
// the actual build/group/search plumbing stays in the root package and
// internal/driver.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	maxSubsets int
	maxNodes   int
)

var rootCmd = &cobra.Command{
	Use:   "hyperfence",
	Short: "Multi-dimensional packet classification over HyperSplit trees",
	Long: `hyperfence compiles firewall-style 5-tuple rule sets into HyperSplit
decision trees, optionally first splitting the rule set into
replication-free subsets (grouping) so no rule is duplicated across
subset trees.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.hyperfence.yaml)")
	rootCmd.PersistentFlags().IntVar(&maxSubsets, "max-subsets", 64, "subset cap for grouping")
	rootCmd.PersistentFlags().IntVar(&maxNodes, "max-nodes", 0, "per-tree internal node cap (0 means unlimited)")

	_ = viper.BindPFlag("max_subsets", rootCmd.PersistentFlags().Lookup("max-subsets"))
	_ = viper.BindPFlag("max_nodes", rootCmd.PersistentFlags().Lookup("max-nodes"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".hyperfence")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("HYPERFENCE")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}
