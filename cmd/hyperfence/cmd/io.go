// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cmd

import (
	"io"
	"os"

	hyperfence "github.com/packetclsfy/hyperfence"
	"github.com/packetclsfy/hyperfence/internal/ruleio"
)

func readRules(r io.Reader) (hyperfence.RuleSet, error) {
	return ruleio.ParseRules(r)
}

func readPartition(r io.Reader) (hyperfence.Partition, error) {
	return ruleio.ParsePartition(r)
}

func writePartitionFile(path string, part hyperfence.Partition) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ruleio.WritePartition(f, part)
}

func readTrace(path string) (ruleio.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return ruleio.Trace{}, err
	}
	defer f.Close()
	return ruleio.ParseTrace(f)
}
