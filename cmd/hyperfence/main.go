// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package main

import "github.com/packetclsfy/hyperfence/cmd/hyperfence/cmd"

func main() {
	cmd.Execute()
}
