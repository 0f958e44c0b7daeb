// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/situ8/situ/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
