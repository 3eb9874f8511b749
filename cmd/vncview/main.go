// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Command vncview is a headless VNC viewer. It connects to live servers,
// records sessions and replays or inspects FBS recordings.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
