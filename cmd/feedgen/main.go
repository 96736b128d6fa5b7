// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

// Command feedgen generates personalized feeds for study participants. It
// runs either a single session (run) or as a supervised daemon (serve).
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
