// SPDX-License-Identifier: MPL-2.0

// strata composes layered agent, validator, and guideline documents.
package main

import cmd "strata-cli/cmd/strata"

func main() {
	cmd.Execute()
}
