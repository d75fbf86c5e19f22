// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import "github.com/BIMSBbioinfo/pigx-common/cmd"

func main() {
	cmd.Execute()
}
