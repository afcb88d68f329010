// Package all registers all shell commands.
package all

import (
	// commands
	_ "github.com/robotalks/navio.go/pkg/cli/cmds/flight"
)
