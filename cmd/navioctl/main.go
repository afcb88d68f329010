package main

import (
	"github.com/robotalks/navio.go/pkg/cli/sh"

	_ "github.com/robotalks/navio.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
