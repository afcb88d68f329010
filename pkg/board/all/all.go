// Package all registers every board implementation.
package all

import (
	// board implementations
	_ "github.com/robotalks/navio.go/pkg/board/link"
	_ "github.com/robotalks/navio.go/pkg/board/navio2"
	_ "github.com/robotalks/navio.go/pkg/board/navioplus"
	_ "github.com/robotalks/navio.go/pkg/board/sim"
)
