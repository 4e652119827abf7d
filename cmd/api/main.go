// Package main es el punto de entrada del servicio de autenticación.
package main

import (
	"fmt"
	"os"
)

// Información de versión inyectada en build.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
