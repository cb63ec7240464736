// Package main is the single-binary entrypoint for staffxp.
package main

import (
	_ "time/tzdata" // zoneinfo for engine.time_zone

	"github.com/hotelops/staffxp/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
