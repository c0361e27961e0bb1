// The main package for the landcrawler executable.
package main

import (
	"github.com/landgraph/landcrawler/cmd"
)

func main() {
	cmd.Execute()
}
