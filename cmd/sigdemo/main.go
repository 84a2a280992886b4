// Command sigdemo runs a handful of example suites through the sigtest
// command line front end.
package main

import (
	"os"

	"github.com/joshuapare/sigmatest/sigtest"
	"github.com/joshuapare/sigmatest/sigtest/cli"
)

func main() {
	registerSuites()
	os.Exit(cli.Execute(sigtest.Default))
}
