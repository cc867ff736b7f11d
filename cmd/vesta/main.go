// Command vesta is the Vesta language interpreter.
package main

import (
	"fmt"
	"os"

	"github.com/mwantia/vesta/cmd/vesta/cli"

	// Install the scanner behind runtime.Scanner
	_ "github.com/mwantia/vesta/pkg/scan"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	info := cli.VersionInfo{
		Version: version,
		Commit:  commit,
	}
	root := cli.NewRootCommand(info)
	root.AddCommand(cli.NewVersionCommand(info))

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
