package main

import (
	"os"

	"github.com/signalnine/sweep/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.NewRootCmd().Execute()))
}
