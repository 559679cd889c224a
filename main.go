package main

import (
	"os"

	"github.com/Norgate-AV/evelens/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
