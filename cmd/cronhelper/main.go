package main

import (
	"fmt"
	"os"

	"github.com/jdziat/simple-durable-cron/cmd/cronhelper/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
