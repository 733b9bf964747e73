package main

import (
	"fmt"
	"os"

	"studynotes/config"
)

func main() {
	cfg := config.LoadConfig()
	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
