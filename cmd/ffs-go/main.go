package main

import (
	"fmt"
	"os"

	"github.com/hsiuhsiu/ffs-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ffs-go: %v\n", err)
		os.Exit(1)
	}
}
