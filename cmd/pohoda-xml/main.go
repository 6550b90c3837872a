package main

import (
	"fmt"
	"os"

	"github.com/rezonia/pohoda-xml/cmd/pohoda-xml/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
