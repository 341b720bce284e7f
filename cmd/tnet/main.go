// Package main provides the TNet CLI.
package main

import (
	"fmt"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("TNet %s\n", version)
		return
	}

	fmt.Println("TNet - Tensor Networks for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("")
	fmt.Println("See the examples/ directory for contraction and compression demos.")
}
